// Package consensus reconciles answers from multiple providers: for every
// key with more than one candidate it keeps the text most similar to the
// other candidates, the centre of the cluster.
package consensus

import (
	"context"

	"github.com/valpere/lingopipe/internal/pipeline"
	"github.com/valpere/lingopipe/internal/translate"
)

// Handler is the consensus stage handler. With a single provider it is a
// pass-through.
type Handler struct{}

func New() *Handler { return &Handler{} }

func (h *Handler) Name() string { return "consensus" }

func (h *Handler) Handle(ctx context.Context, rc *pipeline.Context, next pipeline.Next) error {
	for locale, byKey := range translate.Candidates(rc) {
		for key, candidates := range byKey {
			if len(candidates) < 2 {
				continue
			}
			rc.AddTranslation(locale, key, pick(candidates).Text)
		}
	}
	return next(ctx, rc)
}

// pick returns the candidate with the highest mean similarity to all others.
// Ties keep the earliest candidate, which preserves provider priority order.
func pick(candidates []translate.Candidate) translate.Candidate {
	best := candidates[0]
	bestScore := -1.0

	for i, c := range candidates {
		score := 0.0
		for j, other := range candidates {
			if i == j {
				continue
			}
			score += similarity(c.Text, other.Text)
		}
		score /= float64(len(candidates) - 1)
		if score > bestScore {
			best, bestScore = c, score
		}
	}
	return best
}

// similarity returns a score in [0, 1] based on rune-aware edit distance.
func similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	la, lb := len([]rune(a)), len([]rune(b))
	maxLen := la
	if lb > maxLen {
		maxLen = lb
	}
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(levenshtein(a, b))/float64(maxLen)
}

// levenshtein computes edit distance with a space-optimized two-row DP.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	la, lb := len(ra), len(rb)
	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}

	prev := make([]int, lb+1)
	curr := make([]int, lb+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= la; i++ {
		curr[0] = i
		for j := 1; j <= lb; j++ {
			if ra[i-1] == rb[j-1] {
				curr[j] = prev[j-1]
			} else {
				min := prev[j]
				if prev[j-1] < min {
					min = prev[j-1]
				}
				if curr[j-1] < min {
					min = curr[j-1]
				}
				curr[j] = min + 1
			}
		}
		prev, curr = curr, prev
	}

	return prev[lb]
}
