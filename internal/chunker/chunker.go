package chunker

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/valpere/lingopipe/internal/pipeline"
)

const pluginName = "chunker"

const (
	// DefaultMaxTokens is the provider input limit assumed when none is
	// configured.
	DefaultMaxTokens = 4000
	// DefaultBufferPercent keeps the effective budget safely below the hard
	// provider limit.
	DefaultBufferPercent = 0.9
	// DefaultOverhead is the fixed per-entry token cost for structural and
	// key framing.
	DefaultOverhead = 10
)

// Config controls budgets, per-script multipliers and the split-part join
// rule.
type Config struct {
	MaxTokens     int
	BufferPercent float64
	Multipliers   map[Script]float64
	Overhead      int
	PartJoiner    string
}

func (c Config) withDefaults() Config {
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.BufferPercent <= 0 || c.BufferPercent > 1 {
		c.BufferPercent = DefaultBufferPercent
	}
	if c.Multipliers == nil {
		c.Multipliers = DefaultMultipliers()
	}
	if c.Overhead <= 0 {
		c.Overhead = DefaultOverhead
	}
	if c.PartJoiner == "" {
		c.PartJoiner = " "
	}
	return c
}

// Chunk is an ordered partition of the working text set whose estimated
// token sum fits the effective budget.
type Chunk struct {
	Keys   []string
	Texts  map[string]string
	Tokens int
}

// Chunker is the chunking stage handler. Register Handle on the chunking
// stage and Terminate as a terminator so split parts are merged back even
// when the run fails mid-way.
type Chunker struct {
	cfg Config
}

// New applies defaults and returns a chunker.
func New(cfg Config) *Chunker {
	return &Chunker{cfg: cfg.withDefaults()}
}

func (c *Chunker) Name() string { return pluginName }

// Budget returns the effective token budget: the configured maximum scaled
// by the buffer percentage.
func (c *Chunker) Budget() int {
	return int(float64(c.cfg.MaxTokens) * c.cfg.BufferPercent)
}

// Handle packs the current working set into chunks and parks them in the
// plugin namespace for the translation stage.
func (c *Chunker) Handle(ctx context.Context, rc *pipeline.Context, next pipeline.Next) error {
	chunks := c.Pack(rc.Texts())
	rc.SetPluginData(pluginName, "chunks", chunks)
	return next(ctx, rc)
}

// Chunks returns the chunk list computed by Handle.
func Chunks(rc *pipeline.Context) []Chunk {
	v, ok := rc.PluginData(pluginName, "chunks")
	if !ok {
		return nil
	}
	chunks, _ := v.([]Chunk)
	return chunks
}

// Pack partitions texts into budget-bounded chunks: a greedy, stable-order,
// single-pass packing. An entry whose own estimate exceeds the budget
// flushes the running chunk and is split into part-suffixed sub-chunks.
func (c *Chunker) Pack(texts map[string]string) []Chunk {
	if len(texts) == 0 {
		return nil
	}

	keys := make([]string, 0, len(texts))
	for k := range texts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	budget := c.Budget()
	var chunks []Chunk
	current := newChunk()

	flush := func() {
		if len(current.Keys) > 0 {
			chunks = append(chunks, current)
			current = newChunk()
		}
	}

	for _, key := range keys {
		text := texts[key]
		tokens := c.EstimateTokens(text)

		if tokens > budget {
			flush()
			chunks = append(chunks, c.splitOversized(key, text)...)
			continue
		}

		if current.Tokens+tokens > budget {
			flush()
		}

		current.Keys = append(current.Keys, key)
		current.Texts[key] = text
		current.Tokens += tokens
	}
	flush()

	return chunks
}

func newChunk() Chunk {
	return Chunk{Texts: make(map[string]string)}
}

// splitOversized segments text into sentences and greedily packs them into
// single-entry chunks keyed <key>_part_<n>. A lone sentence that exceeds the
// budget on its own cannot be split further and keeps its own chunk.
func (c *Chunker) splitOversized(key, text string) []Chunk {
	sentences := splitSentences(text)
	budget := c.Budget()

	var groups []string
	var sb strings.Builder
	groupTokens := 0

	flush := func() {
		if sb.Len() > 0 {
			groups = append(groups, sb.String())
			sb.Reset()
			groupTokens = 0
		}
	}

	for _, sentence := range sentences {
		tokens := c.EstimateTokens(sentence)
		if groupTokens+tokens > budget {
			flush()
		}
		if sb.Len() > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(sentence)
		groupTokens += tokens
	}
	flush()

	chunks := make([]Chunk, 0, len(groups))
	for i, group := range groups {
		partKey := fmt.Sprintf("%s_part_%d", key, i+1)
		chunks = append(chunks, Chunk{
			Keys:   []string{partKey},
			Texts:  map[string]string{partKey: group},
			Tokens: c.EstimateTokens(group),
		})
	}
	return chunks
}

// sentenceBoundaryRe matches sentence-ending punctuation (with optional
// trailing quotes or brackets) followed by whitespace or end of text.
var sentenceBoundaryRe = regexp.MustCompile(`[.!?。！？]+["')\]]*(\s+|$)`)

// splitSentences cuts text at sentence boundaries, falling back to newline
// splitting when none are found. The whole text is returned as a single
// segment when neither boundary exists.
func splitSentences(text string) []string {
	locs := sentenceBoundaryRe.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		var lines []string
		for _, line := range strings.Split(text, "\n") {
			if trimmed := strings.TrimSpace(line); trimmed != "" {
				lines = append(lines, trimmed)
			}
		}
		if len(lines) == 0 {
			return []string{text}
		}
		return lines
	}

	var sentences []string
	prev := 0
	for _, loc := range locs {
		if s := strings.TrimSpace(text[prev:loc[1]]); s != "" {
			sentences = append(sentences, s)
		}
		prev = loc[1]
	}
	if tail := strings.TrimSpace(text[prev:]); tail != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}

// partKeyRe matches keys produced by splitOversized.
var partKeyRe = regexp.MustCompile(`^(.+)_part_(\d+)$`)

// Reassemble merges part-suffixed keys back into their original key, joining
// values in ascending part order and trimming the result. Non-split keys
// pass through unchanged; no part key survives.
func Reassemble(m map[string]string, joiner string) map[string]string {
	type part struct {
		n    int
		text string
	}
	parts := make(map[string][]part)
	out := make(map[string]string, len(m))

	for key, value := range m {
		sub := partKeyRe.FindStringSubmatch(key)
		if sub == nil {
			out[key] = value
			continue
		}
		n, err := strconv.Atoi(sub[2])
		if err != nil {
			out[key] = value
			continue
		}
		parts[sub[1]] = append(parts[sub[1]], part{n: n, text: value})
	}

	for base, ps := range parts {
		sort.Slice(ps, func(i, j int) bool { return ps[i].n < ps[j].n })
		pieces := make([]string, len(ps))
		for i, p := range ps {
			pieces[i] = p.text
		}
		out[base] = strings.TrimSpace(strings.Join(pieces, joiner))
	}

	return out
}

// Terminate reassembles split-part translations for every target locale.
// Runs unconditionally so partial results are merged even after a failure.
func (c *Chunker) Terminate(ctx context.Context, rc *pipeline.Context, runErr error) error {
	for _, locale := range rc.Request.TargetLocales {
		rc.SetTranslations(locale, Reassemble(rc.Translations(locale), c.cfg.PartJoiner))
	}
	return nil
}
