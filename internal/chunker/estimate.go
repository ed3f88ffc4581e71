// Package chunker packs the working text set into token-bounded batches so
// every downstream provider call stays within its input limit. Token cost is
// estimated per dominant script, oversized entries are split at sentence
// boundaries, and split parts are reassembled after translation.
package chunker

import (
	"unicode"
)

// Script identifies the dominant writing system of a text.
type Script string

const (
	ScriptLatin      Script = "latin"
	ScriptCJK        Script = "cjk"
	ScriptArabic     Script = "arabic"
	ScriptCyrillic   Script = "cyrillic"
	ScriptDevanagari Script = "devanagari"
	ScriptThai       Script = "thai"
)

// DefaultMultipliers maps scripts to tokens-per-character estimates.
// Non-Latin scripts tokenize less efficiently, CJK worst of all.
func DefaultMultipliers() map[Script]float64 {
	return map[Script]float64{
		ScriptLatin:      0.25,
		ScriptCJK:        1.0,
		ScriptArabic:     0.5,
		ScriptCyrillic:   0.5,
		ScriptDevanagari: 0.7,
		ScriptThai:       0.7,
	}
}

// dominanceThreshold is the share of total rune count a script must exceed,
// in addition to being the plurality, before it wins over the Latin default.
const dominanceThreshold = 0.3

// DetectScript scans text and returns the plurality script when it covers
// more than 30% of the runes; otherwise Latin.
func DetectScript(text string) Script {
	counts := make(map[Script]int)
	total := 0

	for _, r := range text {
		total++
		switch {
		case unicode.Is(unicode.Han, r), unicode.Is(unicode.Hiragana, r),
			unicode.Is(unicode.Katakana, r), unicode.Is(unicode.Hangul, r):
			counts[ScriptCJK]++
		case unicode.Is(unicode.Arabic, r):
			counts[ScriptArabic]++
		case unicode.Is(unicode.Cyrillic, r):
			counts[ScriptCyrillic]++
		case unicode.Is(unicode.Devanagari, r):
			counts[ScriptDevanagari]++
		case unicode.Is(unicode.Thai, r):
			counts[ScriptThai]++
		}
	}

	if total == 0 {
		return ScriptLatin
	}

	best := ScriptLatin
	bestCount := 0
	for script, n := range counts {
		if n > bestCount {
			best, bestCount = script, n
		}
	}

	if bestCount == 0 || float64(bestCount)/float64(total) <= dominanceThreshold {
		return ScriptLatin
	}
	return best
}

// EstimateTokens estimates the token cost of one entry: rune count times the
// dominant script's multiplier, plus a fixed overhead for key framing.
func (c *Chunker) EstimateTokens(text string) int {
	runes := 0
	for range text {
		runes++
	}
	mult, ok := c.cfg.Multipliers[DetectScript(text)]
	if !ok {
		mult = c.cfg.Multipliers[ScriptLatin]
	}
	return int(float64(runes)*mult) + c.cfg.Overhead
}
