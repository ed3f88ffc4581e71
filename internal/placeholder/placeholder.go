// Package placeholder protects structured content (HTML tags, fenced code
// blocks, inline code spans, printf verbs, {braced} variables) during
// translation by replacing it with numbered markers ([PH0], [PH1], …) that
// providers are instructed to preserve. The preparation stage masks every
// working text; the post-process stage restores the originals into the
// produced translations.
package placeholder

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/valpere/lingopipe/internal/pipeline"
)

const pluginName = "placeholder"

var (
	// fenced code blocks: ```...``` (non-greedy, may span lines)
	reFencedCode = regexp.MustCompile("(?s)```.*?```")

	// inline code spans: `...`
	reInlineCode = regexp.MustCompile("`[^`]+`")

	// HTML/XML tags: opening, closing, and self-closing
	reHTMLTag = regexp.MustCompile(`<[^>]+>`)

	// printf-style verbs: %s, %d, %02.1f, %v …
	rePrintfVerb = regexp.MustCompile(`%[-+ #0]*[0-9.*]*[a-zA-Z]`)

	// interpolation variables: {name}, {{name}}
	reBracedVar = regexp.MustCompile(`\{\{?\w+\}?\}`)

	// placeholder reference in translated text
	rePlaceholder = regexp.MustCompile(`\[PH(\d+)\]`)
)

// Protect replaces structured markup with numbered placeholders [PH0],
// [PH1], … in the order it appears. It returns the modified text and the
// captured originals so Restore can put them back.
func Protect(text string) (string, []string) {
	var markers []string
	counter := 0

	replace := func(match string) string {
		id := fmt.Sprintf("[PH%d]", counter)
		markers = append(markers, match)
		counter++
		return id
	}

	// Order matters: fenced first (longest match), then inline, then tags,
	// then the short variable forms.
	text = reFencedCode.ReplaceAllStringFunc(text, replace)
	text = reInlineCode.ReplaceAllStringFunc(text, replace)
	text = reHTMLTag.ReplaceAllStringFunc(text, replace)
	text = rePrintfVerb.ReplaceAllStringFunc(text, replace)
	text = reBracedVar.ReplaceAllStringFunc(text, replace)

	return text, markers
}

// Restore substitutes [PHn] markers back with the originals captured by
// Protect. Unrecognised indices leave the placeholder as-is.
func Restore(text string, markers []string) string {
	return rePlaceholder.ReplaceAllStringFunc(text, func(match string) string {
		sub := rePlaceholder.FindStringSubmatch(match)
		if len(sub) < 2 {
			return match
		}
		idx := 0
		fmt.Sscanf(sub[1], "%d", &idx)
		if idx < 0 || idx >= len(markers) {
			return match
		}
		return markers[idx]
	})
}

// Missing returns the marker indices created by Protect that no longer
// appear in the translated text.
func Missing(text string, markers []string) []int {
	var missing []int
	for i := range markers {
		if !strings.Contains(text, fmt.Sprintf("[PH%d]", i)) {
			missing = append(missing, i)
		}
	}
	return missing
}

// MaskHandler is the preparation stage handler: it masks every working text
// and parks the captured markers per key for RestoreHandler.
type MaskHandler struct{}

func NewMask() *MaskHandler { return &MaskHandler{} }

func (h *MaskHandler) Name() string { return "placeholder-mask" }

func (h *MaskHandler) Handle(ctx context.Context, rc *pipeline.Context, next pipeline.Next) error {
	texts := rc.Texts()
	masked := make(map[string]string, len(texts))
	markers := make(map[string][]string)

	for key, text := range texts {
		m, captured := Protect(text)
		masked[key] = m
		if len(captured) > 0 {
			markers[key] = captured
		}
	}

	rc.SetPluginData(pluginName, "markers", markers)
	rc.SetTexts(masked)
	return next(ctx, rc)
}

// RestoreHandler is the post-process stage handler: it substitutes captured
// markup back into every locale's translations and warns about markers the
// provider dropped.
type RestoreHandler struct{}

func NewRestore() *RestoreHandler { return &RestoreHandler{} }

func (h *RestoreHandler) Name() string { return "placeholder-restore" }

func (h *RestoreHandler) Handle(ctx context.Context, rc *pipeline.Context, next pipeline.Next) error {
	v, ok := rc.PluginData(pluginName, "markers")
	if !ok {
		return next(ctx, rc)
	}
	markers, ok := v.(map[string][]string)
	if !ok || len(markers) == 0 {
		return next(ctx, rc)
	}

	for _, locale := range rc.Request.TargetLocales {
		for key, text := range rc.Translations(locale) {
			captured := markersFor(markers, key)
			if len(captured) == 0 {
				continue
			}
			// Split parts each carry only a subset of the original markers;
			// the completeness check only makes sense for whole entries.
			if !partKeyRe.MatchString(key) {
				if missing := Missing(text, captured); len(missing) > 0 {
					rc.AddWarning(fmt.Sprintf("%s/%s lost %d placeholder(s) in translation", locale, key, len(missing)))
				}
			}
			rc.AddTranslation(locale, key, Restore(text, captured))
		}
	}
	return next(ctx, rc)
}

// partKeyRe strips the split suffix so parts of an oversized entry reuse the
// markers captured for their original key.
var partKeyRe = regexp.MustCompile(`^(.+)_part_\d+$`)

func markersFor(markers map[string][]string, key string) []string {
	if m, ok := markers[key]; ok {
		return m
	}
	if sub := partKeyRe.FindStringSubmatch(key); sub != nil {
		return markers[sub[1]]
	}
	return nil
}
