// Package detector wraps the lingua-go language detector. Building a
// detector is expensive; construct once and reuse.
package detector

import (
	"strings"

	lingua "github.com/pemistahl/lingua-go"
)

// byISO maps the base language codes a translation run commonly targets to
// lingua languages. Locales outside this map fall back to all-language
// detection.
var byISO = map[string]lingua.Language{
	"ar": lingua.Arabic,
	"bg": lingua.Bulgarian,
	"cs": lingua.Czech,
	"da": lingua.Danish,
	"de": lingua.German,
	"el": lingua.Greek,
	"en": lingua.English,
	"es": lingua.Spanish,
	"et": lingua.Estonian,
	"fa": lingua.Persian,
	"fi": lingua.Finnish,
	"fr": lingua.French,
	"he": lingua.Hebrew,
	"hi": lingua.Hindi,
	"hr": lingua.Croatian,
	"hu": lingua.Hungarian,
	"id": lingua.Indonesian,
	"it": lingua.Italian,
	"ja": lingua.Japanese,
	"ko": lingua.Korean,
	"lt": lingua.Lithuanian,
	"lv": lingua.Latvian,
	"ms": lingua.Malay,
	"nb": lingua.Bokmal,
	"nl": lingua.Dutch,
	"pl": lingua.Polish,
	"pt": lingua.Portuguese,
	"ro": lingua.Romanian,
	"ru": lingua.Russian,
	"sk": lingua.Slovak,
	"sl": lingua.Slovene,
	"sr": lingua.Serbian,
	"sv": lingua.Swedish,
	"th": lingua.Thai,
	"tr": lingua.Turkish,
	"uk": lingua.Ukrainian,
	"vi": lingua.Vietnamese,
	"zh": lingua.Chinese,
}

type Detector struct {
	detector lingua.LanguageDetector
}

// New builds a detector over all supported languages.
func New() *Detector {
	return &Detector{
		detector: lingua.NewLanguageDetectorBuilder().
			FromAllLanguages().
			Build(),
	}
}

// NewForLocales restricts detection to the given locales plus English,
// which keeps classification fast and more accurate for the small sets a
// translation run targets. Unknown codes fall back to all languages.
func NewForLocales(locales []string) *Detector {
	seen := map[lingua.Language]bool{lingua.English: true}
	langs := []lingua.Language{lingua.English}

	for _, locale := range locales {
		base, _, _ := strings.Cut(strings.ReplaceAll(locale, "_", "-"), "-")
		lang, ok := byISO[strings.ToLower(base)]
		if !ok {
			return New()
		}
		if seen[lang] {
			continue
		}
		seen[lang] = true
		langs = append(langs, lang)
	}

	if len(langs) < 2 {
		return New()
	}

	return &Detector{
		detector: lingua.NewLanguageDetectorBuilder().
			FromLanguages(langs...).
			Build(),
	}
}

// Detect returns the detected language of text.
func (d *Detector) Detect(text string) (lingua.Language, bool) {
	if text == "" {
		return lingua.Unknown, false
	}
	return d.detector.DetectLanguageOf(text)
}

// DetectISO returns the lowercase ISO 639-1 code of the detected language.
func (d *Detector) DetectISO(text string) (string, bool) {
	lang, ok := d.Detect(text)
	if !ok {
		return "", false
	}
	return strings.ToLower(lang.IsoCode639_1().String()), true
}
