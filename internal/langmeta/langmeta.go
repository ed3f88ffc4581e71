// Package langmeta is a shared locale metadata registry: display names and
// plural-form counts. It is consumed by prompt construction, never by the
// pipeline engine itself.
package langmeta

import "strings"

// Meta describes one locale.
type Meta struct {
	Name    string
	Plurals int
}

// registry holds canonical metadata. Locale variants are resolved in
// Resolve via normalization and base-language fallback.
var registry = map[string]Meta{
	"ar":    {Name: "Arabic", Plurals: 6},
	"bg":    {Name: "Bulgarian", Plurals: 2},
	"cs":    {Name: "Czech", Plurals: 3},
	"da":    {Name: "Danish", Plurals: 2},
	"de":    {Name: "German", Plurals: 2},
	"el":    {Name: "Greek", Plurals: 2},
	"en":    {Name: "English", Plurals: 2},
	"en-GB": {Name: "English (UK)", Plurals: 2},
	"en-US": {Name: "English (US)", Plurals: 2},
	"es":    {Name: "Spanish", Plurals: 2},
	"et":    {Name: "Estonian", Plurals: 2},
	"fa":    {Name: "Persian", Plurals: 2},
	"fi":    {Name: "Finnish", Plurals: 2},
	"fr":    {Name: "French", Plurals: 2},
	"he":    {Name: "Hebrew", Plurals: 4},
	"hi":    {Name: "Hindi", Plurals: 2},
	"hr":    {Name: "Croatian", Plurals: 3},
	"hu":    {Name: "Hungarian", Plurals: 2},
	"id":    {Name: "Indonesian", Plurals: 1},
	"it":    {Name: "Italian", Plurals: 2},
	"ja":    {Name: "Japanese", Plurals: 1},
	"ko":    {Name: "Korean", Plurals: 1},
	"lt":    {Name: "Lithuanian", Plurals: 3},
	"lv":    {Name: "Latvian", Plurals: 3},
	"ms":    {Name: "Malay", Plurals: 1},
	"nb":    {Name: "Norwegian Bokmål", Plurals: 2},
	"nl":    {Name: "Dutch", Plurals: 2},
	"pl":    {Name: "Polish", Plurals: 3},
	"pt":    {Name: "Portuguese", Plurals: 2},
	"pt-BR": {Name: "Portuguese (Brazil)", Plurals: 2},
	"ro":    {Name: "Romanian", Plurals: 3},
	"ru":    {Name: "Russian", Plurals: 3},
	"sk":    {Name: "Slovak", Plurals: 3},
	"sl":    {Name: "Slovenian", Plurals: 4},
	"sr":    {Name: "Serbian", Plurals: 3},
	"sv":    {Name: "Swedish", Plurals: 2},
	"th":    {Name: "Thai", Plurals: 1},
	"tr":    {Name: "Turkish", Plurals: 2},
	"uk":    {Name: "Ukrainian", Plurals: 3},
	"vi":    {Name: "Vietnamese", Plurals: 1},
	"zh":    {Name: "Chinese", Plurals: 1},
	"zh-CN": {Name: "Chinese (Simplified)", Plurals: 1},
	"zh-TW": {Name: "Chinese (Traditional)", Plurals: 1},
}

// Resolve looks up a locale, normalizing separators and case, and falling
// back to the base language when the variant is unknown.
func Resolve(locale string) (Meta, bool) {
	norm := normalize(locale)
	if m, ok := registry[norm]; ok {
		return m, true
	}
	if base, _, found := strings.Cut(norm, "-"); found {
		if m, ok := registry[base]; ok {
			return m, true
		}
	}
	return Meta{}, false
}

// DisplayName returns the locale's English display name, or the code itself
// when unknown (still usable in a prompt).
func DisplayName(locale string) string {
	if m, ok := Resolve(locale); ok {
		return m.Name
	}
	return locale
}

// Plurals returns the locale's plural-form count, defaulting to 2.
func Plurals(locale string) int {
	if m, ok := Resolve(locale); ok {
		return m.Plurals
	}
	return 2
}

func normalize(locale string) string {
	locale = strings.ReplaceAll(locale, "_", "-")
	base, region, found := strings.Cut(locale, "-")
	base = strings.ToLower(base)
	if !found {
		return base
	}
	return base + "-" + strings.ToUpper(region)
}
