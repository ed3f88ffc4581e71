package detector

import (
	"testing"
)

// Detector construction is expensive; share one per test binary.
var shared = NewForLocales([]string{"uk", "de", "ja"})

func TestDetectISO(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"english", "The quick brown fox jumps over the lazy dog near the river", "en"},
		{"ukrainian", "Швидка бура лисиця перестрибує через ледачого собаку біля річки", "uk"},
		{"german", "Der schnelle braune Fuchs springt über den faulen Hund am Fluss", "de"},
		{"japanese", "素早い茶色の狐が川の近くで怠け者の犬を飛び越える", "ja"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := shared.DetectISO(tt.text)
			if !ok {
				t.Fatalf("detection failed for %q", tt.text)
			}
			if got != tt.want {
				t.Errorf("DetectISO(%q) = %s, want %s", tt.text, got, tt.want)
			}
		})
	}
}

func TestDetect_Empty(t *testing.T) {
	if _, ok := shared.Detect(""); ok {
		t.Error("empty text should not detect")
	}
	if _, ok := shared.DetectISO(""); ok {
		t.Error("empty text should not detect via ISO either")
	}
}

func TestNewForLocales_NormalizesVariants(t *testing.T) {
	// Region variants and underscore separators resolve to the base
	// language.
	d := NewForLocales([]string{"pt-BR", "uk_UA"})
	got, ok := d.DetectISO("Швидка бура лисиця перестрибує через ледачого собаку біля річки")
	if !ok || got != "uk" {
		t.Errorf("expected uk, got %q (ok=%v)", got, ok)
	}
}

func TestNewForLocales_UnknownFallsBackToAll(t *testing.T) {
	// An unmapped code must not silently shrink the language set.
	d := NewForLocales([]string{"tlh"})
	got, ok := d.DetectISO("The quick brown fox jumps over the lazy dog near the river")
	if !ok || got != "en" {
		t.Errorf("all-language fallback should still detect English, got %q (ok=%v)", got, ok)
	}
}
