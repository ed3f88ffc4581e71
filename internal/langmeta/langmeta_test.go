package langmeta_test

import (
	"testing"

	"github.com/valpere/lingopipe/internal/langmeta"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		locale   string
		wantName string
		wantOK   bool
	}{
		{"uk", "Ukrainian", true},
		{"UK", "Ukrainian", true},
		{"pt-BR", "Portuguese (Brazil)", true},
		{"pt_br", "Portuguese (Brazil)", true}, // underscore and case normalized
		{"pt-XX", "Portuguese", true},          // unknown region falls back to base
		{"zh-TW", "Chinese (Traditional)", true},
		{"xx", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		m, ok := langmeta.Resolve(tt.locale)
		if ok != tt.wantOK {
			t.Errorf("Resolve(%q) ok = %v, want %v", tt.locale, ok, tt.wantOK)
			continue
		}
		if ok && m.Name != tt.wantName {
			t.Errorf("Resolve(%q).Name = %q, want %q", tt.locale, m.Name, tt.wantName)
		}
	}
}

func TestDisplayName(t *testing.T) {
	if got := langmeta.DisplayName("ko"); got != "Korean" {
		t.Errorf("DisplayName(ko) = %q", got)
	}
	// Unknown codes stay usable in a prompt as-is.
	if got := langmeta.DisplayName("tlh"); got != "tlh" {
		t.Errorf("DisplayName(tlh) = %q, want the code itself", got)
	}
}

func TestPlurals(t *testing.T) {
	tests := []struct {
		locale string
		want   int
	}{
		{"ja", 1},
		{"en", 2},
		{"uk", 3},
		{"ar", 6},
		{"xx", 2}, // default
	}
	for _, tt := range tests {
		if got := langmeta.Plurals(tt.locale); got != tt.want {
			t.Errorf("Plurals(%q) = %d, want %d", tt.locale, got, tt.want)
		}
	}
}
