package diff_test

import (
	"testing"

	"github.com/valpere/lingopipe/internal/diff"
)

func mustChecksummer(t *testing.T, digest diff.Digest, normalize, includeKey bool) *diff.Checksummer {
	t.Helper()
	c, err := diff.NewChecksummer(digest, normalize, includeKey)
	if err != nil {
		t.Fatalf("NewChecksummer: %v", err)
	}
	return c
}

func TestChecksummer_Deterministic(t *testing.T) {
	c := mustChecksummer(t, diff.DigestSHA256, false, false)

	a := c.Sum("greet", "Hello, world!")
	b := c.Sum("greet", "Hello, world!")
	if a != b {
		t.Errorf("same input must hash identically: %q vs %q", a, b)
	}
	if a == c.Sum("greet", "Hello, world!!") {
		t.Error("different input must hash differently")
	}
}

func TestChecksummer_Digests(t *testing.T) {
	tests := []struct {
		digest diff.Digest
		hexLen int
	}{
		{diff.DigestMD5, 32},
		{diff.DigestSHA1, 40},
		{diff.DigestSHA256, 64},
	}
	for _, tt := range tests {
		c := mustChecksummer(t, tt.digest, false, false)
		sum := c.Sum("k", "text")
		if len(sum) != tt.hexLen {
			t.Errorf("%s: expected %d hex chars, got %d", tt.digest, tt.hexLen, len(sum))
		}
	}
}

func TestChecksummer_UnknownDigest(t *testing.T) {
	if _, err := diff.NewChecksummer("crc32", false, false); err == nil {
		t.Error("expected error for unsupported digest")
	}
}

func TestChecksummer_DefaultDigest(t *testing.T) {
	c := mustChecksummer(t, "", false, false)
	ref := mustChecksummer(t, diff.DigestSHA256, false, false)
	if c.Sum("k", "text") != ref.Sum("k", "text") {
		t.Error("empty digest should default to sha256")
	}
}

func TestChecksummer_WhitespaceNormalization(t *testing.T) {
	c := mustChecksummer(t, diff.DigestSHA256, true, false)

	base := c.Sum("k", "Hello world")
	variants := []string{
		"Hello  world",
		"  Hello world  ",
		"Hello\tworld",
		"Hello\nworld",
	}
	for _, v := range variants {
		if c.Sum("k", v) != base {
			t.Errorf("%q should normalize to the same checksum", v)
		}
	}

	// Without normalization the variants differ.
	raw := mustChecksummer(t, diff.DigestSHA256, false, false)
	if raw.Sum("k", "Hello  world") == raw.Sum("k", "Hello world") {
		t.Error("raw checksummer should be whitespace sensitive")
	}
}

func TestChecksummer_IncludeKey(t *testing.T) {
	keyed := mustChecksummer(t, diff.DigestSHA256, false, true)
	plain := mustChecksummer(t, diff.DigestSHA256, false, false)

	if keyed.Sum("a", "same") == keyed.Sum("b", "same") {
		t.Error("keyed checksums must differ per key")
	}
	if plain.Sum("a", "same") != plain.Sum("b", "same") {
		t.Error("plain checksums must ignore the key")
	}
}

func TestChecksummer_SumAll(t *testing.T) {
	c := mustChecksummer(t, diff.DigestSHA256, false, false)

	texts := map[string]string{"a": "one", "b": "two", "c": "three"}
	sums := c.SumAll(texts)

	if len(sums) != len(texts) {
		t.Fatalf("expected %d sums, got %d", len(texts), len(sums))
	}
	for k, v := range texts {
		if sums[k] != c.Sum(k, v) {
			t.Errorf("SumAll[%s] disagrees with Sum", k)
		}
		if len(sums[k]) != 64 {
			t.Errorf("SumAll[%s] is not a sha256 hex digest: %q", k, sums[k])
		}
	}
}
