package flatten_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/valpere/lingopipe/internal/flatten"
	"github.com/valpere/lingopipe/internal/pipeline"
)

func TestFlatten_Nested(t *testing.T) {
	nested := map[string]any{
		"app": map[string]any{
			"title": "My App",
			"menu": map[string]any{
				"file": "File",
				"edit": "Edit",
			},
		},
		"greeting": "Hello",
		"count":    float64(3), // non-string leaf, skipped
		"enabled":  true,       // non-string leaf, skipped
	}

	flat := flatten.Flatten(nested)

	want := map[string]string{
		"app.title":     "My App",
		"app.menu.file": "File",
		"app.menu.edit": "Edit",
		"greeting":      "Hello",
	}
	if len(flat) != len(want) {
		t.Fatalf("expected %d keys, got %d: %v", len(want), len(flat), flat)
	}
	for k, v := range want {
		if flat[k] != v {
			t.Errorf("flat[%s] = %q, want %q", k, flat[k], v)
		}
	}
}

func TestExpand_RoundTrip(t *testing.T) {
	flat := map[string]string{
		"app.title":     "My App",
		"app.menu.file": "File",
		"greeting":      "Hello",
	}

	again := flatten.Flatten(flatten.Expand(flat))
	if len(again) != len(flat) {
		t.Fatalf("round trip lost keys: %v", again)
	}
	for k, v := range flat {
		if again[k] != v {
			t.Errorf("round trip [%s] = %q, want %q", k, again[k], v)
		}
	}
}

func TestExpand_CollisionKeepsSubtree(t *testing.T) {
	nested := flatten.Expand(map[string]string{
		"a":   "leaf",
		"a.b": "deeper",
	})

	sub, ok := nested["a"].(map[string]any)
	if !ok {
		t.Fatalf("expected subtree under a, got %T", nested["a"])
	}
	if sub["b"] != "deeper" {
		t.Errorf("subtree value = %v", sub["b"])
	}
}

func TestReadWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "locales", "en.json")

	flat := map[string]string{
		"app.title": "My App",
		"greeting":  "Hello",
	}
	if err := flatten.WriteFile(path, flat); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	// File is nested, indented JSON with a trailing newline.
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if raw[len(raw)-1] != '\n' {
		t.Error("output should end with a newline")
	}
	var nested map[string]any
	if err := json.Unmarshal(raw, &nested); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if _, ok := nested["app"].(map[string]any); !ok {
		t.Error("dot keys should expand to nesting on disk")
	}

	got, err := flatten.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	for k, v := range flat {
		if got[k] != v {
			t.Errorf("read back [%s] = %q, want %q", k, got[k], v)
		}
	}
}

func TestReadFile_Errors(t *testing.T) {
	if _, err := flatten.ReadFile("/no/such/file.json"); err == nil {
		t.Error("expected error for missing file")
	}

	bad := filepath.Join(t.TempDir(), "bad.json")
	os.WriteFile(bad, []byte("{not json"), 0644)
	if _, err := flatten.ReadFile(bad); err == nil {
		t.Error("expected error for malformed JSON")
	}
}

// --- Writer terminator tests ---

func TestWriter_WritesPerLocale(t *testing.T) {
	dir := t.TempDir()
	w := flatten.NewWriter(dir)

	rc := pipeline.NewContext(pipeline.Request{
		SourceLocale:  "en",
		TargetLocales: []string{"uk", "de"},
	})
	rc.AddTranslation("uk", "greeting", "Привіт")
	rc.AddTranslation("de", "greeting", "Hallo")

	if err := w.Terminate(context.Background(), rc, nil); err != nil {
		t.Fatalf("Terminate: %v", err)
	}

	for locale, want := range map[string]string{"uk": "Привіт", "de": "Hallo"} {
		path := filepath.Join(dir, locale+".json")
		got, err := flatten.ReadFile(path)
		if err != nil {
			t.Fatalf("read %s: %v", path, err)
		}
		if got["greeting"] != want {
			t.Errorf("%s greeting = %q, want %q", locale, got["greeting"], want)
		}
		if recorded, ok := rc.Metadata("output:" + locale); !ok || recorded != path {
			t.Errorf("output path not recorded for %s: %q", locale, recorded)
		}
	}
}

func TestWriter_SkipsFailedRun(t *testing.T) {
	dir := t.TempDir()
	w := flatten.NewWriter(dir)

	rc := pipeline.NewContext(pipeline.Request{
		SourceLocale:  "en",
		TargetLocales: []string{"uk"},
	})
	rc.AddTranslation("uk", "greeting", "Привіт")

	if err := w.Terminate(context.Background(), rc, errors.New("run failed")); err != nil {
		t.Fatalf("Terminate: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "uk.json")); !os.IsNotExist(err) {
		t.Error("no files should be written for a failed run")
	}
}

func TestWriter_SkipsEmptyLocale(t *testing.T) {
	dir := t.TempDir()
	w := flatten.NewWriter(dir)

	rc := pipeline.NewContext(pipeline.Request{
		SourceLocale:  "en",
		TargetLocales: []string{"uk"},
	})

	if err := w.Terminate(context.Background(), rc, nil); err != nil {
		t.Fatalf("Terminate: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "uk.json")); !os.IsNotExist(err) {
		t.Error("locale without translations should produce no file")
	}
}
