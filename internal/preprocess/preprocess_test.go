package preprocess_test

import (
	"context"
	"strings"
	"testing"

	"github.com/valpere/lingopipe/internal/pipeline"
	"github.com/valpere/lingopipe/internal/preprocess"
)

func runPreprocess(t *testing.T, rc *pipeline.Context) {
	t.Helper()
	err := preprocess.New().Handle(context.Background(), rc, func(ctx context.Context, rc *pipeline.Context) error {
		return nil
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
}

func TestHandle_DropsEmptyEntries(t *testing.T) {
	rc := pipeline.NewContext(pipeline.Request{
		SourceLocale:  "en",
		TargetLocales: []string{"uk"},
		Texts: map[string]string{
			"keep":    "Hello",
			"empty":   "",
			"spaces":  "   ",
			"newline": "\n\t",
		},
	})

	runPreprocess(t, rc)

	texts := rc.Texts()
	if len(texts) != 1 || texts["keep"] != "Hello" {
		t.Errorf("expected only keep to survive, got %v", texts)
	}

	warnings := rc.Warnings()
	if len(warnings) != 1 || !strings.Contains(warnings[0], "3") {
		t.Errorf("expected a warning naming 3 dropped entries, got %v", warnings)
	}
}

func TestHandle_CleanInputIsUntouched(t *testing.T) {
	rc := pipeline.NewContext(pipeline.Request{
		SourceLocale:  "en",
		TargetLocales: []string{"uk"},
		Texts:         map[string]string{"a": "one", "b": "two"},
	})

	runPreprocess(t, rc)

	if len(rc.Texts()) != 2 {
		t.Errorf("clean working set changed: %v", rc.Texts())
	}
	if len(rc.Warnings()) != 0 {
		t.Errorf("unexpected warnings: %v", rc.Warnings())
	}
}

func TestHandle_PropagatesSourceFile(t *testing.T) {
	rc := pipeline.NewContext(pipeline.Request{
		SourceLocale:  "en",
		TargetLocales: []string{"uk"},
		Texts:         map[string]string{"a": "one"},
		Metadata:      map[string]string{"source_file": "app.json"},
	})

	runPreprocess(t, rc)

	if got, ok := rc.Metadata("source_file"); !ok || got != "app.json" {
		t.Errorf("source_file not propagated: %q", got)
	}
}
