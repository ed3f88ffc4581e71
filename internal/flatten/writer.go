package flatten

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/valpere/lingopipe/internal/pipeline"
)

// Writer persists each locale's merged translations to <dir>/<locale>.json.
// Register Terminate below the reassembly terminator's priority so split
// parts are already merged by the time files are written; nothing is written
// for a failed run.
type Writer struct {
	dir string
}

func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

func (w *Writer) Name() string { return "file-writer" }

func (w *Writer) Terminate(ctx context.Context, rc *pipeline.Context, runErr error) error {
	if runErr != nil {
		return nil
	}
	for _, locale := range rc.Request.TargetLocales {
		translations := rc.Translations(locale)
		if len(translations) == 0 {
			continue
		}
		path := filepath.Join(w.dir, locale+".json")
		if err := WriteFile(path, translations); err != nil {
			return fmt.Errorf("output for %s: %w", locale, err)
		}
		rc.SetMetadata("output:"+locale, path)
	}
	return nil
}
