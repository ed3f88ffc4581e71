// Package preprocess cleans the working set before diff detection: entries
// with no translatable content are dropped so they never reach providers or
// pollute the persisted baseline.
package preprocess

import (
	"context"
	"fmt"
	"strings"

	"github.com/valpere/lingopipe/internal/pipeline"
)

// Handler is the pre-process stage handler.
type Handler struct{}

func New() *Handler { return &Handler{} }

func (h *Handler) Name() string { return "preprocess" }

func (h *Handler) Handle(ctx context.Context, rc *pipeline.Context, next pipeline.Next) error {
	texts := rc.Texts()
	kept := make(map[string]string, len(texts))
	dropped := 0

	for key, text := range texts {
		if strings.TrimSpace(text) == "" {
			dropped++
			continue
		}
		kept[key] = text
	}

	if dropped > 0 {
		rc.AddWarning(fmt.Sprintf("dropped %d empty entr%s from working set", dropped, plural(dropped)))
		rc.SetTexts(kept)
	}

	if source := rc.Request.Metadata["source_file"]; source != "" {
		rc.SetMetadata("source_file", source)
	}

	return next(ctx, rc)
}

func plural(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}
