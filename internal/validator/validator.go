// Package validator checks that produced translations are written in the
// expected target language. It is the validation stage handler.
package validator

import (
	"context"
	"fmt"
	"strings"

	"github.com/valpere/lingopipe/internal/detector"
	"github.com/valpere/lingopipe/internal/pipeline"
)

// minValidationLength is the minimum rune count required to attempt language
// detection. Shorter texts produce unreliable results and pass unchecked.
const minValidationLength = 20

// Config controls how detection mismatches are reported.
type Config struct {
	// Strict turns mismatches into run-aborting errors instead of warnings.
	Strict bool
}

// Validator is the validation stage handler. The underlying detector is
// expensive to build; construct once and reuse across runs.
type Validator struct {
	det *detector.Detector
	cfg Config
}

// New builds a validator restricted to the locales the run will target.
func New(targetLocales []string, cfg Config) *Validator {
	return &Validator{det: detector.NewForLocales(targetLocales), cfg: cfg}
}

func (v *Validator) Name() string { return "validator" }

// Handle checks every produced translation. Failures are warnings unless
// Strict is set, in which case the stage aborts the run with an error.
func (v *Validator) Handle(ctx context.Context, rc *pipeline.Context, next pipeline.Next) error {
	for _, locale := range rc.Request.TargetLocales {
		for key, text := range rc.Translations(locale) {
			ok, err := v.IsValid(text, locale)
			if ok {
				continue
			}
			msg := fmt.Sprintf("validation failed for %s/%s: %v", locale, key, err)
			if v.cfg.Strict {
				return fmt.Errorf("%s", msg)
			}
			rc.AddWarning(msg)
		}
	}
	return next(ctx, rc)
}

// IsValid returns true when text appears to be written in targetLocale.
//
// Short texts and texts whose language cannot be determined pass without
// error. When the detected language differs from the target the returned
// error names both codes.
func (v *Validator) IsValid(text, targetLocale string) (bool, error) {
	if targetLocale == "" {
		return true, nil
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return false, fmt.Errorf("translation is empty")
	}

	// Detector is unreliable for very short texts; skip validation.
	if len([]rune(text)) < minValidationLength {
		return true, nil
	}

	detected, ok := v.det.DetectISO(text)
	if !ok {
		// Ambiguous language — cannot validate, pass through.
		return true, nil
	}

	base, _, _ := strings.Cut(strings.ReplaceAll(targetLocale, "_", "-"), "-")
	if !strings.EqualFold(detected, base) {
		return false, fmt.Errorf("expected %s but detected %s", base, detected)
	}

	return true, nil
}
