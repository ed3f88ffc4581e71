package provider

import (
	"context"
	"fmt"
	"sort"
	"time"

	translate "cloud.google.com/go/translate"
	"golang.org/x/text/language"
	"google.golang.org/api/option"
)

// Google batches a whole chunk into one Cloud Translation call. Keys are
// submitted in sorted order so responses map back by index.
type Google struct {
	cfg Config
}

// NewGoogle returns a Google Cloud Translate provider.
func NewGoogle(cfg Config) *Google {
	return &Google{cfg: cfg}
}

func (g *Google) Name() string { return "google" }

func (g *Google) Translate(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	targetTag, err := language.Parse(req.TargetLocale)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid target locale %q: %v", ErrProvider, req.TargetLocale, err)
	}

	opts := []option.ClientOption{}
	if g.cfg.Credentials != "" {
		opts = append(opts, option.WithCredentialsFile(g.cfg.Credentials))
	}

	client, err := translate.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create client: %v", ErrProvider, err)
	}
	defer client.Close()

	keys := make([]string, 0, len(req.Texts))
	for k := range req.Texts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	texts := make([]string, len(keys))
	for i, k := range keys {
		texts[i] = req.Texts[k]
	}

	var translateOpts *translate.Options
	if req.SourceLocale != "" && req.SourceLocale != "auto" {
		sourceTag, _ := language.Parse(req.SourceLocale)
		translateOpts = &translate.Options{Source: sourceTag}
	}

	translations, err := client.Translate(ctx, texts, targetTag, translateOpts)
	if err != nil {
		return nil, fmt.Errorf("%w: translation failed: %v", ErrProvider, err)
	}
	if len(translations) != len(keys) {
		return nil, fmt.Errorf("%w: expected %d translations, got %d", ErrProvider, len(keys), len(translations))
	}

	result := &Result{
		Provider:     g.Name(),
		Translations: make(map[string]string, len(keys)),
		Latency:      time.Since(start),
	}
	for i, k := range keys {
		result.Translations[k] = translations[i].Text
	}
	return result, nil
}
