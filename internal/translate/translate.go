// Package translate implements the translation stage: it dispatches each
// chunk to the configured providers and merges results back into the run
// context under a single-writer discipline.
package translate

import (
	"context"
	"fmt"
	"sync"

	"github.com/valpere/lingopipe/internal/chunker"
	"github.com/valpere/lingopipe/internal/pipeline"
	"github.com/valpere/lingopipe/internal/provider"
)

const pluginName = "translator"

// Config controls chunk dispatch.
type Config struct {
	// Concurrency bounds parallel chunk dispatch. 1 (the default) keeps the
	// sequential reference behavior.
	Concurrency int
	// ContinueOnError records provider failures as context errors and moves
	// on to the next chunk instead of aborting the run.
	ContinueOnError bool
}

// Candidate is one provider's answer for a single key, kept for the
// consensus stage.
type Candidate struct {
	Provider string
	Text     string
}

// Handler is the translation stage handler.
type Handler struct {
	providers []provider.Provider
	cfg       Config
}

// New fails fast when no provider is configured.
func New(providers []provider.Provider, cfg Config) (*Handler, error) {
	if len(providers) == 0 {
		return nil, fmt.Errorf("no translation providers configured")
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &Handler{providers: providers, cfg: cfg}, nil
}

func (h *Handler) Name() string { return pluginName }

type job struct {
	locale string
	chunk  chunker.Chunk
}

type outcome struct {
	locale  string
	results []*provider.Result // indexed like h.providers, nil on failure
	errs    []error
}

// Handle fans chunks out to workers and merges their results. Workers never
// touch the context; the merge loop below is the single writer for the
// translation map.
func (h *Handler) Handle(ctx context.Context, rc *pipeline.Context, next pipeline.Next) error {
	chunks := chunker.Chunks(rc)
	if len(chunks) == 0 {
		// Nothing survived diff detection; cached translations already sit
		// on the context.
		return next(ctx, rc)
	}

	jobs := make([]job, 0, len(chunks)*len(rc.Request.TargetLocales))
	for _, locale := range rc.Request.TargetLocales {
		for _, c := range chunks {
			jobs = append(jobs, job{locale: locale, chunk: c})
		}
	}

	inCh := make(chan job, len(jobs))
	outCh := make(chan outcome, len(jobs))

	var wg sync.WaitGroup
	for i := 0; i < h.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range inCh {
				outCh <- h.dispatch(ctx, rc, j)
			}
		}()
	}

	for _, j := range jobs {
		inCh <- j
	}
	close(inCh)

	go func() {
		wg.Wait()
		close(outCh)
	}()

	candidates := make(map[string]map[string][]Candidate)
	var firstErr error

	for out := range outCh {
		merged := false
		for _, res := range out.results {
			if res == nil {
				continue
			}
			rc.AddTokenUsage(res.InputTokens, res.OutputTokens)
			for key, text := range res.Translations {
				if !merged {
					rc.AddTranslation(out.locale, key, text)
				}
				byKey := candidates[out.locale]
				if byKey == nil {
					byKey = make(map[string][]Candidate)
					candidates[out.locale] = byKey
				}
				byKey[key] = append(byKey[key], Candidate{Provider: res.Provider, Text: text})
			}
			merged = true
		}

		for _, err := range out.errs {
			rc.AddError(err.Error())
		}
		if !merged {
			err := fmt.Errorf("all providers failed for locale %s", out.locale)
			if len(out.errs) > 0 {
				err = fmt.Errorf("locale %s: %w", out.locale, out.errs[0])
			}
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	if firstErr != nil && !h.cfg.ContinueOnError {
		return firstErr
	}

	rc.SetPluginData(pluginName, "candidates", candidates)
	return next(ctx, rc)
}

// dispatch runs one chunk for one locale through every provider. The primary
// provider comes first; later providers supply consensus candidates.
func (h *Handler) dispatch(ctx context.Context, rc *pipeline.Context, j job) outcome {
	out := outcome{locale: j.locale, results: make([]*provider.Result, len(h.providers))}

	req := provider.Request{
		Texts:        j.chunk.Texts,
		SourceLocale: rc.Request.SourceLocale,
		TargetLocale: j.locale,
		Metadata:     rc.Request.Metadata,
	}

	for i, p := range h.providers {
		res, err := translateOne(ctx, p, req)
		if err != nil {
			out.errs = append(out.errs, fmt.Errorf("%s: %w", p.Name(), err))
			continue
		}
		out.results[i] = res
	}
	return out
}

// translateOne prefers the streaming entry point when the provider offers
// one; the closed channel signals completion.
func translateOne(ctx context.Context, p provider.Provider, req provider.Request) (*provider.Result, error) {
	if s, ok := p.(provider.Streamer); ok {
		stream, err := s.TranslateStream(ctx, req)
		if err != nil {
			return nil, err
		}
		return provider.Collect(p.Name(), stream)
	}
	return p.Translate(ctx, req)
}

// Candidates returns the per-locale, per-key provider answers collected by
// the translation stage.
func Candidates(rc *pipeline.Context) map[string]map[string][]Candidate {
	v, ok := rc.PluginData(pluginName, "candidates")
	if !ok {
		return nil
	}
	c, _ := v.(map[string]map[string][]Candidate)
	return c
}
