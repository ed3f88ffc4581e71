package translate_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/valpere/lingopipe/internal/chunker"
	"github.com/valpere/lingopipe/internal/pipeline"
	"github.com/valpere/lingopipe/internal/provider"
	"github.com/valpere/lingopipe/internal/translate"
)

// stubProvider returns canned text per key, counting calls.
type stubProvider struct {
	name   string
	suffix string
	err    error
	calls  atomic.Int64
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) Translate(ctx context.Context, req provider.Request) (*provider.Result, error) {
	p.calls.Add(1)
	if p.err != nil {
		return nil, p.err
	}
	out := make(map[string]string, len(req.Texts))
	for k, v := range req.Texts {
		out[k] = v + p.suffix
	}
	return &provider.Result{
		Provider:     p.name,
		Translations: out,
		InputTokens:  10,
		OutputTokens: 5,
	}, nil
}

// prepared builds a run context with the chunking stage already applied.
func prepared(t *testing.T, texts map[string]string, locales ...string) *pipeline.Context {
	t.Helper()
	if len(locales) == 0 {
		locales = []string{"uk"}
	}
	rc := pipeline.NewContext(pipeline.Request{
		SourceLocale:  "en",
		TargetLocales: locales,
		Texts:         texts,
	})
	c := chunker.New(chunker.Config{})
	err := c.Handle(context.Background(), rc, func(ctx context.Context, rc *pipeline.Context) error {
		return nil
	})
	if err != nil {
		t.Fatalf("chunking: %v", err)
	}
	return rc
}

func run(t *testing.T, h *translate.Handler, rc *pipeline.Context) error {
	t.Helper()
	return h.Handle(context.Background(), rc, func(ctx context.Context, rc *pipeline.Context) error {
		return nil
	})
}

func TestNew_RequiresProviders(t *testing.T) {
	if _, err := translate.New(nil, translate.Config{}); err == nil {
		t.Error("expected error with no providers")
	}
}

func TestHandle_SingleProvider(t *testing.T) {
	p := &stubProvider{name: "stub", suffix: " [uk]"}
	h, err := translate.New([]provider.Provider{p}, translate.Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	rc := prepared(t, map[string]string{"greet": "Hello", "bye": "Goodbye"})
	if err := run(t, h, rc); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if got, _ := rc.Translation("uk", "greet"); got != "Hello [uk]" {
		t.Errorf("greet = %q", got)
	}
	if got, _ := rc.Translation("uk", "bye"); got != "Goodbye [uk]" {
		t.Errorf("bye = %q", got)
	}
	if u := rc.Usage(); u.Input != 10 || u.Output != 5 {
		t.Errorf("usage = %+v", u)
	}
}

func TestHandle_MultiLocale(t *testing.T) {
	p := &stubProvider{name: "stub", suffix: "!"}
	h, _ := translate.New([]provider.Provider{p}, translate.Config{})

	rc := prepared(t, map[string]string{"greet": "Hello"}, "uk", "de", "ja")
	if err := run(t, h, rc); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	for _, locale := range []string{"uk", "de", "ja"} {
		if got, _ := rc.Translation(locale, "greet"); got != "Hello!" {
			t.Errorf("%s greet = %q", locale, got)
		}
	}
	if calls := p.calls.Load(); calls != 3 {
		t.Errorf("expected one call per locale, got %d", calls)
	}
}

func TestHandle_EmptyWorkingSetSkipsProviders(t *testing.T) {
	p := &stubProvider{name: "stub"}
	h, _ := translate.New([]provider.Provider{p}, translate.Config{})

	// Diff detection removed everything; chunking produced no chunks.
	rc := prepared(t, map[string]string{})
	if err := run(t, h, rc); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if calls := p.calls.Load(); calls != 0 {
		t.Errorf("providers must not be called with nothing to translate, got %d calls", calls)
	}
}

func TestHandle_AllProvidersFailAbortsRun(t *testing.T) {
	p := &stubProvider{name: "down", err: errors.New("quota exceeded")}
	h, _ := translate.New([]provider.Provider{p}, translate.Config{})

	rc := prepared(t, map[string]string{"greet": "Hello"})
	err := run(t, h, rc)
	if err == nil {
		t.Fatal("expected failure when every provider fails")
	}
	if !strings.Contains(err.Error(), "quota exceeded") {
		t.Errorf("error should carry the provider failure: %v", err)
	}
}

func TestHandle_ContinueOnError(t *testing.T) {
	p := &stubProvider{name: "down", err: errors.New("quota exceeded")}
	h, _ := translate.New([]provider.Provider{p}, translate.Config{ContinueOnError: true})

	rc := prepared(t, map[string]string{"greet": "Hello"})
	if err := run(t, h, rc); err != nil {
		t.Fatalf("continue-on-error should swallow the failure: %v", err)
	}
	if len(rc.Errors()) == 0 {
		t.Error("failure must still be recorded on the context")
	}
}

func TestHandle_SecondaryFailureIsNotFatal(t *testing.T) {
	good := &stubProvider{name: "good", suffix: "!"}
	bad := &stubProvider{name: "bad", err: errors.New("down")}
	h, _ := translate.New([]provider.Provider{good, bad}, translate.Config{})

	rc := prepared(t, map[string]string{"greet": "Hello"})
	if err := run(t, h, rc); err != nil {
		t.Fatalf("one healthy provider should be enough: %v", err)
	}
	if got, _ := rc.Translation("uk", "greet"); got != "Hello!" {
		t.Errorf("greet = %q", got)
	}
	if len(rc.Errors()) == 0 {
		t.Error("secondary failure should still be recorded")
	}
}

func TestHandle_FirstProviderWinsTheMerge(t *testing.T) {
	first := &stubProvider{name: "first", suffix: " (1)"}
	second := &stubProvider{name: "second", suffix: " (2)"}
	h, _ := translate.New([]provider.Provider{first, second}, translate.Config{})

	rc := prepared(t, map[string]string{"greet": "Hello"})
	if err := run(t, h, rc); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if got, _ := rc.Translation("uk", "greet"); got != "Hello (1)" {
		t.Errorf("primary provider's answer should be merged, got %q", got)
	}

	candidates := translate.Candidates(rc)
	got := candidates["uk"]["greet"]
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %v", got)
	}
	if got[0].Provider != "first" || got[1].Provider != "second" {
		t.Errorf("candidates out of provider order: %v", got)
	}
}

func TestHandle_ConcurrentDispatch(t *testing.T) {
	p := &stubProvider{name: "stub", suffix: "!"}
	h, _ := translate.New([]provider.Provider{p}, translate.Config{Concurrency: 4})

	texts := make(map[string]string)
	for i := 0; i < 40; i++ {
		texts[fmt.Sprintf("key%02d", i)] = strings.Repeat("some words here ", 40)
	}

	rc := prepared(t, texts, "uk", "de")
	if err := run(t, h, rc); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	for _, locale := range []string{"uk", "de"} {
		if got := rc.Translations(locale); len(got) != len(texts) {
			t.Errorf("%s: expected %d translations, got %d", locale, len(texts), len(got))
		}
	}
}
