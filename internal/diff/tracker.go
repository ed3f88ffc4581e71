package diff

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/valpere/lingopipe/internal/pipeline"
	"github.com/valpere/lingopipe/internal/store"
)

// pluginName is the tracker's namespace in the run context's plugin data.
const pluginName = "diff-tracker"

// Config controls change detection and cache reuse.
type Config struct {
	Digest              Digest
	NormalizeWhitespace bool
	IncludeKey          bool
	ReuseCache          bool
	KeepVersions        int // numbered state copies to retain; 0 disables versioning
	InvalidateOnFailure bool
	TTL                 time.Duration
}

// State is the persisted snapshot for one locale and scope: the source texts
// at snapshot time, the translations produced for them, and their checksums.
// The checksum map always covers exactly the keys of the text map.
type State struct {
	Texts        map[string]string   `json:"texts"`
	Translations map[string]string   `json:"translations"`
	Checksums    map[string]string   `json:"checksums"`
	SavedAt      time.Time           `json:"saved_at"`
	Metadata     map[string]string   `json:"metadata,omitempty"`
	Usage        pipeline.TokenUsage `json:"usage"`
}

// Change holds both texts of a modified entry.
type Change struct {
	Old string `json:"old"`
	New string `json:"new"`
}

// Classification is the outcome of comparing the current working set against
// a prior state.
type Classification struct {
	Added     map[string]string `json:"added"`
	Changed   map[string]Change `json:"changed"`
	Unchanged []string          `json:"unchanged"`
	Removed   []string          `json:"removed"`
}

// Classify compares texts against prior (nil means first run, everything is
// added) using the supplied checksummer.
func Classify(texts map[string]string, prior *State, sums *Checksummer) *Classification {
	cls := &Classification{
		Added:   make(map[string]string),
		Changed: make(map[string]Change),
	}

	if prior == nil {
		for k, v := range texts {
			cls.Added[k] = v
		}
		return cls
	}

	for k, v := range texts {
		old, existed := prior.Texts[k]
		if !existed {
			cls.Added[k] = v
			continue
		}
		if prior.Checksums[k] != sums.Sum(k, v) {
			cls.Changed[k] = Change{Old: old, New: v}
		} else {
			cls.Unchanged = append(cls.Unchanged, k)
		}
	}

	for k := range prior.Texts {
		if _, present := texts[k]; !present {
			cls.Removed = append(cls.Removed, k)
		}
	}

	sort.Strings(cls.Unchanged)
	sort.Strings(cls.Removed)
	return cls
}

// Tracker is the diff-detection stage handler. Register Handle on the
// diff-detection stage and Terminate as a terminator so the new baseline is
// persisted after downstream stages complete.
type Tracker struct {
	storage store.Storage
	cfg     Config
	sums    *Checksummer

	// serializes read-modify-write against the storage backend; a run must
	// never interleave state access for the same key.
	mu sync.Mutex
}

// New validates the configuration and returns a tracker bound to storage.
func New(storage store.Storage, cfg Config) (*Tracker, error) {
	sums, err := NewChecksummer(cfg.Digest, cfg.NormalizeWhitespace, cfg.IncludeKey)
	if err != nil {
		return nil, err
	}
	return &Tracker{storage: storage, cfg: cfg, sums: sums}, nil
}

func (t *Tracker) Name() string { return pluginName }

// StateKey derives the deterministic storage key for one locale's snapshot.
// Tenant and the "domain" metadata entry participate when present, so
// different tenants and source files never share a baseline.
func StateKey(req pipeline.Request, locale string) string {
	parts := []string{"diffstate", req.SourceLocale, locale}
	if req.TenantID != "" {
		parts = append(parts, "tenant="+req.TenantID)
	}
	if domain := req.Metadata["domain"]; domain != "" {
		parts = append(parts, "domain="+domain)
	}
	return strings.Join(parts, ":")
}

// Handle classifies the working set per target locale, re-applies cached
// translations for unchanged keys, and shrinks the working set to the union
// of added and changed keys across all locales before forwarding.
func (t *Tracker) Handle(ctx context.Context, rc *pipeline.Context, next pipeline.Next) error {
	texts := rc.Texts()
	needed := make(map[string]string)

	for _, locale := range rc.Request.TargetLocales {
		prior := t.load(ctx, rc, StateKey(rc.Request, locale))
		cls := Classify(texts, prior, t.sums)
		rc.SetPluginData(pluginName, "classification:"+locale, cls)

		if t.cfg.ReuseCache && prior != nil {
			for _, k := range cls.Unchanged {
				if cached, ok := prior.Translations[k]; ok {
					rc.AddTranslation(locale, k, cached)
				}
			}
		}

		for k, v := range cls.Added {
			needed[k] = v
		}
		for k, c := range cls.Changed {
			needed[k] = c.New
		}
	}

	// Keep the full original set around: the persisted baseline must cover
	// every key, not just the ones forwarded downstream.
	rc.SetPluginData(pluginName, "originals", texts)
	rc.SetTexts(needed)

	return next(ctx, rc)
}

// Classified returns the per-locale classification computed by Handle.
func Classified(rc *pipeline.Context, locale string) (*Classification, bool) {
	v, ok := rc.PluginData(pluginName, "classification:"+locale)
	if !ok {
		return nil, false
	}
	cls, ok := v.(*Classification)
	return cls, ok
}

// load fetches and decodes the prior state for key. Storage failures degrade
// to a first run with a warning; translation can always proceed uncached.
func (t *Tracker) load(ctx context.Context, rc *pipeline.Context, key string) *State {
	t.mu.Lock()
	defer t.mu.Unlock()

	data, ok, err := t.storage.Get(ctx, key)
	if err != nil {
		rc.AddWarning(fmt.Sprintf("diff state %s unavailable, treating as first run: %v", key, err))
		return nil
	}
	if !ok {
		return nil
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		rc.AddWarning(fmt.Sprintf("diff state %s corrupt, treating as first run: %v", key, err))
		return nil
	}
	return &state
}

// Terminate persists the new baseline per locale, or deletes it on failure
// when InvalidateOnFailure is set so the next run re-evaluates from empty.
func (t *Tracker) Terminate(ctx context.Context, rc *pipeline.Context, runErr error) error {
	if runErr != nil {
		if !t.cfg.InvalidateOnFailure {
			return nil
		}
		t.mu.Lock()
		defer t.mu.Unlock()
		for _, locale := range rc.Request.TargetLocales {
			if err := t.storage.Delete(ctx, StateKey(rc.Request, locale)); err != nil {
				rc.AddWarning(fmt.Sprintf("failed to invalidate diff state for %s: %v", locale, err))
			}
		}
		return nil
	}

	originals := rc.Request.Texts
	if v, ok := rc.PluginData(pluginName, "originals"); ok {
		if m, ok := v.(map[string]string); ok {
			originals = m
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	for _, locale := range rc.Request.TargetLocales {
		state := State{
			Texts:        originals,
			Translations: rc.Translations(locale),
			Checksums:    t.sums.SumAll(originals),
			SavedAt:      time.Now(),
			Metadata:     rc.Request.Metadata,
			Usage:        rc.Usage(),
		}

		data, err := json.Marshal(state)
		if err != nil {
			return fmt.Errorf("marshal diff state for %s: %w", locale, err)
		}

		key := StateKey(rc.Request, locale)
		if err := t.storage.Put(ctx, key, data, t.cfg.TTL); err != nil {
			rc.AddWarning(fmt.Sprintf("failed to persist diff state for %s: %v", locale, err))
			continue
		}

		if t.cfg.KeepVersions > 0 {
			if err := t.retainVersion(ctx, key, data); err != nil {
				rc.AddWarning(fmt.Sprintf("failed to version diff state for %s: %v", locale, err))
			}
		}
	}
	return nil
}

// versionIndex tracks the retained numbered copies of one state key.
type versionIndex struct {
	Next int      `json:"next"`
	Keys []string `json:"keys"`
}

// retainVersion stores a numbered copy of the state and prunes the oldest
// copies beyond KeepVersions.
func (t *Tracker) retainVersion(ctx context.Context, key string, data []byte) error {
	indexKey := key + ":versions"

	var idx versionIndex
	if raw, ok, err := t.storage.Get(ctx, indexKey); err == nil && ok {
		_ = json.Unmarshal(raw, &idx)
	}

	idx.Next++
	versionKey := fmt.Sprintf("%s:v%d", key, idx.Next)
	if err := t.storage.Put(ctx, versionKey, data, t.cfg.TTL); err != nil {
		return err
	}
	idx.Keys = append(idx.Keys, versionKey)

	for len(idx.Keys) > t.cfg.KeepVersions {
		if err := t.storage.Delete(ctx, idx.Keys[0]); err != nil {
			return err
		}
		idx.Keys = idx.Keys[1:]
	}

	raw, err := json.Marshal(idx)
	if err != nil {
		return err
	}
	return t.storage.Put(ctx, indexKey, raw, t.cfg.TTL)
}

// Invalidate removes the persisted baselines for every target locale of req.
func (t *Tracker) Invalidate(ctx context.Context, req pipeline.Request) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, locale := range req.TargetLocales {
		if err := t.storage.Delete(ctx, StateKey(req, locale)); err != nil {
			return err
		}
	}
	return nil
}
