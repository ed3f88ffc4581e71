// Package pipeline implements the translation run engine: a fixed sequence
// of named stages, each holding a priority-ordered chain of handlers, plus
// the mutable run context threaded through them.
package pipeline

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Request describes one translation invocation. It is built once by the
// caller and never mutated by the pipeline.
type Request struct {
	SourceLocale  string            `json:"source_locale"`
	TargetLocales []string          `json:"target_locales"`
	Texts         map[string]string `json:"texts"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	Options       map[string]bool   `json:"options,omitempty"`
	TenantID      string            `json:"tenant_id,omitempty"`
}

// Option returns the named feature toggle, false when absent.
func (r Request) Option(name string) bool {
	return r.Options[name]
}

// TokenUsage accumulates provider token counters for one run.
// Total is always derived from Input+Output rather than stored.
type TokenUsage struct {
	Input         int `json:"input"`
	Output        int `json:"output"`
	CacheCreation int `json:"cache_creation"`
	CacheRead     int `json:"cache_read"`
}

// Total returns input plus output tokens.
func (u TokenUsage) Total() int {
	return u.Input + u.Output
}

// Context is the mutable state container for a single translation run.
// The pipeline executes stages on one goroutine; accumulator methods
// (AddTranslation, AddError, AddWarning, AddTokenUsage, plugin data) are
// additionally safe to call from chunk workers.
type Context struct {
	RunID   string
	Request Request

	mu           sync.Mutex
	texts        map[string]string            // working set, replaceable per stage
	translations map[string]map[string]string // locale -> key -> text
	metadata     map[string]string
	pluginData   map[string]map[string]any // plugin name -> isolated namespace
	errors       []string
	warnings     []string
	usage        TokenUsage

	currentStage string
	startedAt    time.Time
	completedAt  time.Time
	aborted      bool
	completed    bool
}

// NewContext creates a run context for req. The working text set starts as a
// copy of the request texts so handlers can shrink or replace it without
// touching the request.
func NewContext(req Request) *Context {
	texts := make(map[string]string, len(req.Texts))
	for k, v := range req.Texts {
		texts[k] = v
	}
	metadata := make(map[string]string, len(req.Metadata))
	for k, v := range req.Metadata {
		metadata[k] = v
	}
	return &Context{
		RunID:        uuid.New().String(),
		Request:      req,
		texts:        texts,
		translations: make(map[string]map[string]string),
		metadata:     metadata,
		pluginData:   make(map[string]map[string]any),
		startedAt:    time.Now(),
	}
}

// Texts returns a copy of the current working text set.
func (c *Context) Texts() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]string, len(c.texts))
	for k, v := range c.texts {
		out[k] = v
	}
	return out
}

// SetTexts replaces the working text set. A no-op after Complete.
func (c *Context) SetTexts(texts map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.completed {
		return
	}
	c.texts = texts
}

// AddTranslation records one translated entry for a locale, overwriting any
// previous value for the same key. A no-op after Complete.
func (c *Context) AddTranslation(locale, key, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.completed {
		return
	}
	m, ok := c.translations[locale]
	if !ok {
		m = make(map[string]string)
		c.translations[locale] = m
	}
	m[key] = text
}

// Translation returns the recorded translation for locale/key.
func (c *Context) Translation(locale, key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	text, ok := c.translations[locale][key]
	return text, ok
}

// Translations returns a copy of a locale's translation map.
func (c *Context) Translations(locale string) map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]string, len(c.translations[locale]))
	for k, v := range c.translations[locale] {
		out[k] = v
	}
	return out
}

// SetTranslations replaces a locale's translation map wholesale. Used by the
// reassembly terminator, which owns the merge of split-part keys.
func (c *Context) SetTranslations(locale string, m map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.completed {
		return
	}
	c.translations[locale] = m
}

// AddError appends an error message. Never panics.
func (c *Context) AddError(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errors = append(c.errors, msg)
}

// AddWarning appends a warning message. Never panics.
func (c *Context) AddWarning(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.warnings = append(c.warnings, msg)
}

// Errors returns a copy of the accumulated error messages.
func (c *Context) Errors() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.errors...)
}

// Warnings returns a copy of the accumulated warning messages.
func (c *Context) Warnings() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.warnings...)
}

// SetPluginData stores a value in the plugin's isolated namespace. Two
// plugins using the same key string never collide.
func (c *Context) SetPluginData(plugin, key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.completed {
		return
	}
	ns, ok := c.pluginData[plugin]
	if !ok {
		ns = make(map[string]any)
		c.pluginData[plugin] = ns
	}
	ns[key] = value
}

// PluginData fetches a value from the plugin's namespace.
func (c *Context) PluginData(plugin, key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.pluginData[plugin][key]
	return v, ok
}

// AddTokenUsage accumulates input/output token counters.
func (c *Context) AddTokenUsage(input, output int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.completed {
		return
	}
	c.usage.Input += input
	c.usage.Output += output
}

// AddCacheTokenUsage accumulates cache-creation/cache-read counters.
func (c *Context) AddCacheTokenUsage(creation, read int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.completed {
		return
	}
	c.usage.CacheCreation += creation
	c.usage.CacheRead += read
}

// Usage returns the accumulated token counters.
func (c *Context) Usage() TokenUsage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.usage
}

// Abort marks the run so no further stages execute. Terminators still run.
func (c *Context) Abort() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aborted = true
}

// Aborted reports whether a handler requested the run to stop.
func (c *Context) Aborted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aborted
}

// Stage returns the name of the stage currently executing.
func (c *Context) Stage() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentStage
}

func (c *Context) setStage(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.currentStage = name
}

// Complete marks the run finished. One-way: subsequent mutations of texts,
// translations, plugin data and token counters are ignored. Error and
// warning accumulation remains allowed so terminators can still report.
func (c *Context) Complete() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.completed {
		return
	}
	c.completed = true
	c.completedAt = time.Now()
}

// Completed reports whether Complete has been called.
func (c *Context) Completed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.completed
}

// Snapshot is an immutable copy of a run context taken for reporting.
type Snapshot struct {
	RunID         string                       `json:"run_id"`
	SourceLocale  string                       `json:"source_locale"`
	TargetLocales []string                     `json:"target_locales"`
	Texts         map[string]string            `json:"texts"`
	Translations  map[string]map[string]string `json:"translations"`
	Metadata      map[string]string            `json:"metadata,omitempty"`
	Errors        []string                     `json:"errors,omitempty"`
	Warnings      []string                     `json:"warnings,omitempty"`
	Usage         TokenUsage                   `json:"usage"`
	Stage         string                       `json:"stage,omitempty"`
	StartedAt     time.Time                    `json:"started_at"`
	CompletedAt   time.Time                    `json:"completed_at,omitzero"`
	Duration      time.Duration                `json:"duration"`
	Completed     bool                         `json:"completed"`
}

// Snapshot copies every field of the context. Duration uses the completion
// time when set, otherwise the current time, so an in-flight run still
// reports elapsed time.
func (c *Context) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	end := c.completedAt
	if end.IsZero() {
		end = time.Now()
	}

	texts := make(map[string]string, len(c.texts))
	for k, v := range c.texts {
		texts[k] = v
	}
	translations := make(map[string]map[string]string, len(c.translations))
	for locale, m := range c.translations {
		cp := make(map[string]string, len(m))
		for k, v := range m {
			cp[k] = v
		}
		translations[locale] = cp
	}
	metadata := make(map[string]string, len(c.metadata))
	for k, v := range c.metadata {
		metadata[k] = v
	}

	return Snapshot{
		RunID:         c.RunID,
		SourceLocale:  c.Request.SourceLocale,
		TargetLocales: append([]string(nil), c.Request.TargetLocales...),
		Texts:         texts,
		Translations:  translations,
		Metadata:      metadata,
		Errors:        append([]string(nil), c.errors...),
		Warnings:      append([]string(nil), c.warnings...),
		Usage:         c.usage,
		Stage:         c.currentStage,
		StartedAt:     c.startedAt,
		CompletedAt:   c.completedAt,
		Duration:      end.Sub(c.startedAt),
		Completed:     c.completed,
	}
}

// SetMetadata stores a metadata entry on the run.
func (c *Context) SetMetadata(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.completed {
		return
	}
	c.metadata[key] = value
}

// Metadata returns the metadata entry for key.
func (c *Context) Metadata(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.metadata[key]
	return v, ok
}
