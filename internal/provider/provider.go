// Package provider defines the translation provider contract the pipeline
// depends on, plus the Google Cloud Translate and Ollama implementations.
package provider

import (
	"context"
	"errors"
	"time"
)

// ErrProvider marks transport, quota and protocol failures from a
// translation provider. By default a provider error aborts the run after
// cleanup; the translation stage may be configured to continue instead.
var ErrProvider = errors.New("provider error")

// Config carries the credentials and endpoints a provider needs. It is
// passed once at construction.
type Config struct {
	Credentials string        `mapstructure:"credentials"`
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	BaseURL     string        `mapstructure:"base_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
	ProjectID   string        `mapstructure:"project_id"`
}

// Request is one batched translation call: a key→text map plus locale pair
// and free-form metadata for prompt construction.
type Request struct {
	Texts        map[string]string
	SourceLocale string
	TargetLocale string
	Metadata     map[string]string
}

// Result is a provider's answer for one request.
type Result struct {
	Provider     string
	Translations map[string]string
	InputTokens  int
	OutputTokens int
	Latency      time.Duration
}

// Provider translates one key→text batch.
type Provider interface {
	Name() string
	Translate(ctx context.Context, req Request) (*Result, error)
}

// Partial is one incremental entry of a streamed translation. The stream
// channel is closed when the provider is done; Err, when set, ends the
// stream.
type Partial struct {
	Key  string
	Text string
	Err  error
}

// Streamer is implemented by providers that can deliver results
// incrementally. The returned channel is bounded and closed on completion;
// cancelling ctx ends the stream early.
type Streamer interface {
	Provider
	TranslateStream(ctx context.Context, req Request) (<-chan Partial, error)
}

// Collect drains a partial stream into a Result, preserving completeness
// checks for the caller: entries arriving after an error are dropped.
func Collect(name string, stream <-chan Partial) (*Result, error) {
	res := &Result{Provider: name, Translations: make(map[string]string)}
	for p := range stream {
		if p.Err != nil {
			return res, p.Err
		}
		res.Translations[p.Key] = p.Text
	}
	return res, nil
}
