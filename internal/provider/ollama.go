package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/valpere/lingopipe/internal/langmeta"
	"github.com/valpere/lingopipe/internal/postprocess"
)

// DefaultOllamaModel is used when no model is configured.
const DefaultOllamaModel = "llama3.2"

// Ollama sends a chunk as a numbered list to a local Ollama instance and
// parses the numbered reply back into the original keys.
type Ollama struct {
	cfg    Config
	client *http.Client
}

// NewOllama returns an Ollama provider for cfg.BaseURL (default
// http://localhost:11434).
func NewOllama(cfg Config) *Ollama {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOllamaModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Ollama{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

func (o *Ollama) Name() string { return "ollama" }

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaResponse struct {
	Response        string `json:"response"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

func (o *Ollama) Translate(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	keys := make([]string, 0, len(req.Texts))
	for k := range req.Texts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	body, err := json.Marshal(ollamaRequest{
		Model:  o.cfg.Model,
		Prompt: buildPrompt(req, keys),
		Stream: false,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to marshal request: %v", ErrProvider, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		o.cfg.BaseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: request failed: %v", ErrProvider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrProvider, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var parsed ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", ErrProvider, err)
	}

	translations, err := parseNumbered(postprocess.Clean(parsed.Response), keys)
	if err != nil {
		return nil, err
	}

	return &Result{
		Provider:     o.Name(),
		Translations: translations,
		InputTokens:  parsed.PromptEvalCount,
		OutputTokens: parsed.EvalCount,
		Latency:      time.Since(start),
	}, nil
}

// buildPrompt renders the numbered-list protocol. Locale codes are expanded
// to display names; the texts themselves arrive already placeholder-masked.
func buildPrompt(req Request, keys []string) string {
	source := langmeta.DisplayName(req.SourceLocale)
	target := langmeta.DisplayName(req.TargetLocale)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Translate the following %d texts from %s to %s.\n", len(keys), source, target)
	sb.WriteString("Reply with the same numbered list, one translation per line.\n")
	sb.WriteString("Preserve all [PHn] markers exactly as they appear — do not translate, move, or remove them.\n")
	if domain := req.Metadata["domain"]; domain != "" {
		fmt.Fprintf(&sb, "Domain: %s.\n", domain)
	}
	sb.WriteString("\n")
	for i, k := range keys {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, req.Texts[k])
	}
	return sb.String()
}

// numberedLineRe matches a "<n>. text" or "<n>) text" reply line.
var numberedLineRe = regexp.MustCompile(`^\s*(\d+)[.)]\s*(.*)$`)

// parseNumbered maps numbered reply lines back onto keys. Continuation lines
// without a number are appended to the previous entry. Every key must be
// answered.
func parseNumbered(content string, keys []string) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	last := -1

	for _, line := range strings.Split(content, "\n") {
		if sub := numberedLineRe.FindStringSubmatch(line); sub != nil {
			n, err := strconv.Atoi(sub[1])
			if err != nil || n < 1 || n > len(keys) {
				continue
			}
			out[keys[n-1]] = strings.TrimSpace(sub[2])
			last = n - 1
			continue
		}
		if last >= 0 && strings.TrimSpace(line) != "" {
			out[keys[last]] += "\n" + strings.TrimSpace(line)
		}
	}

	if len(out) != len(keys) {
		return nil, fmt.Errorf("%w: expected %d translations, got %d", ErrProvider, len(keys), len(out))
	}
	return out, nil
}
