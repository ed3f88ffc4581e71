// Package flatten converts between nested JSON locale documents and the flat
// dot-notation key→text maps the pipeline works on. The pipeline core never
// sees nesting; it is entirely this package's concern.
package flatten

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Flatten walks a nested document and produces dot-notation keys. Non-string
// leaves are skipped: locale files may carry counters or booleans that are
// not translatable.
func Flatten(nested map[string]any) map[string]string {
	flat := make(map[string]string)
	walk("", nested, flat)
	return flat
}

func walk(prefix string, node map[string]any, flat map[string]string) {
	for key, value := range node {
		full := key
		if prefix != "" {
			full = prefix + "." + key
		}
		switch v := value.(type) {
		case string:
			flat[full] = v
		case map[string]any:
			walk(full, v, flat)
		}
	}
}

// Expand rebuilds a nested document from dot-notation keys. A key that
// collides with an existing subtree ("a" vs "a.b") keeps the deeper value.
func Expand(flat map[string]string) map[string]any {
	nested := make(map[string]any)

	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		parts := strings.Split(key, ".")
		node := nested
		for _, part := range parts[:len(parts)-1] {
			child, ok := node[part].(map[string]any)
			if !ok {
				child = make(map[string]any)
				node[part] = child
			}
			node = child
		}
		leaf := parts[len(parts)-1]
		if _, taken := node[leaf].(map[string]any); !taken {
			node[leaf] = flat[key]
		}
	}
	return nested
}

// ReadFile loads a JSON locale document and flattens it.
func ReadFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var nested map[string]any
	if err := json.Unmarshal(data, &nested); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return Flatten(nested), nil
}

// WriteFile expands a flat map and writes it as indented JSON.
func WriteFile(path string, flat map[string]string) error {
	data, err := json.MarshalIndent(Expand(flat), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
