/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/valpere/lingopipe/internal/chunker"
	"github.com/valpere/lingopipe/internal/diff"
	"github.com/valpere/lingopipe/internal/provider"
	"github.com/valpere/lingopipe/internal/store"
)

// appConfig is the explicit configuration constructed once from the optional
// lingopipe.yaml plus flags, then handed to each component constructor.
type appConfig struct {
	Providers []string `mapstructure:"providers"`

	Google provider.Config `mapstructure:"google"`
	Ollama provider.Config `mapstructure:"ollama"`

	Diff struct {
		Digest              string `mapstructure:"digest"`
		NormalizeWhitespace bool   `mapstructure:"normalize_whitespace"`
		IncludeKey          bool   `mapstructure:"include_key"`
		KeepVersions        int    `mapstructure:"keep_versions"`
		InvalidateOnFailure bool   `mapstructure:"invalidate_on_failure"`
	} `mapstructure:"diff"`

	Chunk struct {
		MaxTokens     int     `mapstructure:"max_tokens"`
		BufferPercent float64 `mapstructure:"buffer_percent"`
		Overhead      int     `mapstructure:"overhead"`
		PartJoiner    string  `mapstructure:"part_joiner"`
	} `mapstructure:"chunk"`

	Concurrency     int  `mapstructure:"concurrency"`
	ContinueOnError bool `mapstructure:"continue_on_error"`
	Strict          bool `mapstructure:"strict"`

	State struct {
		Backend string `mapstructure:"backend"` // sqlite or file
		Path    string `mapstructure:"path"`
	} `mapstructure:"state"`
}

// loadConfig reads configFile (or the default search locations) into an
// appConfig. A missing config file is fine; flags fill the rest.
func loadConfig(configFile string) (appConfig, error) {
	v := viper.New()
	v.SetConfigName("lingopipe")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
	}
	v.SetEnvPrefix("LINGOPIPE")
	v.AutomaticEnv()

	v.SetDefault("providers", []string{"google"})
	v.SetDefault("diff.digest", string(diff.DigestSHA256))
	v.SetDefault("chunk.max_tokens", chunker.DefaultMaxTokens)
	v.SetDefault("chunk.buffer_percent", chunker.DefaultBufferPercent)
	v.SetDefault("concurrency", 1)
	v.SetDefault("state.backend", "sqlite")
	v.SetDefault("state.path", "./data/lingopipe.db")
	v.SetDefault("ollama.base_url", "http://localhost:11434")
	v.SetDefault("ollama.timeout", 120*time.Second)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return appConfig{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg appConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return appConfig{}, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// buildProviders constructs the provider list from configured names.
// Unknown names are skipped with a note on stderr.
func buildProviders(cfg appConfig) ([]provider.Provider, error) {
	var list []provider.Provider
	for _, name := range cfg.Providers {
		switch name {
		case "google":
			list = append(list, provider.NewGoogle(cfg.Google))
		case "ollama":
			list = append(list, provider.NewOllama(cfg.Ollama))
		default:
			fmt.Fprintf(os.Stderr, "Unknown provider: %s, skipping\n", name)
		}
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("no valid providers configured")
	}
	return list, nil
}

// openStorage picks the diff-state backend. The caller owns closing when the
// returned closer is non-nil.
func openStorage(cfg appConfig) (store.Storage, func() error, error) {
	switch cfg.State.Backend {
	case "file":
		fs, err := store.NewFile(cfg.State.Path)
		if err != nil {
			return nil, nil, err
		}
		return fs, nil, nil
	case "sqlite", "":
		db, err := store.NewSQLite(cfg.State.Path)
		if err != nil {
			return nil, nil, err
		}
		return db, db.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown state backend %q", cfg.State.Backend)
	}
}
