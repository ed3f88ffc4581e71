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
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/valpere/lingopipe/internal/chunker"
	"github.com/valpere/lingopipe/internal/consensus"
	"github.com/valpere/lingopipe/internal/diff"
	"github.com/valpere/lingopipe/internal/flatten"
	"github.com/valpere/lingopipe/internal/pipeline"
	"github.com/valpere/lingopipe/internal/placeholder"
	"github.com/valpere/lingopipe/internal/preprocess"
	"github.com/valpere/lingopipe/internal/translate"
	"github.com/valpere/lingopipe/internal/validator"
)

var (
	configFile  string
	inputFile   string
	outputDir   string
	sourceLang  string
	targetLangs []string
	tenantID    string
	domain      string

	providerNames []string
	googleCreds   string
	googleProject string
	ollamaURL     string
	ollamaModel   string

	statePath       string
	noCache         bool
	concurrency     int
	strict          bool
	continueOnError bool
	verbose         bool
)

var translateCmd = &cobra.Command{
	Use:   "translate",
	Short: "Translate a locale file through the pipeline",
	Long: `Translate a flat or nested JSON locale file into one or more target
locales.

Entries unchanged since the previous run are served from the diff-state
cache; the rest are packed into token-bounded chunks and sent to the
configured providers.

Available providers:
  - google   Google Cloud Translation (requires credentials)
  - ollama   Ollama LLM (self-hosted)

Use multiple providers for consensus selection: --providers google,ollama`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configFile)
		if err != nil {
			return err
		}
		applyFlags(cmd, &cfg)

		texts, err := flatten.ReadFile(inputFile)
		if err != nil {
			return fmt.Errorf("failed to read input file: %w", err)
		}
		if len(texts) == 0 {
			return fmt.Errorf("no translatable entries in %s", inputFile)
		}

		metadata := map[string]string{
			"source_file": filepath.Base(inputFile),
		}
		if domain != "" {
			metadata["domain"] = domain
		}

		req := pipeline.Request{
			SourceLocale:  sourceLang,
			TargetLocales: targetLangs,
			Texts:         texts,
			Metadata:      metadata,
			Options:       map[string]bool{"cache": !noCache},
			TenantID:      tenantID,
		}

		eng, cleanup, err := buildEngine(cfg, req)
		if err != nil {
			return err
		}
		if cleanup != nil {
			defer cleanup()
		}

		if verbose {
			subscribeProgress(eng)
		}

		rc := pipeline.NewContext(req)
		runErr := eng.Run(context.Background(), rc)

		printSummary(rc.Snapshot())
		if runErr != nil {
			return fmt.Errorf("translation failed: %w", runErr)
		}
		return nil
	},
}

// applyFlags lets explicitly set flags override file configuration.
func applyFlags(cmd *cobra.Command, cfg *appConfig) {
	if cmd.Flags().Changed("providers") {
		cfg.Providers = providerNames
	}
	if cmd.Flags().Changed("credentials") {
		cfg.Google.Credentials = googleCreds
	}
	if cmd.Flags().Changed("project") {
		cfg.Google.ProjectID = googleProject
	}
	if cmd.Flags().Changed("ollama-url") {
		cfg.Ollama.BaseURL = ollamaURL
	}
	if cmd.Flags().Changed("ollama-model") {
		cfg.Ollama.Model = ollamaModel
	}
	if cmd.Flags().Changed("state") {
		cfg.State.Path = statePath
	}
	if cmd.Flags().Changed("concurrency") {
		cfg.Concurrency = concurrency
	}
	if cmd.Flags().Changed("strict") {
		cfg.Strict = strict
	}
	if cmd.Flags().Changed("continue-on-error") {
		cfg.ContinueOnError = continueOnError
	}
}

// buildEngine wires the default handler set into a fresh engine: every core
// stage gets its standard middleware, terminators merge and persist.
func buildEngine(cfg appConfig, req pipeline.Request) (*pipeline.Engine, func() error, error) {
	storage, closer, err := openStorage(cfg)
	if err != nil {
		return nil, nil, err
	}

	tracker, err := diff.New(storage, diff.Config{
		Digest:              diff.Digest(cfg.Diff.Digest),
		NormalizeWhitespace: cfg.Diff.NormalizeWhitespace,
		IncludeKey:          cfg.Diff.IncludeKey,
		ReuseCache:          req.Option("cache"),
		KeepVersions:        cfg.Diff.KeepVersions,
		InvalidateOnFailure: cfg.Diff.InvalidateOnFailure,
	})
	if err != nil {
		return nil, closer, err
	}

	providers, err := buildProviders(cfg)
	if err != nil {
		return nil, closer, err
	}

	translator, err := translate.New(providers, translate.Config{
		Concurrency:     cfg.Concurrency,
		ContinueOnError: cfg.ContinueOnError,
	})
	if err != nil {
		return nil, closer, err
	}

	packer := chunker.New(chunker.Config{
		MaxTokens:     cfg.Chunk.MaxTokens,
		BufferPercent: cfg.Chunk.BufferPercent,
		Overhead:      cfg.Chunk.Overhead,
		PartJoiner:    cfg.Chunk.PartJoiner,
	})

	eng := pipeline.New()
	regs := []struct {
		stage    string
		handler  pipeline.Handler
		priority int
	}{
		{pipeline.StagePreProcess, preprocess.New(), 0},
		{pipeline.StageDiffDetection, tracker, 0},
		{pipeline.StagePreparation, placeholder.NewMask(), 0},
		{pipeline.StageChunking, packer, 0},
		{pipeline.StageTranslation, translator, 0},
		{pipeline.StageConsensus, consensus.New(), 0},
		{pipeline.StageValidation, validator.New(req.TargetLocales, validator.Config{Strict: cfg.Strict}), 0},
		{pipeline.StagePostProcess, placeholder.NewRestore(), 0},
	}
	for _, r := range regs {
		if err := eng.RegisterStage(r.stage, r.handler, r.priority); err != nil {
			return nil, closer, err
		}
	}

	// Reassembly must precede state persistence (the baseline stores merged
	// keys) and file output.
	eng.RegisterTerminator(packer.Terminate, 100)
	eng.RegisterTerminator(tracker.Terminate, 50)
	if outputDir != "" {
		eng.RegisterTerminator(flatten.NewWriter(outputDir).Terminate, 10)
	}

	eng.RegisterService("diff.tracker", tracker)
	eng.RegisterService("translator", translator)

	return eng, closer, nil
}

func subscribeProgress(eng *pipeline.Engine) {
	for _, stage := range eng.Stages() {
		eng.Bus().Subscribe(pipeline.StageStartedEvent(stage), func(ev pipeline.Event) {
			fmt.Fprintf(os.Stderr, "→ %s\n", stage)
		})
	}
	eng.Bus().Subscribe(pipeline.EventTranslationFailed, func(ev pipeline.Event) {
		fmt.Fprintf(os.Stderr, "run failed: %v\n", ev.Err)
	})
}

func printSummary(snap pipeline.Snapshot) {
	for _, locale := range snap.TargetLocales {
		fmt.Printf("%s: %d entries\n", locale, len(snap.Translations[locale]))
		if path, ok := snap.Metadata["output:"+locale]; ok {
			fmt.Printf("  written to %s\n", path)
		}
	}
	if snap.Usage.Total() > 0 {
		fmt.Printf("Tokens: %d in / %d out\n", snap.Usage.Input, snap.Usage.Output)
	}
	fmt.Printf("Duration: %s\n", snap.Duration.Round(time.Millisecond))
	for _, w := range snap.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}
	for _, e := range snap.Errors {
		fmt.Fprintf(os.Stderr, "error: %s\n", e)
	}
}

func init() {
	rootCmd.AddCommand(translateCmd)

	translateCmd.Flags().StringVar(&configFile, "config", "", "Path to lingopipe.yaml")
	translateCmd.Flags().StringVarP(&inputFile, "input", "i", "", "Input JSON locale file (required)")
	translateCmd.Flags().StringVarP(&outputDir, "output", "o", "", "Output directory for per-locale files")
	translateCmd.Flags().StringVarP(&sourceLang, "source", "s", "en", "Source locale code")
	translateCmd.Flags().StringSliceVarP(&targetLangs, "targets", "t", nil, "Target locale codes (required)")
	translateCmd.Flags().StringVar(&tenantID, "tenant", "", "Tenant identifier for state scoping")
	translateCmd.Flags().StringVar(&domain, "domain", "", "Domain hint for prompts and state scoping")

	translateCmd.Flags().StringSliceVar(&providerNames, "providers", []string{"google"}, "Translation providers (comma-separated)")
	translateCmd.Flags().StringVarP(&googleCreds, "credentials", "c", "", "Path to Google Cloud credentials")
	translateCmd.Flags().StringVarP(&googleProject, "project", "p", "", "Google Cloud project ID")
	translateCmd.Flags().StringVar(&ollamaURL, "ollama-url", "http://localhost:11434", "Ollama base URL")
	translateCmd.Flags().StringVar(&ollamaModel, "ollama-model", "", "Ollama model name")

	translateCmd.Flags().StringVar(&statePath, "state", "./data/lingopipe.db", "Diff-state database path")
	translateCmd.Flags().BoolVar(&noCache, "no-cache", false, "Disable cached translation reuse")
	translateCmd.Flags().IntVar(&concurrency, "concurrency", 1, "Parallel chunk dispatch (1 = sequential)")
	translateCmd.Flags().BoolVar(&strict, "strict", false, "Treat validation failures as errors")
	translateCmd.Flags().BoolVar(&continueOnError, "continue-on-error", false, "Keep going when a provider fails a chunk")
	translateCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log stage progress to stderr")

	translateCmd.MarkFlagRequired("input")
	translateCmd.MarkFlagRequired("targets")
}
