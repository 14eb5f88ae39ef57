// Package main provides the resume_agent CLI: the review API server and
// offline tools for tailoring, reviewing and storing profiles.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/jonathan/resume-review/internal/config"
	"github.com/jonathan/resume-review/internal/llm"
	"github.com/jonathan/resume-review/internal/logging"
	"github.com/jonathan/resume-review/internal/schemas"
	"github.com/jonathan/resume-review/internal/types"
	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "resume_agent",
	Short: "Tailor resume profiles with a model and review every change",
	Long: `resume_agent asks a generative model for a job-specific revision of a resume
profile and lets you accept or reject each proposed change before it is saved.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a JSON or YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig merges the config file over the environment and validates it
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath, os.Getenv)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Verbose = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	return logging.New(os.Stderr, cfg.Verbose)
}

// quietLogger is used by offline commands unless --verbose is set
func quietLogger(cfg *config.Config) *slog.Logger {
	if cfg.Verbose {
		return newLogger(cfg)
	}
	return logging.Discard()
}

// newModelClient replays a saved response when replay is set, otherwise it
// connects to the configured provider.
func newModelClient(ctx context.Context, cfg *config.Config, apiKey, replay string) (llm.Client, error) {
	if replay != "" {
		raw, err := readInput(replay)
		if err != nil {
			return nil, err
		}
		return llm.NewScriptedClient(string(raw)), nil
	}

	if apiKey == "" {
		apiKey = cfg.APIKey
	}
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required (set GEMINI_API_KEY or OPENAI_API_KEY, or use --api-key)")
	}
	llmCfg, err := cfg.LLMConfig()
	if err != nil {
		return nil, err
	}
	return llm.NewClient(ctx, llmCfg, apiKey)
}

// readInput reads a file, or stdin when path is "-"
func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return raw, nil
}

// readDocument loads and validates a profile document
func readDocument(path string) (*types.Document, error) {
	raw, err := readInput(path)
	if err != nil {
		return nil, err
	}
	doc, err := schemas.ValidateDocument(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// writeJSON writes v indented to path, or to w when path is empty
func writeJSON(w io.Writer, path string, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	raw = append(raw, '\n')
	if path == "" {
		_, err = w.Write(raw)
		return err
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}
