package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"scenarioflow/internal/config"
	"scenarioflow/internal/domain"
	"scenarioflow/internal/export"
	"scenarioflow/internal/extractor"
	"scenarioflow/internal/llm"
	"scenarioflow/internal/logging"
	"scenarioflow/internal/port"
	"scenarioflow/internal/service"
	"scenarioflow/internal/storage"
)

// cliEnv carries what every subcommand builds from flags and environment.
type cliEnv struct {
	cfg    *config.Config
	logger *zap.Logger
	ext    *extractor.Extractor
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract [file]",
		Short: "Extract the marked JSON payload from a model response",
		Long: `Extract reads a raw model response from a file, or stdin when no file is
given, locates the block between the JSON markers, and prints the validated
payload as indented JSON.

Input that is not valid JSON is treated as the plain response text.

Examples:
  extract response.json
  cat response.txt | extract
  extract --expected-scenarios 8 response.json
  extract --format xlsx --output outlook.xlsx response.json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = env.logger.Sync() }()

			data, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			ext, err := env.ext.Extract(decodeInput(data))
			if err != nil {
				return describe(err)
			}
			env.logger.Debug("extracted",
				zap.String("shape", ext.Shape),
				zap.Int("scenarios", ext.Scenarios),
				zap.Int("citations", ext.Citations))

			format, _ := cmd.Flags().GetString("format")
			outPath, _ := cmd.Flags().GetString("output")
			return writePayload(cmd, env, ext.Payload, format, outPath)
		},
	}

	cmd.PersistentFlags().Int("expected-scenarios", 0, "Required scenario count (default from SCENARIOFLOW_EXTRACTOR_EXPECTED_SCENARIOS, else 12)")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Log extraction diagnostics to stderr")
	cmd.Flags().StringP("format", "f", export.FormatJSON, "Output format: json, csv (scenarios), or xlsx (scenarios and sources)")
	cmd.Flags().StringP("output", "o", "", "Write output to this file instead of stdout")

	cmd.AddCommand(newGenerateCommand(), newReplayCommand())
	return cmd
}

func newGenerateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate [prompt]",
		Short: "Send a prompt to the configured provider and extract the reply",
		Long: `Generate sends the prompt (argument, or stdin when omitted) to the
completion providers configured through SCENARIOFLOW_LLM_* variables and
prints the extraction result.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = env.logger.Sync() }()

			client, err := llm.NewFromConfig(&env.cfg.LLM, env.logger)
			if err != nil {
				return err
			}

			var prompt []byte
			if len(args) == 1 {
				prompt = []byte(args[0])
			} else if prompt, err = readInput(cmd, nil); err != nil {
				return err
			}
			system, _ := cmd.Flags().GetString("system")
			maxTokens, _ := cmd.Flags().GetInt("max-tokens")

			svc := service.NewExtractionService(env.ext, client, nil, nil, env.logger)
			result, err := svc.Generate(cmd.Context(), &service.GenerateInput{
				Prompt:    string(prompt),
				System:    system,
				MaxTokens: maxTokens,
			})
			if err != nil {
				return describe(err)
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringP("system", "s", "", "System prompt")
	cmd.Flags().Int("max-tokens", 0, "Generation token limit (default from provider config)")
	return cmd
}

func newReplayCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "replay <key>",
		Short: "Run an archived rejected response through the extractor again",
		Long: `Replay downloads a rejected response from the archive bucket configured
through SCENARIOFLOW_ARCHIVE_* variables and extracts it with the current
settings. Useful after changing markers or the expected scenario count.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = env.logger.Sync() }()

			store, err := storage.New(&env.cfg.Archive, env.logger)
			if err != nil {
				return err
			}
			return runReplay(cmd, env, store, args[0])
		},
	}
}

func runReplay(cmd *cobra.Command, env *cliEnv, store port.ObjectStorage, key string) error {
	svc := service.NewExtractionService(env.ext, nil, store, &env.cfg.Archive, env.logger)
	result, err := svc.Replay(cmd.Context(), &service.ReplayInput{Key: key})
	if err != nil {
		return describe(err)
	}
	return writeJSON(cmd.OutOrStdout(), result)
}

func loadEnv(cmd *cobra.Command) (*cliEnv, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if cmd.Flags().Changed("expected-scenarios") {
		n, _ := cmd.Flags().GetInt("expected-scenarios")
		if n <= 0 {
			return nil, fmt.Errorf("--expected-scenarios must be positive, got %d", n)
		}
		cfg.Extractor.ExpectedScenarios = n
	}

	logger := zap.NewNop()
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		logger, err = logging.New(config.LogConfig{Level: "debug", Format: "console"})
		if err != nil {
			return nil, err
		}
	}

	return &cliEnv{
		cfg:    cfg,
		logger: logger,
		ext:    extractor.New(&cfg.Extractor, extractor.NewZapDiagnostics(logger)),
	}, nil
}

func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 1 && args[0] != "-" {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", args[0], err)
		}
		return data, nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return nil, fmt.Errorf("reading stdin: %w", err)
	}
	return data, nil
}

// decodeInput returns the JSON value in data, or data as a string when it is not JSON.
func decodeInput(data []byte) interface{} {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return string(data)
	}
	return raw
}

func writePayload(cmd *cobra.Command, env *cliEnv, payload domain.ParsedPayload, format, outPath string) error {
	switch format {
	case export.FormatJSON, export.FormatCSV, export.FormatXLSX:
	default:
		return fmt.Errorf("unsupported format %q: use json, csv, or xlsx", format)
	}

	out := cmd.OutOrStdout()
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("creating %s: %w", outPath, err)
		}
		defer func() { _ = f.Close() }()
		out = f
	}

	if format == export.FormatJSON {
		return writeJSON(out, payload)
	}
	return export.Write(out, format, payload, env.cfg.Extractor.ScenariosField, env.cfg.Extractor.CitationsField)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// describe prefixes extraction failures with a stable kind so scripts can branch on it.
func describe(err error) error {
	kinds := []struct {
		target error
		name   string
	}{
		{domain.ErrMissingMarkers, "missing markers"},
		{domain.ErrMalformedJSON, "malformed json"},
		{domain.ErrSchemaViolation, "schema violation"},
	}
	for _, k := range kinds {
		if errors.Is(err, k.target) {
			return fmt.Errorf("%s: %w", k.name, err)
		}
	}
	return err
}
