package cmd

import (
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/solatis/formtrace/internal/core/config"
	"github.com/solatis/formtrace/internal/core/db"
	"github.com/solatis/formtrace/internal/core/emit"
	"github.com/solatis/formtrace/internal/core/scan"
	"github.com/solatis/formtrace/internal/types"
)

const Version = "0.1.0"

var analyzeCmd = &cobra.Command{
	Use:   "analyze [patterns...]",
	Short: "Analyze request types and synthesize parameter schemas",
	RunE:  runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().String("dir", "", "project directory to load packages from")
	analyzeCmd.Flags().StringP("output", "o", "", "output file path (default stdout)")
	analyzeCmd.Flags().String("format", "", "output format (yaml, json, openapi)")
	analyzeCmd.Flags().Bool("fail-on-error", false, "exit non-zero when analysis records error diagnostics")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if len(args) > 0 {
		cfg.Patterns = args
	}
	if cmd.Flags().Changed("dir") {
		dir, _ := cmd.Flags().GetString("dir")
		cfg.Dir = dir
	}
	if cmd.Flags().Changed("output") {
		output, _ := cmd.Flags().GetString("output")
		cfg.OutputPath = output
	}
	if cmd.Flags().Changed("format") {
		format, _ := cmd.Flags().GetString("format")
		cfg.OutputFormat = format
	}
	if cmd.Flags().Changed("fail-on-error") {
		failOnError, _ := cmd.Flags().GetBool("fail-on-error")
		cfg.FailOnError = failOnError
	}
	if cacheURL != "" {
		cfg.CacheURL = cacheURL
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	var store *db.Store
	if cfg.CacheURL != "" {
		database, err := db.Open(cfg.CacheURL)
		if err != nil {
			return fmt.Errorf("failed to open cache: %w", err)
		}
		defer database.Close()

		if err := db.MigrateUp(database); err != nil {
			return fmt.Errorf("failed to migrate cache: %w", err)
		}
		s, err := db.NewStore(database)
		if err != nil {
			return fmt.Errorf("failed to load cache queries: %w", err)
		}
		store = s
		debugf("analysis cache ready at %s", cfg.CacheURL)
	}

	diag := types.NewCollector()
	scanner := scan.NewScanner(diag, store)
	res, err := scanner.Scan(ctx, cfg.Dir, cfg.Patterns...)
	if err != nil {
		return err
	}

	out, closeOut, err := openOutput(cfg.OutputPath)
	if err != nil {
		return err
	}
	defer closeOut()

	switch cfg.OutputFormat {
	case "openapi":
		doc, err := emit.OpenAPIDocument(ctx, "formtrace analysis", Version, res.Reports)
		if err != nil {
			return err
		}
		if err := emit.WriteOpenAPI(out, doc); err != nil {
			return err
		}
	default:
		report := emit.BuildReport(res, diag.Session(), diag.Entries())
		if err := emit.WriteReport(out, report, cfg.OutputFormat); err != nil {
			return err
		}
	}

	warnings := diag.Count(types.SeverityWarning)
	errors := diag.Count(types.SeverityError)
	log.Printf("Analyzed %d request types across %d packages (%d cache hits, %d warnings, %d errors)",
		len(res.Reports), res.Packages, res.CacheHits, warnings, errors)

	if cfg.FailOnError && diag.HasErrors() {
		return fmt.Errorf("analysis recorded %d error diagnostics", errors)
	}
	return nil
}

// openOutput resolves the output writer: a file when a path is set,
// stdout otherwise.
func openOutput(path string) (io.Writer, func(), error) {
	if path == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() { f.Close() }, nil
}
