package cmd

import (
	"log"

	"github.com/spf13/cobra"
)

var (
	configFile string
	cacheURL   string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "formtrace",
	Short: "Formtrace validation rule analyzer",
	Long:  `Formtrace extracts conditional validation rules from request types and synthesizes parameter schemas without executing the analyzed code.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&cacheURL, "cache-url", "", "analysis cache URL (sqlite://path or postgres://...)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
}

func Execute() error {
	return rootCmd.Execute()
}

// debugf logs only at debug level. The core never logs; everything the
// CLI prints about an analysis comes from the diagnostics collector.
func debugf(format string, args ...any) {
	if logLevel == "debug" {
		log.Printf(format, args...)
	}
}
