package cmd

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/solatis/formtrace/internal/core/config"
	"github.com/solatis/formtrace/internal/core/db"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the analysis cache",
}

var cacheStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show cache migrations and stored analyses",
	RunE:  runCacheStatus,
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete cached analyses older than the retention window",
	RunE:  runCachePurge,
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheStatusCmd)
	cacheCmd.AddCommand(cachePurgeCmd)
	cachePurgeCmd.Flags().Duration("older-than", 30*24*time.Hour, "delete entries older than this duration")
}

// resolveCacheURL prefers the --cache-url flag, then the loaded config.
func resolveCacheURL() (string, error) {
	if cacheURL != "" {
		return cacheURL, nil
	}
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return "", fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.CacheURL == "" {
		return "", fmt.Errorf("--cache-url required (or set FT_ANALYZE_CACHE_URL)")
	}
	return cfg.CacheURL, nil
}

func runCacheStatus(cmd *cobra.Command, args []string) error {
	url, err := resolveCacheURL()
	if err != nil {
		return err
	}
	database, err := db.Open(url)
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}
	defer database.Close()

	statuses, err := db.MigrateStatus(database)
	if err != nil {
		return fmt.Errorf("failed to read migration status: %w", err)
	}
	pending := 0
	for _, s := range statuses {
		state := "pending"
		if s.Applied {
			state = "applied " + s.AppliedAt.Format(time.RFC3339)
		} else {
			pending++
		}
		fmt.Printf("%-32s %s\n", s.ID, state)
	}
	if pending > 0 {
		fmt.Printf("%d migrations pending; any cache-backed command applies them\n", pending)
		return nil
	}

	store, err := db.NewStore(database)
	if err != nil {
		return fmt.Errorf("failed to load cache queries: %w", err)
	}
	ctx := cmd.Context()
	n, err := store.Count(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%d cached analyses\n", n)

	entries, err := store.Entries(ctx)
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Printf("  %s  %-24s %s\n", e.CreatedAt.Format(time.RFC3339), e.TypeName, e.SourceFile)
	}
	return nil
}

func runCachePurge(cmd *cobra.Command, args []string) error {
	url, err := resolveCacheURL()
	if err != nil {
		return err
	}
	olderThan, _ := cmd.Flags().GetDuration("older-than")

	database, err := db.Open(url)
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}
	defer database.Close()

	if err := db.MigrateUp(database); err != nil {
		return fmt.Errorf("failed to migrate cache: %w", err)
	}
	store, err := db.NewStore(database)
	if err != nil {
		return fmt.Errorf("failed to load cache queries: %w", err)
	}

	removed, err := store.Purge(cmd.Context(), olderThan)
	if err != nil {
		return err
	}
	log.Printf("Purged %d cached analyses older than %s", removed, olderThan)
	return nil
}
