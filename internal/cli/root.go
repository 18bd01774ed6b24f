// Package cli implements the tempora CLI commands.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dan-solli/tempora/pkg/tempora"
	"github.com/spf13/cobra"
)

var (
	dbPath     string
	configPath string
	verbose    bool
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "tempora",
	Short: "Bitemporal memory for AI agents",
	Long:  "A bitemporal, event-sourced memory store with a causal graph. SQLite-backed, single binary.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: $TEMPORA_DB or ~/.tempora/memory.db)")
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (default: ~/.tempora/config.yaml)")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging to stderr")
}

func getDBPath(cfg *Config) string {
	if dbPath != "" {
		return dbPath
	}
	if env := os.Getenv("TEMPORA_DB"); env != "" {
		return env
	}
	if cfg.DBPath != "" {
		return cfg.DBPath
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".tempora", "memory.db")
}

func openSystem() (*tempora.Tempora, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	t, err := tempora.New(tempora.Config{
		DBPath:       getDBPath(cfg),
		ReadPoolSize: cfg.ReadPoolSize,
		TraceFile:    cfg.TraceFile,
	})
	if err != nil {
		return nil, err
	}

	if verbose {
		t.WithLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}
	return t, nil
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}

// parseTime accepts RFC 3339 timestamps or the literal "now".
func parseTime(s string) (time.Time, error) {
	if s == "" || s == "now" {
		return time.Now().UTC(), nil
	}
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q (want RFC 3339): %w", s, err)
	}
	return ts.UTC(), nil
}
