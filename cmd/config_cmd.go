package cmd

import (
	"fmt"
	"slices"
	"strings"

	"github.com/theirongolddev/hydrate/internal/config"
	"github.com/theirongolddev/hydrate/internal/logger"
	"github.com/theirongolddev/hydrate/internal/progress"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	s := openSession()
	defer s.Close()
	cfg := s.cfg

	fmt.Printf("  Config file: %s\n", config.Path())
	if config.Exists() {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	fmt.Println()

	fmt.Println("  [General]")
	fmt.Printf("    Database:  %s\n", s.dbPath)
	fmt.Printf("    Time zone: %s\n", s.loc)
	fmt.Println()

	fmt.Println("  [Defaults]")
	fmt.Printf("    Goal:    %s\n", cfg.Defaults.Goal)
	fmt.Printf("    Unit:    %s\n", cfg.Defaults.Unit)
	fmt.Printf("    Presets: %s\n", strings.Join(cfg.Defaults.Presets, ", "))
	fmt.Println()

	fmt.Println("  [Appearance]")
	fmt.Printf("    Theme: %s\n", cfg.Appearance.Theme)
	fmt.Println()

	fmt.Println("  [Daemon]")
	fmt.Printf("    Address:       %s\n", cfg.Daemon.Addr)
	fmt.Printf("    Rollover cron: %s\n", cfg.Daemon.RolloverCron)
	fmt.Printf("    Events buffer: %d\n", cfg.Daemon.EventsBuffer)
	fmt.Println()

	fmt.Println("  [Log]")
	fmt.Printf("    Debug: %v\n", cfg.Log.Debug)
	fmt.Printf("    File:  %s\n", logger.LogPath(config.Dir()))
	fmt.Println()

	if s.store == nil {
		fmt.Println("  [Stored]")
		fmt.Println("    database unavailable")
		return nil
	}

	stored, err := s.store.All()
	if err != nil {
		return fmt.Errorf("reading stored values: %w", err)
	}
	count, err := s.store.IntakeCount()
	if err != nil {
		return fmt.Errorf("counting entries: %w", err)
	}

	fmt.Println("  [Stored]")
	keys := progress.AllKeys()
	width := 0
	for _, k := range keys {
		width = max(width, len(k))
	}
	for _, k := range keys {
		v, ok := stored[k]
		if !ok {
			v = "(default)"
		}
		fmt.Printf("    %-*s  %s\n", width, k, v)
	}
	extra := make([]string, 0)
	for k := range stored {
		if !slices.Contains(keys, k) {
			extra = append(extra, k)
		}
	}
	slices.Sort(extra)
	for _, k := range extra {
		fmt.Printf("    %-*s  %s\n", width, k, stored[k])
	}
	fmt.Printf("    Entries logged: %d\n", count)
	fmt.Println()

	fmt.Println("  Run `hydrate setup` to reconfigure.")
	return nil
}
