package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the local cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop every cached collection",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.ClearCache(); err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}
		printer.Success("Cache cleared")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration, backend reachability and cache state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		printer.Header("Configuration")
		printer.Print("Data dir:   %s", cfg.DataDir)
		printer.Print("Backend:    %s", cfg.API.BaseURL)
		printer.Print("Cache:      %s", cfg.Cache.Backend)
		printer.Print("Generator:  %s", cfg.Generator.Provider)

		printer.Header("Backend")
		start := time.Now()
		if err := a.TagStore.Refetch(cmd.Context()); err != nil {
			printer.Error("unreachable: %v", err)
		} else {
			printer.Success("reachable (%s)", time.Since(start).Round(time.Millisecond))
		}

		entries, err := a.CacheEntries()
		if err != nil {
			return fmt.Errorf("failed to read cache: %w", err)
		}
		printer.Header("Cache")
		if len(entries) == 0 {
			printer.Print("empty")
			return nil
		}
		now := time.Now()
		table := printer.NewTable([]string{"Key", "Size", "Age", "Fresh", "Last fetch"})
		for _, e := range entries {
			age := now.Sub(e.StoredAt)
			last := a.LastFetch(e.Key)
			if last == "" {
				last = "-"
			}
			table.AddRow([]string{
				e.Key,
				strconv.Itoa(e.Size),
				age.Round(time.Second).String(),
				strconv.FormatBool(age < e.TTL),
				last,
			})
		}
		table.Render()
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(statusCmd)
}
