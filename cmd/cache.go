package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wahlkarte/wahlkarte/internal/store"
)

var cachePurgeDays int

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and prune the geocode cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show geocode cache statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		c, err := store.Open(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer c.Close() //nolint:errcheck

		st, err := c.Stats(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("Driver:   %s\n", cfg.Store.Driver)
		fmt.Printf("Entries:  %d\n", st.Entries)
		fmt.Printf("Matched:  %d\n", st.Matched)
		fmt.Printf("Misses:   %d\n", st.Misses)
		if st.Entries > 0 {
			fmt.Printf("Oldest:   %s\n", st.Oldest.Format(time.RFC3339))
			fmt.Printf("Newest:   %s\n", st.Newest.Format(time.RFC3339))
		}
		return nil
	},
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete cached geocode answers",
	Long:  "Deletes cache entries older than --older-than days; 0 deletes every entry.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		c, err := store.Open(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer c.Close() //nolint:errcheck

		olderThan := time.Duration(cachePurgeDays) * 24 * time.Hour
		n, err := c.Purge(ctx, olderThan)
		if err != nil {
			return err
		}
		zap.L().Info("geocode cache purged",
			zap.Int64("deleted", n),
			zap.Duration("older_than", olderThan),
		)
		return nil
	},
}

func init() {
	cachePurgeCmd.Flags().IntVar(&cachePurgeDays, "older-than", 0, "only delete entries older than this many days")
	cacheCmd.AddCommand(cacheStatsCmd, cachePurgeCmd)
	rootCmd.AddCommand(cacheCmd)
}
