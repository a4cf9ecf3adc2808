package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-engine/internal/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the document cache",
}

var cacheLookupCmd = &cobra.Command{
	Use:   "lookup <topic>",
	Short: "Show the cached record for a topic",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		cfg.Cache.Enabled = true
		store := cache.New(cfg.Cache, logger)

		res := store.Lookup(args[0])
		out := cmd.OutOrStdout()
		switch res.Status {
		case cache.Hit:
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(res.Entry)
		case cache.Error:
			return res.Err
		default:
			fmt.Fprintf(out, "no cached document for %q (key %s)\n", args[0], cache.Key(args[0]))
			return nil
		}
	},
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Remove every cached document",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		n, err := cache.New(cfg.Cache, logger).Purge()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "removed %d cached document(s) from %s\n", n, cfg.Cache.Dir)
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheLookupCmd, cachePurgeCmd)
	rootCmd.AddCommand(cacheCmd)
}
