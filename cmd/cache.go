package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and clear the shared cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached search and places lookup",
	RunE: func(cmd *cobra.Command, _ []string) error {
		c := initCache(cmd.Context())
		defer c.Close() //nolint:errcheck

		if err := c.Clear(cmd.Context()); err != nil {
			return eris.Wrap(err, "cache clear")
		}
		fmt.Fprintln(os.Stderr, "Cache cleared.")
		return nil
	},
}

var cacheGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print the cached value stored under key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := initCache(cmd.Context())
		defer c.Close() //nolint:errcheck

		var v json.RawMessage
		if !c.Get(cmd.Context(), args[0], &v) {
			return eris.Errorf("cache get: no entry for %q", args[0])
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	},
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd, cacheGetCmd)
	rootCmd.AddCommand(cacheCmd)
}
