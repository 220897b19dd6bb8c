package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"modcheck/internal/warncache"
)

// resetCmd clears the warning history
var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Forget every shown warning",
	Long: `Clears the warning history so every detected problem is shown again on
the next check, starting with the full initial budget.`,
	Args: cobra.NoArgs,
	RunE: runReset,
}

func runReset(cmd *cobra.Command, args []string) error {
	path, err := cfg.CachePath()
	if err != nil {
		return err
	}

	cache := warncache.Load(path, logger)
	n := cache.Len()
	cache.Reset()
	if err := cache.Save(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d warning entries in %s\n", n, path)
	return nil
}
