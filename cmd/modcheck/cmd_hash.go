package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"modcheck/internal/integrity"
)

// hashCmd prints marker digests for condition table authors
var hashCmd = &cobra.Command{
	Use:   "hash <file>...",
	Short: "Print the SHA-1 digest of files",
	Long: `Prints digests in the format used by the good_hashes and bad_hashes
fields of a condition.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runHash,
}

func runHash(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	var failed bool
	for _, path := range args {
		digest, err := integrity.HashFile(path)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", path, err)
			failed = true
			continue
		}
		fmt.Fprintf(out, "%s  %s\n", digest, path)
	}
	if failed {
		return exitError{code: 1}
	}
	return nil
}
