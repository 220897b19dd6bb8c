package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"modcheck/internal/verify"
)

// statusCmd shows probe results and warning history without changing anything
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show condition results and warning history",
	Args:  cobra.NoArgs,
	RunE:  showStatus,
}

func showStatus(cmd *cobra.Command, args []string) error {
	opts, err := verifyOptions()
	if err != nil {
		return err
	}
	st := verify.Inspect(context.Background(), opts)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "modcheck status")
	fmt.Fprintln(out, "===============")
	fmt.Fprintf(out, "Version:      %s\n", version)
	fmt.Fprintf(out, "Install root: %s\n", opts.InstallRoot)
	fmt.Fprintf(out, "Cache:        %s\n", st.CachePath)
	fmt.Fprintf(out, "Fingerprint:  %s\n", st.Fingerprint)

	switch {
	case st.CacheError != nil:
		fmt.Fprintf(out, "✗ Cache unusable, next check starts clean: %v\n", st.CacheError)
	case !st.CacheLoaded:
		fmt.Fprintln(out, "✓ No warning history yet")
	case !st.FingerprintMatches():
		fmt.Fprintln(out, "✗ Environment changed, history will be reset on next check")
	default:
		fmt.Fprintln(out, "✓ Warning history matches this environment")
	}
	fmt.Fprintln(out)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CONDITION\tSTATUS\tSHOWN\tLAST SHOWN\tPHASE\tREMAINING\tNEXT")
	for _, c := range st.Conditions {
		last := "never"
		if !c.Entry.Never() {
			last = c.Entry.LastShownAt.Local().Format(time.DateTime)
		}
		next := "now"
		if !c.Decision.Warn {
			next = c.Decision.NextEligibleAt.Local().Format(time.DateTime)
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%d\t%s\n",
			c.Result.Key(), c.Result.Status, c.Entry.ShownCount, last, c.Decision.Phase, c.Decision.Remaining, next)
	}
	return tw.Flush()
}
