package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"modcheck/internal/logging"
	"modcheck/internal/verify"
	"modcheck/internal/watch"
)

// watchCmd re-evaluates conditions while mods are being installed
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-check the installation whenever marker files change",
	Long: `Watches the marker directories and logs the condition results after every
change. No warnings are shown and the history is not touched.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts, err := verifyOptions()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	evaluate := func(ctx context.Context) {
		st := verify.Inspect(ctx, opts)
		detected := 0
		for _, c := range st.Conditions {
			if c.Result.Detected() {
				detected++
				fmt.Fprintf(out, "! %s [%s]\n", c.Result.Condition.Title, c.Result.Key())
			}
		}
		fmt.Fprintf(out, "%d of %d conditions detected\n", detected, len(st.Conditions))
	}

	evaluate(ctx)

	w := watch.New(opts.InstallRoot, opts.Conditions, evaluate, watch.WithLogger(logger))
	logging.For(logger, logging.CategoryWatch).Info("Watching installation",
		zap.String("root", opts.InstallRoot),
		zap.Strings("dirs", w.Targets()))
	return w.Run(ctx)
}
