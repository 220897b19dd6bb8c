package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"modcheck/internal/logging"
	"modcheck/internal/notify"
	"modcheck/internal/policy"
	"modcheck/internal/verify"
)

// checkCmd runs the startup check
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check the installation and show due warnings",
	Long: `Probes every condition, logs the results and shows each detected problem
that the warning policy allows. Displays are recorded in the warning cache.

With --strict the exit status is 2 when any problem is detected, whether or
not its warning was shown.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

// verifyOptions builds verifier options from the loaded config.
func verifyOptions() (verify.Options, error) {
	root, err := cfg.ResolveInstallRoot()
	if err != nil {
		return verify.Options{}, err
	}
	cachePath, err := cfg.CachePath()
	if err != nil {
		return verify.Options{}, err
	}
	conds, err := cfg.ConditionTable()
	if err != nil {
		return verify.Options{}, err
	}

	opts := verify.Options{
		InstallRoot:   root,
		CachePath:     cachePath,
		LoaderVersion: loaderVersion(),
		Conditions:    conds,
		Policy: policy.Policy{
			InitialWarningCount: cfg.Policy.InitialWarningCount,
			CooldownDays:        cfg.Policy.CooldownDays,
		},
		Provider:     provider,
		Logger:       logger,
		DisableLinks: !cfg.Notify.OpenLinks,
	}
	if cfg.Notify.OpenLinks {
		opts.Opener = notify.NewBrowserOpener()
	} else {
		opts.Opener = notify.NopOpener{Logger: logger}
	}
	return opts, nil
}

func loaderVersion() string {
	if cfg.LoaderVersion != "" {
		return cfg.LoaderVersion
	}
	return version
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts, err := verifyOptions()
	if err != nil {
		return err
	}
	opts.Presenter = notify.Auto(cfg.Notify.Headless, logger)
	opts.RunID = uuid.NewString()

	auditPath, err := cfg.AuditPath()
	if err != nil {
		return err
	}
	if auditPath != "" {
		audit, err := logging.NewAudit(auditPath, opts.RunID)
		if err != nil {
			logging.For(logger, logging.CategoryBoot).Warn("Audit trail disabled", zap.Error(err))
		} else {
			defer audit.Close()
			opts.Audit = audit
		}
	}

	report := verify.Run(ctx, opts)

	out := cmd.OutOrStdout()
	for _, o := range report.Detected() {
		state := "suppressed"
		switch {
		case o.Shown:
			state = "shown"
		case o.PresentErr != nil:
			state = "not displayed"
		}
		reason := ""
		if o.Decision != nil {
			reason = string(o.Decision.Reason)
		}
		fmt.Fprintf(out, "! %s [%s]: %s (%s)\n", o.Result.Condition.Title, o.Result.Key(), state, reason)
	}

	if strict && report.AnyDetected() {
		return exitError{code: 2}
	}
	return nil
}
