package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"modcheck/internal/config"
	"modcheck/internal/fingerprint"
	"modcheck/internal/logging"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

var (
	// Global flags
	verbose     bool
	configPath  string
	installRoot string
	dataDir     string
	headless    bool
	noLinks     bool
	strict      bool

	// Loaded in PersistentPreRunE
	cfg    *config.Config
	logger *zap.Logger

	// OS identity source, replaced in tests
	provider fingerprint.Provider = fingerprint.SystemProvider{}
)

// exitError carries a process exit code without an error message.
type exitError struct{ code int }

func (e exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "modcheck",
	Short: "Installation integrity check for the MGS2 mod loader",
	Long: `modcheck inspects well-known marker files under the game installation and
warns when a required companion mod is missing, an incompatible texture pack
is installed, or packs were applied in the wrong order.

Warnings are throttled: each one is shown on the first few launches, then at
most once per cooldown window. The history resets when the game, the OS or
the loader is reinstalled.

Run without arguments to perform the startup check.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			path = config.DefaultConfigPath()
		}

		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		applyFlagOverrides(cmd, loaded)
		if err := loaded.Validate(); err != nil {
			return fmt.Errorf("invalid config %s: %w", path, err)
		}
		cfg = loaded

		logger, err = logging.New(cfg.Logging)
		if err != nil {
			return err
		}
		logging.For(logger, logging.CategoryBoot).Debug("Config loaded",
			zap.String("path", path),
			zap.String("version", version))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runCheck,
}

func applyFlagOverrides(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("install-root") {
		c.InstallRoot = installRoot
	}
	if flags.Changed("data-dir") {
		c.DataDir = dataDir
	}
	if flags.Changed("headless") {
		c.Notify.Headless = headless
	}
	if flags.Changed("no-links") {
		c.Notify.OpenLinks = !noLinks
	}
	if verbose {
		c.Logging.Level = "debug"
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: ./modcheck.yaml)")
	rootCmd.PersistentFlags().StringVar(&installRoot, "install-root", "", "Game installation directory (default: current)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Directory holding the warning cache")
	rootCmd.PersistentFlags().BoolVar(&headless, "headless", false, "Never show the interactive prompt; only log warnings")
	rootCmd.PersistentFlags().BoolVar(&noLinks, "no-links", false, "Do not offer to open help pages")
	rootCmd.PersistentFlags().BoolVar(&strict, "strict", false, "Exit with status 2 when a problem is detected")

	// Add commands to root
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(hashCmd)
	rootCmd.AddCommand(watchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		var exit exitError
		if errors.As(err, &exit) {
			os.Exit(exit.code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
