package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"modcheck/internal/integrity"
)

// DefaultConfigFile is looked up in the working directory when no --config
// flag is given.
const DefaultConfigFile = "modcheck.yaml"

// Config holds all modcheck configuration.
type Config struct {
	// Installation root probed for marker files (default: working directory)
	InstallRoot string `yaml:"install_root"`

	// Writable application-data directory holding the warning cache
	// (default: <user config dir>/modcheck)
	DataDir   string `yaml:"data_dir"`
	CacheFile string `yaml:"cache_file"`

	// Loader version; a new version resets the warning history.
	LoaderVersion string `yaml:"loader_version"`

	Policy  PolicyConfig  `yaml:"policy"`
	Logging LoggingConfig `yaml:"logging"`
	Notify  NotifyConfig  `yaml:"notify"`

	// Extra condition rows, appended to (or replacing) the built-in table
	Conditions         []integrity.Condition `yaml:"conditions,omitempty"`
	DisabledConditions []string              `yaml:"disabled_conditions,omitempty"`
}

// PolicyConfig configures warning throttling.
type PolicyConfig struct {
	// Warnings shown on every qualifying launch before throttling starts
	InitialWarningCount int `yaml:"initial_warning_count"`

	// Minimum days between warnings once throttled (0 = every launch)
	CooldownDays int `yaml:"cooldown_days"`
}

// NotifyConfig configures how warnings reach the user.
type NotifyConfig struct {
	// Headless never opens the terminal prompt; warnings are only logged.
	Headless bool `yaml:"headless"`

	// OpenLinks offers to open the condition's help page.
	OpenLinks bool `yaml:"open_links"`
}

// envOverrides mirrors the settings that can be overridden from the
// environment. Nil fields were not set.
type envOverrides struct {
	InstallRoot        *string  `env:"MODCHECK_INSTALL_ROOT"`
	DataDir            *string  `env:"MODCHECK_DATA_DIR"`
	CacheFile          *string  `env:"MODCHECK_CACHE_FILE"`
	LoaderVersion      *string  `env:"MODCHECK_LOADER_VERSION"`
	InitialWarnings    *int     `env:"MODCHECK_INITIAL_WARNINGS"`
	CooldownDays       *int     `env:"MODCHECK_COOLDOWN_DAYS"`
	LogLevel           *string  `env:"MODCHECK_LOG_LEVEL"`
	LogFormat          *string  `env:"MODCHECK_LOG_FORMAT"`
	LogFile            *string  `env:"MODCHECK_LOG_FILE"`
	AuditFile          *string  `env:"MODCHECK_AUDIT_FILE"`
	Headless           *bool    `env:"MODCHECK_HEADLESS"`
	OpenLinks          *bool    `env:"MODCHECK_OPEN_LINKS"`
	DisabledConditions []string `env:"MODCHECK_DISABLED_CONDITIONS" envSeparator:","`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		CacheFile: "mod_warnings.bin",

		Policy: PolicyConfig{
			InitialWarningCount: 3,
			CooldownDays:        7,
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},

		Notify: NotifyConfig{
			Headless:  false,
			OpenLinks: true,
		},
	}
}

// Load loads configuration from a YAML file and applies environment
// overrides. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	setString(&c.InstallRoot, o.InstallRoot)
	setString(&c.DataDir, o.DataDir)
	setString(&c.CacheFile, o.CacheFile)
	setString(&c.LoaderVersion, o.LoaderVersion)
	setString(&c.Logging.Level, o.LogLevel)
	setString(&c.Logging.Format, o.LogFormat)
	setString(&c.Logging.File, o.LogFile)
	setString(&c.Logging.AuditFile, o.AuditFile)
	if o.InitialWarnings != nil {
		c.Policy.InitialWarningCount = *o.InitialWarnings
	}
	if o.CooldownDays != nil {
		c.Policy.CooldownDays = *o.CooldownDays
	}
	if o.Headless != nil {
		c.Notify.Headless = *o.Headless
	}
	if o.OpenLinks != nil {
		c.Notify.OpenLinks = *o.OpenLinks
	}
	if len(o.DisabledConditions) > 0 {
		c.DisabledConditions = append(c.DisabledConditions, o.DisabledConditions...)
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Policy.InitialWarningCount < 0 {
		return fmt.Errorf("policy.initial_warning_count must be >= 0, got %d", c.Policy.InitialWarningCount)
	}
	if c.Policy.CooldownDays < 0 {
		return fmt.Errorf("policy.cooldown_days must be >= 0, got %d", c.Policy.CooldownDays)
	}
	if c.CacheFile == "" {
		return errors.New("cache_file must not be empty")
	}
	if _, err := c.ConditionTable(); err != nil {
		return err
	}
	return nil
}

// ConditionTable returns the built-in conditions merged with the configured
// extra rows, minus the disabled ones.
func (c *Config) ConditionTable() ([]integrity.Condition, error) {
	table := integrity.Merge(integrity.DefaultConditions(), c.Conditions, c.DisabledConditions)
	if err := integrity.ValidateTable(table); err != nil {
		return nil, err
	}
	return table, nil
}

// GetCooldown returns the cooldown window as a duration.
func (c *Config) GetCooldown() time.Duration {
	return time.Duration(c.Policy.CooldownDays) * 24 * time.Hour
}

// ResolveInstallRoot returns the absolute installation root.
func (c *Config) ResolveInstallRoot() (string, error) {
	root := c.InstallRoot
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to resolve working directory: %w", err)
		}
		root = wd
	}
	return filepath.Abs(root)
}

// ResolveDataDir returns the absolute application-data directory.
func (c *Config) ResolveDataDir() (string, error) {
	dir := c.DataDir
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("failed to resolve user config dir: %w", err)
		}
		dir = filepath.Join(base, "modcheck")
	}
	return filepath.Abs(dir)
}

// CachePath returns the absolute path of the warning cache file.
func (c *Config) CachePath() (string, error) {
	if filepath.IsAbs(c.CacheFile) {
		return c.CacheFile, nil
	}
	dir, err := c.ResolveDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, c.CacheFile), nil
}

// AuditPath returns the absolute audit file path, or "" when auditing is off.
// A relative path is resolved against the data directory.
func (c *Config) AuditPath() (string, error) {
	if c.Logging.AuditFile == "" || filepath.IsAbs(c.Logging.AuditFile) {
		return c.Logging.AuditFile, nil
	}
	dir, err := c.ResolveDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, c.Logging.AuditFile), nil
}

// DefaultConfigPath returns the default path to modcheck.yaml.
func DefaultConfigPath() string {
	cwd, err := os.Getwd()
	if err != nil {
		return DefaultConfigFile
	}
	return filepath.Join(cwd, DefaultConfigFile)
}
