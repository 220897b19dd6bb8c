// Package logging builds the zap logger used across modcheck.
//
// Every subsystem logs under its own category (a zap logger name). Categories
// can be silenced individually from the config file; everything else follows
// the configured level, format and optional log file.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"modcheck/internal/config"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot   Category = "boot"   // CLI startup, config loading
	CategoryProbe  Category = "probe"  // Marker file checks
	CategoryCache  Category = "cache"  // Warning cache persistence
	CategoryPolicy Category = "policy" // Warn / suppress decisions
	CategoryNotify Category = "notify" // Presenter and link opener
	CategoryWatch  Category = "watch"  // Install tree watcher
)

// AllCategories lists every category in display order.
var AllCategories = []Category{
	CategoryBoot, CategoryProbe, CategoryCache, CategoryPolicy, CategoryNotify, CategoryWatch,
}

// New builds a logger from the logging config.
// Format "json" uses zap's production encoder, anything else the console one.
func New(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	var zc zap.Config
	if strings.EqualFold(cfg.Format, "json") {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
		zc.DisableStacktrace = true
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	if cfg.File != "" {
		zc.OutputPaths = append(zc.OutputPaths, cfg.File)
	}

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return WithCategoryFilter(logger, cfg.Categories), nil
}

// For returns the category logger derived from base. A nil base yields a
// no-op logger so packages can be used without wiring logging.
func For(base *zap.Logger, category Category) *zap.Logger {
	if base == nil {
		return zap.NewNop()
	}
	return base.Named(string(category))
}

// WithCategoryFilter drops entries from categories toggled off in toggles.
// Categories missing from the map stay enabled.
func WithCategoryFilter(logger *zap.Logger, toggles map[string]bool) *zap.Logger {
	disabled := make(map[string]bool)
	for cat, enabled := range toggles {
		if !enabled {
			disabled[cat] = true
		}
	}
	if len(disabled) == 0 {
		return logger
	}
	return logger.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return &categoryCore{Core: core, disabled: disabled}
	}))
}

type categoryCore struct {
	zapcore.Core
	disabled map[string]bool
}

func (c *categoryCore) With(fields []zapcore.Field) zapcore.Core {
	return &categoryCore{Core: c.Core.With(fields), disabled: c.disabled}
}

func (c *categoryCore) Check(entry zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	root, _, _ := strings.Cut(entry.LoggerName, ".")
	if c.disabled[root] {
		return ce
	}
	return c.Core.Check(entry, ce)
}
