package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"modcheck/internal/config"
)

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New(config.LoggingConfig{Level: "chatty"})
	assert.Error(t, err)
}

func TestNew_WritesLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "modcheck.log")
	logger, err := New(config.LoggingConfig{Level: "debug", Format: "json", File: path})
	require.NoError(t, err)

	For(logger, CategoryProbe).Info("marker checked")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"logger":"probe"`)
	assert.Contains(t, string(data), "marker checked")
}

func TestWithCategoryFilter(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := WithCategoryFilter(zap.New(core), map[string]bool{
		string(CategoryCache): false,
		string(CategoryProbe): true,
	})

	For(logger, CategoryCache).Info("dropped")
	For(logger, CategoryCache).Named("codec").Info("dropped too")
	For(logger, CategoryProbe).Info("kept")
	For(logger, CategoryPolicy).With(zap.String("key", "k")).Info("kept by default")

	var msgs []string
	for _, e := range logs.All() {
		msgs = append(msgs, e.Message)
	}
	assert.Equal(t, []string{"kept", "kept by default"}, msgs)
}

func TestFor_NilBase(t *testing.T) {
	assert.NotPanics(t, func() {
		For(nil, CategoryNotify).Warn("nobody listens")
	})
}
