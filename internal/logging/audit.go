package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// AuditEventType names one kind of audit record.
type AuditEventType string

const (
	AuditCheckStart   AuditEventType = "check_start"
	AuditCacheReset   AuditEventType = "cache_reset"
	AuditCondition    AuditEventType = "condition_result"
	AuditDecision     AuditEventType = "decision"
	AuditDisplay      AuditEventType = "display"
	AuditDisplayError AuditEventType = "display_error"
	AuditLinkOpened   AuditEventType = "link_opened"
	AuditCheckEnd     AuditEventType = "check_end"
)

// AuditEvent is one line of the audit file.
type AuditEvent struct {
	Type    AuditEventType
	Key     string
	Status  string
	Phase   string
	Reason  string
	Shown   *bool
	Count   *uint32
	Error   error
	Message string
}

// AuditLogger appends check events as JSON lines. It is separate from the
// diagnostic log so it can be kept across runs and parsed by tools. A nil
// *AuditLogger discards everything.
type AuditLogger struct {
	logger *zap.Logger
	runID  string
	close  func() error
}

// NewAudit opens (or creates) the audit file at path in append mode.
func NewAudit(path, runID string) (*AuditLogger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create audit directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit file: %w", err)
	}

	enc := zapcore.NewJSONEncoder(zapcore.EncoderConfig{
		TimeKey:        "ts",
		MessageKey:     "event",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeTime:     zapcore.EpochMillisTimeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
	})
	core := zapcore.NewCore(enc, zapcore.AddSync(f), zapcore.DebugLevel)

	return &AuditLogger{
		logger: zap.New(core),
		runID:  runID,
		close: func() error {
			_ = f.Sync()
			return f.Close()
		},
	}, nil
}

// Log writes one event.
func (a *AuditLogger) Log(e AuditEvent) {
	if a == nil {
		return
	}

	fields := []zap.Field{zap.String("run", a.runID)}
	add := func(key, value string) {
		if value != "" {
			fields = append(fields, zap.String(key, value))
		}
	}
	add("key", e.Key)
	add("status", e.Status)
	add("phase", e.Phase)
	add("reason", e.Reason)
	add("msg", e.Message)
	if e.Shown != nil {
		fields = append(fields, zap.Bool("shown", *e.Shown))
	}
	if e.Count != nil {
		fields = append(fields, zap.Uint32("count", *e.Count))
	}
	if e.Error != nil {
		fields = append(fields, zap.String("error", e.Error.Error()))
	}

	a.logger.Info(string(e.Type), fields...)
}

// Timed writes an event with the elapsed time since start.
func (a *AuditLogger) Timed(e AuditEvent, start time.Time) {
	if a == nil {
		return
	}
	a.logger.Info(string(e.Type), zap.String("run", a.runID), zap.Duration("dur_ms", time.Since(start)), zap.String("msg", e.Message))
}

// Close flushes and closes the audit file.
func (a *AuditLogger) Close() error {
	if a == nil || a.close == nil {
		return nil
	}
	return a.close()
}
