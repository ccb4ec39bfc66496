package logger

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// LogThrottle records a throttled remote call that will be retried
func LogThrottle(l Logger, op string, attempt int, backoff time.Duration) {
	OrGlobal(l).WithFields(map[string]interface{}{
		"op":      op,
		"attempt": attempt,
		"backoff": backoff,
		"action":  "throttled",
	}).Warn("Remote quota exceeded, backing off")
}

// LogBatch records the outcome of one reconciled batch
func LogBatch(l Logger, batch, size, inserted, updated int, err error) {
	fields := map[string]interface{}{
		"batch":    batch,
		"size":     size,
		"inserted": inserted,
		"updated":  updated,
	}
	if err != nil {
		OrGlobal(l).WithFields(fields).WithError(err).Error("Batch failed, items left pending")
		return
	}
	OrGlobal(l).InfoWithFields("Batch reconciled", fields)
}

// LogSyncSummary logs the end-of-run totals
func LogSyncSummary(l Logger, fields map[string]interface{}) {
	OrGlobal(l).InfoWithFields("Sync finished", fields)
}

// LogComponentStart logs when a component starts
func LogComponentStart(component string, cfg map[string]interface{}) {
	l := GetLogger().WithField("component", component)
	if len(cfg) > 0 {
		l = l.WithFields(cfg)
	}
	l.Info("Component started")
}

// LogComponentStop logs when a component stops
func LogComponentStop(component string, reason string) {
	GetLogger().WithFields(map[string]interface{}{
		"component": component,
		"reason":    reason,
	}).Info("Component stopped")
}

// NewNopLogger creates a no-operation logger for testing
func NewNopLogger() Logger {
	return &nopLogger{}
}

type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) Fatal(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) WithContext(ctx context.Context) Logger                    { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) FatalWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) GetZerolog() *zerolog.Logger                               { return nil }
