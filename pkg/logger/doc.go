// Package logger provides the structured logging interface used across profilesync.
//
// It wraps zerolog with a small interface so components can carry fields
// (identifier, worksheet, batch) without depending on zerolog directly.
// Console output is coloured; when a log file is configured the same events
// are also written as JSON to a size-rotated file.
//
//	logger.Initialize(&cfg.Logging)
//	log := logger.GetLogger().WithField("component", "syncer")
//	log.InfoWithFields("Batch reconciled", map[string]interface{}{"inserted": 2})
//
// Tests use NewTestLogger to capture messages, or NewNopLogger to discard them.
package logger
