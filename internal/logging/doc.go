// Package logging provides structured logging for the deckd daemon.
//
// This package wraps zap logger with convenience functions for common logging
// patterns used throughout the daemon. Logging is always on: an unattended
// daemon with no display has no other way to explain itself.
//
// # Log Levels
//
// The package supports standard log levels:
//   - Debug: Detailed debugging info (key transitions, render timing, raw polls)
//   - Info: Normal operations (device connect, page navigation, config reload)
//   - Warn: Non-fatal issues (failed actions, rejected reloads, poll errors)
//   - Error: Fatal issues (startup failures)
//
// # Structured Logging
//
// All log functions use structured fields for queryability:
//
//	logging.Info("Device connected",
//	    zap.String("serial", "CL12K1A00123"),
//	    zap.Int("keys", 15),
//	)
//
// # Configuration
//
// Initialize logging at daemon startup:
//
//	if err := logging.Initialize("info", "console"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// The "json" format is intended for journald or a log collector; the default
// "console" format is human-readable:
//
//	2025-11-25T10:30:45.123-0800  INFO  Device event
//	  event=connected
//	  serial=CL12K1A00123
//
// # Thread Safety
//
// All logging functions are safe for concurrent use. The underlying zap logger
// handles synchronization automatically.
package logging
