// Package logger provides a structured logging interface for the collection engine.
//
// It wraps the zerolog library to provide a clean, easy-to-use API with support for:
// - Multiple log levels (Debug, Info, Warn, Error, Fatal)
// - Structured logging with fields
// - Pretty console output with colors
// - JSON output for log aggregation
// - Context support for request tracing
// - Global logger instance for easy access
//
// Basic Usage:
//
//	import "socialharvest/pkg/logger"
//
//	// Initialize the global logger
//	cfg := &config.LoggingConfig{
//	    Level: "info",
//	    File: "/var/log/socialharvest.log",
//	}
//	err := logger.Initialize(cfg)
//
//	// Use the global logger
//	logger.Info("Engine started")
//	logger.WithField("platform", "instagram").Info("Collection started")
//	logger.WithError(err).Error("Failed to collect profile")
//
// Advanced Usage:
//
//	// Create a logger instance with fields
//	log := logger.GetLogger().
//	    WithField("component", "orchestrator").
//	    WithField("task_id", "12345")
//
//	// Use structured logging
//	log.InfoWithFields("Collection completed", map[string]interface{}{
//	    "platform": "instagram",
//	    "items":    25,
//	    "duration": time.Second * 5,
//	})
//
// The logger supports the following configuration options:
// - Level: Log level (debug, info, warn, error, fatal)
// - Format: Output format ("console" or "json")
// - File: Path to log file (empty for console only)
package logger
