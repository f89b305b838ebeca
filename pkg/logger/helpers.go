package logger

import (
	"context"

	"github.com/rs/zerolog"
)

// LogRequest logs the outcome of a single outbound HTTP request
func LogRequest(method, url string, statusCode int, duration float64) {
	fields := map[string]interface{}{
		"method":      method,
		"url":         url,
		"status_code": statusCode,
		"duration_ms": duration,
	}

	switch {
	case statusCode >= 200 && statusCode < 300:
		GetLogger().DebugWithFields("HTTP request completed", fields)
	case statusCode >= 400 && statusCode < 500:
		GetLogger().WarnWithFields("HTTP request client error", fields)
	case statusCode >= 500:
		GetLogger().ErrorWithFields("HTTP request server error", fields)
	default:
		GetLogger().DebugWithFields("HTTP request finished", fields)
	}
}

// LogRateLimit logs a rate-limit gate closure for an endpoint
func LogRateLimit(platform, endpoint string, waitSeconds int) {
	GetLogger().WithFields(map[string]interface{}{
		"platform":    platform,
		"endpoint":    endpoint,
		"retry_after": waitSeconds,
		"action":      "rate_limited",
	}).Warn("Rate limit reached, backing off")
}

// LogProxyRotation logs a proxy swap after a connection failure
func LogProxyRotation(failedID, replacementID string) {
	fields := map[string]interface{}{
		"failed_proxy": failedID,
	}
	if replacementID != "" {
		fields["replacement_proxy"] = replacementID
	}

	logger := GetLogger().WithFields(fields)
	if replacementID == "" {
		logger.Warn("Proxy rotation found no healthy replacement")
	} else {
		logger.Info("Rotated to replacement proxy")
	}
}

// LogCollection logs the outcome of one collection unit of work
func LogCollection(platform, influencerID, collectionType string, items int, err error) {
	fields := map[string]interface{}{
		"platform":   platform,
		"influencer": influencerID,
		"type":       collectionType,
		"items":      items,
	}

	logger := GetLogger().WithFields(fields)
	if err != nil {
		logger.WithError(err).Error("Collection failed")
	} else {
		logger.Info("Collection completed")
	}
}

// LogTaskTransition logs a collection task lifecycle transition
func LogTaskTransition(taskID, from, to string) {
	GetLogger().WithFields(map[string]interface{}{
		"task_id": taskID,
		"from":    from,
		"to":      to,
	}).Debug("Task state transition")
}

// LogComponentStart logs when a component starts
func LogComponentStart(component string, config map[string]interface{}) {
	logger := GetLogger().WithField("component", component)
	if len(config) > 0 {
		logger = logger.WithFields(config)
	}
	logger.Info("Component started")
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

// nopLogger is a logger that does nothing (useful for testing)
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
