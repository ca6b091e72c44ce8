// Package observability provides the structured logger, Prometheus metrics,
// OpenTelemetry initialization and dependency health checks shared by every
// warden component.
//
// Logging uses stdlib slog with a JSON handler behind a small chainable
// wrapper:
//
//	logger := observability.NewLogger(observability.InfoLevel, nil)
//	logger.WithField("workspace_id", id).Info("snapshot refreshed")
//
// Metrics are created once against a registry and passed by construction to
// the components that record them:
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
package observability
