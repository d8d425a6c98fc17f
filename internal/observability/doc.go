// Package observability builds the process-wide zap logger and the
// Prometheus metrics registry.
package observability
