// Package tracing wires OpenTelemetry span export for task executions and
// outbound HTTP attempts.
package tracing
