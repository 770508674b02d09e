// Package api defines the wire-format types shared by the daemon's REST
// server and the CLI client, plus converters from internal records.
//
// # Key Types
//
// Task: transport representation of a persisted task record.
//
// TaskQueuedResponse / ErrorResponse: the envelopes every enqueue endpoint
// answers with.
//
// HealthResponse / StatsResponse: liveness and aggregate counters.
//
// # Converters
//
// FromRecord: scheduler.Record -> Task, decoding the failure message out of
// the status and passing the payload through as json.RawMessage.
//
// MergeTaskStats: zero-fills every lifecycle state so clients can rely on
// the keys being present.
//
// # Client
//
// Client posts enqueue requests to a running daemon. It reuses the retrying
// httpclient so bearer tokens, timeouts, and error classification behave the
// same as outbound source calls.
//
// JSON field names are snake_case. Timestamps use RFC3339 with milliseconds.
package api
