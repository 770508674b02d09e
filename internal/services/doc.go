// Package services defines shared utilities consumed by task implementations,
// source clients, and the scheduler.
//
// Key responsibilities:
//   - Context helpers that stamp task IDs, task names, queue names, and
//     correlation identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper so failures from HTTP
//     clients, stores, and tasks classify consistently.
//
// Use these helpers when wiring new task logic so operational behaviour stays
// uniform across queues.
package services
