// Package notifications delivers task events to pluggable sinks.
//
// ntfy receives human-readable push messages; Redis receives JSON envelopes
// on a pub/sub channel for other programs to consume. Both are optional and
// the service degrades to a no-op when neither is configured. Listener
// adapts a Service to the scheduler's finished-task hook.
package notifications
