// Package daemon coordinates the long-running collector process.
//
// It owns the scheduler workers, the REST listener, and a flock-based lock
// that prevents two daemons from sharing one data directory. Handlers
// translate REST requests into tasks and submit them through the
// dispatcher; reads go straight to the document store.
//
// Keep orchestration here. Task semantics live in the collector packages;
// process wiring (config, logging, clients) lives in daemonrun.
package daemon
