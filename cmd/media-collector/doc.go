// Package main hosts the media-collector CLI entrypoint and command graph.
//
// The Cobra command tree runs the daemon in the foreground, scaffolds and
// validates configuration, inspects task records directly in the SQLite
// store, and submits work to a running daemon over its REST API. Collector
// behavior lives in internal packages; commands here only resolve
// configuration and render results.
package main
