// Package config loads, normalizes, and validates media-collector configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads an optional .env file, and honours
// environment fallbacks such as MAL_CLIENT_ID and MEDIA_COLLECTOR_API_TOKEN.
// The Config type centralizes every knob the daemon and CLI need: source API
// credentials and rate limits, the retry policy, scheduler sizing, and the
// notification and tracing sinks.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
