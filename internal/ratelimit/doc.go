// Package ratelimit provides the token-bucket limiter that gates outbound
// requests to each external API.
//
// A Limiter is shared by handle: every client and task holding the same
// pointer draws from one bucket. The Registry maps API names to limiters so
// the daemon wiring hands the same bucket to every client for an API.
package ratelimit
