// Package metrics declares the Prometheus collectors exported on /metrics.
//
// Collectors register with the default registry at init so any package can
// record observations without wiring.
package metrics
