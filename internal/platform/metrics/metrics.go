// Package metrics bundles the per-domain metric sets so main wires one
// value through the stack.
package metrics

import (
	crosslayermetrics "creditbridge/internal/crosslayer/metrics"
	fundingmetrics "creditbridge/internal/funding/metrics"
	statemetrics "creditbridge/internal/state/metrics"
)

// Metrics holds all Prometheus metrics for the bridge daemon.
type Metrics struct {
	Funding    *fundingmetrics.Metrics
	CrossLayer *crosslayermetrics.Metrics
	State      *statemetrics.Metrics
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		Funding:    fundingmetrics.New(),
		CrossLayer: crosslayermetrics.New(),
		State:      statemetrics.New(),
	}
}
