// Package flow assembles conversation nodes into per-channel flows and
// classifies each flow when it closes.
package flow

import "time"

type Config struct {
	// ResponseTimeout is both the matching window and the idle time after
	// which a flow closes.
	ResponseTimeout    time.Duration
	MaxFlowDuration    time.Duration
	MinFlowNodes       int
	InfluenceThreshold float64
	CompletedCap       int
	RecentNodeCap      int
}

func DefaultConfig() Config {
	return Config{
		ResponseTimeout:    15 * time.Minute,
		MaxFlowDuration:    120 * time.Minute,
		MinFlowNodes:       2,
		InfluenceThreshold: 0.3,
		CompletedCap:       20,
		RecentNodeCap:      200,
	}
}
