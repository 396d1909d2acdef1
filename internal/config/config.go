// Package config holds the tunable constants behind Engram's risk
// formula and indexing behavior, JSON-backed exactly like the donor's
// daemon config, so operators can adjust them without a rebuild while
// the zero-value defaults match spec.md's fixed constants exactly.
package config

import (
	"encoding/json"
	"os"
)

// Config holds all tunable Engram parameters.
type Config struct {
	// ChurnSaturation is the commit-count ceiling at which the churn
	// sub-score saturates to 1.0. spec.md §4.3 suggests 100.
	ChurnSaturation int `json:"churn_saturation"`

	// RecencyWindowSeconds is the width of the recency window; a
	// co-change at or beyond this many seconds before the repo's
	// newest commit scores 0 recency. spec.md §4.3 suggests 180 days.
	RecencyWindowSeconds int64 `json:"recency_window_seconds"`

	// CouplingGateThreshold is the coupling fraction below which the
	// coupling gate clamps risk to CouplingGateCap. spec.md §4.3 fixes
	// this at 0.50.
	CouplingGateThreshold float64 `json:"coupling_gate_threshold"`

	// CouplingGateCap is the maximum risk score a gated file may
	// receive. spec.md §4.3 fixes this at 0.79.
	CouplingGateCap float64 `json:"coupling_gate_cap"`

	// HardCap bounds the number of coupled files returned per
	// analyze call. spec.md §4.3 fixes this at 10.
	HardCap int `json:"hard_cap"`

	// TestIntentsPerFile bounds the number of titles extracted per
	// test file. spec.md §4.5 fixes this at 5.
	TestIntentsPerFile int `json:"test_intents_per_file"`

	// SoftDeadlineMs is the hot-path latency budget for analyze.
	// spec.md §4.6 fixes this at 200ms.
	SoftDeadlineMs int64 `json:"soft_deadline_ms"`

	// HardDeadlineMs is the cold-path latency budget for analyze.
	// spec.md §4.6 fixes this at 2000ms.
	HardDeadlineMs int64 `json:"hard_deadline_ms"`

	// AdaptiveIndexingThreshold is the virgin-database commit count
	// above which the indexer switches its initial cold walk to a
	// path-filtered traversal. spec.md §4.2's Open Question is
	// resolved in SPEC_FULL.md section D at 50,000.
	AdaptiveIndexingThreshold int `json:"adaptive_indexing_threshold"`
}

// Default returns a Config whose values match spec.md's fixed
// constants exactly.
func Default() *Config {
	return &Config{
		ChurnSaturation:           100,
		RecencyWindowSeconds:      180 * 24 * 60 * 60,
		CouplingGateThreshold:     0.50,
		CouplingGateCap:           0.79,
		HardCap:                   10,
		TestIntentsPerFile:        5,
		SoftDeadlineMs:            200,
		HardDeadlineMs:            2000,
		AdaptiveIndexingThreshold: 50_000,
	}
}

// Load reads configuration from a JSON file, falling back to defaults
// for any unset fields. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
