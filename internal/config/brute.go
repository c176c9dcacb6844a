package config

import (
	"github.com/CBICA/greedy/internal/brute"
	"github.com/CBICA/greedy/internal/rerr"
)

// Brute holds the validated flags for the `brute` exhaustive-search
// registration mode.
type Brute struct {
	Radius []int
}

func (c Brute) Validate(dims int) error {
	if len(c.Radius) != dims {
		return &rerr.ConfigError{What: "brute-force radius length must match image dimensionality"}
	}
	for _, r := range c.Radius {
		if r < 0 {
			return &rerr.ConfigError{What: "brute-force radius must be non-negative"}
		}
	}
	return nil
}

func (c Brute) ToOptions() brute.Options {
	return brute.Options{Radius: c.Radius}
}

// ValidateMetric rejects any metric other than NCC for brute-force
// search, per spec.md §7.
func ValidateMetric(m MetricSpec) error {
	if m.Kind != NCC {
		return &rerr.ConfigError{What: "brute-force search requires the NCC metric"}
	}
	return nil
}
