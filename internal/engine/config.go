package engine

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
)

// Iteration bounds. Below the floor percentile estimates are too noisy
// to report; above the ceiling runs stop paying for themselves.
const (
	MinIterations = 1_000
	MaxIterations = 200_000
)

// DefaultPercentiles are the confidence levels reported when the config
// requests none: P50/P80/P95.
var DefaultPercentiles = []float64{0.50, 0.80, 0.95}

// Config controls one simulation run.
type Config struct {
	// Iterations is the Monte Carlo sample count, required, in
	// [MinIterations, MaxIterations].
	Iterations int `json:"iterations" yaml:"iterations"`

	// Seed drives all randomness. When nil a seed is generated and
	// returned on the result, so every run is replayable.
	Seed *uint64 `json:"seed,omitempty" yaml:"seed,omitempty"`

	// Percentiles are the requested confidence levels in (0,1).
	// Defaults to DefaultPercentiles when empty.
	Percentiles []float64 `json:"percentiles,omitempty" yaml:"percentiles,omitempty"`

	// KeepTotals retains the full per-iteration total-cost array on the
	// result. Off by default: the array is iterations-sized and only
	// needed for post-hoc analysis beyond the reported statistics.
	KeepTotals bool `json:"keep_totals,omitempty" yaml:"keep_totals,omitempty"`
}

// effectivePercentiles returns the percentiles to report.
func (c Config) effectivePercentiles() []float64 {
	if len(c.Percentiles) == 0 {
		return DefaultPercentiles
	}
	return c.Percentiles
}

// validate checks iteration bounds and percentile ranges.
func (c Config) validate() error {
	if c.Iterations < MinIterations || c.Iterations > MaxIterations {
		return &ValidationError{
			Code:    ErrCodeIterationsOutOfRange,
			Field:   "iterations",
			Message: fmt.Sprintf("iteration count %d outside [%d, %d]", c.Iterations, MinIterations, MaxIterations),
		}
	}
	for _, p := range c.effectivePercentiles() {
		if !(p > 0 && p < 1) {
			return &ValidationError{
				Code:    ErrCodePercentileOutOfRange,
				Field:   "percentiles",
				Message: fmt.Sprintf("percentile %v outside (0, 1)", p),
			}
		}
	}
	return nil
}

// resolveSeed returns the configured seed, or generates one from the
// OS entropy source. The generated seed is returned on the result so
// the run stays replayable either way.
func (c Config) resolveSeed() (uint64, error) {
	if c.Seed != nil {
		return *c.Seed, nil
	}
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("generate seed: %w", err)
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}
