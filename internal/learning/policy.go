package learning

import (
	"fmt"
	"math"
)

// Policy carries the tunable learning constants. The defaults mirror the
// historical heuristics but nothing in the update algorithm depends on
// these exact values.
type Policy struct {
	// BaseRate is the untapered learning rate applied to the first
	// observation of a parameter.
	BaseRate float64
	// GoodThreshold marks aggregate scores that reinforce the values used.
	GoodThreshold float64
	// PoorThreshold marks aggregate scores that contract the successful
	// range.
	PoorThreshold float64
	// MetricWeights optionally weights the aggregate score per metric.
	// Nil means the plain mean of all supplied scores. Metrics without a
	// configured weight count with weight 1.
	MetricWeights map[string]float64
}

// DefaultPolicy returns the standard learning constants.
func DefaultPolicy() Policy {
	return Policy{
		BaseRate:      0.1,
		GoodThreshold: 0.7,
		PoorThreshold: 0.3,
	}
}

// StoryMetricWeights returns the historical weighting of the four story
// feedback metrics for callers that want the weighted aggregate.
func StoryMetricWeights() map[string]float64 {
	return map[string]float64{
		"engagement": 0.3,
		"coherence":  0.3,
		"quality":    0.2,
		"timing":     0.2,
	}
}

// Validate rejects unusable learning constants.
func (p Policy) Validate() error {
	if p.BaseRate <= 0 || p.BaseRate > 1 || !isFinite(p.BaseRate) {
		return fmt.Errorf("base rate must be in (0, 1], got %v", p.BaseRate)
	}
	if p.PoorThreshold < 0 || p.GoodThreshold > 1 || p.PoorThreshold >= p.GoodThreshold {
		return fmt.Errorf("thresholds must satisfy 0 <= poor < good <= 1, got poor=%v good=%v", p.PoorThreshold, p.GoodThreshold)
	}
	for name, w := range p.MetricWeights {
		if w < 0 || !isFinite(w) {
			return fmt.Errorf("metric weight %s must be a non-negative finite number, got %v", name, w)
		}
	}
	return nil
}

// Score aggregates a feedback score set into a single weight in [0, 1].
func (p Policy) Score(scores map[string]float64) (float64, error) {
	if len(scores) == 0 {
		return 0, ErrEmptyFeedback
	}
	sum := 0.0
	weightSum := 0.0
	for name, score := range scores {
		if score < 0 || score > 1 || !isFinite(score) {
			return 0, fmt.Errorf("score %s=%v outside [0, 1]", name, score)
		}
		weight := 1.0
		if p.MetricWeights != nil {
			if w, ok := p.MetricWeights[name]; ok {
				weight = w
			}
		}
		sum += score * weight
		weightSum += weight
	}
	if weightSum == 0 {
		return 0, fmt.Errorf("metric weights sum to zero")
	}
	return sum / weightSum, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
