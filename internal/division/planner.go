package division

import (
	"errors"
	"fmt"
	"math"

	"embryonic/internal/model"
)

// ErrInvalidDuration rejects non-positive or non-finite durations before
// any division is attempted.
var ErrInvalidDuration = errors.New("invalid duration")

const secondsPerCell = 30.0

// Descriptor is one planned cell slot: which arc it belongs to, its index
// within that arc, and its absolute timing.
type Descriptor struct {
	Arc         model.Arc
	Index       int
	StartOffset float64
	Duration    float64
}

// Weights overrides the even split of the total duration across arcs.
// Values are relative; they are normalized by their sum.
type Weights map[model.Arc]float64

// EqualWeights returns the default even arc split.
func EqualWeights() Weights {
	return Weights{
		model.ArcSetup:      1,
		model.ArcConflict:   1,
		model.ArcResolution: 1,
	}
}

// CellCount maps a duration to the total cell count. The count is always
// divisible by three so the arcs stay balanced.
func CellCount(duration float64) int {
	switch {
	case duration <= 30:
		return 3
	case duration <= 120:
		return 6
	case duration <= 300:
		return 9
	default:
		n := int(math.Ceil(duration / secondsPerCell))
		if rem := n % 3; rem != 0 {
			n += 3 - rem
		}
		if n < 9 {
			n = 9
		}
		return n
	}
}

// Plan divides duration into contiguous, non-overlapping cell descriptors
// ordered setup -> conflict -> resolution. Descriptor durations sum to the
// requested duration within floating point tolerance.
func Plan(duration float64, weights Weights) ([]Descriptor, error) {
	if duration <= 0 || math.IsNaN(duration) || math.IsInf(duration, 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDuration, duration)
	}
	normalized, err := normalizeWeights(weights)
	if err != nil {
		return nil, err
	}

	total := CellCount(duration)
	perArc := total / 3

	descriptors := make([]Descriptor, 0, total)
	offset := 0.0
	for _, arc := range model.Arcs() {
		arcDuration := duration * normalized[arc]
		cellDuration := arcDuration / float64(perArc)
		for i := 0; i < perArc; i++ {
			descriptors = append(descriptors, Descriptor{
				Arc:         arc,
				Index:       i,
				StartOffset: offset,
				Duration:    cellDuration,
			})
			offset += cellDuration
		}
	}
	return descriptors, nil
}

func normalizeWeights(weights Weights) (Weights, error) {
	if weights == nil {
		weights = EqualWeights()
	}
	sum := 0.0
	for _, arc := range model.Arcs() {
		w, ok := weights[arc]
		if !ok {
			return nil, fmt.Errorf("arc weight missing: %s", arc)
		}
		if w <= 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, fmt.Errorf("arc weight must be a positive finite number: %s=%v", arc, w)
		}
		sum += w
	}
	if len(weights) != len(model.Arcs()) {
		return nil, fmt.Errorf("unexpected arc weights: got=%d want=%d", len(weights), len(model.Arcs()))
	}
	out := make(Weights, len(weights))
	for arc, w := range weights {
		out[arc] = w / sum
	}
	return out, nil
}
