package learning

import (
	"errors"
	"fmt"

	"embryonic/internal/model"
)

// ErrEmptyFeedback rejects feedback records with no scores before any
// parameter state is touched.
var ErrEmptyFeedback = errors.New("feedback has no scores")

// Update folds one feedback record into a parameter set and returns the
// next generation's set. The receiver set is never mutated; calling Update
// twice with identical inputs yields identical outputs.
//
// Per parameter, the learning rate tapers as base_rate/(1+observations).
// A good aggregate score pulls the nearer successful bound toward the
// value that was used and nudges the value toward the range center. A poor
// score contracts the successful range toward its midpoint and leaves the
// value alone. Scores between the thresholds only count as an observation.
func Update(ps model.ParameterSet, fb model.FeedbackRecord, policy Policy) (model.ParameterSet, error) {
	if err := policy.Validate(); err != nil {
		return model.ParameterSet{}, fmt.Errorf("learning policy: %w", err)
	}
	weight, err := policy.Score(fb.Scores)
	if err != nil {
		return model.ParameterSet{}, err
	}

	out := ps.Clone()
	for name, value := range out.Values {
		hard := out.Ranges[name]
		successful := out.Successful[name]
		count := out.Observations[name]
		rate := policy.BaseRate / float64(1+count)

		switch {
		case weight >= policy.GoodThreshold:
			successful = pullNearerBound(successful, value, rate)
			center := (successful.Low + successful.High) / 2
			value += rate * (center - value)
		case weight <= policy.PoorThreshold:
			mid := (successful.Low + successful.High) / 2
			successful.Low += rate * (mid - successful.Low)
			successful.High += rate * (mid - successful.High)
		}

		successful.Low = clamp(successful.Low, hard)
		successful.High = clamp(successful.High, hard)
		if successful.Low > successful.High {
			successful.Low, successful.High = successful.High, successful.Low
		}
		out.Values[name] = clamp(value, hard)
		out.Successful[name] = successful
		out.Observations[name] = count + 1
	}
	return out, nil
}

// pullNearerBound moves whichever successful bound is closer to the used
// value toward it by the rate fraction of the gap. Values outside the
// range widen it toward inclusion; values inside tighten it around the
// value.
func pullNearerBound(s model.Interval, value, rate float64) model.Interval {
	distLow := value - s.Low
	if distLow < 0 {
		distLow = -distLow
	}
	distHigh := s.High - value
	if distHigh < 0 {
		distHigh = -distHigh
	}
	if distLow <= distHigh {
		s.Low += rate * (value - s.Low)
	} else {
		s.High += rate * (value - s.High)
	}
	return s
}

func clamp(v float64, r model.Range) float64 {
	if v < r.Min {
		return r.Min
	}
	if v > r.Max {
		return r.Max
	}
	return v
}
