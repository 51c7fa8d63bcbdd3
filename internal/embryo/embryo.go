package embryo

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	"embryonic/internal/division"
	"embryonic/internal/model"
)

// Canonical DNA defaults. The arc transforms carry the specialization
// constants applied on top of the shared parameter defaults.
const (
	DefaultIntensity   = 0.5
	DefaultTemperature = 0.5
	DefaultPacing      = 0.5
)

// Config describes a generation-zero embryo. Zero-value Parameters and
// Transforms fall back to the canonical defaults.
type Config struct {
	Name         string
	Parameters   model.ParameterSet
	Transforms   map[model.Arc]model.ArcTransform
	CreatedAtUTC string
}

// DefaultParameters returns the canonical DNA parameter set.
func DefaultParameters() model.ParameterSet {
	values := map[string]float64{
		"intensity":   DefaultIntensity,
		"temperature": DefaultTemperature,
		"pacing":      DefaultPacing,
	}
	ranges := make(map[string]model.Range, len(values))
	successful := make(map[string]model.Interval, len(values))
	observations := make(map[string]int, len(values))
	for name, v := range values {
		ranges[name] = model.Range{Min: 0, Max: 1}
		successful[name] = model.Interval{
			Low:  math.Max(0, v-0.2),
			High: math.Min(1, v+0.2),
		}
		observations[name] = 0
	}
	return model.ParameterSet{
		Values:       values,
		Ranges:       ranges,
		Successful:   successful,
		Observations: observations,
	}
}

// DefaultTransforms returns the canonical per-arc specialization rules.
func DefaultTransforms() map[model.Arc]model.ArcTransform {
	return map[model.Arc]model.ArcTransform{
		model.ArcSetup: {
			"intensity":   {Kind: model.AdjustSet, Value: 0.3},
			"temperature": {Kind: model.AdjustSet, Value: 0.7},
		},
		model.ArcConflict: {
			"intensity":   {Kind: model.AdjustSet, Value: 0.8},
			"temperature": {Kind: model.AdjustSet, Value: 0.5},
		},
		model.ArcResolution: {
			"intensity":   {Kind: model.AdjustSet, Value: 0.6},
			"temperature": {Kind: model.AdjustSet, Value: 0.4},
		},
	}
}

// New builds and validates a generation-zero embryo.
func New(cfg Config) (model.Embryo, error) {
	if cfg.Name == "" {
		return model.Embryo{}, fmt.Errorf("embryo name is required")
	}
	params := cfg.Parameters
	if len(params.Values) == 0 {
		params = DefaultParameters()
	}
	transforms := cfg.Transforms
	if len(transforms) == 0 {
		transforms = DefaultTransforms()
	}
	if err := ValidateParameters(params); err != nil {
		return model.Embryo{}, fmt.Errorf("embryo %s: %w", cfg.Name, err)
	}
	if err := ValidateTransforms(transforms, params); err != nil {
		return model.Embryo{}, fmt.Errorf("embryo %s: %w", cfg.Name, err)
	}
	e := model.Embryo{
		Name:         cfg.Name,
		Generation:   0,
		Parameters:   params,
		Transforms:   transforms,
		CreatedAtUTC: cfg.CreatedAtUTC,
	}
	return e.Clone(), nil
}

// NextGeneration produces the child embryo at generation+1 with the
// updated parameter set. The parent is never mutated.
func NextGeneration(parent model.Embryo, params model.ParameterSet, createdAtUTC string) (model.Embryo, error) {
	if err := ValidateParameters(params); err != nil {
		return model.Embryo{}, fmt.Errorf("embryo %s generation %d: %w", parent.Name, parent.Generation+1, err)
	}
	child := parent.Clone()
	child.Generation = parent.Generation + 1
	child.Parameters = params.Clone()
	child.CreatedAtUTC = createdAtUTC
	return child, nil
}

// ValidateParameters enforces the parameter set invariant.
func ValidateParameters(p model.ParameterSet) error {
	for name, value := range p.Values {
		r, ok := p.Ranges[name]
		if !ok {
			return fmt.Errorf("parameter %s has no range", name)
		}
		if r.Min > r.Max || !isFinite(r.Min) || !isFinite(r.Max) {
			return fmt.Errorf("parameter %s has invalid range [%v, %v]", name, r.Min, r.Max)
		}
		if !isFinite(value) || value < r.Min || value > r.Max {
			return fmt.Errorf("parameter %s value %v outside range [%v, %v]", name, value, r.Min, r.Max)
		}
		s, ok := p.Successful[name]
		if !ok {
			return fmt.Errorf("parameter %s has no successful range", name)
		}
		if s.Low > s.High || s.Low < r.Min || s.High > r.Max {
			return fmt.Errorf("parameter %s successful range [%v, %v] outside [%v, %v]", name, s.Low, s.High, r.Min, r.Max)
		}
		if p.Observations[name] < 0 {
			return fmt.Errorf("parameter %s has negative observation count", name)
		}
	}
	return nil
}

// ValidateTransforms checks the arc transform set at construction
// time so division never needs to look adjustments up dynamically.
func ValidateTransforms(transforms map[model.Arc]model.ArcTransform, params model.ParameterSet) error {
	if len(transforms) != len(model.Arcs()) {
		return fmt.Errorf("transforms must cover exactly %d arcs, got %d", len(model.Arcs()), len(transforms))
	}
	for _, arc := range model.Arcs() {
		transform, ok := transforms[arc]
		if !ok {
			return fmt.Errorf("missing transform for arc %s", arc)
		}
		for name, adj := range transform {
			if _, ok := params.Values[name]; !ok {
				return fmt.Errorf("arc %s adjusts unknown parameter %s", arc, name)
			}
			switch adj.Kind {
			case model.AdjustSet, model.AdjustScale, model.AdjustOffset:
			default:
				return fmt.Errorf("arc %s parameter %s has unknown adjustment kind %q", arc, name, adj.Kind)
			}
			if !isFinite(adj.Value) {
				return fmt.Errorf("arc %s parameter %s has non-finite adjustment %v", arc, name, adj.Value)
			}
		}
	}
	return nil
}

// Divide plans cell descriptors for the duration and stamps each with the
// embryo's arc-transformed parameter values. Every stamped value is
// clamped into the parameter's hard range.
func Divide(e model.Embryo, duration float64, weights division.Weights) ([]model.Cell, error) {
	descriptors, err := division.Plan(duration, weights)
	if err != nil {
		return nil, err
	}

	cells := make([]model.Cell, 0, len(descriptors))
	for _, d := range descriptors {
		cells = append(cells, model.Cell{
			ID:          newCellID(),
			Arc:         d.Arc,
			Index:       d.Index,
			StartOffset: d.StartOffset,
			Duration:    d.Duration,
			Parameters:  stampParameters(e, d.Arc),
		})
	}
	return cells, nil
}

func stampParameters(e model.Embryo, arc model.Arc) map[string]float64 {
	transform := e.Transforms[arc]
	out := make(map[string]float64, len(e.Parameters.Values))
	for name, base := range e.Parameters.Values {
		value := base
		if adj, ok := transform[name]; ok {
			switch adj.Kind {
			case model.AdjustSet:
				value = adj.Value
			case model.AdjustScale:
				value = base * adj.Value
			case model.AdjustOffset:
				value = base + adj.Value
			}
		}
		out[name] = clamp(value, e.Parameters.Ranges[name])
	}
	return out
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

func newCellID() string {
	id := uuid.New()
	return fmt.Sprintf("cell_%x", id[:4])
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
