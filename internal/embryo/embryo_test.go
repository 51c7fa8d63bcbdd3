package embryo

import (
	"errors"
	"math"
	"testing"

	"embryonic/internal/division"
	"embryonic/internal/model"
)

func TestNewRequiresName(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected name error")
	}
}

func TestNewDefaults(t *testing.T) {
	e, err := New(Config{Name: "noir"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if e.Generation != 0 {
		t.Fatalf("generation=%d want=0", e.Generation)
	}
	if e.Parameters.Values["intensity"] != DefaultIntensity {
		t.Fatalf("intensity default=%v", e.Parameters.Values["intensity"])
	}
	if got := e.Parameters.Successful["intensity"]; math.Abs(got.Low-0.3) > 1e-9 || math.Abs(got.High-0.7) > 1e-9 {
		t.Fatalf("unexpected successful range: %+v", got)
	}
	if len(e.Transforms) != 3 {
		t.Fatalf("expected 3 arc transforms, got %d", len(e.Transforms))
	}
}

func TestNewRejectsInvalidTransforms(t *testing.T) {
	transforms := DefaultTransforms()
	transforms[model.ArcSetup]["mystery"] = model.Adjustment{Kind: model.AdjustSet, Value: 0.1}
	if _, err := New(Config{Name: "bad", Transforms: transforms}); err == nil {
		t.Fatal("expected unknown parameter error")
	}

	transforms = DefaultTransforms()
	transforms[model.ArcSetup]["intensity"] = model.Adjustment{Kind: "wobble", Value: 0.1}
	if _, err := New(Config{Name: "bad", Transforms: transforms}); err == nil {
		t.Fatal("expected unknown adjustment kind error")
	}

	transforms = DefaultTransforms()
	delete(transforms, model.ArcResolution)
	if _, err := New(Config{Name: "bad", Transforms: transforms}); err == nil {
		t.Fatal("expected missing arc error")
	}
}

func TestNewRejectsInvalidParameters(t *testing.T) {
	params := DefaultParameters()
	params.Values["intensity"] = 1.5
	if _, err := New(Config{Name: "bad", Parameters: params}); err == nil {
		t.Fatal("expected out-of-range value error")
	}

	params = DefaultParameters()
	params.Successful["intensity"] = model.Interval{Low: -1, High: 2}
	if _, err := New(Config{Name: "bad", Parameters: params}); err == nil {
		t.Fatal("expected successful range error")
	}
}

func TestDivideThirtySecondScenario(t *testing.T) {
	e, err := New(Config{Name: "noir"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	cells, err := Divide(e, 30, nil)
	if err != nil {
		t.Fatalf("divide: %v", err)
	}
	if len(cells) != 3 {
		t.Fatalf("expected 3 cells, got %d", len(cells))
	}

	want := []struct {
		arc         model.Arc
		intensity   float64
		temperature float64
	}{
		{model.ArcSetup, 0.3, 0.7},
		{model.ArcConflict, 0.8, 0.5},
		{model.ArcResolution, 0.6, 0.4},
	}
	for i, w := range want {
		c := cells[i]
		if c.Arc != w.arc {
			t.Fatalf("cell %d arc=%s want=%s", i, c.Arc, w.arc)
		}
		if math.Abs(c.Duration-10) > 1e-9 {
			t.Fatalf("cell %d duration=%v want=10", i, c.Duration)
		}
		if c.Parameters["intensity"] != w.intensity {
			t.Fatalf("cell %d intensity=%v want=%v", i, c.Parameters["intensity"], w.intensity)
		}
		if c.Parameters["temperature"] != w.temperature {
			t.Fatalf("cell %d temperature=%v want=%v", i, c.Parameters["temperature"], w.temperature)
		}
		// pacing is not named in any transform and passes through.
		if c.Parameters["pacing"] != DefaultPacing {
			t.Fatalf("cell %d pacing=%v want=%v", i, c.Parameters["pacing"], DefaultPacing)
		}
		if c.ID == "" {
			t.Fatalf("cell %d has empty id", i)
		}
	}
}

func TestDivideSixtySeconds(t *testing.T) {
	e, err := New(Config{Name: "noir"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	cells, err := Divide(e, 60, nil)
	if err != nil {
		t.Fatalf("divide: %v", err)
	}
	if len(cells) != 6 {
		t.Fatalf("expected 6 cells, got %d", len(cells))
	}
	perArc := map[model.Arc]int{}
	for _, c := range cells {
		perArc[c.Arc]++
		if math.Abs(c.Duration-10) > 1e-9 {
			t.Fatalf("cell duration=%v want=10", c.Duration)
		}
	}
	for _, arc := range model.Arcs() {
		if perArc[arc] != 2 {
			t.Fatalf("arc %s has %d cells, want 2", arc, perArc[arc])
		}
	}
}

func TestDivideClampsTransformedValues(t *testing.T) {
	transforms := DefaultTransforms()
	transforms[model.ArcConflict]["intensity"] = model.Adjustment{Kind: model.AdjustScale, Value: 10}
	transforms[model.ArcSetup]["intensity"] = model.Adjustment{Kind: model.AdjustOffset, Value: -5}
	e, err := New(Config{Name: "hot", Transforms: transforms})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	cells, err := Divide(e, 30, nil)
	if err != nil {
		t.Fatalf("divide: %v", err)
	}
	for _, c := range cells {
		for name, value := range c.Parameters {
			r := e.Parameters.Ranges[name]
			if value < r.Min || value > r.Max {
				t.Fatalf("cell %s parameter %s=%v outside [%v, %v]", c.ID, name, value, r.Min, r.Max)
			}
		}
	}
	if cells[0].Parameters["intensity"] != 0 {
		t.Fatalf("setup intensity=%v want clamped to 0", cells[0].Parameters["intensity"])
	}
	if cells[1].Parameters["intensity"] != 1 {
		t.Fatalf("conflict intensity=%v want clamped to 1", cells[1].Parameters["intensity"])
	}
}

func TestDividePropagatesPlannerErrors(t *testing.T) {
	e, err := New(Config{Name: "noir"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := Divide(e, -3, nil); !errors.Is(err, division.ErrInvalidDuration) {
		t.Fatalf("expected ErrInvalidDuration, got %v", err)
	}
}

func TestNextGeneration(t *testing.T) {
	parent, err := New(Config{Name: "noir"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	params := parent.Parameters.Clone()
	params.Values["intensity"] = 0.6
	child, err := NextGeneration(parent, params, "2026-01-01T00:00:00Z")
	if err != nil {
		t.Fatalf("next generation: %v", err)
	}
	if child.Generation != 1 || child.Name != parent.Name {
		t.Fatalf("unexpected child identity: %s gen %d", child.Name, child.Generation)
	}
	if parent.Parameters.Values["intensity"] != DefaultIntensity {
		t.Fatalf("parent mutated: intensity=%v", parent.Parameters.Values["intensity"])
	}
	if child.Parameters.Values["intensity"] != 0.6 {
		t.Fatalf("child intensity=%v want=0.6", child.Parameters.Values["intensity"])
	}
}
