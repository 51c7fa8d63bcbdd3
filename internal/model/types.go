package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// Arc is one of the three fixed narrative phases, always ordered
// setup -> conflict -> resolution.
type Arc string

const (
	ArcSetup      Arc = "setup"
	ArcConflict   Arc = "conflict"
	ArcResolution Arc = "resolution"
)

// Arcs returns the canonical arc ordering.
func Arcs() []Arc {
	return []Arc{ArcSetup, ArcConflict, ArcResolution}
}

// Range is the hard bound for a parameter, fixed at creation.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Interval is the adaptive successful sub-range of a parameter, narrowed
// or widened by feedback.
type Interval struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// ParameterSet is the learnable numeric state attached to an embryo.
// Invariant: Ranges[p].Min <= Successful[p].Low <= Successful[p].High <=
// Ranges[p].Max and Values[p] lies within Ranges[p] for every parameter p.
type ParameterSet struct {
	VersionedRecord
	Values       map[string]float64  `json:"values"`
	Ranges       map[string]Range    `json:"ranges"`
	Successful   map[string]Interval `json:"successful_ranges"`
	Observations map[string]int      `json:"observation_counts"`
}

// Clone returns a deep copy so published sets stay immutable.
func (p ParameterSet) Clone() ParameterSet {
	out := p
	out.Values = cloneFloatMap(p.Values)
	out.Ranges = make(map[string]Range, len(p.Ranges))
	for k, v := range p.Ranges {
		out.Ranges[k] = v
	}
	out.Successful = make(map[string]Interval, len(p.Successful))
	for k, v := range p.Successful {
		out.Successful[k] = v
	}
	out.Observations = make(map[string]int, len(p.Observations))
	for k, v := range p.Observations {
		out.Observations[k] = v
	}
	return out
}

// AdjustKind selects how an arc transform entry is applied to a default.
type AdjustKind string

const (
	AdjustSet    AdjustKind = "set"
	AdjustScale  AdjustKind = "scale"
	AdjustOffset AdjustKind = "offset"
)

// Adjustment is one per-parameter entry of an arc transform.
type Adjustment struct {
	Kind  AdjustKind `json:"kind"`
	Value float64    `json:"value"`
}

// ArcTransform maps parameter names to the adjustment applied for one arc.
// Parameters not named pass through unchanged from the defaults.
type ArcTransform map[string]Adjustment

// Embryo is a named, generation-versioned bundle of default parameters and
// arc transform rules. Embryos are immutable once published; an evolution
// step produces a child at generation+1 with the same name.
type Embryo struct {
	VersionedRecord
	Name         string               `json:"name"`
	Generation   int                  `json:"generation"`
	Parameters   ParameterSet         `json:"parameters"`
	Transforms   map[Arc]ArcTransform `json:"transforms"`
	CreatedAtUTC string               `json:"created_at_utc"`
}

// Clone returns a deep copy so lineage entries stay immutable.
func (e Embryo) Clone() Embryo {
	out := e
	out.Parameters = e.Parameters.Clone()
	out.Transforms = make(map[Arc]ArcTransform, len(e.Transforms))
	for arc, transform := range e.Transforms {
		copied := make(ArcTransform, len(transform))
		for name, adj := range transform {
			copied[name] = adj
		}
		out.Transforms[arc] = copied
	}
	return out
}

// Cell is one specialized narrative unit produced by dividing an embryo's
// duration budget. Cells are immutable after division.
type Cell struct {
	ID          string              `json:"id"`
	Arc         Arc                 `json:"arc"`
	Index       int                 `json:"index"`
	StartOffset float64             `json:"start_offset"`
	Duration    float64             `json:"duration"`
	Parameters  map[string]float64  `json:"parameters"`
	AssetRefs   map[string][]string `json:"asset_refs,omitempty"`
}

// Clone returns a deep copy of the cell.
func (c Cell) Clone() Cell {
	out := c
	out.Parameters = cloneFloatMap(c.Parameters)
	if c.AssetRefs != nil {
		out.AssetRefs = make(map[string][]string, len(c.AssetRefs))
		for k, v := range c.AssetRefs {
			out.AssetRefs[k] = append([]string(nil), v...)
		}
	}
	return out
}

// ArcBreakdown summarizes the cells of one arc within a story.
type ArcBreakdown struct {
	CellCount     int     `json:"cell_count"`
	TotalDuration float64 `json:"total_duration"`
	MeanIntensity float64 `json:"mean_intensity"`
}

// StoryRecord holds one generated story: the cell list plus the metadata
// needed to target feedback at the generation that produced it.
type StoryRecord struct {
	VersionedRecord
	ID             string               `json:"id"`
	EmbryoName     string               `json:"embryo_name"`
	Generation     int                  `json:"generation"`
	Subject        string               `json:"subject,omitempty"`
	TargetDuration float64              `json:"target_duration"`
	Cells          []Cell               `json:"cells"`
	Breakdown      map[Arc]ArcBreakdown `json:"arc_breakdown"`
	CreatedAtUTC   string               `json:"created_at_utc"`
}

// Clone returns a deep copy of the story record.
func (s StoryRecord) Clone() StoryRecord {
	out := s
	out.Cells = make([]Cell, 0, len(s.Cells))
	for _, cell := range s.Cells {
		out.Cells = append(out.Cells, cell.Clone())
	}
	out.Breakdown = make(map[Arc]ArcBreakdown, len(s.Breakdown))
	for arc, breakdown := range s.Breakdown {
		out.Breakdown[arc] = breakdown
	}
	return out
}

// FeedbackRecord is a scored evaluation of a generated story. Each record
// is consumed exactly once by the evolution step that advances the
// generation it targets.
type FeedbackRecord struct {
	VersionedRecord
	ID           string             `json:"id"`
	StoryID      string             `json:"story_id"`
	EmbryoName   string             `json:"embryo_name"`
	Generation   int                `json:"generation"`
	Scores       map[string]float64 `json:"scores"`
	CreatedAtUTC string             `json:"created_at_utc"`
}

// Clone returns a deep copy of the feedback record.
func (f FeedbackRecord) Clone() FeedbackRecord {
	out := f
	out.Scores = cloneFloatMap(f.Scores)
	return out
}

func cloneFloatMap(in map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
