package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"embryonic/internal/division"
	"embryonic/internal/embryo"
	"embryonic/internal/learning"
	"embryonic/internal/model"
	"embryonic/internal/storage"
)

var (
	ErrEmbryoExists   = errors.New("embryo already exists")
	ErrEmbryoNotFound = errors.New("embryo not found")

	// ErrStaleGeneration is returned when feedback targets a story produced
	// by a generation that is no longer the embryo's latest.
	ErrStaleGeneration = errors.New("feedback targets a stale generation")
)

// AssetSelector supplies asset refs for a freshly divided cell. A nil
// selector leaves cells without asset refs.
type AssetSelector interface {
	SelectForCell(arc model.Arc, params map[string]float64) map[string][]string
}

type Config struct {
	Store  storage.Store
	Assets AssetSelector
	Policy learning.Policy
	Now    func() time.Time
}

// Engine drives the generate/feedback loop. Each feedback application
// advances the embryo exactly one generation; lineage is append-only.
type Engine struct {
	mu     sync.Mutex
	store  storage.Store
	assets AssetSelector
	policy learning.Policy
	now    func() time.Time
}

func New(cfg Config) (*Engine, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	policy := cfg.Policy
	if policy.BaseRate == 0 {
		policy = learning.DefaultPolicy()
		policy.MetricWeights = learning.StoryMetricWeights()
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		store:  cfg.Store,
		assets: cfg.Assets,
		policy: policy,
		now:    now,
	}, nil
}

func (e *Engine) timestamp() string {
	return e.now().UTC().Format(time.RFC3339Nano)
}

// InitEmbryo creates generation zero for a named embryo. With force set
// it replaces any existing lineage head instead of failing.
func (e *Engine) InitEmbryo(ctx context.Context, name string, force bool) (model.Embryo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, exists, err := e.store.LatestEmbryo(ctx, name)
	if err != nil {
		return model.Embryo{}, err
	}
	if exists && !force {
		return model.Embryo{}, fmt.Errorf("%w: %s", ErrEmbryoExists, name)
	}

	emb, err := embryo.New(embryo.Config{Name: name, CreatedAtUTC: e.timestamp()})
	if err != nil {
		return model.Embryo{}, err
	}
	emb.VersionedRecord = storage.Stamp()
	if err := e.store.SaveEmbryo(ctx, emb); err != nil {
		return model.Embryo{}, err
	}
	return emb, nil
}

// Generate divides the latest generation of the named embryo into a
// story for the given duration. A nil weights map uses equal arc weights.
func (e *Engine) Generate(ctx context.Context, name, subject string, duration float64, weights division.Weights) (model.StoryRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	emb, err := e.latestEmbryo(ctx, name)
	if err != nil {
		return model.StoryRecord{}, err
	}

	cells, err := embryo.Divide(emb, duration, weights)
	if err != nil {
		return model.StoryRecord{}, err
	}
	if e.assets != nil {
		for i := range cells {
			cells[i].AssetRefs = e.assets.SelectForCell(cells[i].Arc, cells[i].Parameters)
		}
	}

	story := model.StoryRecord{
		VersionedRecord: storage.Stamp(),
		ID:              newStoryID(),
		EmbryoName:      emb.Name,
		Generation:      emb.Generation,
		Subject:         subject,
		TargetDuration:  duration,
		Cells:           cells,
		Breakdown:       breakdownByArc(cells),
		CreatedAtUTC:    e.timestamp(),
	}
	if err := e.store.SaveStory(ctx, story); err != nil {
		return model.StoryRecord{}, err
	}
	return story.Clone(), nil
}

// Feedback applies scores for a story to the embryo generation that
// produced it, advancing the lineage by one generation. Feedback for a
// story whose generation is no longer the latest is rejected with
// ErrStaleGeneration.
func (e *Engine) Feedback(ctx context.Context, storyID string, scores map[string]float64) (model.Embryo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(scores) == 0 {
		return model.Embryo{}, learning.ErrEmptyFeedback
	}

	story, found, err := e.store.GetStory(ctx, storyID)
	if err != nil {
		return model.Embryo{}, err
	}
	if !found {
		return model.Embryo{}, fmt.Errorf("story not found: %s", storyID)
	}
	emb, err := e.latestEmbryo(ctx, story.EmbryoName)
	if err != nil {
		return model.Embryo{}, err
	}
	if story.Generation != emb.Generation {
		return model.Embryo{}, fmt.Errorf("%w: story %s is from generation %d, latest is %d",
			ErrStaleGeneration, story.ID, story.Generation, emb.Generation)
	}

	fb := model.FeedbackRecord{
		VersionedRecord: storage.Stamp(),
		ID:              newFeedbackID(),
		StoryID:         story.ID,
		EmbryoName:      story.EmbryoName,
		Generation:      story.Generation,
		Scores:          scores,
		CreatedAtUTC:    e.timestamp(),
	}

	updated, err := learning.Update(emb.Parameters, fb, e.policy)
	if err != nil {
		return model.Embryo{}, err
	}
	child, err := embryo.NextGeneration(emb, updated, e.timestamp())
	if err != nil {
		return model.Embryo{}, err
	}
	child.VersionedRecord = storage.Stamp()

	if err := e.store.SaveFeedback(ctx, fb); err != nil {
		return model.Embryo{}, err
	}
	if err := e.store.SaveEmbryo(ctx, child); err != nil {
		return model.Embryo{}, err
	}
	return child, nil
}

// Current returns the latest generation of the named embryo.
func (e *Engine) Current(ctx context.Context, name string) (model.Embryo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.latestEmbryo(ctx, name)
}

// Lineage returns every stored generation of the named embryo in order.
func (e *Engine) Lineage(ctx context.Context, name string) ([]model.Embryo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	lineage, err := e.store.Lineage(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(lineage) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmbryoNotFound, name)
	}
	return lineage, nil
}

// Stories lists stored stories for the named embryo, newest first.
func (e *Engine) Stories(ctx context.Context, name string, limit int) ([]model.StoryRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.ListStories(ctx, name, limit)
}

// FeedbackHistory lists stored feedback for the named embryo, newest first.
func (e *Engine) FeedbackHistory(ctx context.Context, name string, limit int) ([]model.FeedbackRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.ListFeedback(ctx, name, limit)
}

// Names lists the embryo names the store knows about.
func (e *Engine) Names(ctx context.Context) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.ListEmbryoNames(ctx)
}

// Score aggregates a feedback score map under the engine's policy.
func (e *Engine) Score(scores map[string]float64) (float64, error) {
	return e.policy.Score(scores)
}

func (e *Engine) latestEmbryo(ctx context.Context, name string) (model.Embryo, error) {
	emb, found, err := e.store.LatestEmbryo(ctx, name)
	if err != nil {
		return model.Embryo{}, err
	}
	if !found {
		return model.Embryo{}, fmt.Errorf("%w: %s", ErrEmbryoNotFound, name)
	}
	return emb, nil
}

func breakdownByArc(cells []model.Cell) map[model.Arc]model.ArcBreakdown {
	out := make(map[model.Arc]model.ArcBreakdown, len(model.Arcs()))
	for _, arc := range model.Arcs() {
		var b model.ArcBreakdown
		var intensitySum float64
		for _, cell := range cells {
			if cell.Arc != arc {
				continue
			}
			b.CellCount++
			b.TotalDuration += cell.Duration
			intensitySum += cell.Parameters["intensity"]
		}
		if b.CellCount > 0 {
			b.MeanIntensity = intensitySum / float64(b.CellCount)
		}
		if math.IsNaN(b.MeanIntensity) {
			b.MeanIntensity = 0
		}
		out[arc] = b
	}
	return out
}

func newStoryID() string {
	return "story_" + uuid.NewString()[:8]
}

func newFeedbackID() string {
	return "fb_" + uuid.NewString()[:8]
}
