// Package embryonic is the public client surface for the story
// evolution engine. It hides store construction and engine wiring
// behind a small request/summary API.
package embryonic

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"gopkg.in/yaml.v3"

	"embryonic/internal/assets"
	"embryonic/internal/division"
	"embryonic/internal/engine"
	"embryonic/internal/learning"
	"embryonic/internal/model"
	"embryonic/internal/storage"
)

const defaultDBPath = "embryonic.db"

type Options struct {
	StoreKind  string
	DBPath     string
	AssetsPath string
	Seed       int64
}

type Client struct {
	store   storage.Store
	engine  *engine.Engine
	library *assets.Library
}

type GenerateRequest struct {
	Embryo     string
	Subject    string
	Duration   float64
	ArcWeights map[string]float64
}

type FeedbackRequest struct {
	StoryID string
	Scores  map[string]float64
}

type FeedbackSummary struct {
	StoryID    string  `json:"story_id"`
	Score      float64 `json:"score"`
	Generation int     `json:"generation"`
}

type StatusSummary struct {
	Name         string             `json:"name"`
	Generation   int                `json:"generation"`
	Parameters   map[string]float64 `json:"parameters"`
	Observations map[string]int     `json:"observations"`
	StoryCount   int                `json:"story_count"`
	CreatedAtUTC string             `json:"created_at_utc"`
}

type ExportRequest struct {
	Embryo string
	Format string // "json" or "yaml"
}

func New(ctx context.Context, opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		return nil, err
	}

	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	var library *assets.Library
	if opts.AssetsPath != "" {
		library = assets.NewLibrary(rng)
		if err := library.LoadFile(opts.AssetsPath); err != nil {
			return nil, err
		}
	} else {
		library = assets.SampleLibrary(rng)
	}

	policy := learning.DefaultPolicy()
	policy.MetricWeights = learning.StoryMetricWeights()
	eng, err := engine.New(engine.Config{
		Store:  store,
		Assets: library,
		Policy: policy,
	})
	if err != nil {
		return nil, err
	}
	return &Client{store: store, engine: eng, library: library}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

// Init creates generation zero for a named embryo.
func (c *Client) Init(ctx context.Context, name string, force bool) (model.Embryo, error) {
	return c.engine.InitEmbryo(ctx, name, force)
}

// Generate divides the embryo's latest generation into a story record.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (model.StoryRecord, error) {
	var weights division.Weights
	if len(req.ArcWeights) > 0 {
		weights = make(division.Weights, len(req.ArcWeights))
		for arc, w := range req.ArcWeights {
			weights[model.Arc(arc)] = w
		}
	}
	return c.engine.Generate(ctx, req.Embryo, req.Subject, req.Duration, weights)
}

// Feedback applies scores to the story's generation and advances the
// embryo's lineage.
func (c *Client) Feedback(ctx context.Context, req FeedbackRequest) (FeedbackSummary, error) {
	score, err := c.engine.Score(req.Scores)
	if err != nil {
		return FeedbackSummary{}, err
	}
	child, err := c.engine.Feedback(ctx, req.StoryID, req.Scores)
	if err != nil {
		return FeedbackSummary{}, err
	}
	return FeedbackSummary{
		StoryID:    req.StoryID,
		Score:      score,
		Generation: child.Generation,
	}, nil
}

// Status summarizes the latest generation of the named embryo.
func (c *Client) Status(ctx context.Context, name string) (StatusSummary, error) {
	emb, err := c.engine.Current(ctx, name)
	if err != nil {
		return StatusSummary{}, err
	}
	stories, err := c.engine.Stories(ctx, name, 0)
	if err != nil {
		return StatusSummary{}, err
	}
	return StatusSummary{
		Name:         emb.Name,
		Generation:   emb.Generation,
		Parameters:   emb.Parameters.Values,
		Observations: emb.Parameters.Observations,
		StoryCount:   len(stories),
		CreatedAtUTC: emb.CreatedAtUTC,
	}, nil
}

// Names lists known embryo names.
func (c *Client) Names(ctx context.Context) ([]string, error) {
	return c.engine.Names(ctx)
}

// Lineage returns every stored generation of the named embryo.
func (c *Client) Lineage(ctx context.Context, name string) ([]model.Embryo, error) {
	return c.engine.Lineage(ctx, name)
}

// Stories lists stored stories for the named embryo, newest first.
func (c *Client) Stories(ctx context.Context, name string, limit int) ([]model.StoryRecord, error) {
	return c.engine.Stories(ctx, name, limit)
}

// FeedbackHistory lists stored feedback for the named embryo, newest first.
func (c *Client) FeedbackHistory(ctx context.Context, name string, limit int) ([]model.FeedbackRecord, error) {
	return c.engine.FeedbackHistory(ctx, name, limit)
}

// Assets exposes the client's asset library.
func (c *Client) Assets() *assets.Library {
	return c.library
}

// Engine exposes the underlying engine for embedding callers.
func (c *Client) Engine() *engine.Engine {
	return c.engine
}

type exportDocument struct {
	Embryo   model.Embryo           `json:"embryo" yaml:"embryo"`
	Lineage  []model.Embryo         `json:"lineage" yaml:"lineage"`
	Stories  []model.StoryRecord    `json:"stories" yaml:"stories"`
	Feedback []model.FeedbackRecord `json:"feedback" yaml:"feedback"`
}

// Export serializes an embryo's full state (lineage, stories, feedback)
// to JSON or YAML.
func (c *Client) Export(ctx context.Context, req ExportRequest) ([]byte, error) {
	emb, err := c.engine.Current(ctx, req.Embryo)
	if err != nil {
		return nil, err
	}
	lineage, err := c.engine.Lineage(ctx, req.Embryo)
	if err != nil {
		return nil, err
	}
	stories, err := c.engine.Stories(ctx, req.Embryo, 0)
	if err != nil {
		return nil, err
	}
	feedback, err := c.engine.FeedbackHistory(ctx, req.Embryo, 0)
	if err != nil {
		return nil, err
	}
	doc := exportDocument{Embryo: emb, Lineage: lineage, Stories: stories, Feedback: feedback}

	switch req.Format {
	case "", "json":
		return json.MarshalIndent(doc, "", "  ")
	case "yaml":
		return yaml.Marshal(doc)
	default:
		return nil, fmt.Errorf("unknown export format: %s", req.Format)
	}
}
