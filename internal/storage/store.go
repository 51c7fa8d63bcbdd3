package storage

import (
	"context"

	"embryonic/internal/model"
)

// Store defines the persistence operations the evolution engine and its
// callers need: embryo snapshots per (name, generation), generated story
// records, and feedback history.
type Store interface {
	Init(ctx context.Context) error
	SaveEmbryo(ctx context.Context, e model.Embryo) error
	GetEmbryo(ctx context.Context, name string, generation int) (model.Embryo, bool, error)
	LatestEmbryo(ctx context.Context, name string) (model.Embryo, bool, error)
	ListEmbryoNames(ctx context.Context) ([]string, error)
	Lineage(ctx context.Context, name string) ([]model.Embryo, error)
	SaveStory(ctx context.Context, s model.StoryRecord) error
	GetStory(ctx context.Context, id string) (model.StoryRecord, bool, error)
	LatestStory(ctx context.Context, name string) (model.StoryRecord, bool, error)
	ListStories(ctx context.Context, name string, limit int) ([]model.StoryRecord, error)
	SaveFeedback(ctx context.Context, f model.FeedbackRecord) error
	ListFeedback(ctx context.Context, name string, limit int) ([]model.FeedbackRecord, error)
}

// Resetter is implemented by stores that can drop all persisted state.
type Resetter interface {
	Reset(ctx context.Context) error
}
