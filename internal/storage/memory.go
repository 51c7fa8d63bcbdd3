package storage

import (
	"context"
	"sort"
	"sync"

	"embryonic/internal/model"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	embryos     map[string][]model.Embryo
	stories     map[string]model.StoryRecord
	storyOrder  map[string][]string
	feedback    map[string][]model.FeedbackRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.embryos = make(map[string][]model.Embryo)
	s.stories = make(map[string]model.StoryRecord)
	s.storyOrder = make(map[string][]string)
	s.feedback = make(map[string][]model.FeedbackRecord)
	return nil
}

func (s *MemoryStore) Reset(ctx context.Context) error {
	return s.Init(ctx)
}

func (s *MemoryStore) SaveEmbryo(_ context.Context, e model.Embryo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lineage := s.embryos[e.Name]
	for i, existing := range lineage {
		if existing.Generation == e.Generation {
			lineage[i] = e.Clone()
			return nil
		}
	}
	lineage = append(lineage, e.Clone())
	sort.Slice(lineage, func(i, j int) bool {
		return lineage[i].Generation < lineage[j].Generation
	})
	s.embryos[e.Name] = lineage
	return nil
}

func (s *MemoryStore) GetEmbryo(_ context.Context, name string, generation int) (model.Embryo, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.embryos[name] {
		if e.Generation == generation {
			return e.Clone(), true, nil
		}
	}
	return model.Embryo{}, false, nil
}

func (s *MemoryStore) LatestEmbryo(_ context.Context, name string) (model.Embryo, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lineage := s.embryos[name]
	if len(lineage) == 0 {
		return model.Embryo{}, false, nil
	}
	return lineage[len(lineage)-1].Clone(), true, nil
}

func (s *MemoryStore) ListEmbryoNames(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.embryos))
	for name := range s.embryos {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *MemoryStore) Lineage(_ context.Context, name string) ([]model.Embryo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lineage := s.embryos[name]
	copied := make([]model.Embryo, 0, len(lineage))
	for _, e := range lineage {
		copied = append(copied, e.Clone())
	}
	return copied, nil
}

func (s *MemoryStore) SaveStory(_ context.Context, story model.StoryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.stories[story.ID]; !exists {
		s.storyOrder[story.EmbryoName] = append(s.storyOrder[story.EmbryoName], story.ID)
	}
	s.stories[story.ID] = story.Clone()
	return nil
}

func (s *MemoryStore) GetStory(_ context.Context, id string) (model.StoryRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	story, ok := s.stories[id]
	if !ok {
		return model.StoryRecord{}, false, nil
	}
	return story.Clone(), true, nil
}

func (s *MemoryStore) LatestStory(_ context.Context, name string) (model.StoryRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order := s.storyOrder[name]
	if len(order) == 0 {
		return model.StoryRecord{}, false, nil
	}
	story := s.stories[order[len(order)-1]]
	return story.Clone(), true, nil
}

func (s *MemoryStore) ListStories(_ context.Context, name string, limit int) ([]model.StoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	if name != "" {
		ids = s.storyOrder[name]
	} else {
		for _, order := range s.storyOrder {
			ids = append(ids, order...)
		}
		sort.Slice(ids, func(i, j int) bool {
			return s.stories[ids[i]].CreatedAtUTC < s.stories[ids[j]].CreatedAtUTC
		})
	}

	out := make([]model.StoryRecord, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, s.stories[ids[i]].Clone())
	}
	return out, nil
}

func (s *MemoryStore) SaveFeedback(_ context.Context, f model.FeedbackRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.feedback[f.EmbryoName] = append(s.feedback[f.EmbryoName], f.Clone())
	return nil
}

func (s *MemoryStore) ListFeedback(_ context.Context, name string, limit int) ([]model.FeedbackRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := s.feedback[name]
	out := make([]model.FeedbackRecord, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, records[i].Clone())
	}
	return out, nil
}
