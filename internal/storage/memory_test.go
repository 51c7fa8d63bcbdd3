package storage

import (
	"context"
	"testing"

	"embryonic/internal/model"
)

func testEmbryo(name string, generation int) model.Embryo {
	return model.Embryo{
		VersionedRecord: Stamp(),
		Name:            name,
		Generation:      generation,
		Parameters: model.ParameterSet{
			VersionedRecord: Stamp(),
			Values:          map[string]float64{"intensity": 0.5},
			Ranges:          map[string]model.Range{"intensity": {Min: 0, Max: 1}},
			Successful:      map[string]model.Interval{"intensity": {Low: 0.3, High: 0.7}},
			Observations:    map[string]int{"intensity": 0},
		},
		Transforms: map[model.Arc]model.ArcTransform{
			model.ArcSetup:      {"intensity": {Kind: model.AdjustSet, Value: 0.3}},
			model.ArcConflict:   {"intensity": {Kind: model.AdjustSet, Value: 0.8}},
			model.ArcResolution: {"intensity": {Kind: model.AdjustSet, Value: 0.6}},
		},
	}
}

func TestMemoryStoreEmbryoLineage(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	for gen := 0; gen < 3; gen++ {
		if err := store.SaveEmbryo(ctx, testEmbryo("noir", gen)); err != nil {
			t.Fatalf("save embryo gen %d: %v", gen, err)
		}
	}

	latest, ok, err := store.LatestEmbryo(ctx, "noir")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if !ok || latest.Generation != 2 {
		t.Fatalf("latest generation=%d ok=%v", latest.Generation, ok)
	}

	lineage, err := store.Lineage(ctx, "noir")
	if err != nil {
		t.Fatalf("lineage: %v", err)
	}
	if len(lineage) != 3 {
		t.Fatalf("lineage length=%d want=3", len(lineage))
	}
	for i, e := range lineage {
		if e.Generation != i {
			t.Fatalf("lineage[%d].Generation=%d", i, e.Generation)
		}
	}

	e, ok, err := store.GetEmbryo(ctx, "noir", 1)
	if err != nil || !ok || e.Generation != 1 {
		t.Fatalf("get embryo: gen=%d ok=%v err=%v", e.Generation, ok, err)
	}
	if _, ok, _ := store.GetEmbryo(ctx, "noir", 9); ok {
		t.Fatal("expected missing generation")
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := store.SaveEmbryo(ctx, testEmbryo("noir", 0)); err != nil {
		t.Fatalf("save: %v", err)
	}

	first, _, err := store.LatestEmbryo(ctx, "noir")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	first.Parameters.Values["intensity"] = 0.99

	second, _, err := store.LatestEmbryo(ctx, "noir")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if second.Parameters.Values["intensity"] != 0.5 {
		t.Fatalf("stored embryo mutated through returned reference: %v", second.Parameters.Values["intensity"])
	}
}

func TestMemoryStoreStories(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	for i, id := range []string{"st-1", "st-2", "st-3"} {
		story := model.StoryRecord{
			VersionedRecord: Stamp(),
			ID:              id,
			EmbryoName:      "noir",
			Generation:      i,
			TargetDuration:  30,
			CreatedAtUTC:    "2026-01-0" + string(rune('1'+i)) + "T00:00:00Z",
		}
		if err := store.SaveStory(ctx, story); err != nil {
			t.Fatalf("save story %s: %v", id, err)
		}
	}

	latest, ok, err := store.LatestStory(ctx, "noir")
	if err != nil || !ok {
		t.Fatalf("latest story: ok=%v err=%v", ok, err)
	}
	if latest.ID != "st-3" {
		t.Fatalf("latest story id=%s want=st-3", latest.ID)
	}

	stories, err := store.ListStories(ctx, "noir", 2)
	if err != nil {
		t.Fatalf("list stories: %v", err)
	}
	if len(stories) != 2 || stories[0].ID != "st-3" || stories[1].ID != "st-2" {
		t.Fatalf("unexpected story list: %+v", stories)
	}

	if _, ok, _ := store.GetStory(ctx, "missing"); ok {
		t.Fatal("expected missing story")
	}
}

func TestMemoryStoreFeedback(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	for i := 0; i < 3; i++ {
		f := model.FeedbackRecord{
			VersionedRecord: Stamp(),
			ID:              "fb-" + string(rune('1'+i)),
			EmbryoName:      "noir",
			Generation:      i,
			Scores:          map[string]float64{"engagement": 0.8},
		}
		if err := store.SaveFeedback(ctx, f); err != nil {
			t.Fatalf("save feedback: %v", err)
		}
	}

	records, err := store.ListFeedback(ctx, "noir", 0)
	if err != nil {
		t.Fatalf("list feedback: %v", err)
	}
	if len(records) != 3 || records[0].Generation != 2 {
		t.Fatalf("unexpected feedback list: %+v", records)
	}
}
