package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"embryonic/pkg/embryonic"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	client, err := embryonic.New(context.Background(), embryonic.Options{StoreKind: "memory", Seed: 3})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return NewServer(client, ":0")
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func TestHealth(t *testing.T) {
	s := testServer(t)
	rec := doJSON(t, s, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d", rec.Code)
	}
}

func TestEmbryoLifecycleOverHTTP(t *testing.T) {
	s := testServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/v1/embryos", map[string]any{"name": "noir"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("init status = %d body = %s", rec.Code, rec.Body.String())
	}

	// duplicate without force conflicts
	rec = doJSON(t, s, http.MethodPost, "/api/v1/embryos", map[string]any{"name": "noir"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate init status = %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodPost, "/api/v1/stories", map[string]any{
		"embryo": "noir", "subject": "the brass key", "duration": 60,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("generate status = %d body = %s", rec.Code, rec.Body.String())
	}
	var story struct {
		ID    string `json:"id"`
		Cells []any  `json:"cells"`
	}
	decode(t, rec, &story)
	if len(story.Cells) != 6 {
		t.Fatalf("cell count = %d, want 6", len(story.Cells))
	}

	rec = doJSON(t, s, http.MethodPost, "/api/v1/feedback", map[string]any{
		"story_id": story.ID,
		"scores":   map[string]float64{"engagement": 0.9, "coherence": 0.8},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("feedback status = %d body = %s", rec.Code, rec.Body.String())
	}
	var summary struct {
		Generation int `json:"generation"`
	}
	decode(t, rec, &summary)
	if summary.Generation != 1 {
		t.Fatalf("generation = %d, want 1", summary.Generation)
	}

	// stale feedback for the same story conflicts
	rec = doJSON(t, s, http.MethodPost, "/api/v1/feedback", map[string]any{
		"story_id": story.ID,
		"scores":   map[string]float64{"engagement": 0.9},
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("stale feedback status = %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/v1/embryos/noir", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status status = %d", rec.Code)
	}
	var status struct {
		Generation int `json:"generation"`
		StoryCount int `json:"story_count"`
	}
	decode(t, rec, &status)
	if status.Generation != 1 || status.StoryCount != 1 {
		t.Fatalf("unexpected status: %+v", status)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/v1/embryos/noir/lineage", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("lineage status = %d", rec.Code)
	}
	var lineage struct {
		Lineage []any `json:"lineage"`
	}
	decode(t, rec, &lineage)
	if len(lineage.Lineage) != 2 {
		t.Fatalf("lineage length = %d, want 2", len(lineage.Lineage))
	}
}

func TestGenerateValidationErrors(t *testing.T) {
	s := testServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/v1/stories", map[string]any{
		"embryo": "ghost", "duration": 60,
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown embryo status = %d", rec.Code)
	}

	if rec := doJSON(t, s, http.MethodPost, "/api/v1/embryos", map[string]any{"name": "noir"}); rec.Code != http.StatusCreated {
		t.Fatalf("init status = %d", rec.Code)
	}
	rec = doJSON(t, s, http.MethodPost, "/api/v1/stories", map[string]any{
		"embryo": "noir", "duration": -1,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad duration status = %d", rec.Code)
	}
}

func TestInitRequiresName(t *testing.T) {
	s := testServer(t)
	rec := doJSON(t, s, http.MethodPost, "/api/v1/embryos", map[string]any{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestAssetsEndpoint(t *testing.T) {
	s := testServer(t)
	rec := doJSON(t, s, http.MethodGet, "/api/v1/assets?type=character", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("assets status = %d", rec.Code)
	}
	var payload struct {
		Stats struct {
			Total int `json:"total"`
		} `json:"stats"`
		Assets []struct {
			Type string `json:"type"`
		} `json:"assets"`
	}
	decode(t, rec, &payload)
	if payload.Stats.Total != 9 {
		t.Fatalf("stats total = %d, want 9", payload.Stats.Total)
	}
	if len(payload.Assets) != 3 {
		t.Fatalf("character assets = %d, want 3", len(payload.Assets))
	}
	for _, a := range payload.Assets {
		if a.Type != "character" {
			t.Fatalf("unexpected asset type %q", a.Type)
		}
	}
}
