package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"embryonic/internal/division"
	"embryonic/internal/engine"
	"embryonic/internal/learning"
	"embryonic/pkg/embryonic"
)

type initEmbryoRequest struct {
	Name  string `json:"name"`
	Force bool   `json:"force,omitempty"`
}

type generateRequest struct {
	Embryo     string             `json:"embryo"`
	Subject    string             `json:"subject,omitempty"`
	Duration   float64            `json:"duration"`
	ArcWeights map[string]float64 `json:"arc_weights,omitempty"`
}

type feedbackRequest struct {
	StoryID string             `json:"story_id"`
	Scores  map[string]float64 `json:"scores"`
}

func (s *Server) handleListEmbryos(w http.ResponseWriter, r *http.Request) {
	names, err := s.client.Names(r.Context())
	if err != nil {
		errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"embryos": names})
}

func (s *Server) handleInitEmbryo(w http.ResponseWriter, r *http.Request) {
	var req initEmbryoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Name == "" {
		errorResponse(w, http.StatusBadRequest, "name is required")
		return
	}
	emb, err := s.client.Init(r.Context(), req.Name, req.Force)
	if err != nil {
		if errors.Is(err, engine.ErrEmbryoExists) {
			errorResponse(w, http.StatusConflict, err.Error())
			return
		}
		errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, emb)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.client.Status(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		if errors.Is(err, engine.ErrEmbryoNotFound) {
			errorResponse(w, http.StatusNotFound, err.Error())
			return
		}
		errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleLineage(w http.ResponseWriter, r *http.Request) {
	lineage, err := s.client.Lineage(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		if errors.Is(err, engine.ErrEmbryoNotFound) {
			errorResponse(w, http.StatusNotFound, err.Error())
			return
		}
		errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"lineage": lineage})
}

func (s *Server) handleStories(w http.ResponseWriter, r *http.Request) {
	stories, err := s.client.Stories(r.Context(), chi.URLParam(r, "name"), queryLimit(r))
	if err != nil {
		errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stories": stories})
}

func (s *Server) handleFeedbackHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.client.FeedbackHistory(r.Context(), chi.URLParam(r, "name"), queryLimit(r))
	if err != nil {
		errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"feedback": history})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	story, err := s.client.Generate(r.Context(), embryonic.GenerateRequest{
		Embryo:     req.Embryo,
		Subject:    req.Subject,
		Duration:   req.Duration,
		ArcWeights: req.ArcWeights,
	})
	if err != nil {
		switch {
		case errors.Is(err, engine.ErrEmbryoNotFound):
			errorResponse(w, http.StatusNotFound, err.Error())
		case errors.Is(err, division.ErrInvalidDuration):
			errorResponse(w, http.StatusBadRequest, err.Error())
		default:
			errorResponse(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusCreated, story)
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	summary, err := s.client.Feedback(r.Context(), embryonic.FeedbackRequest{
		StoryID: req.StoryID,
		Scores:  req.Scores,
	})
	if err != nil {
		switch {
		case errors.Is(err, learning.ErrEmptyFeedback):
			errorResponse(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, engine.ErrStaleGeneration):
			errorResponse(w, http.StatusConflict, err.Error())
		case errors.Is(err, engine.ErrEmbryoNotFound):
			errorResponse(w, http.StatusNotFound, err.Error())
		default:
			errorResponse(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleAssets(w http.ResponseWriter, r *http.Request) {
	library := s.client.Assets()
	writeJSON(w, http.StatusOK, map[string]any{
		"stats":  library.Stats(),
		"assets": library.List(r.URL.Query().Get("type")),
	})
}

func queryLimit(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0
	}
	return limit
}
