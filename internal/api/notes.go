package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/scribe/internal/gaps"
	"github.com/MikeSquared-Agency/scribe/internal/mapping"
	"github.com/MikeSquared-Agency/scribe/internal/notes"
	"github.com/MikeSquared-Agency/scribe/internal/store"
)

// MapRequest is the body of POST /api/v1/notes/map.
type MapRequest struct {
	mapping.Request
	Options *mapping.Options `json:"options,omitempty"`
}

// GapsRequest is the body of POST /api/v1/notes/gaps.
type GapsRequest struct {
	gaps.Request
	Options *gaps.Options `json:"options,omitempty"`
}

// SectionRequest is the body of POST /api/v1/notes/gaps/section.
type SectionRequest struct {
	Section             notes.SectionInfo    `json:"section"`
	Content             *notes.MappedSection `json:"content,omitempty"`
	ConfidenceThreshold *int                 `json:"confidenceThreshold,omitempty"`
}

// mapContent handles POST /api/v1/notes/map. A failed envelope is returned
// with 422 so callers can tell it apart without parsing the body.
func (s *Server) mapContent(w http.ResponseWriter, r *http.Request) {
	var req MapRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res := s.engine.MapContent(r.Context(), req.Request, req.Options)

	if s.store != nil {
		id, err := s.store.SaveMapping(r.Context(), &res)
		if err != nil {
			s.logger.Error("failed to persist mapping", "session_id", res.SessionID, "error", err)
		} else {
			w.Header().Set("X-Mapping-Id", id.String())
		}
	}

	status := http.StatusOK
	if !res.Success {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, res)
}

// detectGaps handles POST /api/v1/notes/gaps.
func (s *Server) detectGaps(w http.ResponseWriter, r *http.Request) {
	var req GapsRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res := s.engine.Detector().DetectGaps(r.Context(), req.Request, req.Options)

	if s.store != nil && res.Success {
		if _, err := s.store.SaveGapAnalysis(r.Context(), &res); err != nil {
			s.logger.Error("failed to persist gap analysis", "session_id", res.SessionID, "error", err)
		}
	}

	status := http.StatusOK
	if !res.Success {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, res)
}

// analyzeSection handles POST /api/v1/notes/gaps/section: rule checks for a
// single section, no model call.
func (s *Server) analyzeSection(w http.ResponseWriter, r *http.Request) {
	var req SectionRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Section.ID == "" {
		writeError(w, http.StatusBadRequest, "section.id is required")
		return
	}

	d := s.engine.Detector()
	threshold := d.Config().ConfidenceThreshold
	if req.ConfidenceThreshold != nil {
		threshold = *req.ConfidenceThreshold
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sectionId": req.Section.ID,
		"gaps":      d.AnalyzeSectionWith(req.Section, req.Content, threshold),
	})
}

func (s *Server) llmHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"available": s.engine.CheckHealth(r.Context())})
}

func (s *Server) getMapping(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid mapping id")
		return
	}
	if s.store == nil {
		writeError(w, http.StatusNotFound, "persistence is disabled")
		return
	}

	row, err := s.store.GetMapping(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "mapping not found")
		return
	}
	if err != nil {
		s.logger.Error("failed to load mapping", "mapping_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load mapping")
		return
	}
	writeJSON(w, http.StatusOK, row)
}
