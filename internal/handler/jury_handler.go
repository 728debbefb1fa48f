package handler

import (
	"encoding/json"
	"net/http"

	"github.com/13jisse-music/ChanteEnScene-sub000/internal/domain"
	"github.com/13jisse-music/ChanteEnScene-sub000/internal/middleware"
	"github.com/13jisse-music/ChanteEnScene-sub000/internal/service"
	"github.com/13jisse-music/ChanteEnScene-sub000/pkg/logger"
	"github.com/go-chi/chi/v5"
)

// JuryHandler receives score submissions from authenticated jurors.
type JuryHandler struct {
	ingestion *service.IngestionService
	log       *logger.Logger
}

// NewJuryHandler creates a new jury handler
func NewJuryHandler(ingestion *service.IngestionService, log *logger.Logger) *JuryHandler {
	return &JuryHandler{ingestion: ingestion, log: log}
}

// RegisterRoutes mounts the jury API on the given router
func (h *JuryHandler) RegisterRoutes(r chi.Router) {
	r.Post("/scores", h.SubmitScore)
	r.Get("/scores/{candidateID}", h.GetScore)
}

// SubmitScore handles POST /api/v1/jury/scores. The juror identity and
// role come from the token, never from the body.
func (h *JuryHandler) SubmitScore(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		respondJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing authentication"})
		return
	}

	var req struct {
		CandidateID int64             `json:"candidate_id"`
		Payload     json.RawMessage   `json:"payload"`
		Comment     string            `json:"comment,omitempty"`
		Watch       *domain.WatchInfo `json:"watch,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	payload, err := domain.UnmarshalScorePayload(req.Payload)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}

	score, err := h.ingestion.SubmitJuryScore(r.Context(), principal.Subject, principal.JuryRole, req.CandidateID, payload, req.Comment, req.Watch)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, score)
}

// GetScore handles GET /api/v1/jury/scores/{candidateID}. Jurors read back
// only their own submission.
func (h *JuryHandler) GetScore(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		respondJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing authentication"})
		return
	}

	candidateID, err := parseInt64(chi.URLParam(r, "candidateID"))
	if err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid candidate id"})
		return
	}

	score, err := h.ingestion.GetJuryScore(r.Context(), principal.Subject, principal.JuryRole, candidateID)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, score)
}
