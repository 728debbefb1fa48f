package handler

import (
	"encoding/json"
	"net/http"

	"github.com/13jisse-music/ChanteEnScene-sub000/internal/service"
	"github.com/13jisse-music/ChanteEnScene-sub000/pkg/logger"
	"github.com/go-chi/chi/v5"
)

// VotingHandler receives public votes from the audience.
type VotingHandler struct {
	ingestion *service.IngestionService
	log       *logger.Logger
}

// NewVotingHandler creates a new voting handler
func NewVotingHandler(ingestion *service.IngestionService, log *logger.Logger) *VotingHandler {
	return &VotingHandler{ingestion: ingestion, log: log}
}

// RegisterRoutes mounts the public voting API on the given router
func (h *VotingHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.SubmitVote)
	r.Get("/{voteID}", h.GetReceipt)
}

// SubmitVote handles POST /api/v1/votes. The device fingerprint travels
// in a header so the body stays a plain candidate reference.
func (h *VotingHandler) SubmitVote(w http.ResponseWriter, r *http.Request) {
	fingerprint := r.Header.Get("X-Device-Fingerprint")

	var req struct {
		CandidateID int64 `json:"candidate_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	receipt, err := h.ingestion.SubmitVote(r.Context(), fingerprint, req.CandidateID)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, receipt)
}

// GetReceipt handles GET /api/v1/votes/{voteID}
func (h *VotingHandler) GetReceipt(w http.ResponseWriter, r *http.Request) {
	receipt, err := h.ingestion.GetReceipt(r.Context(), chi.URLParam(r, "voteID"))
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, receipt)
}
