package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/13jisse-music/ChanteEnScene-sub000/internal/broadcast"
	"github.com/13jisse-music/ChanteEnScene-sub000/internal/domain"
	"github.com/13jisse-music/ChanteEnScene-sub000/internal/service"
	"github.com/13jisse-music/ChanteEnScene-sub000/pkg/logger"
	"github.com/go-chi/chi/v5"
)

// AdminHandler exposes the control desk API: every live event transition,
// the reveal ceremony and the session configuration.
type AdminHandler struct {
	orchestrator *service.OrchestratorService
	reveal       *service.RevealService
	ranking      *service.RankingService
	broadcaster  *broadcast.Broadcaster
	log          *logger.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(
	orchestrator *service.OrchestratorService,
	reveal *service.RevealService,
	ranking *service.RankingService,
	broadcaster *broadcast.Broadcaster,
	log *logger.Logger,
) *AdminHandler {
	return &AdminHandler{
		orchestrator: orchestrator,
		reveal:       reveal,
		ranking:      ranking,
		broadcaster:  broadcaster,
		log:          log,
	}
}

// RegisterRoutes mounts the admin API on the given router
func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Post("/events", h.CreateEvent)
	r.Route("/events/{eventID}", func(r chi.Router) {
		r.Get("/", h.GetEvent)
		r.Post("/start", h.StartEvent)
		r.Post("/pause", h.Pause)
		r.Post("/resume", h.Resume)
		r.Post("/end", h.EndEvent)
		r.Post("/category", h.StartCategory)
		r.Post("/advance", h.AdvanceToNext)
		r.Put("/lineup/reorder", h.ReorderLineup)
		r.Put("/weights", h.UpdateWeights)
		r.Post("/cursor", h.PublishCursor)
		r.Route("/lineup/{itemID}", func(r chi.Router) {
			r.Post("/call", h.CallToStage)
			r.Post("/open-votes", h.OpenVotes)
			r.Post("/close-votes", h.CloseVotes)
			r.Post("/end-performance", h.EndPerformance)
			r.Post("/absent", h.MarkAbsent)
			r.Post("/replay", h.SetReplay)
		})
		r.Route("/reveal", func(r chi.Router) {
			r.Post("/", h.RevealWinner)
			r.Post("/cancel", h.CancelReveal)
			r.Post("/advance", h.AdvanceNow)
		})
	})
}

// CreateEvent handles POST /api/v1/admin/events
func (h *AdminHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EventType domain.EventType `json:"event_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	event, err := h.orchestrator.CreateEvent(r.Context(), req.EventType)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, event)
}

// GetEvent handles GET /api/v1/admin/events/{eventID}
func (h *AdminHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, items, err := h.orchestrator.GetEvent(r.Context(), chi.URLParam(r, "eventID"))
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"event":  event,
		"lineup": items,
	})
}

// event-level transitions share one request shape

func (h *AdminHandler) StartEvent(w http.ResponseWriter, r *http.Request) {
	h.eventTransition(w, r, h.orchestrator.StartEvent)
}

func (h *AdminHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.eventTransition(w, r, h.orchestrator.Pause)
}

func (h *AdminHandler) Resume(w http.ResponseWriter, r *http.Request) {
	h.eventTransition(w, r, h.orchestrator.Resume)
}

func (h *AdminHandler) EndEvent(w http.ResponseWriter, r *http.Request) {
	h.eventTransition(w, r, h.orchestrator.EndEvent)
}

func (h *AdminHandler) AdvanceToNext(w http.ResponseWriter, r *http.Request) {
	h.eventTransition(w, r, h.orchestrator.AdvanceToNext)
}

func (h *AdminHandler) eventTransition(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, eventID string) (*domain.LiveEvent, error)) {
	event, err := op(r.Context(), chi.URLParam(r, "eventID"))
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, event)
}

// StartCategory handles POST /api/v1/admin/events/{eventID}/category
func (h *AdminHandler) StartCategory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Category string `json:"category"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	event, err := h.orchestrator.StartCategory(r.Context(), chi.URLParam(r, "eventID"), req.Category)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, event)
}

// item-level transitions share one request shape

func (h *AdminHandler) CallToStage(w http.ResponseWriter, r *http.Request) {
	h.itemTransition(w, r, h.orchestrator.CallToStage)
}

func (h *AdminHandler) OpenVotes(w http.ResponseWriter, r *http.Request) {
	h.itemTransition(w, r, h.orchestrator.OpenVotes)
}

func (h *AdminHandler) CloseVotes(w http.ResponseWriter, r *http.Request) {
	h.itemTransition(w, r, h.orchestrator.CloseVotes)
}

func (h *AdminHandler) EndPerformance(w http.ResponseWriter, r *http.Request) {
	h.itemTransition(w, r, h.orchestrator.EndPerformance)
}

func (h *AdminHandler) MarkAbsent(w http.ResponseWriter, r *http.Request) {
	h.itemTransition(w, r, h.orchestrator.MarkAbsent)
}

func (h *AdminHandler) itemTransition(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, eventID string, itemID int64) (*domain.LiveEvent, error)) {
	itemID, ok := parseItemID(w, r)
	if !ok {
		return
	}
	event, err := op(r.Context(), chi.URLParam(r, "eventID"), itemID)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, event)
}

// SetReplay handles POST /api/v1/admin/events/{eventID}/lineup/{itemID}/replay
func (h *AdminHandler) SetReplay(w http.ResponseWriter, r *http.Request) {
	itemID, ok := parseItemID(w, r)
	if !ok {
		return
	}

	var req struct {
		ResetScores bool `json:"reset_scores"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	event, err := h.orchestrator.SetReplay(r.Context(), chi.URLParam(r, "eventID"), itemID, req.ResetScores)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, event)
}

// ReorderLineup handles PUT /api/v1/admin/events/{eventID}/lineup/reorder
func (h *AdminHandler) ReorderLineup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Category   string  `json:"category"`
		OrderedIDs []int64 `json:"ordered_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	event, err := h.orchestrator.ReorderLineup(r.Context(), chi.URLParam(r, "eventID"), req.Category, req.OrderedIDs)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, event)
}

// RevealWinner handles POST /api/v1/admin/events/{eventID}/reveal
func (h *AdminHandler) RevealWinner(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CandidateID *int64 `json:"candidate_id,omitempty"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	event, err := h.reveal.RevealWinner(r.Context(), chi.URLParam(r, "eventID"), req.CandidateID)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, event)
}

// CancelReveal handles POST /api/v1/admin/events/{eventID}/reveal/cancel
func (h *AdminHandler) CancelReveal(w http.ResponseWriter, r *http.Request) {
	event, err := h.reveal.CancelReveal(r.Context(), chi.URLParam(r, "eventID"))
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, event)
}

// AdvanceNow handles POST /api/v1/admin/events/{eventID}/reveal/advance
func (h *AdminHandler) AdvanceNow(w http.ResponseWriter, r *http.Request) {
	if err := h.reveal.AdvanceNow(r.Context(), chi.URLParam(r, "eventID")); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "advanced"})
}

// UpdateWeights handles PUT /api/v1/admin/events/{eventID}/weights
func (h *AdminHandler) UpdateWeights(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Weights    domain.ScoringWeights `json:"weights"`
		Categories []string              `json:"categories"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	eventID := chi.URLParam(r, "eventID")
	if err := h.ranking.UpdateWeights(r.Context(), eventID, req.Weights, req.Categories); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, req.Weights)
}

// PublishCursor handles POST /api/v1/admin/events/{eventID}/cursor. The
// control desk mirrors its view here so follower screens track it.
func (h *AdminHandler) PublishCursor(w http.ResponseWriter, r *http.Request) {
	var req struct {
		View        string `json:"view"`
		CandidateID *int64 `json:"candidate_id,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	h.broadcaster.PublishCursor(r.Context(), broadcast.CursorUpdate{
		EventID:     chi.URLParam(r, "eventID"),
		View:        req.View,
		CandidateID: req.CandidateID,
		At:          time.Now().UTC(),
	})
	respondJSON(w, http.StatusAccepted, map[string]string{"status": "published"})
}

func parseItemID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	itemID, err := parseInt64(chi.URLParam(r, "itemID"))
	if err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid lineup item id"})
		return 0, false
	}
	return itemID, true
}
