package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/13jisse-music/ChanteEnScene-sub000/internal/broadcast"
	"github.com/13jisse-music/ChanteEnScene-sub000/internal/domain"
	"github.com/13jisse-music/ChanteEnScene-sub000/internal/service"
	"github.com/13jisse-music/ChanteEnScene-sub000/pkg/logger"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// LiveHandler serves the follower-facing realtime surface: the SSE
// stream, the pull-based snapshot resync, presence and rankings.
type LiveHandler struct {
	orchestrator *service.OrchestratorService
	ranking      *service.RankingService
	broadcaster  *broadcast.Broadcaster
	hub          *broadcast.Hub
	tracker      *broadcast.Tracker
	log          *logger.Logger
}

// NewLiveHandler creates a new live handler
func NewLiveHandler(
	orchestrator *service.OrchestratorService,
	ranking *service.RankingService,
	broadcaster *broadcast.Broadcaster,
	hub *broadcast.Hub,
	tracker *broadcast.Tracker,
	log *logger.Logger,
) *LiveHandler {
	return &LiveHandler{
		orchestrator: orchestrator,
		ranking:      ranking,
		broadcaster:  broadcaster,
		hub:          hub,
		tracker:      tracker,
		log:          log,
	}
}

// RegisterRoutes mounts the live API on the given router
func (h *LiveHandler) RegisterRoutes(r chi.Router) {
	r.Route("/{eventID}", func(r chi.Router) {
		r.Get("/stream", h.Stream)
		r.Get("/snapshot", h.GetSnapshot)
		r.Get("/ranking", h.GetRanking)
		r.Get("/presence", h.ListPresence)
		r.Post("/heartbeat", h.Heartbeat)
		r.Delete("/presence/{clientID}", h.Disconnect)
	})
}

// Stream handles GET /api/v1/live/{eventID}/stream. Messages are pushed
// as named SSE events until the client goes away.
func (h *LiveHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming unsupported"})
		return
	}

	eventID := chi.URLParam(r, "eventID")
	messages, detach := h.hub.Subscribe(eventID)
	defer detach()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// Resync on connect: the latest snapshot goes out first so a client
	// joining mid-show renders immediately instead of waiting for the next
	// transition.
	if snapshot, err := h.broadcaster.LatestSnapshot(r.Context(), eventID); err == nil && snapshot != nil {
		if data, err := json.Marshal(snapshot); err == nil {
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", broadcast.KindSnapshot, data)
			flusher.Flush()
		}
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, open := <-messages:
			if !open {
				return
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Kind, msg.Data)
			flusher.Flush()
		}
	}
}

// GetSnapshot handles GET /api/v1/live/{eventID}/snapshot. Clients call
// this after a stream gap to resync, so a cache miss falls back to a
// freshly built snapshot.
func (h *LiveHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")

	snapshot, err := h.broadcaster.LatestSnapshot(r.Context(), eventID)
	if err != nil {
		h.log.Warn("snapshot cache read failed", zap.String("event_id", eventID), zap.Error(err))
	}
	if snapshot == nil {
		event, _, err := h.orchestrator.GetEvent(r.Context(), eventID)
		if err != nil {
			respondError(w, r, h.log, err)
			return
		}
		snapshot, err = h.orchestrator.BuildSnapshot(r.Context(), event)
		if err != nil {
			respondError(w, r, h.log, err)
			return
		}
	}
	respondJSON(w, http.StatusOK, snapshot)
}

// GetRanking handles GET /api/v1/live/{eventID}/ranking?category=
func (h *LiveHandler) GetRanking(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")
	category := r.URL.Query().Get("category")

	event, _, err := h.orchestrator.GetEvent(r.Context(), eventID)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	if category == "" {
		if event.CurrentCategory == "" {
			respondError(w, r, h.log, fmt.Errorf("%w: no category in progress and none requested", domain.ErrValidation))
			return
		}
		category = event.CurrentCategory
	}

	entries, err := h.ranking.ComputeForCategory(r.Context(), event, category, false)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"category": category,
		"entries":  entries,
	})
}

// Heartbeat handles POST /api/v1/live/{eventID}/heartbeat
func (h *LiveHandler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ClientID string `json:"client_id"`
		Role     string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ClientID == "" {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "client_id is required"})
		return
	}

	h.tracker.Heartbeat(r.Context(), chi.URLParam(r, "eventID"), req.ClientID, req.Role)
	respondJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// ListPresence handles GET /api/v1/live/{eventID}/presence
func (h *LiveHandler) ListPresence(w http.ResponseWriter, r *http.Request) {
	live := h.tracker.ListLive(chi.URLParam(r, "eventID"))
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(live),
		"clients": live,
	})
}

// Disconnect handles DELETE /api/v1/live/{eventID}/presence/{clientID}
func (h *LiveHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	h.tracker.Disconnect(r.Context(), chi.URLParam(r, "eventID"), chi.URLParam(r, "clientID"))
	respondJSON(w, http.StatusOK, map[string]string{"status": "disconnected"})
}
