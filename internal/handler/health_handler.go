package handler

import (
	"net/http"
	"time"

	"github.com/13jisse-music/ChanteEnScene-sub000/pkg/database"
	"github.com/13jisse-music/ChanteEnScene-sub000/pkg/logger"
	"github.com/13jisse-music/ChanteEnScene-sub000/pkg/redis"
	"go.uber.org/zap"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	db    *database.PostgresDB
	redis *redis.Client
	log   *logger.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db *database.PostgresDB, redisClient *redis.Client, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		db:    db,
		redis: redisClient,
		log:   log,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Service   string            `json:"service"`
	Checks    map[string]string `json:"checks"`
}

// Check handles GET /health
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{
		"postgres": "ok",
		"redis":    "ok",
	}
	status := http.StatusOK

	if err := h.db.Health(r.Context()); err != nil {
		h.log.Warn("postgres health check failed", zap.Error(err))
		checks["postgres"] = err.Error()
		status = http.StatusServiceUnavailable
	}
	if err := h.redis.Health(r.Context()); err != nil {
		h.log.Warn("redis health check failed", zap.Error(err))
		checks["redis"] = err.Error()
		status = http.StatusServiceUnavailable
	}

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Service:   "chante-en-scene-live",
		Checks:    checks,
	}
	if status != http.StatusOK {
		response.Status = "degraded"
	}

	respondJSON(w, status, response)
}
