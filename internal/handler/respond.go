package handler

import (
	"encoding/json"
	goerrors "errors"
	"net/http"
	"strconv"
	"time"

	"github.com/13jisse-music/ChanteEnScene-sub000/internal/domain"
	"github.com/13jisse-music/ChanteEnScene-sub000/internal/middleware"
	"github.com/13jisse-music/ChanteEnScene-sub000/pkg/errors"
	"github.com/13jisse-music/ChanteEnScene-sub000/pkg/logger"
)

// respondJSON writes a JSON payload with the given status
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

// respondError translates a service error into the typed error envelope.
// Domain sentinels map to their HTTP shapes; anything unrecognized is an
// internal error with the cause kept out of the response body.
func respondError(w http.ResponseWriter, r *http.Request, log *logger.Logger, err error) {
	appErr := toAppError(err)

	if appErr.StatusCode >= http.StatusInternalServerError {
		log.WithError(err).Error("request failed")
	} else {
		log.WithError(err).Debug("request rejected")
	}

	response := &errors.ErrorResponse{}
	response.Error.Type = appErr.Type
	response.Error.Message = appErr.Message
	response.Error.Details = appErr.Details
	response.Error.Timestamp = time.Now().UTC().Format(time.RFC3339)
	if requestID, ok := r.Context().Value(middleware.RequestIDContextKey).(string); ok {
		response.Error.RequestID = requestID
	}

	respondJSON(w, appErr.StatusCode, response)
}

func toAppError(err error) *errors.AppError {
	var appErr *errors.AppError
	if goerrors.As(err, &appErr) {
		return appErr
	}

	switch {
	case goerrors.Is(err, domain.ErrDuplicateVote):
		return errors.NewDuplicateVoteError(err.Error())
	case goerrors.Is(err, domain.ErrValidation):
		return errors.NewValidationError(err.Error(), nil)
	case goerrors.Is(err, domain.ErrConflict):
		return errors.NewConflictError(err.Error())
	case goerrors.Is(err, domain.ErrNotFound):
		return errors.NewNotFoundError(err.Error())
	case goerrors.Is(err, domain.ErrTransient):
		return errors.NewTransientError("A backing store is temporarily unreachable, retry the request", err)
	default:
		return errors.NewInternalError("Unexpected error", err)
	}
}

func parseInt64(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}
