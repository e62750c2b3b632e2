package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/escaperoom/internal/escape"
	"github.com/playperu/escaperoom/internal/store"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func readJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// writeErr maps a domain error to its HTTP status. Unexpected errors are
// logged and hidden from the caller.
func writeErr(w http.ResponseWriter, logger *slog.Logger, err error) {
	var verr *escape.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: verr.Message, Field: verr.Field})
	case errors.Is(err, escape.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, escape.ErrWrongPassword), errors.Is(err, escape.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, escape.ErrTeamEliminated), errors.Is(err, escape.ErrWrongRoom):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, escape.ErrRoomOccupied),
		errors.Is(err, escape.ErrNotPlaying),
		errors.Is(err, escape.ErrTimerRunning),
		errors.Is(err, escape.ErrProgressClosed):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, store.ErrUnavailable):
		logger.Error("store unavailable", "error", err)
		writeError(w, http.StatusServiceUnavailable, "store unavailable, try again")
	default:
		logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// roomParam parses the {room} URL parameter.
func roomParam(r *http.Request) (int, error) {
	n, err := strconv.Atoi(chi.URLParam(r, "room"))
	if err != nil {
		return 0, &escape.ValidationError{Field: "room", Message: "must be a number"}
	}
	return n, nil
}
