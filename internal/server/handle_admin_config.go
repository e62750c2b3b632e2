package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/escaperoom/internal/escape"
	"github.com/playperu/escaperoom/internal/game"
)

// ConfigView is the event config without the operator password hash.
type ConfigView struct {
	RoomSequence      []int          `json:"roomSequence"`
	RoomNames         map[int]string `json:"roomNames"`
	MaxTeams          int            `json:"maxTeams"`
	AllowTeamCreation bool           `json:"allowTeamCreation"`
	UpdatedAt         time.Time      `json:"updatedAt"`
}

// PasswordRequest is the request body for PUT /api/admin/config/password.
type PasswordRequest struct {
	Password string `json:"password"`
}

func configView(c escape.Config) ConfigView {
	return ConfigView{
		RoomSequence:      c.RoomSequence,
		RoomNames:         c.RoomNames,
		MaxTeams:          c.MaxTeams,
		AllowTeamCreation: c.AllowTeamCreation,
		UpdatedAt:         c.UpdatedAt,
	}
}

func handleAdminConfig(s game.Store, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg, err := s.Config(r.Context())
		if err != nil {
			writeErr(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, configView(cfg))
	}
}

func handleAdminUpdateConfig(a *game.Admin, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req game.EventSettings
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		cfg, err := a.UpdateSettings(r.Context(), req)
		if err != nil {
			writeErr(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, configView(cfg))
	}
}

func handleAdminPassword(a *game.Admin, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PasswordRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := a.ChangePassword(r.Context(), req.Password); err != nil {
			writeErr(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// handleAdminReset runs a bulk reset for the {scope} in the path.
func handleAdminReset(a *game.Admin, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope := game.ResetScope(chi.URLParam(r, "scope"))
		if err := a.Reset(r.Context(), scope); err != nil {
			writeErr(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "reset", "scope": string(scope)})
	}
}

// Leaderboard

func handleAdminOverride(a *game.Admin, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req game.EntryOverride
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		e, err := a.OverrideEntry(r.Context(), chi.URLParam(r, "teamID"), req)
		if err != nil {
			writeErr(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, e)
	}
}

func handleAdminRefresh(a *game.Admin, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := a.RefreshLeaderboard(r.Context())
		if err != nil {
			writeErr(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"refreshed": n})
	}
}
