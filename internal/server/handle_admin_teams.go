package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/escaperoom/internal/escape"
	"github.com/playperu/escaperoom/internal/game"
)

// AdminTeam is the console view of a team. Operators see the password so
// they can hand it out again.
type AdminTeam struct {
	PublicTeam
	Password string `json:"password"`
}

// TeamStatusRequest is the request body for POST /api/admin/teams/{teamID}/status.
type TeamStatusRequest struct {
	Status escape.TeamStatus `json:"status"`
}

// TeamRoomRequest is the request body for POST /api/admin/teams/{teamID}/room.
type TeamRoomRequest struct {
	Room int `json:"room"`
}

func adminTeam(t escape.Team, a *game.Admin) AdminTeam {
	return AdminTeam{PublicTeam: publicTeam(t, a), Password: t.Password}
}

func handleAdminListTeams(s game.Store, a *game.Admin, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		teams, err := s.Teams(r.Context())
		if err != nil {
			writeErr(w, logger, err)
			return
		}
		out := make([]AdminTeam, 0, len(teams))
		for _, t := range teams {
			out = append(out, adminTeam(t, a))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func handleAdminCreateTeam(a *game.Admin, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req game.NewTeam
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		t, err := a.CreateTeam(r.Context(), req)
		if err != nil {
			writeErr(w, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, adminTeam(t, a))
	}
}

func handleAdminUpdateTeam(a *game.Admin, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req game.TeamUpdate
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		t, err := a.UpdateTeam(r.Context(), chi.URLParam(r, "teamID"), req)
		if err != nil {
			writeErr(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, adminTeam(t, a))
	}
}

func handleAdminDeleteTeam(a *game.Admin, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := a.DeleteTeam(r.Context(), chi.URLParam(r, "teamID")); err != nil {
			writeErr(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

func handleAdminSetStatus(a *game.Admin, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TeamStatusRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		t, err := a.SetTeamStatus(r.Context(), chi.URLParam(r, "teamID"), req.Status)
		if err != nil {
			writeErr(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, adminTeam(t, a))
	}
}

func handleAdminSetRoom(a *game.Admin, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TeamRoomRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		t, err := a.SetTeamRoom(r.Context(), chi.URLParam(r, "teamID"), req.Room)
		if err != nil {
			writeErr(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, adminTeam(t, a))
	}
}

func handleAdminResetProgress(a *game.Admin, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := a.ResetTeamProgress(r.Context(), chi.URLParam(r, "teamID"))
		if err != nil {
			writeErr(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, adminTeam(t, a))
	}
}

func handleAdminResetSession(a *game.Admin, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := a.ResetSessionTime(r.Context(), chi.URLParam(r, "teamID"))
		if err != nil {
			writeErr(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, adminTeam(t, a))
	}
}

// handleAdminTeamProgress lists a team's ledgers, including attempted codes.
func handleAdminTeamProgress(a *game.Admin, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		history, err := a.TeamHistory(r.Context(), chi.URLParam(r, "teamID"))
		if err != nil {
			writeErr(w, logger, err)
			return
		}
		if history == nil {
			history = []escape.ProgressRecord{}
		}
		writeJSON(w, http.StatusOK, history)
	}
}
