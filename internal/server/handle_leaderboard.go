package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/escaperoom/internal/escape"
	"github.com/playperu/escaperoom/internal/game"
)

// PublicTeam is a team without its password.
type PublicTeam struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	CurrentRoom      int               `json:"currentRoom"`
	Status           escape.TeamStatus `json:"status"`
	TotalTime        int               `json:"totalTime"`
	SessionStartTime *time.Time        `json:"sessionStartTime"`
	SessionSeconds   int               `json:"sessionSeconds"`
	SessionClock     string            `json:"sessionClock"`
}

func publicTeam(t escape.Team, a *game.Admin) PublicTeam {
	secs := a.SessionClock(t)
	return PublicTeam{
		ID:               t.ID,
		Name:             t.Name,
		CurrentRoom:      t.CurrentRoom,
		Status:           t.Status,
		TotalTime:        t.TotalTime,
		SessionStartTime: t.SessionStartTime,
		SessionSeconds:   secs,
		SessionClock:     escape.FormatClock(secs),
	}
}

func handleLeaderboard(ranker *game.Ranker, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		standings, err := ranker.Standings(r.Context())
		if err != nil {
			writeErr(w, logger, err)
			return
		}
		if standings == nil {
			standings = []escape.Standing{}
		}
		writeJSON(w, http.StatusOK, standings)
	}
}

func handlePublicTeam(s game.Store, a *game.Admin, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := s.Team(r.Context(), chi.URLParam(r, "teamID"))
		if err != nil {
			writeErr(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, publicTeam(t, a))
	}
}
