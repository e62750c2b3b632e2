package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/playperu/escaperoom/internal/escape"
	"github.com/playperu/escaperoom/internal/game"
)

// RoomSummary is the public listing of a room. It never carries the code.
type RoomSummary struct {
	RoomNumber    int    `json:"roomNumber"`
	Name          string `json:"name"`
	Sequence      int    `json:"sequence"`
	TimerDuration int    `json:"timerDuration"`
	MaxAttempts   int    `json:"maxAttempts"`
	Occupied      bool   `json:"occupied"`
	TimeRemaining int    `json:"timeRemaining"`
}

// TeamOption is a team offered on a room's selection screen.
type TeamOption struct {
	ID     string            `json:"id"`
	Name   string            `json:"name"`
	Status escape.TeamStatus `json:"status"`
}

// SelectTeamRequest is the request body for POST /api/rooms/{room}/select.
type SelectTeamRequest struct {
	TeamID   string `json:"teamId"`
	Password string `json:"password"`
}

// SubmitCodeRequest is the request body for POST /api/rooms/{room}/submit.
type SubmitCodeRequest struct {
	TeamID string `json:"teamId"`
	Code   string `json:"code"`
}

// TeamActionRequest names the acting team.
type TeamActionRequest struct {
	TeamID string `json:"teamId"`
}

func handleListRooms(s game.Store, m *game.Machine, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		rooms, err := s.Rooms(ctx)
		if err != nil {
			writeErr(w, logger, err)
			return
		}
		cfg, err := s.Config(ctx)
		if err != nil && !errors.Is(err, escape.ErrNotFound) {
			writeErr(w, logger, err)
			return
		}
		slots, err := s.Slots(ctx)
		if err != nil {
			writeErr(w, logger, err)
			return
		}
		byRoom := make(map[int]escape.ActiveRoomSlot, len(slots))
		for _, sl := range slots {
			byRoom[sl.RoomNumber] = sl
		}

		out := make([]RoomSummary, 0, len(rooms))
		for _, room := range rooms {
			sl := byRoom[room.RoomNumber]
			sum := RoomSummary{
				RoomNumber:  room.RoomNumber,
				Name:        cfg.RoomName(room.RoomNumber, m.TotalRooms()),
				Sequence:    room.Sequence,
				MaxAttempts: room.MaxAttempts,
				Occupied:    sl.Occupied(),
			}
			if room.Timed() {
				sum.TimerDuration = room.TimerDuration
				sum.TimeRemaining = escape.Remaining(sl.Timer(), room.TimerDuration, m.Now())
			}
			out = append(out, sum)
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func handleEnterRoom(m *game.Machine, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		room, err := roomParam(r)
		if err != nil {
			writeErr(w, logger, err)
			return
		}
		v, err := m.Enter(r.Context(), room)
		if err != nil {
			writeErr(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

// handleRoomTeams lists the teams due in a room that may still play.
func handleRoomTeams(s game.Store, m *game.Machine, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		room, err := roomParam(r)
		if err == nil {
			err = escape.ValidateRoomNumber(room, m.TotalRooms())
		}
		if err != nil {
			writeErr(w, logger, err)
			return
		}
		teams, err := s.TeamsByRoom(r.Context(), room)
		if err != nil {
			writeErr(w, logger, err)
			return
		}
		out := make([]TeamOption, 0, len(teams))
		for _, t := range teams {
			if t.Status != escape.TeamWaiting && t.Status != escape.TeamActive {
				continue
			}
			out = append(out, TeamOption{ID: t.ID, Name: t.Name, Status: t.Status})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func handleSession(m *game.Machine, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		room, err := roomParam(r)
		if err != nil {
			writeErr(w, logger, err)
			return
		}
		teamID := r.URL.Query().Get("teamId")
		if teamID == "" {
			writeError(w, http.StatusBadRequest, "teamId query parameter required")
			return
		}
		v, err := m.Session(r.Context(), room, teamID)
		if err != nil {
			writeErr(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

func handleSelectTeam(m *game.Machine, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		room, err := roomParam(r)
		if err != nil {
			writeErr(w, logger, err)
			return
		}
		var req SelectTeamRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.TeamID == "" {
			writeError(w, http.StatusBadRequest, "teamId is required")
			return
		}
		v, err := m.SelectTeam(r.Context(), room, req.TeamID, req.Password)
		if err != nil {
			writeErr(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

func handleSubmit(m *game.Machine, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		room, err := roomParam(r)
		if err != nil {
			writeErr(w, logger, err)
			return
		}
		var req SubmitCodeRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		v, err := m.Submit(r.Context(), room, req.TeamID, req.Code)
		if err != nil {
			writeErr(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

func handleBasecamp(m *game.Machine, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		room, err := roomParam(r)
		if err != nil {
			writeErr(w, logger, err)
			return
		}
		if room != escape.BasecampRoom {
			writeError(w, http.StatusBadRequest, "continue is only available at basecamp")
			return
		}
		var req TeamActionRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		v, err := m.ContinueBasecamp(r.Context(), req.TeamID)
		if err != nil {
			writeErr(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

// handleTimeout lets a display report its countdown reaching zero. The
// server checks the timer itself; the watcher covers displays that
// never report.
func handleTimeout(m *game.Machine, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		room, err := roomParam(r)
		if err != nil {
			writeErr(w, logger, err)
			return
		}
		var req TeamActionRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		v, err := m.Timeout(r.Context(), room, req.TeamID)
		if err != nil {
			writeErr(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

func handleContinue(m *game.Machine, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		room, err := roomParam(r)
		if err != nil {
			writeErr(w, logger, err)
			return
		}
		v, err := m.Continue(r.Context(), room)
		if err != nil {
			writeErr(w, logger, err)
			return
		}
		w.Header().Set("Location", "/api/rooms/"+strconv.Itoa(v.Room))
		writeJSON(w, http.StatusOK, v)
	}
}
