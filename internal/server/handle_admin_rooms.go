package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/escaperoom/internal/escape"
	"github.com/playperu/escaperoom/internal/game"
)

// AdminRoom is the console view of a room, code included.
type AdminRoom struct {
	escape.Room
	Name string `json:"name"`
}

// RoomSequenceRequest is the request body for PUT /api/admin/rooms/sequence.
type RoomSequenceRequest struct {
	Sequence []int `json:"sequence"`
}

// RoomNameRequest is the request body for PUT /api/admin/rooms/{room}/name.
type RoomNameRequest struct {
	Name string `json:"name"`
}

// AssignRequest is the request body for POST /api/admin/rooms/{room}/assign.
type AssignRequest struct {
	TeamID string `json:"teamId"`
}

func handleAdminListRooms(s game.Store, total int, logger *slog.Logger) http.HandlerFunc {
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
		out := make([]AdminRoom, 0, len(rooms))
		for _, room := range rooms {
			out = append(out, AdminRoom{Room: room, Name: cfg.RoomName(room.RoomNumber, total)})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func handleAdminUpdateRoom(a *game.Admin, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		room, err := roomParam(r)
		if err != nil {
			writeErr(w, logger, err)
			return
		}
		var req game.RoomUpdate
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		updated, err := a.UpdateRoom(r.Context(), room, req)
		if err != nil {
			writeErr(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	}
}

func handleAdminRenameRoom(a *game.Admin, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		room, err := roomParam(r)
		if err != nil {
			writeErr(w, logger, err)
			return
		}
		var req RoomNameRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		cfg, err := a.RenameRoom(r.Context(), room, req.Name)
		if err != nil {
			writeErr(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, configView(cfg))
	}
}

func handleAdminRoomSequence(a *game.Admin, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RoomSequenceRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		cfg, err := a.SetRoomSequence(r.Context(), req.Sequence)
		if err != nil {
			writeErr(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, configView(cfg))
	}
}

// Slots

func handleAdminListSlots(s game.Store, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slots, err := s.Slots(r.Context())
		if err != nil {
			writeErr(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, slots)
	}
}

// handleAdminAssign seats a team in a room, evicting any occupant.
func handleAdminAssign(a *game.Admin, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		room, err := roomParam(r)
		if err != nil {
			writeErr(w, logger, err)
			return
		}
		var req AssignRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.TeamID == "" {
			writeError(w, http.StatusBadRequest, "teamId is required")
			return
		}
		v, err := a.SeatTeam(r.Context(), room, req.TeamID)
		if err != nil {
			writeErr(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

func handleAdminClear(a *game.Admin, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		room, err := roomParam(r)
		if err != nil {
			writeErr(w, logger, err)
			return
		}
		if err := a.ClearRoom(r.Context(), room); err != nil {
			writeErr(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
	}
}

// handleAdminTimer runs one of start, pause, resume, reset or replay.
func handleAdminTimer(a *game.Admin, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		room, err := roomParam(r)
		if err != nil {
			writeErr(w, logger, err)
			return
		}
		slot, err := a.ControlSlot(r.Context(), room, game.SlotAction(chi.URLParam(r, "action")))
		if err != nil {
			writeErr(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, slot)
	}
}
