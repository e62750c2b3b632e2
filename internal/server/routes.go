package server

import (
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"
)

func addRoutes(r chi.Router, d Deps) {
	broker := NewBroker(d.Feed)
	logger := d.Logger

	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("Escape Room API", "/openapi.json", "/docs"))

	// Room displays and players.
	r.Route("/api/rooms", func(r chi.Router) {
		r.Get("/", handleListRooms(d.Store, d.Machine, logger))
		r.Route("/{room}", func(r chi.Router) {
			r.Get("/", handleEnterRoom(d.Machine, logger))
			r.Get("/teams", handleRoomTeams(d.Store, d.Machine, logger))
			r.Get("/session", handleSession(d.Machine, logger))
			r.Post("/select", handleSelectTeam(d.Machine, logger))
			r.Post("/submit", handleSubmit(d.Machine, logger))
			r.Post("/basecamp", handleBasecamp(d.Machine, logger))
			r.Post("/timeout", handleTimeout(d.Machine, logger))
			r.Get("/next", handleContinue(d.Machine, logger))
			r.Get("/events", handleRoomEvents(d.Machine, broker, logger))
		})
	})
	r.Get("/api/teams/{teamID}", handlePublicTeam(d.Store, d.Admin, logger))
	r.Get("/api/leaderboard", handleLeaderboard(d.Ranker, logger))
	r.Get("/api/leaderboard/events", handleLeaderboardEvents(d.Ranker, broker, logger))

	// Operator console; everything past login needs the session cookie.
	r.Route("/api/admin", func(r chi.Router) {
		r.Post("/login", handleAdminLogin(d.Admin, logger))
		r.Post("/logout", handleAdminLogout(d.Admin, logger))
		r.Get("/me", handleAdminMe(d.Admin))

		r.Group(func(r chi.Router) {
			r.Use(adminAuthMiddleware(d.Admin, logger))

			r.Get("/teams", handleAdminListTeams(d.Store, d.Admin, logger))
			r.Post("/teams", handleAdminCreateTeam(d.Admin, logger))
			r.Patch("/teams/{teamID}", handleAdminUpdateTeam(d.Admin, logger))
			r.Delete("/teams/{teamID}", handleAdminDeleteTeam(d.Admin, logger))
			r.Post("/teams/{teamID}/status", handleAdminSetStatus(d.Admin, logger))
			r.Post("/teams/{teamID}/room", handleAdminSetRoom(d.Admin, logger))
			r.Post("/teams/{teamID}/reset-progress", handleAdminResetProgress(d.Admin, logger))
			r.Post("/teams/{teamID}/reset-session", handleAdminResetSession(d.Admin, logger))
			r.Get("/teams/{teamID}/progress", handleAdminTeamProgress(d.Admin, logger))

			r.Get("/rooms", handleAdminListRooms(d.Store, d.Machine.TotalRooms(), logger))
			r.Put("/rooms/sequence", handleAdminRoomSequence(d.Admin, logger))
			r.Patch("/rooms/{room}", handleAdminUpdateRoom(d.Admin, logger))
			r.Put("/rooms/{room}/name", handleAdminRenameRoom(d.Admin, logger))
			r.Get("/rooms/{room}/qr", handleRoomQR(d.PublicURL, d.Machine.TotalRooms(), logger))

			r.Get("/slots", handleAdminListSlots(d.Store, logger))
			r.Post("/rooms/{room}/assign", handleAdminAssign(d.Admin, logger))
			r.Post("/rooms/{room}/clear", handleAdminClear(d.Admin, logger))
			r.Post("/rooms/{room}/timer/{action}", handleAdminTimer(d.Admin, logger))

			r.Patch("/leaderboard/{teamID}", handleAdminOverride(d.Admin, logger))
			r.Post("/leaderboard/refresh", handleAdminRefresh(d.Admin, logger))

			r.Get("/config", handleAdminConfig(d.Store, logger))
			r.Patch("/config", handleAdminUpdateConfig(d.Admin, logger))
			r.Put("/config/password", handleAdminPassword(d.Admin, logger))
			r.Post("/reset/{scope}", handleAdminReset(d.Admin, logger))
		})
	})

	r.With(adminAuthMiddleware(d.Admin, logger)).Get("/ws/changes", handleChangeStream(broker, logger))

	if d.SPADir != "" {
		if info, err := os.Stat(d.SPADir); err == nil && info.IsDir() {
			logger.Info("serving SPA", "dir", d.SPADir)
			r.NotFound(handleSPA(d.SPADir))
		}
	}
}
