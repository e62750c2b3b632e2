package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"

	"github.com/playperu/escaperoom/internal/escape"
	"github.com/playperu/escaperoom/internal/game"
	"github.com/playperu/escaperoom/internal/store"
)

// HealthCheck documents one entry of the /healthz report.
type HealthCheck struct {
	Status    string `json:"status"`
	LatencyMS int64  `json:"latency_ms"`
}

// operation describes one documented route.
type operation struct {
	method, path      string
	summary, describe string
	req               any
	resp              any
	status            int
	contentType       string
	errors            []int
}

const cookieNote = " Requires admin_session cookie."

func operations() []operation {
	return []operation{
		{method: http.MethodGet, path: "/healthz", summary: "Health check",
			describe: "Returns the health status of backend dependencies.",
			resp:     map[string]HealthCheck{}},

		// Room displays.
		{method: http.MethodGet, path: "/api/rooms", summary: "List rooms",
			describe: "Rooms in display order with occupancy and remaining time. Never includes codes.",
			resp:     []RoomSummary{}},
		{method: http.MethodGet, path: "/api/rooms/{room}", summary: "Enter room",
			describe: "The screen a display shows when it opens the room.",
			resp:     game.View{}, errors: []int{http.StatusBadRequest, http.StatusNotFound}},
		{method: http.MethodGet, path: "/api/rooms/{room}/teams", summary: "Teams due in room",
			describe: "Teams whose current room is this one and that may still play.",
			resp:     []TeamOption{}, errors: []int{http.StatusBadRequest}},
		{method: http.MethodGet, path: "/api/rooms/{room}/session", summary: "Session view",
			describe: "The playing screen for a team already admitted. Pass teamId as a query parameter.",
			resp:     game.View{}, errors: []int{http.StatusBadRequest, http.StatusConflict}},
		{method: http.MethodPost, path: "/api/rooms/{room}/select", summary: "Select team",
			describe: "Checks the team password, claims the room and starts its timer.",
			req:      SelectTeamRequest{}, resp: game.View{},
			errors: []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusConflict}},
		{method: http.MethodPost, path: "/api/rooms/{room}/submit", summary: "Submit code",
			describe: "Checks a code. Returns level-up, victory, game-over or the playing screen with fewer attempts.",
			req:      SubmitCodeRequest{}, resp: game.View{},
			errors: []int{http.StatusBadRequest, http.StatusConflict}},
		{method: http.MethodPost, path: "/api/rooms/{room}/basecamp", summary: "Leave basecamp",
			describe: "Sends the team on to the first puzzle room.",
			req:      TeamActionRequest{}, resp: game.View{},
			errors: []int{http.StatusBadRequest, http.StatusConflict}},
		{method: http.MethodPost, path: "/api/rooms/{room}/timeout", summary: "Report timeout",
			describe: "A display reports its countdown reached zero. Refused while time remains.",
			req:      TeamActionRequest{}, resp: game.View{},
			errors: []int{http.StatusBadRequest, http.StatusConflict}},
		{method: http.MethodGet, path: "/api/rooms/{room}/next", summary: "Next room",
			describe: "After a level-up, the display moves on to the following room.",
			resp:     game.View{}, errors: []int{http.StatusBadRequest}},
		{method: http.MethodGet, path: "/api/rooms/{room}/events", summary: "Room event stream",
			describe: "Server-Sent Events: view snapshots on every relevant change and narration events.",
			contentType: "text/event-stream"},

		// Public boards.
		{method: http.MethodGet, path: "/api/teams/{teamID}", summary: "Team status",
			describe: "A team's progress and session clock, without its password.",
			resp:     PublicTeam{}, errors: []int{http.StatusNotFound}},
		{method: http.MethodGet, path: "/api/leaderboard", summary: "Leaderboard",
			describe: "Ranked standings.",
			resp:     []escape.Standing{}},
		{method: http.MethodGet, path: "/api/leaderboard/events", summary: "Leaderboard stream",
			describe: "Server-Sent Events: ranked standings after every leaderboard change.",
			contentType: "text/event-stream"},

		// Operator console.
		{method: http.MethodPost, path: "/api/admin/login", summary: "Admin login",
			describe: "Authenticate with the operator password. Sets admin_session cookie.",
			req:      AdminLoginRequest{}, resp: AdminMeResponse{}, errors: []int{http.StatusUnauthorized}},
		{method: http.MethodPost, path: "/api/admin/logout", summary: "Admin logout",
			describe: "Clears admin session and cookie."},
		{method: http.MethodGet, path: "/api/admin/me", summary: "Session check",
			describe: "Reports whether the admin_session cookie is valid.",
			resp:     AdminMeResponse{}, errors: []int{http.StatusUnauthorized}},
		{method: http.MethodGet, path: "/api/admin/teams", summary: "List teams",
			describe: "All teams with passwords and session clocks." + cookieNote,
			resp:     []AdminTeam{}, errors: []int{http.StatusUnauthorized}},
		{method: http.MethodPost, path: "/api/admin/teams", summary: "Create team",
			describe: "Creates a team at basecamp." + cookieNote,
			req:      game.NewTeam{}, resp: AdminTeam{}, status: http.StatusCreated,
			errors: []int{http.StatusBadRequest, http.StatusUnauthorized}},
		{method: http.MethodPatch, path: "/api/admin/teams/{teamID}", summary: "Update team",
			describe: "Edits name, password, status or current room." + cookieNote,
			req:      game.TeamUpdate{}, resp: AdminTeam{},
			errors: []int{http.StatusBadRequest, http.StatusNotFound, http.StatusUnauthorized}},
		{method: http.MethodDelete, path: "/api/admin/teams/{teamID}", summary: "Delete team",
			describe: "Deletes a team, its ledgers and its leaderboard entry, and frees its room." + cookieNote,
			errors:   []int{http.StatusNotFound, http.StatusUnauthorized}},
		{method: http.MethodPost, path: "/api/admin/teams/{teamID}/status", summary: "Set team status",
			describe: "Overrides a team's status." + cookieNote,
			req:      TeamStatusRequest{}, resp: AdminTeam{},
			errors: []int{http.StatusBadRequest, http.StatusNotFound, http.StatusUnauthorized}},
		{method: http.MethodPost, path: "/api/admin/teams/{teamID}/room", summary: "Move team",
			describe: "Moves a team to a room and lets it play there." + cookieNote,
			req:      TeamRoomRequest{}, resp: AdminTeam{},
			errors: []int{http.StatusBadRequest, http.StatusNotFound, http.StatusUnauthorized}},
		{method: http.MethodPost, path: "/api/admin/teams/{teamID}/reset-progress", summary: "Reset team progress",
			describe: "Sends a team back to basecamp with a fresh clock." + cookieNote,
			resp:     AdminTeam{}, errors: []int{http.StatusNotFound, http.StatusUnauthorized}},
		{method: http.MethodPost, path: "/api/admin/teams/{teamID}/reset-session", summary: "Reset session clock",
			describe: "Clears the session start; the next admission sets it." + cookieNote,
			resp:     AdminTeam{}, errors: []int{http.StatusNotFound, http.StatusUnauthorized}},
		{method: http.MethodGet, path: "/api/admin/teams/{teamID}/progress", summary: "Team history",
			describe: "Every room ledger of a team with attempted codes." + cookieNote,
			resp:     []escape.ProgressRecord{}, errors: []int{http.StatusNotFound, http.StatusUnauthorized}},
		{method: http.MethodGet, path: "/api/admin/rooms", summary: "List rooms with codes",
			describe: "Full room content." + cookieNote,
			resp:     []AdminRoom{}, errors: []int{http.StatusUnauthorized}},
		{method: http.MethodPut, path: "/api/admin/rooms/sequence", summary: "Reorder rooms",
			describe: "Sets display order; must list every room once." + cookieNote,
			req:      RoomSequenceRequest{}, resp: ConfigView{},
			errors: []int{http.StatusBadRequest, http.StatusUnauthorized}},
		{method: http.MethodPatch, path: "/api/admin/rooms/{room}", summary: "Edit room",
			describe: "Edits puzzle, code, hint, timer, attempts or messages." + cookieNote,
			req:      game.RoomUpdate{}, resp: escape.Room{},
			errors: []int{http.StatusBadRequest, http.StatusNotFound, http.StatusUnauthorized}},
		{method: http.MethodPut, path: "/api/admin/rooms/{room}/name", summary: "Rename room",
			describe: "Sets a display name; empty restores the default." + cookieNote,
			req:      RoomNameRequest{}, resp: ConfigView{},
			errors: []int{http.StatusBadRequest, http.StatusUnauthorized}},
		{method: http.MethodGet, path: "/api/admin/rooms/{room}/qr", summary: "Room QR code",
			describe: "PNG QR code linking to the room display." + cookieNote,
			contentType: "image/png", errors: []int{http.StatusBadRequest, http.StatusUnauthorized}},
		{method: http.MethodGet, path: "/api/admin/slots", summary: "Room slots",
			describe: "Occupancy and timer state of every room." + cookieNote,
			resp:     []escape.ActiveRoomSlot{}, errors: []int{http.StatusUnauthorized}},
		{method: http.MethodPost, path: "/api/admin/rooms/{room}/assign", summary: "Seat team",
			describe: "Seats a team in a room, evicting any occupant." + cookieNote,
			req:      AssignRequest{}, resp: game.View{},
			errors: []int{http.StatusBadRequest, http.StatusNotFound, http.StatusUnauthorized}},
		{method: http.MethodPost, path: "/api/admin/rooms/{room}/clear", summary: "Clear room",
			describe: "Frees a room; the occupant returns to waiting." + cookieNote,
			errors:   []int{http.StatusBadRequest, http.StatusUnauthorized}},
		{method: http.MethodPost, path: "/api/admin/rooms/{room}/timer/{action}", summary: "Timer control",
			describe: "start, pause, resume, reset or replay." + cookieNote,
			resp:     escape.ActiveRoomSlot{}, errors: []int{http.StatusBadRequest, http.StatusUnauthorized}},
		{method: http.MethodPatch, path: "/api/admin/leaderboard/{teamID}", summary: "Override entry",
			describe: "Edits a leaderboard entry until the next recompute." + cookieNote,
			req:      game.EntryOverride{}, resp: escape.LeaderboardEntry{},
			errors: []int{http.StatusBadRequest, http.StatusNotFound, http.StatusUnauthorized}},
		{method: http.MethodPost, path: "/api/admin/leaderboard/refresh", summary: "Refresh leaderboard",
			describe: "Recomputes every entry from team and ledger state." + cookieNote,
			errors:   []int{http.StatusUnauthorized}},
		{method: http.MethodGet, path: "/api/admin/config", summary: "Event config",
			describe: "Room order, names and team limits." + cookieNote,
			resp:     ConfigView{}, errors: []int{http.StatusUnauthorized}},
		{method: http.MethodPatch, path: "/api/admin/config", summary: "Update config",
			describe: "Edits team limits." + cookieNote,
			req:      game.EventSettings{}, resp: ConfigView{},
			errors: []int{http.StatusBadRequest, http.StatusUnauthorized}},
		{method: http.MethodPut, path: "/api/admin/config/password", summary: "Change operator password",
			describe: "Replaces the shared operator secret." + cookieNote,
			req:      PasswordRequest{}, errors: []int{http.StatusBadRequest, http.StatusUnauthorized}},
		{method: http.MethodPost, path: "/api/admin/reset/{scope}", summary: "Bulk reset",
			describe: "Scope is teams, progress, leaderboard, rooms or all." + cookieNote,
			errors:   []int{http.StatusBadRequest, http.StatusUnauthorized}},
		{method: http.MethodGet, path: "/ws/changes", summary: "Change stream",
			describe: "WebSocket of document changes. Narrow with ?topics=teams,activeRooms/3." + cookieNote,
			resp:     store.Change{}, status: http.StatusSwitchingProtocols,
			errors: []int{http.StatusUnauthorized}},
	}
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "Escape Room API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Backend API for room displays, the leaderboard and the operator console.")

	for _, op := range operations() {
		oc, err := r.NewOperationContext(op.method, op.path)
		if err != nil {
			continue
		}
		oc.SetSummary(op.summary)
		oc.SetDescription(op.describe)
		if op.req != nil {
			oc.AddReqStructure(op.req)
		}
		status := op.status
		if status == 0 {
			status = http.StatusOK
		}
		switch {
		case op.contentType != "":
			oc.AddRespStructure(nil, openapi.WithHTTPStatus(status), openapi.WithContentType(op.contentType))
		default:
			oc.AddRespStructure(op.resp, openapi.WithHTTPStatus(status))
		}
		for _, code := range op.errors {
			oc.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(code))
		}
		_ = r.AddOperation(oc)
	}

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
