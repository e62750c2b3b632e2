package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/playperu/escaperoom/internal/escape"
)

// AdminSessionTTL is how long an operator login stays valid.
const AdminSessionTTL = 7 * 24 * time.Hour

// Admin is the operator console. Its edits are deliberate overrides and
// may bypass the session rules the Machine enforces.
type Admin struct {
	store   AdminStore
	machine *Machine
	coord   *Coordinator
	ranker  *Ranker
	tracker *Tracker
	clock   escape.Clock
	logger  *slog.Logger
	total   int
}

func NewAdmin(s AdminStore, m *Machine) *Admin {
	return &Admin{
		store:   s,
		machine: m,
		coord:   m.coord,
		ranker:  m.ranker,
		tracker: m.tracker,
		clock:   m.clock,
		logger:  m.logger,
		total:   m.total,
	}
}

// Bootstrap seeds rooms, slots and the config document on first start.
// Existing documents are left alone.
func Bootstrap(ctx context.Context, s AdminStore, totalRooms int, adminPassword string, now time.Time) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing admin password: %w", err)
	}
	cfg := escape.Config{
		AdminPasswordHash: string(hash),
		RoomSequence:      escape.DefaultSequence(totalRooms),
		RoomNames:         map[int]string{},
		AllowTeamCreation: true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	return s.Bootstrap(ctx, escape.DefaultRooms(totalRooms), cfg)
}

// Auth

// Login checks the shared operator secret and opens a session.
func (a *Admin) Login(ctx context.Context, password string) (string, time.Time, error) {
	cfg, err := a.store.Config(ctx)
	if err != nil {
		return "", time.Time{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(cfg.AdminPasswordHash), []byte(password)) != nil {
		return "", time.Time{}, escape.ErrUnauthorized
	}
	id := uuid.NewString()
	expires := a.clock.Now().Add(AdminSessionTTL)
	if err := a.store.CreateAdminSession(ctx, id, expires); err != nil {
		return "", time.Time{}, err
	}
	a.logger.Info("operator logged in")
	return id, expires, nil
}

func (a *Admin) Authenticate(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return escape.ErrUnauthorized
	}
	ok, err := a.store.AdminSessionValid(ctx, sessionID, a.clock.Now())
	if err != nil {
		return err
	}
	if !ok {
		return escape.ErrUnauthorized
	}
	return nil
}

func (a *Admin) Logout(ctx context.Context, sessionID string) error {
	err := a.store.DeleteAdminSession(ctx, sessionID)
	if errors.Is(err, escape.ErrNotFound) {
		return nil
	}
	return err
}

// ChangePassword replaces the shared operator secret.
func (a *Admin) ChangePassword(ctx context.Context, password string) error {
	if len(password) < 4 {
		return &escape.ValidationError{Field: "password", Message: "must be at least 4 characters"}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	_, err = a.store.ModifyConfig(ctx, func(c *escape.Config) error {
		c.AdminPasswordHash = string(hash)
		c.UpdatedAt = a.clock.Now()
		return nil
	})
	return err
}

// Teams

type NewTeam struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

func (a *Admin) CreateTeam(ctx context.Context, in NewTeam) (escape.Team, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := escape.ValidateTeamName(in.Name); err != nil {
		return escape.Team{}, err
	}
	if err := escape.ValidatePassword(in.Password); err != nil {
		return escape.Team{}, err
	}
	cfg, err := a.store.Config(ctx)
	if err != nil {
		return escape.Team{}, err
	}
	if !cfg.AllowTeamCreation {
		return escape.Team{}, &escape.ValidationError{Field: "team", Message: "team creation is closed"}
	}
	if cfg.MaxTeams > 0 {
		teams, err := a.store.Teams(ctx)
		if err != nil {
			return escape.Team{}, err
		}
		if len(teams) >= cfg.MaxTeams {
			return escape.Team{}, &escape.ValidationError{Field: "team", Message: fmt.Sprintf("at most %d teams", cfg.MaxTeams)}
		}
	}

	t := escape.Team{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Password:    in.Password,
		CurrentRoom: escape.BasecampRoom,
		Status:      escape.TeamWaiting,
		CreatedAt:   a.clock.Now(),
	}
	if err := a.store.PutTeam(ctx, t); err != nil {
		return escape.Team{}, err
	}
	a.recompute(ctx, t.ID)
	a.logger.Info("team created", "team", t.ID, "name", t.Name)
	return t, nil
}

// TeamUpdate carries operator edits; nil fields are left unchanged.
type TeamUpdate struct {
	Name        *string            `json:"name,omitempty"`
	Password    *string            `json:"password,omitempty"`
	Status      *escape.TeamStatus `json:"status,omitempty"`
	CurrentRoom *int               `json:"currentRoom,omitempty"`
}

func (a *Admin) UpdateTeam(ctx context.Context, id string, u TeamUpdate) (escape.Team, error) {
	t, err := a.store.ModifyTeam(ctx, id, func(t *escape.Team) error {
		if u.Name != nil {
			name := strings.TrimSpace(*u.Name)
			if err := escape.ValidateTeamName(name); err != nil {
				return err
			}
			t.Name = name
		}
		if u.Password != nil {
			if err := escape.ValidatePassword(*u.Password); err != nil {
				return err
			}
			t.Password = *u.Password
		}
		if u.Status != nil {
			if !u.Status.Valid() {
				return &escape.ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", *u.Status)}
			}
			t.Status = *u.Status
		}
		if u.CurrentRoom != nil {
			if err := escape.ValidateRoomNumber(*u.CurrentRoom, a.total); err != nil {
				return err
			}
			t.CurrentRoom = *u.CurrentRoom
		}
		return nil
	})
	if err != nil {
		return escape.Team{}, err
	}
	a.recompute(ctx, id)
	return t, nil
}

func (a *Admin) SetTeamStatus(ctx context.Context, id string, status escape.TeamStatus) (escape.Team, error) {
	return a.UpdateTeam(ctx, id, TeamUpdate{Status: &status})
}

// SetTeamRoom moves a team to a room and lets it play there again.
func (a *Admin) SetTeamRoom(ctx context.Context, id string, room int) (escape.Team, error) {
	waiting := escape.TeamWaiting
	return a.UpdateTeam(ctx, id, TeamUpdate{CurrentRoom: &room, Status: &waiting})
}

// ResetTeamProgress sends a team back to basecamp with a fresh clock.
// Its ledgers are kept as history; the next admission into a room
// replaces that room's ledger.
func (a *Admin) ResetTeamProgress(ctx context.Context, id string) (escape.Team, error) {
	t, err := a.store.ModifyTeam(ctx, id, func(t *escape.Team) error {
		t.CurrentRoom = escape.BasecampRoom
		t.Status = escape.TeamWaiting
		t.TotalTime = 0
		t.SessionStartTime = nil
		return nil
	})
	if err != nil {
		return escape.Team{}, err
	}
	a.recompute(ctx, id)
	return t, nil
}

// ResetSessionTime clears the session start; the next admission sets it.
func (a *Admin) ResetSessionTime(ctx context.Context, id string) (escape.Team, error) {
	t, err := a.store.ModifyTeam(ctx, id, func(t *escape.Team) error {
		t.SessionStartTime = nil
		return nil
	})
	if err != nil {
		return escape.Team{}, err
	}
	a.recompute(ctx, id)
	return t, nil
}

// SessionClock is the seconds since the team's session started.
func (a *Admin) SessionClock(t escape.Team) int {
	if t.SessionStartTime == nil {
		return 0
	}
	return max(0, int(a.clock.Now().Sub(*t.SessionStartTime)/time.Second))
}

func (a *Admin) DeleteTeam(ctx context.Context, id string) error {
	if err := a.store.DeleteTeam(ctx, id); err != nil {
		return err
	}
	a.logger.Info("team deleted", "team", id)
	return nil
}

func (a *Admin) TeamHistory(ctx context.Context, id string) ([]escape.ProgressRecord, error) {
	if _, err := a.store.Team(ctx, id); err != nil {
		return nil, err
	}
	return a.tracker.History(ctx, id)
}

func (a *Admin) recompute(ctx context.Context, teamID string) {
	if _, err := a.ranker.Recompute(ctx, teamID, ""); err != nil {
		a.logger.Error("leaderboard recompute failed", "team", teamID, "error", err)
	}
}

// Rooms

// RoomUpdate carries content edits; nil fields are left unchanged.
type RoomUpdate struct {
	Puzzle          *string `json:"puzzle,omitempty"`
	Narration       *string `json:"narration,omitempty"`
	CorrectCode     *string `json:"correctCode,omitempty"`
	Hint            *string `json:"hint,omitempty"`
	TimerDuration   *int    `json:"timerDuration,omitempty"`
	MaxAttempts     *int    `json:"maxAttempts,omitempty"`
	LevelUpMessage  *string `json:"levelUpMessage,omitempty"`
	GameOverMessage *string `json:"gameOverMessage,omitempty"`
}

func (a *Admin) UpdateRoom(ctx context.Context, n int, u RoomUpdate) (escape.Room, error) {
	if err := escape.ValidateRoomNumber(n, a.total); err != nil {
		return escape.Room{}, err
	}
	return a.store.ModifyRoom(ctx, n, func(r *escape.Room) error {
		set(&r.Puzzle, u.Puzzle)
		set(&r.Narration, u.Narration)
		set(&r.CorrectCode, u.CorrectCode)
		set(&r.Hint, u.Hint)
		set(&r.TimerDuration, u.TimerDuration)
		set(&r.MaxAttempts, u.MaxAttempts)
		set(&r.LevelUpMessage, u.LevelUpMessage)
		set(&r.GameOverMessage, u.GameOverMessage)
		return escape.ValidateRoom(*r, a.total)
	})
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// RenameRoom sets a display name; an empty name restores the default.
func (a *Admin) RenameRoom(ctx context.Context, n int, name string) (escape.Config, error) {
	if err := escape.ValidateRoomNumber(n, a.total); err != nil {
		return escape.Config{}, err
	}
	name = strings.TrimSpace(name)
	return a.store.ModifyConfig(ctx, func(c *escape.Config) error {
		if c.RoomNames == nil {
			c.RoomNames = map[int]string{}
		}
		if name == "" {
			delete(c.RoomNames, n)
		} else {
			c.RoomNames[n] = name
		}
		c.UpdatedAt = a.clock.Now()
		return nil
	})
}

// SetRoomSequence reorders the rooms as listed on displays. seq must be a
// permutation of 1..totalRooms.
func (a *Admin) SetRoomSequence(ctx context.Context, seq []int) (escape.Config, error) {
	sorted := slices.Sorted(slices.Values(seq))
	if !slices.Equal(sorted, escape.DefaultSequence(a.total)) {
		return escape.Config{}, &escape.ValidationError{Field: "roomSequence", Message: fmt.Sprintf("must list rooms 1..%d once each", a.total)}
	}
	for i, n := range seq {
		pos := i + 1
		if _, err := a.store.ModifyRoom(ctx, n, func(r *escape.Room) error {
			r.Sequence = pos
			return nil
		}); err != nil {
			return escape.Config{}, err
		}
	}
	return a.store.ModifyConfig(ctx, func(c *escape.Config) error {
		c.RoomSequence = slices.Clone(seq)
		c.UpdatedAt = a.clock.Now()
		return nil
	})
}

// EventSettings carries config edits; nil fields are left unchanged.
type EventSettings struct {
	MaxTeams          *int  `json:"maxTeams,omitempty"`
	AllowTeamCreation *bool `json:"allowTeamCreation,omitempty"`
}

func (a *Admin) UpdateSettings(ctx context.Context, s EventSettings) (escape.Config, error) {
	return a.store.ModifyConfig(ctx, func(c *escape.Config) error {
		if s.MaxTeams != nil {
			if *s.MaxTeams < 0 {
				return &escape.ValidationError{Field: "maxTeams", Message: "must not be negative"}
			}
			c.MaxTeams = *s.MaxTeams
		}
		set(&c.AllowTeamCreation, s.AllowTeamCreation)
		c.UpdatedAt = a.clock.Now()
		return nil
	})
}

// Slots

func (a *Admin) SeatTeam(ctx context.Context, room int, teamID string) (View, error) {
	return a.machine.Seat(ctx, room, teamID)
}

func (a *Admin) ClearRoom(ctx context.Context, room int) error {
	return a.machine.Clear(ctx, room)
}

// SlotAction names an operator timer control.
type SlotAction string

const (
	ActionStart  SlotAction = "start"
	ActionPause  SlotAction = "pause"
	ActionResume SlotAction = "resume"
	ActionReset  SlotAction = "reset"
	ActionReplay SlotAction = "replay"
)

func (a *Admin) ControlSlot(ctx context.Context, room int, action SlotAction) (escape.ActiveRoomSlot, error) {
	if err := escape.ValidateRoomNumber(room, a.total); err != nil {
		return escape.ActiveRoomSlot{}, err
	}
	var op func(context.Context, int) (escape.ActiveRoomSlot, error)
	switch action {
	case ActionStart:
		op = a.coord.StartTimer
	case ActionPause:
		op = a.coord.Pause
	case ActionResume:
		op = a.coord.Resume
	case ActionReset:
		op = a.coord.ResetTimer
	case ActionReplay:
		op = a.coord.TriggerReplay
	default:
		return escape.ActiveRoomSlot{}, &escape.ValidationError{Field: "action", Message: fmt.Sprintf("unknown action %q", action)}
	}
	unlock := a.machine.lock(room)
	defer unlock()
	slot, err := op(ctx, room)
	if err != nil {
		return escape.ActiveRoomSlot{}, err
	}
	a.logger.Info("operator timer control", "room", room, "action", action)
	return slot, nil
}

// Leaderboard

func (a *Admin) OverrideEntry(ctx context.Context, teamID string, o EntryOverride) (escape.LeaderboardEntry, error) {
	return a.ranker.Override(ctx, teamID, o)
}

func (a *Admin) RefreshLeaderboard(ctx context.Context) (int, error) {
	return a.ranker.RefreshAll(ctx)
}

// Resets

// ResetScope selects what a bulk reset wipes.
type ResetScope string

const (
	ResetTeams       ResetScope = "teams"
	ResetProgress    ResetScope = "progress"
	ResetLeaderboard ResetScope = "leaderboard"
	// ResetRooms frees every room; occupants go back to waiting.
	ResetRooms       ResetScope = "rooms"
	ResetEverything  ResetScope = "all"
)

func (a *Admin) Reset(ctx context.Context, scope ResetScope) error {
	var err error
	switch scope {
	case ResetTeams:
		err = a.store.ResetAllTeamData(ctx, a.total)
	case ResetProgress:
		err = a.store.ResetAllProgress(ctx, a.total)
	case ResetLeaderboard:
		err = a.store.ResetLeaderboard(ctx)
	case ResetRooms:
		err = a.freeAllRooms(ctx)
	case ResetEverything:
		err = a.store.ResetAll(ctx, a.total)
	default:
		return &escape.ValidationError{Field: "scope", Message: fmt.Sprintf("unknown reset scope %q", scope)}
	}
	if err != nil {
		return err
	}
	a.logger.Warn("bulk reset", "scope", scope)
	if scope == ResetProgress {
		if _, err := a.ranker.RefreshAll(ctx); err != nil {
			a.logger.Error("leaderboard refresh after reset", "error", err)
		}
	}
	return nil
}

func (a *Admin) freeAllRooms(ctx context.Context) error {
	slots, err := a.store.Slots(ctx)
	if err != nil {
		return err
	}
	for _, slot := range slots {
		if !slot.Occupied() {
			continue
		}
		_, err := a.store.ModifyTeam(ctx, *slot.CurrentTeamID, func(t *escape.Team) error {
			if t.Status == escape.TeamActive {
				t.Status = escape.TeamWaiting
			}
			return nil
		})
		if err != nil && !errors.Is(err, escape.ErrNotFound) {
			return err
		}
	}
	return a.store.InitSlots(ctx, a.total)
}
