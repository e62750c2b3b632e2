package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/playperu/escaperoom/internal/escape"
)

type Screen string

const (
	ScreenTeamSelect Screen = "team-select"
	ScreenPlaying    Screen = "playing"
	ScreenLevelUp    Screen = "level-up"
	ScreenGameOver   Screen = "game-over"
	ScreenVictory    Screen = "victory"
)

type FailureReason string

const (
	ReasonTimeout  FailureReason = "timeout"
	ReasonAttempts FailureReason = "attempts"
)

// Summary is shown on the victory screen.
type Summary struct {
	TotalTime     int `json:"totalTime"`
	TotalAttempts int `json:"totalAttempts"`
}

// View is what a room display shows after an action.
type View struct {
	Room              int           `json:"room"`
	RoomName          string        `json:"roomName"`
	Screen            Screen        `json:"screen"`
	TeamID            string        `json:"teamId,omitempty"`
	TeamName          string        `json:"teamName,omitempty"`
	Puzzle            string        `json:"puzzle,omitempty"`
	Hint              string        `json:"hint,omitempty"`
	AttemptsRemaining int           `json:"attemptsRemaining"`
	MaxAttempts       int           `json:"maxAttempts"`
	TimeRemaining     int           `json:"timeRemaining"`
	TimerDuration     int           `json:"timerDuration"`
	TimerPaused       bool          `json:"timerPaused"`
	Reason            FailureReason `json:"reason,omitempty"`
	Message           string        `json:"message,omitempty"`
	NextRoom          int           `json:"nextRoom,omitempty"`
	Summary           *Summary      `json:"summary,omitempty"`
}

// Config wires a Machine.
type Config struct {
	Store       Store
	Clock       escape.Clock
	Narrator    Narrator
	Logger      *slog.Logger
	TotalRooms  int
	Tracker     *Tracker
	Coordinator *Coordinator
	Ranker      *Ranker
}

func (c *Config) validate() error {
	if c == nil {
		return errors.New("game: config is required")
	}
	if c.Store == nil {
		return errors.New("game: store is required")
	}
	if c.TotalRooms < 1 {
		return errors.New("game: total rooms must be at least 1")
	}
	return nil
}

// Machine drives room sessions. Actions on one room are serialized inside
// this process; across processes the conditional slot claim and the
// terminal ledger states decide races.
type Machine struct {
	store    Store
	clock    escape.Clock
	narrator Narrator
	logger   *slog.Logger
	total    int

	tracker *Tracker
	coord   *Coordinator
	ranker  *Ranker

	mu    sync.Mutex
	locks map[int]*sync.Mutex
}

func NewMachine(cfg *Config) (*Machine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	m := &Machine{
		store:    cfg.Store,
		clock:    cfg.Clock,
		narrator: cfg.Narrator,
		logger:   cfg.Logger,
		total:    cfg.TotalRooms,
		tracker:  cfg.Tracker,
		coord:    cfg.Coordinator,
		ranker:   cfg.Ranker,
		locks:    make(map[int]*sync.Mutex),
	}
	if m.clock == nil {
		m.clock = escape.SystemClock{}
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	if m.narrator == nil {
		m.narrator = silent{}
	}
	if m.tracker == nil {
		m.tracker = NewTracker(m.store, m.clock)
	}
	if m.coord == nil {
		m.coord = NewCoordinator(m.store, m.clock)
	}
	if m.ranker == nil {
		m.ranker = NewRanker(m.store, m.clock, m.logger)
	}
	return m, nil
}

type silent struct{}

func (silent) Speak(context.Context, int, string, bool) {}

func (m *Machine) TotalRooms() int { return m.total }

// Now is the machine's clock reading.
func (m *Machine) Now() time.Time { return m.clock.Now() }

func (m *Machine) lock(roomNumber int) func() {
	m.mu.Lock()
	l, ok := m.locks[roomNumber]
	if !ok {
		l = &sync.Mutex{}
		m.locks[roomNumber] = l
	}
	m.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// Enter is a room display (re)loading. When a valid team holds the room
// the session resumes into playing with the stored attempt budget;
// otherwise the display shows team selection.
func (m *Machine) Enter(ctx context.Context, roomNumber int) (View, error) {
	if err := escape.ValidateRoomNumber(roomNumber, m.total); err != nil {
		return View{}, err
	}
	room, err := m.store.Room(ctx, roomNumber)
	if err != nil {
		return View{}, err
	}
	slot, err := m.store.Slot(ctx, roomNumber)
	if err != nil {
		return View{}, err
	}
	selectView := m.baseView(ctx, room, slot)
	selectView.Screen = ScreenTeamSelect

	if !slot.Occupied() {
		return selectView, nil
	}
	team, err := m.store.Team(ctx, *slot.CurrentTeamID)
	if errors.Is(err, escape.ErrNotFound) {
		return selectView, nil
	}
	if err != nil {
		return View{}, err
	}
	if team.Status == escape.TeamEliminated {
		return selectView, nil
	}
	return m.playingView(ctx, room, slot, team)
}

// Session is the playing view for a team that holds the room.
func (m *Machine) Session(ctx context.Context, roomNumber int, teamID string) (View, error) {
	room, slot, team, err := m.held(ctx, roomNumber, teamID)
	if err != nil {
		return View{}, err
	}
	return m.playingView(ctx, room, slot, team)
}

func (m *Machine) playingView(ctx context.Context, room escape.Room, slot escape.ActiveRoomSlot, team escape.Team) (View, error) {
	v := m.baseView(ctx, room, slot)
	v.Screen = ScreenPlaying
	v.TeamID = team.ID
	v.TeamName = team.Name
	v.AttemptsRemaining = room.MaxAttempts
	p, err := m.tracker.Get(ctx, team.ID, room.RoomNumber)
	switch {
	case err == nil:
		v.AttemptsRemaining = p.AttemptsRemaining
	case !errors.Is(err, escape.ErrNotFound):
		return View{}, err
	}
	return v, nil
}

func (m *Machine) baseView(ctx context.Context, room escape.Room, slot escape.ActiveRoomSlot) View {
	name := escape.DefaultRoomName(room.RoomNumber, m.total)
	if cfg, err := m.store.Config(ctx); err == nil {
		name = cfg.RoomName(room.RoomNumber, m.total)
	}
	v := View{
		Room:              room.RoomNumber,
		RoomName:          name,
		Puzzle:            room.Puzzle,
		Hint:              room.Hint,
		MaxAttempts:       room.MaxAttempts,
		AttemptsRemaining: room.MaxAttempts,
		TimerPaused:       slot.TimerPaused,
	}
	if room.Timed() {
		v.TimerDuration = room.TimerDuration
		v.TimeRemaining = escape.Remaining(slot.Timer(), room.TimerDuration, m.clock.Now())
	}
	return v
}

// SelectTeam admits a team into the room after checking its password.
func (m *Machine) SelectTeam(ctx context.Context, roomNumber int, teamID, password string) (View, error) {
	if err := escape.ValidateRoomNumber(roomNumber, m.total); err != nil {
		return View{}, err
	}
	if err := escape.ValidatePassword(password); err != nil {
		return View{}, err
	}
	team, err := m.store.Team(ctx, teamID)
	if err != nil {
		return View{}, err
	}
	if team.Password != password {
		return View{}, escape.ErrWrongPassword
	}
	switch {
	case team.Status == escape.TeamEliminated:
		return View{}, escape.ErrTeamEliminated
	case team.Status == escape.TeamCompleted, team.CurrentRoom != roomNumber:
		return View{}, fmt.Errorf("%w: team is due in room %d", escape.ErrWrongRoom, team.CurrentRoom)
	}

	unlock := m.lock(roomNumber)
	defer unlock()

	room, err := m.store.Room(ctx, roomNumber)
	if err != nil {
		return View{}, err
	}
	before, err := m.coord.Slot(ctx, roomNumber)
	if err != nil {
		return View{}, err
	}
	slot, err := m.coord.Occupy(ctx, roomNumber, teamID)
	if err != nil {
		return View{}, err
	}
	claimed := !before.HeldBy(teamID)

	team, slot, err = m.admit(ctx, room, slot, team)
	if err != nil {
		if claimed {
			if _, rerr := m.coord.ReleaseIfHeld(ctx, roomNumber, teamID); rerr != nil {
				m.logger.Error("releasing room after failed admission", "room", roomNumber, "team", teamID, "error", rerr)
			}
		}
		return View{}, err
	}

	m.logger.Info("team entered room", "room", roomNumber, "team", teamID, "resumed", !claimed)
	m.narrator.Speak(ctx, roomNumber, narrationFor(room), true)
	return m.playingView(ctx, room, slot, team)
}

// admit runs the steps after a successful claim. Each step is safe to
// repeat so a re-selection finishes a half-done admission.
func (m *Machine) admit(ctx context.Context, room escape.Room, slot escape.ActiveRoomSlot, team escape.Team) (escape.Team, escape.ActiveRoomSlot, error) {
	p, err := m.tracker.Get(ctx, team.ID, room.RoomNumber)
	if errors.Is(err, escape.ErrNotFound) || (err == nil && p.Status.Terminal()) {
		_, err = m.tracker.Create(ctx, team.ID, room.RoomNumber, room.MaxAttempts)
	}
	if err != nil {
		return team, slot, err
	}

	team, err = m.store.ModifyTeam(ctx, team.ID, func(t *escape.Team) error {
		t.Status = escape.TeamActive
		if t.SessionStartTime == nil {
			now := m.clock.Now()
			t.SessionStartTime = &now
		}
		return nil
	})
	if err != nil {
		return team, slot, err
	}

	if _, err := m.tracker.Start(ctx, team.ID, room.RoomNumber); err != nil {
		return team, slot, err
	}

	if room.Timed() && slot.TimerStarted == nil {
		if slot, err = m.coord.StartTimer(ctx, room.RoomNumber); err != nil {
			return team, slot, err
		}
	}
	return team, slot, nil
}

// held loads the room and confirms teamID occupies it.
func (m *Machine) held(ctx context.Context, roomNumber int, teamID string) (escape.Room, escape.ActiveRoomSlot, escape.Team, error) {
	var (
		room escape.Room
		slot escape.ActiveRoomSlot
		team escape.Team
	)
	if err := escape.ValidateRoomNumber(roomNumber, m.total); err != nil {
		return room, slot, team, err
	}
	slot, err := m.store.Slot(ctx, roomNumber)
	if err != nil {
		return room, slot, team, err
	}
	if !slot.HeldBy(teamID) {
		return room, slot, team, escape.ErrNotPlaying
	}
	if room, err = m.store.Room(ctx, roomNumber); err != nil {
		return room, slot, team, err
	}
	if team, err = m.store.Team(ctx, teamID); err != nil {
		return room, slot, team, err
	}
	return room, slot, team, nil
}

// Submit checks a code. A wrong code costs one attempt; the last one
// eliminates the team.
func (m *Machine) Submit(ctx context.Context, roomNumber int, teamID, code string) (View, error) {
	if err := escape.ValidateCode(code); err != nil {
		return View{}, err
	}

	unlock := m.lock(roomNumber)
	defer unlock()

	room, slot, team, err := m.held(ctx, roomNumber, teamID)
	if err != nil {
		return View{}, err
	}
	if room.IsBasecamp() {
		return View{}, &escape.ValidationError{Field: "code", Message: "basecamp has no code; continue instead"}
	}

	correct := code == room.CorrectCode
	p, err := m.tracker.RecordAttempt(ctx, teamID, roomNumber, code, correct)
	if errors.Is(err, escape.ErrProgressClosed) || errors.Is(err, escape.ErrNoAttemptsLeft) {
		return View{}, escape.ErrNotPlaying
	}
	if err != nil {
		return View{}, err
	}
	m.logger.Info("code submitted", "room", roomNumber, "team", teamID, "correct", correct, "attemptsRemaining", p.AttemptsRemaining)

	switch {
	case correct:
		return m.succeed(ctx, room, slot, team, p)
	case p.AttemptsRemaining == 0:
		return m.fail(ctx, room, slot, team, ReasonAttempts)
	}
	v, err := m.playingView(ctx, room, slot, team)
	if err != nil {
		return View{}, err
	}
	v.Message = "Incorrect code"
	return v, nil
}

// ContinueBasecamp completes the onboarding room without a code or timer.
func (m *Machine) ContinueBasecamp(ctx context.Context, teamID string) (View, error) {
	unlock := m.lock(escape.BasecampRoom)
	defer unlock()

	room, slot, team, err := m.held(ctx, escape.BasecampRoom, teamID)
	if err != nil {
		return View{}, err
	}
	p, err := m.tracker.Get(ctx, teamID, escape.BasecampRoom)
	if err != nil {
		return View{}, err
	}
	return m.succeed(ctx, room, slot, team, p)
}

// Continue is the level-up screen's navigation: the next room's display
// as a fresh visit would show it. It mutates nothing.
func (m *Machine) Continue(ctx context.Context, fromRoom int) (View, error) {
	if fromRoom >= m.total {
		return View{}, &escape.ValidationError{Field: "room", Message: "there is no room after the final room"}
	}
	return m.Enter(ctx, fromRoom+1)
}

// Timeout fails the occupant whose countdown reached zero. It is a no-op
// error for a team that no longer holds the room.
func (m *Machine) Timeout(ctx context.Context, roomNumber int, teamID string) (View, error) {
	unlock := m.lock(roomNumber)
	defer unlock()

	room, slot, team, err := m.held(ctx, roomNumber, teamID)
	if err != nil {
		return View{}, err
	}
	if !room.Timed() || slot.TimerStarted == nil {
		return View{}, escape.ErrTimerRunning
	}
	if escape.Remaining(slot.Timer(), room.TimerDuration, m.clock.Now()) > 0 {
		return View{}, escape.ErrTimerRunning
	}
	return m.fail(ctx, room, slot, team, ReasonTimeout)
}

func (m *Machine) succeed(ctx context.Context, room escape.Room, slot escape.ActiveRoomSlot, team escape.Team, p escape.ProgressRecord) (View, error) {
	elapsed := 0
	if !room.IsBasecamp() {
		elapsed = escape.Elapsed(slot.Timer(), m.clock.Now())
	}
	p, err := m.tracker.Complete(ctx, team.ID, room.RoomNumber, elapsed)
	if err != nil {
		return View{}, err
	}
	if p.Status != escape.ProgressCompleted {
		return View{}, escape.ErrNotPlaying
	}

	final := room.RoomNumber == m.total
	team, err = m.store.ModifyTeam(ctx, team.ID, func(t *escape.Team) error {
		t.TotalTime += elapsed
		if final {
			t.Status = escape.TeamCompleted
			return nil
		}
		// Advance relative to the room just solved so a repeat is harmless.
		if t.CurrentRoom == room.RoomNumber {
			t.CurrentRoom = room.RoomNumber + 1
		}
		t.Status = escape.TeamWaiting
		return nil
	})
	if err != nil {
		return View{}, err
	}
	m.recompute(ctx, team)
	m.release(ctx, room.RoomNumber, team.ID)

	v := m.baseView(ctx, room, escape.ActiveRoomSlot{RoomNumber: room.RoomNumber})
	v.TeamID = team.ID
	v.TeamName = team.Name
	v.AttemptsRemaining = p.AttemptsRemaining
	v.TimeRemaining = 0

	if final {
		v.Screen = ScreenVictory
		v.Summary = &Summary{TotalTime: elapsed, TotalAttempts: room.MaxAttempts - p.AttemptsRemaining}
		v.Message = room.LevelUpMessage
		m.logger.Info("team finished the event", "room", room.RoomNumber, "team", team.ID, "elapsed", elapsed)
	} else {
		v.Screen = ScreenLevelUp
		v.NextRoom = room.RoomNumber + 1
		v.Message = room.LevelUpMessage
		m.logger.Info("team solved room", "room", room.RoomNumber, "team", team.ID, "elapsed", elapsed)
	}
	m.narrator.Speak(ctx, room.RoomNumber, v.Message, true)
	return v, nil
}

func (m *Machine) fail(ctx context.Context, room escape.Room, slot escape.ActiveRoomSlot, team escape.Team, reason FailureReason) (View, error) {
	elapsed := escape.Elapsed(slot.Timer(), m.clock.Now())
	if elapsed == 0 {
		if prev, err := m.tracker.Get(ctx, team.ID, room.RoomNumber); err == nil {
			elapsed = prev.TimeElapsed
		}
	}
	p, err := m.tracker.Fail(ctx, team.ID, room.RoomNumber, elapsed)
	if err != nil {
		return View{}, err
	}
	if p.Status != escape.ProgressFailed {
		return View{}, escape.ErrNotPlaying
	}

	team, err = m.store.ModifyTeam(ctx, team.ID, func(t *escape.Team) error {
		t.Status = escape.TeamEliminated
		t.TotalTime += elapsed
		return nil
	})
	if err != nil {
		return View{}, err
	}
	m.recompute(ctx, team)
	m.release(ctx, room.RoomNumber, team.ID)

	v := m.baseView(ctx, room, escape.ActiveRoomSlot{RoomNumber: room.RoomNumber})
	v.Screen = ScreenGameOver
	v.TeamID = team.ID
	v.TeamName = team.Name
	v.AttemptsRemaining = p.AttemptsRemaining
	v.TimeRemaining = 0
	v.Reason = reason
	v.Message = room.GameOverMessage
	m.logger.Info("team eliminated", "room", room.RoomNumber, "team", team.ID, "reason", reason)
	m.narrator.Speak(ctx, room.RoomNumber, v.Message, true)
	return v, nil
}

// recompute and release run after the outcome is durable; their failures
// are logged and healed by the leaderboard sweep and the operator console.
func (m *Machine) recompute(ctx context.Context, team escape.Team) {
	if _, err := m.ranker.Recompute(ctx, team.ID, team.Name); err != nil {
		m.logger.Error("leaderboard recompute failed", "team", team.ID, "error", err)
	}
}

func (m *Machine) release(ctx context.Context, roomNumber int, teamID string) {
	if _, err := m.coord.ReleaseIfHeld(ctx, roomNumber, teamID); err != nil {
		m.logger.Error("releasing room failed", "room", roomNumber, "team", teamID, "error", err)
	}
}

// Seat is the operator placing a team in a room without its password.
// Whoever held the room is displaced.
func (m *Machine) Seat(ctx context.Context, roomNumber int, teamID string) (View, error) {
	if err := escape.ValidateRoomNumber(roomNumber, m.total); err != nil {
		return View{}, err
	}
	team, err := m.store.Team(ctx, teamID)
	if err != nil {
		return View{}, err
	}

	unlock := m.lock(roomNumber)
	defer unlock()

	room, err := m.store.Room(ctx, roomNumber)
	if err != nil {
		return View{}, err
	}
	slot, err := m.coord.Assign(ctx, roomNumber, teamID)
	if err != nil {
		return View{}, err
	}
	team, slot, err = m.admit(ctx, room, slot, team)
	if err != nil {
		return View{}, err
	}
	m.logger.Info("operator seated team", "room", roomNumber, "team", teamID)
	return m.playingView(ctx, room, slot, team)
}

// Clear is the operator emptying a room. The occupant goes back to
// waiting without an outcome being recorded.
func (m *Machine) Clear(ctx context.Context, roomNumber int) error {
	if err := escape.ValidateRoomNumber(roomNumber, m.total); err != nil {
		return err
	}
	unlock := m.lock(roomNumber)
	defer unlock()

	slot, err := m.coord.Slot(ctx, roomNumber)
	if err != nil {
		return err
	}
	if slot.Occupied() {
		_, err := m.store.ModifyTeam(ctx, *slot.CurrentTeamID, func(t *escape.Team) error {
			if t.Status == escape.TeamActive {
				t.Status = escape.TeamWaiting
			}
			return nil
		})
		if err != nil && !errors.Is(err, escape.ErrNotFound) {
			return err
		}
	}
	_, err = m.coord.Release(ctx, roomNumber)
	return err
}
