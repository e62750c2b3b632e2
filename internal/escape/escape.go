// Package escape defines the escape-room domain: documents, statuses,
// the timer engine and leaderboard ordering. It performs no I/O.
package escape

import (
	"fmt"
	"time"
)

// BasecampRoom is the onboarding room: no timer, no code check.
const BasecampRoom = 1

const (
	DefaultTotalRooms    = 6
	DefaultTimerDuration = 300
	DefaultMaxAttempts   = 5
)

type TeamStatus string

const (
	TeamWaiting    TeamStatus = "waiting"
	TeamActive     TeamStatus = "active"
	TeamEliminated TeamStatus = "eliminated"
	TeamCompleted  TeamStatus = "completed"
)

func (s TeamStatus) Valid() bool {
	switch s {
	case TeamWaiting, TeamActive, TeamEliminated, TeamCompleted:
		return true
	}
	return false
}

type ProgressStatus string

const (
	ProgressNotStarted ProgressStatus = "not-started"
	ProgressInProgress ProgressStatus = "in-progress"
	ProgressCompleted  ProgressStatus = "completed"
	ProgressFailed     ProgressStatus = "failed"
)

// Terminal reports whether no further transition is allowed.
func (s ProgressStatus) Terminal() bool {
	return s == ProgressCompleted || s == ProgressFailed
}

type Team struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Password    string     `json:"password"`
	CurrentRoom int        `json:"currentRoom"`
	Status      TeamStatus `json:"status"`
	TotalTime   int        `json:"totalTime"`
	// SessionStartTime is set on the first successful password entry and
	// cleared only by an administrative reset.
	SessionStartTime *time.Time `json:"sessionStartTime"`
	CreatedAt        time.Time  `json:"createdAt"`
}

type Room struct {
	RoomNumber      int    `json:"roomNumber"`
	Puzzle          string `json:"puzzle"`
	Narration       string `json:"narration"`
	CorrectCode     string `json:"correctCode"`
	Hint            string `json:"hint"`
	TimerDuration   int    `json:"timerDuration"`
	MaxAttempts     int    `json:"maxAttempts"`
	LevelUpMessage  string `json:"levelUpMessage"`
	GameOverMessage string `json:"gameOverMessage"`
	Sequence        int    `json:"sequence"`
}

func (r Room) IsBasecamp() bool { return r.RoomNumber == BasecampRoom }

// Timed reports whether a countdown runs while the room is occupied.
func (r Room) Timed() bool { return !r.IsBasecamp() && r.TimerDuration > 0 }

// ActiveRoomSlot is the single-occupant reservation for a room. Timer
// fields are meaningful only while CurrentTeamID is set.
type ActiveRoomSlot struct {
	RoomNumber       int        `json:"roomNumber"`
	CurrentTeamID    *string    `json:"currentTeamId"`
	TimerStarted     *time.Time `json:"timerStarted"`
	TimerPaused      bool       `json:"timerPaused"`
	TimerPausedAt    *time.Time `json:"timerPausedAt,omitempty"`
	ManualTTSTrigger int        `json:"manualTTSTrigger"`
}

func (s ActiveRoomSlot) Occupied() bool { return s.CurrentTeamID != nil }

// HeldBy reports whether teamID currently occupies the slot.
func (s ActiveRoomSlot) HeldBy(teamID string) bool {
	return s.CurrentTeamID != nil && *s.CurrentTeamID == teamID
}

func (s ActiveRoomSlot) Timer() TimerState {
	return TimerState{Started: s.TimerStarted, Paused: s.TimerPaused, PausedAt: s.TimerPausedAt}
}

type AttemptRecord struct {
	Code      string    `json:"code"`
	Timestamp time.Time `json:"timestamp"`
	Correct   bool      `json:"correct"`
}

type ProgressRecord struct {
	ID                string          `json:"id"`
	TeamID            string          `json:"teamId"`
	RoomNumber        int             `json:"roomNumber"`
	Attempts          []AttemptRecord `json:"attempts"`
	AttemptsRemaining int             `json:"attemptsRemaining"`
	StartTime         *time.Time      `json:"startTime"`
	EndTime           *time.Time      `json:"endTime"`
	Status            ProgressStatus  `json:"status"`
	TimeElapsed       int             `json:"timeElapsed"`
}

// ProgressID is the document key for a (team, room) ledger.
func ProgressID(teamID string, roomNumber int) string {
	return fmt.Sprintf("%s_%d", teamID, roomNumber)
}

// LeaderboardEntry is a disposable projection of Team and ProgressRecord
// state. Recompute overwrites it wholesale.
type LeaderboardEntry struct {
	TeamID           string     `json:"teamId"`
	TeamName         string     `json:"teamName"`
	CurrentLevel     int        `json:"currentLevel"`
	RoomsCompleted   int        `json:"roomsCompleted"`
	TotalAttempts    int        `json:"totalAttempts"`
	SessionStartTime *time.Time `json:"sessionStartTime"`
	LastUpdated      time.Time  `json:"lastUpdated"`
}

// Config is the global event document.
type Config struct {
	AdminPasswordHash string         `json:"adminPasswordHash"`
	RoomSequence      []int          `json:"roomSequence"`
	RoomNames         map[int]string `json:"roomNames"`
	MaxTeams          int            `json:"maxTeams"`
	AllowTeamCreation bool           `json:"allowTeamCreation"`
	CreatedAt         time.Time      `json:"createdAt"`
	UpdatedAt         time.Time      `json:"updatedAt"`
}

// RoomName returns the operator-assigned name or the default label.
func (c Config) RoomName(roomNumber, totalRooms int) string {
	if name, ok := c.RoomNames[roomNumber]; ok && name != "" {
		return name
	}
	return DefaultRoomName(roomNumber, totalRooms)
}

func DefaultRoomName(roomNumber, totalRooms int) string {
	switch roomNumber {
	case BasecampRoom:
		return "Basecamp"
	case totalRooms:
		return "Final Room"
	}
	return fmt.Sprintf("Room %d", roomNumber)
}
