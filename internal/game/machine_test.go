package game

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playperu/escaperoom/internal/escape"
)

func TestEnterShowsTeamSelectWhenIdle(t *testing.T) {
	f := newFixture(t)

	v, err := f.machine.Enter(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, ScreenTeamSelect, v.Screen)
	assert.Equal(t, 300, v.TimeRemaining)
	assert.Equal(t, "Room 3", v.RoomName)
}

func TestSelectTeamAdmitsAndStartsTimer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.team(t, "owls", 2)

	v, err := f.machine.SelectTeam(ctx, 2, "owls", "1234")
	require.NoError(t, err)
	assert.Equal(t, ScreenPlaying, v.Screen)
	assert.Equal(t, 5, v.AttemptsRemaining)
	assert.Equal(t, 300, v.TimeRemaining)

	slot, err := f.store.Slot(ctx, 2)
	require.NoError(t, err)
	require.True(t, slot.HeldBy("owls"))
	require.NotNil(t, slot.TimerStarted)
	assert.True(t, slot.TimerStarted.Equal(testStart))

	team, err := f.store.Team(ctx, "owls")
	require.NoError(t, err)
	assert.Equal(t, escape.TeamActive, team.Status)
	require.NotNil(t, team.SessionStartTime)

	p, err := f.store.Progress(ctx, "owls", 2)
	require.NoError(t, err)
	assert.Equal(t, escape.ProgressInProgress, p.Status)

	said := f.narrator.said()
	require.Len(t, said, 1)
	assert.True(t, said[0].interrupt)
}

func TestSelectTeamWrongPasswordMutatesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.team(t, "owls", 2)

	_, err := f.machine.SelectTeam(ctx, 2, "owls", "9999")
	require.ErrorIs(t, err, escape.ErrWrongPassword)

	_, err = f.machine.SelectTeam(ctx, 2, "owls", "12a4")
	require.ErrorIs(t, err, escape.ErrValidation)

	slot, err := f.store.Slot(ctx, 2)
	require.NoError(t, err)
	assert.False(t, slot.Occupied())
	_, err = f.store.Progress(ctx, "owls", 2)
	assert.ErrorIs(t, err, escape.ErrNotFound)
}

func TestSelectTeamRejectsOtherRoomAndEliminated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.team(t, "owls", 2)
	gone := f.team(t, "bats", 3)
	gone.Status = escape.TeamEliminated
	require.NoError(t, f.store.PutTeam(ctx, gone))

	_, err := f.machine.SelectTeam(ctx, 3, "owls", "1234")
	assert.ErrorIs(t, err, escape.ErrWrongRoom)

	_, err = f.machine.SelectTeam(ctx, 3, "bats", "1234")
	assert.ErrorIs(t, err, escape.ErrTeamEliminated)
}

func TestSelectTeamRoomOccupied(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.team(t, "owls", 2)
	f.team(t, "bats", 2)

	_, err := f.machine.SelectTeam(ctx, 2, "owls", "1234")
	require.NoError(t, err)

	_, err = f.machine.SelectTeam(ctx, 2, "bats", "1234")
	require.ErrorIs(t, err, escape.ErrRoomOccupied)

	bats, err := f.store.Team(ctx, "bats")
	require.NoError(t, err)
	assert.Equal(t, escape.TeamWaiting, bats.Status)
}

func TestConcurrentSelectSeatsExactlyOneTeam(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ids := []string{"a", "b", "c", "d", "e"}
	for _, id := range ids {
		f.team(t, id, 3)
	}

	var wg sync.WaitGroup
	errs := make([]error, len(ids))
	for i, id := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.machine.SelectTeam(ctx, 3, id, "1234")
		}()
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
			continue
		}
		assert.ErrorIs(t, err, escape.ErrRoomOccupied)
	}
	assert.Equal(t, 1, winners)
}

func TestReselectKeepsRunningTimer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.team(t, "owls", 2)

	_, err := f.machine.SelectTeam(ctx, 2, "owls", "1234")
	require.NoError(t, err)
	f.clock.Advance(40 * time.Second)

	v, err := f.machine.SelectTeam(ctx, 2, "owls", "1234")
	require.NoError(t, err)
	assert.Equal(t, 260, v.TimeRemaining)
}

func TestEnterResumesOccupantWithStoredAttempts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.team(t, "owls", 2)

	_, err := f.machine.SelectTeam(ctx, 2, "owls", "1234")
	require.NoError(t, err)
	_, err = f.machine.Submit(ctx, 2, "owls", "0000")
	require.NoError(t, err)
	f.clock.Advance(10 * time.Second)

	v, err := f.machine.Enter(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, ScreenPlaying, v.Screen)
	assert.Equal(t, "owls", v.TeamID)
	assert.Equal(t, 4, v.AttemptsRemaining)
	assert.Equal(t, 290, v.TimeRemaining)
}

func TestEnterIgnoresDeletedOrEliminatedOccupant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.machine.coord.Assign(ctx, 4, "ghost")
	require.NoError(t, err)

	v, err := f.machine.Enter(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, ScreenTeamSelect, v.Screen)
}

// Scenario A.
func TestWrongCodesExhaustAttempts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.editRoom(t, 3, func(r *escape.Room) { r.MaxAttempts = 3 })
	f.team(t, "owls", 3)

	_, err := f.machine.SelectTeam(ctx, 3, "owls", "1234")
	require.NoError(t, err)

	v, err := f.machine.Submit(ctx, 3, "owls", "0001")
	require.NoError(t, err)
	assert.Equal(t, ScreenPlaying, v.Screen)
	assert.Equal(t, 2, v.AttemptsRemaining)

	v, err = f.machine.Submit(ctx, 3, "owls", "0002")
	require.NoError(t, err)
	assert.Equal(t, 1, v.AttemptsRemaining)

	v, err = f.machine.Submit(ctx, 3, "owls", "0003")
	require.NoError(t, err)
	assert.Equal(t, ScreenGameOver, v.Screen)
	assert.Equal(t, ReasonAttempts, v.Reason)
	assert.Equal(t, 0, v.AttemptsRemaining)

	team, err := f.store.Team(ctx, "owls")
	require.NoError(t, err)
	assert.Equal(t, escape.TeamEliminated, team.Status)

	slot, err := f.store.Slot(ctx, 3)
	require.NoError(t, err)
	assert.False(t, slot.Occupied())
	assert.Nil(t, slot.TimerStarted)

	p, err := f.store.Progress(ctx, "owls", 3)
	require.NoError(t, err)
	assert.Equal(t, escape.ProgressFailed, p.Status)
	assert.Len(t, p.Attempts, 3)

	_, err = f.machine.Submit(ctx, 3, "owls", "5678")
	assert.ErrorIs(t, err, escape.ErrNotPlaying)
}

// Scenario C.
func TestSolvingMidRoomAdvancesTeam(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.team(t, "owls", 3)

	_, err := f.machine.SelectTeam(ctx, 3, "owls", "1234")
	require.NoError(t, err)
	f.clock.Advance(75 * time.Second)
	_, err = f.machine.Submit(ctx, 3, "owls", "1111")
	require.NoError(t, err)

	v, err := f.machine.Submit(ctx, 3, "owls", "5678")
	require.NoError(t, err)
	assert.Equal(t, ScreenLevelUp, v.Screen)
	assert.Equal(t, 4, v.NextRoom)

	team, err := f.store.Team(ctx, "owls")
	require.NoError(t, err)
	assert.Equal(t, 4, team.CurrentRoom)
	assert.Equal(t, escape.TeamWaiting, team.Status)
	assert.Equal(t, 75, team.TotalTime)

	entry, err := f.store.LeaderboardEntry(ctx, "owls")
	require.NoError(t, err)
	assert.Equal(t, 4, entry.CurrentLevel)
	assert.Equal(t, 3, entry.RoomsCompleted)
	assert.Equal(t, 2, entry.TotalAttempts)

	p, err := f.store.Progress(ctx, "owls", 3)
	require.NoError(t, err)
	assert.Equal(t, escape.ProgressCompleted, p.Status)
	assert.Equal(t, 75, p.TimeElapsed)
	require.Len(t, p.Attempts, 2)
	assert.True(t, p.Attempts[1].Correct)
	assert.Equal(t, 4, p.AttemptsRemaining)

	slot, err := f.store.Slot(ctx, 3)
	require.NoError(t, err)
	assert.False(t, slot.Occupied())
}

// Scenario D.
func TestSolvingFinalRoomIsVictory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.team(t, "owls", testRooms)

	_, err := f.machine.SelectTeam(ctx, testRooms, "owls", "1234")
	require.NoError(t, err)
	f.clock.Advance(2 * time.Minute)
	_, err = f.machine.Submit(ctx, testRooms, "owls", "0000")
	require.NoError(t, err)

	v, err := f.machine.Submit(ctx, testRooms, "owls", "7890")
	require.NoError(t, err)
	assert.Equal(t, ScreenVictory, v.Screen)
	require.NotNil(t, v.Summary)
	assert.Equal(t, 120, v.Summary.TotalTime)
	assert.Equal(t, 1, v.Summary.TotalAttempts)

	team, err := f.store.Team(ctx, "owls")
	require.NoError(t, err)
	assert.Equal(t, testRooms, team.CurrentRoom)
	assert.Equal(t, escape.TeamCompleted, team.Status)

	_, err = f.machine.SelectTeam(ctx, testRooms, "owls", "1234")
	assert.ErrorIs(t, err, escape.ErrWrongRoom)
}

// Scenario E.
func TestBasecampContinueIsImmediateSuccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.team(t, "owls", escape.BasecampRoom)

	v, err := f.machine.SelectTeam(ctx, escape.BasecampRoom, "owls", "1234")
	require.NoError(t, err)
	assert.Equal(t, 0, v.TimeRemaining)

	slot, err := f.store.Slot(ctx, escape.BasecampRoom)
	require.NoError(t, err)
	assert.Nil(t, slot.TimerStarted)

	f.clock.Advance(45 * time.Minute)
	v, err = f.machine.ContinueBasecamp(ctx, "owls")
	require.NoError(t, err)
	assert.Equal(t, ScreenLevelUp, v.Screen)
	assert.Equal(t, 2, v.NextRoom)

	p, err := f.store.Progress(ctx, "owls", escape.BasecampRoom)
	require.NoError(t, err)
	assert.Equal(t, escape.ProgressCompleted, p.Status)
	assert.Equal(t, 0, p.TimeElapsed)

	team, err := f.store.Team(ctx, "owls")
	require.NoError(t, err)
	assert.Equal(t, 2, team.CurrentRoom)

	_, err = f.machine.Submit(ctx, escape.BasecampRoom, "owls", "1234")
	assert.ErrorIs(t, err, escape.ErrNotPlaying)
}

func TestSubmitAtBasecampIsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.team(t, "owls", escape.BasecampRoom)
	_, err := f.machine.SelectTeam(ctx, escape.BasecampRoom, "owls", "1234")
	require.NoError(t, err)

	_, err = f.machine.Submit(ctx, escape.BasecampRoom, "owls", "1234")
	assert.ErrorIs(t, err, escape.ErrValidation)
}

func TestSubmitRequiresOccupancy(t *testing.T) {
	f := newFixture(t)
	f.team(t, "owls", 2)

	_, err := f.machine.Submit(context.Background(), 2, "owls", "1234")
	assert.ErrorIs(t, err, escape.ErrNotPlaying)

	_, err = f.machine.Submit(context.Background(), 2, "owls", "  ")
	assert.ErrorIs(t, err, escape.ErrValidation)
}

func TestTimeoutBeforeExpiryIsRefused(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.team(t, "owls", 2)
	_, err := f.machine.SelectTeam(ctx, 2, "owls", "1234")
	require.NoError(t, err)

	f.clock.Advance(299 * time.Second)
	_, err = f.machine.Timeout(ctx, 2, "owls")
	require.ErrorIs(t, err, escape.ErrTimerRunning)

	f.clock.Advance(time.Second)
	v, err := f.machine.Timeout(ctx, 2, "owls")
	require.NoError(t, err)
	assert.Equal(t, ScreenGameOver, v.Screen)
	assert.Equal(t, ReasonTimeout, v.Reason)

	p, err := f.store.Progress(ctx, "owls", 2)
	require.NoError(t, err)
	assert.Equal(t, 300, p.TimeElapsed)
}

func TestSubmitAfterTimeoutIsAbsorbed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.team(t, "owls", 2)
	_, err := f.machine.SelectTeam(ctx, 2, "owls", "1234")
	require.NoError(t, err)

	f.clock.Advance(5 * time.Minute)
	_, err = f.machine.Timeout(ctx, 2, "owls")
	require.NoError(t, err)

	_, err = f.machine.Submit(ctx, 2, "owls", "1234")
	assert.ErrorIs(t, err, escape.ErrNotPlaying)

	_, err = f.machine.Timeout(ctx, 2, "owls")
	assert.ErrorIs(t, err, escape.ErrNotPlaying)

	team, err := f.store.Team(ctx, "owls")
	require.NoError(t, err)
	assert.Equal(t, escape.TeamEliminated, team.Status)
	assert.Equal(t, 2, team.CurrentRoom)
}

func TestPausedTimerDoesNotExpire(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.team(t, "owls", 2)
	_, err := f.machine.SelectTeam(ctx, 2, "owls", "1234")
	require.NoError(t, err)

	f.clock.Advance(100 * time.Second)
	_, err = f.admin.ControlSlot(ctx, 2, ActionPause)
	require.NoError(t, err)
	f.clock.Advance(time.Hour)

	v, err := f.machine.Session(ctx, 2, "owls")
	require.NoError(t, err)
	assert.True(t, v.TimerPaused)
	assert.Equal(t, 200, v.TimeRemaining)
	_, err = f.machine.Timeout(ctx, 2, "owls")
	assert.ErrorIs(t, err, escape.ErrTimerRunning)

	_, err = f.admin.ControlSlot(ctx, 2, ActionResume)
	require.NoError(t, err)
	f.clock.Advance(50 * time.Second)
	v, err = f.machine.Session(ctx, 2, "owls")
	require.NoError(t, err)
	assert.Equal(t, 150, v.TimeRemaining)
}

func TestSeatAndClearByOperator(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.team(t, "owls", 2)
	f.team(t, "bats", 2)

	_, err := f.machine.SelectTeam(ctx, 2, "owls", "1234")
	require.NoError(t, err)

	v, err := f.admin.SeatTeam(ctx, 2, "bats")
	require.NoError(t, err)
	assert.Equal(t, "bats", v.TeamID)
	assert.Equal(t, 300, v.TimeRemaining)

	_, err = f.machine.Submit(ctx, 2, "owls", "1234")
	assert.ErrorIs(t, err, escape.ErrNotPlaying)

	require.NoError(t, f.admin.ClearRoom(ctx, 2))
	bats, err := f.store.Team(ctx, "bats")
	require.NoError(t, err)
	assert.Equal(t, escape.TeamWaiting, bats.Status)
	slot, err := f.store.Slot(ctx, 2)
	require.NoError(t, err)
	assert.False(t, slot.Occupied())
}

func TestContinueShowsNextRoom(t *testing.T) {
	f := newFixture(t)

	v, err := f.machine.Continue(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 3, v.Room)
	assert.Equal(t, ScreenTeamSelect, v.Screen)

	_, err = f.machine.Continue(context.Background(), testRooms)
	assert.ErrorIs(t, err, escape.ErrValidation)
}

func TestFailedTeamCanBeReadmittedByOperator(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.editRoom(t, 2, func(r *escape.Room) { r.MaxAttempts = 1 })
	f.team(t, "owls", 2)

	_, err := f.machine.SelectTeam(ctx, 2, "owls", "1234")
	require.NoError(t, err)
	v, err := f.machine.Submit(ctx, 2, "owls", "0000")
	require.NoError(t, err)
	require.Equal(t, ScreenGameOver, v.Screen)

	_, err = f.admin.SetTeamRoom(ctx, "owls", 2)
	require.NoError(t, err)

	v, err = f.machine.SelectTeam(ctx, 2, "owls", "1234")
	require.NoError(t, err)
	assert.Equal(t, 1, v.AttemptsRemaining)

	p, err := f.store.Progress(ctx, "owls", 2)
	require.NoError(t, err)
	assert.Equal(t, escape.ProgressInProgress, p.Status)
	assert.Empty(t, p.Attempts)
}
