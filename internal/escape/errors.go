package escape

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrValidation     = errors.New("validation failed")
	ErrWrongPassword  = errors.New("wrong team password")
	ErrRoomOccupied   = errors.New("room is occupied by another team")
	ErrNotPlaying     = errors.New("team is not playing this room")
	ErrTeamEliminated = errors.New("team has been eliminated")
	ErrWrongRoom      = errors.New("team is not eligible for this room")
	ErrProgressClosed = errors.New("room attempt already finished")
	ErrNoAttemptsLeft = errors.New("no attempts remaining")
	ErrTimerRunning   = errors.New("room timer has not expired")
	ErrUnauthorized   = errors.New("not authenticated")
)

// ValidationError reports bad caller input. It matches ErrValidation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}
