package escape

import (
	"fmt"
	"strings"
)

// ValidatePassword checks the fixed 4-digit team secret format.
func ValidatePassword(p string) error {
	if len(p) != 4 {
		return invalid("password", "must be exactly 4 digits")
	}
	for _, c := range p {
		if c < '0' || c > '9' {
			return invalid("password", "must be exactly 4 digits")
		}
	}
	return nil
}

// ValidateCode rejects blank submissions. The code itself is compared
// verbatim, so no normalisation happens here.
func ValidateCode(code string) error {
	if strings.TrimSpace(code) == "" {
		return invalid("code", "is required")
	}
	return nil
}

func ValidateTeamName(name string) error {
	if strings.TrimSpace(name) == "" {
		return invalid("name", "is required")
	}
	return nil
}

// ValidateRoomNumber checks 1..totalRooms.
func ValidateRoomNumber(n, totalRooms int) error {
	if n < 1 || n > totalRooms {
		return invalid("roomNumber", fmt.Sprintf("must be between 1 and %d", totalRooms))
	}
	return nil
}

// ValidateRoom checks operator-edited room content.
func ValidateRoom(r Room, totalRooms int) error {
	if err := ValidateRoomNumber(r.RoomNumber, totalRooms); err != nil {
		return err
	}
	if r.TimerDuration < 0 {
		return invalid("timerDuration", "must not be negative")
	}
	if r.MaxAttempts < 1 {
		return invalid("maxAttempts", "must be at least 1")
	}
	if !r.IsBasecamp() && r.CorrectCode == "" {
		return invalid("correctCode", "is required outside basecamp")
	}
	return nil
}

// FormatClock renders seconds as MM:SS.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
