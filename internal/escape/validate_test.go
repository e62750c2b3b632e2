package escape

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"1234", true},
		{"0000", true},
		{"123", false},
		{"12345", false},
		{"12a4", false},
		{" 123", false},
		{"", false},
	}
	for _, tt := range tests {
		err := ValidatePassword(tt.in)
		assert.Equal(t, tt.want, err == nil, "password %q", tt.in)
		if err != nil {
			assert.True(t, errors.Is(err, ErrValidation))
		}
	}
}

func TestValidateCode(t *testing.T) {
	assert.NoError(t, ValidateCode("1234"))
	assert.NoError(t, ValidateCode("abc"))
	assert.ErrorIs(t, ValidateCode("   "), ErrValidation)
	assert.ErrorIs(t, ValidateCode(""), ErrValidation)
}

func TestValidateRoom(t *testing.T) {
	ok := Room{RoomNumber: 2, CorrectCode: "1", MaxAttempts: 3, TimerDuration: 60}
	assert.NoError(t, ValidateRoom(ok, 6))

	basecamp := Room{RoomNumber: 1, MaxAttempts: 1}
	assert.NoError(t, ValidateRoom(basecamp, 6))

	noCode := ok
	noCode.CorrectCode = ""
	assert.ErrorIs(t, ValidateRoom(noCode, 6), ErrValidation)

	outOfRange := ok
	outOfRange.RoomNumber = 7
	assert.ErrorIs(t, ValidateRoom(outOfRange, 6), ErrValidation)

	noAttempts := ok
	noAttempts.MaxAttempts = 0
	assert.ErrorIs(t, ValidateRoom(noAttempts, 6), ErrValidation)
}

func TestFormatClock(t *testing.T) {
	assert.Equal(t, "00:00", FormatClock(0))
	assert.Equal(t, "05:00", FormatClock(300))
	assert.Equal(t, "01:05", FormatClock(65))
	assert.Equal(t, "00:00", FormatClock(-3))
}

func TestDefaultRooms(t *testing.T) {
	rooms := DefaultRooms(6)
	assert.Len(t, rooms, 6)
	assert.True(t, rooms[0].IsBasecamp())
	assert.False(t, rooms[0].Timed())
	assert.Equal(t, "7890", rooms[5].CorrectCode)
	assert.Equal(t, 600, rooms[5].TimerDuration)
	for _, r := range rooms {
		assert.NoError(t, ValidateRoom(r, 6))
	}
	assert.Equal(t, "Final Room", DefaultRoomName(6, 6))
	assert.Equal(t, "Room 3", Config{}.RoomName(3, 6))
	assert.Equal(t, "Lab", Config{RoomNames: map[int]string{3: "Lab"}}.RoomName(3, 6))
}
