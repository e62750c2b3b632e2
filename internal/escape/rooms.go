package escape

import "fmt"

// DefaultRooms returns the starter content for an event with totalRooms
// rooms: Basecamp, numbered puzzle rooms, and a longer final room.
func DefaultRooms(totalRooms int) []Room {
	puzzles := []struct{ puzzle, narration, code, hint, levelUp, gameOver string }{
		{"Solve the puzzle to find the numeric code.", "Solve the puzzle carefully and enter the numeric code to proceed.", "1234", "Look for patterns in the puzzle.", "Excellent work!", "Time is up! Better luck next time."},
		{"Decode the cipher to reveal the code.", "Decode the cipher to reveal the numeric code.", "5678", "Think about Caesar cipher.", "Amazing!", "Game Over! You have been eliminated."},
		{"Solve the mathematical equation.", "Solve the mathematical equation to find the code.", "9012", "Remember order of operations.", "Brilliant!", "Time ran out! Game Over."},
		{"Crack the logic puzzle.", "Crack the logic puzzle to reveal the code.", "3456", "Each clue eliminates possibilities.", "Outstanding!", "Eliminated! Better luck next time."},
	}

	rooms := make([]Room, 0, totalRooms)
	rooms = append(rooms, Room{
		RoomNumber:     BasecampRoom,
		Puzzle:         "Welcome to the Escape Room Challenge!",
		Narration:      "Welcome to the Escape Room Challenge. This is your basecamp. Listen carefully to the rules and instructions.",
		Hint:           "Just click Continue to proceed.",
		MaxAttempts:    1,
		LevelUpMessage: "Great! Now proceed to Room 2.",
		Sequence:       1,
	})

	for n := 2; n <= totalRooms; n++ {
		p := puzzles[(n-2)%len(puzzles)]
		room := Room{
			RoomNumber:      n,
			Puzzle:          p.puzzle,
			Narration:       fmt.Sprintf("Welcome to Room %d. %s", n, p.narration),
			CorrectCode:     p.code,
			Hint:            p.hint,
			TimerDuration:   DefaultTimerDuration,
			MaxAttempts:     DefaultMaxAttempts,
			LevelUpMessage:  fmt.Sprintf("%s Proceed to Room %d.", p.levelUp, n+1),
			GameOverMessage: p.gameOver,
			Sequence:        n,
		}
		if n == totalRooms {
			room.Puzzle = "The ultimate challenge awaits."
			room.Narration = "Welcome to the Final Room. This is your ultimate challenge. Solve this to win the competition."
			room.CorrectCode = "7890"
			room.Hint = "Combine all previous patterns."
			room.TimerDuration = 2 * DefaultTimerDuration
			room.LevelUpMessage = "CONGRATULATIONS! You have escaped!"
			room.GameOverMessage = "So close! Game Over."
		}
		rooms = append(rooms, room)
	}
	return rooms
}

// DefaultSequence is 1..totalRooms.
func DefaultSequence(totalRooms int) []int {
	seq := make([]int, totalRooms)
	for i := range seq {
		seq[i] = i + 1
	}
	return seq
}
