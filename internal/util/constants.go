package util

const (
	DateFormat = "2006-01-02"
	TimeFormat = "2006-01-02 15:04:05"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

// Streak names maintained by the engine itself; collaborators may use any other name.
const (
	StreakDaily      = "daily"
	StreakAssignment = "assignment"
	StreakQuiz       = "quiz"
)
