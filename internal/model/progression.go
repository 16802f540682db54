package model

import (
	"time"

	"gorm.io/datatypes"
)

const (
	ActivityXPEarned     = "xp_earned"
	ActivityStreakUpdate = "streak_updated"
	ActivityStreakReset  = "streak_reset"
)

type ProgressionStats struct {
	AssignmentsCompleted int `json:"assignmentsCompleted"`
	QuizzesTaken         int `json:"quizzesTaken"`
	PerfectScores        int `json:"perfectScores"`
}

type ActivityEntry struct {
	Action      string    `json:"action"`
	XPDelta     int       `json:"xpDelta"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
}

// ProgressionRecord is the per-learner XP ledger. Version guards every write:
// a save only lands if the stored version still matches the one that was read.
// swagger:model ProgressionRecord
type ProgressionRecord struct {
	LearnerID      uint                                `gorm:"primaryKey;autoIncrement:false" json:"learnerId"`
	TotalXP        int                                 `gorm:"column:total_xp;not null;default:0;index" json:"totalXp"`
	CurrentLevel   int                                 `gorm:"not null;default:1" json:"currentLevel"`
	XPToNextLevel  int                                 `gorm:"column:xp_to_next_level;not null;default:100" json:"xpToNextLevel"`
	Stats          datatypes.JSONType[ProgressionStats] `json:"stats"`
	Streaks        datatypes.JSONType[map[string]int]  `json:"streaks"`
	RecentActivity datatypes.JSONSlice[ActivityEntry]  `json:"recentActivity"`
	Version        int                                 `gorm:"not null;default:0" json:"-"`
	CreatedAt      time.Time                           `json:"createdAt"`
	UpdatedAt      time.Time                           `json:"updatedAt"`
}

func (ProgressionRecord) TableName() string {
	return "progression_records"
}

// NewProgressionRecord returns the default record for a learner with no history.
func NewProgressionRecord(learnerID uint) *ProgressionRecord {
	return &ProgressionRecord{
		LearnerID:      learnerID,
		TotalXP:        0,
		CurrentLevel:   1,
		XPToNextLevel:  100,
		Stats:          datatypes.NewJSONType(ProgressionStats{}),
		Streaks:        datatypes.NewJSONType(map[string]int{}),
		RecentActivity: datatypes.JSONSlice[ActivityEntry]{},
	}
}

// Streak returns the named counter, zero when never incremented.
func (r *ProgressionRecord) Streak(name string) int {
	return r.Streaks.Data()[name]
}

// Clone deep-copies the record so a failed compare-and-swap never leaks a
// half-applied mutation into the caller's copy.
func (r *ProgressionRecord) Clone() *ProgressionRecord {
	c := *r
	streaks := make(map[string]int, len(r.Streaks.Data()))
	for k, v := range r.Streaks.Data() {
		streaks[k] = v
	}
	c.Streaks = datatypes.NewJSONType(streaks)
	c.RecentActivity = append(datatypes.JSONSlice[ActivityEntry]{}, r.RecentActivity...)
	return &c
}

// LeaderboardEntry is a read model joined from progression records and users.
type LeaderboardEntry struct {
	Rank      int    `json:"rank"`
	LearnerID uint   `json:"learnerId"`
	Name      string `json:"name"`
	TotalXP   int    `json:"totalXp"`
	Level     int    `json:"level"`
}
