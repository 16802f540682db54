package model

import (
	"time"

	"gorm.io/datatypes"
)

type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionTrueFalse      QuestionType = "true_false"
	QuestionShortAnswer    QuestionType = "short_answer"
	QuestionEssay          QuestionType = "essay"
)

func (t QuestionType) Valid() bool {
	switch t {
	case QuestionMultipleChoice, QuestionTrueFalse, QuestionShortAnswer, QuestionEssay:
		return true
	}
	return false
}

// Option is the single normalized shape of a choice; plain-text options are
// converted at the request boundary.
type Option struct {
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
}

// AssessmentStatistics is recomputed from the submitted attempts on every finalization.
type AssessmentStatistics struct {
	AttemptCount       int     `gorm:"default:0" json:"attemptCount"`
	AverageScore       float64 `gorm:"default:0" json:"averageScore"`
	AverageTimeMinutes float64 `gorm:"default:0" json:"averageTimeMinutes"`
}

// swagger:model Assessment
type Assessment struct {
	BaseModel
	CourseID         uint       `gorm:"index;not null" json:"courseId"`
	AuthorID         uint       `gorm:"index" json:"authorId"`
	Title            string     `gorm:"size:255;not null" json:"title"`
	Description      string     `gorm:"type:text" json:"description"`
	AvailableFrom    *time.Time `json:"availableFrom,omitempty"`
	AvailableUntil   *time.Time `json:"availableUntil,omitempty"`
	MaxAttempts      int        `gorm:"default:1" json:"maxAttempts"`
	ShuffleQuestions bool       `json:"shuffleQuestions"`
	ShuffleOptions   bool       `json:"shuffleOptions"`
	XPReward         int        `gorm:"column:xp_reward;default:0" json:"xpReward"`
	BonusXP          int        `gorm:"column:bonus_xp;default:0" json:"bonusXp"`

	Questions  []Question           `gorm:"foreignKey:AssessmentID" json:"questions,omitempty"`
	Statistics AssessmentStatistics `gorm:"embedded;embeddedPrefix:stats_" json:"statistics"`

	// StatsVersion is bumped by every finalization and every statistics write;
	// statistics writes are conditional on it.
	StatsVersion int  `gorm:"not null;default:0" json:"-"`
	StatsDirty   bool `gorm:"index;default:false" json:"-"`
}

func (Assessment) TableName() string {
	return "assessments"
}

// IsAvailableAt reports whether now falls inside [AvailableFrom, AvailableUntil].
// A nil bound is open.
func (a *Assessment) IsAvailableAt(now time.Time) bool {
	if a.AvailableFrom != nil && now.Before(*a.AvailableFrom) {
		return false
	}
	if a.AvailableUntil != nil && now.After(*a.AvailableUntil) {
		return false
	}
	return true
}

func (a *Assessment) TotalPoints() int {
	total := 0
	for _, q := range a.Questions {
		total += q.Points
	}
	return total
}

func (a *Assessment) FindQuestion(id uint) (*Question, bool) {
	for i := range a.Questions {
		if a.Questions[i].ID == id {
			return &a.Questions[i], true
		}
	}
	return nil, false
}

// swagger:model Question
type Question struct {
	BaseModel
	AssessmentID  uint                        `gorm:"index;not null" json:"assessmentId"`
	Position      int                         `gorm:"default:0" json:"position"`
	Type          QuestionType                `gorm:"size:30;not null" json:"type"`
	Prompt        string                      `gorm:"type:text;not null" json:"prompt"`
	Points        int                         `gorm:"not null" json:"points"`
	Options       datatypes.JSONSlice[Option] `json:"options,omitempty"`
	CorrectAnswer string                      `gorm:"type:text" json:"correctAnswer,omitempty"`
	Explanation   string                      `gorm:"type:text" json:"explanation,omitempty"`
}

func (Question) TableName() string {
	return "questions"
}
