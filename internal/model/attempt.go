package model

import "time"

type AttemptState string

const (
	AttemptNotStarted AttemptState = "not_started"
	AttemptOpen       AttemptState = "open"
	AttemptSubmitted  AttemptState = "submitted"
)

// Attempt is one learner's pass through an assessment.
// OpenSlot is 1 while the attempt is open and NULL once submitted, so the
// unique index on (assessment_id, student_id, open_slot) admits a single open
// attempt per pair.
// swagger:model Attempt
type Attempt struct {
	BaseModel
	AssessmentID     uint       `gorm:"not null;uniqueIndex:idx_attempt_key,priority:1;uniqueIndex:idx_attempt_open,priority:1" json:"assessmentId"`
	StudentID        uint       `gorm:"not null;index;uniqueIndex:idx_attempt_key,priority:2;uniqueIndex:idx_attempt_open,priority:2" json:"studentId"`
	AttemptNumber    int        `gorm:"not null;uniqueIndex:idx_attempt_key,priority:3" json:"attemptNumber"`
	OpenSlot         *int       `gorm:"uniqueIndex:idx_attempt_open,priority:3" json:"-"`
	StartedAt        time.Time  `json:"startedAt"`
	SubmittedAt      *time.Time `json:"submittedAt,omitempty"`
	// RewardedAt is stamped in the same transaction as the ledger write; a
	// submitted attempt with a nil RewardedAt still owes its quiz reward.
	RewardedAt       *time.Time `gorm:"index" json:"rewardedAt,omitempty"`
	Score            int        `gorm:"default:0" json:"score"`
	Percentage       int        `gorm:"default:0" json:"percentage"`
	TimeSpentMinutes int        `gorm:"default:0" json:"timeSpentMinutes"`

	Answers []Answer `gorm:"foreignKey:AttemptID" json:"answers"`
}

func (Attempt) TableName() string {
	return "attempts"
}

func (a *Attempt) State() AttemptState {
	if a == nil {
		return AttemptNotStarted
	}
	if a.SubmittedAt == nil {
		return AttemptOpen
	}
	return AttemptSubmitted
}

func (a *Attempt) IsOpen() bool {
	return a.State() == AttemptOpen
}

// Answer is upserted by (attempt, question); resubmission overwrites value and grade.
// swagger:model Answer
type Answer struct {
	BaseModel
	AttemptID     uint   `gorm:"not null;uniqueIndex:idx_answer_attempt_question,priority:1" json:"attemptId"`
	QuestionID    uint   `gorm:"not null;uniqueIndex:idx_answer_attempt_question,priority:2" json:"questionId"`
	Value         string `gorm:"type:text" json:"value"`
	IsCorrect     bool   `json:"isCorrect"`
	PointsAwarded int    `gorm:"default:0" json:"pointsAwarded"`
}

func (Answer) TableName() string {
	return "attempt_answers"
}
