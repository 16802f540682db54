package service

import (
	"assessment_engine/internal/model"
	"context"
	"time"
)

// Clock is injected so availability windows and timings are testable.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// EnrollmentChecker answers whether a student may take assessments of a course.
type EnrollmentChecker interface {
	IsEnrolled(ctx context.Context, studentID, courseID uint) (bool, error)
}

// Locker serializes work on a key. The returned func releases the lock.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

type AssessmentStore interface {
	// FindByID loads the definition with its questions in position order.
	FindByID(ctx context.Context, id uint) (*model.Assessment, error)
}

type AttemptStore interface {
	// FindOpen returns nil, nil when the pair has no open attempt.
	FindOpen(ctx context.Context, assessmentID, studentID uint) (*model.Attempt, error)
	// FindLatest returns nil, nil when the pair never started an attempt.
	FindLatest(ctx context.Context, assessmentID, studentID uint) (*model.Attempt, error)
	List(ctx context.Context, assessmentID, studentID uint) ([]model.Attempt, error)
	CountSubmitted(ctx context.Context, assessmentID, studentID uint) (int64, error)
	Create(ctx context.Context, attempt *model.Attempt) error
	UpsertAnswer(ctx context.Context, answer *model.Answer) error
	ListAnswers(ctx context.Context, attemptID uint) ([]model.Answer, error)
	// Finalize persists the terminal state only if the attempt is still open,
	// and invalidates the assessment's statistics in the same transaction.
	Finalize(ctx context.Context, attempt *model.Attempt) error
	// ListUnrewarded returns submitted attempts whose quiz reward is not yet
	// in the ledger, oldest first.
	ListUnrewarded(ctx context.Context, submittedBefore time.Time, limit int) ([]model.Attempt, error)
}

type StatisticsStore interface {
	StatsVersion(ctx context.Context, assessmentID uint) (int, error)
	AggregateSubmitted(ctx context.Context, assessmentID uint) (model.AssessmentStatistics, error)
	// CompareAndSwapStats writes only when the stored version equals expected.
	CompareAndSwapStats(ctx context.Context, assessmentID uint, expected int, stats model.AssessmentStatistics) (bool, error)
	ListDirty(ctx context.Context, limit int) ([]uint, error)
}

type ProgressionStore interface {
	// Load returns the stored record, or a default one with exists=false.
	Load(ctx context.Context, learnerID uint) (rec *model.ProgressionRecord, exists bool, err error)
	// CompareAndSwap inserts when !exists, otherwise updates where version = expected.
	CompareAndSwap(ctx context.Context, rec *model.ProgressionRecord, expected int, exists bool) (bool, error)
	// CompareAndSwapReward is CompareAndSwap that also stamps the attempt as
	// rewarded in the same transaction. It fails with ErrRewardAlreadyApplied
	// when the attempt is not a submitted, unrewarded attempt of the learner.
	CompareAndSwapReward(ctx context.Context, rec *model.ProgressionRecord, expected int, exists bool, attemptID uint, at time.Time) (bool, error)
	TopByXP(ctx context.Context, limit int) ([]model.LeaderboardEntry, error)
}

// LevelUpEvent is emitted synchronously from AwardXP.
type LevelUpEvent struct {
	LearnerID uint      `json:"learnerId"`
	OldLevel  int       `json:"oldLevel"`
	NewLevel  int       `json:"newLevel"`
	At        time.Time `json:"at"`
}

// LevelUpListener receives level-up events on the caller's goroutine.
type LevelUpListener func(ctx context.Context, ev LevelUpEvent)
