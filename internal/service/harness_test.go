package service_test

import (
	"assessment_engine/internal/config"
	"assessment_engine/internal/model"
	"assessment_engine/internal/repository"
	"assessment_engine/internal/service"
	"assessment_engine/pkg/database"
	"assessment_engine/pkg/keylock"
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	testCourseID  uint = 1
	testAuthorID  uint = 100
	testStudentID uint = 7
)

var baseTime = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(&config.DatabaseConfig{
		Driver: database.DriverSQLite,
		Path:   ":memory:",
	}, gormlogger.Silent)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

type harness struct {
	DB    *gorm.DB
	Clock *fakeClock

	Assessments *repository.AssessmentRepository
	Attempts    *repository.AttemptRepository
	Enrollment  *repository.EnrollmentRepository
	Ledger      *repository.ProgressionRepository

	Authoring   *service.AssessmentService
	Stats       *service.StatisticsService
	Attempt     *service.AttemptService
	Progression *service.ProgressionService
	Completion  *service.CompletionService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := newTestDB(t)
	log := zaptest.NewLogger(t)
	clock := &fakeClock{now: baseTime}
	locks := keylock.New()

	h := &harness{
		DB:          db,
		Clock:       clock,
		Assessments: repository.NewAssessmentRepository(db),
		Attempts:    repository.NewAttemptRepository(db),
		Enrollment:  repository.NewEnrollmentRepository(db, nil, 0),
		Ledger:      repository.NewProgressionRepository(db),
	}
	h.Authoring = service.NewAssessmentService(h.Assessments, log)
	h.Stats = service.NewStatisticsService(h.Assessments, 5, log)
	h.Attempt = service.NewAttemptService(h.Assessments, h.Attempts, h.Enrollment, clock, locks, h.Stats, log)
	h.Progression = service.NewProgressionService(h.Ledger, clock, locks, 5, 50, log)
	h.Completion = service.NewCompletionService(h.Attempt, h.Progression, log)

	require.NoError(t, h.Enrollment.Enroll(context.Background(), testStudentID, testCourseID))
	return h
}

func rawOptions(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

// twoQuestionRequest is one multiple-choice question (correct "B") and one
// true/false question (correct "True"), ten points each.
func twoQuestionRequest(t *testing.T) service.AssessmentRequest {
	return service.AssessmentRequest{
		CourseID:    testCourseID,
		Title:       "Pointers quiz",
		MaxAttempts: 1,
		XPReward:    50,
		BonusXP:     25,
		Questions: []service.QuestionRequest{
			{
				Type:          model.QuestionMultipleChoice,
				Prompt:        "Which operator dereferences a pointer?",
				Points:        10,
				Options:       rawOptions(t, []string{"A", "B", "C", "D"}),
				CorrectAnswer: "B",
			},
			{
				Type:          model.QuestionTrueFalse,
				Prompt:        "A nil pointer may be dereferenced safely.",
				Points:        10,
				CorrectAnswer: "True",
			},
		},
	}
}

// submittedAttempt stores a finalized attempt for testStudentID that has not
// been rewarded yet.
func (h *harness) submittedAttempt(t *testing.T, assessmentID uint, number, percentage int) *model.Attempt {
	t.Helper()
	now := h.Clock.Now()
	at := &model.Attempt{
		AssessmentID:  assessmentID,
		StudentID:     testStudentID,
		AttemptNumber: number,
		StartedAt:     now,
		SubmittedAt:   &now,
		Percentage:    percentage,
	}
	require.NoError(t, h.DB.Create(at).Error)
	return at
}

func (h *harness) createAssessment(t *testing.T, req service.AssessmentRequest) *model.Assessment {
	t.Helper()
	a, err := h.Authoring.CreateAssessment(context.Background(), testAuthorID, req)
	require.NoError(t, err)
	require.Len(t, a.Questions, len(req.Questions))
	return a
}
