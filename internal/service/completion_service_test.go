package service_test

import (
	"assessment_engine/internal/model"
	"assessment_engine/internal/repository"
	"assessment_engine/internal/service"
	"assessment_engine/internal/util"
	"assessment_engine/pkg/keylock"
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestCompleteAttemptAwardsQuizXP(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	req := twoQuestionRequest(t)
	req.MaxAttempts = 2
	a := h.createAssessment(t, req)

	var events []service.LevelUpEvent
	h.Progression.OnLevelUp(func(_ context.Context, ev service.LevelUpEvent) {
		events = append(events, ev)
	})

	// 100% earns reward plus bonus
	_, err := h.Attempt.StartAttempt(ctx, testStudentID, a.ID)
	require.NoError(t, err)
	_, err = h.Attempt.SubmitAnswer(ctx, testStudentID, a.ID, a.Questions[0].ID, "B")
	require.NoError(t, err)
	_, err = h.Attempt.SubmitAnswer(ctx, testStudentID, a.ID, a.Questions[1].ID, true)
	require.NoError(t, err)

	res, err := h.Completion.CompleteAttempt(ctx, testStudentID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, res.Attempt.Percentage)
	require.NotNil(t, res.Reward)
	assert.Equal(t, 75, res.Reward.XPGained)
	assert.False(t, res.Reward.LeveledUp)
	assert.False(t, res.RewardPending)
	assert.NotNil(t, res.Attempt.RewardedAt)

	// 50% earns the base reward and crosses level 2
	_, err = h.Attempt.StartAttempt(ctx, testStudentID, a.ID)
	require.NoError(t, err)
	_, err = h.Attempt.SubmitAnswer(ctx, testStudentID, a.ID, a.Questions[0].ID, "B")
	require.NoError(t, err)

	res, err = h.Completion.CompleteAttempt(ctx, testStudentID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, res.Attempt.Percentage)
	assert.Equal(t, 50, res.Reward.XPGained)
	assert.True(t, res.Reward.LeveledUp)
	assert.Equal(t, 2, res.Reward.NewLevel)
	require.Len(t, events, 1)
	assert.Equal(t, testStudentID, events[0].LearnerID)

	rec, err := h.Progression.GetProgressionRecord(ctx, testStudentID)
	require.NoError(t, err)
	assert.Equal(t, 125, rec.TotalXP)
	assert.Equal(t, 2, rec.Stats.Data().QuizzesTaken)
	assert.Equal(t, 1, rec.Stats.Data().PerfectScores)
	assert.Equal(t, 2, rec.Streak(util.StreakQuiz))

	stored, err := h.Assessments.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Statistics.AttemptCount)
	assert.InDelta(t, 15.0, stored.Statistics.AverageScore, 0.001)
}

// flakyLedger fails every ledger write while down is set.
type flakyLedger struct {
	*repository.ProgressionRepository
	down atomic.Bool
}

var errLedgerDown = errors.New("ledger unavailable")

func (l *flakyLedger) CompareAndSwap(ctx context.Context, rec *model.ProgressionRecord, expected int, exists bool) (bool, error) {
	if l.down.Load() {
		return false, errLedgerDown
	}
	return l.ProgressionRepository.CompareAndSwap(ctx, rec, expected, exists)
}

func (l *flakyLedger) CompareAndSwapReward(ctx context.Context, rec *model.ProgressionRecord, expected int, exists bool, attemptID uint, at time.Time) (bool, error) {
	if l.down.Load() {
		return false, errLedgerDown
	}
	return l.ProgressionRepository.CompareAndSwapReward(ctx, rec, expected, exists, attemptID, at)
}

func TestQuizRewardSurvivesLedgerOutage(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := h.createAssessment(t, twoQuestionRequest(t))

	ledger := &flakyLedger{ProgressionRepository: h.Ledger}
	progression := service.NewProgressionService(ledger, h.Clock, keylock.New(), 3, 50, zaptest.NewLogger(t))
	completion := service.NewCompletionService(h.Attempt, progression, zaptest.NewLogger(t))

	_, err := h.Attempt.StartAttempt(ctx, testStudentID, a.ID)
	require.NoError(t, err)
	_, err = h.Attempt.SubmitAnswer(ctx, testStudentID, a.ID, a.Questions[0].ID, "B")
	require.NoError(t, err)

	ledger.down.Store(true)
	res, err := completion.CompleteAttempt(ctx, testStudentID, a.ID)
	require.NoError(t, err, "the submission stands without the ledger")
	assert.True(t, res.RewardPending)
	assert.Nil(t, res.Reward)
	assert.Nil(t, res.Attempt.RewardedAt)

	_, err = completion.CompleteAttempt(ctx, testStudentID, a.ID)
	assert.True(t, errors.Is(err, util.ErrNoActiveAttempt), "got %v", err)

	ledger.down.Store(false)

	// inside the grace period the sweep leaves the attempt alone
	n, err := completion.ReconcileRewards(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	h.Clock.Advance(time.Minute)
	n, err = completion.ReconcileRewards(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	rec, err := progression.GetProgressionRecord(ctx, testStudentID)
	require.NoError(t, err)
	assert.Equal(t, 50, rec.TotalXP)
	assert.Equal(t, 1, rec.Stats.Data().QuizzesTaken)

	// applied exactly once
	n, err = completion.ReconcileRewards(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	stored, err := h.Attempts.FindLatest(ctx, a.ID, testStudentID)
	require.NoError(t, err)
	require.NotNil(t, stored.RewardedAt)
	_, err = progression.RecordQuizCompletion(ctx, testStudentID, a, stored)
	assert.True(t, errors.Is(err, util.ErrRewardAlreadyApplied), "got %v", err)

	rec, err = progression.GetProgressionRecord(ctx, testStudentID)
	require.NoError(t, err)
	assert.Equal(t, 50, rec.TotalXP)
}

func TestQuizRewardAppliedOnceUnderRace(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := h.createAssessment(t, twoQuestionRequest(t))
	attempt := h.submittedAttempt(t, a.ID, 1, 100)

	var wg sync.WaitGroup
	var paid, refused atomic.Int32
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			own := *attempt
			_, err := h.Progression.RecordQuizCompletion(ctx, testStudentID, a, &own)
			switch {
			case err == nil:
				paid.Add(1)
			case errors.Is(err, util.ErrRewardAlreadyApplied):
				refused.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, paid.Load())
	assert.EqualValues(t, 3, refused.Load())

	rec, err := h.Progression.GetProgressionRecord(ctx, testStudentID)
	require.NoError(t, err)
	assert.Equal(t, 75, rec.TotalXP)
}
