package service_test

import (
	"assessment_engine/internal/model"
	"assessment_engine/internal/util"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFinalizeScoresHalfCorrect(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := h.createAssessment(t, twoQuestionRequest(t))

	attempt, err := h.Attempt.StartAttempt(ctx, testStudentID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, attempt.AttemptNumber)
	assert.True(t, attempt.IsOpen())

	mc, tf := a.Questions[0], a.Questions[1]
	ans, err := h.Attempt.SubmitAnswer(ctx, testStudentID, a.ID, mc.ID, "B")
	require.NoError(t, err)
	assert.True(t, ans.IsCorrect)
	assert.Equal(t, 10, ans.PointsAwarded)

	ans, err = h.Attempt.SubmitAnswer(ctx, testStudentID, a.ID, tf.ID, "False")
	require.NoError(t, err)
	assert.False(t, ans.IsCorrect)
	assert.Equal(t, 0, ans.PointsAwarded)

	h.Clock.Advance(90 * time.Second)
	res, err := h.Attempt.FinalizeAttempt(ctx, testStudentID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, res.Attempt.Score)
	assert.Equal(t, 50, res.Attempt.Percentage)
	assert.Equal(t, 2, res.Attempt.TimeSpentMinutes)
	assert.Equal(t, model.AttemptSubmitted, res.Attempt.State())
	assert.Len(t, res.Attempt.Answers, 2)

	assert.False(t, res.StatisticsPending)
	assert.Equal(t, 1, res.Statistics.AttemptCount)
	assert.InDelta(t, 10.0, res.Statistics.AverageScore, 0.001)
	assert.InDelta(t, 2.0, res.Statistics.AverageTimeMinutes, 0.001)

	stored, err := h.Assessments.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, res.Statistics, stored.Statistics)
	assert.False(t, stored.StatsDirty)
}

func TestStartAttemptLimitExceeded(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := h.createAssessment(t, twoQuestionRequest(t))

	_, err := h.Attempt.StartAttempt(ctx, testStudentID, a.ID)
	require.NoError(t, err)
	_, err = h.Attempt.FinalizeAttempt(ctx, testStudentID, a.ID)
	require.NoError(t, err)

	_, err = h.Attempt.StartAttempt(ctx, testStudentID, a.ID)
	assert.True(t, errors.Is(err, util.ErrAttemptLimitExceeded), "got %v", err)
}

func TestStartAttemptNumbersFollowSubmittedCount(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	req := twoQuestionRequest(t)
	req.MaxAttempts = 3
	a := h.createAssessment(t, req)

	for want := 1; want <= 3; want++ {
		attempt, err := h.Attempt.StartAttempt(ctx, testStudentID, a.ID)
		require.NoError(t, err)
		assert.Equal(t, want, attempt.AttemptNumber)
		_, err = h.Attempt.FinalizeAttempt(ctx, testStudentID, a.ID)
		require.NoError(t, err)
	}

	_, err := h.Attempt.StartAttempt(ctx, testStudentID, a.ID)
	assert.True(t, errors.Is(err, util.ErrAttemptLimitExceeded))

	attempts, err := h.Attempt.ListAttempts(ctx, testStudentID, a.ID)
	require.NoError(t, err)
	assert.Len(t, attempts, 3)
}

func TestStartAttemptIsIdempotentWhileOpen(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := h.createAssessment(t, twoQuestionRequest(t))

	first, err := h.Attempt.StartAttempt(ctx, testStudentID, a.ID)
	require.NoError(t, err)
	_, err = h.Attempt.SubmitAnswer(ctx, testStudentID, a.ID, a.Questions[0].ID, "B")
	require.NoError(t, err)

	second, err := h.Attempt.StartAttempt(ctx, testStudentID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, second.Answers, 1)
}

func TestConcurrentStartCreatesOneAttempt(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	req := twoQuestionRequest(t)
	req.MaxAttempts = 5
	a := h.createAssessment(t, req)

	const callers = 8
	ids := make([]uint, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			attempt, err := h.Attempt.StartAttempt(ctx, testStudentID, a.ID)
			if assert.NoError(t, err) {
				ids[i] = attempt.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	var open int64
	require.NoError(t, h.DB.Model(&model.Attempt{}).Where("submitted_at IS NULL").Count(&open).Error)
	assert.Equal(t, int64(1), open)
}

func TestStartAttemptAvailabilityWindow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	from := baseTime.Add(time.Hour)
	until := baseTime.Add(2 * time.Hour)
	req := twoQuestionRequest(t)
	req.AvailableFrom = &from
	req.AvailableUntil = &until
	a := h.createAssessment(t, req)

	_, err := h.Attempt.StartAttempt(ctx, testStudentID, a.ID)
	assert.True(t, errors.Is(err, util.ErrNotAvailable), "before window: %v", err)

	h.Clock.Advance(90 * time.Minute)
	_, err = h.Attempt.StartAttempt(ctx, testStudentID, a.ID)
	assert.NoError(t, err)

	h.Clock.Advance(time.Hour)
	_, err = h.Attempt.StartAttempt(ctx, 8, a.ID)
	assert.True(t, errors.Is(err, util.ErrNotAvailable), "after window: %v", err)
}

func TestStartAttemptRequiresEnrollment(t *testing.T) {
	h := newHarness(t)
	a := h.createAssessment(t, twoQuestionRequest(t))

	_, err := h.Attempt.StartAttempt(context.Background(), 999, a.ID)
	assert.True(t, errors.Is(err, util.ErrNotEnrolled))
}

func TestStartAttemptUnknownAssessment(t *testing.T) {
	h := newHarness(t)
	_, err := h.Attempt.StartAttempt(context.Background(), testStudentID, 4242)
	assert.True(t, errors.Is(err, util.ErrAssessmentNotFound))
}

func TestSubmitAnswerErrors(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := h.createAssessment(t, twoQuestionRequest(t))
	mc, tf := a.Questions[0], a.Questions[1]

	_, err := h.Attempt.SubmitAnswer(ctx, testStudentID, a.ID, mc.ID, "B")
	assert.True(t, errors.Is(err, util.ErrNoActiveAttempt), "before start: %v", err)

	_, err = h.Attempt.StartAttempt(ctx, testStudentID, a.ID)
	require.NoError(t, err)

	_, err = h.Attempt.SubmitAnswer(ctx, testStudentID, a.ID, 9999, "B")
	assert.True(t, errors.Is(err, util.ErrQuestionNotFound))

	_, err = h.Attempt.SubmitAnswer(ctx, testStudentID, a.ID, mc.ID, 42.0)
	assert.True(t, errors.Is(err, util.ErrInvalidAnswerValue))

	_, err = h.Attempt.SubmitAnswer(ctx, testStudentID, a.ID, mc.ID, true)
	assert.True(t, errors.Is(err, util.ErrInvalidAnswerValue), "booleans only for true/false")

	ans, err := h.Attempt.SubmitAnswer(ctx, testStudentID, a.ID, tf.ID, true)
	require.NoError(t, err)
	assert.Equal(t, "true", ans.Value)
	assert.True(t, ans.IsCorrect)

	_, err = h.Attempt.FinalizeAttempt(ctx, testStudentID, a.ID)
	require.NoError(t, err)
	_, err = h.Attempt.SubmitAnswer(ctx, testStudentID, a.ID, mc.ID, "B")
	assert.True(t, errors.Is(err, util.ErrNoActiveAttempt), "after finalize: %v", err)
}

func TestSubmitAnswerLastWriteWins(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := h.createAssessment(t, twoQuestionRequest(t))
	mc := a.Questions[0]

	_, err := h.Attempt.StartAttempt(ctx, testStudentID, a.ID)
	require.NoError(t, err)
	_, err = h.Attempt.SubmitAnswer(ctx, testStudentID, a.ID, mc.ID, "A")
	require.NoError(t, err)
	_, err = h.Attempt.SubmitAnswer(ctx, testStudentID, a.ID, mc.ID, " b ")
	require.NoError(t, err)

	res, err := h.Attempt.FinalizeAttempt(ctx, testStudentID, a.ID)
	require.NoError(t, err)
	require.Len(t, res.Attempt.Answers, 1)
	assert.Equal(t, " b ", res.Attempt.Answers[0].Value)
	// option text matching is exact after trimming, so lower-case "b" is not option "B"
	assert.Equal(t, 0, res.Attempt.Score)
}

func TestConcurrentAnswersBothPersist(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := h.createAssessment(t, twoQuestionRequest(t))

	_, err := h.Attempt.StartAttempt(ctx, testStudentID, a.ID)
	require.NoError(t, err)

	values := map[uint]interface{}{
		a.Questions[0].ID: "B",
		a.Questions[1].ID: "True",
	}
	var wg sync.WaitGroup
	for qid, v := range values {
		wg.Add(1)
		go func(qid uint, v interface{}) {
			defer wg.Done()
			_, err := h.Attempt.SubmitAnswer(ctx, testStudentID, a.ID, qid, v)
			assert.NoError(t, err)
		}(qid, v)
	}
	wg.Wait()

	res, err := h.Attempt.FinalizeAttempt(ctx, testStudentID, a.ID)
	require.NoError(t, err)
	assert.Len(t, res.Attempt.Answers, 2)
	assert.Equal(t, 20, res.Attempt.Score)
	assert.Equal(t, 100, res.Attempt.Percentage)
}

func TestFinalizeWithoutOpenAttempt(t *testing.T) {
	h := newHarness(t)
	a := h.createAssessment(t, twoQuestionRequest(t))

	_, err := h.Attempt.FinalizeAttempt(context.Background(), testStudentID, a.ID)
	assert.True(t, errors.Is(err, util.ErrNoActiveAttempt))
}

func TestConcurrentFinalizeSubmitsOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := h.createAssessment(t, twoQuestionRequest(t))
	_, err := h.Attempt.StartAttempt(ctx, testStudentID, a.ID)
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		noActive  int
	)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.Attempt.FinalizeAttempt(ctx, testStudentID, a.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, util.ErrNoActiveAttempt):
				noActive++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 3, noActive)

	stored, err := h.Assessments.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Statistics.AttemptCount)
}

func TestGetAttemptPrefersOpenThenLatest(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	req := twoQuestionRequest(t)
	req.MaxAttempts = 2
	a := h.createAssessment(t, req)

	_, err := h.Attempt.GetAttempt(ctx, testStudentID, a.ID)
	assert.True(t, errors.Is(err, util.ErrAttemptNotFound))

	_, err = h.Attempt.StartAttempt(ctx, testStudentID, a.ID)
	require.NoError(t, err)
	_, err = h.Attempt.FinalizeAttempt(ctx, testStudentID, a.ID)
	require.NoError(t, err)

	got, err := h.Attempt.GetAttempt(ctx, testStudentID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.AttemptNumber)
	assert.Equal(t, model.AttemptSubmitted, got.State())

	_, err = h.Attempt.StartAttempt(ctx, testStudentID, a.ID)
	require.NoError(t, err)
	got, err = h.Attempt.GetAttempt(ctx, testStudentID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.AttemptNumber)
	assert.Equal(t, model.AttemptOpen, got.State())
}

func TestViewHidesAnswersAndKeepsOrderStable(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	req := twoQuestionRequest(t)
	req.ShuffleQuestions = true
	req.ShuffleOptions = true
	a := h.createAssessment(t, req)

	_, err := h.Attempt.StartAttempt(ctx, testStudentID, a.ID)
	require.NoError(t, err)

	first, err := h.Attempt.View(ctx, testStudentID, a.ID)
	require.NoError(t, err)
	again, err := h.Attempt.View(ctx, testStudentID, a.ID)
	require.NoError(t, err)

	assert.Equal(t, model.AttemptOpen, first.State)
	assert.Equal(t, first.Questions, again.Questions)
	assert.Len(t, first.Questions, 2)
	for _, q := range first.Questions {
		if q.Type == model.QuestionMultipleChoice {
			assert.ElementsMatch(t, []string{"A", "B", "C", "D"}, q.Options)
		}
	}
}
