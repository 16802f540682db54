package service

import (
	"assessment_engine/internal/model"
	"assessment_engine/internal/util"
	"assessment_engine/pkg/monitoring"
	"assessment_engine/pkg/tracing"
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// AttemptService runs the NotStarted → Open → Submitted lifecycle. Every
// operation on one (assessment, student) pair holds that pair's lock, so
// start, answer and finalize are linearized per pair.
type AttemptService struct {
	Assessments AssessmentStore
	Attempts    AttemptStore
	Enrollment  EnrollmentChecker
	Clock       Clock
	Locks       Locker
	Stats       *StatisticsService
	Log         *zap.Logger
}

func NewAttemptService(
	assessments AssessmentStore,
	attempts AttemptStore,
	enrollment EnrollmentChecker,
	clock Clock,
	locks Locker,
	stats *StatisticsService,
	log *zap.Logger,
) *AttemptService {
	return &AttemptService{
		Assessments: assessments,
		Attempts:    attempts,
		Enrollment:  enrollment,
		Clock:       clock,
		Locks:       locks,
		Stats:       stats,
		Log:         log,
	}
}

func pairKey(assessmentID, studentID uint) string {
	return fmt.Sprintf("attempt:%d:%d", assessmentID, studentID)
}

func (s *AttemptService) lockPair(ctx context.Context, assessmentID, studentID uint) (func(), error) {
	unlock, err := s.Locks.Lock(ctx, pairKey(assessmentID, studentID))
	if err != nil {
		return nil, errors.Wrapf(err, "lock attempt pair %d/%d", assessmentID, studentID)
	}
	return unlock, nil
}

// StartAttempt opens a new attempt, or returns the one already open.
func (s *AttemptService) StartAttempt(ctx context.Context, studentID, assessmentID uint) (*model.Attempt, error) {
	assessment, err := s.Assessments.FindByID(ctx, assessmentID)
	if err != nil {
		return nil, err
	}

	now := s.Clock.Now()
	if !assessment.IsAvailableAt(now) {
		return nil, errors.Wrapf(util.ErrNotAvailable, "assessment %d at %s", assessmentID, now.Format(util.TimeFormat))
	}

	enrolled, err := s.Enrollment.IsEnrolled(ctx, studentID, assessment.CourseID)
	if err != nil {
		return nil, err
	}
	if !enrolled {
		return nil, errors.Wrapf(util.ErrNotEnrolled, "student %d course %d", studentID, assessment.CourseID)
	}

	unlock, err := s.lockPair(ctx, assessmentID, studentID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	open, err := s.Attempts.FindOpen(ctx, assessmentID, studentID)
	if err != nil {
		return nil, err
	}
	if open != nil {
		return open, nil
	}

	submitted, err := s.Attempts.CountSubmitted(ctx, assessmentID, studentID)
	if err != nil {
		return nil, err
	}
	if int(submitted) >= assessment.MaxAttempts {
		return nil, errors.Wrapf(util.ErrAttemptLimitExceeded, "%d of %d attempts used", submitted, assessment.MaxAttempts)
	}

	attempt := &model.Attempt{
		AssessmentID:  assessmentID,
		StudentID:     studentID,
		AttemptNumber: int(submitted) + 1,
		StartedAt:     now,
		Answers:       []model.Answer{},
	}
	if err := s.Attempts.Create(ctx, attempt); err != nil {
		return nil, err
	}

	monitoring.AttemptsStarted.Inc()
	s.Log.Info("attempt started",
		zap.Uint("assessmentId", assessmentID),
		zap.Uint("studentId", studentID),
		zap.Int("attemptNumber", attempt.AttemptNumber),
	)
	return attempt, nil
}

// SubmitAnswer grades the value immediately and upserts it into the open attempt.
func (s *AttemptService) SubmitAnswer(ctx context.Context, studentID, assessmentID, questionID uint, value interface{}) (*model.Answer, error) {
	assessment, err := s.Assessments.FindByID(ctx, assessmentID)
	if err != nil {
		return nil, err
	}

	unlock, err := s.lockPair(ctx, assessmentID, studentID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	attempt, err := s.Attempts.FindOpen(ctx, assessmentID, studentID)
	if err != nil {
		return nil, err
	}
	if attempt == nil {
		return nil, errors.Wrapf(util.ErrNoActiveAttempt, "assessment %d student %d", assessmentID, studentID)
	}

	question, ok := assessment.FindQuestion(questionID)
	if !ok {
		return nil, errors.Wrapf(util.ErrQuestionNotFound, "question %d in assessment %d", questionID, assessmentID)
	}

	normalized, err := NormalizeAnswerValue(question, value)
	if err != nil {
		return nil, err
	}
	correct, points := GradeAnswer(question, normalized)

	answer := &model.Answer{
		AttemptID:     attempt.ID,
		QuestionID:    questionID,
		Value:         normalized,
		IsCorrect:     correct,
		PointsAwarded: points,
	}
	if err := s.Attempts.UpsertAnswer(ctx, answer); err != nil {
		return nil, err
	}

	monitoring.AnswersGraded.WithLabelValues(string(question.Type), strconv.FormatBool(correct)).Inc()
	return answer, nil
}

// FinalizeResult separates the durable attempt outcome from the aggregate
// refresh, which may be left pending for the reconciler.
type FinalizeResult struct {
	Attempt           *model.Attempt             `json:"attempt"`
	Assessment        *model.Assessment          `json:"-"`
	Statistics        model.AssessmentStatistics `json:"statistics"`
	StatisticsPending bool                       `json:"statisticsPending"`
}

// FinalizeAttempt submits the open attempt, scores it and refreshes the
// assessment statistics.
func (s *AttemptService) FinalizeAttempt(ctx context.Context, studentID, assessmentID uint) (*FinalizeResult, error) {
	ctx, span := tracing.Tracer.Start(ctx, "AttemptService.FinalizeAttempt")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("assessment.id", int64(assessmentID)),
		attribute.Int64("student.id", int64(studentID)),
	)

	assessment, err := s.Assessments.FindByID(ctx, assessmentID)
	if err != nil {
		return nil, err
	}

	attempt, err := s.finalizeLocked(ctx, assessment, studentID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	result := &FinalizeResult{Attempt: attempt, Assessment: assessment}

	// the attempt is already durable; a statistics failure only defers the aggregate
	stats, err := s.Stats.Refresh(ctx, assessmentID)
	if err != nil {
		s.Log.Warn("statistics refresh deferred",
			zap.Uint("assessmentId", assessmentID),
			zap.Uint("attemptId", attempt.ID),
			zap.Error(err),
		)
		result.StatisticsPending = true
	} else {
		result.Statistics = stats
	}
	return result, nil
}

func (s *AttemptService) finalizeLocked(ctx context.Context, assessment *model.Assessment, studentID uint) (*model.Attempt, error) {
	unlock, err := s.lockPair(ctx, assessment.ID, studentID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	attempt, err := s.Attempts.FindOpen(ctx, assessment.ID, studentID)
	if err != nil {
		return nil, err
	}
	if attempt == nil {
		return nil, errors.Wrapf(util.ErrNoActiveAttempt, "assessment %d student %d", assessment.ID, studentID)
	}

	answers, err := s.Attempts.ListAnswers(ctx, attempt.ID)
	if err != nil {
		return nil, err
	}

	now := s.Clock.Now()
	attempt.Answers = answers
	attempt.SubmittedAt = &now
	attempt.TimeSpentMinutes = int(math.Round(now.Sub(attempt.StartedAt).Minutes()))
	attempt.Score, attempt.Percentage = ScoreAnswers(answers, assessment.TotalPoints())

	if err := s.Attempts.Finalize(ctx, attempt); err != nil {
		return nil, err
	}
	attempt.OpenSlot = nil

	monitoring.AttemptsFinalized.Inc()
	monitoring.AttemptPercentage.Observe(float64(attempt.Percentage))
	s.Log.Info("attempt finalized",
		zap.Uint("assessmentId", assessment.ID),
		zap.Uint("studentId", studentID),
		zap.Int("attemptNumber", attempt.AttemptNumber),
		zap.Int("score", attempt.Score),
		zap.Int("percentage", attempt.Percentage),
	)
	return attempt, nil
}

// GetAttempt returns the open attempt, else the most recent submitted one.
func (s *AttemptService) GetAttempt(ctx context.Context, studentID, assessmentID uint) (*model.Attempt, error) {
	open, err := s.Attempts.FindOpen(ctx, assessmentID, studentID)
	if err != nil {
		return nil, err
	}
	if open != nil {
		return open, nil
	}
	latest, err := s.Attempts.FindLatest(ctx, assessmentID, studentID)
	if err != nil {
		return nil, err
	}
	if latest == nil {
		return nil, errors.Wrapf(util.ErrAttemptNotFound, "assessment %d student %d", assessmentID, studentID)
	}
	return latest, nil
}

func (s *AttemptService) ListAttempts(ctx context.Context, studentID, assessmentID uint) ([]model.Attempt, error) {
	return s.Attempts.List(ctx, assessmentID, studentID)
}

// AttemptView is the learner-facing attempt with its question sheet.
type AttemptView struct {
	Attempt   *model.Attempt     `json:"attempt"`
	State     model.AttemptState `json:"state"`
	Questions []QuestionView     `json:"questions"`
}

func (s *AttemptService) View(ctx context.Context, studentID, assessmentID uint) (*AttemptView, error) {
	assessment, err := s.Assessments.FindByID(ctx, assessmentID)
	if err != nil {
		return nil, err
	}
	attempt, err := s.GetAttempt(ctx, studentID, assessmentID)
	if err != nil {
		return nil, err
	}
	return &AttemptView{
		Attempt:   attempt,
		State:     attempt.State(),
		Questions: PresentQuestions(assessment, attempt),
	}, nil
}
