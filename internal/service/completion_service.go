package service

import (
	"assessment_engine/internal/util"
	"context"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// rewardGrace keeps the sweep away from attempts whose inline reward may still be running.
const rewardGrace = 30 * time.Second

// CompletionService turns a finalized attempt into ledger effects.
type CompletionService struct {
	Attempts    *AttemptService
	Progression *ProgressionService
	Log         *zap.Logger
}

func NewCompletionService(attempts *AttemptService, progression *ProgressionService, log *zap.Logger) *CompletionService {
	return &CompletionService{Attempts: attempts, Progression: progression, Log: log}
}

type CompletionResult struct {
	*FinalizeResult
	Reward *AwardResult `json:"reward,omitempty"`
	// RewardPending is set when the ledger write failed; ReconcileRewards
	// applies it later.
	RewardPending bool `json:"rewardPending,omitempty"`
}

// CompleteAttempt finalizes the learner's open attempt and records the quiz
// reward. Finalization is durable on its own: the submitted attempt keeps a
// nil RewardedAt until the ledger write lands, and the reconciler retries it.
func (s *CompletionService) CompleteAttempt(ctx context.Context, studentID, assessmentID uint) (*CompletionResult, error) {
	fin, err := s.Attempts.FinalizeAttempt(ctx, studentID, assessmentID)
	if err != nil {
		return nil, err
	}

	res := &CompletionResult{FinalizeResult: fin}
	reward, err := s.Progression.RecordQuizCompletion(ctx, studentID, fin.Assessment, fin.Attempt)
	if err != nil {
		s.Log.Error("quiz reward deferred",
			zap.Uint("studentId", studentID),
			zap.Uint("attemptId", fin.Attempt.ID),
			zap.Error(err),
		)
		res.RewardPending = true
		return res, nil
	}
	res.Reward = reward
	return res, nil
}

// ReconcileRewards applies quiz rewards that CompleteAttempt could not store.
// It returns how many rewards were applied.
func (s *CompletionService) ReconcileRewards(ctx context.Context) (int, error) {
	before := s.Attempts.Clock.Now().Add(-rewardGrace)
	pending, err := s.Attempts.Attempts.ListUnrewarded(ctx, before, reconcileBatch)
	if err != nil {
		return 0, err
	}

	var applied atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i := range pending {
		attempt := &pending[i]
		g.Go(func() error {
			assessment, err := s.Attempts.Assessments.FindByID(gctx, attempt.AssessmentID)
			if err != nil {
				s.Log.Warn("reconcile quiz reward", zap.Uint("attemptId", attempt.ID), zap.Error(err))
				return nil
			}
			_, err = s.Progression.RecordQuizCompletion(gctx, attempt.StudentID, assessment, attempt)
			switch {
			case err == nil:
				applied.Add(1)
			case errors.Is(err, util.ErrRewardAlreadyApplied):
			default:
				// still unrewarded, picked up next round
				s.Log.Warn("reconcile quiz reward", zap.Uint("attemptId", attempt.ID), zap.Error(err))
			}
			return nil
		})
	}
	err = g.Wait()
	return int(applied.Load()), err
}
