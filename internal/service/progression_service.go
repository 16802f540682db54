package service

import (
	"assessment_engine/internal/model"
	"assessment_engine/internal/util"
	"assessment_engine/pkg/monitoring"
	"assessment_engine/pkg/tracing"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const perfectScoreBonusThreshold = 90

// ProgressionService is the only writer of progression records. Mutations
// for one learner hold that learner's lock and are stored with a
// compare-and-swap on the record version, retried a bounded number of times.
type ProgressionService struct {
	Store       ProgressionStore
	Clock       Clock
	Locks       Locker
	MaxRetries  int
	ActivityCap int
	Log         *zap.Logger

	listeners []LevelUpListener
}

func NewProgressionService(store ProgressionStore, clock Clock, locks Locker, maxRetries, activityCap int, log *zap.Logger) *ProgressionService {
	return &ProgressionService{
		Store:       store,
		Clock:       clock,
		Locks:       locks,
		MaxRetries:  maxRetries,
		ActivityCap: activityCap,
		Log:         log,
	}
}

// OnLevelUp registers a listener invoked synchronously after a level-up is stored.
func (s *ProgressionService) OnLevelUp(l LevelUpListener) {
	s.listeners = append(s.listeners, l)
}

// AwardResult is returned by every XP-granting mutation.
type AwardResult struct {
	LeveledUp bool          `json:"leveledUp"`
	NewLevel  int           `json:"newLevel"`
	XPGained  int           `json:"xpGained"`
	TotalXP   int           `json:"totalXp"`
	LevelUp   *LevelUpEvent `json:"levelUp,omitempty"`
}

// GetProgressionRecord returns the stored record or the default for a new learner.
func (s *ProgressionService) GetProgressionRecord(ctx context.Context, learnerID uint) (*model.ProgressionRecord, error) {
	rec, _, err := s.Store.Load(ctx, learnerID)
	return rec, err
}

// AwardXP adds amount to the learner's total and re-derives level and xpToNextLevel.
func (s *ProgressionService) AwardXP(ctx context.Context, learnerID uint, amount int, reason string) (*AwardResult, error) {
	if amount < 0 {
		return nil, errors.Wrapf(util.ErrInvalidXPAmount, "got %d", amount)
	}
	var result *AwardResult
	_, err := s.mutate(ctx, learnerID, "AwardXP", func(rec *model.ProgressionRecord, now time.Time) {
		result = s.applyXP(rec, amount, reason, now)
	})
	if err != nil {
		return nil, err
	}
	s.afterAward(ctx, result)
	return result, nil
}

// RecordQuizCompletion awards the assessment reward for a submitted attempt
// and bumps quiz counters in the same ledger write. The attempt is stamped as
// rewarded in that write, so a second call for it fails with
// ErrRewardAlreadyApplied instead of paying twice.
func (s *ProgressionService) RecordQuizCompletion(ctx context.Context, learnerID uint, assessment *model.Assessment, attempt *model.Attempt) (*AwardResult, error) {
	if attempt.ID == 0 {
		return nil, errors.Wrap(util.ErrAttemptNotFound, "quiz reward needs a stored attempt")
	}
	amount := QuizReward(assessment, attempt)
	reason := fmt.Sprintf("完成测验: %s (第%d次, %d%%)", assessment.Title, attempt.AttemptNumber, attempt.Percentage)
	var rewardedAt time.Time
	commit := func(ctx context.Context, rec *model.ProgressionRecord, expected int, exists bool) (bool, error) {
		rewardedAt = s.Clock.Now()
		return s.Store.CompareAndSwapReward(ctx, rec, expected, exists, attempt.ID, rewardedAt)
	}

	var result *AwardResult
	_, err := s.mutateWith(ctx, learnerID, "RecordQuizCompletion", commit, func(rec *model.ProgressionRecord, now time.Time) {
		stats := rec.Stats.Data()
		stats.QuizzesTaken++
		if attempt.Percentage == 100 {
			stats.PerfectScores++
		}
		rec.Stats = datatypes.NewJSONType(stats)
		bumpStreak(rec, util.StreakQuiz, 1)
		result = s.applyXP(rec, amount, reason, now)
	})
	if err != nil {
		return nil, err
	}
	attempt.RewardedAt = &rewardedAt
	s.afterAward(ctx, result)
	return result, nil
}

// QuizReward is xpReward plus bonusXP when the attempt scored at least 90%.
func QuizReward(assessment *model.Assessment, attempt *model.Attempt) int {
	reward := assessment.XPReward
	if attempt.Percentage >= perfectScoreBonusThreshold {
		reward += assessment.BonusXP
	}
	return reward
}

// UpdateStreak increments the named counter. The ledger never decays streaks.
func (s *ProgressionService) UpdateStreak(ctx context.Context, learnerID uint, name string) (*model.ProgressionRecord, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, util.ErrInvalidStreak
	}
	return s.mutate(ctx, learnerID, "UpdateStreak", func(rec *model.ProgressionRecord, now time.Time) {
		bumpStreak(rec, name, 1)
		s.prependActivity(rec, model.ActivityEntry{
			Action:      model.ActivityStreakUpdate,
			Description: name,
			Timestamp:   now,
		})
	})
}

// ResetStreak zeroes the named counter; callers detect the gap in activity.
func (s *ProgressionService) ResetStreak(ctx context.Context, learnerID uint, name string) (*model.ProgressionRecord, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, util.ErrInvalidStreak
	}
	return s.mutate(ctx, learnerID, "ResetStreak", func(rec *model.ProgressionRecord, now time.Time) {
		streaks := rec.Streaks.Data()
		if streaks == nil {
			streaks = map[string]int{}
		}
		streaks[name] = 0
		rec.Streaks = datatypes.NewJSONType(streaks)
		s.prependActivity(rec, model.ActivityEntry{
			Action:      model.ActivityStreakReset,
			Description: name,
			Timestamp:   now,
		})
	})
}

// RecordAssignmentCompleted is the hook used by the assignment collaborator.
func (s *ProgressionService) RecordAssignmentCompleted(ctx context.Context, learnerID uint, xp int, title string) (*AwardResult, error) {
	if xp < 0 {
		return nil, errors.Wrapf(util.ErrInvalidXPAmount, "got %d", xp)
	}
	var result *AwardResult
	_, err := s.mutate(ctx, learnerID, "RecordAssignmentCompleted", func(rec *model.ProgressionRecord, now time.Time) {
		stats := rec.Stats.Data()
		stats.AssignmentsCompleted++
		rec.Stats = datatypes.NewJSONType(stats)
		bumpStreak(rec, util.StreakAssignment, 1)
		result = s.applyXP(rec, xp, "完成作业: "+title, now)
	})
	if err != nil {
		return nil, err
	}
	s.afterAward(ctx, result)
	return result, nil
}

func (s *ProgressionService) Leaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.Store.TopByXP(ctx, limit)
}

func (s *ProgressionService) applyXP(rec *model.ProgressionRecord, amount int, reason string, now time.Time) *AwardResult {
	oldLevel := LevelForXP(rec.TotalXP)
	rec.TotalXP += amount
	rec.CurrentLevel = LevelForXP(rec.TotalXP)
	rec.XPToNextLevel = XPToNextLevel(rec.TotalXP)
	s.prependActivity(rec, model.ActivityEntry{
		Action:      model.ActivityXPEarned,
		XPDelta:     amount,
		Description: reason,
		Timestamp:   now,
	})

	result := &AwardResult{
		LeveledUp: rec.CurrentLevel > oldLevel,
		NewLevel:  rec.CurrentLevel,
		XPGained:  amount,
		TotalXP:   rec.TotalXP,
	}
	if result.LeveledUp {
		result.LevelUp = &LevelUpEvent{
			LearnerID: rec.LearnerID,
			OldLevel:  oldLevel,
			NewLevel:  rec.CurrentLevel,
			At:        now,
		}
	}
	return result
}

func (s *ProgressionService) prependActivity(rec *model.ProgressionRecord, entry model.ActivityEntry) {
	log := make(datatypes.JSONSlice[model.ActivityEntry], 0, s.ActivityCap)
	log = append(log, entry)
	for _, e := range rec.RecentActivity {
		if len(log) >= s.ActivityCap {
			break
		}
		log = append(log, e)
	}
	rec.RecentActivity = log
}

func bumpStreak(rec *model.ProgressionRecord, name string, by int) {
	streaks := rec.Streaks.Data()
	if streaks == nil {
		streaks = map[string]int{}
	}
	streaks[name] += by
	rec.Streaks = datatypes.NewJSONType(streaks)
}

func (s *ProgressionService) afterAward(ctx context.Context, result *AwardResult) {
	monitoring.XPAwarded.Add(float64(result.XPGained))
	if result.LevelUp == nil {
		return
	}
	monitoring.LevelUps.Inc()
	for _, l := range s.listeners {
		l(ctx, *result.LevelUp)
	}
}

type commitFunc func(ctx context.Context, rec *model.ProgressionRecord, expected int, exists bool) (bool, error)

// mutate applies fn to a fresh copy of the record and stores it with
// compare-and-swap. fn may run more than once; it must only touch rec.
func (s *ProgressionService) mutate(ctx context.Context, learnerID uint, op string, fn func(rec *model.ProgressionRecord, now time.Time)) (*model.ProgressionRecord, error) {
	return s.mutateWith(ctx, learnerID, op, s.Store.CompareAndSwap, fn)
}

func (s *ProgressionService) mutateWith(ctx context.Context, learnerID uint, op string, commit commitFunc, fn func(rec *model.ProgressionRecord, now time.Time)) (*model.ProgressionRecord, error) {
	ctx, span := tracing.Tracer.Start(ctx, "ProgressionService."+op)
	defer span.End()
	span.SetAttributes(attribute.Int64("learner.id", int64(learnerID)))

	unlock, err := s.Locks.Lock(ctx, fmt.Sprintf("progression:%d", learnerID))
	if err != nil {
		return nil, errors.Wrapf(err, "lock progression of learner %d", learnerID)
	}
	defer unlock()

	for i := 0; i < s.MaxRetries; i++ {
		stored, exists, err := s.Store.Load(ctx, learnerID)
		if err != nil {
			return nil, err
		}
		rec := stored.Clone()
		fn(rec, s.Clock.Now())

		ok, err := commit(ctx, rec, stored.Version, exists)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		if ok {
			return rec, nil
		}
		monitoring.CASConflicts.WithLabelValues("progression", "retry").Inc()
		s.Log.Debug("progression version conflict",
			zap.Uint("learnerId", learnerID),
			zap.String("op", op),
			zap.Int("try", i+1),
		)
	}

	monitoring.CASConflicts.WithLabelValues("progression", "exhausted").Inc()
	err = errors.Wrapf(util.ErrConcurrentUpdateFailed, "%s for learner %d after %d attempts", op, learnerID, s.MaxRetries)
	span.RecordError(err)
	return nil, err
}
