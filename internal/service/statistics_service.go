package service

import (
	"assessment_engine/internal/model"
	"assessment_engine/internal/util"
	"assessment_engine/pkg/monitoring"
	"context"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// StatisticsService keeps Assessment.Statistics equal to an aggregate over the
// submitted attempts. Writes are compare-and-swap on the statistics version,
// which every finalization also bumps, so an aggregate that missed a newly
// submitted attempt can never be stored.
type StatisticsService struct {
	Store      StatisticsStore
	MaxRetries int
	Log        *zap.Logger
}

func NewStatisticsService(store StatisticsStore, maxRetries int, log *zap.Logger) *StatisticsService {
	return &StatisticsService{Store: store, MaxRetries: maxRetries, Log: log}
}

// Refresh recomputes and stores the statistics, retrying conflicts up to MaxRetries times.
func (s *StatisticsService) Refresh(ctx context.Context, assessmentID uint) (model.AssessmentStatistics, error) {
	for i := 0; i < s.MaxRetries; i++ {
		version, err := s.Store.StatsVersion(ctx, assessmentID)
		if err != nil {
			return model.AssessmentStatistics{}, err
		}
		stats, err := s.Store.AggregateSubmitted(ctx, assessmentID)
		if err != nil {
			return model.AssessmentStatistics{}, err
		}
		ok, err := s.Store.CompareAndSwapStats(ctx, assessmentID, version, stats)
		if err != nil {
			return model.AssessmentStatistics{}, err
		}
		if ok {
			return stats, nil
		}
		monitoring.CASConflicts.WithLabelValues("statistics", "retry").Inc()
	}
	monitoring.CASConflicts.WithLabelValues("statistics", "exhausted").Inc()
	return model.AssessmentStatistics{}, errors.Wrapf(util.ErrConcurrentUpdateFailed,
		"statistics of assessment %d after %d attempts", assessmentID, s.MaxRetries)
}

const reconcileBatch = 100

// ReconcileDirty refreshes assessments whose last refresh was deferred.
func (s *StatisticsService) ReconcileDirty(ctx context.Context) (int, error) {
	ids, err := s.Store.ListDirty(ctx, reconcileBatch)
	if err != nil {
		return 0, errors.Wrap(err, "list dirty assessments")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, id := range ids {
		g.Go(func() error {
			if _, err := s.Refresh(gctx, id); err != nil {
				// the assessment stays dirty and is picked up next round
				s.Log.Warn("reconcile statistics", zap.Uint("assessmentId", id), zap.Error(err))
			}
			return nil
		})
	}
	return len(ids), g.Wait()
}
