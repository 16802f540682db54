package repository

import (
	"assessment_engine/internal/model"
	"assessment_engine/internal/util"
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProgressionRepository struct {
	DB *gorm.DB
}

func NewProgressionRepository(db *gorm.DB) *ProgressionRepository {
	return &ProgressionRepository{DB: db}
}

func (r *ProgressionRepository) Load(ctx context.Context, learnerID uint) (*model.ProgressionRecord, bool, error) {
	var rec model.ProgressionRecord
	err := r.DB.WithContext(ctx).Where("learner_id = ?", learnerID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.NewProgressionRecord(learnerID), false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(err, "load progression of learner %d", learnerID)
	}
	return &rec, true, nil
}

// CompareAndSwap stores rec with Version = expected+1. An insert that hits an
// existing row, or an update whose version no longer matches, reports false.
func (r *ProgressionRepository) CompareAndSwap(ctx context.Context, rec *model.ProgressionRecord, expected int, exists bool) (bool, error) {
	return compareAndSwap(r.DB.WithContext(ctx), rec, expected, exists)
}

var errVersionMoved = errors.New("progression version moved")

// CompareAndSwapReward claims the attempt's reward and stores rec in one
// transaction, so the ledger write and the rewarded_at stamp commit together.
func (r *ProgressionRepository) CompareAndSwapReward(ctx context.Context, rec *model.ProgressionRecord, expected int, exists bool, attemptID uint, at time.Time) (bool, error) {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Attempt{}).
			Where("id = ? AND student_id = ? AND submitted_at IS NOT NULL AND rewarded_at IS NULL", attemptID, rec.LearnerID).
			Update("rewarded_at", at)
		if res.Error != nil {
			return errors.Wrapf(res.Error, "claim reward of attempt %d", attemptID)
		}
		if res.RowsAffected == 0 {
			return errors.Wrapf(util.ErrRewardAlreadyApplied, "attempt %d of learner %d", attemptID, rec.LearnerID)
		}

		ok, err := compareAndSwap(tx, rec, expected, exists)
		if err != nil {
			return err
		}
		if !ok {
			// roll the claim back with the lost swap
			return errVersionMoved
		}
		return nil
	})
	if errors.Is(err, errVersionMoved) {
		return false, nil
	}
	return err == nil, err
}

func compareAndSwap(db *gorm.DB, rec *model.ProgressionRecord, expected int, exists bool) (bool, error) {
	rec.Version = expected + 1

	if !exists {
		res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(rec)
		if res.Error != nil {
			return false, errors.Wrapf(res.Error, "create progression of learner %d", rec.LearnerID)
		}
		return res.RowsAffected == 1, nil
	}

	res := db.Model(&model.ProgressionRecord{}).
		Where("learner_id = ? AND version = ?", rec.LearnerID, expected).
		Updates(map[string]interface{}{
			"total_xp":         rec.TotalXP,
			"current_level":    rec.CurrentLevel,
			"xp_to_next_level": rec.XPToNextLevel,
			"stats":            rec.Stats,
			"streaks":          rec.Streaks,
			"recent_activity":  rec.RecentActivity,
			"version":          rec.Version,
		})
	if res.Error != nil {
		return false, errors.Wrapf(res.Error, "update progression of learner %d", rec.LearnerID)
	}
	return res.RowsAffected == 1, nil
}

func (r *ProgressionRepository) TopByXP(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	var rows []struct {
		LearnerID    uint
		Name         string
		TotalXP      int
		CurrentLevel int
	}
	err := r.DB.WithContext(ctx).Table("progression_records p").
		Select("p.learner_id, COALESCE(u.name, '') AS name, p.total_xp, p.current_level").
		Joins("LEFT JOIN users u ON u.id = p.learner_id").
		Order("p.total_xp desc, p.learner_id asc").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "load leaderboard")
	}

	entries := make([]model.LeaderboardEntry, len(rows))
	for i, row := range rows {
		entries[i] = model.LeaderboardEntry{
			Rank:      i + 1,
			LearnerID: row.LearnerID,
			Name:      row.Name,
			TotalXP:   row.TotalXP,
			Level:     row.CurrentLevel,
		}
	}
	return entries, nil
}
