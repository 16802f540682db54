package repository

import (
	"assessment_engine/internal/model"
	"assessment_engine/internal/util"
	"context"

	"github.com/cockroachdb/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AssessmentRepository struct {
	DB *gorm.DB
}

func NewAssessmentRepository(db *gorm.DB) *AssessmentRepository {
	return &AssessmentRepository{DB: db}
}

func orderedQuestions(db *gorm.DB) *gorm.DB {
	return db.Order("position asc, id asc")
}

func (r *AssessmentRepository) FindByID(ctx context.Context, id uint) (*model.Assessment, error) {
	var a model.Assessment
	err := r.DB.WithContext(ctx).Preload("Questions", orderedQuestions).First(&a, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrapf(util.ErrAssessmentNotFound, "assessment %d", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "load assessment %d", id)
	}
	return &a, nil
}

// Create stores the definition and its questions atomically.
func (r *AssessmentRepository) Create(ctx context.Context, a *model.Assessment) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(a).Error
	})
}

// UpdateDefinition rewrites scalar fields and replaces the question set, but
// only while no attempt references the assessment. The assessment row is held
// FOR UPDATE, and AttemptRepository.Create takes it FOR SHARE, so a start
// cannot commit between the count and the rewrite.
func (r *AssessmentRepository) UpdateDefinition(ctx context.Context, a *model.Assessment) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var locked []uint
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Model(&model.Assessment{}).Where("id = ?", a.ID).Pluck("id", &locked).Error
		if err != nil {
			return errors.Wrapf(err, "lock assessment %d", a.ID)
		}
		if len(locked) == 0 {
			return errors.Wrapf(util.ErrAssessmentNotFound, "assessment %d", a.ID)
		}

		var attempts int64
		if err := tx.Model(&model.Attempt{}).Where("assessment_id = ?", a.ID).Count(&attempts).Error; err != nil {
			return err
		}
		if attempts > 0 {
			return errors.Wrapf(util.ErrDefinitionLocked, "assessment %d has %d attempts", a.ID, attempts)
		}

		err = tx.Model(&model.Assessment{}).Where("id = ?", a.ID).Updates(map[string]interface{}{
			"title":             a.Title,
			"description":       a.Description,
			"available_from":    a.AvailableFrom,
			"available_until":   a.AvailableUntil,
			"max_attempts":      a.MaxAttempts,
			"shuffle_questions": a.ShuffleQuestions,
			"shuffle_options":   a.ShuffleOptions,
			"xp_reward":         a.XPReward,
			"bonus_xp":          a.BonusXP,
		}).Error
		if err != nil {
			return err
		}

		if err := tx.Unscoped().Where("assessment_id = ?", a.ID).Delete(&model.Question{}).Error; err != nil {
			return err
		}
		for i := range a.Questions {
			a.Questions[i].ID = 0
			a.Questions[i].AssessmentID = a.ID
		}
		if len(a.Questions) > 0 {
			if err := tx.Create(&a.Questions).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *AssessmentRepository) ListByCourse(ctx context.Context, courseID uint, page, limit int) ([]model.Assessment, int64, error) {
	var total int64
	query := r.DB.WithContext(ctx).Model(&model.Assessment{})
	if courseID > 0 {
		query = query.Where("course_id = ?", courseID)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []model.Assessment
	offset := (page - 1) * limit
	err := query.Order("created_at desc").Offset(offset).Limit(limit).Find(&items).Error
	return items, total, err
}

func (r *AssessmentRepository) StatsVersion(ctx context.Context, assessmentID uint) (int, error) {
	var a model.Assessment
	err := r.DB.WithContext(ctx).Select("id", "stats_version").First(&a, assessmentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, errors.Wrapf(util.ErrAssessmentNotFound, "assessment %d", assessmentID)
	}
	return a.StatsVersion, err
}

// AggregateSubmitted recomputes statistics from every submitted attempt.
func (r *AssessmentRepository) AggregateSubmitted(ctx context.Context, assessmentID uint) (model.AssessmentStatistics, error) {
	var row struct {
		AttemptCount       int
		AverageScore       float64
		AverageTimeMinutes float64
	}
	err := r.DB.WithContext(ctx).Model(&model.Attempt{}).
		Select("COUNT(*) AS attempt_count, COALESCE(AVG(score), 0) AS average_score, COALESCE(AVG(time_spent_minutes), 0) AS average_time_minutes").
		Where("assessment_id = ? AND submitted_at IS NOT NULL", assessmentID).
		Scan(&row).Error
	if err != nil {
		return model.AssessmentStatistics{}, errors.Wrapf(err, "aggregate attempts of assessment %d", assessmentID)
	}
	return model.AssessmentStatistics{
		AttemptCount:       row.AttemptCount,
		AverageScore:       row.AverageScore,
		AverageTimeMinutes: row.AverageTimeMinutes,
	}, nil
}

func (r *AssessmentRepository) CompareAndSwapStats(ctx context.Context, assessmentID uint, expected int, stats model.AssessmentStatistics) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&model.Assessment{}).
		Where("id = ? AND stats_version = ?", assessmentID, expected).
		Updates(map[string]interface{}{
			"stats_attempt_count":        stats.AttemptCount,
			"stats_average_score":        stats.AverageScore,
			"stats_average_time_minutes": stats.AverageTimeMinutes,
			"stats_version":              expected + 1,
			"stats_dirty":                false,
		})
	if res.Error != nil {
		return false, errors.Wrapf(res.Error, "write statistics of assessment %d", assessmentID)
	}
	return res.RowsAffected == 1, nil
}

func (r *AssessmentRepository) ListDirty(ctx context.Context, limit int) ([]uint, error) {
	var ids []uint
	err := r.DB.WithContext(ctx).Model(&model.Assessment{}).
		Where("stats_dirty = ?", true).
		Order("id asc").
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}
