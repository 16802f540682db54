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

type AttemptRepository struct {
	DB *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{DB: db}
}

func orderedAnswers(db *gorm.DB) *gorm.DB {
	return db.Order("id asc")
}

func (r *AttemptRepository) pair(ctx context.Context, assessmentID, studentID uint) *gorm.DB {
	return r.DB.WithContext(ctx).
		Preload("Answers", orderedAnswers).
		Where("assessment_id = ? AND student_id = ?", assessmentID, studentID)
}

func (r *AttemptRepository) FindOpen(ctx context.Context, assessmentID, studentID uint) (*model.Attempt, error) {
	var a model.Attempt
	err := r.pair(ctx, assessmentID, studentID).Where("submitted_at IS NULL").First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "find open attempt")
	}
	return &a, nil
}

func (r *AttemptRepository) FindLatest(ctx context.Context, assessmentID, studentID uint) (*model.Attempt, error) {
	var a model.Attempt
	err := r.pair(ctx, assessmentID, studentID).Order("attempt_number desc").First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "find latest attempt")
	}
	return &a, nil
}

func (r *AttemptRepository) List(ctx context.Context, assessmentID, studentID uint) ([]model.Attempt, error) {
	var attempts []model.Attempt
	err := r.pair(ctx, assessmentID, studentID).Order("attempt_number asc").Find(&attempts).Error
	return attempts, err
}

func (r *AttemptRepository) CountSubmitted(ctx context.Context, assessmentID, studentID uint) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&model.Attempt{}).
		Where("assessment_id = ? AND student_id = ? AND submitted_at IS NOT NULL", assessmentID, studentID).
		Count(&n).Error
	return n, err
}

// Create inserts an open attempt. The open-slot unique index rejects a second
// open attempt for the pair even if two engine instances race past their locks.
// The assessment row is read FOR SHARE so the insert serializes with
// UpdateDefinition.
func (r *AttemptRepository) Create(ctx context.Context, attempt *model.Attempt) error {
	slot := 1
	attempt.OpenSlot = &slot
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []uint
		err := tx.Clauses(clause.Locking{Strength: "SHARE"}).
			Model(&model.Assessment{}).Where("id = ?", attempt.AssessmentID).Pluck("id", &ids).Error
		if err != nil {
			return errors.Wrapf(err, "lock assessment %d", attempt.AssessmentID)
		}
		if len(ids) == 0 {
			return errors.Wrapf(util.ErrAssessmentNotFound, "assessment %d", attempt.AssessmentID)
		}

		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Omit("Answers").Create(attempt)
		if res.Error != nil {
			return errors.Wrap(res.Error, "create attempt")
		}
		if res.RowsAffected == 0 {
			return errors.Wrapf(util.ErrConcurrentUpdateFailed,
				"attempt %d for assessment %d student %d already exists", attempt.AttemptNumber, attempt.AssessmentID, attempt.StudentID)
		}
		return nil
	})
}

// UpsertAnswer keeps one row per (attempt, question); the last write wins.
func (r *AttemptRepository) UpsertAnswer(ctx context.Context, answer *model.Answer) error {
	err := r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "attempt_id"}, {Name: "question_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "is_correct", "points_awarded", "updated_at"}),
	}).Create(answer).Error
	return errors.Wrap(err, "upsert answer")
}

func (r *AttemptRepository) ListAnswers(ctx context.Context, attemptID uint) ([]model.Answer, error) {
	var answers []model.Answer
	err := r.DB.WithContext(ctx).Where("attempt_id = ?", attemptID).Order("id asc").Find(&answers).Error
	return answers, err
}

func (r *AttemptRepository) Finalize(ctx context.Context, attempt *model.Attempt) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Attempt{}).
			Where("id = ? AND submitted_at IS NULL", attempt.ID).
			Updates(map[string]interface{}{
				"submitted_at":       attempt.SubmittedAt,
				"score":              attempt.Score,
				"percentage":         attempt.Percentage,
				"time_spent_minutes": attempt.TimeSpentMinutes,
				"open_slot":          nil,
			})
		if res.Error != nil {
			return errors.Wrapf(res.Error, "finalize attempt %d", attempt.ID)
		}
		if res.RowsAffected == 0 {
			return errors.Wrapf(util.ErrNoActiveAttempt, "attempt %d already submitted", attempt.ID)
		}

		// invalidate any statistics computed before this attempt was visible
		return tx.Model(&model.Assessment{}).
			Where("id = ?", attempt.AssessmentID).
			Updates(map[string]interface{}{
				"stats_version": gorm.Expr("stats_version + 1"),
				"stats_dirty":   true,
			}).Error
	})
}

func (r *AttemptRepository) ListUnrewarded(ctx context.Context, submittedBefore time.Time, limit int) ([]model.Attempt, error) {
	var attempts []model.Attempt
	err := r.DB.WithContext(ctx).
		Where("submitted_at IS NOT NULL AND rewarded_at IS NULL AND submitted_at < ?", submittedBefore).
		Order("id asc").
		Limit(limit).
		Find(&attempts).Error
	return attempts, errors.Wrap(err, "list unrewarded attempts")
}
