package repository

import (
	"assessment_engine/internal/model"
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EnrollmentRepository answers the enrollment predicate from course_enrollments,
// with an optional short-lived redis cache in front.
type EnrollmentRepository struct {
	DB    *gorm.DB
	Redis *redis.Client
	TTL   time.Duration
}

func NewEnrollmentRepository(db *gorm.DB, rdb *redis.Client, ttl time.Duration) *EnrollmentRepository {
	return &EnrollmentRepository{DB: db, Redis: rdb, TTL: ttl}
}

func enrollmentKey(courseID, studentID uint) string {
	return fmt.Sprintf("engine:enrollment:%d:%d", courseID, studentID)
}

func (r *EnrollmentRepository) IsEnrolled(ctx context.Context, studentID, courseID uint) (bool, error) {
	key := enrollmentKey(courseID, studentID)
	if r.Redis != nil {
		if v, err := r.Redis.Get(ctx, key).Result(); err == nil {
			return v == "1", nil
		}
	}

	var n int64
	err := r.DB.WithContext(ctx).Model(&model.CourseEnrollment{}).
		Where("course_id = ? AND student_id = ? AND active = ?", courseID, studentID, true).
		Count(&n).Error
	if err != nil {
		return false, errors.Wrapf(err, "check enrollment of student %d in course %d", studentID, courseID)
	}

	enrolled := n > 0
	if r.Redis != nil && r.TTL > 0 {
		val := "0"
		if enrolled {
			val = "1"
		}
		r.Redis.Set(ctx, key, val, r.TTL)
	}
	return enrolled, nil
}

// Enroll is used by seeding and tests; the course service owns real enrollment.
func (r *EnrollmentRepository) Enroll(ctx context.Context, studentID, courseID uint) error {
	e := &model.CourseEnrollment{CourseID: courseID, StudentID: studentID, Active: true}
	err := r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "course_id"}, {Name: "student_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"active": true}),
	}).Create(e).Error
	if err != nil {
		return errors.Wrap(err, "enroll student")
	}
	if r.Redis != nil {
		r.Redis.Del(ctx, enrollmentKey(courseID, studentID))
	}
	return nil
}
