package model

type UserRole string

const (
	Student UserRole = "student"
	Teacher UserRole = "teacher"
	Admin   UserRole = "admin"
)

// User mirrors the identity owned by the external account service; the engine
// only reads names for the leaderboard.
// swagger:model User
type User struct {
	BaseModel
	Name   string   `gorm:"size:100;not null" json:"name"`
	Email  string   `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Role   UserRole `gorm:"size:20;default:'student'" json:"role"`
	Avatar string   `gorm:"size:255" json:"avatar"`
}

func (User) TableName() string {
	return "users"
}

// CourseEnrollment backs the enrollment predicate consulted by StartAttempt.
type CourseEnrollment struct {
	BaseModel
	CourseID  uint `gorm:"uniqueIndex:idx_enrollment_course_student,priority:1;not null" json:"courseId"`
	StudentID uint `gorm:"uniqueIndex:idx_enrollment_course_student,priority:2;not null" json:"studentId"`
	Active    bool `gorm:"default:true" json:"active"`
}

func (CourseEnrollment) TableName() string {
	return "course_enrollments"
}
