package model

import (
	"time"

	"gorm.io/gorm"
)

// swagger:model
type BaseModel struct {
	ID        uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// AllModels lists every table the engine migrates.
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&CourseEnrollment{},
		&Assessment{},
		&Question{},
		&Attempt{},
		&Answer{},
		&ProgressionRecord{},
	}
}
