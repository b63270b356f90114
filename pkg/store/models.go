package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence.

type UploadModel struct {
	ID             string `gorm:"primaryKey"`
	Link           string `gorm:"not null"`
	Year           int    `gorm:"not null;index"`
	UniversityYear int    `gorm:"not null;index"`
	Semester       int    `gorm:"not null"`
	Module         string `gorm:"not null;index"`
	Type           string `gorm:"not null"`
	Speciality     string
	Solution       string
	Questions      datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt      time.Time      `gorm:"not null;index"`
}

type ContactModel struct {
	ID        string `gorm:"primaryKey"`
	FullName  string `gorm:"not null"`
	Email     string `gorm:"not null"`
	Message   string `gorm:"type:text;not null"`
	IsSeen    bool   `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null;index"`
}

type UserModel struct {
	ID           string `gorm:"primaryKey"`
	Name         string `gorm:"not null"`
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	Role         string `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
}
