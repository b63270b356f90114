package store

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"studyportal/pkg/domain"
)

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.AutoMigrate(&UploadModel{}, &ContactModel{}, &UserModel{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// CreateUpload stores a new upload record.
func (s *GormStore) CreateUpload(u domain.Upload) error {
	model, err := uploadToModel(u)
	if err != nil {
		return err
	}
	return s.db.Create(&model).Error
}

// ListUploads returns uploads matching the filter. Unset filter fields
// are not applied. Default order is newest first by creation time; the
// chat path orders by university year descending and caps results.
func (s *GormStore) ListUploads(filter domain.UploadFilter) ([]domain.Upload, error) {
	tx := s.db.Model(&UploadModel{})
	if filter.Year != nil {
		tx = tx.Where("year = ?", *filter.Year)
	}
	if filter.UniversityYear != nil {
		tx = tx.Where("university_year = ?", *filter.UniversityYear)
	}
	if filter.Semester != nil {
		tx = tx.Where("semester = ?", *filter.Semester)
	}
	if filter.Type != "" {
		tx = tx.Where("type = ?", string(filter.Type))
	}
	if filter.Module != "" {
		tx = tx.Where("module ILIKE ?", "%"+filter.Module+"%")
	}
	if filter.Speciality != "" {
		tx = tx.Where("speciality = ?", string(filter.Speciality))
	}
	if filter.ByUniversityYear {
		tx = tx.Order("university_year DESC")
	} else {
		tx = tx.Order("created_at DESC")
	}
	if filter.Limit > 0 {
		tx = tx.Limit(filter.Limit)
	}
	var models []UploadModel
	if err := tx.Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Upload, 0, len(models))
	for _, m := range models {
		res = append(res, uploadFromModel(m))
	}
	return res, nil
}

// GetUpload retrieves one upload by ID.
func (s *GormStore) GetUpload(id string) (domain.Upload, bool, error) {
	var model UploadModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Upload{}, false, nil
		}
		return domain.Upload{}, false, err
	}
	return uploadFromModel(model), true, nil
}

// DeleteUpload removes the upload row.
func (s *GormStore) DeleteUpload(id string) error {
	return s.db.Delete(&UploadModel{}, "id = ?", id).Error
}

// SetUploadQuestions stores asynchronously generated questions.
func (s *GormStore) SetUploadQuestions(id string, questions []string) error {
	data, err := json.Marshal(questions)
	if err != nil {
		return err
	}
	return s.db.Model(&UploadModel{}).
		Where("id = ?", id).
		Update("questions", datatypes.JSON(data)).Error
}

// CreateContact stores a contact inquiry.
func (s *GormStore) CreateContact(c domain.Contact) error {
	model := contactToModel(c)
	return s.db.Create(&model).Error
}

// ListContacts returns contacts newest first.
func (s *GormStore) ListContacts() ([]domain.Contact, error) {
	var models []ContactModel
	if err := s.db.Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Contact, 0, len(models))
	for _, m := range models {
		res = append(res, contactFromModel(m))
	}
	return res, nil
}

// GetContact retrieves one contact by ID.
func (s *GormStore) GetContact(id string) (domain.Contact, bool, error) {
	var model ContactModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Contact{}, false, nil
		}
		return domain.Contact{}, false, err
	}
	return contactFromModel(model), true, nil
}

// SetContactSeen toggles the seen flag.
func (s *GormStore) SetContactSeen(id string, seen bool) error {
	return s.db.Model(&ContactModel{}).
		Where("id = ?", id).
		Update("is_seen", seen).Error
}

// DeleteContact removes the contact row.
func (s *GormStore) DeleteContact(id string) error {
	return s.db.Delete(&ContactModel{}, "id = ?", id).Error
}

// SaveUser stores or updates a user.
func (s *GormStore) SaveUser(u domain.User) error {
	model := userToModel(u)
	return s.db.Save(&model).Error
}

// HasUserEmail checks if the email exists.
func (s *GormStore) HasUserEmail(email string) (bool, error) {
	var count int64
	if err := s.db.Model(&UserModel{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetUserByEmail looks up a user by email.
func (s *GormStore) GetUserByEmail(email string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.Where("email = ?", email).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// GetUserByID returns a user by ID.
func (s *GormStore) GetUserByID(id string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// ListUsersByRole returns users with the given role ordered by name.
func (s *GormStore) ListUsersByRole(role domain.UserRole) ([]domain.User, error) {
	var models []UserModel
	if err := s.db.Where("role = ?", string(role)).Order("name ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.User, 0, len(models))
	for _, m := range models {
		res = append(res, userFromModel(m))
	}
	return res, nil
}

// UserCount returns the number of users.
func (s *GormStore) UserCount() (int, error) {
	var count int64
	if err := s.db.Model(&UserModel{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

// DeleteUser removes the user row.
func (s *GormStore) DeleteUser(id string) error {
	return s.db.Delete(&UserModel{}, "id = ?", id).Error
}

func uploadToModel(u domain.Upload) (UploadModel, error) {
	var questions datatypes.JSON
	if len(u.Questions) > 0 {
		data, err := json.Marshal(u.Questions)
		if err != nil {
			return UploadModel{}, err
		}
		questions = datatypes.JSON(data)
	}
	return UploadModel{
		ID:             u.ID,
		Link:           u.Link,
		Year:           u.Year,
		UniversityYear: u.UniversityYear,
		Semester:       u.Semester,
		Module:         u.Module,
		Type:           string(u.Type),
		Speciality:     string(u.Speciality),
		Solution:       u.Solution,
		Questions:      questions,
		CreatedAt:      u.CreatedAt,
	}, nil
}

func uploadFromModel(m UploadModel) domain.Upload {
	var questions []string
	if len(m.Questions) > 0 {
		_ = json.Unmarshal(m.Questions, &questions)
	}
	return domain.Upload{
		ID:             m.ID,
		Link:           m.Link,
		Year:           m.Year,
		UniversityYear: m.UniversityYear,
		Semester:       m.Semester,
		Module:         m.Module,
		Type:           domain.UploadType(m.Type),
		Speciality:     domain.Speciality(m.Speciality),
		Solution:       m.Solution,
		Questions:      questions,
		CreatedAt:      m.CreatedAt,
	}
}

func contactToModel(c domain.Contact) ContactModel {
	return ContactModel{
		ID:        c.ID,
		FullName:  c.FullName,
		Email:     c.Email,
		Message:   c.Message,
		IsSeen:    c.IsSeen,
		CreatedAt: c.CreatedAt,
	}
}

func contactFromModel(m ContactModel) domain.Contact {
	return domain.Contact{
		ID:        m.ID,
		FullName:  m.FullName,
		Email:     m.Email,
		Message:   m.Message,
		IsSeen:    m.IsSeen,
		CreatedAt: m.CreatedAt,
	}
}

func userToModel(u domain.User) UserModel {
	return UserModel{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		CreatedAt:    u.CreatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	return domain.User{
		ID:           m.ID,
		Name:         m.Name,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		Role:         domain.UserRole(m.Role),
		CreatedAt:    m.CreatedAt,
	}
}
