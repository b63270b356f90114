package store

import "studyportal/pkg/domain"

// Store defines persistence operations for uploads, contacts and users.
type Store interface {
	// uploads
	CreateUpload(domain.Upload) error
	ListUploads(domain.UploadFilter) ([]domain.Upload, error)
	GetUpload(id string) (domain.Upload, bool, error)
	DeleteUpload(id string) error
	SetUploadQuestions(id string, questions []string) error

	// contacts
	CreateContact(domain.Contact) error
	ListContacts() ([]domain.Contact, error)
	GetContact(id string) (domain.Contact, bool, error)
	SetContactSeen(id string, seen bool) error
	DeleteContact(id string) error

	// users
	SaveUser(domain.User) error
	HasUserEmail(email string) (bool, error)
	GetUserByEmail(email string) (domain.User, bool, error)
	GetUserByID(id string) (domain.User, bool, error)
	ListUsersByRole(role domain.UserRole) ([]domain.User, error)
	UserCount() (int, error)
	DeleteUser(id string) error
}
