package app

import (
	"fmt"
	"strings"
	"time"

	"studyportal/internal/util"
	"studyportal/pkg/domain"
)

// CreateContact records a public contact inquiry.
func (a *App) CreateContact(fullName, email, message string) (domain.Contact, error) {
	if strings.TrimSpace(fullName) == "" || strings.TrimSpace(email) == "" || strings.TrimSpace(message) == "" {
		return domain.Contact{}, validation(ErrContactFieldsRequired)
	}
	contact := domain.Contact{
		ID:        util.NewID(),
		FullName:  fullName,
		Email:     email,
		Message:   message,
		IsSeen:    false,
		CreatedAt: time.Now().UTC(),
	}
	if err := a.store.CreateContact(contact); err != nil {
		return domain.Contact{}, fmt.Errorf("save contact: %w", err)
	}
	return contact, nil
}

// ListContacts returns all inquiries, newest first.
func (a *App) ListContacts() ([]domain.Contact, error) {
	return a.store.ListContacts()
}

// SetContactSeen toggles the seen flag and returns the updated contact.
func (a *App) SetContactSeen(id string, seen bool) (domain.Contact, error) {
	contact, ok, err := a.store.GetContact(id)
	if err != nil {
		return domain.Contact{}, fmt.Errorf("fetch contact: %w", err)
	}
	if !ok {
		return domain.Contact{}, ErrContactNotFound
	}
	if err := a.store.SetContactSeen(id, seen); err != nil {
		return domain.Contact{}, fmt.Errorf("update contact: %w", err)
	}
	contact.IsSeen = seen
	return contact, nil
}

// DeleteContact removes an inquiry.
func (a *App) DeleteContact(id string) error {
	_, ok, err := a.store.GetContact(id)
	if err != nil {
		return fmt.Errorf("fetch contact: %w", err)
	}
	if !ok {
		return ErrContactNotFound
	}
	return a.store.DeleteContact(id)
}
