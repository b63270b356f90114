package app

import (
	"fmt"
	"strings"
	"time"

	"studyportal/internal/util"
	"studyportal/pkg/auth"
	"studyportal/pkg/domain"
)

// SignUp registers a new account and issues an access token. The first
// registered user becomes the admin.
func (a *App) SignUp(name, email, password string) (domain.User, string, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(strings.ToLower(email))
	if name == "" || email == "" || password == "" {
		return domain.User{}, "", validation(ErrSignupFieldsMissing)
	}
	if err := auth.ValidatePassword(password); err != nil {
		return domain.User{}, "", validation(err)
	}
	exists, err := a.store.HasUserEmail(email)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("check email: %w", err)
	}
	if exists {
		return domain.User{}, "", validation(ErrEmailAlreadyExists)
	}
	count, err := a.store.UserCount()
	if err != nil {
		return domain.User{}, "", fmt.Errorf("count users: %w", err)
	}
	role := domain.RoleUser
	if count == 0 {
		role = domain.RoleAdmin
	}
	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("hash password: %w", err)
	}
	user := domain.User{
		ID:           util.NewID(),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}
	if err := a.store.SaveUser(user); err != nil {
		return domain.User{}, "", fmt.Errorf("save user: %w", err)
	}
	token, err := a.tokens.Issue(user.ID)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("issue token: %w", err)
	}
	return user, token, nil
}

// Login validates credentials and issues an access token.
func (a *App) Login(email, password string) (domain.User, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	user, ok, err := a.store.GetUserByEmail(email)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("fetch user: %w", err)
	}
	if !ok || !auth.CheckPassword(password, user.PasswordHash) {
		return domain.User{}, "", validation(ErrInvalidCredentials)
	}
	token, err := a.tokens.Issue(user.ID)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("issue token: %w", err)
	}
	return user, token, nil
}

// UserFromToken resolves the account behind an access token.
func (a *App) UserFromToken(token string) (domain.User, bool) {
	userID, err := a.tokens.VerifySubject(token)
	if err != nil {
		return domain.User{}, false
	}
	user, ok, err := a.store.GetUserByID(userID)
	if err != nil || !ok {
		return domain.User{}, false
	}
	return user, true
}

// ListUsers returns all non-admin accounts ordered by name.
func (a *App) ListUsers() ([]domain.User, error) {
	return a.store.ListUsersByRole(domain.RoleUser)
}

// DeleteUser removes an account.
func (a *App) DeleteUser(id string) error {
	_, ok, err := a.store.GetUserByID(id)
	if err != nil {
		return fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		return ErrUserNotFound
	}
	return a.store.DeleteUser(id)
}
