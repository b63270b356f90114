package app

import (
	"errors"
	"fmt"
)

// Validation messages are shown to end users verbatim; handlers map them
// to 4xx responses.
var (
	ErrMissingUploadFields  = errors.New("All required fields (file, year, universityYear, semester, module, type) must be provided")
	ErrInvalidType          = errors.New("Invalid type. Must be one of: Course, TD, EMD")
	ErrInvalidSemester      = errors.New("Semester must be 1 or 2")
	ErrInvalidYear          = errors.New("Year must be between 1 and 5")
	ErrInvalidSpeciality    = errors.New("Speciality must be SID, SIL, SIQ, or SIT for 4th year")
	ErrSpecialityNotAllowed = errors.New("Speciality should only be provided for 4th year")
	ErrInvalidSolution      = errors.New("Solution must be a valid Google Drive link")
	ErrNoFile               = errors.New("No file uploaded")
	ErrNotPDF               = errors.New("Only PDF files are allowed")
	ErrUnreadablePDF        = errors.New("PDF is empty or unreadable")

	ErrUploadNotFound  = errors.New("Upload not found")
	ErrContactNotFound = errors.New("Contact not found")
	ErrUserNotFound    = errors.New("User not found")

	ErrMessageRequired        = errors.New("Message is required")
	ErrQuestionFilterRequired = errors.New("Year, semester, module, and type are required")
	ErrContactFieldsRequired  = errors.New("Missing required fields")

	// ErrInvalidCredentials deliberately does not reveal whether the
	// email exists.
	ErrInvalidCredentials  = errors.New("Incorrect email address or password")
	ErrEmailAlreadyExists  = errors.New("email already exists")
	ErrSignupFieldsMissing = errors.New("name, email and password required")
)

// ValidationError marks a user-facing validation failure. Its message is
// exactly the wrapped error's message so handlers can return it as-is.
type ValidationError struct{ err error }

func (e ValidationError) Error() string { return e.err.Error() }
func (e ValidationError) Unwrap() error { return e.err }

func validation(err error) error { return ValidationError{err: err} }

// IsValidation reports whether err should surface as a 400 with its
// message intact.
func IsValidation(err error) bool {
	var v ValidationError
	return errors.As(err, &v)
}

// universityYearError carries the dynamic upper bound in its message.
type universityYearError struct{ max int }

func (e universityYearError) Error() string {
	return fmt.Sprintf("University year must be between 2000 and %d", e.max)
}
