package domain

import "time"

type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

// UploadType classifies a study document. The canonical set is Course,
// TD and EMD; older revisions used a wider enum that is no longer
// accepted.
type UploadType string

const (
	TypeCourse UploadType = "Course"
	TypeTD     UploadType = "TD"
	TypeEMD    UploadType = "EMD"
)

// Speciality is a fourth-year track code. It is set only when Year == 4.
type Speciality string

const (
	SpecialitySID Speciality = "SID"
	SpecialitySIL Speciality = "SIL"
	SpecialitySIQ Speciality = "SIQ"
	SpecialitySIT Speciality = "SIT"
)

// ValidUploadType reports whether t is one of the canonical types.
func ValidUploadType(t UploadType) bool {
	switch t {
	case TypeCourse, TypeTD, TypeEMD:
		return true
	}
	return false
}

// ValidSpeciality reports whether s is a known fourth-year track.
func ValidSpeciality(s Speciality) bool {
	switch s {
	case SpecialitySID, SpecialitySIL, SpecialitySIQ, SpecialitySIT:
		return true
	}
	return false
}

// Upload is a metadata record describing one externally stored PDF study
// document. File bytes live in object storage; Link is their public URL.
type Upload struct {
	ID             string     `json:"id"`
	Link           string     `json:"link"`
	Year           int        `json:"year"`
	UniversityYear int        `json:"universityYear"`
	Semester       int        `json:"semester"`
	Module         string     `json:"module"`
	Type           UploadType `json:"type"`
	Speciality     Speciality `json:"speciality,omitempty"`
	Solution       string     `json:"solution,omitempty"`
	Questions      []string   `json:"questions,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// UploadFilter selects uploads by any subset of classification fields.
// Zero-valued fields are not applied. Module matches as a
// case-insensitive substring.
type UploadFilter struct {
	Year           *int
	UniversityYear *int
	Semester       *int
	Type           UploadType
	Module         string
	Speciality     Speciality

	// ByUniversityYear orders results by university year descending
	// (most recent past exam first) instead of creation time.
	ByUniversityYear bool
	Limit            int
}

type Contact struct {
	ID        string    `json:"id"`
	FullName  string    `json:"fullName"`
	Email     string    `json:"email"`
	Message   string    `json:"message"`
	IsSeen    bool      `json:"isSeen"`
	CreatedAt time.Time `json:"createdAt"`
}

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         UserRole  `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}
