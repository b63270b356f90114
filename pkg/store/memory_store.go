package store

import (
	"sort"
	"strings"
	"sync"

	"studyportal/pkg/domain"
)

// MemoryStore keeps everything in-process. It backs tests and local
// development without Postgres.
type MemoryStore struct {
	mu       sync.RWMutex
	uploads  map[string]domain.Upload
	contacts map[string]domain.Contact
	users    map[string]domain.User
	email    map[string]string // email -> user ID
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		uploads:  make(map[string]domain.Upload),
		contacts: make(map[string]domain.Contact),
		users:    make(map[string]domain.User),
		email:    make(map[string]string),
	}
}

func (m *MemoryStore) CreateUpload(u domain.Upload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploads[u.ID] = u
	return nil
}

func (m *MemoryStore) ListUploads(filter domain.UploadFilter) ([]domain.Upload, error) {
	m.mu.RLock()
	res := make([]domain.Upload, 0, len(m.uploads))
	for _, u := range m.uploads {
		if matchesFilter(u, filter) {
			res = append(res, u)
		}
	}
	m.mu.RUnlock()

	if filter.ByUniversityYear {
		sort.Slice(res, func(i, j int) bool {
			return res[i].UniversityYear > res[j].UniversityYear
		})
	} else {
		sort.Slice(res, func(i, j int) bool {
			return res[i].CreatedAt.After(res[j].CreatedAt)
		})
	}
	if filter.Limit > 0 && len(res) > filter.Limit {
		res = res[:filter.Limit]
	}
	return res, nil
}

func matchesFilter(u domain.Upload, f domain.UploadFilter) bool {
	if f.Year != nil && u.Year != *f.Year {
		return false
	}
	if f.UniversityYear != nil && u.UniversityYear != *f.UniversityYear {
		return false
	}
	if f.Semester != nil && u.Semester != *f.Semester {
		return false
	}
	if f.Type != "" && u.Type != f.Type {
		return false
	}
	if f.Module != "" && !strings.Contains(strings.ToLower(u.Module), strings.ToLower(f.Module)) {
		return false
	}
	if f.Speciality != "" && u.Speciality != f.Speciality {
		return false
	}
	return true
}

func (m *MemoryStore) GetUpload(id string) (domain.Upload, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.uploads[id]
	return u, ok, nil
}

func (m *MemoryStore) DeleteUpload(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.uploads, id)
	return nil
}

func (m *MemoryStore) SetUploadQuestions(id string, questions []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.uploads[id]
	if !ok {
		return nil
	}
	u.Questions = questions
	m.uploads[id] = u
	return nil
}

func (m *MemoryStore) CreateContact(c domain.Contact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contacts[c.ID] = c
	return nil
}

func (m *MemoryStore) ListContacts() ([]domain.Contact, error) {
	m.mu.RLock()
	res := make([]domain.Contact, 0, len(m.contacts))
	for _, c := range m.contacts {
		res = append(res, c)
	}
	m.mu.RUnlock()
	sort.Slice(res, func(i, j int) bool {
		return res[i].CreatedAt.After(res[j].CreatedAt)
	})
	return res, nil
}

func (m *MemoryStore) GetContact(id string) (domain.Contact, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.contacts[id]
	return c, ok, nil
}

func (m *MemoryStore) SetContactSeen(id string, seen bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.contacts[id]
	if !ok {
		return nil
	}
	c.IsSeen = seen
	m.contacts[id] = c
	return nil
}

func (m *MemoryStore) DeleteContact(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.contacts, id)
	return nil
}

func (m *MemoryStore) SaveUser(u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	m.email[u.Email] = u.ID
	return nil
}

func (m *MemoryStore) HasUserEmail(email string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.email[email]
	return ok, nil
}

func (m *MemoryStore) GetUserByEmail(email string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.email[email]
	if !ok {
		return domain.User{}, false, nil
	}
	u, ok := m.users[id]
	return u, ok, nil
}

func (m *MemoryStore) GetUserByID(id string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	return u, ok, nil
}

func (m *MemoryStore) ListUsersByRole(role domain.UserRole) ([]domain.User, error) {
	m.mu.RLock()
	res := make([]domain.User, 0, len(m.users))
	for _, u := range m.users {
		if u.Role == role {
			res = append(res, u)
		}
	}
	m.mu.RUnlock()
	sort.Slice(res, func(i, j int) bool {
		return res[i].Name < res[j].Name
	})
	return res, nil
}

func (m *MemoryStore) UserCount() (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.users), nil
}

func (m *MemoryStore) DeleteUser(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if ok {
		delete(m.email, u.Email)
	}
	delete(m.users, id)
	return nil
}
