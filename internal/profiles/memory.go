package profiles

import (
	"context"
	"sync"
	"time"

	"github.com/lmsplatform/lms/backend/go-services/internal/models"
)

// MemoryStore is an in-memory Repository used when Mongo is not configured and in tests.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]Document

	// GetErr and SetErr, when set, fail every matching call.
	GetErr error
	SetErr error
	// Sets counts successful Set calls.
	Sets int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: map[string]Document{}}
}

// Put seeds a raw (possibly partial) document.
func (m *MemoryStore) Put(id string, d Document) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := Document{}
	for k, v := range d {
		cp[k] = v
	}
	cp["_id"] = id
	m.docs[id] = cp
}

// Profile returns the decoded stored profile, or nil.
func (m *MemoryStore) Profile(id string) *models.UserProfile {
	d, _ := m.Get(context.Background(), id)
	if d == nil {
		return nil
	}
	p, err := Decode(d)
	if err != nil {
		return nil
	}
	return p
}

func (m *MemoryStore) Get(ctx context.Context, id string) (Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.GetErr != nil {
		return nil, storeErr("get", id, m.GetErr)
	}
	d, ok := m.docs[id]
	if !ok {
		return nil, nil
	}
	cp := Document{}
	for k, v := range d {
		cp[k] = v
	}
	return cp, nil
}

func (m *MemoryStore) Set(ctx context.Context, id string, p *models.UserProfile) error {
	if err := checkID(id, p); err != nil {
		return storeErr("set", id, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetErr != nil {
		return storeErr("set", id, m.SetErr)
	}
	d, err := ToDocument(p)
	if err != nil {
		return storeErr("set", id, err)
	}
	m.docs[id] = d
	m.Sets++
	return nil
}

// mutate decodes a stored profile, applies fn and writes back only field.
func (m *MemoryStore) mutate(op, id, field string, fn func(p *models.UserProfile)) (*models.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetErr != nil {
		return nil, storeErr(op, id, m.SetErr)
	}
	d, ok := m.docs[id]
	if !ok {
		return nil, storeErr(op, id, ErrNotFound)
	}
	p, err := Merge(models.NewUserProfile(id, "", "", time.Time{}), d)
	if err != nil {
		return nil, storeErr(op, id, err)
	}
	fn(p)
	nd, err := ToDocument(p)
	if err != nil {
		return nil, storeErr(op, id, err)
	}
	d[field] = nd[field]
	return p, nil
}

func addToSet(list []string, v string) []string {
	for _, x := range list {
		if x == v {
			return list
		}
	}
	return append(list, v)
}

func (m *MemoryStore) AddEnrollment(ctx context.Context, id, courseID string) error {
	_, err := m.mutate("enroll", id, "enrolledCourses", func(p *models.UserProfile) {
		p.EnrolledCourses = addToSet(p.EnrolledCourses, courseID)
	})
	return err
}

func (m *MemoryStore) AddCompletedLesson(ctx context.Context, id, courseID, lessonID string) ([]string, error) {
	p, err := m.mutate("complete-lesson", id, "completedLessons", func(p *models.UserProfile) {
		p.CompletedLessons[courseID] = addToSet(p.CompletedLessons[courseID], lessonID)
	})
	if err != nil {
		return nil, err
	}
	return p.CompletedLessons[courseID], nil
}

func (m *MemoryStore) SetProgress(ctx context.Context, id, courseID string, pct float64) error {
	_, err := m.mutate("progress", id, "progress", func(p *models.UserProfile) { p.Progress[courseID] = pct })
	return err
}

func (m *MemoryStore) AddCompletedCourse(ctx context.Context, id, courseID string) error {
	_, err := m.mutate("complete-course", id, "completedCourses", func(p *models.UserProfile) {
		p.CompletedCourses = addToSet(p.CompletedCourses, courseID)
	})
	return err
}

func (m *MemoryStore) SetRole(ctx context.Context, id string, role models.Role) error {
	_, err := m.mutate("role", id, "role", func(p *models.UserProfile) { p.Role = role })
	return err
}

func (m *MemoryStore) Touch(ctx context.Context, id, lastActive string) error {
	_, err := m.mutate("touch", id, "lastActive", func(p *models.UserProfile) { p.LastActive = lastActive })
	return err
}
