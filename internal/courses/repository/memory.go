package repository

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lmsplatform/lms/backend/go-services/internal/courses"
)

var (
	ErrNotFound = errors.New("course not found")
)

// Repository is the course catalog storage.
type Repository interface {
	Create(ctx context.Context, c *courses.Course) (string, error)
	Get(ctx context.Context, id string) (*courses.Course, error)
	List(ctx context.Context, f courses.Filter) ([]*courses.Course, error)
	Update(ctx context.Context, id string, p courses.Patch) (*courses.Course, error)
	Delete(ctx context.Context, id string) error
	// IncrementStudents bumps the enrolled-student counter.
	IncrementStudents(ctx context.Context, id string) error
}

// MemoryRepo keeps the catalog in process; used without Mongo and in unit tests.
type MemoryRepo struct {
	mu    sync.RWMutex
	store map[string]*courses.Course
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{store: make(map[string]*courses.Course)}
}

func (m *MemoryRepo) Create(ctx context.Context, c *courses.Course) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.CreatedAt = time.Now().UTC()
	c.UpdatedAt = c.CreatedAt
	cp := *c
	m.store[c.ID] = &cp
	return c.ID, nil
}

func (m *MemoryRepo) Get(ctx context.Context, id string) (*courses.Course, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := m.store[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, ErrNotFound
}

// List returns matching courses ordered by title.
func (m *MemoryRepo) List(ctx context.Context, f courses.Filter) ([]*courses.Course, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*courses.Course, 0, len(m.store))
	for _, c := range m.store {
		if f.Match(c) {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

func (m *MemoryRepo) Update(ctx context.Context, id string, p courses.Patch) (*courses.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.store[id]
	if !ok {
		return nil, ErrNotFound
	}
	p.Apply(c)
	c.UpdatedAt = time.Now().UTC()
	cp := *c
	return &cp, nil
}

func (m *MemoryRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[id]; !ok {
		return ErrNotFound
	}
	delete(m.store, id)
	return nil
}

func (m *MemoryRepo) IncrementStudents(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.store[id]
	if !ok {
		return ErrNotFound
	}
	c.Students++
	return nil
}
