package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/lmsplatform/lms/backend/go-services/internal/courses"
	"github.com/lmsplatform/lms/backend/go-services/internal/courses/repository"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrNotFound = errors.New("not found")
)

// InvalidError reports a course that failed validation.
type InvalidError struct{ Err error }

func (e *InvalidError) Error() string { return "invalid course: " + e.Err.Error() }
func (e *InvalidError) Unwrap() error { return e.Err }

// Service defines the catalog operations used by the handler layer and the progress feature.
type Service interface {
	Create(ctx context.Context, c *courses.Course) (string, error)
	Get(ctx context.Context, id string) (*courses.Course, error)
	List(ctx context.Context, f courses.Filter) ([]*courses.Course, error)
	Update(ctx context.Context, id string, p courses.Patch) (*courses.Course, error)
	Delete(ctx context.Context, id string) error
	IncrementStudents(ctx context.Context, id string) error
}

// NewMemoryService returns a Service backed by the in-memory repository.
func NewMemoryService() Service {
	return New(repository.NewMemoryRepo())
}

// NewMongoService returns a Service backed by a MongoDB collection.
func NewMongoService(ctx context.Context, col *mongo.Collection) Service {
	return New(repository.NewMongoRepo(ctx, col))
}

func New(repo repository.Repository) Service {
	return &catalog{repo: repo, validate: validator.New()}
}

type catalog struct {
	repo     repository.Repository
	validate *validator.Validate
}

func notFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *catalog) check(v interface{}) error {
	if err := s.validate.Struct(v); err != nil {
		var ves validator.ValidationErrors
		if errors.As(err, &ves) {
			fields := make([]string, 0, len(ves))
			for _, fe := range ves {
				fields = append(fields, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return &InvalidError{Err: errors.New(strings.Join(fields, "; "))}
		}
		return &InvalidError{Err: err}
	}
	return nil
}

func (s *catalog) Create(ctx context.Context, c *courses.Course) (string, error) {
	if c.Lessons == nil {
		c.Lessons = []courses.Lesson{}
	}
	if err := s.check(c); err != nil {
		return "", err
	}
	return s.repo.Create(ctx, c)
}

func (s *catalog) Get(ctx context.Context, id string) (*courses.Course, error) {
	c, err := s.repo.Get(ctx, id)
	return c, notFound(err)
}

func (s *catalog) List(ctx context.Context, f courses.Filter) ([]*courses.Course, error) {
	return s.repo.List(ctx, f)
}

func (s *catalog) Update(ctx context.Context, id string, p courses.Patch) (*courses.Course, error) {
	if err := s.check(p); err != nil {
		return nil, err
	}
	if p.Lessons != nil {
		lessons := struct {
			Lessons []courses.Lesson `validate:"dive"`
		}{*p.Lessons}
		if err := s.check(lessons); err != nil {
			return nil, err
		}
	}
	c, err := s.repo.Update(ctx, id, p)
	return c, notFound(err)
}

func (s *catalog) Delete(ctx context.Context, id string) error {
	return notFound(s.repo.Delete(ctx, id))
}

func (s *catalog) IncrementStudents(ctx context.Context, id string) error {
	return notFound(s.repo.IncrementStudents(ctx, id))
}
