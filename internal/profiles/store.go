// Package profiles persists user profiles keyed by identity subject id.
package profiles

import (
	"context"
	"errors"
	"fmt"

	"github.com/lmsplatform/lms/backend/go-services/internal/models"
	"go.mongodb.org/mongo-driver/bson"
)

// Collection is the name of the profile collection.
const Collection = "users"

var ErrNotFound = errors.New("profile not found")

// Document is a stored profile as raw fields; it may hold only a subset of UserProfile keys.
type Document map[string]interface{}

// Store is the document store holding one profile per subject id.
type Store interface {
	// Get returns the stored document, or nil when the subject has none.
	Get(ctx context.Context, id string) (Document, error)
	// Set replaces the document for id.
	Set(ctx context.Context, id string, p *models.UserProfile) error
}

// Updater applies the field-level writes made by the course progress feature.
type Updater interface {
	AddEnrollment(ctx context.Context, id, courseID string) error
	// AddCompletedLesson records lessonID and returns the course's completed lessons.
	AddCompletedLesson(ctx context.Context, id, courseID, lessonID string) ([]string, error)
	SetProgress(ctx context.Context, id, courseID string, pct float64) error
	AddCompletedCourse(ctx context.Context, id, courseID string) error
	SetRole(ctx context.Context, id string, role models.Role) error
	Touch(ctx context.Context, id, lastActive string) error
}

// Repository is a Store that also supports field updates.
type Repository interface {
	Store
	Updater
}

// StoreError wraps any failure of the document store.
type StoreError struct {
	Op  string
	ID  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("profile store %s %s: %v", e.Op, e.ID, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func storeErr(op, id string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, ID: id, Err: err}
}

func checkID(id string, p *models.UserProfile) error {
	if id == "" {
		return errors.New("empty profile id")
	}
	if p.ID != id {
		return fmt.Errorf("profile id %q does not match key %q", p.ID, id)
	}
	return nil
}

// ToDocument converts a profile into its stored form.
func ToDocument(p *models.UserProfile) (Document, error) {
	b, err := bson.Marshal(p)
	if err != nil {
		return nil, err
	}
	var d Document
	if err := bson.Unmarshal(b, &d); err != nil {
		return nil, err
	}
	return d, nil
}

// Decode converts a full stored document into a profile.
func Decode(d Document) (*models.UserProfile, error) {
	b, err := bson.Marshal(d)
	if err != nil {
		return nil, err
	}
	var p models.UserProfile
	if err := bson.Unmarshal(b, &p); err != nil {
		return nil, err
	}
	normalize(&p)
	return &p, nil
}

// Merge overlays stored onto defaults: every key present in stored wins, except "_id",
// which always stays the defaults' id.
func Merge(defaults *models.UserProfile, stored Document) (*models.UserProfile, error) {
	base, err := ToDocument(defaults)
	if err != nil {
		return nil, fmt.Errorf("encode defaults: %w", err)
	}
	for k, v := range stored {
		if k == "_id" {
			continue
		}
		base[k] = v
	}
	p, err := Decode(base)
	if err != nil {
		return nil, fmt.Errorf("decode merged profile: %w", err)
	}
	if !p.Role.Valid() {
		p.Role = models.RoleUser
	}
	return p, nil
}

func normalize(p *models.UserProfile) {
	if p.EnrolledCourses == nil {
		p.EnrolledCourses = []string{}
	}
	if p.CompletedCourses == nil {
		p.CompletedCourses = []string{}
	}
	if p.CompletedLessons == nil {
		p.CompletedLessons = map[string][]string{}
	}
	if p.Progress == nil {
		p.Progress = map[string]float64{}
	}
}
