// Package progress tracks enrollments and lesson completion on user profiles.
package progress

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/lmsplatform/lms/backend/go-services/internal/courses/service"
	"github.com/lmsplatform/lms/backend/go-services/internal/models"
	"github.com/lmsplatform/lms/backend/go-services/internal/profiles"
	"github.com/lmsplatform/lms/backend/go-services/pkg/logger"
)

var (
	ErrCourseNotFound = errors.New("course not found")
	ErrNotEnrolled    = errors.New("not enrolled in course")
	ErrUnknownLesson  = errors.New("lesson does not belong to course")
	ErrNoProfile      = errors.New("profile not found")
)

// CourseProgress is the state of one course for one user.
type CourseProgress struct {
	CourseID         string   `json:"courseId"`
	CompletedLessons []string `json:"completedLessons"`
	Percent          float64  `json:"progress"`
	Completed        bool     `json:"completed"`
}

type Service struct {
	profiles profiles.Repository
	catalog  service.Service
	events   EventStore
	now      func() time.Time
}

func NewService(p profiles.Repository, catalog service.Service, events EventStore) *Service {
	return &Service{profiles: p, catalog: catalog, events: events, now: time.Now}
}

func (s *Service) profile(ctx context.Context, uid string) (*models.UserProfile, error) {
	doc, err := s.profiles.Get(ctx, uid)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrNoProfile
	}
	return profiles.Merge(models.NewUserProfile(uid, "", "", time.Time{}), doc)
}

func (s *Service) course(ctx context.Context, courseID string) (int, func(string) bool, error) {
	c, err := s.catalog.Get(ctx, courseID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return 0, nil, ErrCourseNotFound
		}
		return 0, nil, err
	}
	return len(c.Lessons), c.HasLesson, nil
}

// Enroll adds courseID to the user's enrolled courses. Enrolling twice is a no-op and
// reports false.
func (s *Service) Enroll(ctx context.Context, uid, courseID string) (bool, error) {
	if _, _, err := s.course(ctx, courseID); err != nil {
		return false, err
	}
	p, err := s.profile(ctx, uid)
	if err != nil {
		return false, err
	}
	if p.IsEnrolled(courseID) {
		return false, nil
	}
	if err := s.profiles.AddEnrollment(ctx, uid, courseID); err != nil {
		return false, err
	}
	if err := s.catalog.IncrementStudents(ctx, courseID); err != nil {
		logger.Warnf("progress: updating student count of %s failed: %v", courseID, err)
	}
	if err := s.events.Record(ctx, Enrollment{UserID: uid, CourseID: courseID, EnrolledAt: s.now().UTC()}); err != nil {
		logger.Warnf("progress: recording enrollment event failed: %v", err)
	}
	s.touch(ctx, uid)
	return true, nil
}

// CompleteLesson marks lessonID done and recomputes the course percentage. Reaching 100%
// adds the course to the user's completed courses.
func (s *Service) CompleteLesson(ctx context.Context, uid, courseID, lessonID string) (*CourseProgress, error) {
	total, hasLesson, err := s.course(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if !hasLesson(lessonID) {
		return nil, ErrUnknownLesson
	}
	p, err := s.profile(ctx, uid)
	if err != nil {
		return nil, err
	}
	if !p.IsEnrolled(courseID) {
		return nil, ErrNotEnrolled
	}

	done, err := s.profiles.AddCompletedLesson(ctx, uid, courseID, lessonID)
	if err != nil {
		return nil, err
	}
	pct := Percent(len(done), total)
	if err := s.profiles.SetProgress(ctx, uid, courseID, pct); err != nil {
		return nil, err
	}
	cp := &CourseProgress{CourseID: courseID, CompletedLessons: done, Percent: pct}
	if pct >= 100 {
		if err := s.profiles.AddCompletedCourse(ctx, uid, courseID); err != nil {
			return nil, fmt.Errorf("mark course completed: %w", err)
		}
		cp.Completed = true
	}
	s.touch(ctx, uid)
	return cp, nil
}

// touch updates lastActive; a failure does not undo the write it follows.
func (s *Service) touch(ctx context.Context, uid string) {
	if err := s.profiles.Touch(ctx, uid, models.Timestamp(s.now())); err != nil {
		logger.Warnf("progress: updating lastActive of %s failed: %v", uid, err)
	}
}

// Get returns the user's progress in courseID.
func (s *Service) Get(ctx context.Context, uid, courseID string) (*CourseProgress, error) {
	p, err := s.profile(ctx, uid)
	if err != nil {
		return nil, err
	}
	if !p.IsEnrolled(courseID) {
		return nil, ErrNotEnrolled
	}
	done := p.CompletedLessons[courseID]
	if done == nil {
		done = []string{}
	}
	completed := false
	for _, c := range p.CompletedCourses {
		if c == courseID {
			completed = true
		}
	}
	return &CourseProgress{CourseID: courseID, CompletedLessons: done, Percent: p.Progress[courseID], Completed: completed}, nil
}

// Percent is done/total as a percentage rounded to two decimals, capped at 100.
func Percent(done, total int) float64 {
	if total <= 0 {
		return 0
	}
	pct := math.Round(float64(done)*10000/float64(total)) / 100
	return math.Min(pct, 100)
}
