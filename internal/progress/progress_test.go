package progress

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lmsplatform/lms/backend/go-services/internal/courses"
	"github.com/lmsplatform/lms/backend/go-services/internal/courses/service"
	"github.com/lmsplatform/lms/backend/go-services/internal/models"
	"github.com/lmsplatform/lms/backend/go-services/internal/profiles"
	"github.com/lmsplatform/lms/backend/go-services/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

type fixture struct {
	svc      *Service
	store    *profiles.MemoryStore
	catalog  service.Service
	events   *MemoryEvents
	courseID string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := profiles.NewMemoryStore()
	require.NoError(t, store.Set(ctx, "u1", models.NewUserProfile("u1", "Ada", "ada@example.com", time.Now())))
	catalog := service.NewMemoryService()
	id, err := catalog.Create(ctx, &courses.Course{
		Title: "Go", Instructor: "Rob", Level: courses.LevelBeginner,
		Lessons: []courses.Lesson{{ID: "l1", Title: "One"}, {ID: "l2", Title: "Two"}, {ID: "l3", Title: "Three"}},
	})
	require.NoError(t, err)
	events := NewMemoryEvents()
	return &fixture{svc: NewService(store, catalog, events), store: store, catalog: catalog, events: events, courseID: id}
}

func TestEnroll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Enroll(ctx, "u1", f.courseID)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = f.svc.Enroll(ctx, "u1", f.courseID)
	require.NoError(t, err)
	assert.False(t, created)

	p := f.store.Profile("u1")
	assert.Equal(t, []string{f.courseID}, p.EnrolledCourses)
	c, err := f.catalog.Get(ctx, f.courseID)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Students)
	assert.Len(t, f.events.events, 1)

	_, err = f.svc.Enroll(ctx, "u1", "nope")
	assert.ErrorIs(t, err, ErrCourseNotFound)
	_, err = f.svc.Enroll(ctx, "ghost", f.courseID)
	assert.ErrorIs(t, err, ErrNoProfile)
}

func TestCompleteLesson(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CompleteLesson(ctx, "u1", f.courseID, "l1")
	require.ErrorIs(t, err, ErrNotEnrolled)

	_, err = f.svc.Enroll(ctx, "u1", f.courseID)
	require.NoError(t, err)

	_, err = f.svc.CompleteLesson(ctx, "u1", f.courseID, "l9")
	require.ErrorIs(t, err, ErrUnknownLesson)

	cp, err := f.svc.CompleteLesson(ctx, "u1", f.courseID, "l1")
	require.NoError(t, err)
	assert.Equal(t, 33.33, cp.Percent)
	assert.False(t, cp.Completed)

	// completing the same lesson twice does not count twice
	cp, err = f.svc.CompleteLesson(ctx, "u1", f.courseID, "l1")
	require.NoError(t, err)
	assert.Equal(t, []string{"l1"}, cp.CompletedLessons)

	_, err = f.svc.CompleteLesson(ctx, "u1", f.courseID, "l2")
	require.NoError(t, err)
	cp, err = f.svc.CompleteLesson(ctx, "u1", f.courseID, "l3")
	require.NoError(t, err)
	assert.Equal(t, 100.0, cp.Percent)
	assert.True(t, cp.Completed)

	p := f.store.Profile("u1")
	assert.Equal(t, []string{"l1", "l2", "l3"}, p.CompletedLessons[f.courseID])
	assert.Equal(t, 100.0, p.Progress[f.courseID])
	assert.Equal(t, []string{f.courseID}, p.CompletedCourses)

	got, err := f.svc.Get(ctx, "u1", f.courseID)
	require.NoError(t, err)
	assert.True(t, got.Completed)
}

func TestPercent(t *testing.T) {
	assert.Equal(t, 0.0, Percent(0, 0))
	assert.Equal(t, 50.0, Percent(1, 2))
	assert.Equal(t, 66.67, Percent(2, 3))
	assert.Equal(t, 100.0, Percent(5, 4))
}

func TestMonthlyAnalytics(t *testing.T) {
	events := NewMemoryEvents()
	ctx := context.Background()
	at := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 10, 0, 0, 0, time.UTC) }
	for _, ts := range []time.Time{
		at(2023, time.December, 31), // outside the window
		at(2024, time.January, 1),
		at(2024, time.January, 20),
		at(2024, time.June, 5),
		at(2024, time.December, 2),
	} {
		require.NoError(t, events.Record(ctx, Enrollment{UserID: "u", CourseID: "c", EnrolledAt: ts}))
	}

	a := NewAnalytics(events)
	a.now = func() time.Time { return at(2024, time.December, 15) }
	res, err := a.Monthly(ctx)
	require.NoError(t, err)
	require.Len(t, res.MonthlyEnrollments, 12)
	assert.Equal(t, MonthCount{Month: "2024-01", Name: "Jan", Total: 2}, res.MonthlyEnrollments[0])
	assert.Equal(t, 1, res.MonthlyEnrollments[5].Total)
	assert.Equal(t, 0, res.MonthlyEnrollments[6].Total)
	assert.Equal(t, MonthCount{Month: "2024-12", Name: "Dec", Total: 1}, res.MonthlyEnrollments[11])
	assert.Equal(t, 4, res.TotalEnrollments)
}

type touchFailingStore struct {
	*profiles.MemoryStore
}

func (touchFailingStore) Touch(ctx context.Context, id, lastActive string) error {
	return errors.New("write concern timeout")
}

func TestLastActiveFailureIsLoggedNotReturned(t *testing.T) {
	var buf bytes.Buffer
	logger.SetOutput(zapcore.AddSync(&buf), "console")
	t.Cleanup(func() { logger.SetOutput(zapcore.AddSync(&bytes.Buffer{}), "console") })

	f := newFixture(t)
	svc := NewService(touchFailingStore{f.store}, f.catalog, f.events)
	ctx := context.Background()

	created, err := svc.Enroll(ctx, "u1", f.courseID)
	require.NoError(t, err)
	assert.True(t, created)
	cp, err := svc.CompleteLesson(ctx, "u1", f.courseID, "l1")
	require.NoError(t, err)
	assert.Equal(t, 33.33, cp.Percent)

	assert.Equal(t, 2, bytes.Count(buf.Bytes(), []byte("updating lastActive of u1 failed: write concern timeout")))
}
