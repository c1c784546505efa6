package service

import (
	"context"
	"errors"
	"testing"

	"github.com/lmsplatform/lms/backend/go-services/internal/courses"
	"github.com/stretchr/testify/require"
)

func TestCreateValidates(t *testing.T) {
	svc := NewMemoryService()
	ctx := context.Background()

	_, err := svc.Create(ctx, &courses.Course{Title: "", Instructor: "x", Level: courses.LevelBeginner})
	var ie *InvalidError
	require.True(t, errors.As(err, &ie))

	_, err = svc.Create(ctx, &courses.Course{Title: "T", Instructor: "x", Level: "Expert"})
	require.True(t, errors.As(err, &ie))

	_, err = svc.Create(ctx, &courses.Course{Title: "T", Instructor: "x", Level: courses.LevelBeginner,
		Lessons: []courses.Lesson{{ID: "l1"}}})
	require.True(t, errors.As(err, &ie))

	id, err := svc.Create(ctx, &courses.Course{Title: "T", Instructor: "x", Level: courses.LevelBeginner, Price: 19.99})
	require.NoError(t, err)
	c, err := svc.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, c.Lessons)
}

func TestUpdateAndNotFound(t *testing.T) {
	svc := NewMemoryService()
	ctx := context.Background()

	_, err := svc.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Update(ctx, "missing", courses.Patch{})
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, svc.Delete(ctx, "missing"), ErrNotFound)

	id, err := svc.Create(ctx, &courses.Course{Title: "T", Instructor: "x", Level: courses.LevelBeginner})
	require.NoError(t, err)
	bad := courses.Level("Expert")
	_, err = svc.Update(ctx, id, courses.Patch{Level: &bad})
	require.Error(t, err)

	lessons := []courses.Lesson{{ID: "l1", Title: "Intro"}, {ID: "l2", Title: "Next"}}
	c, err := svc.Update(ctx, id, courses.Patch{Lessons: &lessons})
	require.NoError(t, err)
	require.True(t, c.HasLesson("l2"))
	require.False(t, c.HasLesson("l3"))
}
