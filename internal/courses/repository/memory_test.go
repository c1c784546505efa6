package repository

import (
	"context"
	"testing"

	"github.com/lmsplatform/lms/backend/go-services/internal/courses"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepoCRUD(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepo()
	c := &courses.Course{Title: "Go Basics", Instructor: "Rob", Level: courses.LevelBeginner, Category: "Programming"}
	id, err := r.Create(ctx, c)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := r.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "Go Basics", got.Title)
	require.False(t, got.CreatedAt.IsZero())

	title := "Go Fundamentals"
	updated, err := r.Update(ctx, id, courses.Patch{Title: &title})
	require.NoError(t, err)
	require.Equal(t, "Go Fundamentals", updated.Title)
	require.Equal(t, "Rob", updated.Instructor)

	require.NoError(t, r.IncrementStudents(ctx, id))
	got, err = r.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, 1, got.Students)

	require.NoError(t, r.Delete(ctx, id))
	_, err = r.Get(ctx, id)
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, r.Delete(ctx, id), ErrNotFound)
}

func TestMemoryRepoListFilter(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepo()
	_, _ = r.Create(ctx, &courses.Course{Title: "B", Category: "Design", Level: courses.LevelAdvanced, IsFeatured: true})
	_, _ = r.Create(ctx, &courses.Course{Title: "A", Category: "Design", Level: courses.LevelBeginner})
	_, _ = r.Create(ctx, &courses.Course{Title: "C", Category: "Data", Level: courses.LevelBeginner})

	all, err := r.List(ctx, courses.Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, "A", all[0].Title)

	design, _ := r.List(ctx, courses.Filter{Category: "Design"})
	require.Len(t, design, 2)

	featured, _ := r.List(ctx, courses.Filter{Featured: true})
	require.Len(t, featured, 1)
	require.Equal(t, "B", featured[0].Title)
}
