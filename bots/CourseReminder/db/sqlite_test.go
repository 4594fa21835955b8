package db

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"coursebot/bots/CourseReminder/schedule"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteStore(t *testing.T) *SQLiteStore {
	s, err := NewSQLiteStore(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func TestSQLiteCourses(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	courses, err := s.GetCourses(ctx, "42")
	require.NoError(t, err)
	assert.Empty(t, courses)

	require.NoError(t, s.SaveCourses(ctx, "42", []schedule.Course{maths}))
	courses, err = s.GetCourses(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, []schedule.Course{maths}, courses)

	// replaced, not merged
	other := schedule.Course{Weekday: 3, Time: "第3-4节 (10:00-11:40)", CourseName: "英语"}
	require.NoError(t, s.SaveCourses(ctx, "42", []schedule.Course{other}))
	courses, err = s.GetCourses(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, []schedule.Course{other}, courses)
}

func TestSQLiteSettings(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	st, err := s.GetSettings(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, schedule.DefaultSettings(), st)

	// saving courses first keeps default settings
	require.NoError(t, s.SaveCourses(ctx, "42", []schedule.Course{maths}))
	st, err = s.GetSettings(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, schedule.DefaultSettings(), st)

	want := schedule.Settings{EnableDailyReminder: false, RemindersActive: true}
	require.NoError(t, s.SaveSettings(ctx, "42", want))
	st, err = s.GetSettings(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, want, st)

	// saving settings keeps courses
	courses, err := s.GetCourses(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, []schedule.Course{maths}, courses)
}

func TestSQLiteActiveUsers(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveSettings(ctx, "2", schedule.Settings{RemindersActive: true}))
	require.NoError(t, s.SaveSettings(ctx, "1", schedule.Settings{RemindersActive: true}))
	require.NoError(t, s.SaveSettings(ctx, "3", schedule.Settings{RemindersActive: false}))
	require.NoError(t, s.SaveCourses(ctx, "4", nil))

	users, err := s.ActiveUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, users)
}

func TestSQLiteConcurrentUsers(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c := maths
			c.CourseName = fmt.Sprintf("course %d", i)
			assert.NoError(t, s.SaveCourses(ctx, fmt.Sprint(i), []schedule.Course{c}))
		}(i)
	}
	wg.Wait()

	for i := 0; i < 20; i++ {
		courses, err := s.GetCourses(ctx, fmt.Sprint(i))
		require.NoError(t, err)
		require.Len(t, courses, 1)
		assert.Equal(t, fmt.Sprintf("course %d", i), courses[0].CourseName)
	}
}

func TestOpenUnknownStorage(t *testing.T) {
	_, err := Open(context.Background(), "redis", "")
	assert.ErrorIs(t, err, errUnknownStorage)
}

func TestOpenSQLite(t *testing.T) {
	s, err := Open(context.Background(), TypeSQLite, ":memory:")
	require.NoError(t, err)
	defer s.Close()

	_, ok := s.(*SQLiteStore)
	assert.True(t, ok)
}
