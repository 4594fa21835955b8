package db

import (
	"context"
	"encoding/json"

	"coursebot/bots/CourseReminder/schedule"

	"github.com/pkg/errors"
)

const (
	TypePostgres = "postgres"
	TypeSQLite   = "sqlite"
)

var errUnknownStorage = errors.New("unknown storage type")

// Store keeps courses and settings of users keyed by user ID. Calls for
// different users don't interfere with each other.
type Store interface {
	GetCourses(ctx context.Context, usr string) ([]schedule.Course, error)
	SaveCourses(ctx context.Context, usr string, courses []schedule.Course) error
	GetSettings(ctx context.Context, usr string) (schedule.Settings, error)
	SaveSettings(ctx context.Context, usr string, st schedule.Settings) error
	ActiveUsers(ctx context.Context) ([]string, error)
	Close()
}

// Open connects to the storage of the given type and makes sure the schema
// exists.
func Open(ctx context.Context, typ, dsn string) (Store, error) {
	switch typ {
	case TypePostgres, "":
		// connection string should look like postgresql://localhost:5432/course_reminder?user=admn&password=passwd
		return NewPgStore(ctx, dsn)
	case TypeSQLite:
		return NewSQLiteStore(ctx, dsn)
	}

	return nil, errors.Wrapf(errUnknownStorage, "%q", typ)
}

func encodeCourses(courses []schedule.Course) ([]byte, error) {
	if courses == nil {
		courses = []schedule.Course{}
	}

	b, err := json.Marshal(courses)
	if err != nil {
		return nil, errors.Wrap(err, "failed encoding courses")
	}
	return b, nil
}

func decodeCourses(b []byte) ([]schedule.Course, error) {
	var courses []schedule.Course
	if err := json.Unmarshal(b, &courses); err != nil {
		return nil, errors.Wrap(err, "failed decoding courses")
	}
	return courses, nil
}
