package db

import (
	"context"
	"database/sql"

	"coursebot/bots/CourseReminder/schedule"

	"github.com/jmhodges/clock"
	"github.com/pkg/errors"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS course_users (
	user_id TEXT PRIMARY KEY,
	courses TEXT NOT NULL DEFAULT '[]',
	daily_reminder BOOLEAN NOT NULL DEFAULT 1,
	reminders_active BOOLEAN NOT NULL DEFAULT 0,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// SQLiteStore keeps the same table as PgStore in a local SQLite file.
type SQLiteStore struct {
	db  *sql.DB
	clk clock.Clock
}

func NewSQLiteStore(ctx context.Context, dsn string) (*SQLiteStore, error) {
	d, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed opening database")
	}

	// SQLite has a single writer; it also keeps ":memory:" databases alive
	d.SetMaxOpenConns(1)

	if _, err = d.ExecContext(ctx, sqliteSchema); err != nil {
		d.Close()
		return nil, errors.Wrap(err, "failed creating schema")
	}

	return &SQLiteStore{db: d, clk: clk}, nil
}

func (s *SQLiteStore) Close() {
	s.db.Close()
}

func (s *SQLiteStore) GetCourses(ctx context.Context, usr string) ([]schedule.Course, error) {
	var b []byte
	err := s.db.QueryRowContext(ctx, `SELECT courses FROM course_users WHERE user_id=?`, usr).Scan(&b)

	switch {
	case err == sql.ErrNoRows:
		return nil, nil
	case err != nil:
		return nil, errors.Wrap(err, "failed fetching courses")
	}

	return decodeCourses(b)
}

func (s *SQLiteStore) SaveCourses(ctx context.Context, usr string, courses []schedule.Course) error {
	b, err := encodeCourses(courses)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO course_users (user_id, courses, updated_at)
VALUES (?, ?, ?)
ON CONFLICT (user_id) DO UPDATE SET courses=excluded.courses, updated_at=excluded.updated_at`,
		usr, string(b), s.clk.Now().UTC())
	if err != nil {
		return errors.Wrap(err, "failed saving courses")
	}
	return nil
}

func (s *SQLiteStore) GetSettings(ctx context.Context, usr string) (schedule.Settings, error) {
	var st schedule.Settings
	err := s.db.QueryRowContext(ctx, `SELECT daily_reminder, reminders_active
FROM course_users
WHERE user_id=?`, usr).Scan(&st.EnableDailyReminder, &st.RemindersActive)

	switch {
	case err == sql.ErrNoRows:
		return schedule.DefaultSettings(), nil
	case err != nil:
		return schedule.Settings{}, errors.Wrap(err, "failed fetching settings")
	}

	return st, nil
}

func (s *SQLiteStore) SaveSettings(ctx context.Context, usr string, st schedule.Settings) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO course_users (user_id, daily_reminder, reminders_active, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (user_id) DO UPDATE SET daily_reminder=excluded.daily_reminder, reminders_active=excluded.reminders_active, updated_at=excluded.updated_at`,
		usr, st.EnableDailyReminder, st.RemindersActive, s.clk.Now().UTC())
	if err != nil {
		return errors.Wrap(err, "failed saving settings")
	}
	return nil
}

func (s *SQLiteStore) ActiveUsers(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_id FROM course_users WHERE reminders_active ORDER BY user_id`)
	if err != nil {
		return nil, errors.Wrap(err, "failed fetching list of users")
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var usr string
		if err = rows.Scan(&usr); err != nil {
			return nil, errors.Wrap(err, "failed reading user ID")
		}
		users = append(users, usr)
	}

	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed iterating users")
	}
	return users, nil
}
