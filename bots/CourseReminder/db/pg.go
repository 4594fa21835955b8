package db

import (
	"context"

	"coursebot/bots/CourseReminder/schedule"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmhodges/clock"
	"github.com/pkg/errors"
)

/**
DB tables:
- course_users:
	- user_id: text - user ID, primary key
	- courses: jsonb - confirmed or pending weekly schedule
	- daily_reminder: boolean - send daily preview
	- reminders_active: boolean - restart reminders on bot start
	- updated_at: timestamptz - timestamp of the last operation
*/

const pgSchema = `CREATE TABLE IF NOT EXISTS course_users (
	user_id TEXT PRIMARY KEY,
	courses JSONB NOT NULL DEFAULT '[]',
	daily_reminder BOOLEAN NOT NULL DEFAULT TRUE,
	reminders_active BOOLEAN NOT NULL DEFAULT FALSE,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

var clk = clock.New()

// pgxIface is implemented by *pgxpool.Pool
type pgxIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

type PgStore struct {
	db  pgxIface
	clk clock.Clock
}

func NewPgStore(ctx context.Context, connStr string) (*PgStore, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, errors.Wrap(err, "failed creating connection pool")
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "failed connecting to database")
	}

	s := newPgStore(pool, clk)
	if err = s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

func newPgStore(d pgxIface, c clock.Clock) *PgStore {
	return &PgStore{db: d, clk: c}
}

func (s *PgStore) ensureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, pgSchema); err != nil {
		return errors.Wrap(err, "failed creating schema")
	}
	return nil
}

func (s *PgStore) Close() {
	s.db.Close()
}

// GetCourses returns no courses for unknown users
func (s *PgStore) GetCourses(ctx context.Context, usr string) ([]schedule.Course, error) {
	var b []byte
	err := s.db.QueryRow(ctx, `SELECT courses FROM course_users WHERE user_id=$1`, usr).Scan(&b)

	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, errors.Wrap(err, "failed fetching courses")
	}

	return decodeCourses(b)
}

// SaveCourses replaces the user's schedule
func (s *PgStore) SaveCourses(ctx context.Context, usr string, courses []schedule.Course) error {
	b, err := encodeCourses(courses)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(ctx, `INSERT INTO course_users (user_id, courses, updated_at)
VALUES ($1, $2, $3)
ON CONFLICT (user_id) DO UPDATE SET courses=EXCLUDED.courses, updated_at=EXCLUDED.updated_at`,
		usr, b, s.clk.Now().UTC())
	if err != nil {
		return errors.Wrap(err, "failed saving courses")
	}
	return nil
}

// GetSettings returns default settings for unknown users
func (s *PgStore) GetSettings(ctx context.Context, usr string) (schedule.Settings, error) {
	var st schedule.Settings
	err := s.db.QueryRow(ctx, `SELECT daily_reminder, reminders_active
FROM course_users
WHERE user_id=$1`, usr).Scan(&st.EnableDailyReminder, &st.RemindersActive)

	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return schedule.DefaultSettings(), nil
	case err != nil:
		return schedule.Settings{}, errors.Wrap(err, "failed fetching settings")
	}

	return st, nil
}

func (s *PgStore) SaveSettings(ctx context.Context, usr string, st schedule.Settings) error {
	_, err := s.db.Exec(ctx, `INSERT INTO course_users (user_id, daily_reminder, reminders_active, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (user_id) DO UPDATE SET daily_reminder=EXCLUDED.daily_reminder, reminders_active=EXCLUDED.reminders_active, updated_at=EXCLUDED.updated_at`,
		usr, st.EnableDailyReminder, st.RemindersActive, s.clk.Now().UTC())
	if err != nil {
		return errors.Wrap(err, "failed saving settings")
	}
	return nil
}

// ActiveUsers returns IDs of users whose reminders have to run
func (s *PgStore) ActiveUsers(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT user_id FROM course_users WHERE reminders_active ORDER BY user_id`)
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
