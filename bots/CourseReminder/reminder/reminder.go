package reminder

import (
	"context"
	"time"

	"coursebot/bots/CourseReminder/schedule"
	"coursebot/metrics"

	"github.com/jmhodges/clock"
	"go.uber.org/zap"
)

const DefaultInterval = 60 * time.Second

// Notifier delivers a text message to the user. Implementations must be safe
// for concurrent use.
type Notifier interface {
	Send(ctx context.Context, usr string, txt string) error
}

// SettingsGetter reads user settings. Implementations must be safe for
// concurrent use.
type SettingsGetter interface {
	GetSettings(ctx context.Context, usr string) (schedule.Settings, error)
}

// Config is shared by all schedulers of the process.
type Config struct {
	Interval      time.Duration  // polling period
	Advance       time.Duration  // how long before the class the reminder is due
	DailyPreview  bool           // send the daily preview at PreviewHour:PreviewMinute
	PreviewHour   int
	PreviewMinute int
	MatchWeekday  bool           // remind only on the weekday of the course
	Location      *time.Location // time zone all clock times are given in
}

type day struct {
	year  int
	month time.Month
	day   int
}

func dayOf(t time.Time) day {
	y, m, d := t.Date()
	return day{y, m, d}
}

// occurrence identifies a course on a particular date
type occurrence struct {
	course schedule.Course
	on     day
}

// sentLog remembers what the user got today. It outlives schedulers, so a
// replaced schedule doesn't repeat today's reminders. Only one scheduler of
// the user uses it at a time.
type sentLog struct {
	courses     map[occurrence]bool
	lastPreview day
}

func newSentLog() *sentLog {
	return &sentLog{courses: make(map[occurrence]bool)}
}

func (l *sentLog) forgetBefore(today day) {
	for o := range l.courses {
		if o.on != today {
			delete(l.courses, o)
		}
	}
}

// Scheduler polls the clock and sends reminders for one user's snapshot of
// courses. A reminder for a course occurrence and the daily preview are sent
// at most once per day.
type Scheduler struct {
	usr       string
	courses   []schedule.Course
	cfg       Config
	clk       clock.Clock
	notifier  Notifier
	settings  SettingsGetter
	onPreview func(usr string)
	logger    *zap.SugaredLogger
	metrics   *metrics.Metrics

	sent *sentLog
}

// Run ticks immediately and then every cfg.Interval until ctx is cancelled.
// Ticks are sequential; cancellation is noticed between ticks.
func (s *Scheduler) Run(ctx context.Context) {
	t := time.NewTicker(s.cfg.Interval)
	defer t.Stop()

	for {
		if ctx.Err() != nil {
			return
		}

		s.safeTick(ctx)

		select {
		case <-ctx.Done():
			s.logger.Debug("reminder loop is cancelled")
			return
		case <-t.C:
		}
	}
}

func (s *Scheduler) safeTick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Errorw("reminder tick failed; retrying on the next tick", "panic", r)
		}
	}()

	s.Tick(ctx, s.clk.Now())
}

// Tick sends everything that is due at now.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) {
	now = now.In(s.cfg.Location)
	today := dayOf(now)
	s.sent.forgetBefore(today)

	if s.cfg.DailyPreview && now.Hour() == s.cfg.PreviewHour && now.Minute() == s.cfg.PreviewMinute {
		s.sendPreview(ctx, today)
	}

	for _, c := range s.courses {
		if s.cfg.MatchWeekday && c.Weekday != now.Weekday() {
			continue
		}

		start, ok := schedule.ResolveNextStart(c.Time, now)
		if !ok {
			continue
		}

		remindAt := start.Add(-s.cfg.Advance)
		if now.Before(remindAt) || !now.Before(start) {
			continue
		}

		o := occurrence{course: c, on: today}
		if s.sent.courses[o] {
			continue
		}

		if err := s.notifier.Send(ctx, s.usr, schedule.FormatReminder(c)); err != nil {
			s.logger.Errorw("failed sending course reminder", "course", c.CourseName, "err", err)
			s.metrics.Failed(metrics.KindCourse)
			continue
		}

		s.logger.Infow("course reminder is sent", "course", c.CourseName, "start", start)
		s.metrics.Sent(metrics.KindCourse)
		s.sent.courses[o] = true
	}
}

func (s *Scheduler) sendPreview(ctx context.Context, today day) {
	if s.sent.lastPreview == today {
		return
	}

	st, err := s.settings.GetSettings(ctx, s.usr)
	if err != nil {
		s.logger.Errorw("failed fetching settings for daily preview", "err", err)
		return
	}

	// the decision is final for today even if sending fails below
	s.sent.lastPreview = today
	if !st.EnableDailyReminder {
		return
	}

	if err := s.notifier.Send(ctx, s.usr, formatPreview(s.courses)); err != nil {
		s.logger.Errorw("failed sending daily preview", "err", err)
		s.metrics.Failed(metrics.KindPreview)
		return
	}

	s.logger.Info("daily preview is sent")
	s.metrics.Sent(metrics.KindPreview)
	if s.onPreview != nil {
		s.onPreview(s.usr)
	}
}
