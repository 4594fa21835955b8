// Package engine turns incoming user messages into schedule updates and
// owns the reminder loops of all users.
package engine

import (
	"context"
	"fmt"
	"sync"

	"coursebot/bots/CourseReminder/conversation"
	"coursebot/bots/CourseReminder/reminder"
	"coursebot/bots/CourseReminder/schedule"
	"coursebot/metrics"

	"github.com/jmhodges/clock"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// CourseStore persists courses and settings. Implementations must be safe for
// concurrent use by different users.
type CourseStore interface {
	GetCourses(ctx context.Context, usr string) ([]schedule.Course, error)
	SaveCourses(ctx context.Context, usr string, courses []schedule.Course) error
	GetSettings(ctx context.Context, usr string) (schedule.Settings, error)
	SaveSettings(ctx context.Context, usr string, st schedule.Settings) error
	ActiveUsers(ctx context.Context) ([]string, error)
}

// Event is an incoming message.
type Event struct {
	UserID   string
	Text     string
	HasMedia bool // photo, document, etc.
}

type Engine struct {
	store     CourseStore
	notifier  reminder.Notifier
	states    *conversation.Tracker
	reminders *reminder.Manager
	logger    *zap.SugaredLogger
	metrics   *metrics.Metrics

	mu        sync.Mutex
	userLocks map[string]*sync.Mutex
}

func New(store CourseStore, n reminder.Notifier, cfg reminder.Config, clk clock.Clock, l *zap.SugaredLogger, m *metrics.Metrics) *Engine {
	e := &Engine{
		store:     store,
		notifier:  n,
		states:    conversation.NewTracker(),
		logger:    l,
		metrics:   m,
		userLocks: make(map[string]*sync.Mutex),
	}

	e.reminders = reminder.NewManager(cfg, n, store, clk, l)
	e.reminders.OnPreview = e.onPreview
	e.reminders.Metrics = m

	return e
}

// lock serializes handling of one user's messages
func (e *Engine) lock(usr string) func() {
	e.mu.Lock()
	l, ok := e.userLocks[usr]
	if !ok {
		l = &sync.Mutex{}
		e.userLocks[usr] = l
	}
	e.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// Handle processes a message of the user. Idle users send schedules; other
// states expect a reply to the last question and keep asking until they get
// one.
//
// Store writes and state changes aren't atomic: if the process dies right
// after a schedule is saved, the schedule stays stored while the pending
// confirmation is lost together with all other in-memory states.
func (e *Engine) Handle(ctx context.Context, ev Event) {
	unlock := e.lock(ev.UserID)
	defer unlock()

	usr := ev.UserID
	l := e.logger.With("usr", usr)

	if ev.HasMedia {
		e.reply(ctx, l, usr, txtMediaNotSupported)
		return
	}

	state := e.states.Get(usr)
	if state == conversation.Idle {
		e.handleSchedule(ctx, l, usr, ev.Text)
		return
	}

	next, action := conversation.Next(state, ev.Text)
	l.Debugw("handling reply", "state", state, "next", next)

	switch action {
	case conversation.ActionActivate:
		courses, err := e.store.GetCourses(ctx, usr)
		if err != nil {
			l.Errorw("failed fetching courses", "err", err)
			e.reply(ctx, l, usr, txtFailedFetchCourses)
			return
		}

		e.states.Set(usr, next)
		if len(courses) == 0 {
			e.reply(ctx, l, usr, txtNoCourses)
			return
		}

		started := e.reminders.Start(usr, courses)
		// the flag brings reminders back after a restart
		e.setRemindersActive(ctx, l, usr, true)
		if !started {
			e.reply(ctx, l, usr, txtShuttingDown)
			return
		}
		e.reply(ctx, l, usr, txtRemindersOn)

	case conversation.ActionCancel:
		e.states.Set(usr, next)
		e.reply(ctx, l, usr, txtCancelled)

	case conversation.ActionEnableDaily, conversation.ActionDisableDaily:
		enable := action == conversation.ActionEnableDaily
		if err := e.updateSettings(ctx, usr, func(st *schedule.Settings) { st.EnableDailyReminder = enable }); err != nil {
			l.Errorw("failed updating daily reminder setting", "err", err)
			e.reply(ctx, l, usr, txtFailedSaveSettings)
			return
		}

		e.states.Set(usr, next)
		if enable {
			e.reply(ctx, l, usr, txtDailyOn)
		} else {
			e.reply(ctx, l, usr, txtDailyOff)
		}

	case conversation.ActionReprompt:
		if state == conversation.WaitingDailyPreviewDecision {
			e.reply(ctx, l, usr, txtRepromptDaily)
		} else {
			e.reply(ctx, l, usr, txtRepromptConfirmation)
		}
	}
}

func (e *Engine) handleSchedule(ctx context.Context, l *zap.SugaredLogger, usr, txt string) {
	courses, err := schedule.Parse(txt)

	var lineErr *schedule.LineError
	if errors.As(err, &lineErr) {
		l.Infow("couldn't parse schedule", "err", err)
		e.metrics.ParseFailed()

		if errors.Is(err, schedule.ErrMissingWeekday) {
			e.reply(ctx, l, usr, fmt.Sprintf(fmtMissingWeekday, lineErr.Line, lineErr.Text))
		} else {
			e.reply(ctx, l, usr, fmt.Sprintf(fmtMalformedLine, lineErr.Line, lineErr.Text))
		}
		return
	}

	if len(courses) == 0 {
		l.Info("no courses found in the message")
		e.metrics.ParseFailed()
		e.reply(ctx, l, usr, txtParseFailed)
		return
	}

	if err = e.store.SaveCourses(ctx, usr, courses); err != nil {
		l.Errorw("failed saving courses", "err", err)
		e.reply(ctx, l, usr, txtFailedSaveCourses)
		return
	}

	l.Infow("schedule is saved", "courses", len(courses))
	e.states.Set(usr, conversation.WaitingConfirmation)
	e.reply(ctx, l, usr, fmt.Sprintf(fmtConfirmation, schedule.FormatCourses(courses)))
}

// onPreview is called by reminder loops; a pending confirmation isn't
// overridden
func (e *Engine) onPreview(usr string) {
	if !e.states.SetIfIdle(usr, conversation.WaitingDailyPreviewDecision) {
		e.logger.Infow("user is busy; daily preview decision isn't awaited", "usr", usr)
	}
}

func (e *Engine) updateSettings(ctx context.Context, usr string, f func(*schedule.Settings)) error {
	st, err := e.store.GetSettings(ctx, usr)
	if err != nil {
		return err
	}

	f(&st)
	return e.store.SaveSettings(ctx, usr, st)
}

func (e *Engine) setRemindersActive(ctx context.Context, l *zap.SugaredLogger, usr string, active bool) {
	err := e.updateSettings(ctx, usr, func(st *schedule.Settings) { st.RemindersActive = active })
	if err != nil {
		l.Warnw("failed saving reminder state; it won't survive a restart", "active", active, "err", err)
	}
}

// Restore restarts reminders of users who had them running before the
// process stopped.
func (e *Engine) Restore(ctx context.Context) error {
	users, err := e.store.ActiveUsers(ctx)
	if err != nil {
		return errors.Wrap(err, "failed getting list of users")
	}

	e.logger.Infof("restoring reminders for %d users", len(users))

	for _, usr := range users {
		courses, err := e.store.GetCourses(ctx, usr)
		if err != nil {
			e.logger.Errorw("failed fetching courses; the user won't get reminders", "usr", usr, "err", err)
			continue
		}
		if len(courses) == 0 {
			continue
		}

		e.reminders.Start(usr, courses)
	}

	return nil
}

// Reset drops whatever the bot was waiting for from the user.
func (e *Engine) Reset(usr string) {
	e.states.Reset(usr)
}

// State returns the conversation state of the user.
func (e *Engine) State(usr string) conversation.State {
	return e.states.Get(usr)
}

// RemindersActive reports whether the user has a running reminder loop.
func (e *Engine) RemindersActive(usr string) bool {
	return e.reminders.Active(usr)
}

func (e *Engine) Welcome(ctx context.Context, usr string) {
	e.reply(ctx, e.logger.With("usr", usr), usr, txtWelcome)
}

func (e *Engine) Help(ctx context.Context, usr string) {
	e.reply(ctx, e.logger.With("usr", usr), usr, txtHelp)
}

// ListCourses sends the stored schedule to the user.
func (e *Engine) ListCourses(ctx context.Context, usr string) {
	l := e.logger.With("usr", usr)

	courses, err := e.store.GetCourses(ctx, usr)
	if err != nil {
		l.Errorw("failed fetching courses", "err", err)
		e.reply(ctx, l, usr, txtFailedFetchCourses)
		return
	}

	if len(courses) == 0 {
		e.reply(ctx, l, usr, txtNoCourses)
		return
	}

	e.reply(ctx, l, usr, txtYourCourses+schedule.FormatCourses(courses))
}

// StopReminders cancels the user's reminder loop.
func (e *Engine) StopReminders(ctx context.Context, usr string) {
	unlock := e.lock(usr)
	defer unlock()

	l := e.logger.With("usr", usr)

	stopped := e.reminders.Stop(usr)
	e.setRemindersActive(ctx, l, usr, false)

	if stopped {
		e.reply(ctx, l, usr, txtRemindersStopped)
	} else {
		e.reply(ctx, l, usr, txtNothingToStop)
	}
}

// Shutdown cancels all reminder loops.
func (e *Engine) Shutdown() {
	e.reminders.StopAll()
	e.logger.Info("all reminder loops are stopped")
}

func (e *Engine) reply(ctx context.Context, l *zap.SugaredLogger, usr, txt string) {
	if err := e.notifier.Send(ctx, usr, txt); err != nil {
		l.Errorw("failed sending message", "err", err)
	}
}
