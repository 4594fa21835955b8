package reminder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"coursebot/bots/CourseReminder/schedule"
	"coursebot/metrics"

	"github.com/jmhodges/clock"
	"go.uber.org/zap"
)

const fmtDailyPreview = "同学你好，这是你的课程预览：\n\n%s是否继续接收每日课程预览？请回复“是”或“否”。"

func formatPreview(courses []schedule.Course) string {
	return fmt.Sprintf(fmtDailyPreview, schedule.FormatPreview(courses))
}

type task struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func (t *task) stop() {
	t.cancel()
	<-t.done
}

// Manager owns reminder loops, at most one per user.
type Manager struct {
	// OnPreview is called after the daily preview has been delivered.
	OnPreview func(usr string)
	Metrics   *metrics.Metrics

	cfg      Config
	clk      clock.Clock
	notifier Notifier
	settings SettingsGetter
	logger   *zap.SugaredLogger

	mu     sync.Mutex
	tasks  map[string]*task
	sent   map[string]*sentLog
	locks  map[string]*sync.Mutex // serialize Start and Stop of one user
	closed bool
}

func NewManager(cfg Config, n Notifier, s SettingsGetter, clk clock.Clock, l *zap.SugaredLogger) *Manager {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}

	return &Manager{
		cfg:      cfg,
		clk:      clk,
		notifier: n,
		settings: s,
		logger:   l,
		tasks:    make(map[string]*task),
		sent:     make(map[string]*sentLog),
		locks:    make(map[string]*sync.Mutex),
	}
}

func (m *Manager) newScheduler(usr string, courses []schedule.Course) *Scheduler {
	snapshot := make([]schedule.Course, len(courses))
	copy(snapshot, courses)

	m.mu.Lock()
	sent, ok := m.sent[usr]
	if !ok {
		sent = newSentLog()
		m.sent[usr] = sent
	}
	m.mu.Unlock()

	return &Scheduler{
		usr:       usr,
		courses:   snapshot,
		cfg:       m.cfg,
		clk:       m.clk,
		notifier:  m.notifier,
		settings:  m.settings,
		onPreview: m.OnPreview,
		logger:    m.logger.With("usr", usr),
		metrics:   m.Metrics,
		sent:      sent,
	}
}

// lock serializes Start and Stop of the user without blocking other users
func (m *Manager) lock(usr string) func() {
	m.mu.Lock()
	l, ok := m.locks[usr]
	if !ok {
		l = &sync.Mutex{}
		m.locks[usr] = l
	}
	m.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// take removes the user's task from the registry
func (m *Manager) take(usr string) (*task, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[usr]
	if ok {
		delete(m.tasks, usr)
		m.Metrics.SetActiveSchedulers(len(m.tasks))
	}
	return t, ok
}

// Start runs a reminder loop for the snapshot of courses. A loop already
// running for the user is cancelled, and Start waits for it to finish before
// the new one begins. What the old loop sent today isn't sent again. Start
// reports false if the manager has been stopped with StopAll.
func (m *Manager) Start(usr string, courses []schedule.Course) bool {
	unlock := m.lock(usr)
	defer unlock()

	if old, ok := m.take(usr); ok {
		old.stop()
		m.logger.Infow("previous reminder loop is replaced", "usr", usr)
	}

	s := m.newScheduler(usr, courses)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		m.logger.Warnw("reminder loop isn't started, the manager is stopped", "usr", usr)
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	t := &task{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(t.done)
		s.Run(ctx)
	}()

	m.tasks[usr] = t
	m.Metrics.SetActiveSchedulers(len(m.tasks))
	m.logger.Infow("reminder loop is started", "usr", usr, "courses", len(courses))

	return true
}

// Stop cancels the user's loop if any. It reports whether there was one.
func (m *Manager) Stop(usr string) bool {
	unlock := m.lock(usr)
	defer unlock()

	t, ok := m.take(usr)
	if !ok {
		return false
	}

	t.stop()
	m.logger.Infow("reminder loop is stopped", "usr", usr)

	return true
}

// StopAll cancels every loop and waits for all of them to finish. Loops
// can't be started afterwards.
func (m *Manager) StopAll() {
	m.mu.Lock()
	m.closed = true
	tasks := m.tasks
	m.tasks = make(map[string]*task)
	m.Metrics.SetActiveSchedulers(0)
	m.mu.Unlock()

	for _, t := range tasks {
		t.cancel()
	}
	for _, t := range tasks {
		<-t.done
	}
}

func (m *Manager) Active(usr string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.tasks[usr]
	return ok
}
