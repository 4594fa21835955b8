package reminder

import (
	"testing"
	"time"

	"coursebot/bots/CourseReminder/schedule"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitFor = 2 * time.Second

func closed(ch chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

func TestManagerStartRunsLoop(t *testing.T) {
	f := newFixture(testConfig())
	f.clk.Set(at(7, 50, 0))

	f.manager.Start("42", []schedule.Course{maths})
	defer f.manager.StopAll()

	require.Eventually(t, func() bool { return f.notifier.count("高等数学") == 1 }, waitFor, time.Millisecond)
	assert.True(t, f.manager.Active("42"))
	assert.False(t, f.manager.Active("43"))
}

func TestManagerStartReplacesLoop(t *testing.T) {
	f := newFixture(testConfig())
	f.clk.Set(at(7, 50, 0))

	f.manager.Start("42", []schedule.Course{maths})
	require.Eventually(t, func() bool { return f.notifier.count("高等数学") == 1 }, waitFor, time.Millisecond)

	f.manager.mu.Lock()
	old := f.manager.tasks["42"]
	f.manager.mu.Unlock()

	f.manager.Start("42", []schedule.Course{physics})
	defer f.manager.StopAll()

	// the old loop is gone by the time Start returns
	assert.True(t, closed(old.done))

	f.clk.Set(at(9, 50, 0))
	require.Eventually(t, func() bool { return f.notifier.count("大学物理") == 1 }, waitFor, time.Millisecond)

	// maths would be due again on the next day if the old loop were alive
	f.clk.Set(at(7, 50, 0).AddDate(0, 0, 1))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, f.notifier.count("高等数学"))

	f.manager.mu.Lock()
	assert.Len(t, f.manager.tasks, 1)
	f.manager.mu.Unlock()
}

func TestManagerStop(t *testing.T) {
	f := newFixture(testConfig())
	f.clk.Set(at(12, 0, 0))

	f.manager.Start("42", []schedule.Course{maths})
	assert.True(t, f.manager.Stop("42"))
	assert.False(t, f.manager.Stop("42"))
	assert.False(t, f.manager.Active("42"))

	f.clk.Set(at(7, 50, 0).AddDate(0, 0, 1))
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, f.notifier.messages())
}

func TestManagerStopAll(t *testing.T) {
	f := newFixture(testConfig())
	f.clk.Set(at(12, 0, 0))

	f.manager.Start("1", []schedule.Course{maths})
	f.manager.Start("2", []schedule.Course{physics})

	f.manager.mu.Lock()
	tasks := []*task{f.manager.tasks["1"], f.manager.tasks["2"]}
	f.manager.mu.Unlock()

	f.manager.StopAll()

	for _, tk := range tasks {
		assert.True(t, closed(tk.done))
	}
	assert.False(t, f.manager.Active("1"))
	assert.False(t, f.manager.Active("2"))
}

func TestLoopSurvivesPanickingTick(t *testing.T) {
	f := newFixture(testConfig())
	f.notifier.panic = true
	f.clk.Set(at(7, 50, 0))

	f.manager.Start("42", []schedule.Course{maths})
	defer f.manager.StopAll()

	require.Eventually(t, func() bool { return f.notifier.count("高等数学") == 1 }, waitFor, time.Millisecond)
}

func TestNewManagerDefaults(t *testing.T) {
	m := NewManager(Config{}, nil, nil, nil, nil)

	assert.Equal(t, DefaultInterval, m.cfg.Interval)
	assert.Equal(t, time.Local, m.cfg.Location)
}

func TestManagerReplaceDoesNotRepeatReminders(t *testing.T) {
	f := newFixture(testConfig())
	f.clk.Set(at(7, 50, 0))

	f.manager.Start("42", []schedule.Course{maths})
	defer f.manager.StopAll()
	require.Eventually(t, func() bool { return f.notifier.count("高等数学") == 1 }, waitFor, time.Millisecond)

	f.manager.Start("42", []schedule.Course{maths, physics})
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, f.notifier.count("高等数学"))

	// the next day is a new day
	f.clk.Set(at(7, 50, 0).AddDate(0, 0, 1))
	require.Eventually(t, func() bool { return f.notifier.count("高等数学") == 2 }, waitFor, time.Millisecond)
}

func TestManagerReplaceInsidePreviewMinute(t *testing.T) {
	f := newFixture(testConfig())
	f.clk.Set(at(21, 0, 0))

	f.manager.Start("42", []schedule.Course{maths})
	defer f.manager.StopAll()
	require.Eventually(t, func() bool { return f.notifier.count("课程预览") == 1 }, waitFor, time.Millisecond)

	f.manager.Start("42", []schedule.Course{maths})
	f.clk.Set(at(21, 0, 30))
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, 1, f.notifier.count("课程预览"))
}

func TestManagerRefusesStartAfterStopAll(t *testing.T) {
	f := newFixture(testConfig())
	f.clk.Set(at(12, 0, 0))

	f.manager.StopAll()

	assert.False(t, f.manager.Start("42", []schedule.Course{maths}))
	assert.False(t, f.manager.Active("42"))
}

func TestManagerStartDoesNotBlockOtherUsers(t *testing.T) {
	f := newFixture(testConfig())
	gate := make(chan struct{})
	f.notifier.gate = gate
	f.clk.Set(at(7, 50, 0))

	// user 1's loop hangs in Send
	f.manager.Start("1", []schedule.Course{maths})
	defer f.manager.StopAll()
	require.Eventually(t, func() bool { return f.notifier.callCount() == 1 }, waitFor, time.Millisecond)

	replaced := make(chan struct{})
	go func() {
		f.manager.Start("1", []schedule.Course{physics})
		close(replaced)
	}()

	other := make(chan struct{})
	go func() {
		f.manager.Start("2", []schedule.Course{physics})
		close(other)
	}()

	select {
	case <-other:
	case <-time.After(waitFor):
		t.Fatal("user 2 waited for user 1's loop")
	}
	assert.True(t, f.manager.Active("2"))

	close(gate)
	select {
	case <-replaced:
	case <-time.After(waitFor):
		t.Fatal("user 1's loop wasn't replaced")
	}
	assert.True(t, f.manager.Active("1"))
}
