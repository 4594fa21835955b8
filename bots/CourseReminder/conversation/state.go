// Package conversation decides what a user's reply means depending on what
// the bot asked them last.
package conversation

import (
	"strings"
	"sync"
)

type State int

const (
	Idle State = iota
	WaitingConfirmation
	WaitingDailyPreviewDecision
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case WaitingConfirmation:
		return "waiting_confirmation"
	case WaitingDailyPreviewDecision:
		return "waiting_daily_preview"
	}
	return "unknown"
}

// Action is the side effect the caller has to perform for a reply.
type Action int

const (
	ActionNone         Action = iota // nothing to do, the reply isn't meant for the state machine
	ActionActivate                   // start reminders for the stored schedule
	ActionCancel                     // drop the pending confirmation
	ActionEnableDaily                // keep sending daily previews
	ActionDisableDaily               // stop sending daily previews
	ActionReprompt                   // repeat the question, the reply wasn't understood
)

var (
	repliesConfirm = []string{"确认", "confirm"}
	repliesCancel  = []string{"取消", "cancel"}
	repliesYes     = []string{"是", "yes"}
	repliesNo      = []string{"否", "no"}
)

// Next returns the state after the reply and what has to be done about it.
// A reply that doesn't fit the state keeps the state as is.
func Next(s State, reply string) (State, Action) {
	reply = strings.TrimSpace(reply)

	switch s {
	case WaitingConfirmation:
		switch {
		case oneOf(reply, repliesConfirm):
			return Idle, ActionActivate
		case oneOf(reply, repliesCancel):
			return Idle, ActionCancel
		}
		return s, ActionReprompt

	case WaitingDailyPreviewDecision:
		switch {
		case oneOf(reply, repliesYes):
			return Idle, ActionEnableDaily
		case oneOf(reply, repliesNo):
			return Idle, ActionDisableDaily
		}
		return s, ActionReprompt
	}

	return Idle, ActionNone
}

func oneOf(reply string, replies []string) bool {
	for _, r := range replies {
		if strings.EqualFold(reply, r) {
			return true
		}
	}
	return false
}

// Tracker keeps conversation states of all users in memory. Users without
// a state are idle. It's safe for concurrent use.
type Tracker struct {
	mu     sync.Mutex
	states map[string]State
}

func NewTracker() *Tracker {
	return &Tracker{states: make(map[string]State)}
}

func (t *Tracker) Get(usr string) State {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.states[usr]
}

func (t *Tracker) Set(usr string, s State) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if s == Idle {
		delete(t.states, usr)
		return
	}
	t.states[usr] = s
}

// SetIfIdle moves an idle user to the given state. It reports whether the
// state was changed.
func (t *Tracker) SetIfIdle(usr string, s State) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.states[usr] != Idle {
		return false
	}
	if s != Idle {
		t.states[usr] = s
	}
	return true
}

func (t *Tracker) Reset(usr string) {
	t.Set(usr, Idle)
}
