package call

import (
	"sync"
	"time"
)

// timerState tracks a scheduled settle callback through its lifecycle so
// that double-fire and use-after-cancel races are structurally impossible.
type timerState int

const (
	timerArmed timerState = iota
	timerFired
	timerCancelled
)

// SettleTimer keeps at most one live debounce timer per call. Reset always
// cancels the previous schedule before arming a new one, so only the most
// recent schedule can ever fire, and each schedule fires at most once.
//
// All methods are safe for concurrent use.
type SettleTimer struct {
	mu     sync.Mutex
	timers map[string]*scheduled
}

type scheduled struct {
	timer *time.Timer
	state timerState
}

// NewSettleTimer creates an empty timer registry.
func NewSettleTimer() *SettleTimer {
	return &SettleTimer{timers: make(map[string]*scheduled)}
}

// Reset cancels any pending timer for callID and schedules fire to run after
// delay. The callback runs on the timer goroutine, outside the audio path;
// it is never invoked once Cancel has won the race.
func (t *SettleTimer) Reset(callID string, delay time.Duration, fire func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if prev, ok := t.timers[callID]; ok {
		prev.state = timerCancelled
		prev.timer.Stop()
	}

	sched := &scheduled{state: timerArmed}
	sched.timer = time.AfterFunc(delay, func() {
		t.mu.Lock()
		if sched.state != timerArmed {
			// Cancelled or superseded after the Go runtime already committed
			// to running this callback.
			t.mu.Unlock()
			return
		}
		sched.state = timerFired
		if t.timers[callID] == sched {
			delete(t.timers, callID)
		}
		t.mu.Unlock()

		fire()
	})
	t.timers[callID] = sched
}

// Cancel stops any pending timer for callID. A callback that has already
// started running observes the cancelled state and no-ops. Idempotent.
func (t *SettleTimer) Cancel(callID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if sched, ok := t.timers[callID]; ok {
		sched.state = timerCancelled
		sched.timer.Stop()
		delete(t.timers, callID)
	}
}

// Pending reports whether a timer is currently armed for callID.
func (t *SettleTimer) Pending(callID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.timers[callID]
	return ok
}
