// Package clock provides the virtual-time abstraction used by Table and
// TournamentSupervisor for turn timers, ghost-disconnect grace periods, and
// the tournament blind clock. Every blocking wait in the game loop goes
// through a Clock instead of time.After/time.NewTicker directly, so tests can
// swap in a manually-advanced clock instead of sleeping on a wall clock.
package clock

import (
	"sort"
	"sync"
	"time"
)

// Timer is a single scheduled callback. Cancel is idempotent.
type Timer interface {
	Cancel()
}

// Clock schedules callbacks to run after a duration or at an absolute time.
// Implementations must be safe for concurrent use; Table calls Clock methods
// from its single game-loop goroutine but fires can race with Stop/Cancel
// from elsewhere.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
	NewTicker(d time.Duration) Ticker
}

// Ticker mirrors time.Ticker's surface so a virtual clock can drive it.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// real wraps the standard library clock. This is what cmd/gameserver wires
// into production tables.
type real struct{}

// Real returns the wall-clock Clock implementation.
func Real() Clock { return real{} }

func (real) Now() time.Time { return time.Now() }

func (real) AfterFunc(d time.Duration, f func()) Timer {
	t := time.AfterFunc(d, f)
	return realTimer{t}
}

func (real) NewTicker(d time.Duration) Ticker {
	t := time.NewTicker(d)
	return realTicker{t}
}

type realTimer struct{ t *time.Timer }

func (r realTimer) Cancel() { r.t.Stop() }

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

// Virtual is a manually-advanced Clock for deterministic tests: turn-timer
// expiry, ghost-grace-period expiry, and blind-level advances can be driven
// by calling Advance instead of sleeping.
type Virtual struct {
	mu      sync.Mutex
	now     time.Time
	waiters []*virtualWaiter
	tickers []*virtualTicker
}

type virtualWaiter struct {
	fireAt    time.Time
	f         func()
	cancelled bool
}

func (w *virtualWaiter) Cancel() {
	w.cancelled = true
}

type virtualTicker struct {
	d       time.Duration
	ch      chan time.Time
	next    time.Time
	stopped bool
}

func (t *virtualTicker) C() <-chan time.Time { return t.ch }
func (t *virtualTicker) Stop()                { t.stopped = true }

// NewVirtual creates a Virtual clock starting at the given time.
func NewVirtual(start time.Time) *Virtual {
	return &Virtual{now: start}
}

func (v *Virtual) Now() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.now
}

func (v *Virtual) AfterFunc(d time.Duration, f func()) Timer {
	v.mu.Lock()
	defer v.mu.Unlock()
	w := &virtualWaiter{fireAt: v.now.Add(d), f: f}
	v.waiters = append(v.waiters, w)
	return w
}

func (v *Virtual) NewTicker(d time.Duration) Ticker {
	v.mu.Lock()
	defer v.mu.Unlock()
	t := &virtualTicker{d: d, ch: make(chan time.Time, 1), next: v.now.Add(d)}
	v.tickers = append(v.tickers, t)
	return t
}

// Advance moves the clock forward by d, firing any AfterFunc callbacks and
// ticker sends whose time has come, in chronological order. Callbacks run
// synchronously on the calling goroutine.
func (v *Virtual) Advance(d time.Duration) {
	v.mu.Lock()
	v.now = v.now.Add(d)
	now := v.now

	var due []*virtualWaiter
	remaining := v.waiters[:0]
	for _, w := range v.waiters {
		if w.cancelled {
			continue
		}
		if !w.fireAt.After(now) {
			due = append(due, w)
		} else {
			remaining = append(remaining, w)
		}
	}
	v.waiters = remaining

	for _, t := range v.tickers {
		if t.stopped {
			continue
		}
		for !t.next.After(now) {
			select {
			case t.ch <- t.next:
			default:
			}
			t.next = t.next.Add(t.d)
		}
	}
	v.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].fireAt.Before(due[j].fireAt) })
	for _, w := range due {
		w.f()
	}
}
