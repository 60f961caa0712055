package authclient

import (
	"sync"
	"time"
)

// LockoutKind distinguishes which guarded action a ban window applies to.
// Kinds are independent: a login ban does not block the reset flow.
type LockoutKind string

const (
	LockoutLogin LockoutKind = "login"
	LockoutReset LockoutKind = "reset"
)

// LockoutUpdate is delivered to observers once per countdown tick and once
// more, with Active false, the instant the window closes.
type LockoutUpdate struct {
	Kind      LockoutKind
	Remaining time.Duration
	Active    bool
}

// LockoutObserver receives countdown updates. The UI layer uses these to
// disable the guarded control and render the remaining time.
type LockoutObserver func(LockoutUpdate)

// LockoutOption customizes manager behavior.
type LockoutOption func(*LockoutManager)

// WithLockoutClock injects a custom clock (useful for tests).
func WithLockoutClock(clock func() time.Time) LockoutOption {
	return func(lm *LockoutManager) {
		if clock != nil {
			lm.now = clock
		}
	}
}

// WithLockoutTick overrides the countdown resolution.
func WithLockoutTick(tick time.Duration) LockoutOption {
	return func(lm *LockoutManager) {
		if tick > 0 {
			lm.tick = tick
		}
	}
}

// WithLockoutLogger overrides the logger.
func WithLockoutLogger(logger Logger) LockoutOption {
	return func(lm *LockoutManager) {
		if logger != nil {
			lm.logger = logger
		}
	}
}

type lockoutEntry struct {
	until time.Time
	stop  chan struct{}
}

// LockoutManager tracks server-imposed temporary denials. At most one entry
// exists per kind; a fresh signal for the same kind overwrites the prior
// expiry. Each entry owns a cancellable countdown task that is always
// released, on natural expiry, explicit clear, or Close.
type LockoutManager struct {
	mu        sync.Mutex
	entries   map[LockoutKind]*lockoutEntry
	observers []LockoutObserver
	now       func() time.Time
	tick      time.Duration
	logger    Logger
	closed    bool
}

func NewLockoutManager(opts ...LockoutOption) *LockoutManager {
	lm := &LockoutManager{
		entries: map[LockoutKind]*lockoutEntry{},
		now:     time.Now,
		tick:    time.Second,
		logger:  defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(lm)
		}
	}

	return lm
}

// Observe registers a countdown observer. Observers live for the manager's
// lifetime; Close releases them.
func (lm *LockoutManager) Observe(fn LockoutObserver) {
	if fn == nil {
		return
	}
	lm.mu.Lock()
	lm.observers = append(lm.observers, fn)
	lm.mu.Unlock()
}

// Record installs (or overwrites) the ban window for a kind and starts its
// countdown. Windows already in the past are ignored.
func (lm *LockoutManager) Record(kind LockoutKind, until time.Time) {
	lm.mu.Lock()
	if lm.closed || !until.After(lm.now()) {
		lm.mu.Unlock()
		return
	}

	if existing, ok := lm.entries[kind]; ok {
		close(existing.stop)
	}

	entry := &lockoutEntry{
		until: until,
		stop:  make(chan struct{}),
	}
	lm.entries[kind] = entry
	remaining := until.Sub(lm.now())
	lm.mu.Unlock()

	lm.logger.Info("lockout recorded for %s until %s", kind, until.Format(time.RFC3339))
	lm.notify(LockoutUpdate{Kind: kind, Remaining: remaining, Active: true})

	go lm.countdown(kind, entry)
}

// RecordFromError installs a ban window from a rate limit error that carries
// a ban-until timestamp. Reports whether a window was recorded.
func (lm *LockoutManager) RecordFromError(kind LockoutKind, err error) bool {
	until, ok := BanUntilFromError(err)
	if !ok {
		return false
	}
	lm.Record(kind, until)
	return true
}

// Active reports whether the guarded action for kind is currently blocked.
// A window the clock has passed is cleared on observation.
func (lm *LockoutManager) Active(kind LockoutKind) bool {
	return lm.Remaining(kind) > 0
}

// Remaining returns the time left on the kind's window, zero when unblocked.
func (lm *LockoutManager) Remaining(kind LockoutKind) time.Duration {
	lm.mu.Lock()
	entry, ok := lm.entries[kind]
	if !ok {
		lm.mu.Unlock()
		return 0
	}

	remaining := entry.until.Sub(lm.now())
	if remaining <= 0 {
		delete(lm.entries, kind)
		close(entry.stop)
		lm.mu.Unlock()
		lm.notify(LockoutUpdate{Kind: kind, Active: false})
		return 0
	}
	lm.mu.Unlock()
	return remaining
}

// Clear removes the kind's window, e.g. when a fresh attempt is allowed or
// the session ends.
func (lm *LockoutManager) Clear(kind LockoutKind) {
	lm.mu.Lock()
	entry, ok := lm.entries[kind]
	if ok {
		delete(lm.entries, kind)
		close(entry.stop)
	}
	lm.mu.Unlock()

	if ok {
		lm.notify(LockoutUpdate{Kind: kind, Active: false})
	}
}

// Close cancels every countdown task. The manager accepts no new windows
// afterwards.
func (lm *LockoutManager) Close() {
	lm.mu.Lock()
	lm.closed = true
	for kind, entry := range lm.entries {
		delete(lm.entries, kind)
		close(entry.stop)
	}
	lm.observers = nil
	lm.mu.Unlock()
}

func (lm *LockoutManager) countdown(kind LockoutKind, entry *lockoutEntry) {
	ticker := time.NewTicker(lm.tick)
	defer ticker.Stop()

	for {
		select {
		case <-entry.stop:
			return
		case <-ticker.C:
			lm.mu.Lock()
			current, ok := lm.entries[kind]
			if !ok || current != entry {
				lm.mu.Unlock()
				return
			}

			remaining := entry.until.Sub(lm.now())
			if remaining <= 0 {
				delete(lm.entries, kind)
				lm.mu.Unlock()
				lm.logger.Info("lockout for %s expired", kind)
				lm.notify(LockoutUpdate{Kind: kind, Active: false})
				return
			}
			lm.mu.Unlock()
			lm.notify(LockoutUpdate{Kind: kind, Remaining: remaining, Active: true})
		}
	}
}

func (lm *LockoutManager) notify(update LockoutUpdate) {
	lm.mu.Lock()
	observers := make([]LockoutObserver, len(lm.observers))
	copy(observers, lm.observers)
	lm.mu.Unlock()

	for _, fn := range observers {
		fn(update)
	}
}
