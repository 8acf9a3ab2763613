package isopick

import "time"

// Clock supplies the current time to a Scheduler.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

// Scheduler is a trailing-edge debounce. Every Invalidate pushes the
// deadline one window into the future; the callback runs once the deadline
// passes with no further invalidation. The scheduler owns no goroutine or
// timer: the host polls it from its update loop, so the callback always
// runs on the host's thread.
type Scheduler struct {
	clock  Clock
	window time.Duration
	fire   func()

	deadline time.Time
	pending  bool
	stopped  bool

	invalidations int
	fires         int
}

// NewScheduler returns a scheduler that calls fire after window of quiet.
// A nil clock means SystemClock.
func NewScheduler(clock Clock, window time.Duration, fire func()) *Scheduler {
	if clock == nil {
		clock = SystemClock
	}
	if window < 0 {
		window = 0
	}
	return &Scheduler{clock: clock, window: window, fire: fire}
}

// debounceWindow derives the debounce window from the host frame rate: one
// frame interval in whole milliseconds, raised to floor.
func debounceWindow(fps int, floor time.Duration) time.Duration {
	if fps <= 0 {
		fps = 60
	}
	w := time.Duration(1000/fps) * time.Millisecond
	return max(w, floor)
}

// Invalidate (re)starts the debounce window. No-op once stopped.
func (s *Scheduler) Invalidate() {
	if s.stopped {
		return
	}
	s.invalidations++
	s.pending = true
	s.deadline = s.clock.Now().Add(s.window)
}

// Poll runs the callback if the window has elapsed since the last
// invalidation. Reports whether it ran.
func (s *Scheduler) Poll() bool {
	if !s.pending || s.stopped {
		return false
	}
	if s.clock.Now().Before(s.deadline) {
		return false
	}
	return s.run()
}

// Flush runs a pending callback immediately, ignoring the window.
// Reports whether it ran.
func (s *Scheduler) Flush() bool {
	if !s.pending || s.stopped {
		return false
	}
	return s.run()
}

func (s *Scheduler) run() bool {
	s.pending = false
	s.fires++
	if s.fire != nil {
		s.fire()
	}
	return true
}

// Stop cancels any pending run. A stopped scheduler never fires again.
func (s *Scheduler) Stop() {
	s.stopped = true
	s.pending = false
}

// Pending reports whether a run is waiting for its window to elapse.
func (s *Scheduler) Pending() bool {
	return s.pending
}

// Stopped reports whether Stop has been called.
func (s *Scheduler) Stopped() bool {
	return s.stopped
}

// Window returns the debounce window.
func (s *Scheduler) Window() time.Duration {
	return s.window
}

// Fires returns how many times the callback has run.
func (s *Scheduler) Fires() int {
	return s.fires
}

// Invalidations returns how many invalidations have been accepted.
func (s *Scheduler) Invalidations() int {
	return s.invalidations
}
