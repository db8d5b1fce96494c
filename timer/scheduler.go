package timer

import (
	"sync"
	"time"

	"github.com/kronholm/flowtime/internal/models"
	"github.com/kronholm/flowtime/internal/timeutil"
)

const (
	defaultTickInterval = time.Second

	// persistCadenceSeconds is how often (in computed seconds) the scheduler
	// asks for the record to be persisted, so a crash loses at most a few
	// seconds of continuity.
	persistCadenceSeconds = 5
)

// SchedulerCallbacks receive the freshly computed time values. They are
// invoked from the scheduler goroutine.
type SchedulerCallbacks struct {
	// OnTick receives the displayable value: seconds remaining for
	// countdown, seconds elapsed for countup.
	OnTick func(seconds int)
	// OnPersist fires at a fixed cadence with the same value.
	OnPersist func(seconds int)
	// OnThreshold fires once when the session reaches its natural endpoint.
	OnThreshold func()
}

// Scheduler recomputes a session's remaining or elapsed time from the wall
// clock on a periodic tick. Time is always derived from the start timestamp,
// never advanced by counting ticks, so a schedule that was suspended resumes
// with a mathematically correct value.
type Scheduler struct {
	mu        sync.Mutex
	quit      chan struct{}
	now       func() time.Time
	interval  time.Duration
	callbacks SchedulerCallbacks
}

// NewScheduler creates a stopped scheduler.
func NewScheduler(cb SchedulerCallbacks, now func() time.Time) *Scheduler {
	if now == nil {
		now = time.Now
	}

	return &Scheduler{
		now:       now,
		interval:  defaultTickInterval,
		callbacks: cb,
	}
}

// computeValue derives the displayable value for a session and reports
// whether the terminal threshold has been reached.
func computeValue(
	mode models.TimerMode,
	durationSeconds, elapsed int,
) (value int, done bool) {
	if mode == models.Countup {
		value = min(max(elapsed, 0), durationSeconds)

		return value, value >= durationSeconds
	}

	value = max(0, durationSeconds-elapsed)

	return value, value == 0
}

// Start begins a periodic recomputation against the given start timestamp.
// Any previously running schedule is cancelled first: there is never more
// than one active schedule.
func (s *Scheduler) Start(
	startTimestampMs int64,
	durationSeconds int,
	mode models.TimerMode,
) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()

	quit := make(chan struct{})
	s.quit = quit

	go s.run(quit, startTimestampMs, durationSeconds, mode)
}

// Stop cancels the active schedule. It is idempotent and returns once the
// cancellation has been signalled.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
}

// Running reports whether a schedule is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.quit != nil
}

func (s *Scheduler) stopLocked() {
	if s.quit != nil {
		close(s.quit)
		s.quit = nil
	}
}

// finished clears the quit handle after a natural completion, but only if it
// still belongs to this run.
func (s *Scheduler) finished(quit chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.quit == quit {
		s.quit = nil
	}
}

func (s *Scheduler) run(
	quit chan struct{},
	startTimestampMs int64,
	durationSeconds int,
	mode models.TimerMode,
) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-quit:
			return
		case <-ticker.C:
			elapsed := timeutil.ElapsedSeconds(startTimestampMs, s.now())

			value, done := computeValue(mode, durationSeconds, elapsed)

			if s.callbacks.OnTick != nil {
				s.callbacks.OnTick(value)
			}

			if done {
				s.finished(quit)

				if s.callbacks.OnThreshold != nil {
					s.callbacks.OnThreshold()
				}

				return
			}

			if elapsed > 0 && elapsed%persistCadenceSeconds == 0 &&
				s.callbacks.OnPersist != nil {
				s.callbacks.OnPersist(value)
			}
		}
	}
}
