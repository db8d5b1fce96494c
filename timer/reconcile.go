package timer

import (
	"time"

	"github.com/kronholm/flowtime/internal/models"
	"github.com/kronholm/flowtime/internal/timeutil"
)

// Reconciler recomputes the authoritative time whenever the app transitions
// between foreground and background. It deliberately races the scheduler
// tick on resume: correctness is delegated to the completion arbiter, not to
// this component.
type Reconciler struct {
	state    *StateStore
	lock     LockScreen
	complete func()
	now      func() time.Time
}

// NewReconciler wires the reconciler to the state store, the lock-screen
// boundary, and the completion trigger.
func NewReconciler(
	state *StateStore,
	lock LockScreen,
	complete func(),
	now func() time.Time,
) *Reconciler {
	if now == nil {
		now = time.Now
	}

	if lock == nil {
		lock = noopLockScreen{}
	}

	return &Reconciler{
		state:    state,
		lock:     lock,
		complete: complete,
		now:      now,
	}
}

// Background handles the transition away from the foreground. A running work
// session requests the lock screen; no timer state changes.
func (r *Reconciler) Background() {
	rec := r.state.Snapshot()

	if rec.Status() == models.Running && rec.Kind == models.Work {
		r.lock.Show()
	}
}

// Foreground recomputes the authoritative value exactly as a scheduler tick
// would, persists it, and triggers the completion path if the session is
// already overdue.
func (r *Reconciler) Foreground() {
	rec := r.state.Snapshot()

	if rec.Status() != models.Running {
		return
	}

	elapsed := timeutil.ElapsedSeconds(*rec.StartTimestampMs, r.now())
	value, done := computeValue(rec.Mode, rec.DurationSeconds, elapsed)

	r.state.Save(func(cur *models.TimerRecord) {
		if cur.StartTimestampMs == nil {
			// the session resolved while we were reconciling
			return
		}

		applyValue(cur, value)
	})

	r.lock.Hide()

	if done {
		r.complete()
	}
}

// applyValue writes a freshly computed value into the mode-appropriate time
// field.
func applyValue(rec *models.TimerRecord, value int) {
	if rec.Mode == models.Countup {
		rec.ElapsedSeconds = value

		return
	}

	rec.TimeLeftSeconds = value
}
