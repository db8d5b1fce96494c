// Package timer operates the flowtime session engine: it tracks session
// time against the wall clock, persists and rehydrates the session record,
// arbitrates completion so its side effects run exactly once, and hands the
// finished session to the reward engine.
package timer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/kronholm/flowtime/config"
	"github.com/kronholm/flowtime/internal/models"
	"github.com/kronholm/flowtime/internal/timeutil"
	"github.com/kronholm/flowtime/reward"
)

// DisplayState is the read-only view handed to subscribers for rendering.
type DisplayState struct {
	// Value is the displayable time in seconds: remaining for countdown,
	// elapsed for countup.
	Value                 int
	Mode                  models.TimerMode
	Kind                  models.SessionKind
	Status                models.SessionStatus
	Category              string
	TaskLabel             string
	CompletedSessionCount int
	SoundEnabled          bool
}

// Timer coordinates the state store, the wall-clock scheduler, the
// visibility reconciler, and the completion arbiter.
type Timer struct {
	state      *StateStore
	scheduler  *Scheduler
	reconciler *Reconciler
	arbiter    *Arbiter

	blocker  DistractionBlocker
	ledger   RewardLedger
	recorder Recorder
	notifier NotificationScheduler
	lock     LockScreen

	now func() time.Time

	mu        sync.Mutex
	startedAt time.Time

	displayFn  func(DisplayState)
	completeFn func(reward.Result)
}

// Option configures the timer.
type Option func(*Timer)

// WithBlocker sets the external distraction-blocking service.
func WithBlocker(b DistractionBlocker) Option {
	return func(t *Timer) {
		t.blocker = b
	}
}

// WithLedger sets the external reward economy.
func WithLedger(l RewardLedger) Option {
	return func(t *Timer) {
		t.ledger = l
	}
}

// WithRecorder sets the session history sink.
func WithRecorder(r Recorder) Option {
	return func(t *Timer) {
		t.recorder = r
	}
}

// WithNotifier sets the completion notification scheduler.
func WithNotifier(n NotificationScheduler) Option {
	return func(t *Timer) {
		t.notifier = n
	}
}

// WithLockScreen sets the lock-screen boundary used on background
// transitions.
func WithLockScreen(l LockScreen) Option {
	return func(t *Timer) {
		t.lock = l
	}
}

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(t *Timer) {
		t.now = now
	}
}

// WithDisplayFunc subscribes a render callback to time and status updates.
func WithDisplayFunc(fn func(DisplayState)) Option {
	return func(t *Timer) {
		t.displayFn = fn
	}
}

// WithCompleteFunc subscribes a callback to completion results.
func WithCompleteFunc(fn func(reward.Result)) Option {
	return func(t *Timer) {
		t.completeFn = fn
	}
}

// New creates a timer engine backed by the given record store. Collaborators
// default to no-ops so the engine works without any of them configured.
func New(db RecordStore, opts ...Option) *Timer {
	t := &Timer{
		blocker:  noopBlocker{},
		ledger:   noopLedger{},
		recorder: noopRecorder{},
		notifier: noopNotifier{},
		lock:     noopLockScreen{},
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(t)
	}

	t.state = NewStateStore(db, t.now)
	t.arbiter = NewArbiter(t.finish)
	t.scheduler = NewScheduler(SchedulerCallbacks{
		OnTick:      t.handleTick,
		OnPersist:   t.handlePersist,
		OnThreshold: t.triggerCompletion,
	}, t.now)
	t.reconciler = NewReconciler(t.state, t.lock, t.triggerCompletion, t.now)

	return t
}

// Reconciler exposes the visibility reconciler so the platform layer can
// feed it foreground/background transitions.
func (t *Timer) Reconciler() *Reconciler {
	return t.reconciler
}

// Snapshot returns the current displayable state.
func (t *Timer) Snapshot() DisplayState {
	rec := t.state.Snapshot()

	return t.displayState(rec, currentValue(&rec, t.now()))
}

// Load rehydrates the persisted session record. A record that was running
// when the process died resumes ticking with a recomputed value; one that is
// already overdue goes straight through the normal completion path.
func (t *Timer) Load() DisplayState {
	rec := t.state.Load()

	if rec.Status() == models.Running {
		t.setStartedAt(time.UnixMilli(*rec.StartTimestampMs))

		value, done := computeValue(
			rec.Mode,
			rec.DurationSeconds,
			timeutil.ElapsedSeconds(*rec.StartTimestampMs, t.now()),
		)

		if done {
			t.triggerCompletion()
		} else {
			t.resume(rec, value)
		}

		rec = t.state.Snapshot()
	}

	return t.displayState(rec, currentValue(&rec, t.now()))
}

// Start launches a new session or resumes a paused one.
func (t *Timer) Start() error {
	rec := t.state.Snapshot()

	if rec.Status() == models.Running {
		return errAlreadyRunning
	}

	if rec.Status() == models.Idle {
		t.setStartedAt(t.now())
	}

	// Anchor the start timestamp so that elapsed time computed from the
	// wall clock accounts for any time already worked before a pause.
	startMs := t.now().UnixMilli() - int64(workedSeconds(&rec))*1000

	rec = t.state.Save(func(r *models.TimerRecord) {
		r.StartTimestampMs = &startMs
	})

	t.resume(rec, currentValue(&rec, t.now()))

	if rec.Kind == models.Work && t.blocker.IsConfigured() {
		go func() {
			_, err := t.blocker.Start(context.Background())
			if err != nil {
				slog.Error("starting distraction blocker failed", "error", err)
			}
		}()
	}

	t.emit()

	return nil
}

// StartWithIntent records the user's intent metadata and starts the session.
func (t *Timer) StartWithIntent(category, taskLabel string) error {
	rec := t.state.Snapshot()

	if rec.Status() == models.Running {
		return errAlreadyRunning
	}

	t.state.Save(func(r *models.TimerRecord) {
		r.Category = category
		r.TaskLabel = taskLabel
	})

	return t.Start()
}

// resume schedules ticking and the completion notification for a running
// record.
func (t *Timer) resume(rec models.TimerRecord, value int) {
	remaining := remainingSeconds(&rec, value)
	if remaining > 0 {
		t.notifier.Schedule(time.Duration(remaining) * time.Second)
	}

	t.scheduler.Start(*rec.StartTimestampMs, rec.DurationSeconds, rec.Mode)
}

// Pause suspends a running session. The scheduler is cancelled synchronously
// so no further ticks can race the pause.
func (t *Timer) Pause() error {
	rec := t.state.Snapshot()

	if rec.Status() != models.Running {
		return errNotRunning
	}

	t.scheduler.Stop()
	t.notifier.Cancel()

	value, _ := computeValue(
		rec.Mode,
		rec.DurationSeconds,
		timeutil.ElapsedSeconds(*rec.StartTimestampMs, t.now()),
	)

	t.state.Save(func(r *models.TimerRecord) {
		r.StartTimestampMs = nil
		applyValue(r, value)
	})

	t.emit()

	return nil
}

// Stop abandons the current session. The UI-visible reset happens
// immediately; collaborator cleanup is fire-and-forget.
func (t *Timer) Stop() error {
	return t.teardown(models.OutcomeAbandoned)
}

// Skip ends the current session early. A running work session that has
// already banked enough minutes to qualify for rewards goes through the
// completion arbiter instead, so its rewards are not lost; it still does not
// count towards the completed-session counter.
func (t *Timer) Skip() error {
	rec := t.state.Snapshot()

	if rec.Status() == models.Running &&
		reward.Eligible(rec.Kind, completedSeconds(&rec, t.now())/60) {
		t.arbiter.Complete(rec)

		return nil
	}

	return t.teardown(models.OutcomeSkipped)
}

// teardown cancels everything, records the outcome, and resets to idle.
func (t *Timer) teardown(outcome models.SessionOutcome) error {
	rec := t.state.Snapshot()

	if rec.Status() == models.Idle {
		return nil
	}

	t.scheduler.Stop()
	t.notifier.Cancel()

	if rec.Kind == models.Work && t.blocker.IsConfigured() {
		go func() {
			_, err := t.blocker.Stop(context.Background())
			if err != nil {
				slog.Error("stopping distraction blocker failed", "error", err)
			}
		}()
	}

	worked := completedSeconds(&rec, t.now())

	if rec.Kind == models.Work && worked > 0 {
		report := &models.SessionRecord{
			StartTime:              t.sessionStart(&rec),
			EndTime:                t.now(),
			Kind:                   rec.Kind,
			PlannedDurationSeconds: rec.DurationSeconds,
			ActualDurationSeconds:  worked,
			Outcome:                outcome,
			Category:               rec.Category,
			TaskLabel:              rec.TaskLabel,
		}

		err := t.recorder.RecordSession(context.Background(), report)
		if err != nil {
			slog.Error("recording session failed", "error", err)
		}
	}

	t.state.Reset(false)
	t.emit()

	return nil
}

// SelectPreset switches the timer to a named preset. Only legal while idle.
func (t *Timer) SelectPreset(p config.Preset) error {
	rec := t.state.Snapshot()

	if rec.Status() != models.Idle {
		return errNotIdle
	}

	t.state.Save(func(r *models.TimerRecord) {
		r.Mode = p.Mode
		r.Kind = p.Kind

		if p.Mode == models.Countup {
			r.DurationSeconds = models.CountupCapSeconds
		} else {
			r.DurationSeconds = int(p.Duration.Seconds())
		}

		r.TimeLeftSeconds = r.DurationSeconds
		r.ElapsedSeconds = 0
	})

	t.emit()

	return nil
}

// ToggleSound flips the sound preference and reports the new value. The
// preference is independent of the session lifecycle.
func (t *Timer) ToggleSound() bool {
	rec := t.state.Save(func(r *models.TimerRecord) {
		r.SoundEnabled = !r.SoundEnabled
	})

	return rec.SoundEnabled
}

// triggerCompletion requests completion through the arbiter. Stale triggers
// that arrive after the session already resolved are filtered here and again
// inside the completion sequence.
func (t *Timer) triggerCompletion() {
	rec := t.state.Snapshot()

	if rec.Status() != models.Running {
		return
	}

	t.arbiter.Complete(rec)
}

// finish is the single winning completion sequence, invoked via the
// arbiter. A failure in any one collaborator is logged and degrades the
// result instead of aborting: the user always sees the session resolve.
func (t *Timer) finish(snap models.TimerRecord) reward.Result {
	ctx := context.Background()

	cur := t.state.Snapshot()
	if cur.Status() != models.Running {
		return reward.Result{Quality: reward.QualityUndefined}
	}

	t.scheduler.Stop()
	t.notifier.Cancel()

	worked := completedSeconds(&snap, t.now())
	_, natural := computeValue(
		snap.Mode,
		snap.DurationSeconds,
		timeutil.ElapsedSeconds(*snap.StartTimestampMs, t.now()),
	)

	attempts := 0
	tracked := false

	if snap.Kind == models.Work && t.blocker.IsConfigured() {
		n, err := t.blocker.Stop(ctx)
		if err != nil {
			slog.Error("stopping distraction blocker failed", "error", err)
		} else {
			attempts = n
			tracked = true
		}
	}

	minutes := worked / 60

	var baseXP int

	if reward.Eligible(snap.Kind, minutes) {
		xp, err := t.ledger.AwardBaseXP(ctx, minutes)
		if err != nil {
			slog.Error("awarding base XP failed", "error", err)
		} else {
			baseXP = xp
		}
	}

	res := reward.Evaluate(reward.Params{
		Kind:                snap.Kind,
		CompletedMinutes:    minutes,
		BaseXP:              baseXP,
		DistractionAttempts: attempts,
		TrackingConfigured:  tracked,
	})

	if bonus := res.XPEarned - baseXP; bonus > 0 {
		err := t.ledger.AddBonusXP(ctx, bonus)
		if err != nil {
			slog.Error("awarding bonus XP failed", "error", err)
		}
	}

	if res.CoinsEarned > 0 {
		err := t.ledger.AddBonusCoins(ctx, res.CoinsEarned)
		if err != nil {
			slog.Error("awarding bonus coins failed", "error", err)
		}
	}

	outcome := models.OutcomeSkipped
	if natural {
		outcome = models.OutcomeCompleted
	}

	report := &models.SessionRecord{
		StartTime:              t.sessionStart(&snap),
		EndTime:                t.now(),
		Kind:                   snap.Kind,
		PlannedDurationSeconds: snap.DurationSeconds,
		ActualDurationSeconds:  worked,
		Outcome:                outcome,
		XPEarned:               res.XPEarned,
		Category:               snap.Category,
		TaskLabel:              snap.TaskLabel,
	}

	if res.Quality != reward.QualityUndefined {
		report.FocusQuality = string(res.Quality)
	}

	err := t.recorder.RecordSession(ctx, report)
	if err != nil {
		slog.Error("recording session failed", "error", err)
	}

	// the counter only advances on natural completion
	t.state.Reset(natural)

	t.emit()

	if t.completeFn != nil {
		t.completeFn(res)
	}

	return res
}

func (t *Timer) handleTick(value int) {
	if t.displayFn == nil {
		return
	}

	rec := t.state.Snapshot()

	t.displayFn(t.displayState(rec, value))
}

func (t *Timer) handlePersist(value int) {
	t.state.Save(func(r *models.TimerRecord) {
		if r.StartTimestampMs == nil {
			return
		}

		applyValue(r, value)
	})
}

func (t *Timer) emit() {
	if t.displayFn == nil {
		return
	}

	rec := t.state.Snapshot()

	t.displayFn(t.displayState(rec, currentValue(&rec, t.now())))
}

func (t *Timer) displayState(
	rec models.TimerRecord,
	value int,
) DisplayState {
	return DisplayState{
		Value:                 value,
		Mode:                  rec.Mode,
		Kind:                  rec.Kind,
		Status:                rec.Status(),
		Category:              rec.Category,
		TaskLabel:             rec.TaskLabel,
		CompletedSessionCount: rec.CompletedSessionCount,
		SoundEnabled:          rec.SoundEnabled,
	}
}

func (t *Timer) setStartedAt(at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.startedAt = at
}

// sessionStart returns the wall time the session began, falling back to the
// start timestamp when the in-memory marker is missing.
func (t *Timer) sessionStart(rec *models.TimerRecord) time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.startedAt.IsZero() {
		return t.startedAt
	}

	if rec.StartTimestampMs != nil {
		return time.UnixMilli(*rec.StartTimestampMs)
	}

	return t.now()
}

// currentValue computes the displayable value for a record, live from the
// clock when running, from the retained fields otherwise.
func currentValue(rec *models.TimerRecord, now time.Time) int {
	if rec.StartTimestampMs != nil {
		value, _ := computeValue(
			rec.Mode,
			rec.DurationSeconds,
			timeutil.ElapsedSeconds(*rec.StartTimestampMs, now),
		)

		return value
	}

	if rec.Mode == models.Countup {
		return rec.ElapsedSeconds
	}

	return rec.TimeLeftSeconds
}

// workedSeconds is the time already worked according to the retained fields,
// used to anchor the start timestamp on resume.
func workedSeconds(rec *models.TimerRecord) int {
	if rec.Mode == models.Countup {
		return rec.ElapsedSeconds
	}

	return rec.DurationSeconds - rec.TimeLeftSeconds
}

// completedSeconds is the total time worked in the session, live from the
// clock when running, capped at the session duration.
func completedSeconds(rec *models.TimerRecord, now time.Time) int {
	if rec.StartTimestampMs == nil {
		return workedSeconds(rec)
	}

	elapsed := timeutil.ElapsedSeconds(*rec.StartTimestampMs, now)

	return max(0, min(elapsed, rec.DurationSeconds))
}

// remainingSeconds is the time until the session's natural endpoint.
func remainingSeconds(rec *models.TimerRecord, value int) int {
	if rec.Mode == models.Countup {
		return rec.DurationSeconds - value
	}

	return value
}
