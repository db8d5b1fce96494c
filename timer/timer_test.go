package timer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/kronholm/flowtime/config"
	"github.com/kronholm/flowtime/internal/models"
	"github.com/kronholm/flowtime/reward"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.t = c.t.Add(d)
}

type blockerMock struct {
	mu         sync.Mutex
	configured bool
	attempts   int
	stopErr    error
	startCalls int
	stopCalls  int
}

func (b *blockerMock) Start(_ context.Context) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.startCalls++

	return 0, nil
}

func (b *blockerMock) Stop(_ context.Context) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.stopCalls++

	if b.stopErr != nil {
		return 0, b.stopErr
	}

	return b.attempts, nil
}

func (b *blockerMock) IsConfigured() bool {
	return b.configured
}

type ledgerMock struct {
	mu        sync.Mutex
	baseCalls []int
	bonusXP   int
	coins     int
}

func (l *ledgerMock) AwardBaseXP(_ context.Context, minutes int) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.baseCalls = append(l.baseCalls, minutes)

	return minutes * 10, nil
}

func (l *ledgerMock) AddBonusXP(_ context.Context, amount int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.bonusXP += amount

	return nil
}

func (l *ledgerMock) AddBonusCoins(_ context.Context, amount int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.coins += amount

	return nil
}

type recorderMock struct {
	mu      sync.Mutex
	records []models.SessionRecord
}

func (r *recorderMock) RecordSession(
	_ context.Context,
	rec *models.SessionRecord,
) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records = append(r.records, *rec)

	return nil
}

func (r *recorderMock) all() []models.SessionRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]models.SessionRecord, len(r.records))
	copy(out, r.records)

	return out
}

type notifierMock struct {
	mu        sync.Mutex
	scheduled []time.Duration
	cancels   int
}

func (n *notifierMock) Schedule(d time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.scheduled = append(n.scheduled, d)
}

func (n *notifierMock) Cancel() {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.cancels++
}

type lockMock struct {
	mu    sync.Mutex
	shows int
	hides int
}

func (l *lockMock) Show() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.shows++
}

func (l *lockMock) Hide() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.hides++
}

func workPreset(d time.Duration) config.Preset {
	return config.Preset{
		Name:     "deep-work",
		Kind:     models.Work,
		Mode:     models.Countdown,
		Duration: d,
	}
}

func TestStartPauseResume(t *testing.T) {
	clock := &fakeClock{t: testNow}
	notifier := &notifierMock{}

	eng := New(
		&storeMock{},
		WithClock(clock.Now),
		WithNotifier(notifier),
	)
	eng.Load()

	err := eng.Start()
	if err != nil {
		t.Fatalf("starting failed: %v", err)
	}

	if err = eng.Start(); err == nil {
		t.Error("expected starting a running session to fail")
	}

	clock.Advance(time.Minute)

	err = eng.Pause()
	if err != nil {
		t.Fatalf("pausing failed: %v", err)
	}

	snap := eng.Snapshot()

	if snap.Status != models.Paused {
		t.Fatalf("expected status paused, but got: %s", snap.Status)
	}

	if snap.Value != 1440 {
		t.Errorf("expected 1440 seconds left after pause, but got: %d", snap.Value)
	}

	// time passing while paused must not count against the session
	clock.Advance(10 * time.Minute)

	err = eng.Start()
	if err != nil {
		t.Fatalf("resuming failed: %v", err)
	}

	clock.Advance(10 * time.Second)

	if got := eng.Snapshot().Value; got != 1430 {
		t.Errorf("expected 1430 seconds left after resume, but got: %d", got)
	}

	if len(notifier.scheduled) != 2 {
		t.Errorf(
			"expected a notification scheduled on each start, but got: %d",
			len(notifier.scheduled),
		)
	}

	if err = eng.Pause(); err != nil {
		t.Fatalf("pausing again failed: %v", err)
	}

	if err = eng.Pause(); err == nil {
		t.Error("expected pausing a paused session to fail")
	}
}

func TestNaturalCompletionSequence(t *testing.T) {
	clock := &fakeClock{t: testNow}
	blocker := &blockerMock{configured: true}
	ledger := &ledgerMock{}
	recorder := &recorderMock{}
	notifier := &notifierMock{}

	var completed []reward.Result

	eng := New(
		&storeMock{},
		WithClock(clock.Now),
		WithBlocker(blocker),
		WithLedger(ledger),
		WithRecorder(recorder),
		WithNotifier(notifier),
		WithCompleteFunc(func(res reward.Result) {
			completed = append(completed, res)
		}),
	)
	eng.Load()

	err := eng.StartWithIntent("writing", "essay draft")
	if err != nil {
		t.Fatalf("starting failed: %v", err)
	}

	clock.Advance(25 * time.Minute)

	eng.Reconciler().Foreground()

	records := recorder.all()
	if len(records) != 1 {
		t.Fatalf("expected one recorded session, but got: %d", len(records))
	}

	expected := models.SessionRecord{
		StartTime:              testNow,
		EndTime:                testNow.Add(25 * time.Minute),
		Kind:                   models.Work,
		PlannedDurationSeconds: 1500,
		ActualDurationSeconds:  1500,
		Outcome:                models.OutcomeCompleted,
		XPEarned:               312,
		FocusQuality:           string(reward.QualityPerfect),
		Category:               "writing",
		TaskLabel:              "essay draft",
	}

	if diff := cmp.Diff(expected, records[0]); diff != "" {
		t.Errorf("unexpected session record (-want +got):\n%s", diff)
	}

	// 25 minutes at the base rate, a perfect multiplier on top, and the
	// perfect-session coin bonus
	if len(ledger.baseCalls) != 1 || ledger.baseCalls[0] != 25 {
		t.Errorf("expected base XP for 25 minutes, but got: %v", ledger.baseCalls)
	}

	if ledger.bonusXP != 62 {
		t.Errorf("expected 62 bonus XP, but got: %d", ledger.bonusXP)
	}

	if ledger.coins != 50 {
		t.Errorf("expected 50 coins, but got: %d", ledger.coins)
	}

	if blocker.stopCalls != 1 {
		t.Errorf("expected the blocker stopped once, but got: %d", blocker.stopCalls)
	}

	if notifier.cancels == 0 {
		t.Error("expected the pending notification to be cancelled")
	}

	if len(completed) != 1 || completed[0].XPEarned != 312 {
		t.Errorf("expected one completion callback with 312 XP, but got: %v", completed)
	}

	snap := eng.Snapshot()

	if snap.Status != models.Idle {
		t.Errorf("expected status idle after completion, but got: %s", snap.Status)
	}

	if snap.CompletedSessionCount != 1 {
		t.Errorf(
			"expected the session counter at 1, but got: %d",
			snap.CompletedSessionCount,
		)
	}

	if snap.Value != 1500 {
		t.Errorf("expected the value reset to 1500, but got: %d", snap.Value)
	}
}

func TestCompletionRunsOnceUnderContention(t *testing.T) {
	clock := &fakeClock{t: testNow}
	ledger := &ledgerMock{}
	recorder := &recorderMock{}

	eng := New(
		&storeMock{},
		WithClock(clock.Now),
		WithLedger(ledger),
		WithRecorder(recorder),
	)
	eng.Load()

	err := eng.Start()
	if err != nil {
		t.Fatalf("starting failed: %v", err)
	}

	clock.Advance(26 * time.Minute)

	// a foreground reconciliation, a scheduler threshold, and a manual skip
	// all notice the overdue session at the same time
	var wg sync.WaitGroup

	for i := range 21 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			switch i % 3 {
			case 0:
				eng.Reconciler().Foreground()
			case 1:
				eng.triggerCompletion()
			default:
				_ = eng.Skip()
			}
		}()
	}

	wg.Wait()

	if got := len(recorder.all()); got != 1 {
		t.Fatalf("expected exactly one recorded session, but got: %d", got)
	}

	if got := len(ledger.baseCalls); got != 1 {
		t.Errorf("expected base XP awarded exactly once, but got: %d", got)
	}

	if got := eng.Snapshot().CompletedSessionCount; got != 1 {
		t.Errorf("expected the session counter at 1, but got: %d", got)
	}
}

func TestSkipBeforeRewardThreshold(t *testing.T) {
	clock := &fakeClock{t: testNow}
	ledger := &ledgerMock{}
	recorder := &recorderMock{}

	eng := New(
		&storeMock{},
		WithClock(clock.Now),
		WithLedger(ledger),
		WithRecorder(recorder),
	)
	eng.Load()

	err := eng.Start()
	if err != nil {
		t.Fatalf("starting failed: %v", err)
	}

	clock.Advance(10 * time.Minute)

	err = eng.Skip()
	if err != nil {
		t.Fatalf("skipping failed: %v", err)
	}

	records := recorder.all()
	if len(records) != 1 {
		t.Fatalf("expected one recorded session, but got: %d", len(records))
	}

	if records[0].Outcome != models.OutcomeSkipped {
		t.Errorf("expected outcome skipped, but got: %s", records[0].Outcome)
	}

	if records[0].ActualDurationSeconds != 600 {
		t.Errorf(
			"expected 600 worked seconds, but got: %d",
			records[0].ActualDurationSeconds,
		)
	}

	if records[0].XPEarned != 0 {
		t.Errorf("expected no XP below the threshold, but got: %d", records[0].XPEarned)
	}

	if len(ledger.baseCalls) != 0 {
		t.Errorf("expected the ledger untouched, but got: %v", ledger.baseCalls)
	}

	snap := eng.Snapshot()

	if snap.Status != models.Idle {
		t.Errorf("expected status idle after skip, but got: %s", snap.Status)
	}

	if snap.CompletedSessionCount != 0 {
		t.Errorf(
			"expected the session counter untouched, but got: %d",
			snap.CompletedSessionCount,
		)
	}
}

func TestSkipAfterRewardThreshold(t *testing.T) {
	clock := &fakeClock{t: testNow}
	blocker := &blockerMock{configured: true, attempts: 1}
	ledger := &ledgerMock{}
	recorder := &recorderMock{}

	eng := New(
		&storeMock{},
		WithClock(clock.Now),
		WithBlocker(blocker),
		WithLedger(ledger),
		WithRecorder(recorder),
	)
	eng.Load()

	err := eng.SelectPreset(workPreset(50 * time.Minute))
	if err != nil {
		t.Fatalf("selecting the preset failed: %v", err)
	}

	err = eng.Start()
	if err != nil {
		t.Fatalf("starting failed: %v", err)
	}

	clock.Advance(30 * time.Minute)

	err = eng.Skip()
	if err != nil {
		t.Fatalf("skipping failed: %v", err)
	}

	records := recorder.all()
	if len(records) != 1 {
		t.Fatalf("expected one recorded session, but got: %d", len(records))
	}

	// thirty banked minutes with one distraction attempt: base 300 XP with
	// the good-session multiplier and coin bonus
	if records[0].Outcome != models.OutcomeSkipped {
		t.Errorf("expected outcome skipped, but got: %s", records[0].Outcome)
	}

	if records[0].XPEarned != 330 {
		t.Errorf("expected 330 XP, but got: %d", records[0].XPEarned)
	}

	if records[0].FocusQuality != string(reward.QualityGood) {
		t.Errorf("expected good focus quality, but got: %q", records[0].FocusQuality)
	}

	if ledger.coins != 25 {
		t.Errorf("expected 25 coins, but got: %d", ledger.coins)
	}

	// an early end never advances the completed-session counter, even when
	// it pays out
	if got := eng.Snapshot().CompletedSessionCount; got != 0 {
		t.Errorf("expected the session counter untouched, but got: %d", got)
	}
}

func TestStopRecordsAbandonedSession(t *testing.T) {
	clock := &fakeClock{t: testNow}
	recorder := &recorderMock{}

	eng := New(
		&storeMock{},
		WithClock(clock.Now),
		WithRecorder(recorder),
	)
	eng.Load()

	err := eng.Start()
	if err != nil {
		t.Fatalf("starting failed: %v", err)
	}

	clock.Advance(5 * time.Minute)

	err = eng.Stop()
	if err != nil {
		t.Fatalf("stopping failed: %v", err)
	}

	records := recorder.all()
	if len(records) != 1 {
		t.Fatalf("expected one recorded session, but got: %d", len(records))
	}

	if records[0].Outcome != models.OutcomeAbandoned {
		t.Errorf("expected outcome abandoned, but got: %s", records[0].Outcome)
	}

	if records[0].ActualDurationSeconds != 300 {
		t.Errorf(
			"expected 300 worked seconds, but got: %d",
			records[0].ActualDurationSeconds,
		)
	}

	snap := eng.Snapshot()

	if snap.Status != models.Idle {
		t.Errorf("expected status idle after stop, but got: %s", snap.Status)
	}

	if snap.Value != 1500 {
		t.Errorf("expected the value reset to 1500, but got: %d", snap.Value)
	}
}

func TestStopWhileIdleIsANoop(t *testing.T) {
	recorder := &recorderMock{}

	eng := New(
		&storeMock{},
		WithClock(fixedClock(testNow)),
		WithRecorder(recorder),
	)
	eng.Load()

	err := eng.Stop()
	if err != nil {
		t.Fatalf("stopping an idle timer failed: %v", err)
	}

	if got := len(recorder.all()); got != 0 {
		t.Errorf("expected no recorded sessions, but got: %d", got)
	}
}

func TestBlockerFailureDegradesQuality(t *testing.T) {
	clock := &fakeClock{t: testNow}
	blocker := &blockerMock{
		configured: true,
		stopErr:    context.DeadlineExceeded,
	}
	ledger := &ledgerMock{}
	recorder := &recorderMock{}

	eng := New(
		&storeMock{},
		WithClock(clock.Now),
		WithBlocker(blocker),
		WithLedger(ledger),
		WithRecorder(recorder),
	)
	eng.Load()

	err := eng.Start()
	if err != nil {
		t.Fatalf("starting failed: %v", err)
	}

	clock.Advance(25 * time.Minute)

	eng.Reconciler().Foreground()

	records := recorder.all()
	if len(records) != 1 {
		t.Fatalf("expected one recorded session, but got: %d", len(records))
	}

	// without an attempt count the quality is unknowable: base XP only, no
	// multiplier, no coins, and no quality claim on the record
	if records[0].XPEarned != 250 {
		t.Errorf("expected base XP only, but got: %d", records[0].XPEarned)
	}

	if records[0].FocusQuality != "" {
		t.Errorf("expected no focus quality, but got: %q", records[0].FocusQuality)
	}

	if ledger.bonusXP != 0 || ledger.coins != 0 {
		t.Errorf(
			"expected no bonuses, but got: %d XP and %d coins",
			ledger.bonusXP,
			ledger.coins,
		)
	}

	if records[0].Outcome != models.OutcomeCompleted {
		t.Errorf("expected outcome completed, but got: %s", records[0].Outcome)
	}
}

func TestSelectPresetOnlyWhileIdle(t *testing.T) {
	clock := &fakeClock{t: testNow}

	eng := New(&storeMock{}, WithClock(clock.Now))
	eng.Load()

	err := eng.Start()
	if err != nil {
		t.Fatalf("starting failed: %v", err)
	}

	if err = eng.SelectPreset(workPreset(50 * time.Minute)); err == nil {
		t.Error("expected preset selection to fail while running")
	}

	clock.Advance(time.Minute)

	err = eng.Pause()
	if err != nil {
		t.Fatalf("pausing failed: %v", err)
	}

	if err = eng.SelectPreset(workPreset(50 * time.Minute)); err == nil {
		t.Error("expected preset selection to fail while paused")
	}

	err = eng.Stop()
	if err != nil {
		t.Fatalf("stopping failed: %v", err)
	}

	err = eng.SelectPreset(workPreset(50 * time.Minute))
	if err != nil {
		t.Fatalf("selecting a preset while idle failed: %v", err)
	}

	if got := eng.Snapshot().Value; got != 3000 {
		t.Errorf("expected the new duration applied, but got: %d", got)
	}
}

func TestCountupSession(t *testing.T) {
	clock := &fakeClock{t: testNow}
	ledger := &ledgerMock{}
	recorder := &recorderMock{}

	eng := New(
		&storeMock{},
		WithClock(clock.Now),
		WithLedger(ledger),
		WithRecorder(recorder),
	)
	eng.Load()

	err := eng.SelectPreset(config.Preset{
		Name: "flow",
		Kind: models.Work,
		Mode: models.Countup,
	})
	if err != nil {
		t.Fatalf("selecting the preset failed: %v", err)
	}

	err = eng.Start()
	if err != nil {
		t.Fatalf("starting failed: %v", err)
	}

	clock.Advance(2 * time.Minute)

	if got := eng.Snapshot().Value; got != 120 {
		t.Errorf("expected 120 elapsed seconds, but got: %d", got)
	}

	err = eng.Pause()
	if err != nil {
		t.Fatalf("pausing failed: %v", err)
	}

	clock.Advance(time.Hour)

	err = eng.Start()
	if err != nil {
		t.Fatalf("resuming failed: %v", err)
	}

	clock.Advance(time.Minute)

	if got := eng.Snapshot().Value; got != 180 {
		t.Errorf("expected 180 elapsed seconds after resume, but got: %d", got)
	}

	// bank enough minutes for a reward, then end the open-ended session
	clock.Advance(27 * time.Minute)

	err = eng.Skip()
	if err != nil {
		t.Fatalf("skipping failed: %v", err)
	}

	records := recorder.all()
	if len(records) != 1 {
		t.Fatalf("expected one recorded session, but got: %d", len(records))
	}

	if records[0].Outcome != models.OutcomeSkipped {
		t.Errorf("expected outcome skipped, but got: %s", records[0].Outcome)
	}

	if records[0].ActualDurationSeconds != 1800 {
		t.Errorf(
			"expected 1800 worked seconds, but got: %d",
			records[0].ActualDurationSeconds,
		)
	}

	if len(ledger.baseCalls) != 1 || ledger.baseCalls[0] != 30 {
		t.Errorf("expected base XP for 30 minutes, but got: %v", ledger.baseCalls)
	}
}

func TestBackgroundShowsLockScreenForRunningWork(t *testing.T) {
	clock := &fakeClock{t: testNow}
	lock := &lockMock{}

	eng := New(
		&storeMock{},
		WithClock(clock.Now),
		WithLockScreen(lock),
	)
	eng.Load()

	eng.Reconciler().Background()

	if lock.shows != 0 {
		t.Error("expected no lock screen while idle")
	}

	err := eng.Start()
	if err != nil {
		t.Fatalf("starting failed: %v", err)
	}

	eng.Reconciler().Background()

	if lock.shows != 1 {
		t.Errorf("expected the lock screen shown once, but got: %d", lock.shows)
	}

	clock.Advance(time.Minute)

	eng.Reconciler().Foreground()

	if lock.hides != 1 {
		t.Errorf("expected the lock screen hidden once, but got: %d", lock.hides)
	}

	if got := eng.Snapshot().Value; got != 1440 {
		t.Errorf("expected 1440 seconds left after reconciling, but got: %d", got)
	}

	eng.scheduler.Stop()
}

func TestLoadResolvesOverdueSession(t *testing.T) {
	clock := &fakeClock{t: testNow}
	recorder := &recorderMock{}

	startMs := testNow.Add(-2 * time.Hour).UnixMilli()

	eng := New(
		&storeMock{data: runningRecord(startMs, 1500)},
		WithClock(clock.Now),
		WithRecorder(recorder),
	)

	state := eng.Load()

	if state.Status != models.Idle {
		t.Errorf("expected status idle after loading, but got: %s", state.Status)
	}

	records := recorder.all()
	if len(records) != 1 {
		t.Fatalf("expected one recorded session, but got: %d", len(records))
	}

	if records[0].Outcome != models.OutcomeCompleted {
		t.Errorf("expected outcome completed, but got: %s", records[0].Outcome)
	}

	if records[0].ActualDurationSeconds != 1500 {
		t.Errorf(
			"expected the worked time capped at the duration, but got: %d",
			records[0].ActualDurationSeconds,
		)
	}

	if state.CompletedSessionCount != 1 {
		t.Errorf(
			"expected the session counter at 1, but got: %d",
			state.CompletedSessionCount,
		)
	}
}

func TestLoadResumesRunningSession(t *testing.T) {
	clock := &fakeClock{t: testNow}
	notifier := &notifierMock{}

	startMs := testNow.Add(-time.Minute).UnixMilli()

	eng := New(
		&storeMock{data: runningRecord(startMs, 1500)},
		WithClock(clock.Now),
		WithNotifier(notifier),
	)

	state := eng.Load()

	if state.Status != models.Running {
		t.Fatalf("expected status running after loading, but got: %s", state.Status)
	}

	if state.Value != 1440 {
		t.Errorf("expected 1440 seconds left, but got: %d", state.Value)
	}

	if len(notifier.scheduled) != 1 || notifier.scheduled[0] != 1440*time.Second {
		t.Errorf(
			"expected a notification in 1440 seconds, but got: %v",
			notifier.scheduled,
		)
	}

	eng.scheduler.Stop()
}

func TestToggleSound(t *testing.T) {
	eng := New(&storeMock{}, WithClock(fixedClock(testNow)))
	eng.Load()

	if !eng.Snapshot().SoundEnabled {
		t.Fatal("expected sound enabled by default")
	}

	if eng.ToggleSound() {
		t.Error("expected the first toggle to disable sound")
	}

	if !eng.ToggleSound() {
		t.Error("expected the second toggle to re-enable sound")
	}
}
