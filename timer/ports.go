package timer

import (
	"context"
	"time"

	"github.com/kronholm/flowtime/internal/models"
)

// RecordStore is the slice of the data store the state store depends on. The
// engine treats persistence as an opaque key-value store.
type RecordStore interface {
	GetTimerRecord() ([]byte, error)
	SaveTimerRecord(b []byte) error
}

// DistractionBlocker is the external service that blocks distracting
// applications for the duration of a work session. The engine only cares
// about its attempt counter.
type DistractionBlocker interface {
	// Start enables blocking and reports how many items were blocked.
	Start(ctx context.Context) (itemsBlocked int, err error)
	// Stop disables blocking and reports how many times the user attempted
	// to reach a blocked item while the session ran.
	Stop(ctx context.Context) (distractionAttempts int, err error)
	IsConfigured() bool
}

// RewardLedger is the external economy that experience and coins are
// awarded into.
type RewardLedger interface {
	AwardBaseXP(ctx context.Context, completedMinutes int) (xpGained int, err error)
	AddBonusXP(ctx context.Context, amount int) error
	AddBonusCoins(ctx context.Context, amount int) error
}

// Recorder is the sink that resolved sessions are reported to.
type Recorder interface {
	RecordSession(ctx context.Context, rec *models.SessionRecord) error
}

// NotificationScheduler schedules the "session complete" notification for a
// session's natural endpoint.
type NotificationScheduler interface {
	Schedule(d time.Duration)
	Cancel()
}

// LockScreen is the UI boundary notified when a running work session moves
// to the background.
type LockScreen interface {
	Show()
	Hide()
}

type noopBlocker struct{}

func (noopBlocker) Start(context.Context) (int, error) { return 0, nil }
func (noopBlocker) Stop(context.Context) (int, error)  { return 0, nil }
func (noopBlocker) IsConfigured() bool                 { return false }

type noopLedger struct{}

func (noopLedger) AwardBaseXP(context.Context, int) (int, error) { return 0, nil }
func (noopLedger) AddBonusXP(context.Context, int) error         { return nil }
func (noopLedger) AddBonusCoins(context.Context, int) error      { return nil }

type noopRecorder struct{}

func (noopRecorder) RecordSession(context.Context, *models.SessionRecord) error {
	return nil
}

type noopNotifier struct{}

func (noopNotifier) Schedule(time.Duration) {}
func (noopNotifier) Cancel()                {}

type noopLockScreen struct{}

func (noopLockScreen) Show() {}
func (noopLockScreen) Hide() {}
