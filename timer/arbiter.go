package timer

import (
	"sync"

	"github.com/kronholm/flowtime/internal/models"
	"github.com/kronholm/flowtime/reward"
)

// completionFunc performs the full completion sequence for a session
// snapshot. It must degrade internally rather than fail: collaborator errors
// never abort a completion.
type completionFunc func(snapshot models.TimerRecord) reward.Result

// attempt is one in-flight completion. Its identity doubles as the attempt
// token: callers that find an attempt already installed lost the race.
type attempt struct {
	done   chan struct{}
	result reward.Result
}

// Arbiter guarantees that the completion sequence runs at most once even
// when the scheduler tick, a foreground reconciliation, and a manual skip
// all request it near-simultaneously. Losers wait for the winner and observe
// its result without re-running any side effects.
type Arbiter struct {
	mu       sync.Mutex
	inflight *attempt
	run      completionFunc
}

// NewArbiter creates an arbiter around the given completion sequence.
func NewArbiter(run completionFunc) *Arbiter {
	return &Arbiter{run: run}
}

// Complete runs the completion sequence for the snapshot, or waits for the
// attempt that beat it there. The second return value reports whether this
// caller performed the side effects.
func (a *Arbiter) Complete(snapshot models.TimerRecord) (reward.Result, bool) {
	a.mu.Lock()

	if cur := a.inflight; cur != nil {
		a.mu.Unlock()

		<-cur.done

		return cur.result, false
	}

	att := &attempt{done: make(chan struct{})}
	a.inflight = att
	a.mu.Unlock()

	// release the in-flight slot even if the sequence panics, so a failed
	// attempt never permanently wedges the engine
	defer func() {
		a.mu.Lock()
		a.inflight = nil
		a.mu.Unlock()

		close(att.done)
	}()

	att.result = a.run(snapshot)

	return att.result, true
}
