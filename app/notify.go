package app

import (
	"sync"
	"time"

	"github.com/gen2brain/beeep"
	"github.com/pterm/pterm"
)

// desktopNotifier schedules the "session complete" desktop notification for
// a session's natural endpoint.
type desktopNotifier struct {
	mu      sync.Mutex
	pending *time.Timer
	enabled bool
}

func newDesktopNotifier(enabled bool) *desktopNotifier {
	return &desktopNotifier{enabled: enabled}
}

func (n *desktopNotifier) Schedule(d time.Duration) {
	if !n.enabled {
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.pending != nil {
		n.pending.Stop()
	}

	n.pending = time.AfterFunc(d, func() {
		err := beeep.Notify(
			"Session complete",
			"Your focus session has ended",
			"",
		)
		if err != nil {
			pterm.Error.Printfln("unable to display notification: %v", err)
		}
	})
}

func (n *desktopNotifier) Cancel() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.pending != nil {
		n.pending.Stop()
		n.pending = nil
	}
}
