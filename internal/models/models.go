// Package models defines the persisted records shared between the timer
// engine and the data store.
package models

import "time"

// TimerMode determines whether a session counts down from a fixed duration
// or counts up towards a cap.
type TimerMode string

const (
	Countdown TimerMode = "countdown"
	Countup   TimerMode = "countup"
)

// SessionKind distinguishes reward-eligible work sessions from breaks.
type SessionKind string

const (
	Work  SessionKind = "work"
	Break SessionKind = "break"
)

// SessionStatus is derived from the timer record, never stored directly.
type SessionStatus string

const (
	Idle    SessionStatus = "idle"
	Running SessionStatus = "running"
	Paused  SessionStatus = "paused"
)

// CountupCapSeconds is the fixed ceiling for countup sessions (6 hours).
const CountupCapSeconds = 21600

// TimerRecord is the canonical session record. It is persisted after every
// mutation and rehydrated on startup.
type TimerRecord struct {
	Mode                  TimerMode   `json:"mode"`
	Kind                  SessionKind `json:"session_kind"`
	DurationSeconds       int         `json:"session_duration_seconds"`
	TimeLeftSeconds       int         `json:"time_left_seconds"`
	ElapsedSeconds        int         `json:"elapsed_seconds"`
	StartTimestampMs      *int64      `json:"start_timestamp_ms"`
	Category              string      `json:"category,omitempty"`
	TaskLabel             string      `json:"task_label,omitempty"`
	CompletedSessionCount int         `json:"completed_session_count"`
	SoundEnabled          bool        `json:"sound_enabled"`
}

// Status derives the session status. A record is running iff it carries a
// start timestamp; otherwise it is paused when partial time has been
// retained, and idle when the full duration remains.
func (r *TimerRecord) Status() SessionStatus {
	if r.StartTimestampMs != nil {
		return Running
	}

	if r.Mode == Countup {
		if r.ElapsedSeconds > 0 {
			return Paused
		}

		return Idle
	}

	if r.TimeLeftSeconds < r.DurationSeconds {
		return Paused
	}

	return Idle
}

// SessionOutcome classifies how a recorded session ended.
type SessionOutcome string

const (
	OutcomeCompleted SessionOutcome = "completed"
	OutcomeSkipped   SessionOutcome = "skipped"
	OutcomeAbandoned SessionOutcome = "abandoned"
)

// SessionRecord is the entry appended to the session history once a session
// resolves.
type SessionRecord struct {
	StartTime              time.Time      `json:"start_time"`
	EndTime                time.Time      `json:"end_time"`
	Kind                   SessionKind    `json:"session_kind"`
	PlannedDurationSeconds int            `json:"planned_duration_seconds"`
	ActualDurationSeconds  int            `json:"actual_duration_seconds"`
	Outcome                SessionOutcome `json:"outcome"`
	XPEarned               int            `json:"xp_earned"`
	FocusQuality           string         `json:"focus_quality,omitempty"`
	Category               string         `json:"category,omitempty"`
	TaskLabel              string         `json:"task_label,omitempty"`
}

// Ledger holds the accumulated reward economy totals.
type Ledger struct {
	XP    int `json:"xp"`
	Coins int `json:"coins"`
}
