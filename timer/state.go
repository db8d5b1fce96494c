package timer

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/kronholm/flowtime/internal/models"
	"github.com/kronholm/flowtime/internal/timeutil"
)

const (
	// DefaultWorkSeconds is the session duration used when no valid record
	// exists (25 minutes).
	DefaultWorkSeconds = 1500

	// rehydrationCeilingSeconds bounds how much elapsed time a rehydrated
	// countdown session is trusted with. A record that has apparently been
	// running for longer is clamped to zero remaining but left running so
	// the normal completion path still fires exactly once.
	rehydrationCeilingSeconds = 8 * 60 * 60
)

// StateStore owns the canonical timer record. Every mutation passes through
// it and is written back to the data store; persistence failures are
// swallowed so the in-memory record stays authoritative for the rest of the
// process lifetime.
type StateStore struct {
	mu     sync.Mutex
	db     RecordStore
	record models.TimerRecord
	now    func() time.Time
}

// NewStateStore creates a state store backed by the given record store. The
// clock defaults to time.Now.
func NewStateStore(db RecordStore, now func() time.Time) *StateStore {
	if now == nil {
		now = time.Now
	}

	return &StateStore{
		db:     db,
		now:    now,
		record: defaultRecord(),
	}
}

func defaultRecord() models.TimerRecord {
	return models.TimerRecord{
		Mode:            models.Countdown,
		Kind:            models.Work,
		DurationSeconds: DefaultWorkSeconds,
		TimeLeftSeconds: DefaultWorkSeconds,
		SoundEnabled:    true,
	}
}

// Load reads the persisted record, validates it field by field, and
// rehydrates running sessions against the current clock. It never fails: any
// parse or shape problem yields safe defaults instead.
func (s *StateStore) Load() models.TimerRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := defaultRecord()

	raw, err := s.db.GetTimerRecord()
	if err != nil {
		slog.Warn("reading timer record failed, using defaults", "error", err)
		s.record = rec

		return rec
	}

	if len(raw) != 0 {
		rec = decodeRecord(raw)
	}

	s.rehydrate(&rec)

	s.record = rec

	return rec
}

// decodeRecord reconstructs a timer record from raw bytes. Each field is
// validated independently so a single corrupt value does not discard the
// rest of the record.
func decodeRecord(raw []byte) models.TimerRecord {
	rec := defaultRecord()

	var fields map[string]json.RawMessage

	err := json.Unmarshal(raw, &fields)
	if err != nil {
		slog.Warn("timer record is malformed, using defaults", "error", err)

		return rec
	}

	if v, ok := stringField(fields, "mode"); ok {
		if m := models.TimerMode(v); m == models.Countdown || m == models.Countup {
			rec.Mode = m
		}
	}

	if v, ok := stringField(fields, "session_kind"); ok {
		if k := models.SessionKind(v); k == models.Work || k == models.Break {
			rec.Kind = k
		}
	}

	maxDuration := models.CountupCapSeconds
	if rec.Mode == models.Countup {
		// the countup cap is fixed
		rec.DurationSeconds = models.CountupCapSeconds
	} else if v, ok := intField(fields, "session_duration_seconds", 1, maxDuration); ok {
		rec.DurationSeconds = v
	}

	rec.TimeLeftSeconds = rec.DurationSeconds
	if v, ok := intField(fields, "time_left_seconds", 0, rec.DurationSeconds); ok {
		rec.TimeLeftSeconds = v
	}

	rec.ElapsedSeconds = 0
	if v, ok := intField(fields, "elapsed_seconds", 0, rec.DurationSeconds); ok {
		rec.ElapsedSeconds = v
	}

	if v, ok := int64Field(fields, "start_timestamp_ms"); ok && v > 0 {
		rec.StartTimestampMs = &v
	}

	if v, ok := stringField(fields, "category"); ok {
		rec.Category = v
	}

	if v, ok := stringField(fields, "task_label"); ok {
		rec.TaskLabel = v
	}

	if v, ok := intField(fields, "completed_session_count", 0, 1<<31); ok {
		rec.CompletedSessionCount = v
	}

	if v, ok := boolField(fields, "sound_enabled"); ok {
		rec.SoundEnabled = v
	}

	return rec
}

// rehydrate recomputes the time fields of a running record against the
// current clock before it is handed out. A negative elapsed time means the
// wall clock moved backwards, in which case the record is forced to idle.
func (s *StateStore) rehydrate(rec *models.TimerRecord) {
	if rec.StartTimestampMs == nil {
		return
	}

	elapsed := timeutil.ElapsedSeconds(*rec.StartTimestampMs, s.now())

	if elapsed < 0 {
		slog.Warn(
			"clock moved backwards across restarts, resetting session",
			"elapsed_seconds", elapsed,
		)

		rec.StartTimestampMs = nil
		rec.TimeLeftSeconds = rec.DurationSeconds
		rec.ElapsedSeconds = 0

		return
	}

	if rec.Mode == models.Countup {
		rec.ElapsedSeconds = min(elapsed, models.CountupCapSeconds)

		return
	}

	if elapsed > rehydrationCeilingSeconds {
		rec.TimeLeftSeconds = 0

		return
	}

	rec.TimeLeftSeconds = max(0, rec.DurationSeconds-elapsed)
}

// Snapshot returns a copy of the current record.
func (s *StateStore) Snapshot() models.TimerRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.record
}

// Save applies the given mutation to the in-memory record, clamps the time
// fields back into range, and persists the full merged record. A persistence
// failure (disk full, lock lost) is logged and otherwise ignored.
func (s *StateStore) Save(mutate func(*models.TimerRecord)) models.TimerRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	mutate(&s.record)

	clampRecord(&s.record)

	s.persistLocked()

	return s.record
}

// Clear resets the running fields while preserving counters, preferences,
// and the selected duration. Used when tearing down a session without fully
// resetting the preset.
func (s *StateStore) Clear() models.TimerRecord {
	return s.Save(func(rec *models.TimerRecord) {
		rec.StartTimestampMs = nil
	})
}

// Reset returns the record to idle defaults for the selected preset,
// clearing the user intent metadata. The completed-session counter is only
// incremented for natural completions.
func (s *StateStore) Reset(incrementCount bool) models.TimerRecord {
	return s.Save(func(rec *models.TimerRecord) {
		rec.StartTimestampMs = nil
		rec.TimeLeftSeconds = rec.DurationSeconds
		rec.ElapsedSeconds = 0
		rec.Category = ""
		rec.TaskLabel = ""

		if incrementCount {
			rec.CompletedSessionCount++
		}
	})
}

func (s *StateStore) persistLocked() {
	b, err := json.Marshal(&s.record)
	if err != nil {
		slog.Error("marshalling timer record failed", "error", err)

		return
	}

	err = s.db.SaveTimerRecord(b)
	if err != nil {
		slog.Warn("persisting timer record failed", "error", err)
	}
}

func clampRecord(rec *models.TimerRecord) {
	if rec.DurationSeconds < 1 {
		rec.DurationSeconds = DefaultWorkSeconds
	}

	if rec.Mode == models.Countup {
		rec.DurationSeconds = models.CountupCapSeconds
	}

	rec.TimeLeftSeconds = max(0, min(rec.TimeLeftSeconds, rec.DurationSeconds))
	rec.ElapsedSeconds = max(0, min(rec.ElapsedSeconds, rec.DurationSeconds))
}

func stringField(m map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := m[key]
	if !ok {
		return "", false
	}

	var v string
	if json.Unmarshal(raw, &v) != nil {
		return "", false
	}

	return v, true
}

func intField(
	m map[string]json.RawMessage,
	key string,
	minVal, maxVal int,
) (int, bool) {
	raw, ok := m[key]
	if !ok {
		return 0, false
	}

	var v int
	if json.Unmarshal(raw, &v) != nil {
		return 0, false
	}

	if v < minVal || v > maxVal {
		return 0, false
	}

	return v, true
}

func int64Field(m map[string]json.RawMessage, key string) (int64, bool) {
	raw, ok := m[key]
	if !ok {
		return 0, false
	}

	var v int64
	if json.Unmarshal(raw, &v) != nil {
		return 0, false
	}

	return v, true
}

func boolField(m map[string]json.RawMessage, key string) (bool, bool) {
	raw, ok := m[key]
	if !ok {
		return false, false
	}

	var v bool
	if json.Unmarshal(raw, &v) != nil {
		return false, false
	}

	return v, true
}
