package store

import (
	"context"
	"time"

	"github.com/kronholm/flowtime/internal/models"
)

// DB is the database storage interface.
type DB interface {
	// GetTimerRecord returns the raw bytes of the persisted timer record, or
	// nil when no record has been saved yet.
	GetTimerRecord() ([]byte, error)
	// SaveTimerRecord overwrites the persisted timer record.
	SaveTimerRecord(b []byte) error
	// RecordSession appends a resolved session to the history.
	RecordSession(ctx context.Context, rec *models.SessionRecord) error
	// GetSessionRecords returns recorded sessions whose start time falls
	// within the given bounds.
	GetSessionRecords(startTime, endTime time.Time) ([]models.SessionRecord, error)
	// GetLedger returns the accumulated reward totals.
	GetLedger() (*models.Ledger, error)
	// UpdateLedger applies the given mutation to the reward totals.
	UpdateLedger(fn func(*models.Ledger)) (*models.Ledger, error)
	// Close ends the database connection
	Close() error
	// Open begins a database connection
	Open() error
}
