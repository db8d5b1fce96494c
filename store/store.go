// Package store connects to the data store and manages the timer record,
// the session history, and the reward ledger
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/kronholm/flowtime/internal/models"
	"github.com/kronholm/flowtime/internal/timeutil"
)

var pathToDB string

var errAlreadyRunning = errors.New(
	"is flowtime already running? Only one instance can be active at a time",
)

const (
	timerBucket    = "timer"
	sessionsBucket = "sessions"
	ledgerBucket   = "ledger"
)

var (
	timerRecordKey = []byte("current")
	ledgerKey      = []byte("totals")
)

// Client is a BoltDB database client.
type Client struct {
	*bolt.DB
}

func (c *Client) GetTimerRecord() ([]byte, error) {
	var b []byte

	err := c.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(timerBucket)).Get(timerRecordKey)
		if v != nil {
			b = make([]byte, len(v))
			copy(b, v)
		}

		return nil
	})

	return b, err
}

func (c *Client) SaveTimerRecord(b []byte) error {
	return c.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(timerBucket)).Put(timerRecordKey, b)
	})
}

func (c *Client) RecordSession(
	_ context.Context,
	rec *models.SessionRecord,
) error {
	key := timeutil.ToKey(rec.StartTime)

	value, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	return c.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(sessionsBucket)).Put(key, value)
	})
}

func (c *Client) GetSessionRecords(
	startTime, endTime time.Time,
) ([]models.SessionRecord, error) {
	var records []models.SessionRecord

	err := c.View(func(tx *bolt.Tx) error {
		cur := tx.Bucket([]byte(sessionsBucket)).Cursor()
		min := timeutil.ToKey(startTime)
		max := timeutil.ToKey(endTime)

		for k, v := cur.Seek(min); k != nil && bytes.Compare(k, max) <= 0; k, v = cur.Next() {
			var rec models.SessionRecord

			err := json.Unmarshal(v, &rec)
			if err != nil {
				return err
			}

			records = append(records, rec)
		}

		return nil
	})

	return records, err
}

func (c *Client) GetLedger() (*models.Ledger, error) {
	var ledger models.Ledger

	err := c.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(ledgerBucket)).Get(ledgerKey)
		if len(v) == 0 {
			return nil
		}

		return json.Unmarshal(v, &ledger)
	})

	return &ledger, err
}

func (c *Client) UpdateLedger(
	fn func(*models.Ledger),
) (*models.Ledger, error) {
	var ledger models.Ledger

	err := c.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(ledgerBucket))

		v := b.Get(ledgerKey)
		if len(v) != 0 {
			err := json.Unmarshal(v, &ledger)
			if err != nil {
				return err
			}
		}

		fn(&ledger)

		value, err := json.Marshal(&ledger)
		if err != nil {
			return err
		}

		return b.Put(ledgerKey, value)
	})

	return &ledger, err
}

func (c *Client) Open() error {
	db, err := openDB(pathToDB)
	if err != nil {
		return err
	}

	*c = Client{
		db,
	}

	return nil
}

// openDB creates or opens a database and locks it.
func openDB(pathToDB string) (*bolt.DB, error) {
	var fileMode fs.FileMode = 0o600

	db, err := bolt.Open(
		pathToDB,
		fileMode,
		&bolt.Options{Timeout: 1 * time.Second},
	)
	if err != nil {
		if errors.Is(err, bolt.ErrDatabaseOpen) ||
			errors.Is(err, bolt.ErrTimeout) {
			return nil, errAlreadyRunning
		}

		return nil, err
	}

	return db, nil
}

// NewClient returns a wrapper to a BoltDB connection.
func NewClient(dbPath string) (*Client, error) {
	pathToDB = dbPath

	db, err := openDB(pathToDB)
	if err != nil {
		return nil, err
	}
	// Create the necessary buckets for storing data if they do not exist already
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{timerBucket, sessionsBucket, ledgerBucket} {
			_, err = tx.CreateBucketIfNotExists([]byte(name))
			if err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &Client{
		db,
	}, nil
}
