// Package store implements the sentinel store (C13): the one
// cross-restart state this agent keeps, a bbolt-backed per-process-name
// dump counter, per spec.md's Non-goals ("no persistent state beyond the
// one sentinel file").
package store

import (
	"encoding/json"
	"time"

	"go.etcd.io/bbolt"
)

var dumpsBucket = []byte("dumps")

// SentinelRecord tracks the dump budget consumed by one process name
// across agent restarts.
type SentinelRecord struct {
	ProcessName string    `json:"process_name"`
	DumpsUsed   int       `json:"dumps_used"`
	LastDumpAt  time.Time `json:"last_dump_at"`
}

// Sentinel is the embedded key-value store backing SentinelRecord.
// Opened once at agent startup, flushed after every mutation.
type Sentinel struct {
	db *bbolt.DB
}

// Open opens (creating if absent) the sentinel database at path.
func Open(path string) (*Sentinel, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(dumpsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Sentinel{db: db}, nil
}

// Close closes the underlying database file.
func (s *Sentinel) Close() error {
	return s.db.Close()
}

// Get returns the current record for processName, or a zero-valued
// record if none exists yet.
func (s *Sentinel) Get(processName string) (SentinelRecord, error) {
	rec := SentinelRecord{ProcessName: processName}

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(dumpsBucket)
		raw := b.Get([]byte(processName))
		if raw == nil {
			return nil
		}
		return json.Unmarshal(raw, &rec)
	})
	return rec, err
}

// IncrementDumpCount records one more dump for processName and flushes
// the change immediately.
func (s *Sentinel) IncrementDumpCount(processName string, at time.Time) (SentinelRecord, error) {
	var rec SentinelRecord

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(dumpsBucket)

		rec = SentinelRecord{ProcessName: processName}
		if raw := b.Get([]byte(processName)); raw != nil {
			if err := json.Unmarshal(raw, &rec); err != nil {
				return err
			}
		}

		rec.DumpsUsed++
		rec.LastDumpAt = at

		raw, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return b.Put([]byte(processName), raw)
	})

	return rec, err
}
