// Package history keeps an append-only log of mount and unmount attempts,
// successful or not. The state store answers "what is mounted now"; this
// log answers "what happened", which is what users paste into bug reports.
package history

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/becksclair/limount-sub001/internal/access"
)

// Operation names recorded on entries.
const (
	OpMount   = "mount"
	OpUnmount = "unmount"
)

// Entry is one logged operation.
type Entry struct {
	// Seq is assigned on append and orders entries.
	Seq  uint64    `json:"seq"`
	When time.Time `json:"when"`
	Op   string    `json:"op"`

	DiskIndex    int         `json:"diskIndex"`
	Partition    int         `json:"partition,omitempty"`
	Mode         access.Mode `json:"mode,omitempty"`
	DriveLetter  string      `json:"driveLetter,omitempty"`
	LocationName string      `json:"locationName,omitempty"`
	Distro       string      `json:"distro,omitempty"`
	Filesystem   string      `json:"fstype,omitempty"`

	Success      bool   `json:"success"`
	FailedStep   string `json:"failedStep,omitempty"`
	ErrorCode    string `json:"errorCode,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	ErrorHint    string `json:"errorHint,omitempty"`
	Diagnostic   string `json:"diagnostic,omitempty"`
}

// Log is the bbolt-backed operation log.
type Log struct {
	db *bolt.DB
}

// Open opens or creates the history database. The timeout bounds waiting on
// another process's file lock.
func Open(path string) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrap(err, "creating history directory")
	}
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "opening history database %s", path)
	}
	return &Log{db: db}, nil
}

func (l *Log) Close() error {
	return l.db.Close()
}

// Append stamps and stores an entry, assigning its sequence number.
func (l *Log) Append(ctx context.Context, e *Entry) error {
	if e.When.IsZero() {
		e.When = time.Now().UTC()
	}
	if err := l.db.Update(func(tx *bolt.Tx) error {
		bkt, err := createEntriesBucket(tx)
		if err != nil {
			return err
		}
		seq, err := bkt.NextSequence()
		if err != nil {
			return err
		}
		e.Seq = seq
		data, err := json.Marshal(e)
		if err != nil {
			return err
		}
		return bkt.Put(seqKey(seq), data)
	}); err != nil {
		return errors.Wrap(err, "appending history entry")
	}
	return nil
}

// seqKey encodes a sequence number big-endian so byte order is append
// order.
func seqKey(seq uint64) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], seq)
	return k[:]
}

// List returns every entry in append order.
func (l *Log) List(ctx context.Context) (results []*Entry, err error) {
	if err := l.db.View(func(tx *bolt.Tx) error {
		bkt := getEntriesBucket(tx)
		if bkt == nil {
			return nil
		}
		return bkt.ForEach(func(k, v []byte) error {
			e := &Entry{}
			if err := json.Unmarshal(v, e); err != nil {
				return errors.Wrapf(err, "data is %v", string(v))
			}
			results = append(results, e)
			return nil
		})
	}); err != nil {
		return nil, err
	}
	return results, nil
}

// Recent returns the last n entries in append order.
func (l *Log) Recent(ctx context.Context, n int) (results []*Entry, err error) {
	if n <= 0 {
		return nil, nil
	}
	if err := l.db.View(func(tx *bolt.Tx) error {
		bkt := getEntriesBucket(tx)
		if bkt == nil {
			return nil
		}
		c := bkt.Cursor()
		for k, v := c.Last(); k != nil && len(results) < n; k, v = c.Prev() {
			e := &Entry{}
			if err := json.Unmarshal(v, e); err != nil {
				return errors.Wrapf(err, "data is %v", string(v))
			}
			results = append(results, e)
		}
		// Walked newest-first; present oldest-first.
		for i, j := 0, len(results)-1; i < j; i, j = i+1, j-1 {
			results[i], results[j] = results[j], results[i]
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return results, nil
}
