// Package record stores readings in a bbolt database for later replay.
package record

import (
	"context"
	"encoding/binary"

	"github.com/pkg/errors"
	"go.etcd.io/bbolt"
	"sigs.k8s.io/yaml"

	"stm32adc/host/monitor"
)

const (
	ReadingsBucket = "readings"
	ProfileBucket  = "profile"
	BoardKey       = "board"
)

// Recorder appends every reading it sees to the database.
type Recorder struct {
	DB *bbolt.DB
}

var _ monitor.Sink = (*Recorder)(nil)

// Open opens or creates the database at path.
func Open(path string) (*Recorder, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{ReadingsBucket, ProfileBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to create buckets")
	}
	return &Recorder{DB: db}, nil
}

// Close ...
func (r *Recorder) Close() error {
	return r.DB.Close()
}

// Name implements monitor.Sink.
func (r *Recorder) Name() string {
	return "record"
}

// Handle stores rd under the next key.
func (r *Recorder) Handle(ctx context.Context, rd *monitor.Reading) error {
	data, err := yaml.Marshal(rd)
	if err != nil {
		return errors.WithStack(err)
	}
	return r.DB.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(ReadingsBucket))
		id, err := b.NextSequence()
		if err != nil {
			return err
		}
		return b.Put(itob(id), data)
	})
}

// SetBoard remembers which board produced the recording.
func (r *Recorder) SetBoard(board string) error {
	return r.DB.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(ProfileBucket)).Put([]byte(BoardKey), []byte(board))
	})
}

// Board returns the board stored by SetBoard, or "" when none was.
func (r *Recorder) Board() (string, error) {
	var board string
	err := r.DB.View(func(tx *bbolt.Tx) error {
		board = string(tx.Bucket([]byte(ProfileBucket)).Get([]byte(BoardKey)))
		return nil
	})
	return board, err
}

// Count returns the number of stored readings.
func (r *Recorder) Count() (int, error) {
	var n int
	err := r.DB.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket([]byte(ReadingsBucket)).Stats().KeyN
		return nil
	})
	return n, err
}

// Replay calls fn for every stored reading in recording order, stopping at
// the first error fn returns.
func (r *Recorder) Replay(ctx context.Context, fn func(id uint64, rd *monitor.Reading) error) error {
	return r.DB.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(ReadingsBucket)).ForEach(func(k, v []byte) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rd := &monitor.Reading{}
			if err := yaml.Unmarshal(v, rd); err != nil {
				return errors.Wrapf(err, "corrupt reading %d", btoi(k))
			}
			return fn(btoi(k), rd)
		})
	})
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func btoi(b []byte) uint64 {
	return binary.BigEndian.Uint64(b)
}
