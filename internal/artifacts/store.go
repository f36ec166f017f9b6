// Package artifacts persists the (scaler, classifier, metrics) triple one
// training run produces. The triple is written in a single BoltDB
// transaction: a reader either sees a complete run or none, never a
// classifier without its paired scaler. Runs are keyed by model name, so
// concurrent training jobs writing distinct names cannot clobber each
// other.
package artifacts

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"heartguard/internal/model"
	"heartguard/internal/train"
	"heartguard/internal/transform"
)

const (
	keyScaler     = "scaler"
	keyClassifier = "classifier"
	keyMetrics    = "metrics"
	keySavedAt    = "saved_at"
)

// ErrRunNotFound is returned when no run exists under the requested name.
var ErrRunNotFound = errors.New("artifacts: run not found")

// ErrPartialRun is returned when a stored run is missing one of its members.
// A partial run is treated as absent data, never served.
var ErrPartialRun = errors.New("artifacts: stored run is incomplete")

// Store is the artifact database.
type Store struct {
	db *bbolt.DB
}

// Run is one complete training run as stored.
type Run struct {
	Scaler  *transform.Scaler
	Forest  *model.Forest
	Metrics train.Snapshot
	SavedAt time.Time
}

// Open opens (or creates) the artifact database under dataPath.
func Open(dataPath string) (*Store, error) {
	dbPath := filepath.Join(dataPath, "heartguard.db")
	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("artifacts: open database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveRun writes the triple under name in one transaction, replacing any
// previous run of the same name atomically.
func (s *Store) SaveRun(name string, res *train.Result) error {
	if res == nil || res.Scaler == nil || res.Forest == nil {
		return errors.New("artifacts: refusing to save incomplete run")
	}

	scalerBytes, err := encodeScaler(res.Scaler)
	if err != nil {
		return fmt.Errorf("artifacts: encode scaler: %w", err)
	}
	forestBytes, err := res.Forest.MarshalBinary()
	if err != nil {
		return fmt.Errorf("artifacts: encode classifier: %w", err)
	}
	metricsBytes, err := json.Marshal(res.Metrics)
	if err != nil {
		return fmt.Errorf("artifacts: encode metrics: %w", err)
	}
	savedAt, err := time.Now().UTC().MarshalText()
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket([]byte(name)); err != nil && !errors.Is(err, bbolt.ErrBucketNotFound) {
			return err
		}
		b, err := tx.CreateBucket([]byte(name))
		if err != nil {
			return fmt.Errorf("create run bucket: %w", err)
		}
		for _, kv := range []struct {
			k string
			v []byte
		}{
			{keyScaler, scalerBytes},
			{keyClassifier, forestBytes},
			{keyMetrics, metricsBytes},
			{keySavedAt, savedAt},
		} {
			if err := b.Put([]byte(kv.k), kv.v); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadRun reads a complete triple back. A run with any member missing or
// undecodable fails with ErrPartialRun; callers never receive a partial
// pair.
func (s *Store) LoadRun(name string) (*Run, error) {
	var run Run
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(name))
		if b == nil {
			return fmt.Errorf("%w: %q", ErrRunNotFound, name)
		}

		scalerBytes := b.Get([]byte(keyScaler))
		forestBytes := b.Get([]byte(keyClassifier))
		metricsBytes := b.Get([]byte(keyMetrics))
		if scalerBytes == nil || forestBytes == nil || metricsBytes == nil {
			return fmt.Errorf("%w: %q", ErrPartialRun, name)
		}

		sc, err := decodeScaler(scalerBytes)
		if err != nil {
			return fmt.Errorf("%w: scaler: %v", ErrPartialRun, err)
		}
		forest := &model.Forest{}
		if err := forest.UnmarshalBinary(forestBytes); err != nil {
			return fmt.Errorf("%w: classifier: %v", ErrPartialRun, err)
		}
		if err := json.Unmarshal(metricsBytes, &run.Metrics); err != nil {
			return fmt.Errorf("%w: metrics: %v", ErrPartialRun, err)
		}
		if ts := b.Get([]byte(keySavedAt)); ts != nil {
			_ = run.SavedAt.UnmarshalText(ts)
		}

		run.Scaler = sc
		run.Forest = forest
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns returns the stored model names.
func (s *Store) ListRuns() ([]string, error) {
	var names []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.ForEach(func(name []byte, _ *bbolt.Bucket) error {
			names = append(names, string(name))
			return nil
		})
	})
	return names, err
}

func encodeScaler(sc *transform.Scaler) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(sc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeScaler(data []byte) (*transform.Scaler, error) {
	var sc transform.Scaler
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&sc); err != nil {
		return nil, err
	}
	return &sc, nil
}
