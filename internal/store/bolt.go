package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/hopeland/leasebot/internal/session"
)

var sessionsBucket = []byte("sessions")

// BoltStore persists sessions in a local bbolt file so handoff flags and
// browsing state survive restarts.
type BoltStore struct {
	db *bolt.DB
}

var _ session.Store = (*BoltStore)(nil)

func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(sessionsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating sessions bucket: %w", err)
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) GetOrCreate(ctx context.Context, subjectID string, now time.Time) (session.Session, error) {
	sess, err := s.Lookup(ctx, subjectID)
	if errors.Is(err, session.ErrNotFound) {
		return session.New(subjectID, now), nil
	}
	if err != nil {
		return session.Session{}, err
	}
	sess.LastActivityAt = now
	return sess, nil
}

func (s *BoltStore) Lookup(_ context.Context, subjectID string) (session.Session, error) {
	var (
		sess  session.Session
		found bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(sessionsBucket).Get([]byte(subjectID))
		if v == nil {
			return nil
		}
		found = true
		return json.Unmarshal(v, &sess)
	})
	if err != nil {
		return session.Session{}, fmt.Errorf("loading session %s: %w", subjectID, err)
	}
	if !found {
		return session.Session{}, session.ErrNotFound
	}
	return sess, nil
}

func (s *BoltStore) Put(_ context.Context, sess session.Session) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(sess)
		if err != nil {
			return err
		}
		return tx.Bucket(sessionsBucket).Put([]byte(sess.SubjectID), data)
	})
}

func (s *BoltStore) Delete(_ context.Context, subjectID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(sessionsBucket).Delete([]byte(subjectID))
	})
}

// Sweep deletes sessions idle for longer than maxIdle, except those in
// human handoff.
func (s *BoltStore) Sweep(maxIdle time.Duration, now time.Time) (int, error) {
	removed := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(sessionsBucket)
		var stale [][]byte
		err := b.ForEach(func(k, v []byte) error {
			var sess session.Session
			if err := json.Unmarshal(v, &sess); err != nil {
				return err
			}
			if !sess.HandedOff() && now.Sub(sess.LastActivityAt) > maxIdle {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		removed = len(stale)
		return nil
	})
	return removed, err
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
