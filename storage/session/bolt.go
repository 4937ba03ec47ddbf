package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/nihongowithmoeno/moeno/core/access"
)

var bucketSessions = []byte("sessions")

// BoltStore keeps sessions in a local file, for single-instance deployments.
type BoltStore struct {
	db      *bolt.DB
	nowFunc func() time.Time
}

var _ access.SessionStore = (*BoltStore)(nil)

func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrap(err, "opening session database")
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketSessions); err != nil {
			return errors.Wrapf(err, "creating bucket %s", bucketSessions)
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &BoltStore{db: db, nowFunc: time.Now}, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) Save(_ context.Context, sess access.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return errors.Wrap(err, "encoding session")
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSessions).Put([]byte(sess.ID), data)
	})
}

func (s *BoltStore) Get(ctx context.Context, id string) (access.Session, error) {
	var sess access.Session
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketSessions).Get([]byte(id))
		if data == nil {
			return access.ErrNoSession
		}
		return json.Unmarshal(data, &sess)
	})
	if err != nil {
		return access.Session{}, err
	}

	if sess.Expired(s.nowFunc()) {
		if err := s.Delete(ctx, id); err != nil {
			return access.Session{}, err
		}
		return access.Session{}, access.ErrNoSession
	}
	return sess, nil
}

func (s *BoltStore) Delete(_ context.Context, id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSessions).Delete([]byte(id))
	})
}

// Purge removes every expired session and returns how many were dropped.
func (s *BoltStore) Purge() (int, error) {
	now := s.nowFunc()
	var purged int
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSessions)
		var expired [][]byte
		err := b.ForEach(func(k, v []byte) error {
			var sess access.Session
			if err := json.Unmarshal(v, &sess); err != nil || sess.Expired(now) {
				expired = append(expired, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range expired {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		purged = len(expired)
		return nil
	})
	return purged, err
}
