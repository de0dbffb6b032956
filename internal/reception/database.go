package reception

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.etcd.io/bbolt"
)

const bucketName = "receptions"

// ErrNotFound is returned when no reception has the requested ID.
var ErrNotFound = errors.New("reception not found")

// DB is the reception journal.
type DB interface {
	SaveReception(r *Reception) error
	GetReception(id string) (*Reception, error)
	// ListReceptions returns every reception, newest first.
	ListReceptions() ([]*Reception, error)
	DeleteReception(id string) error
	Close() error
}

// BoltDB implements DB on a single bbolt file.
type BoltDB struct {
	db *bbolt.DB
}

func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating bucket: %w", err)
	}

	return &BoltDB{db: db}, nil
}

func (b *BoltDB) SaveReception(r *Reception) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("marshaling reception: %w", err)
		}
		return tx.Bucket([]byte(bucketName)).Put([]byte(r.ID), data)
	})
}

func (b *BoltDB) GetReception(id string) (*Reception, error) {
	var r *Reception
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(bucketName)).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return json.Unmarshal(data, &r)
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (b *BoltDB) ListReceptions() ([]*Reception, error) {
	receptions := make([]*Reception, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).ForEach(func(k, v []byte) error {
			var r Reception
			if err := json.Unmarshal(v, &r); err != nil {
				return fmt.Errorf("unmarshaling reception %s: %w", k, err)
			}
			receptions = append(receptions, &r)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(receptions, func(a, b *Reception) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return receptions, nil
}

func (b *BoltDB) DeleteReception(id string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		if bucket.Get([]byte(id)) == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return bucket.Delete([]byte(id))
	})
}

func (b *BoltDB) Close() error {
	return b.db.Close()
}
