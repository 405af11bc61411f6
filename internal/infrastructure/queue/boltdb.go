package queue

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Store persists deadline reminders in BoltDB so a restart between a sweep
// and its notifications loses nothing. Keys sort by severity first, then by
// enqueue time, so a cursor scan drains the worst breaches first.
type Store struct {
	db     *bolt.DB
	bucket []byte
}

// Open initializes the BoltDB file and ensures the bucket exists.
func Open(path string, bucket string) (*Store, error) {
	if bucket == "" {
		bucket = "reminders"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucket))
		return err
	}); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{
		db:     db,
		bucket: []byte(bucket),
	}, nil
}

// Enqueue stores a reminder under a severity-ordered key. Any previous
// reminder for the same task is replaced so a task never stacks duplicate
// notifications across sweeps.
func (s *Store) Enqueue(reminder Reminder) error {
	if s == nil || s.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	reminder.normalize()
	reminder.bucketKey = []byte(buildKey(reminder))

	payload, err := json.Marshal(reminder)
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(s.bucket)
		if err := deleteByTask(bucket, reminder.TaskID, reminder.ID); err != nil {
			return err
		}
		return bucket.Put(reminder.bucketKey, payload)
	})
}

// GetBatch returns up to limit reminders without removing them.
func (s *Store) GetBatch(limit int) ([]Reminder, error) {
	if s == nil || s.db == nil {
		return nil, bolt.ErrDatabaseNotOpen
	}
	if limit <= 0 {
		limit = 50
	}

	var reminders []Reminder
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(s.bucket).Cursor()
		for k, v := c.First(); k != nil && len(reminders) < limit; k, v = c.Next() {
			var reminder Reminder
			if err := json.Unmarshal(v, &reminder); err != nil {
				continue
			}
			reminder.bucketKey = append([]byte(nil), k...)
			reminders = append(reminders, reminder)
		}
		return nil
	})
	return reminders, err
}

// Remove deletes a delivered reminder.
func (s *Store) Remove(reminder Reminder) error {
	if s == nil || s.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	if len(reminder.bucketKey) == 0 {
		return s.deleteByID(reminder.ID)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Delete(reminder.bucketKey)
	})
}

// Requeue reschedules a reminder after a failed delivery attempt. The old
// record is deleted and the bumped one written in a single transaction, so a
// crash mid-requeue can never lose or duplicate the reminder.
func (s *Store) Requeue(reminder Reminder) error {
	if s == nil || s.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	oldKey := reminder.bucketKey
	reminder.Attempts++
	reminder.EnqueuedAt = time.Now()
	reminder.normalize()
	reminder.bucketKey = []byte(buildKey(reminder))

	payload, err := json.Marshal(reminder)
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(s.bucket)
		if len(oldKey) > 0 {
			if err := bucket.Delete(oldKey); err != nil {
				return err
			}
		} else if err := deleteByIDTx(bucket, reminder.ID); err != nil {
			return err
		}
		return bucket.Put(reminder.bucketKey, payload)
	})
}

// Size returns the number of pending reminders.
func (s *Store) Size() (int, error) {
	if s == nil || s.db == nil {
		return 0, bolt.ErrDatabaseNotOpen
	}
	var count int
	err := s.db.View(func(tx *bolt.Tx) error {
		count = tx.Bucket(s.bucket).Stats().KeyN
		return nil
	})
	return count, err
}

// Cleanup removes reminders enqueued before the provided timestamp.
func (s *Store) Cleanup(olderThan time.Time) error {
	if s == nil || s.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		c := tx.Bucket(s.bucket).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var reminder Reminder
			if err := json.Unmarshal(v, &reminder); err != nil {
				continue
			}
			if reminder.EnqueuedAt.Before(olderThan) {
				if err := c.Delete(); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// Close closes the Bolt database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Stats exposes Bolt statistics for monitoring endpoints.
func (s *Store) Stats() bolt.Stats {
	if s == nil || s.db == nil {
		return bolt.Stats{}
	}
	return s.db.Stats()
}

func (s *Store) deleteByID(id string) error {
	if id == "" {
		return nil
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return deleteByIDTx(tx.Bucket(s.bucket), id)
	})
}

func deleteByIDTx(bucket *bolt.Bucket, id string) error {
	if id == "" {
		return nil
	}
	c := bucket.Cursor()
	for k, v := c.First(); k != nil; k, v = c.Next() {
		var reminder Reminder
		if err := json.Unmarshal(v, &reminder); err != nil {
			continue
		}
		if reminder.ID == id {
			return c.Delete()
		}
	}
	return nil
}

func deleteByTask(bucket *bolt.Bucket, taskID, keepID string) error {
	if taskID == "" {
		return nil
	}
	c := bucket.Cursor()
	for k, v := c.First(); k != nil; k, v = c.Next() {
		var reminder Reminder
		if err := json.Unmarshal(v, &reminder); err != nil {
			continue
		}
		if reminder.TaskID == taskID && reminder.ID != keepID {
			if err := c.Delete(); err != nil {
				return err
			}
		}
	}
	return nil
}

func buildKey(reminder Reminder) string {
	return fmt.Sprintf("%d_%020d_%s", reminder.priority(), reminder.EnqueuedAt.UnixNano(), reminder.ID)
}
