package storage

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/user/nocview/internal/model"
)

// JournalStorage handles the action journal.
type JournalStorage struct {
	db *DB
}

// NewJournalStorage creates a new journal storage handler.
func NewJournalStorage(db *DB) *JournalStorage {
	return &JournalStorage{db: db}
}

// Save stores a journal entry, assigning an ID and timestamp when missing.
func (s *JournalStorage) Save(entry *model.JournalEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	ok := 0
	if entry.OK {
		ok = 1
	}

	return s.db.WithLock(func() error {
		_, err := s.db.Exec(
			`INSERT INTO journal (id, action, target, ok, message, timestamp)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			entry.ID, entry.Action, entry.Target, ok, entry.Message, entry.Timestamp)
		if err != nil {
			return fmt.Errorf("failed to insert journal entry: %w", err)
		}
		return nil
	})
}

// Recent returns the latest entries, newest first. An empty action returns
// every action.
func (s *JournalStorage) Recent(action string, limit int) ([]model.JournalEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id, action, target, ok, message, timestamp FROM journal`
	args := []any{}
	if action != "" {
		query += ` WHERE action = ?`
		args = append(args, action)
	}
	query += ` ORDER BY timestamp DESC LIMIT ?`
	args = append(args, limit)

	var entries []model.JournalEntry
	err := s.db.WithRLock(func() error {
		rows, err := s.db.Query(query, args...)
		if err != nil {
			return fmt.Errorf("failed to query journal: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var e model.JournalEntry
			var ok int
			if err := rows.Scan(&e.ID, &e.Action, &e.Target, &ok, &e.Message, &e.Timestamp); err != nil {
				return fmt.Errorf("failed to scan journal entry: %w", err)
			}
			e.OK = ok == 1
			entries = append(entries, e)
		}
		return rows.Err()
	})
	return entries, err
}

// CountSince returns the number of entries since a given time.
func (s *JournalStorage) CountSince(since time.Time) (int, error) {
	var count int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM journal WHERE timestamp >= ?", since).Scan(&count)
	return count, err
}

// Prune removes entries older than the given time.
func (s *JournalStorage) Prune(before time.Time) (int64, error) {
	var n int64
	err := s.db.WithLock(func() error {
		res, err := s.db.Exec("DELETE FROM journal WHERE timestamp < ?", before)
		if err != nil {
			return fmt.Errorf("failed to prune journal: %w", err)
		}
		n, err = res.RowsAffected()
		return err
	})
	return n, err
}
