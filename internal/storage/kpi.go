package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/user/nocview/internal/model"
)

// KPIStorage handles KPI history persistence.
type KPIStorage struct {
	db *DB
}

// NewKPIStorage creates a new KPI storage handler.
func NewKPIStorage(db *DB) *KPIStorage {
	return &KPIStorage{db: db}
}

// Save stores a batch of samples in one transaction.
func (s *KPIStorage) Save(samples []model.KPISample) error {
	if len(samples) == 0 {
		return nil
	}
	return s.db.WithLock(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback()

		stmt, err := tx.Prepare(
			`INSERT INTO kpi_history (role, metric, value, timestamp) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare kpi statement: %w", err)
		}
		defer stmt.Close()

		for _, sample := range samples {
			ts := sample.Timestamp
			if ts.IsZero() {
				ts = time.Now()
			}
			if _, err := stmt.Exec(sample.Role, sample.Metric, sample.Value, ts); err != nil {
				return fmt.Errorf("failed to insert kpi %s: %w", sample.Metric, err)
			}
		}
		return tx.Commit()
	})
}

// Previous returns the most recent sample for a metric taken strictly
// before the given time, or nil when there is none.
func (s *KPIStorage) Previous(role, metric string, before time.Time) (*model.KPISample, error) {
	var sample model.KPISample
	err := s.db.WithRLock(func() error {
		return s.db.QueryRow(
			`SELECT role, metric, value, timestamp FROM kpi_history
			 WHERE role = ? AND metric = ? AND timestamp < ?
			 ORDER BY timestamp DESC LIMIT 1`,
			role, metric, before).Scan(&sample.Role, &sample.Metric, &sample.Value, &sample.Timestamp)
	})
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get previous kpi: %w", err)
	}
	return &sample, nil
}

// History returns samples for a metric since a given time, oldest first.
func (s *KPIStorage) History(role, metric string, since time.Time) ([]model.KPISample, error) {
	var samples []model.KPISample
	err := s.db.WithRLock(func() error {
		rows, err := s.db.Query(
			`SELECT role, metric, value, timestamp FROM kpi_history
			 WHERE role = ? AND metric = ? AND timestamp >= ?
			 ORDER BY timestamp ASC`,
			role, metric, since)
		if err != nil {
			return fmt.Errorf("failed to query kpi history: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var sample model.KPISample
			if err := rows.Scan(&sample.Role, &sample.Metric, &sample.Value, &sample.Timestamp); err != nil {
				return fmt.Errorf("failed to scan kpi sample: %w", err)
			}
			samples = append(samples, sample)
		}
		return rows.Err()
	})
	return samples, err
}

// Prune removes samples older than the given time.
func (s *KPIStorage) Prune(before time.Time) (int64, error) {
	var n int64
	err := s.db.WithLock(func() error {
		res, err := s.db.Exec("DELETE FROM kpi_history WHERE timestamp < ?", before)
		if err != nil {
			return fmt.Errorf("failed to prune kpi history: %w", err)
		}
		n, err = res.RowsAffected()
		return err
	})
	return n, err
}
