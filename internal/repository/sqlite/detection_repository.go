package sqlite

import (
	"context"
	"fmt"
	"time"

	"smartdate/internal/dto"
	"smartdate/internal/model"
)

// DetectionRepository implements repository.DetectionRepository for SQLite.
type DetectionRepository struct {
	db *DB
}

// NewDetectionRepository creates a new SQLite detection repository.
func NewDetectionRepository(db *DB) *DetectionRepository {
	return &DetectionRepository{db: db}
}

// Insert adds a new detection record to the database.
func (r *DetectionRepository) Insert(ctx context.Context, rec *model.Record) error {
	r.db.Lock()
	defer r.db.Unlock()

	_, err := r.db.Conn().ExecContext(ctx, `
		INSERT INTO detections (timestamp, label, confidence, image)
		VALUES (?, ?, ?, ?)
	`, rec.Timestamp, rec.Label, rec.Confidence, rec.Image)
	if err != nil {
		return fmt.Errorf("failed to insert detection: %w", err)
	}
	return nil
}

// InsertBatch adds multiple records in a single transaction.
func (r *DetectionRepository) InsertBatch(ctx context.Context, records []model.Record) error {
	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO detections (timestamp, label, confidence, image)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		if _, err := stmt.ExecContext(ctx, rec.Timestamp, rec.Label, rec.Confidence, rec.Image); err != nil {
			return fmt.Errorf("failed to insert detection: %w", err)
		}
	}

	return tx.Commit()
}

// Recent returns the newest records first, optionally for a single label.
func (r *DetectionRepository) Recent(ctx context.Context, filter dto.HistoryFilter) ([]model.Record, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	query := `SELECT timestamp, label, confidence, image FROM detections WHERE 1=1`
	args := []interface{}{}

	if filter.Label != "" {
		query += " AND label = ?"
		args = append(args, filter.Label)
	}

	query += " ORDER BY timestamp DESC, id DESC LIMIT ?"
	args = append(args, filter.EffectiveLimit())

	rows, err := r.db.Conn().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query detections: %w", err)
	}
	defer rows.Close()

	records := make([]model.Record, 0)
	for rows.Next() {
		var rec model.Record
		if err := rows.Scan(&rec.Timestamp, &rec.Label, &rec.Confidence, &rec.Image); err != nil {
			return nil, fmt.Errorf("failed to scan detection: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// Stats returns totals over the whole history; Today counts records at or
// after since.
func (r *DetectionRepository) Stats(ctx context.Context, since time.Time) (*model.Stats, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	stats := &model.Stats{ByLabel: make([]model.LabelCount, 0)}

	if err := r.db.Conn().QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(AVG(confidence), 0) FROM detections`,
	).Scan(&stats.Total, &stats.AvgConfidence); err != nil {
		return nil, fmt.Errorf("failed to count detections: %w", err)
	}

	if err := r.db.Conn().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM detections WHERE timestamp >= ?`, model.EpochSeconds(since),
	).Scan(&stats.Today); err != nil {
		return nil, fmt.Errorf("failed to count today's detections: %w", err)
	}

	rows, err := r.db.Conn().QueryContext(ctx, `
		SELECT label, COUNT(*) AS cnt
		FROM detections
		GROUP BY label
		ORDER BY cnt DESC, label
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query labels: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var lc model.LabelCount
		if err := rows.Scan(&lc.Label, &lc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan label count: %w", err)
		}
		stats.ByLabel = append(stats.ByLabel, lc)
	}

	return stats, rows.Err()
}

// Close closes the underlying database.
func (r *DetectionRepository) Close() error {
	return r.db.Close()
}
