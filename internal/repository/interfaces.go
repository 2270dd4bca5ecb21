package repository

import (
	"context"
	"time"

	"smartdate/internal/dto"
	"smartdate/internal/model"
)

// DetectionRepository is a secondary store mirroring accepted records.
type DetectionRepository interface {
	// Create operations
	Insert(ctx context.Context, rec *model.Record) error

	// Read operations
	Recent(ctx context.Context, filter dto.HistoryFilter) ([]model.Record, error)
	Stats(ctx context.Context, since time.Time) (*model.Stats, error)

	Close() error
}

// LatestCache holds the most recent accepted record.
type LatestCache interface {
	SetLatest(ctx context.Context, rec model.Record) error
	// Latest returns ok=false when nothing has been stored yet.
	Latest(ctx context.Context) (rec model.Record, ok bool, err error)
	Close() error
}
