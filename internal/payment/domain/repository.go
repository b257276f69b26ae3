package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	// InsertEvent records the delivery if it has not been seen before.
	// Returns false when the (provider, provider_event_id) pair already
	// exists.
	InsertEvent(ctx context.Context, db *gorm.DB, event *EventRecord) (bool, error)
	FindEvent(ctx context.Context, db *gorm.DB, provider, providerEventID string) (*EventRecord, error)
	MarkProcessed(ctx context.Context, db *gorm.DB, provider, providerEventID string, at time.Time) error
	PurgeProcessedBefore(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error)
}
