package repository

import (
	"context"
	"time"

	"github.com/emberhollow/storefront/internal/payment/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertEvent(ctx context.Context, db *gorm.DB, event *domain.EventRecord) (bool, error) {
	result := db.WithContext(ctx).Exec(`
		INSERT INTO webhook_events (id, provider, provider_event_id, event_type, payload, received_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (provider, provider_event_id) DO NOTHING`,
		event.ID, event.Provider, event.ProviderEventID, event.EventType, event.Payload, event.ReceivedAt,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) FindEvent(ctx context.Context, db *gorm.DB, provider, providerEventID string) (*domain.EventRecord, error) {
	var event domain.EventRecord
	err := db.WithContext(ctx).
		Where("provider = ? AND provider_event_id = ?", provider, providerEventID).
		First(&event).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *repo) MarkProcessed(ctx context.Context, db *gorm.DB, provider, providerEventID string, at time.Time) error {
	return db.WithContext(ctx).Exec(`
		UPDATE webhook_events SET processed_at = ?
		WHERE provider = ? AND provider_event_id = ? AND processed_at IS NULL`,
		at, provider, providerEventID,
	).Error
}

func (r *repo) PurgeProcessedBefore(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(`
		DELETE FROM webhook_events
		WHERE processed_at IS NOT NULL AND processed_at < ?`,
		cutoff,
	)
	return result.RowsAffected, result.Error
}
