package domain

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	orderdomain "github.com/emberhollow/storefront/internal/order/domain"
	"gorm.io/datatypes"
)

// EventRecord is one received webhook delivery. The (provider,
// provider_event_id) unique index is the idempotency gate.
type EventRecord struct {
	ID              snowflake.ID   `gorm:"primaryKey" json:"id"`
	Provider        string         `gorm:"not null;uniqueIndex:ux_webhook_events_provider_event" json:"provider"`
	ProviderEventID string         `gorm:"not null;uniqueIndex:ux_webhook_events_provider_event" json:"provider_event_id"`
	EventType       string         `gorm:"not null" json:"event_type"`
	Payload         datatypes.JSON `json:"payload,omitempty"`
	ReceivedAt      time.Time      `gorm:"not null" json:"received_at"`
	ProcessedAt     *time.Time     `json:"processed_at,omitempty"`
}

func (EventRecord) TableName() string { return "webhook_events" }

// ParsedEvent is the tagged result of an adapter parse: exactly one of
// Checkout or Refund is set.
type ParsedEvent struct {
	ProviderEventID string
	EventType       string
	Checkout        *orderdomain.CheckoutEvent
	Refund          *orderdomain.RefundEvent
	Shipping        *orderdomain.ShippingEvent
}

// Adapter verifies and parses one provider's webhook deliveries.
type Adapter interface {
	Provider() string
	Verify(ctx context.Context, payload []byte, headers http.Header) error
	Parse(ctx context.Context, payload []byte) (*ParsedEvent, error)
}

type Service interface {
	Ingest(ctx context.Context, provider string, payload []byte, headers http.Header) error
	PurgeProcessedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

var (
	ErrProviderNotFound      = errors.New("provider_not_found")
	ErrInvalidSignature      = errors.New("invalid_signature")
	ErrInvalidPayload        = errors.New("invalid_payload")
	ErrInvalidEvent          = errors.New("invalid_event")
	ErrEventIgnored          = errors.New("event_ignored")
	ErrEventAlreadyProcessed = errors.New("event_already_processed")
	ErrStaleTimestamp        = errors.New("stale_timestamp")
)
