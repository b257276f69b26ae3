package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/emberhollow/storefront/internal/observability/metrics"
	orderdomain "github.com/emberhollow/storefront/internal/order/domain"
	"github.com/emberhollow/storefront/internal/payment/adapters"
	paymentdomain "github.com/emberhollow/storefront/internal/payment/domain"
	refunddomain "github.com/emberhollow/storefront/internal/refund/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Repo      paymentdomain.Repository
	Adapters  *adapters.Registry
	OrderSvc  orderdomain.Service
	RefundSvc refunddomain.Service
	Metrics   *metrics.Metrics `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	repo      paymentdomain.Repository
	adapters  *adapters.Registry
	orderSvc  orderdomain.Service
	refundSvc refunddomain.Service
	metrics   *metrics.Metrics
}

func NewService(p Params) paymentdomain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("payment.webhook"),
		genID:     p.GenID,
		repo:      p.Repo,
		adapters:  p.Adapters,
		orderSvc:  p.OrderSvc,
		refundSvc: p.RefundSvc,
		metrics:   p.Metrics,
	}
}

// Ingest runs the full delivery pipeline: verify the signature, parse the
// payload into a tagged event, record it once, dispatch, mark processed.
// Replays of an already-processed event return ErrEventAlreadyProcessed so
// the handler can ack without side effects.
func (s *Service) Ingest(ctx context.Context, provider string, payload []byte, headers http.Header) error {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		return paymentdomain.ErrProviderNotFound
	}
	adapter, ok := s.adapters.Get(provider)
	if !ok {
		return paymentdomain.ErrProviderNotFound
	}
	if !json.Valid(payload) {
		return paymentdomain.ErrInvalidPayload
	}

	if err := adapter.Verify(ctx, payload, headers); err != nil {
		s.log.Warn("webhook signature rejected",
			zap.String("provider", provider),
			zap.Error(err),
		)
		return err
	}

	parsed, err := adapter.Parse(ctx, payload)
	if err != nil {
		if errors.Is(err, paymentdomain.ErrEventIgnored) {
			return paymentdomain.ErrEventIgnored
		}
		s.log.Warn("webhook payload rejected",
			zap.String("provider", provider),
			zap.Error(err),
		)
		return err
	}
	if parsed.Checkout == nil && parsed.Refund == nil && parsed.Shipping == nil {
		return paymentdomain.ErrInvalidEvent
	}

	record := &paymentdomain.EventRecord{
		ID:              s.genID.Generate(),
		Provider:        provider,
		ProviderEventID: parsed.ProviderEventID,
		EventType:       parsed.EventType,
		Payload:         datatypes.JSON(payload),
		ReceivedAt:      time.Now().UTC(),
	}
	inserted, err := s.repo.InsertEvent(ctx, s.db, record)
	if err != nil {
		return err
	}
	if !inserted {
		existing, err := s.repo.FindEvent(ctx, s.db, provider, parsed.ProviderEventID)
		if err != nil {
			return err
		}
		if existing != nil && existing.ProcessedAt != nil {
			return paymentdomain.ErrEventAlreadyProcessed
		}
		// Seen but never finished: a previous delivery crashed mid-dispatch.
		// Re-run it; downstream handlers are idempotent.
	}

	switch {
	case parsed.Checkout != nil:
		if err := s.orderSvc.Materialize(ctx, *parsed.Checkout); err != nil {
			return err
		}
	case parsed.Refund != nil:
		if err := s.refundSvc.HandleProviderRefund(ctx, *parsed.Refund); err != nil {
			return err
		}
	case parsed.Shipping != nil:
		err := s.orderSvc.UpdateShipping(ctx, orderdomain.UpdateShippingRequest{
			OrderID:        parsed.Shipping.OrderID,
			ShippingStatus: parsed.Shipping.ShippingStatus,
			Carrier:        parsed.Shipping.Carrier,
			TrackingNumber: parsed.Shipping.TrackingNumber,
		})
		if err != nil {
			// Fulfillment can outrun materialization; a failed delivery is
			// retried by the provider once the order exists.
			if errors.Is(err, orderdomain.ErrNotFound) {
				s.log.Warn("fulfillment update for unknown order",
					zap.String("provider", provider),
					zap.String("order_id", parsed.Shipping.OrderID),
				)
			}
			return err
		}
	}

	if err := s.repo.MarkProcessed(ctx, s.db, provider, parsed.ProviderEventID, time.Now().UTC()); err != nil {
		return err
	}

	s.metrics.RecordPaymentEvent(provider, parsed.EventType)
	s.log.Info("webhook event processed",
		zap.String("provider", provider),
		zap.String("event_id", parsed.ProviderEventID),
		zap.String("event_type", parsed.EventType),
	)
	return nil
}

// PurgeProcessedBefore deletes processed deliveries older than the cutoff.
// Replay protection for those events lapses with the rows.
func (s *Service) PurgeProcessedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	purged, err := s.repo.PurgeProcessedBefore(ctx, s.db, cutoff)
	if err != nil {
		return 0, err
	}
	if purged > 0 {
		s.log.Info("purged processed webhook events",
			zap.Int64("count", purged),
			zap.Time("cutoff", cutoff),
		)
	}
	return purged, nil
}
