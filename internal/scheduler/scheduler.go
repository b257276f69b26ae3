package scheduler

import (
	"context"
	"time"

	"github.com/emberhollow/storefront/internal/config"
	paymentdomain "github.com/emberhollow/storefront/internal/payment/domain"
	promotiondomain "github.com/emberhollow/storefront/internal/promotion/domain"
	"github.com/emberhollow/storefront/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	defaultInterval = time.Hour
	jobTimeout      = 5 * time.Minute
	lockTTL         = 10 * time.Minute
)

type Params struct {
	fx.In

	Log          *zap.Logger
	Loyalty      *config.LoyaltyConfigHolder
	PaymentSvc   paymentdomain.Service
	PromotionSvc promotiondomain.Service
	Locker       *ratelimit.Locker `optional:"true"`
}

// Scheduler runs the housekeeping jobs on a fixed interval: webhook event
// retention and promotion expiry. A redis lock keeps each pass single-flight
// when several replicas run.
type Scheduler struct {
	log          *zap.Logger
	loyalty      *config.LoyaltyConfigHolder
	paymentSvc   paymentdomain.Service
	promotionSvc promotiondomain.Service
	locker       *ratelimit.Locker

	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
}

func New(p Params) *Scheduler {
	return &Scheduler{
		log:          p.Log.Named("scheduler"),
		loyalty:      p.Loyalty,
		paymentSvc:   p.PaymentSvc,
		promotionSvc: p.PromotionSvc,
		locker:       p.Locker,
		interval:     defaultInterval,
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
}

func (s *Scheduler) Start() {
	go s.loop()
}

func (s *Scheduler) Stop(ctx context.Context) error {
	close(s.stop)
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) loop() {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.runOnce(context.Background())
		}
	}
}

func (s *Scheduler) runOnce(parent context.Context) {
	ctx, cancel := context.WithTimeout(parent, jobTimeout)
	defer cancel()

	if s.locker != nil {
		token, ok, err := s.locker.TryLock(ctx, "scheduler:housekeeping", lockTTL)
		if err != nil {
			s.log.Warn("housekeeping lock failed", zap.Error(err))
			return
		}
		if !ok {
			return
		}
		defer func() {
			if err := s.locker.Release(ctx, "scheduler:housekeeping", token); err != nil {
				s.log.Warn("housekeeping lock release failed", zap.Error(err))
			}
		}()
	}

	s.purgeWebhookEvents(ctx)
	s.deactivateExpiredPromotions(ctx)
}

func (s *Scheduler) purgeWebhookEvents(ctx context.Context) {
	retention := time.Duration(s.loyalty.Current().WebhookRetentionDays) * 24 * time.Hour
	cutoff := time.Now().UTC().Add(-retention)

	purged, err := s.paymentSvc.PurgeProcessedBefore(ctx, cutoff)
	if err != nil {
		s.log.Error("webhook event purge failed", zap.Error(err))
		return
	}
	if purged > 0 {
		s.log.Info("webhook events purged", zap.Int64("count", purged))
	}
}

func (s *Scheduler) deactivateExpiredPromotions(ctx context.Context) {
	deactivated, err := s.promotionSvc.DeactivateExpired(ctx)
	if err != nil {
		s.log.Error("promotion expiry sweep failed", zap.Error(err))
		return
	}
	if deactivated > 0 {
		s.log.Info("expired promotions deactivated", zap.Int64("count", deactivated))
	}
}
