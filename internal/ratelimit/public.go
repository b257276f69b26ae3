package ratelimit

import (
	"context"

	"github.com/emberhollow/storefront/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type PublicLimiterParams struct {
	fx.In

	Log     *zap.Logger
	Bucket  *TokenBucket `optional:"true"`
	Loyalty *config.LoyaltyConfigHolder
}

// PublicLimiter throttles the unauthenticated endpoints, keyed per client
// IP. Rates come from the hot-reloadable loyalty config. With no redis
// bucket configured it fails open.
type PublicLimiter struct {
	log     *zap.Logger
	bucket  *TokenBucket
	loyalty *config.LoyaltyConfigHolder
}

func NewPublicLimiter(p PublicLimiterParams) *PublicLimiter {
	return &PublicLimiter{
		log:     p.Log.Named("ratelimit"),
		bucket:  p.Bucket,
		loyalty: p.Loyalty,
	}
}

func (l *PublicLimiter) AllowCheckout(ctx context.Context, clientIP string) bool {
	cfg := l.loyalty.Current()
	return l.allow(ctx, "ratelimit:checkout:"+clientIP, cfg.CheckoutRate, cfg.CheckoutBurst)
}

func (l *PublicLimiter) AllowPromotion(ctx context.Context, clientIP string) bool {
	cfg := l.loyalty.Current()
	return l.allow(ctx, "ratelimit:promotion:"+clientIP, cfg.PromotionRate, cfg.PromotionBurst)
}

func (l *PublicLimiter) allow(ctx context.Context, key string, rate float64, burst int) bool {
	if l.bucket == nil {
		return true
	}
	result, err := l.bucket.Allow(ctx, key, rate, burst)
	if err != nil {
		// Redis trouble should not take checkout down with it.
		l.log.Warn("rate limit check failed", zap.String("key", key), zap.Error(err))
		return true
	}
	return result.Allowed
}
