package domain

import (
	"context"
	"errors"
	"time"
)

type RevenuePoint struct {
	Day          string `json:"day"`
	Orders       int64  `json:"orders"`
	RevenueCents int64  `json:"revenue_cents"`
}

type TopProduct struct {
	Slug         string `json:"slug"`
	Name         string `json:"name"`
	Quantity     int64  `json:"quantity"`
	RevenueCents int64  `json:"revenue_cents"`
}

// PointsLiability is the outstanding loyalty obligation plus how many
// accounts disagree with their ledger.
type PointsLiability struct {
	OutstandingPoints int64 `json:"outstanding_points"`
	AccountsWithDrift int64 `json:"accounts_with_drift"`
}

type PromotionPerformance struct {
	PromotionID   int64  `json:"promotion_id"`
	Code          string `json:"code"`
	Redemptions   int64  `json:"redemptions"`
	DiscountCents int64  `json:"discount_cents"`
}

type Service interface {
	RevenueByDay(ctx context.Context, from, to time.Time) ([]RevenuePoint, error)
	TopProducts(ctx context.Context, limit int) ([]TopProduct, error)
	PointsLiability(ctx context.Context) (PointsLiability, error)
	PromotionPerformance(ctx context.Context) ([]PromotionPerformance, error)
}

var ErrInvalidWindow = errors.New("invalid_window")
