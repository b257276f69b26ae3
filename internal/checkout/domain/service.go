package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

const (
	ProviderStripe = "stripe"
	ProviderSquare = "square"
)

// ItemRequest identifies one line of the cart, either by provider price
// reference or by slug plus variant attributes.
type ItemRequest struct {
	PriceRef string `json:"price_ref,omitempty"`
	Slug     string `json:"slug,omitempty"`
	WickType string `json:"wick_type,omitempty"`
	Scent    string `json:"scent,omitempty"`
	Quantity int64  `json:"quantity"`
}

type CreateSessionRequest struct {
	Provider       string        `json:"provider,omitempty"`
	Email          string        `json:"email,omitempty"`
	UserID         *snowflake.ID `json:"-"`
	Items          []ItemRequest `json:"items"`
	PromotionCode  string        `json:"promotion_code,omitempty"`
	PointsToRedeem int64         `json:"points_to_redeem,omitempty"`
}

// Session is the hosted-checkout handle returned to the browser. OrderID is
// the provider session id the pending order row is keyed by.
type Session struct {
	OrderID        string `json:"order_id"`
	URL            string `json:"url"`
	Provider       string `json:"provider"`
	SubtotalCents  int64  `json:"subtotal_cents"`
	DiscountCents  int64  `json:"discount_cents"`
	PointsRedeemed int64  `json:"points_redeemed"`
}

type Service interface {
	CreateSession(ctx context.Context, req CreateSessionRequest) (Session, error)
}

var (
	ErrNoItems           = errors.New("no_items")
	ErrInvalidQuantity   = errors.New("invalid_quantity")
	ErrUnknownItem       = errors.New("unknown_item")
	ErrEmailRequired     = errors.New("email_required")
	ErrPromotionRejected = errors.New("promotion_rejected")
	ErrInvalidProvider   = errors.New("invalid_provider")
	ErrProviderFailure   = errors.New("provider_failure")
)
