package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Reason strings returned by Validate when a code does not apply. They are
// part of the public API surface, not just log text.
const (
	ReasonNotFound        = "code_not_found"
	ReasonInactive        = "code_inactive"
	ReasonNotStarted      = "not_started"
	ReasonExpired         = "expired"
	ReasonExhausted       = "fully_redeemed"
	ReasonCustomerLimit   = "customer_limit_reached"
	ReasonMinOrder        = "minimum_order_not_met"
	ReasonNotEligible     = "not_eligible"
	ReasonNoEligibleItems = "no_eligible_items"
)

type VItem struct {
	Slug      string
	Quantity  int64
	UnitCents int64
}

// VContext carries everything Validate needs to evaluate targeting without
// reaching back into other services.
type VContext struct {
	UserID          *snowflake.ID
	Email           string
	Guest           bool
	PriorOrderCount int64
	PriorSpendCents int64
	Items           []VItem
	SubtotalCents   int64
}

type ValidationResult struct {
	Valid         bool         `json:"valid"`
	Reason        string       `json:"reason,omitempty"`
	PromotionID   snowflake.ID `json:"promotion_id,omitempty"`
	Code          string       `json:"code,omitempty"`
	DiscountCents int64        `json:"discount_cents,omitempty"`
}

type CreatePromotionRequest struct {
	Code             string
	Type             string
	Percent          int64
	AmountCents      int64
	MaxRedemptions   int64
	PerCustomerLimit int64
	MinOrderCents    int64
	Targeting        string
	AllowList        []string
	MinOrderCount    int64
	MinSpendCents    int64
	ProductSlugs     []string
	StartsAt         *string
	ExpiresAt        *string
}

type UpdatePromotionRequest struct {
	ID             string
	Active         *bool
	MaxRedemptions *int64
	MinOrderCents  *int64
	ExpiresAt      *string
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, promo *Promotion) error
	Save(ctx context.Context, db *gorm.DB, promo *Promotion) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Promotion, error)
	FindByCode(ctx context.Context, db *gorm.DB, code string) (*Promotion, error)
	List(ctx context.Context, db *gorm.DB) ([]*Promotion, error)
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)

	// IncrementRedemptions succeeds only while the global cap allows it.
	IncrementRedemptions(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)
	InsertRedemption(ctx context.Context, db *gorm.DB, redemption *PromotionRedemption) error
	CountRedemptionsByCustomer(ctx context.Context, db *gorm.DB, promotionID snowflake.ID, email string, userID *snowflake.ID) (int64, error)
	ListRedemptions(ctx context.Context, db *gorm.DB, promotionID snowflake.ID) ([]*PromotionRedemption, error)
	DeactivateExpired(ctx context.Context, db *gorm.DB) (int64, error)
}

type Service interface {
	Create(ctx context.Context, req CreatePromotionRequest) (Promotion, error)
	Update(ctx context.Context, req UpdatePromotionRequest) (Promotion, error)
	Get(ctx context.Context, id string) (Promotion, error)
	List(ctx context.Context) ([]Promotion, error)
	Delete(ctx context.Context, id string) error

	Validate(ctx context.Context, code string, vctx VContext) (ValidationResult, error)
	Redeem(ctx context.Context, tx *gorm.DB, promotionID snowflake.ID, email string, userID *snowflake.ID, orderID string, discountCents int64) error
	DeactivateExpired(ctx context.Context) (int64, error)
}

var (
	ErrNotFound    = errors.New("not_found")
	ErrInvalidID   = errors.New("invalid_id")
	ErrInvalidCode = errors.New("invalid_code")
	ErrInvalidType = errors.New("invalid_type")
	ErrDuplicate   = errors.New("duplicate_code")
	ErrCapExceeded = errors.New("cap_exceeded")
)
