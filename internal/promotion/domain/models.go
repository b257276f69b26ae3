package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

const (
	TypePercentage = "percentage"
	TypeFixed      = "fixed"
)

const (
	TargetAll       = "all"
	TargetFirstTime = "first_time"
	TargetAllowList = "allow_list"
	TargetMinOrders = "min_orders"
	TargetMinSpend  = "min_spend"
)

type Promotion struct {
	ID                 snowflake.ID   `gorm:"primaryKey" json:"id"`
	Code               string         `gorm:"uniqueIndex;not null" json:"code"`
	Type               string         `gorm:"not null" json:"type"`
	Percent            int64          `json:"percent,omitempty"`
	AmountCents        int64          `json:"amount_cents,omitempty"`
	MaxRedemptions     int64          `gorm:"not null;default:0" json:"max_redemptions"`
	CurrentRedemptions int64          `gorm:"not null;default:0" json:"current_redemptions"`
	PerCustomerLimit   int64          `gorm:"not null;default:0" json:"per_customer_limit"`
	MinOrderCents      int64          `gorm:"not null;default:0" json:"min_order_cents"`
	Targeting          string         `gorm:"not null;default:all" json:"targeting"`
	AllowList          datatypes.JSON `json:"allow_list,omitempty"`
	MinOrderCount      int64          `json:"min_order_count,omitempty"`
	MinSpendCents      int64          `json:"min_spend_cents,omitempty"`
	ProductSlugs       datatypes.JSON `json:"product_slugs,omitempty"`
	StartsAt           *time.Time     `json:"starts_at,omitempty"`
	ExpiresAt          *time.Time     `json:"expires_at,omitempty"`
	Active             bool           `gorm:"not null;default:true" json:"active"`
	CreatedAt          time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"not null" json:"updated_at"`
}

type PromotionRedemption struct {
	ID            snowflake.ID  `gorm:"primaryKey" json:"id"`
	PromotionID   snowflake.ID  `gorm:"not null;index" json:"promotion_id"`
	UserID        *snowflake.ID `gorm:"index" json:"user_id,omitempty"`
	Email         string        `gorm:"not null;index" json:"email"`
	OrderID       string        `gorm:"not null" json:"order_id"`
	DiscountCents int64         `gorm:"not null" json:"discount_cents"`
	RedeemedAt    time.Time     `gorm:"not null" json:"redeemed_at"`
}

func (PromotionRedemption) TableName() string { return "promotion_redemptions" }
