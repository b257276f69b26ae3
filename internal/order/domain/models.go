package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

const (
	ShippingStatusUnshipped = "unshipped"
	ShippingStatusShipped   = "shipped"
	ShippingStatusDelivered = "delivered"
)

// Order is keyed by the provider's session or payment id so a redelivered
// webhook lands on the same row.
type Order struct {
	ID                   string        `gorm:"primaryKey" json:"id"`
	Provider             string        `gorm:"not null" json:"provider"`
	UserID               *snowflake.ID `gorm:"index" json:"user_id,omitempty"`
	Email                string        `gorm:"index" json:"email"`
	Status               string        `gorm:"not null;default:pending" json:"status"`
	TotalCents           int64         `gorm:"not null;default:0" json:"total_cents"`
	ProductSubtotalCents int64         `gorm:"not null;default:0" json:"product_subtotal_cents"`
	ShippingCents        int64         `gorm:"not null;default:0" json:"shipping_cents"`
	TaxCents             int64         `gorm:"not null;default:0" json:"tax_cents"`
	DiscountCents        int64         `gorm:"not null;default:0" json:"discount_cents"`
	PointsEarned         int64         `gorm:"not null;default:0" json:"points_earned"`
	PointsRedeemed       int64         `gorm:"not null;default:0" json:"points_redeemed"`
	PromotionID          *snowflake.ID `json:"promotion_id,omitempty"`
	ShippingStatus       string        `gorm:"not null;default:unshipped" json:"shipping_status"`
	Carrier              string        `json:"carrier,omitempty"`
	TrackingNumber       string        `json:"tracking_number,omitempty"`
	CreatedAt            time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt            time.Time     `gorm:"not null" json:"updated_at"`
	CompletedAt          *time.Time    `json:"completed_at,omitempty"`

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"`
}

type OrderItem struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	OrderID   string       `gorm:"not null;index" json:"order_id"`
	Slug      string       `json:"slug,omitempty"`
	Name      string       `gorm:"not null" json:"name"`
	WickType  string       `json:"wick_type,omitempty"`
	Scent     string       `json:"scent,omitempty"`
	Quantity  int64        `gorm:"not null" json:"quantity"`
	UnitCents int64        `gorm:"not null" json:"unit_cents"`
	Unmapped  bool         `gorm:"not null;default:false" json:"unmapped"`
}

// OrderAlert records a materialization anomaly for an operator to look at.
// Nothing reprocesses automatically off the back of one.
type OrderAlert struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	OrderID   string       `gorm:"not null;index" json:"order_id"`
	Kind      string       `gorm:"not null" json:"kind"`
	Detail    string       `json:"detail,omitempty"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
}

const (
	AlertKindTotalMismatch = "total_mismatch"
	AlertKindStockShort    = "stock_short"
)
