package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Refund struct {
	ID               snowflake.ID `gorm:"primaryKey" json:"id"`
	OrderID          string       `gorm:"not null;index" json:"order_id"`
	ProviderRefundID string       `gorm:"uniqueIndex" json:"provider_refund_id,omitempty"`
	TotalCents       int64        `gorm:"not null" json:"total_cents"`
	PointsClawedBack int64        `gorm:"not null;default:0" json:"points_clawed_back"`
	Reason           string       `json:"reason,omitempty"`
	CreatedAt        time.Time    `gorm:"not null" json:"created_at"`

	Items []RefundItem `gorm:"foreignKey:RefundID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

type RefundItem struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	RefundID  snowflake.ID `gorm:"not null;index" json:"refund_id"`
	Slug      string       `json:"slug,omitempty"`
	Name      string       `gorm:"not null" json:"name"`
	Quantity  int64        `gorm:"not null" json:"quantity"`
	UnitCents int64        `gorm:"not null" json:"unit_cents"`
}
