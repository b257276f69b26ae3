package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Purchase is one stock intake from a supplier. Creating it increments the
// stock counters of every referenced product or variant.
type Purchase struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Supplier  string       `gorm:"not null" json:"supplier"`
	Note      string       `json:"note,omitempty"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`

	Items []PurchaseItem `gorm:"foreignKey:PurchaseID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

type PurchaseItem struct {
	ID            snowflake.ID  `gorm:"primaryKey" json:"id"`
	PurchaseID    snowflake.ID  `gorm:"not null;index" json:"purchase_id"`
	ProductID     snowflake.ID  `gorm:"not null" json:"product_id"`
	VariantID     *snowflake.ID `json:"variant_id,omitempty"`
	Quantity      int64         `gorm:"not null" json:"quantity"`
	UnitCostCents int64         `gorm:"not null" json:"unit_cost_cents"`
}

type ItemRequest struct {
	ProductID     string `json:"product_id"`
	VariantID     string `json:"variant_id,omitempty"`
	Quantity      int64  `json:"quantity"`
	UnitCostCents int64  `json:"unit_cost_cents"`
}

type CreateRequest struct {
	Supplier string        `json:"supplier"`
	Note     string        `json:"note,omitempty"`
	Items    []ItemRequest `json:"items"`
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, purchase *Purchase) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Purchase, error)
	List(ctx context.Context, db *gorm.DB) ([]*Purchase, error)
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (Purchase, error)
	Get(ctx context.Context, id string) (Purchase, error)
	List(ctx context.Context) ([]Purchase, error)
	Delete(ctx context.Context, id string) error
}

var (
	ErrNotFound        = errors.New("not_found")
	ErrInvalidID       = errors.New("invalid_id")
	ErrInvalidSupplier = errors.New("invalid_supplier")
	ErrInvalidItems    = errors.New("invalid_items")
	ErrUnknownProduct  = errors.New("unknown_product")
)
