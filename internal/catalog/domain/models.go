package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Product struct {
	ID              snowflake.ID   `gorm:"primaryKey" json:"id"`
	Slug            string         `gorm:"uniqueIndex;not null" json:"slug"`
	Name            string         `gorm:"not null" json:"name"`
	Description     string         `json:"description,omitempty"`
	PriceCents      int64          `gorm:"not null" json:"price_cents"`
	Stock           int64          `gorm:"not null;default:0" json:"stock"`
	StripePriceID   string         `gorm:"index" json:"stripe_price_id,omitempty"`
	SquareCatalogID string         `gorm:"index" json:"square_catalog_id,omitempty"`
	Active          bool           `gorm:"not null;default:true" json:"active"`
	CreatedAt       time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

// Variant is a purchasable wick-type + scent combination with its own stock
// counter. Price falls back to the parent product when PriceCents is nil.
type Variant struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	ProductID  snowflake.ID `gorm:"not null;index;uniqueIndex:idx_variant_combo" json:"product_id"`
	WickType   string       `gorm:"not null;uniqueIndex:idx_variant_combo" json:"wick_type"`
	Scent      string       `gorm:"not null;uniqueIndex:idx_variant_combo" json:"scent"`
	Stock      int64        `gorm:"not null;default:0" json:"stock"`
	PriceCents *int64       `json:"price_cents,omitempty"`
	CreatedAt  time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time    `gorm:"not null" json:"updated_at"`
}

func (Variant) TableName() string { return "product_variants" }

type Scent struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"uniqueIndex;not null" json:"name"`
	Notes     string       `json:"notes,omitempty"`
	Active    bool         `gorm:"not null;default:true" json:"active"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
}

type WickType struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"uniqueIndex;not null" json:"name"`
	Active    bool         `gorm:"not null;default:true" json:"active"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
}

func (WickType) TableName() string { return "wick_types" }

type Container struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	Name       string       `gorm:"uniqueIndex;not null" json:"name"`
	CapacityOz float64      `json:"capacity_oz,omitempty"`
	Active     bool         `gorm:"not null;default:true" json:"active"`
	CreatedAt  time.Time    `gorm:"not null" json:"created_at"`
}
