package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertProduct(ctx context.Context, db *gorm.DB, product *Product) error
	SaveProduct(ctx context.Context, db *gorm.DB, product *Product) error
	FindProductByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Product, error)
	FindProductBySlug(ctx context.Context, db *gorm.DB, slug string) (*Product, error)
	ListProducts(ctx context.Context, db *gorm.DB, activeOnly bool) ([]*Product, error)
	ArchiveProduct(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)

	InsertVariant(ctx context.Context, db *gorm.DB, variant *Variant) error
	DeleteVariant(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)
	ListVariants(ctx context.Context, db *gorm.DB, productID snowflake.ID) ([]*Variant, error)

	DecrementProductStock(ctx context.Context, db *gorm.DB, id snowflake.ID, qty int64) (bool, error)
	DecrementVariantStock(ctx context.Context, db *gorm.DB, id snowflake.ID, qty int64) (bool, error)
	IncrementProductStock(ctx context.Context, db *gorm.DB, id snowflake.ID, qty int64) error
	IncrementVariantStock(ctx context.Context, db *gorm.DB, id snowflake.ID, qty int64) error

	InsertScent(ctx context.Context, db *gorm.DB, scent *Scent) error
	ListScents(ctx context.Context, db *gorm.DB) ([]*Scent, error)
	DeleteScent(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)
	InsertWickType(ctx context.Context, db *gorm.DB, wick *WickType) error
	ListWickTypes(ctx context.Context, db *gorm.DB) ([]*WickType, error)
	DeleteWickType(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)
	InsertContainer(ctx context.Context, db *gorm.DB, container *Container) error
	ListContainers(ctx context.Context, db *gorm.DB) ([]*Container, error)
	DeleteContainer(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)
}
