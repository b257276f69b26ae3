package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type CreateProductRequest struct {
	Name            string
	Description     string
	PriceCents      int64
	Stock           int64
	StripePriceID   string
	SquareCatalogID string
}

type UpdateProductRequest struct {
	ID              string
	Name            *string
	Description     *string
	PriceCents      *int64
	Stock           *int64
	StripePriceID   *string
	SquareCatalogID *string
	Active          *bool
}

type ListProductsRequest struct {
	ActiveOnly bool
	PageToken  string
	PageSize   int32
}

type CreateVariantRequest struct {
	ProductID  string
	WickType   string
	Scent      string
	Stock      int64
	PriceCents *int64
}

// StockRef points at the counter a fulfillment line decrements: variant-level
// when VariantID is set, product-level otherwise.
type StockRef struct {
	ProductID snowflake.ID
	VariantID snowflake.ID
}

type Service interface {
	CreateProduct(context.Context, CreateProductRequest) (Product, error)
	UpdateProduct(context.Context, UpdateProductRequest) (Product, error)
	ArchiveProduct(ctx context.Context, id string) error
	GetProductBySlug(ctx context.Context, slug string) (Product, []Variant, error)
	ListProducts(context.Context, ListProductsRequest) ([]Product, error)

	CreateVariant(context.Context, CreateVariantRequest) (Variant, error)
	DeleteVariant(ctx context.Context, id string) error

	CreateScent(ctx context.Context, name, notes string) (Scent, error)
	ListScents(ctx context.Context) ([]Scent, error)
	DeleteScent(ctx context.Context, id string) error
	CreateWickType(ctx context.Context, name string) (WickType, error)
	ListWickTypes(ctx context.Context) ([]WickType, error)
	DeleteWickType(ctx context.Context, id string) error
	CreateContainer(ctx context.Context, name string, capacityOz float64) (Container, error)
	ListContainers(ctx context.Context) ([]Container, error)
	DeleteContainer(ctx context.Context, id string) error

	DecrementStock(ctx context.Context, ref StockRef, qty int64) error
	IncrementStock(ctx context.Context, ref StockRef, qty int64) error

	NewResolver(ctx context.Context) (*Resolver, error)
}

var (
	ErrNotFound          = errors.New("not_found")
	ErrInvalidID         = errors.New("invalid_id")
	ErrInvalidName       = errors.New("invalid_name")
	ErrInvalidPrice      = errors.New("invalid_price")
	ErrInvalidQuantity   = errors.New("invalid_quantity")
	ErrDuplicateSlug     = errors.New("duplicate_slug")
	ErrDuplicateVariant  = errors.New("duplicate_variant")
	ErrInsufficientStock = errors.New("insufficient_stock")
)
