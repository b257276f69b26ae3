package domain

import (
	"context"
	"errors"

	orderdomain "github.com/emberhollow/storefront/internal/order/domain"
	"gorm.io/gorm"
)

type CreateItemRequest struct {
	Slug     string
	Quantity int64
}

type CreateRequest struct {
	OrderID        string
	Items          []CreateItemRequest
	Reason         string
	Restock        bool
	ClawbackPoints bool
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, refund *Refund) error
	FindByProviderRefundID(ctx context.Context, db *gorm.DB, providerRefundID string) (*Refund, error)
	ListByOrder(ctx context.Context, db *gorm.DB, orderID string) ([]*Refund, error)
	List(ctx context.Context, db *gorm.DB, limit int) ([]*Refund, error)
	Delete(ctx context.Context, db *gorm.DB, id string) (bool, error)
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (Refund, error)
	HandleProviderRefund(ctx context.Context, event orderdomain.RefundEvent) error
	ListByOrder(ctx context.Context, orderID string) ([]Refund, error)
	List(ctx context.Context, limit int) ([]Refund, error)
}

var (
	ErrOrderNotFound    = errors.New("order_not_found")
	ErrOrderNotRefunded = errors.New("order_not_refundable")
	ErrInvalidItems     = errors.New("invalid_items")
	ErrOverRefund       = errors.New("refund_exceeds_order")
)
