package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type CreatePendingRequest struct {
	ID             string
	Provider       string
	UserID         *snowflake.ID
	Email          string
	TotalCents     int64
	DiscountCents  int64
	PromotionID    *snowflake.ID
	PointsRedeemed int64
}

type ListOrdersRequest struct {
	Status string
	Email  string
	Limit  int
}

type UpdateShippingRequest struct {
	OrderID        string
	ShippingStatus string
	Carrier        string
	TrackingNumber string
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, order *Order) error
	FindByID(ctx context.Context, db *gorm.DB, id string) (*Order, error)
	FindByIDWithItems(ctx context.Context, db *gorm.DB, id string) (*Order, error)
	List(ctx context.Context, db *gorm.DB, req ListOrdersRequest) ([]*Order, error)
	ListByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID, limit int) ([]*Order, error)

	// CompletePending flips pending to completed and writes the event totals
	// in the same statement. Zero rows means another delivery won the race or
	// the order was already completed.
	CompletePending(ctx context.Context, db *gorm.DB, order *Order) (bool, error)
	UpdateShipping(ctx context.Context, db *gorm.DB, req UpdateShippingRequest) (bool, error)
	Cancel(ctx context.Context, db *gorm.DB, id string) (bool, error)

	InsertItems(ctx context.Context, db *gorm.DB, items []OrderItem) error
	DeleteItems(ctx context.Context, db *gorm.DB, orderID string) error
	InsertAlert(ctx context.Context, db *gorm.DB, alert *OrderAlert) error
	ListAlerts(ctx context.Context, db *gorm.DB, limit int) ([]*OrderAlert, error)

	CountCompletedByEmail(ctx context.Context, db *gorm.DB, email string) (int64, error)
	SumCompletedByEmail(ctx context.Context, db *gorm.DB, email string) (int64, error)
}

type Service interface {
	CreatePending(ctx context.Context, req CreatePendingRequest) (Order, error)
	Materialize(ctx context.Context, event CheckoutEvent) error

	Get(ctx context.Context, id string) (Order, error)
	List(ctx context.Context, req ListOrdersRequest) ([]Order, error)
	ListByUser(ctx context.Context, userID snowflake.ID, limit int) ([]Order, error)
	UpdateShipping(ctx context.Context, req UpdateShippingRequest) error
	Cancel(ctx context.Context, id string) error
	ListAlerts(ctx context.Context, limit int) ([]OrderAlert, error)

	PriorOrderStats(ctx context.Context, email string) (count int64, spendCents int64, err error)
}

var (
	ErrNotFound       = errors.New("not_found")
	ErrInvalidOrder   = errors.New("invalid_order")
	ErrInvalidStatus  = errors.New("invalid_status")
	ErrAlreadyExists  = errors.New("order_exists")
	ErrNotCancellable = errors.New("not_cancellable")
)
