package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Review struct {
	ID        snowflake.ID  `gorm:"primaryKey" json:"id"`
	ProductID snowflake.ID  `gorm:"not null;index" json:"product_id"`
	UserID    *snowflake.ID `gorm:"index" json:"user_id,omitempty"`
	Email     string        `gorm:"not null" json:"email"`
	Rating    int           `gorm:"not null" json:"rating"`
	Title     string        `json:"title,omitempty"`
	Body      string        `json:"body,omitempty"`
	Approved  bool          `gorm:"not null;default:false" json:"approved"`
	CreatedAt time.Time     `gorm:"not null" json:"created_at"`
}

type CreateRequest struct {
	ProductSlug string        `json:"-"`
	UserID      *snowflake.ID `json:"-"`
	Email       string        `json:"email,omitempty"`
	Rating      int           `json:"rating"`
	Title       string        `json:"title,omitempty"`
	Body        string        `json:"body,omitempty"`
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, review *Review) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Review, error)
	ListApprovedByProduct(ctx context.Context, db *gorm.DB, productID snowflake.ID) ([]*Review, error)
	ListPending(ctx context.Context, db *gorm.DB) ([]*Review, error)
	SetApproved(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)
}

// Service covers the public submit/list surface plus admin moderation.
// New reviews stay hidden until approved.
type Service interface {
	Create(ctx context.Context, req CreateRequest) (Review, error)
	ListApproved(ctx context.Context, productSlug string) ([]Review, error)
	ListPending(ctx context.Context) ([]Review, error)
	Approve(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

var (
	ErrNotFound        = errors.New("not_found")
	ErrProductNotFound = errors.New("product_not_found")
	ErrInvalidRating   = errors.New("invalid_rating")
	ErrInvalidID       = errors.New("invalid_id")
	ErrEmailRequired   = errors.New("email_required")
)
