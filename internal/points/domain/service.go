package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertTransaction(ctx context.Context, db *gorm.DB, tx *PointsTransaction) error
	ListTransactions(ctx context.Context, db *gorm.DB, userID snowflake.ID, limit int) ([]*PointsTransaction, error)
	AddBalance(ctx context.Context, db *gorm.DB, userID snowflake.ID, delta int64) (bool, error)
	SubtractBalance(ctx context.Context, db *gorm.DB, userID snowflake.ID, amount int64) (bool, error)
	Balance(ctx context.Context, db *gorm.DB, userID snowflake.ID) (int64, bool, error)
	LedgerSums(ctx context.Context, db *gorm.DB) (map[snowflake.ID]int64, error)
	Balances(ctx context.Context, db *gorm.DB) (map[snowflake.ID]int64, error)
}

type Service interface {
	Award(ctx context.Context, userID snowflake.ID, orderID string, points int64) error
	Redeem(ctx context.Context, userID snowflake.ID, orderID string, points int64) error

	// AwardTx and RedeemTx join the caller's transaction so order
	// materialization commits the ledger rows with the order row.
	AwardTx(ctx context.Context, tx *gorm.DB, userID snowflake.ID, orderID string, points int64) error
	RedeemTx(ctx context.Context, tx *gorm.DB, userID snowflake.ID, orderID string, points int64) error
	AdjustTx(ctx context.Context, tx *gorm.DB, userID snowflake.ID, delta int64, note string) error
	Refund(ctx context.Context, userID snowflake.ID, orderID string, points int64) error
	Adjust(ctx context.Context, userID snowflake.ID, delta int64, note string) error
	Balance(ctx context.Context, userID snowflake.ID) (int64, error)
	Ledger(ctx context.Context, userID snowflake.ID, limit int) ([]PointsTransaction, error)
	Reconcile(ctx context.Context) ([]Drift, error)
}

var (
	ErrUserNotFound       = errors.New("user_not_found")
	ErrInvalidPoints      = errors.New("invalid_points")
	ErrInsufficientPoints = errors.New("insufficient_points")
)
