package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/emberhollow/storefront/internal/points/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertTransaction(ctx context.Context, db *gorm.DB, tx *domain.PointsTransaction) error {
	return db.WithContext(ctx).Create(tx).Error
}

func (r *repo) ListTransactions(ctx context.Context, db *gorm.DB, userID snowflake.ID, limit int) ([]*domain.PointsTransaction, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var rows []*domain.PointsTransaction
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc, id desc").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) AddBalance(ctx context.Context, db *gorm.DB, userID snowflake.ID, delta int64) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE users
		 SET points = points + ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`,
		delta, userID,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// SubtractBalance only succeeds when the stored balance covers the amount.
func (r *repo) SubtractBalance(ctx context.Context, db *gorm.DB, userID snowflake.ID, amount int64) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE users
		 SET points = points - ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL AND points >= ?`,
		amount, userID, amount,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) Balance(ctx context.Context, db *gorm.DB, userID snowflake.ID) (int64, bool, error) {
	var rows []int64
	err := db.WithContext(ctx).Raw(
		`SELECT points FROM users WHERE id = ? AND deleted_at IS NULL`,
		userID,
	).Scan(&rows).Error
	if err != nil {
		return 0, false, err
	}
	if len(rows) == 0 {
		return 0, false, nil
	}
	return rows[0], true, nil
}

func (r *repo) LedgerSums(ctx context.Context, db *gorm.DB) (map[snowflake.ID]int64, error) {
	var rows []struct {
		UserID snowflake.ID
		Total  int64
	}
	err := db.WithContext(ctx).Raw(
		`SELECT user_id, COALESCE(SUM(delta), 0) AS total
		 FROM points_transactions
		 GROUP BY user_id`,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	sums := make(map[snowflake.ID]int64, len(rows))
	for _, row := range rows {
		sums[row.UserID] = row.Total
	}
	return sums, nil
}

func (r *repo) Balances(ctx context.Context, db *gorm.DB) (map[snowflake.ID]int64, error) {
	var rows []struct {
		ID     snowflake.ID
		Points int64
	}
	err := db.WithContext(ctx).Raw(
		`SELECT id, points FROM users WHERE deleted_at IS NULL`,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	balances := make(map[snowflake.ID]int64, len(rows))
	for _, row := range rows {
		balances[row.ID] = row.Points
	}
	return balances, nil
}
