package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/emberhollow/storefront/internal/review/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, review *domain.Review) error {
	return db.WithContext(ctx).Create(review).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Review, error) {
	var review domain.Review
	err := db.WithContext(ctx).Where("id = ?", id).First(&review).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *repo) ListApprovedByProduct(ctx context.Context, db *gorm.DB, productID snowflake.ID) ([]*domain.Review, error) {
	var reviews []*domain.Review
	err := db.WithContext(ctx).
		Where("product_id = ? AND approved = ?", productID, true).
		Order("created_at DESC").
		Find(&reviews).Error
	return reviews, err
}

func (r *repo) ListPending(ctx context.Context, db *gorm.DB) ([]*domain.Review, error) {
	var reviews []*domain.Review
	err := db.WithContext(ctx).
		Where("approved = ?", false).
		Order("created_at ASC").
		Find(&reviews).Error
	return reviews, err
}

func (r *repo) SetApproved(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error) {
	result := db.WithContext(ctx).Exec(
		"UPDATE reviews SET approved = TRUE WHERE id = ?", id,
	)
	return result.RowsAffected > 0, result.Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error) {
	result := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Review{})
	return result.RowsAffected > 0, result.Error
}
