package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/emberhollow/storefront/internal/purchase/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, purchase *domain.Purchase) error {
	return db.WithContext(ctx).Create(purchase).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Purchase, error) {
	var purchase domain.Purchase
	err := db.WithContext(ctx).Preload("Items").Where("id = ?", id).First(&purchase).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &purchase, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB) ([]*domain.Purchase, error) {
	var purchases []*domain.Purchase
	err := db.WithContext(ctx).Preload("Items").Order("created_at DESC").Find(&purchases).Error
	return purchases, err
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error) {
	if err := db.WithContext(ctx).Exec(
		"DELETE FROM purchase_items WHERE purchase_id = ?", id,
	).Error; err != nil {
		return false, err
	}
	result := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Purchase{})
	return result.RowsAffected > 0, result.Error
}
