package repository

import (
	"context"

	"github.com/emberhollow/storefront/internal/refund/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, refund *domain.Refund) error {
	return db.WithContext(ctx).Create(refund).Error
}

func (r *repo) FindByProviderRefundID(ctx context.Context, db *gorm.DB, providerRefundID string) (*domain.Refund, error) {
	if providerRefundID == "" {
		return nil, nil
	}
	var refund domain.Refund
	err := db.WithContext(ctx).Where("provider_refund_id = ?", providerRefundID).First(&refund).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &refund, nil
}

func (r *repo) ListByOrder(ctx context.Context, db *gorm.DB, orderID string) ([]*domain.Refund, error) {
	var refunds []*domain.Refund
	err := db.WithContext(ctx).
		Preload("Items").
		Where("order_id = ?", orderID).
		Order("created_at desc, id desc").
		Find(&refunds).Error
	if err != nil {
		return nil, err
	}
	return refunds, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, limit int) ([]*domain.Refund, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var refunds []*domain.Refund
	err := db.WithContext(ctx).
		Preload("Items").
		Order("created_at desc, id desc").
		Limit(limit).
		Find(&refunds).Error
	if err != nil {
		return nil, err
	}
	return refunds, nil
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id string) (bool, error) {
	res := db.WithContext(ctx).Exec(`DELETE FROM refunds WHERE id = ?`, id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
