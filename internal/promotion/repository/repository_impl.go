package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/emberhollow/storefront/internal/promotion/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, promo *domain.Promotion) error {
	return db.WithContext(ctx).Create(promo).Error
}

func (r *repo) Save(ctx context.Context, db *gorm.DB, promo *domain.Promotion) error {
	return db.WithContext(ctx).Save(promo).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Promotion, error) {
	var promo domain.Promotion
	err := db.WithContext(ctx).Where("id = ?", id).First(&promo).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &promo, nil
}

func (r *repo) FindByCode(ctx context.Context, db *gorm.DB, code string) (*domain.Promotion, error) {
	var promo domain.Promotion
	err := db.WithContext(ctx).Where("code = ?", code).First(&promo).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &promo, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB) ([]*domain.Promotion, error) {
	var promos []*domain.Promotion
	if err := db.WithContext(ctx).Order("created_at desc, id desc").Find(&promos).Error; err != nil {
		return nil, err
	}
	return promos, nil
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error) {
	res := db.WithContext(ctx).Exec(`DELETE FROM promotions WHERE id = ?`, id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) IncrementRedemptions(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE promotions
		 SET current_redemptions = current_redemptions + 1, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND (max_redemptions = 0 OR current_redemptions < max_redemptions)`,
		id,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) InsertRedemption(ctx context.Context, db *gorm.DB, redemption *domain.PromotionRedemption) error {
	return db.WithContext(ctx).Create(redemption).Error
}

func (r *repo) CountRedemptionsByCustomer(ctx context.Context, db *gorm.DB, promotionID snowflake.ID, email string, userID *snowflake.ID) (int64, error) {
	var count int64
	stmt := db.WithContext(ctx).Model(&domain.PromotionRedemption{}).Where("promotion_id = ?", promotionID)
	if userID != nil {
		stmt = stmt.Where("user_id = ? OR email = ?", *userID, email)
	} else {
		stmt = stmt.Where("email = ?", email)
	}
	if err := stmt.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repo) ListRedemptions(ctx context.Context, db *gorm.DB, promotionID snowflake.ID) ([]*domain.PromotionRedemption, error) {
	var rows []*domain.PromotionRedemption
	err := db.WithContext(ctx).
		Where("promotion_id = ?", promotionID).
		Order("redeemed_at desc, id desc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) DeactivateExpired(ctx context.Context, db *gorm.DB) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE promotions
		 SET active = FALSE, updated_at = CURRENT_TIMESTAMP
		 WHERE active = TRUE AND expires_at IS NOT NULL AND expires_at < CURRENT_TIMESTAMP`,
	)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
