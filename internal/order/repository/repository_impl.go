package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/emberhollow/storefront/internal/order/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, order *domain.Order) error {
	return db.WithContext(ctx).Omit("Items").Create(order).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id string) (*domain.Order, error) {
	var order domain.Order
	err := db.WithContext(ctx).Where("id = ?", id).First(&order).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repo) FindByIDWithItems(ctx context.Context, db *gorm.DB, id string) (*domain.Order, error) {
	order, err := r.FindByID(ctx, db, id)
	if err != nil || order == nil {
		return order, err
	}
	if err := db.WithContext(ctx).
		Where("order_id = ?", id).
		Order("id").
		Find(&order.Items).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, req domain.ListOrdersRequest) ([]*domain.Order, error) {
	limit := req.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	stmt := db.WithContext(ctx).Model(&domain.Order{})
	if req.Status != "" {
		stmt = stmt.Where("status = ?", req.Status)
	}
	if req.Email != "" {
		stmt = stmt.Where("email = ?", req.Email)
	}
	var orders []*domain.Order
	if err := stmt.Order("created_at desc, id desc").Limit(limit).Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repo) ListByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID, limit int) ([]*domain.Order, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var orders []*domain.Order
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc, id desc").
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repo) CompletePending(ctx context.Context, db *gorm.DB, order *domain.Order) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE orders
		 SET status = ?, user_id = ?, email = ?, total_cents = ?,
		     product_subtotal_cents = ?, shipping_cents = ?, tax_cents = ?,
		     discount_cents = ?, points_earned = ?, points_redeemed = ?,
		     promotion_id = ?, completed_at = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND status = ?`,
		domain.StatusCompleted, order.UserID, order.Email, order.TotalCents,
		order.ProductSubtotalCents, order.ShippingCents, order.TaxCents,
		order.DiscountCents, order.PointsEarned, order.PointsRedeemed,
		order.PromotionID, order.CompletedAt,
		order.ID, domain.StatusPending,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) UpdateShipping(ctx context.Context, db *gorm.DB, req domain.UpdateShippingRequest) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE orders
		 SET shipping_status = ?, carrier = ?, tracking_number = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND status = ?`,
		req.ShippingStatus, req.Carrier, req.TrackingNumber,
		req.OrderID, domain.StatusCompleted,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) Cancel(ctx context.Context, db *gorm.DB, id string) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE orders
		 SET status = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND status = ?`,
		domain.StatusCancelled, id, domain.StatusPending,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) InsertItems(ctx context.Context, db *gorm.DB, items []domain.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&items).Error
}

func (r *repo) DeleteItems(ctx context.Context, db *gorm.DB, orderID string) error {
	return db.WithContext(ctx).Exec(`DELETE FROM order_items WHERE order_id = ?`, orderID).Error
}

func (r *repo) InsertAlert(ctx context.Context, db *gorm.DB, alert *domain.OrderAlert) error {
	return db.WithContext(ctx).Create(alert).Error
}

func (r *repo) ListAlerts(ctx context.Context, db *gorm.DB, limit int) ([]*domain.OrderAlert, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var alerts []*domain.OrderAlert
	err := db.WithContext(ctx).
		Order("created_at desc, id desc").
		Limit(limit).
		Find(&alerts).Error
	if err != nil {
		return nil, err
	}
	return alerts, nil
}

func (r *repo) CountCompletedByEmail(ctx context.Context, db *gorm.DB, email string) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Model(&domain.Order{}).
		Where("email = ? AND status = ?", email, domain.StatusCompleted).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repo) SumCompletedByEmail(ctx context.Context, db *gorm.DB, email string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(total_cents), 0)
		 FROM orders
		 WHERE email = ? AND status = ?`,
		email, domain.StatusCompleted,
	).Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}
