package service

import (
	"context"
	"time"

	"github.com/emberhollow/storefront/internal/analytics/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
}

// Service answers admin reporting queries. These are read models bound
// straight to SQL; nothing here mutates state.
type Service struct {
	db  *gorm.DB
	log *zap.Logger
}

func New(p Params) domain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("analytics.service"),
	}
}

func (s *Service) RevenueByDay(ctx context.Context, from, to time.Time) ([]domain.RevenuePoint, error) {
	if !to.After(from) {
		return nil, domain.ErrInvalidWindow
	}

	var points []domain.RevenuePoint
	err := s.db.WithContext(ctx).Raw(`
		SELECT DATE(completed_at) AS day,
		       COUNT(*) AS orders,
		       COALESCE(SUM(total_cents), 0) AS revenue_cents
		FROM orders
		WHERE status = 'completed' AND completed_at >= ? AND completed_at < ?
		GROUP BY DATE(completed_at)
		ORDER BY day ASC`,
		from, to,
	).Scan(&points).Error
	return points, err
}

func (s *Service) TopProducts(ctx context.Context, limit int) ([]domain.TopProduct, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	var products []domain.TopProduct
	err := s.db.WithContext(ctx).Raw(`
		SELECT oi.slug AS slug,
		       oi.name AS name,
		       SUM(oi.quantity) AS quantity,
		       SUM(oi.quantity * oi.unit_cents) AS revenue_cents
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		WHERE o.status = 'completed'
		GROUP BY oi.slug, oi.name
		ORDER BY quantity DESC
		LIMIT ?`,
		limit,
	).Scan(&products).Error
	return products, err
}

func (s *Service) PointsLiability(ctx context.Context) (domain.PointsLiability, error) {
	var liability domain.PointsLiability
	err := s.db.WithContext(ctx).Raw(`
		SELECT COALESCE(SUM(points), 0) FROM users WHERE deleted_at IS NULL`,
	).Scan(&liability.OutstandingPoints).Error
	if err != nil {
		return domain.PointsLiability{}, err
	}

	// An account drifts when its balance column disagrees with its ledger.
	err = s.db.WithContext(ctx).Raw(`
		SELECT COUNT(*) FROM (
			SELECT u.id
			FROM users u
			LEFT JOIN points_transactions pt ON pt.user_id = u.id
			WHERE u.deleted_at IS NULL
			GROUP BY u.id, u.points
			HAVING u.points <> COALESCE(SUM(pt.delta), 0)
		) drift`,
	).Scan(&liability.AccountsWithDrift).Error
	if err != nil {
		return domain.PointsLiability{}, err
	}
	return liability, nil
}

func (s *Service) PromotionPerformance(ctx context.Context) ([]domain.PromotionPerformance, error) {
	var rows []domain.PromotionPerformance
	err := s.db.WithContext(ctx).Raw(`
		SELECT p.id AS promotion_id,
		       p.code AS code,
		       COUNT(pr.id) AS redemptions,
		       COALESCE(SUM(pr.discount_cents), 0) AS discount_cents
		FROM promotions p
		LEFT JOIN promotion_redemptions pr ON pr.promotion_id = p.id
		GROUP BY p.id, p.code
		ORDER BY redemptions DESC, p.code ASC`,
	).Scan(&rows).Error
	return rows, err
}
