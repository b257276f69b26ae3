package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/emberhollow/storefront/internal/catalog/domain"
	orderdomain "github.com/emberhollow/storefront/internal/order/domain"
	pointsdomain "github.com/emberhollow/storefront/internal/points/domain"
	"github.com/emberhollow/storefront/internal/refund/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Repo        domain.Repository
	OrderSvc    orderdomain.Service
	CatalogSvc  catalogdomain.Service
	CatalogRepo catalogdomain.Repository
	PointsSvc   pointsdomain.Service
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	repo        domain.Repository
	orderSvc    orderdomain.Service
	catalogSvc  catalogdomain.Service
	catalogRepo catalogdomain.Repository
	pointsSvc   pointsdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("refund.service"),
		genID:       p.GenID,
		repo:        p.Repo,
		orderSvc:    p.OrderSvc,
		catalogSvc:  p.CatalogSvc,
		catalogRepo: p.CatalogRepo,
		pointsSvc:   p.PointsSvc,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (domain.Refund, error) {
	order, err := s.orderSvc.Get(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, orderdomain.ErrNotFound) {
			return domain.Refund{}, domain.ErrOrderNotFound
		}
		return domain.Refund{}, err
	}
	if order.Status != orderdomain.StatusCompleted {
		return domain.Refund{}, domain.ErrOrderNotRefunded
	}
	if len(req.Items) == 0 {
		return domain.Refund{}, domain.ErrInvalidItems
	}

	prior, err := s.repo.ListByOrder(ctx, s.db, order.ID)
	if err != nil {
		return domain.Refund{}, err
	}
	refundedQty := map[string]int64{}
	for _, refund := range prior {
		for _, item := range refund.Items {
			refundedQty[item.Slug] += item.Quantity
		}
	}

	orderedBySlug := map[string]orderdomain.OrderItem{}
	for _, item := range order.Items {
		orderedBySlug[item.Slug] = item
	}

	now := time.Now().UTC()
	refund := domain.Refund{
		ID:        s.genID.Generate(),
		OrderID:   order.ID,
		Reason:    strings.TrimSpace(req.Reason),
		CreatedAt: now,
	}
	for _, reqItem := range req.Items {
		ordered, ok := orderedBySlug[reqItem.Slug]
		if !ok || reqItem.Quantity <= 0 {
			return domain.Refund{}, domain.ErrInvalidItems
		}
		if refundedQty[reqItem.Slug]+reqItem.Quantity > ordered.Quantity {
			return domain.Refund{}, domain.ErrOverRefund
		}
		refund.Items = append(refund.Items, domain.RefundItem{
			ID:        s.genID.Generate(),
			RefundID:  refund.ID,
			Slug:      ordered.Slug,
			Name:      ordered.Name,
			Quantity:  reqItem.Quantity,
			UnitCents: ordered.UnitCents,
		})
		refund.TotalCents += ordered.UnitCents * reqItem.Quantity
	}

	clawback := int64(0)
	if req.ClawbackPoints && order.UserID != nil && order.PointsEarned > 0 && order.ProductSubtotalCents > 0 {
		clawback = order.PointsEarned * refund.TotalCents / order.ProductSubtotalCents
	}
	refund.PointsClawedBack = clawback

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if clawback > 0 {
			// Clawback is an admin adjustment; the balance may go negative.
			if err := s.pointsSvc.AdjustTx(ctx, tx, *order.UserID, -clawback, "refund "+refund.ID.String()); err != nil {
				return err
			}
		}
		if err := s.repo.Insert(ctx, tx, &refund); err != nil {
			return err
		}
		if req.Restock {
			return s.restock(ctx, tx, refund.Items)
		}
		return nil
	})
	if err != nil {
		return domain.Refund{}, err
	}

	s.log.Info("refund created",
		zap.String("order_id", order.ID),
		zap.Int64("total_cents", refund.TotalCents),
	)
	return refund, nil
}

func (s *Service) restock(ctx context.Context, tx *gorm.DB, items []domain.RefundItem) error {
	resolver, err := s.catalogSvc.NewResolver(ctx)
	if err != nil {
		return err
	}
	for _, item := range items {
		resolved, ok := resolver.Resolve(catalogdomain.Line{Slug: item.Slug, Quantity: item.Quantity})
		if !ok {
			s.log.Warn("refund item no longer maps to catalog, skipping restock",
				zap.String("slug", item.Slug))
			continue
		}
		ref := resolved.StockRef()
		if ref.VariantID != 0 {
			err = s.catalogRepo.IncrementVariantStock(ctx, tx, ref.VariantID, item.Quantity)
		} else {
			err = s.catalogRepo.IncrementProductStock(ctx, tx, ref.ProductID, item.Quantity)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// HandleProviderRefund records a refund reported by the payment provider.
// Amount-only, no restock; redelivery is deduplicated on the provider id.
func (s *Service) HandleProviderRefund(ctx context.Context, event orderdomain.RefundEvent) error {
	existing, err := s.repo.FindByProviderRefundID(ctx, s.db, event.ProviderRefundID)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	order, err := s.orderSvc.Get(ctx, event.OrderID)
	if err != nil {
		if errors.Is(err, orderdomain.ErrNotFound) {
			s.log.Warn("provider refund for unknown order",
				zap.String("order_id", event.OrderID),
				zap.String("provider", event.Provider))
			return nil
		}
		return err
	}

	reason := strings.TrimSpace(event.Reason)
	if reason == "" {
		reason = "provider refund"
	}
	refund := domain.Refund{
		ID:               s.genID.Generate(),
		OrderID:          order.ID,
		ProviderRefundID: event.ProviderRefundID,
		TotalCents:       event.AmountCents,
		Reason:           reason,
		CreatedAt:        time.Now().UTC(),
	}
	if err := s.repo.Insert(ctx, s.db, &refund); err != nil {
		return err
	}
	s.log.Info("provider refund recorded",
		zap.String("order_id", order.ID),
		zap.String("provider_refund_id", event.ProviderRefundID),
		zap.Int64("amount_cents", event.AmountCents),
	)
	return nil
}

func (s *Service) ListByOrder(ctx context.Context, orderID string) ([]domain.Refund, error) {
	rows, err := s.repo.ListByOrder(ctx, s.db, strings.TrimSpace(orderID))
	if err != nil {
		return nil, err
	}
	return deref(rows), nil
}

func (s *Service) List(ctx context.Context, limit int) ([]domain.Refund, error) {
	rows, err := s.repo.List(ctx, s.db, limit)
	if err != nil {
		return nil, err
	}
	return deref(rows), nil
}

func deref(rows []*domain.Refund) []domain.Refund {
	refunds := make([]domain.Refund, 0, len(rows))
	for _, row := range rows {
		if row != nil {
			refunds = append(refunds, *row)
		}
	}
	return refunds
}
