package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/emberhollow/storefront/internal/catalog/domain"
	"github.com/emberhollow/storefront/internal/config"
	"github.com/emberhollow/storefront/internal/inventory"
	"github.com/emberhollow/storefront/internal/order/domain"
	pointsdomain "github.com/emberhollow/storefront/internal/points/domain"
	promotiondomain "github.com/emberhollow/storefront/internal/promotion/domain"
	"github.com/emberhollow/storefront/internal/providers/email"
	"github.com/emberhollow/storefront/internal/token"
	userdomain "github.com/emberhollow/storefront/internal/user/domain"
	"github.com/emberhollow/storefront/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const invoiceTokenTTL = 30 * 24 * time.Hour

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Cfg          config.Config
	Loyalty      *config.LoyaltyConfigHolder
	Repo         domain.Repository
	CatalogSvc   catalogdomain.Service
	CatalogRepo  catalogdomain.Repository
	UserSvc      userdomain.Service
	PointsSvc    pointsdomain.Service
	PromotionSvc promotiondomain.Service
	Tokens       token.Store
	Email        email.Provider
	Inventory    inventory.Syncer
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	cfg          config.Config
	loyalty      *config.LoyaltyConfigHolder
	repo         domain.Repository
	catalogSvc   catalogdomain.Service
	catalogRepo  catalogdomain.Repository
	userSvc      userdomain.Service
	pointsSvc    pointsdomain.Service
	promotionSvc promotiondomain.Service
	tokens       token.Store
	email        email.Provider
	inventory    inventory.Syncer
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("order.service"),
		genID:        p.GenID,
		cfg:          p.Cfg,
		loyalty:      p.Loyalty,
		repo:         p.Repo,
		catalogSvc:   p.CatalogSvc,
		catalogRepo:  p.CatalogRepo,
		userSvc:      p.UserSvc,
		pointsSvc:    p.PointsSvc,
		promotionSvc: p.PromotionSvc,
		tokens:       p.Tokens,
		email:        p.Email,
		inventory:    p.Inventory,
	}
}

func (s *Service) CreatePending(ctx context.Context, req domain.CreatePendingRequest) (domain.Order, error) {
	id := strings.TrimSpace(req.ID)
	if id == "" || req.Provider == "" {
		return domain.Order{}, domain.ErrInvalidOrder
	}

	now := time.Now().UTC()
	order := domain.Order{
		ID:             id,
		Provider:       req.Provider,
		UserID:         req.UserID,
		Email:          strings.ToLower(strings.TrimSpace(req.Email)),
		Status:         domain.StatusPending,
		TotalCents:     req.TotalCents,
		DiscountCents:  req.DiscountCents,
		PromotionID:    req.PromotionID,
		PointsRedeemed: req.PointsRedeemed,
		ShippingStatus: domain.ShippingStatusUnshipped,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Insert(ctx, s.db, &order); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Order{}, domain.ErrAlreadyExists
		}
		return domain.Order{}, err
	}
	return order, nil
}

// Materialize turns a completed-checkout event into a completed order with
// its side effects. Safe to call any number of times for the same event.
func (s *Service) Materialize(ctx context.Context, event domain.CheckoutEvent) error {
	orderID := strings.TrimSpace(event.SessionID)
	if orderID == "" {
		return domain.ErrInvalidOrder
	}
	log := s.log.With(zap.String("order_id", orderID), zap.String("provider", event.Provider))

	existing, err := s.repo.FindByID(ctx, s.db, orderID)
	if err != nil {
		return err
	}
	if existing != nil && existing.Status == domain.StatusCompleted {
		if existing.TotalCents == event.TotalCents {
			return nil
		}
		log.Error("completed order total does not match redelivered event",
			zap.Int64("order_total_cents", existing.TotalCents),
			zap.Int64("event_total_cents", event.TotalCents),
		)
		return s.repo.InsertAlert(ctx, s.db, &domain.OrderAlert{
			ID:      s.genID.Generate(),
			OrderID: orderID,
			Kind:    domain.AlertKindTotalMismatch,
			Detail: fmt.Sprintf("order total %d, event total %d",
				existing.TotalCents, event.TotalCents),
			CreatedAt: time.Now().UTC(),
		})
	}

	user := s.resolveUser(ctx, event)

	resolver, err := s.catalogSvc.NewResolver(ctx)
	if err != nil {
		return err
	}

	var pointsEarned int64
	if user != nil {
		pointsEarned = earnedPoints(event.ProductSubtotalCents, int64(s.loyalty.Current().PointsEarnDivisorCents))
	}

	var stockChanges []inventory.StockChange
	completed := false

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if existing == nil {
			pending := domain.Order{
				ID:             orderID,
				Provider:       event.Provider,
				Email:          strings.ToLower(strings.TrimSpace(event.Email)),
				Status:         domain.StatusPending,
				ShippingStatus: domain.ShippingStatusUnshipped,
				CreatedAt:      time.Now().UTC(),
				UpdatedAt:      time.Now().UTC(),
			}
			// A concurrent delivery may have created the row already; the
			// conditional flip below decides who proceeds.
			if err := s.repo.Insert(ctx, tx, &pending); err != nil && !db.IsDuplicateKeyErr(err) {
				return err
			}
		}

		now := time.Now().UTC()
		order := domain.Order{
			ID:                   orderID,
			UserID:               userID(user),
			Email:                strings.ToLower(strings.TrimSpace(event.Email)),
			TotalCents:           event.TotalCents,
			ProductSubtotalCents: event.ProductSubtotalCents,
			ShippingCents:        event.ShippingCents,
			TaxCents:             event.TaxCents,
			DiscountCents:        event.DiscountCents,
			PointsEarned:         pointsEarned,
			PointsRedeemed:       event.PointsRedeemed,
			PromotionID:          event.PromotionID,
			CompletedAt:          &now,
		}
		won, err := s.repo.CompletePending(ctx, tx, &order)
		if err != nil {
			return err
		}
		if !won {
			return nil
		}
		completed = true

		if err := s.repo.DeleteItems(ctx, tx, orderID); err != nil {
			return err
		}

		items := make([]domain.OrderItem, 0, len(event.Lines))
		for _, line := range event.Lines {
			item := domain.OrderItem{
				ID:        s.genID.Generate(),
				OrderID:   orderID,
				Slug:      line.Slug,
				Name:      line.Name,
				WickType:  line.WickType,
				Scent:     line.Scent,
				Quantity:  line.Quantity,
				UnitCents: line.UnitCents,
			}

			resolved, ok := resolver.Resolve(catalogdomain.Line{
				PriceRef: line.PriceRef,
				Slug:     line.Slug,
				WickType: line.WickType,
				Scent:    line.Scent,
				Name:     line.Name,
				Quantity: line.Quantity,
			})
			if !ok {
				item.Unmapped = true
				log.Warn("order line did not map to a catalog entry",
					zap.String("price_ref", line.PriceRef),
					zap.String("slug", line.Slug),
				)
				items = append(items, item)
				continue
			}

			item.Slug = resolved.Product.Slug
			if item.Name == "" {
				item.Name = resolved.Product.Name
			}

			ref := resolved.StockRef()
			decremented, err := s.decrementStock(ctx, tx, ref, line.Quantity)
			if err != nil {
				return err
			}
			if !decremented {
				log.Warn("insufficient stock while materializing order",
					zap.String("slug", resolved.Product.Slug),
					zap.Int64("quantity", line.Quantity),
				)
				if err := s.repo.InsertAlert(ctx, tx, &domain.OrderAlert{
					ID:        s.genID.Generate(),
					OrderID:   orderID,
					Kind:      domain.AlertKindStockShort,
					Detail:    fmt.Sprintf("slug %s qty %d", resolved.Product.Slug, line.Quantity),
					CreatedAt: time.Now().UTC(),
				}); err != nil {
					return err
				}
			} else if resolved.Product.SquareCatalogID != "" {
				stockChanges = append(stockChanges, inventory.StockChange{
					SquareCatalogID: resolved.Product.SquareCatalogID,
					Delta:           line.Quantity,
				})
			}
			items = append(items, item)
		}
		if err := s.repo.InsertItems(ctx, tx, items); err != nil {
			return err
		}

		if user != nil && pointsEarned > 0 {
			if err := s.pointsSvc.AwardTx(ctx, tx, user.ID, orderID, pointsEarned); err != nil {
				return err
			}
		}
		if user != nil && event.PointsRedeemed > 0 {
			if err := s.pointsSvc.RedeemTx(ctx, tx, user.ID, orderID, event.PointsRedeemed); err != nil {
				if errors.Is(err, pointsdomain.ErrInsufficientPoints) {
					log.Warn("points redemption exceeded balance, skipping debit",
						zap.Int64("points", event.PointsRedeemed))
				} else {
					return err
				}
			}
		}
		if event.PromotionID != nil {
			err := s.promotionSvc.Redeem(ctx, tx, *event.PromotionID, event.Email, userID(user), orderID, event.DiscountCents)
			if err != nil {
				if errors.Is(err, promotiondomain.ErrCapExceeded) {
					log.Warn("promotion cap reached during materialization",
						zap.String("promotion_id", event.PromotionID.String()))
				} else {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if !completed {
		return nil
	}

	s.afterComplete(ctx, orderID, event, pointsEarned, stockChanges)
	log.Info("order materialized",
		zap.Int64("total_cents", event.TotalCents),
		zap.Int64("points_earned", pointsEarned),
	)
	return nil
}

func (s *Service) decrementStock(ctx context.Context, tx *gorm.DB, ref catalogdomain.StockRef, qty int64) (bool, error) {
	if ref.VariantID != 0 {
		return s.catalogRepo.DecrementVariantStock(ctx, tx, ref.VariantID, qty)
	}
	return s.catalogRepo.DecrementProductStock(ctx, tx, ref.ProductID, qty)
}

// afterComplete runs the best-effort follow-ups. Failures are logged and
// swallowed; the order is already committed.
func (s *Service) afterComplete(ctx context.Context, orderID string, event domain.CheckoutEvent, pointsEarned int64, stockChanges []inventory.StockChange) {
	if event.Email != "" {
		if err := s.sendReceipt(ctx, orderID, event, pointsEarned); err != nil {
			s.log.Warn("receipt email failed",
				zap.String("order_id", orderID), zap.Error(err))
		}
	}
	if len(stockChanges) > 0 {
		if err := s.inventory.SyncStock(ctx, stockChanges); err != nil {
			s.log.Warn("inventory sync failed",
				zap.String("order_id", orderID), zap.Error(err))
		}
	}
}

func (s *Service) sendReceipt(ctx context.Context, orderID string, event domain.CheckoutEvent, pointsEarned int64) error {
	order, err := s.repo.FindByIDWithItems(ctx, s.db, orderID)
	if err != nil {
		return err
	}
	if order == nil {
		return domain.ErrNotFound
	}

	invoiceURL := ""
	value, err := s.tokens.Issue(ctx, token.KindInvoiceAccess, token.Claims{Subject: orderID}, invoiceTokenTTL)
	if err != nil {
		s.log.Warn("invoice token issue failed", zap.String("order_id", orderID), zap.Error(err))
	} else {
		invoiceURL = s.cfg.BaseURL + "/api/invoices/" + value
	}

	type receiptItem struct {
		Name     string
		Scent    string
		WickType string
		Quantity int64
		Unit     string
	}
	items := make([]receiptItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, receiptItem{
			Name:     item.Name,
			Scent:    item.Scent,
			WickType: item.WickType,
			Quantity: item.Quantity,
			Unit:     formatCents(item.UnitCents),
		})
	}

	return s.email.SendTemplate(ctx, []string{event.Email}, "receipt", map[string]any{
		"subject":       "Your Ember Hollow order " + orderID,
		"order_id":      orderID,
		"items":         items,
		"total":         formatCents(order.TotalCents),
		"points_earned": pointsEarned,
		"invoice_url":   invoiceURL,
	})
}

func (s *Service) Get(ctx context.Context, id string) (domain.Order, error) {
	order, err := s.repo.FindByIDWithItems(ctx, s.db, strings.TrimSpace(id))
	if err != nil {
		return domain.Order{}, err
	}
	if order == nil {
		return domain.Order{}, domain.ErrNotFound
	}
	return *order, nil
}

func (s *Service) List(ctx context.Context, req domain.ListOrdersRequest) ([]domain.Order, error) {
	rows, err := s.repo.List(ctx, s.db, req)
	if err != nil {
		return nil, err
	}
	return deref(rows), nil
}

func (s *Service) ListByUser(ctx context.Context, userID snowflake.ID, limit int) ([]domain.Order, error) {
	rows, err := s.repo.ListByUser(ctx, s.db, userID, limit)
	if err != nil {
		return nil, err
	}
	return deref(rows), nil
}

func (s *Service) UpdateShipping(ctx context.Context, req domain.UpdateShippingRequest) error {
	switch req.ShippingStatus {
	case domain.ShippingStatusUnshipped, domain.ShippingStatusShipped, domain.ShippingStatusDelivered:
	default:
		return domain.ErrInvalidStatus
	}
	ok, err := s.repo.UpdateShipping(ctx, s.db, req)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Service) Cancel(ctx context.Context, id string) error {
	ok, err := s.repo.Cancel(ctx, s.db, strings.TrimSpace(id))
	if err != nil {
		return err
	}
	if !ok {
		order, err := s.repo.FindByID(ctx, s.db, id)
		if err != nil {
			return err
		}
		if order == nil {
			return domain.ErrNotFound
		}
		return domain.ErrNotCancellable
	}
	return nil
}

func (s *Service) ListAlerts(ctx context.Context, limit int) ([]domain.OrderAlert, error) {
	rows, err := s.repo.ListAlerts(ctx, s.db, limit)
	if err != nil {
		return nil, err
	}
	alerts := make([]domain.OrderAlert, 0, len(rows))
	for _, row := range rows {
		if row != nil {
			alerts = append(alerts, *row)
		}
	}
	return alerts, nil
}

func (s *Service) PriorOrderStats(ctx context.Context, email string) (int64, int64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	count, err := s.repo.CountCompletedByEmail(ctx, s.db, email)
	if err != nil {
		return 0, 0, err
	}
	spend, err := s.repo.SumCompletedByEmail(ctx, s.db, email)
	if err != nil {
		return 0, 0, err
	}
	return count, spend, nil
}

func (s *Service) resolveUser(ctx context.Context, event domain.CheckoutEvent) *userdomain.User {
	if event.UserID != nil {
		user, err := s.userSvc.GetByID(ctx, *event.UserID)
		if err == nil {
			return &user
		}
		if !errors.Is(err, userdomain.ErrNotFound) {
			s.log.Warn("user lookup by id failed", zap.Error(err))
		}
	}
	if event.Email == "" {
		return nil
	}
	user, err := s.userSvc.GetByEmail(ctx, event.Email)
	if err != nil {
		if !errors.Is(err, userdomain.ErrNotFound) {
			s.log.Warn("user lookup by email failed", zap.Error(err))
		}
		return nil
	}
	return &user
}

// earnedPoints rounds to the nearest whole point, so a 2499 cent order at the
// default divisor earns 25.
func earnedPoints(subtotalCents, divisorCents int64) int64 {
	if divisorCents <= 0 || subtotalCents <= 0 {
		return 0
	}
	return (subtotalCents + divisorCents/2) / divisorCents
}

func userID(user *userdomain.User) *snowflake.ID {
	if user == nil {
		return nil
	}
	return &user.ID
}

func formatCents(cents int64) string {
	return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
}

func deref(rows []*domain.Order) []domain.Order {
	orders := make([]domain.Order, 0, len(rows))
	for _, row := range rows {
		if row != nil {
			orders = append(orders, *row)
		}
	}
	return orders
}
