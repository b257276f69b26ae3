package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/emberhollow/storefront/internal/catalog/domain"
	"github.com/emberhollow/storefront/internal/checkout/domain"
	"github.com/emberhollow/storefront/internal/checkout/squareapi"
	"github.com/emberhollow/storefront/internal/checkout/stripeapi"
	orderdomain "github.com/emberhollow/storefront/internal/order/domain"
	pointsdomain "github.com/emberhollow/storefront/internal/points/domain"
	promotiondomain "github.com/emberhollow/storefront/internal/promotion/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log          *zap.Logger
	CatalogSvc   catalogdomain.Service
	PromotionSvc promotiondomain.Service
	PointsSvc    pointsdomain.Service
	OrderSvc     orderdomain.Service
	Stripe       *stripeapi.Client
	Square       *squareapi.Client
}

type Service struct {
	log          *zap.Logger
	catalogSvc   catalogdomain.Service
	promotionSvc promotiondomain.Service
	pointsSvc    pointsdomain.Service
	orderSvc     orderdomain.Service
	stripe       *stripeapi.Client
	square       *squareapi.Client
}

func New(p Params) domain.Service {
	return &Service{
		log:          p.Log.Named("checkout.service"),
		catalogSvc:   p.CatalogSvc,
		promotionSvc: p.PromotionSvc,
		pointsSvc:    p.PointsSvc,
		orderSvc:     p.OrderSvc,
		stripe:       p.Stripe,
		square:       p.Square,
	}
}

type pricedItem struct {
	resolved  catalogdomain.Resolved
	slug      string
	name      string
	quantity  int64
	unitCents int64
}

func (s *Service) CreateSession(ctx context.Context, req domain.CreateSessionRequest) (domain.Session, error) {
	provider := strings.ToLower(strings.TrimSpace(req.Provider))
	if provider == "" {
		provider = domain.ProviderStripe
	}
	if provider != domain.ProviderStripe && provider != domain.ProviderSquare {
		return domain.Session{}, domain.ErrInvalidProvider
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" && req.UserID == nil {
		return domain.Session{}, domain.ErrEmailRequired
	}
	if len(req.Items) == 0 {
		return domain.Session{}, domain.ErrNoItems
	}

	items, subtotal, err := s.priceItems(ctx, req.Items)
	if err != nil {
		return domain.Session{}, err
	}

	discount, promotionID, err := s.applyPromotion(ctx, req, email, items, subtotal)
	if err != nil {
		return domain.Session{}, err
	}

	pointsRedeemed, err := s.capPoints(ctx, req, subtotal-discount)
	if err != nil {
		return domain.Session{}, err
	}

	metadata := map[string]string{}
	if req.UserID != nil {
		metadata["user_id"] = req.UserID.String()
	}
	if promotionID != nil {
		metadata["promotion_id"] = promotionID.String()
	}
	if pointsRedeemed > 0 {
		metadata["points_redeemed"] = strconv.FormatInt(pointsRedeemed, 10)
	}

	var (
		sessionID string
		hostedURL string
	)
	switch provider {
	case domain.ProviderStripe:
		lines := make([]stripeapi.LineItem, 0, len(items))
		for _, item := range items {
			lines = append(lines, stripeapi.LineItem{
				PriceID:   item.resolved.Product.StripePriceID,
				Name:      item.name,
				UnitCents: item.unitCents,
				Quantity:  item.quantity,
			})
		}
		session, err := s.stripe.CreateSession(ctx, stripeapi.SessionParams{
			Email:     email,
			LineItems: lines,
			Metadata:  metadata,
		})
		if err != nil {
			s.log.Error("stripe session creation failed", zap.Error(err))
			return domain.Session{}, fmt.Errorf("%w: %v", domain.ErrProviderFailure, err)
		}
		sessionID, hostedURL = session.ID, session.URL
	case domain.ProviderSquare:
		lines := make([]squareapi.LineItem, 0, len(items))
		for _, item := range items {
			lines = append(lines, squareapi.LineItem{
				CatalogObjectID: item.resolved.Product.SquareCatalogID,
				Name:            item.name,
				UnitCents:       item.unitCents,
				Quantity:        item.quantity,
			})
		}
		link, err := s.square.CreatePaymentLink(ctx, lines)
		if err != nil {
			s.log.Error("square payment link creation failed", zap.Error(err))
			return domain.Session{}, fmt.Errorf("%w: %v", domain.ErrProviderFailure, err)
		}
		sessionID, hostedURL = link.OrderID, link.URL
	}

	total := subtotal - discount - pointsRedeemed
	if total < 0 {
		total = 0
	}
	if _, err := s.orderSvc.CreatePending(ctx, orderdomain.CreatePendingRequest{
		ID:             sessionID,
		Provider:       provider,
		UserID:         req.UserID,
		Email:          email,
		TotalCents:     total,
		DiscountCents:  discount,
		PromotionID:    promotionID,
		PointsRedeemed: pointsRedeemed,
	}); err != nil {
		return domain.Session{}, err
	}

	s.log.Info("checkout session created",
		zap.String("provider", provider),
		zap.String("order_id", sessionID),
		zap.Int64("subtotal_cents", subtotal),
		zap.Int64("discount_cents", discount),
	)
	return domain.Session{
		OrderID:        sessionID,
		URL:            hostedURL,
		Provider:       provider,
		SubtotalCents:  subtotal,
		DiscountCents:  discount,
		PointsRedeemed: pointsRedeemed,
	}, nil
}

func (s *Service) priceItems(ctx context.Context, reqs []domain.ItemRequest) ([]pricedItem, int64, error) {
	resolver, err := s.catalogSvc.NewResolver(ctx)
	if err != nil {
		return nil, 0, err
	}

	items := make([]pricedItem, 0, len(reqs))
	var subtotal int64
	for _, req := range reqs {
		if req.Quantity <= 0 {
			return nil, 0, domain.ErrInvalidQuantity
		}
		resolved, ok := resolver.Resolve(catalogdomain.Line{
			PriceRef: req.PriceRef,
			Slug:     req.Slug,
			WickType: req.WickType,
			Scent:    req.Scent,
		})
		if !ok || !resolved.Product.Active {
			return nil, 0, domain.ErrUnknownItem
		}

		unit := resolved.Product.PriceCents
		if resolved.Variant != nil && resolved.Variant.PriceCents != nil {
			unit = *resolved.Variant.PriceCents
		}
		items = append(items, pricedItem{
			resolved:  resolved,
			slug:      resolved.Product.Slug,
			name:      resolved.Product.Name,
			quantity:  req.Quantity,
			unitCents: unit,
		})
		subtotal += unit * req.Quantity
	}
	return items, subtotal, nil
}

func (s *Service) applyPromotion(
	ctx context.Context,
	req domain.CreateSessionRequest,
	email string,
	items []pricedItem,
	subtotal int64,
) (int64, *snowflake.ID, error) {
	code := strings.TrimSpace(req.PromotionCode)
	if code == "" {
		return 0, nil, nil
	}

	priorCount, priorSpend, err := s.orderSvc.PriorOrderStats(ctx, email)
	if err != nil {
		return 0, nil, err
	}
	vctx := promotiondomain.VContext{
		UserID:          req.UserID,
		Email:           email,
		Guest:           req.UserID == nil,
		PriorOrderCount: priorCount,
		PriorSpendCents: priorSpend,
		SubtotalCents:   subtotal,
	}
	for _, item := range items {
		vctx.Items = append(vctx.Items, promotiondomain.VItem{
			Slug:      item.slug,
			Quantity:  item.quantity,
			UnitCents: item.unitCents,
		})
	}

	result, err := s.promotionSvc.Validate(ctx, code, vctx)
	if err != nil {
		return 0, nil, err
	}
	if !result.Valid {
		return 0, nil, fmt.Errorf("%w: %s", domain.ErrPromotionRejected, result.Reason)
	}
	promotionID := result.PromotionID
	return result.DiscountCents, &promotionID, nil
}

// capPoints bounds the requested redemption at the account balance and at
// what is left of the order after the promotion discount.
func (s *Service) capPoints(ctx context.Context, req domain.CreateSessionRequest, remainingCents int64) (int64, error) {
	if req.PointsToRedeem <= 0 || req.UserID == nil {
		return 0, nil
	}
	balance, err := s.pointsSvc.Balance(ctx, *req.UserID)
	if err != nil {
		return 0, err
	}

	redeem := req.PointsToRedeem
	if redeem > balance {
		redeem = balance
	}
	if redeem > remainingCents {
		redeem = remainingCents
	}
	if redeem < 0 {
		redeem = 0
	}
	return redeem, nil
}
