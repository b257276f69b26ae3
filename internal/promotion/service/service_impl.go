package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/emberhollow/storefront/internal/promotion/domain"
	"github.com/emberhollow/storefront/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("promotion.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreatePromotionRequest) (domain.Promotion, error) {
	code := normalizeCode(req.Code)
	if code == "" {
		return domain.Promotion{}, domain.ErrInvalidCode
	}
	switch req.Type {
	case domain.TypePercentage:
		if req.Percent <= 0 || req.Percent > 100 {
			return domain.Promotion{}, domain.ErrInvalidType
		}
	case domain.TypeFixed:
		if req.AmountCents <= 0 {
			return domain.Promotion{}, domain.ErrInvalidType
		}
	default:
		return domain.Promotion{}, domain.ErrInvalidType
	}

	targeting := req.Targeting
	if targeting == "" {
		targeting = domain.TargetAll
	}
	switch targeting {
	case domain.TargetAll, domain.TargetFirstTime, domain.TargetAllowList, domain.TargetMinOrders, domain.TargetMinSpend:
	default:
		return domain.Promotion{}, domain.ErrInvalidType
	}

	startsAt, err := parseTimePtr(req.StartsAt)
	if err != nil {
		return domain.Promotion{}, domain.ErrInvalidType
	}
	expiresAt, err := parseTimePtr(req.ExpiresAt)
	if err != nil {
		return domain.Promotion{}, domain.ErrInvalidType
	}

	now := time.Now().UTC()
	promo := domain.Promotion{
		ID:               s.genID.Generate(),
		Code:             code,
		Type:             req.Type,
		Percent:          req.Percent,
		AmountCents:      req.AmountCents,
		MaxRedemptions:   req.MaxRedemptions,
		PerCustomerLimit: req.PerCustomerLimit,
		MinOrderCents:    req.MinOrderCents,
		Targeting:        targeting,
		AllowList:        marshalList(req.AllowList),
		MinOrderCount:    req.MinOrderCount,
		MinSpendCents:    req.MinSpendCents,
		ProductSlugs:     marshalList(req.ProductSlugs),
		StartsAt:         startsAt,
		ExpiresAt:        expiresAt,
		Active:           true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.repo.Insert(ctx, s.db, &promo); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Promotion{}, domain.ErrDuplicate
		}
		return domain.Promotion{}, err
	}
	return promo, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdatePromotionRequest) (domain.Promotion, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(req.ID))
	if err != nil || id == 0 {
		return domain.Promotion{}, domain.ErrInvalidID
	}

	promo, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Promotion{}, err
	}
	if promo == nil {
		return domain.Promotion{}, domain.ErrNotFound
	}

	if req.Active != nil {
		promo.Active = *req.Active
	}
	if req.MaxRedemptions != nil {
		promo.MaxRedemptions = *req.MaxRedemptions
	}
	if req.MinOrderCents != nil {
		promo.MinOrderCents = *req.MinOrderCents
	}
	if req.ExpiresAt != nil {
		expiresAt, err := parseTimePtr(req.ExpiresAt)
		if err != nil {
			return domain.Promotion{}, domain.ErrInvalidType
		}
		promo.ExpiresAt = expiresAt
	}
	promo.UpdatedAt = time.Now().UTC()

	if err := s.repo.Save(ctx, s.db, promo); err != nil {
		return domain.Promotion{}, err
	}
	return *promo, nil
}

func (s *Service) Get(ctx context.Context, rawID string) (domain.Promotion, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(rawID))
	if err != nil || id == 0 {
		return domain.Promotion{}, domain.ErrInvalidID
	}
	promo, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Promotion{}, err
	}
	if promo == nil {
		return domain.Promotion{}, domain.ErrNotFound
	}
	return *promo, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Promotion, error) {
	rows, err := s.repo.List(ctx, s.db)
	if err != nil {
		return nil, err
	}
	promos := make([]domain.Promotion, 0, len(rows))
	for _, row := range rows {
		if row != nil {
			promos = append(promos, *row)
		}
	}
	return promos, nil
}

func (s *Service) Delete(ctx context.Context, rawID string) error {
	id, err := snowflake.ParseString(strings.TrimSpace(rawID))
	if err != nil || id == 0 {
		return domain.ErrInvalidID
	}
	ok, err := s.repo.Delete(ctx, s.db, id)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotFound
	}
	return nil
}

// Validate walks the predicate chain in a fixed order and stops at the first
// failure. The returned result is advisory; Redeem re-checks the global cap
// inside the order transaction.
func (s *Service) Validate(ctx context.Context, code string, vctx domain.VContext) (domain.ValidationResult, error) {
	promo, err := s.repo.FindByCode(ctx, s.db, normalizeCode(code))
	if err != nil {
		return domain.ValidationResult{}, err
	}
	if promo == nil {
		return invalid(domain.ReasonNotFound), nil
	}
	if !promo.Active {
		return invalid(domain.ReasonInactive), nil
	}

	now := time.Now().UTC()
	if promo.StartsAt != nil && now.Before(*promo.StartsAt) {
		return invalid(domain.ReasonNotStarted), nil
	}
	if promo.ExpiresAt != nil && now.After(*promo.ExpiresAt) {
		return invalid(domain.ReasonExpired), nil
	}
	if promo.MaxRedemptions > 0 && promo.CurrentRedemptions >= promo.MaxRedemptions {
		return invalid(domain.ReasonExhausted), nil
	}

	if promo.PerCustomerLimit > 0 {
		count, err := s.repo.CountRedemptionsByCustomer(ctx, s.db, promo.ID, vctx.Email, vctx.UserID)
		if err != nil {
			return domain.ValidationResult{}, err
		}
		if count >= promo.PerCustomerLimit {
			return invalid(domain.ReasonCustomerLimit), nil
		}
	}

	if promo.MinOrderCents > 0 && vctx.SubtotalCents < promo.MinOrderCents {
		return invalid(domain.ReasonMinOrder), nil
	}

	if reason := checkTargeting(promo, vctx); reason != "" {
		return invalid(reason), nil
	}

	eligible := eligibleSubtotal(promo, vctx)
	if eligible <= 0 {
		return invalid(domain.ReasonNoEligibleItems), nil
	}

	return domain.ValidationResult{
		Valid:         true,
		PromotionID:   promo.ID,
		Code:          promo.Code,
		DiscountCents: discount(promo, eligible),
	}, nil
}

func (s *Service) Redeem(ctx context.Context, tx *gorm.DB, promotionID snowflake.ID, email string, userID *snowflake.ID, orderID string, discountCents int64) error {
	ok, err := s.repo.IncrementRedemptions(ctx, tx, promotionID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrCapExceeded
	}
	return s.repo.InsertRedemption(ctx, tx, &domain.PromotionRedemption{
		ID:            s.genID.Generate(),
		PromotionID:   promotionID,
		UserID:        userID,
		Email:         strings.ToLower(strings.TrimSpace(email)),
		OrderID:       orderID,
		DiscountCents: discountCents,
		RedeemedAt:    time.Now().UTC(),
	})
}

func (s *Service) DeactivateExpired(ctx context.Context) (int64, error) {
	n, err := s.repo.DeactivateExpired(ctx, s.db)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Info("deactivated expired promotions", zap.Int64("count", n))
	}
	return n, nil
}

func checkTargeting(promo *domain.Promotion, vctx domain.VContext) string {
	switch promo.Targeting {
	case domain.TargetAll:
		return ""
	case domain.TargetFirstTime:
		if vctx.PriorOrderCount > 0 {
			return domain.ReasonNotEligible
		}
	case domain.TargetAllowList:
		allowed := unmarshalList(promo.AllowList)
		email := strings.ToLower(strings.TrimSpace(vctx.Email))
		for _, entry := range allowed {
			if strings.ToLower(strings.TrimSpace(entry)) == email {
				return ""
			}
		}
		return domain.ReasonNotEligible
	case domain.TargetMinOrders:
		if vctx.PriorOrderCount < promo.MinOrderCount {
			return domain.ReasonNotEligible
		}
	case domain.TargetMinSpend:
		if vctx.PriorSpendCents < promo.MinSpendCents {
			return domain.ReasonNotEligible
		}
	}
	return ""
}

// eligibleSubtotal narrows the discount base to the slug filter when one is
// configured, otherwise the whole subtotal qualifies.
func eligibleSubtotal(promo *domain.Promotion, vctx domain.VContext) int64 {
	slugs := unmarshalList(promo.ProductSlugs)
	if len(slugs) == 0 {
		return vctx.SubtotalCents
	}
	filter := make(map[string]struct{}, len(slugs))
	for _, s := range slugs {
		filter[s] = struct{}{}
	}
	var total int64
	for _, item := range vctx.Items {
		if _, ok := filter[item.Slug]; ok {
			total += item.UnitCents * item.Quantity
		}
	}
	return total
}

func discount(promo *domain.Promotion, eligible int64) int64 {
	switch promo.Type {
	case domain.TypePercentage:
		// Round half up in integer cents.
		return (eligible*promo.Percent + 50) / 100
	case domain.TypeFixed:
		if promo.AmountCents > eligible {
			return eligible
		}
		return promo.AmountCents
	}
	return 0
}

func invalid(reason string) domain.ValidationResult {
	return domain.ValidationResult{Valid: false, Reason: reason}
}

func parseTimePtr(value *string) (*time.Time, error) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil, nil
	}
	ts, err := time.Parse(time.RFC3339, strings.TrimSpace(*value))
	if err != nil {
		return nil, err
	}
	ts = ts.UTC()
	return &ts, nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func marshalList(values []string) datatypes.JSON {
	if len(values) == 0 {
		return nil
	}
	payload, err := json.Marshal(values)
	if err != nil {
		return nil
	}
	return datatypes.JSON(payload)
}

func unmarshalList(payload datatypes.JSON) []string {
	if len(payload) == 0 {
		return nil
	}
	var values []string
	if err := json.Unmarshal(payload, &values); err != nil {
		return nil
	}
	return values
}
