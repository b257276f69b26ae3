package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/emberhollow/storefront/internal/catalog/domain"
	"github.com/emberhollow/storefront/pkg/db"
	"github.com/gosimple/slug"
	"go.uber.org/fx"
	"go.uber.org/zap"
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
		log:   p.Log.Named("catalog.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) CreateProduct(ctx context.Context, req domain.CreateProductRequest) (domain.Product, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Product{}, domain.ErrInvalidName
	}
	if req.PriceCents <= 0 {
		return domain.Product{}, domain.ErrInvalidPrice
	}
	if req.Stock < 0 {
		return domain.Product{}, domain.ErrInvalidQuantity
	}

	now := time.Now().UTC()
	product := domain.Product{
		ID:              s.genID.Generate(),
		Slug:            slug.Make(name),
		Name:            name,
		Description:     strings.TrimSpace(req.Description),
		PriceCents:      req.PriceCents,
		Stock:           req.Stock,
		StripePriceID:   strings.TrimSpace(req.StripePriceID),
		SquareCatalogID: strings.TrimSpace(req.SquareCatalogID),
		Active:          true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.repo.InsertProduct(ctx, s.db, &product); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Product{}, domain.ErrDuplicateSlug
		}
		return domain.Product{}, err
	}
	return product, nil
}

func (s *Service) UpdateProduct(ctx context.Context, req domain.UpdateProductRequest) (domain.Product, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Product{}, err
	}

	product, err := s.repo.FindProductByID(ctx, s.db, id)
	if err != nil {
		return domain.Product{}, err
	}
	if product == nil {
		return domain.Product{}, domain.ErrNotFound
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Product{}, domain.ErrInvalidName
		}
		product.Name = name
	}
	if req.Description != nil {
		product.Description = strings.TrimSpace(*req.Description)
	}
	if req.PriceCents != nil {
		if *req.PriceCents <= 0 {
			return domain.Product{}, domain.ErrInvalidPrice
		}
		product.PriceCents = *req.PriceCents
	}
	if req.Stock != nil {
		if *req.Stock < 0 {
			return domain.Product{}, domain.ErrInvalidQuantity
		}
		product.Stock = *req.Stock
	}
	if req.StripePriceID != nil {
		product.StripePriceID = strings.TrimSpace(*req.StripePriceID)
	}
	if req.SquareCatalogID != nil {
		product.SquareCatalogID = strings.TrimSpace(*req.SquareCatalogID)
	}
	if req.Active != nil {
		product.Active = *req.Active
	}
	product.UpdatedAt = time.Now().UTC()

	if err := s.repo.SaveProduct(ctx, s.db, product); err != nil {
		return domain.Product{}, err
	}
	return *product, nil
}

func (s *Service) ArchiveProduct(ctx context.Context, rawID string) error {
	id, err := s.parseID(rawID)
	if err != nil {
		return err
	}
	ok, err := s.repo.ArchiveProduct(ctx, s.db, id)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Service) GetProductBySlug(ctx context.Context, rawSlug string) (domain.Product, []domain.Variant, error) {
	rawSlug = strings.TrimSpace(rawSlug)
	if rawSlug == "" {
		return domain.Product{}, nil, domain.ErrNotFound
	}

	product, err := s.repo.FindProductBySlug(ctx, s.db, rawSlug)
	if err != nil {
		return domain.Product{}, nil, err
	}
	if product == nil || !product.Active {
		return domain.Product{}, nil, domain.ErrNotFound
	}

	rows, err := s.repo.ListVariants(ctx, s.db, product.ID)
	if err != nil {
		return domain.Product{}, nil, err
	}
	variants := make([]domain.Variant, 0, len(rows))
	for _, row := range rows {
		if row != nil {
			variants = append(variants, *row)
		}
	}
	return *product, variants, nil
}

func (s *Service) ListProducts(ctx context.Context, req domain.ListProductsRequest) ([]domain.Product, error) {
	rows, err := s.repo.ListProducts(ctx, s.db, req.ActiveOnly)
	if err != nil {
		return nil, err
	}
	products := make([]domain.Product, 0, len(rows))
	for _, row := range rows {
		if row != nil {
			products = append(products, *row)
		}
	}
	return products, nil
}

func (s *Service) CreateVariant(ctx context.Context, req domain.CreateVariantRequest) (domain.Variant, error) {
	productID, err := s.parseID(req.ProductID)
	if err != nil {
		return domain.Variant{}, err
	}
	wick := strings.ToLower(strings.TrimSpace(req.WickType))
	scent := strings.ToLower(strings.TrimSpace(req.Scent))
	if wick == "" && scent == "" {
		return domain.Variant{}, domain.ErrInvalidName
	}
	if req.Stock < 0 {
		return domain.Variant{}, domain.ErrInvalidQuantity
	}
	if req.PriceCents != nil && *req.PriceCents <= 0 {
		return domain.Variant{}, domain.ErrInvalidPrice
	}

	product, err := s.repo.FindProductByID(ctx, s.db, productID)
	if err != nil {
		return domain.Variant{}, err
	}
	if product == nil {
		return domain.Variant{}, domain.ErrNotFound
	}

	now := time.Now().UTC()
	variant := domain.Variant{
		ID:         s.genID.Generate(),
		ProductID:  productID,
		WickType:   wick,
		Scent:      scent,
		Stock:      req.Stock,
		PriceCents: req.PriceCents,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.InsertVariant(ctx, s.db, &variant); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Variant{}, domain.ErrDuplicateVariant
		}
		return domain.Variant{}, err
	}
	return variant, nil
}

func (s *Service) DeleteVariant(ctx context.Context, rawID string) error {
	id, err := s.parseID(rawID)
	if err != nil {
		return err
	}
	ok, err := s.repo.DeleteVariant(ctx, s.db, id)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Service) DecrementStock(ctx context.Context, ref domain.StockRef, qty int64) error {
	if qty <= 0 {
		return domain.ErrInvalidQuantity
	}
	var (
		ok  bool
		err error
	)
	if ref.VariantID != 0 {
		ok, err = s.repo.DecrementVariantStock(ctx, s.db, ref.VariantID, qty)
	} else if ref.ProductID != 0 {
		ok, err = s.repo.DecrementProductStock(ctx, s.db, ref.ProductID, qty)
	} else {
		return domain.ErrInvalidID
	}
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrInsufficientStock
	}
	return nil
}

func (s *Service) IncrementStock(ctx context.Context, ref domain.StockRef, qty int64) error {
	if qty <= 0 {
		return domain.ErrInvalidQuantity
	}
	if ref.VariantID != 0 {
		return s.repo.IncrementVariantStock(ctx, s.db, ref.VariantID, qty)
	}
	if ref.ProductID != 0 {
		return s.repo.IncrementProductStock(ctx, s.db, ref.ProductID, qty)
	}
	return domain.ErrInvalidID
}

func (s *Service) NewResolver(ctx context.Context) (*domain.Resolver, error) {
	products, err := s.repo.ListProducts(ctx, s.db, false)
	if err != nil {
		return nil, err
	}
	variants, err := s.repo.ListVariants(ctx, s.db, 0)
	if err != nil {
		return nil, err
	}
	return domain.NewResolver(products, variants), nil
}

func (s *Service) CreateScent(ctx context.Context, name, notes string) (domain.Scent, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Scent{}, domain.ErrInvalidName
	}
	scent := domain.Scent{
		ID:        s.genID.Generate(),
		Name:      name,
		Notes:     strings.TrimSpace(notes),
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.InsertScent(ctx, s.db, &scent); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Scent{}, domain.ErrDuplicateSlug
		}
		return domain.Scent{}, err
	}
	return scent, nil
}

func (s *Service) ListScents(ctx context.Context) ([]domain.Scent, error) {
	rows, err := s.repo.ListScents(ctx, s.db)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Scent, 0, len(rows))
	for _, row := range rows {
		if row != nil {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (s *Service) DeleteScent(ctx context.Context, rawID string) error {
	id, err := s.parseID(rawID)
	if err != nil {
		return err
	}
	ok, err := s.repo.DeleteScent(ctx, s.db, id)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Service) CreateWickType(ctx context.Context, name string) (domain.WickType, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.WickType{}, domain.ErrInvalidName
	}
	wick := domain.WickType{
		ID:        s.genID.Generate(),
		Name:      name,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.InsertWickType(ctx, s.db, &wick); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.WickType{}, domain.ErrDuplicateSlug
		}
		return domain.WickType{}, err
	}
	return wick, nil
}

func (s *Service) ListWickTypes(ctx context.Context) ([]domain.WickType, error) {
	rows, err := s.repo.ListWickTypes(ctx, s.db)
	if err != nil {
		return nil, err
	}
	out := make([]domain.WickType, 0, len(rows))
	for _, row := range rows {
		if row != nil {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (s *Service) DeleteWickType(ctx context.Context, rawID string) error {
	id, err := s.parseID(rawID)
	if err != nil {
		return err
	}
	ok, err := s.repo.DeleteWickType(ctx, s.db, id)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Service) CreateContainer(ctx context.Context, name string, capacityOz float64) (domain.Container, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Container{}, domain.ErrInvalidName
	}
	container := domain.Container{
		ID:         s.genID.Generate(),
		Name:       name,
		CapacityOz: capacityOz,
		Active:     true,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.repo.InsertContainer(ctx, s.db, &container); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Container{}, domain.ErrDuplicateSlug
		}
		return domain.Container{}, err
	}
	return container, nil
}

func (s *Service) ListContainers(ctx context.Context) ([]domain.Container, error) {
	rows, err := s.repo.ListContainers(ctx, s.db)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Container, 0, len(rows))
	for _, row := range rows {
		if row != nil {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (s *Service) DeleteContainer(ctx context.Context, rawID string) error {
	id, err := s.parseID(rawID)
	if err != nil {
		return err
	}
	ok, err := s.repo.DeleteContainer(ctx, s.db, id)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
