package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/emberhollow/storefront/internal/catalog/domain"
	"github.com/emberhollow/storefront/internal/review/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       domain.Repository
	CatalogSvc catalogdomain.Service
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	repo       domain.Repository
	catalogSvc catalogdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("review.service"),
		genID:      p.GenID,
		repo:       p.Repo,
		catalogSvc: p.CatalogSvc,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (domain.Review, error) {
	if req.Rating < 1 || req.Rating > 5 {
		return domain.Review{}, domain.ErrInvalidRating
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" && req.UserID == nil {
		return domain.Review{}, domain.ErrEmailRequired
	}

	product, _, err := s.catalogSvc.GetProductBySlug(ctx, req.ProductSlug)
	if err != nil {
		if errors.Is(err, catalogdomain.ErrNotFound) {
			return domain.Review{}, domain.ErrProductNotFound
		}
		return domain.Review{}, err
	}

	review := &domain.Review{
		ID:        s.genID.Generate(),
		ProductID: product.ID,
		UserID:    req.UserID,
		Email:     email,
		Rating:    req.Rating,
		Title:     strings.TrimSpace(req.Title),
		Body:      strings.TrimSpace(req.Body),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Insert(ctx, s.db, review); err != nil {
		return domain.Review{}, err
	}

	s.log.Info("review submitted",
		zap.String("product_slug", req.ProductSlug),
		zap.Int("rating", req.Rating),
	)
	return *review, nil
}

func (s *Service) ListApproved(ctx context.Context, productSlug string) ([]domain.Review, error) {
	product, _, err := s.catalogSvc.GetProductBySlug(ctx, productSlug)
	if err != nil {
		if errors.Is(err, catalogdomain.ErrNotFound) {
			return nil, domain.ErrProductNotFound
		}
		return nil, err
	}

	rows, err := s.repo.ListApprovedByProduct(ctx, s.db, product.ID)
	if err != nil {
		return nil, err
	}
	reviews := make([]domain.Review, 0, len(rows))
	for _, row := range rows {
		reviews = append(reviews, *row)
	}
	return reviews, nil
}

func (s *Service) ListPending(ctx context.Context) ([]domain.Review, error) {
	rows, err := s.repo.ListPending(ctx, s.db)
	if err != nil {
		return nil, err
	}
	reviews := make([]domain.Review, 0, len(rows))
	for _, row := range rows {
		reviews = append(reviews, *row)
	}
	return reviews, nil
}

func (s *Service) Approve(ctx context.Context, id string) error {
	reviewID, err := parseID(id)
	if err != nil {
		return err
	}
	updated, err := s.repo.SetApproved(ctx, s.db, reviewID)
	if err != nil {
		return err
	}
	if !updated {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	reviewID, err := parseID(id)
	if err != nil {
		return err
	}
	deleted, err := s.repo.Delete(ctx, s.db, reviewID)
	if err != nil {
		return err
	}
	if !deleted {
		return domain.ErrNotFound
	}
	return nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
