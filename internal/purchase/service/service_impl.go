package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/emberhollow/storefront/internal/catalog/domain"
	"github.com/emberhollow/storefront/internal/purchase/domain"
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
	CatalogRepo catalogdomain.Repository
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	repo        domain.Repository
	catalogRepo catalogdomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("purchase.service"),
		genID:       p.GenID,
		repo:        p.Repo,
		catalogRepo: p.CatalogRepo,
	}
}

// Create records the intake and increments stock in the same transaction,
// so a failed insert never leaves phantom inventory.
func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (domain.Purchase, error) {
	supplier := strings.TrimSpace(req.Supplier)
	if supplier == "" {
		return domain.Purchase{}, domain.ErrInvalidSupplier
	}
	if len(req.Items) == 0 {
		return domain.Purchase{}, domain.ErrInvalidItems
	}

	purchase := &domain.Purchase{
		ID:        s.genID.Generate(),
		Supplier:  supplier,
		Note:      strings.TrimSpace(req.Note),
		CreatedAt: time.Now().UTC(),
	}
	for _, item := range req.Items {
		if item.Quantity <= 0 || item.UnitCostCents < 0 {
			return domain.Purchase{}, domain.ErrInvalidItems
		}
		productID, err := snowflake.ParseString(strings.TrimSpace(item.ProductID))
		if err != nil {
			return domain.Purchase{}, domain.ErrInvalidItems
		}
		row := domain.PurchaseItem{
			ID:            s.genID.Generate(),
			PurchaseID:    purchase.ID,
			ProductID:     productID,
			Quantity:      item.Quantity,
			UnitCostCents: item.UnitCostCents,
		}
		if v := strings.TrimSpace(item.VariantID); v != "" {
			variantID, err := snowflake.ParseString(v)
			if err != nil {
				return domain.Purchase{}, domain.ErrInvalidItems
			}
			row.VariantID = &variantID
		}
		purchase.Items = append(purchase.Items, row)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, item := range purchase.Items {
			product, err := s.catalogRepo.FindProductByID(ctx, tx, item.ProductID)
			if err != nil {
				return err
			}
			if product == nil {
				return domain.ErrUnknownProduct
			}
			if item.VariantID != nil {
				if err := s.catalogRepo.IncrementVariantStock(ctx, tx, *item.VariantID, item.Quantity); err != nil {
					return err
				}
				continue
			}
			if err := s.catalogRepo.IncrementProductStock(ctx, tx, item.ProductID, item.Quantity); err != nil {
				return err
			}
		}
		return s.repo.Insert(ctx, tx, purchase)
	})
	if err != nil {
		return domain.Purchase{}, err
	}

	s.log.Info("stock intake recorded",
		zap.String("purchase_id", purchase.ID.String()),
		zap.String("supplier", supplier),
		zap.Int("items", len(purchase.Items)),
	)
	return *purchase, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.Purchase, error) {
	purchaseID, err := parseID(id)
	if err != nil {
		return domain.Purchase{}, err
	}
	purchase, err := s.repo.FindByID(ctx, s.db, purchaseID)
	if err != nil {
		return domain.Purchase{}, err
	}
	if purchase == nil {
		return domain.Purchase{}, domain.ErrNotFound
	}
	return *purchase, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Purchase, error) {
	rows, err := s.repo.List(ctx, s.db)
	if err != nil {
		return nil, err
	}
	purchases := make([]domain.Purchase, 0, len(rows))
	for _, row := range rows {
		purchases = append(purchases, *row)
	}
	return purchases, nil
}

// Delete removes the intake record and its items. Stock counters are left
// as they are; the intake already happened physically.
func (s *Service) Delete(ctx context.Context, id string) error {
	purchaseID, err := parseID(id)
	if err != nil {
		return err
	}
	deleted, err := s.repo.Delete(ctx, s.db, purchaseID)
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
