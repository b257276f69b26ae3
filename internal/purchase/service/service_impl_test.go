package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/emberhollow/storefront/internal/catalog/domain"
	catalogrepo "github.com/emberhollow/storefront/internal/catalog/repository"
	catalogservice "github.com/emberhollow/storefront/internal/catalog/service"
	purchasedomain "github.com/emberhollow/storefront/internal/purchase/domain"
	purchaserepo "github.com/emberhollow/storefront/internal/purchase/repository"
	purchaseservice "github.com/emberhollow/storefront/internal/purchase/service"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_purchase_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	schema := []string{
		`CREATE TABLE products (
			id BIGINT PRIMARY KEY,
			slug TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			description TEXT,
			price_cents BIGINT NOT NULL,
			stock BIGINT NOT NULL DEFAULT 0,
			stripe_price_id TEXT,
			square_catalog_id TEXT,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			deleted_at TIMESTAMPTZ
		)`,
		`CREATE TABLE product_variants (
			id BIGINT PRIMARY KEY,
			product_id BIGINT NOT NULL,
			wick_type TEXT NOT NULL,
			scent TEXT NOT NULL,
			stock BIGINT NOT NULL DEFAULT 0,
			price_cents BIGINT,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE purchases (
			id BIGINT PRIMARY KEY,
			supplier TEXT NOT NULL,
			note TEXT,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE purchase_items (
			id BIGINT PRIMARY KEY,
			purchase_id BIGINT NOT NULL,
			product_id BIGINT NOT NULL,
			variant_id BIGINT,
			quantity BIGINT NOT NULL,
			unit_cost_cents BIGINT NOT NULL
		)`,
	}
	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}
	return db
}

type fixture struct {
	db         *gorm.DB
	catalogSvc catalogdomain.Service
	svc        purchasedomain.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := setupTestDB(t)
	node, err := snowflake.NewNode(15)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	log := zap.NewNop()

	catalogSvc := catalogservice.New(catalogservice.Params{
		DB: db, Log: log, GenID: node, Repo: catalogrepo.Provide(),
	})
	svc := purchaseservice.New(purchaseservice.Params{
		DB: db, Log: log, GenID: node, Repo: purchaserepo.Provide(), CatalogRepo: catalogrepo.Provide(),
	})
	return &fixture{db: db, catalogSvc: catalogSvc, svc: svc}
}

func (f *fixture) productStock(t *testing.T, id snowflake.ID) int64 {
	t.Helper()
	var stock int64
	if err := f.db.Raw("SELECT stock FROM products WHERE id = ?", id).Scan(&stock).Error; err != nil {
		t.Fatalf("scan stock: %v", err)
	}
	return stock
}

func TestCreatePurchaseIncrementsStock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	product, err := f.catalogSvc.CreateProduct(ctx, catalogdomain.CreateProductRequest{
		Name: "Oak Moss", PriceCents: 2100, Stock: 3,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}

	purchase, err := f.svc.Create(ctx, purchasedomain.CreateRequest{
		Supplier: "Hollow Wax Co",
		Items: []purchasedomain.ItemRequest{
			{ProductID: product.ID.String(), Quantity: 12, UnitCostCents: 650},
		},
	})
	if err != nil {
		t.Fatalf("create purchase: %v", err)
	}
	if len(purchase.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(purchase.Items))
	}
	if f.productStock(t, product.ID) != 15 {
		t.Fatalf("expected stock 15, got %d", f.productStock(t, product.ID))
	}
}

func TestCreatePurchaseVariantStock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	product, _ := f.catalogSvc.CreateProduct(ctx, catalogdomain.CreateProductRequest{
		Name: "Pine Resin", PriceCents: 2400, Stock: 0,
	})
	variant, err := f.catalogSvc.CreateVariant(ctx, catalogdomain.CreateVariantRequest{
		ProductID: product.ID.String(), WickType: "wood", Scent: "pine", Stock: 2,
	})
	if err != nil {
		t.Fatalf("create variant: %v", err)
	}

	if _, err := f.svc.Create(ctx, purchasedomain.CreateRequest{
		Supplier: "Hollow Wax Co",
		Items: []purchasedomain.ItemRequest{
			{ProductID: product.ID.String(), VariantID: variant.ID.String(), Quantity: 8, UnitCostCents: 700},
		},
	}); err != nil {
		t.Fatalf("create purchase: %v", err)
	}

	var stock int64
	_ = f.db.Raw("SELECT stock FROM product_variants WHERE id = ?", variant.ID).Scan(&stock).Error
	if stock != 10 {
		t.Fatalf("expected variant stock 10, got %d", stock)
	}
	if f.productStock(t, product.ID) != 0 {
		t.Fatalf("product stock should be untouched for variant intake")
	}
}

func TestCreatePurchaseUnknownProductRollsBack(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Create(ctx, purchasedomain.CreateRequest{
		Supplier: "Hollow Wax Co",
		Items: []purchasedomain.ItemRequest{
			{ProductID: "123456789", Quantity: 4, UnitCostCents: 500},
		},
	})
	if !errors.Is(err, purchasedomain.ErrUnknownProduct) {
		t.Fatalf("expected ErrUnknownProduct, got %v", err)
	}

	var count int64
	_ = f.db.Raw("SELECT COUNT(*) FROM purchases").Scan(&count).Error
	if count != 0 {
		t.Fatalf("expected no purchase rows, got %d", count)
	}
}

func TestDeletePurchaseCascades(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	product, _ := f.catalogSvc.CreateProduct(ctx, catalogdomain.CreateProductRequest{
		Name: "Salt Air", PriceCents: 1700, Stock: 1,
	})
	purchase, err := f.svc.Create(ctx, purchasedomain.CreateRequest{
		Supplier: "Coastal Supplies",
		Items: []purchasedomain.ItemRequest{
			{ProductID: product.ID.String(), Quantity: 6, UnitCostCents: 450},
		},
	})
	if err != nil {
		t.Fatalf("create purchase: %v", err)
	}

	if err := f.svc.Delete(ctx, purchase.ID.String()); err != nil {
		t.Fatalf("delete: %v", err)
	}
	var count int64
	_ = f.db.Raw("SELECT COUNT(*) FROM purchase_items").Scan(&count).Error
	if count != 0 {
		t.Fatalf("expected items removed with purchase, got %d", count)
	}
	if err := f.svc.Delete(ctx, purchase.ID.String()); !errors.Is(err, purchasedomain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
