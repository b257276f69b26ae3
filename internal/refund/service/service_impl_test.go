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
	orderdomain "github.com/emberhollow/storefront/internal/order/domain"
	pointsdomain "github.com/emberhollow/storefront/internal/points/domain"
	pointsrepo "github.com/emberhollow/storefront/internal/points/repository"
	pointsservice "github.com/emberhollow/storefront/internal/points/service"
	"github.com/emberhollow/storefront/internal/refund/domain"
	"github.com/emberhollow/storefront/internal/refund/repository"
	"github.com/emberhollow/storefront/internal/refund/service"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_refund_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	schema := []string{
		`CREATE TABLE products (
			id BIGINT PRIMARY KEY,
			slug TEXT NOT NULL,
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
		`CREATE TABLE users (
			id BIGINT PRIMARY KEY,
			email TEXT NOT NULL,
			password_hash TEXT NOT NULL,
			name TEXT,
			role TEXT NOT NULL DEFAULT 'customer',
			points BIGINT NOT NULL DEFAULT 0,
			email_verified BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			deleted_at TIMESTAMPTZ
		)`,
		`CREATE TABLE points_transactions (
			id BIGINT PRIMARY KEY,
			user_id BIGINT NOT NULL,
			order_id TEXT,
			entry_type TEXT NOT NULL,
			delta BIGINT NOT NULL,
			note TEXT,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE refunds (
			id BIGINT PRIMARY KEY,
			order_id TEXT NOT NULL,
			provider_refund_id TEXT,
			total_cents BIGINT NOT NULL,
			points_clawed_back BIGINT NOT NULL DEFAULT 0,
			reason TEXT,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE UNIQUE INDEX ux_refunds_provider_refund ON refunds(provider_refund_id)
			WHERE provider_refund_id IS NOT NULL AND provider_refund_id <> ''`,
		`CREATE TABLE refund_items (
			id BIGINT PRIMARY KEY,
			refund_id BIGINT NOT NULL,
			slug TEXT,
			name TEXT NOT NULL,
			quantity BIGINT NOT NULL,
			unit_cents BIGINT NOT NULL
		)`,
	}
	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}
	return db
}

// fakeOrderService serves canned orders; refunds only ever call Get.
type fakeOrderService struct {
	orders map[string]orderdomain.Order
}

func (f *fakeOrderService) Get(ctx context.Context, id string) (orderdomain.Order, error) {
	order, ok := f.orders[id]
	if !ok {
		return orderdomain.Order{}, orderdomain.ErrNotFound
	}
	return order, nil
}

func (f *fakeOrderService) CreatePending(ctx context.Context, req orderdomain.CreatePendingRequest) (orderdomain.Order, error) {
	return orderdomain.Order{}, nil
}
func (f *fakeOrderService) Materialize(ctx context.Context, event orderdomain.CheckoutEvent) error {
	return nil
}
func (f *fakeOrderService) List(ctx context.Context, req orderdomain.ListOrdersRequest) ([]orderdomain.Order, error) {
	return nil, nil
}
func (f *fakeOrderService) ListByUser(ctx context.Context, userID snowflake.ID, limit int) ([]orderdomain.Order, error) {
	return nil, nil
}
func (f *fakeOrderService) UpdateShipping(ctx context.Context, req orderdomain.UpdateShippingRequest) error {
	return nil
}
func (f *fakeOrderService) Cancel(ctx context.Context, id string) error { return nil }
func (f *fakeOrderService) ListAlerts(ctx context.Context, limit int) ([]orderdomain.OrderAlert, error) {
	return nil, nil
}
func (f *fakeOrderService) PriorOrderStats(ctx context.Context, email string) (int64, int64, error) {
	return 0, 0, nil
}

type fixture struct {
	db         *gorm.DB
	node       *snowflake.Node
	catalogSvc catalogdomain.Service
	pointsSvc  pointsdomain.Service
	orders     *fakeOrderService
	refundSvc  domain.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := setupTestDB(t)
	node, err := snowflake.NewNode(13)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	log := zap.NewNop()

	catalogSvc := catalogservice.New(catalogservice.Params{
		DB: db, Log: log, GenID: node, Repo: catalogrepo.Provide(),
	})
	pointsSvc := pointsservice.New(pointsservice.Params{
		DB: db, Log: log, GenID: node, Repo: pointsrepo.Provide(),
	})
	orders := &fakeOrderService{orders: map[string]orderdomain.Order{}}
	refundSvc := service.New(service.Params{
		DB:          db,
		Log:         log,
		GenID:       node,
		Repo:        repository.Provide(),
		OrderSvc:    orders,
		CatalogSvc:  catalogSvc,
		CatalogRepo: catalogrepo.Provide(),
		PointsSvc:   pointsSvc,
	})
	return &fixture{
		db:         db,
		node:       node,
		catalogSvc: catalogSvc,
		pointsSvc:  pointsSvc,
		orders:     orders,
		refundSvc:  refundSvc,
	}
}

func (f *fixture) seedUser(t *testing.T, points int64) snowflake.ID {
	t.Helper()
	id := f.node.Generate()
	err := f.db.Exec(
		`INSERT INTO users (id, email, password_hash, points, created_at, updated_at)
		 VALUES (?, ?, 'x', ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`,
		id, fmt.Sprintf("user%s@example.com", id), points,
	).Error
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return id
}

func (f *fixture) productStock(t *testing.T, slug string) int64 {
	t.Helper()
	var stock int64
	if err := f.db.Raw(`SELECT stock FROM products WHERE slug = ?`, slug).Scan(&stock).Error; err != nil {
		t.Fatalf("read stock: %v", err)
	}
	return stock
}

func (f *fixture) completedOrder(userID *snowflake.ID) orderdomain.Order {
	return orderdomain.Order{
		ID:                   "cs_ref_1",
		Provider:             "stripe",
		UserID:               userID,
		Status:               orderdomain.StatusCompleted,
		TotalCents:           4998,
		ProductSubtotalCents: 4998,
		PointsEarned:         50,
		CreatedAt:            time.Now().UTC(),
		UpdatedAt:            time.Now().UTC(),
		Items: []orderdomain.OrderItem{{
			Slug:      "amber-glow",
			Name:      "Amber Glow",
			Quantity:  2,
			UnitCents: 2499,
		}},
	}
}

func TestCreateRefundRestocksAndClawsBackPoints(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if _, err := f.catalogSvc.CreateProduct(ctx, catalogdomain.CreateProductRequest{
		Name:       "Amber Glow",
		PriceCents: 2499,
		Stock:      3,
	}); err != nil {
		t.Fatalf("create product: %v", err)
	}
	userID := f.seedUser(t, 50)
	f.orders.orders["cs_ref_1"] = f.completedOrder(&userID)

	refund, err := f.refundSvc.Create(ctx, domain.CreateRequest{
		OrderID:        "cs_ref_1",
		Items:          []domain.CreateItemRequest{{Slug: "amber-glow", Quantity: 1}},
		Reason:         "cracked jar",
		Restock:        true,
		ClawbackPoints: true,
	})
	if err != nil {
		t.Fatalf("create refund: %v", err)
	}

	if refund.TotalCents != 2499 {
		t.Fatalf("expected total 2499, got %d", refund.TotalCents)
	}
	// 50 earned points scaled by the refunded half of the subtotal.
	if refund.PointsClawedBack != 25 {
		t.Fatalf("expected 25 points clawed back, got %d", refund.PointsClawedBack)
	}

	balance, err := f.pointsSvc.Balance(ctx, userID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 25 {
		t.Fatalf("expected balance 25 after clawback, got %d", balance)
	}

	if stock := f.productStock(t, "amber-glow"); stock != 4 {
		t.Fatalf("expected stock 4 after restock, got %d", stock)
	}

	listed, err := f.refundSvc.ListByOrder(ctx, "cs_ref_1")
	if err != nil {
		t.Fatalf("list by order: %v", err)
	}
	if len(listed) != 1 || len(listed[0].Items) != 1 || listed[0].Items[0].Quantity != 1 {
		t.Fatalf("unexpected refunds: %+v", listed)
	}
}

func TestCreateRefundRejectsOverRefund(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if _, err := f.catalogSvc.CreateProduct(ctx, catalogdomain.CreateProductRequest{
		Name:       "Amber Glow",
		PriceCents: 2499,
		Stock:      3,
	}); err != nil {
		t.Fatalf("create product: %v", err)
	}
	f.orders.orders["cs_ref_1"] = f.completedOrder(nil)

	if _, err := f.refundSvc.Create(ctx, domain.CreateRequest{
		OrderID: "cs_ref_1",
		Items:   []domain.CreateItemRequest{{Slug: "amber-glow", Quantity: 1}},
	}); err != nil {
		t.Fatalf("first refund: %v", err)
	}

	// One of two units is already refunded; two more would exceed the order.
	_, err := f.refundSvc.Create(ctx, domain.CreateRequest{
		OrderID: "cs_ref_1",
		Items:   []domain.CreateItemRequest{{Slug: "amber-glow", Quantity: 2}},
	})
	if !errors.Is(err, domain.ErrOverRefund) {
		t.Fatalf("expected ErrOverRefund, got %v", err)
	}

	_, err = f.refundSvc.Create(ctx, domain.CreateRequest{
		OrderID: "cs_ref_1",
		Items:   []domain.CreateItemRequest{{Slug: "no-such-candle", Quantity: 1}},
	})
	if !errors.Is(err, domain.ErrInvalidItems) {
		t.Fatalf("expected ErrInvalidItems for unknown slug, got %v", err)
	}
}

func TestCreateRefundRequiresCompletedOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	pending := f.completedOrder(nil)
	pending.Status = orderdomain.StatusPending
	f.orders.orders["cs_ref_1"] = pending

	_, err := f.refundSvc.Create(ctx, domain.CreateRequest{
		OrderID: "cs_ref_1",
		Items:   []domain.CreateItemRequest{{Slug: "amber-glow", Quantity: 1}},
	})
	if !errors.Is(err, domain.ErrOrderNotRefunded) {
		t.Fatalf("expected ErrOrderNotRefunded, got %v", err)
	}

	_, err = f.refundSvc.Create(ctx, domain.CreateRequest{
		OrderID: "cs_missing",
		Items:   []domain.CreateItemRequest{{Slug: "amber-glow", Quantity: 1}},
	})
	if !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestHandleProviderRefundDeduplicates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.orders.orders["cs_ref_1"] = f.completedOrder(nil)

	event := orderdomain.RefundEvent{
		Provider:         "stripe",
		ProviderRefundID: "re_abc",
		OrderID:          "cs_ref_1",
		AmountCents:      2499,
	}
	if err := f.refundSvc.HandleProviderRefund(ctx, event); err != nil {
		t.Fatalf("provider refund: %v", err)
	}
	// Redelivery of the same provider refund id is a no-op.
	if err := f.refundSvc.HandleProviderRefund(ctx, event); err != nil {
		t.Fatalf("redelivered provider refund: %v", err)
	}

	listed, err := f.refundSvc.ListByOrder(ctx, "cs_ref_1")
	if err != nil {
		t.Fatalf("list by order: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("expected 1 refund after redelivery, got %d", len(listed))
	}
	if listed[0].TotalCents != 2499 || listed[0].ProviderRefundID != "re_abc" {
		t.Fatalf("unexpected refund: %+v", listed[0])
	}

	// Unknown orders are logged and dropped, not errors.
	if err := f.refundSvc.HandleProviderRefund(ctx, orderdomain.RefundEvent{
		Provider:         "stripe",
		ProviderRefundID: "re_def",
		OrderID:          "cs_missing",
		AmountCents:      100,
	}); err != nil {
		t.Fatalf("unknown order should be dropped, got %v", err)
	}
}
