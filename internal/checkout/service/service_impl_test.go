package service_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/emberhollow/storefront/internal/catalog/domain"
	catalogrepo "github.com/emberhollow/storefront/internal/catalog/repository"
	catalogservice "github.com/emberhollow/storefront/internal/catalog/service"
	checkoutdomain "github.com/emberhollow/storefront/internal/checkout/domain"
	checkoutservice "github.com/emberhollow/storefront/internal/checkout/service"
	"github.com/emberhollow/storefront/internal/checkout/squareapi"
	"github.com/emberhollow/storefront/internal/checkout/stripeapi"
	"github.com/emberhollow/storefront/internal/config"
	"github.com/emberhollow/storefront/internal/inventory"
	orderdomain "github.com/emberhollow/storefront/internal/order/domain"
	orderrepo "github.com/emberhollow/storefront/internal/order/repository"
	orderservice "github.com/emberhollow/storefront/internal/order/service"
	pointsdomain "github.com/emberhollow/storefront/internal/points/domain"
	pointsrepo "github.com/emberhollow/storefront/internal/points/repository"
	pointsservice "github.com/emberhollow/storefront/internal/points/service"
	promotiondomain "github.com/emberhollow/storefront/internal/promotion/domain"
	promotionrepo "github.com/emberhollow/storefront/internal/promotion/repository"
	promotionservice "github.com/emberhollow/storefront/internal/promotion/service"
	"github.com/emberhollow/storefront/internal/providers/email"
	"github.com/emberhollow/storefront/internal/token"
	userrepo "github.com/emberhollow/storefront/internal/user/repository"
	userservice "github.com/emberhollow/storefront/internal/user/service"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_checkout_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	schema := []string{
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
		`CREATE TABLE points_transactions (
			id BIGINT PRIMARY KEY,
			user_id BIGINT NOT NULL,
			order_id TEXT,
			entry_type TEXT NOT NULL,
			delta BIGINT NOT NULL,
			note TEXT,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE promotions (
			id BIGINT PRIMARY KEY,
			code TEXT NOT NULL UNIQUE,
			type TEXT NOT NULL,
			percent BIGINT,
			amount_cents BIGINT,
			max_redemptions BIGINT NOT NULL DEFAULT 0,
			current_redemptions BIGINT NOT NULL DEFAULT 0,
			per_customer_limit BIGINT NOT NULL DEFAULT 0,
			min_order_cents BIGINT NOT NULL DEFAULT 0,
			targeting TEXT NOT NULL DEFAULT 'all',
			allow_list TEXT,
			min_order_count BIGINT,
			min_spend_cents BIGINT,
			product_slugs TEXT,
			starts_at TIMESTAMPTZ,
			expires_at TIMESTAMPTZ,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE promotion_redemptions (
			id BIGINT PRIMARY KEY,
			promotion_id BIGINT NOT NULL,
			user_id BIGINT,
			email TEXT NOT NULL,
			order_id TEXT NOT NULL,
			discount_cents BIGINT NOT NULL,
			redeemed_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE orders (
			id TEXT PRIMARY KEY,
			provider TEXT NOT NULL,
			user_id BIGINT,
			email TEXT,
			status TEXT NOT NULL DEFAULT 'pending',
			total_cents BIGINT NOT NULL DEFAULT 0,
			product_subtotal_cents BIGINT NOT NULL DEFAULT 0,
			shipping_cents BIGINT NOT NULL DEFAULT 0,
			tax_cents BIGINT NOT NULL DEFAULT 0,
			discount_cents BIGINT NOT NULL DEFAULT 0,
			points_earned BIGINT NOT NULL DEFAULT 0,
			points_redeemed BIGINT NOT NULL DEFAULT 0,
			promotion_id BIGINT,
			shipping_status TEXT NOT NULL DEFAULT 'unshipped',
			carrier TEXT,
			tracking_number TEXT,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			completed_at TIMESTAMPTZ
		)`,
		`CREATE TABLE order_items (
			id BIGINT PRIMARY KEY,
			order_id TEXT NOT NULL,
			slug TEXT,
			name TEXT NOT NULL,
			wick_type TEXT,
			scent TEXT,
			quantity BIGINT NOT NULL,
			unit_cents BIGINT NOT NULL,
			unmapped BOOLEAN NOT NULL DEFAULT FALSE
		)`,
		`CREATE TABLE order_alerts (
			id BIGINT PRIMARY KEY,
			order_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			detail TEXT,
			created_at TIMESTAMPTZ NOT NULL
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
	db           *gorm.DB
	node         *snowflake.Node
	catalogSvc   catalogdomain.Service
	pointsSvc    pointsdomain.Service
	promotionSvc promotiondomain.Service
	orderSvc     orderdomain.Service
	svc          checkoutdomain.Service
	stripeCalls  *int
}

func newOrderService(
	t *testing.T,
	db *gorm.DB,
	node *snowflake.Node,
	catalogSvc catalogdomain.Service,
	pointsSvc pointsdomain.Service,
	promotionSvc promotiondomain.Service,
) orderdomain.Service {
	t.Helper()
	log := zap.NewNop()
	userSvc := userservice.New(userservice.Params{
		DB: db, Log: log, GenID: node, Repo: userrepo.Provide(),
	})
	return orderservice.New(orderservice.Params{
		DB:           db,
		Log:          log,
		GenID:        node,
		Cfg:          config.Config{BaseURL: "https://shop.example"},
		Loyalty:      config.NewStaticLoyaltyHolder(config.DefaultLoyaltyConfig()),
		Repo:         orderrepo.Provide(),
		CatalogSvc:   catalogSvc,
		CatalogRepo:  catalogrepo.Provide(),
		UserSvc:      userSvc,
		PointsSvc:    pointsSvc,
		PromotionSvc: promotionSvc,
		Tokens:       token.NewMemoryStore(),
		Email:        &email.NoOpProvider{},
		Inventory:    inventory.NoopSyncer{},
	})
}

func newFixture(t *testing.T, stripeStatus int) *fixture {
	t.Helper()

	db := setupTestDB(t)
	node, err := snowflake.NewNode(13)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	log := zap.NewNop()

	calls := 0
	stripeServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Path != "/v1/checkout/sessions" {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		if stripeStatus != http.StatusOK {
			w.WriteHeader(stripeStatus)
			fmt.Fprint(w, `{"error": {"message": "boom", "type": "api_error"}}`)
			return
		}
		fmt.Fprintf(w, `{"id": "cs_test_%d", "url": "https://checkout.stripe.test/pay/cs_test_%d"}`, calls, calls)
	}))
	t.Cleanup(stripeServer.Close)

	squareServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"payment_link": {"id": "plink_1", "url": "https://square.test/pay/plink_1", "order_id": "sq_order_1"}}`)
	}))
	t.Cleanup(squareServer.Close)

	catalogSvc := catalogservice.New(catalogservice.Params{
		DB: db, Log: log, GenID: node, Repo: catalogrepo.Provide(),
	})
	pointsSvc := pointsservice.New(pointsservice.Params{
		DB: db, Log: log, GenID: node, Repo: pointsrepo.Provide(),
	})
	promotionSvc := promotionservice.New(promotionservice.Params{
		DB: db, Log: log, GenID: node, Repo: promotionrepo.Provide(),
	})
	orderSvc := newOrderService(t, db, node, catalogSvc, pointsSvc, promotionSvc)

	svc := checkoutservice.New(checkoutservice.Params{
		Log:          log,
		CatalogSvc:   catalogSvc,
		PromotionSvc: promotionSvc,
		PointsSvc:    pointsSvc,
		OrderSvc:     orderSvc,
		Stripe:       stripeapi.New(config.StripeConfig{SecretKey: "sk_test", APIBaseURL: stripeServer.URL, SuccessURL: "https://shop.example/done", CancelURL: "https://shop.example/cart"}),
		Square:       squareapi.New(config.SquareConfig{AccessToken: "sq_token", LocationID: "L1", APIBaseURL: squareServer.URL}, "https://shop.example/done"),
	})

	return &fixture{
		db:           db,
		node:         node,
		catalogSvc:   catalogSvc,
		pointsSvc:    pointsSvc,
		promotionSvc: promotionSvc,
		orderSvc:     orderSvc,
		svc:          svc,
		stripeCalls:  &calls,
	}
}

func (f *fixture) seedProduct(t *testing.T, name string, priceCents, stock int64, stripePriceID string) catalogdomain.Product {
	t.Helper()
	product, err := f.catalogSvc.CreateProduct(context.Background(), catalogdomain.CreateProductRequest{
		Name:          name,
		PriceCents:    priceCents,
		Stock:         stock,
		StripePriceID: stripePriceID,
	})
	if err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}

func (f *fixture) seedUser(t *testing.T, email string, points int64) snowflake.ID {
	t.Helper()
	id := f.node.Generate()
	if err := f.db.Exec(`
		INSERT INTO users (id, email, password_hash, role, points, created_at, updated_at)
		VALUES (?, ?, 'x', 'customer', ?, ?, ?)`,
		id, email, points, time.Now(), time.Now(),
	).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return id
}

func TestCreateSessionCreatesPendingOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, http.StatusOK)
	f.seedProduct(t, "Amber Noir", 2499, 10, "price_amber")

	session, err := f.svc.CreateSession(ctx, checkoutdomain.CreateSessionRequest{
		Email: "buyer@example.com",
		Items: []checkoutdomain.ItemRequest{{Slug: "amber-noir", Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if session.URL == "" || session.OrderID == "" {
		t.Fatalf("incomplete session: %+v", session)
	}
	if session.SubtotalCents != 4998 {
		t.Fatalf("expected subtotal 4998, got %d", session.SubtotalCents)
	}

	order, err := f.orderSvc.Get(ctx, session.OrderID)
	if err != nil {
		t.Fatalf("get pending order: %v", err)
	}
	if order.Status != orderdomain.StatusPending {
		t.Fatalf("expected pending order, got %s", order.Status)
	}
	if order.Email != "buyer@example.com" {
		t.Fatalf("unexpected email %q", order.Email)
	}
}

func TestCreateSessionRejectsUnknownItem(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, http.StatusOK)

	_, err := f.svc.CreateSession(ctx, checkoutdomain.CreateSessionRequest{
		Email: "buyer@example.com",
		Items: []checkoutdomain.ItemRequest{{Slug: "does-not-exist", Quantity: 1}},
	})
	if !errors.Is(err, checkoutdomain.ErrUnknownItem) {
		t.Fatalf("expected ErrUnknownItem, got %v", err)
	}
	if *f.stripeCalls != 0 {
		t.Fatalf("provider should not be called for invalid cart")
	}
}

func TestCreateSessionRejectsInvalidPromotion(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, http.StatusOK)
	f.seedProduct(t, "Clove Hearth", 1800, 5, "price_clove")

	_, err := f.svc.CreateSession(ctx, checkoutdomain.CreateSessionRequest{
		Email:         "buyer@example.com",
		Items:         []checkoutdomain.ItemRequest{{Slug: "clove-hearth", Quantity: 1}},
		PromotionCode: "NOPE",
	})
	if !errors.Is(err, checkoutdomain.ErrPromotionRejected) {
		t.Fatalf("expected ErrPromotionRejected, got %v", err)
	}
}

func TestCreateSessionCapsPointsAtBalance(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, http.StatusOK)
	f.seedProduct(t, "Birch Ember", 2000, 5, "price_birch")
	userID := f.seedUser(t, "loyal@example.com", 500)

	session, err := f.svc.CreateSession(ctx, checkoutdomain.CreateSessionRequest{
		Email:          "loyal@example.com",
		UserID:         &userID,
		Items:          []checkoutdomain.ItemRequest{{Slug: "birch-ember", Quantity: 1}},
		PointsToRedeem: 5000,
	})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if session.PointsRedeemed != 500 {
		t.Fatalf("expected redemption capped at 500, got %d", session.PointsRedeemed)
	}

	order, _ := f.orderSvc.Get(ctx, session.OrderID)
	if order.PointsRedeemed != 500 {
		t.Fatalf("expected pending order to carry 500 redeemed points, got %d", order.PointsRedeemed)
	}
	if order.TotalCents != 1500 {
		t.Fatalf("expected total 1500 after points, got %d", order.TotalCents)
	}
}

func TestCreateSessionAppliesPromotionDiscount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, http.StatusOK)
	f.seedProduct(t, "Fig Orchard", 3000, 5, "price_fig")
	if _, err := f.promotionSvc.Create(ctx, promotiondomain.CreatePromotionRequest{
		Code: "TEN", Type: promotiondomain.TypePercentage, Percent: 10,
	}); err != nil {
		t.Fatalf("create promotion: %v", err)
	}

	session, err := f.svc.CreateSession(ctx, checkoutdomain.CreateSessionRequest{
		Email:         "buyer@example.com",
		Items:         []checkoutdomain.ItemRequest{{Slug: "fig-orchard", Quantity: 1}},
		PromotionCode: "ten",
	})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if session.DiscountCents != 300 {
		t.Fatalf("expected 300 cents discount, got %d", session.DiscountCents)
	}
}

func TestCreateSessionSquareProvider(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, http.StatusOK)
	f.seedProduct(t, "Juniper Smoke", 2200, 5, "price_juniper")

	session, err := f.svc.CreateSession(ctx, checkoutdomain.CreateSessionRequest{
		Provider: "square",
		Email:    "buyer@example.com",
		Items:    []checkoutdomain.ItemRequest{{Slug: "juniper-smoke", Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if session.OrderID != "sq_order_1" {
		t.Fatalf("expected square order id, got %q", session.OrderID)
	}

	order, err := f.orderSvc.Get(ctx, "sq_order_1")
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if order.Provider != "square" {
		t.Fatalf("expected square provider, got %q", order.Provider)
	}
}

func TestCreateSessionProviderFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, http.StatusBadGateway)
	f.seedProduct(t, "Broken Wick", 1000, 5, "price_broken")

	_, err := f.svc.CreateSession(ctx, checkoutdomain.CreateSessionRequest{
		Email: "buyer@example.com",
		Items: []checkoutdomain.ItemRequest{{Slug: "broken-wick", Quantity: 1}},
	})
	if !errors.Is(err, checkoutdomain.ErrProviderFailure) {
		t.Fatalf("expected ErrProviderFailure, got %v", err)
	}

	var count int64
	_ = f.db.Raw("SELECT COUNT(*) FROM orders").Scan(&count).Error
	if count != 0 {
		t.Fatalf("expected no pending order on provider failure, got %d", count)
	}
}
