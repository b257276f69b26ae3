package webhook_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	catalogrepo "github.com/emberhollow/storefront/internal/catalog/repository"
	catalogservice "github.com/emberhollow/storefront/internal/catalog/service"
	"github.com/emberhollow/storefront/internal/config"
	"github.com/emberhollow/storefront/internal/inventory"
	orderdomain "github.com/emberhollow/storefront/internal/order/domain"
	orderrepo "github.com/emberhollow/storefront/internal/order/repository"
	orderservice "github.com/emberhollow/storefront/internal/order/service"
	"github.com/emberhollow/storefront/internal/payment/adapters"
	"github.com/emberhollow/storefront/internal/payment/adapters/stripe"
	paymentdomain "github.com/emberhollow/storefront/internal/payment/domain"
	paymentrepo "github.com/emberhollow/storefront/internal/payment/repository"
	"github.com/emberhollow/storefront/internal/payment/webhook"
	pointsrepo "github.com/emberhollow/storefront/internal/points/repository"
	pointsservice "github.com/emberhollow/storefront/internal/points/service"
	promotionrepo "github.com/emberhollow/storefront/internal/promotion/repository"
	promotionservice "github.com/emberhollow/storefront/internal/promotion/service"
	"github.com/emberhollow/storefront/internal/providers/email"
	refundrepo "github.com/emberhollow/storefront/internal/refund/repository"
	refundservice "github.com/emberhollow/storefront/internal/refund/service"
	"github.com/emberhollow/storefront/internal/token"
	userrepo "github.com/emberhollow/storefront/internal/user/repository"
	userservice "github.com/emberhollow/storefront/internal/user/service"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testWebhookSecret = "whsec_test"

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_webhook_%d?mode=memory&cache=shared", time.Now().UnixNano())
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
		`CREATE UNIQUE INDEX ux_users_email ON users(email)`,
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
		`CREATE UNIQUE INDEX ux_products_slug ON products(slug)`,
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
			code TEXT NOT NULL,
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
		`CREATE UNIQUE INDEX ux_promotions_code ON promotions(code)`,
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
		`CREATE TABLE refunds (
			id BIGINT PRIMARY KEY,
			order_id TEXT NOT NULL,
			provider_refund_id TEXT,
			total_cents BIGINT NOT NULL,
			points_clawed_back BIGINT NOT NULL DEFAULT 0,
			reason TEXT,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE UNIQUE INDEX ux_refunds_provider_refund ON refunds(provider_refund_id)`,
		`CREATE TABLE refund_items (
			id BIGINT PRIMARY KEY,
			refund_id BIGINT NOT NULL,
			slug TEXT,
			name TEXT NOT NULL,
			quantity BIGINT NOT NULL,
			unit_cents BIGINT NOT NULL
		)`,
		`CREATE TABLE webhook_events (
			id BIGINT PRIMARY KEY,
			provider TEXT NOT NULL,
			provider_event_id TEXT NOT NULL,
			event_type TEXT NOT NULL,
			payload TEXT,
			received_at TIMESTAMPTZ NOT NULL,
			processed_at TIMESTAMPTZ
		)`,
		`CREATE UNIQUE INDEX ux_webhook_events_provider_event ON webhook_events(provider, provider_event_id)`,
	}
	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}
	return db
}

type fixture struct {
	db       *gorm.DB
	orderSvc orderdomain.Service
	svc      paymentdomain.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := setupTestDB(t)
	node, err := snowflake.NewNode(12)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	log := zap.NewNop()

	catalogSvc := catalogservice.New(catalogservice.Params{
		DB: db, Log: log, GenID: node, Repo: catalogrepo.Provide(),
	})
	userSvc := userservice.New(userservice.Params{
		DB: db, Log: log, GenID: node, Repo: userrepo.Provide(),
	})
	pointsSvc := pointsservice.New(pointsservice.Params{
		DB: db, Log: log, GenID: node, Repo: pointsrepo.Provide(),
	})
	promotionSvc := promotionservice.New(promotionservice.Params{
		DB: db, Log: log, GenID: node, Repo: promotionrepo.Provide(),
	})
	orderSvc := orderservice.New(orderservice.Params{
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
	refundSvc := refundservice.New(refundservice.Params{
		DB:          db,
		Log:         log,
		GenID:       node,
		Repo:        refundrepo.Provide(),
		OrderSvc:    orderSvc,
		CatalogSvc:  catalogSvc,
		CatalogRepo: catalogrepo.Provide(),
		PointsSvc:   pointsSvc,
	})

	svc := webhook.NewService(webhook.Params{
		DB:        db,
		Log:       log,
		GenID:     node,
		Repo:      paymentrepo.Provide(),
		Adapters:  adapters.NewRegistry(stripe.New(testWebhookSecret)),
		OrderSvc:  orderSvc,
		RefundSvc: refundSvc,
	})

	return &fixture{db: db, orderSvc: orderSvc, svc: svc}
}

func (f *fixture) seedProduct(t *testing.T, name string, priceCents, stock int64, stripePriceID string) {
	t.Helper()
	if err := f.db.Exec(`
		INSERT INTO products (id, slug, name, price_cents, stock, stripe_price_id, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, TRUE, ?, ?)`,
		time.Now().UnixNano(), name, name, priceCents, stock, stripePriceID, time.Now(), time.Now(),
	).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
}

func signStripe(payload []byte) http.Header {
	timestamp := fmt.Sprintf("%d", time.Now().Unix())
	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	mac.Write([]byte(timestamp + "." + string(payload)))
	header := http.Header{}
	header.Set("Stripe-Signature", fmt.Sprintf("t=%s,v1=%s", timestamp, hex.EncodeToString(mac.Sum(nil))))
	return header
}

func checkoutPayload(eventID, sessionID, priceID string, quantity, unitCents int64) []byte {
	return []byte(fmt.Sprintf(`{
		"id": %q,
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": %q,
			"customer_details": {"email": "buyer@example.com"},
			"amount_total": %d,
			"amount_subtotal": %d,
			"line_items": {"data": [
				{"quantity": %d, "description": "Candle", "price": {"id": %q, "unit_amount": %d}}
			]}
		}}
	}`, eventID, sessionID, quantity*unitCents, quantity*unitCents, quantity, priceID, unitCents))
}

func TestIngestMaterializesOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedProduct(t, "ember-glow", 2499, 10, "price_glow")

	payload := checkoutPayload("evt_1", "cs_hook_1", "price_glow", 2, 2499)
	if err := f.svc.Ingest(ctx, "stripe", payload, signStripe(payload)); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	order, err := f.orderSvc.Get(ctx, "cs_hook_1")
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if order.Status != orderdomain.StatusCompleted {
		t.Fatalf("expected completed order, got %s", order.Status)
	}

	var stock int64
	if err := f.db.Raw("SELECT stock FROM products WHERE stripe_price_id = ?", "price_glow").Scan(&stock).Error; err != nil {
		t.Fatalf("scan stock: %v", err)
	}
	if stock != 8 {
		t.Fatalf("expected stock 8, got %d", stock)
	}
}

func TestIngestDuplicateEventProcessedOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedProduct(t, "twice-told", 1899, 10, "price_twice")

	payload := checkoutPayload("evt_dup", "cs_hook_dup", "price_twice", 1, 1899)
	if err := f.svc.Ingest(ctx, "stripe", payload, signStripe(payload)); err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	err := f.svc.Ingest(ctx, "stripe", payload, signStripe(payload))
	if !errors.Is(err, paymentdomain.ErrEventAlreadyProcessed) {
		t.Fatalf("expected ErrEventAlreadyProcessed, got %v", err)
	}

	var stock int64
	_ = f.db.Raw("SELECT stock FROM products WHERE stripe_price_id = ?", "price_twice").Scan(&stock).Error
	if stock != 9 {
		t.Fatalf("expected one decrement, got stock %d", stock)
	}
	var count int64
	_ = f.db.Raw("SELECT COUNT(*) FROM webhook_events").Scan(&count).Error
	if count != 1 {
		t.Fatalf("expected one event row, got %d", count)
	}
}

func TestIngestRejectsBadSignature(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	payload := checkoutPayload("evt_bad", "cs_hook_bad", "price_none", 1, 1000)
	header := http.Header{}
	header.Set("Stripe-Signature", fmt.Sprintf("t=%d,v1=deadbeef", time.Now().Unix()))

	err := f.svc.Ingest(ctx, "stripe", payload, header)
	if !errors.Is(err, paymentdomain.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}

	var count int64
	_ = f.db.Raw("SELECT COUNT(*) FROM orders").Scan(&count).Error
	if count != 0 {
		t.Fatalf("expected no orders, got %d", count)
	}
}

func TestIngestIgnoredEventType(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	payload := []byte(`{"id": "evt_noise", "type": "invoice.paid", "data": {"object": {}}}`)
	err := f.svc.Ingest(ctx, "stripe", payload, signStripe(payload))
	if !errors.Is(err, paymentdomain.ErrEventIgnored) {
		t.Fatalf("expected ErrEventIgnored, got %v", err)
	}
}

func TestIngestUnknownProvider(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	err := f.svc.Ingest(ctx, "paypal", []byte(`{}`), http.Header{})
	if !errors.Is(err, paymentdomain.ErrProviderNotFound) {
		t.Fatalf("expected ErrProviderNotFound, got %v", err)
	}
}

func TestIngestDispatchesRefund(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedProduct(t, "refund-me", 3000, 5, "price_refund")

	checkout := checkoutPayload("evt_co", "cs_hook_refund", "price_refund", 1, 3000)
	if err := f.svc.Ingest(ctx, "stripe", checkout, signStripe(checkout)); err != nil {
		t.Fatalf("ingest checkout: %v", err)
	}

	refund := []byte(`{
		"id": "evt_rf",
		"type": "charge.refunded",
		"data": {"object": {
			"id": "ch_1",
			"amount_refunded": 3000,
			"metadata": {"order_id": "cs_hook_refund"},
			"refunds": {"data": [{"id": "re_1", "reason": "requested_by_customer"}]}
		}}
	}`)
	if err := f.svc.Ingest(ctx, "stripe", refund, signStripe(refund)); err != nil {
		t.Fatalf("ingest refund: %v", err)
	}

	var count int64
	_ = f.db.Raw("SELECT COUNT(*) FROM refunds WHERE order_id = ? AND provider_refund_id = ?",
		"cs_hook_refund", "re_1").Scan(&count).Error
	if count != 1 {
		t.Fatalf("expected refund row, got %d", count)
	}
}

func TestPurgeProcessedBefore(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedProduct(t, "old-news", 1200, 5, "price_old")

	payload := checkoutPayload("evt_old", "cs_hook_old", "price_old", 1, 1200)
	if err := f.svc.Ingest(ctx, "stripe", payload, signStripe(payload)); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	// Nothing is older than a cutoff in the past.
	purged, err := f.svc.PurgeProcessedBefore(ctx, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if purged != 0 {
		t.Fatalf("expected 0 purged, got %d", purged)
	}

	purged, err = f.svc.PurgeProcessedBefore(ctx, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if purged != 1 {
		t.Fatalf("expected 1 purged, got %d", purged)
	}

	var count int64
	_ = f.db.Raw("SELECT COUNT(*) FROM webhook_events").Scan(&count).Error
	if count != 0 {
		t.Fatalf("expected events purged, got %d", count)
	}
}
