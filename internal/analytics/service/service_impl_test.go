package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	analyticsdomain "github.com/emberhollow/storefront/internal/analytics/domain"
	analyticsservice "github.com/emberhollow/storefront/internal/analytics/service"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_analytics_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	schema := []string{
		`CREATE TABLE users (
			id BIGINT PRIMARY KEY,
			email TEXT NOT NULL,
			password_hash TEXT NOT NULL,
			points BIGINT NOT NULL DEFAULT 0,
			role TEXT NOT NULL DEFAULT 'customer',
			name TEXT,
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
	}
	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}
	return db
}

func newService(t *testing.T) (analyticsdomain.Service, *gorm.DB) {
	t.Helper()
	db := setupTestDB(t)
	svc := analyticsservice.New(analyticsservice.Params{DB: db, Log: zap.NewNop()})
	return svc, db
}

func seedCompletedOrder(t *testing.T, db *gorm.DB, id string, totalCents int64, completedAt time.Time) {
	t.Helper()
	if err := db.Exec(`
		INSERT INTO orders (id, provider, email, status, total_cents, created_at, updated_at, completed_at)
		VALUES (?, 'stripe', 'x@y.com', 'completed', ?, ?, ?, ?)`,
		id, totalCents, completedAt, completedAt, completedAt,
	).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
}

func TestRevenueByDay(t *testing.T) {
	ctx := context.Background()
	svc, db := newService(t)

	day1 := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC)
	seedCompletedOrder(t, db, "o1", 2500, day1)
	seedCompletedOrder(t, db, "o2", 1500, day1.Add(2*time.Hour))
	seedCompletedOrder(t, db, "o3", 4000, day2)

	// Pending orders never count.
	if err := db.Exec(`
		INSERT INTO orders (id, provider, status, total_cents, created_at, updated_at)
		VALUES ('p1', 'stripe', 'pending', 9999, ?, ?)`, day1, day1,
	).Error; err != nil {
		t.Fatalf("seed pending: %v", err)
	}

	points, err := svc.RevenueByDay(ctx,
		time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("revenue by day: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("expected 2 days, got %d", len(points))
	}
	if points[0].RevenueCents != 4000 || points[0].Orders != 2 {
		t.Fatalf("unexpected day 1: %+v", points[0])
	}
	if points[1].RevenueCents != 4000 || points[1].Orders != 1 {
		t.Fatalf("unexpected day 2: %+v", points[1])
	}

	if _, err := svc.RevenueByDay(ctx, day2, day1); !errors.Is(err, analyticsdomain.ErrInvalidWindow) {
		t.Fatalf("expected ErrInvalidWindow, got %v", err)
	}
}

func TestTopProducts(t *testing.T) {
	ctx := context.Background()
	svc, db := newService(t)

	now := time.Now().UTC()
	seedCompletedOrder(t, db, "o1", 0, now)
	seedCompletedOrder(t, db, "o2", 0, now)
	items := []struct {
		order string
		slug  string
		qty   int64
		unit  int64
	}{
		{"o1", "lavender-dusk", 3, 2499},
		{"o2", "lavender-dusk", 2, 2499},
		{"o2", "smoked-cedar", 4, 1899},
	}
	for i, item := range items {
		if err := db.Exec(`
			INSERT INTO order_items (id, order_id, slug, name, quantity, unit_cents)
			VALUES (?, ?, ?, ?, ?, ?)`,
			i+1, item.order, item.slug, item.slug, item.qty, item.unit,
		).Error; err != nil {
			t.Fatalf("seed item: %v", err)
		}
	}

	top, err := svc.TopProducts(ctx, 10)
	if err != nil {
		t.Fatalf("top products: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("expected 2 products, got %d", len(top))
	}
	if top[0].Slug != "lavender-dusk" || top[0].Quantity != 5 {
		t.Fatalf("unexpected leader: %+v", top[0])
	}
}

func TestPointsLiability(t *testing.T) {
	ctx := context.Background()
	svc, db := newService(t)

	now := time.Now().UTC()
	// Balanced account.
	_ = db.Exec(`INSERT INTO users (id, email, password_hash, points, created_at, updated_at)
		VALUES (1, 'a@b.com', 'x', 50, ?, ?)`, now, now).Error
	_ = db.Exec(`INSERT INTO points_transactions (id, user_id, entry_type, delta, created_at)
		VALUES (1, 1, 'earn', 50, ?)`, now).Error
	// Drifted account: column says 80, ledger says 60.
	_ = db.Exec(`INSERT INTO users (id, email, password_hash, points, created_at, updated_at)
		VALUES (2, 'c@d.com', 'x', 80, ?, ?)`, now, now).Error
	_ = db.Exec(`INSERT INTO points_transactions (id, user_id, entry_type, delta, created_at)
		VALUES (2, 2, 'earn', 60, ?)`, now).Error

	liability, err := svc.PointsLiability(ctx)
	if err != nil {
		t.Fatalf("points liability: %v", err)
	}
	if liability.OutstandingPoints != 130 {
		t.Fatalf("expected 130 outstanding, got %d", liability.OutstandingPoints)
	}
	if liability.AccountsWithDrift != 1 {
		t.Fatalf("expected 1 drifted account, got %d", liability.AccountsWithDrift)
	}
}

func TestPromotionPerformance(t *testing.T) {
	ctx := context.Background()
	svc, db := newService(t)

	now := time.Now().UTC()
	_ = db.Exec(`INSERT INTO promotions (id, code, type, percent, created_at, updated_at)
		VALUES (1, 'TEN', 'percentage', 10, ?, ?)`, now, now).Error
	_ = db.Exec(`INSERT INTO promotions (id, code, type, amount_cents, created_at, updated_at)
		VALUES (2, 'FIVER', 'fixed', 500, ?, ?)`, now, now).Error
	for i := 0; i < 3; i++ {
		_ = db.Exec(`INSERT INTO promotion_redemptions (id, promotion_id, email, order_id, discount_cents, redeemed_at)
			VALUES (?, 1, 'x@y.com', ?, 250, ?)`, i+1, fmt.Sprintf("o%d", i), now).Error
	}

	rows, err := svc.PromotionPerformance(ctx)
	if err != nil {
		t.Fatalf("promotion performance: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 promotions, got %d", len(rows))
	}
	if rows[0].Code != "TEN" || rows[0].Redemptions != 3 || rows[0].DiscountCents != 750 {
		t.Fatalf("unexpected leader: %+v", rows[0])
	}
	if rows[1].Redemptions != 0 {
		t.Fatalf("expected 0 redemptions for FIVER, got %d", rows[1].Redemptions)
	}
}
