package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/emberhollow/storefront/internal/points/domain"
	"github.com/emberhollow/storefront/internal/points/repository"
	"github.com/emberhollow/storefront/internal/points/service"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_points_%d?mode=memory&cache=shared", time.Now().UnixNano())
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
		`CREATE TABLE points_transactions (
			id BIGINT PRIMARY KEY,
			user_id BIGINT NOT NULL,
			order_id TEXT,
			entry_type TEXT NOT NULL,
			delta BIGINT NOT NULL,
			note TEXT,
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

func seedUser(t *testing.T, db *gorm.DB, id snowflake.ID, points int64) {
	t.Helper()
	err := db.Exec(
		`INSERT INTO users (id, email, password_hash, points, created_at, updated_at)
		 VALUES (?, ?, 'x', ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`,
		id, fmt.Sprintf("user%s@example.com", id), points,
	).Error
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
}

func newService(t *testing.T, db *gorm.DB) domain.Service {
	t.Helper()

	node, err := snowflake.NewNode(5)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	return service.New(service.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
	})
}

func TestAwardAndLedger(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newService(t, db)

	node, _ := snowflake.NewNode(6)
	userID := node.Generate()
	seedUser(t, db, userID, 0)

	if err := svc.Award(ctx, userID, "cs_test_1", 25); err != nil {
		t.Fatalf("award: %v", err)
	}

	balance, err := svc.Balance(ctx, userID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 25 {
		t.Fatalf("expected balance 25, got %d", balance)
	}

	ledger, err := svc.Ledger(ctx, userID, 10)
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	if len(ledger) != 1 || ledger[0].Delta != 25 || ledger[0].EntryType != domain.EntryTypeEarn {
		t.Fatalf("unexpected ledger: %+v", ledger)
	}

	if err := svc.Award(ctx, node.Generate(), "cs_test_2", 5); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestRedeemConditional(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newService(t, db)

	node, _ := snowflake.NewNode(6)
	userID := node.Generate()
	seedUser(t, db, userID, 30)

	if err := svc.Redeem(ctx, userID, "cs_test_1", 20); err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if err := svc.Redeem(ctx, userID, "cs_test_2", 20); !errors.Is(err, domain.ErrInsufficientPoints) {
		t.Fatalf("expected ErrInsufficientPoints, got %v", err)
	}

	balance, err := svc.Balance(ctx, userID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 10 {
		t.Fatalf("expected balance 10 after failed redeem, got %d", balance)
	}

	// The failed redeem must not leave a ledger row.
	ledger, err := svc.Ledger(ctx, userID, 10)
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	if len(ledger) != 1 {
		t.Fatalf("expected 1 ledger row, got %d", len(ledger))
	}
}

func TestAdjustDrivesBalanceNegative(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newService(t, db)

	node, _ := snowflake.NewNode(6)
	userID := node.Generate()
	seedUser(t, db, userID, 5)

	if err := svc.Adjust(ctx, userID, -10, "correction"); err != nil {
		t.Fatalf("adjust: %v", err)
	}

	balance, err := svc.Balance(ctx, userID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != -5 {
		t.Fatalf("expected balance -5, got %d", balance)
	}

	ledger, err := svc.Ledger(ctx, userID, 10)
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	if len(ledger) != 1 || ledger[0].Delta != -10 || ledger[0].EntryType != domain.EntryTypeAdjust {
		t.Fatalf("unexpected ledger: %+v", ledger)
	}

	if err := svc.Adjust(ctx, node.Generate(), -1, "x"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if err := svc.Adjust(ctx, userID, 0, "noop"); !errors.Is(err, domain.ErrInvalidPoints) {
		t.Fatalf("expected ErrInvalidPoints, got %v", err)
	}
}

func TestReconcileReportsDrift(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newService(t, db)

	node, _ := snowflake.NewNode(6)
	cleanID := node.Generate()
	driftID := node.Generate()
	seedUser(t, db, cleanID, 0)
	seedUser(t, db, driftID, 0)

	if err := svc.Award(ctx, cleanID, "cs_1", 40); err != nil {
		t.Fatalf("award: %v", err)
	}
	if err := svc.Award(ctx, driftID, "cs_2", 40); err != nil {
		t.Fatalf("award: %v", err)
	}
	// Corrupt one balance behind the ledger's back.
	if err := db.Exec(`UPDATE users SET points = 99 WHERE id = ?`, driftID).Error; err != nil {
		t.Fatalf("corrupt balance: %v", err)
	}

	drifts, err := svc.Reconcile(ctx)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if len(drifts) != 1 {
		t.Fatalf("expected 1 drift, got %d", len(drifts))
	}
	if drifts[0].UserID != driftID || drifts[0].Difference != 59 {
		t.Fatalf("unexpected drift: %+v", drifts[0])
	}
}
