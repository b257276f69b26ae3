package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/emberhollow/storefront/internal/user/domain"
	"github.com/emberhollow/storefront/internal/user/repository"
	"github.com/emberhollow/storefront/internal/user/service"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_user_%d?mode=memory&cache=shared", time.Now().UnixNano())
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
	}
	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}
	return db
}

func newService(t *testing.T, db *gorm.DB) domain.Service {
	t.Helper()

	node, err := snowflake.NewNode(3)
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

func TestRegisterAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, setupTestDB(t))

	user, err := svc.Register(ctx, domain.RegisterRequest{
		Email:    "  Maddie@Example.COM ",
		Password: "correct-horse",
		Name:     "Maddie",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Email != "maddie@example.com" {
		t.Fatalf("expected normalized email, got %q", user.Email)
	}
	if user.Role != domain.RoleCustomer {
		t.Fatalf("expected customer role, got %q", user.Role)
	}

	got, err := svc.Authenticate(ctx, "maddie@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if got.ID != user.ID {
		t.Fatal("authenticated as wrong user")
	}

	if _, err := svc.Authenticate(ctx, "maddie@example.com", "wrong"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, "nobody@example.com", "whatever"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, setupTestDB(t))

	if _, err := svc.Register(ctx, domain.RegisterRequest{Email: "not-an-email", Password: "longenough"}); !errors.Is(err, domain.ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
	if _, err := svc.Register(ctx, domain.RegisterRequest{Email: "a@b.com", Password: "short"}); !errors.Is(err, domain.ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}

	if _, err := svc.Register(ctx, domain.RegisterRequest{Email: "a@b.com", Password: "longenough"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Register(ctx, domain.RegisterRequest{Email: "A@B.com", Password: "longenough"}); !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestChangeAndResetPassword(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, setupTestDB(t))

	user, err := svc.Register(ctx, domain.RegisterRequest{Email: "c@d.com", Password: "first-pass"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := svc.ChangePassword(ctx, user.ID, "wrong", "second-pass"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if err := svc.ChangePassword(ctx, user.ID, "first-pass", "second-pass"); err != nil {
		t.Fatalf("change password: %v", err)
	}
	if _, err := svc.Authenticate(ctx, "c@d.com", "second-pass"); err != nil {
		t.Fatalf("authenticate after change: %v", err)
	}

	if err := svc.ResetPassword(ctx, user.ID, "third-pass"); err != nil {
		t.Fatalf("reset password: %v", err)
	}
	if _, err := svc.Authenticate(ctx, "c@d.com", "third-pass"); err != nil {
		t.Fatalf("authenticate after reset: %v", err)
	}
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, setupTestDB(t))

	user, err := svc.Register(ctx, domain.RegisterRequest{Email: "g@h.com", Password: "longenough", Name: "Old Name"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	updated, err := svc.UpdateProfile(ctx, user.ID, "  New Name  ")
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if updated.Name != "New Name" {
		t.Fatalf("expected trimmed name, got %q", updated.Name)
	}

	if _, err := svc.UpdateProfile(ctx, snowflake.ID(999), "x"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMarkEmailVerifiedAndDelete(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, setupTestDB(t))

	user, err := svc.Register(ctx, domain.RegisterRequest{Email: "e@f.com", Password: "longenough"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := svc.MarkEmailVerified(ctx, user.ID); err != nil {
		t.Fatalf("verify: %v", err)
	}
	got, err := svc.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.EmailVerified {
		t.Fatal("expected email_verified")
	}

	if err := svc.Delete(ctx, user.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.GetByID(ctx, user.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}
