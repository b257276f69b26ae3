package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type RegisterRequest struct {
	Email    string
	Password string
	Name     string
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, user *User) error
	Save(ctx context.Context, db *gorm.DB, user *User) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*User, error)
	FindByEmail(ctx context.Context, db *gorm.DB, email string) (*User, error)
	List(ctx context.Context, db *gorm.DB) ([]*User, error)
	SoftDelete(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)
}

type Service interface {
	Register(ctx context.Context, req RegisterRequest) (User, error)
	Authenticate(ctx context.Context, email, password string) (User, error)
	GetByID(ctx context.Context, id snowflake.ID) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	List(ctx context.Context) ([]User, error)
	UpdateProfile(ctx context.Context, id snowflake.ID, name string) (User, error)
	ChangePassword(ctx context.Context, id snowflake.ID, current, next string) error
	ResetPassword(ctx context.Context, id snowflake.ID, next string) error
	MarkEmailVerified(ctx context.Context, id snowflake.ID) error
	SetRole(ctx context.Context, id snowflake.ID, role string) error
	Delete(ctx context.Context, id snowflake.ID) error
}

var (
	ErrNotFound           = errors.New("not_found")
	ErrInvalidEmail       = errors.New("invalid_email")
	ErrWeakPassword       = errors.New("weak_password")
	ErrEmailTaken         = errors.New("email_taken")
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrInvalidRole        = errors.New("invalid_role")
)
