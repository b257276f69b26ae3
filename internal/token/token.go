package token

import (
	"context"
	"crypto/rand"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
)

type Kind string

const (
	KindPasswordReset Kind = "pwreset"
	KindEmailVerify   Kind = "verify"
	KindInvoiceAccess Kind = "invoice"
)

var (
	ErrTokenNotFound = errors.New("token_not_found")
	ErrTokenExpired  = errors.New("token_expired")
)

type Claims struct {
	UserID  snowflake.ID `json:"user_id"`
	Subject string       `json:"subject,omitempty"`
}

// Store issues opaque single-use tokens. Consume removes the token in the same
// operation that reads it so a token can never be redeemed twice.
type Store interface {
	Issue(ctx context.Context, kind Kind, claims Claims, ttl time.Duration) (string, error)
	Consume(ctx context.Context, kind Kind, value string) (Claims, error)
	Peek(ctx context.Context, kind Kind, value string) (Claims, error)
}

func newValue() string {
	return ulid.MustNew(ulid.Timestamp(time.Now().UTC()), rand.Reader).String()
}
