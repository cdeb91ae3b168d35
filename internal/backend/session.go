package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_bookstore/internal/cart/storage"
	"github.com/golang-jwt/jwt/v5"
)

// Keys a device-local session is kept under.
const (
	KeyAuthToken    = "auth_token"
	KeyRefreshToken = "refresh_token"
	KeyUserEmail    = "user_email"
	KeyUserRole     = "user_role"
)

var sessionKeys = []string{KeyAuthToken, KeyRefreshToken, KeyUserEmail, KeyUserRole}

// TokenStore supplies the bearer token and forgets the session when the backend rejects it.
type TokenStore interface {
	Token(ctx context.Context) (string, error)
	Save(ctx context.Context, auth *AuthResponse) error
	Clear(ctx context.Context) error
}

// StoredTokens keeps the session in the same storage backend as the cart.
type StoredTokens struct {
	storage storage.Storage
}

func NewStoredTokens(s storage.Storage) *StoredTokens {
	return &StoredTokens{storage: s}
}

func (t *StoredTokens) Token(ctx context.Context) (string, error) {
	raw, err := t.storage.Get(ctx, KeyAuthToken)
	if errors.Is(err, storage.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read auth token: %w", err)
	}
	return string(raw), nil
}

func (t *StoredTokens) Save(ctx context.Context, auth *AuthResponse) error {
	values := map[string]string{
		KeyAuthToken:    auth.Token,
		KeyRefreshToken: auth.RefreshToken,
		KeyUserEmail:    auth.Email,
		KeyUserRole:     auth.Role,
	}
	for _, key := range sessionKeys {
		if values[key] == "" {
			continue
		}
		if err := t.storage.Set(ctx, key, []byte(values[key])); err != nil {
			return fmt.Errorf("store %s: %w", key, err)
		}
	}
	return nil
}

func (t *StoredTokens) Clear(ctx context.Context) error {
	var errs []error
	for _, key := range sessionKeys {
		if err := t.storage.Delete(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("clear %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

// StaticToken forwards a token owned by someone else, e.g. the storefront caller.
type StaticToken string

func (s StaticToken) Token(context.Context) (string, error) { return string(s), nil }
func (s StaticToken) Save(context.Context, *AuthResponse) error { return nil }
func (s StaticToken) Clear(context.Context) error { return nil }

// TokenUsable reports whether token may authenticate a request at now.
// Opaque (non-JWT) tokens are assumed usable; only the backend can judge them.
func TokenUsable(token string, now time.Time) bool {
	if token == "" {
		return false
	}
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return true
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return true
	}
	return now.Before(exp.Time)
}
