package storage

import (
	"context"
	"errors"
)

// Storage is the key/value backend the cart store persists through.
// Set replaces the whole value in one write.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

var ErrNotFound = errors.New("key not found")
