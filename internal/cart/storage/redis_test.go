package storage

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates a miniredis server and returns a Redis storage on top of it
func setupTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { client.Close() })

	return NewRedis(client), mr
}

func TestRedis_Contract(t *testing.T) {
	s, _ := setupTestRedis(t)
	runStorageContract(t, s)
}

func TestRedis_SetHasNoTTL(t *testing.T) {
	s, mr := setupTestRedis(t)

	require.NoError(t, s.Set(context.Background(), "bookstore_cart:u1", []byte("[]")))

	assert.Equal(t, int64(0), int64(mr.TTL("bookstore_cart:u1")))
}

func TestRedis_ServerDown(t *testing.T) {
	s, mr := setupTestRedis(t)
	mr.Close()

	_, err := s.Get(context.Background(), "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.ErrorContains(t, err, "redis get failed")
}
