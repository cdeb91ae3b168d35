package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, "http://localhost:9605/app", cfg.Backend.BaseURL)
	assert.Equal(t, 15*time.Second, cfg.Backend.Timeout)
	assert.True(t, cfg.ShippingFee.IsZero())
	assert.Empty(t, cfg.KafkaBrokers)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("CART_STORAGE", "Redis")
	t.Setenv("BACKEND_BASE_URL", "https://api.example.com/app/")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,,")
	t.Setenv("SHIPPING_FEE", "20000")
	t.Setenv("REQUEST_TIMEOUT", "5s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "redis", cfg.Storage.Driver)
	assert.Equal(t, "https://api.example.com/app", cfg.Backend.BaseURL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "20000", cfg.ShippingFee.String())
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Setenv("CART_STORAGE", "localstorage")
	_, err := Load()
	assert.ErrorContains(t, err, "invalid CART_STORAGE")

	t.Setenv("CART_STORAGE", "memory")
	t.Setenv("SHIPPING_FEE", "-1")
	_, err = Load()
	assert.ErrorContains(t, err, "invalid SHIPPING_FEE")

	t.Setenv("SHIPPING_FEE", "free")
	_, err = Load()
	assert.ErrorContains(t, err, "invalid SHIPPING_FEE")
}
