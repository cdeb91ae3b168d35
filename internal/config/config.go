package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type Config struct {
	Environment     string
	LogLevel        string
	HTTPPort        string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration

	Backend BackendConfig
	Storage StorageConfig

	// JournalDSN points at the postgres checkout journal. When empty the storefront keeps it in memory
	// and the CLI keeps it in the SQLite file.
	JournalDSN   string
	KafkaBrokers []string
	ShippingFee  decimal.Decimal
}

type BackendConfig struct {
	BaseURL string
	Timeout time.Duration
}

type StorageConfig struct {
	Driver        string // memory, sqlite, redis, mongo
	SQLitePath    string
	RedisAddr     string
	RedisPassword string
	MongoURI      string
	MongoDBName   string
}

func Load() (*Config, error) {
	// .env is optional, real environment variables win
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")
	v.SetDefault("BACKEND_BASE_URL", "http://localhost:9605/app")
	v.SetDefault("BACKEND_TIMEOUT", "15s")
	v.SetDefault("CART_STORAGE", "memory")
	v.SetDefault("SQLITE_PATH", "./bookstore.db")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DB_NAME", "bookstore")
	v.SetDefault("SHIPPING_FEE", "0")
}

func fromViper(v *viper.Viper) (*Config, error) {
	shipping, err := decimal.NewFromString(v.GetString("SHIPPING_FEE"))
	if err != nil {
		return nil, fmt.Errorf("invalid SHIPPING_FEE: %w", err)
	}
	if shipping.IsNegative() {
		return nil, fmt.Errorf("invalid SHIPPING_FEE: must not be negative")
	}

	driver := strings.ToLower(v.GetString("CART_STORAGE"))
	switch driver {
	case "memory", "sqlite", "redis", "mongo":
	default:
		return nil, fmt.Errorf("invalid CART_STORAGE %q", driver)
	}

	cfg := &Config{
		Environment:     v.GetString("ENVIRONMENT"),
		LogLevel:        v.GetString("LOG_LEVEL"),
		HTTPPort:        v.GetString("HTTP_PORT"),
		RequestTimeout:  v.GetDuration("REQUEST_TIMEOUT"),
		ShutdownTimeout: v.GetDuration("SHUTDOWN_TIMEOUT"),
		Backend: BackendConfig{
			BaseURL: strings.TrimSuffix(v.GetString("BACKEND_BASE_URL"), "/"),
			Timeout: v.GetDuration("BACKEND_TIMEOUT"),
		},
		Storage: StorageConfig{
			Driver:        driver,
			SQLitePath:    v.GetString("SQLITE_PATH"),
			RedisAddr:     v.GetString("REDIS_ADDR"),
			RedisPassword: v.GetString("REDIS_PASSWORD"),
			MongoURI:      v.GetString("MONGO_URI"),
			MongoDBName:   v.GetString("MONGO_DB_NAME"),
		},
		JournalDSN:   v.GetString("JOURNAL_DSN"),
		KafkaBrokers: splitList(v.GetString("KAFKA_BROKERS")),
		ShippingFee:  shipping,
	}
	return cfg, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
