package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/go_bookstore/internal/backend"
	"github.com/fjod/go_bookstore/internal/cart/poller"
	cartservice "github.com/fjod/go_bookstore/internal/cart/service"
	"github.com/fjod/go_bookstore/internal/cart/storage"
	"github.com/fjod/go_bookstore/internal/checkout/publisher"
	"github.com/fjod/go_bookstore/internal/checkout/repository"
	"github.com/fjod/go_bookstore/internal/checkout/service"
	"github.com/fjod/go_bookstore/internal/config"
	h "github.com/fjod/go_bookstore/internal/gateway/http"
	"github.com/fjod/go_bookstore/pkg/logger"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStorage(ctx, cfg.Storage, log)
	if err != nil {
		log.Fatal("failed to open cart storage", zap.String("driver", cfg.Storage.Driver), zap.Error(err))
	}
	defer closeStore()

	repo, err := openJournal(cfg.JournalDSN, log)
	if err != nil {
		log.Fatal("failed to open checkout journal", zap.Error(err))
	}
	defer repo.Close()

	var events interface {
		service.Publisher
		Close() error
	} = publisher.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		events = publisher.NewKafkaPublisher(log, cfg.KafkaBrokers...)
		log.Info("publishing checkout events", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", publisher.Topic))
	}
	defer events.Close()

	client := backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout, nil, log)
	carts := cartservice.NewCartService(store, log)
	checkout := service.NewCheckoutService(repo, carts, events, log, service.Options{
		ShippingFee: cfg.ShippingFee,
		Timeout:     cfg.Backend.Timeout,
		CartKey:     cartservice.SessionKey,
	})

	if len(cfg.KafkaBrokers) > 0 {
		results := poller.NewPoller(checkout, log, cfg.KafkaBrokers...)
		defer results.Close()
		go results.Run(ctx)
		log.Info("consuming payment results", zap.String("topic", poller.Topic))
	}

	router := h.NewRouter(h.Handlers{
		Books:    h.NewBooksHandler(client, cfg.Backend.Timeout),
		Cart:     h.NewCartHandler(carts, client, cfg.Backend.Timeout, log),
		Checkout: h.NewCheckoutHandler(checkout, client, cfg.RequestTimeout, log),
		Orders:   h.NewOrdersHandler(client, cfg.Backend.Timeout),
	}, cfg.RequestTimeout)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(router, "storefront"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("storefront starting",
			zap.String("port", cfg.HTTPPort),
			zap.String("backend", cfg.Backend.BaseURL),
			zap.String("cart_storage", cfg.Storage.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()

	log.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server exited")
}

func openStorage(ctx context.Context, cfg config.StorageConfig, log *zap.Logger) (storage.Storage, func(), error) {
	switch cfg.Driver {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       0,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("redis ping failed: %w", err)
		}
		log.Info("redis ping succeeded", zap.String("addr", cfg.RedisAddr))
		return storage.NewRedis(client), func() { _ = client.Close() }, nil

	case "mongo":
		db, err := storage.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			return nil, nil, err
		}
		log.Info("connected to MongoDB", zap.String("database", cfg.MongoDBName))
		return storage.NewMongo(db), func() { _ = db.Client().Disconnect(context.Background()) }, nil

	case "sqlite":
		db, err := storage.NewSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		if err := db.RunMigrations(); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		log.Info("opened SQLite cart storage", zap.String("path", cfg.SQLitePath))
		return db, func() { _ = db.Close() }, nil

	default:
		log.Warn("carts are kept in memory and lost on restart")
		return storage.NewMemory(), func() {}, nil
	}
}

func openJournal(dsn string, log *zap.Logger) (repository.RepoInterface, error) {
	if dsn == "" {
		log.Warn("checkout journal is kept in memory")
		return repository.NewMemoryRepository(), nil
	}
	repo, err := repository.NewRepository(dsn)
	if err != nil {
		return nil, err
	}
	if err := repo.RunMigrations(); err != nil {
		_ = repo.Close()
		return nil, err
	}
	log.Info("checkout journal ready")
	return repo, nil
}
