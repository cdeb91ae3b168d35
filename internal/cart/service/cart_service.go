package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fjod/go_bookstore/internal/cart/domain"
	"github.com/fjod/go_bookstore/internal/cart/storage"
	"go.uber.org/zap"
)

const schemaVersion = 1

var ErrUnsupportedVersion = errors.New("unsupported cart schema version")

// persistedCart is the stored layout. Older carts were stored as a bare JSON array of items.
type persistedCart struct {
	Version int               `json:"version"`
	Items   []domain.LineItem `json:"items"`
}

// CartService persists carts through a Storage backend. Every mutation is a read-modify-write of the
// whole cart; concurrent writers to the same key are last-write-wins.
type CartService struct {
	storage storage.Storage
	logger  *zap.Logger
}

func NewCartService(s storage.Storage, logger *zap.Logger) *CartService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CartService{
		storage: s,
		logger:  logger,
	}
}

// SessionKey scopes a cart to one storefront session.
func SessionKey(sessionID string) string {
	return domain.CartKey + ":" + sessionID
}

// GetCart never fails: a missing, unreadable or corrupt cart is returned as an empty one.
func (s *CartService) GetCart(ctx context.Context, key string) domain.Cart {
	raw, err := s.storage.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("cart storage read failed, using empty cart", zap.String("key", key), zap.Error(err))
		}
		return domain.Cart{}
	}

	cart, err := decodeCart(raw)
	if err != nil {
		s.logger.Warn("stored cart is corrupt, using empty cart", zap.String("key", key), zap.Error(err))
		return domain.Cart{}
	}
	return cart
}

// SaveCart replaces the stored cart in a single write.
func (s *CartService) SaveCart(ctx context.Context, key string, cart domain.Cart) error {
	if err := cart.Validate(); err != nil {
		return err
	}

	items := cart.Items
	if items == nil {
		items = []domain.LineItem{}
	}
	raw, err := json.Marshal(persistedCart{Version: schemaVersion, Items: items})
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}

	if err := s.storage.Set(ctx, key, raw); err != nil {
		s.logger.Error("cart storage write failed", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("save cart failed: %w", err)
	}
	return nil
}

func (s *CartService) AddToCart(ctx context.Context, key string, item domain.LineItem) (domain.Cart, error) {
	cart, err := s.GetCart(ctx, key).Add(item)
	if err != nil {
		return domain.Cart{}, err
	}
	if err := s.SaveCart(ctx, key, cart); err != nil {
		return domain.Cart{}, err
	}
	return cart, nil
}

func (s *CartService) UpdateQuantity(ctx context.Context, key string, productID int64, delta int) (domain.Cart, error) {
	cart := s.GetCart(ctx, key).UpdateQuantity(productID, delta)
	if err := s.SaveCart(ctx, key, cart); err != nil {
		return domain.Cart{}, err
	}
	return cart, nil
}

func (s *CartService) RemoveItem(ctx context.Context, key string, productID int64) (domain.Cart, error) {
	cart := s.GetCart(ctx, key).Remove(productID)
	if err := s.SaveCart(ctx, key, cart); err != nil {
		return domain.Cart{}, err
	}
	return cart, nil
}

func (s *CartService) ClearCart(ctx context.Context, key string) error {
	if err := s.storage.Delete(ctx, key); err != nil {
		s.logger.Error("cart storage delete failed", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("clear cart failed: %w", err)
	}
	return nil
}

func decodeCart(raw []byte) (domain.Cart, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return domain.Cart{}, errors.New("empty cart payload")
	}

	var items []domain.LineItem
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return domain.Cart{}, fmt.Errorf("unmarshal cart failed: %w", err)
		}
	} else {
		var stored persistedCart
		if err := json.Unmarshal(trimmed, &stored); err != nil {
			return domain.Cart{}, fmt.Errorf("unmarshal cart failed: %w", err)
		}
		if stored.Version != schemaVersion {
			return domain.Cart{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, stored.Version)
		}
		items = stored.Items
	}

	cart := domain.New(items)
	if err := cart.Validate(); err != nil {
		return domain.Cart{}, err
	}
	return cart, nil
}
