package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/fjod/go_bookstore/internal/cart/domain"
	"github.com/fjod/go_bookstore/internal/cart/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStorage struct {
	m       sync.Mutex
	getErr  error
	setErr  error
	delErr  error
	setCall int
}

func (f *failingStorage) Get(context.Context, string) ([]byte, error) {
	return nil, f.getErr
}

func (f *failingStorage) Set(context.Context, string, []byte) error {
	f.m.Lock()
	defer f.m.Unlock()
	f.setCall++
	return f.setErr
}

func (f *failingStorage) Delete(context.Context, string) error {
	return f.delErr
}

func book(id int64, name string, price int64, qty int) domain.LineItem {
	return domain.LineItem{ID: id, Name: name, Price: decimal.NewFromInt(price), Image: "/covers/" + name + ".jpg", Qty: qty}
}

func assertSameCart(t *testing.T, want, got domain.Cart) {
	t.Helper()
	require.Len(t, got.Items, len(want.Items))
	for i := range want.Items {
		w, g := want.Items[i], got.Items[i]
		assert.Equal(t, w.ID, g.ID)
		assert.Equal(t, w.Name, g.Name)
		assert.Equal(t, w.Image, g.Image)
		assert.Equal(t, w.Qty, g.Qty)
		assert.True(t, w.Price.Equal(g.Price), "price of %d: want %s got %s", w.ID, w.Price, g.Price)
	}
}

func newTestService() (*CartService, *storage.Memory) {
	mem := storage.NewMemory()
	return NewCartService(mem, nil), mem
}

func TestGetCart_MissingKeyIsEmpty(t *testing.T) {
	svc, _ := newTestService()

	cart := svc.GetCart(context.Background(), domain.CartKey)

	assert.True(t, cart.IsEmpty())
}

func TestGetCart_StorageErrorIsEmpty(t *testing.T) {
	svc := NewCartService(&failingStorage{getErr: errors.New("storage unavailable")}, nil)

	cart := svc.GetCart(context.Background(), domain.CartKey)

	assert.True(t, cart.IsEmpty())
}

func TestGetCart_CorruptPayloadsAreEmpty(t *testing.T) {
	payloads := map[string]string{
		"truncated":        `{"version":1,"items":[{"id":1`,
		"not json":         `bookstore`,
		"blank":            `   `,
		"null":             `null`,
		"future version":   `{"version":2,"items":[]}`,
		"missing version":  `{"items":[{"id":1,"name":"A","price":10,"qty":1}]}`,
		"zero qty":         `{"version":1,"items":[{"id":1,"name":"A","price":10,"qty":0}]}`,
		"duplicate ids":    `[{"id":1,"price":1,"qty":1},{"id":1,"price":1,"qty":2}]`,
		"wrong item shape": `[1,2,3]`,
	}

	for name, payload := range payloads {
		t.Run(name, func(t *testing.T) {
			svc, mem := newTestService()
			require.NoError(t, mem.Set(context.Background(), domain.CartKey, []byte(payload)))

			assert.NotPanics(t, func() {
				assert.True(t, svc.GetCart(context.Background(), domain.CartKey).IsEmpty())
			})
		})
	}
}

func TestGetCart_ReadsLegacyArray(t *testing.T) {
	svc, mem := newTestService()
	legacy := `[{"id":1,"name":"A","price":89000,"image":"/a.jpg","qty":1},{"id":2,"name":"B","price":120000,"image":"/b.jpg","qty":2}]`
	require.NoError(t, mem.Set(context.Background(), domain.CartKey, []byte(legacy)))

	cart := svc.GetCart(context.Background(), domain.CartKey)

	require.Len(t, cart.Items, 2)
	assert.Equal(t, "B", cart.Items[1].Name)
	assert.True(t, decimal.NewFromInt(329000).Equal(cart.Subtotal()))
}

func TestSaveCart_RoundTripPreservesOrder(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	cart := domain.New([]domain.LineItem{
		book(7, "Dune", 150000, 1),
		book(3, "Emma", 90500, 4),
		book(12, "Ulysses", 0, 2),
	})

	require.NoError(t, svc.SaveCart(ctx, domain.CartKey, cart))

	assertSameCart(t, cart, svc.GetCart(ctx, domain.CartKey))
}

func TestSaveCart_RoundTripKeepsFractionalPrices(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	cart := domain.New([]domain.LineItem{
		{ID: 1, Name: "Dune", Price: decimal.RequireFromString("12.50"), Image: "/dune.jpg", Qty: 3},
		{ID: 2, Name: "Emma", Price: decimal.RequireFromString("0.10"), Image: "/emma.jpg", Qty: 7},
		{ID: 3, Name: "Ulysses", Price: decimal.New(199, -2), Image: "/ulysses.jpg", Qty: 1},
	})

	require.NoError(t, svc.SaveCart(ctx, domain.CartKey, cart))
	got := svc.GetCart(ctx, domain.CartKey)

	assertSameCart(t, cart, got)
	assert.Equal(t, "12.50", got.Items[0].Price.StringFixed(2))
	assert.Equal(t, "0.10", got.Items[1].Price.StringFixed(2))
	assert.True(t, decimal.RequireFromString("40.19").Equal(got.Subtotal()), got.Subtotal().String())
	assert.Equal(t, cart.Subtotal().StringFixed(2), got.Subtotal().StringFixed(2))
}

func TestSaveCart_WritesVersionedEnvelope(t *testing.T) {
	svc, mem := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.SaveCart(ctx, domain.CartKey, domain.Cart{}))

	raw, err := mem.Get(ctx, domain.CartKey)
	require.NoError(t, err)
	var stored map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &stored))
	assert.JSONEq(t, `1`, string(stored["version"]))
	assert.JSONEq(t, `[]`, string(stored["items"]))
}

func TestSaveCart_RejectsMalformedCart(t *testing.T) {
	f := &failingStorage{}
	svc := NewCartService(f, nil)

	err := svc.SaveCart(context.Background(), domain.CartKey, domain.New([]domain.LineItem{book(1, "A", 1, 0)}))

	assert.ErrorIs(t, err, domain.ErrInvalidItem)
	assert.Equal(t, 0, f.setCall)
}

func TestAddToCart_MergesAndPersists(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.AddToCart(ctx, domain.CartKey, book(1, "A", 89000, 1))
	require.NoError(t, err)
	_, err = svc.AddToCart(ctx, domain.CartKey, book(2, "B", 120000, 2))
	require.NoError(t, err)
	returned, err := svc.AddToCart(ctx, domain.CartKey, book(1, "A", 89000, 2))
	require.NoError(t, err)

	stored := svc.GetCart(ctx, domain.CartKey)
	assertSameCart(t, returned, stored)
	require.Len(t, stored.Items, 2)
	assert.Equal(t, 3, stored.Items[0].Qty)
}

func TestAddToCart_WriteFailure(t *testing.T) {
	svc := NewCartService(&failingStorage{getErr: storage.ErrNotFound, setErr: errors.New("disk full")}, nil)

	_, err := svc.AddToCart(context.Background(), domain.CartKey, book(1, "A", 1, 1))

	assert.ErrorContains(t, err, "save cart failed")
}

func TestAddToCart_RecoversFromCorruptCart(t *testing.T) {
	svc, mem := newTestService()
	ctx := context.Background()
	require.NoError(t, mem.Set(ctx, domain.CartKey, []byte("{broken")))

	cart, err := svc.AddToCart(ctx, domain.CartKey, book(5, "E", 10, 1))

	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Len(t, svc.GetCart(ctx, domain.CartKey).Items, 1)
}

func TestUpdateQuantity_ClampsAndPersists(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	_, err := svc.AddToCart(ctx, domain.CartKey, book(1, "A", 10, 2))
	require.NoError(t, err)

	_, err = svc.UpdateQuantity(ctx, domain.CartKey, 1, -10)
	require.NoError(t, err)
	assert.Equal(t, 1, svc.GetCart(ctx, domain.CartKey).Items[0].Qty)

	_, err = svc.UpdateQuantity(ctx, domain.CartKey, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, 4, svc.GetCart(ctx, domain.CartKey).Items[0].Qty)

	_, err = svc.UpdateQuantity(ctx, domain.CartKey, 99, 3)
	require.NoError(t, err)
	assert.Len(t, svc.GetCart(ctx, domain.CartKey).Items, 1)
}

func TestRemoveItem(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	_, _ = svc.AddToCart(ctx, domain.CartKey, book(1, "A", 10, 1))
	_, _ = svc.AddToCart(ctx, domain.CartKey, book(2, "B", 20, 1))

	_, err := svc.RemoveItem(ctx, domain.CartKey, 1)
	require.NoError(t, err)
	cart := svc.GetCart(ctx, domain.CartKey)
	_, found := cart.Find(1)
	assert.False(t, found)

	before := svc.GetCart(ctx, domain.CartKey)
	_, err = svc.RemoveItem(ctx, domain.CartKey, 404)
	require.NoError(t, err)
	assertSameCart(t, before, svc.GetCart(ctx, domain.CartKey))
}

func TestClearCart(t *testing.T) {
	svc, mem := newTestService()
	ctx := context.Background()
	_, _ = svc.AddToCart(ctx, domain.CartKey, book(1, "A", 10, 1))

	require.NoError(t, svc.ClearCart(ctx, domain.CartKey))

	assert.True(t, svc.GetCart(ctx, domain.CartKey).IsEmpty())
	_, err := mem.Get(ctx, domain.CartKey)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSessionKeysAreIsolated(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.AddToCart(ctx, SessionKey("alice"), book(1, "A", 10, 1))
	require.NoError(t, err)

	assert.Equal(t, "bookstore_cart:alice", SessionKey("alice"))
	assert.True(t, svc.GetCart(ctx, SessionKey("bob")).IsEmpty())
	assert.Len(t, svc.GetCart(ctx, SessionKey("alice")).Items, 1)
}
