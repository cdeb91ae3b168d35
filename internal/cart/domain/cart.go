package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// CartKey is the storage key of a device-local cart.
const CartKey = "bookstore_cart"

var ErrInvalidItem = errors.New("invalid cart item")

// LineItem is one product in the cart. Name, Price and Image are snapshots taken when the item was added.
type LineItem struct {
	ID    int64           `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Image string          `json:"image"`
	Qty   int             `json:"qty"`
}

func (i LineItem) Validate() error {
	if i.ID <= 0 {
		return fmt.Errorf("%w: id must be positive, got %d", ErrInvalidItem, i.ID)
	}
	if i.Qty < 1 {
		return fmt.Errorf("%w: qty must be at least 1, got %d", ErrInvalidItem, i.Qty)
	}
	if i.Price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidItem)
	}
	return nil
}

func (i LineItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Qty)))
}

// Cart keeps line items in insertion order with at most one row per product id.
// Every mutation returns a new Cart and leaves the receiver untouched.
type Cart struct {
	Items []LineItem
}

func New(items []LineItem) Cart {
	return Cart{Items: append([]LineItem(nil), items...)}
}

func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

func (c Cart) Find(id int64) (LineItem, bool) {
	if idx := c.indexOf(id); idx >= 0 {
		return c.Items[idx], true
	}
	return LineItem{}, false
}

// Add merges item by id: an existing row gets its qty increased, a new id is appended.
func (c Cart) Add(item LineItem) (Cart, error) {
	if err := item.Validate(); err != nil {
		return c, err
	}
	next := New(c.Items)
	if idx := next.indexOf(item.ID); idx >= 0 {
		next.Items[idx].Qty += item.Qty
		return next, nil
	}
	next.Items = append(next.Items, item)
	return next, nil
}

// UpdateQuantity applies delta to the matching row, never going below 1. Unknown ids are a no-op.
func (c Cart) UpdateQuantity(id int64, delta int) Cart {
	next := New(c.Items)
	if idx := next.indexOf(id); idx >= 0 {
		next.Items[idx].Qty = max(1, next.Items[idx].Qty+delta)
	}
	return next
}

// Remove drops the matching row. Unknown ids are a no-op.
func (c Cart) Remove(id int64) Cart {
	next := Cart{Items: make([]LineItem, 0, len(c.Items))}
	for _, item := range c.Items {
		if item.ID != id {
			next.Items = append(next.Items, item)
		}
	}
	return next
}

func (c Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.Subtotal())
	}
	return total
}

func (c Cart) ItemCount() int {
	n := 0
	for _, item := range c.Items {
		n += item.Qty
	}
	return n
}

// Validate checks the per-item rules and the unique id invariant.
func (c Cart) Validate() error {
	seen := make(map[int64]struct{}, len(c.Items))
	for _, item := range c.Items {
		if err := item.Validate(); err != nil {
			return err
		}
		if _, dup := seen[item.ID]; dup {
			return fmt.Errorf("%w: duplicate id %d", ErrInvalidItem, item.ID)
		}
		seen[item.ID] = struct{}{}
	}
	return nil
}

func (c Cart) indexOf(id int64) int {
	for i := range c.Items {
		if c.Items[i].ID == id {
			return i
		}
	}
	return -1
}
