package domain

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(id int64, price int64, qty int) LineItem {
	return LineItem{ID: id, Name: "Book", Price: decimal.NewFromInt(price), Image: "/img.jpg", Qty: qty}
}

func TestAdd_AppendsAndMerges(t *testing.T) {
	c := Cart{}

	c, err := c.Add(item(1, 89000, 1))
	require.NoError(t, err)
	c, err = c.Add(item(2, 120000, 2))
	require.NoError(t, err)
	c, err = c.Add(item(1, 89000, 3))
	require.NoError(t, err)

	require.Len(t, c.Items, 2)
	assert.Equal(t, int64(1), c.Items[0].ID)
	assert.Equal(t, 4, c.Items[0].Qty)
	assert.Equal(t, int64(2), c.Items[1].ID)
	assert.Equal(t, 2, c.Items[1].Qty)
}

func TestAdd_KeepsOriginalSnapshotOnMerge(t *testing.T) {
	c, _ := Cart{}.Add(LineItem{ID: 1, Name: "Old", Price: decimal.NewFromInt(10), Qty: 1})
	c, _ = c.Add(LineItem{ID: 1, Name: "New", Price: decimal.NewFromInt(99), Qty: 1})

	assert.Equal(t, "Old", c.Items[0].Name)
	assert.True(t, c.Items[0].Price.Equal(decimal.NewFromInt(10)))
}

func TestAdd_RejectsInvalidItems(t *testing.T) {
	c := Cart{}

	_, err := c.Add(item(0, 10, 1))
	assert.ErrorIs(t, err, ErrInvalidItem)

	_, err = c.Add(item(1, 10, 0))
	assert.ErrorIs(t, err, ErrInvalidItem)

	_, err = c.Add(item(1, -10, 1))
	assert.ErrorIs(t, err, ErrInvalidItem)
}

func TestAdd_DoesNotMutateReceiver(t *testing.T) {
	base, _ := Cart{}.Add(item(1, 10, 1))
	_, _ = base.Add(item(1, 10, 5))

	assert.Equal(t, 1, base.Items[0].Qty)
}

func TestAdd_RandomSequencesKeepOneRowPerID(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for run := 0; run < 50; run++ {
		c := Cart{}
		want := map[int64]int{}
		for i := 0; i < 40; i++ {
			id := int64(rng.Intn(6) + 1)
			qty := rng.Intn(5) + 1
			var err error
			c, err = c.Add(item(id, 1000, qty))
			require.NoError(t, err)
			want[id] += qty
		}

		require.NoError(t, c.Validate())
		assert.Len(t, c.Items, len(want))
		for _, it := range c.Items {
			assert.Equal(t, want[it.ID], it.Qty, "qty for id %d", it.ID)
		}
	}
}

func TestUpdateQuantity_ClampsAtOne(t *testing.T) {
	c, _ := Cart{}.Add(item(1, 10, 3))

	for _, delta := range []int{-1, -2, -3, -100, -1 << 30} {
		next := c.UpdateQuantity(1, delta)
		assert.GreaterOrEqual(t, next.Items[0].Qty, 1, "delta %d", delta)
	}

	assert.Equal(t, 1, c.UpdateQuantity(1, -5).Items[0].Qty)
	assert.Equal(t, 2, c.UpdateQuantity(1, -1).Items[0].Qty)
	assert.Equal(t, 8, c.UpdateQuantity(1, 5).Items[0].Qty)
}

func TestUpdateQuantity_UnknownIDIsNoop(t *testing.T) {
	c, _ := Cart{}.Add(item(1, 10, 3))

	next := c.UpdateQuantity(99, 4)

	assert.Equal(t, c.Items, next.Items)
}

func TestRemove(t *testing.T) {
	c, _ := Cart{}.Add(item(1, 10, 1))
	c, _ = c.Add(item(2, 20, 1))
	c, _ = c.Add(item(3, 30, 1))

	next := c.Remove(2)
	require.Len(t, next.Items, 2)
	_, found := next.Find(2)
	assert.False(t, found)
	assert.Equal(t, int64(1), next.Items[0].ID)
	assert.Equal(t, int64(3), next.Items[1].ID)

	same := next.Remove(42)
	assert.Equal(t, next.Items, same.Items)
}

func TestSubtotal(t *testing.T) {
	c := New([]LineItem{
		{ID: 1, Name: "A", Price: decimal.NewFromInt(89000), Qty: 1},
		{ID: 2, Name: "B", Price: decimal.NewFromInt(120000), Qty: 2},
	})

	assert.True(t, decimal.NewFromInt(329000).Equal(c.Subtotal()), c.Subtotal().String())
	assert.Equal(t, 3, c.ItemCount())
	assert.True(t, Cart{}.Subtotal().IsZero())
}

func TestValidate_DetectsDuplicates(t *testing.T) {
	c := New([]LineItem{item(1, 10, 1), item(1, 10, 2)})

	assert.ErrorIs(t, c.Validate(), ErrInvalidItem)
}
