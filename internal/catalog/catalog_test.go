package catalog

import (
	"testing"
	"time"

	"github.com/fjod/go_bookstore/internal/backend"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func book(id int64, name string, price int64, category int64, created string) backend.Product {
	p := backend.Product{ID: id, Name: name, Price: decimal.NewFromInt(price)}
	if category != 0 {
		p.Category = &backend.Category{ID: category}
	}
	if created != "" {
		ts, _ := time.Parse("2006-01-02", created)
		p.CreatedAt = &ts
	}
	return p
}

func ids(products []backend.Product) []int64 {
	out := make([]int64, 0, len(products))
	for _, p := range products {
		out = append(out, p.ID)
	}
	return out
}

func shelf() []backend.Product {
	return []backend.Product{
		book(1, "Go in Action", 120000, 1, "2023-05-01"),
		book(2, "The Go Programming Language", 89000, 1, "2021-01-10"),
		book(3, "Dune", 150000, 2, "2024-02-20"),
		book(4, "Clean Code", 89000, 3, ""),
	}
}

func TestApply_Filters(t *testing.T) {
	min := decimal.NewFromInt(100000)
	max := decimal.NewFromInt(120000)

	tests := []struct {
		name string
		q    Query
		want []int64
	}{
		{"no filters keeps order", Query{}, []int64{1, 2, 3, 4}},
		{"search is case-insensitive", Query{Search: "  GO "}, []int64{1, 2}},
		{"category", Query{CategoryID: 1}, []int64{1, 2}},
		{"min price", Query{MinPrice: &min}, []int64{1, 3}},
		{"max price inclusive", Query{MaxPrice: &max}, []int64{1, 2, 4}},
		{"price range", Query{MinPrice: &min, MaxPrice: &max}, []int64{1}},
		{"nothing matches", Query{Search: "rust"}, []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(Apply(shelf(), tt.q)))
		})
	}
}

func TestApply_Sort(t *testing.T) {
	assert.Equal(t, []int64{2, 4, 1, 3}, ids(Apply(shelf(), Query{Sort: SortPriceAsc})), "ties keep backend order")
	assert.Equal(t, []int64{3, 1, 2, 4}, ids(Apply(shelf(), Query{Sort: SortPriceDesc})))
	assert.Equal(t, []int64{3, 1, 2, 4}, ids(Apply(shelf(), Query{Sort: SortNewest})))
	assert.Equal(t, []int64{4, 2, 1, 3}, ids(Apply(shelf(), Query{Sort: SortOldest})))
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	in := shelf()

	Apply(in, Query{Sort: SortPriceDesc})

	assert.Equal(t, []int64{1, 2, 3, 4}, ids(in))
}

func TestParseSort(t *testing.T) {
	s, err := ParseSort(" Price-Desc ")
	require.NoError(t, err)
	assert.Equal(t, SortPriceDesc, s)

	s, err = ParseSort("none")
	require.NoError(t, err)
	assert.Equal(t, SortNone, s)

	_, err = ParseSort("popularity")
	assert.ErrorIs(t, err, ErrUnknownSort)
}
