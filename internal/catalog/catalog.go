// Package catalog filters and orders a fetched page of books for display.
package catalog

import (
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/fjod/go_bookstore/internal/backend"
	"github.com/shopspring/decimal"
)

var ErrUnknownSort = errors.New("unknown sort order")

type Sort string

const (
	SortNone      Sort = ""
	SortPriceAsc  Sort = "price-asc"
	SortPriceDesc Sort = "price-desc"
	SortNewest    Sort = "newest"
	SortOldest    Sort = "oldest"
)

func ParseSort(raw string) (Sort, error) {
	switch s := Sort(strings.ToLower(strings.TrimSpace(raw))); s {
	case SortNone, SortPriceAsc, SortPriceDesc, SortNewest, SortOldest:
		return s, nil
	case "none":
		return SortNone, nil
	default:
		return SortNone, ErrUnknownSort
	}
}

// Query is a set of optional filters. Zero values mean "no filter".
type Query struct {
	Search     string
	CategoryID int64
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	Sort       Sort
}

// Apply returns the matching products in a new slice. Sorting is stable, so products that tie keep
// the backend's order.
func Apply(products []backend.Product, q Query) []backend.Product {
	search := strings.ToLower(strings.TrimSpace(q.Search))

	result := make([]backend.Product, 0, len(products))
	for _, p := range products {
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) {
			continue
		}
		if q.CategoryID != 0 && (p.Category == nil || p.Category.ID != q.CategoryID) {
			continue
		}
		if q.MinPrice != nil && p.Price.LessThan(*q.MinPrice) {
			continue
		}
		if q.MaxPrice != nil && p.Price.GreaterThan(*q.MaxPrice) {
			continue
		}
		result = append(result, p)
	}

	switch q.Sort {
	case SortPriceAsc:
		slices.SortStableFunc(result, func(a, b backend.Product) int { return a.Price.Cmp(b.Price) })
	case SortPriceDesc:
		slices.SortStableFunc(result, func(a, b backend.Product) int { return b.Price.Cmp(a.Price) })
	case SortNewest:
		slices.SortStableFunc(result, func(a, b backend.Product) int { return createdAt(b).Compare(createdAt(a)) })
	case SortOldest:
		slices.SortStableFunc(result, func(a, b backend.Product) int { return createdAt(a).Compare(createdAt(b)) })
	}
	return result
}

func createdAt(p backend.Product) time.Time {
	if p.CreatedAt == nil {
		return time.Time{}
	}
	return *p.CreatedAt
}
