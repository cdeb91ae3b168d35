package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fjod/go_bookstore/internal/backend"
	"github.com/fjod/go_bookstore/internal/catalog"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

const (
	defaultPageSize = 12
	maxPageSize     = 100
)

type BooksHandler struct {
	client  *backend.Client
	timeout time.Duration
}

func NewBooksHandler(client *backend.Client, timeout time.Duration) *BooksHandler {
	return &BooksHandler{
		client:  client,
		timeout: timeout,
	}
}

type BookPageDTO struct {
	Content       []backend.Product `json:"content"`
	Page          int               `json:"page"`
	Size          int               `json:"size"`
	TotalElements int64             `json:"total_elements"`
	TotalPages    int               `json:"total_pages"`
}

// GET /api/v1/books?page=&size=&listing=&search=&category=&min_price=&max_price=&sort=
func (h *BooksHandler) ListBooks(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	q, err := parseCatalogQuery(r)
	if err != nil {
		respondErrorDetails(w, http.StatusBadRequest, "invalid_query", "invalid catalog query", err.Error())
		return
	}

	client := forCaller(r.Context(), h.client)

	if listing := backend.Listing(r.URL.Query().Get("listing")); listing != "" {
		switch listing {
		case backend.ListingNewest, backend.ListingTrending, backend.ListingFlashSale:
		default:
			respondError(w, http.StatusBadRequest, "invalid_query", "unknown listing")
			return
		}
		products, err := client.Listing(ctx, listing)
		if err != nil {
			handleBackendError(w, err)
			return
		}
		filtered := catalog.Apply(products, q)
		respondJSON(w, http.StatusOK, BookPageDTO{
			Content:       filtered,
			Size:          len(filtered),
			TotalElements: int64(len(filtered)),
			TotalPages:    1,
		})
		return
	}

	page, size, err := parsePaging(r)
	if err != nil {
		respondErrorDetails(w, http.StatusBadRequest, "invalid_query", "invalid paging", err.Error())
		return
	}

	resp, err := client.Products(ctx, page, size)
	if err != nil {
		handleBackendError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, BookPageDTO{
		Content:       catalog.Apply(resp.Content, q),
		Page:          page,
		Size:          size,
		TotalElements: resp.TotalElements,
		TotalPages:    resp.TotalPages,
	})
}

// GET /api/v1/books/{id}
func (h *BooksHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "id must be a positive integer")
		return
	}

	product, err := forCaller(r.Context(), h.client).Product(ctx, id)
	if err != nil {
		handleBackendError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, product)
}

// GET /api/v1/categories
func (h *BooksHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	categories, err := forCaller(r.Context(), h.client).Categories(ctx)
	if err != nil {
		handleBackendError(w, err)
		return
	}
	if categories == nil {
		categories = []backend.Category{}
	}

	respondJSON(w, http.StatusOK, categories)
}

func parsePaging(r *http.Request) (int, int, error) {
	page, size := 0, defaultPageSize
	values := r.URL.Query()
	if raw := values.Get("page"); raw != "" {
		p, err := strconv.Atoi(raw)
		if err != nil || p < 0 {
			return 0, 0, errInvalidParam("page")
		}
		page = p
	}
	if raw := values.Get("size"); raw != "" {
		s, err := strconv.Atoi(raw)
		if err != nil || s < 1 || s > maxPageSize {
			return 0, 0, errInvalidParam("size")
		}
		size = s
	}
	return page, size, nil
}

func parseCatalogQuery(r *http.Request) (catalog.Query, error) {
	values := r.URL.Query()
	q := catalog.Query{Search: values.Get("search")}

	if raw := values.Get("category"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return q, errInvalidParam("category")
		}
		q.CategoryID = id
	}
	for name, dst := range map[string]**decimal.Decimal{"min_price": &q.MinPrice, "max_price": &q.MaxPrice} {
		raw := strings.TrimSpace(values.Get(name))
		if raw == "" {
			continue
		}
		v, err := decimal.NewFromString(raw)
		if err != nil {
			return q, errInvalidParam(name)
		}
		*dst = &v
	}

	sort, err := catalog.ParseSort(values.Get("sort"))
	if err != nil {
		return q, err
	}
	q.Sort = sort
	return q, nil
}

type errInvalidParam string

func (e errInvalidParam) Error() string {
	return "invalid " + string(e) + " parameter"
}

// forCaller returns a backend client that authenticates as the caller of the current request.
func forCaller(ctx context.Context, client *backend.Client) *backend.Client {
	return client.WithTokens(backend.StaticToken(getBearer(ctx)))
}
