package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const IdempotencyKeyHeader = "Idempotency-Key"

// Client calls the bookstore REST backend. The bearer token comes from the TokenStore on every request,
// and a 401/403 from any endpoint clears that store.
type Client struct {
	baseURL  string
	http     *resty.Client
	tokens   TokenStore
	logger   *zap.Logger
	profiles *singleflight.Group
}

func NewClient(baseURL string, timeout time.Duration, tokens TokenStore, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if tokens == nil {
		tokens = StaticToken("")
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	rc := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetTransport(otelhttp.NewTransport(http.DefaultTransport)).
		SetHeader("Accept", "application/json")

	return &Client{
		baseURL:  baseURL,
		http:     rc,
		tokens:   tokens,
		logger:   logger,
		profiles: &singleflight.Group{},
	}
}

// WithTokens returns a client sharing the connection pool but authenticating through tokens.
func (c *Client) WithTokens(tokens TokenStore) *Client {
	cp := *c
	cp.tokens = tokens
	return &cp
}

func (c *Client) Tokens() TokenStore {
	return c.tokens
}

func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	body, err := c.do(ctx, http.MethodPost, "/auth/login", func(r *resty.Request) {
		r.SetBody(map[string]string{"email": email, "password": password})
	})
	if err != nil {
		return nil, err
	}

	var auth AuthResponse
	if err := decodeBody(body, &auth); err != nil {
		return nil, err
	}
	if auth.Token == "" {
		return nil, fmt.Errorf("login response has no token")
	}
	if err := c.tokens.Save(ctx, &auth); err != nil {
		return nil, err
	}
	return &auth, nil
}

// Authenticated reports whether a usable token is stored. It makes no request.
func (c *Client) Authenticated(ctx context.Context) bool {
	token, err := c.usableToken(ctx)
	return err == nil && token != ""
}

// Profile fetches the shopper profile. Concurrent calls with the same token share one request.
// A missing or expired token fails with ErrUnauthorized before any request is made.
func (c *Client) Profile(ctx context.Context) (*Profile, error) {
	token, err := c.usableToken(ctx)
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, ErrUnauthorized
	}

	v, err, _ := c.profiles.Do(token, func() (interface{}, error) {
		body, err := c.do(ctx, http.MethodGet, "/users/profile", nil)
		if err != nil {
			return nil, err
		}
		var profile Profile
		if err := decodeBody(body, &profile); err != nil {
			return nil, err
		}
		return &profile, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Profile), nil
}

func (c *Client) Product(ctx context.Context, id int64) (*Product, error) {
	body, err := c.do(ctx, http.MethodGet, "/products/{id}", func(r *resty.Request) {
		r.SetPathParam("id", strconv.FormatInt(id, 10))
	})
	if err != nil {
		return nil, err
	}
	var product Product
	if err := decodeBody(body, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

func (c *Client) Products(ctx context.Context, page, size int) (*ProductPage, error) {
	body, err := c.do(ctx, http.MethodGet, "/products", func(r *resty.Request) {
		r.SetQueryParams(map[string]string{
			"page": strconv.Itoa(page),
			"size": strconv.Itoa(size),
		})
	})
	if err != nil {
		return nil, err
	}
	var out ProductPage
	if err := decodeBody(body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Listing(ctx context.Context, listing Listing) ([]Product, error) {
	body, err := c.do(ctx, http.MethodGet, "/products/"+string(listing), nil)
	if err != nil {
		return nil, err
	}
	var out []Product
	if err := decodeBody(body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Categories(ctx context.Context) ([]Category, error) {
	body, err := c.do(ctx, http.MethodGet, "/products/categories", nil)
	if err != nil {
		return nil, err
	}
	var out []Category
	if err := decodeBody(body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateOrder(ctx context.Context, req OrderRequest, idempotencyKey string) (*CreatedOrder, error) {
	body, err := c.do(ctx, http.MethodPost, "/orders", func(r *resty.Request) {
		r.SetBody(req)
		if idempotencyKey != "" {
			r.SetHeader(IdempotencyKeyHeader, idempotencyKey)
		}
	})
	if err != nil {
		return nil, err
	}
	var order CreatedOrder
	if err := decodeBody(body, &order); err != nil {
		return nil, err
	}
	if order.ID == 0 {
		return nil, fmt.Errorf("order response has no id")
	}
	return &order, nil
}

func (c *Client) ProcessPayment(ctx context.Context, req PaymentRequest) (*PaymentSession, error) {
	body, err := c.do(ctx, http.MethodPost, "/payment/process", func(r *resty.Request) {
		r.SetBody(req)
	})
	if err != nil {
		return nil, err
	}
	session, err := normalizePayment(body)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *Client) CancelOrder(ctx context.Context, orderID int64) error {
	_, err := c.do(ctx, http.MethodPost, "/orders/{id}/cancel", func(r *resty.Request) {
		r.SetPathParam("id", strconv.FormatInt(orderID, 10))
	})
	return err
}

func (c *Client) Order(ctx context.Context, orderID int64) (*Order, error) {
	body, err := c.do(ctx, http.MethodGet, "/orders/{id}", func(r *resty.Request) {
		r.SetPathParam("id", strconv.FormatInt(orderID, 10))
	})
	if err != nil {
		return nil, err
	}
	var order Order
	if err := decodeBody(body, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *Client) MyOrders(ctx context.Context) ([]Order, error) {
	body, err := c.do(ctx, http.MethodGet, "/orders/my-orders", nil)
	if err != nil {
		return nil, err
	}
	var orders []Order
	if err := decodeBody(body, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (c *Client) do(ctx context.Context, method, path string, build func(*resty.Request)) ([]byte, error) {
	if c.baseURL == "" {
		return nil, ErrNotConfigured
	}

	token, err := c.usableToken(ctx)
	if err != nil {
		return nil, err
	}

	req := c.http.R().SetContext(ctx)
	if token != "" {
		req.SetAuthToken(token)
	}
	if build != nil {
		build(req)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		c.logger.Warn("backend request failed",
			zap.String("method", method), zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}

	if !resp.IsSuccess() {
		apiErr := &APIError{StatusCode: resp.StatusCode(), Body: string(resp.Body())}
		if errors.Is(apiErr, ErrUnauthorized) {
			c.invalidateSession(ctx)
		}
		c.logger.Info("backend rejected request",
			zap.String("method", method), zap.String("path", path), zap.Int("status", resp.StatusCode()))
		return nil, apiErr
	}

	return resp.Body(), nil
}

func (c *Client) usableToken(ctx context.Context) (string, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return "", err
	}
	if token != "" && !TokenUsable(token, time.Now()) {
		c.logger.Info("stored token expired, dropping session")
		c.invalidateSession(ctx)
		return "", nil
	}
	return token, nil
}

func (c *Client) invalidateSession(ctx context.Context) {
	if err := c.tokens.Clear(ctx); err != nil {
		c.logger.Warn("failed to clear session", zap.Error(err))
	}
}
