package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fjod/go_bookstore/internal/backend"
	cart "github.com/fjod/go_bookstore/internal/cart/domain"
	d "github.com/fjod/go_bookstore/internal/checkout/domain"
	r "github.com/fjod/go_bookstore/internal/checkout/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type CartStore interface {
	GetCart(ctx context.Context, key string) cart.Cart
	ClearCart(ctx context.Context, key string) error
}

// Backend is the part of the REST backend checkout talks to.
type Backend interface {
	Authenticated(ctx context.Context) bool
	Profile(ctx context.Context) (*backend.Profile, error)
	CreateOrder(ctx context.Context, req backend.OrderRequest, idempotencyKey string) (*backend.CreatedOrder, error)
	ProcessPayment(ctx context.Context, req backend.PaymentRequest) (*backend.PaymentSession, error)
	CancelOrder(ctx context.Context, orderID int64) error
	Order(ctx context.Context, orderID int64) (*backend.Order, error)
}

type Publisher interface {
	Publish(ctx context.Context, event d.Event) error
}

// Session is the shopper a checkout runs for. ID scopes the cart and the attempt journal,
// Backend carries the shopper's credentials.
type Session struct {
	ID      string
	Backend Backend
}

// Form is what the shopper submits on the checkout page.
type Form struct {
	Phone           string
	ShippingAddress string
	PaymentMethod   d.PaymentMethod
}

// Page is the prefilled checkout page. Profile is nil when nobody is signed in.
type Page struct {
	Draft   d.Draft
	Profile *backend.Profile
}

type Options struct {
	ShippingFee decimal.Decimal
	// Timeout bounds each backend call.
	Timeout time.Duration
	// CartKey maps a session id to its cart storage key.
	CartKey func(sessionID string) string
}

type CheckoutService interface {
	Load(ctx context.Context, session Session) (*Page, error)
	PlaceOrder(ctx context.Context, session Session, form Form) (d.Checkout, error)
	ConfirmExternalPayment(ctx context.Context, orderID int64, success bool) (d.Checkout, error)
	VerifyReturn(ctx context.Context, session Session, orderID int64) (d.Checkout, error)
}

type CheckoutServiceImpl struct {
	repo      r.RepoInterface
	cart      CartStore
	publisher Publisher
	logger    *zap.Logger
	opts      Options
	now       func() time.Time

	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewCheckoutService(repo r.RepoInterface, carts CartStore, publisher Publisher, logger *zap.Logger, opts Options) *CheckoutServiceImpl {
	if logger == nil {
		logger = zap.NewNop()
	}
	if repo == nil {
		repo = r.NewMemoryRepository()
	}
	if publisher == nil {
		publisher = nopPublisher{}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.CartKey == nil {
		opts.CartKey = func(string) string { return cart.CartKey }
	}
	return &CheckoutServiceImpl{
		repo:      repo,
		cart:      carts,
		publisher: publisher,
		logger:    logger,
		opts:      opts,
		now:       time.Now,
		inFlight:  make(map[string]struct{}),
	}
}

// Load reads the cart and the profile concurrently and prefills the shipping details.
func (s *CheckoutServiceImpl) Load(ctx context.Context, session Session) (*Page, error) {
	var (
		profile *backend.Profile
		current cart.Cart
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		profileCtx, cancel := context.WithTimeout(gctx, s.opts.Timeout)
		defer cancel()
		p, err := session.Backend.Profile(profileCtx)
		if errors.Is(err, backend.ErrUnauthorized) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to get profile: %w", err)
		}
		profile = p
		return nil
	})
	g.Go(func() error {
		current = s.cart.GetCart(gctx, s.opts.CartKey(session.ID))
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	page := &Page{Profile: profile}
	var phone, address string
	if profile != nil {
		phone, address = profile.Phone, profile.Address
	}
	page.Draft = d.NewDraft(current.Items, phone, address, d.PaymentMethodCOD, s.opts.ShippingFee)
	return page, nil
}

// PlaceOrder runs one checkout attempt. Validation errors are returned with the checkout back in Idle.
// Order and payment failures are not errors: the returned checkout is Failed and carries the reason.
func (s *CheckoutServiceImpl) PlaceOrder(ctx context.Context, session Session, form Form) (d.Checkout, error) {
	release, ok := s.acquire(session.ID)
	if !ok {
		return d.Checkout{}, ErrSubmissionInProgress
	}
	defer release()

	current := s.cart.GetCart(ctx, s.opts.CartKey(session.ID))
	draft := d.NewDraft(current.Items, form.Phone, form.ShippingAddress, form.PaymentMethod, s.opts.ShippingFee)

	c, err := d.NewCheckout(draft).Submit()
	if err != nil {
		return c, err
	}

	c, err = s.validate(ctx, session, c)
	if err != nil {
		return c, err
	}

	c, err = s.createOrder(ctx, session, c)
	if err != nil {
		return c, err
	}

	if c.Status == d.CheckoutStatusSubmitting {
		c, err = s.processPayment(ctx, session, c)
		if err != nil {
			return c, err
		}
	}

	return s.complete(ctx, session.ID, c)
}

func (s *CheckoutServiceImpl) acquire(sessionID string) (func(), bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[sessionID]; busy {
		return nil, false
	}
	s.inFlight[sessionID] = struct{}{}
	return func() {
		s.mu.Lock()
		delete(s.inFlight, sessionID)
		s.mu.Unlock()
	}, true
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, d.Event) error { return nil }

func (s *CheckoutServiceImpl) publish(ctx context.Context, sessionID string, c d.Checkout) {
	event, ok := d.EventFor(sessionID, c, s.now())
	if !ok {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish checkout event",
			zap.String("event_type", string(event.Type)), zap.Int64("order_id", c.OrderID), zap.Error(err))
	}
}
