// Command bookstore is a shopper's terminal client. The cart and the login session are kept in a
// local SQLite file, so they survive between invocations.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/fjod/go_bookstore/internal/backend"
	"github.com/fjod/go_bookstore/internal/cart/domain"
	cartservice "github.com/fjod/go_bookstore/internal/cart/service"
	"github.com/fjod/go_bookstore/internal/cart/storage"
	"github.com/fjod/go_bookstore/internal/catalog"
	checkout "github.com/fjod/go_bookstore/internal/checkout/domain"
	"github.com/fjod/go_bookstore/internal/checkout/repository"
	"github.com/fjod/go_bookstore/internal/checkout/service"
	"github.com/fjod/go_bookstore/internal/config"
	"github.com/fjod/go_bookstore/pkg/logger"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const usage = `usage: bookstore <command> [arguments]

commands:
  login <email> <password>      sign in and keep the session on this device
  logout                        forget the session
  books [flags]                 list books (-page -size -search -category -min -max -sort -listing)
  categories                    list book categories
  add <book-id> [qty]           add a book to the cart
  cart                          show the cart
  qty <book-id> <delta>         change a quantity, e.g. qty 3 -1
  remove <book-id>              remove a book from the cart
  checkout [flags]              place the order (-phone -address -method COD|VNPAY)
  confirm <order-id> <status>   report the payment provider's result for an order
`

type app struct {
	client   *backend.Client
	carts    *cartservice.CartService
	checkout *service.CheckoutServiceImpl
	out      io.Writer
	in       io.Reader
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, closeApp, err := newApp(cfg, log, os.Stdin, os.Stdout)
	if err != nil {
		log.Fatal("failed to open local state", zap.Error(err))
	}

	err = a.run(ctx, os.Args[1], os.Args[2:])
	closeApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "bookstore %s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

// newApp opens the cart, the session keys and the checkout journal kept on this device.
// The returned func closes them.
func newApp(cfg *config.Config, log *zap.Logger, in io.Reader, out io.Writer) (*app, func(), error) {
	db, err := storage.NewSQLite(cfg.Storage.SQLitePath)
	if err != nil {
		return nil, nil, fmt.Errorf("open local storage %s: %w", cfg.Storage.SQLitePath, err)
	}
	if err := db.RunMigrations(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrate local storage: %w", err)
	}

	repo, err := openJournal(cfg)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("open checkout journal: %w", err)
	}

	carts := cartservice.NewCartService(db, log)
	a := &app{
		client: backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout, backend.NewStoredTokens(db), log),
		carts:  carts,
		checkout: service.NewCheckoutService(repo, carts, nil, log, service.Options{
			ShippingFee: cfg.ShippingFee,
			Timeout:     cfg.Backend.Timeout,
		}),
		out: out,
		in:  in,
	}
	return a, func() {
		_ = repo.Close()
		_ = db.Close()
	}, nil
}

// openJournal keeps checkout attempts in the local SQLite file unless JOURNAL_DSN points at Postgres.
func openJournal(cfg *config.Config) (repository.RepoInterface, error) {
	if cfg.JournalDSN != "" {
		pg, err := repository.NewRepository(cfg.JournalDSN)
		if err != nil {
			return nil, err
		}
		if err := pg.RunMigrations(); err != nil {
			pg.Close()
			return nil, err
		}
		return pg, nil
	}

	local, err := repository.NewSQLiteRepository(cfg.Storage.SQLitePath)
	if err != nil {
		return nil, err
	}
	if err := local.RunMigrations(); err != nil {
		local.Close()
		return nil, err
	}
	return local, nil
}

func (a *app) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "login":
		return a.login(ctx, args)
	case "logout":
		if err := a.client.Tokens().Clear(ctx); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "signed out")
		return nil
	case "books":
		return a.books(ctx, args)
	case "categories":
		return a.categories(ctx)
	case "add":
		return a.add(ctx, args)
	case "cart":
		a.printCart(a.carts.GetCart(ctx, domain.CartKey))
		return nil
	case "qty":
		return a.qty(ctx, args)
	case "remove":
		return a.remove(ctx, args)
	case "checkout":
		return a.placeOrder(ctx, args)
	case "confirm":
		return a.confirm(ctx, args)
	case "help", "-h", "--help":
		fmt.Fprint(a.out, usage)
		return nil
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func (a *app) login(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errors.New("expected <email> <password>")
	}
	auth, err := a.client.Login(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "signed in as %s\n", auth.Email)
	return nil
}

func (a *app) books(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("books", flag.ContinueOnError)
	page := fs.Int("page", 0, "page number")
	size := fs.Int("size", 12, "page size")
	search := fs.String("search", "", "name contains")
	category := fs.Int64("category", 0, "category id")
	minPrice := fs.String("min", "", "minimum price")
	maxPrice := fs.String("max", "", "maximum price")
	sortBy := fs.String("sort", "", "price-asc, price-desc, newest or oldest")
	listing := fs.String("listing", "", "newest, trending or flash-sale")
	if err := fs.Parse(args); err != nil {
		return err
	}

	sort, err := catalog.ParseSort(*sortBy)
	if err != nil {
		return err
	}
	q := catalog.Query{Search: *search, CategoryID: *category, Sort: sort}
	if q.MinPrice, err = optionalDecimal(*minPrice); err != nil {
		return fmt.Errorf("invalid -min: %w", err)
	}
	if q.MaxPrice, err = optionalDecimal(*maxPrice); err != nil {
		return fmt.Errorf("invalid -max: %w", err)
	}

	var products []backend.Product
	if *listing != "" {
		products, err = a.client.Listing(ctx, backend.Listing(*listing))
	} else {
		var resp *backend.ProductPage
		resp, err = a.client.Products(ctx, *page, *size)
		if resp != nil {
			products = resp.Content
		}
	}
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tPRICE")
	for _, p := range catalog.Apply(products, q) {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", p.ID, p.Name, p.Price.StringFixed(0))
	}
	return tw.Flush()
}

func (a *app) categories(ctx context.Context) error {
	categories, err := a.client.Categories(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME")
	for _, c := range categories {
		fmt.Fprintf(tw, "%d\t%s\n", c.ID, c.Name)
	}
	return tw.Flush()
}

func (a *app) add(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return errors.New("expected <book-id> [qty]")
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	qty := 1
	if len(args) == 2 {
		if qty, err = strconv.Atoi(args[1]); err != nil {
			return fmt.Errorf("invalid quantity %q", args[1])
		}
	}

	product, err := a.client.Product(ctx, id)
	if err != nil {
		return err
	}
	cart, err := a.carts.AddToCart(ctx, domain.CartKey, domain.LineItem{
		ID:    product.ID,
		Name:  product.Name,
		Price: product.Price,
		Image: product.CoverImage(),
		Qty:   qty,
	})
	if err != nil {
		return err
	}
	a.printCart(cart)
	return nil
}

func (a *app) qty(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errors.New("expected <book-id> <delta>")
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	delta, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid delta %q", args[1])
	}
	cart, err := a.carts.UpdateQuantity(ctx, domain.CartKey, id, delta)
	if err != nil {
		return err
	}
	a.printCart(cart)
	return nil
}

func (a *app) remove(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("expected <book-id>")
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	cart, err := a.carts.RemoveItem(ctx, domain.CartKey, id)
	if err != nil {
		return err
	}
	a.printCart(cart)
	return nil
}

func (a *app) placeOrder(ctx context.Context, args []string) error {
	session := service.Session{ID: domain.CartKey, Backend: a.client}

	page, err := a.checkout.Load(ctx, session)
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("checkout", flag.ContinueOnError)
	phone := fs.String("phone", page.Draft.Phone, "contact phone")
	address := fs.String("address", page.Draft.ShippingAddress, "shipping address")
	method := fs.String("method", "COD", "COD or VNPAY")
	wait := fs.Bool("wait", true, "wait for the payment result after an electronic payment")
	if err := fs.Parse(args); err != nil {
		return err
	}

	pm, err := checkout.ParsePaymentMethod(*method)
	if err != nil {
		return err
	}

	c, err := a.checkout.PlaceOrder(ctx, session, service.Form{
		Phone:           *phone,
		ShippingAddress: *address,
		PaymentMethod:   pm,
	})
	if err != nil {
		return err
	}

	switch c.Status {
	case checkout.CheckoutStatusCompletedCOD:
		fmt.Fprintf(a.out, "order #%d placed, total %s, pay on delivery\n", c.OrderID, c.OrderTotal.StringFixed(0))
		return nil
	case checkout.CheckoutStatusAwaitingExternalPayment:
		fmt.Fprintf(a.out, "order #%d created, complete the payment at:\n  %s\n", c.OrderID, c.PaymentURL)
		if !*wait {
			fmt.Fprintf(a.out, "then run: bookstore confirm %d <status>\n", c.OrderID)
			return nil
		}
		fmt.Fprint(a.out, "payment result code: ")
		status, _ := bufio.NewReader(a.in).ReadString('\n')
		return a.report(ctx, c.OrderID, strings.TrimSpace(status))
	default:
		return fmt.Errorf("checkout failed: %w", c.Failure)
	}
}

func (a *app) confirm(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errors.New("expected <order-id> <status>")
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	return a.report(ctx, id, args[1])
}

func (a *app) report(ctx context.Context, orderID int64, status string) error {
	c, err := a.checkout.ConfirmExternalPayment(ctx, orderID, checkout.PaymentSucceeded(status))
	if err != nil {
		return err
	}
	if c.Status == checkout.CheckoutStatusPaymentConfirmed {
		fmt.Fprintf(a.out, "payment confirmed for order #%d\n", orderID)
		return nil
	}
	fmt.Fprintf(a.out, "payment for order #%d was not completed, your cart was kept\n", orderID)
	return nil
}

func (a *app) printCart(cart domain.Cart) {
	if cart.IsEmpty() {
		fmt.Fprintln(a.out, "cart is empty")
		return
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tQTY\tPRICE\tSUBTOTAL")
	for _, item := range cart.Items {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\n",
			item.ID, item.Name, item.Qty, item.Price.StringFixed(0), item.Subtotal().StringFixed(0))
	}
	fmt.Fprintf(tw, "\t\t%d\t\t%s\n", cart.ItemCount(), cart.Subtotal().StringFixed(0))
	_ = tw.Flush()
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

func optionalDecimal(raw string) (*decimal.Decimal, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	v, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return nil, err
	}
	return &v, nil
}
