package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	cart "github.com/fjod/go_bookstore/internal/cart/domain"
	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentMethodCOD        PaymentMethod = "CASH_ON_DELIVERY"
	PaymentMethodElectronic PaymentMethod = "ELECTRONIC"
)

// ParsePaymentMethod accepts both the domain names and the backend wire values.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "COD", string(PaymentMethodCOD):
		return PaymentMethodCOD, nil
	case "VNPAY", string(PaymentMethodElectronic):
		return PaymentMethodElectronic, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, s)
	}
}

func (m PaymentMethod) IsValid() bool {
	return m == PaymentMethodCOD || m == PaymentMethodElectronic
}

// WireValue is the paymentMethod string the backend expects.
func (m PaymentMethod) WireValue() string {
	switch m {
	case PaymentMethodCOD:
		return "COD"
	case PaymentMethodElectronic:
		return "VNPAY"
	default:
		return string(m)
	}
}

func (m PaymentMethod) String() string {
	return string(m)
}

// OrderLine is a cart line reduced to what the order request carries.
type OrderLine struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

// Draft is the transient checkout form. Totals are display-only and recomputed from Items on every change.
type Draft struct {
	Phone           string          `json:"phone"`
	ShippingAddress string          `json:"shippingAddress"`
	PaymentMethod   PaymentMethod   `json:"paymentMethod"`
	Items           []cart.LineItem `json:"items"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	Shipping        decimal.Decimal `json:"shipping"`
	Total           decimal.Decimal `json:"total"`
}

func NewDraft(items []cart.LineItem, phone, address string, method PaymentMethod, shippingFee decimal.Decimal) Draft {
	d := Draft{
		Phone:           phone,
		ShippingAddress: address,
		PaymentMethod:   method,
	}
	return d.WithItems(items, shippingFee)
}

// WithItems replaces the items and recomputes the totals. An empty cart ships for free.
func (d Draft) WithItems(items []cart.LineItem, shippingFee decimal.Decimal) Draft {
	c := cart.New(items)
	d.Items = c.Items
	if d.Items == nil {
		d.Items = []cart.LineItem{}
	}
	d.Subtotal = c.Subtotal()
	d.Shipping = decimal.Zero
	if !c.IsEmpty() {
		d.Shipping = shippingFee
	}
	d.Total = d.Subtotal.Add(d.Shipping)
	return d
}

// OrderLines keeps cart insertion order and drops everything but id and quantity.
func (d Draft) OrderLines() []OrderLine {
	lines := make([]OrderLine, 0, len(d.Items))
	for _, item := range d.Items {
		lines = append(lines, OrderLine{ProductID: item.ID, Quantity: item.Qty})
	}
	return lines
}

// Fingerprint identifies what would be submitted: lines, shipping details and method.
// Two drafts with equal fingerprints would create the same order.
func (d Draft) Fingerprint() string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%s\x00",
		strings.TrimSpace(d.Phone), strings.TrimSpace(d.ShippingAddress), d.PaymentMethod)
	for _, line := range d.OrderLines() {
		fmt.Fprintf(h, "%d:%d;", line.ProductID, line.Quantity)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (d Draft) validate() error {
	if len(d.Items) == 0 {
		return ErrCartEmpty
	}
	if strings.TrimSpace(d.Phone) == "" || strings.TrimSpace(d.ShippingAddress) == "" {
		return ErrMissingShippingDetails
	}
	if !d.PaymentMethod.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, d.PaymentMethod)
	}
	return nil
}
