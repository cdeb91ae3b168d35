package backend

import (
	"time"

	"github.com/shopspring/decimal"
)

type AuthResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
	Type         string `json:"type"`
	ID           int64  `json:"id"`
	Email        string `json:"email"`
	FullName     string `json:"fullName"`
	Role         string `json:"role"`
}

type Profile struct {
	ID       int64  `json:"id"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
}

type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Product struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description,omitempty"`
	Manufacturer string          `json:"manufacturer,omitempty"`
	Price        decimal.Decimal `json:"price"`
	Images       []string        `json:"images"`
	Category     *Category       `json:"category,omitempty"`
	IsActive     *bool           `json:"isActive,omitempty"`
	Stock        *int            `json:"stock,omitempty"`
	CreatedAt    *time.Time      `json:"createdAt,omitempty"`
}

// CoverImage is the first product image, or "" when there is none.
func (p Product) CoverImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

type ProductPage struct {
	Content       []Product `json:"content"`
	TotalElements int64     `json:"totalElements"`
	TotalPages    int       `json:"totalPages"`
	Number        int       `json:"number"`
	Size          int       `json:"size"`
}

// Listing names the supplementary product feeds.
type Listing string

const (
	ListingNewest    Listing = "newest"
	ListingTrending  Listing = "trending"
	ListingFlashSale Listing = "flash-sale"
)

type OrderItemRequest struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

// OrderRequest carries no prices: the backend prices the order.
type OrderRequest struct {
	Phone           string             `json:"phone"`
	ShippingAddress string             `json:"shippingAddress"`
	PaymentMethod   string             `json:"paymentMethod"`
	Items           []OrderItemRequest `json:"items"`
}

type CreatedOrder struct {
	ID    int64           `json:"id"`
	Total decimal.Decimal `json:"total"`
}

type PaymentRequest struct {
	OrderID       int64           `json:"orderId"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"paymentMethod"`
}

// PaymentSession is the normalized payment response. PaymentURL is empty when the backend sent none.
type PaymentSession struct {
	PaymentURL    string
	TransactionID string
}

type OrderItem struct {
	ID        int64           `json:"id"`
	ProductID int64           `json:"productId"`
	Name      string          `json:"name"`
	Image     string          `json:"image"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

type Order struct {
	ID              int64           `json:"id"`
	Code            string          `json:"code,omitempty"`
	Status          string          `json:"status"`
	PaymentMethod   string          `json:"paymentMethod,omitempty"`
	PaymentStatus   string          `json:"paymentStatus,omitempty"`
	Phone           string          `json:"phone,omitempty"`
	ShippingAddress string          `json:"shippingAddress,omitempty"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	Shipping        decimal.Decimal `json:"shipping"`
	Total           decimal.Decimal `json:"total"`
	ItemCount       int             `json:"itemCount,omitempty"`
	Items           []OrderItem     `json:"items,omitempty"`
	CreatedAt       *time.Time      `json:"createdAt,omitempty"`
}
