package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	RoleCustomer = "customer"
	RoleManager  = "manager"
	RoleAdmin    = "admin"
)

// RolePermissions maps a role to the fine-grained permissions it carries.
// Admins hold every permission implicitly (see HasPermission).
var RolePermissions = map[string][]string{
	RoleManager: {"orders:read", "orders:write"},
}

func HasPermission(role, perm string) bool {
	if role == RoleAdmin {
		return true
	}
	for _, p := range RolePermissions[role] {
		if p == perm {
			return true
		}
	}
	return false
}

type User struct {
	ID        uuid.UUID
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

const (
	ProductStatusActive   = "ACTIVE"
	ProductStatusDraft    = "DRAFT"
	ProductStatusArchived = "ARCHIVED"
)

type Product struct {
	ID             uuid.UUID
	Slug           string
	Name           string
	Description    string
	Price          decimal.Decimal
	Inventory      int
	TrackInventory bool
	Status         string
	Category       string
	Images         []ProductImage
	AvgRating      float64
	ReviewCount    int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type ProductImage struct {
	ID        uuid.UUID
	ProductID uuid.UUID
	URL       string
	Position  int
}

type CartItem struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	ProductID uuid.UUID
	Quantity  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CartLine is a cart item joined with the product summary shown in the cart.
type CartLine struct {
	CartItem
	ProductName string
	ProductSlug string
	UnitPrice   decimal.Decimal
	ImageURL    string
}

func (l CartLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

const (
	AddressTypeShipping = "SHIPPING"
	AddressTypeBilling  = "BILLING"
)

type Address struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	Type       string
	FirstName  string
	LastName   string
	Phone      string
	Line1      string
	Line2      string
	City       string
	State      string
	PostalCode string
	Country    string
	IsDefault  bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

const (
	OrderStatusPending   = "PENDING"
	OrderStatusCompleted = "COMPLETED"
	OrderStatusCancelled = "CANCELLED"

	PaymentStatusPending  = "PENDING"
	PaymentStatusPaid     = "PAID"
	PaymentStatusRefunded = "REFUNDED"

	FulfillmentStatusPending   = "PENDING"
	FulfillmentStatusShipped   = "SHIPPED"
	FulfillmentStatusDelivered = "DELIVERED"
)

// Order status fields are free-form strings by contract: administrative
// callers may store values beyond the constants above and they pass through
// untouched. Only SHIPPED and DELIVERED carry timestamp side effects.
type Order struct {
	ID                uuid.UUID
	OrderNumber       string
	UserID            uuid.NullUUID // null for guest checkouts
	CustomerEmail     string
	CustomerName      string
	Total             decimal.Decimal
	Status            string
	PaymentStatus     string
	FulfillmentStatus string
	TrackingNumber    string
	Notes             string
	ShippedAt         *time.Time
	DeliveredAt       *time.Time
	Items             []OrderItem
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type OrderItem struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	ProductID uuid.UUID
	Name      string
	Quantity  int
	Price     decimal.Decimal
	ImageURL  string
}

// CheckoutCompletedMessage is published by the Stripe webhook handler and
// consumed by the order worker, which materializes the order.
type CheckoutCompletedMessage struct {
	SessionID string                  `json:"session_id"`
	UserID    string                  `json:"user_id"` // "guest" for anonymous checkouts
	Email     string                  `json:"email"`
	Name      string                  `json:"name"`
	Total     decimal.Decimal         `json:"total"`
	Items     []CheckoutCompletedItem `json:"items"`
}

// CheckoutCompletedItem doubles as the schema of the session "items"
// metadata written at checkout time, hence the camelCase key.
type CheckoutCompletedItem struct {
	ProductID uuid.UUID       `json:"productId"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}
