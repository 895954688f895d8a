package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- Auth ---

type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Role      string    `json:"role"`
}

// --- Product ---

type CreateProductRequest struct {
	Slug           string          `json:"slug" binding:"required"`
	Name           string          `json:"name" binding:"required"`
	Description    string          `json:"description"`
	Price          decimal.Decimal `json:"price" binding:"required"`
	Inventory      int             `json:"inventory" binding:"min=0"`
	TrackInventory bool            `json:"track_inventory"`
	Status         string          `json:"status"`
}

type UpdateProductRequest struct {
	Slug           *string          `json:"slug"`
	Name           *string          `json:"name"`
	Description    *string          `json:"description"`
	Price          *decimal.Decimal `json:"price"`
	Inventory      *int             `json:"inventory"`
	TrackInventory *bool            `json:"track_inventory"`
	Status         *string          `json:"status"`
}

type ListProductsRequest struct {
	Page   int    `form:"page,default=1" binding:"min=1"`
	Limit  int    `form:"limit,default=20" binding:"min=1,max=100"`
	Search string `form:"search"`
}

type ProductImageResponse struct {
	URL      string `json:"url"`
	Position int    `json:"position"`
}

type ProductResponse struct {
	ID             uuid.UUID              `json:"id"`
	Slug           string                 `json:"slug"`
	Name           string                 `json:"name"`
	Description    string                 `json:"description"`
	Price          decimal.Decimal        `json:"price"`
	Inventory      int                    `json:"inventory"`
	TrackInventory bool                   `json:"track_inventory"`
	Status         string                 `json:"status"`
	Category       string                 `json:"category,omitempty"`
	Images         []ProductImageResponse `json:"images"`
	AvgRating      float64                `json:"avg_rating"`
	ReviewCount    int                    `json:"review_count"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

type ProductListResponse struct {
	Products []ProductResponse `json:"products"`
	Total    int               `json:"total"`
	Page     int               `json:"page"`
	Limit    int               `json:"limit"`
}

// --- Cart ---

type AddCartItemRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int       `json:"quantity" binding:"required,min=1"`
}

type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" binding:"required,min=1"`
}

type CartItemResponse struct {
	ID        uuid.UUID       `json:"id"`
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Slug      string          `json:"slug"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Image     string          `json:"image,omitempty"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type CartResponse struct {
	Items []CartItemResponse `json:"items"`
	Total decimal.Decimal    `json:"total"`
	Count int                `json:"count"`
}

// --- Address ---

type CreateAddressRequest struct {
	Type       string `json:"type" binding:"required,oneof=SHIPPING BILLING"`
	FirstName  string `json:"first_name" binding:"required"`
	LastName   string `json:"last_name" binding:"required"`
	Phone      string `json:"phone"`
	Line1      string `json:"line1" binding:"required"`
	Line2      string `json:"line2"`
	City       string `json:"city" binding:"required"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code" binding:"required"`
	Country    string `json:"country"`
	IsDefault  *bool  `json:"is_default"`
}

type UpdateAddressRequest struct {
	Type       *string `json:"type" binding:"omitempty,oneof=SHIPPING BILLING"`
	FirstName  *string `json:"first_name"`
	LastName   *string `json:"last_name"`
	Phone      *string `json:"phone"`
	Line1      *string `json:"line1"`
	Line2      *string `json:"line2"`
	City       *string `json:"city"`
	State      *string `json:"state"`
	PostalCode *string `json:"postal_code"`
	Country    *string `json:"country"`
	IsDefault  *bool   `json:"is_default"`
}

type AddressResponse struct {
	ID         uuid.UUID `json:"id"`
	Type       string    `json:"type"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Phone      string    `json:"phone,omitempty"`
	Line1      string    `json:"line1"`
	Line2      string    `json:"line2,omitempty"`
	City       string    `json:"city"`
	State      string    `json:"state,omitempty"`
	PostalCode string    `json:"postal_code"`
	Country    string    `json:"country"`
	IsDefault  bool      `json:"is_default"`
	CreatedAt  time.Time `json:"created_at"`
}

// --- Checkout ---

// Price is accepted for display parity with the storefront UI but the
// authoritative unit price is always re-read from the product store.
type CheckoutItemRequest struct {
	ProductID uuid.UUID        `json:"product_id" binding:"required"`
	Quantity  int              `json:"quantity" binding:"required,min=1"`
	Price     *decimal.Decimal `json:"price"`
}

type CheckoutRequest struct {
	Items []CheckoutItemRequest `json:"items" binding:"required,min=1,dive"`
	Email string                `json:"email" binding:"omitempty,email"`
}

type CheckoutResponse struct {
	SessionID string          `json:"session_id"`
	URL       string          `json:"url"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Tax       decimal.Decimal `json:"tax"`
	Shipping  decimal.Decimal `json:"shipping"`
	Total     decimal.Decimal `json:"total"`
}

// --- Order ---

type UpdateOrderRequest struct {
	Status            *string `json:"status"`
	PaymentStatus     *string `json:"payment_status"`
	FulfillmentStatus *string `json:"fulfillment_status"`
	TrackingNumber    *string `json:"tracking_number"`
	Notes             *string `json:"notes"`
}

type ListOrdersRequest struct {
	Page              int    `form:"page,default=1" binding:"min=1"`
	Limit             int    `form:"limit,default=25" binding:"min=1,max=100"`
	Status            string `form:"status"`
	PaymentStatus     string `form:"payment_status"`
	FulfillmentStatus string `form:"fulfillment_status"`
	Search            string `form:"search"`
	From              string `form:"from" binding:"omitempty,datetime=2006-01-02"`
	To                string `form:"to" binding:"omitempty,datetime=2006-01-02"`
}

type OrderItemResponse struct {
	ID        uuid.UUID       `json:"id"`
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Image     string          `json:"image,omitempty"`
}

type OrderResponse struct {
	ID                uuid.UUID           `json:"id"`
	OrderNumber       string              `json:"order_number"`
	UserID            *uuid.UUID          `json:"user_id,omitempty"`
	CustomerEmail     string              `json:"customer_email,omitempty"`
	CustomerName      string              `json:"customer_name,omitempty"`
	Total             decimal.Decimal     `json:"total"`
	Status            string              `json:"status"`
	PaymentStatus     string              `json:"payment_status"`
	FulfillmentStatus string              `json:"fulfillment_status"`
	TrackingNumber    string              `json:"tracking_number,omitempty"`
	Notes             string              `json:"notes,omitempty"`
	ShippedAt         *time.Time          `json:"shipped_at,omitempty"`
	DeliveredAt       *time.Time          `json:"delivered_at,omitempty"`
	Items             []OrderItemResponse `json:"items"`
	ItemCount         int                 `json:"item_count"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
}

type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

type OrderStatsResponse struct {
	Revenue decimal.Decimal `json:"revenue"`
	Orders  int             `json:"orders"`
}

type OrderListResponse struct {
	Orders     []OrderResponse    `json:"orders"`
	Pagination Pagination         `json:"pagination"`
	Stats      OrderStatsResponse `json:"stats"`
}
