package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/udithsc/storefront-api/internal/dto"
	"github.com/udithsc/storefront-api/internal/model"
	"github.com/udithsc/storefront-api/internal/payment"
	"github.com/udithsc/storefront-api/internal/repository"
)

var ErrPaymentProvider = errors.New("payment provider error")

var (
	taxRate      = decimal.NewFromFloat(0.08)
	shippingFlat = decimal.NewFromInt(10)
)

// GuestUserID marks anonymous checkouts in session metadata.
const GuestUserID = "guest"

type CheckoutService struct {
	productRepo repository.ProductRepository
	provider    payment.Provider
}

func NewCheckoutService(productRepo repository.ProductRepository, provider payment.Provider) *CheckoutService {
	return &CheckoutService{productRepo: productRepo, provider: provider}
}

// CreateSession builds a hosted checkout session for the supplied items.
// userID is empty for guest checkouts. Unit prices are re-read from the
// product store; client-supplied prices are never charged.
func (s *CheckoutService) CreateSession(ctx context.Context, userID, email string, req dto.CheckoutRequest) (*dto.CheckoutResponse, error) {
	lines := make([]payment.LineItem, 0, len(req.Items))
	meta := make([]model.CheckoutCompletedItem, 0, len(req.Items))
	subtotal := decimal.Zero

	for _, it := range req.Items {
		product, err := s.productRepo.GetByID(ctx, it.ProductID)
		if err != nil {
			return nil, fmt.Errorf("get product: %w", err)
		}
		if product == nil {
			return nil, ErrProductNotFound
		}
		if product.Status != model.ProductStatusActive {
			return nil, ErrProductUnavailable
		}

		var imageURL string
		if len(product.Images) > 0 {
			imageURL = product.Images[0].URL
		}
		lines = append(lines, payment.LineItem{
			ProductID: product.ID.String(),
			Name:      product.Name,
			ImageURL:  imageURL,
			UnitPrice: product.Price,
			Quantity:  it.Quantity,
		})
		meta = append(meta, model.CheckoutCompletedItem{
			ProductID: product.ID,
			Quantity:  it.Quantity,
			Price:     product.Price,
		})
		subtotal = subtotal.Add(product.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}

	// Informational only: Stripe derives the charge from per-line unit
	// prices plus the flat shipping rate.
	tax := subtotal.Mul(taxRate)
	total := subtotal.Add(tax).Add(shippingFlat)

	if userID == "" {
		userID = GuestUserID
	}
	itemsJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}

	sess, err := s.provider.CreateCheckoutSession(ctx, payment.SessionRequest{
		CustomerEmail: email,
		Items:         lines,
		ShippingRate:  shippingFlat,
		Metadata: map[string]string{
			"userId": userID,
			"items":  string(itemsJSON),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPaymentProvider, err)
	}

	return &dto.CheckoutResponse{
		SessionID: sess.ID,
		URL:       sess.URL,
		Subtotal:  subtotal,
		Tax:       tax,
		Shipping:  shippingFlat,
		Total:     total,
	}, nil
}
