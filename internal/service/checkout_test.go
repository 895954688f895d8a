package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udithsc/storefront-api/internal/dto"
	"github.com/udithsc/storefront-api/internal/model"
	"github.com/udithsc/storefront-api/internal/payment"
)

type mockPaymentProvider struct {
	lastReq payment.SessionRequest
	err     error
}

func (m *mockPaymentProvider) CreateCheckoutSession(_ context.Context, req payment.SessionRequest) (*payment.Session, error) {
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return &payment.Session{ID: "cs_test_123", URL: "https://checkout.example.com/cs_test_123"}, nil
}

func TestCheckoutService_CreateSession_Totals(t *testing.T) {
	productRepo := newMockProductRepo()
	p := activeProduct(productRepo, "mug", 10.00, 100, true)
	provider := &mockPaymentProvider{}
	svc := NewCheckoutService(productRepo, provider)

	resp, err := svc.CreateSession(context.Background(), "", "", dto.CheckoutRequest{
		Items: []dto.CheckoutItemRequest{{ProductID: p.ID, Quantity: 2}},
	})
	require.NoError(t, err)

	assert.Equal(t, "cs_test_123", resp.SessionID)
	assert.True(t, resp.Subtotal.Equal(decimal.NewFromFloat(20.00)), "subtotal = %s", resp.Subtotal)
	assert.True(t, resp.Tax.Equal(decimal.NewFromFloat(1.60)), "tax = %s", resp.Tax)
	assert.True(t, resp.Shipping.Equal(decimal.NewFromInt(10)), "shipping = %s", resp.Shipping)
	assert.True(t, resp.Total.Equal(decimal.NewFromFloat(31.60)), "total = %s", resp.Total)
}

// Client-supplied prices are display hints; the charged price always comes
// from the product store.
func TestCheckoutService_CreateSession_IgnoresClientPrice(t *testing.T) {
	productRepo := newMockProductRepo()
	p := activeProduct(productRepo, "lamp", 40.00, 10, true)
	provider := &mockPaymentProvider{}
	svc := NewCheckoutService(productRepo, provider)

	tampered := decimal.NewFromFloat(0.01)
	_, err := svc.CreateSession(context.Background(), "", "", dto.CheckoutRequest{
		Items: []dto.CheckoutItemRequest{{ProductID: p.ID, Quantity: 1, Price: &tampered}},
	})
	require.NoError(t, err)

	require.Len(t, provider.lastReq.Items, 1)
	assert.True(t, provider.lastReq.Items[0].UnitPrice.Equal(decimal.NewFromFloat(40.00)))
}

func TestCheckoutService_CreateSession_GuestMetadata(t *testing.T) {
	productRepo := newMockProductRepo()
	p := activeProduct(productRepo, "print", 25.00, 5, true)
	provider := &mockPaymentProvider{}
	svc := NewCheckoutService(productRepo, provider)

	_, err := svc.CreateSession(context.Background(), "", "", dto.CheckoutRequest{
		Items: []dto.CheckoutItemRequest{{ProductID: p.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	assert.Equal(t, "guest", provider.lastReq.Metadata["userId"])

	var items []model.CheckoutCompletedItem
	require.NoError(t, json.Unmarshal([]byte(provider.lastReq.Metadata["items"]), &items))
	require.Len(t, items, 1)
	assert.Equal(t, p.ID, items[0].ProductID)
	assert.Equal(t, 1, items[0].Quantity)
	assert.True(t, items[0].Price.Equal(decimal.NewFromFloat(25.00)))
}

func TestCheckoutService_CreateSession_InactiveProduct(t *testing.T) {
	productRepo := newMockProductRepo()
	p := activeProduct(productRepo, "retired", 25.00, 5, true)
	p.Status = model.ProductStatusArchived
	svc := NewCheckoutService(productRepo, &mockPaymentProvider{})

	_, err := svc.CreateSession(context.Background(), "", "", dto.CheckoutRequest{
		Items: []dto.CheckoutItemRequest{{ProductID: p.ID, Quantity: 1}},
	})
	assert.ErrorIs(t, err, ErrProductUnavailable)
}

func TestCheckoutService_CreateSession_ProviderError(t *testing.T) {
	productRepo := newMockProductRepo()
	p := activeProduct(productRepo, "mug-3", 10.00, 100, true)
	provider := &mockPaymentProvider{err: errors.New("card_declined")}
	svc := NewCheckoutService(productRepo, provider)

	_, err := svc.CreateSession(context.Background(), "", "", dto.CheckoutRequest{
		Items: []dto.CheckoutItemRequest{{ProductID: p.ID, Quantity: 1}},
	})
	assert.ErrorIs(t, err, ErrPaymentProvider)
	assert.Contains(t, err.Error(), "card_declined")
}
