package worker

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udithsc/storefront-api/internal/model"
	"github.com/udithsc/storefront-api/internal/repository"
)

type stubProductRepo struct {
	products map[uuid.UUID]*model.Product
}

func (s *stubProductRepo) Create(_ context.Context, _ *model.Product) error { return nil }
func (s *stubProductRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Product, error) {
	return s.products[id], nil
}
func (s *stubProductRepo) GetBySlug(_ context.Context, _ string) (*model.Product, error) {
	return nil, nil
}
func (s *stubProductRepo) List(_ context.Context, _, _ int, _ string) ([]model.Product, int, error) {
	return nil, 0, nil
}
func (s *stubProductRepo) Update(_ context.Context, _ *model.Product) error { return nil }
func (s *stubProductRepo) Delete(_ context.Context, _ uuid.UUID) error      { return nil }

type stubCartRepo struct {
	cleared []uuid.UUID
}

func (s *stubCartRepo) ListByUserID(_ context.Context, _ uuid.UUID) ([]model.CartLine, error) {
	return nil, nil
}
func (s *stubCartRepo) Upsert(_ context.Context, _ *model.CartItem) (*model.CartLine, error) {
	return nil, nil
}
func (s *stubCartRepo) UpdateQuantity(_ context.Context, _, _ uuid.UUID, _ int) error { return nil }
func (s *stubCartRepo) DeleteItem(_ context.Context, _, _ uuid.UUID) error            { return nil }
func (s *stubCartRepo) Clear(_ context.Context, userID uuid.UUID) error {
	s.cleared = append(s.cleared, userID)
	return nil
}

type stubOrderRepo struct {
	created   []*model.Order
	createErr error
}

func (s *stubOrderRepo) CreateWithItems(_ context.Context, order *model.Order) error {
	if s.createErr != nil {
		return s.createErr
	}
	order.ID = uuid.New()
	s.created = append(s.created, order)
	return nil
}
func (s *stubOrderRepo) GetByID(_ context.Context, _ uuid.UUID) (*model.Order, error) {
	return nil, nil
}
func (s *stubOrderRepo) GetByNumber(_ context.Context, _ string) (*model.Order, error) {
	return nil, nil
}
func (s *stubOrderRepo) ListByUserID(_ context.Context, _ uuid.UUID) ([]model.Order, error) {
	return nil, nil
}
func (s *stubOrderRepo) List(_ context.Context, _ repository.OrderFilter) ([]model.Order, int, error) {
	return nil, 0, nil
}
func (s *stubOrderRepo) Stats(_ context.Context, _ repository.OrderFilter) (*repository.OrderStats, error) {
	return &repository.OrderStats{}, nil
}
func (s *stubOrderRepo) Update(_ context.Context, _ uuid.UUID, _ repository.OrderUpdate) (*model.Order, error) {
	return nil, nil
}

func newTestWorker(orderRepo *stubOrderRepo, cartRepo *stubCartRepo, productRepo *stubProductRepo) *OrderWorker {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewOrderWorker(nil, orderRepo, cartRepo, productRepo, nil, log)
}

func checkoutMessage(userID string, items ...model.CheckoutCompletedItem) model.CheckoutCompletedMessage {
	return model.CheckoutCompletedMessage{
		SessionID: "cs_test_abc",
		UserID:    userID,
		Email:     "buyer@example.com",
		Name:      "Jane Buyer",
		Total:     decimal.NewFromFloat(31.60),
		Items:     items,
	}
}

func TestOrderWorker_CreateOrder_Guest(t *testing.T) {
	productRepo := &stubProductRepo{products: map[uuid.UUID]*model.Product{}}
	p := &model.Product{ID: uuid.New(), Name: "Blue Mug", Price: decimal.NewFromFloat(10)}
	productRepo.products[p.ID] = p
	orderRepo := &stubOrderRepo{}
	cartRepo := &stubCartRepo{}
	w := newTestWorker(orderRepo, cartRepo, productRepo)

	order, err := w.createOrder(context.Background(), checkoutMessage("guest",
		model.CheckoutCompletedItem{ProductID: p.ID, Quantity: 2, Price: p.Price},
	))
	require.NoError(t, err)

	assert.False(t, order.UserID.Valid)
	assert.Equal(t, "buyer@example.com", order.CustomerEmail)
	assert.Equal(t, "Jane Buyer", order.CustomerName)
	assert.True(t, order.Total.Equal(decimal.NewFromFloat(31.60)))
	assert.Equal(t, model.PaymentStatusPaid, order.PaymentStatus)
	assert.Equal(t, model.FulfillmentStatusPending, order.FulfillmentStatus)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "Blue Mug", order.Items[0].Name)
	assert.Equal(t, 2, order.Items[0].Quantity)

	require.Len(t, orderRepo.created, 1)
	assert.Empty(t, cartRepo.cleared, "guest checkout has no cart to clear")
}

func TestOrderWorker_CreateOrder_RegisteredUserClearsCart(t *testing.T) {
	productRepo := &stubProductRepo{products: map[uuid.UUID]*model.Product{}}
	p := &model.Product{ID: uuid.New(), Name: "Lamp", Price: decimal.NewFromFloat(40)}
	productRepo.products[p.ID] = p
	orderRepo := &stubOrderRepo{}
	cartRepo := &stubCartRepo{}
	w := newTestWorker(orderRepo, cartRepo, productRepo)

	userID := uuid.New()
	order, err := w.createOrder(context.Background(), checkoutMessage(userID.String(),
		model.CheckoutCompletedItem{ProductID: p.ID, Quantity: 1, Price: p.Price},
	))
	require.NoError(t, err)

	require.True(t, order.UserID.Valid)
	assert.Equal(t, userID, order.UserID.UUID)
	require.Len(t, cartRepo.cleared, 1)
	assert.Equal(t, userID, cartRepo.cleared[0])
}

// A product deleted between checkout and webhook delivery still yields an
// order; its item just has no name snapshot.
func TestOrderWorker_CreateOrder_MissingProduct(t *testing.T) {
	productRepo := &stubProductRepo{products: map[uuid.UUID]*model.Product{}}
	orderRepo := &stubOrderRepo{}
	w := newTestWorker(orderRepo, &stubCartRepo{}, productRepo)

	order, err := w.createOrder(context.Background(), checkoutMessage("guest",
		model.CheckoutCompletedItem{ProductID: uuid.New(), Quantity: 1, Price: decimal.NewFromFloat(5)},
	))
	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	assert.Empty(t, order.Items[0].Name)
}

func TestOrderWorker_CreateOrder_BadUserID(t *testing.T) {
	w := newTestWorker(&stubOrderRepo{}, &stubCartRepo{}, &stubProductRepo{products: map[uuid.UUID]*model.Product{}})

	_, err := w.createOrder(context.Background(), checkoutMessage("not-a-uuid"))
	assert.Error(t, err)
}

func TestOrderWorker_CreateOrder_RepoErrorPropagates(t *testing.T) {
	orderRepo := &stubOrderRepo{createErr: repository.ErrInsufficientInventory}
	cartRepo := &stubCartRepo{}
	w := newTestWorker(orderRepo, cartRepo, &stubProductRepo{products: map[uuid.UUID]*model.Product{}})

	_, err := w.createOrder(context.Background(), checkoutMessage("guest"))
	require.ErrorIs(t, err, repository.ErrInsufficientInventory)
	assert.Empty(t, cartRepo.cleared)
}

func TestNewOrderNumber_Format(t *testing.T) {
	n := newOrderNumber()
	assert.True(t, strings.HasPrefix(n, "ORD-"))
	assert.Len(t, n, len("ORD-20060102-")+8)
	assert.Equal(t, strings.ToUpper(n), n)

	assert.NotEqual(t, n, newOrderNumber())
}
