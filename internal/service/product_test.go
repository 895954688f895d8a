package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udithsc/storefront-api/internal/dto"
	"github.com/udithsc/storefront-api/internal/model"
)

type mockProductRepo struct {
	products map[uuid.UUID]*model.Product
}

func newMockProductRepo() *mockProductRepo {
	return &mockProductRepo{products: make(map[uuid.UUID]*model.Product)}
}

func (m *mockProductRepo) Create(_ context.Context, p *model.Product) error {
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	p.UpdatedAt = time.Now()
	m.products[p.ID] = p
	return nil
}

func (m *mockProductRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Product, error) {
	return m.products[id], nil
}

func (m *mockProductRepo) GetBySlug(_ context.Context, slug string) (*model.Product, error) {
	for _, p := range m.products {
		if p.Slug == slug {
			return p, nil
		}
	}
	return nil, nil
}

func (m *mockProductRepo) List(_ context.Context, limit, offset int, _ string) ([]model.Product, int, error) {
	var all []model.Product
	for _, p := range m.products {
		all = append(all, *p)
	}
	total := len(all)
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *mockProductRepo) Update(_ context.Context, p *model.Product) error {
	if existing, ok := m.products[p.ID]; ok {
		*existing = *p
	}
	return nil
}

func (m *mockProductRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.products, id)
	return nil
}

func activeProduct(repo *mockProductRepo, slug string, price float64, inventory int, track bool) *model.Product {
	p := &model.Product{
		ID:             uuid.New(),
		Slug:           slug,
		Name:           "Product " + slug,
		Price:          decimal.NewFromFloat(price),
		Inventory:      inventory,
		TrackInventory: track,
		Status:         model.ProductStatusActive,
	}
	repo.products[p.ID] = p
	return p
}

func TestProductService_Get_ByID(t *testing.T) {
	repo := newMockProductRepo()
	p := activeProduct(repo, "blue-mug", 12.50, 10, true)
	svc := NewProductService(repo, nil)

	resp, err := svc.Get(context.Background(), p.ID.String())
	require.NoError(t, err)
	assert.Equal(t, p.ID, resp.ID)
	assert.Equal(t, "blue-mug", resp.Slug)
}

func TestProductService_Get_BySlug(t *testing.T) {
	repo := newMockProductRepo()
	p := activeProduct(repo, "red-mug", 9.99, 10, true)
	svc := NewProductService(repo, nil)

	resp, err := svc.Get(context.Background(), "red-mug")
	require.NoError(t, err)
	assert.Equal(t, p.ID, resp.ID)
}

func TestProductService_Get_NotFound(t *testing.T) {
	svc := NewProductService(newMockProductRepo(), nil)
	_, err := svc.Get(context.Background(), "missing-slug")
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestProductService_Update_Partial(t *testing.T) {
	repo := newMockProductRepo()
	p := activeProduct(repo, "lamp", 30.00, 5, false)
	svc := NewProductService(repo, nil)

	name := "Desk Lamp"
	resp, err := svc.Update(context.Background(), p.ID, dto.UpdateProductRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Desk Lamp", resp.Name)
	assert.Equal(t, "lamp", resp.Slug)
	assert.True(t, resp.Price.Equal(decimal.NewFromFloat(30.00)))
}
