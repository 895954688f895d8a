package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udithsc/storefront-api/internal/dto"
	"github.com/udithsc/storefront-api/internal/model"
)

// mockAddressRepo mirrors the pg repo contract: marking a row default clears
// the flag on same-type siblings atomically.
type mockAddressRepo struct {
	addresses map[uuid.UUID]*model.Address
}

func newMockAddressRepo() *mockAddressRepo {
	return &mockAddressRepo{addresses: make(map[uuid.UUID]*model.Address)}
}

func (m *mockAddressRepo) ListByUserID(_ context.Context, userID uuid.UUID) ([]model.Address, error) {
	var out []model.Address
	for _, a := range m.addresses {
		if a.UserID == userID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *mockAddressRepo) GetByID(_ context.Context, userID, id uuid.UUID) (*model.Address, error) {
	a, ok := m.addresses[id]
	if !ok || a.UserID != userID {
		return nil, nil
	}
	out := *a
	return &out, nil
}

func (m *mockAddressRepo) clearSiblings(userID uuid.UUID, addrType string, except uuid.UUID) {
	for _, a := range m.addresses {
		if a.UserID == userID && a.Type == addrType && a.ID != except {
			a.IsDefault = false
		}
	}
}

func (m *mockAddressRepo) Create(_ context.Context, address *model.Address) error {
	address.ID = uuid.New()
	address.CreatedAt = time.Now()
	if address.IsDefault {
		m.clearSiblings(address.UserID, address.Type, address.ID)
	}
	stored := *address
	m.addresses[address.ID] = &stored
	return nil
}

func (m *mockAddressRepo) Update(_ context.Context, address *model.Address) error {
	existing, ok := m.addresses[address.ID]
	if !ok || existing.UserID != address.UserID {
		return pgx.ErrNoRows
	}
	if address.IsDefault {
		m.clearSiblings(address.UserID, address.Type, address.ID)
	}
	stored := *address
	stored.CreatedAt = existing.CreatedAt
	m.addresses[address.ID] = &stored
	return nil
}

func (m *mockAddressRepo) Delete(_ context.Context, userID, id uuid.UUID) error {
	a, ok := m.addresses[id]
	if !ok || a.UserID != userID {
		return pgx.ErrNoRows
	}
	delete(m.addresses, id)
	return nil
}

func (m *mockAddressRepo) defaults(userID uuid.UUID, addrType string) []*model.Address {
	var out []*model.Address
	for _, a := range m.addresses {
		if a.UserID == userID && a.Type == addrType && a.IsDefault {
			out = append(out, a)
		}
	}
	return out
}

func shippingAddress(isDefault bool) dto.CreateAddressRequest {
	return dto.CreateAddressRequest{
		Type:       model.AddressTypeShipping,
		FirstName:  "Jane",
		LastName:   "Doe",
		Line1:      "1 Main St",
		City:       "Springfield",
		PostalCode: "12345",
		IsDefault:  &isDefault,
	}
}

func TestAddressService_Create_DefaultsCountry(t *testing.T) {
	repo := newMockAddressRepo()
	svc := NewAddressService(repo)

	resp, err := svc.Create(context.Background(), uuid.New(), shippingAddress(false))
	require.NoError(t, err)
	assert.Equal(t, "US", resp.Country)
	assert.False(t, resp.IsDefault)
}

func TestAddressService_Create_SecondDefaultDisplacesFirst(t *testing.T) {
	repo := newMockAddressRepo()
	svc := NewAddressService(repo)
	userID := uuid.New()

	first, err := svc.Create(context.Background(), userID, shippingAddress(true))
	require.NoError(t, err)
	second, err := svc.Create(context.Background(), userID, shippingAddress(true))
	require.NoError(t, err)

	defaults := repo.defaults(userID, model.AddressTypeShipping)
	require.Len(t, defaults, 1)
	assert.Equal(t, second.ID, defaults[0].ID)
	assert.False(t, repo.addresses[first.ID].IsDefault)
}

func TestAddressService_Create_DefaultPerTypeIndependent(t *testing.T) {
	repo := newMockAddressRepo()
	svc := NewAddressService(repo)
	userID := uuid.New()

	_, err := svc.Create(context.Background(), userID, shippingAddress(true))
	require.NoError(t, err)

	billing := shippingAddress(true)
	billing.Type = model.AddressTypeBilling
	_, err = svc.Create(context.Background(), userID, billing)
	require.NoError(t, err)

	assert.Len(t, repo.defaults(userID, model.AddressTypeShipping), 1)
	assert.Len(t, repo.defaults(userID, model.AddressTypeBilling), 1)
}

func TestAddressService_Update_PromoteToDefault(t *testing.T) {
	repo := newMockAddressRepo()
	svc := NewAddressService(repo)
	userID := uuid.New()

	first, err := svc.Create(context.Background(), userID, shippingAddress(true))
	require.NoError(t, err)
	second, err := svc.Create(context.Background(), userID, shippingAddress(false))
	require.NoError(t, err)

	isDefault := true
	_, err = svc.Update(context.Background(), userID, second.ID, dto.UpdateAddressRequest{IsDefault: &isDefault})
	require.NoError(t, err)

	defaults := repo.defaults(userID, model.AddressTypeShipping)
	require.Len(t, defaults, 1)
	assert.Equal(t, second.ID, defaults[0].ID)
	assert.False(t, repo.addresses[first.ID].IsDefault)
}

func TestAddressService_Update_NotOwned(t *testing.T) {
	repo := newMockAddressRepo()
	svc := NewAddressService(repo)

	owner := uuid.New()
	created, err := svc.Create(context.Background(), owner, shippingAddress(false))
	require.NoError(t, err)

	city := "Shelbyville"
	_, err = svc.Update(context.Background(), uuid.New(), created.ID, dto.UpdateAddressRequest{City: &city})
	assert.ErrorIs(t, err, ErrAddressNotFound)
}

func TestAddressService_Delete_NotOwned(t *testing.T) {
	repo := newMockAddressRepo()
	svc := NewAddressService(repo)

	owner := uuid.New()
	created, err := svc.Create(context.Background(), owner, shippingAddress(false))
	require.NoError(t, err)

	err = svc.Delete(context.Background(), uuid.New(), created.ID)
	assert.ErrorIs(t, err, ErrAddressNotFound)

	err = svc.Delete(context.Background(), owner, created.ID)
	assert.NoError(t, err)
}
