package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/udithsc/storefront-api/internal/dto"
	"github.com/udithsc/storefront-api/internal/model"
	"github.com/udithsc/storefront-api/internal/repository"
)

var ErrAddressNotFound = errors.New("address not found")

const defaultCountry = "US"

type AddressService struct {
	addressRepo repository.AddressRepository
}

func NewAddressService(addressRepo repository.AddressRepository) *AddressService {
	return &AddressService{addressRepo: addressRepo}
}

func (s *AddressService) List(ctx context.Context, userID uuid.UUID) ([]dto.AddressResponse, error) {
	addresses, err := s.addressRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list addresses: %w", err)
	}

	items := make([]dto.AddressResponse, 0, len(addresses))
	for _, a := range addresses {
		items = append(items, toAddressResponse(&a))
	}
	return items, nil
}

func (s *AddressService) Create(ctx context.Context, userID uuid.UUID, req dto.CreateAddressRequest) (*dto.AddressResponse, error) {
	country := req.Country
	if country == "" {
		country = defaultCountry
	}
	address := &model.Address{
		UserID:     userID,
		Type:       req.Type,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Phone:      req.Phone,
		Line1:      req.Line1,
		Line2:      req.Line2,
		City:       req.City,
		State:      req.State,
		PostalCode: req.PostalCode,
		Country:    country,
	}
	if req.IsDefault != nil {
		address.IsDefault = *req.IsDefault
	}

	if err := s.addressRepo.Create(ctx, address); err != nil {
		return nil, fmt.Errorf("create address: %w", err)
	}

	resp := toAddressResponse(address)
	return &resp, nil
}

func (s *AddressService) Update(ctx context.Context, userID, addressID uuid.UUID, req dto.UpdateAddressRequest) (*dto.AddressResponse, error) {
	address, err := s.addressRepo.GetByID(ctx, userID, addressID)
	if err != nil {
		return nil, fmt.Errorf("get address: %w", err)
	}
	if address == nil {
		return nil, ErrAddressNotFound
	}

	if req.Type != nil {
		address.Type = *req.Type
	}
	if req.FirstName != nil {
		address.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		address.LastName = *req.LastName
	}
	if req.Phone != nil {
		address.Phone = *req.Phone
	}
	if req.Line1 != nil {
		address.Line1 = *req.Line1
	}
	if req.Line2 != nil {
		address.Line2 = *req.Line2
	}
	if req.City != nil {
		address.City = *req.City
	}
	if req.State != nil {
		address.State = *req.State
	}
	if req.PostalCode != nil {
		address.PostalCode = *req.PostalCode
	}
	if req.Country != nil {
		address.Country = *req.Country
	}
	if req.IsDefault != nil {
		address.IsDefault = *req.IsDefault
	}

	if err := s.addressRepo.Update(ctx, address); err != nil {
		if isNoRows(err) {
			return nil, ErrAddressNotFound
		}
		return nil, fmt.Errorf("update address: %w", err)
	}

	resp := toAddressResponse(address)
	return &resp, nil
}

func (s *AddressService) Delete(ctx context.Context, userID, addressID uuid.UUID) error {
	if err := s.addressRepo.Delete(ctx, userID, addressID); err != nil {
		if isNoRows(err) {
			return ErrAddressNotFound
		}
		return fmt.Errorf("delete address: %w", err)
	}
	return nil
}

func toAddressResponse(a *model.Address) dto.AddressResponse {
	return dto.AddressResponse{
		ID:         a.ID,
		Type:       a.Type,
		FirstName:  a.FirstName,
		LastName:   a.LastName,
		Phone:      a.Phone,
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
		IsDefault:  a.IsDefault,
		CreatedAt:  a.CreatedAt,
	}
}
