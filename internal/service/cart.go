package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/udithsc/storefront-api/internal/dto"
	"github.com/udithsc/storefront-api/internal/model"
	"github.com/udithsc/storefront-api/internal/repository"
)

var (
	ErrCartItemNotFound      = errors.New("cart item not found")
	ErrProductUnavailable    = errors.New("product is not available")
	ErrInsufficientInventory = errors.New("insufficient inventory")
)

type CartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
}

func NewCartService(cartRepo repository.CartRepository, productRepo repository.ProductRepository) *CartService {
	return &CartService{cartRepo: cartRepo, productRepo: productRepo}
}

func (s *CartService) GetCart(ctx context.Context, userID uuid.UUID) (*dto.CartResponse, error) {
	lines, err := s.cartRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list cart: %w", err)
	}

	resp := &dto.CartResponse{Items: make([]dto.CartItemResponse, 0, len(lines)), Total: decimal.Zero}
	for _, line := range lines {
		resp.Items = append(resp.Items, toCartItemResponse(&line))
		resp.Total = resp.Total.Add(line.Subtotal())
		resp.Count += line.Quantity
	}
	return resp, nil
}

// AddItem validates the product and upserts the cart row. The inventory
// check is against the requested quantity only, not the post-increment cart
// total for the product.
func (s *CartService) AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*dto.CartItemResponse, error) {
	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	if product.Status != model.ProductStatusActive {
		return nil, ErrProductUnavailable
	}
	if product.TrackInventory && product.Inventory < quantity {
		return nil, ErrInsufficientInventory
	}

	line, err := s.cartRepo.Upsert(ctx, &model.CartItem{
		UserID:    userID,
		ProductID: productID,
		Quantity:  quantity,
	})
	if err != nil {
		return nil, fmt.Errorf("upsert cart item: %w", err)
	}

	resp := toCartItemResponse(line)
	return &resp, nil
}

func (s *CartService) UpdateItem(ctx context.Context, userID, itemID uuid.UUID, quantity int) error {
	if err := s.cartRepo.UpdateQuantity(ctx, userID, itemID, quantity); err != nil {
		if isNoRows(err) {
			return ErrCartItemNotFound
		}
		return fmt.Errorf("update cart item: %w", err)
	}
	return nil
}

func (s *CartService) DeleteItem(ctx context.Context, userID, itemID uuid.UUID) error {
	if err := s.cartRepo.DeleteItem(ctx, userID, itemID); err != nil {
		if isNoRows(err) {
			return ErrCartItemNotFound
		}
		return fmt.Errorf("delete cart item: %w", err)
	}
	return nil
}

func isNoRows(err error) bool { return errors.Is(err, pgx.ErrNoRows) }

func toCartItemResponse(line *model.CartLine) dto.CartItemResponse {
	return dto.CartItemResponse{
		ID:        line.ID,
		ProductID: line.ProductID,
		Name:      line.ProductName,
		Slug:      line.ProductSlug,
		Price:     line.UnitPrice,
		Quantity:  line.Quantity,
		Image:     line.ImageURL,
		Subtotal:  line.Subtotal(),
	}
}
