package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/udithsc/storefront-api/internal/dto"
	"github.com/udithsc/storefront-api/internal/model"
	"github.com/udithsc/storefront-api/internal/repository"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrOrderAccessDenied = errors.New("access denied")
)

type OrderService struct {
	orderRepo repository.OrderRepository
	now       func() time.Time
}

func NewOrderService(orderRepo repository.OrderRepository) *OrderService {
	return &OrderService{orderRepo: orderRepo, now: time.Now}
}

func (s *OrderService) ListForUser(ctx context.Context, userID uuid.UUID) ([]dto.OrderResponse, error) {
	orders, err := s.orderRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	items := make([]dto.OrderResponse, 0, len(orders))
	for _, o := range orders {
		items = append(items, toOrderResponse(&o))
	}
	return items, nil
}

func (s *OrderService) GetForUser(ctx context.Context, userID uuid.UUID, idOrNumber string) (*dto.OrderResponse, error) {
	order, err := s.resolve(ctx, idOrNumber)
	if err != nil {
		return nil, err
	}
	if order == nil || !order.UserID.Valid || order.UserID.UUID != userID {
		// Ownership failures read as not-found.
		return nil, ErrOrderNotFound
	}
	resp := toOrderResponse(order)
	return &resp, nil
}

func (s *OrderService) AdminGet(ctx context.Context, idOrNumber string) (*dto.OrderResponse, error) {
	order, err := s.resolve(ctx, idOrNumber)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	resp := toOrderResponse(order)
	return &resp, nil
}

// resolve accepts an internal id or a human-readable order number.
func (s *OrderService) resolve(ctx context.Context, idOrNumber string) (*model.Order, error) {
	var order *model.Order
	var err error
	if id, parseErr := uuid.Parse(idOrNumber); parseErr == nil {
		order, err = s.orderRepo.GetByID(ctx, id)
	} else {
		order, err = s.orderRepo.GetByNumber(ctx, idOrNumber)
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	return order, nil
}

// AdminUpdate applies a partial update. Status values are copied as
// supplied; the SHIPPED and DELIVERED fulfillment transitions additionally
// stamp shipped_at and delivered_at. Transitions are not ordered: DELIVERED
// without a prior SHIPPED is accepted and leaves shipped_at unset.
func (s *OrderService) AdminUpdate(ctx context.Context, orderID uuid.UUID, req dto.UpdateOrderRequest) (*dto.OrderResponse, error) {
	upd := repository.OrderUpdate{
		Status:         req.Status,
		PaymentStatus:  req.PaymentStatus,
		TrackingNumber: req.TrackingNumber,
		Notes:          req.Notes,
	}

	if req.FulfillmentStatus != nil {
		upd.FulfillmentStatus = req.FulfillmentStatus
		now := s.now()
		switch *req.FulfillmentStatus {
		case model.FulfillmentStatusShipped:
			upd.ShippedAt = &now
		case model.FulfillmentStatusDelivered:
			upd.DeliveredAt = &now
		}
	}

	order, err := s.orderRepo.Update(ctx, orderID, upd)
	if err != nil {
		return nil, fmt.Errorf("update order: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}

	resp := toOrderResponse(order)
	return &resp, nil
}

func (s *OrderService) AdminList(ctx context.Context, req dto.ListOrdersRequest) (*dto.OrderListResponse, error) {
	filter := repository.OrderFilter{
		Status:            req.Status,
		PaymentStatus:     req.PaymentStatus,
		FulfillmentStatus: req.FulfillmentStatus,
		Search:            req.Search,
		Limit:             req.Limit,
		Offset:            (req.Page - 1) * req.Limit,
	}
	if req.From != "" {
		t, err := time.Parse("2006-01-02", req.From)
		if err != nil {
			return nil, fmt.Errorf("parse from date: %w", err)
		}
		filter.CreatedFrom = &t
	}
	if req.To != "" {
		t, err := time.Parse("2006-01-02", req.To)
		if err != nil {
			return nil, fmt.Errorf("parse to date: %w", err)
		}
		// Inclusive upper bound: push to the end of the day.
		end := t.Add(24*time.Hour - time.Nanosecond)
		filter.CreatedTo = &end
	}

	orders, total, err := s.orderRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	stats, err := s.orderRepo.Stats(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("order stats: %w", err)
	}

	items := make([]dto.OrderResponse, 0, len(orders))
	for _, o := range orders {
		items = append(items, toOrderResponse(&o))
	}

	return &dto.OrderListResponse{
		Orders: items,
		Pagination: dto.Pagination{
			Page:  req.Page,
			Limit: req.Limit,
			Total: total,
			Pages: (total + req.Limit - 1) / req.Limit,
		},
		Stats: dto.OrderStatsResponse{Revenue: stats.Revenue, Orders: stats.Orders},
	}, nil
}

func toOrderResponse(order *model.Order) dto.OrderResponse {
	items := make([]dto.OrderItemResponse, 0, len(order.Items))
	count := 0
	for _, item := range order.Items {
		items = append(items, dto.OrderItemResponse{
			ID:        item.ID,
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			Price:     item.Price,
			Image:     item.ImageURL,
		})
		count += item.Quantity
	}

	resp := dto.OrderResponse{
		ID:                order.ID,
		OrderNumber:       order.OrderNumber,
		CustomerEmail:     order.CustomerEmail,
		CustomerName:      order.CustomerName,
		Total:             order.Total,
		Status:            order.Status,
		PaymentStatus:     order.PaymentStatus,
		FulfillmentStatus: order.FulfillmentStatus,
		TrackingNumber:    order.TrackingNumber,
		Notes:             order.Notes,
		ShippedAt:         order.ShippedAt,
		DeliveredAt:       order.DeliveredAt,
		Items:             items,
		ItemCount:         count,
		CreatedAt:         order.CreatedAt,
		UpdatedAt:         order.UpdatedAt,
	}
	if order.UserID.Valid {
		id := order.UserID.UUID
		resp.UserID = &id
	}
	return resp
}
