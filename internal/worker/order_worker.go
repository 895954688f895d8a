package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/udithsc/storefront-api/internal/model"
	"github.com/udithsc/storefront-api/internal/repository"
)

const (
	OrderQueueName = "checkout.completed"
	dlxExchange    = "checkout.dlx"
	dlqQueueName   = "checkout.dlq"
	idempotencyTTL = 24 * time.Hour
)

// OrderWorker materializes orders from completed checkout sessions. It is
// the only writer of order rows; the HTTP layer only reads and updates them.
type OrderWorker struct {
	channel     *amqp.Channel
	orderRepo   repository.OrderRepository
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	redis       *redis.Client
	log         *slog.Logger
	done        chan struct{}
}

func NewOrderWorker(
	ch *amqp.Channel,
	orderRepo repository.OrderRepository,
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
	redisClient *redis.Client,
	log *slog.Logger,
) *OrderWorker {
	return &OrderWorker{
		channel:     ch,
		orderRepo:   orderRepo,
		cartRepo:    cartRepo,
		productRepo: productRepo,
		redis:       redisClient,
		log:         log,
		done:        make(chan struct{}),
	}
}

// SetupRabbitMQ declares exchanges, queues, and bindings (DLX/DLQ).
func SetupRabbitMQ(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(dlxExchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare DLX: %w", err)
	}
	if _, err := ch.QueueDeclare(dlqQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare DLQ: %w", err)
	}
	if err := ch.QueueBind(dlqQueueName, OrderQueueName, dlxExchange, false, nil); err != nil {
		return fmt.Errorf("bind DLQ: %w", err)
	}
	if _, err := ch.QueueDeclare(OrderQueueName, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    dlxExchange,
		"x-dead-letter-routing-key": OrderQueueName,
	}); err != nil {
		return fmt.Errorf("declare checkout queue: %w", err)
	}
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set QoS: %w", err)
	}
	return nil
}

func (w *OrderWorker) Start(ctx context.Context) error {
	msgs, err := w.channel.Consume(OrderQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	go func() {
		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				w.processMessage(ctx, msg)
			case <-w.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	w.log.Info("order worker started")
	return nil
}

func (w *OrderWorker) Stop() { close(w.done) }

func (w *OrderWorker) processMessage(ctx context.Context, msg amqp.Delivery) {
	var checkout model.CheckoutCompletedMessage
	if err := json.Unmarshal(msg.Body, &checkout); err != nil {
		w.log.Error("unmarshal checkout message", "error", err)
		_ = msg.Nack(false, false)
		return
	}

	log := w.log.With("session_id", checkout.SessionID, "user_id", checkout.UserID)

	// A redelivered session must not produce a second order.
	idempotencyKey := "checkout_processed:" + checkout.SessionID
	exists, err := w.redis.Exists(ctx, idempotencyKey).Result()
	if err != nil {
		log.Error("check idempotency key", "error", err)
		_ = msg.Nack(false, true)
		return
	}
	if exists > 0 {
		log.Info("checkout already processed, skipping")
		_ = msg.Ack(false)
		return
	}

	order, err := w.createOrder(ctx, checkout)
	if err != nil {
		log.Error("create order failed", "error", err)
		_ = msg.Nack(false, false) // to DLQ
		return
	}

	if err := w.redis.Set(ctx, idempotencyKey, order.ID.String(), idempotencyTTL).Err(); err != nil {
		log.Error("set idempotency key", "error", err)
	}

	_ = msg.Ack(false)
	log.Info("order created", "order_id", order.ID, "order_number", order.OrderNumber)
}

func (w *OrderWorker) createOrder(ctx context.Context, checkout model.CheckoutCompletedMessage) (*model.Order, error) {
	order := &model.Order{
		OrderNumber:       newOrderNumber(),
		CustomerEmail:     checkout.Email,
		CustomerName:      checkout.Name,
		Total:             checkout.Total,
		Status:            model.OrderStatusPending,
		PaymentStatus:     model.PaymentStatusPaid,
		FulfillmentStatus: model.FulfillmentStatusPending,
	}
	if checkout.UserID != "" && checkout.UserID != "guest" {
		id, err := uuid.Parse(checkout.UserID)
		if err != nil {
			return nil, fmt.Errorf("parse user id: %w", err)
		}
		order.UserID = uuid.NullUUID{UUID: id, Valid: true}
	}

	for _, it := range checkout.Items {
		item := model.OrderItem{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     it.Price,
		}
		// Snapshot the product name at purchase time.
		product, err := w.productRepo.GetByID(ctx, it.ProductID)
		if err != nil {
			return nil, fmt.Errorf("get product %s: %w", it.ProductID, err)
		}
		if product != nil {
			item.Name = product.Name
		}
		order.Items = append(order.Items, item)
	}

	if err := w.orderRepo.CreateWithItems(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	if order.UserID.Valid {
		if err := w.cartRepo.Clear(ctx, order.UserID.UUID); err != nil {
			w.log.Error("clear cart after checkout", "user_id", order.UserID.UUID, "error", err)
		}
	}
	return order, nil
}

func newOrderNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("ORD-%s-%s", time.Now().UTC().Format("20060102"), suffix)
}
