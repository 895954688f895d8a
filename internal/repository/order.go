package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/udithsc/storefront-api/internal/model"
)

var ErrInsufficientInventory = errors.New("insufficient inventory")

// OrderFilter narrows the admin order listing. Zero values mean "no filter".
type OrderFilter struct {
	Status            string
	PaymentStatus     string
	FulfillmentStatus string
	Search            string
	CreatedFrom       *time.Time
	CreatedTo         *time.Time
	Limit             int
	Offset            int
}

type OrderStats struct {
	Revenue decimal.Decimal
	Orders  int
}

// OrderUpdate is a partial update: nil fields are left untouched.
type OrderUpdate struct {
	Status            *string
	PaymentStatus     *string
	FulfillmentStatus *string
	TrackingNumber    *string
	Notes             *string
	ShippedAt         *time.Time
	DeliveredAt       *time.Time
}

type OrderRepository interface {
	// CreateWithItems inserts the order and its items and decrements tracked
	// inventory in one transaction. Returns ErrInsufficientInventory when a
	// tracked product cannot cover an item quantity.
	CreateWithItems(ctx context.Context, order *model.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	GetByNumber(ctx context.Context, number string) (*model.Order, error)
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]model.Order, error)
	List(ctx context.Context, filter OrderFilter) ([]model.Order, int, error)
	Stats(ctx context.Context, filter OrderFilter) (*OrderStats, error)
	Update(ctx context.Context, id uuid.UUID, upd OrderUpdate) (*model.Order, error)
}

type pgOrderRepo struct{ pool *pgxpool.Pool }

func NewOrderRepository(pool *pgxpool.Pool) OrderRepository {
	return &pgOrderRepo{pool: pool}
}

// Contact details prefer the account when the order has one and fall back to
// the snapshot taken at checkout, so guest orders keep theirs.
const orderSelect = `
	SELECT o.id, o.order_number, o.user_id, o.total, o.status, o.payment_status, o.fulfillment_status,
	       o.tracking_number, o.notes, o.shipped_at, o.delivered_at, o.created_at, o.updated_at,
	       COALESCE(u.email, o.customer_email),
	       COALESCE(NULLIF(TRIM(u.first_name || ' ' || u.last_name), ''), o.customer_name)
	FROM orders o
	LEFT JOIN users u ON u.id = o.user_id`

func scanOrder(row pgx.Row, o *model.Order) error {
	return row.Scan(
		&o.ID, &o.OrderNumber, &o.UserID, &o.Total, &o.Status, &o.PaymentStatus, &o.FulfillmentStatus,
		&o.TrackingNumber, &o.Notes, &o.ShippedAt, &o.DeliveredAt, &o.CreatedAt, &o.UpdatedAt,
		&o.CustomerEmail, &o.CustomerName,
	)
}

func (r *pgOrderRepo) CreateWithItems(ctx context.Context, order *model.Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	order.ID = uuid.New()
	err = tx.QueryRow(ctx,
		`INSERT INTO orders (id, order_number, user_id, customer_email, customer_name, total, status, payment_status, fulfillment_status, tracking_number, notes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, '', '', NOW(), NOW()) RETURNING created_at, updated_at`,
		order.ID, order.OrderNumber, order.UserID, order.CustomerEmail, order.CustomerName,
		order.Total, order.Status, order.PaymentStatus, order.FulfillmentStatus,
	).Scan(&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for i := range order.Items {
		order.Items[i].ID = uuid.New()
		order.Items[i].OrderID = order.ID
		_, err = tx.Exec(ctx,
			`INSERT INTO order_items (id, order_id, product_id, name, quantity, price)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			order.Items[i].ID, order.ID, order.Items[i].ProductID,
			order.Items[i].Name, order.Items[i].Quantity, order.Items[i].Price,
		)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}

		ct, err := tx.Exec(ctx,
			`UPDATE products
			 SET inventory = CASE WHEN track_inventory THEN inventory - $2 ELSE inventory END, updated_at = NOW()
			 WHERE id = $1 AND (NOT track_inventory OR inventory >= $2)`,
			order.Items[i].ProductID, order.Items[i].Quantity,
		)
		if err != nil {
			return fmt.Errorf("decrement inventory: %w", err)
		}
		if ct.RowsAffected() == 0 {
			return fmt.Errorf("product %s: %w", order.Items[i].ProductID, ErrInsufficientInventory)
		}
	}

	return tx.Commit(ctx)
}

func (r *pgOrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	return r.getOne(ctx, orderSelect+` WHERE o.id = $1`, id)
}

func (r *pgOrderRepo) GetByNumber(ctx context.Context, number string) (*model.Order, error) {
	return r.getOne(ctx, orderSelect+` WHERE o.order_number = $1`, number)
}

func (r *pgOrderRepo) getOne(ctx context.Context, query string, arg any) (*model.Order, error) {
	o := &model.Order{}
	if err := scanOrder(r.pool.QueryRow(ctx, query, arg), o); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if err := r.loadItems(ctx, []*model.Order{o}); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *pgOrderRepo) loadItems(ctx context.Context, orders []*model.Order) error {
	if len(orders) == 0 {
		return nil
	}
	byID := make(map[uuid.UUID]*model.Order, len(orders))
	ids := make([]uuid.UUID, 0, len(orders))
	for _, o := range orders {
		byID[o.ID] = o
		ids = append(ids, o.ID)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT oi.id, oi.order_id, oi.product_id, oi.name, oi.quantity, oi.price,
		        COALESCE((SELECT url FROM product_images pi WHERE pi.product_id = oi.product_id ORDER BY position LIMIT 1), '')
		 FROM order_items oi WHERE oi.order_id = ANY($1) ORDER BY oi.id`,
		ids,
	)
	if err != nil {
		return fmt.Errorf("get order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item model.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Name, &item.Quantity, &item.Price, &item.ImageURL); err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		if o, ok := byID[item.OrderID]; ok {
			o.Items = append(o.Items, item)
		}
	}
	return rows.Err()
}

func (r *pgOrderRepo) ListByUserID(ctx context.Context, userID uuid.UUID) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx, orderSelect+` WHERE o.user_id = $1 ORDER BY o.created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders, err := collectOrders(rows)
	if err != nil {
		return nil, err
	}

	refs := make([]*model.Order, len(orders))
	for i := range orders {
		refs[i] = &orders[i]
	}
	if err := r.loadItems(ctx, refs); err != nil {
		return nil, err
	}
	return orders, nil
}

func buildOrderWhere(f OrderFilter) (string, []any) {
	conds := []string{"1=1"}
	var args []any

	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.Status != "" {
		add("o.status = $%d", f.Status)
	}
	if f.PaymentStatus != "" {
		add("o.payment_status = $%d", f.PaymentStatus)
	}
	if f.FulfillmentStatus != "" {
		add("o.fulfillment_status = $%d", f.FulfillmentStatus)
	}
	if f.Search != "" {
		args = append(args, f.Search)
		n := len(args)
		conds = append(conds, fmt.Sprintf(
			`(o.order_number ILIKE '%%' || $%d || '%%'
			  OR COALESCE(u.email, o.customer_email) ILIKE '%%' || $%d || '%%'
			  OR COALESCE(NULLIF(TRIM(u.first_name || ' ' || u.last_name), ''), o.customer_name) ILIKE '%%' || $%d || '%%')`,
			n, n, n,
		))
	}
	if f.CreatedFrom != nil {
		add("o.created_at >= $%d", *f.CreatedFrom)
	}
	if f.CreatedTo != nil {
		add("o.created_at <= $%d", *f.CreatedTo)
	}

	return strings.Join(conds, " AND "), args
}

func (r *pgOrderRepo) List(ctx context.Context, f OrderFilter) ([]model.Order, int, error) {
	where, args := buildOrderWhere(f)

	var total int
	countQ := `SELECT COUNT(*) FROM orders o LEFT JOIN users u ON u.id = o.user_id WHERE ` + where
	if err := r.pool.QueryRow(ctx, countQ, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	query := fmt.Sprintf("%s WHERE %s ORDER BY o.created_at DESC LIMIT $%d OFFSET $%d",
		orderSelect, where, len(args)+1, len(args)+2)
	rows, err := r.pool.Query(ctx, query, append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders, err := collectOrders(rows)
	if err != nil {
		return nil, 0, err
	}

	refs := make([]*model.Order, len(orders))
	for i := range orders {
		refs[i] = &orders[i]
	}
	if err := r.loadItems(ctx, refs); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *pgOrderRepo) Stats(ctx context.Context, f OrderFilter) (*OrderStats, error) {
	where, args := buildOrderWhere(f)
	stats := &OrderStats{}
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(o.total), 0), COUNT(*) FROM orders o LEFT JOIN users u ON u.id = o.user_id WHERE `+where,
		args...,
	).Scan(&stats.Revenue, &stats.Orders)
	if err != nil {
		return nil, fmt.Errorf("order stats: %w", err)
	}
	return stats, nil
}

func (r *pgOrderRepo) Update(ctx context.Context, id uuid.UUID, upd OrderUpdate) (*model.Order, error) {
	sets := []string{"updated_at = NOW()"}
	args := []any{id}

	set := func(col string, val any) {
		args = append(args, val)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if upd.Status != nil {
		set("status", *upd.Status)
	}
	if upd.PaymentStatus != nil {
		set("payment_status", *upd.PaymentStatus)
	}
	if upd.FulfillmentStatus != nil {
		set("fulfillment_status", *upd.FulfillmentStatus)
	}
	if upd.TrackingNumber != nil {
		set("tracking_number", *upd.TrackingNumber)
	}
	if upd.Notes != nil {
		set("notes", *upd.Notes)
	}
	if upd.ShippedAt != nil {
		set("shipped_at", *upd.ShippedAt)
	}
	if upd.DeliveredAt != nil {
		set("delivered_at", *upd.DeliveredAt)
	}

	query := fmt.Sprintf(`UPDATE orders SET %s WHERE id = $1`, strings.Join(sets, ", "))
	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("update order: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return nil, nil
	}
	return r.GetByID(ctx, id)
}

func collectOrders(rows pgx.Rows) ([]model.Order, error) {
	var orders []model.Order
	for rows.Next() {
		var o model.Order
		if err := scanOrder(rows, &o); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}
