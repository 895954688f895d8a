package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/udithsc/storefront-api/internal/model"
)

type CartRepository interface {
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]model.CartLine, error)
	// Upsert adds the quantity to an existing (user, product) row or creates
	// one. The increment happens in a single statement so concurrent adds
	// cannot lose an update.
	Upsert(ctx context.Context, item *model.CartItem) (*model.CartLine, error)
	UpdateQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) error
	DeleteItem(ctx context.Context, userID, itemID uuid.UUID) error
	Clear(ctx context.Context, userID uuid.UUID) error
}

type pgCartRepo struct{ pool *pgxpool.Pool }

func NewCartRepository(pool *pgxpool.Pool) CartRepository {
	return &pgCartRepo{pool: pool}
}

const cartLineSelect = `
	SELECT ci.id, ci.user_id, ci.product_id, ci.quantity, ci.created_at, ci.updated_at,
	       p.name, p.slug, p.price,
	       COALESCE((SELECT url FROM product_images WHERE product_id = p.id ORDER BY position LIMIT 1), '')
	FROM cart_items ci
	JOIN products p ON p.id = ci.product_id`

func scanCartLine(row pgx.Row) (*model.CartLine, error) {
	line := &model.CartLine{}
	err := row.Scan(
		&line.ID, &line.UserID, &line.ProductID, &line.Quantity, &line.CreatedAt, &line.UpdatedAt,
		&line.ProductName, &line.ProductSlug, &line.UnitPrice, &line.ImageURL,
	)
	if err != nil {
		return nil, err
	}
	return line, nil
}

func (r *pgCartRepo) ListByUserID(ctx context.Context, userID uuid.UUID) ([]model.CartLine, error) {
	rows, err := r.pool.Query(ctx, cartLineSelect+` WHERE ci.user_id = $1 ORDER BY ci.created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("list cart items: %w", err)
	}
	defer rows.Close()

	var lines []model.CartLine
	for rows.Next() {
		line, err := scanCartLine(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		lines = append(lines, *line)
	}
	return lines, rows.Err()
}

func (r *pgCartRepo) Upsert(ctx context.Context, item *model.CartItem) (*model.CartLine, error) {
	item.ID = uuid.New()
	query := `INSERT INTO cart_items (id, user_id, product_id, quantity, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, NOW(), NOW())
			  ON CONFLICT (user_id, product_id)
			  DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = NOW()
			  RETURNING id`
	var id uuid.UUID
	if err := r.pool.QueryRow(ctx, query, item.ID, item.UserID, item.ProductID, item.Quantity).Scan(&id); err != nil {
		return nil, fmt.Errorf("upsert cart item: %w", err)
	}

	line, err := scanCartLine(r.pool.QueryRow(ctx, cartLineSelect+` WHERE ci.id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("get cart item: %w", err)
	}
	return line, nil
}

func (r *pgCartRepo) UpdateQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) error {
	ct, err := r.pool.Exec(ctx,
		`UPDATE cart_items SET quantity = $3, updated_at = NOW() WHERE id = $1 AND user_id = $2`,
		itemID, userID, quantity,
	)
	if err != nil {
		return fmt.Errorf("update cart item: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *pgCartRepo) DeleteItem(ctx context.Context, userID, itemID uuid.UUID) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM cart_items WHERE id = $1 AND user_id = $2`, itemID, userID)
	if err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *pgCartRepo) Clear(ctx context.Context, userID uuid.UUID) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}
