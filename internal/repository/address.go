package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/udithsc/storefront-api/internal/model"
)

type AddressRepository interface {
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]model.Address, error)
	GetByID(ctx context.Context, userID, id uuid.UUID) (*model.Address, error)
	// Create and Update clear the default flag on same-type siblings inside
	// the same transaction when the row is marked default, so a concurrent
	// reader never observes zero or two defaults for a (user, type) pair.
	Create(ctx context.Context, address *model.Address) error
	Update(ctx context.Context, address *model.Address) error
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

type pgAddressRepo struct{ pool *pgxpool.Pool }

func NewAddressRepository(pool *pgxpool.Pool) AddressRepository {
	return &pgAddressRepo{pool: pool}
}

const addressColumns = `id, user_id, type, first_name, last_name, phone, line1, line2, city, state, postal_code, country, is_default, created_at, updated_at`

func scanAddress(row pgx.Row, a *model.Address) error {
	return row.Scan(
		&a.ID, &a.UserID, &a.Type, &a.FirstName, &a.LastName, &a.Phone,
		&a.Line1, &a.Line2, &a.City, &a.State, &a.PostalCode, &a.Country,
		&a.IsDefault, &a.CreatedAt, &a.UpdatedAt,
	)
}

func (r *pgAddressRepo) ListByUserID(ctx context.Context, userID uuid.UUID) ([]model.Address, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+addressColumns+` FROM addresses WHERE user_id = $1 ORDER BY is_default DESC, created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list addresses: %w", err)
	}
	defer rows.Close()

	var addresses []model.Address
	for rows.Next() {
		var a model.Address
		if err := scanAddress(rows, &a); err != nil {
			return nil, fmt.Errorf("scan address: %w", err)
		}
		addresses = append(addresses, a)
	}
	return addresses, rows.Err()
}

func (r *pgAddressRepo) GetByID(ctx context.Context, userID, id uuid.UUID) (*model.Address, error) {
	a := &model.Address{}
	err := scanAddress(r.pool.QueryRow(ctx,
		`SELECT `+addressColumns+` FROM addresses WHERE id = $1 AND user_id = $2`, id, userID,
	), a)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get address: %w", err)
	}
	return a, nil
}

func (r *pgAddressRepo) Create(ctx context.Context, address *model.Address) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if address.IsDefault {
		_, err = tx.Exec(ctx,
			`UPDATE addresses SET is_default = FALSE, updated_at = NOW() WHERE user_id = $1 AND type = $2 AND is_default`,
			address.UserID, address.Type,
		)
		if err != nil {
			return fmt.Errorf("clear default addresses: %w", err)
		}
	}

	address.ID = uuid.New()
	err = tx.QueryRow(ctx,
		`INSERT INTO addresses (id, user_id, type, first_name, last_name, phone, line1, line2, city, state, postal_code, country, is_default, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW(), NOW())
		 RETURNING created_at, updated_at`,
		address.ID, address.UserID, address.Type, address.FirstName, address.LastName, address.Phone,
		address.Line1, address.Line2, address.City, address.State, address.PostalCode, address.Country,
		address.IsDefault,
	).Scan(&address.CreatedAt, &address.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create address: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *pgAddressRepo) Update(ctx context.Context, address *model.Address) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if address.IsDefault {
		_, err = tx.Exec(ctx,
			`UPDATE addresses SET is_default = FALSE, updated_at = NOW()
			 WHERE user_id = $1 AND type = $2 AND is_default AND id <> $3`,
			address.UserID, address.Type, address.ID,
		)
		if err != nil {
			return fmt.Errorf("clear default addresses: %w", err)
		}
	}

	err = tx.QueryRow(ctx,
		`UPDATE addresses SET type=$3, first_name=$4, last_name=$5, phone=$6, line1=$7, line2=$8,
		        city=$9, state=$10, postal_code=$11, country=$12, is_default=$13, updated_at=NOW()
		 WHERE id = $1 AND user_id = $2 RETURNING updated_at`,
		address.ID, address.UserID, address.Type, address.FirstName, address.LastName, address.Phone,
		address.Line1, address.Line2, address.City, address.State, address.PostalCode, address.Country,
		address.IsDefault,
	).Scan(&address.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return pgx.ErrNoRows
		}
		return fmt.Errorf("update address: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *pgAddressRepo) Delete(ctx context.Context, userID, id uuid.UUID) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM addresses WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete address: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
