package db

import (
	"context"
	"time"

	"github.com/staynest/backend/internal/model"
)

// Every read filters on expires_at so that an expired hold is never
// visible, whether or not the sweeper has removed the row yet.

func (db *Postgres) EnsureCartSchema(ctx context.Context) error {
	queries := []string{
		`
		CREATE TABLE IF NOT EXISTS cart_items (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			property_id TEXT NOT NULL,
			check_in DATE NOT NULL,
			check_out DATE NOT NULL,
			guests INT NOT NULL,
			price_per_night NUMERIC(12,2) NOT NULL,
			nights INT NOT NULL,
			subtotal NUMERIC(12,2) NOT NULL,
			cleaning_fee NUMERIC(12,2) NOT NULL,
			service_fee NUMERIC(12,2) NOT NULL,
			taxes NUMERIC(12,2) NOT NULL,
			total_price NUMERIC(12,2) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			expires_at TIMESTAMPTZ NOT NULL
		)
		`,
		`CREATE INDEX IF NOT EXISTS cart_items_user_id_idx ON cart_items(user_id)`,
		`CREATE INDEX IF NOT EXISTS cart_items_expires_at_idx ON cart_items(expires_at)`,
	}

	for _, query := range queries {
		if _, err := db.Pool.Exec(ctx, query); err != nil {
			return err
		}
	}
	return nil
}

func (db *Postgres) InsertCartItem(ctx context.Context, item *model.CartItem) (*model.CartItem, error) {
	query := `
		INSERT INTO cart_items (
			user_id, property_id, check_in, check_out, guests,
			price_per_night, nights, subtotal, cleaning_fee, service_fee,
			taxes, total_price, created_at, expires_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at
	`
	err := db.Pool.QueryRow(ctx, query,
		item.UserID,
		item.PropertyID,
		item.CheckIn,
		item.CheckOut,
		item.Guests,
		item.PricePerNight,
		item.Nights,
		item.Subtotal,
		item.CleaningFee,
		item.ServiceFee,
		item.Taxes,
		item.TotalPrice,
		item.CreatedAt,
		item.ExpiresAt,
	).Scan(&item.ID, &item.CreatedAt)
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (db *Postgres) GetCartItem(ctx context.Context, userID, itemID int64, now time.Time) (*model.CartItem, error) {
	query := cartItemSelect + `
		WHERE id = $1 AND user_id = $2 AND expires_at > $3
	`
	row := db.Pool.QueryRow(ctx, query, itemID, userID, now)
	return scanCartItem(row)
}

func (db *Postgres) ListCartItems(ctx context.Context, userID int64, now time.Time) ([]model.CartItem, error) {
	query := cartItemSelect + `
		WHERE user_id = $1 AND expires_at > $2
		ORDER BY created_at ASC
	`
	rows, err := db.Pool.Query(ctx, query, userID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []model.CartItem
	for rows.Next() {
		item, err := scanCartItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	if items == nil {
		items = []model.CartItem{}
	}
	return items, rows.Err()
}

func (db *Postgres) CountCartItems(ctx context.Context, userID int64, now time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM cart_items
		WHERE user_id = $1 AND expires_at > $2
	`
	var count int
	if err := db.Pool.QueryRow(ctx, query, userID, now).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// HasOverlappingHold reports whether the user already holds an unexpired
// item for the same property with an intersecting date range.
func (db *Postgres) HasOverlappingHold(ctx context.Context, userID int64, propertyID string, checkIn, checkOut time.Time, excludeID int64, now time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM cart_items
			WHERE user_id = $1 AND property_id = $2
			  AND id <> $3
			  AND expires_at > $4
			  AND check_in < $6 AND check_out > $5
		)
	`
	var exists bool
	err := db.Pool.QueryRow(ctx, query, userID, propertyID, excludeID, now, checkIn, checkOut).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// UpdateCartItem rewrites all derived price fields from the item as
// recomputed by the service; nothing is patched incrementally.
func (db *Postgres) UpdateCartItem(ctx context.Context, item *model.CartItem) error {
	query := `
		UPDATE cart_items
		SET check_in = $3, check_out = $4, guests = $5,
		    price_per_night = $6, nights = $7, subtotal = $8,
		    cleaning_fee = $9, service_fee = $10, taxes = $11, total_price = $12
		WHERE id = $1 AND user_id = $2
	`
	_, err := db.Pool.Exec(ctx, query,
		item.ID,
		item.UserID,
		item.CheckIn,
		item.CheckOut,
		item.Guests,
		item.PricePerNight,
		item.Nights,
		item.Subtotal,
		item.CleaningFee,
		item.ServiceFee,
		item.Taxes,
		item.TotalPrice,
	)
	return err
}

func (db *Postgres) DeleteCartItem(ctx context.Context, userID, itemID int64) (bool, error) {
	query := `DELETE FROM cart_items WHERE id = $1 AND user_id = $2`
	tag, err := db.Pool.Exec(ctx, query, itemID, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (db *Postgres) ClearCart(ctx context.Context, userID int64) (int64, error) {
	query := `DELETE FROM cart_items WHERE user_id = $1`
	tag, err := db.Pool.Exec(ctx, query, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (db *Postgres) DeleteExpiredCartItems(ctx context.Context, now time.Time) (int64, error) {
	query := `DELETE FROM cart_items WHERE expires_at <= $1`
	tag, err := db.Pool.Exec(ctx, query, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const cartItemSelect = `
	SELECT id, user_id, property_id, check_in, check_out, guests,
	       price_per_night, nights, subtotal, cleaning_fee, service_fee,
	       taxes, total_price, created_at, expires_at
	FROM cart_items
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCartItem(row rowScanner) (*model.CartItem, error) {
	var item model.CartItem
	err := row.Scan(
		&item.ID,
		&item.UserID,
		&item.PropertyID,
		&item.CheckIn,
		&item.CheckOut,
		&item.Guests,
		&item.PricePerNight,
		&item.Nights,
		&item.Subtotal,
		&item.CleaningFee,
		&item.ServiceFee,
		&item.Taxes,
		&item.TotalPrice,
		&item.CreatedAt,
		&item.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	return &item, nil
}
