package order

import (
	"context"
	"errors"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound = errors.New("order not found")
)

type Repository interface {
	Create(ctx context.Context, o *Order, items []Item) error
	GetByID(ctx context.Context, id string) (*Order, []Item, error)
	MarkPaid(ctx context.Context, id string) error
	UpdateStatus(ctx context.Context, id, status string) error
}

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(db *pgxpool.Pool) *PGRepo { return &PGRepo{db: db} }

func (r *PGRepo) Create(ctx context.Context, o *Order, items []Item) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	sql, args, err := psql.Insert("orders").
		Columns("id", "address_id", "payment_method", "subtotal", "delivery_fee",
			"total", "payment_status", "deep_link", "created_at", "updated_at").
		Values(o.ID, o.AddressID, o.PaymentMethod, o.Subtotal, o.DeliveryFee,
			o.Total, o.PaymentStatus, o.DeepLink, squirrel.Expr("NOW()"), squirrel.Expr("NOW()")).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, sql, args...); err != nil {
		return err
	}

	for _, it := range items {
		sql, args, err := psql.Insert("order_items").
			Columns("id", "order_id", "medicine_id", "pharmacy_id", "quantity", "price").
			Values(it.ID, o.ID, it.MedicineID, it.PharmacyID, it.Quantity, it.Price).
			ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, sql, args...); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *PGRepo) GetByID(ctx context.Context, id string) (*Order, []Item, error) {
	sql, args, err := psql.Select("id", "address_id", "payment_method", "subtotal",
		"delivery_fee", "total", "payment_status", "deep_link", "created_at", "updated_at").
		From("orders").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, nil, err
	}

	var o Order
	if err := r.db.QueryRow(ctx, sql, args...).Scan(
		&o.ID, &o.AddressID, &o.PaymentMethod, &o.Subtotal, &o.DeliveryFee,
		&o.Total, &o.PaymentStatus, &o.DeepLink, &o.CreatedAt, &o.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}

	sql, args, err = psql.Select("id", "order_id", "medicine_id", "pharmacy_id", "quantity", "price").
		From("order_items").Where(squirrel.Eq{"order_id": id}).ToSql()
	if err != nil {
		return nil, nil, err
	}
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.OrderID, &it.MedicineID, &it.PharmacyID, &it.Quantity, &it.Price); err != nil {
			return nil, nil, err
		}
		items = append(items, it)
	}
	return &o, items, rows.Err()
}

func (r *PGRepo) MarkPaid(ctx context.Context, id string) error {
	return r.UpdateStatus(ctx, id, StatusPaid)
}

func (r *PGRepo) UpdateStatus(ctx context.Context, id, status string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	sql, args, err := psql.Update("orders").
		Set("payment_status", status).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
