// AngelaMos | 2026
// repository.go

package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/carterperez-dev/perumahan-api/internal/core"
)

type Repository interface {
	LockItem(ctx context.Context, id string) (*Item, error)
	InsertTransaction(ctx context.Context, t *Transaction) error
	SetQuantity(ctx context.Context, id string, quantity int) error
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) LockItem(ctx context.Context, id string) (*Item, error) {
	query := `
		SELECT id, name, quantity, unit, min_stock
		FROM inventory
		WHERE id = $1
		FOR UPDATE`

	var it Item
	if err := r.db.GetContext(ctx, &it, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("lock item: %w", core.ErrNotFound)
		}
		return nil, fmt.Errorf("lock item: %w", err)
	}
	return &it, nil
}

func (r *repository) InsertTransaction(ctx context.Context, t *Transaction) error {
	query := `
		INSERT INTO inventory_transactions
			(inventory_id, type, quantity, description, transaction_date, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := r.db.QueryRowxContext(ctx, query,
		t.InventoryID,
		t.Type,
		t.Quantity,
		t.Description,
		t.TransactionDate,
		t.CreatedBy,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert inventory transaction: %w", err)
	}
	return nil
}

func (r *repository) SetQuantity(ctx context.Context, id string, quantity int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE inventory SET quantity = $1, updated_at = NOW() WHERE id = $2`,
		quantity, id)
	if err != nil {
		return fmt.Errorf("update inventory quantity: %w", err)
	}
	return nil
}
