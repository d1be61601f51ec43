// AngelaMos | 2026
// repository.go

package sales

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/carterperez-dev/perumahan-api/internal/core"
)

// Repository runs inside the caller's transaction; every method expects
// a transaction handle as its DBTX.
type Repository interface {
	LockSale(ctx context.Context, id string) (*Sale, error)
	MarkCompleted(ctx context.Context, id string) error
	MarkPropertySold(ctx context.Context, propertyID string) error
	InsertIncome(ctx context.Context, t *FinancialTransaction) error
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

// LockSale reads the sale with a row lock held until the transaction ends.
func (r *repository) LockSale(ctx context.Context, id string) (*Sale, error) {
	query := `
		SELECT id, property_id, buyer_name, sale_price, sale_date, status, created_by, updated_at
		FROM property_sales
		WHERE id = $1
		FOR UPDATE`

	var s Sale
	if err := r.db.GetContext(ctx, &s, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("lock sale: %w", core.ErrNotFound)
		}
		return nil, fmt.Errorf("lock sale: %w", err)
	}
	return &s, nil
}

func (r *repository) MarkCompleted(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE property_sales SET status = $1, updated_at = NOW() WHERE id = $2`,
		StatusCompleted, id)
	if err != nil {
		return fmt.Errorf("mark sale completed: %w", err)
	}
	return nil
}

func (r *repository) MarkPropertySold(ctx context.Context, propertyID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE properties SET status = 'sold', updated_at = NOW() WHERE id = $1`,
		propertyID)
	if err != nil {
		return fmt.Errorf("mark property sold: %w", err)
	}
	return nil
}

// InsertIncome records the sale proceeds. sale_id is unique, so a second
// insert for the same sale fails with ErrDuplicateKey.
func (r *repository) InsertIncome(ctx context.Context, t *FinancialTransaction) error {
	query := `
		INSERT INTO financial_transactions
			(type, category, amount, description, transaction_date, property_id, sale_id, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`

	err := r.db.QueryRowxContext(ctx, query,
		t.Type,
		t.Category,
		t.Amount,
		t.Description,
		t.TransactionDate,
		t.PropertyID,
		t.SaleID,
		t.CreatedBy,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		if core.IsDuplicateKeyError(err) {
			return fmt.Errorf("insert income: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("insert income: %w", err)
	}
	return nil
}
