// AngelaMos | 2026
// service.go

package sales

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/perumahan-api/internal/core"
	"github.com/carterperez-dev/perumahan-api/internal/notification"
)

const incomeCategory = "penjualan"

type Dispatcher interface {
	Dispatch(ctx context.Context, actorID string, ev notification.Event)
}

type Service struct {
	db       core.TxBeginner
	notifier Dispatcher
	logger   *slog.Logger
}

func NewService(db core.TxBeginner, notifier Dispatcher, logger *slog.Logger) *Service {
	return &Service{db: db, notifier: notifier, logger: logger}
}

// Complete marks a pending sale completed, the property sold and books
// the income, all under a lock on the sale row. A concurrent second call
// waits for the lock and then sees the completed status.
func (s *Service) Complete(ctx context.Context, saleID, actorID string) (*Completion, error) {
	ctx, span := core.StartSpan(ctx, "sales.complete", attribute.String("sale.id", saleID))
	defer span.End()

	var out Completion

	err := core.InTx(ctx, s.db, func(tx *sqlx.Tx) error {
		repo := NewRepository(tx)

		sale, err := repo.LockSale(ctx, saleID)
		if err != nil {
			return err
		}

		switch sale.Status {
		case StatusCompleted:
			return core.ConflictError("Sale is already completed")
		case StatusCancelled:
			return core.ValidationError("Cancelled sale cannot be completed")
		}

		if err := repo.MarkCompleted(ctx, sale.ID); err != nil {
			return err
		}
		if err := repo.MarkPropertySold(ctx, sale.PropertyID); err != nil {
			return err
		}

		createdBy := sale.CreatedBy
		if actorID != "" {
			createdBy = &actorID
		}
		txn := &FinancialTransaction{
			Type:            "income",
			Category:        incomeCategory,
			Amount:          sale.SalePrice,
			Description:     "Penjualan properti: " + sale.BuyerName,
			TransactionDate: sale.SaleDate,
			PropertyID:      &sale.PropertyID,
			SaleID:          &sale.ID,
			CreatedBy:       createdBy,
		}
		if err := repo.InsertIncome(ctx, txn); err != nil {
			return err
		}

		sale.Status = StatusCompleted
		out = Completion{Sale: sale, Transaction: txn}
		return nil
	})
	if err != nil {
		return nil, completionError(err)
	}

	core.AddSpanEvent(ctx, "sale.completed",
		attribute.String("sale.id", out.Sale.ID),
		attribute.String("transaction.id", out.Transaction.ID),
	)
	s.logger.InfoContext(ctx, "sale completed",
		"sale_id", out.Sale.ID,
		"property_id", out.Sale.PropertyID,
		"transaction_id", out.Transaction.ID,
		"completed_by", actorID,
	)

	s.notifier.Dispatch(ctx, actorID, notification.Event{
		Type:    notification.TypeSaleComplete,
		Title:   "Penjualan Selesai",
		Message: `Penjualan kepada "` + out.Sale.BuyerName + `" telah selesai`,
		Data: map[string]any{
			"sale_id":    out.Sale.ID,
			"buyer_name": out.Sale.BuyerName,
			"sale_price": out.Sale.SalePrice,
		},
	})

	return &out, nil
}

func completionError(err error) error {
	switch {
	case core.IsAppError(err):
		return err
	case errors.Is(err, core.ErrNotFound):
		return core.NotFoundError("Sale")
	case errors.Is(err, core.ErrDuplicateKey):
		return core.ConflictError("Sale is already completed")
	}
	return core.InternalError("Failed to complete sale", err)
}
