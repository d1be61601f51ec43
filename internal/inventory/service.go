// AngelaMos | 2026
// service.go

package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/perumahan-api/internal/core"
	"github.com/carterperez-dev/perumahan-api/internal/notification"
)

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

// Apply computes the stock level after a movement.
func Apply(current int, m Movement) (int, error) {
	var next int
	switch m.Type {
	case MovementIn:
		next = current + m.Quantity
	case MovementOut:
		next = current - m.Quantity
	case MovementAdjustment:
		next = m.Quantity
	default:
		return 0, core.ValidationError("Type harus berupa in, out atau adjustment")
	}

	if next < 0 {
		return 0, core.ValidationError("Insufficient inventory quantity")
	}
	return next, nil
}

// RecordMovement books one stock movement with the item row locked, so
// concurrent movements on the same item serialize.
func (s *Service) RecordMovement(
	ctx context.Context,
	itemID, actorID string,
	m Movement,
) (*MovementResult, error) {
	if m.Type != MovementAdjustment && m.Quantity <= 0 {
		return nil, core.ValidationError("Quantity harus lebih dari 0")
	}

	date := time.Now().UTC().Truncate(24 * time.Hour)
	if m.TransactionDate != nil {
		date = *m.TransactionDate
	}

	var (
		out  MovementResult
		item *Item
	)
	ctx, span := core.StartSpan(ctx, "inventory.record_movement",
		attribute.String("inventory.id", itemID),
		attribute.String("movement.type", string(m.Type)),
	)
	defer span.End()

	err := core.InTx(ctx, s.db, func(tx *sqlx.Tx) error {
		repo := NewRepository(tx)

		locked, err := repo.LockItem(ctx, itemID)
		if err != nil {
			return err
		}

		next, err := Apply(locked.Quantity, m)
		if err != nil {
			return err
		}

		txn := &Transaction{
			InventoryID:     locked.ID,
			Type:            m.Type,
			Quantity:        m.Quantity,
			Description:     m.Description,
			TransactionDate: date,
		}
		if actorID != "" {
			txn.CreatedBy = &actorID
		}
		if err := repo.InsertTransaction(ctx, txn); err != nil {
			return err
		}
		if err := repo.SetQuantity(ctx, locked.ID, next); err != nil {
			return err
		}

		locked.Quantity = next
		item = locked
		out = MovementResult{Transaction: txn, NewQuantity: next}
		return nil
	})
	if err != nil {
		switch {
		case core.IsAppError(err):
			return nil, err
		case errors.Is(err, core.ErrNotFound):
			return nil, core.NotFoundError("Inventory item")
		}
		return nil, core.InternalError("Failed to record inventory transaction", err)
	}

	core.AddSpanEvent(ctx, "inventory.movement",
		attribute.String("inventory.id", item.ID),
		attribute.String("movement.type", string(m.Type)),
		attribute.Int("inventory.quantity", item.Quantity),
	)
	s.logger.InfoContext(ctx, "inventory movement recorded",
		"inventory_id", item.ID,
		"type", m.Type,
		"quantity", m.Quantity,
		"new_quantity", item.Quantity,
	)

	if m.Type != MovementIn && item.LowStock() {
		unit := ""
		if item.Unit != nil {
			unit = " " + *item.Unit
		}
		s.notifier.Dispatch(ctx, "", notification.Event{
			Type:    notification.TypeLowStock,
			Title:   "Stok Rendah",
			Message: fmt.Sprintf("Stok %q tinggal %d%s", item.Name, item.Quantity, unit),
			Data: map[string]any{
				"inventory_id": item.ID,
				"name":         item.Name,
				"quantity":     item.Quantity,
				"min_stock":    item.MinStock,
			},
		})
	}

	return &out, nil
}
