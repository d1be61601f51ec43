// AngelaMos | 2026
// notifier.go

// Package notification fans business events out to the admin inbox.
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/perumahan-api/internal/core"
)

const dispatchTimeout = 10 * time.Second

const (
	TypeSaleComplete = "sale_complete"
	TypeLowStock     = "low_stock"
)

var dispatched = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "perumahan_notifications_dispatched_total",
		Help: "Notification fan-outs by event type and outcome",
	},
	[]string{"type", "outcome"},
)

// Event is one business event addressed to every active admin.
type Event struct {
	Type    string
	Title   string
	Message string
	Data    map[string]any
}

type Notifier struct {
	db     core.DBTX
	logger *slog.Logger
	wg     sync.WaitGroup
}

func NewNotifier(db core.DBTX, logger *slog.Logger) *Notifier {
	return &Notifier{db: db, logger: logger}
}

// Notify inserts one notification per active admin and superadmin,
// skipping the actor who caused the event.
func (n *Notifier) Notify(ctx context.Context, actorID string, ev Event) (count int64, err error) {
	ctx, span := core.StartSpan(ctx, "notification.notify", attribute.String("notification.type", ev.Type))
	defer func() { core.EndSpan(span, err) }()

	data, err := json.Marshal(ev.Data)
	if err != nil {
		return 0, fmt.Errorf("encode notification data: %w", err)
	}

	query := `
		INSERT INTO notifications (user_id, type, title, message, data)
		SELECT id, $1, $2, $3, $4
		FROM users
		WHERE role IN ('admin', 'superadmin')
			AND is_active = true
			AND ($5 = '' OR id::text <> $5)`

	result, err := n.db.ExecContext(ctx, query, ev.Type, ev.Title, ev.Message, data, actorID)
	if err != nil {
		return 0, fmt.Errorf("insert notifications: %w", err)
	}

	return result.RowsAffected()
}

// Dispatch runs Notify in the background. The caller's cancellation does
// not stop it and failures are only logged.
func (n *Notifier) Dispatch(ctx context.Context, actorID string, ev Event) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), dispatchTimeout)
		defer cancel()

		count, err := n.Notify(ctx, actorID, ev)
		if err != nil {
			dispatched.WithLabelValues(ev.Type, "error").Inc()
			n.logger.ErrorContext(ctx, "notification dispatch failed",
				"type", ev.Type,
				"actor_id", actorID,
				"error", err,
			)
			return
		}

		dispatched.WithLabelValues(ev.Type, "ok").Inc()
		n.logger.DebugContext(ctx, "notification dispatched",
			"type", ev.Type,
			"recipients", count,
		)
	}()
}

// Wait blocks until in-flight dispatches finish or ctx is done.
func (n *Notifier) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
