// AngelaMos | 2026
// inbox.go

package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/carterperez-dev/perumahan-api/internal/core"
)

type Notification struct {
	ID        string          `db:"id"         json:"id"`
	UserID    string          `db:"user_id"    json:"user_id"`
	Type      string          `db:"type"       json:"type"`
	Title     string          `db:"title"      json:"title"`
	Message   string          `db:"message"    json:"message"`
	Data      json.RawMessage `db:"data"       json:"data"`
	IsRead    bool            `db:"is_read"    json:"is_read"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

type Inbox struct {
	db core.DBTX
}

func NewInbox(db core.DBTX) *Inbox {
	return &Inbox{db: db}
}

func (i *Inbox) List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]Notification, error) {
	query := `
		SELECT id, user_id, type, title, message, COALESCE(data, '{}'::jsonb) AS data, is_read, created_at
		FROM notifications
		WHERE user_id = $1 AND ($2 = false OR is_read = false)
		ORDER BY created_at DESC
		LIMIT $3`

	var out []Notification
	if err := i.db.SelectContext(ctx, &out, query, userID, unreadOnly, limit); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return out, nil
}

func (i *Inbox) UnreadCount(ctx context.Context, userID string) (int, error) {
	var n int
	if err := i.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = false`, userID); err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return n, nil
}

// MarkRead only touches rows owned by userID.
func (i *Inbox) MarkRead(ctx context.Context, userID, id string) error {
	result, err := i.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = true WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("mark notification read: %w", core.ErrNotFound)
	}
	return nil
}

func (i *Inbox) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	result, err := i.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = true WHERE user_id = $1 AND is_read = false`, userID)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	return result.RowsAffected()
}
