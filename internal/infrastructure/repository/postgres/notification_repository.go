package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/Skrufy/ConstructionManager-sub015/internal/core/domain"
)

type NotificationRepository struct {
	db *sql.DB
}

func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	dataJSON, err := json.Marshal(n.Data)
	if err != nil {
		return fmt.Errorf("marshal notification data: %w", err)
	}

	// Events can be redelivered by the queue; the id makes persistence idempotent.
	_, err = r.db.ExecContext(ctx, `
INSERT INTO notifications (
	id, user_id, type, title, message, severity, category, action_url, data, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (id) DO NOTHING
`,
		n.ID, n.UserID, n.Type, n.Title, n.Message, string(n.Severity),
		n.Category, n.ActionURL, dataJSON, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (r *NotificationRepository) ListByUser(ctx context.Context, userID string, limit int) ([]domain.Notification, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, user_id, type, title, message, severity, COALESCE(category,''), COALESCE(action_url,''), data, created_at
FROM notifications
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2
`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var items []domain.Notification
	for rows.Next() {
		var n domain.Notification
		var severity string
		var dataRaw []byte
		if err := rows.Scan(
			&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &severity,
			&n.Category, &n.ActionURL, &dataRaw, &n.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan notification row: %w", err)
		}
		if err := json.Unmarshal(dataRaw, &n.Data); err != nil {
			return nil, fmt.Errorf("unmarshal notification data: %w", err)
		}
		n.Severity = domain.NotificationSeverity(severity)
		items = append(items, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return items, nil
}
