package postgres

import (
	"context"
	"database/sql"
	"time"

	"visitorpass/internal/domain"
)

type notificationRepository struct {
	DB querier
}

// NewNotificationRepository returns a domain.NotificationRepository implemented with Postgres.
func NewNotificationRepository(db querier) domain.NotificationRepository {
	return &notificationRepository{DB: db}
}

const notificationColumns = `id, recipient_id, visitor_id, content, created_at, read_at`

func (r *notificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	query := `
		INSERT INTO notifications (recipient_id, visitor_id, content, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	err := r.DB.QueryRowContext(ctx, query, n.RecipientID, n.VisitorID, n.Content, n.CreatedAt).Scan(&n.ID)
	return mapError(err)
}

func (r *notificationRepository) ListByRecipient(ctx context.Context, recipientID string, unreadOnly bool) ([]*domain.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE recipient_id = $1`
	if unreadOnly {
		query += ` AND read_at IS NULL`
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.DB.QueryContext(ctx, query, recipientID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	out := make([]*domain.Notification, 0)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkRead stamps read_at once; marking an already-read notification keeps the first timestamp.
func (r *notificationRepository) MarkRead(ctx context.Context, id, recipientID string, at time.Time) (*domain.Notification, error) {
	query := `
		UPDATE notifications
		SET read_at = COALESCE(read_at, $1)
		WHERE id = $2 AND recipient_id = $3
		RETURNING ` + notificationColumns
	return scanNotification(r.DB.QueryRowContext(ctx, query, at, id, recipientID))
}

func scanNotification(row rowScanner) (*domain.Notification, error) {
	n := &domain.Notification{}
	var visitorID sql.NullString
	var readAt sql.NullTime
	if err := row.Scan(&n.ID, &n.RecipientID, &visitorID, &n.Content, &n.CreatedAt, &readAt); err != nil {
		return nil, mapError(err)
	}
	n.VisitorID = nullStringPtr(visitorID)
	n.ReadAt = nullTimePtr(readAt)
	return n, nil
}
