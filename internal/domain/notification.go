package domain

import (
	"context"
	"time"
)

// Notification is a durable message to a user, written in the same transaction as the
// lifecycle transition that caused it.
// swagger:model Notification
type Notification struct {
	ID          string     `json:"id"`
	RecipientID string     `json:"recipient_id"`
	VisitorID   *string    `json:"visitor_id,omitempty"`
	Content     string     `json:"content"`
	CreatedAt   time.Time  `json:"created_at"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
}

// NewNotification returns an unread notification. ID is typically set by the repository on create.
func NewNotification(recipientID string, visitorID *string, content string, createdAt time.Time) *Notification {
	return &Notification{
		RecipientID: recipientID,
		VisitorID:   visitorID,
		Content:     content,
		CreatedAt:   createdAt,
	}
}

// NotificationRepository defines storage operations for notifications.
type NotificationRepository interface {
	Create(ctx context.Context, n *Notification) error
	ListByRecipient(ctx context.Context, recipientID string, unreadOnly bool) ([]*Notification, error)
	MarkRead(ctx context.Context, id, recipientID string, at time.Time) (*Notification, error)
}

// NotificationService exposes a user's own notifications.
type NotificationService interface {
	ListMine(ctx context.Context, actor Actor, unreadOnly bool) ([]*Notification, error)
	MarkRead(ctx context.Context, actor Actor, id string) (*Notification, error)
}

// LifecycleEvent is published to the event channel after a transition commits.
type LifecycleEvent struct {
	Kind           string    `json:"kind"`
	NotificationID string    `json:"notification_id"`
	RecipientID    string    `json:"recipient_id"`
	VisitorID      string    `json:"visitor_id,omitempty"`
	Content        string    `json:"content"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// EventPublisher pushes lifecycle events to an external channel.
type EventPublisher interface {
	Publish(ctx context.Context, subject string, payload any) error
}
