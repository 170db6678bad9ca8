package services

import (
	"context"
	"fmt"
	"time"

	"visitorpass/internal/domain"
)

type notificationService struct {
	repo           domain.NotificationRepository
	contextTimeout time.Duration
	now            func() time.Time
}

// NewNotificationService returns the read side of the notification inbox.
func NewNotificationService(repo domain.NotificationRepository, timeout time.Duration) domain.NotificationService {
	return &notificationService{repo: repo, contextTimeout: timeout, now: time.Now}
}

func (s *notificationService) ListMine(ctx context.Context, actor domain.Actor, unreadOnly bool) ([]*domain.Notification, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	notes, err := s.repo.ListByRecipient(ctx, actor.ID, unreadOnly)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return notes, nil
}

// MarkRead is idempotent; a notification addressed to someone else reads as not found.
func (s *notificationService) MarkRead(ctx context.Context, actor domain.Actor, id string) (*domain.Notification, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	n, err := s.repo.MarkRead(ctx, id, actor.ID, s.now())
	if err != nil {
		return nil, fmt.Errorf("mark notification %s read: %w", id, err)
	}
	return n, nil
}
