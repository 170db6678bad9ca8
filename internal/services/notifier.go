package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"visitorpass/internal/domain"
	"visitorpass/internal/metrics"
)

// Lifecycle event kinds. Each is published on "visitorpass.<kind>".
const (
	kindVisitorCreated = "visitor.created"
	kindVisitorStatus  = "visitor.status_changed"
	kindVisitorDeleted = "visitor.deleted"
	kindPassIssued     = "pass.issued"
	kindPassRedeemed   = "pass.redeemed"
	kindPassExpired    = "pass.expired"
	kindPassDeleted    = "pass.deleted"

	subjectPrefix   = "visitorpass."
	deliveryTimeout = 10 * time.Second
)

// Notifier records notifications inside a transaction and delivers them once it commits.
type Notifier struct {
	publisher domain.EventPublisher
	email     domain.EmailService
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewNotifier returns a Notifier. publisher and email may be nil to disable that channel.
func NewNotifier(publisher domain.EventPublisher, email domain.EmailService, m *metrics.Metrics, logger *slog.Logger) *Notifier {
	return &Notifier{publisher: publisher, email: email, metrics: m, logger: logger}
}

// outbox holds what one unit of work recorded. Transactions may be retried, so callers
// reset it at the top of every attempt.
type outbox struct {
	records []outboxRecord
}

type outboxRecord struct {
	kind         string
	notification *domain.Notification
	recipient    *domain.User
}

func (o *outbox) reset() { o.records = o.records[:0] }

// Record writes a notification for recipient through tx and queues it for delivery.
func (n *Notifier) Record(ctx context.Context, tx domain.Repositories, ob *outbox, kind string,
	recipient *domain.User, visitorID *string, content string, at time.Time,
) error {
	note := domain.NewNotification(recipient.ID, visitorID, content, at)
	if err := tx.Notifications().Create(ctx, note); err != nil {
		return fmt.Errorf("record %s notification: %w", kind, err)
	}
	ob.records = append(ob.records, outboxRecord{kind: kind, notification: note, recipient: recipient})
	return nil
}

// Flush delivers every queued notification. Failures are logged and counted, never returned.
func (n *Notifier) Flush(ctx context.Context, ob *outbox) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), deliveryTimeout)
	defer cancel()

	for _, r := range ob.records {
		n.metrics.Transition(r.kind)
		note := r.notification

		if n.publisher != nil {
			ev := domain.LifecycleEvent{
				Kind:           r.kind,
				NotificationID: note.ID,
				RecipientID:    note.RecipientID,
				Content:        note.Content,
				OccurredAt:     note.CreatedAt,
			}
			if note.VisitorID != nil {
				ev.VisitorID = *note.VisitorID
			}
			err := n.publisher.Publish(ctx, subjectPrefix+r.kind, ev)
			n.metrics.Delivery("event", err)
			if err != nil {
				n.logger.WarnContext(ctx, "publish lifecycle event failed", "kind", r.kind, "notification_id", note.ID, "error", err)
			}
		}

		if n.email != nil && r.recipient.Email != "" {
			err := n.email.SendHostNotification(ctx, &domain.HostNotificationEmailData{
				Email:   r.recipient.Email,
				Name:    r.recipient.Name,
				Content: note.Content,
			})
			n.metrics.Delivery("email", err)
			if err != nil {
				n.logger.WarnContext(ctx, "notification email failed", "kind", r.kind, "recipient_id", note.RecipientID, "error", err)
			}
		}
	}
	ob.reset()
}
