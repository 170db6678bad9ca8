package services

import (
	"context"
	"fmt"
	"log/slog"

	"visitorpass/internal/domain"
)

type emailService struct {
	mailer   domain.Mailer
	renderer domain.EmailTemplateRenderer
	logger   *slog.Logger
}

// NewEmailService returns an EmailService that uses the given Mailer and template renderer.
func NewEmailService(mailer domain.Mailer, renderer domain.EmailTemplateRenderer, logger *slog.Logger) domain.EmailService {
	return &emailService{mailer: mailer, renderer: renderer, logger: logger}
}

// SendPassIssued mails a visitor their pass using the "pass_issued" template.
func (s *emailService) SendPassIssued(ctx context.Context, data *domain.PassIssuedEmailData) error {
	if data == nil {
		return fmt.Errorf("pass issued email data is nil")
	}
	if err := s.send(data.Email, "pass_issued", data); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "pass email sent", "to", data.Email)
	return nil
}

// SendHostNotification mails a copy of a notification using the "host_notification" template.
func (s *emailService) SendHostNotification(ctx context.Context, data *domain.HostNotificationEmailData) error {
	if data == nil {
		return fmt.Errorf("host notification email data is nil")
	}
	if err := s.send(data.Email, "host_notification", data); err != nil {
		return err
	}
	s.logger.DebugContext(ctx, "notification email sent", "to", data.Email)
	return nil
}

func (s *emailService) send(to, template string, data any) error {
	subject, htmlBody, textBody, err := s.renderer.Render(template, data)
	if err != nil {
		return fmt.Errorf("failed to render %s template: %w", template, err)
	}
	if err := s.mailer.Send(to, subject, htmlBody, textBody); err != nil {
		return fmt.Errorf("failed to send %s email: %w", template, err)
	}
	return nil
}
