package domain

import (
	"context"
	"time"
)

// Mailer defines the contract for sending emails (infrastructure port).
type Mailer interface {
	Send(to, subject, html, text string) error
}

// EmailTemplateRenderer renders email content from a named template with the given data.
type EmailTemplateRenderer interface {
	Render(templateName string, data any) (subject, htmlBody, textBody string, err error)
}

// PassIssuedEmailData holds data for the email a visitor receives with their pass.
type PassIssuedEmailData struct {
	Email       string
	VisitorName string
	HostName    string
	ExpiresAt   time.Time
	QRCodeURL   string
	RedeemURL   string
}

// HostNotificationEmailData holds data for the copy of a notification mailed to its recipient.
type HostNotificationEmailData struct {
	Email   string
	Name    string
	Content string
}

// EmailService defines the contract for sending domain-level emails.
type EmailService interface {
	SendPassIssued(ctx context.Context, data *PassIssuedEmailData) error
	SendHostNotification(ctx context.Context, data *HostNotificationEmailData) error
}
