package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"visitorpass/internal/domain"
	"visitorpass/internal/metrics"
)

const qrContentType = "image/png"

// PassIssuer mints passes. Visitor creation and explicit issuance both go through it so the
// outstanding-pass rule lives in one place.
type PassIssuer struct {
	credentials   domain.CredentialGenerator
	artifacts     domain.ArtifactStore
	email         domain.EmailService
	notifier      *Notifier
	redeemBaseURL string
	metrics       *metrics.Metrics
	logger        *slog.Logger
}

// NewPassIssuer returns a PassIssuer. redeemBaseURL is the public origin guards scan against.
func NewPassIssuer(credentials domain.CredentialGenerator, artifacts domain.ArtifactStore, email domain.EmailService,
	notifier *Notifier, redeemBaseURL string, m *metrics.Metrics, logger *slog.Logger,
) *PassIssuer {
	return &PassIssuer{
		credentials:   credentials,
		artifacts:     artifacts,
		email:         email,
		notifier:      notifier,
		redeemBaseURL: strings.TrimRight(redeemBaseURL, "/"),
		metrics:       m,
		logger:        logger,
	}
}

// issue inserts a pass for v and records the host notification. It must run inside tx.
func (i *PassIssuer) issue(ctx context.Context, tx domain.Repositories, ob *outbox,
	v *domain.Visitor, host *domain.User, expiresAt, now time.Time,
) (*domain.Pass, error) {
	existing, err := tx.Passes().FindOutstanding(ctx, v.ID, now)
	switch {
	case err == nil:
		return nil, fmt.Errorf("%w: visitor %s already has outstanding pass %s", domain.ErrConflict, v.ID, existing.ID)
	case !errors.Is(err, domain.ErrNotFound):
		return nil, fmt.Errorf("check outstanding pass: %w", err)
	}
	if !expiresAt.After(now) {
		return nil, domain.NewValidationError("expiry_time", "expiry time must be in the future")
	}

	token, err := i.credentials.GenerateToken()
	if err != nil {
		return nil, fmt.Errorf("generate pass token: %w", err)
	}
	p := domain.NewPass(v.ID, token, expiresAt, now)
	p.HostID = v.HostID
	p.VisitorName = v.Name
	if err := tx.Passes().Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create pass: %w", err)
	}

	content := fmt.Sprintf("New pass created for visitor %s. Valid until %s", v.Name, expiresAt.Format(time.RFC1123))
	if err := i.notifier.Record(ctx, tx, ob, kindPassIssued, host, &v.ID, content, now); err != nil {
		return nil, err
	}
	return p, nil
}

// RedeemURL is what the pass QR code encodes.
func (i *PassIssuer) RedeemURL(passID string) string {
	return i.redeemBaseURL + "/guard/scan/" + passID
}

func qrKey(passID string) string {
	return "qr-codes/pass-" + passID + ".png"
}

// publish renders and stores the QR image, persists its URL and mails the visitor.
// It runs after commit and only logs failures.
func (i *PassIssuer) publish(ctx context.Context, repos domain.Repositories, p *domain.Pass, v *domain.Visitor, host *domain.User) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), deliveryTimeout)
	defer cancel()

	redeemURL := i.RedeemURL(p.ID)
	url, err := i.storeQRCode(ctx, p.ID, redeemURL)
	i.metrics.Delivery("artifact", err)
	if err != nil {
		i.logger.WarnContext(ctx, "store pass QR code failed", "pass_id", p.ID, "error", err)
	} else if err := repos.Passes().SetQRCodeURL(ctx, p.ID, url); err != nil {
		i.logger.WarnContext(ctx, "persist pass QR code URL failed", "pass_id", p.ID, "error", err)
	} else {
		p.QRCodeURL = &url
	}

	if i.email == nil {
		return
	}
	data := &domain.PassIssuedEmailData{
		Email:       v.Email,
		VisitorName: v.Name,
		HostName:    host.Name,
		ExpiresAt:   p.ExpiresAt,
		RedeemURL:   redeemURL,
	}
	if p.QRCodeURL != nil {
		data.QRCodeURL = *p.QRCodeURL
	}
	err = i.email.SendPassIssued(ctx, data)
	i.metrics.Delivery("email", err)
	if err != nil {
		i.logger.WarnContext(ctx, "pass email failed", "pass_id", p.ID, "visitor_id", v.ID, "error", err)
	}
}

func (i *PassIssuer) storeQRCode(ctx context.Context, passID, redeemURL string) (string, error) {
	png, err := i.credentials.Encode(redeemURL)
	if err != nil {
		return "", err
	}
	return i.artifacts.Store(ctx, qrKey(passID), png, qrContentType)
}

// discard removes the QR artifact of a deleted pass, logging failures.
func (i *PassIssuer) discard(ctx context.Context, passID string) {
	if err := i.artifacts.Delete(ctx, qrKey(passID)); err != nil {
		i.logger.WarnContext(ctx, "delete pass QR code failed", "pass_id", passID, "error", err)
	}
}
