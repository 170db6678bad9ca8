package domain

import (
	"context"
	"time"
)

// Pass is a time-bound credential tied to exactly one visitor.
// Once ApprovedAt is set the pass is terminal.
// swagger:model Pass
type Pass struct {
	ID          string     `json:"id"`
	VisitorID   string     `json:"visitor_id"`
	Token       string     `json:"qr_code_data"`
	QRCodeURL   *string    `json:"qr_code_url,omitempty"`
	ExpiresAt   time.Time  `json:"expiry_time"`
	ApprovedAt  *time.Time `json:"approved_at,omitempty"`
	ApprovedBy  *string    `json:"approved_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	HostID      string     `json:"host_id"`
	VisitorName string     `json:"visitor_name"`
}

// NewPass returns an unprocessed pass. ID is typically set by the repository on create.
func NewPass(visitorID, token string, expiresAt, createdAt time.Time) *Pass {
	return &Pass{
		VisitorID: visitorID,
		Token:     token,
		ExpiresAt: expiresAt,
		CreatedAt: createdAt,
	}
}

// Processed reports whether the pass has been consumed by a scan.
func (p *Pass) Processed() bool { return p.ApprovedAt != nil }

// ExpiredAt reports whether the pass validity window has ended strictly before t.
func (p *Pass) ExpiredAt(t time.Time) bool { return t.After(p.ExpiresAt) }

// Outstanding reports whether the pass is still a live credential at t.
func (p *Pass) Outstanding(t time.Time) bool {
	return !p.Processed() && p.ExpiresAt.After(t)
}

// Redemption is the outcome of a successful scan.
// swagger:model Redemption
type Redemption struct {
	Pass    *Pass    `json:"pass"`
	Visitor *Visitor `json:"visitor"`
}

// PassVerification is the read-only answer to a QR lookup.
// swagger:model PassVerification
type PassVerification struct {
	Pass    *Pass    `json:"pass"`
	Visitor *Visitor `json:"visitor"`
	Valid   bool     `json:"valid"`
	Reason  string   `json:"reason,omitempty"`
}

// PassFilter narrows pass queries. Zero values mean "no constraint".
type PassFilter struct {
	HostID         string
	VisitorID      string
	ApprovedBy     string
	CreatedFrom    *time.Time
	CreatedBefore  *time.Time // exclusive
	CreatedThrough *time.Time // inclusive
}

// PassListParams is the caller-facing list request.
type PassListParams struct {
	VisitorID string
	From      *time.Time
	To        *time.Time
	// OwnOnly restricts an admin to passes of visitors they host.
	OwnOnly bool
}

// PassRepository defines storage operations for passes.
type PassRepository interface {
	Create(ctx context.Context, p *Pass) error
	GetByID(ctx context.Context, id string) (*Pass, error)
	// GetByIDForUpdate reads the pass and locks its row until the transaction ends.
	GetByIDForUpdate(ctx context.Context, id string) (*Pass, error)
	GetByToken(ctx context.Context, token string) (*Pass, error)
	// FindOutstanding returns an unexpired, unapproved pass for the visitor, or ErrNotFound.
	FindOutstanding(ctx context.Context, visitorID string, now time.Time) (*Pass, error)
	SetQRCodeURL(ctx context.Context, id, url string) error
	// MarkProcessed sets approved_at/approved_by only while approved_at is still null.
	// It returns ErrAlreadyProcessed when another writer got there first.
	MarkProcessed(ctx context.Context, id string, at time.Time, by string) error
	Delete(ctx context.Context, id string) error
	DeleteByVisitorID(ctx context.Context, visitorID string) (int64, error)
	List(ctx context.Context, f PassFilter) ([]*Pass, error)
}

// PassService is the pass lifecycle manager.
type PassService interface {
	Issue(ctx context.Context, actor Actor, visitorID string, expiresAt time.Time) (*Pass, error)
	Redeem(ctx context.Context, actor Actor, passID string) (*Redemption, error)
	Delete(ctx context.Context, actor Actor, passID string) error
	List(ctx context.Context, actor Actor, params PassListParams) ([]*Pass, error)
	GetByID(ctx context.Context, actor Actor, passID string) (*Pass, error)
	Verify(ctx context.Context, actor Actor, token string) (*PassVerification, error)
	ScanHistory(ctx context.Context, actor Actor) ([]*Pass, error)
}

// CredentialGenerator mints opaque pass tokens and their scannable encodings.
type CredentialGenerator interface {
	GenerateToken() (string, error)
	Encode(url string) ([]byte, error)
}

// ArtifactStore keeps binary artifacts (QR images) behind a public URL.
type ArtifactStore interface {
	Store(ctx context.Context, key string, payload []byte, contentType string) (url string, err error)
	Delete(ctx context.Context, key string) error
}
