package domain

import (
	"context"
	"time"
)

// VisitorStatus is the lifecycle state of a visit request.
type VisitorStatus string

const (
	VisitorPending  VisitorStatus = "PENDING"
	VisitorApproved VisitorStatus = "APPROVED"
	VisitorRejected VisitorStatus = "REJECTED"
	VisitorExpired  VisitorStatus = "EXPIRED"
)

// visitorTransitions is the complete transition table. Statuses absent as keys are terminal.
var visitorTransitions = map[VisitorStatus][]VisitorStatus{
	VisitorPending:  {VisitorApproved, VisitorRejected},
	VisitorApproved: {VisitorExpired},
}

// ParseVisitorStatus validates a raw status string.
func ParseVisitorStatus(s string) (VisitorStatus, error) {
	switch st := VisitorStatus(s); st {
	case VisitorPending, VisitorApproved, VisitorRejected, VisitorExpired:
		return st, nil
	}
	return "", NewValidationError("status", "status must be one of PENDING, APPROVED, REJECTED, EXPIRED")
}

// CanTransitionTo reports whether the table allows moving from s to next.
func (s VisitorStatus) CanTransitionTo(next VisitorStatus) bool {
	for _, allowed := range visitorTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further change is allowed from s, manual or at the gate.
func (s VisitorStatus) IsTerminal() bool {
	return len(visitorTransitions[s]) == 0
}

// IsActive reports whether the status counts as an active visit.
func (s VisitorStatus) IsActive() bool {
	return s == VisitorPending || s == VisitorApproved
}

// Visitor is a single visit request.
// swagger:model Visitor
type Visitor struct {
	ID               string        `json:"id"`
	Name             string        `json:"name"`
	Email            string        `json:"email"`
	Phone            string        `json:"phone_number"`
	Purpose          string        `json:"purpose_of_visit"`
	HostID           string        `json:"host_id"`
	Status           VisitorStatus `json:"status"`
	EntryTime        *time.Time    `json:"entry_time,omitempty"`
	ExitTime         *time.Time    `json:"exit_time,omitempty"`
	CreatedByGuardID *string       `json:"created_by_guard_id,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// NewVisitor returns a PENDING Visitor. ID is typically set by the repository on create.
func NewVisitor(name, email, phone, purpose, hostID string, createdAt time.Time) *Visitor {
	return &Visitor{
		Name:      name,
		Email:     email,
		Phone:     phone,
		Purpose:   purpose,
		HostID:    hostID,
		Status:    VisitorPending,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

// Transition moves the visitor to next, stamping entry or exit time.
// It returns a *TransitionError when the table does not allow the change.
func (v *Visitor) Transition(next VisitorStatus, at time.Time) error {
	if !v.Status.CanTransitionTo(next) {
		return &TransitionError{From: v.Status, To: next}
	}
	v.Status = next
	switch next {
	case VisitorApproved:
		v.EntryTime = &at
	case VisitorExpired:
		v.ExitTime = &at
	}
	v.UpdatedAt = at
	return nil
}

// Admit marks the visitor APPROVED after a valid gate scan. Scans are driven by the pass,
// so the manual status table does not apply.
func (v *Visitor) Admit(at time.Time) {
	v.Status = VisitorApproved
	v.EntryTime = &at
	v.UpdatedAt = at
}

// ExpireAtGate marks the visitor EXPIRED after a scan outside the pass validity window.
func (v *Visitor) ExpireAtGate(at time.Time) {
	v.Status = VisitorExpired
	v.ExitTime = &at
	v.UpdatedAt = at
}

// VisitorWithPasses bundles a visitor with every pass issued for it.
// swagger:model VisitorWithPasses
type VisitorWithPasses struct {
	Visitor *Visitor `json:"visitor"`
	Passes  []*Pass  `json:"passes"`
}

// CreateVisitorInput carries the fields needed to register a visit.
type CreateVisitorInput struct {
	Name       string
	Email      string
	Phone      string
	Purpose    string
	HostID     string
	PassExpiry *time.Time
}

// VisitorFilter narrows visitor queries. Zero values mean "no constraint".
type VisitorFilter struct {
	HostID           string
	Status           VisitorStatus
	CreatedByGuardID string
	CreatedFrom      *time.Time
	CreatedBefore    *time.Time // exclusive
	CreatedThrough   *time.Time // inclusive
	EntryFrom        *time.Time
	EntryTo          *time.Time
	ExitFrom         *time.Time
	ExitTo           *time.Time
	OrderByEntry     bool
	Limit            int
	Offset           int
}

// VisitorListParams is the caller-facing list request.
type VisitorListParams struct {
	Status  VisitorStatus
	From    *time.Time
	To      *time.Time
	ShowAll bool
	HostID  string
	Page    PaginationParams
}

// DailyStats counts today's visitor activity for the guard desk.
// swagger:model DailyStats
type DailyStats struct {
	Date     string `json:"date"`
	Approved int    `json:"approved_visitors"`
	Pending  int    `json:"pending_visitors"`
	Expired  int    `json:"expired_visitors"`
	Rejected int    `json:"rejected_visitors"`
	Total    int    `json:"total_visitors"`
}

// VisitorRepository defines storage operations for visitors.
type VisitorRepository interface {
	Create(ctx context.Context, v *Visitor) error
	GetByID(ctx context.Context, id string) (*Visitor, error)
	// GetByIDForUpdate reads the visitor and locks its row until the transaction ends.
	GetByIDForUpdate(ctx context.Context, id string) (*Visitor, error)
	// FindActiveByContact returns a PENDING or APPROVED visitor matching email or phone, or ErrNotFound.
	FindActiveByContact(ctx context.Context, email, phone string) (*Visitor, error)
	// UpdateStatus persists v's status and timestamps if the stored status still equals from.
	UpdateStatus(ctx context.Context, v *Visitor, from VisitorStatus) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, f VisitorFilter) ([]*Visitor, error)
	CountByStatus(ctx context.Context, f VisitorFilter) (map[VisitorStatus]int, error)
}

// VisitorService is the visitor lifecycle manager.
type VisitorService interface {
	Create(ctx context.Context, actor Actor, in CreateVisitorInput) (*Visitor, *Pass, error)
	GetByID(ctx context.Context, actor Actor, id string) (*VisitorWithPasses, error)
	UpdateStatus(ctx context.Context, actor Actor, id string, status VisitorStatus) (*Visitor, error)
	Delete(ctx context.Context, actor Actor, id string) error
	List(ctx context.Context, actor Actor, params VisitorListParams) ([]*Visitor, error)

	// Guard desk queries.
	ListPendingCreatedBy(ctx context.Context, actor Actor) ([]*VisitorWithPasses, error)
	ListTodaysPending(ctx context.Context, actor Actor) ([]*Visitor, error)
	ListTodaysApproved(ctx context.Context, actor Actor) ([]*Visitor, error)
	ListApprovedByHost(ctx context.Context, actor Actor, hostID string) ([]*Visitor, error)
	DailyStats(ctx context.Context, actor Actor) (*DailyStats, error)
}
