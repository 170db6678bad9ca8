package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"visitorpass/internal/domain"
	"visitorpass/internal/policy"
)

type visitorService struct {
	store          domain.Store
	issuer         *PassIssuer
	notifier       *Notifier
	logger         *slog.Logger
	contextTimeout time.Duration
	now            func() time.Time
}

// NewVisitorService returns the visitor lifecycle manager.
func NewVisitorService(store domain.Store, issuer *PassIssuer, notifier *Notifier, logger *slog.Logger, timeout time.Duration) domain.VisitorService {
	return &visitorService{
		store:          store,
		issuer:         issuer,
		notifier:       notifier,
		logger:         logger,
		contextTimeout: timeout,
		now:            time.Now,
	}
}

func (s *visitorService) Create(ctx context.Context, actor domain.Actor, in domain.CreateVisitorInput) (*domain.Visitor, *domain.Pass, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Purpose = strings.TrimSpace(in.Purpose)
	in.HostID = strings.TrimSpace(in.HostID)
	if err := validateVisitorInput(in); err != nil {
		return nil, nil, err
	}
	if !policy.CanCreateVisitorFor(in.HostID, actor) {
		return nil, nil, fmt.Errorf("%w: cannot register visitors for host %s", domain.ErrForbidden, in.HostID)
	}

	now := s.now()
	var (
		ob      outbox
		visitor *domain.Visitor
		pass    *domain.Pass
		host    *domain.User
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx domain.Repositories) error {
		ob.reset()
		pass = nil

		var err error
		host, err = tx.Users().GetByID(ctx, in.HostID)
		if errors.Is(err, domain.ErrNotFound) {
			return domain.NewValidationError("host_id", "host not found")
		}
		if err != nil {
			return fmt.Errorf("load host: %w", err)
		}

		active, err := tx.Visitors().FindActiveByContact(ctx, in.Email, in.Phone)
		switch {
		case err == nil:
			return fmt.Errorf("%w: visitor %s already has an active visit", domain.ErrConflict, active.ID)
		case !errors.Is(err, domain.ErrNotFound):
			return fmt.Errorf("check active visit: %w", err)
		}

		visitor = domain.NewVisitor(in.Name, in.Email, in.Phone, in.Purpose, in.HostID, now)
		if actor.IsGuard() {
			guardID := actor.ID
			visitor.CreatedByGuardID = &guardID
		}
		if err := tx.Visitors().Create(ctx, visitor); err != nil {
			return fmt.Errorf("create visitor: %w", err)
		}

		content := fmt.Sprintf("New visitor request from %s for purpose: %s", visitor.Name, visitor.Purpose)
		if err := s.notifier.Record(ctx, tx, &ob, kindVisitorCreated, host, &visitor.ID, content, now); err != nil {
			return err
		}

		if in.PassExpiry != nil {
			pass, err = s.issuer.issue(ctx, tx, &ob, visitor, host, *in.PassExpiry, now)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.notifier.Flush(ctx, &ob)
	if pass != nil {
		s.issuer.publish(ctx, s.store, pass, visitor, host)
	}
	s.logger.InfoContext(ctx, "visitor created", "visitor_id", visitor.ID, "host_id", visitor.HostID, "actor_id", actor.ID)
	return visitor, pass, nil
}

func validateVisitorInput(in domain.CreateVisitorInput) error {
	if err := required("name", in.Name); err != nil {
		return err
	}
	if err := validateEmail(in.Email); err != nil {
		return err
	}
	if err := validatePhone(in.Phone); err != nil {
		return err
	}
	if err := required("purpose_of_visit", in.Purpose); err != nil {
		return err
	}
	return required("host_id", in.HostID)
}

func (s *visitorService) GetByID(ctx context.Context, actor domain.Actor, id string) (*domain.VisitorWithPasses, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	v, err := s.store.Visitors().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get visitor %s: %w", id, err)
	}
	if !policy.CanViewVisitor(v, actor, s.now()) {
		return nil, fmt.Errorf("%w: visitor %s", domain.ErrForbidden, id)
	}
	passes, err := s.store.Passes().List(ctx, domain.PassFilter{VisitorID: v.ID})
	if err != nil {
		return nil, fmt.Errorf("list passes for visitor %s: %w", id, err)
	}
	return &domain.VisitorWithPasses{Visitor: v, Passes: passes}, nil
}

func (s *visitorService) UpdateStatus(ctx context.Context, actor domain.Actor, id string, status domain.VisitorStatus) (*domain.Visitor, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	now := s.now()
	var (
		ob      outbox
		visitor *domain.Visitor
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx domain.Repositories) error {
		ob.reset()

		v, err := tx.Visitors().GetByIDForUpdate(ctx, id)
		if err != nil {
			return fmt.Errorf("get visitor %s: %w", id, err)
		}
		if !policy.CanMutateVisitor(v, actor) {
			return fmt.Errorf("%w: visitor %s", domain.ErrForbidden, id)
		}
		from := v.Status
		if err := v.Transition(status, now); err != nil {
			return err
		}
		if err := tx.Visitors().UpdateStatus(ctx, v, from); err != nil {
			return fmt.Errorf("update visitor %s: %w", id, err)
		}

		host, err := tx.Users().GetByID(ctx, v.HostID)
		if err != nil {
			return fmt.Errorf("load host: %w", err)
		}
		content := fmt.Sprintf("Visitor %s status changed from %s to %s", v.Name, from, v.Status)
		if err := s.notifier.Record(ctx, tx, &ob, kindVisitorStatus, host, &v.ID, content, now); err != nil {
			return err
		}
		visitor = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notifier.Flush(ctx, &ob)
	return visitor, nil
}

func (s *visitorService) Delete(ctx context.Context, actor domain.Actor, id string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	now := s.now()
	var (
		ob     outbox
		passes []*domain.Pass
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx domain.Repositories) error {
		ob.reset()

		v, err := tx.Visitors().GetByIDForUpdate(ctx, id)
		if err != nil {
			return fmt.Errorf("get visitor %s: %w", id, err)
		}
		if !policy.CanMutateVisitor(v, actor) {
			return fmt.Errorf("%w: visitor %s", domain.ErrForbidden, id)
		}
		host, err := tx.Users().GetByID(ctx, v.HostID)
		if err != nil {
			return fmt.Errorf("load host: %w", err)
		}
		if err := s.notifier.Record(ctx, tx, &ob, kindVisitorDeleted, host, nil,
			fmt.Sprintf("Visitor %s has been removed", v.Name), now); err != nil {
			return err
		}

		passes, err = tx.Passes().List(ctx, domain.PassFilter{VisitorID: v.ID})
		if err != nil {
			return fmt.Errorf("list passes for visitor %s: %w", id, err)
		}
		if _, err := tx.Passes().DeleteByVisitorID(ctx, v.ID); err != nil {
			return fmt.Errorf("delete passes for visitor %s: %w", id, err)
		}
		if err := tx.Visitors().Delete(ctx, v.ID); err != nil {
			return fmt.Errorf("delete visitor %s: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.notifier.Flush(ctx, &ob)
	for _, p := range passes {
		s.issuer.discard(ctx, p.ID)
	}
	s.logger.InfoContext(ctx, "visitor deleted", "visitor_id", id, "passes", len(passes), "actor_id", actor.ID)
	return nil
}

func (s *visitorService) List(ctx context.Context, actor domain.Actor, params domain.VisitorListParams) ([]*domain.Visitor, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	f := domain.VisitorFilter{
		Status: params.Status,
		Limit:  params.Page.PageSize,
		Offset: params.Page.Offset(),
	}
	switch {
	case actor.IsHost():
		f.HostID = actor.ID
	case policy.CanListAllVisitors(actor):
		f.HostID = actor.ID
		if params.ShowAll {
			f.HostID = params.HostID
		}
	default:
		return nil, fmt.Errorf("%w: use the guard desk listings", domain.ErrForbidden)
	}
	f.CreatedFrom, f.CreatedThrough = createdRange(params.From, params.To, s.now())

	visitors, err := s.store.Visitors().List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list visitors: %w", err)
	}
	return visitors, nil
}

func (s *visitorService) ListPendingCreatedBy(ctx context.Context, actor domain.Actor) ([]*domain.VisitorWithPasses, error) {
	if !policy.CanUseGuardDesk(actor) {
		return nil, domain.ErrForbidden
	}
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	visitors, err := s.store.Visitors().List(ctx, domain.VisitorFilter{
		CreatedByGuardID: actor.ID,
		Status:           domain.VisitorPending,
	})
	if err != nil {
		return nil, fmt.Errorf("list pending visitors: %w", err)
	}

	now := s.now()
	out := make([]*domain.VisitorWithPasses, 0, len(visitors))
	for _, v := range visitors {
		passes, err := s.store.Passes().List(ctx, domain.PassFilter{VisitorID: v.ID})
		if err != nil {
			return nil, fmt.Errorf("list passes for visitor %s: %w", v.ID, err)
		}
		live := make([]*domain.Pass, 0, 1)
		for _, p := range passes {
			if p.Outstanding(now) {
				live = append(live, p)
			}
		}
		out = append(out, &domain.VisitorWithPasses{Visitor: v, Passes: live})
	}
	return out, nil
}

func (s *visitorService) ListTodaysPending(ctx context.Context, actor domain.Actor) ([]*domain.Visitor, error) {
	if !policy.CanUseGuardDesk(actor) {
		return nil, domain.ErrForbidden
	}
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	start, end := dayBounds(s.now())
	visitors, err := s.store.Visitors().List(ctx, domain.VisitorFilter{
		Status:        domain.VisitorPending,
		CreatedFrom:   &start,
		CreatedBefore: &end,
	})
	if err != nil {
		return nil, fmt.Errorf("list today's pending visitors: %w", err)
	}
	return visitors, nil
}

func (s *visitorService) ListTodaysApproved(ctx context.Context, actor domain.Actor) ([]*domain.Visitor, error) {
	if !policy.CanUseGuardDesk(actor) {
		return nil, domain.ErrForbidden
	}
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	start, end := dayBounds(s.now())
	visitors, err := s.store.Visitors().List(ctx, domain.VisitorFilter{
		Status:       domain.VisitorApproved,
		EntryFrom:    &start,
		EntryTo:      &end,
		OrderByEntry: true,
	})
	if err != nil {
		return nil, fmt.Errorf("list today's approved visitors: %w", err)
	}
	return visitors, nil
}

func (s *visitorService) ListApprovedByHost(ctx context.Context, actor domain.Actor, hostID string) ([]*domain.Visitor, error) {
	if !policy.CanUseGuardDesk(actor) {
		return nil, domain.ErrForbidden
	}
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if _, err := s.store.Users().GetByID(ctx, hostID); err != nil {
		return nil, fmt.Errorf("get host %s: %w", hostID, err)
	}
	visitors, err := s.store.Visitors().List(ctx, domain.VisitorFilter{
		HostID: hostID,
		Status: domain.VisitorApproved,
	})
	if err != nil {
		return nil, fmt.Errorf("list approved visitors for host %s: %w", hostID, err)
	}
	return visitors, nil
}

func (s *visitorService) DailyStats(ctx context.Context, actor domain.Actor) (*domain.DailyStats, error) {
	if !policy.CanUseGuardDesk(actor) {
		return nil, domain.ErrForbidden
	}
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	now := s.now()
	start, end := dayBounds(now)
	// each status is counted against the timestamp that marks it happening today
	filters := []domain.VisitorFilter{
		{Status: domain.VisitorApproved, EntryFrom: &start, EntryTo: &end},
		{Status: domain.VisitorPending, CreatedFrom: &start, CreatedBefore: &end},
		{Status: domain.VisitorExpired, ExitFrom: &start, ExitTo: &end},
		{Status: domain.VisitorRejected, CreatedFrom: &start, CreatedBefore: &end},
	}
	counts := make([]int, len(filters))
	for i, f := range filters {
		byStatus, err := s.store.Visitors().CountByStatus(ctx, f)
		if err != nil {
			return nil, fmt.Errorf("count %s visitors: %w", f.Status, err)
		}
		counts[i] = byStatus[f.Status]
	}

	stats := &domain.DailyStats{
		Date:     start.Format(time.DateOnly),
		Approved: counts[0],
		Pending:  counts[1],
		Expired:  counts[2],
		Rejected: counts[3],
	}
	stats.Total = stats.Approved + stats.Pending + stats.Expired + stats.Rejected
	return stats, nil
}

// createdRange resolves a caller's creation-date range. The upper bound is inclusive and
// defaults to now when only a lower bound is given.
func createdRange(from, to *time.Time, now time.Time) (*time.Time, *time.Time) {
	if from != nil && to == nil {
		to = &now
	}
	return from, to
}

// dayBounds returns [midnight, next midnight) of t's calendar day in t's location.
func dayBounds(t time.Time) (time.Time, time.Time) {
	y, m, d := t.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 1)
}
