package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"visitorpass/internal/domain"
	"visitorpass/internal/policy"
)

type passService struct {
	store          domain.Store
	issuer         *PassIssuer
	notifier       *Notifier
	logger         *slog.Logger
	contextTimeout time.Duration
	now            func() time.Time
}

// NewPassService returns the pass lifecycle manager.
func NewPassService(store domain.Store, issuer *PassIssuer, notifier *Notifier, logger *slog.Logger, timeout time.Duration) domain.PassService {
	return &passService{
		store:          store,
		issuer:         issuer,
		notifier:       notifier,
		logger:         logger,
		contextTimeout: timeout,
		now:            time.Now,
	}
}

func (s *passService) Issue(ctx context.Context, actor domain.Actor, visitorID string, expiresAt time.Time) (*domain.Pass, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	now := s.now()
	var (
		ob      outbox
		pass    *domain.Pass
		visitor *domain.Visitor
		host    *domain.User
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx domain.Repositories) error {
		ob.reset()

		var err error
		// the visitor row lock serializes concurrent issuance for the same visitor
		visitor, err = tx.Visitors().GetByIDForUpdate(ctx, visitorID)
		if err != nil {
			return fmt.Errorf("get visitor %s: %w", visitorID, err)
		}
		if !policy.CanIssuePass(visitor, actor) {
			return fmt.Errorf("%w: cannot issue passes for visitor %s", domain.ErrForbidden, visitorID)
		}
		host, err = tx.Users().GetByID(ctx, visitor.HostID)
		if err != nil {
			return fmt.Errorf("load host: %w", err)
		}
		pass, err = s.issuer.issue(ctx, tx, &ob, visitor, host, expiresAt, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Flush(ctx, &ob)
	s.issuer.publish(ctx, s.store, pass, visitor, host)
	s.logger.InfoContext(ctx, "pass issued", "pass_id", pass.ID, "visitor_id", visitorID, "actor_id", actor.ID)
	return pass, nil
}

// Redeem consumes a pass at the gate. A scan after expiry still commits the terminal
// state before reporting domain.ErrExpired.
func (s *passService) Redeem(ctx context.Context, actor domain.Actor, passID string) (*domain.Redemption, error) {
	if !policy.CanRedeemPass(actor) {
		return nil, fmt.Errorf("%w: only guards redeem passes", domain.ErrForbidden)
	}
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	now := s.now()
	var (
		ob      outbox
		result  *domain.Redemption
		expired bool
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx domain.Repositories) error {
		ob.reset()
		expired = false

		p, err := tx.Passes().GetByIDForUpdate(ctx, passID)
		if err != nil {
			return fmt.Errorf("get pass %s: %w", passID, err)
		}
		if p.Processed() {
			return fmt.Errorf("%w: pass %s", domain.ErrAlreadyProcessed, passID)
		}
		v, err := tx.Visitors().GetByIDForUpdate(ctx, p.VisitorID)
		if err != nil {
			return fmt.Errorf("get visitor %s: %w", p.VisitorID, err)
		}
		if v.Status == domain.VisitorApproved {
			return fmt.Errorf("%w: visitor %s", domain.ErrAlreadyApproved, v.ID)
		}
		if v.Status.IsTerminal() {
			return fmt.Errorf("scan pass %s: %w", passID, &domain.TransitionError{From: v.Status, To: domain.VisitorApproved})
		}
		guard, err := tx.Users().GetByID(ctx, actor.ID)
		if err != nil {
			return fmt.Errorf("load guard: %w", err)
		}
		host, err := tx.Users().GetByID(ctx, v.HostID)
		if err != nil {
			return fmt.Errorf("load host: %w", err)
		}

		if err := tx.Passes().MarkProcessed(ctx, p.ID, now, actor.ID); err != nil {
			return fmt.Errorf("mark pass %s processed: %w", passID, err)
		}
		guardID := actor.ID
		p.ApprovedAt = &now
		p.ApprovedBy = &guardID

		from := v.Status
		kind := kindPassRedeemed
		var content string
		if p.ExpiredAt(now) {
			expired = true
			kind = kindPassExpired
			v.ExpireAtGate(now)
			content = fmt.Sprintf("Pass for visitor %s has expired. Checked by Guard %s at %s", v.Name, guard.Name, now.Format(time.RFC1123))
		} else {
			v.Admit(now)
			content = fmt.Sprintf("Visitor %s has been approved by Guard %s. Entry time: %s", v.Name, guard.Name, now.Format(time.RFC1123))
		}
		if err := tx.Visitors().UpdateStatus(ctx, v, from); err != nil {
			return fmt.Errorf("update visitor %s: %w", v.ID, err)
		}
		if err := s.notifier.Record(ctx, tx, &ob, kind, host, &v.ID, content, now); err != nil {
			return err
		}
		result = &domain.Redemption{Pass: p, Visitor: v}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Flush(ctx, &ob)
	if expired {
		s.logger.InfoContext(ctx, "expired pass scanned", "pass_id", passID, "guard_id", actor.ID)
		return nil, fmt.Errorf("%w: pass %s expired at %s", domain.ErrExpired, passID, result.Pass.ExpiresAt.Format(time.RFC3339))
	}
	s.logger.InfoContext(ctx, "pass redeemed", "pass_id", passID, "visitor_id", result.Visitor.ID, "guard_id", actor.ID)
	return result, nil
}

func (s *passService) Delete(ctx context.Context, actor domain.Actor, passID string) error {
	if !policy.CanDeletePass(actor) {
		return fmt.Errorf("%w: only admins delete passes", domain.ErrForbidden)
	}
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	now := s.now()
	var ob outbox
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx domain.Repositories) error {
		ob.reset()

		p, err := tx.Passes().GetByIDForUpdate(ctx, passID)
		if err != nil {
			return fmt.Errorf("get pass %s: %w", passID, err)
		}
		host, err := tx.Users().GetByID(ctx, p.HostID)
		if err != nil {
			return fmt.Errorf("load host: %w", err)
		}
		content := fmt.Sprintf("Pass %s for visitor %s has been deleted", p.ID, p.VisitorName)
		if err := s.notifier.Record(ctx, tx, &ob, kindPassDeleted, host, &p.VisitorID, content, now); err != nil {
			return err
		}
		if err := tx.Passes().Delete(ctx, p.ID); err != nil {
			return fmt.Errorf("delete pass %s: %w", passID, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.notifier.Flush(ctx, &ob)
	s.issuer.discard(ctx, passID)
	return nil
}

func (s *passService) List(ctx context.Context, actor domain.Actor, params domain.PassListParams) ([]*domain.Pass, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	f := domain.PassFilter{VisitorID: params.VisitorID}
	f.CreatedFrom, f.CreatedThrough = createdRange(params.From, params.To, s.now())
	switch actor.Role {
	case domain.RoleAdmin:
		if params.OwnOnly {
			f.HostID = actor.ID
		}
	case domain.RoleHost:
		f.HostID = actor.ID
	case domain.RoleGuard:
		f.ApprovedBy = actor.ID
	default:
		return nil, domain.ErrForbidden
	}

	passes, err := s.store.Passes().List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list passes: %w", err)
	}
	return passes, nil
}

func (s *passService) GetByID(ctx context.Context, actor domain.Actor, passID string) (*domain.Pass, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	p, err := s.store.Passes().GetByID(ctx, passID)
	if err != nil {
		return nil, fmt.Errorf("get pass %s: %w", passID, err)
	}
	if !policy.CanViewPass(p, actor) {
		return nil, fmt.Errorf("%w: pass %s", domain.ErrForbidden, passID)
	}
	return p, nil
}

func (s *passService) Verify(ctx context.Context, actor domain.Actor, token string) (*domain.PassVerification, error) {
	if !policy.CanVerifyPass(actor) {
		return nil, fmt.Errorf("%w: only guards and admins verify passes", domain.ErrForbidden)
	}
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	p, err := s.store.Passes().GetByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("lookup pass by token: %w", err)
	}
	v, err := s.store.Visitors().GetByID(ctx, p.VisitorID)
	if err != nil {
		return nil, fmt.Errorf("get visitor %s: %w", p.VisitorID, err)
	}

	res := &domain.PassVerification{Pass: p, Visitor: v, Valid: true}
	switch {
	case p.Processed():
		res.Valid, res.Reason = false, "pass already processed"
	case p.ExpiredAt(s.now()):
		res.Valid, res.Reason = false, "pass has expired"
	case v.Status == domain.VisitorApproved:
		res.Valid, res.Reason = false, "visitor is already approved"
	case v.Status.IsTerminal():
		res.Valid, res.Reason = false, "visit is closed ("+string(v.Status)+")"
	}
	return res, nil
}

func (s *passService) ScanHistory(ctx context.Context, actor domain.Actor) ([]*domain.Pass, error) {
	if !policy.CanUseGuardDesk(actor) {
		return nil, domain.ErrForbidden
	}
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	passes, err := s.store.Passes().List(ctx, domain.PassFilter{ApprovedBy: actor.ID})
	if err != nil {
		return nil, fmt.Errorf("list scan history: %w", err)
	}
	return passes, nil
}
