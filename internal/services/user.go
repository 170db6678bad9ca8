package services

import (
	"context"
	"fmt"
	"time"

	"visitorpass/internal/domain"
)

const (
	defaultRecentVisitors = 5
	maxRecentVisitors     = 50
)

type userService struct {
	userRepo       domain.UserRepository
	visitorRepo    domain.VisitorRepository
	contextTimeout time.Duration
}

// NewUserService returns a UserService over the given repositories.
func NewUserService(userRepo domain.UserRepository, visitorRepo domain.VisitorRepository, timeout time.Duration) domain.UserService {
	return &userService{userRepo: userRepo, visitorRepo: visitorRepo, contextTimeout: timeout}
}

// GetProfile returns the actor's user record with counters over the visitors they host.
func (s *userService) GetProfile(ctx context.Context, actor domain.Actor) (*domain.UserProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	user, err := s.userRepo.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", actor.ID, err)
	}
	counts, err := s.visitorRepo.CountByStatus(ctx, domain.VisitorFilter{HostID: actor.ID})
	if err != nil {
		return nil, fmt.Errorf("count visitors: %w", err)
	}
	dash := &domain.HostDashboard{
		Pending:  counts[domain.VisitorPending],
		Approved: counts[domain.VisitorApproved],
		Rejected: counts[domain.VisitorRejected],
		Expired:  counts[domain.VisitorExpired],
	}
	dash.TotalVisitors = dash.Pending + dash.Approved + dash.Rejected + dash.Expired
	return &domain.UserProfile{User: user, Dashboard: dash}, nil
}

func (s *userService) RecentVisitors(ctx context.Context, actor domain.Actor, limit int) ([]*domain.Visitor, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	switch {
	case limit <= 0:
		limit = defaultRecentVisitors
	case limit > maxRecentVisitors:
		limit = maxRecentVisitors
	}
	visitors, err := s.visitorRepo.List(ctx, domain.VisitorFilter{HostID: actor.ID, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("list recent visitors: %w", err)
	}
	return visitors, nil
}
