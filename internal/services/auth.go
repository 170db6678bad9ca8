package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"visitorpass/internal/domain"
)

const tokenTypeBearer = "Bearer"

// TokenTTLs sets how long issued tokens stay valid.
type TokenTTLs struct {
	Access  time.Duration
	Refresh time.Duration
}

type authService struct {
	userRepo       domain.UserRepository
	hasher         domain.PasswordHasher
	issuer         domain.TokenIssuer
	verifier       domain.TokenVerifier
	denylist       domain.TokenDenylist
	ttls           TokenTTLs
	logger         *slog.Logger
	contextTimeout time.Duration
	now            func() time.Time
}

// NewAuthService creates an AuthService with the given user repository and auth ports.
func NewAuthService(userRepo domain.UserRepository, hasher domain.PasswordHasher, issuer domain.TokenIssuer,
	verifier domain.TokenVerifier, denylist domain.TokenDenylist, ttls TokenTTLs, logger *slog.Logger, timeout time.Duration,
) domain.AuthService {
	return &authService{
		userRepo:       userRepo,
		hasher:         hasher,
		issuer:         issuer,
		verifier:       verifier,
		denylist:       denylist,
		ttls:           ttls,
		logger:         logger,
		contextTimeout: timeout,
		now:            time.Now,
	}
}

func (s *authService) SignUp(ctx context.Context, in domain.SignUpInput) (*domain.User, *domain.TokenPair, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	if err := required("name", in.Name); err != nil {
		return nil, nil, err
	}
	if err := validateEmail(in.Email); err != nil {
		return nil, nil, err
	}
	if err := validatePhone(in.Phone); err != nil {
		return nil, nil, err
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, nil, err
	}
	if in.Role == "" {
		in.Role = domain.RoleHost
	}
	role, err := domain.ParseRole(string(in.Role))
	if err != nil {
		return nil, nil, err
	}

	_, err = s.userRepo.GetByEmail(ctx, in.Email)
	switch {
	case err == nil:
		return nil, nil, fmt.Errorf("%w: email already registered", domain.ErrConflict)
	case !errors.Is(err, domain.ErrNotFound):
		return nil, nil, fmt.Errorf("failed to check email: %w", err)
	}

	salt, err := s.hasher.GenerateSalt()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	hash, err := s.hasher.Hash(salt, in.Password)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now()
	user := domain.NewUser(in.Name, in.Email, in.Phone, role, now, now)
	user.PasswordHash = hash
	user.Salt = salt
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, nil, fmt.Errorf("failed to create user: %w", err)
	}

	pair, err := s.issuePair(user)
	if err != nil {
		return nil, nil, err
	}
	s.logger.InfoContext(ctx, "user signed up", "user_id", user.ID, "role", user.Role)
	return user, pair, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (*domain.User, *domain.TokenPair, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil, fmt.Errorf("%w: invalid credentials", domain.ErrUnauthorized)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load user: %w", err)
	}
	if err := s.hasher.Compare(user.PasswordHash, user.Salt, password); err != nil {
		return nil, nil, fmt.Errorf("%w: invalid credentials", domain.ErrUnauthorized)
	}

	pair, err := s.issuePair(user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Refresh rotates a refresh token: the presented one is revoked and a new pair is issued.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	claims, err := s.liveRefreshClaims(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%w: user no longer exists", domain.ErrUnauthorized)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if err := s.denylist.Revoke(ctx, claims.TokenID, claims.ExpiresAt); err != nil {
		return nil, fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return s.issuePair(user)
}

func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	claims, err := s.liveRefreshClaims(ctx, refreshToken)
	if err != nil {
		return err
	}
	if err := s.denylist.Revoke(ctx, claims.TokenID, claims.ExpiresAt); err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	s.logger.InfoContext(ctx, "user logged out", "user_id", claims.UserID)
	return nil
}

func (s *authService) liveRefreshClaims(ctx context.Context, token string) (*domain.TokenClaims, error) {
	if strings.TrimSpace(token) == "" {
		return nil, domain.NewValidationError("refresh_token", "refresh_token is required")
	}
	claims, err := s.verifier.Verify(token)
	if err != nil {
		return nil, err
	}
	if claims.Kind != domain.TokenRefresh {
		return nil, fmt.Errorf("%w: not a refresh token", domain.ErrUnauthorized)
	}
	revoked, err := s.denylist.IsRevoked(ctx, claims.TokenID)
	if err != nil {
		return nil, fmt.Errorf("failed to check token revocation: %w", err)
	}
	if revoked {
		return nil, fmt.Errorf("%w: refresh token revoked", domain.ErrUnauthorized)
	}
	return claims, nil
}

func (s *authService) issuePair(user *domain.User) (*domain.TokenPair, error) {
	access, err := s.issuer.Issue(user.ID, user.Role, domain.TokenAccess, s.ttls.Access)
	if err != nil {
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}
	refresh, err := s.issuer.Issue(user.ID, user.Role, domain.TokenRefresh, s.ttls.Refresh)
	if err != nil {
		return nil, fmt.Errorf("failed to issue refresh token: %w", err)
	}
	return &domain.TokenPair{AccessToken: access, RefreshToken: refresh, TokenType: tokenTypeBearer}, nil
}
