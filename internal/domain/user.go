package domain

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Role is the closed set of application roles.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleHost  Role = "host"
	RoleGuard Role = "guard"
)

// ParseRole converts a raw role string (any case) into a Role.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleHost:
		return RoleHost, nil
	case RoleGuard:
		return RoleGuard, nil
	}
	return "", NewValidationError("role", fmt.Sprintf("role must be one of admin, host, guard (got %q)", s))
}

func (r Role) String() string { return string(r) }

// User is an authenticated person: an admin, a host receiving visitors, or an on-site guard.
// swagger:model User
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone_number"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"`
	Salt         string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewUser returns a new User with the given fields. ID is typically set by the repository on create.
func NewUser(name, email, phone string, role Role, createdAt, updatedAt time.Time) *User {
	return &User{
		Name:      name,
		Email:     email,
		Phone:     phone,
		Role:      role,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}
}

// Actor is the identity performing an operation, as established by the auth middleware.
type Actor struct {
	ID   string
	Role Role
}

func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }
func (a Actor) IsHost() bool  { return a.Role == RoleHost }
func (a Actor) IsGuard() bool { return a.Role == RoleGuard }

// PasswordHasher handles salt generation, hashing, and verification.
type PasswordHasher interface {
	GenerateSalt() (string, error)
	Hash(salt, password string) (hash string, err error)
	Compare(hash, salt, password string) error
}

// TokenKind separates short-lived access tokens from refresh tokens.
type TokenKind string

const (
	TokenAccess  TokenKind = "access"
	TokenRefresh TokenKind = "refresh"
)

// TokenClaims is what a verified access or refresh token asserts.
type TokenClaims struct {
	UserID    string
	Role      Role
	Kind      TokenKind
	TokenID   string
	ExpiresAt time.Time
}

// TokenIssuer issues signed tokens for an authenticated user.
type TokenIssuer interface {
	Issue(userID string, role Role, kind TokenKind, expiry time.Duration) (string, error)
}

// TokenVerifier verifies a token and returns its claims.
type TokenVerifier interface {
	Verify(token string) (*TokenClaims, error)
}

// TokenDenylist records revoked token IDs until they would have expired anyway.
type TokenDenylist interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// TokenPair is returned by sign-up, login and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// SignUpInput carries the fields required to register a user.
type SignUpInput struct {
	Name     string
	Email    string
	Phone    string
	Password string
	Role     Role
}

// UserRepository defines the interface for user storage.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
}

// AuthService signs users up and in, and manages refresh-token revocation.
type AuthService interface {
	SignUp(ctx context.Context, in SignUpInput) (*User, *TokenPair, error)
	Login(ctx context.Context, email, password string) (*User, *TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
}

// HostDashboard summarises the visitors a host has received.
// swagger:model HostDashboard
type HostDashboard struct {
	TotalVisitors int `json:"total_visitors"`
	Pending       int `json:"pending"`
	Approved      int `json:"approved"`
	Rejected      int `json:"rejected"`
	Expired       int `json:"expired"`
}

// UserProfile bundles a user with their dashboard counters.
// swagger:model UserProfile
type UserProfile struct {
	User      *User          `json:"user"`
	Dashboard *HostDashboard `json:"dashboard"`
}

// UserService exposes the authenticated user's own profile.
type UserService interface {
	GetProfile(ctx context.Context, actor Actor) (*UserProfile, error)
	RecentVisitors(ctx context.Context, actor Actor, limit int) ([]*Visitor, error)
}
