package controllers

import (
	"log/slog"
	"net/http"
	"strings"

	"visitorpass/internal/delivery/http/helpers"
	"visitorpass/internal/domain"
)

// SignUpRequest is the request body for POST /api/auth/register
type SignUpRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	Password    string `json:"password"`
	Role        string `json:"role"` // optional: "admin", "host" or "guard" (defaults to "host")
}

// Validate implements Validator.
func (s SignUpRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(s.Name) == "" {
		errs = append(errs, "name is required")
	}
	if strings.TrimSpace(s.Email) == "" {
		errs = append(errs, "email is required")
	}
	if strings.TrimSpace(s.PhoneNumber) == "" {
		errs = append(errs, "phone_number is required")
	}
	if s.Password == "" {
		errs = append(errs, "password is required")
	}
	if s.Role != "" {
		if _, err := domain.ParseRole(s.Role); err != nil {
			errs = append(errs, "role must be one of admin, host, guard")
		}
	}
	return errs
}

// LoginRequest is the request body for POST /api/auth/login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate implements Validator.
func (l LoginRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(l.Email) == "" {
		errs = append(errs, "email is required")
	}
	if l.Password == "" {
		errs = append(errs, "password is required")
	}
	return errs
}

// RefreshRequest is the request body for POST /api/auth/refresh-token and /api/auth/logout
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Validate implements Validator.
func (r RefreshRequest) Validate() []string {
	if strings.TrimSpace(r.RefreshToken) == "" {
		return []string{"refresh_token is required"}
	}
	return nil
}

// AuthResponse is the data returned by register and login.
type AuthResponse struct {
	User   *domain.User      `json:"user"`
	Tokens *domain.TokenPair `json:"tokens"`
}

// AuthSuccessResponse is the success response envelope for register and login.
type AuthSuccessResponse struct {
	Data  AuthResponse      `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// TokenSuccessResponse is the success response envelope for POST /api/auth/refresh-token (200).
type TokenSuccessResponse struct {
	Data  *domain.TokenPair `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// AuthController handles sign-up, login and token rotation.
type AuthController struct {
	Logger  *slog.Logger
	Service domain.AuthService
}

func NewAuthController(logger *slog.Logger, svc domain.AuthService) *AuthController {
	return &AuthController{
		Logger:  logger,
		Service: svc,
	}
}

// SignUp godoc
// @Summary Register a new user
// @Description Create a user with name, email, phone number, password and role ("admin", "host" or "guard"; defaults to "host"). Returns the user and a token pair.
// @Tags auth
// @Accept json
// @Produce json
// @Param body body SignUpRequest true "Sign-up data"
// @Success 201 {object} controllers.AuthSuccessResponse "data contains the user and tokens"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request or validation_error"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /api/auth/register [post]
func (c *AuthController) SignUp(w http.ResponseWriter, r *http.Request) {
	var req SignUpRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	user, tokens, err := c.Service.SignUp(r.Context(), domain.SignUpInput{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.PhoneNumber,
		Password: req.Password,
		Role:     domain.Role(strings.ToLower(strings.TrimSpace(req.Role))),
	})
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, AuthResponse{User: user, Tokens: tokens})
}

// Login godoc
// @Summary Log in
// @Description Authenticate with email and password. Returns the user, a short-lived access token and a refresh token.
// @Tags auth
// @Accept json
// @Produce json
// @Param body body LoginRequest true "Login credentials"
// @Success 200 {object} controllers.AuthSuccessResponse "data contains the user and tokens"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /api/auth/login [post]
func (c *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	user, tokens, err := c.Service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, AuthResponse{User: user, Tokens: tokens})
}

// Refresh godoc
// @Summary Rotate a refresh token
// @Description Exchange a refresh token for a new token pair. The presented refresh token is revoked.
// @Tags auth
// @Accept json
// @Produce json
// @Param body body RefreshRequest true "Refresh token"
// @Success 200 {object} controllers.TokenSuccessResponse "data contains the new tokens"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Router /api/auth/refresh-token [post]
func (c *AuthController) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	tokens, err := c.Service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, tokens)
}

// Logout godoc
// @Summary Log out
// @Description Revoke a refresh token.
// @Tags auth
// @Accept json
// @Produce json
// @Param body body RefreshRequest true "Refresh token"
// @Success 200 {object} helpers.APIResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Router /api/auth/logout [post]
func (c *AuthController) Logout(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	if err := c.Service.Logout(r.Context(), req.RefreshToken); err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, map[string]string{"message": "logged out"})
}
