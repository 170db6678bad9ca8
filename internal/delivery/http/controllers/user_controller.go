package controllers

import (
	"log/slog"
	"net/http"

	"visitorpass/internal/delivery/http/helpers"
	"visitorpass/internal/domain"
)

// ProfileSuccessResponse is the success response envelope for GET /api/users/profile (200).
type ProfileSuccessResponse struct {
	Data  *domain.UserProfile `json:"data"`
	Error *helpers.APIError   `json:"error"`
}

// VisitorsSuccessResponse is the success response envelope for visitor listings (200).
type VisitorsSuccessResponse struct {
	Data  []*domain.Visitor `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// UserController handles the authenticated user's own profile endpoints.
type UserController struct {
	Logger  *slog.Logger
	Service domain.UserService
}

// NewUserController creates a UserController with the given logger and service.
func NewUserController(logger *slog.Logger, svc domain.UserService) *UserController {
	return &UserController{
		Logger:  logger,
		Service: svc,
	}
}

// GetProfile godoc
// @Summary Get current user
// @Description Returns the authenticated user with counts of the visitors they host, by status.
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} controllers.ProfileSuccessResponse "data contains the user and dashboard"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /api/users/profile [get]
func (c *UserController) GetProfile(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	profile, err := c.Service.GetProfile(r.Context(), actor)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, profile)
}

// RecentVisitors godoc
// @Summary Recent visitors
// @Description Most recently registered visitors hosted by the authenticated user.
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Maximum results (default 5, max 50)"
// @Success 200 {object} controllers.VisitorsSuccessResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Router /api/users/recent-visitors [get]
func (c *UserController) RecentVisitors(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	visitors, err := c.Service.RecentVisitors(r.Context(), actor, helpers.ParseIntParam(r, "limit", 0))
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, visitors)
}
