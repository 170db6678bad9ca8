package controllers

import (
	"log/slog"
	"net/http"
	"strings"

	"visitorpass/internal/delivery/http/helpers"
	"visitorpass/internal/domain"
)

// PassSuccessResponse wraps a single pass.
type PassSuccessResponse struct {
	Data  *domain.Pass      `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// PassesSuccessResponse wraps a list of passes.
type PassesSuccessResponse struct {
	Data  []*domain.Pass    `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// VerificationSuccessResponse wraps a QR lookup result.
type VerificationSuccessResponse struct {
	Data  *domain.PassVerification `json:"data"`
	Error *helpers.APIError        `json:"error"`
}

// PassController exposes pass queries and administration.
type PassController struct {
	Logger  *slog.Logger
	Service domain.PassService
}

func NewPassController(logger *slog.Logger, svc domain.PassService) *PassController {
	return &PassController{Logger: logger, Service: svc}
}

// List godoc
// @Summary List passes
// @Description Admins see every pass (own_only=true narrows to visitors they host), hosts see passes of their visitors, guards see passes they scanned.
// @Tags passes
// @Produce json
// @Security BearerAuth
// @Param visitor_id query string false "Restrict to one visitor"
// @Param from query string false "Created at or after (RFC 3339 or YYYY-MM-DD)"
// @Param to query string false "Created before (RFC 3339 or YYYY-MM-DD)"
// @Param own_only query bool false "Admin only: passes of visitors the admin hosts"
// @Success 200 {object} controllers.PassesSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Router /api/passes [get]
func (c *PassController) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	params := domain.PassListParams{
		VisitorID: strings.TrimSpace(r.URL.Query().Get("visitor_id")),
		OwnOnly:   helpers.ParseBoolParam(r, "own_only"),
	}
	var err error
	if params.From, err = helpers.ParseTimeParam(r, "from"); err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
		return
	}
	if params.To, err = helpers.ParseTimeParam(r, "to"); err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
		return
	}
	passes, err := c.Service.List(r.Context(), actor, params)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, passes)
}

// Get godoc
// @Summary Get a pass
// @Tags passes
// @Produce json
// @Security BearerAuth
// @Param passID path string true "Pass ID"
// @Success 200 {object} controllers.PassSuccessResponse
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /api/passes/{passID} [get]
func (c *PassController) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "passID")
	if !ok {
		return
	}
	pass, err := c.Service.GetByID(r.Context(), actor, id)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, pass)
}

// Delete godoc
// @Summary Delete a pass
// @Tags passes
// @Produce json
// @Security BearerAuth
// @Param passID path string true "Pass ID"
// @Success 204 "No Content"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /api/passes/{passID} [delete]
func (c *PassController) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "passID")
	if !ok {
		return
	}
	if err := c.Service.Delete(r.Context(), actor, id); err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Verify godoc
// @Summary Look up a pass by its QR token
// @Description Read-only check used before scanning. Reports whether the pass would be accepted and why not.
// @Tags passes
// @Produce json
// @Security BearerAuth
// @Param token path string true "QR token"
// @Success 200 {object} controllers.VerificationSuccessResponse
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /api/passes/qr/{token} [get]
func (c *PassController) Verify(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	token, ok := pathID(w, r, "token")
	if !ok {
		return
	}
	result, err := c.Service.Verify(r.Context(), actor, token)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, result)
}
