package controllers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"visitorpass/internal/delivery/http/helpers"
	"visitorpass/internal/domain"
)

// CreateVisitorRequest is the request body for POST /api/visitors and POST /api/guard/visitors
type CreateVisitorRequest struct {
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	PhoneNumber string     `json:"phone_number"`
	Purpose     string     `json:"purpose_of_visit"`
	HostID      string     `json:"host_id"`
	ExpiryTime  *time.Time `json:"expiry_time"` // optional; when set a pass is issued with the visitor
}

// Validate implements Validator.
func (c CreateVisitorRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(c.Name) == "" {
		errs = append(errs, "name is required")
	}
	if strings.TrimSpace(c.Email) == "" {
		errs = append(errs, "email is required")
	}
	if strings.TrimSpace(c.PhoneNumber) == "" {
		errs = append(errs, "phone_number is required")
	}
	if strings.TrimSpace(c.Purpose) == "" {
		errs = append(errs, "purpose_of_visit is required")
	}
	if strings.TrimSpace(c.HostID) == "" {
		errs = append(errs, "host_id is required")
	}
	return errs
}

func (c CreateVisitorRequest) input() domain.CreateVisitorInput {
	return domain.CreateVisitorInput{
		Name:       c.Name,
		Email:      c.Email,
		Phone:      c.PhoneNumber,
		Purpose:    c.Purpose,
		HostID:     c.HostID,
		PassExpiry: c.ExpiryTime,
	}
}

// UpdateStatusRequest is the request body for PATCH /api/visitors/{visitorID}/status
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// Validate implements Validator.
func (u UpdateStatusRequest) Validate() []string {
	if _, err := domain.ParseVisitorStatus(strings.ToUpper(strings.TrimSpace(u.Status))); err != nil {
		return []string{"status must be one of PENDING, APPROVED, REJECTED, EXPIRED"}
	}
	return nil
}

// IssuePassRequest is the request body for POST /api/visitors/{visitorID}/passes
type IssuePassRequest struct {
	ExpiryTime time.Time `json:"expiry_time"`
}

// Validate implements Validator.
func (i IssuePassRequest) Validate() []string {
	if i.ExpiryTime.IsZero() {
		return []string{"expiry_time is required"}
	}
	return nil
}

// CreatedVisitor is the data returned when a visitor is registered.
type CreatedVisitor struct {
	Visitor *domain.Visitor `json:"visitor"`
	Pass    *domain.Pass    `json:"pass,omitempty"`
}

// CreatedVisitorSuccessResponse is the success response envelope for visitor creation (201).
type CreatedVisitorSuccessResponse struct {
	Data  CreatedVisitor    `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// VisitorSuccessResponse wraps a single visitor.
type VisitorSuccessResponse struct {
	Data  *domain.Visitor   `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// VisitorDetailSuccessResponse wraps a visitor with its passes.
type VisitorDetailSuccessResponse struct {
	Data  *domain.VisitorWithPasses `json:"data"`
	Error *helpers.APIError         `json:"error"`
}

// VisitorController exposes the visitor lifecycle.
type VisitorController struct {
	Logger   *slog.Logger
	Visitors domain.VisitorService
	Passes   domain.PassService
}

func NewVisitorController(logger *slog.Logger, visitors domain.VisitorService, passes domain.PassService) *VisitorController {
	return &VisitorController{
		Logger:   logger,
		Visitors: visitors,
		Passes:   passes,
	}
}

// Create godoc
// @Summary Register a visitor
// @Description Create a PENDING visitor for a host. When expiry_time is given a pass is issued and mailed to the visitor.
// @Tags visitors
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CreateVisitorRequest true "Visitor data"
// @Success 201 {object} controllers.CreatedVisitorSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request or validation_error"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (active visit exists)"
// @Router /api/visitors [post]
func (c *VisitorController) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req CreateVisitorRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	visitor, pass, err := c.Visitors.Create(r.Context(), actor, req.input())
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, CreatedVisitor{Visitor: visitor, Pass: pass})
}

// List godoc
// @Summary List visitors
// @Description Hosts see their own visitors; admins see everyone's unless show_all is false.
// @Tags visitors
// @Produce json
// @Security BearerAuth
// @Param status query string false "PENDING, APPROVED, REJECTED or EXPIRED"
// @Param from query string false "Created at or after (RFC 3339 or YYYY-MM-DD)"
// @Param to query string false "Created before (RFC 3339 or YYYY-MM-DD)"
// @Param show_all query bool false "Admin only: include every host's visitors"
// @Param host_id query string false "Admin only: restrict to one host"
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Items per page (default 20, max 100)"
// @Success 200 {object} controllers.VisitorsSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request or validation_error"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Router /api/visitors [get]
func (c *VisitorController) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	params := domain.VisitorListParams{
		ShowAll: helpers.ParseBoolParam(r, "show_all"),
		HostID:  strings.TrimSpace(r.URL.Query().Get("host_id")),
		Page:    helpers.ParsePagination(r),
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status, err := domain.ParseVisitorStatus(strings.ToUpper(raw))
		if err != nil {
			helpers.WriteServiceError(w, r, c.Logger, err)
			return
		}
		params.Status = status
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
	visitors, err := c.Visitors.List(r.Context(), actor, params)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, visitors)
}

// Get godoc
// @Summary Get a visitor
// @Description Returns the visitor together with every pass issued for it.
// @Tags visitors
// @Produce json
// @Security BearerAuth
// @Param visitorID path string true "Visitor ID"
// @Success 200 {object} controllers.VisitorDetailSuccessResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /api/visitors/{visitorID} [get]
func (c *VisitorController) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "visitorID")
	if !ok {
		return
	}
	detail, err := c.Visitors.GetByID(r.Context(), actor, id)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, detail)
}

// UpdateStatus godoc
// @Summary Change a visitor's status
// @Description Allowed changes: PENDING to APPROVED or REJECTED, APPROVED to EXPIRED.
// @Tags visitors
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param visitorID path string true "Visitor ID"
// @Param body body UpdateStatusRequest true "New status"
// @Success 200 {object} controllers.VisitorSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: invalid_transition"
// @Router /api/visitors/{visitorID}/status [patch]
func (c *VisitorController) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	c.setStatus(w, r, domain.VisitorStatus(strings.ToUpper(strings.TrimSpace(req.Status))))
}

// Approve godoc
// @Summary Approve a visitor
// @Tags visitors
// @Produce json
// @Security BearerAuth
// @Param visitorID path string true "Visitor ID"
// @Success 200 {object} controllers.VisitorSuccessResponse
// @Failure 409 {object} helpers.APIResponse "error.code: invalid_transition"
// @Router /api/visitors/{visitorID}/approve [put]
func (c *VisitorController) Approve(w http.ResponseWriter, r *http.Request) {
	c.setStatus(w, r, domain.VisitorApproved)
}

// Reject godoc
// @Summary Reject a visitor
// @Tags visitors
// @Produce json
// @Security BearerAuth
// @Param visitorID path string true "Visitor ID"
// @Success 200 {object} controllers.VisitorSuccessResponse
// @Failure 409 {object} helpers.APIResponse "error.code: invalid_transition"
// @Router /api/visitors/{visitorID}/reject [put]
func (c *VisitorController) Reject(w http.ResponseWriter, r *http.Request) {
	c.setStatus(w, r, domain.VisitorRejected)
}

// Expire godoc
// @Summary Check a visitor out
// @Tags visitors
// @Produce json
// @Security BearerAuth
// @Param visitorID path string true "Visitor ID"
// @Success 200 {object} controllers.VisitorSuccessResponse
// @Failure 409 {object} helpers.APIResponse "error.code: invalid_transition"
// @Router /api/visitors/{visitorID}/expire [put]
func (c *VisitorController) Expire(w http.ResponseWriter, r *http.Request) {
	c.setStatus(w, r, domain.VisitorExpired)
}

func (c *VisitorController) setStatus(w http.ResponseWriter, r *http.Request, status domain.VisitorStatus) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "visitorID")
	if !ok {
		return
	}
	visitor, err := c.Visitors.UpdateStatus(r.Context(), actor, id, status)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, visitor)
}

// Delete godoc
// @Summary Delete a visitor
// @Description Removes the visitor and every pass issued for it.
// @Tags visitors
// @Produce json
// @Security BearerAuth
// @Param visitorID path string true "Visitor ID"
// @Success 204 "No Content"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /api/visitors/{visitorID} [delete]
func (c *VisitorController) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "visitorID")
	if !ok {
		return
	}
	if err := c.Visitors.Delete(r.Context(), actor, id); err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// IssuePass godoc
// @Summary Issue a pass
// @Description Issue a new pass for a PENDING visitor. Fails with 409 while an unexpired, unused pass exists.
// @Tags passes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param visitorID path string true "Visitor ID"
// @Param body body IssuePassRequest true "Pass expiry"
// @Success 201 {object} controllers.PassSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request or validation_error"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Router /api/visitors/{visitorID}/passes [post]
func (c *VisitorController) IssuePass(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "visitorID")
	if !ok {
		return
	}
	var req IssuePassRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	pass, err := c.Passes.Issue(r.Context(), actor, id, req.ExpiryTime)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, pass)
}
