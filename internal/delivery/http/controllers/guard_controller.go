package controllers

import (
	"context"
	"log/slog"
	"net/http"

	"visitorpass/internal/delivery/http/helpers"
	"visitorpass/internal/domain"
)

// RedemptionSuccessResponse wraps a successful scan.
type RedemptionSuccessResponse struct {
	Data  *domain.Redemption `json:"data"`
	Error *helpers.APIError  `json:"error"`
}

// DailyStatsSuccessResponse wraps today's counters.
type DailyStatsSuccessResponse struct {
	Data  *domain.DailyStats `json:"data"`
	Error *helpers.APIError  `json:"error"`
}

// VisitorDetailsSuccessResponse wraps visitors bundled with their passes.
type VisitorDetailsSuccessResponse struct {
	Data  []*domain.VisitorWithPasses `json:"data"`
	Error *helpers.APIError           `json:"error"`
}

// GuardController serves the gate desk: walk-in registration, scans and today's board.
type GuardController struct {
	Logger   *slog.Logger
	Visitors domain.VisitorService
	Passes   domain.PassService
}

func NewGuardController(logger *slog.Logger, visitors domain.VisitorService, passes domain.PassService) *GuardController {
	return &GuardController{
		Logger:   logger,
		Visitors: visitors,
		Passes:   passes,
	}
}

// CreateVisitor godoc
// @Summary Register a walk-in visitor
// @Description The guard is recorded as the creator. When expiry_time is given a pass is issued.
// @Tags guard
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CreateVisitorRequest true "Visitor data"
// @Success 201 {object} controllers.CreatedVisitorSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request or validation_error"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Router /api/guard/visitors [post]
func (c *GuardController) CreateVisitor(w http.ResponseWriter, r *http.Request) {
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

// PendingCreatedByMe godoc
// @Summary Pending walk-ins registered by me
// @Tags guard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} controllers.VisitorDetailsSuccessResponse
// @Router /api/guard/visitors/pending [get]
func (c *GuardController) PendingCreatedByMe(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	visitors, err := c.Visitors.ListPendingCreatedBy(r.Context(), actor)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, visitors)
}

// TodaysPending godoc
// @Summary Visitors registered today and still pending
// @Tags guard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} controllers.VisitorsSuccessResponse
// @Router /api/guard/visitors/today/pending [get]
func (c *GuardController) TodaysPending(w http.ResponseWriter, r *http.Request) {
	c.writeVisitors(w, r, c.Visitors.ListTodaysPending)
}

// TodaysApproved godoc
// @Summary Visitors admitted today
// @Tags guard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} controllers.VisitorsSuccessResponse
// @Router /api/guard/visitors/today/approved [get]
func (c *GuardController) TodaysApproved(w http.ResponseWriter, r *http.Request) {
	c.writeVisitors(w, r, c.Visitors.ListTodaysApproved)
}

// ApprovedByHost godoc
// @Summary Approved visitors of one host
// @Tags guard
// @Produce json
// @Security BearerAuth
// @Param hostID path string true "Host user ID"
// @Success 200 {object} controllers.VisitorsSuccessResponse
// @Router /api/guard/hosts/{hostID}/visitors [get]
func (c *GuardController) ApprovedByHost(w http.ResponseWriter, r *http.Request) {
	hostID, ok := pathID(w, r, "hostID")
	if !ok {
		return
	}
	c.writeVisitors(w, r, func(ctx context.Context, actor domain.Actor) ([]*domain.Visitor, error) {
		return c.Visitors.ListApprovedByHost(ctx, actor, hostID)
	})
}

// Stats godoc
// @Summary Today's visitor counters
// @Tags guard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} controllers.DailyStatsSuccessResponse
// @Router /api/guard/stats/today [get]
func (c *GuardController) Stats(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	stats, err := c.Visitors.DailyStats(r.Context(), actor)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, stats)
}

// Scan godoc
// @Summary Scan a pass at the gate
// @Description Consumes the pass. A valid pass admits the visitor; an expired pass checks the visitor out and answers 400 pass_expired.
// @Tags guard
// @Produce json
// @Security BearerAuth
// @Param passID path string true "Pass ID"
// @Success 200 {object} controllers.RedemptionSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: pass_expired"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: already_processed or already_approved"
// @Router /api/guard/scan/{passID} [post]
func (c *GuardController) Scan(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	passID, ok := pathID(w, r, "passID")
	if !ok {
		return
	}
	result, err := c.Passes.Redeem(r.Context(), actor, passID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, result)
}

// ScanHistory godoc
// @Summary Passes I have scanned
// @Tags guard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} controllers.PassesSuccessResponse
// @Router /api/guard/scan/history [get]
func (c *GuardController) ScanHistory(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	passes, err := c.Passes.ScanHistory(r.Context(), actor)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, passes)
}

func (c *GuardController) writeVisitors(w http.ResponseWriter, r *http.Request, list func(context.Context, domain.Actor) ([]*domain.Visitor, error)) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	visitors, err := list(r.Context(), actor)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, visitors)
}
