package controllers

import (
	"log/slog"
	"net/http"

	"visitorpass/internal/delivery/http/helpers"
	"visitorpass/internal/domain"
)

// NotificationsSuccessResponse is the success response envelope for GET /api/notifications (200).
type NotificationsSuccessResponse struct {
	Data  []*domain.Notification `json:"data"`
	Error *helpers.APIError      `json:"error"`
}

// NotificationSuccessResponse wraps a single notification.
type NotificationSuccessResponse struct {
	Data  *domain.Notification `json:"data"`
	Error *helpers.APIError    `json:"error"`
}

type NotificationController struct {
	Logger  *slog.Logger
	Service domain.NotificationService
}

func NewNotificationController(logger *slog.Logger, svc domain.NotificationService) *NotificationController {
	return &NotificationController{Logger: logger, Service: svc}
}

// List godoc
// @Summary List my notifications
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Param unread query bool false "Only unread notifications"
// @Success 200 {object} controllers.NotificationsSuccessResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Router /api/notifications [get]
func (c *NotificationController) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	notes, err := c.Service.ListMine(r.Context(), actor, helpers.ParseBoolParam(r, "unread"))
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, notes)
}

// MarkRead godoc
// @Summary Mark a notification read
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Param notificationID path string true "Notification ID"
// @Success 200 {object} controllers.NotificationSuccessResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /api/notifications/{notificationID}/read [put]
func (c *NotificationController) MarkRead(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "notificationID")
	if !ok {
		return
	}
	note, err := c.Service.MarkRead(r.Context(), actor, id)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, note)
}
