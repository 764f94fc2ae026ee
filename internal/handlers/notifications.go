package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/bizflow/internal/services"
	"github.com/localnerve/bizflow/internal/utils"
)

// NotificationHandler serves the persisted notification inbox
type NotificationHandler struct {
	Dispatcher *services.Dispatcher
}

// List handles GET /api/notifications/:userId
// @Summary List notifications
// @Description Newest first with the unread count; users read their own, admins anyone's
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Param userId path string true "User ID"
// @Param unread query bool false "Only unread"
// @Param page query int false "Page (1-based)"
// @Param limit query int false "Page size (max 100)"
// @Success 200 {object} utils.SuccessResponseStruct{data=services.NotificationList}
// @Failure 403 {object} utils.ErrorResponseStruct
// @Router /notifications/{userId} [get]
func (h *NotificationHandler) List(c *fiber.Ctx) error {
	caller, err := identity(c)
	if err != nil {
		return err
	}
	list, err := h.Dispatcher.List(c.UserContext(), caller, c.Params("userId"), c.QueryBool("unread", false), parsePage(c))
	if err != nil {
		return err
	}
	return utils.OK(c, "OK", list)
}

// MarkRead handles PATCH /api/notifications/:id/read
// @Summary Mark one notification read
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Param id path string true "Notification ID"
// @Success 200 {object} utils.SuccessResponseStruct{data=models.Notification}
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /notifications/{id}/read [patch]
func (h *NotificationHandler) MarkRead(c *fiber.Ctx) error {
	caller, err := identity(c)
	if err != nil {
		return err
	}
	n, err := h.Dispatcher.MarkRead(c.UserContext(), caller, c.Params("id"))
	if err != nil {
		return err
	}
	return utils.OK(c, "Notification marked as read", n)
}

// MarkAllRead handles PATCH /api/notifications/read-all
// @Summary Mark all notifications read
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} utils.SuccessResponseStruct
// @Router /notifications/read-all [patch]
func (h *NotificationHandler) MarkAllRead(c *fiber.Ctx) error {
	caller, err := identity(c)
	if err != nil {
		return err
	}
	updated, err := h.Dispatcher.MarkAllRead(c.UserContext(), caller)
	if err != nil {
		return err
	}
	return utils.OK(c, "All notifications marked as read", fiber.Map{"updated": updated})
}

// Delete handles DELETE /api/notifications/:id
// @Summary Delete a notification
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Param id path string true "Notification ID"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /notifications/{id} [delete]
func (h *NotificationHandler) Delete(c *fiber.Ctx) error {
	caller, err := identity(c)
	if err != nil {
		return err
	}
	if err := h.Dispatcher.Delete(c.UserContext(), caller, c.Params("id")); err != nil {
		return err
	}
	return utils.OK(c, "Notification deleted", nil)
}
