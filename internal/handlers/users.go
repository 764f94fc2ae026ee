package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/bizflow/internal/services"
	"github.com/localnerve/bizflow/internal/utils"
)

// UserHandler handles account administration and self-service profile routes
type UserHandler struct {
	Users *services.UserService
}

// List handles GET /api/users
// @Summary List users
// @Description Admin only; filter by role
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param role query string false "client, employee or admin"
// @Param page query int false "Page (1-based)"
// @Param limit query int false "Page size (max 100)"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Router /users [get]
func (h *UserHandler) List(c *fiber.Ctx) error {
	caller, err := identity(c)
	if err != nil {
		return err
	}
	result, err := h.Users.List(c.UserContext(), caller, c.Query("role"), parsePage(c))
	if err != nil {
		return err
	}
	return utils.OK(c, "OK", result)
}

// Create handles POST /api/users
// @Summary Create a user
// @Description Admin only; creates employees, admins or clients
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.CreateUserInput true "Account details"
// @Success 201 {object} utils.SuccessResponseStruct{data=models.User}
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Router /users [post]
func (h *UserHandler) Create(c *fiber.Ctx) error {
	caller, err := identity(c)
	if err != nil {
		return err
	}
	var in services.CreateUserInput
	if err := bindJSON(c, &in); err != nil {
		return err
	}
	user, err := h.Users.CreateUser(c.UserContext(), caller, in)
	if err != nil {
		return err
	}
	return utils.Created(c, "User created", user)
}

// UpdateMe handles PATCH /api/users/me
// @Summary Update own profile
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.ProfileInput true "Profile fields"
// @Success 200 {object} utils.SuccessResponseStruct{data=models.User}
// @Failure 400 {object} utils.ErrorResponseStruct
// @Router /users/me [patch]
func (h *UserHandler) UpdateMe(c *fiber.Ctx) error {
	caller, err := identity(c)
	if err != nil {
		return err
	}
	var in services.ProfileInput
	if err := bindJSON(c, &in); err != nil {
		return err
	}
	user, err := h.Users.UpdateProfile(c.UserContext(), caller, in)
	if err != nil {
		return err
	}
	return utils.OK(c, "Profile updated", user)
}

// ChangePassword handles PATCH /api/users/me/password
// @Summary Change own password
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.PasswordInput true "Current and new password"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Router /users/me/password [patch]
func (h *UserHandler) ChangePassword(c *fiber.Ctx) error {
	caller, err := identity(c)
	if err != nil {
		return err
	}
	var in services.PasswordInput
	if err := bindJSON(c, &in); err != nil {
		return err
	}
	if err := h.Users.ChangePassword(c.UserContext(), caller, in); err != nil {
		return err
	}
	return utils.OK(c, "Password changed", nil)
}

// Delete handles DELETE /api/users/:id
// @Summary Delete a user
// @Description Admin only; deleting a client removes their applications, payments, documents, tasks, messages and tickets
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} utils.SuccessResponseStruct{data=services.DeleteCounts}
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /users/{id} [delete]
func (h *UserHandler) Delete(c *fiber.Ctx) error {
	caller, err := identity(c)
	if err != nil {
		return err
	}
	counts, err := h.Users.DeleteUser(c.UserContext(), caller, c.Params("id"))
	if err != nil {
		return err
	}
	return utils.OK(c, "User deleted", counts)
}
