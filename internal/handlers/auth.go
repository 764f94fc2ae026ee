package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/bizflow/internal/services"
	"github.com/localnerve/bizflow/internal/utils"
)

// AuthHandler handles registration, login and the current user
type AuthHandler struct {
	Users *services.UserService
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register handles POST /api/auth/register
// @Summary Register a client account
// @Description Create a client account and return a bearer token
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body services.RegisterInput true "Account details"
// @Success 201 {object} utils.SuccessResponseStruct{data=services.AuthResult}
// @Failure 400 {object} utils.ErrorResponseStruct
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var in services.RegisterInput
	if err := bindJSON(c, &in); err != nil {
		return err
	}
	result, err := h.Users.Register(c.UserContext(), in)
	if err != nil {
		return err
	}
	return utils.Created(c, "Account created", result)
}

// Login handles POST /api/auth/login
// @Summary Log in
// @Description Exchange email and password for a bearer token
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body loginRequest true "Credentials"
// @Success 200 {object} utils.SuccessResponseStruct{data=services.AuthResult}
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 401 {object} utils.ErrorResponseStruct
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var in loginRequest
	if err := bindJSON(c, &in); err != nil {
		return err
	}
	result, err := h.Users.Login(c.UserContext(), in.Email, in.Password)
	if err != nil {
		return err
	}
	return utils.OK(c, "Logged in", result)
}

// Me handles GET /api/auth/me
// @Summary Current user
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} utils.SuccessResponseStruct{data=models.User}
// @Failure 401 {object} utils.ErrorResponseStruct
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	caller, err := identity(c)
	if err != nil {
		return err
	}
	user, err := h.Users.Get(c.UserContext(), caller.ID)
	if err != nil {
		return err
	}
	return utils.OK(c, "OK", user)
}
