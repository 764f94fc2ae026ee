package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/bizflow/internal/config"
	"github.com/localnerve/bizflow/internal/models"
	"github.com/localnerve/bizflow/internal/services"
	"github.com/localnerve/bizflow/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp(handlers ...fiber.Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if appErr, ok := types.AsAppError(err); ok {
				return c.Status(appErr.Code).SendString(appErr.Type)
			}
			return c.Status(fiber.StatusInternalServerError).SendString(err.Error())
		},
	})
	handlers = append(handlers, func(c *fiber.Ctx) error {
		id, _ := CurrentIdentity(c)
		version, _ := c.Locals("apiVersion").(string)
		return c.SendString(string(id.Role) + "|" + version)
	})
	app.Get("/", handlers...)
	return app
}

func get(t *testing.T, app *fiber.App, headers map[string]string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	buf := make([]byte, 256)
	n, _ := resp.Body.Read(buf)
	return resp.StatusCode, string(buf[:n])
}

func TestVersionMiddleware(t *testing.T) {
	app := newApp(VersionMiddleware())

	_, body := get(t, app, nil)
	assert.Equal(t, "|1.0.0", body)

	_, body = get(t, app, map[string]string{"X-Api-Version": "1"})
	assert.Equal(t, "|1.0.0", body)

	_, body = get(t, app, map[string]string{"X-Api-Version": "2.1.0"})
	assert.Equal(t, "|2.1.0", body)
}

func TestAuthenticateBearer(t *testing.T) {
	tokens := services.NewTokenService("secret", time.Hour)
	app := newApp(Authenticate(&config.Config{}, tokens, nil), AuthStaff())

	employee := &models.User{Base: models.Base{ID: "0d9c8b7a-1111-4222-8333-944455556666"}, Email: "e@example.com", Role: models.RoleEmployee}
	client := &models.User{Base: models.Base{ID: "0d9c8b7a-1111-4222-8333-944455556667"}, Email: "c@example.com", Role: models.RoleClient}

	staffToken, _, err := tokens.Issue(employee)
	require.NoError(t, err)
	clientToken, _, err := tokens.Issue(client)
	require.NoError(t, err)

	status, body := get(t, app, map[string]string{"Authorization": "Bearer " + staffToken})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "employee|", body)

	status, body = get(t, app, map[string]string{"Authorization": "Bearer " + clientToken})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "authorization", body)

	status, _ = get(t, app, map[string]string{"Authorization": "Token " + staffToken})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = get(t, app, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestCookieIgnoredWithoutAuthorizer(t *testing.T) {
	app := newApp(Authenticate(&config.Config{}, services.NewTokenService("secret", time.Hour), nil))
	status, _ := get(t, app, map[string]string{"Cookie": "cookie_session=abc"})
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestCookieWithUnreachableAuthorizer(t *testing.T) {
	cfg := &config.Config{AuthzURL: "http://127.0.0.1:1", AuthzClientID: "bizflow"}
	app := newApp(Authenticate(cfg, services.NewTokenService("secret", time.Hour), nil))

	// first request fails the authorizer ping, later ones find no client
	for i := 0; i < 2; i++ {
		status, body := get(t, app, map[string]string{"Cookie": "cookie_session=abc"})
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, "authentication", body)
	}
}

func TestRequireRolesWithoutIdentity(t *testing.T) {
	app := newApp(AuthAdmin())
	status, body := get(t, app, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "authentication", body)
}

func TestRequestID(t *testing.T) {
	app := fiber.New()
	app.Use(RequestID())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString(c.Locals("requestId").(string)) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "not-a-uuid")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.NotEqual(t, "not-a-uuid", resp.Header.Get(HeaderRequestID))
	assert.Len(t, resp.Header.Get(HeaderRequestID), 36)
}
