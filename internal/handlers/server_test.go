package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/bizflow/internal/config"
	"github.com/localnerve/bizflow/internal/logging"
	"github.com/localnerve/bizflow/internal/models"
	"github.com/localnerve/bizflow/internal/services"
	"github.com/localnerve/bizflow/internal/storage"
	"github.com/localnerve/bizflow/internal/testutil"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type server struct {
	app    *fiber.App
	db     *gorm.DB
	cast   testutil.Cast
	tokens *services.TokenService
	root   string
}

func newServer(t *testing.T) *server {
	t.Helper()
	db := testutil.NewDB(t)
	root := t.TempDir()
	media, err := storage.NewDiskStore(root, "/uploads")
	require.NoError(t, err)

	cfg := &config.Config{AppEnv: "test", DBType: "sqlite", JWTSecret: "test-secret", TokenTTL: time.Hour}
	tokens := services.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	timeline := services.NewTimeline(db)
	dispatcher := services.NewDispatcher(db, nil, logging.Nop())

	app := NewApp(false)
	Register(app, Deps{
		Config:     cfg,
		DB:         db,
		Tokens:     tokens,
		Users:      services.NewUserService(db, tokens, logging.Nop()).WithHashCost(bcrypt.MinCost),
		Apps:       services.NewApplicationService(db, timeline, dispatcher, media, logging.Nop()),
		Payments:   services.NewPaymentService(db, timeline, dispatcher, media, logging.Nop()),
		Dispatcher: dispatcher,
	})
	app.Use(NotFound)

	return &server{app: app, db: db, cast: testutil.SeedCast(t, db), tokens: tokens, root: root}
}

func (s *server) token(t *testing.T, u *models.User) string {
	t.Helper()
	signed, _, err := s.tokens.Issue(u)
	require.NoError(t, err)
	return signed
}

func (s *server) send(t *testing.T, req *http.Request, as *models.User) *http.Response {
	t.Helper()
	if as != nil {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+s.token(t, as))
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

// do sends body as JSON; a nil body sends none
func (s *server) do(t *testing.T, method, path string, body interface{}, as *models.User) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	return s.send(t, req, as)
}

// expect sends a JSON request and returns the decoded envelope after checking the status
func (s *server) expect(t *testing.T, status int, method, path string, body interface{}, as *models.User) map[string]interface{} {
	t.Helper()
	resp := s.do(t, method, path, body, as)
	testutil.AssertStatus(t, resp, status)
	return testutil.ParseJSON(t, resp)
}

type formFile struct {
	field, name string
	content     []byte
}

func (s *server) multipart(t *testing.T, method, path string, fields map[string]string, files []formFile, as *models.User) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		part, err := w.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = part.Write(f.content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(fiber.HeaderContentType, w.FormDataContentType())
	return s.send(t, req, as)
}

// createApplication submits a commercial application as the seeded client and returns its id and payment id
func (s *server) createApplication(t *testing.T) (string, string) {
	t.Helper()
	env := s.expect(t, http.StatusCreated, http.MethodPost, "/api/applications",
		map[string]interface{}{"serviceType": "commercial"}, s.cast.Client)
	data := testutil.Data(t, env)
	app := data["application"].(map[string]interface{})
	payment := data["payment"].(map[string]interface{})
	return app["id"].(string), payment["id"].(string)
}

// approveApplication assigns the seeded employee and approves
func (s *server) approveApplication(t *testing.T, id string) {
	t.Helper()
	s.expect(t, http.StatusOK, http.MethodPatch, "/api/applications/"+id+"/assign",
		map[string]interface{}{"employeeIds": s.cast.Employee.ID}, s.cast.Admin)
	s.expect(t, http.StatusOK, http.MethodPatch, "/api/applications/"+id+"/review",
		map[string]interface{}{"action": "approve"}, s.cast.Employee)
}
