package services

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/localnerve/bizflow/internal/logging"
	"github.com/localnerve/bizflow/internal/models"
	"github.com/localnerve/bizflow/internal/testutil"
	"github.com/localnerve/bizflow/internal/types"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type memStore struct {
	mu    sync.Mutex
	files map[string][]byte
}

func (m *memStore) Save(_ context.Context, folder, filename string, r io.Reader) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if m.files == nil {
		m.files = map[string][]byte{}
	}
	url := "/uploads/" + folder + "/" + filename
	m.files[url] = b
	return url, nil
}

type emitted struct {
	Room  string
	Event string
	Data  interface{}
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []emitted
	err    error
}

func (e *recordingEmitter) Emit(room, event string, data interface{}) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, emitted{Room: room, Event: event, Data: data})
	return e.err
}

func (e *recordingEmitter) snapshot() []emitted {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]emitted(nil), e.events...)
}

type harness struct {
	db       *gorm.DB
	cast     testutil.Cast
	media    *memStore
	timeline *Timeline
	notify   *Dispatcher
	apps     *ApplicationService
	payments *PaymentService
	clock    time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := testutil.NewDB(t)
	h := &harness{
		db:    db,
		cast:  testutil.SeedCast(t, db),
		media: &memStore{},
		clock: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	h.timeline = NewTimeline(db)
	h.notify = NewDispatcher(db, nil, logging.Nop())
	h.apps = NewApplicationService(db, h.timeline, h.notify, h.media, logging.Nop())
	h.payments = NewPaymentService(db, h.timeline, h.notify, h.media, logging.Nop())
	h.apps.now = func() time.Time { return h.clock }
	h.payments.now = func() time.Time { return h.clock }
	return h
}

func identityOf(u *models.User) Identity {
	return Identity{ID: u.ID, Email: u.Email, Role: u.Role}
}

func (h *harness) client() Identity   { return identityOf(h.cast.Client) }
func (h *harness) other() Identity    { return identityOf(h.cast.Other) }
func (h *harness) employee() Identity { return identityOf(h.cast.Employee) }
func (h *harness) admin() Identity    { return identityOf(h.cast.Admin) }

func payload(t *testing.T, v interface{}) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

// submit creates a commercial application for the seeded client
func (h *harness) submit(t *testing.T) (*models.Application, *models.Payment) {
	t.Helper()
	app, payment, err := h.apps.Create(context.Background(), h.client(),
		payload(t, map[string]interface{}{"serviceType": "commercial"}), nil)
	require.NoError(t, err)
	return app, payment
}

// approved submits, assigns the employee and approves
func (h *harness) approved(t *testing.T) (*models.Application, *models.Payment) {
	t.Helper()
	app, payment := h.submit(t)
	_, err := h.apps.Assign(context.Background(), h.admin(), app.ID, AssignInput{EmployeeIDs: []string{h.cast.Employee.ID}})
	require.NoError(t, err)
	app, err = h.apps.Review(context.Background(), h.employee(), app.ID, ReviewInput{Action: "approve"})
	require.NoError(t, err)
	return app, payment
}

func (h *harness) reload(t *testing.T, id string) *models.Application {
	t.Helper()
	app, err := loadApplication(h.db, id, false)
	require.NoError(t, err)
	return app
}

func (h *harness) notifications(t *testing.T, userID, event string) []models.Notification {
	t.Helper()
	var out []models.Notification
	q := h.db.Where("user_id = ?", userID)
	if event != "" {
		q = q.Where("event = ?", event)
	}
	require.NoError(t, q.Order("created_at ASC").Find(&out).Error)
	return out
}

func payloadOf(t *testing.T, n models.Notification) map[string]interface{} {
	t.Helper()
	out := map[string]interface{}{}
	if len(n.Payload.JSON) > 0 {
		require.NoError(t, json.Unmarshal(n.Payload.JSON, &out))
	}
	return out
}

func (h *harness) timelineOf(t *testing.T, appID string) []models.TimelineEntry {
	t.Helper()
	entries, err := h.timeline.List(context.Background(), appID)
	require.NoError(t, err)
	return entries
}

func receiptUpload(name string) *Upload {
	return &Upload{Name: name, ContentType: "image/png", Size: 4, Reader: strings.NewReader("png!")}
}

func docUpload(name string) Upload {
	return Upload{Name: name, ContentType: "application/pdf", Size: 3, Reader: bytes.NewReader([]byte("pdf"))}
}

func requireAppError(t *testing.T, err error, code int, errType string) {
	t.Helper()
	require.Error(t, err)
	appErr, ok := types.AsAppError(err)
	require.True(t, ok, "not an AppError: %v", err)
	require.Equal(t, code, appErr.Code, appErr.Message)
	if errType != "" {
		require.Equal(t, errType, appErr.Type, appErr.Message)
	}
}
