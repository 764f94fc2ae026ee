package services

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/localnerve/bizflow/internal/logging"
	"github.com/localnerve/bizflow/internal/models"
	"github.com/localnerve/bizflow/internal/realtime"
	"github.com/localnerve/bizflow/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestNotifyDefaultsAndPersists(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	n, err := h.notify.Notify(ctx, Notice{
		UserID:  h.cast.Client.ID,
		Title:   "Hello",
		Message: "World",
		Payload: map[string]interface{}{"applicationId": "abc"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, n.ID)
	assert.Equal(t, models.NotifyInfo, n.Type)
	assert.Equal(t, models.PriorityNormal, n.Priority)
	assert.False(t, n.Read)

	stored := h.notifications(t, h.cast.Client.ID, "")
	require.Len(t, stored, 1)
	assert.Equal(t, "abc", payloadOf(t, stored[0])["applicationId"])
}

func TestNotifyAllDeduplicates(t *testing.T) {
	h := newHarness(t)
	sent := h.notify.NotifyAll(context.Background(),
		[]string{h.cast.Client.ID, h.cast.Admin.ID, h.cast.Client.ID, ""},
		Notice{Title: "x", Event: "status_update_notification"})
	assert.Equal(t, 2, sent)
	assert.Len(t, h.notifications(t, h.cast.Client.ID, ""), 1)
}

func TestListMarkReadDelete(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	var ids []string
	for i := 0; i < 3; i++ {
		n, err := h.notify.Notify(ctx, Notice{UserID: h.cast.Client.ID, Title: "n"})
		require.NoError(t, err)
		ids = append(ids, n.ID)
	}

	list, err := h.notify.List(ctx, h.client(), h.cast.Client.ID, false, Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), list.Total)
	assert.Equal(t, int64(3), list.UnreadCount)

	_, err = h.notify.List(ctx, h.other(), h.cast.Client.ID, false, Page{})
	requireAppError(t, err, http.StatusForbidden, "")

	_, err = h.notify.List(ctx, h.admin(), h.cast.Client.ID, false, Page{})
	require.NoError(t, err)

	_, err = h.notify.MarkRead(ctx, h.other(), ids[0])
	requireAppError(t, err, http.StatusForbidden, "")

	read, err := h.notify.MarkRead(ctx, h.client(), ids[0])
	require.NoError(t, err)
	assert.True(t, read.Read)
	require.NotNil(t, read.ReadAt)

	again, err := h.notify.MarkRead(ctx, h.client(), ids[0])
	require.NoError(t, err)
	assert.Equal(t, read.ReadAt.Unix(), again.ReadAt.Unix())

	unread, err := h.notify.List(ctx, h.client(), h.cast.Client.ID, true, Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), unread.Total)
	assert.Len(t, unread.Notifications, 2)
	assert.Equal(t, int64(2), unread.UnreadCount)

	updated, err := h.notify.MarkAllRead(ctx, h.client())
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated)

	updated, err = h.notify.MarkAllRead(ctx, h.client())
	require.NoError(t, err)
	assert.Zero(t, updated)

	require.NoError(t, h.notify.Delete(ctx, h.client(), ids[1]))
	err = h.notify.Delete(ctx, h.client(), ids[1])
	requireAppError(t, err, http.StatusNotFound, "not_found")

	err = h.notify.Delete(ctx, h.client(), "garbage")
	requireAppError(t, err, http.StatusNotFound, "not_found")

	list, err = h.notify.List(ctx, h.client(), h.cast.Client.ID, false, Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), list.Total)
	assert.Zero(t, list.UnreadCount)
}

func TestHighPriorityDeliveryUsesContactSettings(t *testing.T) {
	db := testutil.NewDB(t)
	cast := testutil.SeedCast(t, db)
	require.NoError(t, db.Model(cast.Client).Updates(map[string]interface{}{
		"phone": "+15550100",
		"settings": datatypes.NewJSONType(models.UserSettings{
			EmailNotifications: true,
			SMSNotifications:   true,
			Language:           "en",
		}),
	}).Error)

	emitter := &recordingEmitter{}
	email := &fakeEmail{}
	sms := &fakeSMS{}
	outbox := NewOutbox(8, emitter, email, sms, logging.Nop())
	outbox.Start()
	d := NewDispatcher(db, outbox, logging.Nop())

	ctx := context.Background()
	_, err := d.Notify(ctx, Notice{UserID: cast.Client.ID, Title: "Approved", Message: "yes", Priority: models.PriorityHigh, Event: "status_update_notification"})
	require.NoError(t, err)
	_, err = d.Notify(ctx, Notice{UserID: cast.Other.ID, Title: "Routine", Message: "fyi"})
	require.NoError(t, err)

	closeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, outbox.Close(closeCtx))

	assert.Equal(t, []string{cast.Client.Email}, email.sent())
	assert.Equal(t, []string{"+15550100"}, sms.sent())

	events := emitter.snapshot()
	require.Len(t, events, 3)
	assert.Equal(t, realtime.UserRoom(cast.Client.ID), events[0].Room)
	assert.Equal(t, "notification", events[0].Event)
	assert.Equal(t, "status_update_notification", events[1].Event)
	assert.Equal(t, realtime.UserRoom(cast.Other.ID), events[2].Room)
}
