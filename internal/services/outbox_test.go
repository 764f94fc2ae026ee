package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/localnerve/bizflow/internal/logging"
	"github.com/localnerve/bizflow/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmail struct {
	mu  sync.Mutex
	to  []string
	err error
}

func (f *fakeEmail) SendEmail(_ context.Context, to, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.to = append(f.to, to)
	return f.err
}

func (f *fakeEmail) sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.to...)
}

type fakeSMS struct {
	mu     sync.Mutex
	phones []string
}

func (f *fakeSMS) SendSMS(_ context.Context, phone, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.phones = append(f.phones, phone)
	return nil
}

func (f *fakeSMS) sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.phones...)
}

func delivery(id string, priority models.Priority) Delivery {
	return Delivery{Notification: models.Notification{ID: id, UserID: "u-" + id, Priority: priority}}
}

func TestOutboxDropsWhenFull(t *testing.T) {
	o := NewOutbox(2, &recordingEmitter{}, nil, nil, logging.Nop())

	assert.True(t, o.Enqueue(delivery("1", models.PriorityNormal)))
	assert.True(t, o.Enqueue(delivery("2", models.PriorityNormal)))
	assert.False(t, o.Enqueue(delivery("3", models.PriorityNormal)))
}

func TestOutboxCloseDrainsQueue(t *testing.T) {
	emitter := &recordingEmitter{}
	o := NewOutbox(16, emitter, nil, nil, logging.Nop())
	for i := 0; i < 10; i++ {
		require.True(t, o.Enqueue(delivery(string(rune('a'+i)), models.PriorityNormal)))
	}
	o.Start()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, o.Close(ctx))
	assert.Len(t, emitter.snapshot(), 10)

	assert.False(t, o.Enqueue(delivery("late", models.PriorityNormal)))
	require.NoError(t, o.Close(ctx), "close is idempotent")
}

func TestOutboxCloseHonorsContext(t *testing.T) {
	o := NewOutbox(1, &recordingEmitter{}, nil, nil, logging.Nop())
	require.True(t, o.Enqueue(delivery("1", models.PriorityNormal)))

	// never started, so nothing drains
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, o.Close(ctx), context.Canceled)
}

func TestOutboxFailuresDoNotStopDelivery(t *testing.T) {
	emitter := &recordingEmitter{err: errors.New("socket gone")}
	email := &fakeEmail{err: errors.New("ses throttled")}
	o := NewOutbox(4, emitter, email, nil, logging.Nop())
	o.Start()

	first := delivery("1", models.PriorityHigh)
	first.Email = "a@example.com"
	second := delivery("2", models.PriorityHigh)
	second.Email = "b@example.com"
	require.True(t, o.Enqueue(first))
	require.True(t, o.Enqueue(second))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, o.Close(ctx))

	assert.Equal(t, []string{"a@example.com", "b@example.com"}, email.sent())
	assert.Len(t, emitter.snapshot(), 2)
}

func TestOutboxSkipsSideChannelsForNormalPriority(t *testing.T) {
	email := &fakeEmail{}
	sms := &fakeSMS{}
	o := NewOutbox(4, &recordingEmitter{}, email, sms, logging.Nop())
	o.Start()

	d := delivery("1", models.PriorityNormal)
	d.Email = "a@example.com"
	d.Phone = "+15550100"
	require.True(t, o.Enqueue(d))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, o.Close(ctx))

	assert.Empty(t, email.sent())
	assert.Empty(t, sms.sent())
}

func TestOutboxSemanticEventCarriesNotification(t *testing.T) {
	emitter := &recordingEmitter{}
	o := NewOutbox(4, emitter, nil, nil, logging.Nop())
	o.Start()

	payload, err := models.NewJSON(map[string]string{"applicationId": "a1"})
	require.NoError(t, err)
	d := delivery("n1", models.PriorityNormal)
	d.Notification.Title = "Application rejected"
	d.Notification.Message = "Missing passport copy"
	d.Notification.Event = "status_update_notification"
	d.Notification.Payload = payload
	require.True(t, o.Enqueue(d))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, o.Close(ctx))

	events := emitter.snapshot()
	require.Len(t, events, 2)
	assert.Equal(t, "notification", events[0].Event)
	assert.Equal(t, "status_update_notification", events[1].Event)

	for _, e := range events {
		raw, err := json.Marshal(e.Data)
		require.NoError(t, err)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(raw, &body))

		assert.Equal(t, "user:u-n1", e.Room)
		assert.Equal(t, "n1", body["id"])
		assert.Equal(t, "Application rejected", body["title"])
		assert.Equal(t, "Missing passport copy", body["message"])
		assert.Equal(t, map[string]interface{}{"applicationId": "a1"}, body["payload"])
	}
}
