package services

import (
	"context"
	"testing"
	"time"

	"github.com/localnerve/bizflow/internal/logging"
	"github.com/localnerve/bizflow/internal/models"
	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (h *harness) reminders(at *time.Time) *Reminders {
	r := NewReminders(h.db, h.notify, logging.Nop())
	r.now = func() time.Time { return *at }
	return r
}

func TestSweepRemindsOverdueApprovedPayments(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, pending := h.approved(t)
	h.submit(t) // still submitted, never reminded

	at := h.clock.AddDate(0, 0, 10)
	r := h.reminders(&at)

	sent, err := r.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, sent, "not yet due")

	at = pending.DueDate.Add(time.Hour)
	sent, err = r.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	n := h.notifications(t, h.cast.Client.ID, "payment_reminder")
	require.Len(t, n, 1)
	assert.Equal(t, models.NotifyWarning, n[0].Type)
	assert.Equal(t, pending.ID, payloadOf(t, n[0])["paymentId"])

	at = at.Add(2 * time.Hour)
	sent, err = r.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, sent, "one reminder per day")

	at = at.Add(25 * time.Hour)
	sent, err = r.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Len(t, h.notifications(t, h.cast.Client.ID, "payment_reminder"), 2)
}

func TestSweepRemindsOverdueInstallments(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, pending := h.approved(t)

	payment, err := h.payments.Submit(ctx, h.client(), pending.ID, SubmitPaymentInput{
		Plan:    models.PlanInstallments,
		Receipt: receiptUpload("first.png"),
	})
	require.NoError(t, err)
	require.Len(t, payment.Installments, 3)

	at := payment.Installments[1].DueDate.Add(-time.Hour)
	r := h.reminders(&at)
	sent, err := r.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, sent)

	at = payment.Installments[1].DueDate.Add(time.Hour)
	sent, err = r.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
}

func TestSweepSkipsSettledPayments(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	app, pending := h.approved(t)
	_, _, err := h.apps.MakePayment(ctx, h.client(), app.ID, MakePaymentInput{})
	require.NoError(t, err)

	at := pending.DueDate.AddDate(0, 1, 0)
	sent, err := h.reminders(&at).Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, sent)
}

func TestScheduleRegistersCronEntry(t *testing.T) {
	h := newHarness(t)
	at := h.clock
	c := cron.New()

	id, err := h.reminders(&at).Schedule(c, "0 9 * * *")
	require.NoError(t, err)
	assert.NotZero(t, id)
	assert.Len(t, c.Entries(), 1)

	_, err = h.reminders(&at).Schedule(c, "not a schedule")
	assert.Error(t, err)
}
