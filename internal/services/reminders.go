package services

import (
	"context"
	"fmt"
	"time"

	"github.com/localnerve/bizflow/internal/models"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

const reminderInterval = 24 * time.Hour

// Reminders warns clients about overdue payments on approved applications
type Reminders struct {
	db         *gorm.DB
	dispatcher *Dispatcher
	log        zerolog.Logger
	now        func() time.Time
}

// NewReminders creates the reminder sweep
func NewReminders(db *gorm.DB, dispatcher *Dispatcher, log zerolog.Logger) *Reminders {
	return &Reminders{
		db:         db,
		dispatcher: dispatcher,
		log:        log,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Schedule registers the sweep on c using a standard five-field cron spec
func (r *Reminders) Schedule(c *cron.Cron, spec string) (cron.EntryID, error) {
	return c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := r.Sweep(ctx); err != nil {
			r.log.Error().Err(err).Msg("payment reminder sweep failed")
		}
	})
}

// Sweep sends at most one reminder per payment per day and returns how many were sent.
// A payment is overdue when it is unpaid past its due date, or when any of its installments is.
func (r *Reminders) Sweep(ctx context.Context) (int, error) {
	now := r.now()
	db := r.db.WithContext(ctx)

	overdueInstallments := db.Session(&gorm.Session{NewDB: true}).
		Model(&models.Installment{}).
		Select("payment_id").
		Where("status IN ? AND due_date < ?",
			[]models.PaymentStatus{models.PaymentPending, models.PaymentRejected}, now)

	var payments []models.Payment
	err := db.
		Select("payments.*").
		Joins("JOIN applications ON applications.id = payments.application_id").
		Where("applications.status = ?", models.StatusApproved).
		Where("(payments.status IN ? AND payments.due_date < ?) OR payments.id IN (?)",
			[]models.PaymentStatus{models.PaymentPending, models.PaymentRejected}, now, overdueInstallments).
		Where("payments.last_reminded_at IS NULL OR payments.last_reminded_at < ?", now.Add(-reminderInterval)).
		Find(&payments).Error
	if err != nil {
		return 0, err
	}

	sent := 0
	for i := range payments {
		p := &payments[i]
		if _, err := r.dispatcher.Notify(ctx, Notice{
			UserID:  p.ClientID,
			Type:    models.NotifyWarning,
			Title:   "Payment overdue",
			Message: fmt.Sprintf("A payment of %s for your application is overdue", p.TotalAmount.StringFixed(2)),
			Event:   "payment_reminder",
			Payload: map[string]interface{}{
				"paymentId":     p.ID,
				"applicationId": p.ApplicationID,
				"dueDate":       p.DueDate,
			},
		}); err != nil {
			r.log.Error().Err(err).Str("payment_id", p.ID).Msg("failed to store payment reminder")
			continue
		}
		if err := db.Model(&models.Payment{}).Where("id = ?", p.ID).
			Update("last_reminded_at", now).Error; err != nil {
			r.log.Error().Err(err).Str("payment_id", p.ID).Msg("failed to stamp payment reminder")
		}
		PaymentReminders.Inc()
		sent++
	}

	if sent > 0 {
		r.log.Info().Int("sent", sent).Msg("payment reminders sent")
	}
	return sent, nil
}
