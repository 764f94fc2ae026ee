// payment_service.go
//
// Business process backend for immigration and company formation services
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of bizflow.
// bizflow is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// bizflow is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with bizflow.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/localnerve/bizflow/internal/models"
	"github.com/localnerve/bizflow/internal/storage"
	"github.com/localnerve/bizflow/internal/types"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// installmentCount is the fixed number of parts in the installments plan
const installmentCount = 3

// SubmitPaymentInput chooses a plan and carries the first receipt
type SubmitPaymentInput struct {
	Plan    models.PaymentPlan
	Receipt *Upload
}

// VerifyInput approves or rejects a submitted payment or installment
type VerifyInput struct {
	Action string `json:"action"`
	Reason string `json:"reason"`
}

// PaymentFilter narrows the admin payment listing
type PaymentFilter struct {
	Status string
	Page   Page
}

// PaymentService runs the receipt submission and admin verification flow
type PaymentService struct {
	db         *gorm.DB
	timeline   *Timeline
	dispatcher *Dispatcher
	media      storage.MediaStore
	log        zerolog.Logger
	now        func() time.Time
}

// NewPaymentService creates the payment verification service
func NewPaymentService(db *gorm.DB, timeline *Timeline, dispatcher *Dispatcher, media storage.MediaStore, log zerolog.Logger) *PaymentService {
	return &PaymentService{
		db:         db,
		timeline:   timeline,
		dispatcher: dispatcher,
		media:      media,
		log:        log,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func parseVerifyAction(input VerifyInput) (models.PaymentStatus, string, error) {
	reason := strings.TrimSpace(input.Reason)
	switch strings.ToLower(strings.TrimSpace(input.Action)) {
	case "approve":
		return models.PaymentApproved, reason, nil
	case "reject":
		if reason == "" {
			return "", "", types.Validation("validation.reason", "A rejection reason is required",
				map[string]string{"reason": "required when rejecting"})
		}
		return models.PaymentRejected, reason, nil
	default:
		return "", "", types.Validation("validation.action", "Action must be approve or reject",
			map[string]string{"action": "must be approve or reject"})
	}
}

func (s *PaymentService) saveReceipt(ctx context.Context, receipt *Upload) (string, error) {
	if receipt == nil || receipt.Reader == nil {
		return "", types.Validation("validation.receipt", "A receipt file is required",
			map[string]string{"receipt": "required"})
	}
	url, err := s.media.Save(ctx, "receipts", receipt.Name, receipt.Reader)
	if err != nil {
		return "", types.Internal("store receipt", err)
	}
	return url, nil
}

// ownedPayment loads a payment and its application for the owning client
func ownedPayment(tx *gorm.DB, caller Identity, id string, lock bool) (*models.Payment, *models.Application, error) {
	payment, err := loadPayment(tx, id, lock)
	if err != nil {
		return nil, nil, err
	}
	app, err := loadApplication(tx, payment.ApplicationID, false)
	if err != nil {
		return nil, nil, err
	}
	if payment.ClientID != caller.ID {
		return nil, nil, types.Forbidden("Only the owning client can submit this payment")
	}
	return payment, app, nil
}

// Submit records the chosen plan and the first receipt on a pending payment
func (s *PaymentService) Submit(ctx context.Context, caller Identity, id string, input SubmitPaymentInput) (*models.Payment, error) {
	if !input.Plan.Valid() {
		return nil, types.Validation("validation.plan", "Plan must be full or installments",
			map[string]string{"plan": "must be full or installments"})
	}

	db := s.db.WithContext(ctx)
	payment, app, err := ownedPayment(db, caller, id, false)
	if err != nil {
		return nil, err
	}
	if err := checkSubmittable(payment, app); err != nil {
		return nil, err
	}

	receiptURL, err := s.saveReceipt(ctx, input.Receipt)
	if err != nil {
		return nil, err
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		var err error
		if payment, app, err = ownedPayment(tx, caller, id, true); err != nil {
			return err
		}
		if err := checkSubmittable(payment, app); err != nil {
			return err
		}

		now := s.now()
		if len(payment.Installments) > 0 {
			if err := tx.Where("payment_id = ?", payment.ID).Delete(&models.Installment{}).Error; err != nil {
				return err
			}
		}

		updates := map[string]interface{}{
			"plan":             input.Plan,
			"status":           models.PaymentSubmitted,
			"submitted_at":     now,
			"rejection_reason": "",
		}
		payment.Installments = nil

		if input.Plan == models.PlanFull {
			updates["receipt_url"] = receiptURL
		} else {
			parts := SplitInstallments(payment.TotalAmount, installmentCount)
			for i, amount := range parts {
				inst := models.Installment{
					PaymentID: payment.ID,
					Index:     i,
					Amount:    amount,
					Status:    models.PaymentPending,
					DueDate:   now.AddDate(0, i, 0),
				}
				if i == 0 {
					inst.Status = models.PaymentSubmitted
					inst.ReceiptURL = receiptURL
					inst.SubmittedAt = &now
				}
				payment.Installments = append(payment.Installments, inst)
			}
			if err := tx.Create(&payment.Installments).Error; err != nil {
				return err
			}
		}

		return tx.Model(payment).Omit("Installments").Updates(updates).Error
	})
	if err != nil {
		return nil, wrapInternal("submit payment", err)
	}

	s.notifyAdmins(ctx, Notice{
		Type:    models.NotifyInfo,
		Title:   "Payment submitted",
		Message: fmt.Sprintf("A %s payment receipt was submitted for review", input.Plan),
		Event:   "payment_verification",
		Payload: map[string]interface{}{
			"paymentId":     payment.ID,
			"applicationId": payment.ApplicationID,
			"plan":          input.Plan,
		},
	})

	return s.Get(ctx, caller, payment.ID)
}

// checkSubmittable allows the first submission on a pending payment, or a new attempt after rejection
func checkSubmittable(payment *models.Payment, app *models.Application) error {
	if payment.Status != models.PaymentPending && payment.Status != models.PaymentRejected {
		return types.Conflict("payment.state", "Payment has already been submitted")
	}
	if app.Status != models.StatusApproved {
		return types.Conflict("payment.state", "Application must be approved before payment")
	}
	return nil
}

// SubmitInstallment attaches a receipt to a pending or rejected installment
func (s *PaymentService) SubmitInstallment(ctx context.Context, caller Identity, id string, index int, receipt *Upload) (*models.Payment, error) {
	db := s.db.WithContext(ctx)
	payment, _, err := ownedPayment(db, caller, id, false)
	if err != nil {
		return nil, err
	}
	if _, err := submittableInstallment(payment, index); err != nil {
		return nil, err
	}

	receiptURL, err := s.saveReceipt(ctx, receipt)
	if err != nil {
		return nil, err
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		var err error
		if payment, _, err = ownedPayment(tx, caller, id, true); err != nil {
			return err
		}
		inst, err := submittableInstallment(payment, index)
		if err != nil {
			return err
		}
		return tx.Model(inst).Updates(map[string]interface{}{
			"status":           models.PaymentSubmitted,
			"receipt_url":      receiptURL,
			"submitted_at":     s.now(),
			"rejection_reason": "",
		}).Error
	})
	if err != nil {
		return nil, wrapInternal("submit installment", err)
	}

	s.notifyAdmins(ctx, Notice{
		Type:    models.NotifyInfo,
		Title:   "Installment submitted",
		Message: fmt.Sprintf("Installment %d of %d was submitted for review", index+1, installmentCount),
		Event:   "payment_verification",
		Payload: map[string]interface{}{
			"paymentId":     payment.ID,
			"applicationId": payment.ApplicationID,
			"index":         index,
		},
	})

	return s.Get(ctx, caller, payment.ID)
}

func findInstallment(payment *models.Payment, index int) (*models.Installment, error) {
	if payment.Plan != models.PlanInstallments {
		return nil, types.Conflict("payment.plan", "Payment is not on the installments plan")
	}
	for i := range payment.Installments {
		if payment.Installments[i].Index == index {
			return &payment.Installments[i], nil
		}
	}
	return nil, types.NotFound("Installment not found")
}

func submittableInstallment(payment *models.Payment, index int) (*models.Installment, error) {
	inst, err := findInstallment(payment, index)
	if err != nil {
		return nil, err
	}
	if inst.Status != models.PaymentPending && inst.Status != models.PaymentRejected {
		return nil, types.Conflict("payment.state", "Installment has already been submitted")
	}
	return inst, nil
}

// Verify approves or rejects a full-plan payment; approval moves the application to in_process
func (s *PaymentService) Verify(ctx context.Context, caller Identity, id string, input VerifyInput) (*models.Payment, error) {
	if !caller.IsAdmin() {
		return nil, types.Forbidden("Only admins can verify payments")
	}
	outcome, reason, err := parseVerifyAction(input)
	if err != nil {
		return nil, err
	}

	var (
		payment  *models.Payment
		app      *models.Application
		advanced bool
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if payment, err = loadPayment(tx, id, true); err != nil {
			return err
		}
		if payment.Plan == models.PlanInstallments {
			return types.Conflict("payment.plan", "Installment payments are verified per installment")
		}
		if payment.Status != models.PaymentSubmitted {
			return types.Conflict("payment.state", "Only a submitted payment can be verified")
		}
		if app, err = loadApplication(tx, payment.ApplicationID, true); err != nil {
			return err
		}

		now := s.now()
		updates := map[string]interface{}{
			"status":      outcome,
			"verified_by": caller.ID,
			"verified_at": now,
		}
		if outcome == models.PaymentApproved {
			updates["paid_at"] = now
		} else {
			updates["rejection_reason"] = reason
		}
		if err := tx.Model(payment).Omit("Installments").Updates(updates).Error; err != nil {
			return err
		}

		if outcome == models.PaymentApproved {
			advanced, err = s.advance(tx, app, caller.ID)
		}
		return err
	})
	if err != nil {
		return nil, wrapInternal("verify payment", err)
	}

	s.afterVerify(ctx, payment, app, outcome, reason, -1, advanced)
	return loadPayment(s.db.WithContext(ctx), payment.ID, false)
}

// VerifyInstallment approves or rejects one installment; the last approval settles the payment
func (s *PaymentService) VerifyInstallment(ctx context.Context, caller Identity, id string, index int, input VerifyInput) (*models.Payment, error) {
	if !caller.IsAdmin() {
		return nil, types.Forbidden("Only admins can verify payments")
	}
	outcome, reason, err := parseVerifyAction(input)
	if err != nil {
		return nil, err
	}

	var (
		payment  *models.Payment
		app      *models.Application
		advanced bool
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if payment, err = loadPayment(tx, id, true); err != nil {
			return err
		}
		inst, err := findInstallment(payment, index)
		if err != nil {
			return err
		}
		if inst.Status != models.PaymentSubmitted {
			return types.Conflict("payment.state", "Only a submitted installment can be verified")
		}
		if app, err = loadApplication(tx, payment.ApplicationID, true); err != nil {
			return err
		}

		now := s.now()
		updates := map[string]interface{}{
			"status":      outcome,
			"verified_by": caller.ID,
			"verified_at": now,
		}
		if outcome == models.PaymentRejected {
			updates["rejection_reason"] = reason
		}
		if err := tx.Model(inst).Updates(updates).Error; err != nil {
			return err
		}
		inst.Status = outcome

		if outcome != models.PaymentApproved || !payment.AllInstallmentsApproved() {
			return nil
		}
		if err := tx.Model(payment).Omit("Installments").Updates(map[string]interface{}{
			"status":      models.PaymentApproved,
			"verified_by": caller.ID,
			"verified_at": now,
			"paid_at":     now,
		}).Error; err != nil {
			return err
		}
		advanced, err = s.advance(tx, app, caller.ID)
		return err
	})
	if err != nil {
		return nil, wrapInternal("verify installment", err)
	}

	s.afterVerify(ctx, payment, app, outcome, reason, index, advanced)
	return loadPayment(s.db.WithContext(ctx), payment.ID, false)
}

// advance moves an approved application to in_process once its payment is settled
func (s *PaymentService) advance(tx *gorm.DB, app *models.Application, authorID string) (bool, error) {
	if app.Status != models.StatusApproved {
		s.log.Warn().
			Str("application_id", app.ID).
			Str("status", string(app.Status)).
			Msg("payment settled but application is not approved, status unchanged")
		return false, nil
	}
	if err := applyTransition(tx, s.timeline, app, models.StatusInProcess, "Payment verified", authorID, nil); err != nil {
		return false, err
	}
	return true, nil
}

func (s *PaymentService) afterVerify(ctx context.Context, payment *models.Payment, app *models.Application, outcome models.PaymentStatus, reason string, index int, advanced bool) {
	subject := "Your payment"
	if index >= 0 {
		subject = fmt.Sprintf("Installment %d of %d", index+1, installmentCount)
	}

	notice := Notice{
		Type:     models.NotifySuccess,
		Title:    "Payment approved",
		Message:  subject + " has been approved",
		Priority: models.PriorityHigh,
		Event:    "payment_verification",
		Payload: map[string]interface{}{
			"paymentId":     payment.ID,
			"applicationId": payment.ApplicationID,
			"status":        outcome,
			"index":         index,
		},
	}
	if outcome == models.PaymentRejected {
		notice.Type = models.NotifyError
		notice.Title = "Payment rejected"
		notice.Message = subject + " was rejected: " + reason
		notice.Payload = map[string]interface{}{
			"paymentId":     payment.ID,
			"applicationId": payment.ApplicationID,
			"status":        outcome,
			"index":         index,
			"reason":        reason,
		}
	}
	s.dispatcher.NotifyAll(ctx, []string{payment.ClientID}, notice)

	if advanced {
		s.dispatcher.NotifyAll(ctx, app.AssigneeIDs(), Notice{
			Type:    models.NotifySuccess,
			Title:   "Payment verified",
			Message: "Payment is settled, the application is in process",
			Event:   "payment_notification",
			Payload: map[string]interface{}{
				"paymentId":     payment.ID,
				"applicationId": app.ID,
			},
		})
	}
}

func (s *PaymentService) notifyAdmins(ctx context.Context, n Notice) {
	admins, err := staffIDs(s.db.WithContext(ctx), models.RoleAdmin)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to load admins for notification")
		return
	}
	s.dispatcher.NotifyAll(ctx, admins, n)
}

// Get returns a payment visible to the caller: its client, an assigned employee or an admin
func (s *PaymentService) Get(ctx context.Context, caller Identity, id string) (*models.Payment, error) {
	db := s.db.WithContext(ctx)
	payment, err := loadPayment(db, id, false)
	if err != nil {
		return nil, err
	}
	if caller.IsAdmin() || payment.ClientID == caller.ID {
		return payment, nil
	}
	app, err := loadApplication(db, payment.ApplicationID, false)
	if err != nil {
		return nil, err
	}
	if !CanAccess(app, caller) {
		return nil, types.Forbidden("Not allowed to view this payment")
	}
	return payment, nil
}

// List returns payments for admins, newest first
func (s *PaymentService) List(ctx context.Context, caller Identity, f PaymentFilter) (*PageResult[models.Payment], error) {
	if !caller.IsAdmin() {
		return nil, types.Forbidden("Only admins can list payments")
	}
	switch models.PaymentStatus(f.Status) {
	case "", models.PaymentPending, models.PaymentSubmitted, models.PaymentApproved, models.PaymentRejected:
	default:
		return nil, types.Validation("validation.filter", "Invalid filter",
			map[string]string{"status": "unknown payment status"})
	}

	page := f.Page.normalize()
	q := s.db.WithContext(ctx).Model(&models.Payment{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}

	out := &PageResult[models.Payment]{Items: make([]models.Payment, 0), Page: page.Page, Limit: page.Limit}
	if err := q.Session(&gorm.Session{}).Count(&out.Total).Error; err != nil {
		return nil, types.Internal("count payments", err)
	}
	if err := q.Session(&gorm.Session{}).
		Preload("Installments", func(db *gorm.DB) *gorm.DB { return db.Order("seq ASC") }).
		Order("created_at DESC").
		Scopes(paginate(page)).
		Find(&out.Items).Error; err != nil {
		return nil, types.Internal("list payments", err)
	}
	return out, nil
}
