// lifecycle.go
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
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/localnerve/bizflow/internal/models"
	"github.com/localnerve/bizflow/internal/storage"
	"github.com/localnerve/bizflow/internal/types"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Upload is a file received with a request
type Upload struct {
	Name        string
	ContentType string
	Size        int64
	Reader      io.Reader
}

// CreateApplicationInput is the decoded create-application payload
type CreateApplicationInput struct {
	ServiceType models.ServiceType    `json:"serviceType"`
	Priority    models.Priority       `json:"priority"`
	Details     models.ServiceDetails `json:"details"`
}

// ReviewInput approves or rejects an application
type ReviewInput struct {
	Action string `json:"action"`
	Reason string `json:"reason"`
}

// AssignInput replaces the assigned employee list
type AssignInput struct {
	EmployeeIDs types.FlexList[string] `json:"employeeIds"`
	Task        string                 `json:"task"`
}

// MakePaymentInput settles an approved application in one step
type MakePaymentInput struct {
	Amount *decimal.Decimal `json:"amount"`
	Method string           `json:"method"`
}

// ListFilter narrows an application listing
type ListFilter struct {
	Status      string
	ServiceType string
	Page        Page
}

// ApplicationView is an application with its payment and documents
type ApplicationView struct {
	Application *models.Application `json:"application"`
	Payment     *models.Payment     `json:"payment,omitempty"`
	Documents   []models.Document   `json:"documents"`
}

// ApplicationService owns status transitions, assignment and payment-triggered transitions
type ApplicationService struct {
	db         *gorm.DB
	timeline   *Timeline
	dispatcher *Dispatcher
	media      storage.MediaStore
	log        zerolog.Logger
	now        func() time.Time
}

// NewApplicationService creates the lifecycle manager
func NewApplicationService(db *gorm.DB, timeline *Timeline, dispatcher *Dispatcher, media storage.MediaStore, log zerolog.Logger) *ApplicationService {
	return &ApplicationService{
		db:         db,
		timeline:   timeline,
		dispatcher: dispatcher,
		media:      media,
		log:        log,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// CanAccess reports whether caller is an admin, the owner or an assigned employee
func CanAccess(app *models.Application, caller Identity) bool {
	return caller.IsAdmin() || app.ClientID == caller.ID || app.IsAssigned(caller.ID)
}

// requireStaffAccess allows admins and employees assigned to app
func requireStaffAccess(app *models.Application, caller Identity) error {
	if !CanAccess(app, caller) {
		return types.Forbidden("Not allowed to modify this application")
	}
	if !caller.IsStaff() {
		return types.Forbidden("Only staff can perform this action")
	}
	return nil
}

// applyTransition writes a status, its canonical progress and one timeline entry
func applyTransition(tx *gorm.DB, timeline *Timeline, app *models.Application, next models.ApplicationStatus, note, authorID string, extra map[string]interface{}) error {
	from := app.Status
	updates := map[string]interface{}{
		"status":   next,
		"progress": next.Progress(),
	}
	for k, v := range extra {
		updates[k] = v
	}
	if err := tx.Model(app).Updates(updates).Error; err != nil {
		return err
	}
	if _, err := timeline.Record(tx, app.ID, next, note, next.Progress(), authorID); err != nil {
		return err
	}

	app.Status = next
	app.Progress = next.Progress()
	if from != next {
		StatusTransitions.WithLabelValues(string(from), string(next)).Inc()
	}
	return nil
}

// Create submits a new application with its pending payment and first timeline entry
func (s *ApplicationService) Create(ctx context.Context, caller Identity, raw []byte, uploads []Upload) (*models.Application, *models.Payment, error) {
	if caller.Role != models.RoleClient {
		return nil, nil, types.Forbidden("Only clients can submit applications")
	}
	if err := ValidateApplicationPayload(raw); err != nil {
		return nil, nil, err
	}

	var input CreateApplicationInput
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, nil, types.Validation("validation.payload", "Request body is not valid JSON", nil)
	}
	if input.Priority == "" {
		input.Priority = models.PriorityNormal
	}
	input.Details.Activities = types.CompactStrings(input.Details.Activities)

	documents := make([]models.Document, 0, len(uploads))
	for _, up := range uploads {
		url, err := s.media.Save(ctx, "documents", up.Name, up.Reader)
		if err != nil {
			return nil, nil, types.Internal("store document", err)
		}
		documents = append(documents, models.Document{
			ClientID:    caller.ID,
			Name:        up.Name,
			URL:         url,
			ContentType: up.ContentType,
			Size:        up.Size,
		})
	}

	now := s.now()
	app := &models.Application{
		ClientID:    caller.ID,
		ServiceType: input.ServiceType,
		Status:      models.StatusSubmitted,
		Progress:    0,
		Priority:    input.Priority,
		Details:     datatypes.NewJSONType(input.Details),
	}
	payment := &models.Payment{
		ClientID:    caller.ID,
		TotalAmount: QuotePrice(input.ServiceType, input.Details),
		Status:      models.PaymentPending,
		DueDate:     now.AddDate(0, 1, 0),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Assignments").Create(app).Error; err != nil {
			return err
		}
		payment.ApplicationID = app.ID
		if err := tx.Create(payment).Error; err != nil {
			return err
		}
		if _, err := s.timeline.Record(tx, app.ID, models.StatusSubmitted, "Application submitted", 0, caller.ID); err != nil {
			return err
		}
		for i := range documents {
			documents[i].ApplicationID = app.ID
		}
		if len(documents) > 0 {
			if err := tx.Create(&documents).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, types.Internal("create application", err)
	}
	StatusTransitions.WithLabelValues("", string(models.StatusSubmitted)).Inc()

	s.log.Info().
		Str("application_id", app.ID).
		Str("service_type", string(app.ServiceType)).
		Str("amount", payment.TotalAmount.StringFixed(2)).
		Msg("application submitted")

	admins, err := staffIDs(s.db.WithContext(ctx), models.RoleAdmin)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to load admins for notification")
	}
	s.dispatcher.NotifyAll(ctx, admins, Notice{
		Type:    models.NotifyInfo,
		Title:   "New application",
		Message: fmt.Sprintf("A new %s application was submitted", app.ServiceType),
		Event:   "new_application_notification",
		Payload: map[string]interface{}{
			"applicationId": app.ID,
			"serviceType":   app.ServiceType,
			"clientId":      app.ClientID,
		},
	})

	return app, payment, nil
}

// Review approves or rejects a submitted or under-review application
func (s *ApplicationService) Review(ctx context.Context, caller Identity, id string, input ReviewInput) (*models.Application, error) {
	if !caller.IsStaff() {
		return nil, types.Forbidden("Only staff can review applications")
	}

	var next models.ApplicationStatus
	reason := strings.TrimSpace(input.Reason)
	switch strings.ToLower(strings.TrimSpace(input.Action)) {
	case "approve":
		next = models.StatusApproved
	case "reject":
		if reason == "" {
			return nil, types.Validation("validation.reason", "A rejection reason is required",
				map[string]string{"reason": "required when rejecting"})
		}
		next = models.StatusRejected
	default:
		return nil, types.Validation("validation.action", "Action must be approve or reject",
			map[string]string{"action": "must be approve or reject"})
	}

	var app *models.Application
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if app, err = loadApplication(tx, id, true); err != nil {
			return err
		}
		if err := requireStaffAccess(app, caller); err != nil {
			return err
		}
		if !app.Status.Reviewable() {
			return types.Conflict("lifecycle.transition",
				fmt.Sprintf("Cannot review an application with status %s", app.Status))
		}

		note := "Application approved"
		extra := map[string]interface{}{}
		if next == models.StatusApproved {
			now := s.now()
			extra["approved_by"] = caller.ID
			extra["approved_at"] = now
			app.ApprovedBy = &caller.ID
			app.ApprovedAt = &now
		} else {
			note = "Application rejected: " + reason
			extra["rejection_reason"] = reason
			app.RejectionReason = reason
		}
		return applyTransition(tx, s.timeline, app, next, note, caller.ID, extra)
	})
	if err != nil {
		return nil, wrapInternal("review application", err)
	}

	notice := Notice{
		Type:     models.NotifySuccess,
		Title:    "Application approved",
		Message:  fmt.Sprintf("Your %s application has been approved", app.ServiceType),
		Priority: models.PriorityHigh,
		Event:    "status_update_notification",
		Payload: map[string]interface{}{
			"applicationId": app.ID,
			"status":        app.Status,
			"progress":      app.Progress,
		},
	}
	if next == models.StatusRejected {
		notice.Type = models.NotifyError
		notice.Title = "Application rejected"
		notice.Message = fmt.Sprintf("Your %s application was rejected: %s", app.ServiceType, reason)
		notice.Payload = map[string]interface{}{
			"applicationId": app.ID,
			"status":        app.Status,
			"progress":      app.Progress,
			"reason":        reason,
		}
	}
	s.dispatcher.NotifyAll(ctx, uniqueIDs([]string{app.ClientID}, app.AssigneeIDs()), notice)

	return app, nil
}

// Assign replaces the assigned employee list; the first assignment moves submitted to under_review
func (s *ApplicationService) Assign(ctx context.Context, caller Identity, id string, input AssignInput) (*models.Application, error) {
	if !caller.IsStaff() {
		return nil, types.Forbidden("Only staff can assign employees")
	}

	employeeIDs := types.CompactStrings(input.EmployeeIDs)
	if len(employeeIDs) == 0 {
		return nil, types.Validation("validation.employeeIds", "At least one employee is required",
			map[string]string{"employeeIds": "required"})
	}
	for _, eid := range employeeIDs {
		if !validID(eid) {
			return nil, types.Validation("validation.employeeIds", "Unknown employee",
				map[string]string{"employeeIds": "unknown employee " + eid})
		}
	}

	var (
		app        *models.Application
		added      []string
		changed    bool
		transition bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if app, err = loadApplication(tx, id, true); err != nil {
			return err
		}
		if err := requireStaffAccess(app, caller); err != nil {
			return err
		}

		var staff []models.User
		if err := tx.Where("id IN ? AND role IN ?", employeeIDs,
			[]models.Role{models.RoleEmployee, models.RoleAdmin}).Find(&staff).Error; err != nil {
			return err
		}
		if len(staff) != len(employeeIDs) {
			found := make(map[string]struct{}, len(staff))
			for _, u := range staff {
				found[u.ID] = struct{}{}
			}
			missing := make([]string, 0)
			for _, eid := range employeeIDs {
				if _, ok := found[eid]; !ok {
					missing = append(missing, eid)
				}
			}
			return types.Validation("validation.employeeIds", "Unknown or non-staff employee",
				map[string]string{"employeeIds": "unknown employee " + strings.Join(missing, ", ")})
		}

		keep := make(map[string]struct{}, len(employeeIDs))
		for _, eid := range employeeIDs {
			keep[eid] = struct{}{}
		}
		removed := make([]string, 0)
		for _, as := range app.Assignments {
			if _, ok := keep[as.EmployeeID]; !ok {
				removed = append(removed, as.EmployeeID)
			}
		}
		for _, eid := range employeeIDs {
			if !app.IsAssigned(eid) {
				added = append(added, eid)
			}
		}
		changed = len(added) > 0 || len(removed) > 0
		if !changed {
			return nil
		}

		if len(removed) > 0 {
			if err := tx.Where("application_id = ? AND employee_id IN ?", app.ID, removed).
				Delete(&models.Assignment{}).Error; err != nil {
				return err
			}
		}

		now := s.now()
		title := strings.TrimSpace(input.Task)
		if title == "" {
			title = fmt.Sprintf("Process %s application", app.ServiceType)
		}
		for _, eid := range added {
			if err := tx.Create(&models.Assignment{
				ApplicationID: app.ID,
				EmployeeID:    eid,
				Task:          title,
				AssignedBy:    caller.ID,
				AssignedAt:    now,
			}).Error; err != nil {
				return err
			}
			if err := tx.Create(&models.Task{
				ApplicationID: app.ID,
				ClientID:      app.ClientID,
				EmployeeID:    eid,
				Title:         title,
				Status:        "open",
			}).Error; err != nil {
				return err
			}
		}

		if app.Status == models.StatusSubmitted {
			transition = true
			return applyTransition(tx, s.timeline, app, models.StatusUnderReview,
				"Employees assigned, review started", caller.ID, nil)
		}
		_, err = s.timeline.Record(tx, app.ID, app.Status, "Assigned employees updated", 0, caller.ID)
		return err
	})
	if err != nil {
		return nil, wrapInternal("assign employees", err)
	}

	if app, err = loadApplication(s.db.WithContext(ctx), app.ID, false); err != nil {
		return nil, err
	}
	if !changed {
		return app, nil
	}

	s.dispatcher.NotifyAll(ctx, added, Notice{
		Type:    models.NotifyInfo,
		Title:   "New assignment",
		Message: fmt.Sprintf("You have been assigned to a %s application", app.ServiceType),
		Event:   "assignment_notification",
		Payload: map[string]interface{}{"applicationId": app.ID},
	})

	clientNotice := Notice{
		Type:    models.NotifyInfo,
		Title:   "Application update",
		Message: "Staff assigned to your application have changed",
		Event:   "assignment_notification",
		Payload: map[string]interface{}{"applicationId": app.ID, "status": app.Status},
	}
	if transition {
		clientNotice.Message = "Your application is now under review"
		clientNotice.Event = "status_update_notification"
		clientNotice.Payload = map[string]interface{}{
			"applicationId": app.ID,
			"status":        app.Status,
			"progress":      app.Progress,
		}
	}
	s.dispatcher.NotifyAll(ctx, []string{app.ClientID}, clientNotice)

	return app, nil
}

// MakePayment settles an approved application in one step and moves it to in_process
func (s *ApplicationService) MakePayment(ctx context.Context, caller Identity, id string, input MakePaymentInput) (*models.Application, *models.Payment, error) {
	method := strings.TrimSpace(input.Method)
	if method == "" {
		method = "manual"
	}
	if input.Amount != nil && !input.Amount.IsPositive() {
		return nil, nil, types.Validation("validation.amount", "Amount must be positive",
			map[string]string{"amount": "must be positive"})
	}

	var (
		app     *models.Application
		payment *models.Payment
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if app, err = loadApplication(tx, id, true); err != nil {
			return err
		}
		if !CanAccess(app, caller) {
			return types.Forbidden("Not allowed to modify this application")
		}
		if app.ClientID != caller.ID {
			return types.Forbidden("Only the owning client can pay for an application")
		}

		var payments []models.Payment
		if err := tx.Where("application_id = ?", app.ID).Find(&payments).Error; err != nil {
			return err
		}
		for i := range payments {
			if payments[i].Status != models.PaymentPending {
				return types.Conflict("payment.exists", "Payment already exists for this application")
			}
		}
		if app.Status != models.StatusApproved {
			return types.Conflict("lifecycle.transition", "Application must be approved before payment")
		}

		now := s.now()
		if len(payments) > 0 {
			payment = &payments[0]
		} else {
			payment = &models.Payment{
				ApplicationID: app.ID,
				ClientID:      app.ClientID,
				TotalAmount:   QuotePrice(app.ServiceType, app.Details.Data()),
				DueDate:       now,
			}
		}
		if input.Amount != nil {
			payment.TotalAmount = input.Amount.Round(2)
		}
		payment.Plan = models.PlanFull
		payment.Status = models.PaymentApproved
		payment.Method = method
		payment.SubmittedAt = &now
		payment.PaidAt = &now
		if err := tx.Save(payment).Error; err != nil {
			return err
		}

		return applyTransition(tx, s.timeline, app, models.StatusInProcess,
			"Payment received via "+method, caller.ID, nil)
	})
	if err != nil {
		return nil, nil, wrapInternal("make payment", err)
	}

	s.dispatcher.NotifyAll(ctx, app.AssigneeIDs(), Notice{
		Type:    models.NotifySuccess,
		Title:   "Payment received",
		Message: fmt.Sprintf("Payment of %s received, the application is in process", payment.TotalAmount.StringFixed(2)),
		Event:   "payment_notification",
		Payload: map[string]interface{}{
			"applicationId": app.ID,
			"paymentId":     payment.ID,
			"amount":        payment.TotalAmount.StringFixed(2),
			"method":        method,
		},
	})

	return app, payment, nil
}

// StatusUpdate is a staff status write, optionally with other editable fields
type StatusUpdate struct {
	Status                   *models.ApplicationStatus
	Note                     *string
	Priority                 *models.Priority
	InternalNotes            *string
	EstimatedCompletion      *time.Time
	ClearEstimatedCompletion bool
}

var employeeEditable = map[string]struct{}{
	"status":              {},
	"note":                {},
	"priority":            {},
	"internalNotes":       {},
	"estimatedCompletion": {},
}

// ParseEmployeeUpdate decodes an allow-listed field map; unknown or malformed fields are rejected
func ParseEmployeeUpdate(body map[string]json.RawMessage) (StatusUpdate, error) {
	var u StatusUpdate
	fields := make(map[string]string)

	for key := range body {
		if _, ok := employeeEditable[key]; !ok {
			fields[key] = "field cannot be updated"
		}
	}
	if len(fields) > 0 {
		return u, types.Validation("validation.fields", "Request contains fields that cannot be updated", fields)
	}
	if len(body) == 0 {
		return u, types.Validation("validation.fields", "No fields to update", nil)
	}

	if raw, ok := body["status"]; ok {
		var status models.ApplicationStatus
		if err := json.Unmarshal(raw, &status); err != nil || !status.Valid() {
			fields["status"] = "must be one of submitted, under_review, approved, in_process, completed, rejected"
		} else {
			u.Status = &status
		}
	}
	if raw, ok := body["note"]; ok {
		var note string
		if err := json.Unmarshal(raw, &note); err != nil {
			fields["note"] = "must be a string"
		} else {
			u.Note = &note
		}
	}
	if raw, ok := body["priority"]; ok {
		var p models.Priority
		if err := json.Unmarshal(raw, &p); err != nil || !p.Valid() {
			fields["priority"] = "must be one of low, normal, high"
		} else {
			u.Priority = &p
		}
	}
	if raw, ok := body["internalNotes"]; ok {
		var notes string
		if err := json.Unmarshal(raw, &notes); err != nil {
			fields["internalNotes"] = "must be a string"
		} else {
			u.InternalNotes = &notes
		}
	}
	if raw, ok := body["estimatedCompletion"]; ok {
		if string(raw) == "null" {
			u.ClearEstimatedCompletion = true
		} else if t, err := parseDate(raw); err != nil {
			fields["estimatedCompletion"] = "must be a date (YYYY-MM-DD) or RFC 3339 timestamp"
		} else {
			u.EstimatedCompletion = &t
		}
	}

	if len(fields) > 0 {
		if _, bad := fields["status"]; bad && len(fields) == 1 {
			return u, types.Validation("validation.status", "Unknown status", fields)
		}
		return u, types.Validation("validation.fields", "Invalid field values", fields)
	}
	return u, nil
}

func parseDate(raw json.RawMessage) (time.Time, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return time.Time{}, err
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return time.Parse("2006-01-02", s)
}

// UpdateStatus moves an application through the manual transition table
func (s *ApplicationService) UpdateStatus(ctx context.Context, caller Identity, id string, status, note string) (*models.Application, error) {
	next := models.ApplicationStatus(status)
	if !next.Valid() {
		return nil, types.Validation("validation.status", "Unknown status",
			map[string]string{"status": "must be one of submitted, under_review, approved, in_process, completed, rejected"})
	}
	return s.EmployeeUpdate(ctx, caller, id, StatusUpdate{Status: &next, Note: &note})
}

// EmployeeUpdate applies allow-listed field edits; a status write appends a timeline entry and
// notifies the client, co-assigned employees and admins once each
func (s *ApplicationService) EmployeeUpdate(ctx context.Context, caller Identity, id string, u StatusUpdate) (*models.Application, error) {
	if !caller.IsStaff() {
		return nil, types.Forbidden("Only staff can update applications")
	}

	// A note alone is a progress note on the current status
	statusWrite := u.Status != nil || u.Note != nil

	var (
		app  *models.Application
		from models.ApplicationStatus
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if app, err = loadApplication(tx, id, true); err != nil {
			return err
		}
		if err := requireStaffAccess(app, caller); err != nil {
			return err
		}
		from = app.Status

		next := app.Status
		if u.Status != nil {
			next = *u.Status
		}
		if statusWrite && !app.Status.CanTransitionTo(next) {
			return types.Conflict("lifecycle.transition",
				fmt.Sprintf("Cannot move an application from %s to %s", app.Status, next))
		}

		fields := map[string]interface{}{}
		if u.Priority != nil {
			fields["priority"] = *u.Priority
			app.Priority = *u.Priority
		}
		if u.InternalNotes != nil {
			fields["internal_notes"] = *u.InternalNotes
			app.InternalNotes = *u.InternalNotes
		}
		if u.EstimatedCompletion != nil {
			fields["estimated_completion"] = *u.EstimatedCompletion
			app.EstimatedCompletion = u.EstimatedCompletion
		} else if u.ClearEstimatedCompletion {
			fields["estimated_completion"] = nil
			app.EstimatedCompletion = nil
		}

		if !statusWrite {
			if len(fields) == 0 {
				return nil
			}
			return tx.Model(app).Updates(fields).Error
		}

		note := ""
		if u.Note != nil {
			note = strings.TrimSpace(*u.Note)
		}
		if note == "" {
			note = "Status updated to " + string(next)
		}
		if next == models.StatusApproved && from != next {
			now := s.now()
			fields["approved_by"] = caller.ID
			fields["approved_at"] = now
			app.ApprovedBy = &caller.ID
			app.ApprovedAt = &now
		}
		if next == models.StatusRejected && from != next {
			fields["rejection_reason"] = note
			app.RejectionReason = note
		}
		return applyTransition(tx, s.timeline, app, next, note, caller.ID, fields)
	})
	if err != nil {
		return nil, wrapInternal("update application", err)
	}

	if !statusWrite {
		return app, nil
	}

	admins, err := staffIDs(s.db.WithContext(ctx), models.RoleAdmin)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to load admins for notification")
	}
	recipients := without(uniqueIDs([]string{app.ClientID}, app.AssigneeIDs(), admins), caller.ID)

	// reaching a final status also goes out by email and SMS
	priority := models.PriorityNormal
	if app.Status.Terminal() && from != app.Status {
		priority = models.PriorityHigh
	}
	notifyType := models.NotifyInfo
	switch app.Status {
	case models.StatusCompleted, models.StatusApproved:
		notifyType = models.NotifySuccess
	case models.StatusRejected:
		notifyType = models.NotifyError
	}

	message := fmt.Sprintf("Application status is now %s", app.Status)
	if from == app.Status {
		message = fmt.Sprintf("Progress update on your %s application", app.ServiceType)
	}
	s.dispatcher.NotifyAll(ctx, recipients, Notice{
		Type:     notifyType,
		Title:    "Application status update",
		Message:  message,
		Priority: priority,
		Event:    "status_update_notification",
		Payload: map[string]interface{}{
			"applicationId": app.ID,
			"status":        app.Status,
			"previous":      from,
			"progress":      app.Progress,
			"note":          u.Note,
		},
	})

	return app, nil
}

// Delete removes an application and its dependents, then tells the owning client
func (s *ApplicationService) Delete(ctx context.Context, caller Identity, id string) (*DeleteCounts, error) {
	if !caller.IsStaff() {
		return nil, types.Forbidden("Only staff can delete applications")
	}

	var (
		app    *models.Application
		counts DeleteCounts
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if app, err = loadApplication(tx, id, true); err != nil {
			return err
		}
		if err := requireStaffAccess(app, caller); err != nil {
			return err
		}
		return deleteApplications(tx, []string{app.ID}, &counts)
	})
	if err != nil {
		return nil, wrapInternal("delete application", err)
	}

	s.log.Info().Str("application_id", app.ID).Str("deleted_by", caller.ID).Msg("application deleted")

	s.dispatcher.NotifyAll(ctx, []string{app.ClientID}, Notice{
		Type:    models.NotifyWarning,
		Title:   "Application deleted",
		Message: fmt.Sprintf("Your %s application has been deleted", app.ServiceType),
		Event:   "application_deleted_notification",
		Payload: map[string]interface{}{"applicationId": app.ID},
	})

	return &counts, nil
}

// Get returns one application the caller may see, with its payment and documents
func (s *ApplicationService) Get(ctx context.Context, caller Identity, id string) (*ApplicationView, error) {
	db := s.db.WithContext(ctx)
	app, err := loadApplication(db.Preload("Client").Preload("Assignments.Employee"), id, false)
	if err != nil {
		return nil, err
	}
	if !CanAccess(app, caller) {
		return nil, types.Forbidden("Not allowed to view this application")
	}

	view := &ApplicationView{Application: app, Documents: make([]models.Document, 0)}

	var payments []models.Payment
	if err := db.Preload("Installments", func(q *gorm.DB) *gorm.DB { return q.Order("seq ASC") }).
		Where("application_id = ?", app.ID).
		Order("created_at ASC").
		Limit(1).
		Find(&payments).Error; err != nil {
		return nil, types.Internal("load payment", err)
	}
	if len(payments) > 0 {
		view.Payment = &payments[0]
	}

	if err := db.Where("application_id = ?", app.ID).Order("created_at ASC").Find(&view.Documents).Error; err != nil {
		return nil, types.Internal("load documents", err)
	}
	return view, nil
}

// List returns the applications visible to caller, newest first
func (s *ApplicationService) List(ctx context.Context, caller Identity, f ListFilter) (*PageResult[models.Application], error) {
	fields := map[string]string{}
	if f.Status != "" && !models.ApplicationStatus(f.Status).Valid() {
		fields["status"] = "unknown status"
	}
	if f.ServiceType != "" && !models.ServiceType(f.ServiceType).Valid() {
		fields["serviceType"] = "unknown service type"
	}
	if len(fields) > 0 {
		return nil, types.Validation("validation.filter", "Invalid filter", fields)
	}

	page := f.Page.normalize()
	q := s.db.WithContext(ctx).Model(&models.Application{}).Scopes(scopeApplications(caller))
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.ServiceType != "" {
		q = q.Where("service_type = ?", f.ServiceType)
	}

	out := &PageResult[models.Application]{Items: make([]models.Application, 0), Page: page.Page, Limit: page.Limit}
	if err := q.Session(&gorm.Session{}).Count(&out.Total).Error; err != nil {
		return nil, types.Internal("count applications", err)
	}
	if err := q.Session(&gorm.Session{}).
		Preload("Assignments").
		Order("created_at DESC").
		Scopes(paginate(page)).
		Find(&out.Items).Error; err != nil {
		return nil, types.Internal("list applications", err)
	}
	return out, nil
}

// Timeline returns the audit trail of an application the caller may see
func (s *ApplicationService) Timeline(ctx context.Context, caller Identity, id string) ([]models.TimelineEntry, error) {
	app, err := loadApplication(s.db.WithContext(ctx), id, false)
	if err != nil {
		return nil, err
	}
	if !CanAccess(app, caller) {
		return nil, types.Forbidden("Not allowed to view this application")
	}
	return s.timeline.List(ctx, app.ID)
}

// CanJoinRoom reports whether a websocket user may watch an application room
func (s *ApplicationService) CanJoinRoom(ctx context.Context, caller Identity, id string) bool {
	app, err := loadApplication(s.db.WithContext(ctx), id, false)
	if err != nil {
		return false
	}
	return CanAccess(app, caller)
}

// SaveMessage stores one chat line on an application
func (s *ApplicationService) SaveMessage(ctx context.Context, caller Identity, id, content string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, types.Validation("validation.content", "Message is empty", map[string]string{"content": "required"})
	}

	app, err := loadApplication(s.db.WithContext(ctx), id, false)
	if err != nil {
		return nil, err
	}
	if !CanAccess(app, caller) {
		return nil, types.Forbidden("Not allowed to post on this application")
	}

	msg := &models.Message{
		ApplicationID: app.ID,
		ClientID:      app.ClientID,
		SenderID:      caller.ID,
		Content:       content,
	}
	if err := s.db.WithContext(ctx).Create(msg).Error; err != nil {
		return nil, types.Internal("save message", err)
	}
	return msg, nil
}

// wrapInternal passes AppErrors through and wraps anything else as a 500
func wrapInternal(op string, err error) error {
	if _, ok := types.AsAppError(err); ok {
		return err
	}
	return types.Internal(op, err)
}
