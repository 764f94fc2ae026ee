// lifecycle_test.go
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
	"net/http"
	"testing"

	"github.com/localnerve/bizflow/internal/models"
	"github.com/localnerve/bizflow/internal/testutil"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateApplication(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	raw := payload(t, map[string]interface{}{
		"serviceType": "freezone",
		"priority":    "high",
		"details": map[string]interface{}{
			"companyName":       "Acme FZ",
			"activities":        []string{"trading", " ", "trading"},
			"needVirtualOffice": true,
			"externalCompanies": []map[string]interface{}{{"name": "Parent Ltd", "country": "UK"}},
		},
	})
	app, payment, err := h.apps.Create(ctx, h.client(), raw, []Upload{docUpload("passport.pdf")})
	require.NoError(t, err)

	assert.Equal(t, models.StatusSubmitted, app.Status)
	assert.Equal(t, 0, app.Progress)
	assert.Equal(t, models.PriorityHigh, app.Priority)
	assert.Equal(t, h.cast.Client.ID, app.ClientID)
	assert.Equal(t, []string{"trading"}, app.Details.Data().Activities)

	// 5500 + 2000 virtual office + 1000 per external company
	assert.True(t, decimal.NewFromInt(8500).Equal(payment.TotalAmount), payment.TotalAmount.String())
	assert.Equal(t, models.PaymentPending, payment.Status)
	assert.Equal(t, h.clock.AddDate(0, 1, 0), payment.DueDate)

	entries := h.timelineOf(t, app.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, models.StatusSubmitted, entries[0].Status)
	assert.Equal(t, 0, entries[0].Progress)
	assert.Equal(t, h.cast.Client.ID, entries[0].AuthorID)

	var docs []models.Document
	require.NoError(t, h.db.Where("application_id = ?", app.ID).Find(&docs).Error)
	require.Len(t, docs, 1)
	assert.Equal(t, "passport.pdf", docs[0].Name)
	assert.Contains(t, h.media.files, docs[0].URL)

	assert.Len(t, h.notifications(t, h.cast.Admin.ID, "new_application_notification"), 1)
	assert.Empty(t, h.notifications(t, h.cast.Client.ID, ""))
}

func TestCreateApplicationDefaultsPriority(t *testing.T) {
	h := newHarness(t)
	app, _ := h.submit(t)
	assert.Equal(t, models.PriorityNormal, app.Priority)
}

func TestCreateApplicationRejectsBadPayloads(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, _, err := h.apps.Create(ctx, h.client(), payload(t, map[string]interface{}{"serviceType": "spaceport"}), nil)
	requireAppError(t, err, http.StatusBadRequest, "validation.serviceType")

	_, _, err = h.apps.Create(ctx, h.client(), payload(t, map[string]interface{}{}), nil)
	requireAppError(t, err, http.StatusBadRequest, "validation.serviceType")

	_, _, err = h.apps.Create(ctx, h.client(), payload(t, map[string]interface{}{
		"serviceType": "family_visa",
		"details":     map[string]interface{}{"familyMembers": []map[string]interface{}{{"relationship": "spouse"}}},
	}), nil)
	requireAppError(t, err, http.StatusBadRequest, "validation.payload")

	_, _, err = h.apps.Create(ctx, h.employee(), payload(t, map[string]interface{}{"serviceType": "commercial"}), nil)
	requireAppError(t, err, http.StatusForbidden, "")

	var count int64
	h.db.Model(&models.Application{}).Count(&count)
	assert.Zero(t, count)
}

func TestReview(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	app, _ := h.submit(t)

	_, err := h.apps.Review(ctx, h.admin(), app.ID, ReviewInput{Action: "reject"})
	requireAppError(t, err, http.StatusBadRequest, "validation.reason")

	_, err = h.apps.Review(ctx, h.admin(), app.ID, ReviewInput{Action: "maybe"})
	requireAppError(t, err, http.StatusBadRequest, "validation.action")

	// not assigned yet
	_, err = h.apps.Review(ctx, h.employee(), app.ID, ReviewInput{Action: "approve"})
	requireAppError(t, err, http.StatusForbidden, "")

	_, err = h.apps.Review(ctx, h.client(), app.ID, ReviewInput{Action: "approve"})
	requireAppError(t, err, http.StatusForbidden, "")

	approved, err := h.apps.Review(ctx, h.admin(), app.ID, ReviewInput{Action: "approve"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, approved.Status)
	assert.Equal(t, 50, approved.Progress)
	require.NotNil(t, approved.ApprovedBy)
	assert.Equal(t, h.cast.Admin.ID, *approved.ApprovedBy)
	require.NotNil(t, approved.ApprovedAt)

	stored := h.reload(t, app.ID)
	assert.Equal(t, models.StatusApproved, stored.Status)
	assert.Equal(t, h.cast.Admin.ID, *stored.ApprovedBy)

	entries := h.timelineOf(t, app.ID)
	require.Len(t, entries, 2)
	assert.Equal(t, models.StatusApproved, entries[1].Status)
	assert.Equal(t, 50, entries[1].Progress)

	client := h.notifications(t, h.cast.Client.ID, "status_update_notification")
	require.Len(t, client, 1)
	assert.Equal(t, models.PriorityHigh, client[0].Priority)

	_, err = h.apps.Review(ctx, h.admin(), app.ID, ReviewInput{Action: "reject", Reason: "late"})
	requireAppError(t, err, http.StatusBadRequest, "lifecycle.transition")
	assert.Len(t, h.timelineOf(t, app.ID), 2)
}

func TestReviewReject(t *testing.T) {
	h := newHarness(t)
	app, _ := h.submit(t)

	rejected, err := h.apps.Review(context.Background(), h.admin(), app.ID, ReviewInput{Action: "reject", Reason: "missing passport"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, rejected.Status)
	assert.Equal(t, "missing passport", h.reload(t, app.ID).RejectionReason)

	n := h.notifications(t, h.cast.Client.ID, "status_update_notification")
	require.Len(t, n, 1)
	assert.Equal(t, models.NotifyError, n[0].Type)
	assert.Equal(t, "missing passport", payloadOf(t, n[0])["reason"])
}

func TestAssign(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	app, _ := h.submit(t)

	_, err := h.apps.Assign(ctx, h.admin(), app.ID, AssignInput{})
	requireAppError(t, err, http.StatusBadRequest, "validation.employeeIds")

	_, err = h.apps.Assign(ctx, h.admin(), app.ID, AssignInput{EmployeeIDs: []string{h.cast.Client.ID}})
	requireAppError(t, err, http.StatusBadRequest, "validation.employeeIds")

	_, err = h.apps.Assign(ctx, h.admin(), app.ID, AssignInput{EmployeeIDs: []string{"not-a-uuid"}})
	requireAppError(t, err, http.StatusBadRequest, "validation.employeeIds")

	assigned, err := h.apps.Assign(ctx, h.admin(), app.ID, AssignInput{
		EmployeeIDs: []string{h.cast.Employee.ID},
		Task:        "Collect trade licence",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusUnderReview, assigned.Status)
	assert.Equal(t, []string{h.cast.Employee.ID}, assigned.AssigneeIDs())
	assert.Equal(t, "Collect trade licence", assigned.Assignments[0].Task)

	var tasks []models.Task
	require.NoError(t, h.db.Where("application_id = ?", app.ID).Find(&tasks).Error)
	require.Len(t, tasks, 1)
	assert.Equal(t, h.cast.Employee.ID, tasks[0].EmployeeID)

	entries := h.timelineOf(t, app.ID)
	require.Len(t, entries, 2)
	assert.Equal(t, models.StatusUnderReview, entries[1].Status)
	assert.Equal(t, 25, entries[1].Progress)

	assert.Len(t, h.notifications(t, h.cast.Employee.ID, "assignment_notification"), 1)
	assert.Len(t, h.notifications(t, h.cast.Client.ID, "status_update_notification"), 1)

	// same list again changes nothing
	_, err = h.apps.Assign(ctx, h.admin(), app.ID, AssignInput{EmployeeIDs: []string{h.cast.Employee.ID}})
	require.NoError(t, err)
	assert.Len(t, h.timelineOf(t, app.ID), 2)
	assert.Len(t, h.notifications(t, h.cast.Employee.ID, ""), 1)

	// replacing the list keeps the status and logs the change
	replaced, err := h.apps.Assign(ctx, h.admin(), app.ID, AssignInput{EmployeeIDs: []string{h.cast.Admin.ID}})
	require.NoError(t, err)
	assert.Equal(t, models.StatusUnderReview, replaced.Status)
	assert.Equal(t, []string{h.cast.Admin.ID}, replaced.AssigneeIDs())
	entries = h.timelineOf(t, app.ID)
	require.Len(t, entries, 3)
	assert.Equal(t, models.StatusUnderReview, entries[2].Status)
	assert.Len(t, h.notifications(t, h.cast.Client.ID, "assignment_notification"), 1)

	// the removed employee loses access
	_, err = h.apps.Get(ctx, h.employee(), app.ID)
	requireAppError(t, err, http.StatusForbidden, "")
}

func TestAssignAcceptsSingleEmployeeID(t *testing.T) {
	h := newHarness(t)
	app, _ := h.submit(t)

	var in AssignInput
	require.NoError(t, json.Unmarshal([]byte(`{"employeeIds":"`+h.cast.Employee.ID+`"}`), &in))

	assigned, err := h.apps.Assign(context.Background(), h.admin(), app.ID, in)
	require.NoError(t, err)
	assert.Equal(t, []string{h.cast.Employee.ID}, assigned.AssigneeIDs())
}

func TestMakePayment(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	submitted, _ := h.submit(t)

	_, _, err := h.apps.MakePayment(ctx, h.client(), submitted.ID, MakePaymentInput{})
	requireAppError(t, err, http.StatusBadRequest, "lifecycle.transition")

	app, pending := h.approved(t)
	_, _, err = h.apps.MakePayment(ctx, h.other(), app.ID, MakePaymentInput{})
	requireAppError(t, err, http.StatusForbidden, "")

	_, _, err = h.apps.MakePayment(ctx, h.employee(), app.ID, MakePaymentInput{})
	requireAppError(t, err, http.StatusForbidden, "")

	amount := decimal.NewFromInt(-1)
	_, _, err = h.apps.MakePayment(ctx, h.client(), app.ID, MakePaymentInput{Amount: &amount})
	requireAppError(t, err, http.StatusBadRequest, "validation.amount")

	paid, payment, err := h.apps.MakePayment(ctx, h.client(), app.ID, MakePaymentInput{Method: "card"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProcess, paid.Status)
	assert.Equal(t, 75, paid.Progress)
	assert.Equal(t, models.PaymentApproved, payment.Status)
	assert.Equal(t, models.PlanFull, payment.Plan)
	assert.Equal(t, "card", payment.Method)
	require.NotNil(t, payment.PaidAt)

	var count int64
	h.db.Model(&models.Payment{}).Where("application_id = ?", app.ID).Count(&count)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, pending.ID, payment.ID, "the pending payment is settled in place")

	entries := h.timelineOf(t, app.ID)
	assert.Equal(t, models.StatusInProcess, entries[len(entries)-1].Status)
	assert.Len(t, h.notifications(t, h.cast.Employee.ID, "payment_notification"), 1)

	_, _, err = h.apps.MakePayment(ctx, h.client(), app.ID, MakePaymentInput{})
	requireAppError(t, err, http.StatusBadRequest, "payment.exists")
}

func TestUpdateStatus(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	app, _ := h.approved(t)

	_, err := h.apps.UpdateStatus(ctx, h.employee(), app.ID, "finished", "")
	requireAppError(t, err, http.StatusBadRequest, "validation.status")

	// in_process is reserved for payment verification
	_, err = h.apps.UpdateStatus(ctx, h.employee(), app.ID, "in_process", "")
	requireAppError(t, err, http.StatusBadRequest, "lifecycle.transition")

	_, err = h.apps.UpdateStatus(ctx, h.other(), app.ID, "approved", "")
	requireAppError(t, err, http.StatusForbidden, "")

	_, _, err = h.apps.MakePayment(ctx, h.client(), app.ID, MakePaymentInput{})
	require.NoError(t, err)
	employeeBefore := len(h.notifications(t, h.cast.Employee.ID, "status_update_notification"))

	done, err := h.apps.UpdateStatus(ctx, h.employee(), app.ID, "completed", "Licence issued")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, done.Status)
	assert.Equal(t, 100, done.Progress)

	entries := h.timelineOf(t, app.ID)
	last := entries[len(entries)-1]
	assert.Equal(t, models.StatusCompleted, last.Status)
	assert.Equal(t, "Licence issued", last.Note)
	assert.Equal(t, h.cast.Employee.ID, last.AuthorID)

	client := h.notifications(t, h.cast.Client.ID, "status_update_notification")
	require.NotEmpty(t, client)
	assert.Equal(t, models.PriorityHigh, client[len(client)-1].Priority)
	assert.Len(t, h.notifications(t, h.cast.Employee.ID, "status_update_notification"), employeeBefore, "the caller is not notified")
	assert.NotEmpty(t, h.notifications(t, h.cast.Admin.ID, "status_update_notification"))

	_, err = h.apps.UpdateStatus(ctx, h.employee(), app.ID, "rejected", "")
	requireAppError(t, err, http.StatusBadRequest, "lifecycle.transition")
}

func TestAssignKeepsLaterStatuses(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	co := testutil.CreateUser(t, h.db, models.RoleEmployee, "co@example.com")

	app, _ := h.approved(t)
	_, _, err := h.apps.MakePayment(ctx, h.client(), app.ID, MakePaymentInput{})
	require.NoError(t, err)

	assignTwice := func(want models.ApplicationStatus, ids ...string) {
		t.Helper()
		for i := 0; i < 2; i++ {
			assigned, err := h.apps.Assign(ctx, h.admin(), app.ID, AssignInput{EmployeeIDs: ids})
			require.NoError(t, err)
			assert.Equal(t, want, assigned.Status)
			assert.Equal(t, want.Progress(), assigned.Progress)
			assert.ElementsMatch(t, ids, assigned.AssigneeIDs())
		}
	}

	before := len(h.timelineOf(t, app.ID))
	assignTwice(models.StatusInProcess, h.cast.Employee.ID)
	assert.Len(t, h.timelineOf(t, app.ID), before, "an unchanged list records nothing")

	assignTwice(models.StatusInProcess, h.cast.Employee.ID, co.ID)
	entries := h.timelineOf(t, app.ID)
	require.Len(t, entries, before+1)
	for _, e := range entries[before:] {
		assert.Equal(t, models.StatusInProcess, e.Status)
		assert.Equal(t, 0, e.Progress)
	}

	_, err = h.apps.UpdateStatus(ctx, h.employee(), app.ID, "completed", "")
	require.NoError(t, err)
	assignTwice(models.StatusCompleted, co.ID)
	assert.Equal(t, models.StatusCompleted, h.reload(t, app.ID).Status)
	assert.Equal(t, 100, h.reload(t, app.ID).Progress)
}

func TestCompletionNotifiesEveryPartyOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	co := testutil.CreateUser(t, h.db, models.RoleEmployee, "co@example.com")
	ops := testutil.CreateUser(t, h.db, models.RoleAdmin, "ops@example.com")

	app, _ := h.approved(t)
	// ops is both an assignee and an admin
	_, err := h.apps.Assign(ctx, h.admin(), app.ID, AssignInput{
		EmployeeIDs: []string{h.cast.Employee.ID, co.ID, ops.ID},
	})
	require.NoError(t, err)
	_, _, err = h.apps.MakePayment(ctx, h.client(), app.ID, MakePaymentInput{})
	require.NoError(t, err)

	parties := map[string]string{
		"client":   h.cast.Client.ID,
		"employee": h.cast.Employee.ID,
		"co":       co.ID,
		"admin":    h.cast.Admin.ID,
		"ops":      ops.ID,
	}
	counts := func() map[string]int {
		out := map[string]int{}
		for name, id := range parties {
			out[name] = len(h.notifications(t, id, "status_update_notification"))
		}
		return out
	}

	before := counts()
	_, err = h.apps.UpdateStatus(ctx, h.employee(), app.ID, "completed", "Licence issued")
	require.NoError(t, err)
	after := counts()

	assert.Equal(t, before["client"]+1, after["client"])
	assert.Equal(t, before["co"]+1, after["co"])
	assert.Equal(t, before["admin"]+1, after["admin"])
	assert.Equal(t, before["ops"]+1, after["ops"])
	assert.Equal(t, before["employee"], after["employee"], "the caller is not notified")

	client := h.notifications(t, h.cast.Client.ID, "status_update_notification")
	assert.Equal(t, models.PriorityHigh, client[len(client)-1].Priority)
	assert.Equal(t, models.NotifySuccess, client[len(client)-1].Type)

	// a later note on a finished application is an ordinary update
	_, err = h.apps.UpdateStatus(ctx, h.admin(), app.ID, "completed", "Archive copy sent")
	require.NoError(t, err)
	client = h.notifications(t, h.cast.Client.ID, "status_update_notification")
	require.Len(t, client, after["client"]+1)
	assert.Equal(t, models.PriorityNormal, client[len(client)-1].Priority)
}

func TestStatusMetricSkipsProgressNotes(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	app, _ := h.approved(t)

	same := StatusTransitions.WithLabelValues(string(models.StatusApproved), string(models.StatusApproved))
	paid := StatusTransitions.WithLabelValues(string(models.StatusApproved), string(models.StatusInProcess))
	sameBefore, paidBefore := promtest.ToFloat64(same), promtest.ToFloat64(paid)

	_, err := h.apps.UpdateStatus(ctx, h.employee(), app.ID, "approved", "Waiting on bank letter")
	require.NoError(t, err)
	_, _, err = h.apps.MakePayment(ctx, h.client(), app.ID, MakePaymentInput{})
	require.NoError(t, err)

	assert.Equal(t, sameBefore, promtest.ToFloat64(same))
	assert.Equal(t, paidBefore+1, promtest.ToFloat64(paid))
}

func TestEmployeeUpdate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	app, _ := h.approved(t)

	_, err := ParseEmployeeUpdate(map[string]json.RawMessage{"clientId": json.RawMessage(`"x"`)})
	requireAppError(t, err, http.StatusBadRequest, "validation.fields")

	_, err = ParseEmployeeUpdate(map[string]json.RawMessage{"status": json.RawMessage(`"bogus"`)})
	requireAppError(t, err, http.StatusBadRequest, "validation.status")

	_, err = ParseEmployeeUpdate(map[string]json.RawMessage{"estimatedCompletion": json.RawMessage(`"soon"`)})
	requireAppError(t, err, http.StatusBadRequest, "validation.fields")

	u, err := ParseEmployeeUpdate(map[string]json.RawMessage{
		"priority":            json.RawMessage(`"high"`),
		"internalNotes":       json.RawMessage(`"call back Tuesday"`),
		"estimatedCompletion": json.RawMessage(`"2026-04-30"`),
	})
	require.NoError(t, err)

	before := len(h.timelineOf(t, app.ID))
	updated, err := h.apps.EmployeeUpdate(ctx, h.employee(), app.ID, u)
	require.NoError(t, err)
	assert.Equal(t, models.PriorityHigh, updated.Priority)
	assert.Equal(t, models.StatusApproved, updated.Status)

	stored := h.reload(t, app.ID)
	assert.Equal(t, "call back Tuesday", stored.InternalNotes)
	require.NotNil(t, stored.EstimatedCompletion)
	assert.Equal(t, "2026-04-30", stored.EstimatedCompletion.Format("2006-01-02"))
	assert.Len(t, h.timelineOf(t, app.ID), before, "field edits do not touch the timeline")

	// a note alone is logged against the current status
	noteOnly, err := ParseEmployeeUpdate(map[string]json.RawMessage{"note": json.RawMessage(`"Waiting on bank letter"`)})
	require.NoError(t, err)
	_, err = h.apps.EmployeeUpdate(ctx, h.employee(), app.ID, noteOnly)
	require.NoError(t, err)
	entries := h.timelineOf(t, app.ID)
	require.Len(t, entries, before+1)
	assert.Equal(t, models.StatusApproved, entries[before].Status)
	assert.Equal(t, "Waiting on bank letter", entries[before].Note)

	clear, err := ParseEmployeeUpdate(map[string]json.RawMessage{"estimatedCompletion": json.RawMessage(`null`)})
	require.NoError(t, err)
	_, err = h.apps.EmployeeUpdate(ctx, h.employee(), app.ID, clear)
	require.NoError(t, err)
	assert.Nil(t, h.reload(t, app.ID).EstimatedCompletion)
}

func TestDeleteApplication(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	app, _ := h.approved(t)
	_, err := h.apps.SaveMessage(ctx, h.client(), app.ID, "hello")
	require.NoError(t, err)

	_, err = h.apps.Delete(ctx, h.client(), app.ID)
	requireAppError(t, err, http.StatusForbidden, "")

	counts, err := h.apps.Delete(ctx, h.admin(), app.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts.Applications)
	assert.Equal(t, int64(1), counts.Payments)
	assert.Equal(t, int64(1), counts.Messages)
	assert.Equal(t, int64(1), counts.Tasks)
	assert.Equal(t, int64(3), counts.Timeline)

	_, err = h.apps.Get(ctx, h.admin(), app.ID)
	requireAppError(t, err, http.StatusNotFound, "not_found")
	assert.Len(t, h.notifications(t, h.cast.Client.ID, "application_deleted_notification"), 1)
}

func TestListScopesByRole(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	mine, _ := h.submit(t)
	_, _, err := h.apps.Create(ctx, h.other(), payload(t, map[string]interface{}{"serviceType": "golden_visa"}), nil)
	require.NoError(t, err)
	_, err = h.apps.Assign(ctx, h.admin(), mine.ID, AssignInput{EmployeeIDs: []string{h.cast.Employee.ID}})
	require.NoError(t, err)

	all, err := h.apps.List(ctx, h.admin(), ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), all.Total)

	own, err := h.apps.List(ctx, h.client(), ListFilter{})
	require.NoError(t, err)
	require.Len(t, own.Items, 1)
	assert.Equal(t, mine.ID, own.Items[0].ID)

	assigned, err := h.apps.List(ctx, h.employee(), ListFilter{})
	require.NoError(t, err)
	require.Len(t, assigned.Items, 1)
	assert.Equal(t, mine.ID, assigned.Items[0].ID)

	golden, err := h.apps.List(ctx, h.admin(), ListFilter{ServiceType: "golden_visa"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), golden.Total)

	paged, err := h.apps.List(ctx, h.admin(), ListFilter{Page: Page{Page: 2, Limit: 1}})
	require.NoError(t, err)
	assert.Len(t, paged.Items, 1)
	assert.Equal(t, int64(2), paged.Total)

	_, err = h.apps.List(ctx, h.admin(), ListFilter{Status: "lost"})
	requireAppError(t, err, http.StatusBadRequest, "validation.filter")
}

func TestGetAccess(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	app, _ := h.submit(t)

	view, err := h.apps.Get(ctx, h.client(), app.ID)
	require.NoError(t, err)
	require.NotNil(t, view.Payment)
	assert.Equal(t, models.PaymentPending, view.Payment.Status)
	require.NotNil(t, view.Application.Client)
	assert.Equal(t, h.cast.Client.Email, view.Application.Client.Email)

	_, err = h.apps.Get(ctx, h.other(), app.ID)
	requireAppError(t, err, http.StatusForbidden, "")

	_, err = h.apps.Get(ctx, h.admin(), "12345")
	requireAppError(t, err, http.StatusNotFound, "not_found")

	_, err = h.apps.Timeline(ctx, h.other(), app.ID)
	requireAppError(t, err, http.StatusForbidden, "")

	assert.True(t, h.apps.CanJoinRoom(ctx, h.client(), app.ID))
	assert.False(t, h.apps.CanJoinRoom(ctx, h.other(), app.ID))
	assert.False(t, h.apps.CanJoinRoom(ctx, h.employee(), app.ID))
}
