// applications.go
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

package handlers

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/bizflow/internal/services"
	"github.com/localnerve/bizflow/internal/types"
	"github.com/localnerve/bizflow/internal/utils"
)

// ApplicationHandler handles the application lifecycle routes
type ApplicationHandler struct {
	Apps *services.ApplicationService
}

type statusRequest struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

// createdApplication is the create response body
type createdApplication struct {
	Application interface{} `json:"application"`
	Payment     interface{} `json:"payment"`
}

// createPayload builds the JSON document to validate from either a JSON body or a multipart form
func createPayload(c *fiber.Ctx) ([]byte, error) {
	if !isMultipart(c) {
		if len(c.Body()) == 0 {
			return nil, types.Validation("validation.body", "Request body is required", nil)
		}
		return c.Body(), nil
	}

	doc := map[string]interface{}{
		"serviceType": c.FormValue("serviceType"),
	}
	if p := c.FormValue("priority"); p != "" {
		doc["priority"] = p
	}
	if d := c.FormValue("details"); d != "" {
		var details map[string]interface{}
		if err := json.Unmarshal([]byte(d), &details); err != nil {
			return nil, types.Validation("validation.payload", "details must be a JSON object",
				map[string]string{"details": "must be a JSON object"})
		}
		doc["details"] = details
	}
	return json.Marshal(doc)
}

// Create handles POST /api/applications
// @Summary Submit an application
// @Description Clients submit a service application as JSON or multipart (serviceType, priority, details as JSON, documents files). A pending payment is created with the quoted price.
// @Tags Applications
// @Accept json,mpfd
// @Produce json
// @Security BearerAuth
// @Param body body services.CreateApplicationInput false "Application (JSON form)"
// @Success 201 {object} utils.SuccessResponseStruct{data=createdApplication}
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Router /applications [post]
func (h *ApplicationHandler) Create(c *fiber.Ctx) error {
	caller, err := identity(c)
	if err != nil {
		return err
	}
	raw, err := createPayload(c)
	if err != nil {
		return err
	}

	var uploads []services.Upload
	if isMultipart(c) {
		form, err := c.MultipartForm()
		if err != nil {
			return types.Validation("validation.body", "Malformed multipart form", nil)
		}
		var release func()
		uploads, release, err = openUploads(form.File["documents"])
		if err != nil {
			return err
		}
		defer release()
	}

	app, payment, err := h.Apps.Create(c.UserContext(), caller, raw, uploads)
	if err != nil {
		return err
	}
	return utils.Created(c, "Application submitted", createdApplication{Application: app, Payment: payment})
}

// List handles GET /api/applications
// @Summary List applications
// @Description Clients see their own, employees see assigned, admins see all
// @Tags Applications
// @Produce json
// @Security BearerAuth
// @Param status query string false "Status filter"
// @Param serviceType query string false "Service type filter"
// @Param page query int false "Page (1-based)"
// @Param limit query int false "Page size (max 100)"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Router /applications [get]
func (h *ApplicationHandler) List(c *fiber.Ctx) error {
	caller, err := identity(c)
	if err != nil {
		return err
	}
	result, err := h.Apps.List(c.UserContext(), caller, services.ListFilter{
		Status:      c.Query("status"),
		ServiceType: c.Query("serviceType"),
		Page:        parsePage(c),
	})
	if err != nil {
		return err
	}
	return utils.OK(c, "OK", result)
}

// Get handles GET /api/applications/:id
// @Summary Get an application
// @Tags Applications
// @Produce json
// @Security BearerAuth
// @Param id path string true "Application ID"
// @Success 200 {object} utils.SuccessResponseStruct{data=services.ApplicationView}
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /applications/{id} [get]
func (h *ApplicationHandler) Get(c *fiber.Ctx) error {
	caller, err := identity(c)
	if err != nil {
		return err
	}
	view, err := h.Apps.Get(c.UserContext(), caller, c.Params("id"))
	if err != nil {
		return err
	}
	return utils.OK(c, "OK", view)
}

// Timeline handles GET /api/applications/:id/timeline
// @Summary Application timeline
// @Description Audit entries oldest first
// @Tags Applications
// @Produce json
// @Security BearerAuth
// @Param id path string true "Application ID"
// @Success 200 {object} utils.SuccessResponseStruct{data=[]models.TimelineEntry}
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /applications/{id}/timeline [get]
func (h *ApplicationHandler) Timeline(c *fiber.Ctx) error {
	caller, err := identity(c)
	if err != nil {
		return err
	}
	entries, err := h.Apps.Timeline(c.UserContext(), caller, c.Params("id"))
	if err != nil {
		return err
	}
	return utils.OK(c, "OK", entries)
}

// Review handles PATCH /api/applications/:id/review
// @Summary Approve or reject
// @Description Staff only; reject requires a reason
// @Tags Applications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Application ID"
// @Param body body services.ReviewInput true "approve or reject"
// @Success 200 {object} utils.SuccessResponseStruct{data=models.Application}
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /applications/{id}/review [patch]
func (h *ApplicationHandler) Review(c *fiber.Ctx) error {
	caller, err := identity(c)
	if err != nil {
		return err
	}
	var in services.ReviewInput
	if err := bindJSON(c, &in); err != nil {
		return err
	}
	app, err := h.Apps.Review(c.UserContext(), caller, c.Params("id"), in)
	if err != nil {
		return err
	}
	return utils.OK(c, "Application "+string(app.Status), app)
}

// MakePayment handles POST /api/applications/:id/payment
// @Summary Pay for an approved application
// @Description Owning client only; settles the pending payment and moves the application to in_process
// @Tags Applications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Application ID"
// @Param body body services.MakePaymentInput true "Amount and method"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Router /applications/{id}/payment [post]
func (h *ApplicationHandler) MakePayment(c *fiber.Ctx) error {
	caller, err := identity(c)
	if err != nil {
		return err
	}
	var in services.MakePaymentInput
	if len(c.Body()) > 0 {
		if err := bindJSON(c, &in); err != nil {
			return err
		}
	}
	app, payment, err := h.Apps.MakePayment(c.UserContext(), caller, c.Params("id"), in)
	if err != nil {
		return err
	}
	return utils.OK(c, "Payment recorded", createdApplication{Application: app, Payment: payment})
}

// Assign handles PATCH /api/applications/:id/assign
// @Summary Assign employees
// @Description Replaces the assigned employee list; employeeIds may be a single id or an array
// @Tags Applications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Application ID"
// @Param body body services.AssignInput true "Employees and task"
// @Success 200 {object} utils.SuccessResponseStruct{data=models.Application}
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Router /applications/{id}/assign [patch]
func (h *ApplicationHandler) Assign(c *fiber.Ctx) error {
	caller, err := identity(c)
	if err != nil {
		return err
	}
	var in services.AssignInput
	if err := bindJSON(c, &in); err != nil {
		return err
	}
	app, err := h.Apps.Assign(c.UserContext(), caller, c.Params("id"), in)
	if err != nil {
		return err
	}
	return utils.OK(c, "Employees assigned", app)
}

// Delete handles DELETE /api/applications/:id
// @Summary Delete an application
// @Description Staff only; removes documents, timeline, payments, tasks, messages and assignments
// @Tags Applications
// @Produce json
// @Security BearerAuth
// @Param id path string true "Application ID"
// @Success 200 {object} utils.SuccessResponseStruct{data=services.DeleteCounts}
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /applications/{id} [delete]
func (h *ApplicationHandler) Delete(c *fiber.Ctx) error {
	caller, err := identity(c)
	if err != nil {
		return err
	}
	counts, err := h.Apps.Delete(c.UserContext(), caller, c.Params("id"))
	if err != nil {
		return err
	}
	return utils.OK(c, "Application deleted", counts)
}

// UpdateStatus handles PATCH /api/status/:id/update
// @Summary Update application status
// @Description Assigned employee or admin; validated against the transition table
// @Tags Status
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Application ID"
// @Param body body statusRequest true "New status and note"
// @Success 200 {object} utils.SuccessResponseStruct{data=models.Application}
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Router /status/{id}/update [patch]
func (h *ApplicationHandler) UpdateStatus(c *fiber.Ctx) error {
	caller, err := identity(c)
	if err != nil {
		return err
	}
	var in statusRequest
	if err := bindJSON(c, &in); err != nil {
		return err
	}
	app, err := h.Apps.UpdateStatus(c.UserContext(), caller, c.Params("id"), in.Status, in.Note)
	if err != nil {
		return err
	}
	return utils.OK(c, "Status updated", app)
}

// EmployeeUpdate handles PATCH /api/employees/applications/:id
// @Summary Employee field update
// @Description Allowed fields: status, note, priority, internalNotes, estimatedCompletion
// @Tags Employees
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Application ID"
// @Success 200 {object} utils.SuccessResponseStruct{data=models.Application}
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Router /employees/applications/{id} [patch]
func (h *ApplicationHandler) EmployeeUpdate(c *fiber.Ctx) error {
	caller, err := identity(c)
	if err != nil {
		return err
	}
	var body map[string]json.RawMessage
	if err := bindJSON(c, &body); err != nil {
		return err
	}
	update, err := services.ParseEmployeeUpdate(body)
	if err != nil {
		return err
	}
	app, err := h.Apps.EmployeeUpdate(c.UserContext(), caller, c.Params("id"), update)
	if err != nil {
		return err
	}
	return utils.OK(c, "Application updated", app)
}
