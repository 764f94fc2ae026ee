package handlers

import (
	"mime/multipart"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/bizflow/internal/models"
	"github.com/localnerve/bizflow/internal/services"
	"github.com/localnerve/bizflow/internal/utils"
)

// PaymentHandler handles receipt submission and admin verification
type PaymentHandler struct {
	Payments *services.PaymentService
}

// receipt opens the "receipt" file of a multipart request.
// A missing file yields a nil upload and the service reports it.
func receipt(c *fiber.Ctx) (*services.Upload, func(), error) {
	if !isMultipart(c) {
		return nil, func() {}, nil
	}
	fh, err := c.FormFile("receipt")
	if err != nil {
		return nil, func() {}, nil
	}
	uploads, release, err := openUploads([]*multipart.FileHeader{fh})
	if err != nil {
		return nil, release, err
	}
	return &uploads[0], release, nil
}

// Submit handles POST /api/payments/:id/submit
// @Summary Submit a payment receipt
// @Description Multipart form with plan (full or installments) and a receipt file. For installments the receipt covers the first part.
// @Tags Payments
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Param id path string true "Payment ID"
// @Param plan formData string true "full or installments"
// @Param receipt formData file true "Receipt"
// @Success 200 {object} utils.SuccessResponseStruct{data=models.Payment}
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Router /payments/{id}/submit [post]
func (h *PaymentHandler) Submit(c *fiber.Ctx) error {
	caller, err := identity(c)
	if err != nil {
		return err
	}
	upload, release, err := receipt(c)
	defer release()
	if err != nil {
		return err
	}

	payment, err := h.Payments.Submit(c.UserContext(), caller, c.Params("id"), services.SubmitPaymentInput{
		Plan:    models.PaymentPlan(c.FormValue("plan")),
		Receipt: upload,
	})
	if err != nil {
		return err
	}
	return utils.OK(c, "Payment submitted for verification", payment)
}

// SubmitInstallment handles POST /api/payments/:id/installments/:index/submit
// @Summary Submit an installment receipt
// @Tags Payments
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Param id path string true "Payment ID"
// @Param index path int true "Installment index (0-based)"
// @Param receipt formData file true "Receipt"
// @Success 200 {object} utils.SuccessResponseStruct{data=models.Payment}
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /payments/{id}/installments/{index}/submit [post]
func (h *PaymentHandler) SubmitInstallment(c *fiber.Ctx) error {
	caller, err := identity(c)
	if err != nil {
		return err
	}
	index, err := parseIndex(c, "index")
	if err != nil {
		return err
	}
	upload, release, err := receipt(c)
	defer release()
	if err != nil {
		return err
	}

	payment, err := h.Payments.SubmitInstallment(c.UserContext(), caller, c.Params("id"), index, upload)
	if err != nil {
		return err
	}
	return utils.OK(c, "Installment submitted for verification", payment)
}

// Verify handles PATCH /api/payments/:id/verify
// @Summary Verify a full payment
// @Description Admin only; approving moves an approved application to in_process
// @Tags Payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Payment ID"
// @Param body body services.VerifyInput true "approve or reject"
// @Success 200 {object} utils.SuccessResponseStruct{data=models.Payment}
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Router /payments/{id}/verify [patch]
func (h *PaymentHandler) Verify(c *fiber.Ctx) error {
	caller, err := identity(c)
	if err != nil {
		return err
	}
	var in services.VerifyInput
	if err := bindJSON(c, &in); err != nil {
		return err
	}
	payment, err := h.Payments.Verify(c.UserContext(), caller, c.Params("id"), in)
	if err != nil {
		return err
	}
	return utils.OK(c, "Payment "+string(payment.Status), payment)
}

// VerifyInstallment handles PATCH /api/payments/:id/installments/:index/verify
// @Summary Verify an installment
// @Description Admin only; approving the last installment approves the payment
// @Tags Payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Payment ID"
// @Param index path int true "Installment index (0-based)"
// @Param body body services.VerifyInput true "approve or reject"
// @Success 200 {object} utils.SuccessResponseStruct{data=models.Payment}
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /payments/{id}/installments/{index}/verify [patch]
func (h *PaymentHandler) VerifyInstallment(c *fiber.Ctx) error {
	caller, err := identity(c)
	if err != nil {
		return err
	}
	index, err := parseIndex(c, "index")
	if err != nil {
		return err
	}
	var in services.VerifyInput
	if err := bindJSON(c, &in); err != nil {
		return err
	}
	payment, err := h.Payments.VerifyInstallment(c.UserContext(), caller, c.Params("id"), index, in)
	if err != nil {
		return err
	}
	return utils.OK(c, "Installment verified", payment)
}

// List handles GET /api/payments
// @Summary List payments
// @Description Admin only
// @Tags Payments
// @Produce json
// @Security BearerAuth
// @Param status query string false "Payment status"
// @Param page query int false "Page (1-based)"
// @Param limit query int false "Page size (max 100)"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Router /payments [get]
func (h *PaymentHandler) List(c *fiber.Ctx) error {
	caller, err := identity(c)
	if err != nil {
		return err
	}
	result, err := h.Payments.List(c.UserContext(), caller, services.PaymentFilter{
		Status: c.Query("status"),
		Page:   parsePage(c),
	})
	if err != nil {
		return err
	}
	return utils.OK(c, "OK", result)
}

// Get handles GET /api/payments/:id
// @Summary Get a payment
// @Tags Payments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Payment ID"
// @Success 200 {object} utils.SuccessResponseStruct{data=models.Payment}
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /payments/{id} [get]
func (h *PaymentHandler) Get(c *fiber.Ctx) error {
	caller, err := identity(c)
	if err != nil {
		return err
	}
	payment, err := h.Payments.Get(c.UserContext(), caller, c.Params("id"))
	if err != nil {
		return err
	}
	return utils.OK(c, "OK", payment)
}
