package handlers

import (
	"net/http"
	"strings"
	"testing"

	"github.com/localnerve/bizflow/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFullPaymentVerification(t *testing.T) {
	s := newServer(t)
	appID, paymentID := s.createApplication(t)
	s.approveApplication(t, appID)

	resp := s.multipart(t, http.MethodPost, "/api/payments/"+paymentID+"/submit",
		map[string]string{"plan": "full"}, nil, s.cast.Client)
	testutil.AssertStatus(t, resp, http.StatusBadRequest)
	assert.Equal(t, "validation.receipt", testutil.ParseJSON(t, resp)["type"])

	resp = s.multipart(t, http.MethodPost, "/api/payments/"+paymentID+"/submit",
		map[string]string{"plan": "full"},
		[]formFile{{field: "receipt", name: "transfer.png", content: []byte("png")}}, s.cast.Other)
	testutil.AssertStatus(t, resp, http.StatusForbidden)

	resp = s.multipart(t, http.MethodPost, "/api/payments/"+paymentID+"/submit",
		map[string]string{"plan": "full"},
		[]formFile{{field: "receipt", name: "transfer.png", content: []byte("png")}}, s.cast.Client)
	testutil.AssertStatus(t, resp, http.StatusOK)
	payment := testutil.Data(t, testutil.ParseJSON(t, resp))
	assert.Equal(t, "submitted", payment["status"])
	assert.True(t, strings.HasPrefix(payment["receiptUrl"].(string), "/uploads/receipts/"))

	s.expect(t, http.StatusForbidden, http.MethodPatch, "/api/payments/"+paymentID+"/verify",
		map[string]interface{}{"action": "approve"}, s.cast.Employee)

	env := s.expect(t, http.StatusOK, http.MethodPatch, "/api/payments/"+paymentID+"/verify",
		map[string]interface{}{"action": "approve"}, s.cast.Admin)
	assert.Equal(t, "approved", testutil.Data(t, env)["status"])

	env = s.expect(t, http.StatusOK, http.MethodGet, "/api/applications/"+appID, nil, s.cast.Client)
	view := testutil.Data(t, env)
	assert.Equal(t, "in_process", view["application"].(map[string]interface{})["status"])
	assert.Equal(t, "approved", view["payment"].(map[string]interface{})["status"])
}

func TestInstallmentRoutes(t *testing.T) {
	s := newServer(t)
	appID, paymentID := s.createApplication(t)
	s.approveApplication(t, appID)
	base := "/api/payments/" + paymentID

	resp := s.multipart(t, http.MethodPost, base+"/submit",
		map[string]string{"plan": "installments"},
		[]formFile{{field: "receipt", name: "first.png", content: []byte("png")}}, s.cast.Client)
	testutil.AssertStatus(t, resp, http.StatusOK)
	installments := testutil.Data(t, testutil.ParseJSON(t, resp))["installments"].([]interface{})
	require.Len(t, installments, 3)
	assert.Equal(t, "1666.66", installments[0].(map[string]interface{})["amount"])
	assert.Equal(t, "1666.68", installments[2].(map[string]interface{})["amount"])

	s.expect(t, http.StatusNotFound, http.MethodPatch, base+"/installments/x/verify",
		map[string]interface{}{"action": "approve"}, s.cast.Admin)

	env := s.expect(t, http.StatusBadRequest, http.MethodPatch, base+"/verify",
		map[string]interface{}{"action": "approve"}, s.cast.Admin)
	assert.Equal(t, "payment.plan", env["type"])

	s.expect(t, http.StatusOK, http.MethodPatch, base+"/installments/0/verify",
		map[string]interface{}{"action": "approve"}, s.cast.Admin)

	for _, idx := range []string{"1", "2"} {
		resp = s.multipart(t, http.MethodPost, base+"/installments/"+idx+"/submit", nil,
			[]formFile{{field: "receipt", name: "part.png", content: []byte("png")}}, s.cast.Client)
		testutil.AssertStatus(t, resp, http.StatusOK)
		s.expect(t, http.StatusOK, http.MethodPatch, base+"/installments/"+idx+"/verify",
			map[string]interface{}{"action": "approve"}, s.cast.Admin)
	}

	env = s.expect(t, http.StatusOK, http.MethodGet, base, nil, s.cast.Employee)
	assert.Equal(t, "approved", testutil.Data(t, env)["status"])

	env = s.expect(t, http.StatusOK, http.MethodGet, "/api/applications/"+appID, nil, s.cast.Admin)
	assert.Equal(t, "in_process", testutil.Data(t, env)["application"].(map[string]interface{})["status"])
}

func TestPaymentListIsAdminOnly(t *testing.T) {
	s := newServer(t)
	s.createApplication(t)

	s.expect(t, http.StatusForbidden, http.MethodGet, "/api/payments", nil, s.cast.Client)

	env := s.expect(t, http.StatusOK, http.MethodGet, "/api/payments?status=pending", nil, s.cast.Admin)
	assert.Equal(t, float64(1), testutil.Data(t, env)["total"])
}
