package dto

import (
	"encoding/json"
	"net/http"
	"testing"

	appinvoicing "github.com/erp/invoicing/internal/application/invoicing"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{ErrCodeUnknown, http.StatusInternalServerError},
		{ErrCodeInternal, http.StatusInternalServerError},
		{ErrCodeServiceUnavailable, http.StatusServiceUnavailable},
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeAlreadyExists, http.StatusConflict},
		{ErrCodeInvalidState, http.StatusUnprocessableEntity},
		{ErrCodeBadRequest, http.StatusBadRequest},
		{ErrCodeInvalidInput, http.StatusBadRequest},
		{ErrCodeInvalidJSON, http.StatusBadRequest},
		{ErrCodePayloadTooLarge, http.StatusRequestEntityTooLarge},
		{ErrCodeRateLimited, http.StatusTooManyRequests},
		// Unknown code should return 500
		{"UNKNOWN_CODE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}

func TestNormalizeErrorCode(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"NOT_FOUND", ErrCodeNotFound},
		{"ALREADY_EXISTS", ErrCodeAlreadyExists},
		{"INVALID_INPUT", ErrCodeInvalidInput},
		{"INVALID_STATE", ErrCodeInvalidState},
		{"VALIDATION_ERROR", ErrCodeValidation},
		{"TOTAL_MISMATCH", ErrCodeInternal},
		{"SEQUENCE_FAILURE", ErrCodeInternal},
		{"BAD_REQUEST", ErrCodeBadRequest},
		{"INTERNAL_ERROR", ErrCodeInternal},
		// Field-level domain codes collapse to validation
		{"INVALID_AMOUNT", ErrCodeValidation},
		{"INVALID_CVV", ErrCodeValidation},
		{"INVALID_CUSTOMER_NAME", ErrCodeValidation},
		// API codes pass through unchanged
		{ErrCodeNotFound, ErrCodeNotFound},
		{ErrCodeValidation, ErrCodeValidation},
		{"CUSTOM_ERROR", "CUSTOM_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeErrorCode(tt.input))
		})
	}
}

func TestNormalizedDomainCodesHaveStatus(t *testing.T) {
	for domainCode, apiCode := range DomainErrorCodeMapping {
		_, ok := ErrorCodeHTTPStatus[apiCode]
		assert.True(t, ok, "domain code %s maps to %s which has no HTTP status", domainCode, apiCode)
	}
}

func TestNewErrorResponse(t *testing.T) {
	resp := NewErrorResponse("NOT_FOUND", "Invoice with ID 42 not found")

	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
	assert.Equal(t, "Invoice with ID 42 not found", resp.Error.Message)
	assert.Empty(t, resp.Error.RequestID)
	assert.False(t, resp.Error.Timestamp.IsZero())
}

func TestNewValidationErrorResponse(t *testing.T) {
	details := []ValidationDetail{
		{Field: "amount", Message: "must be greater than 0"},
		{Field: "expiry", Message: "must be a card expiry in MM/YY format"},
	}
	resp := NewValidationErrorResponse("Request validation failed", "req-1", details)

	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeValidation, resp.Error.Code)
	assert.Equal(t, "req-1", resp.Error.RequestID)
	assert.Len(t, resp.Error.Details, 2)

	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"request_id":"req-1"`)
	assert.Contains(t, string(raw), `"field":"amount"`)
	assert.NotContains(t, string(raw), `"data"`)
}

func TestSuccessResponse_AmountsAreNumbers(t *testing.T) {
	resp := NewSuccessResponse(appinvoicing.InvoiceSummary{
		InvoiceID:    1001,
		CustomerName: "Default Customer",
		TotalAmount:  decimal.RequireFromString("50.25"),
		PaymentCount: 1,
	})

	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"success":true,"data":{"invoiceID":1001,"customerName":"Default Customer","totalAmount":50.25,"paymentCount":1}}`,
		string(raw))
}

func TestCardPaymentRequest_ToServiceRequest(t *testing.T) {
	req := CardPaymentRequest{
		Amount:     decimal.NewFromInt(100),
		CardNumber: "4111111111111111",
		CardHolder: "John Doe",
		Expiry:     "12/25",
		CVV:        123,
	}

	got := req.ToServiceRequest()
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, "4111111111111111", got.CardNumber)
	assert.Equal(t, "John Doe", got.CardHolderName)
	assert.Equal(t, "12/25", got.ExpiryDate)
	assert.Equal(t, 123, got.CVV)
}

func TestChequePaymentRequest_DecodesNumericAmount(t *testing.T) {
	var req ChequePaymentRequest
	err := json.Unmarshal([]byte(`{"amount":50,"chequeNumber":555,"bankName":"First Bank","accountHolder":"Jane Doe"}`), &req)
	require.NoError(t, err)

	got := req.ToServiceRequest()
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, int64(555), got.ChequeNumber)
	assert.Equal(t, "First Bank", got.BankName)
	assert.Equal(t, "Jane Doe", got.AccountHolderName)
}
