package handler

import (
	appinvoicing "github.com/erp/invoicing/internal/application/invoicing"
	"github.com/erp/invoicing/internal/interfaces/http/dto"
)

// Envelope types below exist for the generated API docs only. Handlers
// write dto.Response; these mirror its shape with concrete data types.

// APIResponse is the success envelope with a typed data field
type APIResponse[T any] struct {
	Success bool           `json:"success" example:"true"`
	Data    T              `json:"data,omitempty"`
	Error   *dto.ErrorInfo `json:"error,omitempty"`
}

// ErrorResponse is the failure envelope; error.code is one of the ERR_* codes
type ErrorResponse struct {
	Success bool           `json:"success" example:"false"`
	Error   *dto.ErrorInfo `json:"error"`
}

type (
	// InvoiceListResponse wraps GET /invoices
	InvoiceListResponse = APIResponse[[]appinvoicing.InvoiceSummary]
	// InvoiceDetailResponse wraps a single invoice with its payments
	InvoiceDetailResponse = APIResponse[appinvoicing.InvoiceDetail]
	// PaymentReceiptResponse wraps a newly recorded payment
	PaymentReceiptResponse = APIResponse[appinvoicing.PaymentReceipt]
)
