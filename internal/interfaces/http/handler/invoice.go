package handler

import (
	"context"

	appinvoicing "github.com/erp/invoicing/internal/application/invoicing"
	"github.com/erp/invoicing/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// InvoiceService is the part of the invoice registry the HTTP API needs
type InvoiceService interface {
	CreateInvoice(ctx context.Context, req appinvoicing.CreateInvoiceRequest) (*appinvoicing.InvoiceDetail, error)
	GetInvoice(ctx context.Context, invoiceID int64) (*appinvoicing.InvoiceDetail, error)
	ListInvoices(ctx context.Context) ([]appinvoicing.InvoiceSummary, error)
	DeleteInvoice(ctx context.Context, invoiceID int64) error
	AddCardPayment(ctx context.Context, invoiceID int64, req appinvoicing.AddCardPaymentRequest) (*appinvoicing.PaymentReceipt, error)
	AddChequePayment(ctx context.Context, invoiceID int64, req appinvoicing.AddChequePaymentRequest) (*appinvoicing.PaymentReceipt, error)
	RemovePayment(ctx context.Context, invoiceID, paymentID int64) error
	NextPaymentID(ctx context.Context) (int64, error)
	NextInvoiceID(ctx context.Context) (int64, error)
}

// InvoiceHandler handles invoice and payment API endpoints
type InvoiceHandler struct {
	BaseHandler
	invoiceService InvoiceService
}

// NewInvoiceHandler creates a new InvoiceHandler
func NewInvoiceHandler(invoiceService InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService: invoiceService,
	}
}

// List godoc
// @ID           listInvoices
// @Summary      List invoices
// @Description  Returns every invoice ordered by invoice ID
// @Tags         invoices
// @Produce      json
// @Success      200 {object} InvoiceListResponse
// @Failure      500 {object} ErrorResponse
// @Router       /invoices [get]
func (h *InvoiceHandler) List(c *gin.Context) {
	invoices, err := h.invoiceService.ListInvoices(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, invoices)
}

// Get godoc
// @ID           getInvoice
// @Summary      Get an invoice
// @Description  Returns an invoice with all of its payments
// @Tags         invoices
// @Produce      json
// @Param        id  path     int  true  "Invoice ID"
// @Success      200 {object} InvoiceDetailResponse
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /invoices/{id} [get]
func (h *InvoiceHandler) Get(c *gin.Context) {
	invoiceID, ok := h.int64Param(c, "id")
	if !ok {
		return
	}

	invoice, err := h.invoiceService.GetInvoice(c.Request.Context(), invoiceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, invoice)
}

// Create godoc
// @ID           createInvoice
// @Summary      Create an invoice
// @Description  Creates an invoice. Without invoiceID the next free ID is assigned.
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        request body     dto.CreateInvoiceRequest true "Invoice creation request"
// @Success      201 {object} InvoiceDetailResponse
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Router       /invoices [post]
func (h *InvoiceHandler) Create(c *gin.Context) {
	var req dto.CreateInvoiceRequest
	if !h.bindJSON(c, &req) {
		return
	}

	invoice, err := h.invoiceService.CreateInvoice(c.Request.Context(), req.ToServiceRequest())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, invoice)
}

// Delete godoc
// @ID           deleteInvoice
// @Summary      Delete an invoice
// @Tags         invoices
// @Produce      json
// @Param        id  path     int  true  "Invoice ID"
// @Success      200 {object} APIResponse[dto.DeletedInvoiceResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /invoices/{id} [delete]
func (h *InvoiceHandler) Delete(c *gin.Context) {
	invoiceID, ok := h.int64Param(c, "id")
	if !ok {
		return
	}

	if err := h.invoiceService.DeleteInvoice(c.Request.Context(), invoiceID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.DeletedInvoiceResponse{InvoiceID: invoiceID, Deleted: true})
}

// AddCardPayment godoc
// @ID           addCardPayment
// @Summary      Pay an invoice by card
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        id      path int                    true "Invoice ID"
// @Param        request body dto.CardPaymentRequest true "Card payment"
// @Success      201 {object} PaymentReceiptResponse
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /invoices/{id}/card-payment [post]
func (h *InvoiceHandler) AddCardPayment(c *gin.Context) {
	invoiceID, ok := h.int64Param(c, "id")
	if !ok {
		return
	}
	var req dto.CardPaymentRequest
	if !h.bindJSON(c, &req) {
		return
	}

	receipt, err := h.invoiceService.AddCardPayment(c.Request.Context(), invoiceID, req.ToServiceRequest())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, receipt)
}

// AddChequePayment godoc
// @ID           addChequePayment
// @Summary      Pay an invoice by cheque
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        id      path int                      true "Invoice ID"
// @Param        request body dto.ChequePaymentRequest true "Cheque payment"
// @Success      201 {object} PaymentReceiptResponse
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /invoices/{id}/cheque-payment [post]
func (h *InvoiceHandler) AddChequePayment(c *gin.Context) {
	invoiceID, ok := h.int64Param(c, "id")
	if !ok {
		return
	}
	var req dto.ChequePaymentRequest
	if !h.bindJSON(c, &req) {
		return
	}

	receipt, err := h.invoiceService.AddChequePayment(c.Request.Context(), invoiceID, req.ToServiceRequest())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, receipt)
}

// RemovePayment godoc
// @ID           removePayment
// @Summary      Remove a payment from an invoice
// @Tags         payments
// @Produce      json
// @Param        id        path int true "Invoice ID"
// @Param        paymentId path int true "Payment ID"
// @Success      200 {object} APIResponse[dto.RemovedPaymentResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /invoices/{id}/payments/{paymentId} [delete]
func (h *InvoiceHandler) RemovePayment(c *gin.Context) {
	invoiceID, ok := h.int64Param(c, "id")
	if !ok {
		return
	}
	paymentID, ok := h.int64Param(c, "paymentId")
	if !ok {
		return
	}

	if err := h.invoiceService.RemovePayment(c.Request.Context(), invoiceID, paymentID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.RemovedPaymentResponse{InvoiceID: invoiceID, PaymentID: paymentID, Removed: true})
}

// NextPaymentID godoc
// @ID           nextPaymentID
// @Summary      Peek at the next payment ID
// @Tags         payments
// @Produce      json
// @Success      200 {object} APIResponse[dto.NextPaymentIDResponse]
// @Router       /next-payment-id [get]
func (h *InvoiceHandler) NextPaymentID(c *gin.Context) {
	next, err := h.invoiceService.NextPaymentID(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NextPaymentIDResponse{NextPaymentID: next})
}

// NextInvoiceID godoc
// @ID           nextInvoiceID
// @Summary      Peek at the next auto-assigned invoice ID
// @Tags         invoices
// @Produce      json
// @Success      200 {object} APIResponse[dto.NextInvoiceIDResponse]
// @Router       /next-invoice-id [get]
func (h *InvoiceHandler) NextInvoiceID(c *gin.Context) {
	next, err := h.invoiceService.NextInvoiceID(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NextInvoiceIDResponse{NextInvoiceID: next})
}
