package dto

import (
	appinvoicing "github.com/erp/invoicing/internal/application/invoicing"
	"github.com/shopspring/decimal"
)

// CreateInvoiceRequest is the body of POST /invoices.
// InvoiceID is optional; the next free ID is assigned when it is omitted.
type CreateInvoiceRequest struct {
	InvoiceID    *int64 `json:"invoiceID" binding:"omitempty,gt=0"`
	CustomerName string `json:"customerName" binding:"required,max=200"`
}

// ToServiceRequest converts the body to the application request
func (r CreateInvoiceRequest) ToServiceRequest() appinvoicing.CreateInvoiceRequest {
	return appinvoicing.CreateInvoiceRequest{
		InvoiceID:    r.InvoiceID,
		CustomerName: r.CustomerName,
	}
}

// Payment amounts accepted at the API
const (
	AmountMaxScale         = 4
	AmountMaxIntegerDigits = 14
)

var amountCeiling = decimal.New(1, AmountMaxIntegerDigits)

// ValidAmountPrecision reports whether d has at most AmountMaxScale decimal
// places and AmountMaxIntegerDigits integer digits. Trailing zeros do not count.
func ValidAmountPrecision(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(AmountMaxScale)) && d.Abs().LessThan(amountCeiling)
}

// CardPaymentRequest is the body of POST /invoices/:id/card-payment
type CardPaymentRequest struct {
	Amount     decimal.Decimal `json:"amount" binding:"gt=0"`
	CardNumber string          `json:"cardNumber" binding:"required,number,max=16"`
	CardHolder string          `json:"cardHolder" binding:"required,max=200"`
	Expiry     string          `json:"expiry" binding:"required,card_expiry"`
	CVV        int             `json:"cvv" binding:"required,min=100,max=9999"`
}

// ToServiceRequest converts the body to the application request
func (r CardPaymentRequest) ToServiceRequest() appinvoicing.AddCardPaymentRequest {
	return appinvoicing.AddCardPaymentRequest{
		Amount:         r.Amount,
		CardNumber:     r.CardNumber,
		CardHolderName: r.CardHolder,
		ExpiryDate:     r.Expiry,
		CVV:            r.CVV,
	}
}

// ChequePaymentRequest is the body of POST /invoices/:id/cheque-payment
type ChequePaymentRequest struct {
	Amount        decimal.Decimal `json:"amount" binding:"gt=0"`
	ChequeNumber  int64           `json:"chequeNumber" binding:"required,gt=0"`
	BankName      string          `json:"bankName" binding:"required,max=200"`
	AccountHolder string          `json:"accountHolder" binding:"required,max=200"`
}

// ToServiceRequest converts the body to the application request
func (r ChequePaymentRequest) ToServiceRequest() appinvoicing.AddChequePaymentRequest {
	return appinvoicing.AddChequePaymentRequest{
		Amount:            r.Amount,
		ChequeNumber:      r.ChequeNumber,
		BankName:          r.BankName,
		AccountHolderName: r.AccountHolder,
	}
}

// NextPaymentIDResponse is the body of GET /next-payment-id
type NextPaymentIDResponse struct {
	NextPaymentID int64 `json:"nextPaymentID"`
}

// NextInvoiceIDResponse is the body of GET /next-invoice-id
type NextInvoiceIDResponse struct {
	NextInvoiceID int64 `json:"nextInvoiceID"`
}

// RemovedPaymentResponse is the body of a successful payment removal
type RemovedPaymentResponse struct {
	InvoiceID int64 `json:"invoiceID"`
	PaymentID int64 `json:"paymentID"`
	Removed   bool  `json:"removed"`
}

// DeletedInvoiceResponse is the body of a successful invoice deletion
type DeletedInvoiceResponse struct {
	InvoiceID int64 `json:"invoiceID"`
	Deleted   bool  `json:"deleted"`
}
