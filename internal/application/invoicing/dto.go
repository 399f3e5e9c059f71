package invoicing

import (
	"github.com/erp/invoicing/internal/domain/invoicing"
	"github.com/shopspring/decimal"
)

// ==================== Requests ====================

// CreateInvoiceRequest represents a request to create an invoice.
// A nil InvoiceID asks the service to assign the next free ID.
type CreateInvoiceRequest struct {
	InvoiceID    *int64
	CustomerName string
}

// AddCardPaymentRequest represents a card payment to apply to an invoice
type AddCardPaymentRequest struct {
	Amount         decimal.Decimal
	CardNumber     string
	CardHolderName string
	ExpiryDate     string
	CVV            int
}

// AddChequePaymentRequest represents a cheque payment to apply to an invoice
type AddChequePaymentRequest struct {
	Amount            decimal.Decimal
	ChequeNumber      int64
	BankName          string
	AccountHolderName string
}

// ==================== Responses ====================

// InvoiceSummary is the list projection of an invoice
type InvoiceSummary struct {
	InvoiceID    int64           `json:"invoiceID"`
	CustomerName string          `json:"customerName"`
	TotalAmount  decimal.Decimal `json:"totalAmount"`
	PaymentCount int             `json:"paymentCount"`
}

// InvoiceDetail is the full projection of an invoice with its payments
type InvoiceDetail struct {
	InvoiceID    int64           `json:"invoiceID"`
	CustomerName string          `json:"customerName"`
	TotalAmount  decimal.Decimal `json:"totalAmount"`
	Payments     []PaymentView   `json:"payments"`
}

// PaymentView is the projection of a single payment.
// Details holds CardDetails or ChequeDetails depending on Type.
type PaymentView struct {
	PaymentID int64                 `json:"paymentID"`
	Type      invoicing.PaymentType `json:"type"`
	Amount    decimal.Decimal       `json:"amount"`
	Details   any                   `json:"details"`
}

// CardDetails carries the card-specific fields of a payment
type CardDetails struct {
	CardNumber string `json:"cardNumber"`
	CardHolder string `json:"cardHolder"`
	Expiry     string `json:"expiry"`
	CVV        int    `json:"cvv"`
}

// ChequeDetails carries the cheque-specific fields of a payment
type ChequeDetails struct {
	ChequeNumber  int64  `json:"chequeNumber"`
	BankName      string `json:"bankName"`
	AccountHolder string `json:"accountHolder"`
}

// PaymentReceipt is returned after a payment has been applied
type PaymentReceipt struct {
	InvoiceID     int64                 `json:"invoiceID"`
	PaymentID     int64                 `json:"paymentID"`
	Type          invoicing.PaymentType `json:"type"`
	Amount        decimal.Decimal       `json:"amount"`
	TotalAmount   decimal.Decimal       `json:"totalAmount"`
	NextPaymentID int64                 `json:"nextPaymentID"`
}

// ==================== Mappers ====================

// ToInvoiceSummary projects an invoice into its list form
func ToInvoiceSummary(inv *invoicing.Invoice) InvoiceSummary {
	return InvoiceSummary{
		InvoiceID:    inv.InvoiceID(),
		CustomerName: inv.CustomerName(),
		TotalAmount:  inv.TotalAmount(),
		PaymentCount: inv.PaymentCount(),
	}
}

// ToInvoiceSummaries projects a list of invoices
func ToInvoiceSummaries(invoices []*invoicing.Invoice) []InvoiceSummary {
	out := make([]InvoiceSummary, len(invoices))
	for i, inv := range invoices {
		out[i] = ToInvoiceSummary(inv)
	}
	return out
}

// ToInvoiceDetail projects an invoice with all its payments
func ToInvoiceDetail(inv *invoicing.Invoice) InvoiceDetail {
	payments := inv.Payments()
	views := make([]PaymentView, len(payments))
	for i, p := range payments {
		views[i] = ToPaymentView(p)
	}
	return InvoiceDetail{
		InvoiceID:    inv.InvoiceID(),
		CustomerName: inv.CustomerName(),
		TotalAmount:  inv.TotalAmount(),
		Payments:     views,
	}
}

// ToPaymentView projects a payment, selecting the detail shape by variant
func ToPaymentView(p invoicing.Payment) PaymentView {
	view := PaymentView{
		PaymentID: p.PaymentID(),
		Type:      p.PaymentType(),
		Amount:    p.Amount(),
	}
	switch m := p.(type) {
	case *invoicing.CardMethod:
		view.Details = CardDetails{
			CardNumber: m.CardNumber(),
			CardHolder: m.CardHolderName(),
			Expiry:     m.ExpiryDate(),
			CVV:        m.CVV(),
		}
	case *invoicing.ChequeMethod:
		view.Details = ChequeDetails{
			ChequeNumber:  m.ChequeNumber(),
			BankName:      m.BankName(),
			AccountHolder: m.AccountHolderName(),
		}
	}
	return view
}
