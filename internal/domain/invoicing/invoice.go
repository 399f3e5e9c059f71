package invoicing

import (
	"fmt"
	"strings"

	"github.com/erp/invoicing/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Invoice is the aggregate root holding a customer's payments.
//
// totalAmount is maintained incrementally by AddPayment and RemovePayment and
// always equals the sum of the amounts in payments.
type Invoice struct {
	shared.BaseAggregateRoot
	invoiceID    int64
	customerName string
	payments     []Payment
	totalAmount  decimal.Decimal
}

// NewInvoice creates an invoice with no payments
func NewInvoice(invoiceID int64, customerName string) (*Invoice, error) {
	if invoiceID <= 0 {
		return nil, shared.NewDomainError("INVALID_INVOICE_ID", "Invoice ID must be positive")
	}
	if strings.TrimSpace(customerName) == "" {
		return nil, shared.NewDomainError("INVALID_CUSTOMER_NAME", "Customer name cannot be empty")
	}

	return &Invoice{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		invoiceID:         invoiceID,
		customerName:      customerName,
		payments:          make([]Payment, 0),
		totalAmount:       decimal.Zero,
	}, nil
}

// RestoreInvoice rebuilds an invoice loaded from storage.
// The total is recomputed from the payments rather than trusted from storage.
func RestoreInvoice(invoiceID int64, customerName string, payments []Payment, base shared.BaseAggregateRoot) *Invoice {
	inv := &Invoice{
		BaseAggregateRoot: base,
		invoiceID:         invoiceID,
		customerName:      customerName,
		payments:          make([]Payment, 0, len(payments)),
	}
	inv.payments = append(inv.payments, payments...)
	inv.totalAmount = inv.RecomputeTotal()
	return inv
}

// InvoiceID returns the invoice identifier
func (i *Invoice) InvoiceID() int64 {
	return i.invoiceID
}

// CustomerName returns the billed customer
func (i *Invoice) CustomerName() string {
	return i.customerName
}

// Payments returns a copy of the payments in insertion order
func (i *Invoice) Payments() []Payment {
	out := make([]Payment, len(i.payments))
	copy(out, i.payments)
	return out
}

// PaymentCount returns the number of payments
func (i *Invoice) PaymentCount() int {
	return len(i.payments)
}

// TotalAmount returns the running total of payment amounts
func (i *Invoice) TotalAmount() decimal.Decimal {
	return i.totalAmount
}

// AddPayment appends a payment and adds its amount to the total.
// Payment IDs are not checked for uniqueness; the registry guarantees them.
func (i *Invoice) AddPayment(p Payment) {
	i.payments = append(i.payments, p)
	i.totalAmount = i.totalAmount.Add(p.Amount())
	i.touch()
}

// RemovePayment removes the first payment with the given ID and subtracts its amount.
// It reports whether a payment was removed; on false the invoice is unchanged.
func (i *Invoice) RemovePayment(paymentID int64) bool {
	for idx, p := range i.payments {
		if p.PaymentID() != paymentID {
			continue
		}
		i.payments = append(i.payments[:idx:idx], i.payments[idx+1:]...)
		i.totalAmount = i.totalAmount.Sub(p.Amount())
		i.touch()
		return true
	}
	return false
}

// FindPayment returns the first payment with the given ID
func (i *Invoice) FindPayment(paymentID int64) (Payment, bool) {
	for _, p := range i.payments {
		if p.PaymentID() == paymentID {
			return p, true
		}
	}
	return nil, false
}

// RecomputeTotal sums the payment amounts from scratch
func (i *Invoice) RecomputeTotal() decimal.Decimal {
	total := decimal.Zero
	for _, p := range i.payments {
		total = total.Add(p.Amount())
	}
	return total
}

// VerifyTotal checks the running total against a full recomputation
func (i *Invoice) VerifyTotal() error {
	expected := i.RecomputeTotal()
	if !i.totalAmount.Equal(expected) {
		return shared.NewDomainError(shared.CodeTotalMismatch,
			fmt.Sprintf("Invoice %d total %s does not match payments sum %s",
				i.invoiceID, i.totalAmount.String(), expected.String()))
	}
	return nil
}

func (i *Invoice) touch() {
	i.IncrementVersion()
}
