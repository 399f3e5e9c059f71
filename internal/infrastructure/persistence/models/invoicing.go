package models

import (
	"fmt"

	"github.com/erp/invoicing/internal/domain/invoicing"
)

// InvoiceModel is the persistence model for the Invoice aggregate root.
// The total is not stored; it is recomputed from payments on load.
type InvoiceModel struct {
	InvoiceID    int64  `gorm:"column:invoice_id;primaryKey;autoIncrement:false"`
	CustomerName string `gorm:"type:varchar(200);not null"`
	AggregateModel
	Payments []PaymentModel `gorm:"foreignKey:InvoiceID;references:InvoiceID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice.
// Payments are restored in Position order.
func (m *InvoiceModel) ToDomain() (*invoicing.Invoice, error) {
	payments := make([]invoicing.Payment, len(m.Payments))
	for i := range m.Payments {
		p, err := m.Payments[i].ToDomain()
		if err != nil {
			return nil, fmt.Errorf("invoice %d: %w", m.InvoiceID, err)
		}
		payments[i] = p
	}
	return invoicing.RestoreInvoice(m.InvoiceID, m.CustomerName, payments, m.ToDomainAggregateRoot()), nil
}

// FromDomain populates the persistence model from a domain Invoice
func (m *InvoiceModel) FromDomain(inv *invoicing.Invoice) {
	m.FromDomainAggregateRoot(inv.BaseAggregateRoot)
	m.InvoiceID = inv.InvoiceID()
	m.CustomerName = inv.CustomerName()
	payments := inv.Payments()
	m.Payments = make([]PaymentModel, len(payments))
	for i, p := range payments {
		m.Payments[i] = *PaymentModelFromDomain(inv.InvoiceID(), i, p)
	}
}

// InvoiceModelFromDomain creates a new persistence model from domain
func InvoiceModelFromDomain(inv *invoicing.Invoice) *InvoiceModel {
	m := &InvoiceModel{}
	m.FromDomain(inv)
	return m
}

// PaymentModel is the persistence model for both payment variants.
// PaymentType discriminates the row; columns of the other variant stay NULL.
type PaymentModel struct {
	ID          uint                  `gorm:"primaryKey;autoIncrement"`
	InvoiceID   int64                 `gorm:"not null;index:idx_payment_invoice_position,priority:1"`
	Position    int                   `gorm:"not null;index:idx_payment_invoice_position,priority:2"`
	PaymentID   int64                 `gorm:"not null;index"`
	PaymentType invoicing.PaymentType `gorm:"type:varchar(20);not null"`
	Amount      Money                 `gorm:"not null"`

	CardNumber     *string `gorm:"type:varchar(19)"`
	CardHolderName *string `gorm:"type:varchar(200)"`
	ExpiryDate     *string `gorm:"type:varchar(5)"`
	CVV            *int

	ChequeNumber      *int64
	BankName          *string `gorm:"type:varchar(200)"`
	AccountHolderName *string `gorm:"type:varchar(200)"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomain converts the row to the payment variant named by PaymentType
func (m *PaymentModel) ToDomain() (invoicing.Payment, error) {
	switch m.PaymentType {
	case invoicing.PaymentTypeCard:
		return invoicing.NewCardMethod(m.PaymentID, m.Amount.Decimal,
			deref(m.CardNumber), deref(m.CardHolderName), deref(m.ExpiryDate), deref(m.CVV))
	case invoicing.PaymentTypeCheque:
		return invoicing.NewChequeMethod(m.PaymentID, m.Amount.Decimal,
			deref(m.ChequeNumber), deref(m.BankName), deref(m.AccountHolderName))
	default:
		return nil, fmt.Errorf("payment %d has unknown type %q", m.PaymentID, m.PaymentType)
	}
}

// PaymentModelFromDomain creates a payment row at the given position of an invoice
func PaymentModelFromDomain(invoiceID int64, position int, p invoicing.Payment) *PaymentModel {
	m := &PaymentModel{
		InvoiceID:   invoiceID,
		Position:    position,
		PaymentID:   p.PaymentID(),
		PaymentType: p.PaymentType(),
		Amount:      Money{p.Amount()},
	}
	switch v := p.(type) {
	case *invoicing.CardMethod:
		m.CardNumber = ptr(v.CardNumber())
		m.CardHolderName = ptr(v.CardHolderName())
		m.ExpiryDate = ptr(v.ExpiryDate())
		m.CVV = ptr(v.CVV())
	case *invoicing.ChequeMethod:
		m.ChequeNumber = ptr(v.ChequeNumber())
		m.BankName = ptr(v.BankName())
		m.AccountHolderName = ptr(v.AccountHolderName())
	}
	return m
}

func ptr[T any](v T) *T {
	return &v
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
