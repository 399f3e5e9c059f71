package invoicing

import (
	"fmt"
	"strings"

	"github.com/erp/invoicing/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// PaymentType identifies the payment instrument variant
type PaymentType string

const (
	PaymentTypeCard   PaymentType = "Card"
	PaymentTypeCheque PaymentType = "Cheque"
)

// IsValid checks if the payment type is a known variant
func (t PaymentType) IsValid() bool {
	switch t {
	case PaymentTypeCard, PaymentTypeCheque:
		return true
	}
	return false
}

// String returns the string representation of PaymentType
func (t PaymentType) String() string {
	return string(t)
}

// Payment is a single payment applied to an invoice.
//
// The set of implementations is closed: only *CardMethod and *ChequeMethod
// satisfy it, so a type switch over those two cases is exhaustive.
type Payment interface {
	PaymentID() int64
	Amount() decimal.Decimal
	PaymentType() PaymentType

	sealed()
}

// paymentBase holds the fields every payment variant shares
type paymentBase struct {
	id     int64
	amount decimal.Decimal
}

func newPaymentBase(paymentID int64, amount decimal.Decimal) (paymentBase, error) {
	if amount.IsNegative() {
		return paymentBase{}, shared.NewDomainError("INVALID_AMOUNT", "Payment amount cannot be negative")
	}
	return paymentBase{id: paymentID, amount: amount}, nil
}

// PaymentID returns the registry-assigned payment identifier
func (p *paymentBase) PaymentID() int64 {
	return p.id
}

// Amount returns the payment amount
func (p *paymentBase) Amount() decimal.Decimal {
	return p.amount
}

func (p *paymentBase) sealed() {}

// CardMethod is a payment made by bank card
type CardMethod struct {
	paymentBase
	cardNumber     string
	cardHolderName string
	expiryDate     string
	cvv            int
}

// NewCardMethod creates a card payment.
// Only presence is checked here; number and expiry formats are validated at the API boundary.
func NewCardMethod(paymentID int64, amount decimal.Decimal, cardNumber, cardHolderName, expiryDate string, cvv int) (*CardMethod, error) {
	base, err := newPaymentBase(paymentID, amount)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(cardNumber) == "" {
		return nil, shared.NewDomainError("INVALID_CARD_NUMBER", "Card number cannot be empty")
	}
	if strings.TrimSpace(cardHolderName) == "" {
		return nil, shared.NewDomainError("INVALID_CARD_HOLDER", "Card holder name cannot be empty")
	}
	if strings.TrimSpace(expiryDate) == "" {
		return nil, shared.NewDomainError("INVALID_EXPIRY_DATE", "Expiry date cannot be empty")
	}
	if cvv < 0 {
		return nil, shared.NewDomainError("INVALID_CVV", "CVV cannot be negative")
	}

	return &CardMethod{
		paymentBase:    base,
		cardNumber:     cardNumber,
		cardHolderName: cardHolderName,
		expiryDate:     expiryDate,
		cvv:            cvv,
	}, nil
}

// PaymentType returns PaymentTypeCard
func (c *CardMethod) PaymentType() PaymentType {
	return PaymentTypeCard
}

// CardNumber returns the card number
func (c *CardMethod) CardNumber() string {
	return c.cardNumber
}

// CardHolderName returns the name printed on the card
func (c *CardMethod) CardHolderName() string {
	return c.cardHolderName
}

// ExpiryDate returns the card expiry in MM/YY form
func (c *CardMethod) ExpiryDate() string {
	return c.expiryDate
}

// CVV returns the card verification value
func (c *CardMethod) CVV() int {
	return c.cvv
}

// String implements fmt.Stringer without exposing the full card number
func (c *CardMethod) String() string {
	return fmt.Sprintf("Card#%d(%s, %s)", c.id, maskCardNumber(c.cardNumber), c.amount.StringFixed(2))
}

// ChequeMethod is a payment made by cheque
type ChequeMethod struct {
	paymentBase
	chequeNumber      int64
	bankName          string
	accountHolderName string
}

// NewChequeMethod creates a cheque payment
func NewChequeMethod(paymentID int64, amount decimal.Decimal, chequeNumber int64, bankName, accountHolderName string) (*ChequeMethod, error) {
	base, err := newPaymentBase(paymentID, amount)
	if err != nil {
		return nil, err
	}
	if chequeNumber < 0 {
		return nil, shared.NewDomainError("INVALID_CHEQUE_NUMBER", "Cheque number cannot be negative")
	}
	if strings.TrimSpace(bankName) == "" {
		return nil, shared.NewDomainError("INVALID_BANK_NAME", "Bank name cannot be empty")
	}
	if strings.TrimSpace(accountHolderName) == "" {
		return nil, shared.NewDomainError("INVALID_ACCOUNT_HOLDER", "Account holder name cannot be empty")
	}

	return &ChequeMethod{
		paymentBase:       base,
		chequeNumber:      chequeNumber,
		bankName:          bankName,
		accountHolderName: accountHolderName,
	}, nil
}

// PaymentType returns PaymentTypeCheque
func (c *ChequeMethod) PaymentType() PaymentType {
	return PaymentTypeCheque
}

// ChequeNumber returns the cheque number
func (c *ChequeMethod) ChequeNumber() int64 {
	return c.chequeNumber
}

// BankName returns the drawee bank
func (c *ChequeMethod) BankName() string {
	return c.bankName
}

// AccountHolderName returns the account holder
func (c *ChequeMethod) AccountHolderName() string {
	return c.accountHolderName
}

// String implements fmt.Stringer
func (c *ChequeMethod) String() string {
	return fmt.Sprintf("Cheque#%d(%d, %s)", c.id, c.chequeNumber, c.amount.StringFixed(2))
}

func maskCardNumber(number string) string {
	if len(number) <= 4 {
		return number
	}
	return strings.Repeat("*", len(number)-4) + number[len(number)-4:]
}
