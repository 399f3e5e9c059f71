package invoicing

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/erp/invoicing/internal/domain/invoicing"
	"github.com/erp/invoicing/internal/domain/shared"
	"github.com/erp/invoicing/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// The invoice seeded on an empty store
const (
	DefaultInvoiceID    int64 = 1001
	DefaultCustomerName       = "Default Customer"
)

// InvoiceService is the invoice registry: it owns invoice identity, payment
// identity and every mutation of stored invoices.
//
// All operations are serialized by a single mutex. Handlers run concurrently,
// and a payment append is a read-modify-write of the whole aggregate.
type InvoiceService struct {
	mu              sync.Mutex
	invoiceRepo     invoicing.InvoiceRepository
	invoiceSeq      shared.Sequence
	paymentSeq      shared.Sequence
	businessMetrics *telemetry.BusinessMetrics
	logger          *zap.Logger
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(
	invoiceRepo invoicing.InvoiceRepository,
	invoiceSeq shared.Sequence,
	paymentSeq shared.Sequence,
	logger *zap.Logger,
) *InvoiceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvoiceService{
		invoiceRepo: invoiceRepo,
		invoiceSeq:  invoiceSeq,
		paymentSeq:  paymentSeq,
		logger:      logger,
	}
}

// SetBusinessMetrics sets the business metrics collector
func (s *InvoiceService) SetBusinessMetrics(bm *telemetry.BusinessMetrics) {
	s.businessMetrics = bm
}

// Bootstrap aligns the ID sequences with what is already stored and, when
// seedDefault is set and the store is empty, creates the default invoice.
func (s *InvoiceService) Bootstrap(ctx context.Context, seedDefault bool) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "bootstrap")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	invoices, err := s.invoiceRepo.FindAll(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("failed to load invoices: %w", err)
	}

	var maxInvoiceID, maxPaymentID int64
	for _, inv := range invoices {
		maxInvoiceID = max(maxInvoiceID, inv.InvoiceID())
		for _, p := range inv.Payments() {
			maxPaymentID = max(maxPaymentID, p.PaymentID())
		}
	}
	if maxInvoiceID > 0 {
		if err := s.invoiceSeq.AdvanceTo(ctx, maxInvoiceID+1); err != nil {
			return fmt.Errorf("failed to advance invoice sequence: %w", err)
		}
	}
	if maxPaymentID > 0 {
		if err := s.paymentSeq.AdvanceTo(ctx, maxPaymentID+1); err != nil {
			return fmt.Errorf("failed to advance payment sequence: %w", err)
		}
	}

	// The store is empty, so DefaultInvoiceID is free even when a shared
	// sequence has already moved past it.
	if seedDefault && len(invoices) == 0 {
		if _, err := s.createLocked(ctx, DefaultInvoiceID, DefaultCustomerName); err != nil {
			return err
		}
		s.logger.Info("Seeded default invoice", zap.Int64("invoice_id", DefaultInvoiceID))
	}

	s.logger.Info("Invoice registry ready",
		zap.Int("invoices", len(invoices)),
		zap.Int64("max_invoice_id", maxInvoiceID),
		zap.Int64("max_payment_id", maxPaymentID),
	)
	return nil
}

// CreateInvoice registers a new invoice with no payments
func (s *InvoiceService) CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (*InvoiceDetail, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "create")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	var invoiceID int64
	if req.InvoiceID != nil {
		invoiceID = *req.InvoiceID
		exists, err := s.invoiceRepo.ExistsByID(ctx, invoiceID)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("failed to check invoice: %w", err)
		}
		if exists {
			err := shared.NewDomainError(shared.CodeAlreadyExists,
				fmt.Sprintf("Invoice with ID %d already exists", invoiceID))
			telemetry.RecordError(span, err)
			return nil, err
		}
	} else {
		id, err := s.invoiceSeq.Next(ctx)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("failed to allocate invoice id: %w", err)
		}
		invoiceID = id
	}
	telemetry.SetAttribute(span, telemetry.SpanAttrInvoiceID, invoiceID)

	inv, err := s.createLocked(ctx, invoiceID, req.CustomerName)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	detail := ToInvoiceDetail(inv)
	return &detail, nil
}

func (s *InvoiceService) createLocked(ctx context.Context, invoiceID int64, customerName string) (*invoicing.Invoice, error) {
	inv, err := invoicing.NewInvoice(invoiceID, customerName)
	if err != nil {
		return nil, err
	}
	if err := s.invoiceRepo.Create(ctx, inv); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			return nil, shared.NewDomainError(shared.CodeAlreadyExists,
				fmt.Sprintf("Invoice with ID %d already exists", invoiceID))
		}
		return nil, fmt.Errorf("failed to save invoice: %w", err)
	}
	if err := s.invoiceSeq.AdvanceTo(ctx, invoiceID+1); err != nil {
		return nil, fmt.Errorf("failed to advance invoice sequence: %w", err)
	}

	if s.businessMetrics != nil {
		s.businessMetrics.RecordInvoiceCreated(ctx)
	}
	s.logger.Info("Invoice created",
		zap.Int64("invoice_id", invoiceID),
		zap.String("customer_name", customerName),
	)
	return inv, nil
}

// GetInvoice returns the detail projection of an invoice
func (s *InvoiceService) GetInvoice(ctx context.Context, invoiceID int64) (*InvoiceDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, err := s.findLocked(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	detail := ToInvoiceDetail(inv)
	return &detail, nil
}

// ListInvoices returns the summary projection of every invoice, ordered by ID
func (s *InvoiceService) ListInvoices(ctx context.Context) ([]InvoiceSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	invoices, err := s.invoiceRepo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	return ToInvoiceSummaries(invoices), nil
}

// DeleteInvoice removes an invoice together with its payments
func (s *InvoiceService) DeleteInvoice(ctx context.Context, invoiceID int64) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "delete",
		telemetry.WithAttribute(telemetry.SpanAttrInvoiceID, invoiceID))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.invoiceRepo.Delete(ctx, invoiceID); err != nil {
		telemetry.RecordError(span, err)
		if errors.Is(err, shared.ErrNotFound) {
			return invoiceNotFound(invoiceID)
		}
		return fmt.Errorf("failed to delete invoice: %w", err)
	}

	if s.businessMetrics != nil {
		s.businessMetrics.RecordInvoiceDeleted(ctx)
	}
	s.logger.Info("Invoice deleted", zap.Int64("invoice_id", invoiceID))
	return nil
}

// AddCardPayment applies a card payment to an invoice
func (s *InvoiceService) AddCardPayment(ctx context.Context, invoiceID int64, req AddCardPaymentRequest) (*PaymentReceipt, error) {
	return s.addPayment(ctx, invoiceID, invoicing.PaymentTypeCard, func(paymentID int64) (invoicing.Payment, error) {
		return invoicing.NewCardMethod(paymentID, req.Amount, req.CardNumber, req.CardHolderName, req.ExpiryDate, req.CVV)
	})
}

// AddChequePayment applies a cheque payment to an invoice
func (s *InvoiceService) AddChequePayment(ctx context.Context, invoiceID int64, req AddChequePaymentRequest) (*PaymentReceipt, error) {
	return s.addPayment(ctx, invoiceID, invoicing.PaymentTypeCheque, func(paymentID int64) (invoicing.Payment, error) {
		return invoicing.NewChequeMethod(paymentID, req.Amount, req.ChequeNumber, req.BankName, req.AccountHolderName)
	})
}

// addPayment allocates a payment ID once the invoice is known to exist.
// An allocated ID is never handed out again, even if the payment is then rejected.
func (s *InvoiceService) addPayment(
	ctx context.Context,
	invoiceID int64,
	paymentType invoicing.PaymentType,
	build func(paymentID int64) (invoicing.Payment, error),
) (*PaymentReceipt, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "add",
		telemetry.WithAttribute(telemetry.SpanAttrInvoiceID, invoiceID),
		telemetry.WithAttribute(telemetry.SpanAttrPaymentType, string(paymentType)),
	)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	inv, err := s.findLocked(ctx, invoiceID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	paymentID, err := s.paymentSeq.Next(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to allocate payment id: %w", err)
	}
	telemetry.SetAttribute(span, telemetry.SpanAttrPaymentID, paymentID)

	payment, err := build(paymentID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	inv.AddPayment(payment)
	if err := s.invoiceRepo.Save(ctx, inv); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save invoice: %w", err)
	}

	next, err := s.paymentSeq.Peek(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to read payment sequence: %w", err)
	}

	if s.businessMetrics != nil {
		s.businessMetrics.RecordPayment(ctx, string(paymentType), payment.Amount())
	}
	s.logger.Info("Payment added",
		zap.Int64("invoice_id", invoiceID),
		zap.Int64("payment_id", paymentID),
		zap.String("payment_type", string(paymentType)),
		zap.String("amount", payment.Amount().String()),
	)

	return &PaymentReceipt{
		InvoiceID:     invoiceID,
		PaymentID:     paymentID,
		Type:          payment.PaymentType(),
		Amount:        payment.Amount(),
		TotalAmount:   inv.TotalAmount(),
		NextPaymentID: next,
	}, nil
}

// RemovePayment removes a payment from an invoice
func (s *InvoiceService) RemovePayment(ctx context.Context, invoiceID, paymentID int64) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "remove",
		telemetry.WithAttribute(telemetry.SpanAttrInvoiceID, invoiceID),
		telemetry.WithAttribute(telemetry.SpanAttrPaymentID, paymentID),
	)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	inv, err := s.findLocked(ctx, invoiceID)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}

	payment, ok := inv.FindPayment(paymentID)
	if !ok || !inv.RemovePayment(paymentID) {
		err := shared.NewDomainError(shared.CodeNotFound,
			fmt.Sprintf("Payment with ID %d not found on invoice %d", paymentID, invoiceID))
		telemetry.RecordError(span, err)
		return err
	}

	if err := s.invoiceRepo.Save(ctx, inv); err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("failed to save invoice: %w", err)
	}

	if s.businessMetrics != nil {
		s.businessMetrics.RecordPaymentRemoved(ctx, string(payment.PaymentType()))
	}
	s.logger.Info("Payment removed",
		zap.Int64("invoice_id", invoiceID),
		zap.Int64("payment_id", paymentID),
	)
	return nil
}

// NextPaymentID returns the ID the next payment will receive
func (s *InvoiceService) NextPaymentID(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paymentSeq.Peek(ctx)
}

// NextInvoiceID returns the ID the next auto-numbered invoice will receive
func (s *InvoiceService) NextInvoiceID(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.invoiceSeq.Peek(ctx)
}

// VerifyTotals recomputes the total of every stored invoice
func (s *InvoiceService) VerifyTotals(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	invoices, err := s.invoiceRepo.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load invoices: %w", err)
	}
	for _, inv := range invoices {
		if err := inv.VerifyTotal(); err != nil {
			s.logger.Error("Invoice total drift detected",
				zap.Int64("invoice_id", inv.InvoiceID()),
				zap.Error(err),
			)
			return err
		}
	}
	return nil
}

// CountInvoices returns the number of stored invoices
func (s *InvoiceService) CountInvoices(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.invoiceRepo.Count(ctx)
}

// TotalCollected returns the sum of every payment across all stored invoices
func (s *InvoiceService) TotalCollected(ctx context.Context) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	invoices, err := s.invoiceRepo.FindAll(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to load invoices: %w", err)
	}
	total := decimal.Zero
	for _, inv := range invoices {
		total = total.Add(inv.TotalAmount())
	}
	return total, nil
}

func (s *InvoiceService) findLocked(ctx context.Context, invoiceID int64) (*invoicing.Invoice, error) {
	inv, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, invoiceNotFound(invoiceID)
		}
		return nil, fmt.Errorf("failed to load invoice: %w", err)
	}
	return inv, nil
}

func invoiceNotFound(invoiceID int64) error {
	return shared.NewDomainError(shared.CodeNotFound, fmt.Sprintf("Invoice with ID %d not found", invoiceID))
}
