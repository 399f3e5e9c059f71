package invoicing

import "context"

// InvoiceRepository defines the interface for invoice persistence
type InvoiceRepository interface {
	// FindByID finds an invoice by ID, returning shared.ErrNotFound when absent
	FindByID(ctx context.Context, invoiceID int64) (*Invoice, error)

	// FindAll returns every invoice ordered by invoice ID
	FindAll(ctx context.Context) ([]*Invoice, error)

	// ExistsByID checks whether an invoice with the given ID exists
	ExistsByID(ctx context.Context, invoiceID int64) (bool, error)

	// Create inserts a new invoice, returning shared.ErrAlreadyExists on an ID clash
	Create(ctx context.Context, invoice *Invoice) error

	// Save replaces the stored state of an existing invoice, payments included
	Save(ctx context.Context, invoice *Invoice) error

	// Delete removes an invoice and its payments, returning shared.ErrNotFound when absent
	Delete(ctx context.Context, invoiceID int64) error

	// Count returns the number of stored invoices
	Count(ctx context.Context) (int64, error)
}
