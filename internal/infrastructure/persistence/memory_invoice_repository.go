package persistence

import (
	"context"
	"slices"
	"sync"

	"github.com/erp/invoicing/internal/domain/invoicing"
	"github.com/erp/invoicing/internal/domain/shared"
)

// MemoryInvoiceRepository implements InvoiceRepository on a process-local map.
// Stored invoices are copied on the way in and out so callers never share
// state with the store; payments are immutable and can be shared.
type MemoryInvoiceRepository struct {
	mu       sync.RWMutex
	invoices map[int64]*invoicing.Invoice
}

// NewMemoryInvoiceRepository creates an empty in-memory repository
func NewMemoryInvoiceRepository() *MemoryInvoiceRepository {
	return &MemoryInvoiceRepository{
		invoices: make(map[int64]*invoicing.Invoice),
	}
}

func cloneInvoice(inv *invoicing.Invoice) *invoicing.Invoice {
	return invoicing.RestoreInvoice(inv.InvoiceID(), inv.CustomerName(), inv.Payments(), inv.BaseAggregateRoot)
}

// FindByID finds an invoice by ID
func (r *MemoryInvoiceRepository) FindByID(_ context.Context, invoiceID int64) (*invoicing.Invoice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	inv, ok := r.invoices[invoiceID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return cloneInvoice(inv), nil
}

// FindAll returns every invoice ordered by invoice ID
func (r *MemoryInvoiceRepository) FindAll(_ context.Context) ([]*invoicing.Invoice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]int64, 0, len(r.invoices))
	for id := range r.invoices {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	out := make([]*invoicing.Invoice, len(ids))
	for i, id := range ids {
		out[i] = cloneInvoice(r.invoices[id])
	}
	return out, nil
}

// ExistsByID checks whether an invoice with the given ID exists
func (r *MemoryInvoiceRepository) ExistsByID(_ context.Context, invoiceID int64) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.invoices[invoiceID]
	return ok, nil
}

// Create inserts a new invoice
func (r *MemoryInvoiceRepository) Create(_ context.Context, inv *invoicing.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.invoices[inv.InvoiceID()]; ok {
		return shared.ErrAlreadyExists
	}
	r.invoices[inv.InvoiceID()] = cloneInvoice(inv)
	return nil
}

// Save replaces an existing invoice
func (r *MemoryInvoiceRepository) Save(_ context.Context, inv *invoicing.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.invoices[inv.InvoiceID()]; !ok {
		return shared.ErrNotFound
	}
	r.invoices[inv.InvoiceID()] = cloneInvoice(inv)
	return nil
}

// Delete removes an invoice
func (r *MemoryInvoiceRepository) Delete(_ context.Context, invoiceID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.invoices[invoiceID]; !ok {
		return shared.ErrNotFound
	}
	delete(r.invoices, invoiceID)
	return nil
}

// Count returns the number of stored invoices
func (r *MemoryInvoiceRepository) Count(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.invoices)), nil
}

// Ensure MemoryInvoiceRepository implements InvoiceRepository
var _ invoicing.InvoiceRepository = (*MemoryInvoiceRepository)(nil)
