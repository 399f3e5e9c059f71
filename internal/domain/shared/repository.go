package shared

import "context"

// Sequence hands out strictly increasing int64 identifiers.
// Implementations must never return the same value twice, even across restarts
// when backed by durable storage.
type Sequence interface {
	// Next returns the current value and advances the sequence by one.
	Next(ctx context.Context) (int64, error)
	// Peek returns the value Next would return, without advancing.
	Peek(ctx context.Context) (int64, error)
	// AdvanceTo moves the sequence forward so that Peek returns at least min.
	// It never moves the sequence backwards.
	AdvanceTo(ctx context.Context, min int64) error
}

// Well-known sequence names
const (
	SequenceInvoice = "invoice"
	SequencePayment = "payment"
)

// DefaultSequenceStart is the first identifier handed out by a fresh sequence
const DefaultSequenceStart int64 = 1001
