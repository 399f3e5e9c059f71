package cache

import (
	"context"
	"sync"

	"github.com/erp/invoicing/internal/domain/shared"
)

// InMemorySequence implements shared.Sequence with a mutex-guarded counter.
// State is lost on restart; the invoice service re-aligns it from storage at boot.
type InMemorySequence struct {
	mu   sync.Mutex
	next int64
}

// NewInMemorySequence creates a sequence whose first value is start
func NewInMemorySequence(start int64) *InMemorySequence {
	return &InMemorySequence{next: start}
}

// Next returns the current value and advances the sequence
func (s *InMemorySequence) Next(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := s.next
	s.next++
	return v, nil
}

// Peek returns the value the next call to Next will return
func (s *InMemorySequence) Peek(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next, nil
}

// AdvanceTo moves the sequence forward to at least min
func (s *InMemorySequence) AdvanceTo(_ context.Context, min int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if min > s.next {
		s.next = min
	}
	return nil
}

// Ensure InMemorySequence implements Sequence
var _ shared.Sequence = (*InMemorySequence)(nil)
