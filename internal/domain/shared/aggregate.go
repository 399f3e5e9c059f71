package shared

import "time"

// BaseAggregateRoot carries the bookkeeping every stored aggregate shares.
// Version starts at 1 and grows by one per mutation. Identity belongs to the
// concrete aggregate.
type BaseAggregateRoot struct {
	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int
}

func NewBaseAggregateRoot() BaseAggregateRoot {
	now := time.Now()
	return BaseAggregateRoot{CreatedAt: now, UpdatedAt: now, Version: 1}
}

// RestoreBaseAggregateRoot rebuilds stored bookkeeping. Versions below 1
// (rows written before versioning) are read as 1.
func RestoreBaseAggregateRoot(createdAt, updatedAt time.Time, version int) BaseAggregateRoot {
	return BaseAggregateRoot{CreatedAt: createdAt, UpdatedAt: updatedAt, Version: max(version, 1)}
}

// IncrementVersion records a mutation.
func (a *BaseAggregateRoot) IncrementVersion() {
	a.Version++
	a.UpdatedAt = time.Now()
}
