// Package ledger defines the storage contract every ledger backend
// implements, and the live subscription shared by all of them.
package ledger

import (
	"context"
	"fmt"

	"github.com/MrJamesThe3rd/playledger/internal/purchase"
)

// Store is one user's ledger. Implementations keep ids unique: writing a
// purchase whose id already exists replaces it.
type Store interface {
	// Snapshot reads the current ledger once.
	Snapshot(ctx context.Context) ([]purchase.Purchase, error)
	// Subscribe delivers the current ledger and then every change to it as
	// a full snapshot, until the subscription is closed.
	Subscribe(ctx context.Context) (*Subscription, error)
	// Add inserts or replaces p.
	Add(ctx context.Context, p purchase.Purchase) error
	// Remove deletes the purchase with the given id. Removing an unknown id
	// is a no-op.
	Remove(ctx context.Context, id string) error
	// BulkReplace writes every purchase in ps.
	BulkReplace(ctx context.Context, ps []purchase.Purchase) (BulkResult, error)
	// Clear removes every purchase.
	Clear(ctx context.Context) (BulkResult, error)
}

// BulkResult counts the writes of a bulk operation.
type BulkResult struct {
	Attempted int `json:"attempted"`
	Completed int `json:"completed"`
}

// Partial reports whether some writes did not complete.
func (r BulkResult) Partial() bool {
	return r.Completed < r.Attempted
}

// PartialError is returned when a bulk operation stops at its first failed
// write. Writes completed before the failure are kept.
type PartialError struct {
	BulkResult
	Err error
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("bulk write stopped after %d of %d writes: %v", e.Completed, e.Attempted, e.Err)
}

func (e *PartialError) Unwrap() error {
	return e.Err
}
