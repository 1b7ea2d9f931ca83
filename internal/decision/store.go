package decision

import "context"

// Store persists decision records keyed by id.
//
// Put is an idempotent last-write-wins upsert: duplicate event delivery may
// re-run the same writes, and the computed decision is deterministic from the
// same input, so no compare-and-swap is needed. Get returns
// sentinel.ErrNotFound for absent ids. Delete is delete-if-exists; deleting an
// absent id is not an error.
type Store interface {
	Put(ctx context.Context, rec Record) error
	Get(ctx context.Context, id string) (Record, error)
	Delete(ctx context.Context, id string) error
}
