package pii

import "context"

// Store persists encrypted PII records keyed by id. Same contract as the
// decision store: Put is an idempotent last-write-wins upsert, Get returns
// sentinel.ErrNotFound for absent ids, Delete is delete-if-exists.
type Store interface {
	Put(ctx context.Context, rec Record) error
	Get(ctx context.Context, id string) (Record, error)
	Delete(ctx context.Context, id string) error
}
