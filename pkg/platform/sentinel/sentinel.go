package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into their own handling.
//
// ErrNotFound is a factual state about a resource, not a validation failure:
// the entity does not exist in the store.
var ErrNotFound = errors.New("not found")
