// Package event defines the closed set of domain events exchanged between the
// gateway, validator, PII storage, and analytics components, together with the
// bus abstractions they publish to and consume from.
//
// Delivery semantics are owned by the bus implementation: at-least-once, with
// no ordering guarantee across distinct event types. Every consumer must
// therefore tolerate redelivery and arbitrary interleaving.
package event

import (
	"errors"
	"fmt"
)

// Type identifies a domain event. The set is closed: decoding an envelope with
// any other detail-type fails with ErrUnknownType.
type Type string

const (
	TypeValidationRequest Type = "ValidationRequest"
	TypeValidationResult  Type = "ValidationResult"
	TypeDataStored        Type = "DataStored"
	TypeDeletionRequest   Type = "DeletionRequest"
)

// Component source identifiers carried in the envelope Source field.
const (
	SourceGateway    = "civic.gateway"
	SourceValidator  = "civic.validator"
	SourcePiiStorage = "civic.pii-storage"
)

// ErrUnknownType is returned when an envelope carries a detail-type outside
// the closed event set.
var ErrUnknownType = errors.New("unknown event type")

// Message is the tagged union of event payloads. Consumers type-switch on the
// concrete payload instead of dispatching on raw strings.
type Message interface {
	eventType() Type
}

// ValidationRequest carries a freshly submitted validation. All five personal
// fields are ciphertext produced by the gateway; only the id is plaintext.
type ValidationRequest struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	FullName    string `json:"full_name"`
	DateOfBirth string `json:"date_of_birth"`
	Address     string `json:"address"`
	PhoneNumber string `json:"phone_number"`
}

// ValidationResult signals that the validator has fulfilled a decision record.
// It carries only the id: consumers re-read the store for the outcome.
type ValidationResult struct {
	ID string `json:"id"`
}

// DataStored signals that the PII record for the id has been persisted.
type DataStored struct {
	ID string `json:"id"`
}

// DeletionRequest asks every record owner to erase its record for the id.
// No completion event follows; deletion is fire-and-forget.
type DeletionRequest struct {
	ID string `json:"id"`
}

func (ValidationRequest) eventType() Type { return TypeValidationRequest }
func (ValidationResult) eventType() Type  { return TypeValidationResult }
func (DataStored) eventType() Type        { return TypeDataStored }
func (DeletionRequest) eventType() Type   { return TypeDeletionRequest }

// TypeOf returns the Type tag for a payload.
func TypeOf(msg Message) Type { return msg.eventType() }

func unknownType(t Type) error {
	return fmt.Errorf("%w: %q", ErrUnknownType, string(t))
}
