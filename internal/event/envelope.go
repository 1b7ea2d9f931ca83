package event

import (
	"encoding/json"
	"fmt"
	"time"
)

// Envelope is the bus message format: detail-type / source / time /
// detail.payload, stable on the wire so envelopes can cross a real broker
// unchanged.
type Envelope struct {
	DetailType Type      `json:"detail-type"`
	Source     string    `json:"source"`
	Time       time.Time `json:"time"`
	Detail     Detail    `json:"detail"`
}

// Detail wraps the type-specific payload.
type Detail struct {
	Payload json.RawMessage `json:"payload"`
}

// NewEnvelope wraps a payload in an envelope stamped with the emitting
// component's source identifier.
func NewEnvelope(source string, msg Message) (Envelope, error) {
	raw, err := json.Marshal(msg)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", TypeOf(msg), err)
	}
	return Envelope{
		DetailType: TypeOf(msg),
		Source:     source,
		Time:       time.Now().UTC(),
		Detail:     Detail{Payload: raw},
	}, nil
}

// Decode unmarshals the envelope payload into its concrete event type.
// Envelopes with a detail-type outside the closed set are rejected rather than
// silently logged, so misrouted or future events surface as handler errors.
func Decode(env Envelope) (Message, error) {
	switch env.DetailType {
	case TypeValidationRequest:
		var msg ValidationRequest
		return msg, decodePayload(env, &msg)
	case TypeValidationResult:
		var msg ValidationResult
		return msg, decodePayload(env, &msg)
	case TypeDataStored:
		var msg DataStored
		return msg, decodePayload(env, &msg)
	case TypeDeletionRequest:
		var msg DeletionRequest
		return msg, decodePayload(env, &msg)
	default:
		return nil, unknownType(env.DetailType)
	}
}

func decodePayload(env Envelope, dst any) error {
	if err := json.Unmarshal(env.Detail.Payload, dst); err != nil {
		return fmt.Errorf("decode %s payload: %w", env.DetailType, err)
	}
	return nil
}
