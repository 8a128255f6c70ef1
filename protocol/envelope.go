package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// MessageType identifies the kind of message an envelope carries.
type MessageType string

// Envelope is the wire frame for every message. Requests carry a RequestID
// that the matching response echoes; events carry none.
type Envelope struct {
	Type      MessageType     `json:"type"`
	RequestID string          `json:"request_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// NewRequest creates a request envelope with a fresh request ID.
func NewRequest(t MessageType, payload any) (*Envelope, error) {
	return newEnvelope(t, uuid.NewString(), payload)
}

// NewResponse creates a response envelope echoing the request's ID.
func NewResponse(requestID string, t MessageType, payload any) (*Envelope, error) {
	return newEnvelope(t, requestID, payload)
}

// NewEvent creates a one-way event envelope.
func NewEvent(t MessageType, payload any) (*Envelope, error) {
	return newEnvelope(t, "", payload)
}

// NewError creates an error response for the given request.
func NewError(requestID string, code, message string) (*Envelope, error) {
	return newEnvelope(TypeError, requestID, &ErrorPayload{Code: code, Message: message})
}

// DecodePayload unmarshals the envelope's payload into v.
func DecodePayload(env *Envelope, v any) error {
	if len(env.Payload) == 0 {
		return fmt.Errorf("%s envelope has no payload", env.Type)
	}
	return json.Unmarshal(env.Payload, v)
}

func newEnvelope(t MessageType, requestID string, payload any) (*Envelope, error) {
	env := &Envelope{Type: t, RequestID: requestID}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", t, err)
		}
		env.Payload = data
	}
	return env, nil
}
