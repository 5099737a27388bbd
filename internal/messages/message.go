// Package messages defines the tagged-union envelope carried on the
// engine↔engine bus: one Go interface implemented by every concrete
// message variant, JSON-tagged for wire transport.
package messages

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"
)

// Message is implemented by every concrete payload that can travel on the
// bus. The marker method keeps the set closed to this package's own types,
// mirroring a Rust tagged union without reflection-based dispatch.
type Message interface {
	isMessage()
	Kind() string
	Validate() error
}

// Envelope is the wire frame: a type tag plus the JSON-encoded payload, an
// optional correlation id for request/response matching, and a creation
// timestamp used by the correlation fabric's TTL garbage collection.
type Envelope struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id,omitempty"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// Wrap serializes msg into an Envelope ready for Publish.
func Wrap(requestID string, msg Message) (Envelope, error) {
	if err := msg.Validate(); err != nil {
		return Envelope{}, err
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return Envelope{}, fmt.Errorf("messages: marshal %s: %w", msg.Kind(), err)
	}
	return Envelope{
		Type:      msg.Kind(),
		RequestID: requestID,
		Payload:   payload,
		CreatedAt: time.Now(),
	}, nil
}

// ToJSON serializes the envelope for the bus transport.
func (e Envelope) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// EnvelopeFromJSON parses a bus frame back into an Envelope.
func EnvelopeFromJSON(data []byte) (Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return Envelope{}, fmt.Errorf("messages: unmarshal envelope: %w", err)
	}
	return e, nil
}

// Unmarshal decodes the envelope payload into a zero-value message obtained
// from the type registry, returning the populated Message.
func (e Envelope) Unmarshal() (Message, error) {
	factory, ok := registry[e.Type]
	if !ok {
		return nil, fmt.Errorf("messages: unknown message type %q", e.Type)
	}
	msg := factory()
	if err := json.Unmarshal(e.Payload, msg); err != nil {
		return nil, fmt.Errorf("messages: unmarshal %s: %w", e.Type, err)
	}
	return msg, nil
}

// Deref returns the pointed-to value when msg's concrete type is a pointer
// to one of this package's message structs — Envelope.Unmarshal hands back
// pointers (json.Unmarshal needs one to populate), while an engine
// dispatching a message it built in-process works with the value directly.
// A type switch written against the value type handles both without
// duplicating every case.
func Deref(msg Message) Message {
	v := reflect.ValueOf(msg)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return msg
	}
	return v.Elem().Interface().(Message)
}

var registry = map[string]func() Message{}

func register(kind string, factory func() Message) {
	registry[kind] = factory
}
