package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

var ErrEmptyMessage = errors.New("empty message")

// Envelope is a decoded message type plus the raw bytes of the whole message.
type Envelope struct {
	Type string          `json:"type"`
	Raw  json.RawMessage `json:"-"`
}

// DecodeEnvelope reads the type discriminator and keeps the bytes for
// DecodePayload.
func DecodeEnvelope(b []byte) (Envelope, error) {
	if len(b) == 0 {
		return Envelope{}, ErrEmptyMessage
	}
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("decode envelope: missing type")
	}
	env.Raw = append(json.RawMessage(nil), b...)
	return env, nil
}

// NewEnvelope builds an envelope from a payload struct, the way a Go client
// or a test would send it.
func NewEnvelope(msgType string, payload any) Envelope {
	raw, _ := json.Marshal(payload)
	return Envelope{Type: msgType, Raw: raw}
}

// DecodePayload unmarshals the message body into T.
func DecodePayload[T any](env Envelope) (T, error) {
	var out T
	if len(env.Raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(env.Raw, &out); err != nil {
		return out, fmt.Errorf("decode %s: %w", env.Type, err)
	}
	return out, nil
}

// Encode marshals an outbound message.
func Encode(msg any) ([]byte, error) {
	if msg == nil {
		return nil, fmt.Errorf("encode: nil message")
	}
	return json.Marshal(msg)
}
