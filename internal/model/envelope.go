package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Envelope is a received message together with its topic and parsed payload.
// Handlers must treat it as read-only; Body and Headers are shared between all
// handlers of the same frame.
type Envelope struct {
	Topic      string            // Destination the frame arrived on
	Body       []byte            // Raw frame body
	Payload    any               // Result of the handler's parser (default: decoded JSON)
	Headers    map[string]string // STOMP headers of the MESSAGE frame
	ReceivedAt time.Time         // Local timestamp when the frame was read
}

// Decode unmarshals the raw body into v.
func (e Envelope) Decode(v any) error {
	if err := json.Unmarshal(e.Body, v); err != nil {
		return fmt.Errorf("decode %s: %w", e.Topic, err)
	}
	return nil
}

// Header returns a STOMP header value, or "" when absent.
func (e Envelope) Header(name string) string {
	return e.Headers[name]
}
