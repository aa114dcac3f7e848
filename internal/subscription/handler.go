package subscription

import (
	"reflect"

	"github.com/wildcastradio/radiolink/internal/model"
)

// Handler receives envelopes for a topic. A returned error is logged by the
// dispatcher and never reaches other handlers.
type Handler interface {
	Handle(env model.Envelope) error
}

// PayloadParser is implemented by handlers that want their own payload
// decoding instead of the default JSON decode.
type PayloadParser interface {
	ParsePayload(body []byte) (any, error)
}

// HandlerFunc adapts a function to Handler. Function values are not
// comparable, so register them through Func to get a stable identity.
type HandlerFunc func(env model.Envelope) error

// Handle calls f.
func (f HandlerFunc) Handle(env model.Envelope) error { return f(env) }

type funcHandler struct {
	fn HandlerFunc
}

func (h *funcHandler) Handle(env model.Envelope) error { return h.fn(env) }

// Func wraps fn in a Handler with pointer identity. Registering the returned
// value twice on one topic is a no-op.
func Func(fn func(env model.Envelope) error) Handler {
	return &funcHandler{fn: fn}
}

type parsedHandler struct {
	Handler
	parse func([]byte) (any, error)
}

func (h *parsedHandler) ParsePayload(body []byte) (any, error) { return h.parse(body) }

// WithParser attaches a custom payload parser to h.
func WithParser(h Handler, parse func(body []byte) (any, error)) Handler {
	return &parsedHandler{Handler: h, parse: parse}
}

// sameHandler compares handlers by identity where Go allows it.
func sameHandler(a, b Handler) bool {
	if a == nil || b == nil {
		return a == b
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}
