// Package stomp encodes and decodes the STOMP 1.2 frames exchanged with the
// radio server's broker. Each WebSocket message carries exactly one frame; a
// message holding only end-of-line bytes is a heart-beat.
package stomp

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-stomp/stomp/v3/frame"
)

// AcceptVersion is the protocol version negotiated on CONNECT.
const AcceptVersion = "1.2"

// ErrEmptyFrame is returned when a message holds no frame and no heart-beat.
var ErrEmptyFrame = errors.New("empty stomp message")

// HeartBeat is the client's heart-beat offer. Zero disables a direction.
type HeartBeat struct {
	Outgoing time.Duration // How often we can send
	Incoming time.Duration // How often we want to receive
}

// String formats the offer as the heart-beat header value.
func (h HeartBeat) String() string {
	return strconv.FormatInt(h.Outgoing.Milliseconds(), 10) + "," +
		strconv.FormatInt(h.Incoming.Milliseconds(), 10)
}

// Negotiate combines the client offer with the server's heart-beat header.
// send is how often the client must emit a heart-beat; expect is how long the
// client may go without hearing from the server. Zero disables either side.
func Negotiate(client HeartBeat, serverHeader string) (send, expect time.Duration, err error) {
	if serverHeader == "" {
		return 0, 0, nil
	}
	sx, sy, err := frame.ParseHeartBeat(serverHeader)
	if err != nil {
		return 0, 0, fmt.Errorf("parse heart-beat %q: %w", serverHeader, err)
	}
	if client.Outgoing > 0 && sy > 0 {
		send = max(client.Outgoing, sy)
	}
	if client.Incoming > 0 && sx > 0 {
		expect = max(client.Incoming, sx)
	}
	return send, expect, nil
}

// Connect builds a CONNECT frame. extra carries credential headers.
func Connect(host string, hb HeartBeat, extra map[string]string) *frame.Frame {
	f := frame.New(frame.CONNECT,
		frame.AcceptVersion, AcceptVersion,
		frame.HeartBeat, hb.String(),
	)
	if host != "" {
		f.Header.Set(frame.Host, host)
	}
	for k, v := range extra {
		f.Header.Set(k, v)
	}
	return f
}

// Subscribe builds a SUBSCRIBE frame with auto acknowledgement.
func Subscribe(id, destination string) *frame.Frame {
	return frame.New(frame.SUBSCRIBE,
		frame.Id, id,
		frame.Destination, destination,
		frame.Ack, "auto",
	)
}

// Unsubscribe builds an UNSUBSCRIBE frame.
func Unsubscribe(id string) *frame.Frame {
	return frame.New(frame.UNSUBSCRIBE, frame.Id, id)
}

// Send builds a SEND frame carrying a JSON body.
func Send(destination string, body []byte) *frame.Frame {
	f := frame.New(frame.SEND,
		frame.Destination, destination,
		frame.ContentType, "application/json",
	)
	f.Body = body
	return f
}

// Disconnect builds a DISCONNECT frame. An empty receipt omits the header.
func Disconnect(receipt string) *frame.Frame {
	f := frame.New(frame.DISCONNECT)
	if receipt != "" {
		f.Header.Set(frame.Receipt, receipt)
	}
	return f
}

// Encode serialises f into a single WebSocket message payload.
func Encode(f *frame.Frame) ([]byte, error) {
	var buf bytes.Buffer
	if err := frame.NewWriter(&buf).Write(f); err != nil {
		return nil, fmt.Errorf("encode %s: %w", f.Command, err)
	}
	return buf.Bytes(), nil
}

// HeartBeatMessage is the payload of an outgoing heart-beat.
func HeartBeatMessage() []byte {
	return []byte{'\n'}
}

// Decode parses one WebSocket message. A heart-beat yields a nil frame and a
// nil error.
func Decode(data []byte) (*frame.Frame, error) {
	if len(bytes.Trim(data, "\r\n")) == 0 {
		if len(data) == 0 {
			return nil, ErrEmptyFrame
		}
		return nil, nil
	}
	f, err := frame.NewReader(bytes.NewReader(data)).Read()
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	return f, nil
}

// Headers copies the headers of f into a map. Repeated headers keep their
// first value, as STOMP 1.2 requires.
func Headers(f *frame.Frame) map[string]string {
	if f == nil || f.Header == nil {
		return nil
	}
	out := make(map[string]string, f.Header.Len())
	for i := 0; i < f.Header.Len(); i++ {
		k, v := f.Header.GetAt(i)
		if _, ok := out[k]; !ok {
			out[k] = v
		}
	}
	return out
}

// ErrorText describes a broker ERROR frame.
func ErrorText(f *frame.Frame) string {
	msg := f.Header.Get(frame.Message)
	body := string(bytes.TrimSpace(f.Body))
	switch {
	case msg == "":
		return body
	case body == "":
		return msg
	}
	return msg + ": " + body
}
