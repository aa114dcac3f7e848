package connection

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-stomp/stomp/v3/frame"

	"github.com/wildcastradio/radiolink/internal/stomp"
	"github.com/wildcastradio/radiolink/internal/transport"
)

var errRefused = errors.New("connection refused")

// fakeBroker hands out fakeTransports and scripts the broker's replies.
type fakeBroker struct {
	mu           sync.Mutex
	transports   []*fakeTransport
	failDials    int    // upcoming dials that fail
	silent       bool   // never answer CONNECT
	connectError string // answer CONNECT with ERROR
	heartBeat    string // heart-beat header on CONNECTED
}

func (b *fakeBroker) dialer() transport.Dialer {
	return func() transport.Transport {
		t := &fakeTransport{
			broker:   b,
			messages: make(chan transport.Message, 64),
			errors:   make(chan error, 1),
		}
		b.mu.Lock()
		b.transports = append(b.transports, t)
		b.mu.Unlock()
		return t
	}
}

func (b *fakeBroker) setFailDials(n int) {
	b.mu.Lock()
	b.failDials = n
	b.mu.Unlock()
}

func (b *fakeBroker) dials() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.transports)
}

func (b *fakeBroker) last() *fakeTransport {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.transports) == 0 {
		return nil
	}
	return b.transports[len(b.transports)-1]
}

// fakeTransport records client frames and lets tests push server frames.
type fakeTransport struct {
	broker   *fakeBroker
	messages chan transport.Message
	errors   chan error

	mu         sync.Mutex
	header     http.Header
	connected  bool
	closed     bool
	frames     []*frame.Frame
	heartBeats int
}

func (t *fakeTransport) Dial(ctx context.Context, header http.Header) error {
	t.broker.mu.Lock()
	fail := t.broker.failDials > 0
	if fail {
		t.broker.failDials--
	}
	t.broker.mu.Unlock()
	if fail {
		return errRefused
	}

	t.mu.Lock()
	t.header = header
	t.connected = true
	t.mu.Unlock()
	return nil
}

func (t *fakeTransport) Send(data []byte) error {
	t.mu.Lock()
	if !t.connected {
		t.mu.Unlock()
		return transport.ErrNotConnected
	}
	f, err := stomp.Decode(data)
	if err != nil {
		t.mu.Unlock()
		return err
	}
	if f == nil {
		t.heartBeats++
		t.mu.Unlock()
		return nil
	}
	t.frames = append(t.frames, f)
	t.mu.Unlock()

	if f.Command == frame.CONNECT {
		t.broker.mu.Lock()
		silent, errText, hb := t.broker.silent, t.broker.connectError, t.broker.heartBeat
		t.broker.mu.Unlock()

		switch {
		case silent:
		case errText != "":
			t.push(frame.New(frame.ERROR, frame.Message, errText))
		default:
			reply := frame.New(frame.CONNECTED, frame.Version, "1.2")
			if hb != "" {
				reply.Header.Set(frame.HeartBeat, hb)
			}
			t.push(reply)
		}
	}
	return nil
}

func (t *fakeTransport) Messages() <-chan transport.Message { return t.messages }
func (t *fakeTransport) Errors() <-chan error               { return t.errors }

func (t *fakeTransport) Close() error {
	t.mu.Lock()
	t.connected = false
	t.closed = true
	t.mu.Unlock()
	return nil
}

func (t *fakeTransport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}

func (t *fakeTransport) push(f *frame.Frame) {
	data, _ := stomp.Encode(f)
	t.messages <- transport.Message{Data: data, ReceivedAt: time.Now()}
}

// deliver pushes a MESSAGE for topic using the client's subscription id.
func (t *fakeTransport) deliver(topic, body string) {
	f := frame.New(frame.MESSAGE,
		frame.Destination, topic,
		frame.Subscription, t.subscriptionID(topic),
		frame.MessageId, "m-"+topic,
	)
	f.Body = []byte(body)
	t.push(f)
}

// drop simulates the server going away.
func (t *fakeTransport) drop() {
	t.mu.Lock()
	t.connected = false
	t.mu.Unlock()
	t.errors <- errors.New("connection reset by peer")
}

func (t *fakeTransport) sent(command string) []*frame.Frame {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []*frame.Frame
	for _, f := range t.frames {
		if f.Command == command {
			out = append(out, f)
		}
	}
	return out
}

// subscribedTopics returns destinations subscribed and not unsubscribed.
func (t *fakeTransport) subscribedTopics() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	active := map[string]string{}
	var order []string
	for _, f := range t.frames {
		switch f.Command {
		case frame.SUBSCRIBE:
			id := f.Header.Get(frame.Id)
			active[id] = f.Header.Get(frame.Destination)
			order = append(order, id)
		case frame.UNSUBSCRIBE:
			delete(active, f.Header.Get(frame.Id))
		}
	}
	var out []string
	for _, id := range order {
		if d, ok := active[id]; ok {
			out = append(out, d)
		}
	}
	return out
}

func (t *fakeTransport) subscriptionID(topic string) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := len(t.frames) - 1; i >= 0; i-- {
		f := t.frames[i]
		if f.Command == frame.SUBSCRIBE && f.Header.Get(frame.Destination) == topic {
			return f.Header.Get(frame.Id)
		}
	}
	return ""
}

func (t *fakeTransport) handshakeHeader() http.Header {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.header
}

func (t *fakeTransport) heartBeatCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.heartBeats
}

func (t *fakeTransport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}
