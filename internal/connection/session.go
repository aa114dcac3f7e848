package connection

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-stomp/stomp/v3/frame"

	"github.com/wildcastradio/radiolink/internal/auth"
	"github.com/wildcastradio/radiolink/internal/dispatch"
	"github.com/wildcastradio/radiolink/internal/metrics"
	"github.com/wildcastradio/radiolink/internal/stomp"
	"github.com/wildcastradio/radiolink/internal/transport"
	"github.com/wildcastradio/radiolink/internal/version"
)

// heartBeatGrace multiplies the negotiated server interval before the
// connection is declared dead.
const heartBeatGrace = 2

// heartbeats holds the negotiated heart-beat intervals. Zero disables.
type heartbeats struct {
	send   time.Duration
	expect time.Duration
}

// handshake dials tr and waits for the broker's CONNECTED frame.
func (m *Manager) handshake(ctx context.Context, tr transport.Transport, cred auth.Credential) (heartbeats, error) {
	header := cred.HandshakeHeader()
	header.Set("User-Agent", version.UserAgent())
	if err := tr.Dial(ctx, header); err != nil {
		return heartbeats{}, fmt.Errorf("dial: %w", err)
	}

	data, err := stomp.Encode(stomp.Connect(m.cfg.Host, m.cfg.HeartBeat, cred.ConnectHeaders()))
	if err != nil {
		return heartbeats{}, err
	}
	if err := tr.Send(data); err != nil {
		return heartbeats{}, fmt.Errorf("send connect: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return heartbeats{}, ctx.Err()

		case err := <-tr.Errors():
			return heartbeats{}, fmt.Errorf("connection lost during handshake: %w", err)

		case msg := <-tr.Messages():
			f, err := stomp.Decode(msg.Data)
			if err != nil {
				return heartbeats{}, err
			}
			if f == nil {
				continue
			}

			switch f.Command {
			case frame.CONNECTED:
				send, expect, err := stomp.Negotiate(m.cfg.HeartBeat, f.Header.Get(frame.HeartBeat))
				if err != nil {
					m.logger.Warn("ignoring heart-beat header", "error", err)
				}
				return heartbeats{send: send, expect: expect}, nil
			case frame.ERROR:
				return heartbeats{}, &BrokerError{Message: stomp.ErrorText(f)}
			default:
				m.logger.Debug("unexpected frame before CONNECTED", "command", f.Command)
			}
		}
	}
}

// session is one established STOMP connection.
type session struct {
	m     *Manager
	tr    transport.Transport
	gen   uint64
	hb    heartbeats
	queue *dispatch.Queue

	stop     chan struct{}
	once     sync.Once
	lastRead atomic.Int64 // UnixNano on the Manager's clock
}

func newSession(m *Manager, tr transport.Transport, gen uint64, hb heartbeats) *session {
	s := &session{
		m:     m,
		tr:    tr,
		gen:   gen,
		hb:    hb,
		queue: dispatch.NewQueue(m.cfg.QueueSize),
		stop:  make(chan struct{}),
	}
	s.lastRead.Store(m.clock.Now().UnixNano())
	return s
}

func (s *session) start() {
	go s.pump()
	go s.deliver()
	if s.hb.send > 0 || s.hb.expect > 0 {
		go s.heartbeat()
	}
}

// close stops the session's goroutines and closes the transport.
func (s *session) close() {
	s.once.Do(func() {
		close(s.stop)
		s.queue.Close()
		s.tr.Close()
	})
}

func (s *session) sendFrame(f *frame.Frame) error {
	data, err := stomp.Encode(f)
	if err != nil {
		return err
	}
	return s.tr.Send(data)
}

// pump reads frames from the transport until it drops or the session closes.
func (s *session) pump() {
	for {
		select {
		case <-s.stop:
			return

		case err := <-s.tr.Errors():
			// Keep what arrived before the drop.
			for drained := false; !drained; {
				select {
				case msg := <-s.tr.Messages():
					s.handle(msg)
				default:
					drained = true
				}
			}
			s.m.connectionLost(s, err)
			return

		case msg := <-s.tr.Messages():
			if err := s.handle(msg); err != nil {
				s.m.connectionLost(s, err)
				return
			}
		}
	}
}

// handle processes one inbound message. A returned error ends the session.
func (s *session) handle(msg transport.Message) error {
	s.lastRead.Store(s.m.clock.Now().UnixNano())

	f, err := stomp.Decode(msg.Data)
	if err != nil {
		s.m.logger.Warn("failed to decode frame", "error", err)
		return nil
	}
	if f == nil {
		return nil
	}
	s.m.metrics.FrameReceived(f.Command)

	switch f.Command {
	case frame.MESSAGE:
		pushed := s.queue.Push(dispatch.Frame{
			Topic:      s.m.topicFor(f),
			Body:       f.Body,
			Headers:    stomp.Headers(f),
			ReceivedAt: msg.ReceivedAt,
			Generation: s.gen,
		})
		if !pushed {
			s.m.dispatchMetrics.Outcome(metrics.OutcomeDropped)
		}
		s.m.dispatchMetrics.SetQueueDepth(s.queue.Len())

	case frame.ERROR:
		text := stomp.ErrorText(f)
		s.m.logger.Error("broker error", "message", text)
		return &BrokerError{Message: text}

	case frame.RECEIPT:
		s.m.logger.Debug("receipt", "id", f.Header.Get(frame.ReceiptId))

	default:
		s.m.logger.Debug("ignoring frame", "command", f.Command)
	}
	return nil
}

// deliver feeds queued frames to the dispatcher. Frames from before a
// Disconnect are dropped.
func (s *session) deliver() {
	for {
		f, ok := s.queue.Pop()
		if !ok {
			return
		}
		if f.Generation != s.m.generation.Load() {
			s.m.dispatchMetrics.Outcome(metrics.OutcomeDropped)
			continue
		}
		s.m.dispatcher.Deliver(f)
	}
}

// heartbeat sends client heart-beats and watches for server silence.
func (s *session) heartbeat() {
	var sendC, checkC <-chan time.Time

	if s.hb.send > 0 {
		t := s.m.clock.NewTicker(s.hb.send)
		defer t.Stop()
		sendC = t.Chan()
	}
	if s.hb.expect > 0 {
		t := s.m.clock.NewTicker(s.hb.expect)
		defer t.Stop()
		checkC = t.Chan()
	}

	for {
		select {
		case <-s.stop:
			return

		case <-sendC:
			if err := s.tr.Send(stomp.HeartBeatMessage()); err != nil {
				s.m.logger.Debug("failed to send heart-beat", "error", err)
			}

		case <-checkC:
			last := time.Unix(0, s.lastRead.Load())
			if s.m.clock.Since(last) > heartBeatGrace*s.hb.expect {
				s.m.logger.Warn("server heart-beat missed",
					"last_read", last,
					"expect", s.hb.expect,
				)
				s.m.connectionLost(s, ErrHeartBeat)
				return
			}
		}
	}
}
