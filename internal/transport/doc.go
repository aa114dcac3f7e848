// Package transport provides the byte-level connections the STOMP session runs
// over.
//
// Two adapters implement Transport:
//   - WebSocket: one STOMP frame per text message over a plain WebSocket
//   - SockJS: the SockJS /info handshake followed by the SockJS WebSocket
//     endpoint, unwrapping o/h/a/c framing
//
// Both share the same read loop, write serialization and keepalive: the client
// pings on an interval and reports ErrStaleConnection when the server stops
// answering.
package transport
