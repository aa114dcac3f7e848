// Package connection implements the Connection Manager component.
//
// The Connection Manager:
//   - Owns the single STOMP session shared by every subscriber
//   - Collapses concurrent Connect calls into one handshake
//   - Subscribes each topic on the wire once, however many handlers it has
//   - Reconnects with jittered exponential backoff when the transport drops
//     and replays every registered topic afterwards
//   - Hands MESSAGE frames to the Message Dispatcher through a per-session queue
//
// States: Disconnected → Connecting → Connected → Reconnecting → Connected,
// with Failed once the reconnect budget is spent or a connect attempt fails.
// An explicit Connect leaves Failed and resets the reconnect counter.
package connection
