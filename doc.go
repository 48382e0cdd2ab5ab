// Package streamfan is the realtime stream fanout subsystem of a
// social-networking server: it accepts WebSocket sessions, multiplexes
// named channels over each session, and fans domain events out from an
// in-process bus (optionally bridged across nodes over NATS) to every
// subscribed channel.
//
// # Architecture
//
// Events enter through the eventbus (or arrive from other nodes via
// natsbridge) and flow out through per-connection channel instances:
//
//	publisher -> eventbus -> Connection -> Channel variants -> WebSocket
//	                ^
//	          natsbridge (other nodes)
//
// A Connection owns one socket: it routes inbound frames (connect,
// disconnect, note subscriptions, channel messages), enforces the
// per-connection channel cap and credential/scope gating, and keeps a
// periodically refreshed snapshot of the user's relationship state that
// channels consult when filtering notes.
//
// Channel variants (timelines, hashtag, antenna, chat, admin, stats,
// reversi and friends) live in stream/channels and register themselves
// into a stream.Registry at startup. Everything the subsystem does not
// own itself (note packing, auth, persistence) is consumed through the
// stream.Services interfaces so a host application can plug in its own
// implementations.
//
// The server package provides the WebSocket endpoint, cmd/streamfan the
// runnable process.
package streamfan
