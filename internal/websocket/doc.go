// Partyline - Real-time Group Chat and Notification Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partyline

/*
Package websocket is the real-time connection-routing core of Partyline.

It accepts authenticated WebSocket connections, tracks which chat topics each
connection has joined, decodes a small tagged JSON protocol and fans messages
out to the right subset of live connections.

# Components

  - Registry: live connections by id plus a best-effort user id -> connection binding
  - Tracker: per-connection topic subscriptions, mutated by join/leave frames
  - Decode/Encode: the inbound and outbound frame codec
  - Router: handshake authentication and the per-connection receive loop
  - Broadcaster: topic fan-out with sender exclusion and by-user delivery
  - Reaper: periodic removal of entries whose transport is no longer open
  - Relay: optional NATS bridge so several gateway instances share deliveries
  - Hub: composition of the above and the surface the business layer calls

# Protocol

Inbound frames (client to server), discriminated by "type":

	{"type":"join","chatId":7}
	{"type":"leave","chatId":7}
	{"type":"typing","chatId":7,"userId":42}
	{"type":"stopTyping","chatId":7,"userId":42}
	{"type":"message","chatId":7,"content":"hi","timeStamp":"2026-01-02T15:04:05Z"}

Outbound frames add "pending.join.request" and "group.accepted" notices,
which are only ever produced by the server.

# Concurrency

Each connection runs its own receive loop on the HTTP handler goroutine and a
write pump goroutine that owns all socket writes, so frames to one connection
are never written concurrently. Registry and Tracker are guarded by their own
RWMutex; no lock spans more than one of them.

# Failure Handling

Malformed, unknown or unauthorized frames are dropped without closing the
connection. A send that cannot be queued deregisters the recipient. Every exit
from a receive loop, including panics, runs the same cleanup that removes the
connection from the Registry and the Tracker.
*/
package websocket
