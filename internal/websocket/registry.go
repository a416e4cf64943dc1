// Partyline - Real-time Group Chat and Notification Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partyline

package websocket

import (
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/partyline/internal/logging"
	"github.com/tomtom215/partyline/internal/metrics"
)

// ConnID identifies one live connection for the lifetime of the process.
type ConnID string

// ConnState is the transport state of a connection.
type ConnState int32

const (
	StateOpen ConnState = iota
	StateClosing
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Transport is a live bidirectional session the Registry can own.
// Send must not block and must be safe for concurrent use.
type Transport interface {
	State() ConnState
	Send(payload []byte) error
	Close(code int, reason string) error
}

// Entry is one (id, transport) pair from a registry snapshot.
type Entry struct {
	ID        ConnID
	Transport Transport
}

type registration struct {
	transport Transport
	userID    int
	bound     bool
}

// Registry owns the set of registered transports and the identity binding
// from user id to the user's most recently registered connection.
type Registry struct {
	mu     sync.RWMutex
	conns  map[ConnID]*registration
	byUser map[int]ConnID
	newID  func() ConnID
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		conns:  make(map[ConnID]*registration),
		byUser: make(map[int]ConnID),
		newID:  func() ConnID { return ConnID(uuid.NewString()) },
	}
}

// Register stores t under a freshly generated id and returns the id.
func (r *Registry) Register(t Transport) ConnID {
	r.mu.Lock()
	id := r.newID()
	for _, taken := r.conns[id]; taken; _, taken = r.conns[id] {
		id = r.newID()
	}
	r.conns[id] = &registration{transport: t}
	r.mu.Unlock()

	metrics.WSConnections.Inc()
	return id
}

// Lookup returns the transport registered under id.
func (r *Registry) Lookup(id ConnID) (Transport, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, ok := r.conns[id]
	if !ok {
		return nil, false
	}
	return reg.transport, true
}

// Snapshot returns every registered entry at call time, ordered by id.
func (r *Registry) Snapshot() []Entry {
	r.mu.RLock()
	entries := make([]Entry, 0, len(r.conns))
	for id, reg := range r.conns {
		entries = append(entries, Entry{ID: id, Transport: reg.transport})
	}
	r.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries
}

// AllOpen returns the registered entries whose transport reports open.
// Entries added or removed concurrently may or may not be included.
func (r *Registry) AllOpen() []Entry {
	all := r.Snapshot()
	open := all[:0]
	for _, e := range all {
		if state, ok := probeState(e.Transport); ok && state == StateOpen {
			open = append(open, e)
		}
	}
	return open
}

// Deregister removes id and any identity binding pointing at it, closing
// the transport with a normal closure if it is still open. It reports
// whether id was registered; deregistering an unknown id is a no-op.
func (r *Registry) Deregister(id ConnID) bool {
	r.mu.Lock()
	reg, ok := r.conns[id]
	if ok {
		delete(r.conns, id)
		if reg.bound && r.byUser[reg.userID] == id {
			delete(r.byUser, reg.userID)
		}
	}
	r.mu.Unlock()

	if !ok {
		return false
	}
	metrics.WSConnections.Dec()

	if state, probed := probeState(reg.transport); probed && state == StateOpen {
		if err := reg.transport.Close(websocket.CloseNormalClosure, ""); err != nil {
			logging.Debug().Err(err).Str("conn_id", string(id)).Msg("close on deregister failed")
		}
	}
	return true
}

// BindIdentity points userID at id. A later binding for the same user
// replaces an earlier one. Binding an unregistered id is ignored.
func (r *Registry) BindIdentity(userID int, id ConnID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	reg, ok := r.conns[id]
	if !ok {
		return false
	}
	reg.userID = userID
	reg.bound = true
	r.byUser[userID] = id
	return true
}

// ResolveIdentity returns the connection currently bound to userID.
func (r *Registry) ResolveIdentity(userID int) (ConnID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byUser[userID]
	return id, ok
}

// Count returns the number of registered connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// probeState reads t.State, reporting false if the probe panicked.
func probeState(t Transport) (state ConnState, ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			logging.Warn().Interface("panic", rec).Msg("transport state probe panicked")
			ok = false
		}
	}()
	return t.State(), true
}
