// Partyline - Real-time Group Chat and Notification Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partyline

package websocket

import (
	"errors"
	"sync"

	"github.com/tomtom215/partyline/internal/logging"
	"github.com/tomtom215/partyline/internal/metrics"
)

// Publisher forwards locally originated deliveries to other gateway nodes.
type Publisher interface {
	PublishTopic(topic TopicID, payload []byte) error
	PublishUser(userID int, payload []byte) error
}

// Broadcaster delivers encoded frames to topic subscribers or to a single
// user's bound connection. Sends only enqueue, so one slow or broken
// recipient never delays the others.
type Broadcaster struct {
	registry *Registry
	tracker  *Tracker

	mu        sync.RWMutex
	publisher Publisher
}

// NewBroadcaster creates a broadcaster over reg and tr.
func NewBroadcaster(reg *Registry, tr *Tracker) *Broadcaster {
	return &Broadcaster{registry: reg, tracker: tr}
}

// SetPublisher installs (or, with nil, removes) the cross-node publisher.
func (b *Broadcaster) SetPublisher(p Publisher) {
	b.mu.Lock()
	b.publisher = p
	b.mu.Unlock()
}

func (b *Broadcaster) currentPublisher() Publisher {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.publisher
}

// BroadcastToTopic encodes msg once and queues it for every open subscriber
// of topic except exclude (pass "" to exclude nobody). It returns the number
// of local connections the frame was queued for. Only an encode failure is
// returned as an error.
func (b *Broadcaster) BroadcastToTopic(topic TopicID, msg OutboundMessage, exclude ConnID) (int, error) {
	payload, err := Encode(msg)
	if err != nil {
		return 0, err
	}

	n := b.DeliverTopic(topic, payload, exclude, string(msg.Type()))

	if p := b.currentPublisher(); p != nil {
		if err := p.PublishTopic(topic, payload); err != nil {
			logging.Warn().Err(err).Int("topic", int(topic)).Msg("relay publish failed")
		}
	}
	return n, nil
}

// SendToUser encodes msg and queues it for userID's bound connection. A user
// with no live connection is not an error; the frame is dropped and false is
// returned.
func (b *Broadcaster) SendToUser(userID int, msg OutboundMessage) (bool, error) {
	payload, err := Encode(msg)
	if err != nil {
		return false, err
	}

	delivered := b.DeliverUser(userID, payload, string(msg.Type()))

	if p := b.currentPublisher(); p != nil {
		if err := p.PublishUser(userID, payload); err != nil {
			logging.Warn().Err(err).Int("user_id", userID).Msg("relay publish failed")
		}
	}
	return delivered, nil
}

// DeliverTopic queues an already encoded frame for local subscribers only.
func (b *Broadcaster) DeliverTopic(topic TopicID, payload []byte, exclude ConnID, kind string) int {
	delivered := 0
	for _, id := range b.tracker.SubscribersOf(topic) {
		if id == exclude {
			continue
		}
		if b.deliver(id, payload) {
			delivered++
		}
	}
	metrics.RecordSent(kind, delivered)
	return delivered
}

// DeliverUser queues an already encoded frame for a local user only.
func (b *Broadcaster) DeliverUser(userID int, payload []byte, kind string) bool {
	id, ok := b.registry.ResolveIdentity(userID)
	if !ok {
		return false
	}
	if !b.deliver(id, payload) {
		return false
	}
	metrics.RecordSent(kind, 1)
	return true
}

func (b *Broadcaster) deliver(id ConnID, payload []byte) bool {
	t, ok := b.registry.Lookup(id)
	if !ok {
		return false
	}
	if state, probed := probeState(t); !probed || state != StateOpen {
		return false
	}

	if err := t.Send(payload); err != nil {
		reason := "closed"
		if errors.Is(err, ErrSendQueueFull) {
			reason = "queue_full"
		}
		metrics.RecordSendFailure(reason)
		logging.Debug().Err(err).Str("conn_id", string(id)).Msg("send failed, dropping connection")
		disconnect(b.registry, b.tracker, id)
		return false
	}
	return true
}

// disconnect is the single cleanup path for a connection: subscriptions
// first, then the registry entry and its identity binding.
func disconnect(reg *Registry, tr *Tracker, id ConnID) bool {
	tr.DropConnection(id)
	return reg.Deregister(id)
}
