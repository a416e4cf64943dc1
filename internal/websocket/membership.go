// Partyline - Real-time Group Chat and Notification Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partyline

package websocket

import (
	"sort"
	"sync"

	"github.com/tomtom215/partyline/internal/metrics"
)

// TopicID identifies a chat or group conversation.
type TopicID int

// Tracker records which topics each connection has joined. Both directions
// are indexed so fan-out reads subscribers without scanning every connection.
type Tracker struct {
	mu      sync.RWMutex
	byConn  map[ConnID]map[TopicID]struct{}
	byTopic map[TopicID]map[ConnID]struct{}
	count   int
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		byConn:  make(map[ConnID]map[TopicID]struct{}),
		byTopic: make(map[TopicID]map[ConnID]struct{}),
	}
}

// Join subscribes id to topic. It reports whether the subscription is new.
func (t *Tracker) Join(id ConnID, topic TopicID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	topics, ok := t.byConn[id]
	if !ok {
		topics = make(map[TopicID]struct{})
		t.byConn[id] = topics
	}
	if _, dup := topics[topic]; dup {
		return false
	}
	topics[topic] = struct{}{}

	subs, ok := t.byTopic[topic]
	if !ok {
		subs = make(map[ConnID]struct{})
		t.byTopic[topic] = subs
	}
	subs[id] = struct{}{}

	t.count++
	metrics.WSSubscriptions.Inc()
	return true
}

// Leave unsubscribes id from topic. It reports whether id was subscribed.
func (t *Tracker) Leave(id ConnID, topic TopicID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	topics, ok := t.byConn[id]
	if !ok {
		return false
	}
	if _, member := topics[topic]; !member {
		return false
	}

	delete(topics, topic)
	if len(topics) == 0 {
		delete(t.byConn, id)
	}
	t.unindex(id, topic)
	return true
}

// IsSubscribed reports whether id has joined topic.
func (t *Tracker) IsSubscribed(id ConnID, topic TopicID) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	_, ok := t.byConn[id][topic]
	return ok
}

// SubscribersOf returns the connections subscribed to topic, ordered by id.
func (t *Tracker) SubscribersOf(topic TopicID) []ConnID {
	t.mu.RLock()
	subs := t.byTopic[topic]
	ids := make([]ConnID, 0, len(subs))
	for id := range subs {
		ids = append(ids, id)
	}
	t.mu.RUnlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// TopicsOf returns the topics id has joined in ascending order.
func (t *Tracker) TopicsOf(id ConnID) []TopicID {
	t.mu.RLock()
	topics := make([]TopicID, 0, len(t.byConn[id]))
	for topic := range t.byConn[id] {
		topics = append(topics, topic)
	}
	t.mu.RUnlock()

	sort.Slice(topics, func(i, j int) bool { return topics[i] < topics[j] })
	return topics
}

// DropConnection removes every subscription held by id and returns how many
// were removed.
func (t *Tracker) DropConnection(id ConnID) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	topics, ok := t.byConn[id]
	if !ok {
		return 0
	}
	delete(t.byConn, id)
	for topic := range topics {
		t.unindex(id, topic)
	}
	return len(topics)
}

// Count returns the total number of (connection, topic) subscriptions.
func (t *Tracker) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.count
}

// unindex removes id from the topic side of the index (must hold t.mu).
func (t *Tracker) unindex(id ConnID, topic TopicID) {
	subs := t.byTopic[topic]
	delete(subs, id)
	if len(subs) == 0 {
		delete(t.byTopic, topic)
	}
	t.count--
	metrics.WSSubscriptions.Dec()
}
