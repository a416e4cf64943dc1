// Partyline - Real-time Group Chat and Notification Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partyline

package websocket

import (
	"errors"
	"sync"
	"testing"
)

type broadcastFixture struct {
	reg *Registry
	tr  *Tracker
	b   *Broadcaster
}

func newBroadcastFixture() *broadcastFixture {
	reg := NewRegistry()
	tr := NewTracker()
	return &broadcastFixture{reg: reg, tr: tr, b: NewBroadcaster(reg, tr)}
}

func (f *broadcastFixture) subscriber(topic TopicID) (ConnID, *fakeTransport) {
	ft := newFakeTransport()
	id := f.reg.Register(ft)
	f.tr.Join(id, topic)
	return id, ft
}

type recordingPublisher struct {
	mu     sync.Mutex
	topics []TopicID
	users  []int
	err    error
}

func (p *recordingPublisher) PublishTopic(topic TopicID, _ []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	return p.err
}

func (p *recordingPublisher) PublishUser(userID int, _ []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.users = append(p.users, userID)
	return p.err
}

func TestBroadcastToTopic_ExcludesSender(t *testing.T) {
	f := newBroadcastFixture()
	senderID, sender := f.subscriber(7)
	_, other1 := f.subscriber(7)
	_, other2 := f.subscriber(7)
	_, elsewhere := f.subscriber(8)

	n, err := f.b.BroadcastToTopic(7, &TypingBroadcast{ChatID: 7, UserID: 1}, senderID)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("BroadcastToTopic() = %d, want 2", n)
	}
	if len(sender.messages()) != 0 {
		t.Error("excluded sender received the broadcast")
	}
	for i, ft := range []*fakeTransport{other1, other2} {
		if len(ft.messages()) != 1 {
			t.Errorf("subscriber %d received %d frames, want 1", i, len(ft.messages()))
		}
	}
	if len(elsewhere.messages()) != 0 {
		t.Error("subscriber of another topic received the broadcast")
	}
}

func TestBroadcastToTopic_NoExclusion(t *testing.T) {
	f := newBroadcastFixture()
	_, a := f.subscriber(7)
	_, b := f.subscriber(7)

	n, err := f.b.BroadcastToTopic(7, &ChatMessage{ChatID: 7, Content: "hi"}, "")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 || len(a.messages()) != 1 || len(b.messages()) != 1 {
		t.Errorf("BroadcastToTopic() = %d, a=%d b=%d frames", n, len(a.messages()), len(b.messages()))
	}
}

func TestBroadcastToTopic_FailureIsolated(t *testing.T) {
	f := newBroadcastFixture()
	brokenID, broken := f.subscriber(7)
	broken.sendErr = errors.New("broken pipe")
	_, healthy1 := f.subscriber(7)
	_, healthy2 := f.subscriber(7)
	f.reg.BindIdentity(99, brokenID)

	n, err := f.b.BroadcastToTopic(7, &ChatMessage{ChatID: 7, Content: "hi"}, "")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("BroadcastToTopic() = %d, want 2", n)
	}
	for i, ft := range []*fakeTransport{healthy1, healthy2} {
		if len(ft.messages()) != 1 {
			t.Errorf("healthy subscriber %d received %d frames, want 1", i, len(ft.messages()))
		}
	}

	// the failed recipient is cleaned up as a side effect
	if _, ok := f.reg.Lookup(brokenID); ok {
		t.Error("broken connection still registered")
	}
	if f.tr.IsSubscribed(brokenID, 7) {
		t.Error("broken connection still subscribed")
	}
	if _, ok := f.reg.ResolveIdentity(99); ok {
		t.Error("broken connection still bound to its user")
	}
}

func TestBroadcastToTopic_QueueFull(t *testing.T) {
	f := newBroadcastFixture()
	id, ft := f.subscriber(7)
	ft.sendErr = ErrSendQueueFull

	if n, _ := f.b.BroadcastToTopic(7, &ChatMessage{ChatID: 7, Content: "x"}, ""); n != 0 {
		t.Errorf("BroadcastToTopic() = %d, want 0", n)
	}
	if _, ok := f.reg.Lookup(id); ok {
		t.Error("slow connection still registered")
	}
}

func TestBroadcastToTopic_SkipsNotOpen(t *testing.T) {
	f := newBroadcastFixture()
	_, closing := f.subscriber(7)
	closing.setState(StateClosing)

	if n, _ := f.b.BroadcastToTopic(7, &ChatMessage{ChatID: 7, Content: "x"}, ""); n != 0 {
		t.Errorf("BroadcastToTopic() = %d, want 0", n)
	}
	if len(closing.messages()) != 0 {
		t.Error("closing connection received a frame")
	}
}

func TestSendToUser(t *testing.T) {
	f := newBroadcastFixture()
	ft := newFakeTransport()
	id := f.reg.Register(ft)
	f.reg.BindIdentity(42, id)

	ok, err := f.b.SendToUser(42, &GroupAccepted{GroupID: 3, UserID: 42})
	if err != nil || !ok {
		t.Fatalf("SendToUser() = %v, %v", ok, err)
	}
	if len(ft.messages()) != 1 {
		t.Errorf("bound connection received %d frames, want 1", len(ft.messages()))
	}
}

func TestSendToUser_OfflineIsNoop(t *testing.T) {
	f := newBroadcastFixture()
	_, bystander := f.subscriber(7)

	ok, err := f.b.SendToUser(404, &GroupAccepted{GroupID: 3, UserID: 404})
	if err != nil {
		t.Errorf("SendToUser() error = %v, want nil", err)
	}
	if ok {
		t.Error("SendToUser() reported delivery to an offline user")
	}
	if len(bystander.messages()) != 0 {
		t.Error("unrelated connection received a frame")
	}
}

func TestBroadcaster_Publisher(t *testing.T) {
	f := newBroadcastFixture()
	pub := &recordingPublisher{err: errors.New("nats down")}
	f.b.SetPublisher(pub)

	if _, err := f.b.BroadcastToTopic(7, &ChatMessage{ChatID: 7, Content: "x"}, ""); err != nil {
		t.Errorf("publisher failure leaked to caller: %v", err)
	}
	if _, err := f.b.SendToUser(42, &GroupAccepted{UserID: 42}); err != nil {
		t.Errorf("publisher failure leaked to caller: %v", err)
	}
	if len(pub.topics) != 1 || pub.topics[0] != 7 {
		t.Errorf("published topics = %v, want [7]", pub.topics)
	}
	if len(pub.users) != 1 || pub.users[0] != 42 {
		t.Errorf("published users = %v, want [42]", pub.users)
	}

	// local-only delivery never republishes
	f.b.DeliverTopic(7, []byte(`{}`), "", "relayed")
	f.b.DeliverUser(42, []byte(`{}`), "relayed")
	if len(pub.topics) != 1 || len(pub.users) != 1 {
		t.Error("Deliver* published to the relay")
	}

	f.b.SetPublisher(nil)
	f.b.BroadcastToTopic(7, &ChatMessage{ChatID: 7, Content: "x"}, "")
	if len(pub.topics) != 1 {
		t.Error("removed publisher still called")
	}
}

func TestBroadcastToTopic_Concurrent(t *testing.T) {
	f := newBroadcastFixture()
	for i := 0; i < 20; i++ {
		f.subscriber(7)
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			f.b.BroadcastToTopic(7, &ChatMessage{ChatID: 7, Content: "x"}, "")
		}()
		go func() {
			defer wg.Done()
			id, _ := f.subscriber(7)
			disconnect(f.reg, f.tr, id)
		}()
	}
	wg.Wait()

	if got := len(f.tr.SubscribersOf(7)); got != 20 {
		t.Errorf("SubscribersOf(7) = %d, want 20", got)
	}
}
