// Partyline - Real-time Group Chat and Notification Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partyline

package websocket

import (
	"errors"
	"testing"
	"time"
)

func TestClientConfig_Defaults(t *testing.T) {
	cfg := ClientConfig{IdleTimeout: time.Minute}.withDefaults()

	if cfg.WriteWait != defaultWriteWait || cfg.PongWait != defaultPongWait {
		t.Errorf("timeouts = %v/%v, want defaults", cfg.WriteWait, cfg.PongWait)
	}
	if cfg.MaxMessageSize != defaultMaxMessageSize || cfg.SendBuffer != defaultSendBuffer {
		t.Errorf("sizes = %d/%d, want defaults", cfg.MaxMessageSize, cfg.SendBuffer)
	}
	if cfg.IdleTimeout != time.Minute {
		t.Errorf("IdleTimeout = %v, want 1m kept", cfg.IdleTimeout)
	}
	if got := cfg.pingPeriod(); got != 54*time.Second {
		t.Errorf("pingPeriod() = %v, want 54s", got)
	}
}

func TestClient_SendQueue(t *testing.T) {
	c := NewClient(nil, ClientConfig{SendBuffer: 2})

	if c.State() != StateOpen {
		t.Fatalf("State() = %v, want open", c.State())
	}
	for i := 0; i < 2; i++ {
		if err := c.Send([]byte("x")); err != nil {
			t.Fatalf("Send() #%d error: %v", i, err)
		}
	}
	if err := c.Send([]byte("x")); !errors.Is(err, ErrSendQueueFull) {
		t.Errorf("Send() on a full queue = %v, want ErrSendQueueFull", err)
	}
}

func TestClient_CloseIsIdempotent(t *testing.T) {
	c := NewClient(nil, ClientConfig{})

	if err := c.Close(1000, "bye"); err != nil {
		t.Fatal(err)
	}
	if err := c.Close(1001, "again"); err != nil {
		t.Fatal(err)
	}
	if c.State() != StateClosing {
		t.Errorf("State() = %v, want closing", c.State())
	}
	if c.closeCode != 1000 || c.closeReason != "bye" {
		t.Errorf("close = %d %q, want first call to win", c.closeCode, c.closeReason)
	}
	if err := c.Send([]byte("x")); !errors.Is(err, ErrConnectionClosed) {
		t.Errorf("Send() after Close = %v, want ErrConnectionClosed", err)
	}
}

func TestClient_IdleTimeoutEndsConnection(t *testing.T) {
	f := newRouterFixture(t, RouterConfig{Client: ClientConfig{IdleTimeout: 100 * time.Millisecond}})
	_, id := f.dial(t, 1, "alice")

	waitFor(t, 2*time.Second, "idle connection cleanup", func() bool {
		_, ok := f.hub.Registry().Lookup(id)
		return !ok
	})
}

func TestClient_DataFramesRefreshIdleTimeout(t *testing.T) {
	f := newRouterFixture(t, RouterConfig{Client: ClientConfig{IdleTimeout: 150 * time.Millisecond}})
	conn, id := f.dial(t, 1, "alice")

	for i := 0; i < 5; i++ {
		time.Sleep(50 * time.Millisecond)
		sendJSON(t, conn, `{"type":"join","chatId":7}`)
	}
	if _, ok := f.hub.Registry().Lookup(id); !ok {
		t.Error("active connection was closed by the idle timeout")
	}
}
