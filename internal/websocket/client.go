// Partyline - Real-time Group Chat and Notification Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partyline

package websocket

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/partyline/internal/logging"
)

const (
	defaultWriteWait      = 10 * time.Second
	defaultPongWait       = 60 * time.Second
	defaultMaxMessageSize = 4 * 1024
	defaultSendBuffer     = 256
)

var (
	// ErrConnectionClosed is returned by Send once the connection left the open state.
	ErrConnectionClosed = errors.New("connection closed")

	// ErrSendQueueFull is returned by Send when the write pump is not keeping up.
	ErrSendQueueFull = errors.New("send queue full")
)

// ClientConfig tunes one connection's keepalive and buffering.
type ClientConfig struct {
	WriteWait      time.Duration
	PongWait       time.Duration
	IdleTimeout    time.Duration // 0 disables
	MaxMessageSize int64
	SendBuffer     int
}

// DefaultClientConfig returns the settings used when a field is left zero.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		WriteWait:      defaultWriteWait,
		PongWait:       defaultPongWait,
		MaxMessageSize: defaultMaxMessageSize,
		SendBuffer:     defaultSendBuffer,
	}
}

func (c ClientConfig) withDefaults() ClientConfig {
	d := DefaultClientConfig()
	if c.WriteWait <= 0 {
		c.WriteWait = d.WriteWait
	}
	if c.PongWait <= 0 {
		c.PongWait = d.PongWait
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = d.MaxMessageSize
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = d.SendBuffer
	}
	return c
}

func (c ClientConfig) pingPeriod() time.Duration {
	return (c.PongWait * 9) / 10
}

// Client is the gorilla/websocket Transport. All socket writes happen on
// the write pump goroutine; Send only enqueues.
type Client struct {
	conn *websocket.Conn
	cfg  ClientConfig
	send chan []byte

	state     atomic.Int32
	done      chan struct{}
	closeOnce sync.Once

	// set once inside closeOnce, read by the write pump after done closes
	closeCode   int
	closeReason string
}

// NewClient wraps an upgraded connection. The caller starts the pumps.
func NewClient(conn *websocket.Conn, cfg ClientConfig) *Client {
	cfg = cfg.withDefaults()
	return &Client{
		conn: conn,
		cfg:  cfg,
		send: make(chan []byte, cfg.SendBuffer),
		done: make(chan struct{}),
	}
}

// State implements Transport.
func (c *Client) State() ConnState {
	return ConnState(c.state.Load())
}

// Send queues payload as one text frame. It never blocks.
func (c *Client) Send(payload []byte) error {
	if c.State() != StateOpen {
		return ErrConnectionClosed
	}
	select {
	case <-c.done:
		return ErrConnectionClosed
	default:
	}

	select {
	case c.send <- payload:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// Close starts the closing handshake. The write pump sends the close frame
// and then closes the socket. Calling Close more than once is harmless.
func (c *Client) Close(code int, reason string) error {
	c.closeOnce.Do(func() {
		c.closeCode = code
		c.closeReason = reason
		c.state.CompareAndSwap(int32(StateOpen), int32(StateClosing))
		close(c.done)
	})
	return nil
}

// writePump owns every write to the socket.
func (c *Client) writePump() {
	ticker := time.NewTicker(c.cfg.pingPeriod())
	defer func() {
		ticker.Stop()
		c.state.Store(int32(StateClosed))
		_ = c.conn.Close() // best-effort
	}()

	for {
		select {
		case payload := <-c.send:
			if err := c.write(websocket.TextMessage, payload); err != nil {
				logging.Debug().Err(err).Msg("websocket write failed")
				return
			}

		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				logging.Debug().Err(err).Msg("websocket ping failed")
				return
			}

		case <-c.done:
			msg := websocket.FormatCloseMessage(c.closeCode, c.closeReason)
			if err := c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.cfg.WriteWait)); err != nil {
				logging.Debug().Err(err).Msg("failed to write close message")
			}
			return
		}
	}
}

func (c *Client) write(messageType int, payload []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(messageType, payload)
}

// readLoop blocks reading data frames and hands each one to handle. It
// returns the error that ended the connection.
//
// The read deadline is the earlier of last pong + PongWait and, when an
// idle timeout is set, last data frame + IdleTimeout. Pongs therefore keep
// a silent client alive only until the idle timeout fires.
func (c *Client) readLoop(handle func(messageType int, data []byte)) error {
	c.conn.SetReadLimit(c.cfg.MaxMessageSize)

	lastData := time.Now()
	lastPong := lastData
	deadline := func() time.Time {
		d := lastPong.Add(c.cfg.PongWait)
		if c.cfg.IdleTimeout > 0 {
			if idle := lastData.Add(c.cfg.IdleTimeout); idle.Before(d) {
				d = idle
			}
		}
		return d
	}

	if err := c.conn.SetReadDeadline(deadline()); err != nil {
		return err
	}
	c.conn.SetPongHandler(func(string) error {
		lastPong = time.Now()
		return c.conn.SetReadDeadline(deadline())
	})
	c.conn.SetCloseHandler(func(int, string) error {
		return c.Close(websocket.CloseNormalClosure, "Closed by client")
	})

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			return err
		}
		lastData = time.Now()
		if err := c.conn.SetReadDeadline(deadline()); err != nil {
			return err
		}
		handle(messageType, data)
	}
}
