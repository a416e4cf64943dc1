// Partyline - Real-time Group Chat and Notification Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partyline

package websocket

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/tomtom215/partyline/internal/logging"
	"github.com/tomtom215/partyline/internal/metrics"
)

// Envelope kinds.
const (
	KindTopic = "topic"
	KindUser  = "user"
)

// ErrRelayNotConnected is returned by publishes while the relay is down.
var ErrRelayNotConnected = errors.New("relay not connected")

// Envelope is the relay wire format. Payload is an encoded outbound frame
// delivered verbatim to local recipients.
type Envelope struct {
	Origin  string          `json:"origin"`
	Kind    string          `json:"kind"`
	TopicID int             `json:"topicId,omitempty"`
	UserID  int             `json:"userId,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

// RelayConfig configures the NATS relay.
type RelayConfig struct {
	URL           string
	SubjectPrefix string
	NodeID        string
}

// Relay shares deliveries between gateway nodes over NATS core pub/sub.
// Local broadcasts are published once; envelopes from other nodes are
// delivered to local connections only, so nothing is relayed twice.
type Relay struct {
	cfg         RelayConfig
	broadcaster *Broadcaster

	mu   sync.RWMutex
	conn *nats.Conn

	log zerolog.Logger
}

// NewRelay creates a relay for b. An empty NodeID gets a random one.
func NewRelay(cfg RelayConfig, b *Broadcaster) *Relay {
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = "partyline"
	}
	if cfg.NodeID == "" {
		cfg.NodeID = uuid.NewString()
	}
	return &Relay{cfg: cfg, broadcaster: b, log: logging.WithComponent("nats-relay")}
}

// NodeID returns this node's origin id.
func (r *Relay) NodeID() string {
	return r.cfg.NodeID
}

// TopicSubject returns the subject topic deliveries are published on.
func (r *Relay) TopicSubject(topic TopicID) string {
	return r.cfg.SubjectPrefix + ".topic." + strconv.Itoa(int(topic))
}

// UserSubject returns the subject user deliveries are published on.
func (r *Relay) UserSubject(userID int) string {
	return r.cfg.SubjectPrefix + ".user." + strconv.Itoa(userID)
}

// Serve implements suture.Service. It connects, subscribes, installs itself
// as the broadcaster's publisher and blocks until ctx is done.
func (r *Relay) Serve(ctx context.Context) error {
	nc, err := nats.Connect(r.cfg.URL,
		nats.Name("partyline-"+r.cfg.NodeID),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}

	for _, subject := range []string{r.cfg.SubjectPrefix + ".topic.*", r.cfg.SubjectPrefix + ".user.*"} {
		if _, err := nc.Subscribe(subject, r.handle); err != nil {
			nc.Close()
			return fmt.Errorf("subscribe %s: %w", subject, err)
		}
	}
	if err := nc.Flush(); err != nil {
		nc.Close()
		return fmt.Errorf("flush subscriptions: %w", err)
	}

	r.setConn(nc)
	r.broadcaster.SetPublisher(r)
	r.log.Info().Str("url", r.cfg.URL).Str("node_id", r.cfg.NodeID).Msg("NATS relay started")

	<-ctx.Done()

	r.broadcaster.SetPublisher(nil)
	r.setConn(nil)
	if err := nc.Drain(); err != nil {
		r.log.Warn().Err(err).Msg("NATS relay drain failed")
	}
	r.log.Info().Msg("NATS relay stopped")
	return ctx.Err()
}

// String implements fmt.Stringer for suture logging.
func (r *Relay) String() string {
	return "nats-relay"
}

// PublishTopic implements Publisher.
func (r *Relay) PublishTopic(topic TopicID, payload []byte) error {
	return r.publish(r.TopicSubject(topic), Envelope{Kind: KindTopic, TopicID: int(topic), Payload: payload})
}

// PublishUser implements Publisher.
func (r *Relay) PublishUser(userID int, payload []byte) error {
	return r.publish(r.UserSubject(userID), Envelope{Kind: KindUser, UserID: userID, Payload: payload})
}

func (r *Relay) publish(subject string, env Envelope) error {
	nc := r.currentConn()
	if nc == nil {
		return ErrRelayNotConnected
	}

	env.Origin = r.cfg.NodeID
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	if err := nc.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	metrics.RecordRelay("out")
	return nil
}

func (r *Relay) handle(msg *nats.Msg) {
	var env Envelope
	if err := json.Unmarshal(msg.Data, &env); err != nil {
		metrics.RecordRelay("invalid")
		r.log.Warn().Err(err).Str("subject", msg.Subject).Msg("failed to unmarshal relay envelope")
		return
	}
	if env.Origin == r.cfg.NodeID {
		metrics.RecordRelay("skipped")
		return
	}
	if !isJSONObject(env.Payload) {
		metrics.RecordRelay("invalid")
		r.log.Warn().Str("subject", msg.Subject).Msg("relay envelope payload is not a JSON object")
		return
	}

	switch env.Kind {
	case KindTopic:
		r.broadcaster.DeliverTopic(TopicID(env.TopicID), env.Payload, "", "relayed")
	case KindUser:
		r.broadcaster.DeliverUser(env.UserID, env.Payload, "relayed")
	default:
		metrics.RecordRelay("invalid")
		r.log.Warn().Str("kind", env.Kind).Msg("unknown relay envelope kind")
		return
	}
	metrics.RecordRelay("in")
}

// isJSONObject reports whether payload is a well-formed JSON object, the
// only shape a client frame can take.
func isJSONObject(payload []byte) bool {
	trimmed := bytes.TrimSpace(payload)
	return len(trimmed) > 0 && trimmed[0] == '{' && json.Valid(trimmed)
}

// Healthy reports whether the relay currently holds a live NATS connection.
func (r *Relay) Healthy() bool {
	nc := r.currentConn()
	return nc != nil && nc.IsConnected()
}

func (r *Relay) setConn(nc *nats.Conn) {
	r.mu.Lock()
	r.conn = nc
	r.mu.Unlock()
}

func (r *Relay) currentConn() *nats.Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.conn
}
