// Partyline - Real-time Group Chat and Notification Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partyline

package websocket

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/tomtom215/partyline/internal/auth"
	"github.com/tomtom215/partyline/internal/logging"
	"github.com/tomtom215/partyline/internal/metrics"
)

// Authenticator verifies the credential presented on the upgrade request.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (auth.Identity, error)
}

// DisplayNameResolver looks up a user's display name.
type DisplayNameResolver interface {
	ResolveDisplayName(ctx context.Context, userID int) (string, bool)
}

// MembershipChecker reports whether a user may listen to a topic.
type MembershipChecker interface {
	IsMember(ctx context.Context, userID int, topic TopicID) (bool, error)
}

// RouterConfig configures the handshake and the per-connection loop.
type RouterConfig struct {
	TokenQueryParam string
	AllowedOrigins  []string // empty or "*" accepts any origin
	Client          ClientConfig

	// InboundRate limits frames per second per connection; 0 disables.
	InboundRate  float64
	InboundBurst int

	// VerifyMembership consults the MembershipChecker on every join.
	VerifyMembership bool
}

// Router upgrades authenticated requests and runs one receive loop per
// connection, dispatching decoded frames to the tracker and broadcaster.
type Router struct {
	registry    *Registry
	tracker     *Tracker
	broadcaster *Broadcaster

	auth    Authenticator
	names   DisplayNameResolver
	members MembershipChecker

	cfg      RouterConfig
	upgrader websocket.Upgrader
}

// NewRouter creates a router. names and members may be nil.
func NewRouter(cfg RouterConfig, reg *Registry, tr *Tracker, b *Broadcaster, authenticator Authenticator, names DisplayNameResolver, members MembershipChecker) *Router {
	if cfg.TokenQueryParam == "" {
		cfg.TokenQueryParam = "token"
	}
	rt := &Router{
		registry:    reg,
		tracker:     tr,
		broadcaster: b,
		auth:        authenticator,
		names:       names,
		members:     members,
		cfg:         cfg,
	}
	rt.upgrader = websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      rt.checkOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
	return rt
}

// checkOrigin validates the Origin header against the allow-list.
func (rt *Router) checkOrigin(r *http.Request) bool {
	if len(rt.cfg.AllowedOrigins) == 0 {
		return true
	}

	origin := r.Header.Get("Origin")
	for _, allowed := range rt.cfg.AllowedOrigins {
		if allowed == "*" {
			return true
		}
		if origin != "" && strings.EqualFold(allowed, origin) {
			return true
		}
	}

	metrics.RecordHandshakeRejection("origin")
	logging.Warn().Str("origin", sanitizeLogValue(origin)).Msg("WebSocket connection rejected from unauthorized origin")
	return false
}

// ServeHTTP authenticates the request, upgrades it and blocks until the
// connection ends. A rejected credential still completes the upgrade so the
// client sees a policy-violation close rather than an opaque HTTP error;
// no registry or subscription state is created for it.
func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	token := auth.TokenFromRequest(r, rt.cfg.TokenQueryParam)
	identity, authErr := rt.auth.Authenticate(ctx, token)

	conn, err := rt.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error response.
		logging.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	if authErr != nil {
		rt.reject(conn, authErr)
		return
	}

	client := NewClient(conn, rt.cfg.Client)
	id := rt.registry.Register(client)
	rt.registry.BindIdentity(identity.UserID, id)
	go client.writePump()

	rt.serveConn(ctx, id, client, identity)
}

func (rt *Router) reject(conn *websocket.Conn, authErr error) {
	reason := auth.RejectionReason(authErr)
	metrics.RecordHandshakeRejection(reason)
	logging.Warn().Str("reason", reason).Str("remote", conn.RemoteAddr().String()).Msg("websocket handshake rejected")

	text := "Invalid token"
	if errors.Is(authErr, auth.ErrMissingIdentity) {
		text = "Missing user ID"
	}
	msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, text)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(rt.cfg.Client.withDefaults().WriteWait))
	_ = conn.Close()
}

// session is the per-connection state owned by one receive loop.
type session struct {
	id       ConnID
	identity auth.Identity
	limiter  *rate.Limiter
	log      zerolog.Logger
}

func (rt *Router) serveConn(ctx context.Context, id ConnID, client *Client, identity auth.Identity) {
	s := &session{
		id:       id,
		identity: identity,
		log:      logging.Ctx(ctx).With().Str("conn_id", string(id)).Int("user_id", identity.UserID).Logger(),
	}
	ctx = logging.ContextWithLogger(ctx, s.log)
	if rt.cfg.InboundRate > 0 {
		burst := rt.cfg.InboundBurst
		if burst <= 0 {
			burst = int(rt.cfg.InboundRate) + 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(rt.cfg.InboundRate), burst)
	}

	defer func() {
		if rec := recover(); rec != nil {
			s.log.Error().Interface("panic", rec).Msg("connection handler panicked")
		}
		disconnect(rt.registry, rt.tracker, id)
		s.log.Debug().Msg("connection closed")
	}()

	s.log.Debug().Msg("connection registered")

	err := client.readLoop(func(messageType int, data []byte) {
		rt.dispatch(ctx, s, messageType, data)
	})

	var netErr net.Error
	switch {
	case websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived):
		s.log.Error().Err(err).Msg("unexpected websocket close error")
	case errors.As(err, &netErr) && netErr.Timeout():
		s.log.Debug().Msg("read deadline exceeded")
	}
}

// dispatch handles one inbound frame. Nothing here ends the connection.
func (rt *Router) dispatch(ctx context.Context, s *session, messageType int, data []byte) {
	if s.limiter != nil && !s.limiter.Allow() {
		metrics.RecordDropped("rate_limited")
		return
	}

	msg, err := Decode(messageType, data)
	if err != nil {
		metrics.RecordDropped(DecodeReason(err))
		s.log.Debug().Err(err).Msg("frame dropped")
		return
	}
	metrics.RecordInbound(string(msg.Type()))

	switch m := msg.(type) {
	case *JoinMessage:
		rt.handleJoin(ctx, s, m.Topic())
	case *LeaveMessage:
		rt.tracker.Leave(s.id, m.Topic())
	case *TypingMessage:
		rt.handleTyping(ctx, s, m.Topic(), false)
	case *StopTypingMessage:
		rt.handleTyping(ctx, s, m.Topic(), true)
	case *ChatMessage:
		rt.handleChatMessage(ctx, s, m)
	default:
		s.log.Error().Str("type", string(msg.Type())).Msg("decoded frame has no handler")
	}
}

func (rt *Router) handleJoin(ctx context.Context, s *session, topic TopicID) {
	if rt.cfg.VerifyMembership && rt.members != nil {
		ok, err := rt.members.IsMember(ctx, s.identity.UserID, topic)
		if err != nil {
			metrics.RecordDropped("membership_error")
			s.log.Warn().Err(err).Int("topic", int(topic)).Msg("membership check failed, join dropped")
			return
		}
		if !ok {
			metrics.RecordDropped("not_member")
			s.log.Debug().Int("topic", int(topic)).Msg("join refused, not a member")
			return
		}
	}
	rt.tracker.Join(s.id, topic)
}

func (rt *Router) handleTyping(ctx context.Context, s *session, topic TopicID, stopped bool) {
	if !rt.joined(s, topic) {
		return
	}

	out := &TypingBroadcast{
		ChatID:  int(topic),
		UserID:  s.identity.UserID,
		Stopped: stopped,
	}
	if !stopped {
		out.Username = rt.displayName(ctx, s)
	}
	if _, err := rt.broadcaster.BroadcastToTopic(topic, out, s.id); err != nil {
		s.log.Error().Err(err).Msg("typing broadcast failed")
	}
}

func (rt *Router) handleChatMessage(ctx context.Context, s *session, m *ChatMessage) {
	topic := m.Topic()
	if !rt.joined(s, topic) {
		return
	}

	m.SenderID = s.identity.UserID
	if m.SenderName == "" {
		m.SenderName = rt.displayName(ctx, s)
	}
	if m.TimeStamp.IsZero() {
		m.TimeStamp = Timestamp{Time: time.Now().UTC()}
	}
	if _, err := rt.broadcaster.BroadcastToTopic(topic, m, ""); err != nil {
		s.log.Error().Err(err).Msg("chat broadcast failed")
	}
}

// joined gates topic traffic on the sender's own subscription.
func (rt *Router) joined(s *session, topic TopicID) bool {
	if rt.tracker.IsSubscribed(s.id, topic) {
		return true
	}
	metrics.RecordDropped("not_joined")
	s.log.Debug().Int("topic", int(topic)).Msg("frame for a topic the connection has not joined")
	return false
}

// displayName prefers the directory and falls back to the token's name claim.
func (rt *Router) displayName(ctx context.Context, s *session) string {
	if rt.names != nil {
		if name, ok := rt.names.ResolveDisplayName(ctx, s.identity.UserID); ok {
			return name
		}
	}
	return s.identity.Name
}

// sanitizeLogValue strips control characters and bounds the length of
// client-supplied values before they reach the log.
func sanitizeLogValue(v string) string {
	const maxLen = 256
	if len(v) > maxLen {
		v = v[:maxLen]
	}
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, v)
}
