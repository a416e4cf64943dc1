// Partyline - Real-time Group Chat and Notification Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partyline

package websocket

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/partyline/internal/validation"
)

// MessageType is the "type" discriminator carried by every frame.
type MessageType string

const (
	TypeJoin               MessageType = "join"
	TypeLeave              MessageType = "leave"
	TypeTyping             MessageType = "typing"
	TypeStopTyping         MessageType = "stopTyping"
	TypeMessage            MessageType = "message"
	TypePendingJoinRequest MessageType = "pending.join.request"
	TypeGroupAccepted      MessageType = "group.accepted"
)

// Decode failures. Every error returned by Decode wraps ErrDecode and one
// of the reason errors below.
var (
	ErrDecode       = errors.New("decode failure")
	ErrNotText      = errors.New("not a text frame")
	ErrMalformed    = errors.New("malformed frame")
	ErrUnknownType  = errors.New("unknown message type")
	ErrMissingField = errors.New("missing required field")
)

func decodeError(reason error, detail string) error {
	return fmt.Errorf("%w: %w: %s", ErrDecode, reason, detail)
}

// DecodeReason returns a short metric label for a Decode error.
func DecodeReason(err error) string {
	switch {
	case errors.Is(err, ErrNotText):
		return "not_text"
	case errors.Is(err, ErrUnknownType):
		return "unknown_type"
	case errors.Is(err, ErrMissingField):
		return "missing_field"
	case errors.Is(err, ErrMalformed):
		return "malformed"
	default:
		return "other"
	}
}

// InboundMessage is the closed set of frames a client may send.
// Implementations: *JoinMessage, *LeaveMessage, *TypingMessage,
// *StopTypingMessage, *ChatMessage.
type InboundMessage interface {
	Type() MessageType
	Topic() TopicID
	inbound()
}

// JoinMessage subscribes the sending connection to a chat.
type JoinMessage struct {
	ChatID int `json:"chatId" validate:"required"`
}

func (*JoinMessage) Type() MessageType { return TypeJoin }
func (m *JoinMessage) Topic() TopicID { return TopicID(m.ChatID) }
func (*JoinMessage) inbound() {}

// LeaveMessage unsubscribes the sending connection from a chat.
type LeaveMessage struct {
	ChatID int `json:"chatId" validate:"required"`
}

func (*LeaveMessage) Type() MessageType { return TypeLeave }
func (m *LeaveMessage) Topic() TopicID { return TopicID(m.ChatID) }
func (*LeaveMessage) inbound() {}

// TypingMessage announces that a user started typing in a chat.
// UserID is informational; the router always uses the authenticated identity.
type TypingMessage struct {
	ChatID int `json:"chatId" validate:"required"`
	UserID int `json:"userId"`
}

func (*TypingMessage) Type() MessageType { return TypeTyping }
func (m *TypingMessage) Topic() TopicID { return TopicID(m.ChatID) }
func (*TypingMessage) inbound() {}

// StopTypingMessage announces that a user stopped typing in a chat.
type StopTypingMessage struct {
	ChatID int `json:"chatId" validate:"required"`
	UserID int `json:"userId"`
}

func (*StopTypingMessage) Type() MessageType { return TypeStopTyping }
func (m *StopTypingMessage) Topic() TopicID { return TopicID(m.ChatID) }
func (*StopTypingMessage) inbound() {}

// ChatMessage is a chat line. It is decoded from clients and also broadcast
// as-is to every subscriber of the chat.
type ChatMessage struct {
	MessageID  int       `json:"messageId"`
	ChatID     int       `json:"chatId" validate:"required"`
	SenderID   int       `json:"senderId"`
	SenderName string    `json:"senderName"`
	Content    string    `json:"content" validate:"required"`
	TimeStamp  Timestamp `json:"timeStamp"`
}

func (*ChatMessage) Type() MessageType { return TypeMessage }
func (m *ChatMessage) Topic() TopicID { return TopicID(m.ChatID) }
func (*ChatMessage) inbound() {}

// MarshalJSON adds the "type" discriminator.
//
//nolint:gocritic // value receiver so both ChatMessage and *ChatMessage encode with the tag
func (m ChatMessage) MarshalJSON() ([]byte, error) {
	type plain ChatMessage
	return json.Marshal(struct {
		Type MessageType `json:"type"`
		plain
	}{TypeMessage, plain(m)})
}

// Timestamp accepts RFC 3339 and zone-less "2006-01-02T15:04:05[.fff]"
// values (read as UTC) and always encodes RFC 3339 in UTC.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	if s == "" {
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", s)
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

// inboundTypes maps the lowercased discriminator to a fresh target value.
var inboundTypes = map[string]func() InboundMessage{
	"join":       func() InboundMessage { return &JoinMessage{} },
	"leave":      func() InboundMessage { return &LeaveMessage{} },
	"typing":     func() InboundMessage { return &TypingMessage{} },
	"stoptyping": func() InboundMessage { return &StopTypingMessage{} },
	"message":    func() InboundMessage { return &ChatMessage{} },
}

// Decode parses one inbound frame. It never panics; every failure is an
// error wrapping ErrDecode. Field names and the discriminator value are
// matched case-insensitively.
func Decode(messageType int, raw []byte) (msg InboundMessage, err error) {
	defer func() {
		if r := recover(); r != nil {
			msg = nil
			err = decodeError(ErrMalformed, fmt.Sprintf("panic: %v", r))
		}
	}()

	if messageType != websocket.TextMessage {
		return nil, decodeError(ErrNotText, fmt.Sprintf("frame type %d", messageType))
	}

	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, decodeError(ErrMalformed, err.Error())
	}
	if strings.TrimSpace(head.Type) == "" {
		return nil, decodeError(ErrMissingField, "type")
	}

	newTarget, ok := inboundTypes[strings.ToLower(head.Type)]
	if !ok {
		return nil, decodeError(ErrUnknownType, head.Type)
	}

	target := newTarget()
	if err := json.Unmarshal(raw, target); err != nil {
		return nil, decodeError(ErrMalformed, err.Error())
	}
	if verr := validation.ValidateStruct(target); verr != nil {
		return nil, decodeError(ErrMissingField, verr.Error())
	}
	return target, nil
}

// OutboundMessage is a frame the server sends to clients.
type OutboundMessage interface {
	Type() MessageType
}

// Encode serializes an outbound message, including its "type" tag.
func Encode(msg OutboundMessage) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", msg.Type(), err)
	}
	return data, nil
}

// TypingBroadcast tells the other members of a chat that a user started
// (or, with Stopped set, stopped) typing.
type TypingBroadcast struct {
	ChatID   int    `json:"chatId"`
	UserID   int    `json:"userId"`
	Username string `json:"username,omitempty"`
	Stopped  bool   `json:"-"`
}

func (m *TypingBroadcast) Type() MessageType {
	if m.Stopped {
		return TypeStopTyping
	}
	return TypeTyping
}

// MarshalJSON adds the "type" discriminator.
func (m *TypingBroadcast) MarshalJSON() ([]byte, error) {
	type plain TypingBroadcast
	return json.Marshal(struct {
		Type MessageType `json:"type"`
		plain
	}{m.Type(), plain(*m)})
}

// PendingJoinRequest notifies a group owner that someone asked to join.
type PendingJoinRequest struct {
	GroupID       int    `json:"groupId"`
	RequestUserID int    `json:"requestUserId"`
	OwnerID       int    `json:"ownerId"`
	Title         string `json:"title"`
	RequesterName string `json:"requesterName"`
}

func (*PendingJoinRequest) Type() MessageType { return TypePendingJoinRequest }

// MarshalJSON adds the "type" discriminator.
func (m *PendingJoinRequest) MarshalJSON() ([]byte, error) {
	type plain PendingJoinRequest
	return json.Marshal(struct {
		Type MessageType `json:"type"`
		plain
	}{TypePendingJoinRequest, plain(*m)})
}

// GroupAccepted notifies a user that their join request was approved.
type GroupAccepted struct {
	GroupID   int    `json:"groupId"`
	GroupName string `json:"groupName"`
	UserID    int    `json:"userId"`
	OwnerID   int    `json:"ownerId"`
}

func (*GroupAccepted) Type() MessageType { return TypeGroupAccepted }

// MarshalJSON adds the "type" discriminator.
func (m *GroupAccepted) MarshalJSON() ([]byte, error) {
	type plain GroupAccepted
	return json.Marshal(struct {
		Type MessageType `json:"type"`
		plain
	}{TypeGroupAccepted, plain(*m)})
}
