// Partyline - Real-time Group Chat and Notification Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partyline

package websocket

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		frame    int
		raw      string
		wantType MessageType
		wantTop  TopicID
		wantErr  error
	}{
		{"join", websocket.TextMessage, `{"type":"join","chatId":7}`, TypeJoin, 7, nil},
		{"leave", websocket.TextMessage, `{"type":"leave","chatId":7}`, TypeLeave, 7, nil},
		{"typing", websocket.TextMessage, `{"type":"typing","chatId":7,"userId":42}`, TypeTyping, 7, nil},
		{"stop typing", websocket.TextMessage, `{"type":"stopTyping","chatId":7,"userId":42}`, TypeStopTyping, 7, nil},
		{"message", websocket.TextMessage, `{"type":"message","chatId":7,"content":"hi"}`, TypeMessage, 7, nil},
		{"pascal case fields", websocket.TextMessage, `{"Type":"join","ChatId":3}`, TypeJoin, 3, nil},
		{"discriminator case", websocket.TextMessage, `{"type":"STOPTYPING","chatId":3}`, TypeStopTyping, 3, nil},
		{"binary frame", websocket.BinaryMessage, `{"type":"join","chatId":7}`, "", 0, ErrNotText},
		{"not json", websocket.TextMessage, `hello`, "", 0, ErrMalformed},
		{"array", websocket.TextMessage, `[1,2]`, "", 0, ErrMalformed},
		{"missing type", websocket.TextMessage, `{"chatId":7}`, "", 0, ErrMissingField},
		{"blank type", websocket.TextMessage, `{"type":"  ","chatId":7}`, "", 0, ErrMissingField},
		{"unknown type", websocket.TextMessage, `{"type":"dance","chatId":7}`, "", 0, ErrUnknownType},
		{"outbound only type", websocket.TextMessage, `{"type":"group.accepted","groupId":1}`, "", 0, ErrUnknownType},
		{"missing chat id", websocket.TextMessage, `{"type":"join"}`, "", 0, ErrMissingField},
		{"missing content", websocket.TextMessage, `{"type":"message","chatId":7}`, "", 0, ErrMissingField},
		{"wrong field type", websocket.TextMessage, `{"type":"join","chatId":"seven"}`, "", 0, ErrMalformed},
		{"bad timestamp", websocket.TextMessage, `{"type":"message","chatId":7,"content":"x","timeStamp":"yesterday"}`, "", 0, ErrMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := Decode(tt.frame, []byte(tt.raw))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) || !errors.Is(err, ErrDecode) {
					t.Fatalf("Decode() error = %v, want %v wrapped in ErrDecode", err, tt.wantErr)
				}
				if msg != nil {
					t.Errorf("Decode() returned %T alongside an error", msg)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode() unexpected error: %v", err)
			}
			if msg.Type() != tt.wantType {
				t.Errorf("Type() = %q, want %q", msg.Type(), tt.wantType)
			}
			if msg.Topic() != tt.wantTop {
				t.Errorf("Topic() = %d, want %d", msg.Topic(), tt.wantTop)
			}
		})
	}
}

func TestDecode_ChatMessageFields(t *testing.T) {
	raw := `{"type":"message","messageId":5,"chatId":7,"senderId":9,"senderName":"ada","content":"hi","timeStamp":"2026-03-01T10:20:30.1234567"}`
	msg, err := Decode(websocket.TextMessage, []byte(raw))
	if err != nil {
		t.Fatal(err)
	}
	m, ok := msg.(*ChatMessage)
	if !ok {
		t.Fatalf("Decode() = %T, want *ChatMessage", msg)
	}

	want := time.Date(2026, 3, 1, 10, 20, 30, 123456700, time.UTC)
	if !m.TimeStamp.Equal(want) {
		t.Errorf("TimeStamp = %v, want %v", m.TimeStamp.Time, want)
	}
	if m.MessageID != 5 || m.SenderID != 9 || m.SenderName != "ada" || m.Content != "hi" {
		t.Errorf("fields not decoded: %+v", m)
	}
}

func TestTimestamp_Layouts(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{`"2026-03-01T10:20:30Z"`, time.Date(2026, 3, 1, 10, 20, 30, 0, time.UTC)},
		{`"2026-03-01T12:20:30+02:00"`, time.Date(2026, 3, 1, 10, 20, 30, 0, time.UTC)},
		{`"2026-03-01T10:20:30"`, time.Date(2026, 3, 1, 10, 20, 30, 0, time.UTC)},
		{`"2026-03-01 10:20:30"`, time.Date(2026, 3, 1, 10, 20, 30, 0, time.UTC)},
		{`null`, time.Time{}},
		{`""`, time.Time{}},
	}
	for _, tt := range tests {
		var ts Timestamp
		if err := json.Unmarshal([]byte(tt.in), &ts); err != nil {
			t.Errorf("Unmarshal(%s) error: %v", tt.in, err)
			continue
		}
		if !ts.Equal(tt.want) {
			t.Errorf("Unmarshal(%s) = %v, want %v", tt.in, ts.Time, tt.want)
		}
	}
}

func TestDecode_NeverPanics(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	seeds := [][]byte{
		[]byte(`{"type":"message","chatId":7,"content":"hi"}`),
		[]byte(`{"type":"join","chatId":`),
		[]byte(`{"type":{"nested":true}}`),
		{0xff, 0xfe, 0x00},
		nil,
	}
	for i := 0; i < 2000; i++ {
		var raw []byte
		if i < len(seeds) {
			raw = seeds[i]
		} else {
			raw = make([]byte, rng.Intn(64))
			rng.Read(raw)
		}
		msg, err := Decode(websocket.TextMessage, raw)
		if err != nil && !errors.Is(err, ErrDecode) {
			t.Fatalf("Decode(%q) error %v does not wrap ErrDecode", raw, err)
		}
		if err == nil && msg == nil {
			t.Fatalf("Decode(%q) returned neither message nor error", raw)
		}
	}
}

func FuzzDecode(f *testing.F) {
	f.Add([]byte(`{"type":"join","chatId":7}`))
	f.Add([]byte(`{"type":"message","chatId":7,"content":"hi","timeStamp":"2026-01-01T00:00:00Z"}`))
	f.Add([]byte(`{"type":"stopTyping"}`))
	f.Add([]byte(`not json`))

	f.Fuzz(func(t *testing.T, raw []byte) {
		msg, err := Decode(websocket.TextMessage, raw)
		if err != nil {
			if !errors.Is(err, ErrDecode) {
				t.Fatalf("error %v does not wrap ErrDecode", err)
			}
			return
		}
		if msg == nil {
			t.Fatal("nil message without error")
		}
	})
}

func TestDecodeReason(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{decodeError(ErrNotText, "x"), "not_text"},
		{decodeError(ErrMalformed, "x"), "malformed"},
		{decodeError(ErrUnknownType, "x"), "unknown_type"},
		{decodeError(ErrMissingField, "x"), "missing_field"},
		{errors.New("other"), "other"},
	}
	for _, tt := range tests {
		if got := DecodeReason(tt.err); got != tt.want {
			t.Errorf("DecodeReason(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestEncode_AddsTypeTag(t *testing.T) {
	ts := Timestamp{Time: time.Date(2026, 3, 1, 10, 20, 30, 0, time.UTC)}
	tests := []struct {
		name string
		msg  OutboundMessage
		want map[string]interface{}
	}{
		{
			name: "typing",
			msg:  &TypingBroadcast{ChatID: 7, UserID: 42, Username: "ada"},
			want: map[string]interface{}{"type": "typing", "chatId": 7.0, "userId": 42.0, "username": "ada"},
		},
		{
			name: "stop typing omits username",
			msg:  &TypingBroadcast{ChatID: 7, UserID: 42, Stopped: true},
			want: map[string]interface{}{"type": "stopTyping", "chatId": 7.0, "userId": 42.0},
		},
		{
			name: "chat message",
			msg:  &ChatMessage{MessageID: 1, ChatID: 7, SenderID: 42, SenderName: "ada", Content: "hi", TimeStamp: ts},
			want: map[string]interface{}{
				"type": "message", "messageId": 1.0, "chatId": 7.0, "senderId": 42.0,
				"senderName": "ada", "content": "hi", "timeStamp": "2026-03-01T10:20:30Z",
			},
		},
		{
			name: "pending join request",
			msg:  &PendingJoinRequest{GroupID: 3, RequestUserID: 42, OwnerID: 1, Title: "Raid night", RequesterName: "ada"},
			want: map[string]interface{}{
				"type": "pending.join.request", "groupId": 3.0, "requestUserId": 42.0,
				"ownerId": 1.0, "title": "Raid night", "requesterName": "ada",
			},
		},
		{
			name: "group accepted",
			msg:  &GroupAccepted{GroupID: 3, GroupName: "Raiders", UserID: 42, OwnerID: 1},
			want: map[string]interface{}{"type": "group.accepted", "groupId": 3.0, "groupName": "Raiders", "userId": 42.0, "ownerId": 1.0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Encode(tt.msg)
			if err != nil {
				t.Fatal(err)
			}
			var got map[string]interface{}
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("Encode() produced invalid JSON %s: %v", data, err)
			}
			if len(got) != len(tt.want) {
				t.Errorf("Encode() = %s, want %d keys", data, len(tt.want))
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("%s = %v, want %v", k, got[k], v)
				}
			}
		})
	}
}

func TestEncode_DecodeChatMessage(t *testing.T) {
	in := &ChatMessage{ChatID: 7, SenderID: 42, Content: "hi", TimeStamp: Timestamp{Time: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}}
	data, err := Encode(in)
	if err != nil {
		t.Fatal(err)
	}
	msg, err := Decode(websocket.TextMessage, data)
	if err != nil {
		t.Fatalf("Decode(Encode()) error: %v", err)
	}
	out := msg.(*ChatMessage)
	if out.Content != in.Content || !out.TimeStamp.Equal(in.TimeStamp.Time) {
		t.Errorf("Decode(Encode()) = %+v, want %+v", out, in)
	}
}
