package core

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventKind identifies what kind of domain change an Event carries.
type EventKind int

const (
	// EventNewChat notifies recipients that a chat they belong to was created.
	EventNewChat EventKind = iota
	// EventAddToChat notifies recipients that the chat membership grew.
	EventAddToChat
	// EventRemoveFromChat notifies recipients that the chat membership shrank.
	EventRemoveFromChat
	// EventNewMessage notifies recipients about a message posted to a chat.
	EventNewMessage
)

// Wire names for each event kind, used both as the notification "type"
// discriminator and as the SSE event name.
const (
	nameNewChat        = "NewChat"
	nameAddToChat      = "AddToChat"
	nameRemoveFromChat = "RemoveFromChat"
	nameNewMessage     = "NewMessage"
)

// ChatType mirrors the chat platform's public chat_type enum.
type ChatType string

const (
	ChatTypeSingle         ChatType = "single"
	ChatTypeGroup          ChatType = "group"
	ChatTypePrivateChannel ChatType = "privateChannel"
	ChatTypePublicChannel  ChatType = "publicChannel"
)

// Chat is the public-schema chat object as produced by the write path.
// Serialized camelCase, matching what clients already render.
type Chat struct {
	ID        int64     `json:"id"`
	WsID      int64     `json:"wsId"`
	Name      *string   `json:"name"`
	Type      ChatType  `json:"type"`
	Members   []int64   `json:"members"`
	CreatedAt time.Time `json:"createdAt"`
}

// Message is the public-schema message object.
type Message struct {
	ID        int64     `json:"id"`
	ChatID    int64     `json:"chatId"`
	SenderID  int64     `json:"senderId"`
	Content   string    `json:"content"`
	Files     []string  `json:"files"`
	CreatedAt time.Time `json:"createdAt"`
}

// Event is the closed set of notifications fanned out to clients.
// Exactly one of Chat or Message is set, depending on Kind.
type Event struct {
	Kind    EventKind
	Chat    *Chat
	Message *Message
}

// Name returns the wire name for the event kind. The switch is exhaustive
// over EventKind; a kind added without a name here is a programming error.
func (e *Event) Name() string {
	switch e.Kind {
	case EventNewChat:
		return nameNewChat
	case EventAddToChat:
		return nameAddToChat
	case EventRemoveFromChat:
		return nameRemoveFromChat
	case EventNewMessage:
		return nameNewMessage
	default:
		panic(fmt.Sprintf("core: unknown event kind %d", e.Kind))
	}
}

// Payload returns the JSON body emitted for the event: the full domain
// object, never just an id.
func (e *Event) Payload() ([]byte, error) {
	switch e.Kind {
	case EventNewChat, EventAddToChat, EventRemoveFromChat:
		return json.Marshal(e.Chat)
	case EventNewMessage:
		return json.Marshal(e.Message)
	default:
		panic(fmt.Sprintf("core: unknown event kind %d", e.Kind))
	}
}

// ChangeNotification is the decoded database notification payload: the
// event plus the producer-computed recipient set. Recipients are
// denormalized at write time so fan-out never touches the database.
type ChangeNotification struct {
	Event      *Event
	Recipients []uint64
}

type rawNotification struct {
	Type       string          `json:"type"`
	Recipients []uint64        `json:"recipients"`
	Data       json.RawMessage `json:"data"`
}

// DecodeNotification parses a raw change-notification payload. A payload
// with an unknown type or a body that does not match the domain schema is
// rejected; the caller logs and discards it.
func DecodeNotification(payload []byte) (*ChangeNotification, error) {
	var raw rawNotification
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("decode notification envelope: %w", err)
	}

	ev := &Event{}
	switch raw.Type {
	case nameNewChat:
		ev.Kind = EventNewChat
	case nameAddToChat:
		ev.Kind = EventAddToChat
	case nameRemoveFromChat:
		ev.Kind = EventRemoveFromChat
	case nameNewMessage:
		ev.Kind = EventNewMessage
	default:
		return nil, fmt.Errorf("decode notification: unknown type %q", raw.Type)
	}

	switch ev.Kind {
	case EventNewMessage:
		var msg Message
		if err := json.Unmarshal(raw.Data, &msg); err != nil {
			return nil, fmt.Errorf("decode %s data: %w", raw.Type, err)
		}
		ev.Message = &msg
	default:
		var chat Chat
		if err := json.Unmarshal(raw.Data, &chat); err != nil {
			return nil, fmt.Errorf("decode %s data: %w", raw.Type, err)
		}
		ev.Chat = &chat
	}

	return &ChangeNotification{Event: ev, Recipients: raw.Recipients}, nil
}
