package realtime

import "encoding/json"

// Inbound events.
const (
	JoinChatEvent        = "joinChat"
	LeaveChatEvent       = "leaveChat"
	SendMessageEvent     = "sendMessage"
	MarkMessageReadEvent = "markMessageRead"
)

// Outbound events.
const (
	JoinedChatEvent      = "joinedChat"
	LeftChatEvent        = "leftChat"
	MessageReceivedEvent = "messageReceived"
	MessageSentEvent     = "messageSent"
	MessageReadEvent     = "messageRead"
	ChatCreatedEvent     = "chatCreated"
	AddedToGroupEvent    = "addedToGroup"
	ErrorEvent           = "error"
)

type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type Outbound struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type ChatPayload struct {
	ChatID string `json:"chatId" validate:"required"`
}

type SendMessagePayload struct {
	ChatID  string `json:"chatId" validate:"required"`
	Content string `json:"content" validate:"required"`
}

type MarkMessageReadPayload struct {
	MessageID string `json:"messageId" validate:"required"`
}

type MessageReadPayload struct {
	MessageID string `json:"messageId"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

func ChatRoom(chatID string) string {
	return "chat:" + chatID
}

func encode(event string, data any) ([]byte, error) {
	return json.Marshal(Outbound{Event: event, Data: data})
}
