package chat

import (
	"encoding/json"
	"time"

	"github.com/taskify-app/taskify-chat/internal/types"
)

// Client-emitted event names.
const (
	EventJoinProject  = "join-project"
	EventLeaveProject = "leave-project"
	EventSendMessage  = "send-message"
	EventTyping       = "typing"
	EventStopTyping   = "stop-typing"
)

// Server-emitted event names.
const (
	EventOnlineUsers    = "online-users"
	EventUserJoined     = "user-joined"
	EventUserLeft       = "user-left"
	EventNewMessage     = "new-message"
	EventMessageEdited  = "message-edited"
	EventMessageDeleted = "message-deleted"
	EventMessageError   = "message-error"
	EventUserTyping     = "user-typing"
	EventUserStopTyping = "user-stop-typing"
)

// TypingExpiry is the interval after which clients clear a typing
// indicator absent a stop-typing event.
const TypingExpiry = 2 * time.Second

// ClientEvent is the envelope for messages received from a connection.
type ClientEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// ServerEvent is the envelope for messages delivered to a connection.
type ServerEvent struct {
	Event     string    `json:"event"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// JoinProject is the payload of join-project and leave-project events.
type JoinProject struct {
	ProjectId string `json:"project_id"`
}

// SendMessage is the payload of a send-message event. Exactly one of
// ProjectId or ReceiverId must be set.
type SendMessage struct {
	ProjectId  string              `json:"project_id,omitempty"`
	ReceiverId string              `json:"receiver_id,omitempty"`
	Content    string              `json:"content"`
	Kind       string              `json:"kind,omitempty"`
	Metadata   *types.FileMetadata `json:"metadata,omitempty"`
}

// TypingTarget is the payload of typing and stop-typing events.
type TypingTarget struct {
	ProjectId  string `json:"project_id,omitempty"`
	ReceiverId string `json:"receiver_id,omitempty"`
}

// PresenceChange is the payload of user-joined and user-left events.
type PresenceChange struct {
	UserId   string `json:"user_id"`
	UserName string `json:"user_name"`
	UserRole string `json:"user_role,omitempty"`
}

// MessageEdited carries only the fields that changed so receivers patch
// their local view instead of re-rendering history.
type MessageEdited struct {
	Id         string     `json:"id"`
	Content    string     `json:"content"`
	IsEdited   bool       `json:"is_edited"`
	EditedAt   *time.Time `json:"edited_at,omitempty"`
	ProjectId  string     `json:"project_id,omitempty"`
	ReceiverId string     `json:"receiver_id,omitempty"`
}

// MessageDeleted announces the removal of a message to its scope.
type MessageDeleted struct {
	Id         string `json:"id"`
	ProjectId  string `json:"project_id,omitempty"`
	ReceiverId string `json:"receiver_id,omitempty"`
}

// UserTyping is the payload of user-typing and user-stop-typing events.
type UserTyping struct {
	UserId     string `json:"user_id"`
	UserName   string `json:"user_name,omitempty"`
	IsPersonal bool   `json:"is_personal,omitempty"`
}

// MessageError is reported only to the connection whose operation failed.
type MessageError struct {
	Message string `json:"message"`
}

func NewServerEvent(event string, data any) *ServerEvent {
	return &ServerEvent{
		Event:     event,
		Data:      data,
		Timestamp: Now(),
	}
}

func ErrorEvent(err error) *ServerEvent {
	return NewServerEvent(EventMessageError, MessageError{Message: err.Error()})
}

func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}
