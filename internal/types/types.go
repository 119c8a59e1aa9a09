package types

import (
	"fmt"
	"time"
)

// Roles assigned by the TaskiFy identity service.
const (
	RoleAdmin    = "admin"
	RoleManager  = "manager"
	RoleEmployee = "employee"
)

// Message kinds as persisted.
const (
	KindText   = "text"
	KindSystem = "system"
	KindFile   = "file"
	KindImage  = "image"
	KindVideo  = "video"
	KindAudio  = "audio"
)

// Identity is a resolved user identity. It is immutable for the lifetime
// of a connection.
type Identity struct {
	Id          string `json:"id"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

// Scope identifies a conversation: either a project room or a personal
// two-party channel. Exactly one of the two forms is set.
type Scope struct {
	Project string `json:"project_id,omitempty"`
	UserA   string `json:"user_a,omitempty"`
	UserB   string `json:"user_b,omitempty"`
}

// ProjectScope returns the scope for a project room.
func ProjectScope(projectId string) Scope {
	return Scope{Project: projectId}
}

// PersonalScope returns the scope for a two-party channel. The pair is
// canonicalized so the scope is identical regardless of which side
// initiates.
func PersonalScope(a, b string) Scope {
	if b < a {
		a, b = b, a
	}
	return Scope{UserA: a, UserB: b}
}

func (s Scope) IsPersonal() bool {
	return s.Project == "" && s.UserA != "" && s.UserB != ""
}

// Key returns a stable string form of the scope usable as a map key or
// index value.
func (s Scope) Key() string {
	if s.Project != "" {
		return "project:" + s.Project
	}
	return "personal:" + s.UserA + ":" + s.UserB
}

// Validate checks that exactly one of the project or personal forms is set.
func (s Scope) Validate() error {
	if s.Project != "" && (s.UserA != "" || s.UserB != "") {
		return fmt.Errorf("scope is both project and personal")
	}
	if s.Project == "" && (s.UserA == "" || s.UserB == "") {
		return fmt.Errorf("scope is neither project nor personal")
	}
	return nil
}

// FileMetadata describes the attachment carried by non-text messages.
type FileMetadata struct {
	FileName string `json:"file_name,omitempty"`
	FileUrl  string `json:"file_url,omitempty"`
	FileSize int64  `json:"file_size,omitempty"`
}

// Message is the public form of a persisted chat message, including the
// sender's public identity fields.
type Message struct {
	Id         string        `json:"id"`
	ProjectId  string        `json:"project_id,omitempty"`
	SenderId   string        `json:"sender_id"`
	SenderName string        `json:"sender_name"`
	ReceiverId string        `json:"receiver_id,omitempty"`
	Content    string        `json:"content"`
	Kind       string        `json:"kind"`
	Metadata   *FileMetadata `json:"metadata,omitempty"`
	IsEdited   bool          `json:"is_edited"`
	EditedAt   *time.Time    `json:"edited_at,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// Scope derives the conversation scope a message belongs to.
func (m Message) Scope() Scope {
	if m.ProjectId != "" {
		return ProjectScope(m.ProjectId)
	}
	return PersonalScope(m.SenderId, m.ReceiverId)
}

// PresenceInfo is the public projection of a presence entry. Connection
// identifiers are never exposed to clients.
type PresenceInfo struct {
	UserId   string `json:"user_id"`
	UserName string `json:"user_name"`
	UserRole string `json:"user_role"`
}
