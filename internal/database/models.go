package database

import "time"

// Message is a persisted chat message row. Exactly one of ProjectId or
// the (SenderId, ReceiverId) pair identifies the conversation; PairKey
// carries the canonical unordered pair for personal rows.
type Message struct {
	Id         int
	ExternalId string
	ProjectId  string
	PairKey    string
	SenderId   string
	SenderName string
	ReceiverId string
	Content    string
	Kind       string
	FileName   string
	FileUrl    string
	FileSize   int64
	IsEdited   bool
	EditedAt   *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type CreateMessageParams struct {
	ExternalId string
	ProjectId  string
	PairKey    string
	SenderId   string
	SenderName string
	ReceiverId string
	Content    string
	Kind       string
	FileName   string
	FileUrl    string
	FileSize   int64
}

type GetMessagesParams struct {
	ProjectId string
	PairKey   string
	Before    time.Time
	Limit     int
}
