package database

import "context"

type MessageRepository interface {
	Ping() error
	CreateMessage(ctx context.Context, params CreateMessageParams) (Message, error)
	GetMessage(ctx context.Context, externalId string) (Message, error)
	GetTextMessage(ctx context.Context, externalId string) (Message, error)
	UpdateMessageContent(ctx context.Context, externalId, content string) (Message, error)
	DeleteMessage(ctx context.Context, externalId string) error
	GetMessages(ctx context.Context, params GetMessagesParams) ([]Message, error)
}
