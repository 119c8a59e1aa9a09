package database

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockMessageRepository struct {
	mock.Mock
}

func (m *MockMessageRepository) Ping() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockMessageRepository) CreateMessage(ctx context.Context, params CreateMessageParams) (Message, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(Message), args.Error(1)
}

func (m *MockMessageRepository) GetMessage(ctx context.Context, externalId string) (Message, error) {
	args := m.Called(ctx, externalId)
	return args.Get(0).(Message), args.Error(1)
}

func (m *MockMessageRepository) GetTextMessage(ctx context.Context, externalId string) (Message, error) {
	args := m.Called(ctx, externalId)
	return args.Get(0).(Message), args.Error(1)
}

func (m *MockMessageRepository) UpdateMessageContent(ctx context.Context, externalId, content string) (Message, error) {
	args := m.Called(ctx, externalId, content)
	return args.Get(0).(Message), args.Error(1)
}

func (m *MockMessageRepository) DeleteMessage(ctx context.Context, externalId string) error {
	args := m.Called(ctx, externalId)
	return args.Error(0)
}

func (m *MockMessageRepository) GetMessages(ctx context.Context, params GetMessagesParams) ([]Message, error) {
	args := m.Called(ctx, params)
	return args.Get(0).([]Message), args.Error(1)
}
