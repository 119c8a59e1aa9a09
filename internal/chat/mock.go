package chat

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/taskify-app/taskify-chat/internal/types"
)

type MockProjectDirectory struct {
	mock.Mock
}

func (m *MockProjectDirectory) ProjectLead(ctx context.Context, projectId string) (string, error) {
	args := m.Called(ctx, projectId)
	return args.String(0), args.Error(1)
}

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) MessageSent(msg types.Message) {
	m.Called(msg)
}

func (m *MockEventPublisher) MessageDeleted(id string, scope types.Scope) {
	m.Called(id, scope)
}
