// Package mocks provides testify mocks for the workflow's collaborator
// interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sgcbr/sgcflow/pkg/eventbus"
	"github.com/sgcbr/sgcflow/pkg/events"
	"github.com/sgcbr/sgcflow/pkg/models"
	"github.com/sgcbr/sgcflow/pkg/notifier"
	"github.com/sgcbr/sgcflow/pkg/persistence"
)

// MockDispatcher is a mock implementation of the workflow.Dispatcher interface.
type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Dispatch(ctx context.Context, event *events.TransitionCompleted) error {
	args := m.Called(ctx, event)

	return args.Error(0)
}

// MockNotificationClient is a mock implementation of the notifier.Client interface.
type MockNotificationClient struct {
	mock.Mock
}

func (m *MockNotificationClient) SendEmail(ctx context.Context, subprocessID int64, email notifier.Email) error {
	args := m.Called(ctx, subprocessID, email)

	return args.Error(0)
}

func (m *MockNotificationClient) CreateAlert(ctx context.Context, subprocessID int64, alert notifier.Alert) error {
	args := m.Called(ctx, subprocessID, alert)

	return args.Error(0)
}

// MockPermissionCheck is a mock implementation of the workflow.PermissionCheck interface.
type MockPermissionCheck struct {
	mock.Mock
}

func (m *MockPermissionCheck) Verify(ctx context.Context, tx persistence.Tx, caller models.Caller, action string, subprocess *models.Subprocess) error {
	args := m.Called(ctx, tx, caller, action, subprocess)

	return args.Error(0)
}

// MockImpactChecker is a mock implementation of the workflow.ImpactChecker interface.
type MockImpactChecker struct {
	mock.Mock
}

func (m *MockImpactChecker) HasImpact(ctx context.Context, subprocess *models.Subprocess) (bool, error) {
	args := m.Called(ctx, subprocess)

	return args.Bool(0), args.Error(1)
}

// MockPublisher is a mock implementation of the eventbus.Publisher interface.
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, key string, event eventbus.Event) error {
	args := m.Called(ctx, key, event)

	return args.Error(0)
}
