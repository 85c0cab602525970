package notifier_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sgcbr/sgcflow/pkg/events"
	"github.com/sgcbr/sgcflow/pkg/mocks"
	"github.com/sgcbr/sgcflow/pkg/models"
	"github.com/sgcbr/sgcflow/pkg/notifier"
	"github.com/sgcbr/sgcflow/pkg/registry"
)

func newTransitionEvent(alert, email bool) *events.TransitionCompleted {
	return &events.TransitionCompleted{
		BaseEvent:   events.NewBaseEvent(events.TransitionCompletedEvent, 42),
		ProcessID:   1,
		Transition:  registry.TransitionCadastroDisponibilizado,
		Situacao:    models.SituacaoCadastroDisponibilizado,
		Origin:      events.UnitRef{ID: 3, Code: 300, Sigla: "SECAO", Email: "secao@example.org"},
		Destination: events.UnitRef{ID: 2, Code: 200, Sigla: "COGEP", Email: "cogep@example.org"},
		CallerTitle: "T-300",
		Description: "Cadastro de atividades e conhecimentos disponibilizado",
		Alert:       alert,
		Email:       email,
	}
}

func TestDispatch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("emails both sides of the hand-off and alerts the destination", func(t *testing.T) {
		client := &mocks.MockNotificationClient{}
		client.On("SendEmail", mock.Anything, int64(42), mock.MatchedBy(func(email notifier.Email) bool {
			return len(email.Recipients) == 2 &&
				email.Recipients[0] == "cogep@example.org" &&
				email.Recipients[1] == "secao@example.org"
		})).Return(nil)
		client.On("CreateAlert", mock.Anything, int64(42), mock.MatchedBy(func(alert notifier.Alert) bool {
			return alert.UnitSigla == "COGEP"
		})).Return(nil)

		dispatcher := notifier.NewDispatcher(client, slog.Default())
		require.NoError(t, dispatcher.Dispatch(ctx, newTransitionEvent(true, true)))

		client.AssertExpectations(t)
	})

	t.Run("self hand-off emails the unit once", func(t *testing.T) {
		event := newTransitionEvent(false, true)
		event.Origin = event.Destination

		client := &mocks.MockNotificationClient{}
		client.On("SendEmail", mock.Anything, int64(42), mock.MatchedBy(func(email notifier.Email) bool {
			return len(email.Recipients) == 1 && email.Recipients[0] == "cogep@example.org"
		})).Return(nil)

		dispatcher := notifier.NewDispatcher(client, slog.Default())
		require.NoError(t, dispatcher.Dispatch(ctx, event))

		client.AssertExpectations(t)
	})

	t.Run("silent transition touches nothing", func(t *testing.T) {
		client := &mocks.MockNotificationClient{}

		dispatcher := notifier.NewDispatcher(client, slog.Default())
		require.NoError(t, dispatcher.Dispatch(ctx, newTransitionEvent(false, false)))

		client.AssertNotCalled(t, "SendEmail", mock.Anything, mock.Anything, mock.Anything)
		client.AssertNotCalled(t, "CreateAlert", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("delivery failures are swallowed", func(t *testing.T) {
		client := &mocks.MockNotificationClient{}
		client.On("SendEmail", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("smtp down"))
		client.On("CreateAlert", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("board down"))

		dispatcher := notifier.NewDispatcher(client, slog.Default())
		assert.NoError(t, dispatcher.Dispatch(ctx, newTransitionEvent(true, true)))
	})

	t.Run("missing addresses skip the e-mail without failing", func(t *testing.T) {
		event := newTransitionEvent(false, true)
		event.Origin.Email = ""
		event.Destination.Email = ""

		client := &mocks.MockNotificationClient{}

		dispatcher := notifier.NewDispatcher(client, slog.Default())
		require.NoError(t, dispatcher.Dispatch(ctx, event))

		client.AssertNotCalled(t, "SendEmail", mock.Anything, mock.Anything, mock.Anything)
	})
}
