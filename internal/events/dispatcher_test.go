package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDispatcherDeliversToSubscribers(t *testing.T) {
	dispatcher := NewInMemoryDispatcher(zap.NewNop())

	var received []Event
	dispatcher.Subscribe(EventTicketCreated, func(ctx context.Context, event Event) error {
		received = append(received, event)
		return nil
	})

	err := dispatcher.Publish(context.Background(), Event{Type: EventTicketCreated, TicketID: "t-1"})
	require.NoError(t, err)
	require.Len(t, received, 1)
	assert.Equal(t, "t-1", received[0].TicketID)
}

func TestDispatcherIgnoresUnrelatedTypes(t *testing.T) {
	dispatcher := NewInMemoryDispatcher(zap.NewNop())

	calls := 0
	dispatcher.Subscribe(EventTicketClosed, func(ctx context.Context, event Event) error {
		calls++
		return nil
	})

	require.NoError(t, dispatcher.Publish(context.Background(), Event{Type: EventTicketCreated}))
	assert.Zero(t, calls)
}

func TestDispatcherContinuesPastHandlerFailure(t *testing.T) {
	dispatcher := NewInMemoryDispatcher(zap.NewNop())

	calls := 0
	dispatcher.Subscribe(EventTicketClosed, func(ctx context.Context, event Event) error {
		return errors.New("handler broke")
	})
	dispatcher.Subscribe(EventTicketClosed, func(ctx context.Context, event Event) error {
		calls++
		return nil
	})

	require.NoError(t, dispatcher.Publish(context.Background(), Event{Type: EventTicketClosed}))
	assert.Equal(t, 1, calls, "failure in one handler must not starve the rest")
}
