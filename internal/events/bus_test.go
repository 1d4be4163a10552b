package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	chatService "github.com/zhouzirui/strombreaker/widget/internal/service/chat"
)

func TestBusDeliversSessionEvents(t *testing.T) {
	bus, err := NewBus(Config{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = bus.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mine, err := bus.Subscribe(ctx, "s1")
	require.NoError(t, err)
	other, err := bus.Subscribe(ctx, "s2")
	require.NoError(t, err)

	typing := true
	sink := bus.Sink()
	sink.OnEvent(chatService.Event{Type: chatService.EventTyping, SessionID: "s1", Typing: &typing})

	select {
	case ev := <-mine:
		require.Equal(t, chatService.EventTyping, ev.Type)
		require.Equal(t, "s1", ev.SessionID)
		require.NotNil(t, ev.Typing)
		require.True(t, *ev.Typing)
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}

	select {
	case ev := <-other:
		t.Fatalf("unexpected event on other session: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBusFansOutToEverySubscriber(t *testing.T) {
	bus, err := NewBus(Config{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = bus.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := bus.Subscribe(ctx, "s1")
	require.NoError(t, err)
	b, err := bus.Subscribe(ctx, "s1")
	require.NoError(t, err)

	require.NoError(t, bus.Publish(chatService.Event{Type: chatService.EventDashboard, SessionID: "s1"}))

	for _, ch := range []<-chan chatService.Event{a, b} {
		select {
		case ev := <-ch:
			require.Equal(t, chatService.EventDashboard, ev.Type)
		case <-time.After(2 * time.Second):
			t.Fatal("event not delivered")
		}
	}
}

func TestSubscriptionClosesWithContext(t *testing.T) {
	bus, err := NewBus(Config{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = bus.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := bus.Subscribe(ctx, "s1")
	require.NoError(t, err)
	cancel()

	require.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}

func TestBusPreservesPublishOrder(t *testing.T) {
	bus, err := NewBus(Config{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = bus.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := bus.Subscribe(ctx, "s1")
	require.NoError(t, err)

	const total = 500
	go func() {
		sink := bus.Sink()
		for i := 1; i <= total; i++ {
			selection := i
			sink.OnEvent(chatService.Event{Type: chatService.EventMoodSelected, SessionID: "s1", Selection: &selection})
		}
	}()

	for want := 1; want <= total; want++ {
		select {
		case ev := <-ch:
			require.NotNil(t, ev.Selection)
			require.Equal(t, want, *ev.Selection)
		case <-time.After(5 * time.Second):
			t.Fatalf("event %d not delivered", want)
		}
	}
}
