package session

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestJSONLoggerRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "abc.jsonl")

	logger, err := NewJSONLogger(path)
	require.NoError(t, err)

	require.NoError(t, logger.Log(NewEvent(EventInit, InitData("abc", "/tmp/proj", "burnish/polish-x", 72.5, 3))))
	require.NoError(t, logger.Log(NewEvent(EventScore, ScoreData(0, 72.5, 0))))
	require.NoError(t, logger.Log(NewEvent(EventResult, ResultData("target_reached", 72.5, 96.0, 4, 3))))
	require.NoError(t, logger.Close())

	events, err := ReadLog(path)
	require.NoError(t, err)
	require.Len(t, events, 3)
	require.Equal(t, EventInit, events[0].Type)
	require.Equal(t, "abc", events[0].Data["session_id"])
	require.Equal(t, EventResult, events[2].Type)
	require.Equal(t, "target_reached", events[2].Data["reason"])
}

func TestLogPath(t *testing.T) {
	require.Equal(t, filepath.Join("results", "id-1.jsonl"), LogPath("results", "id-1"))
}

func TestNewIDUnique(t *testing.T) {
	require.NotEqual(t, NewID(), NewID())
}

func TestEventBusDelivery(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	ch, cancel := bus.Subscribe()
	defer cancel()

	bus.Publish(NewEvent(EventScore, ScoreData(1, 80, 2.5)))

	select {
	case ev := <-ch:
		require.Equal(t, EventScore, ev.Type)
		require.Equal(t, 80.0, ev.Data["score"])
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}
}

func TestEventBusMultipleSubscribers(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	ch1, cancel1 := bus.Subscribe()
	defer cancel1()
	ch2, cancel2 := bus.Subscribe()
	defer cancel2()

	bus.Publish(NewEvent(EventCommit, nil))

	require.Equal(t, EventCommit, (<-ch1).Type)
	require.Equal(t, EventCommit, (<-ch2).Type)
}

func TestEventBusUnsubscribeClosesChannel(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	ch, cancel := bus.Subscribe()
	cancel()

	_, open := <-ch
	require.False(t, open)

	// Publishing after unsubscribe must not panic.
	bus.Publish(NewEvent(EventScore, nil))

	// Double-cancel is safe.
	cancel()
}

func TestEventBusSlowSubscriberDoesNotBlock(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	_, cancel := bus.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < subscriberBuffer*2; i++ {
			bus.Publish(NewEvent(EventAgent, nil))
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("publisher blocked on slow subscriber")
	}
}

func TestEventBusClose(t *testing.T) {
	bus := NewEventBus()

	ch, cancel := bus.Subscribe()
	defer cancel()

	bus.Close()

	_, open := <-ch
	require.False(t, open)

	// Subscribe after close yields a closed channel.
	ch2, cancel2 := bus.Subscribe()
	defer cancel2()
	_, open = <-ch2
	require.False(t, open)

	// Close twice is safe.
	bus.Close()
}
