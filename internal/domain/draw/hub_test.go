package draw

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/rafflelive/backend/internal/model"
	"github.com/rafflelive/backend/pkg/testutil"
	"github.com/stretchr/testify/require"
)

func Test_Hub_ConnectRejectsDuplicateViewer(t *testing.T) {
	hub := NewHub()

	_, err := hub.Connect("raffle-1", "viewer-1")
	require.NoError(t, err)

	_, err = hub.Connect("raffle-1", "viewer-1")
	require.Error(t, err)

	hub.Disconnect("raffle-1", "viewer-1")
	_, err = hub.Connect("raffle-1", "viewer-1")
	require.NoError(t, err)
}

func Test_Hub_FirstViewerReceivesBroadcast(t *testing.T) {
	ctx := testutil.MockContext()
	hub := NewHub()

	// The very first Connect for a raffle creates its viewer set; the
	// viewer must land in the same instance later broadcasts use.
	c, err := hub.Connect("raffle-1", "viewer-1")
	require.NoError(t, err)

	event := model.SessionStartingEvent{Type: model.EventSessionStarting, TotalParticipants: 1}
	require.NoError(t, hub.Broadcast(ctx, "raffle-1", model.EventSessionStarting, 0, event))
	require.Len(t, c, 1)
}

func Test_Hub_BroadcastReachesAllViewers(t *testing.T) {
	ctx := testutil.MockContext()
	hub := NewHub()

	c1, err := hub.Connect("raffle-1", "viewer-1")
	require.NoError(t, err)
	c2, err := hub.Connect("raffle-1", "viewer-2")
	require.NoError(t, err)
	other, err := hub.Connect("raffle-2", "viewer-3")
	require.NoError(t, err)

	err = hub.Broadcast(ctx, "raffle-1", model.EventSessionStarting, 0, model.SessionStartingEvent{
		Type:              model.EventSessionStarting,
		TotalParticipants: 4,
		TotalPrizes:       2,
	})
	require.NoError(t, err)

	for _, c := range []<-chan []byte{c1, c2} {
		var event model.SessionStartingEvent
		require.NoError(t, json.Unmarshal(<-c, &event))
		require.Equal(t, model.EventSessionStarting, event.Type)
		require.Equal(t, 4, event.TotalParticipants)
	}

	select {
	case <-other:
		t.Fatal("viewer of another raffle received the event")
	default:
	}
}

func Test_Hub_RoundEventsAreDeduplicated(t *testing.T) {
	ctx := testutil.MockContext()
	hub := NewHub()

	c, err := hub.Connect("raffle-1", "viewer-1")
	require.NoError(t, err)

	event := model.RoundCommitEvent{Type: model.EventRoundCommit, Position: 2}
	require.NoError(t, hub.Broadcast(ctx, "raffle-1", model.EventRoundCommit, 2, event))
	require.NoError(t, hub.Broadcast(ctx, "raffle-1", model.EventRoundCommit, 2, event))

	// A different position is a different round, not a duplicate.
	event.Position = 1
	require.NoError(t, hub.Broadcast(ctx, "raffle-1", model.EventRoundCommit, 1, event))

	require.Len(t, c, 2)

	// A new session announces its rounds afresh.
	hub.ResetSession("raffle-1")
	event.Position = 2
	require.NoError(t, hub.Broadcast(ctx, "raffle-1", model.EventRoundCommit, 2, event))
	require.Len(t, c, 3)
}

func Test_Hub_StalledViewerIsDropped(t *testing.T) {
	ctx := testutil.MockContext()
	hub := NewHub()

	stalled, err := hub.Connect("raffle-1", "stalled")
	require.NoError(t, err)
	healthy, err := hub.Connect("raffle-1", "healthy")
	require.NoError(t, err)

	event := model.ErrorEvent{Type: model.EventError, Message: "x"}
	for i := 0; i <= viewerBufferSize; i++ {
		require.NoError(t, hub.Broadcast(ctx, "raffle-1", model.EventError, 0, event))

		// Only the healthy viewer drains.
		<-healthy
	}

	// The stalled viewer's channel was closed on overflow.
	require.Len(t, stalled, viewerBufferSize)
	for i := 0; i < viewerBufferSize; i++ {
		<-stalled
	}
	_, open := <-stalled
	require.False(t, open)

	// Later broadcasts still reach the survivor.
	require.NoError(t, hub.Broadcast(ctx, "raffle-1", model.EventError, 0, event))
	require.NotNil(t, <-healthy)
}

func Test_Hub_BroadcastSurvivesDisconnectChurn(t *testing.T) {
	ctx := testutil.MockContext()
	hub := NewHub()

	event := model.ErrorEvent{Type: model.EventError, Message: "x"}

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				hub.Broadcast(ctx, "raffle-1", model.EventError, 0, event)
			}
		}
	}()

	// Connections come and go while broadcasts are in flight; a close must
	// never land on a channel mid-send.
	for i := 0; i < 500; i++ {
		if _, err := hub.Connect("raffle-1", "viewer-1"); err != nil {
			continue
		}
		hub.Disconnect("raffle-1", "viewer-1")
	}

	close(stop)
	wg.Wait()
}

func Test_Hub_PrunesIdleRaffles(t *testing.T) {
	ctx := testutil.MockContext()
	hub := NewHub()

	_, err := hub.Connect("raffle-1", "viewer-1")
	require.NoError(t, err)

	event := model.RoundCommitEvent{Type: model.EventRoundCommit, Position: 1}
	require.NoError(t, hub.Broadcast(ctx, "raffle-1", model.EventRoundCommit, 1, event))

	// The session's dedup state keeps the entry alive past the last viewer.
	hub.Disconnect("raffle-1", "viewer-1")
	_, kept := hub.raffles.Load("raffle-1")
	require.True(t, kept)

	hub.EndSession("raffle-1")
	_, kept = hub.raffles.Load("raffle-1")
	require.False(t, kept)

	// The other order: the session ends first, the entry lingers until the
	// last viewer leaves.
	_, err = hub.Connect("raffle-1", "viewer-1")
	require.NoError(t, err)
	hub.EndSession("raffle-1")
	_, kept = hub.raffles.Load("raffle-1")
	require.True(t, kept)

	hub.Disconnect("raffle-1", "viewer-1")
	_, kept = hub.raffles.Load("raffle-1")
	require.False(t, kept)

	// A pruned raffle is recreated cleanly on the next connect.
	c, err := hub.Connect("raffle-1", "viewer-1")
	require.NoError(t, err)
	require.NoError(t, hub.Broadcast(ctx, "raffle-1", model.EventError, 0, model.ErrorEvent{Type: model.EventError}))
	require.Len(t, c, 1)
}
