package draw

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/puzpuzpuz/xsync"
	"github.com/rafflelive/backend/internal/model"
	"github.com/rafflelive/backend/pkg/xcontext"
)

const viewerBufferSize = 256

// Hub fans draw events out to every viewer watching a raffle. A slow or
// gone viewer is dropped, never waited on, so one bad connection cannot
// stall the draw for everyone else.
type Hub struct {
	raffles *xsync.MapOf[string, *raffleViewers]
}

// raffleViewers is one raffle's viewer set. The mutex covers both maps and
// every channel send and close, so a broadcast can never race a disconnect
// closing the channel it is sending into.
type raffleViewers struct {
	mutex sync.Mutex

	// gone marks an entry already pruned from the hub; a caller holding a
	// stale pointer must fetch a fresh one instead of registering into it.
	gone    bool
	viewers map[string]chan []byte

	// dedup remembers the round-defining events already sent in the current
	// session, keyed by kind:position. A retried round must not re-announce
	// itself to clients.
	dedup map[string]bool
}

func NewHub() *Hub {
	return &Hub{raffles: xsync.NewMapOf[*raffleViewers]()}
}

// raffle returns the raffle's live entry with its mutex held. The caller
// must unlock it.
func (h *Hub) raffle(raffleID string) *raffleViewers {
	for {
		rv, _ := h.raffles.LoadOrStore(raffleID, &raffleViewers{
			viewers: map[string]chan []byte{},
			dedup:   map[string]bool{},
		})

		rv.mutex.Lock()
		if !rv.gone {
			return rv
		}
		rv.mutex.Unlock()
	}
}

// pruneLocked drops the raffle's entry once nothing references it: no
// viewer connected and no session dedup state left.
func (h *Hub) pruneLocked(raffleID string, rv *raffleViewers) {
	if rv.gone || len(rv.viewers) > 0 || len(rv.dedup) > 0 {
		return
	}

	rv.gone = true
	h.raffles.Delete(raffleID)
}

// Connect registers a viewer and returns the channel its outbound messages
// arrive on. The channel is buffered; if the viewer stops draining it, the
// next broadcast disconnects it.
func (h *Hub) Connect(raffleID, viewerID string) (<-chan []byte, error) {
	rv := h.raffle(raffleID)
	defer rv.mutex.Unlock()

	if _, existed := rv.viewers[viewerID]; existed {
		return nil, errors.New("the viewer has already connected")
	}

	c := make(chan []byte, viewerBufferSize)
	rv.viewers[viewerID] = c
	return c, nil
}

func (h *Hub) Disconnect(raffleID, viewerID string) {
	rv, ok := h.raffles.Load(raffleID)
	if !ok {
		return
	}

	rv.mutex.Lock()
	defer rv.mutex.Unlock()

	if c, existed := rv.viewers[viewerID]; existed {
		delete(rv.viewers, viewerID)
		close(c)
	}

	h.pruneLocked(raffleID, rv)
}

// ResetSession clears the dedup set; called when a session starts so a
// restarted draw can announce its rounds again.
func (h *Hub) ResetSession(raffleID string) {
	rv := h.raffle(raffleID)
	defer rv.mutex.Unlock()

	rv.dedup = map[string]bool{}
}

// EndSession drops the session's dedup state and prunes the raffle's entry
// once no viewer is connected either. Called when a session tears down.
func (h *Hub) EndSession(raffleID string) {
	rv, ok := h.raffles.Load(raffleID)
	if !ok {
		return
	}

	rv.mutex.Lock()
	defer rv.mutex.Unlock()

	rv.dedup = map[string]bool{}
	h.pruneLocked(raffleID, rv)
}

// Broadcast sends one event to every connected viewer of the raffle.
// Round-defining kinds are sent at most once per session and position;
// duplicates are silently dropped.
func (h *Hub) Broadcast(ctx context.Context, raffleID, kind string, position int, msg any) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	rv := h.raffle(raffleID)
	defer rv.mutex.Unlock()

	if isRoundDefining(kind) {
		key := fmt.Sprintf("%s:%d", kind, position)
		if rv.dedup[key] {
			xcontext.Logger(ctx).Debugf(
				"Dropped duplicate %s broadcast for raffle %s position %d", kind, raffleID, position)
			return nil
		}
		rv.dedup[key] = true
	}

	for viewerID, c := range rv.viewers {
		select {
		case c <- b:
		default:
			// The viewer is not draining its channel; cut it loose.
			delete(rv.viewers, viewerID)
			close(c)
			xcontext.Logger(ctx).Debugf("Dropped stalled viewer %s of raffle %s", viewerID, raffleID)
		}
	}

	return nil
}

func isRoundDefining(kind string) bool {
	switch kind {
	case model.EventRoundCommit, model.EventRoundStart, model.EventRoundReveal, model.EventRoundComplete:
		return true
	}

	return false
}
