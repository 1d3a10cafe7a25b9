package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/zakazai/ulin-grid/internal/types"
)

// EventInvalidate tells subscribers to refetch the table.
const EventInvalidate = "invalidate"

// Event is one message on a table's event stream.
type Event struct {
	Type    string `json:"type"`
	TableID string `json:"tableId"`
}

const (
	// SubscriberBuffer is how many events a slow subscriber may fall behind
	// before further events are dropped for it.
	SubscriberBuffer = 16
	WriteTimeout     = 10 * time.Second
	PingInterval     = 30 * time.Second
)

type subscriber struct {
	send chan Event
}

// Hub fans table events out to websocket subscribers.
type Hub struct {
	mu       sync.Mutex
	subs     map[string]map[*subscriber]struct{}
	closed   bool
	upgrader websocket.Upgrader
	log      *types.Logger
}

func NewHub() *Hub {
	return &Hub{
		subs: make(map[string]map[*subscriber]struct{}),
		log:  types.GlobalLogger.WithField("component", "events"),
	}
}

// Publish queues an invalidate event for every subscriber of tableID. It
// never blocks.
func (h *Hub) Publish(tableID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ev := Event{Type: EventInvalidate, TableID: tableID}
	for sub := range h.subs[tableID] {
		select {
		case sub.send <- ev:
		default:
			h.log.Debug("dropped event for slow subscriber on %s", tableID)
		}
	}
}

// Subscribers counts the open subscriptions on tableID.
func (h *Hub) Subscribers(tableID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[tableID])
}

func (h *Hub) add(tableID string) *subscriber {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	sub := &subscriber{send: make(chan Event, SubscriberBuffer)}
	if h.subs[tableID] == nil {
		h.subs[tableID] = make(map[*subscriber]struct{})
	}
	h.subs[tableID][sub] = struct{}{}
	return sub
}

func (h *Hub) remove(tableID string, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[tableID][sub]; !ok {
		return
	}
	delete(h.subs[tableID], sub)
	if len(h.subs[tableID]) == 0 {
		delete(h.subs, tableID)
	}
	close(sub.send)
}

// ServeTable upgrades the request and streams tableID's events until either
// side closes.
func (h *Hub) ServeTable(w http.ResponseWriter, r *http.Request, tableID string) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warning("websocket upgrade failed: %v", err)
		return
	}
	defer ws.Close()

	sub := h.add(tableID)
	if sub == nil {
		return
	}
	defer h.remove(tableID, sub)

	// the read loop only notices the peer going away
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(PingInterval)
	defer ping.Stop()
	for {
		select {
		case <-gone:
			return
		case ev, ok := <-sub.send:
			if !ok {
				ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(WriteTimeout))
				return
			}
			ws.SetWriteDeadline(time.Now().Add(WriteTimeout))
			if err := ws.WriteJSON(ev); err != nil {
				return
			}
		case <-ping.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(WriteTimeout)); err != nil {
				return
			}
		}
	}
}

// Close ends every subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for tableID, subs := range h.subs {
		for sub := range subs {
			close(sub.send)
		}
		delete(h.subs, tableID)
	}
}
