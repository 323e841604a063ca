package server

import (
	"sync"

	"AviaxMusic/core/call"
	"AviaxMusic/logger"

	"github.com/gorilla/websocket"
)

// FeedHub fans now-playing events out to websocket subscribers. It satisfies
// call.Feed; the caller publishes, connected clients receive JSON events.
type FeedHub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]bool
	events  chan call.NowPlayingEvent
	done    chan struct{}
}

// NewFeedHub creates a hub. Run must be started on its own goroutine.
func NewFeedHub() *FeedHub {
	return &FeedHub{
		clients: make(map[*websocket.Conn]bool),
		events:  make(chan call.NowPlayingEvent, 64),
		done:    make(chan struct{}),
	}
}

// Publish queues an event for broadcast. Drops events when the buffer is
// full rather than stalling a stream transition.
func (h *FeedHub) Publish(ev call.NowPlayingEvent) {
	select {
	case h.events <- ev:
	default:
		logger.Warn("feed buffer full, dropping event", logger.String("token", ev.Token))
	}
}

// Run broadcasts queued events until Close.
func (h *FeedHub) Run() {
	for {
		select {
		case ev := <-h.events:
			h.broadcast(ev)
		case <-h.done:
			return
		}
	}
}

// Close stops the broadcast loop and disconnects all clients.
func (h *FeedHub) Close() {
	close(h.done)
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.Close()
	}
	h.clients = make(map[*websocket.Conn]bool)
}

func (h *FeedHub) add(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = true
}

func (h *FeedHub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[conn] {
		delete(h.clients, conn)
		conn.Close()
	}
}

func (h *FeedHub) broadcast(ev call.NowPlayingEvent) {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		if err := conn.WriteJSON(ev); err != nil {
			logger.Debug("feed client write failed", logger.ErrorField(err))
			h.remove(conn)
		}
	}
}

// clientCount is used by the stats endpoint.
func (h *FeedHub) clientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
