package server

import (
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var hubLog = log.New(os.Stdout, "[psg:stream] ", log.LstdFlags|log.Lmicroseconds)

// PipelineEvent is broadcast over /ADMIN/stream once per finished request,
// adapted from the teacher's DAGEvent shape (spec.md §6.3's admin
// observability surface; new functionality beyond spec.md's core scope,
// added because the C7 HTTP/2 front-end already owns the natural place
// to observe every request's outcome).
type PipelineEvent struct {
	Endpoint   string    `json:"endpoint"`
	SeqID      string    `json:"seq_id,omitempty"`
	Result     string    `json:"result"`
	StatusCode int       `json:"status_code"`
	NChunks    int       `json:"n_chunks"`
	Timestamp  time.Time `json:"timestamp"`
}

// StreamHub manages the /ADMIN/stream websocket fan-out, the same
// register/unregister/broadcast channel shape as the teacher's
// DAGStreamer, generalized from DAG visualization events to PSG
// PipelineEvents.
type StreamHub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan PipelineEvent
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	mu         sync.RWMutex
	upgrader   websocket.Upgrader
}

func NewStreamHub() *StreamHub {
	h := &StreamHub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan PipelineEvent, 256),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	go h.run()
	return h
}

func (h *StreamHub) run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
			hubLog.Printf("admin stream client connected (total: %d)", len(h.clients))

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				c.Close()
			}
			h.mu.Unlock()
			hubLog.Printf("admin stream client disconnected (total: %d)", len(h.clients))

		case evt := <-h.broadcast:
			h.mu.RLock()
			for c := range h.clients {
				if err := c.WriteJSON(evt); err != nil {
					hubLog.Printf("write error: %v", err)
					c.Close()
					delete(h.clients, c)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Publish broadcasts evt to every connected admin stream client,
// dropping it if the broadcast channel is saturated rather than
// blocking the caller (a reply-completion callback on the request path).
func (h *StreamHub) Publish(evt PipelineEvent) {
	select {
	case h.broadcast <- evt:
	default:
		hubLog.Printf("broadcast channel full, dropping event for %s", evt.Endpoint)
	}
}

func (h *StreamHub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		hubLog.Printf("upgrade error: %v", err)
		return
	}
	h.register <- conn

	go func() {
		defer func() { h.unregister <- conn }()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
