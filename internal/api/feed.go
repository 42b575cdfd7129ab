package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"ecom-service/internal/util"
	"ecom-service/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	feedWriteWait  = 10 * time.Second
	feedPongWait   = 60 * time.Second
	feedPingPeriod = feedPongWait * 9 / 10
	feedBuffer     = 32
)

type feedClient struct {
	conn *websocket.Conn
	send chan []byte
}

// FeedHub keeps the admin dashboards connected to the live order feed.
// A client whose buffer is full is disconnected rather than waited on.
type FeedHub struct {
	mu       sync.Mutex
	clients  map[*feedClient]struct{}
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewFeedHub creates a hub accepting handshakes from origins; an empty
// list accepts any origin.
func NewFeedHub(origins []string) *FeedHub {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return &FeedHub{
		clients: make(map[*feedClient]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(allowed) == 0 || origin == "" || allowed[origin]
			},
		},
		logger: util.Named("feed"),
	}
}

// Broadcast sends msg to every connected client
func (hub *FeedHub) Broadcast(msg worker.FeedMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		hub.logger.Error("Failed to encode feed message", zap.Error(err))
		return
	}

	hub.mu.Lock()
	defer hub.mu.Unlock()
	for cl := range hub.clients {
		select {
		case cl.send <- data:
		default:
			hub.logger.Warn("Dropping slow feed client")
			hub.removeLocked(cl)
		}
	}
}

// Clients returns the number of connected clients
func (hub *FeedHub) Clients() int {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	return len(hub.clients)
}

// Close disconnects every client
func (hub *FeedHub) Close() {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	for cl := range hub.clients {
		hub.removeLocked(cl)
	}
}

func (hub *FeedHub) add(cl *feedClient) {
	hub.mu.Lock()
	hub.clients[cl] = struct{}{}
	hub.mu.Unlock()
	util.OrderFeedClients.Inc()
}

func (hub *FeedHub) remove(cl *feedClient) {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	hub.removeLocked(cl)
}

func (hub *FeedHub) removeLocked(cl *feedClient) {
	if _, ok := hub.clients[cl]; !ok {
		return
	}
	delete(hub.clients, cl)
	close(cl.send)
	util.OrderFeedClients.Dec()
}

// Serve upgrades the request and pumps messages until the client leaves
func (hub *FeedHub) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := hub.upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.logger.Info("Feed upgrade failed", zap.Error(err))
		return
	}

	cl := &feedClient{conn: conn, send: make(chan []byte, feedBuffer)}
	hub.add(cl)
	go hub.writePump(cl)
	hub.readPump(cl)
}

// readPump discards client messages and notices disconnects
func (hub *FeedHub) readPump(cl *feedClient) {
	defer func() {
		hub.remove(cl)
		cl.conn.Close()
	}()

	cl.conn.SetReadLimit(512)
	_ = cl.conn.SetReadDeadline(time.Now().Add(feedPongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(feedPongWait))
	})
	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (hub *FeedHub) writePump(cl *feedClient) {
	ticker := time.NewTicker(feedPingPeriod)
	defer func() {
		ticker.Stop()
		cl.conn.Close()
	}()

	for {
		select {
		case data, ok := <-cl.send:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if !ok {
				_ = cl.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := cl.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Handler) orderFeed(c *gin.Context) {
	if h.feed == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order feed is not enabled"})
		return
	}
	h.feed.Serve(c.Writer, c.Request)
}
