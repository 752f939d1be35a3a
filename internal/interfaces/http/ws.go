package httpinterface

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/ctf-amm/internal/core/application"
	"github.com/tdex-network/ctf-amm/internal/core/domain"
	"github.com/tdex-network/ctf-amm/internal/core/ports"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024
	sendBufferSize = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

type streamMessage struct {
	topic string
	data  []byte
}

type client struct {
	hub   *Hub
	conn  *websocket.Conn
	send  chan []byte
	topic string
}

// Hub streams the committed market events to the connected websocket
// clients. A client can restrict the stream to a topic with the topic query
// param.
type Hub struct {
	lock       *sync.RWMutex
	clients    map[*client]bool
	broadcast  chan streamMessage
	register   chan *client
	unregister chan *client
	done       chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		lock:       &sync.RWMutex{},
		clients:    make(map[*client]bool),
		broadcast:  make(chan streamMessage, sendBufferSize),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
	}
}

// Run is the main loop of the hub, it returns when the context is canceled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.lock.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.lock.Unlock()
			return

		case c := <-h.register:
			h.lock.Lock()
			h.clients[c] = true
			h.lock.Unlock()
			log.Debugf("ws: client connected, total %d", h.clientCount())

		case c := <-h.unregister:
			h.lock.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.lock.Unlock()
			log.Debugf("ws: client disconnected, total %d", h.clientCount())

		case msg := <-h.broadcast:
			h.lock.RLock()
			for c := range h.clients {
				if !c.isSubscribed(msg.topic) {
					continue
				}
				select {
				case c.send <- msg.data:
				default:
					log.Warn("ws: dropping message for slow client")
				}
			}
			h.lock.RUnlock()
		}
	}
}

// HandleEvent queues the event for broadcasting, without blocking.
func (h *Hub) HandleEvent(event domain.Event) {
	data, err := json.Marshal(application.NewEventMessage(event))
	if err != nil {
		log.WithError(err).Warnf("ws: failed to serialize %s event", event.Type)
		return
	}

	select {
	case h.broadcast <- streamMessage{application.TopicForEvent(event), data}:
	default:
		log.Warnf("ws: broadcast queue full, dropping %s event", event.Type)
	}
}

func (h *Hub) serveWs(w http.ResponseWriter, r *http.Request) {
	topic := r.URL.Query().Get("topic")
	if topic == "" {
		topic = ports.AnyTopic
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Debug("ws: upgrade failed")
		return
	}

	c := &client{
		hub:   h,
		conn:  conn,
		send:  make(chan []byte, sendBufferSize),
		topic: topic,
	}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

func (h *Hub) clientCount() int {
	h.lock.RLock()
	defer h.lock.RUnlock()
	return len(h.clients)
}

func (c *client) isSubscribed(topic string) bool {
	return c.topic == ports.AnyTopic || c.topic == topic
}

// readPump only consumes control frames, clients are not expected to send
// anything.
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	// nolint
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(
				err, websocket.CloseGoingAway, websocket.CloseNormalClosure,
			) {
				log.WithError(err).Debug("ws: unexpected close")
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			// nolint
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// nolint
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			// nolint
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
