// Package bridge publishes the core's reactive emissions to an
// out-of-process renderer over WebSocket. Each emission class is a topic;
// a client subscribes to the topics it renders and receives the latest
// payload on subscribe plus every change after.
package bridge

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/photonav/gallery/internal/observability"
)

// Message is one topic-keyed frame on the wire.
type Message struct {
	Type    string      `json:"type"`
	Topic   string      `json:"topic,omitempty"`
	Payload interface{} `json:"payload,omitempty"`
}

// Message types.
const (
	TypeEvent       = "event"
	TypeSubscribe   = "subscribe"
	TypeUnsubscribe = "unsubscribe"
	TypePing        = "ping"
	TypePong        = "pong"
	TypeError       = "error"
)

// Broadcast topics, one per emission class.
const (
	TopicLibrary    = "library"
	TopicGrouped    = "grouped"
	TopicAlbums     = "albums"
	TopicFavorites  = "favorites"
	TopicSearch     = "search"
	TopicSelection  = "selection"
	TopicSyncStatus = "sync_status"
	TopicOverlay    = "overlay"
	TopicSettings   = "settings"
)

// Client is one connected renderer.
type Client struct {
	ID     string
	Topics map[string]bool
	Conn   *websocket.Conn
	Send   chan []byte

	hub        *Hub
	writeMu    sync.Mutex
	closedOnce sync.Once
}

// Hub fans topic-keyed messages out to subscribed clients. It also keeps
// the last message per topic so a late subscriber starts from current
// state instead of waiting for the next change.
type Hub struct {
	log *observability.Logger

	mu      sync.RWMutex
	clients map[*Client]bool
	topics  map[string]map[*Client]bool
	latest  map[string][]byte

	register   chan *Client
	unregister chan *Client
	broadcast  chan topicFrame
}

type topicFrame struct {
	topic string
	data  []byte
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		log:        observability.GetLogger().WithField("component", "bridge"),
		clients:    make(map[*Client]bool),
		topics:     make(map[string]map[*Client]bool),
		latest:     make(map[string][]byte),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan topicFrame, 256),
	}
}

// Run pumps registrations and broadcasts until the channel closes.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.log.Debugf("client connected: %s", client.ID)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				for topic := range client.Topics {
					h.dropFromTopicLocked(topic, client)
				}
				close(client.Send)
			}
			h.mu.Unlock()
			h.log.Debugf("client disconnected: %s", client.ID)

		case frame := <-h.broadcast:
			h.mu.Lock()
			h.latest[frame.topic] = frame.data
			targets := h.topics[frame.topic]
			for client := range targets {
				select {
				case client.Send <- frame.data:
				default:
					// Buffer full; drop the client rather than block
					// every other subscriber.
					go func(c *Client) { h.unregister <- c }(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) dropFromTopicLocked(topic string, client *Client) {
	if subs, ok := h.topics[topic]; ok {
		delete(subs, client)
		if len(subs) == 0 {
			delete(h.topics, topic)
		}
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(client *Client) { h.register <- client }

// Unregister removes a client from the hub.
func (h *Hub) Unregister(client *Client) { h.unregister <- client }

// Subscribe adds the client to a topic and replays the topic's latest
// message.
func (h *Hub) Subscribe(client *Client, topic string) {
	h.mu.Lock()
	client.Topics[topic] = true
	if h.topics[topic] == nil {
		h.topics[topic] = make(map[*Client]bool)
	}
	h.topics[topic][client] = true
	last := h.latest[topic]
	h.mu.Unlock()

	if last != nil {
		select {
		case client.Send <- last:
		default:
		}
	}
}

// Unsubscribe removes the client from a topic.
func (h *Hub) Unsubscribe(client *Client, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(client.Topics, topic)
	h.dropFromTopicLocked(topic, client)
}

// Publish broadcasts a payload on a topic.
func (h *Hub) Publish(topic string, payload interface{}) {
	data, err := json.Marshal(Message{Type: TypeEvent, Topic: topic, Payload: payload})
	if err != nil {
		h.log.Errorf("failed to marshal %s event: %v", topic, err)
		return
	}
	h.broadcast <- topicFrame{topic: topic, data: data}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// NewClient creates a client bound to this hub.
func (h *Hub) NewClient(id string, conn *websocket.Conn) *Client {
	return &Client{
		ID:     id,
		Topics: make(map[string]bool),
		Conn:   conn,
		Send:   make(chan []byte, 256),
		hub:    h,
	}
}

// Close closes the client connection once.
func (c *Client) Close() {
	c.closedOnce.Do(func() {
		c.hub.Unregister(c)
		c.Conn.Close()
	})
}

// WritePump pumps messages from the hub to the websocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			c.writeMu.Lock()
			err := c.Conn.WriteMessage(websocket.TextMessage, message)
			c.writeMu.Unlock()
			if err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ReadPump pumps subscribe/unsubscribe requests from the connection.
func (c *Client) ReadPump() {
	defer c.Close()

	c.Conn.SetReadLimit(64 * 1024)
	c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Warnf("read error: %v", err)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		switch msg.Type {
		case TypeSubscribe:
			c.hub.Subscribe(c, msg.Topic)
		case TypeUnsubscribe:
			c.hub.Unsubscribe(c, msg.Topic)
		case TypePing:
			c.writeMu.Lock()
			pong, _ := json.Marshal(Message{Type: TypePong})
			c.Conn.WriteMessage(websocket.TextMessage, pong)
			c.writeMu.Unlock()
		}
	}
}
