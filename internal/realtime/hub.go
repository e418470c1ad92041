// Package realtime pushes state changes to terminals over SockJS.  Each
// connection subscribes to topics; session ticks go only to the owning
// user's connections.
package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Client is one connected terminal.
type Client struct {
	ID     string
	UserID string
	Send   chan []byte

	topics map[string]bool
}

// Message is the frame written to clients.
type Message struct {
	Topic   string    `json:"topic"`
	Payload any       `json:"payload"`
	SentAt  time.Time `json:"sent_at"`
}

// ControlMessage is what a client sends to change its topics.  An empty
// topic list on subscribe means every topic.
type ControlMessage struct {
	Action string   `json:"action"`
	Topics []string `json:"topics"`
}

type Hub struct {
	log logrus.FieldLogger

	mu      sync.RWMutex
	clients map[string]*Client
}

func NewHub(log logrus.FieldLogger) *Hub {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Hub{log: log.WithField("component", "realtime"), clients: make(map[string]*Client)}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.ID] = c
}

func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.ID]; !ok {
		return
	}
	delete(h.clients, c.ID)
	close(c.Send)
}

// Subscribe replaces the client's topic filter.
func (h *Hub) Subscribe(c *Client, topics []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(topics) == 0 {
		c.topics = nil
		return
	}
	c.topics = make(map[string]bool, len(topics))
	for _, t := range topics {
		c.topics[t] = true
	}
}

// Unsubscribe drops the given topics, or all of them when none are named.
// A client without topics receives nothing until it subscribes again.
func (h *Hub) Unsubscribe(c *Client, topics []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(topics) == 0 || c.topics == nil {
		c.topics = map[string]bool{}
		return
	}
	for _, t := range topics {
		delete(c.topics, t)
	}
}

// Clients is the number of connected terminals.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends payload to every client subscribed to topic.
func (h *Hub) Broadcast(topic string, payload any) {
	h.deliver(topic, payload, func(*Client) bool { return true })
}

// NotifyUser sends payload to userID's clients subscribed to topic.
func (h *Hub) NotifyUser(userID, topic string, payload any) {
	h.deliver(topic, payload, func(c *Client) bool { return c.UserID == userID })
}

func (h *Hub) deliver(topic string, payload any, want func(*Client) bool) {
	frame, err := json.Marshal(Message{Topic: topic, Payload: payload, SentAt: time.Now().UTC()})
	if err != nil {
		h.log.WithError(err).WithField("topic", topic).Error("marshal realtime frame")
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		if !want(c) || !subscribed(c, topic) {
			continue
		}
		select {
		case c.Send <- frame:
		default:
			h.log.WithFields(logrus.Fields{"client": c.ID, "topic": topic}).Warn("drop message for slow client")
		}
	}
}

func subscribed(c *Client, topic string) bool {
	if c.topics == nil {
		return true
	}
	return c.topics[topic]
}

// ParseControl decodes a client frame.  ok is false for anything that is
// not a subscribe or unsubscribe request.
func ParseControl(data []byte) (ControlMessage, bool) {
	var msg ControlMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return ControlMessage{}, false
	}
	if msg.Action != "subscribe" && msg.Action != "unsubscribe" {
		return ControlMessage{}, false
	}
	return msg, true
}
