// Package realtime pushes read model snapshots to websocket clients. Clients
// subscribe to topics, one per table view, and receive the full listing each
// time the view changes.
package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/citysmiles/dental-admin/pkg/logger"
	"github.com/citysmiles/dental-admin/pkg/metrics"
)

const (
	MessageSnapshot = "snapshot"
	MessageError    = "error"
)

// Source is a live view whose snapshot can be pushed.
type Source interface {
	Topic() string
	OnChange(fn func()) func()
	Snapshot() any
}

// Message is what clients receive.
type Message struct {
	Type  string          `json:"type"`
	Topic string          `json:"topic"`
	At    time.Time       `json:"at"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
}

// ClientMessage is what clients send.
type ClientMessage struct {
	Action string   `json:"action"`
	Topics []string `json:"topics"`
}

type Client struct {
	ID     string
	Send   chan []byte
	topics map[string]struct{}
}

func NewClient(id string, buffer int) *Client {
	return &Client{ID: id, Send: make(chan []byte, buffer), topics: make(map[string]struct{})}
}

type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
	all     map[*Client]struct{}
	sources map[string]Source
	detach  []func()
	log     *logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewHub(log *logger.Logger, m *metrics.Metrics) *Hub {
	if log == nil {
		log = logger.Nop()
	}
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
		all:     make(map[*Client]struct{}),
		sources: make(map[string]Source),
		log:     log,
		metrics: m,
		now:     time.Now,
	}
}

// Attach broadcasts src's snapshot to its topic whenever it changes.
func (h *Hub) Attach(src Source) {
	topic := src.Topic()
	stop := src.OnChange(func() { h.Broadcast(topic, src.Snapshot()) })

	h.mu.Lock()
	h.sources[topic] = src
	h.detach = append(h.detach, stop)
	h.mu.Unlock()
}

// Topics lists the attached topics.
func (h *Hub) Topics() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.sources))
	for t := range h.sources {
		out = append(out, t)
	}
	return out
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.all[c] = struct{}{}
	n := len(h.all)
	h.mu.Unlock()
	h.gauge(n)
}

// Unregister drops c from every topic and closes its Send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.all[c]; !ok {
		h.mu.Unlock()
		return
	}
	for topic := range c.topics {
		h.remove(topic, c)
	}
	delete(h.all, c)
	close(c.Send)
	n := len(h.all)
	h.mu.Unlock()
	h.gauge(n)
}

// Subscribe adds topics to c and sends it the current snapshot of each.
// Unknown topics get an error message instead.
func (h *Hub) Subscribe(c *Client, topics []string) {
	for _, topic := range topics {
		h.mu.Lock()
		src, known := h.sources[topic]
		_, registered := h.all[c]
		if known && registered {
			if h.clients[topic] == nil {
				h.clients[topic] = make(map[*Client]struct{})
			}
			h.clients[topic][c] = struct{}{}
			c.topics[topic] = struct{}{}
		}
		h.mu.Unlock()

		if !registered {
			return
		}
		if !known {
			h.sendTo(c, Message{Type: MessageError, Topic: topic, At: h.now(), Error: "unknown topic"})
			continue
		}
		h.sendTo(c, h.snapshotMessage(topic, src.Snapshot()))
	}
}

func (h *Hub) Unsubscribe(c *Client, topics []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, topic := range topics {
		h.remove(topic, c)
		delete(c.topics, topic)
	}
}

func (h *Hub) Process(c *Client, msg ClientMessage) {
	switch msg.Action {
	case "subscribe":
		h.Subscribe(c, msg.Topics)
	case "unsubscribe":
		h.Unsubscribe(c, msg.Topics)
	}
}

// Broadcast sends data to every subscriber of topic. Slow clients whose buffer
// is full miss the message; the next snapshot supersedes it anyway.
func (h *Hub) Broadcast(topic string, data any) {
	payload, err := json.Marshal(h.snapshotMessage(topic, data))
	if err != nil {
		h.log.Warn(err, "failed to marshal snapshot", "topic", topic)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients[topic] {
		select {
		case c.Send <- payload:
		default:
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.all)
}

func (h *Hub) TopicCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[topic])
}

// Close detaches every source and disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	detach := h.detach
	h.detach = nil
	clients := make([]*Client, 0, len(h.all))
	for c := range h.all {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, stop := range detach {
		stop()
	}
	for _, c := range clients {
		h.Unregister(c)
	}
}

func (h *Hub) snapshotMessage(topic string, data any) Message {
	raw, err := json.Marshal(data)
	if err != nil {
		return Message{Type: MessageError, Topic: topic, At: h.now(), Error: err.Error()}
	}
	return Message{Type: MessageSnapshot, Topic: topic, At: h.now(), Data: raw}
}

func (h *Hub) sendTo(c *Client, msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.all[c]; !ok {
		return
	}
	select {
	case c.Send <- payload:
	default:
	}
}

// remove must be called with mu held.
func (h *Hub) remove(topic string, c *Client) {
	if subs, ok := h.clients[topic]; ok {
		delete(subs, c)
		if len(subs) == 0 {
			delete(h.clients, topic)
		}
	}
}

func (h *Hub) gauge(n int) {
	if h.metrics != nil {
		h.metrics.WebsocketClients.Set(float64(n))
	}
}
