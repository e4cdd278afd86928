package chatws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/mentorhub/MentorHubBack/internal/presence"
	"github.com/mentorhub/MentorHubBack/internal/services"
	log "github.com/sirupsen/logrus"
)

// Hub fans persisted chat messages out to connected participants and drives
// presence: the first socket a user opens marks them online, losing the last
// one marks them offline. Unregister runs on every socket teardown, graceful
// or not, which is what makes the offline transition automatic on ungraceful
// disconnects.
type Hub struct {
	clients    map[string]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Event
	tracker    *presence.Tracker
}

type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID string

	// send is guarded by mu: presence callbacks and the read loop queue
	// payloads concurrently with the hub closing the channel, so every
	// send and the close itself go through trySend/closeSend.
	mu     sync.Mutex
	closed bool
	send   chan []byte

	statusSubs map[string]func()
}

type sender interface {
	SendMessage(
		ctx context.Context,
		actorID string,
		pairKey string,
		content string,
		messageType string,
	) (*services.ChatDelivery, error)
}

// Event is the wire format for everything the hub pushes: chat messages,
// presence updates and errors.
type Event struct {
	Type        string `json:"type"`
	PairKey     string `json:"pair_key,omitempty"`
	SenderID    string `json:"sender_id,omitempty"`
	RecipientID string `json:"recipient_id,omitempty"`
	Content     string `json:"content,omitempty"`
	MessageType string `json:"message_type,omitempty"`
	UserID      string `json:"user_id,omitempty"`
	Online      *bool  `json:"online,omitempty"`
	LastSeen    string `json:"last_seen,omitempty"`
	Timestamp   string `json:"timestamp,omitempty"`
}

func NewHub(tracker *presence.Tracker) *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Event, 64),
		tracker:    tracker,
	}
}

func NewClient(hub *Hub, conn *websocket.Conn, userID string) *Client {
	return &Client{
		hub:        hub,
		conn:       conn,
		userID:     userID,
		send:       make(chan []byte, 32),
		statusSubs: make(map[string]func()),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			set, ok := h.clients[client.userID]
			if !ok {
				set = make(map[*Client]struct{})
				h.clients[client.userID] = set
			}
			set[client] = struct{}{}
			if err := h.tracker.Connect(client.userID); err != nil {
				log.WithError(err).WithField("user_id", client.userID).
					Warn("failed to publish online status")
			}
		case client := <-h.unregister:
			h.dropClient(client)
		case event := <-h.broadcast:
			h.deliver(event)
		}
	}
}

// dropClient removes the client from the fanout set and tears it down: the
// send channel is closed (once), the socket is closed so its read loop exits
// and cancels its status subscriptions, and the presence refcount is
// released. Dropping a client twice is a no-op.
func (h *Hub) dropClient(client *Client) {
	set, ok := h.clients[client.userID]
	if !ok {
		return
	}
	if _, exists := set[client]; !exists {
		return
	}
	delete(set, client)
	if len(set) == 0 {
		delete(h.clients, client.userID)
	}

	client.closeSend()
	if client.conn != nil {
		_ = client.conn.Close()
	}
	if err := h.tracker.Disconnect(client.userID); err != nil {
		log.WithError(err).WithField("user_id", client.userID).
			Warn("failed to publish offline status")
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Deliver queues a delivery produced outside the socket path, e.g. a message
// sent over the REST endpoint, for fanout to any connected participants.
func (h *Hub) Deliver(delivery *services.ChatDelivery) {
	h.broadcast <- deliveryEvent(delivery)
}

func (h *Hub) deliver(event *Event) {
	encoded, err := json.Marshal(event)
	if err != nil {
		log.WithError(err).Error("chat hub encode event")
		return
	}

	h.sendToUser(event.SenderID, encoded)
	if event.RecipientID != "" && event.RecipientID != event.SenderID {
		h.sendToUser(event.RecipientID, encoded)
	}
}

func (h *Hub) sendToUser(userID string, payload []byte) {
	set, ok := h.clients[userID]
	if !ok {
		return
	}

	for client := range set {
		if !client.trySend(payload) {
			// Slow or already-closed client; full teardown so presence
			// and subscriptions do not leak.
			h.dropClient(client)
		}
	}
}

func deliveryEvent(delivery *services.ChatDelivery) *Event {
	return &Event{
		Type:        "message",
		PairKey:     delivery.Message.PairKey,
		SenderID:    delivery.Message.SenderID,
		RecipientID: delivery.RecipientID,
		Content:     delivery.Message.Content,
		MessageType: delivery.Message.MessageType,
		Timestamp:   services.FormatChatTimestamp(delivery.Message.CreatedAt),
	}
}

// trySend queues a payload for the write loop. Reports false when the client
// is closed or its buffer is full; it never blocks and never panics, even
// when a presence callback fires after the hub has dropped the client.
func (c *Client) trySend(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// closeSend closes the send channel exactly once. Only the hub goroutine
// calls this, via dropClient.
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func (c *Client) ReadPump(service sender) {
	defer func() {
		for _, cancel := range c.statusSubs {
			cancel()
		}
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var incoming struct {
			Type        string `json:"type"`
			PairKey     string `json:"pair_key"`
			Content     string `json:"content"`
			MessageType string `json:"message_type"`
			UserID      string `json:"user_id"`
		}
		if err := json.Unmarshal(payload, &incoming); err != nil {
			writeError(c, "invalid message payload")
			continue
		}

		switch incoming.Type {
		case "message":
			c.handleSend(service, incoming.PairKey, incoming.Content, incoming.MessageType)
		case "subscribe_status":
			c.handleSubscribe(incoming.UserID)
		case "unsubscribe_status":
			c.handleUnsubscribe(incoming.UserID)
		case "go_offline":
			// Deliberate teardown beats waiting for the socket to drop.
			if err := c.hub.tracker.SetOffline(c.userID); err != nil {
				log.WithError(err).WithField("user_id", c.userID).
					Warn("failed to publish explicit offline status")
			}
		default:
			writeError(c, "unsupported message type")
		}
	}
}

func (c *Client) handleSend(service sender, pairKey, content, messageType string) {
	if pairKey == "" {
		writeError(c, "invalid conversation key")
		return
	}

	delivery, err := service.SendMessage(
		context.Background(),
		c.userID,
		pairKey,
		content,
		messageType,
	)
	if err != nil {
		writeError(c, "failed to send message")
		return
	}

	c.hub.broadcast <- deliveryEvent(delivery)
}

func (c *Client) handleSubscribe(userID string) {
	if userID == "" {
		writeError(c, "invalid user id")
		return
	}
	if _, exists := c.statusSubs[userID]; exists {
		return
	}

	target := userID
	cancel, err := c.hub.tracker.Subscribe(target, func(status presence.Status) {
		c.pushStatus(target, status)
	})
	if err != nil {
		writeError(c, "failed to subscribe to status")
		return
	}
	c.statusSubs[target] = cancel
}

func (c *Client) handleUnsubscribe(userID string) {
	if cancel, exists := c.statusSubs[userID]; exists {
		cancel()
		delete(c.statusSubs, userID)
	}
}

func (c *Client) pushStatus(userID string, status presence.Status) {
	online := status.Online
	payload, err := json.Marshal(Event{
		Type:     "presence",
		UserID:   userID,
		Online:   &online,
		LastSeen: services.FormatChatTimestamp(status.LastSeen),
	})
	if err != nil {
		return
	}
	c.trySend(payload)
}

func (c *Client) WritePump() {
	defer func() {
		_ = c.conn.Close()
	}()

	for payload := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}

func writeError(client *Client, message string) {
	payload, err := json.Marshal(Event{
		Type:      "error",
		Content:   message,
		Timestamp: services.FormatChatTimestamp(time.Now().UTC()),
	})
	if err != nil {
		return
	}
	if !client.trySend(payload) {
		client.hub.Unregister(client)
	}
}
