package ws

import (
	"encoding/json"
	"log"
)

// Event is a refresh hint pushed to connected clients. It is never the
// source of truth: clients re-query the API when one arrives.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type userMessage struct {
	userID  string
	payload []byte
}

// Hub fans events out to connected websocket clients. Broadcast messages go
// to every client; user-addressed messages only reach sockets that
// authenticated as that user.
type Hub struct {
	clients map[*Client]bool
	byUser  map[string]map[*Client]bool

	Broadcast  chan []byte
	direct     chan userMessage
	register   chan *Client
	unregister chan *Client
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		byUser:     make(map[string]map[*Client]bool),
		Broadcast:  make(chan []byte, 64),
		direct:     make(chan userMessage, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run owns all hub state; call it once in its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			if client.userID != "" {
				if h.byUser[client.userID] == nil {
					h.byUser[client.userID] = make(map[*Client]bool)
				}
				h.byUser[client.userID][client] = true
			}

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
			}

		case message := <-h.Broadcast:
			for client := range h.clients {
				h.deliver(client, message)
			}

		case msg := <-h.direct:
			for client := range h.byUser[msg.userID] {
				h.deliver(client, msg.payload)
			}
		}
	}
}

func (h *Hub) deliver(client *Client, message []byte) {
	select {
	case client.send <- message:
	default:
		// Slow consumer; drop the connection, it will reconnect and
		// re-fetch.
		h.drop(client)
	}
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	if client.userID != "" {
		if set := h.byUser[client.userID]; set != nil {
			delete(set, client)
			if len(set) == 0 {
				delete(h.byUser, client.userID)
			}
		}
	}
	close(client.send)
}

// BroadcastEvent sends an event to every connected client.
func (h *Hub) BroadcastEvent(event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("Error marshalling ws event: %v", err)
		return
	}
	h.Broadcast <- payload
}

// SendToUser sends an event only to the given user's connections.
func (h *Hub) SendToUser(userID string, event Event) {
	if userID == "" {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("Error marshalling ws event: %v", err)
		return
	}
	h.direct <- userMessage{userID: userID, payload: payload}
}
