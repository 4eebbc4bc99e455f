package websocket

import (
	"log"
	"sync"

	"github.com/google/uuid"
)

type userMessage struct {
	userID  uuid.UUID
	payload []byte
}

// Hub tracks the active feed connections and unicasts notification
// payloads to every connection a user has open. One hub per process;
// cross-process fan-out happens upstream of the hub.
type Hub struct {
	clients map[*Client]bool

	unicast    chan userMessage
	register   chan *Client
	unregister chan *Client

	stop     chan struct{}
	stopOnce sync.Once
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		unicast:    make(chan userMessage),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		stop:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			log.Printf("[Feed Hub] connection opened (user %s)", client.userID)
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				log.Printf("[Feed Hub] connection closed (user %s)", client.userID)
			}
		case msg := <-h.unicast:
			for client := range h.clients {
				if client.userID != msg.userID {
					continue
				}
				select {
				case client.send <- msg.payload:
				default:
					// Slow consumer; drop the connection rather than block the hub.
					close(client.send)
					delete(h.clients, client)
				}
			}
		case <-h.stop:
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			return
		}
	}
}

// SendToUser delivers payload to every open connection for userID.
func (h *Hub) SendToUser(userID uuid.UUID, payload []byte) {
	select {
	case h.unicast <- userMessage{userID: userID, payload: payload}:
	case <-h.stop:
	}
}

func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.stop)
	})
}
