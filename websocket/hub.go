// Package websocket broadcasts case events to subscribed clients.
// Clients subscribe to a single tracking id (the case channel) or,
// with no id, to the full event feed.
package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"animal-rescue-service/models"

	"github.com/apex/log"
)

type envelope struct {
	trackingID string
	data       []byte
}

// Hub manages WebSocket connections and broadcasting.
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Outbound events
	broadcast chan envelope

	// Register requests from clients
	Register chan *Client

	// Unregister requests from clients
	Unregister chan *Client

	mutex sync.RWMutex

	connectedClients int
}

// NewHub creates a new WebSocket hub.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan envelope, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
	}
}

// Run starts the hub's main loop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mutex.Lock()
			h.clients[client] = true
			h.connectedClients = len(h.clients)
			h.mutex.Unlock()
			log.Infof("Client connected for case %q. Total clients: %d",
				client.trackingID, h.connectedClients)

		case client := <-h.Unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.connectedClients = len(h.clients)
			}
			h.mutex.Unlock()
			log.Infof("Client disconnected. Total clients: %d", h.connectedClients)

		case env := <-h.broadcast:
			h.mutex.Lock()
			for client := range h.clients {
				if !client.wants(env.trackingID) {
					continue
				}
				select {
				case client.send <- env.data:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.connectedClients = len(h.clients)
			h.mutex.Unlock()
		}
	}
}

// BroadcastEvent delivers an event to the subscribers of its case.
func (h *Hub) BroadcastEvent(ev models.CaseEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Errorf("Failed to marshal case event: %v", err)
		return
	}
	h.broadcast <- envelope{trackingID: ev.TrackingID, data: data}
}

// BroadcastLocation delivers a best-effort location ping to the
// subscribers of its case. Pings are not persisted.
func (h *Hub) BroadcastLocation(update models.LocationUpdate) {
	h.BroadcastEvent(models.CaseEvent{
		Type:       "location",
		TrackingID: update.TrackingID,
		Coordinates: &models.Coordinates{
			Latitude:  update.Latitude,
			Longitude: update.Longitude,
		},
		Timestamp: time.Now().UTC(),
	})
}

// Publish implements the engine's notification bridge: every committed
// status change becomes a case event on the matching channel.
func (h *Hub) Publish(trackingID string, status models.ReportStatus, coords *models.Coordinates) error {
	h.BroadcastEvent(models.CaseEvent{
		Type:        "status",
		TrackingID:  trackingID,
		Status:      status,
		Coordinates: coords,
		Timestamp:   time.Now().UTC(),
	})
	return nil
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.connectedClients
}
