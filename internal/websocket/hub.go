// Transitsync - Real-time Transit Fleet Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitsync

package websocket

import (
	"context"
	"sort"
	"sync"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/tomtom215/transitsync/internal/logging"
	"github.com/tomtom215/transitsync/internal/metrics"
	"github.com/tomtom215/transitsync/internal/models"
	"github.com/tomtom215/transitsync/internal/registry"
)

// ShutdownReason identifies why the hub stopped.
type ShutdownReason string

const (
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Message types for WebSocket communication
const (
	MessageTypeSnapshot = "snapshot"
	MessageTypeVehicles = "vehicles"
	MessageTypePing     = "ping"
	MessageTypePong     = "pong"
)

// Message represents a WebSocket message
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// VehicleDelta is the payload of a "vehicles" message: the entries that
// changed since the previous message plus the ids that left the registry.
type VehicleDelta struct {
	Count   int                    `json:"count"`
	Updated []models.VehicleUpdate `json:"updated"`
	Removed []string               `json:"removed,omitempty"`
}

// Hub pushes registry changes to connected map clients.
//
// Publish only records the newest registry; the Serve loop diffs it against
// the last registry it broadcast. A burst of changes therefore collapses
// into one delta and never drops state. Every client gets a full snapshot
// on registration, taken inside the loop so it lines up with the deltas
// that follow.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
	log        zerolog.Logger

	pendingMu sync.Mutex
	pending   *registry.Registry
	notify    chan struct{}

	// last is only touched by the Serve goroutine.
	last *registry.Registry

	done     chan struct{}
	doneOnce sync.Once
}

// NewHub creates a Hub whose clients start from an empty registry.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		notify:     make(chan struct{}, 1),
		last:       registry.Empty(),
		log:        logging.WithComponent("websocket-hub"),
		done:       make(chan struct{}),
	}
}

// Publish records r as the newest registry. It never blocks, so it is safe
// to register as a coordinator change listener.
func (h *Hub) Publish(r *registry.Registry) {
	h.pendingMu.Lock()
	h.pending = r
	h.pendingMu.Unlock()

	select {
	case h.notify <- struct{}{}:
	default:
	}
}

// Attach wraps conn in a Client, registers it and starts its pumps.
// It returns false if the hub has already stopped.
func (h *Hub) Attach(conn *websocket.Conn) bool {
	client := NewClient(h, conn)
	select {
	case h.register <- client:
		client.Start()
		return true
	case <-h.done:
		return false
	}
}

// String implements fmt.Stringer for suture.
func (h *Hub) String() string {
	return "websocket-hub"
}

// Serve runs the hub until ctx is cancelled. It implements suture.Service.
//
// DETERMINISM: client lifecycle events are drained before registry changes
// so a client registered in the same instant as a change sees the snapshot
// first.
func (h *Hub) Serve(ctx context.Context) error {
	defer h.doneOnce.Do(func() { close(h.done) })

	for {
		select {
		case client := <-h.register:
			h.addClient(client)
			continue
		case client := <-h.unregister:
			h.removeClient(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()

		case client := <-h.register:
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client)

		case <-h.notify:
			h.broadcastPending()
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	total := len(h.clients)
	h.mu.Unlock()

	// A new client's buffer is empty, so the snapshot always fits.
	client.send <- snapshotMessage(h.last)

	metrics.WebSocketClients.Set(float64(total))
	h.log.Info().Uint64("client_id", client.id).Int("total_clients", total).Msg("websocket client connected")
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	total := len(h.clients)
	h.mu.Unlock()

	metrics.WebSocketClients.Set(float64(total))
	h.log.Info().Uint64("client_id", client.id).Int("total_clients", total).Msg("websocket client disconnected")
}

func (h *Hub) broadcastPending() {
	h.pendingMu.Lock()
	next := h.pending
	h.pending = nil
	h.pendingMu.Unlock()

	if next == nil || next == h.last {
		return
	}

	delta := diff(h.last, next)
	h.last = next
	if len(delta.Updated) == 0 && len(delta.Removed) == 0 {
		return
	}
	h.broadcastToClients(Message{Type: MessageTypeVehicles, Data: delta})
}

// broadcastToClients sends a message to all connected clients in ID order.
// A client whose buffer is full is dropped; it reconnects and resyncs from
// a fresh snapshot.
func (h *Hub) broadcastToClients(message Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := h.sortedClientsLocked()

	var toRemove []*Client
	for _, client := range clients {
		select {
		case client.send <- message:
		default:
			toRemove = append(toRemove, client)
		}
	}

	for _, client := range toRemove {
		close(client.send)
		delete(h.clients, client)
		metrics.WebSocketMessagesDropped.WithLabelValues("slow_client").Inc()
		h.log.Warn().Uint64("client_id", client.id).Msg("dropping slow websocket client")
	}
	if len(toRemove) > 0 {
		metrics.WebSocketClients.Set(float64(len(h.clients)))
	}
}

func (h *Hub) sortedClientsLocked() []*Client {
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})
	return clients
}

func (h *Hub) logGracefulShutdown(ctx context.Context) {
	clientCount := h.GetClientCount()
	h.closeAllClients()

	h.log.Info().
		Str("reason", string(getShutdownReason(ctx))).
		Int("clients_closed", clientCount).
		Msg("websocket hub stopped")
}

func getShutdownReason(ctx context.Context) ShutdownReason {
	if ctx.Err() == context.DeadlineExceeded {
		return ShutdownReasonContextDeadline
	}
	return ShutdownReasonContextCanceled
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.sortedClientsLocked() {
		close(client.send)
		delete(h.clients, client)
	}
	metrics.WebSocketClients.Set(0)
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func snapshotMessage(r *registry.Registry) Message {
	return Message{
		Type: MessageTypeSnapshot,
		Data: models.VehicleList{Count: r.Len(), Vehicles: r.Sorted()},
	}
}

// diff lists vehicles that are new or moved or carry a different timestamp
// in next, and ids present in prev but not next. Both lists are sorted.
func diff(prev, next *registry.Registry) VehicleDelta {
	delta := VehicleDelta{Count: next.Len(), Updated: []models.VehicleUpdate{}}

	for _, u := range next.Sorted() {
		old, ok := prev.Get(u.VehicleID)
		if ok && old.Timestamp == u.Timestamp && models.SamePosition(old.Position, u.Position) {
			continue
		}
		delta.Updated = append(delta.Updated, u)
	}
	for _, id := range prev.IDs() {
		if _, ok := next.Get(id); !ok {
			delta.Removed = append(delta.Removed, id)
		}
	}
	return delta
}

// MarshalMessage converts a message to JSON
func MarshalMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}
