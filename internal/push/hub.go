// Package push implements the owner-keyed event hub that fans job state
// changes out to connected clients.
package push

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Client is a single connected receiver. Send must be safe to call from the
// hub's goroutine and should fail fast once the connection is gone.
type Client interface {
	Send(data []byte) error
	Close() error
}

// preamble is written to every client on registration so consumers can
// confirm the stream is live before the first job event arrives.
var preamble = []byte(`{"type":"connected"}`)

// HubOptions configure the behaviour of the hub.
type HubOptions struct {
	Logger *slog.Logger
}

// Hub tracks connected clients per owner and broadcasts messages to all of
// an owner's clients. Owners with no clients hold no registry entry.
type Hub struct {
	logger *slog.Logger

	mu      sync.Mutex
	clients map[string]map[Client]struct{}
}

// NewHub constructs an empty hub.
func NewHub(opts HubOptions) *Hub {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Hub{
		logger:  logger,
		clients: make(map[string]map[Client]struct{}),
	}
}

// AddClient registers a client under the owner and writes the connection
// preamble. A client that fails the preamble is not registered.
func (h *Hub) AddClient(ownerID string, client Client) error {
	if err := client.Send(preamble); err != nil {
		_ = client.Close()
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[ownerID] == nil {
		h.clients[ownerID] = make(map[Client]struct{})
	}
	h.clients[ownerID][client] = struct{}{}
	return nil
}

// RemoveClient unregisters and closes a single client. Unknown clients are a
// no-op.
func (h *Hub) RemoveClient(ownerID string, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := h.clients[ownerID]
	if clients == nil {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}

	delete(clients, client)
	if len(clients) == 0 {
		delete(h.clients, ownerID)
	}
	_ = client.Close()
}

// RemoveAllClients closes and unregisters every client of the owner.
func (h *Hub) RemoveAllClients(ownerID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients[ownerID] {
		_ = client.Close()
	}
	delete(h.clients, ownerID)
}

// CloseAll closes and unregisters every client of every owner. Called at
// shutdown so held-open streams terminate instead of waiting out the client.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ownerID, clients := range h.clients {
		for client := range clients {
			_ = client.Close()
		}
		delete(h.clients, ownerID)
	}
}

// Send broadcasts a message to every client of the owner. The message is
// serialized once; clients whose Send fails are pruned inline so dead
// connections do not accumulate. Sending to an owner with no clients is a
// no-op.
func (h *Hub) Send(ownerID string, message any) {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("marshal push message failed", "owner_id", ownerID, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	clients := h.clients[ownerID]
	for client := range clients {
		if sendErr := client.Send(data); sendErr != nil {
			delete(clients, client)
			_ = client.Close()
			h.logger.Debug("pruned dead push client", "owner_id", ownerID, "error", sendErr)
		}
	}
	if len(clients) == 0 {
		delete(h.clients, ownerID)
	}
}

// ClientCount returns the number of connected clients for the owner.
func (h *Hub) ClientCount(ownerID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients[ownerID])
}
