package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/cleberrangel/workscan-api/internal/logger"
	"github.com/cleberrangel/workscan-api/internal/metrics"
	"github.com/cleberrangel/workscan-api/internal/model"
)

// Hub maintains the subscribers of each workflow and pushes analysis progress to them
type Hub struct {
	// Subscribed clients by workflow ID
	clients map[int64]map[*Client]bool

	// Register requests from the clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Closed when Run returns
	done chan struct{}

	// Mutex for thread-safe operations
	mutex sync.RWMutex

	upgrader websocket.Upgrader
	metrics  *metrics.Metrics
	logger   *zerolog.Logger
}

// ProgressUpdate is the progress message delivered to subscribers
type ProgressUpdate struct {
	model.ProgressEvent
	Progress  float64   `json:"progress"` // 0-100 percentage
	Timestamp time.Time `json:"timestamp"`
}

// Message represents a generic WebSocket message
type Message struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512

	// Outbound buffer per client
	sendBufferSize = 256
)

// NewHub creates a new WebSocket hub. An empty allowedOrigins list accepts any origin.
func NewHub(m *metrics.Metrics, allowedOrigins []string) *Hub {
	if m == nil {
		m = metrics.New()
	}
	h := &Hub{
		clients:    make(map[int64]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		metrics:    m,
		logger:     logger.Global(),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		// clientes fora do navegador não enviam Origin
		return origin == "" || len(set) == 0 || set[origin]
	}
}

// Run starts the hub's main loop until ctx is cancelled
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.closeAll()
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)
		}
	}
}

// registerClient registers a new client
func (h *Hub) registerClient(client *Client) {
	h.mutex.Lock()
	if h.clients[client.WorkflowID] == nil {
		h.clients[client.WorkflowID] = make(map[*Client]bool)
	}
	h.clients[client.WorkflowID][client] = true
	subscribers := len(h.clients[client.WorkflowID])
	h.mutex.Unlock()

	h.metrics.IncrementWSConnection()

	h.logger.Info().
		Int64("workflow_id", client.WorkflowID).
		Str("client_id", client.ClientID).
		Int("workflow_subscribers", subscribers).
		Msg("WebSocket client registered")

	client.SendMessage(Message{
		Type:      "connection",
		Data:      map[string]interface{}{"status": "connected", "workflow_id": client.WorkflowID},
		Timestamp: time.Now(),
	})
}

// unregisterClient unregisters a client
func (h *Hub) unregisterClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.removeLocked(client) {
		h.logger.Info().
			Int64("workflow_id", client.WorkflowID).
			Str("client_id", client.ClientID).
			Int("remaining_subscribers", len(h.clients[client.WorkflowID])).
			Msg("WebSocket client unregistered")
	}
}

// removeLocked closes the client's channel once; caller holds the write lock
func (h *Hub) removeLocked(client *Client) bool {
	clients, ok := h.clients[client.WorkflowID]
	if !ok || !clients[client] {
		return false
	}
	delete(clients, client)
	close(client.Send)
	h.metrics.DecrementWSConnection()
	if len(clients) == 0 {
		delete(h.clients, client.WorkflowID)
	}
	return true
}

func (h *Hub) closeAll() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for _, clients := range h.clients {
		for client := range clients {
			h.removeLocked(client)
		}
	}
}

// SendToWorkflow sends a message to every subscriber of a workflow.
// Subscribers whose buffer is full are disconnected.
func (h *Hub) SendToWorkflow(workflowID int64, message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error().
			Err(err).
			Int64("workflow_id", workflowID).
			Msg("Failed to marshal message for workflow")
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()

	clients, exists := h.clients[workflowID]
	if !exists {
		return
	}

	for client := range clients {
		select {
		case client.Send <- data:
			h.metrics.IncrementWSMessageOut()
		default:
			h.logger.Warn().
				Int64("workflow_id", workflowID).
				Str("client_id", client.ClientID).
				Msg("Subscriber too slow, closing connection")
			h.removeLocked(client)
		}
	}
}

// SendProgress sends an analysis progress event to the workflow's subscribers
func (h *Hub) SendProgress(workflowID int64, event model.ProgressEvent) {
	update := ProgressUpdate{
		ProgressEvent: event,
		Timestamp:     time.Now(),
	}
	if event.Total > 0 {
		update.Progress = float64(event.Completed) / float64(event.Total) * 100
	}
	h.SendToWorkflow(workflowID, update)
}

// GetSubscribedWorkflows returns the workflow IDs with at least one subscriber
func (h *Hub) GetSubscribedWorkflows() []int64 {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	ids := make([]int64, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	return ids
}

// GetConnectionCount returns the total number of active connections
func (h *Hub) GetConnectionCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	count := 0
	for _, clients := range h.clients {
		count += len(clients)
	}
	return count
}

// GetWorkflowConnectionCount returns the number of subscribers of a workflow
func (h *Hub) GetWorkflowConnectionCount(workflowID int64) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	return len(h.clients[workflowID])
}

// RegisterClient is a public method to register a client (for testing)
func (h *Hub) RegisterClient(client *Client) {
	h.registerClient(client)
}

// UnregisterClient is a public method to unregister a client (for testing)
func (h *Hub) UnregisterClient(client *Client) {
	h.unregisterClient(client)
}
