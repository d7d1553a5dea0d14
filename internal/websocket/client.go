package websocket

import (
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Client is a middleman between the websocket connection and the hub
type Client struct {
	// The websocket connection
	conn *websocket.Conn

	// Buffered channel of outbound messages
	Send chan []byte

	// Subscription
	WorkflowID int64
	ClientID   string

	// Hub reference
	Hub *Hub

	// Connection metadata
	ConnectedAt time.Time
	LastPing    time.Time
}

// NewClient creates a client without a connection, used by tests and by ServeWS
func NewClient(hub *Hub, workflowID int64, clientID string) *Client {
	now := time.Now()
	return &Client{
		Send:        make(chan []byte, sendBufferSize),
		WorkflowID:  workflowID,
		ClientID:    clientID,
		Hub:         hub,
		ConnectedAt: now,
		LastPing:    now,
	}
}

// ServeWS upgrades the request and subscribes the peer to the workflow's progress
func (h *Hub) ServeWS(c *gin.Context, workflowID int64, clientID string) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error().
			Err(err).
			Int64("workflow_id", workflowID).
			Msg("Failed to upgrade WebSocket connection")
		return
	}

	client := NewClient(h, workflowID, clientID)
	client.conn = conn

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines
	go client.writePump()
	go client.readPump()
}

// readPump pumps messages from the websocket connection to the hub
//
// The application runs readPump in a per-connection goroutine. The application
// ensures that there is at most one reader on a connection by executing all
// reads from this goroutine.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.Hub.unregister <- c:
		case <-c.Hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.LastPing = time.Now()
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Error().
					Err(err).
					Int64("workflow_id", c.WorkflowID).
					Msg("WebSocket connection closed unexpectedly")
			}
			break
		}

		c.handleMessage(message)
	}
}

// writePump pumps messages from the hub to the websocket connection
//
// A goroutine running writePump is started for each connection. The
// application ensures that there is at most one writer to a connection by
// executing all writes from this goroutine.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// one JSON document per frame
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage processes incoming messages from the client
func (c *Client) handleMessage(data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		c.Hub.logger.Debug().
			Err(err).
			Int64("workflow_id", c.WorkflowID).
			Msg("Failed to unmarshal client message")
		return
	}

	switch msg.Type {
	case "ping":
		c.SendMessage(Message{
			Type:      "pong",
			Timestamp: time.Now(),
		})

	default:
		c.Hub.logger.Debug().
			Int64("workflow_id", c.WorkflowID).
			Str("message_type", msg.Type).
			Msg("Unknown message type received from client")
	}
}

// SendMessage queues a message for this client; it is dropped when the buffer is full
func (c *Client) SendMessage(message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		c.Hub.logger.Error().
			Err(err).
			Int64("workflow_id", c.WorkflowID).
			Msg("Failed to marshal message for client")
		return
	}

	defer func() {
		// canal já fechado pelo hub
		_ = recover()
	}()

	select {
	case c.Send <- data:
	default:
		c.Hub.logger.Warn().
			Int64("workflow_id", c.WorkflowID).
			Msg("Client send channel is full, dropping message")
	}
}

// GetConnectionInfo returns information about this client connection
func (c *Client) GetConnectionInfo() map[string]interface{} {
	return map[string]interface{}{
		"workflow_id":  c.WorkflowID,
		"client_id":    c.ClientID,
		"connected_at": c.ConnectedAt,
		"last_ping":    c.LastPing,
	}
}
