package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	gws "github.com/gorilla/websocket"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleberrangel/workscan-api/internal/metrics"
	"github.com/cleberrangel/workscan-api/internal/model"
)

// drainWelcomeMessage drains the welcome message sent during client registration
func drainWelcomeMessage(client *Client) {
	select {
	case <-client.Send:
	case <-time.After(100 * time.Millisecond):
	}
}

// Property: every progress event reaches the workflow's subscribers with the
// same data and a progress percentage of completed/total
func TestWebSocketProgressConsistency(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("progress events are delivered with correct data", prop.ForAll(
		func(workflowID int64, total int, completed int) bool {
			hub := NewHub(metrics.New(), nil)
			client := NewClient(hub, workflowID, "10.0.0.1")
			hub.registerClient(client)
			drainWelcomeMessage(client)

			hub.SendProgress(workflowID, model.ProgressEvent{
				Type:       "task_scored",
				WorkflowID: workflowID,
				TaskIndex:  completed % total,
				Completed:  completed,
				Total:      total,
				Score:      42,
			})

			select {
			case msg := <-client.Send:
				var received ProgressUpdate
				if err := json.Unmarshal(msg, &received); err != nil {
					return false
				}
				return received.Type == "task_scored" &&
					received.WorkflowID == workflowID &&
					received.Completed == completed &&
					received.Total == total &&
					received.Score == 42 &&
					received.Progress == float64(completed)/float64(total)*100
			case <-time.After(100 * time.Millisecond):
				return false
			}
		},
		gen.Int64Range(1, 10000),
		gen.IntRange(1, 500),
		gen.IntRange(0, 500),
	))

	// Property: subscribers of other workflows never receive the event
	properties.Property("events are isolated per workflow", prop.ForAll(
		func(a, b int64) bool {
			if a == b {
				b = a + 1
			}
			hub := NewHub(metrics.New(), nil)
			other := NewClient(hub, b, "other")
			hub.registerClient(other)
			drainWelcomeMessage(other)

			hub.SendProgress(a, model.ProgressEvent{Type: "analysis_started", WorkflowID: a, Total: 3})

			select {
			case <-other.Send:
				return false
			case <-time.After(5 * time.Millisecond):
				return true
			}
		},
		gen.Int64Range(1, 1000),
		gen.Int64Range(1, 1000),
	))

	properties.TestingRun(t)
}

func TestWebSocketConnectionManagement(t *testing.T) {
	m := metrics.New()
	hub := NewHub(m, nil)

	c1 := NewClient(hub, 1, "a")
	c2 := NewClient(hub, 1, "b")
	c3 := NewClient(hub, 2, "c")
	for _, c := range []*Client{c1, c2, c3} {
		hub.RegisterClient(c)
		drainWelcomeMessage(c)
	}

	assert.Equal(t, 3, hub.GetConnectionCount())
	assert.Equal(t, 2, hub.GetWorkflowConnectionCount(1))
	assert.ElementsMatch(t, []int64{1, 2}, hub.GetSubscribedWorkflows())
	assert.Equal(t, int64(3), m.Snapshot().WebSocket.Connections)

	hub.UnregisterClient(c1)
	hub.UnregisterClient(c1) // segunda vez não fecha o canal de novo

	_, open := <-c1.Send
	assert.False(t, open)
	assert.Equal(t, 1, hub.GetWorkflowConnectionCount(1))

	hub.UnregisterClient(c2)
	assert.Zero(t, hub.GetWorkflowConnectionCount(1))
	assert.ElementsMatch(t, []int64{2}, hub.GetSubscribedWorkflows())
	assert.Equal(t, int64(1), m.Snapshot().WebSocket.Connections)
}

func TestSlowSubscriberIsDisconnected(t *testing.T) {
	hub := NewHub(metrics.New(), nil)
	slow := &Client{Send: make(chan []byte, 1), WorkflowID: 9, Hub: hub}
	hub.RegisterClient(slow) // welcome ocupa o buffer

	hub.SendProgress(9, model.ProgressEvent{Type: "task_scored", WorkflowID: 9, Total: 1, Completed: 1})

	assert.Zero(t, hub.GetWorkflowConnectionCount(9))
}

func TestConcurrentClientRegistration(t *testing.T) {
	hub := NewHub(metrics.New(), nil)

	var wg sync.WaitGroup
	clients := make([]*Client, 50)
	for i := range clients {
		clients[i] = NewClient(hub, int64(i%5), "c")
		wg.Add(1)
		go func(c *Client) {
			defer wg.Done()
			hub.RegisterClient(c)
			hub.SendProgress(c.WorkflowID, model.ProgressEvent{Type: "task_scored", WorkflowID: c.WorkflowID, Total: 1})
		}(clients[i])
	}
	wg.Wait()
	assert.Equal(t, 50, hub.GetConnectionCount())

	for _, c := range clients {
		wg.Add(1)
		go func(c *Client) {
			defer wg.Done()
			hub.UnregisterClient(c)
		}(c)
	}
	wg.Wait()
	assert.Zero(t, hub.GetConnectionCount())
}

func TestServeWSDeliversProgress(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := NewHub(metrics.New(), []string{"http://localhost:3000"})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	router := gin.New()
	router.GET("/ws/workflows/:id", func(c *gin.Context) {
		hub.ServeWS(c, 5, c.ClientIP())
	})
	server := httptest.NewServer(router)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/workflows/5"

	// origem fora da lista é recusada
	_, resp, err := gws.DefaultDialer.Dial(url, http.Header{"Origin": {"http://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := gws.DefaultDialer.Dial(url, http.Header{"Origin": {"http://localhost:3000"}})
	require.NoError(t, err)
	defer conn.Close()

	var welcome Message
	require.NoError(t, conn.ReadJSON(&welcome))
	assert.Equal(t, "connection", welcome.Type)

	hub.SendProgress(5, model.ProgressEvent{Type: "analysis_completed", WorkflowID: 5, Completed: 2, Total: 2, Score: 61.5})

	var update ProgressUpdate
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&update))
	assert.Equal(t, "analysis_completed", update.Type)
	assert.Equal(t, 100.0, update.Progress)
	assert.Equal(t, 61.5, update.Score)
}
