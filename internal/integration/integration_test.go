// Package integration provides end-to-end tests for the WorkScan API against a
// real PostgreSQL database. Tests are skipped when no database is reachable.
package integration

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cleberrangel/workscan-api/internal/cache"
	"github.com/cleberrangel/workscan-api/internal/config"
	"github.com/cleberrangel/workscan-api/internal/database"
	"github.com/cleberrangel/workscan-api/internal/handler"
	"github.com/cleberrangel/workscan-api/internal/metrics"
	"github.com/cleberrangel/workscan-api/internal/middleware"
	"github.com/cleberrangel/workscan-api/internal/migration"
	"github.com/cleberrangel/workscan-api/internal/model"
	"github.com/cleberrangel/workscan-api/internal/ratelimit"
	"github.com/cleberrangel/workscan-api/internal/repository"
	"github.com/cleberrangel/workscan-api/internal/service"
	"github.com/cleberrangel/workscan-api/internal/websocket"
)

const adminToken = "integration-admin-token"

// TestContext holds all dependencies for integration tests
type TestContext struct {
	DB        *sql.DB
	Router    *gin.Engine
	WSHub     *websocket.Hub
	Workflows *repository.WorkflowRepository
	Analyses  *repository.AnalysisRepository
}

// setupTestContext creates a fresh database, runs the migrations and wires
// the full API with a quota of quota analyses per hour
func setupTestContext(t *testing.T, quota int) *TestContext {
	t.Helper()
	ctx := context.Background()

	dbConfig := config.DatabaseConfig{
		Host:     getEnvOrDefault("TEST_DB_HOST", "127.0.0.1"),
		Port:     getEnvOrDefault("TEST_DB_PORT", "5432"),
		User:     getEnvOrDefault("TEST_DB_USER", "postgres"),
		Password: getEnvOrDefault("TEST_DB_PASSWORD", "postgres"),
		DBName:   fmt.Sprintf("test_workscan_%d", time.Now().UnixNano()),
		SSLMode:  "disable",
	}

	adminConfig := dbConfig
	adminConfig.DBName = "postgres"

	adminDB, err := database.Connect(ctx, database.Config{DSN: adminConfig.DSN()})
	if err != nil {
		t.Skipf("Skipping test: could not connect to PostgreSQL: %v", err)
	}

	_, err = adminDB.Exec(fmt.Sprintf("CREATE DATABASE %s", dbConfig.DBName))
	adminDB.Close()
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	testDB, err := database.Connect(ctx, database.Config{DSN: dbConfig.DSN()})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := migration.NewMigrator(testDB).Run(ctx); err != nil {
		testDB.Close()
		t.Fatalf("Failed to run migrations: %v", err)
	}

	m := metrics.New()
	workflowRepo := repository.NewWorkflowRepository(testDB)
	analysisRepo := repository.NewAnalysisRepository(testDB)
	analysisCache := cache.NewCache[*model.Analysis](time.Minute)

	hubCtx, cancelHub := context.WithCancel(ctx)
	wsHub := websocket.NewHub(m, nil)
	go wsHub.Run(hubCtx)

	window := ratelimit.NewSlidingWindow(quota, time.Hour, ratelimit.SystemClock())
	pipeline := service.NewPipeline(service.PipelineConfig{
		Governor: ratelimit.NewGovernor(window, ratelimit.BypassVerifier{}),
		Workers:  3,
		Notifier: wsHub,
		Metrics:  m,
	})

	workflowService := service.NewWorkflowService(workflowRepo, analysisCache, m)
	analysisService := service.NewAnalysisService(workflowRepo, analysisRepo, pipeline, analysisCache, 50)

	gin.SetMode(gin.TestMode)
	router := handler.NewRouter(handler.RouterConfig{
		Workflows: handler.NewWorkflowHandler(workflowService),
		Analyses:  handler.NewAnalysisHandler(analysisService),
		Reports:   handler.NewReportHandler(service.NewReportService(workflowRepo, analysisService, m)),
		Health:    handler.NewHealthHandler(testDB, wsHub, m, false, "integration"),
		WebSocket: handler.NewWebSocketHandler(wsHub, workflowService),
		Metrics:   m,
		Auth:      middleware.AuthConfig{TokenAPI: adminToken},
	})

	t.Cleanup(func() {
		cancelHub()
		analysisCache.Stop()
		testDB.Close()
		adminDB, _ := database.Connect(context.Background(), database.Config{DSN: adminConfig.DSN()})
		if adminDB != nil {
			adminDB.Exec(fmt.Sprintf("DROP DATABASE IF EXISTS %s", dbConfig.DBName))
			adminDB.Close()
		}
	})

	return &TestContext{
		DB:        testDB,
		Router:    router,
		WSHub:     wsHub,
		Workflows: workflowRepo,
		Analyses:  analysisRepo,
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func (tc *TestContext) do(method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "192.0.2.10:40000"
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	tc.Router.ServeHTTP(w, req)
	return w
}

func (tc *TestContext) createWorkflow(t *testing.T, name string, tasks int) *model.Workflow {
	t.Helper()

	payload := model.WorkflowCreate{Name: name, Description: "integration"}
	for i := 0; i < tasks; i++ {
		minutes := 30 * (i + 1)
		payload.Tasks = append(payload.Tasks, model.TaskCreate{
			Name:        fmt.Sprintf("Task %02d", i+1),
			Frequency:   []string{"daily", "weekly", "monthly"}[i%3],
			TimePerTask: &minutes,
			Category:    []string{"data", "reporting", "communication"}[i%3],
			Complexity:  []string{"low", "medium", "high"}[i%3],
		})
	}

	w := tc.do(http.MethodPost, "/api/workflows", payload, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201 creating workflow, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Data model.Workflow `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode workflow: %v", err)
	}
	return &resp.Data
}

// TestCompleteAnalysisWorkflow covers create, analyze, fetch, report and delete
func TestCompleteAnalysisWorkflow(t *testing.T) {
	tc := setupTestContext(t, 5)
	workflow := tc.createWorkflow(t, "Financeiro", 6)

	if len(workflow.Tasks) != 6 {
		t.Fatalf("Expected 6 tasks, got %d", len(workflow.Tasks))
	}

	t.Run("Analyze", func(t *testing.T) {
		w := tc.do(http.MethodPost, "/api/analyze", map[string]interface{}{
			"workflow_id": workflow.ID,
			"hourly_rate": 80,
		}, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}
	})

	t.Run("StoredAnalysisKeepsInputOrder", func(t *testing.T) {
		w := tc.do(http.MethodGet, fmt.Sprintf("/api/analyses/%d", workflow.ID), nil, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}

		var resp struct {
			Data struct {
				HourlyRate    float64            `json:"hourly_rate"`
				AnnualSavings float64            `json:"annual_savings"`
				HoursSaved    float64            `json:"hours_saved"`
				Results       []model.ScoredTask `json:"results"`
			} `json:"data"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("Failed to decode analysis: %v", err)
		}

		if resp.Data.HourlyRate != 80 {
			t.Errorf("Expected hourly rate 80, got %f", resp.Data.HourlyRate)
		}
		if len(resp.Data.Results) != 6 {
			t.Fatalf("Expected 6 results, got %d", len(resp.Data.Results))
		}
		for i, r := range resp.Data.Results {
			if r.Task.Name != workflow.Tasks[i].Name {
				t.Errorf("Result %d: expected %s, got %s", i, workflow.Tasks[i].Name, r.Task.Name)
			}
		}
		if resp.Data.AnnualSavings <= 0 || resp.Data.HoursSaved <= 0 {
			t.Errorf("Expected positive savings, got %+v", resp.Data)
		}
	})

	t.Run("ReportDownload", func(t *testing.T) {
		w := tc.do(http.MethodGet, fmt.Sprintf("/api/reports/%d/xlsx", workflow.ID), nil, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}
		if w.Header().Get("X-Total-Tasks") != "6" {
			t.Errorf("Expected X-Total-Tasks 6, got %s", w.Header().Get("X-Total-Tasks"))
		}
		if w.Body.Len() == 0 {
			t.Error("Expected non-empty workbook")
		}
	})

	t.Run("DeleteCascades", func(t *testing.T) {
		w := tc.do(http.MethodDelete, fmt.Sprintf("/api/workflows/%d", workflow.ID), nil,
			map[string]string{"Authorization": "Bearer " + adminToken})
		if w.Code != http.StatusNoContent {
			t.Fatalf("Expected 204, got %d: %s", w.Code, w.Body.String())
		}

		w = tc.do(http.MethodGet, fmt.Sprintf("/api/analyses/%d", workflow.ID), nil, nil)
		if w.Code != http.StatusNotFound {
			t.Errorf("Expected 404 after delete, got %d", w.Code)
		}

		var count int
		if err := tc.DB.QueryRow("SELECT COUNT(*) FROM analysis_results").Scan(&count); err != nil {
			t.Fatalf("Failed to count results: %v", err)
		}
		if count != 0 {
			t.Errorf("Expected results to be deleted with the workflow, found %d", count)
		}
	})
}

// TestReanalysisReplacesPreviousResults keeps a single analysis per workflow
func TestReanalysisReplacesPreviousResults(t *testing.T) {
	tc := setupTestContext(t, 5)
	workflow := tc.createWorkflow(t, "Atendimento", 3)
	admin := map[string]string{"Authorization": "Bearer " + adminToken}

	for _, rate := range []float64{40, 60} {
		w := tc.do(http.MethodPost, fmt.Sprintf("/api/workflows/%d/analyze", workflow.ID),
			map[string]float64{"hourly_rate": rate}, admin)
		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}
	}

	var analyses, results int
	tc.DB.QueryRow("SELECT COUNT(*) FROM analyses WHERE workflow_id = $1", workflow.ID).Scan(&analyses)
	tc.DB.QueryRow("SELECT COUNT(*) FROM analysis_results").Scan(&results)
	if analyses != 1 {
		t.Errorf("Expected 1 analysis, got %d", analyses)
	}
	if results != 3 {
		t.Errorf("Expected 3 results, got %d", results)
	}

	stored, err := tc.Analyses.GetByWorkflow(context.Background(), workflow.ID)
	if err != nil {
		t.Fatalf("Failed to load analysis: %v", err)
	}
	if stored.HourlyRate != 60 {
		t.Errorf("Expected latest hourly rate 60, got %f", stored.HourlyRate)
	}
}

// TestRateLimitAcrossRequests checks that the quota is enforced per client
// and that concurrent requests never exceed it
func TestRateLimitAcrossRequests(t *testing.T) {
	const quota = 3
	tc := setupTestContext(t, quota)
	workflow := tc.createWorkflow(t, "Compras", 2)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		statuses = make(map[int]int)
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w := tc.do(http.MethodPost, "/api/analyze", map[string]interface{}{"workflow_id": workflow.ID}, nil)
			mu.Lock()
			statuses[w.Code]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	if statuses[http.StatusOK] != quota {
		t.Errorf("Expected %d admitted analyses, got %v", quota, statuses)
	}
	if statuses[http.StatusTooManyRequests] != 8-quota {
		t.Errorf("Expected %d rejections, got %v", 8-quota, statuses)
	}

	// Another client has its own quota
	w := tc.do(http.MethodPost, "/api/analyze", map[string]interface{}{"workflow_id": workflow.ID},
		map[string]string{"X-Forwarded-For": "198.51.100.77"})
	if w.Code != http.StatusOK {
		t.Errorf("Expected other client to be admitted, got %d", w.Code)
	}
}

// TestProgressBroadcast checks that analysis progress reaches workflow subscribers
func TestProgressBroadcast(t *testing.T) {
	tc := setupTestContext(t, 5)
	workflow := tc.createWorkflow(t, "Logística", 4)
	other := tc.createWorkflow(t, "Outro", 1)

	client := websocket.NewClient(tc.WSHub, workflow.ID, "subscriber")
	tc.WSHub.RegisterClient(client)
	defer tc.WSHub.UnregisterClient(client)

	bystander := websocket.NewClient(tc.WSHub, other.ID, "bystander")
	tc.WSHub.RegisterClient(bystander)
	defer tc.WSHub.UnregisterClient(bystander)

	// Drain welcome messages
	for _, c := range []*websocket.Client{client, bystander} {
		select {
		case <-c.Send:
		case <-time.After(time.Second):
			t.Fatal("Timeout waiting for welcome message")
		}
	}

	w := tc.do(http.MethodPost, "/api/analyze", map[string]interface{}{"workflow_id": workflow.ID}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var events []websocket.ProgressUpdate
	for len(events) < 6 {
		select {
		case msg := <-client.Send:
			var update websocket.ProgressUpdate
			if err := json.Unmarshal(msg, &update); err != nil {
				t.Fatalf("Failed to unmarshal progress: %v", err)
			}
			events = append(events, update)
		case <-time.After(2 * time.Second):
			t.Fatalf("Timeout waiting for progress, got %d events", len(events))
		}
	}

	if events[0].Type != service.EventAnalysisStarted {
		t.Errorf("Expected first event %s, got %s", service.EventAnalysisStarted, events[0].Type)
	}
	last := events[len(events)-1]
	if last.Type != service.EventAnalysisCompleted || last.Progress != 100 {
		t.Errorf("Expected completed event at 100%%, got %+v", last)
	}

	select {
	case msg := <-bystander.Send:
		t.Errorf("Subscriber of another workflow received %s", msg)
	case <-time.After(100 * time.Millisecond):
	}
}

// TestHealthWithDatabase checks readiness against the live database
func TestHealthWithDatabase(t *testing.T) {
	tc := setupTestContext(t, 5)

	w := tc.do(http.MethodGet, "/health/ready", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var health metrics.HealthCheck
	if err := json.Unmarshal(w.Body.Bytes(), &health); err != nil {
		t.Fatalf("Failed to decode health: %v", err)
	}
	if health.Components["database"].Status != "healthy" {
		t.Errorf("Expected healthy database, got %+v", health.Components["database"])
	}
}
