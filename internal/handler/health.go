package handler

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cleberrangel/workscan-api/internal/database"
	"github.com/cleberrangel/workscan-api/internal/metrics"
	"github.com/cleberrangel/workscan-api/internal/websocket"
)

// maxHeapMB limite de heap usado nos health checks
const maxHeapMB = 512

// HealthHandler handles health check and metrics endpoints
type HealthHandler struct {
	db               *sql.DB
	wsHub            *websocket.Hub
	metrics          *metrics.Metrics
	oracleConfigured bool
	version          string
	startTime        time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db *sql.DB, wsHub *websocket.Hub, m *metrics.Metrics, oracleConfigured bool, version string) *HealthHandler {
	if m == nil {
		m = metrics.New()
	}
	return &HealthHandler{
		db:               db,
		wsHub:            wsHub,
		metrics:          m,
		oracleConfigured: oracleConfigured,
		version:          version,
		startTime:        time.Now(),
	}
}

// LivenessCheck returns basic liveness status
// @Summary Liveness check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health/live [get]
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// ReadinessCheck returns readiness status including dependencies
// @Summary Readiness check
// @Tags health
// @Produce json
// @Success 200 {object} metrics.HealthCheck
// @Failure 503 {object} metrics.HealthCheck
// @Router /health/ready [get]
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	h.respond(c, map[string]metrics.HealthStatus{
		"database": h.checkDatabase(),
		"memory":   metrics.CheckMemoryHealth(maxHeapMB),
	})
}

// DetailedHealthCheck returns comprehensive health information
// @Summary Detailed health check
// @Tags health
// @Produce json
// @Success 200 {object} metrics.HealthCheck
// @Failure 503 {object} metrics.HealthCheck
// @Router /health [get]
func (h *HealthHandler) DetailedHealthCheck(c *gin.Context) {
	components := map[string]metrics.HealthStatus{
		"database": h.checkDatabase(),
		"memory":   metrics.CheckMemoryHealth(maxHeapMB),
		"oracle":   metrics.CheckOracleHealth(h.oracleConfigured),
		"scoring":  h.checkScoringHealth(),
	}
	if h.wsHub != nil {
		components["websocket"] = metrics.HealthStatus{Status: "healthy"}
	}
	h.respond(c, components)
}

func (h *HealthHandler) respond(c *gin.Context, components map[string]metrics.HealthStatus) {
	overallStatus := metrics.DetermineOverallStatus(components)

	healthCheck := metrics.HealthCheck{
		Status:     overallStatus,
		Version:    h.version,
		Uptime:     time.Since(h.startTime).String(),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Components: components,
	}

	statusCode := http.StatusOK
	if overallStatus == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, healthCheck)
}

// checkDatabase adds connection pool statistics to the database check
func (h *HealthHandler) checkDatabase() metrics.HealthStatus {
	status := metrics.CheckDatabaseHealth(h.db)
	if h.db != nil {
		status.Details = database.GetPoolStats(h.db)
	}
	return status
}

// checkScoringHealth degrades when most oracle calls are failing
func (h *HealthHandler) checkScoringHealth() metrics.HealthStatus {
	snapshot := h.metrics.Snapshot()

	if snapshot.Scoring.OracleCalls >= 10 {
		failureRate := float64(snapshot.Scoring.OracleFailures) / float64(snapshot.Scoring.OracleCalls) * 100
		if failureRate > 50 {
			return metrics.HealthStatus{
				Status:  "degraded",
				Message: "high oracle failure rate",
			}
		}
	}

	return metrics.HealthStatus{
		Status: "healthy",
	}
}

// GetMetrics returns application metrics
// @Summary Get application metrics
// @Tags metrics
// @Produce json
// @Success 200 {object} metrics.MetricsSnapshot
// @Router /api/metrics [get]
func (h *HealthHandler) GetMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, h.metrics.Snapshot())
}

// GetMetricsSummary returns a summary of key metrics
// @Summary Get metrics summary
// @Tags metrics
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/metrics/summary [get]
func (h *HealthHandler) GetMetricsSummary(c *gin.Context) {
	snapshot := h.metrics.Snapshot()

	requestSuccessRate := float64(0)
	if snapshot.Requests.Total > 0 {
		requestSuccessRate = float64(snapshot.Requests.Successful) / float64(snapshot.Requests.Total) * 100
	}

	oracleSuccessRate := float64(0)
	if snapshot.Scoring.OracleCalls > 0 {
		oracleSuccessRate = float64(snapshot.Scoring.OracleCalls-snapshot.Scoring.OracleFailures) /
			float64(snapshot.Scoring.OracleCalls) * 100
	}

	c.JSON(http.StatusOK, gin.H{
		"uptime_seconds": snapshot.UptimeSeconds,
		"version":        h.version,
		"requests": gin.H{
			"total":        snapshot.Requests.Total,
			"success_rate": requestSuccessRate,
			"avg_latency":  snapshot.Requests.AvgLatencyMs,
		},
		"analyses": gin.H{
			"running":        snapshot.Analyses.Running,
			"completed":      snapshot.Analyses.Completed,
			"rate_limited":   snapshot.Analyses.RateLimited,
			"trust_rejected": snapshot.Analyses.TrustRejected,
		},
		"scoring": gin.H{
			"tasks_scored":        snapshot.Scoring.TasksScored,
			"oracle_success_rate": oracleSuccessRate,
			"fields_defaulted":    snapshot.Scoring.FieldsDefaulted,
		},
		"websocket": gin.H{
			"connections": snapshot.WebSocket.Connections,
		},
		"system": gin.H{
			"goroutines":  snapshot.System.Goroutines,
			"heap_mb":     snapshot.System.HeapAllocMB,
			"heap_use_mb": snapshot.System.HeapInUseMB,
		},
	})
}
