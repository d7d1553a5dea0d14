package metrics

import (
	"database/sql"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// EndpointMetrics tracks metrics for a specific endpoint
type EndpointMetrics struct {
	Requests     int64
	Errors       int64
	TotalLatency int64
}

// Metrics holds all application metrics
type Metrics struct {
	mu sync.RWMutex

	// Request metrics
	TotalRequests      int64
	SuccessfulRequests int64
	FailedRequests     int64

	// Request latency (in milliseconds)
	TotalLatency int64
	RequestCount int64

	// Analysis metrics
	AnalysesStarted   int64
	AnalysesCompleted int64
	AnalysesRunning   int64
	AnalysisLatency   int64
	RateLimited       int64
	TrustRejected     int64

	// Scoring metrics
	TasksScored        int64
	OracleCalls        int64
	OracleFailures     int64
	FieldsDefaulted    int64
	RuleBasedFallbacks int64

	// Workflow metrics
	WorkflowsCreated int64
	WorkflowsDeleted int64

	// WebSocket metrics
	WSConnections int64
	WSMessagesOut int64

	// Report generation metrics
	ReportsGenerated int64
	ReportErrors     int64

	// Endpoint-specific metrics
	EndpointMetrics map[string]*EndpointMetrics

	// Start time for uptime calculation
	StartTime time.Time

	prom *promCollectors
}

// global metrics instance
var globalMetrics *Metrics
var once sync.Once

// Init initializes the global metrics instance and registers the
// Prometheus collectors on the default registry
func Init() {
	once.Do(func() {
		globalMetrics = newMetrics(defaultCollectors())
	})
}

// Get returns the global metrics instance
func Get() *Metrics {
	Init()
	return globalMetrics
}

// New returns an isolated instance without Prometheus collectors (tests, CLI)
func New() *Metrics {
	return newMetrics(nil)
}

func newMetrics(prom *promCollectors) *Metrics {
	return &Metrics{
		StartTime:       time.Now(),
		EndpointMetrics: make(map[string]*EndpointMetrics),
		prom:            prom,
	}
}

// IncrementRequests increments request counters
func (m *Metrics) IncrementRequests(success bool, latencyMs int64) {
	atomic.AddInt64(&m.TotalRequests, 1)
	atomic.AddInt64(&m.TotalLatency, latencyMs)
	atomic.AddInt64(&m.RequestCount, 1)

	if success {
		atomic.AddInt64(&m.SuccessfulRequests, 1)
	} else {
		atomic.AddInt64(&m.FailedRequests, 1)
	}
}

// IncrementAnalysisStarted marks an admitted analysis as running
func (m *Metrics) IncrementAnalysisStarted() {
	atomic.AddInt64(&m.AnalysesStarted, 1)
	atomic.AddInt64(&m.AnalysesRunning, 1)
	m.prom.analysisStarted()
}

// IncrementAnalysisCompleted records a finished analysis
func (m *Metrics) IncrementAnalysisCompleted(duration time.Duration) {
	atomic.AddInt64(&m.AnalysesCompleted, 1)
	atomic.AddInt64(&m.AnalysesRunning, -1)
	atomic.AddInt64(&m.AnalysisLatency, duration.Milliseconds())
	m.prom.analysisCompleted(duration)
}

// IncrementRejected records an analysis refused by the governor
func (m *Metrics) IncrementRejected(reason string) {
	switch reason {
	case "rate_limit":
		atomic.AddInt64(&m.RateLimited, 1)
	default:
		atomic.AddInt64(&m.TrustRejected, 1)
	}
	m.prom.rejected(reason)
}

// IncrementTaskScored records one scored task and the strategy that produced it
func (m *Metrics) IncrementTaskScored(strategy string) {
	atomic.AddInt64(&m.TasksScored, 1)
	if strategy == "rule_based" {
		atomic.AddInt64(&m.RuleBasedFallbacks, 1)
	}
	m.prom.taskScored(strategy)
}

// IncrementOracleCall records an oracle call and its outcome
func (m *Metrics) IncrementOracleCall(success bool, latency time.Duration) {
	atomic.AddInt64(&m.OracleCalls, 1)
	if !success {
		atomic.AddInt64(&m.OracleFailures, 1)
	}
	m.prom.oracleCall(success, latency)
}

// IncrementFieldsDefaulted records oracle fields replaced by defaults
func (m *Metrics) IncrementFieldsDefaulted(n int) {
	if n <= 0 {
		return
	}
	atomic.AddInt64(&m.FieldsDefaulted, int64(n))
	m.prom.addFieldsDefaulted(n)
}

// IncrementWorkflowCreated increments workflow creation counter
func (m *Metrics) IncrementWorkflowCreated() {
	atomic.AddInt64(&m.WorkflowsCreated, 1)
}

// IncrementWorkflowDeleted increments workflow deletion counter
func (m *Metrics) IncrementWorkflowDeleted() {
	atomic.AddInt64(&m.WorkflowsDeleted, 1)
}

// IncrementWSConnection increments WebSocket connection counter
func (m *Metrics) IncrementWSConnection() {
	atomic.AddInt64(&m.WSConnections, 1)
}

// DecrementWSConnection decrements WebSocket connection counter
func (m *Metrics) DecrementWSConnection() {
	atomic.AddInt64(&m.WSConnections, -1)
}

// IncrementWSMessageOut increments WebSocket outgoing message counter
func (m *Metrics) IncrementWSMessageOut() {
	atomic.AddInt64(&m.WSMessagesOut, 1)
}

// IncrementReportGenerated increments report generation counters
func (m *Metrics) IncrementReportGenerated(success bool) {
	if success {
		atomic.AddInt64(&m.ReportsGenerated, 1)
	} else {
		atomic.AddInt64(&m.ReportErrors, 1)
	}
}

// TrackEndpoint tracks metrics for a specific endpoint
func (m *Metrics) TrackEndpoint(path, method string, statusCode int, latencyMs int64) {
	key := method + " " + path

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.EndpointMetrics == nil {
		m.EndpointMetrics = make(map[string]*EndpointMetrics)
	}

	em, exists := m.EndpointMetrics[key]
	if !exists {
		em = &EndpointMetrics{}
		m.EndpointMetrics[key] = em
	}

	atomic.AddInt64(&em.Requests, 1)
	atomic.AddInt64(&em.TotalLatency, latencyMs)
	if statusCode >= 400 {
		atomic.AddInt64(&em.Errors, 1)
	}
	m.prom.request(path, method, statusCode, latencyMs)
}

// GetEndpointMetrics returns a copy of endpoint metrics
func (m *Metrics) GetEndpointMetrics() map[string]EndpointMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]EndpointMetrics)
	for k, v := range m.EndpointMetrics {
		result[k] = EndpointMetrics{
			Requests:     atomic.LoadInt64(&v.Requests),
			Errors:       atomic.LoadInt64(&v.Errors),
			TotalLatency: atomic.LoadInt64(&v.TotalLatency),
		}
	}
	return result
}

// GetAverageLatency returns average request latency in milliseconds
func (m *Metrics) GetAverageLatency() float64 {
	count := atomic.LoadInt64(&m.RequestCount)
	if count == 0 {
		return 0
	}
	total := atomic.LoadInt64(&m.TotalLatency)
	return float64(total) / float64(count)
}

// GetUptime returns the application uptime
func (m *Metrics) GetUptime() time.Duration {
	return time.Since(m.StartTime)
}

// EndpointMetricsSnapshot represents endpoint metrics in a snapshot
type EndpointMetricsSnapshot struct {
	Requests     int64   `json:"requests"`
	Errors       int64   `json:"errors"`
	ErrorRate    float64 `json:"error_rate"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
}

// MetricsSnapshot represents a point-in-time snapshot of all metrics
type MetricsSnapshot struct {
	// Uptime
	UptimeSeconds float64 `json:"uptime_seconds"`
	StartTime     string  `json:"start_time"`

	// Request metrics
	Requests struct {
		Total        int64   `json:"total"`
		Successful   int64   `json:"successful"`
		Failed       int64   `json:"failed"`
		AvgLatencyMs float64 `json:"avg_latency_ms"`
	} `json:"requests"`

	// Analysis metrics
	Analyses struct {
		Started       int64   `json:"started"`
		Completed     int64   `json:"completed"`
		Running       int64   `json:"running"`
		RateLimited   int64   `json:"rate_limited"`
		TrustRejected int64   `json:"trust_rejected"`
		AvgLatencyMs  float64 `json:"avg_latency_ms"`
	} `json:"analyses"`

	// Scoring metrics
	Scoring struct {
		TasksScored        int64 `json:"tasks_scored"`
		OracleCalls        int64 `json:"oracle_calls"`
		OracleFailures     int64 `json:"oracle_failures"`
		FieldsDefaulted    int64 `json:"fields_defaulted"`
		RuleBasedFallbacks int64 `json:"rule_based_fallbacks"`
	} `json:"scoring"`

	// Workflow metrics
	Workflows struct {
		Created int64 `json:"created"`
		Deleted int64 `json:"deleted"`
	} `json:"workflows"`

	// WebSocket metrics
	WebSocket struct {
		Connections int64 `json:"connections"`
		MessagesOut int64 `json:"messages_out"`
	} `json:"websocket"`

	// Report metrics
	Reports struct {
		Generated int64 `json:"generated"`
		Errors    int64 `json:"errors"`
	} `json:"reports"`

	// System metrics
	System struct {
		Goroutines   int    `json:"goroutines"`
		HeapAllocMB  uint64 `json:"heap_alloc_mb"`
		HeapInUseMB  uint64 `json:"heap_inuse_mb"`
		StackInUseMB uint64 `json:"stack_inuse_mb"`
		NumGC        uint32 `json:"num_gc"`
	} `json:"system"`

	// Endpoint-specific metrics
	Endpoints map[string]EndpointMetricsSnapshot `json:"endpoints,omitempty"`
}

// Snapshot returns a point-in-time snapshot of all metrics
func (m *Metrics) Snapshot() MetricsSnapshot {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	snapshot := MetricsSnapshot{}

	snapshot.UptimeSeconds = m.GetUptime().Seconds()
	snapshot.StartTime = m.StartTime.Format(time.RFC3339)

	snapshot.Requests.Total = atomic.LoadInt64(&m.TotalRequests)
	snapshot.Requests.Successful = atomic.LoadInt64(&m.SuccessfulRequests)
	snapshot.Requests.Failed = atomic.LoadInt64(&m.FailedRequests)
	snapshot.Requests.AvgLatencyMs = m.GetAverageLatency()

	completed := atomic.LoadInt64(&m.AnalysesCompleted)
	snapshot.Analyses.Started = atomic.LoadInt64(&m.AnalysesStarted)
	snapshot.Analyses.Completed = completed
	snapshot.Analyses.Running = atomic.LoadInt64(&m.AnalysesRunning)
	snapshot.Analyses.RateLimited = atomic.LoadInt64(&m.RateLimited)
	snapshot.Analyses.TrustRejected = atomic.LoadInt64(&m.TrustRejected)
	if completed > 0 {
		snapshot.Analyses.AvgLatencyMs = float64(atomic.LoadInt64(&m.AnalysisLatency)) / float64(completed)
	}

	snapshot.Scoring.TasksScored = atomic.LoadInt64(&m.TasksScored)
	snapshot.Scoring.OracleCalls = atomic.LoadInt64(&m.OracleCalls)
	snapshot.Scoring.OracleFailures = atomic.LoadInt64(&m.OracleFailures)
	snapshot.Scoring.FieldsDefaulted = atomic.LoadInt64(&m.FieldsDefaulted)
	snapshot.Scoring.RuleBasedFallbacks = atomic.LoadInt64(&m.RuleBasedFallbacks)

	snapshot.Workflows.Created = atomic.LoadInt64(&m.WorkflowsCreated)
	snapshot.Workflows.Deleted = atomic.LoadInt64(&m.WorkflowsDeleted)

	snapshot.WebSocket.Connections = atomic.LoadInt64(&m.WSConnections)
	snapshot.WebSocket.MessagesOut = atomic.LoadInt64(&m.WSMessagesOut)

	snapshot.Reports.Generated = atomic.LoadInt64(&m.ReportsGenerated)
	snapshot.Reports.Errors = atomic.LoadInt64(&m.ReportErrors)

	snapshot.System.Goroutines = runtime.NumGoroutine()
	snapshot.System.HeapAllocMB = memStats.HeapAlloc / 1024 / 1024
	snapshot.System.HeapInUseMB = memStats.HeapInuse / 1024 / 1024
	snapshot.System.StackInUseMB = memStats.StackInuse / 1024 / 1024
	snapshot.System.NumGC = memStats.NumGC

	endpointMetrics := m.GetEndpointMetrics()
	if len(endpointMetrics) > 0 {
		snapshot.Endpoints = make(map[string]EndpointMetricsSnapshot)
		for k, v := range endpointMetrics {
			em := EndpointMetricsSnapshot{
				Requests: v.Requests,
				Errors:   v.Errors,
			}
			if v.Requests > 0 {
				em.ErrorRate = float64(v.Errors) / float64(v.Requests) * 100
				em.AvgLatencyMs = float64(v.TotalLatency) / float64(v.Requests)
			}
			snapshot.Endpoints[k] = em
		}
	}

	return snapshot
}

// HealthStatus represents the health status of a component
type HealthStatus struct {
	Status  string      `json:"status"` // "healthy", "degraded", "unhealthy"
	Message string      `json:"message,omitempty"`
	Latency int64       `json:"latency_ms,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

// HealthCheck represents the overall health check response
type HealthCheck struct {
	Status     string                  `json:"status"`
	Version    string                  `json:"version"`
	Uptime     string                  `json:"uptime"`
	Timestamp  string                  `json:"timestamp"`
	Components map[string]HealthStatus `json:"components"`
}

// CheckDatabaseHealth checks database connectivity
func CheckDatabaseHealth(db *sql.DB) HealthStatus {
	start := time.Now()

	if db == nil {
		return HealthStatus{
			Status:  "unhealthy",
			Message: "database connection not initialized",
		}
	}

	err := db.Ping()
	latency := time.Since(start).Milliseconds()

	if err != nil {
		return HealthStatus{
			Status:  "unhealthy",
			Message: err.Error(),
			Latency: latency,
		}
	}

	if latency > 100 {
		return HealthStatus{
			Status:  "degraded",
			Message: "high latency",
			Latency: latency,
		}
	}

	return HealthStatus{
		Status:  "healthy",
		Latency: latency,
	}
}

// CheckMemoryHealth checks memory usage
func CheckMemoryHealth(maxHeapMB uint64) HealthStatus {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	heapMB := memStats.HeapAlloc / 1024 / 1024

	if heapMB > maxHeapMB {
		return HealthStatus{
			Status:  "unhealthy",
			Message: "heap memory exceeds limit",
		}
	}

	// Warn if using more than 80% of limit
	if heapMB > (maxHeapMB * 80 / 100) {
		return HealthStatus{
			Status:  "degraded",
			Message: "heap memory usage high",
		}
	}

	return HealthStatus{
		Status: "healthy",
	}
}

// CheckOracleHealth reports whether a text-generation oracle is configured
func CheckOracleHealth(configured bool) HealthStatus {
	if !configured {
		return HealthStatus{
			Status:  "degraded",
			Message: "oracle not configured, using rule-based scoring",
		}
	}
	return HealthStatus{Status: "healthy"}
}

// DetermineOverallStatus determines overall health from component statuses
func DetermineOverallStatus(components map[string]HealthStatus) string {
	hasUnhealthy := false
	hasDegraded := false

	for _, status := range components {
		switch status.Status {
		case "unhealthy":
			hasUnhealthy = true
		case "degraded":
			hasDegraded = true
		}
	}

	if hasUnhealthy {
		return "unhealthy"
	}
	if hasDegraded {
		return "degraded"
	}
	return "healthy"
}
