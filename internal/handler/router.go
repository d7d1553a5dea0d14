package handler

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cleberrangel/workscan-api/internal/metrics"
	"github.com/cleberrangel/workscan-api/internal/middleware"
)

// RouterConfig reúne os handlers e middlewares da API
type RouterConfig struct {
	Workflows *WorkflowHandler
	Analyses  *AnalysisHandler
	Reports   *ReportHandler
	Parser    *ParseHandler
	Health    *HealthHandler
	WebSocket *WebSocketHandler

	Metrics     *metrics.Metrics
	Auth        middleware.AuthConfig
	CORSOrigins []string
}

// NewRouter monta as rotas HTTP
func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID()) // Request ID + logging estruturado
	r.Use(gin.Recovery())
	r.Use(cors.New(corsConfig(cfg.CORSOrigins)))
	if cfg.Metrics != nil {
		r.Use(middleware.MetricsMiddleware(cfg.Metrics))
	}
	r.Use(middleware.AuditMiddleware())

	// Health e métricas (públicos)
	r.GET("/health", cfg.Health.DetailedHealthCheck)
	r.GET("/health/live", cfg.Health.LivenessCheck)
	r.GET("/health/ready", cfg.Health.ReadinessCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.GET("/metrics", cfg.Health.GetMetrics)
		api.GET("/metrics/summary", cfg.Health.GetMetricsSummary)

		api.POST("/workflows", cfg.Workflows.Create)
		api.GET("/workflows", cfg.Workflows.List)
		api.GET("/workflows/:id", cfg.Workflows.Get)

		if cfg.Parser != nil {
			api.POST("/parse-tasks", cfg.Parser.ParseTasks)
		}

		api.POST("/analyze", cfg.Analyses.Analyze)
		api.GET("/analyses/:workflow_id", cfg.Analyses.Get)
		api.GET("/reports/:workflow_id/xlsx", cfg.Reports.DownloadXLSX)
	}

	// Rotas administrativas
	admin := r.Group("/api")
	admin.Use(middleware.BearerAuth(cfg.Auth))
	{
		admin.DELETE("/workflows/:id", cfg.Workflows.Delete)
		admin.POST("/workflows/:id/analyze", cfg.Analyses.AnalyzeWorkflow)
		if cfg.WebSocket != nil {
			admin.GET("/ws/stats", cfg.WebSocket.GetConnectionStats)
		}
	}

	if cfg.WebSocket != nil {
		r.GET("/ws/workflows/:id", cfg.WebSocket.Subscribe)
	}

	return r
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", middleware.HeaderRequestID, HeaderRecaptchaToken},
		ExposeHeaders: []string{middleware.HeaderRequestID, "Retry-After", "Content-Disposition"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		c.AllowAllOrigins = true
		return c
	}
	c.AllowOrigins = origins
	c.AllowCredentials = true
	return c
}
