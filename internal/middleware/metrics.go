package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cleberrangel/workscan-api/internal/logger"
	"github.com/cleberrangel/workscan-api/internal/metrics"
)

// MetricsMiddleware tracks request metrics
func MetricsMiddleware(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		latency := time.Since(start).Milliseconds()
		statusCode := c.Writer.Status()

		m.IncrementRequests(statusCode < 400, latency)

		// Use the route template to keep label cardinality bounded
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.TrackEndpoint(path, c.Request.Method, statusCode, latency)
	}
}

// auditPrefixes lists the routes whose state-changing requests are audited
var auditPrefixes = []string{
	"/api/workflows",
	"/api/analyze",
	"/api/reports",
}

// AuditMiddleware logs audit events for state-changing operations
func AuditMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		shouldAudit := false
		for _, prefix := range auditPrefixes {
			if strings.HasPrefix(path, prefix) {
				shouldAudit = true
				break
			}
		}

		c.Next()

		if shouldAudit && c.Request.Method != http.MethodGet {
			logger.AuditRequest(
				c.Request.Context(),
				c.Request.Method,
				path,
				c.Writer.Status(),
				time.Since(start).Milliseconds(),
				ClientID(c),
			)
		}
	}
}
