package logger

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// AuditAction represents the type of action being audited
type AuditAction string

const (
	// Workflow operations
	AuditActionWorkflowCreate AuditAction = "WORKFLOW_CREATE"
	AuditActionWorkflowDelete AuditAction = "WORKFLOW_DELETE"

	// Analysis operations
	AuditActionAnalysisRun      AuditAction = "ANALYSIS_RUN"
	AuditActionAnalysisRejected AuditAction = "ANALYSIS_REJECTED"

	// Report operations
	AuditActionReportDownload AuditAction = "REPORT_DOWNLOAD"

	// API operations
	AuditActionAPIRequest AuditAction = "API_REQUEST"
	AuditActionAPIError   AuditAction = "API_ERROR"
)

// AuditEvent represents an audit log entry
type AuditEvent struct {
	Action     AuditAction
	ClientID   string
	Resource   string
	ResourceID string
	Details    map[string]interface{}
	RequestID  string
	Success    bool
	Error      string
	Duration   int64 // milliseconds
	Method     string
	Path       string
	StatusCode int
}

var auditLogger = globalLogger.With().Str("log_type", "audit").Logger()

// InitAudit initializes the audit logger
func InitAudit() {
	auditLogger = globalLogger.With().Str("log_type", "audit").Logger()
}

// Audit logs an audit event
func Audit(ctx context.Context, event AuditEvent) {
	if event.RequestID == "" {
		event.RequestID = GetRequestID(ctx)
	}
	if event.ClientID == "" {
		event.ClientID = GetClientID(ctx)
	}

	var logEvent *zerolog.Event
	if event.Success {
		logEvent = auditLogger.Info()
	} else {
		logEvent = auditLogger.Warn()
	}

	logEvent.
		Str("action", string(event.Action)).
		Str("client_id", event.ClientID).
		Str("resource", event.Resource).
		Str("resource_id", event.ResourceID).
		Str("request_id", event.RequestID).
		Bool("success", event.Success).
		Time("timestamp", time.Now().UTC())

	if event.Error != "" {
		logEvent.Str("error", event.Error)
	}
	if event.Duration > 0 {
		logEvent.Int64("duration_ms", event.Duration)
	}
	if event.Method != "" {
		logEvent.Str("method", event.Method)
	}
	if event.Path != "" {
		logEvent.Str("path", event.Path)
	}
	if event.StatusCode > 0 {
		logEvent.Int("status_code", event.StatusCode)
	}
	if len(event.Details) > 0 {
		logEvent.Interface("details", event.Details)
	}

	logEvent.Msg("Audit event")
}

// AuditRequest logs an API request audit event
func AuditRequest(ctx context.Context, method, path string, statusCode int, duration int64, clientID string) {
	success := statusCode < 400
	action := AuditActionAPIRequest
	if !success {
		action = AuditActionAPIError
	}

	Audit(ctx, AuditEvent{
		Action:     action,
		ClientID:   clientID,
		Resource:   "api",
		ResourceID: path,
		Method:     method,
		Path:       path,
		StatusCode: statusCode,
		Duration:   duration,
		Success:    success,
	})
}

// AuditAnalysis logs the outcome of a workflow analysis
func AuditAnalysis(ctx context.Context, workflowID int64, tasks int, duration time.Duration, err error) {
	event := AuditEvent{
		Action:     AuditActionAnalysisRun,
		Resource:   "workflow",
		ResourceID: strconv.FormatInt(workflowID, 10),
		Success:    err == nil,
		Duration:   duration.Milliseconds(),
		Details: map[string]interface{}{
			"tasks": tasks,
		},
	}
	if err != nil {
		event.Action = AuditActionAnalysisRejected
		event.Error = err.Error()
	}
	Audit(ctx, event)
}
