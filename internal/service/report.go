package service

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/cleberrangel/workscan-api/internal/logger"
	"github.com/cleberrangel/workscan-api/internal/metrics"
)

// ReportService gera o relatório de uma análise gravada
type ReportService struct {
	workflows      WorkflowStore
	analyses       *AnalysisService
	excelGenerator *ExcelGenerator
	metrics        *metrics.Metrics
}

// NewReportService cria um novo serviço de relatórios
func NewReportService(workflows WorkflowStore, analyses *AnalysisService, m *metrics.Metrics) *ReportService {
	if m == nil {
		m = metrics.New()
	}
	return &ReportService{
		workflows:      workflows,
		analyses:       analyses,
		excelGenerator: NewExcelGenerator(),
		metrics:        m,
	}
}

// ReportResult contém o arquivo gerado
type ReportResult struct {
	FileName   string
	Content    *bytes.Buffer
	TotalTasks int
}

var unsafeFileChars = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// GenerateXLSX renderiza a análise do workflow em XLSX
func (s *ReportService) GenerateXLSX(ctx context.Context, workflowID int64) (*ReportResult, error) {
	log := logger.Get(ctx)

	workflow, err := s.workflows.GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	analysis, err := s.analyses.Get(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	buf, err := s.excelGenerator.Generate(workflow, analysis)
	if err != nil {
		s.metrics.IncrementReportGenerated(false)
		return nil, fmt.Errorf("gerar excel: %w", err)
	}
	s.metrics.IncrementReportGenerated(true)

	name := strings.Trim(unsafeFileChars.ReplaceAllString(strings.ToLower(workflow.Name), "_"), "_")
	if name == "" {
		name = "workflow_" + strconv.FormatInt(workflowID, 10)
	}

	logger.Audit(ctx, logger.AuditEvent{
		Action:     logger.AuditActionReportDownload,
		Resource:   "report",
		ResourceID: strconv.FormatInt(workflowID, 10),
		Success:    true,
		Details:    map[string]interface{}{"format": "xlsx", "tasks": len(analysis.Results)},
	})
	log.Info().
		Int64("workflow_id", workflowID).
		Int("tasks", len(analysis.Results)).
		Int("bytes", buf.Len()).
		Msg("Relatório gerado")

	return &ReportResult{
		FileName:   "workscan_" + name + ".xlsx",
		Content:    buf,
		TotalTasks: len(analysis.Results),
	}, nil
}
