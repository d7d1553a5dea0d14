package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/cleberrangel/workscan-api/internal/cache"
	"github.com/cleberrangel/workscan-api/internal/logger"
	"github.com/cleberrangel/workscan-api/internal/model"
)

// AnalysisService executa o pipeline sobre workflows gravados e persiste o resultado
type AnalysisService struct {
	workflows   WorkflowStore
	analyses    AnalysisStore
	pipeline    *Pipeline
	cache       *cache.Cache[*model.Analysis]
	defaultRate float64
}

// NewAnalysisService cria um novo serviço de análise
func NewAnalysisService(workflows WorkflowStore, analyses AnalysisStore, pipeline *Pipeline,
	analysisCache *cache.Cache[*model.Analysis], defaultRate float64) *AnalysisService {
	return &AnalysisService{
		workflows:   workflows,
		analyses:    analyses,
		pipeline:    pipeline,
		cache:       analysisCache,
		defaultRate: defaultRate,
	}
}

// AnalyzeWorkflowRequest identifica o workflow e o cliente que pediu a análise
type AnalyzeWorkflowRequest struct {
	WorkflowID   int64
	HourlyRate   *float64
	ClientID     string
	TrustToken   string
	SkipGovernor bool
}

// Analyze carrega as tarefas, executa o pipeline e substitui a análise anterior
func (s *AnalysisService) Analyze(ctx context.Context, req AnalyzeWorkflowRequest) (*model.Analysis, error) {
	start := time.Now()

	rate := s.defaultRate
	if req.HourlyRate != nil {
		rate = *req.HourlyRate
	}

	workflow, err := s.workflows.GetByID(ctx, req.WorkflowID)
	if err != nil {
		return nil, err
	}

	out, err := s.pipeline.Analyze(ctx, AnalyzeInput{
		WorkflowID:   workflow.ID,
		Tasks:        workflow.Tasks,
		HourlyRate:   rate,
		ClientID:     req.ClientID,
		TrustToken:   req.TrustToken,
		SkipGovernor: req.SkipGovernor,
	})
	logger.AuditAnalysis(ctx, req.WorkflowID, len(workflow.Tasks), time.Since(start), err)
	if err != nil {
		return nil, err
	}

	analysis := &model.Analysis{
		WorkflowID: workflow.ID,
		HourlyRate: rate,
		RoiSummary: out.Summary,
		Results:    out.Results,
	}
	if err := s.analyses.Replace(ctx, analysis); err != nil {
		return nil, fmt.Errorf("persistir análise: %w", err)
	}

	// A próxima leitura recarrega do banco a análise que venceu
	if s.cache != nil {
		s.cache.Delete(analysisCacheKey(workflow.ID))
	}
	return analysis, nil
}

// Get retorna a análise gravada do workflow, usando o cache quando possível
func (s *AnalysisService) Get(ctx context.Context, workflowID int64) (*model.Analysis, error) {
	key := analysisCacheKey(workflowID)
	if s.cache != nil {
		if a, ok := s.cache.Get(key); ok {
			return a, nil
		}
	}

	a, err := s.analyses.GetByWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Set(key, a)
	}
	return a, nil
}

func analysisCacheKey(workflowID int64) string {
	return "analysis:" + strconv.FormatInt(workflowID, 10)
}
