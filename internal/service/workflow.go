package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/cleberrangel/workscan-api/internal/cache"
	"github.com/cleberrangel/workscan-api/internal/logger"
	"github.com/cleberrangel/workscan-api/internal/metrics"
	"github.com/cleberrangel/workscan-api/internal/model"
)

// Paginação da listagem de workflows
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// WorkflowService gerencia o cadastro de workflows
type WorkflowService struct {
	store    WorkflowStore
	cache    *cache.Cache[*model.Analysis]
	metrics  *metrics.Metrics
	validate *validator.Validate
}

// NewWorkflowService cria um novo serviço de workflows.
// O cache de análises é invalidado quando o workflow é removido.
func NewWorkflowService(store WorkflowStore, analysisCache *cache.Cache[*model.Analysis], m *metrics.Metrics) *WorkflowService {
	if m == nil {
		m = metrics.New()
	}
	return &WorkflowService{
		store:    store,
		cache:    analysisCache,
		metrics:  m,
		validate: validator.New(),
	}
}

// Create valida e grava o workflow com as tarefas
func (s *WorkflowService) Create(ctx context.Context, req model.WorkflowCreate) (*model.Workflow, error) {
	if len(req.Tasks) == 0 {
		return nil, model.InvalidInput("workflow sem tarefas")
	}

	w := &model.Workflow{
		Name:        req.Name,
		Description: req.Description,
		Tasks:       make([]model.Task, len(req.Tasks)),
	}
	for i, tc := range req.Tasks {
		w.Tasks[i] = tc.ToTask()
		if err := s.validate.Struct(w.Tasks[i]); err != nil {
			return nil, model.InvalidInput("tarefa %d: %v", i, err)
		}
	}

	if err := s.store.Create(ctx, w); err != nil {
		return nil, fmt.Errorf("criar workflow: %w", err)
	}

	s.metrics.IncrementWorkflowCreated()
	logger.Audit(ctx, logger.AuditEvent{
		Action:     logger.AuditActionWorkflowCreate,
		Resource:   "workflow",
		ResourceID: strconv.FormatInt(w.ID, 10),
		Success:    true,
		Details:    map[string]interface{}{"tasks": len(w.Tasks)},
	})
	return w, nil
}

// Get retorna o workflow com as tarefas
func (s *WorkflowService) Get(ctx context.Context, id int64) (*model.Workflow, error) {
	return s.store.GetByID(ctx, id)
}

// List retorna uma página de workflows e o total
func (s *WorkflowService) List(ctx context.Context, limit, offset int) ([]model.Workflow, int, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.List(ctx, limit, offset)
}

// Delete remove o workflow e invalida a análise em cache
func (s *WorkflowService) Delete(ctx context.Context, id int64) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	if s.cache != nil {
		s.cache.Delete(analysisCacheKey(id))
	}

	s.metrics.IncrementWorkflowDeleted()
	logger.Audit(ctx, logger.AuditEvent{
		Action:     logger.AuditActionWorkflowDelete,
		Resource:   "workflow",
		ResourceID: strconv.FormatInt(id, 10),
		Success:    true,
	})
	return nil
}
