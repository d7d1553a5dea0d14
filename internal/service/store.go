package service

import (
	"context"

	"github.com/cleberrangel/workscan-api/internal/model"
)

// WorkflowStore é a parte do Task Store que guarda workflows e tarefas
type WorkflowStore interface {
	Create(ctx context.Context, w *model.Workflow) error
	GetByID(ctx context.Context, id int64) (*model.Workflow, error)
	List(ctx context.Context, limit, offset int) ([]model.Workflow, int, error)
	Delete(ctx context.Context, id int64) error
}

// AnalysisStore é a parte do Task Store que guarda resumos e resultados
type AnalysisStore interface {
	Replace(ctx context.Context, a *model.Analysis) error
	GetByWorkflow(ctx context.Context, workflowID int64) (*model.Analysis, error)
}
