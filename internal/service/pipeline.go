package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/cleberrangel/workscan-api/internal/logger"
	"github.com/cleberrangel/workscan-api/internal/metrics"
	"github.com/cleberrangel/workscan-api/internal/model"
)

// Tipos de evento de progresso
const (
	EventAnalysisStarted   = "analysis_started"
	EventTaskScored        = "task_scored"
	EventAnalysisCompleted = "analysis_completed"
)

// DefaultWorkers limite padrão de avaliações simultâneas
const DefaultWorkers = 4

// Admitter decide se o cliente pode iniciar uma análise
type Admitter interface {
	Admit(ctx context.Context, clientID, trustToken string) error
}

// ProgressNotifier recebe eventos de progresso de uma análise
type ProgressNotifier interface {
	SendProgress(workflowID int64, event model.ProgressEvent)
}

// PipelineConfig reúne as dependências do orquestrador
type PipelineConfig struct {
	Governor Admitter
	Scorer   Scorer
	Batch    *BatchScorer // não nulo = modo em lote
	Workers  int
	Notifier ProgressNotifier
	Metrics  *metrics.Metrics
}

// Pipeline encadeia Rate Governor, Task Scorer e ROI Aggregator
type Pipeline struct {
	governor Admitter
	scorer   Scorer
	batch    *BatchScorer
	workers  int
	notifier ProgressNotifier
	metrics  *metrics.Metrics
	validate *validator.Validate
}

// AnalyzeInput é a entrada de uma análise
type AnalyzeInput struct {
	WorkflowID int64
	Tasks      []model.Task
	HourlyRate float64
	ClientID   string
	TrustToken string

	// SkipGovernor é usado por rotas administrativas e pela CLI
	SkipGovernor bool
}

// AnalyzeOutput é o resumo de ROI com as tarefas na ordem da entrada
type AnalyzeOutput struct {
	Summary model.RoiSummary
	Results []model.ScoredTask
}

// NewPipeline cria o orquestrador
func NewPipeline(cfg PipelineConfig) *Pipeline {
	if cfg.Workers < 1 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.New()
	}
	if cfg.Scorer == nil {
		cfg.Scorer = NewTaskScorer(nil, nil, cfg.Metrics)
	}
	return &Pipeline{
		governor: cfg.Governor,
		scorer:   cfg.Scorer,
		batch:    cfg.Batch,
		workers:  cfg.Workers,
		notifier: cfg.Notifier,
		metrics:  cfg.Metrics,
		validate: validator.New(),
	}
}

// Analyze valida a entrada, consulta o governor, avalia todas as tarefas e
// agrega o ROI. Só retorna erros de entrada inválida, cota ou anti-bot.
func (p *Pipeline) Analyze(ctx context.Context, in AnalyzeInput) (*AnalyzeOutput, error) {
	if err := p.validateInput(in); err != nil {
		return nil, err
	}

	ctx = logger.WithWorkflowID(ctx, in.WorkflowID)
	log := logger.Get(ctx)

	// Validação antes do governor: entrada inválida não consome cota
	if p.governor != nil && !in.SkipGovernor {
		if err := p.governor.Admit(ctx, in.ClientID, in.TrustToken); err != nil {
			p.metrics.IncrementRejected(rejectionReason(err))
			return nil, err
		}
	}

	start := time.Now()
	p.metrics.IncrementAnalysisStarted()
	p.notify(model.ProgressEvent{Type: EventAnalysisStarted, WorkflowID: in.WorkflowID, Total: len(in.Tasks)})

	log.Info().
		Int("tasks", len(in.Tasks)).
		Int("workers", p.workers).
		Bool("batch", p.batch != nil).
		Msg("Iniciando análise do workflow")

	scores := p.scoreAll(ctx, in.WorkflowID, in.Tasks)

	scored := make([]model.ScoredTask, len(in.Tasks))
	for i, t := range in.Tasks {
		scored[i] = model.ScoredTask{Task: t, TaskScore: scores[i]}
	}

	summary, results, err := Aggregate(scored, in.HourlyRate)
	if err != nil {
		return nil, fmt.Errorf("agregar ROI: %w", err)
	}

	elapsed := time.Since(start)
	p.metrics.IncrementAnalysisCompleted(elapsed)
	p.notify(model.ProgressEvent{
		Type:       EventAnalysisCompleted,
		WorkflowID: in.WorkflowID,
		Completed:  len(in.Tasks),
		Total:      len(in.Tasks),
		Score:      summary.AutomationScore,
	})

	log.Info().
		Float64("automation_score", summary.AutomationScore).
		Float64("hours_saved", summary.HoursSaved).
		Float64("annual_savings", summary.AnnualSavings).
		Dur("duration", elapsed).
		Msg("Análise concluída")

	return &AnalyzeOutput{Summary: summary, Results: results}, nil
}

func (p *Pipeline) validateInput(in AnalyzeInput) error {
	if len(in.Tasks) == 0 {
		return model.InvalidInput("workflow sem tarefas")
	}
	if !(in.HourlyRate > 0) {
		return model.InvalidInput("taxa horária deve ser positiva: %v", in.HourlyRate)
	}
	for i := range in.Tasks {
		if err := p.validate.Struct(in.Tasks[i]); err != nil {
			return model.InvalidInput("tarefa %d (%s): %v", i, in.Tasks[i].Name, err)
		}
	}
	return nil
}

// scoreAll avalia as tarefas com no máximo p.workers chamadas simultâneas.
// Cada goroutine escreve apenas o seu índice; Wait é a barreira antes da agregação.
func (p *Pipeline) scoreAll(ctx context.Context, workflowID int64, tasks []model.Task) []model.TaskScore {
	scores := make([]model.TaskScore, len(tasks))
	var completed int64

	g := new(errgroup.Group)
	g.SetLimit(p.workers)

	if p.batch != nil {
		size := p.batch.BatchSize()
		for start := 0; start < len(tasks); start += size {
			start, end := start, min(start+size, len(tasks))
			g.Go(func() error {
				chunk := p.batch.ScoreBatch(ctx, tasks[start:end])
				copy(scores[start:end], chunk)
				for i := start; i < end; i++ {
					p.taskDone(workflowID, i, tasks[i], scores[i], atomic.AddInt64(&completed, 1), len(tasks))
				}
				return nil
			})
		}
	} else {
		for i := range tasks {
			i := i
			g.Go(func() error {
				scores[i] = p.scorer.Score(ctx, tasks[i])
				p.taskDone(workflowID, i, tasks[i], scores[i], atomic.AddInt64(&completed, 1), len(tasks))
				return nil
			})
		}
	}

	_ = g.Wait() // as goroutines nunca retornam erro
	return scores
}

func (p *Pipeline) taskDone(workflowID int64, index int, task model.Task, score model.TaskScore, completed int64, total int) {
	p.notify(model.ProgressEvent{
		Type:       EventTaskScored,
		WorkflowID: workflowID,
		TaskIndex:  index,
		TaskName:   task.Name,
		Completed:  int(completed),
		Total:      total,
		Score:      score.AIReadinessScore,
	})
}

func (p *Pipeline) notify(event model.ProgressEvent) {
	if p.notifier == nil || event.WorkflowID == 0 {
		return
	}
	p.notifier.SendProgress(event.WorkflowID, event)
}

// rejectionReason traduz o erro do governor para o motivo exposto ao cliente
func rejectionReason(err error) string {
	var trustErr *model.TrustError
	switch {
	case errors.Is(err, model.ErrRateLimited):
		return model.ReasonRateLimit
	case errors.As(err, &trustErr):
		return trustErr.Reason
	case errors.Is(err, model.ErrTrustUnavailable):
		return model.ReasonTrustUnavailable
	default:
		return "unknown"
	}
}
