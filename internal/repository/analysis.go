package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cleberrangel/workscan-api/internal/logger"
	"github.com/cleberrangel/workscan-api/internal/model"
)

// AnalysisRepository persiste o resumo de ROI e os resultados por tarefa
type AnalysisRepository struct {
	db *sql.DB
}

// NewAnalysisRepository cria um novo repositório de análises
func NewAnalysisRepository(db *sql.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

// Replace grava a análise do workflow, apagando a anterior (e seus
// resultados) na mesma transação. Preenche a.ID e a.CreatedAt.
func (r *AnalysisRepository) Replace(ctx context.Context, a *model.Analysis) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("iniciar transação: %w", err)
	}
	defer tx.Rollback()

	// Serializa análises concorrentes do mesmo workflow
	var locked int64
	err = tx.QueryRowContext(ctx, "SELECT id FROM workflows WHERE id = $1 FOR UPDATE", a.WorkflowID).Scan(&locked)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ErrWorkflowNotFound
	}
	if err != nil {
		return fmt.Errorf("bloquear workflow: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM analyses WHERE workflow_id = $1", a.WorkflowID); err != nil {
		return fmt.Errorf("erro ao remover análise anterior: %w", err)
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO analyses (workflow_id, hourly_rate, automation_score, hours_saved, annual_savings, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id, created_at
	`, a.WorkflowID, a.HourlyRate, a.AutomationScore, a.HoursSaved, a.AnnualSavings).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return fmt.Errorf("erro ao inserir análise: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO analysis_results (analysis_id, task_id, position, ai_readiness_score,
			time_saved_percentage, difficulty, recommendation, estimated_hours_saved)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`)
	if err != nil {
		return fmt.Errorf("preparar insert de resultados: %w", err)
	}
	defer stmt.Close()

	for i, res := range a.Results {
		taskID := sql.NullInt64{Int64: res.Task.ID, Valid: res.Task.ID > 0}
		if _, err := stmt.ExecContext(ctx,
			a.ID, taskID, i, res.AIReadinessScore, res.TimeSavedPercentage,
			string(res.Difficulty), res.Recommendation, res.EstimatedHoursSaved,
		); err != nil {
			return fmt.Errorf("erro ao inserir resultado %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit da análise: %w", err)
	}

	logger.Get(ctx).Info().
		Int64("workflow_id", a.WorkflowID).
		Int64("analysis_id", a.ID).
		Int("results", len(a.Results)).
		Msg("Análise persistida")
	return nil
}

// GetByWorkflow retorna a análise do workflow com os resultados na ordem das tarefas
func (r *AnalysisRepository) GetByWorkflow(ctx context.Context, workflowID int64) (*model.Analysis, error) {
	var a model.Analysis
	err := r.db.QueryRowContext(ctx, `
		SELECT id, workflow_id, hourly_rate, automation_score, hours_saved, annual_savings, created_at
		FROM analyses
		WHERE workflow_id = $1
	`, workflowID).Scan(&a.ID, &a.WorkflowID, &a.HourlyRate, &a.AutomationScore,
		&a.HoursSaved, &a.AnnualSavings, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrAnalysisNotFound
		}
		return nil, fmt.Errorf("erro ao buscar análise: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT t.id, t.workflow_id, t.name, t.description, t.frequency, t.time_per_task, t.category, t.complexity,
			r.ai_readiness_score, r.time_saved_percentage, r.difficulty, r.recommendation, r.estimated_hours_saved
		FROM analysis_results r
		JOIN tasks t ON t.id = r.task_id
		WHERE r.analysis_id = $1
		ORDER BY r.position
	`, a.ID)
	if err != nil {
		return nil, fmt.Errorf("erro ao buscar resultados: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var st model.ScoredTask
		var description, category sql.NullString
		var frequency, complexity, difficulty string
		if err := rows.Scan(
			&st.Task.ID, &st.Task.WorkflowID, &st.Task.Name, &description, &frequency,
			&st.Task.TimePerTask, &category, &complexity,
			&st.AIReadinessScore, &st.TimeSavedPercentage, &difficulty, &st.Recommendation,
			&st.EstimatedHoursSaved,
		); err != nil {
			return nil, fmt.Errorf("erro ao ler resultado: %w", err)
		}
		st.Task.Description = description.String
		st.Task.Category = category.String
		st.Task.Frequency = model.Frequency(frequency)
		st.Task.Complexity = model.Complexity(complexity)
		st.Difficulty = model.Difficulty(difficulty)
		a.Results = append(a.Results, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("erro ao iterar resultados: %w", err)
	}

	return &a, nil
}
