package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cleberrangel/workscan-api/internal/logger"
	"github.com/cleberrangel/workscan-api/internal/model"
)

// WorkflowRepository persiste workflows e suas tarefas
type WorkflowRepository struct {
	db *sql.DB
}

// NewWorkflowRepository cria um novo repositório de workflows
func NewWorkflowRepository(db *sql.DB) *WorkflowRepository {
	return &WorkflowRepository{db: db}
}

// Create insere o workflow e as tarefas na mesma transação.
// Preenche os IDs gerados em w e em w.Tasks.
func (r *WorkflowRepository) Create(ctx context.Context, w *model.Workflow) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("iniciar transação: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO workflows (name, description, created_at)
		VALUES ($1, $2, NOW())
		RETURNING id, created_at
	`, w.Name, nullString(w.Description)).Scan(&w.ID, &w.CreatedAt)
	if err != nil {
		return fmt.Errorf("erro ao inserir workflow: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO tasks (workflow_id, position, name, description, frequency, time_per_task, category, complexity)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`)
	if err != nil {
		return fmt.Errorf("preparar insert de tarefas: %w", err)
	}
	defer stmt.Close()

	for i := range w.Tasks {
		t := &w.Tasks[i]
		t.WorkflowID = w.ID
		if err := stmt.QueryRowContext(ctx,
			w.ID, i, t.Name, nullString(t.Description), string(t.Frequency),
			t.TimePerTask, nullString(t.Category), string(t.Complexity),
		).Scan(&t.ID); err != nil {
			return fmt.Errorf("erro ao inserir tarefa %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit do workflow: %w", err)
	}

	logger.Get(ctx).Info().
		Int64("workflow_id", w.ID).
		Int("tasks", len(w.Tasks)).
		Msg("Workflow criado")
	return nil
}

// GetByID retorna o workflow com as tarefas na ordem de criação
func (r *WorkflowRepository) GetByID(ctx context.Context, id int64) (*model.Workflow, error) {
	var w model.Workflow
	var description sql.NullString
	var updatedAt sql.NullTime

	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, description, created_at, updated_at
		FROM workflows
		WHERE id = $1
	`, id).Scan(&w.ID, &w.Name, &description, &w.CreatedAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrWorkflowNotFound
		}
		return nil, fmt.Errorf("erro ao buscar workflow: %w", err)
	}
	w.Description = description.String
	if updatedAt.Valid {
		w.UpdatedAt = &updatedAt.Time
	}

	tasks, err := r.tasks(ctx, id)
	if err != nil {
		return nil, err
	}
	w.Tasks = tasks
	return &w, nil
}

func (r *WorkflowRepository) tasks(ctx context.Context, workflowID int64) ([]model.Task, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, workflow_id, name, description, frequency, time_per_task, category, complexity
		FROM tasks
		WHERE workflow_id = $1
		ORDER BY position
	`, workflowID)
	if err != nil {
		return nil, fmt.Errorf("erro ao buscar tarefas: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		var t model.Task
		var description, category sql.NullString
		var frequency, complexity string
		if err := rows.Scan(&t.ID, &t.WorkflowID, &t.Name, &description, &frequency,
			&t.TimePerTask, &category, &complexity); err != nil {
			return nil, fmt.Errorf("erro ao ler tarefa: %w", err)
		}
		t.Description = description.String
		t.Category = category.String
		t.Frequency = model.Frequency(frequency)
		t.Complexity = model.Complexity(complexity)
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// List retorna uma página de workflows (sem tarefas) e o total
func (r *WorkflowRepository) List(ctx context.Context, limit, offset int) ([]model.Workflow, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM workflows").Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("erro ao contar workflows: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, description, created_at, updated_at
		FROM workflows
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("erro ao listar workflows: %w", err)
	}
	defer rows.Close()

	workflows := []model.Workflow{}
	for rows.Next() {
		var w model.Workflow
		var description sql.NullString
		var updatedAt sql.NullTime
		if err := rows.Scan(&w.ID, &w.Name, &description, &w.CreatedAt, &updatedAt); err != nil {
			return nil, 0, fmt.Errorf("erro ao ler workflow: %w", err)
		}
		w.Description = description.String
		if updatedAt.Valid {
			w.UpdatedAt = &updatedAt.Time
		}
		workflows = append(workflows, w)
	}
	return workflows, total, rows.Err()
}

// Delete remove o workflow; tarefas e análises caem em cascata
func (r *WorkflowRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM workflows WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("erro ao remover workflow: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("erro ao verificar remoção: %w", err)
	}
	if n == 0 {
		return model.ErrWorkflowNotFound
	}

	logger.Get(ctx).Info().Int64("workflow_id", id).Msg("Workflow removido")
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
