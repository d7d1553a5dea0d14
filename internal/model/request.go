package model

// TaskCreate representa uma tarefa no payload de criação de workflow
type TaskCreate struct {
	Name        string `json:"name" binding:"required,min=1,max=255"`
	Description string `json:"description"`
	Frequency   string `json:"frequency" binding:"omitempty,oneof=daily weekly monthly"`
	TimePerTask *int   `json:"time_per_task" binding:"omitempty,gte=0"`
	Category    string `json:"category" binding:"max=100"`
	Complexity  string `json:"complexity" binding:"omitempty,oneof=low medium high"`
}

// ToTask converte o payload aplicando os defaults (daily/medium)
func (t TaskCreate) ToTask() Task {
	task := Task{
		Name:        t.Name,
		Description: t.Description,
		Frequency:   Frequency(t.Frequency),
		Category:    t.Category,
		Complexity:  Complexity(t.Complexity),
	}
	if t.TimePerTask != nil {
		task.TimePerTask = *t.TimePerTask
	}
	if task.Frequency == "" {
		task.Frequency = FrequencyDaily
	}
	if task.Complexity == "" {
		task.Complexity = ComplexityMedium
	}
	return task
}

// WorkflowCreate representa o payload de criação de workflow
type WorkflowCreate struct {
	Name        string       `json:"name" binding:"required,min=1,max=255"`
	Description string       `json:"description"`
	Tasks       []TaskCreate `json:"tasks" binding:"required,min=1,dive"`
}

// AnalyzeRequest representa o payload de análise de um workflow
type AnalyzeRequest struct {
	WorkflowID     int64    `json:"workflow_id" binding:"required,gt=0"`
	HourlyRate     *float64 `json:"hourly_rate,omitempty"` // nil = taxa padrão
	RecaptchaToken string   `json:"recaptcha_token,omitempty"`
}

// ParseTasksRequest representa o texto livre a ser convertido em workflow
type ParseTasksRequest struct {
	Text string `json:"text" binding:"required,min=1,max=20000"`
}

// Response representa a resposta padrão da API
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
	Errors  []string    `json:"errors,omitempty"`
}

// Meta contém metadados da resposta
type Meta struct {
	Total int `json:"total,omitempty"`
}

// ErrorResponse representa uma resposta de erro
type ErrorResponse struct {
	Success           bool   `json:"success"`
	Error             string `json:"error"`
	Code              string `json:"code,omitempty"`
	Details           string `json:"details,omitempty"`
	RetryAfterSeconds int    `json:"retry_after_seconds,omitempty"`
}

// ProgressEvent é enviado aos assinantes do workflow durante a análise
type ProgressEvent struct {
	Type       string  `json:"type"`
	WorkflowID int64   `json:"workflow_id"`
	TaskIndex  int     `json:"task_index,omitempty"`
	TaskName   string  `json:"task_name,omitempty"`
	Completed  int     `json:"completed"`
	Total      int     `json:"total"`
	Score      float64 `json:"score,omitempty"`
}
