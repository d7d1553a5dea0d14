package model

import "time"

// Frequency indica a recorrência de uma tarefa
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// OccurrencesPerYear retorna quantas vezes a tarefa ocorre por ano.
// Frequências desconhecidas contam como semanais.
func (f Frequency) OccurrencesPerYear() float64 {
	switch f {
	case FrequencyDaily:
		return 250 // dias úteis
	case FrequencyWeekly:
		return 52
	case FrequencyMonthly:
		return 12
	default:
		return 52
	}
}

// Complexity é a complexidade atual da tarefa informada pelo cliente
type Complexity string

const (
	ComplexityLow    Complexity = "low"
	ComplexityMedium Complexity = "medium"
	ComplexityHigh   Complexity = "high"
)

// Difficulty é a dificuldade de implementar a automação
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ParseDifficulty normaliza a dificuldade; ok=false quando fora da taxonomia
func ParseDifficulty(s string) (Difficulty, bool) {
	switch d := Difficulty(s); d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return d, true
	}
	return "", false
}

// Workflow agrupa as tarefas enviadas por um cliente
type Workflow struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
	Tasks       []Task     `json:"tasks"`
}

// Task representa uma tarefa de trabalho a ser avaliada
type Task struct {
	ID          int64      `json:"id,omitempty"`
	WorkflowID  int64      `json:"workflow_id,omitempty"`
	Name        string     `json:"name" validate:"required,max=255"`
	Description string     `json:"description,omitempty"`
	Frequency   Frequency  `json:"frequency" validate:"omitempty,oneof=daily weekly monthly"`
	TimePerTask int        `json:"time_per_task" validate:"gte=0"` // minutos
	Category    string     `json:"category,omitempty" validate:"max=100"`
	Complexity  Complexity `json:"complexity" validate:"omitempty,oneof=low medium high"`
}

// TaskScore é a avaliação de automação de uma tarefa. Sempre completa.
type TaskScore struct {
	AIReadinessScore    float64    `json:"ai_readiness_score"`
	TimeSavedPercentage float64    `json:"time_saved_percentage"`
	Difficulty          Difficulty `json:"difficulty"`
	Recommendation      string     `json:"recommendation"`
}

// ScoredTask é uma tarefa com sua avaliação e as horas economizadas por ano
type ScoredTask struct {
	Task Task `json:"task"`
	TaskScore
	EstimatedHoursSaved float64 `json:"estimated_hours_saved"`
}

// RoiSummary contém as métricas agregadas do workflow
type RoiSummary struct {
	AutomationScore float64 `json:"automation_score"`
	HoursSaved      float64 `json:"hours_saved"`
	AnnualSavings   float64 `json:"annual_savings"`
}

// Analysis é o resultado persistido de uma análise de workflow
type Analysis struct {
	ID         int64     `json:"id"`
	WorkflowID int64     `json:"workflow_id"`
	HourlyRate float64   `json:"hourly_rate"`
	CreatedAt  time.Time `json:"created_at"`
	RoiSummary
	Results []ScoredTask `json:"results"`
}
