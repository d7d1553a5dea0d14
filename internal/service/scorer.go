package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/cleberrangel/workscan-api/internal/client"
	"github.com/cleberrangel/workscan-api/internal/logger"
	"github.com/cleberrangel/workscan-api/internal/metrics"
	"github.com/cleberrangel/workscan-api/internal/model"
)

// Estratégias de pontuação
const (
	StrategyOracle    = "oracle"
	StrategyRuleBased = "rule_based"
	StrategyDefault   = "default"
)

// Scorer avalia o potencial de automação de uma tarefa e nunca falha
type Scorer interface {
	Score(ctx context.Context, task model.Task) model.TaskScore
}

// TaskScorer consulta o oráculo quando configurado; sem oráculo usa as regras
type TaskScorer struct {
	oracle  client.Oracle
	rubric  *Rubric
	metrics *metrics.Metrics
}

// NewTaskScorer cria o avaliador. oracle nil seleciona a estratégia por regras.
func NewTaskScorer(oracle client.Oracle, rubric *Rubric, m *metrics.Metrics) *TaskScorer {
	if rubric == nil {
		rubric = DefaultRubric()
	}
	if m == nil {
		m = metrics.New()
	}
	return &TaskScorer{oracle: oracle, rubric: rubric, metrics: m}
}

// Strategy retorna a estratégia primária do avaliador
func (s *TaskScorer) Strategy() string {
	if s.oracle == nil {
		return StrategyRuleBased
	}
	return StrategyOracle
}

// Score avalia a tarefa. Falhas do oráculo resultam na avaliação padrão
// e são apenas registradas em log.
func (s *TaskScorer) Score(ctx context.Context, task model.Task) (score model.TaskScore) {
	log := logger.Get(ctx).With().Str("task", task.Name).Logger()

	if s.oracle == nil {
		s.metrics.IncrementTaskScored(StrategyRuleBased)
		return RuleBasedScore(task, s.rubric)
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Panic ao consultar oráculo")
			s.metrics.IncrementTaskScored(StrategyDefault)
			score = ErrorTaskScore()
		}
	}()

	prompt, err := BuildTaskPrompt(task, s.rubric)
	if err != nil {
		log.Error().Err(err).Msg("Erro ao montar prompt")
		s.metrics.IncrementTaskScored(StrategyDefault)
		return ErrorTaskScore()
	}

	start := time.Now()
	text, err := s.oracle.Generate(ctx, prompt)
	s.metrics.IncrementOracleCall(err == nil, time.Since(start))
	if err != nil {
		log.Warn().Err(err).Dur("duration", time.Since(start)).Msg("Oráculo indisponível, usando avaliação padrão")
		s.metrics.IncrementTaskScored(StrategyDefault)
		return ErrorTaskScore()
	}

	parsed := ParseScoreResponse(text)
	if !parsed.Complete() {
		log.Debug().
			Err(model.ErrOracleMalformed).
			Strs("defaulted", parsed.Defaulted).
			Msg("Campos da resposta substituídos por padrão")
		s.metrics.IncrementFieldsDefaulted(len(parsed.Defaulted))
	}

	s.metrics.IncrementTaskScored(StrategyOracle)
	return parsed.Score
}

// RuleBasedScore estima a avaliação apenas por complexidade e frequência,
// sem chamar o oráculo
func RuleBasedScore(task model.Task, rubric *Rubric) model.TaskScore {
	if rubric == nil {
		rubric = DefaultRubric()
	}

	var score, saved float64
	var difficulty model.Difficulty
	switch task.Complexity {
	case model.ComplexityLow:
		score, saved, difficulty = 80, 70, model.DifficultyEasy
	case model.ComplexityHigh:
		score, saved, difficulty = 35, 20, model.DifficultyHard
	case model.ComplexityMedium:
		score, saved, difficulty = 60, 45, model.DifficultyMedium
	default:
		score, saved, difficulty = 50, DefaultTimeSaved, DefaultDifficulty
	}

	switch task.Frequency {
	case model.FrequencyDaily:
		score += 10
	case model.FrequencyWeekly:
		score += 5
	}

	return model.TaskScore{
		AIReadinessScore:    math.Min(score, 100),
		TimeSavedPercentage: saved,
		Difficulty:          difficulty,
		Recommendation: fmt.Sprintf(
			"Use %s to automate %s. Estimate based on task complexity and frequency; review with the team before implementing.",
			toolName(rubric.PrimaryTool(task.Category)), strings.ToLower(strings.TrimSpace(task.Name))),
	}
}

// toolName remove a anotação entre parênteses da dica da rubrica
func toolName(hint string) string {
	if i := strings.Index(hint, " ("); i > 0 {
		return hint[:i]
	}
	return hint
}
