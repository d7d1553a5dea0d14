package service

import (
	"math"
	"strconv"
	"strings"

	"github.com/cleberrangel/workscan-api/internal/model"
)

// Valores padrão aplicados campo a campo
const (
	DefaultReadinessScore = 50.0
	DefaultTimeSaved      = 25.0
	DefaultDifficulty     = model.DifficultyMedium

	DefaultRecommendation = "Automation potential identified - review with team to determine best approach."
	ErrorRecommendation   = "Unable to analyze at this time. Please review this task manually for automation opportunities."
)

// Campos da resposta do oráculo
const (
	FieldScore          = "SCORE"
	FieldTimeSaved      = "TIME_SAVED"
	FieldDifficulty     = "DIFFICULTY"
	FieldRecommendation = "RECOMMENDATION"
)

// ParsedScore é o resultado da leitura da resposta do oráculo.
// Score está sempre completo; Defaulted lista os campos que receberam o
// valor padrão (ausentes, ilegíveis ou fora do domínio).
type ParsedScore struct {
	Score     model.TaskScore
	Defaulted []string
}

// Complete indica que todos os campos vieram do oráculo
func (p ParsedScore) Complete() bool { return len(p.Defaulted) == 0 }

// DefaultTaskScore retorna a avaliação padrão usada para respostas vazias
func DefaultTaskScore() model.TaskScore {
	return model.TaskScore{
		AIReadinessScore:    DefaultReadinessScore,
		TimeSavedPercentage: DefaultTimeSaved,
		Difficulty:          DefaultDifficulty,
		Recommendation:      DefaultRecommendation,
	}
}

// ErrorTaskScore retorna a avaliação usada quando o oráculo falha
func ErrorTaskScore() model.TaskScore {
	s := DefaultTaskScore()
	s.Recommendation = ErrorRecommendation
	return s
}

// ParseScoreResponse lê a resposta linha a linha no formato CAMPO: valor.
// Linhas desconhecidas são ignoradas; a última ocorrência de um campo vence.
func ParseScoreResponse(text string) ParsedScore {
	var (
		score, timeSaved *float64
		difficulty       *model.Difficulty
		recommendation   *string
	)

	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		key, value, ok := strings.Cut(strings.TrimSpace(line), ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)

		switch strings.TrimSpace(key) {
		case FieldScore:
			score = parsePercentage(value)
		case FieldTimeSaved:
			timeSaved = parsePercentage(value)
		case FieldDifficulty:
			difficulty = nil
			if d, ok := model.ParseDifficulty(strings.ToLower(value)); ok {
				difficulty = &d
			}
		case FieldRecommendation:
			if value != "" {
				recommendation = &value
			}
		}
	}

	result := ParsedScore{Score: DefaultTaskScore()}
	if score != nil {
		result.Score.AIReadinessScore = *score
	} else {
		result.Defaulted = append(result.Defaulted, FieldScore)
	}
	if timeSaved != nil {
		result.Score.TimeSavedPercentage = *timeSaved
	} else {
		result.Defaulted = append(result.Defaulted, FieldTimeSaved)
	}
	if difficulty != nil {
		result.Score.Difficulty = *difficulty
	} else {
		result.Defaulted = append(result.Defaulted, FieldDifficulty)
	}
	if recommendation != nil {
		result.Score.Recommendation = *recommendation
	} else {
		result.Defaulted = append(result.Defaulted, FieldRecommendation)
	}
	return result
}

// parsePercentage aceita números em [0, 100], com ou sem "%".
// Retorna nil para valores ilegíveis ou fora do intervalo.
func parsePercentage(s string) *float64 {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || v < 0 || v > 100 {
		return nil
	}
	return &v
}
