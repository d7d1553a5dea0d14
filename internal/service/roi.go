package service

import (
	"math"

	"github.com/cleberrangel/workscan-api/internal/model"
)

// Aggregate calcula o resumo de ROI e as horas economizadas por tarefa.
// Função pura: as mesmas entradas produzem sempre o mesmo resultado.
// O slice retornado é uma cópia na mesma ordem de scored.
func Aggregate(scored []model.ScoredTask, hourlyRate float64) (model.RoiSummary, []model.ScoredTask, error) {
	if len(scored) == 0 {
		return model.RoiSummary{}, nil, model.InvalidInput("lista de tarefas vazia")
	}
	if !(hourlyRate > 0) || math.IsInf(hourlyRate, 1) {
		return model.RoiSummary{}, nil, model.InvalidInput("taxa horária deve ser positiva: %v", hourlyRate)
	}

	results := make([]model.ScoredTask, len(scored))
	var totalScore, totalHours float64

	for i, st := range scored {
		hours := HoursSaved(st.Task, st.TimeSavedPercentage)

		results[i] = st
		results[i].EstimatedHoursSaved = round2(hours)

		totalScore += st.AIReadinessScore
		totalHours += hours
	}

	hoursSaved := round2(totalHours)
	return model.RoiSummary{
		AutomationScore: round2(totalScore / float64(len(scored))),
		HoursSaved:      hoursSaved,
		AnnualSavings:   round2(hoursSaved * hourlyRate),
	}, results, nil
}

// HoursSaved retorna as horas economizadas por ano para uma tarefa
func HoursSaved(task model.Task, timeSavedPercentage float64) float64 {
	minutes := math.Max(float64(task.TimePerTask), 0)
	pct := math.Min(math.Max(timeSavedPercentage, 0), 100)
	return minutes / 60 * (pct / 100) * task.Frequency.OccurrencesPerYear()
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
