package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleberrangel/workscan-api/internal/metrics"
	"github.com/cleberrangel/workscan-api/internal/model"
)

func batchTasks() []model.Task {
	return []model.Task{
		{Name: "Schedule posts", Frequency: model.FrequencyDaily, TimePerTask: 20, Category: "marketing", Complexity: model.ComplexityLow},
		{Name: "Answer tickets", Frequency: model.FrequencyDaily, TimePerTask: 90, Category: "support", Complexity: model.ComplexityMedium},
		{Name: "Negotiate contracts", Frequency: model.FrequencyMonthly, TimePerTask: 240, Category: "legal", Complexity: model.ComplexityHigh},
	}
}

func TestParseBatchResponseValid(t *testing.T) {
	text := "```json\n" + `[
  {"index": 2, "score": 20, "time_saved": 10, "difficulty": "hard", "recommendation": "Keep it human."},
  {"index": 0, "score": 95, "time_saved": "90%", "difficulty": "easy", "recommendation": "Use Buffer."},
  {"index": 1, "score": "70", "time_saved": 60, "difficulty": "Medium", "recommendation": "Use Zendesk AI."}
]` + "\n```"

	parsed, err := ParseBatchResponse(text, 3)
	require.NoError(t, err)
	require.Len(t, parsed, 3)

	assert.Equal(t, 95.0, parsed[0].Score.AIReadinessScore)
	assert.Equal(t, 90.0, parsed[0].Score.TimeSavedPercentage)
	assert.Equal(t, model.DifficultyMedium, parsed[1].Score.Difficulty)
	assert.Equal(t, 70.0, parsed[1].Score.AIReadinessScore)
	assert.Equal(t, "Keep it human.", parsed[2].Score.Recommendation)
	for _, p := range parsed {
		assert.True(t, p.Complete())
	}
}

func TestParseBatchResponseWithoutIndexUsesPosition(t *testing.T) {
	parsed, err := ParseBatchResponse(`{"tasks": [{"score": 10}, {"score": 20}]}`, 2)
	require.NoError(t, err)

	assert.Equal(t, 10.0, parsed[0].Score.AIReadinessScore)
	assert.Equal(t, 20.0, parsed[1].Score.AIReadinessScore)
	assert.ElementsMatch(t, []string{FieldTimeSaved, FieldDifficulty, FieldRecommendation}, parsed[0].Defaulted)
}

func TestParseBatchResponseRepairsMalformedJSON(t *testing.T) {
	// vírgula sobrando e array truncado
	text := `[{"index": 0, "score": 80, "time_saved": 50, "difficulty": "easy", "recommendation": "Use Zapier.",},
{"index": 1, "score": 40, "time_saved": 30, "difficulty": "hard", "recommendation": "Use Jira"`

	parsed, err := ParseBatchResponse(text, 2)
	require.NoError(t, err)

	assert.Equal(t, 80.0, parsed[0].Score.AIReadinessScore)
	assert.Equal(t, 40.0, parsed[1].Score.AIReadinessScore)
	assert.Equal(t, model.DifficultyHard, parsed[1].Score.Difficulty)
}

func TestParseBatchResponseMissingAndInvalidEntries(t *testing.T) {
	text := `[
  {"index": 0, "score": 140, "time_saved": "lots", "difficulty": "easy", "recommendation": "Use Make."},
  {"index": 0, "score": 10},
  {"index": 7, "score": 99}
]`

	parsed, err := ParseBatchResponse(text, 2)
	require.NoError(t, err)

	// fora do intervalo e ilegível recebem o padrão do campo; duplicado é ignorado
	assert.Equal(t, DefaultReadinessScore, parsed[0].Score.AIReadinessScore)
	assert.Equal(t, DefaultTimeSaved, parsed[0].Score.TimeSavedPercentage)
	assert.Equal(t, model.DifficultyEasy, parsed[0].Score.Difficulty)
	assert.ElementsMatch(t, []string{FieldScore, FieldTimeSaved}, parsed[0].Defaulted)

	// ausente recebe a avaliação padrão completa
	assert.Equal(t, DefaultTaskScore(), parsed[1].Score)
	assert.Len(t, parsed[1].Defaulted, 4)
}

func TestParseBatchResponseTypeMismatchDefaultsOnlyThatEntry(t *testing.T) {
	text := `[
  {"index": 0, "score": 85, "time_saved": 70, "difficulty": "easy", "recommendation": "Use Zapier."},
  {"index": 1, "score": 40, "time_saved": 30, "difficulty": 5, "recommendation": ["Use", "Jira"]},
  "not an object"
]`

	parsed, err := ParseBatchResponse(text, 3)
	require.NoError(t, err)
	require.Len(t, parsed, 3)

	// item válido mantém a avaliação do oráculo
	assert.True(t, parsed[0].Complete())
	assert.Equal(t, 85.0, parsed[0].Score.AIReadinessScore)
	assert.Equal(t, "Use Zapier.", parsed[0].Score.Recommendation)

	// campos com tipo errado recebem o padrão; os demais são aproveitados
	assert.Equal(t, 40.0, parsed[1].Score.AIReadinessScore)
	assert.Equal(t, 30.0, parsed[1].Score.TimeSavedPercentage)
	assert.Equal(t, DefaultDifficulty, parsed[1].Score.Difficulty)
	assert.Equal(t, DefaultRecommendation, parsed[1].Score.Recommendation)
	assert.ElementsMatch(t, []string{FieldDifficulty, FieldRecommendation}, parsed[1].Defaulted)

	// item que não é objeto ocupa a posição com a avaliação padrão
	assert.Equal(t, DefaultTaskScore(), parsed[2].Score)
	assert.Len(t, parsed[2].Defaulted, 4)
}

func TestBatchScorerKeepsValidEntriesNextToMismatchedOne(t *testing.T) {
	oracle := staticOracle(`[{"index":0,"score":90,"time_saved":80,"difficulty":"easy","recommendation":"a"},
{"index":1,"score":70,"time_saved":50,"difficulty":5,"recommendation":"b"},
{"index":"two","score":20,"time_saved":10,"difficulty":"hard","recommendation":"c"}]`, nil)
	b := NewBatchScorer(oracle, nil, metrics.New(), 0)

	scores := b.ScoreBatch(context.Background(), batchTasks())

	require.Len(t, scores, 3)
	assert.Equal(t, 90.0, scores[0].AIReadinessScore)
	assert.Equal(t, 70.0, scores[1].AIReadinessScore)
	assert.Equal(t, DefaultDifficulty, scores[1].Difficulty)
	// índice ilegível cai para a posição no array
	assert.Equal(t, 20.0, scores[2].AIReadinessScore)
	assert.Equal(t, model.DifficultyHard, scores[2].Difficulty)
}

func TestParseBatchResponseUnparsable(t *testing.T) {
	_, err := ParseBatchResponse("Sorry, I can only help with one task at a time.", 3)
	assert.ErrorIs(t, err, ErrBatchUnparsable)
}

func TestBatchScorerScoresInOneCall(t *testing.T) {
	oracle := staticOracle(`[{"index":0,"score":90,"time_saved":80,"difficulty":"easy","recommendation":"a"},
{"index":1,"score":70,"time_saved":50,"difficulty":"medium","recommendation":"b"},
{"index":2,"score":20,"time_saved":10,"difficulty":"hard","recommendation":"c"}]`, nil)
	b := NewBatchScorer(oracle, nil, metrics.New(), 0)
	tasks := batchTasks()

	scores := b.ScoreBatch(context.Background(), tasks)

	assert.Equal(t, DefaultBatchSize, b.BatchSize())
	assert.Equal(t, 1, oracle.calls())
	require.Len(t, scores, 3)
	assert.Equal(t, []float64{90, 70, 20}, []float64{scores[0].AIReadinessScore, scores[1].AIReadinessScore, scores[2].AIReadinessScore})
	for _, task := range tasks {
		assert.Contains(t, oracle.prompts[0], "Name: "+task.Name)
	}
}

func TestBatchScorerFallsBackToRules(t *testing.T) {
	tests := map[string]*fakeOracle{
		"oracle error":     staticOracle("", model.ErrOracleUnavailable),
		"unparsable":       staticOracle("no json here", nil),
		"no oracle at all": nil,
	}

	for name, oracle := range tests {
		t.Run(name, func(t *testing.T) {
			var b *BatchScorer
			if oracle == nil {
				b = NewBatchScorer(nil, nil, nil, 5)
			} else {
				b = NewBatchScorer(oracle, nil, nil, 5)
			}
			tasks := batchTasks()

			scores := b.ScoreBatch(context.Background(), tasks)

			require.Len(t, scores, len(tasks))
			for i, task := range tasks {
				assert.Equal(t, RuleBasedScore(task, DefaultRubric()), scores[i])
			}
		})
	}
}
