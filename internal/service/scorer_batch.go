package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/kaptinlin/jsonrepair"

	"github.com/cleberrangel/workscan-api/internal/client"
	"github.com/cleberrangel/workscan-api/internal/logger"
	"github.com/cleberrangel/workscan-api/internal/metrics"
	"github.com/cleberrangel/workscan-api/internal/model"
)

// DefaultBatchSize número máximo de tarefas por chamada ao oráculo
const DefaultBatchSize = 20

// BatchScorer avalia várias tarefas em uma única chamada ao oráculo.
// Quando o payload não pode ser lido, todas as tarefas do lote usam as regras.
type BatchScorer struct {
	oracle    client.Oracle
	rubric    *Rubric
	metrics   *metrics.Metrics
	batchSize int
}

// NewBatchScorer cria o avaliador em lote
func NewBatchScorer(oracle client.Oracle, rubric *Rubric, m *metrics.Metrics, batchSize int) *BatchScorer {
	if rubric == nil {
		rubric = DefaultRubric()
	}
	if m == nil {
		m = metrics.New()
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &BatchScorer{oracle: oracle, rubric: rubric, metrics: m, batchSize: batchSize}
}

// BatchSize retorna o tamanho máximo de cada lote
func (b *BatchScorer) BatchSize() int { return b.batchSize }

// ScoreBatch avalia um lote; o resultado tem o mesmo tamanho e ordem de tasks
func (b *BatchScorer) ScoreBatch(ctx context.Context, tasks []model.Task) []model.TaskScore {
	log := logger.Get(ctx)

	if b.oracle == nil {
		return b.ruleBased(tasks)
	}

	prompt, err := BuildBatchPrompt(tasks, b.rubric)
	if err != nil {
		log.Error().Err(err).Msg("Erro ao montar prompt do lote")
		return b.ruleBased(tasks)
	}

	start := time.Now()
	text, err := b.oracle.Generate(ctx, prompt)
	b.metrics.IncrementOracleCall(err == nil, time.Since(start))
	if err != nil {
		log.Warn().Err(err).Int("tasks", len(tasks)).Msg("Oráculo indisponível, usando regras para o lote")
		return b.ruleBased(tasks)
	}

	parsed, err := ParseBatchResponse(text, len(tasks))
	if err != nil {
		log.Warn().Err(err).Int("tasks", len(tasks)).Msg("Payload do lote ilegível, usando regras")
		return b.ruleBased(tasks)
	}

	scores := make([]model.TaskScore, len(tasks))
	for i, p := range parsed {
		if !p.Complete() {
			log.Debug().
				Str("task", tasks[i].Name).
				Strs("defaulted", p.Defaulted).
				Msg("Campos do lote substituídos por padrão")
			b.metrics.IncrementFieldsDefaulted(len(p.Defaulted))
		}
		b.metrics.IncrementTaskScored(StrategyOracle)
		scores[i] = p.Score
	}
	return scores
}

func (b *BatchScorer) ruleBased(tasks []model.Task) []model.TaskScore {
	scores := make([]model.TaskScore, len(tasks))
	for i, t := range tasks {
		scores[i] = RuleBasedScore(t, b.rubric)
		b.metrics.IncrementTaskScored(StrategyRuleBased)
	}
	return scores
}

// batchEntry é um item do payload do lote; todos os campos são opcionais
type batchEntry struct {
	Index          *int       `json:"index"`
	Score          *flexFloat `json:"score"`
	TimeSaved      *flexFloat `json:"time_saved"`
	Difficulty     string     `json:"difficulty"`
	Recommendation string     `json:"recommendation"`
}

// flexFloat aceita números e strings numéricas. Valores ilegíveis viram
// NaN para que só o campo receba o padrão, não o lote inteiro.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		v = math.NaN()
	}
	*f = flexFloat(v)
	return nil
}

// ErrBatchUnparsable indica que nenhum payload estruturado foi encontrado
var ErrBatchUnparsable = errors.New("payload do lote ilegível")

// ParseBatchResponse extrai o array JSON da resposta (reparando JSON
// malformado) e aplica os padrões por item. Itens ausentes recebem a
// avaliação padrão.
func ParseBatchResponse(text string, n int) ([]ParsedScore, error) {
	payload := extractJSON(text)
	if payload == "" {
		return nil, fmt.Errorf("%w: nenhum JSON na resposta", ErrBatchUnparsable)
	}

	entries, err := decodeEntries(payload)
	if err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(payload)
		if repairErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrBatchUnparsable, repairErr)
		}
		if entries, err = decodeEntries(repaired); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBatchUnparsable, err)
		}
	}

	byIndex := make(map[int]batchEntry, len(entries))
	for pos, e := range entries {
		idx := pos
		if e.Index != nil {
			idx = *e.Index
		}
		if idx < 0 || idx >= n {
			continue
		}
		if _, dup := byIndex[idx]; !dup {
			byIndex[idx] = e
		}
	}

	results := make([]ParsedScore, n)
	for i := range results {
		e, ok := byIndex[i]
		if !ok {
			results[i] = ParsedScore{
				Score:     DefaultTaskScore(),
				Defaulted: []string{FieldScore, FieldTimeSaved, FieldDifficulty, FieldRecommendation},
			}
			continue
		}
		results[i] = e.toParsedScore()
	}
	return results, nil
}

// decodeEntries aceita um array ou um objeto {"tasks": [...]}. Cada item é
// decodificado separadamente para que um item com tipo errado não descarte
// os demais.
func decodeEntries(payload string) ([]batchEntry, error) {
	var raws []json.RawMessage
	if strings.HasPrefix(payload, "[") {
		if err := json.Unmarshal([]byte(payload), &raws); err != nil {
			return nil, err
		}
	} else {
		var wrapper struct {
			Tasks   []json.RawMessage `json:"tasks"`
			Results []json.RawMessage `json:"results"`
		}
		if err := json.Unmarshal([]byte(payload), &wrapper); err != nil {
			return nil, err
		}
		switch {
		case len(wrapper.Tasks) > 0:
			raws = wrapper.Tasks
		case len(wrapper.Results) > 0:
			raws = wrapper.Results
		default:
			return nil, errors.New("objeto sem lista de tarefas")
		}
	}

	entries := make([]batchEntry, len(raws))
	for i, raw := range raws {
		entries[i] = decodeEntry(raw)
	}
	return entries, nil
}

// decodeEntry lê um item do lote; quando o item tem um campo com tipo
// inesperado, os campos são lidos um a um e só o inválido fica ausente
func decodeEntry(raw json.RawMessage) batchEntry {
	var e batchEntry
	if err := json.Unmarshal(raw, &e); err == nil {
		return e
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return batchEntry{}
	}

	e = batchEntry{}
	if v, ok := decodeField[int](fields, "index"); ok {
		e.Index = &v
	}
	if v, ok := decodeField[flexFloat](fields, "score"); ok {
		e.Score = &v
	}
	if v, ok := decodeField[flexFloat](fields, "time_saved"); ok {
		e.TimeSaved = &v
	}
	e.Difficulty, _ = decodeField[string](fields, "difficulty")
	e.Recommendation, _ = decodeField[string](fields, "recommendation")
	return e
}

func decodeField[T any](fields map[string]json.RawMessage, key string) (T, bool) {
	var v T
	raw, ok := fields[key]
	if !ok {
		return v, false
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		var zero T
		return zero, false
	}
	return v, true
}

// extractJSON remove cercas de markdown e texto antes/depois do payload
func extractJSON(text string) string {
	start := strings.IndexAny(text, "[{")
	if start < 0 {
		return ""
	}
	closer := "]"
	if text[start] == '{' {
		closer = "}"
	}
	end := strings.LastIndex(text, closer)
	if end <= start {
		// resposta truncada; o reparo tenta fechar a estrutura
		return strings.TrimSpace(text[start:])
	}
	return text[start : end+1]
}

func (e batchEntry) toParsedScore() ParsedScore {
	p := ParsedScore{Score: DefaultTaskScore()}

	if v := percentageFrom(e.Score); v != nil {
		p.Score.AIReadinessScore = *v
	} else {
		p.Defaulted = append(p.Defaulted, FieldScore)
	}
	if v := percentageFrom(e.TimeSaved); v != nil {
		p.Score.TimeSavedPercentage = *v
	} else {
		p.Defaulted = append(p.Defaulted, FieldTimeSaved)
	}
	if d, ok := model.ParseDifficulty(strings.ToLower(strings.TrimSpace(e.Difficulty))); ok {
		p.Score.Difficulty = d
	} else {
		p.Defaulted = append(p.Defaulted, FieldDifficulty)
	}
	if r := strings.TrimSpace(e.Recommendation); r != "" {
		p.Score.Recommendation = r
	} else {
		p.Defaulted = append(p.Defaulted, FieldRecommendation)
	}
	return p
}

func percentageFrom(f *flexFloat) *float64 {
	if f == nil {
		return nil
	}
	return parsePercentage(strconv.FormatFloat(float64(*f), 'f', -1, 64))
}
