package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/kaptinlin/jsonrepair"

	"github.com/cleberrangel/workscan-api/internal/client"
	"github.com/cleberrangel/workscan-api/internal/logger"
	"github.com/cleberrangel/workscan-api/internal/metrics"
	"github.com/cleberrangel/workscan-api/internal/model"
)

// MaxParseTextLength limite do texto livre enviado ao oráculo
const MaxParseTextLength = 20000

const parsePromptTemplate = `You are an expert at analyzing workflow descriptions and extracting structured task information.

USER INPUT TEXT:
{{.}}

YOUR JOB:
1. Identify a suitable workflow name (short, descriptive)
2. Create a workflow description (1-2 sentences summarizing what this workflow is about)
3. Extract ALL tasks mentioned in the text
4. For each task, determine:
   - name: Clear, concise task name
   - description: Brief description of what the task involves
   - frequency: daily, weekly, or monthly (make an educated guess)
   - time_per_task: estimated minutes per occurrence
   - category: data_entry, communication, analysis, creative, administrative, or general
   - complexity: low, medium, or high

RESPOND IN THIS EXACT JSON FORMAT (no markdown, no code blocks, just raw JSON):
{"workflow_name": "name here", "workflow_description": "description here", "tasks": [{"name": "task name", "description": "task description", "frequency": "daily", "time_per_task": 30, "category": "general", "complexity": "medium"}]}

CRITICAL: Return ONLY valid JSON, no explanations or markdown formatting.`

var parsePrompt = template.Must(template.New("parse_prompt").Parse(parsePromptTemplate))

// parsedWorkflow é o formato pedido ao oráculo
type parsedWorkflow struct {
	WorkflowName        string       `json:"workflow_name"`
	WorkflowDescription string       `json:"workflow_description"`
	Tasks               []parsedTask `json:"tasks"`
}

type parsedTask struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Frequency   string    `json:"frequency"`
	TimePerTask flexFloat `json:"time_per_task"`
	Category    string    `json:"category"`
	Complexity  string    `json:"complexity"`
}

// TaskParser extrai um workflow estruturado de texto livre usando o oráculo
type TaskParser struct {
	oracle   client.Oracle
	metrics  *metrics.Metrics
	validate *validator.Validate
}

// NewTaskParser cria o extrator. Sem oráculo toda chamada retorna
// model.ErrOracleUnavailable.
func NewTaskParser(oracle client.Oracle, m *metrics.Metrics) *TaskParser {
	if m == nil {
		m = metrics.New()
	}
	v := validator.New()
	v.SetTagName("binding")
	return &TaskParser{oracle: oracle, metrics: m, validate: v}
}

// Parse pede ao oráculo o workflow descrito no texto e devolve o payload
// pronto para o cadastro. Frequência e complexidade fora da taxonomia
// ficam vazias e recebem os padrões na criação.
func (p *TaskParser) Parse(ctx context.Context, text string) (*model.WorkflowCreate, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, model.InvalidInput("texto vazio")
	}
	if utf8.RuneCountInString(text) > MaxParseTextLength {
		return nil, model.InvalidInput("texto excede %d caracteres", MaxParseTextLength)
	}
	if p.oracle == nil {
		return nil, fmt.Errorf("%w: oráculo não configurado", model.ErrOracleUnavailable)
	}

	var buf bytes.Buffer
	if err := parsePrompt.Execute(&buf, text); err != nil {
		return nil, fmt.Errorf("montar prompt: %w", err)
	}

	log := logger.Get(ctx)
	start := time.Now()
	reply, err := p.oracle.Generate(ctx, buf.String())
	p.metrics.IncrementOracleCall(err == nil, time.Since(start))
	if err != nil {
		log.Warn().Err(err).Dur("duration", time.Since(start)).Msg("Oráculo indisponível ao extrair tarefas")
		return nil, fmt.Errorf("%w: %v", model.ErrOracleUnavailable, err)
	}

	parsed, err := decodeParsedWorkflow(reply)
	if err != nil {
		log.Warn().Err(err).Int("reply_length", len(reply)).Msg("Resposta de extração ilegível")
		return nil, err
	}

	req := parsed.toWorkflowCreate()
	if len(req.Tasks) == 0 {
		return nil, fmt.Errorf("%w: nenhuma tarefa identificada no texto", model.ErrOracleMalformed)
	}
	if err := p.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrOracleMalformed, err)
	}

	log.Info().
		Str("workflow", req.Name).
		Int("tasks", len(req.Tasks)).
		Dur("duration", time.Since(start)).
		Msg("Tarefas extraídas do texto")
	return req, nil
}

// decodeParsedWorkflow lê o objeto da resposta, reparando JSON malformado
func decodeParsedWorkflow(reply string) (*parsedWorkflow, error) {
	payload := extractJSON(reply)
	if payload == "" || payload[0] != '{' {
		return nil, fmt.Errorf("%w: nenhum objeto JSON na resposta", model.ErrOracleMalformed)
	}

	var parsed parsedWorkflow
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(payload)
		if repairErr != nil {
			return nil, fmt.Errorf("%w: %v", model.ErrOracleMalformed, repairErr)
		}
		parsed = parsedWorkflow{}
		if err := json.Unmarshal([]byte(repaired), &parsed); err != nil {
			return nil, fmt.Errorf("%w: %v", model.ErrOracleMalformed, err)
		}
	}
	return &parsed, nil
}

func (w *parsedWorkflow) toWorkflowCreate() *model.WorkflowCreate {
	req := &model.WorkflowCreate{
		Name:        truncateRunes(strings.TrimSpace(w.WorkflowName), 255),
		Description: strings.TrimSpace(w.WorkflowDescription),
		Tasks:       make([]model.TaskCreate, 0, len(w.Tasks)),
	}
	if req.Name == "" {
		req.Name = "Workflow extraído"
	}

	for _, t := range w.Tasks {
		name := truncateRunes(strings.TrimSpace(t.Name), 255)
		if name == "" {
			continue
		}
		tc := model.TaskCreate{
			Name:        name,
			Description: strings.TrimSpace(t.Description),
			Frequency:   normalizeChoice(t.Frequency, "daily", "weekly", "monthly"),
			Category:    truncateRunes(strings.TrimSpace(t.Category), 100),
			Complexity:  normalizeChoice(t.Complexity, "low", "medium", "high"),
		}
		if minutes := float64(t.TimePerTask); minutes > 0 && minutes < 1e6 {
			m := int(minutes + 0.5)
			tc.TimePerTask = &m
		}
		req.Tasks = append(req.Tasks, tc)
	}
	return req
}

// normalizeChoice retorna o valor em minúsculas se pertencer às opções
func normalizeChoice(value string, options ...string) string {
	v := strings.ToLower(strings.TrimSpace(value))
	for _, o := range options {
		if v == o {
			return v
		}
	}
	return ""
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
