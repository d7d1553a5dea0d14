package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleberrangel/workscan-api/internal/metrics"
	"github.com/cleberrangel/workscan-api/internal/model"
)

func TestTaskParserParsesValidReply(t *testing.T) {
	oracle := staticOracle(`{
		"workflow_name": "  Customer support ",
		"workflow_description": "Handling inbound tickets",
		"tasks": [
			{"name": "Triage tickets", "description": "Tag and route", "frequency": "daily", "time_per_task": 20, "category": "communication", "complexity": "low"},
			{"name": "Weekly SLA report", "frequency": "WEEKLY", "time_per_task": 45.6, "category": "analysis", "complexity": "medium"}
		]
	}`, nil)
	m := metrics.New()
	parser := NewTaskParser(oracle, m)

	req, err := parser.Parse(context.Background(), "We triage tickets every day and send an SLA report weekly.")
	require.NoError(t, err)

	require.Equal(t, 1, oracle.calls())
	assert.Contains(t, oracle.prompts[0], "We triage tickets every day")
	assert.Equal(t, int64(1), m.OracleCalls)

	assert.Equal(t, "Customer support", req.Name)
	assert.Equal(t, "Handling inbound tickets", req.Description)
	require.Len(t, req.Tasks, 2)
	assert.Equal(t, "Triage tickets", req.Tasks[0].Name)
	assert.Equal(t, "daily", req.Tasks[0].Frequency)
	require.NotNil(t, req.Tasks[0].TimePerTask)
	assert.Equal(t, 20, *req.Tasks[0].TimePerTask)
	assert.Equal(t, "weekly", req.Tasks[1].Frequency)
	assert.Equal(t, 46, *req.Tasks[1].TimePerTask)
	assert.Equal(t, "medium", req.Tasks[1].Complexity)
}

func TestTaskParserRepairsMalformedJSON(t *testing.T) {
	// cerca de markdown, vírgula sobrando e objeto truncado
	reply := "Here you go:\n```json\n" +
		`{"workflow_name": "Payroll", "tasks": [{"name": "Collect timesheets", "frequency": "weekly", "time_per_task": "30",},` +
		"\n```"
	parser := NewTaskParser(staticOracle(reply, nil), nil)

	req, err := parser.Parse(context.Background(), "Collect timesheets every week")
	require.NoError(t, err)
	assert.Equal(t, "Payroll", req.Name)
	require.Len(t, req.Tasks, 1)
	assert.Equal(t, "Collect timesheets", req.Tasks[0].Name)
	require.NotNil(t, req.Tasks[0].TimePerTask)
	assert.Equal(t, 30, *req.Tasks[0].TimePerTask)
}

func TestTaskParserNormalizesOutOfTaxonomyValues(t *testing.T) {
	oracle := staticOracle(`{"workflow_name": "", "tasks": [
		{"name": "", "frequency": "daily"},
		{"name": "`+strings.Repeat("x", 300)+`", "frequency": "hourly", "complexity": "extreme", "time_per_task": -5, "category": "general"}
	]}`, nil)
	parser := NewTaskParser(oracle, nil)

	req, err := parser.Parse(context.Background(), "some notes")
	require.NoError(t, err)

	assert.NotEmpty(t, req.Name)
	require.Len(t, req.Tasks, 1, "tarefas sem nome são descartadas")
	task := req.Tasks[0]
	assert.Len(t, task.Name, 255)
	assert.Empty(t, task.Frequency)
	assert.Empty(t, task.Complexity)
	assert.Nil(t, task.TimePerTask)

	// os padrões de cadastro se aplicam depois
	converted := task.ToTask()
	assert.Equal(t, model.FrequencyDaily, converted.Frequency)
	assert.Equal(t, model.ComplexityMedium, converted.Complexity)
}

func TestTaskParserFailures(t *testing.T) {
	tests := []struct {
		name    string
		oracle  *fakeOracle
		text    string
		wantErr error
	}{
		{"empty text", staticOracle("{}", nil), "  \n ", model.ErrInvalidInput},
		{"text too long", staticOracle("{}", nil), strings.Repeat("a", MaxParseTextLength+1), model.ErrInvalidInput},
		{"no oracle", nil, "I send invoices", model.ErrOracleUnavailable},
		{"oracle error", staticOracle("", errors.New("connection reset")), "I send invoices", model.ErrOracleUnavailable},
		{"prose reply", staticOracle("I could not find any tasks.", nil), "I send invoices", model.ErrOracleMalformed},
		{"array reply", staticOracle(`[{"name": "x"}]`, nil), "I send invoices", model.ErrOracleMalformed},
		{"no tasks", staticOracle(`{"workflow_name": "Empty", "tasks": []}`, nil), "I send invoices", model.ErrOracleMalformed},
		{"wrong types", staticOracle(`{"workflow_name": "W", "tasks": {"name": "x"}}`, nil), "I send invoices", model.ErrOracleMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var parser *TaskParser
			if tt.oracle == nil {
				parser = NewTaskParser(nil, nil)
			} else {
				parser = NewTaskParser(tt.oracle, nil)
			}

			req, err := parser.Parse(context.Background(), tt.text)
			require.Error(t, err)
			assert.Nil(t, req)
			assert.ErrorIs(t, err, tt.wantErr)

			if tt.oracle != nil && errors.Is(tt.wantErr, model.ErrInvalidInput) {
				assert.Zero(t, tt.oracle.calls(), "entrada inválida não chega ao oráculo")
			}
		})
	}
}
