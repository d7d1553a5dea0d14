package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleberrangel/workscan-api/internal/model"
	"github.com/cleberrangel/workscan-api/internal/service"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func executeRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("ORACLE_PROVIDER", "anthropic")
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("SCORING_MODE", "per_task")

	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRunWorkflowFileOffline(t *testing.T) {
	path := writeFile(t, "ops.json", `{
		"name": "Operações",
		"tasks": [
			{"name": "Lançar notas", "frequency": "daily", "time_per_task": 30, "complexity": "low"},
			{"name": "Revisar contratos", "frequency": "monthly", "time_per_task": 240, "complexity": "high"}
		]
	}`)

	out, err := executeRoot(t, "run", "--file", path, "--rate", "40", "--offline")
	require.NoError(t, err)

	var report runReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "Operações", report.Workflow)
	assert.Equal(t, 40.0, report.HourlyRate)
	assert.Equal(t, service.StrategyRuleBased, report.Strategy)
	require.Len(t, report.Results, 2)
	assert.Equal(t, "Lançar notas", report.Results[0].Task.Name)
	assert.Equal(t, "Revisar contratos", report.Results[1].Task.Name)

	// low/daily = 90, high/monthly = 35
	assert.Equal(t, 90.0, report.Results[0].AIReadinessScore)
	assert.Equal(t, 35.0, report.Results[1].AIReadinessScore)
	assert.Equal(t, 62.5, report.Summary.AutomationScore)
}

func TestRunTaskListUsesFileName(t *testing.T) {
	path := writeFile(t, "backoffice.json", `[{"name": "Conciliar extrato", "frequency": "weekly", "time_per_task": 60}]`)

	out, err := executeRoot(t, "run", "-f", path)
	require.NoError(t, err)

	var report runReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "backoffice", report.Workflow)
	assert.Equal(t, 50.0, report.HourlyRate)
	require.Len(t, report.Results, 1)
	assert.Equal(t, model.ComplexityMedium, report.Results[0].Task.Complexity)
}

func TestRunRejectsInvalidInput(t *testing.T) {
	tests := map[string]string{
		"empty list":    `[]`,
		"bad frequency": `[{"name": "x", "frequency": "hourly"}]`,
		"missing name":  `{"tasks": [{"name": "x"}]}`,
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := writeFile(t, "tasks.json", content)
			_, err := executeRoot(t, "run", "--file", path, "--offline")
			assert.ErrorIs(t, err, model.ErrInvalidInput)
		})
	}

	path := writeFile(t, "tasks.json", `[{"name": "x"}]`)
	_, err := executeRoot(t, "run", "--file", path, "--rate", "0", "--offline")
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestRunRequiresFile(t *testing.T) {
	_, err := executeRoot(t, "run")
	assert.Error(t, err)

	_, err = executeRoot(t, "run", "--file", filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
