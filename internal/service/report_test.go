package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/cleberrangel/workscan-api/internal/model"
)

func TestReportServiceGenerateXLSX(t *testing.T) {
	f := newServiceFixture(t, nil)
	w, err := f.workflows.Create(context.Background(), workflowRequest())
	require.NoError(t, err)
	_, err = f.analyses.Analyze(context.Background(), AnalyzeWorkflowRequest{WorkflowID: w.ID})
	require.NoError(t, err)

	result, err := f.reports.GenerateXLSX(context.Background(), w.ID)
	require.NoError(t, err)

	assert.Equal(t, "workscan_back_office.xlsx", result.FileName)
	assert.Equal(t, 3, result.TotalTasks)
	assert.Equal(t, int64(1), f.metrics.Snapshot().Reports.Generated)

	book, err := excelize.OpenReader(result.Content)
	require.NoError(t, err)
	defer book.Close()

	assert.Equal(t, []string{SheetSummary, SheetTasks, SheetRoadmap}, book.GetSheetList())

	rows, err := book.GetRows(SheetTasks)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "Task", rows[0][1])

	// ordenado pelo score: low/daily (90) > medium/weekly (65) > high/monthly (35)
	assert.Equal(t, "Daily standup notes", rows[1][1])
	assert.Equal(t, "Weekly report", rows[2][1])
	assert.Equal(t, "Monthly close", rows[3][1])

	value, err := book.GetCellValue(SheetSummary, "B2")
	require.NoError(t, err)
	assert.Equal(t, "Back office", value)
}

func TestReportServiceWithoutAnalysis(t *testing.T) {
	f := newServiceFixture(t, nil)
	w, err := f.workflows.Create(context.Background(), workflowRequest())
	require.NoError(t, err)

	_, err = f.reports.GenerateXLSX(context.Background(), w.ID)
	assert.ErrorIs(t, err, model.ErrAnalysisNotFound)

	_, err = f.reports.GenerateXLSX(context.Background(), 404)
	assert.ErrorIs(t, err, model.ErrWorkflowNotFound)
}

func TestPotentialLabelAndRoadmap(t *testing.T) {
	assert.Equal(t, "HIGH - Strong candidate for automation", PotentialLabel(70))
	assert.Equal(t, "MEDIUM - Partial automation recommended", PotentialLabel(40))
	assert.Equal(t, "LOW - Requires human judgment", PotentialLabel(39.9))

	tasks := []model.ScoredTask{
		{TaskScore: model.TaskScore{AIReadinessScore: 90, Difficulty: model.DifficultyEasy}},
		{TaskScore: model.TaskScore{AIReadinessScore: 60, Difficulty: model.DifficultyEasy}},
		{TaskScore: model.TaskScore{AIReadinessScore: 55, Difficulty: model.DifficultyMedium}},
	}
	assert.Len(t, RoadmapTasks(tasks, 70, model.DifficultyEasy), 1)
	assert.Len(t, RoadmapTasks(tasks, 50, model.DifficultyMedium), 1)
	assert.Empty(t, RoadmapTasks(tasks, 40, model.DifficultyHard))
}
