package service

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/cleberrangel/workscan-api/internal/model"
)

// Nomes das planilhas do relatório
const (
	SheetSummary = "Resumo"
	SheetTasks   = "Tarefas"
	SheetRoadmap = "Roadmap"
)

// Faixas de potencial de automação usadas no relatório
const (
	highPotentialScore   = 70.0
	mediumPotentialScore = 40.0
)

// ExcelGenerator gera o relatório XLSX de uma análise
type ExcelGenerator struct{}

// NewExcelGenerator cria um novo gerador de Excel
func NewExcelGenerator() *ExcelGenerator {
	return &ExcelGenerator{}
}

type excelStyles struct {
	header, label, odd, even int
}

// Generate renderiza resumo executivo, detalhamento por tarefa e roadmap
func (g *ExcelGenerator) Generate(workflow *model.Workflow, analysis *model.Analysis) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetSummary); err != nil {
		return nil, fmt.Errorf("renomear sheet: %w", err)
	}
	for _, name := range []string{SheetTasks, SheetRoadmap} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("criar sheet %s: %w", name, err)
		}
	}

	styles, err := g.newStyles(f)
	if err != nil {
		return nil, fmt.Errorf("criar estilos: %w", err)
	}

	// Tarefas ordenadas pelo score, maior primeiro
	sorted := make([]model.ScoredTask, len(analysis.Results))
	copy(sorted, analysis.Results)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].AIReadinessScore > sorted[j].AIReadinessScore
	})

	if err := g.writeSummary(f, styles, workflow, analysis); err != nil {
		return nil, fmt.Errorf("escrever resumo: %w", err)
	}
	if err := g.writeTasks(f, styles, sorted, analysis.HourlyRate); err != nil {
		return nil, fmt.Errorf("escrever tarefas: %w", err)
	}
	if err := g.writeRoadmap(f, styles, sorted); err != nil {
		return nil, fmt.Errorf("escrever roadmap: %w", err)
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("escrever buffer: %w", err)
	}
	return buf, nil
}

func (g *ExcelGenerator) newStyles(f *excelize.File) (excelStyles, error) {
	var s excelStyles
	var err error

	border := func(color string) []excelize.Border {
		return []excelize.Border{
			{Type: "left", Color: color, Style: 1},
			{Type: "top", Color: color, Style: 1},
			{Type: "bottom", Color: color, Style: 1},
			{Type: "right", Color: color, Style: 1},
		}
	}

	if s.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    border("000000"),
	}); err != nil {
		return s, err
	}
	if s.label, err = f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true},
		Border: border("D9D9D9"),
	}); err != nil {
		return s, err
	}
	if s.odd, err = f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"F2F2F2"}, Pattern: 1},
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
		Border:    border("D9D9D9"),
	}); err != nil {
		return s, err
	}
	s.even, err = f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"FFFFFF"}, Pattern: 1},
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
		Border:    border("D9D9D9"),
	})
	return s, err
}

func (g *ExcelGenerator) writeSummary(f *excelize.File, s excelStyles, workflow *model.Workflow, a *model.Analysis) error {
	var high, medium, low int
	for _, r := range a.Results {
		switch {
		case r.AIReadinessScore >= highPotentialScore:
			high++
		case r.AIReadinessScore >= mediumPotentialScore:
			medium++
		default:
			low++
		}
	}

	rows := [][]interface{}{
		{"Workflow", workflow.Name},
		{"Overall Automation Score", fmt.Sprintf("%.1f/100", a.AutomationScore)},
		{"Annual Time Savings", fmt.Sprintf("%.1f hours", a.HoursSaved)},
		{"Annual Cost Savings", fmt.Sprintf("$%.2f", a.AnnualSavings)},
		{"Hourly Rate", fmt.Sprintf("$%.2f", a.HourlyRate)},
		{"Total Tasks Analyzed", len(a.Results)},
		{"Analyzed At", a.CreatedAt.Format("2006-01-02 15:04")},
		{},
		{"High potential (70+)", high},
		{"Medium potential (40-70)", medium},
		{"Low potential (<40)", low},
	}

	if err := g.writeHeaderRow(f, s, SheetSummary, []string{"Metric", "Value"}); err != nil {
		return err
	}
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		if err := f.SetSheetRow(SheetSummary, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return err
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetCellStyle(SheetSummary, cell, cell, s.label); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(SheetSummary, "A", "A", 28); err != nil {
		return err
	}
	return f.SetColWidth(SheetSummary, "B", "B", 40)
}

func (g *ExcelGenerator) writeTasks(f *excelize.File, s excelStyles, sorted []model.ScoredTask, hourlyRate float64) error {
	headers := []string{
		"#", "Task", "Description", "Frequency", "Time per Task (min)", "Category", "Complexity",
		"AI Readiness Score", "Automation Potential", "Time Saved (%)", "Difficulty",
		"Hours Saved / Year", "Annual Value ($)", "Recommendation",
	}
	if err := g.writeHeaderRow(f, s, SheetTasks, headers); err != nil {
		return err
	}

	for i, r := range sorted {
		row := []interface{}{
			i + 1,
			r.Task.Name,
			orNA(r.Task.Description),
			string(r.Task.Frequency),
			r.Task.TimePerTask,
			orNA(r.Task.Category),
			string(r.Task.Complexity),
			r.AIReadinessScore,
			PotentialLabel(r.AIReadinessScore),
			r.TimeSavedPercentage,
			string(r.Difficulty),
			r.EstimatedHoursSaved,
			round2(r.EstimatedHoursSaved * hourlyRate),
			r.Recommendation,
		}

		excelRow := i + 2
		if err := f.SetSheetRow(SheetTasks, fmt.Sprintf("A%d", excelRow), &row); err != nil {
			return err
		}

		style := s.even
		if i%2 == 1 {
			style = s.odd
		}
		last, _ := excelize.CoordinatesToCellName(len(headers), excelRow)
		if err := f.SetCellStyle(SheetTasks, fmt.Sprintf("A%d", excelRow), last, style); err != nil {
			return err
		}
	}

	for col := 1; col <= len(headers); col++ {
		colName, _ := excelize.ColumnNumberToName(col)
		width := 20.0
		if headers[col-1] == "Recommendation" || headers[col-1] == "Description" {
			width = 60
		}
		if err := f.SetColWidth(SheetTasks, colName, colName, width); err != nil {
			return err
		}
	}
	return f.SetPanes(SheetTasks, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

// roadmapPhase agrupa tarefas por prazo de implementação
type roadmapPhase struct {
	name       string
	minScore   float64
	difficulty model.Difficulty
	empty      string
}

var roadmapPhases = []roadmapPhase{
	{"Phase 1: Quick Wins (0-3 months)", 70, model.DifficultyEasy,
		"No immediate quick wins identified. Focus on medium-complexity tasks."},
	{"Phase 2: Medium-Term Automation (3-6 months)", 50, model.DifficultyMedium,
		"Consider advanced automation for high-value tasks."},
	{"Phase 3: Advanced Automation (6-12 months)", 40, model.DifficultyHard,
		"Focus on continuous improvement and optimization of existing automations."},
}

func (g *ExcelGenerator) writeRoadmap(f *excelize.File, s excelStyles, sorted []model.ScoredTask) error {
	if err := g.writeHeaderRow(f, s, SheetRoadmap, []string{"Phase", "Task", "Recommendation"}); err != nil {
		return err
	}

	row := 2
	for _, phase := range roadmapPhases {
		entries := RoadmapTasks(sorted, phase.minScore, phase.difficulty)
		if len(entries) == 0 {
			values := []interface{}{phase.name, "", phase.empty}
			if err := f.SetSheetRow(SheetRoadmap, fmt.Sprintf("A%d", row), &values); err != nil {
				return err
			}
			row++
			continue
		}
		for _, r := range entries {
			values := []interface{}{phase.name, r.Task.Name, r.Recommendation}
			if err := f.SetSheetRow(SheetRoadmap, fmt.Sprintf("A%d", row), &values); err != nil {
				return err
			}
			row++
		}
	}

	if err := f.SetColWidth(SheetRoadmap, "A", "B", 40); err != nil {
		return err
	}
	return f.SetColWidth(SheetRoadmap, "C", "C", 80)
}

func (g *ExcelGenerator) writeHeaderRow(f *excelize.File, s excelStyles, sheet string, headers []string) error {
	for col, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, cell, cell, s.header); err != nil {
			return err
		}
	}
	return nil
}

// PotentialLabel classifica o score em HIGH, MEDIUM ou LOW
func PotentialLabel(score float64) string {
	switch {
	case score >= highPotentialScore:
		return "HIGH - Strong candidate for automation"
	case score >= mediumPotentialScore:
		return "MEDIUM - Partial automation recommended"
	default:
		return "LOW - Requires human judgment"
	}
}

// RoadmapTasks filtra as tarefas de uma fase do roadmap
func RoadmapTasks(sorted []model.ScoredTask, minScore float64, difficulty model.Difficulty) []model.ScoredTask {
	var out []model.ScoredTask
	for _, r := range sorted {
		if r.AIReadinessScore >= minScore && r.Difficulty == difficulty {
			out = append(out, r)
		}
	}
	return out
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}
