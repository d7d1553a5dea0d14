package service

import (
	"bytes"
	"strconv"
	"strings"
	"text/template"

	"github.com/cleberrangel/workscan-api/internal/model"
)

const taskPromptTemplate = `You are an expert automation consultant with deep knowledge of AI tools, no-code platforms, and workflow automation solutions.

TASK TO ANALYZE:
{{template "task" .Task}}
YOUR MISSION:
Provide a practical, actionable automation assessment for THIS SPECIFIC task.
{{template "rubric" .Rubric}}
RESPOND IN THIS EXACT FORMAT (no extra text, no markdown):
SCORE: [number 0-100]
TIME_SAVED: [number 0-100]
DIFFICULTY: [easy/medium/hard]
RECOMMENDATION: Use [specific tool name(s)] to automate [specific action]. [One sentence about implementation or benefit].

EXAMPLE OUTPUTS:
{{range .Rubric.Examples}}For "{{.Task}}":
SCORE: {{.Score}}
TIME_SAVED: {{.TimeSaved}}
DIFFICULTY: {{.Difficulty}}
RECOMMENDATION: {{.Recommendation}}

{{end}}Now analyze the task above:`

const batchPromptTemplate = `You are an expert automation consultant with deep knowledge of AI tools, no-code platforms, and workflow automation solutions.

TASKS TO ANALYZE:
{{range $i, $t := .Tasks}}
[{{$i}}]
{{template "task" $t}}{{end}}
YOUR MISSION:
Provide a practical, actionable automation assessment for EACH task above.
{{template "rubric" .Rubric}}
RESPOND WITH A SINGLE JSON ARRAY (no extra text, no markdown), one object per task:
[{"index": 0, "score": 0-100, "time_saved": 0-100, "difficulty": "easy|medium|hard", "recommendation": "Use [tool] to automate [action]. [benefit]."}]
`

const sharedTemplates = `{{define "task"}}Name: {{.Name}}
Description: {{or .Description "Same as task name"}}
Frequency: {{or .Frequency "Unknown"}}
Time per occurrence: {{minutes .TimePerTask}} minutes
Category: {{or .Category "Unknown"}}
Current Complexity: {{or .Complexity "Unknown"}}
{{end}}{{define "rubric"}}
ANALYSIS CRITERIA:

1. AI READINESS SCORE (0-100):
{{range .ScoreBands}}   - {{.Range}}: {{.Description}}
{{end}}
2. TIME SAVED PERCENTAGE (0-100):
{{range .TimeSavedGuidance}}   - {{.}}
{{end}}
3. IMPLEMENTATION DIFFICULTY:
   - easy: {{index .Difficulty "easy"}}
   - medium: {{index .Difficulty "medium"}}
   - hard: {{index .Difficulty "hard"}}

4. SPECIFIC TOOL RECOMMENDATION:
   Based on the task category, recommend ACTUAL tools:
{{range .Categories}}
   {{upper .Name}}:
{{range .Tools}}   - {{.}}
{{end}}{{end}}{{end}}`

var promptFuncs = template.FuncMap{
	"upper": strings.ToUpper,
	"minutes": func(m int) string {
		if m <= 0 {
			return "Unknown"
		}
		return strconv.Itoa(m)
	},
}

var (
	taskPrompt  = template.Must(template.Must(template.New("task_prompt").Funcs(promptFuncs).Parse(sharedTemplates)).Parse(taskPromptTemplate))
	batchPrompt = template.Must(template.Must(template.New("batch_prompt").Funcs(promptFuncs).Parse(sharedTemplates)).Parse(batchPromptTemplate))
)

// BuildTaskPrompt monta o pedido de avaliação de uma tarefa
func BuildTaskPrompt(task model.Task, rubric *Rubric) (string, error) {
	var buf bytes.Buffer
	err := taskPrompt.Execute(&buf, struct {
		Task   model.Task
		Rubric *Rubric
	}{task, rubric})
	return buf.String(), err
}

// BuildBatchPrompt monta o pedido de avaliação de várias tarefas em uma chamada
func BuildBatchPrompt(tasks []model.Task, rubric *Rubric) (string, error) {
	var buf bytes.Buffer
	err := batchPrompt.Execute(&buf, struct {
		Tasks  []model.Task
		Rubric *Rubric
	}{tasks, rubric})
	return buf.String(), err
}
