package service

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed rubric.yaml
var defaultRubricYAML []byte

// ScoreBand descreve uma faixa do AI readiness score
type ScoreBand struct {
	Range       string `yaml:"range"`
	Description string `yaml:"description"`
}

// ToolCategory agrupa ferramentas recomendadas para uma categoria de tarefa
type ToolCategory struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
	Tools    []string `yaml:"tools"`
}

// RubricExample é uma resposta de referência incluída no prompt
type RubricExample struct {
	Task           string  `yaml:"task"`
	Score          float64 `yaml:"score"`
	TimeSaved      float64 `yaml:"time_saved"`
	Difficulty     string  `yaml:"difficulty"`
	Recommendation string  `yaml:"recommendation"`
}

// Rubric contém os critérios de avaliação de automação
type Rubric struct {
	ScoreBands        []ScoreBand       `yaml:"score_bands"`
	TimeSavedGuidance []string          `yaml:"time_saved_guidance"`
	Difficulty        map[string]string `yaml:"difficulty"`
	Categories        []ToolCategory    `yaml:"categories"`
	DefaultTool       string            `yaml:"default_tool"`
	Examples          []RubricExample   `yaml:"examples"`
}

// ParseRubric decodifica uma rubrica em YAML
func ParseRubric(data []byte) (*Rubric, error) {
	var r Rubric
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decodificar rubrica: %w", err)
	}
	if len(r.ScoreBands) == 0 {
		return nil, errors.New("rubrica sem faixas de score")
	}
	if len(r.Categories) == 0 {
		return nil, errors.New("rubrica sem categorias")
	}
	if r.DefaultTool == "" {
		r.DefaultTool = r.Categories[0].Tools[0]
	}
	return &r, nil
}

// DefaultRubric retorna a rubrica embutida no binário
func DefaultRubric() *Rubric {
	r, err := ParseRubric(defaultRubricYAML)
	if err != nil {
		panic(fmt.Sprintf("rubrica embutida inválida: %v", err))
	}
	return r
}

// CategoryFor encontra a categoria da rubrica que corresponde à categoria
// livre da tarefa, pelo nome ou por palavra-chave
func (r *Rubric) CategoryFor(category string) (*ToolCategory, bool) {
	c := strings.ToLower(strings.TrimSpace(category))
	if c == "" {
		return nil, false
	}

	for i := range r.Categories {
		if strings.ToLower(r.Categories[i].Name) == c {
			return &r.Categories[i], true
		}
	}
	for i := range r.Categories {
		for _, kw := range r.Categories[i].Keywords {
			if strings.Contains(c, kw) {
				return &r.Categories[i], true
			}
		}
	}
	return nil, false
}

// PrimaryTool retorna a primeira ferramenta sugerida para a categoria
func (r *Rubric) PrimaryTool(category string) string {
	if cat, ok := r.CategoryFor(category); ok && len(cat.Tools) > 0 {
		return cat.Tools[0]
	}
	return r.DefaultTool
}
