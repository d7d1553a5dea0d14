package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"

	"github.com/cleberrangel/workscan-api/internal/client"
	"github.com/cleberrangel/workscan-api/internal/config"
	"github.com/cleberrangel/workscan-api/internal/logger"
	"github.com/cleberrangel/workscan-api/internal/model"
	"github.com/cleberrangel/workscan-api/internal/service"
)

type runOptions struct {
	file    string
	rate    float64
	offline bool
	workers int
}

// runReport é a saída JSON do comando run
type runReport struct {
	Workflow   string             `json:"workflow"`
	HourlyRate float64            `json:"hourly_rate"`
	Strategy   string             `json:"strategy"`
	Summary    model.RoiSummary   `json:"summary"`
	Results    []model.ScoredTask `json:"results"`
}

func newRunCommand() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Avalia as tarefas de um arquivo JSON",
		Long: `Avalia as tarefas de um arquivo JSON e imprime o resumo de ROI.

O arquivo pode conter um workflow ({"name": "...", "tasks": [...]}) ou
apenas a lista de tarefas. Com --offline, ou sem API key do oráculo,
a pontuação usa somente as regras de complexidade e frequência.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd.Context(), cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "Arquivo JSON com as tarefas")
	cmd.Flags().Float64Var(&opts.rate, "rate", 50, "Taxa horária usada no cálculo de economia")
	cmd.Flags().BoolVar(&opts.offline, "offline", false, "Não chama o oráculo")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "Avaliações simultâneas (0 = SCORING_WORKERS)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runAnalyze(ctx context.Context, cmd *cobra.Command, opts *runOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	data, err := os.ReadFile(opts.file)
	if err != nil {
		return fmt.Errorf("ler arquivo: %w", err)
	}

	workflow, err := parseWorkflowFile(data, opts.file)
	if err != nil {
		return err
	}

	tasks := make([]model.Task, len(workflow.Tasks))
	for i, t := range workflow.Tasks {
		tasks[i] = t.ToTask()
	}

	pipeline, strategy, err := newCLIPipeline(ctx, opts)
	if err != nil {
		return err
	}

	out, err := pipeline.Analyze(ctx, service.AnalyzeInput{
		Tasks:        tasks,
		HourlyRate:   opts.rate,
		ClientID:     "cli",
		SkipGovernor: true,
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(runReport{
		Workflow:   workflow.Name,
		HourlyRate: opts.rate,
		Strategy:   strategy,
		Summary:    out.Summary,
		Results:    out.Results,
	})
}

// parseWorkflowFile aceita um workflow completo ou uma lista de tarefas e
// aplica as mesmas regras de validação da API
func parseWorkflowFile(data []byte, path string) (*model.WorkflowCreate, error) {
	var w model.WorkflowCreate

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &w.Tasks); err != nil {
			return nil, fmt.Errorf("decodificar tarefas: %w", err)
		}
		w.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	} else if err := json.Unmarshal(trimmed, &w); err != nil {
		return nil, fmt.Errorf("decodificar workflow: %w", err)
	}

	v := validator.New()
	v.SetTagName("binding")
	if err := v.Struct(&w); err != nil {
		return nil, model.InvalidInput("%v", err)
	}
	return &w, nil
}

func newCLIPipeline(ctx context.Context, opts *runOptions) (*service.Pipeline, string, error) {
	log := logger.Get(ctx)

	oracleCfg, err := config.LoadOracle()
	if err != nil {
		return nil, "", err
	}

	workers := opts.workers
	if workers <= 0 {
		workers = oracleCfg.Workers
	}

	var oracle client.Oracle
	if !opts.offline && oracleCfg.APIKey != "" {
		chatOracle, err := client.NewOracle(ctx, client.OracleConfig{
			Provider:          oracleCfg.Provider,
			APIKey:            oracleCfg.APIKey,
			Model:             oracleCfg.Model,
			MaxTokens:         oracleCfg.MaxTokens,
			Timeout:           oracleCfg.Timeout,
			RequestsPerMinute: oracleCfg.RequestsPerMinute,
		})
		if err != nil {
			return nil, "", fmt.Errorf("criar cliente do oráculo: %w", err)
		}
		oracle = chatOracle
	} else if !opts.offline {
		log.Warn().Str("provider", oracleCfg.Provider).Msg("API key do oráculo ausente: usando regras")
	}

	rubric := service.DefaultRubric()
	scorer := service.NewTaskScorer(oracle, rubric, nil)
	cfg := service.PipelineConfig{
		Scorer:  scorer,
		Workers: workers,
	}
	if oracleCfg.Mode == config.ScoringModeBatch {
		cfg.Batch = service.NewBatchScorer(oracle, rubric, nil, service.DefaultBatchSize)
	}
	return service.NewPipeline(cfg), scorer.Strategy(), nil
}
