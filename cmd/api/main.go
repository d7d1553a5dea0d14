package main

import (
	"context"
	"errors"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cleberrangel/workscan-api/internal/cache"
	"github.com/cleberrangel/workscan-api/internal/client"
	"github.com/cleberrangel/workscan-api/internal/config"
	"github.com/cleberrangel/workscan-api/internal/database"
	"github.com/cleberrangel/workscan-api/internal/handler"
	"github.com/cleberrangel/workscan-api/internal/logger"
	"github.com/cleberrangel/workscan-api/internal/metrics"
	"github.com/cleberrangel/workscan-api/internal/middleware"
	"github.com/cleberrangel/workscan-api/internal/migration"
	"github.com/cleberrangel/workscan-api/internal/model"
	"github.com/cleberrangel/workscan-api/internal/ratelimit"
	"github.com/cleberrangel/workscan-api/internal/repository"
	"github.com/cleberrangel/workscan-api/internal/service"
	"github.com/cleberrangel/workscan-api/internal/websocket"
)

const Version = "1.0.0"

const (
	analysisCacheTTL = 10 * time.Minute
	shutdownTimeout  = 15 * time.Second
)

func main() {
	// Carrega configurações
	cfg, err := config.Load()
	if err != nil {
		stdlog.Fatalf("Erro ao carregar configurações: %v", err)
	}

	// Inicializa logger estruturado
	logger.Init(cfg.LogLevel, cfg.LogJSON)
	log := logger.Global()
	log.Info().
		Str("version", Version).
		Str("port", cfg.Port).
		Str("log_level", cfg.LogLevel).
		Bool("log_json", cfg.LogJSON).
		Str("scoring_mode", cfg.Oracle.Mode).
		Msg("WorkScan API iniciando")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.Init()
	m := metrics.Get()

	// Task Store
	db, err := database.Connect(ctx, database.Config{DSN: cfg.Database.DSN()})
	if err != nil {
		log.Fatal().Err(err).Msg("Erro ao conectar ao banco de dados")
	}
	defer database.Close(db)

	if err := migration.NewMigrator(db).Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("Erro ao executar migrações")
	}

	workflowRepo := repository.NewWorkflowRepository(db)
	analysisRepo := repository.NewAnalysisRepository(db)
	analysisCache := cache.NewCache[*model.Analysis](analysisCacheTTL)
	defer analysisCache.Stop()

	// Rate Governor
	window := ratelimit.NewSlidingWindow(cfg.Governor.MaxRequests, cfg.Governor.Window, ratelimit.SystemClock())
	window.StartJanitor(cfg.Governor.Window)
	defer window.Stop()

	var trust ratelimit.TrustVerifier
	if cfg.Governor.RecaptchaSecret != "" {
		recaptcha := client.NewRecaptchaClient(cfg.Governor.RecaptchaSecret, cfg.Governor.RecaptchaVerifyURL, cfg.Governor.RecaptchaTimeout)
		trust = ratelimit.NewScoreVerifier(recaptcha, cfg.Governor.RecaptchaMinScore)
	} else {
		log.Warn().Msg("RECAPTCHA_SECRET_KEY ausente: verificação anti-bot DESABILITADA")
		trust = ratelimit.BypassVerifier{}
	}
	governor := ratelimit.NewGovernor(window, trust)

	// Task Scorer
	var oracle client.Oracle
	if cfg.Oracle.APIKey != "" {
		chatOracle, err := client.NewOracle(ctx, client.OracleConfig{
			Provider:          cfg.Oracle.Provider,
			APIKey:            cfg.Oracle.APIKey,
			Model:             cfg.Oracle.Model,
			MaxTokens:         cfg.Oracle.MaxTokens,
			Timeout:           cfg.Oracle.Timeout,
			RequestsPerMinute: cfg.Oracle.RequestsPerMinute,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Erro ao criar cliente do oráculo")
		}
		oracle = chatOracle
	} else {
		log.Warn().Str("provider", cfg.Oracle.Provider).Msg("API key do oráculo ausente: pontuação apenas por regras")
	}

	rubric := service.DefaultRubric()
	pipelineCfg := service.PipelineConfig{
		Governor: governor,
		Scorer:   service.NewTaskScorer(oracle, rubric, m),
		Workers:  cfg.Oracle.Workers,
		Metrics:  m,
	}
	if cfg.Oracle.Mode == config.ScoringModeBatch {
		pipelineCfg.Batch = service.NewBatchScorer(oracle, rubric, m, service.DefaultBatchSize)
	}

	// Progresso em tempo real
	hub := websocket.NewHub(m, cfg.CORSOrigins)
	go hub.Run(ctx)
	pipelineCfg.Notifier = hub

	pipeline := service.NewPipeline(pipelineCfg)
	workflowService := service.NewWorkflowService(workflowRepo, analysisCache, m)
	analysisService := service.NewAnalysisService(workflowRepo, analysisRepo, pipeline, analysisCache, cfg.DefaultHourlyRate)
	reportService := service.NewReportService(workflowRepo, analysisService, m)

	if cfg.TokenAPI == "" {
		log.Warn().Msg("TOKEN_API ausente: rotas administrativas desabilitadas")
	}

	// Configura modo do Gin
	gin.SetMode(cfg.GinMode)

	r := handler.NewRouter(handler.RouterConfig{
		Workflows:   handler.NewWorkflowHandler(workflowService),
		Analyses:    handler.NewAnalysisHandler(analysisService),
		Reports:     handler.NewReportHandler(reportService),
		Parser:      handler.NewParseHandler(service.NewTaskParser(oracle, m)),
		Health:      handler.NewHealthHandler(db, hub, m, oracle != nil, Version),
		WebSocket:   handler.NewWebSocketHandler(hub, workflowService),
		Metrics:     m,
		Auth:        middleware.AuthConfig{TokenAPI: cfg.TokenAPI},
		CORSOrigins: cfg.CORSOrigins,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Servidor iniciando")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Erro ao iniciar servidor")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Sinal recebido, encerrando servidor")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Erro no encerramento do servidor")
	}
	log.Info().Msg("Servidor encerrado")
}
