package main

import (
	"database/sql"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"

	"medintake/internal/config"
	"medintake/internal/engine"
	"medintake/internal/intake"
	"medintake/internal/llm"
	"medintake/internal/platform/webhook"
	"medintake/internal/report"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load("")
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	// 1. Infrastructure
	db, err := connectDB(cfg.Database.URL, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("could not connect to database")
	}
	runMigrations(cfg.Database, logger)

	// 2. Clients
	llmClient := llm.NewClient(
		cfg.OpenAI.APIKey,
		cfg.OpenAI.Model,
		time.Duration(cfg.OpenAI.TimeoutSeconds)*time.Second,
	)
	notifier := webhook.NewClient(cfg.Webhook.URL, cfg.Webhook.Token)
	if cfg.Webhook.URL == "" {
		logger.Warn().Msg("webhook.url is not set; clinician reports will not be delivered")
	}

	// 3. Engine
	evaluator := engine.NewEvaluator(llmClient, engine.EvaluatorConfig{
		TurnsPerCategory: cfg.Engine.TurnsPerCategory,
		ModelFallback:    cfg.Engine.ModelFallback,
	}, logger)
	questions := engine.NewQuestionGenerator(llmClient, logger)
	reportSvc := report.NewService(llmClient, notifier, logger)
	orch := engine.NewOrchestrator(evaluator, questions, reportSvc, logger)

	// 4. Services
	repo := intake.NewRepository(db)
	svc := intake.NewService(repo, orch, reportSvc, llmClient, logger)
	handler := intake.NewHandler(svc)

	// 5. Router
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Route("/api", func(r chi.Router) {
		intake.RegisterRoutes(r, handler)
	})

	logger.Info().Str("port", cfg.Server.Port).Msg("server starting")
	if err := http.ListenAndServe(":"+cfg.Server.Port, r); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}

func connectDB(connStr string, logger zerolog.Logger) (*sql.DB, error) {
	var db *sql.DB
	var err error
	for i := 0; i < 10; i++ {
		db, err = sql.Open("postgres", connStr)
		if err == nil {
			err = db.Ping()
		}
		if err == nil {
			logger.Info().Msg("connected to database")
			return db, nil
		}
		logger.Info().Int("attempt", i+1).Msg("waiting for database")
		time.Sleep(2 * time.Second)
	}
	return nil, err
}

func runMigrations(cfg config.DatabaseConfig, logger zerolog.Logger) {
	m, err := migrate.New("file://"+cfg.MigrationsPath, cfg.URL)
	if err != nil {
		logger.Warn().Err(err).Msg("migration init failed")
		return
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		logger.Warn().Err(err).Msg("migration up failed")
		return
	}
	logger.Info().Msg("migrations applied")
}
