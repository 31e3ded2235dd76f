package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/s2sql/s2sql/internal/api"
	"github.com/s2sql/s2sql/internal/auth"
	"github.com/s2sql/s2sql/internal/chat"
	"github.com/s2sql/s2sql/internal/config"
	"github.com/s2sql/s2sql/internal/exemplar"
	chatmodel "github.com/s2sql/s2sql/internal/llm"
	"github.com/s2sql/s2sql/internal/observability"
	"github.com/s2sql/s2sql/internal/parser/llm"
	"github.com/s2sql/s2sql/internal/semantic"
	semanticpostgres "github.com/s2sql/s2sql/internal/semantic/postgres"
	s3store "github.com/s2sql/s2sql/internal/storage/s3"
)

func main() {
	cfg, err := config.LoadFromEnv("s2sql-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)

	var (
		registry  semantic.Source
		readiness []api.ReadinessCheck
	)
	switch cfg.Semantic.Source {
	case config.SemanticSourcePostgres:
		var db *sql.DB
		db, err = semanticpostgres.Open(context.Background(), semanticpostgres.DBConfig{
			DSN:             cfg.Semantic.DSN,
			MaxOpenConns:    cfg.Semantic.MaxOpenConns,
			MaxIdleConns:    cfg.Semantic.MaxIdleConns,
			ConnMaxIdleTime: cfg.Semantic.ConnMaxIdleTime,
			ConnMaxLifetime: cfg.Semantic.ConnMaxLifetime,
		})
		if err != nil {
			logger.Error("failed to open semantic registry db", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() { _ = db.Close() }()
		repo := semanticpostgres.NewRepository(db)
		registry = repo
		readiness = append(readiness, repo.HealthCheck)
	default:
		registry = semantic.FileSource{Path: cfg.Semantic.File}
	}
	schemaSource := semantic.NewCachedSource(registry, cfg.Semantic.RefreshInterval, logger)
	readiness = append(readiness, api.CheckSemanticSource(schemaSource))

	models := chatmodel.NewFactory(chatmodel.Defaults{
		Provider:    cfg.AI.Provider,
		BaseURL:     cfg.AI.BaseURL,
		APIKey:      cfg.AI.APIKey,
		Model:       cfg.AI.Model,
		Temperature: cfg.AI.Temperature,
		MaxTokens:   cfg.AI.MaxTokens,
		Timeout:     cfg.AI.Timeout,
	})
	strategies := llm.NewRegistry(map[llm.SQLGenType]llm.Strategy{
		llm.SQLGenOnePass:                llm.NewOnePassStrategy(models, 1, logger),
		llm.SQLGenOnePassSelfConsistency: llm.NewOnePassStrategy(models, cfg.Parser.SelfConsistencySamples, logger),
	})
	service, err := llm.NewRequestService(llm.ServiceConfig{
		LinkingValueEnabled: cfg.Parser.LinkingValueEnabled,
		StrategyType:        cfg.Parser.StrategyType,
	}, strategies, chat.SatisfactionChecker{
		LengthThreshold: cfg.Parser.TextLengthThreshold,
		ShortThreshold:  cfg.Parser.ShortTextThreshold,
		LongThreshold:   cfg.Parser.LongTextThreshold,
	}, logger)
	if err != nil {
		logger.Error("failed to initialize request service", slog.Any("error", err))
		os.Exit(1)
	}

	var recorder *exemplar.Recorder
	var parserRecorder llm.Recorder
	var index *exemplar.Index
	if cfg.Exemplar.RecordEnabled || cfg.Exemplar.LookupEnabled {
		objectStore, err := s3store.New(context.Background(), s3store.Config{
			Endpoint:         cfg.ObjectStore.Endpoint,
			Region:           cfg.ObjectStore.Region,
			Bucket:           cfg.ObjectStore.Bucket,
			AccessKeyID:      cfg.ObjectStore.AccessKeyID,
			SecretAccessKey:  cfg.ObjectStore.SecretAccessKey,
			UseSSL:           cfg.ObjectStore.UseSSL,
			Prefix:           cfg.ObjectStore.Prefix,
			AutoCreateBucket: cfg.ObjectStore.AutoCreateBucket,
		})
		if err != nil {
			logger.Error("failed to initialize object store", slog.Any("error", err))
			os.Exit(1)
		}
		readiness = append(readiness, api.CheckObjectStore(objectStore))
		if cfg.Exemplar.RecordEnabled {
			recorder, err = exemplar.NewRecorder(objectStore, cfg.Exemplar.FlushSize, logger)
			if err != nil {
				logger.Error("failed to initialize exemplar recorder", slog.Any("error", err))
				os.Exit(1)
			}
			parserRecorder = recorder
		}
		if cfg.Exemplar.LookupEnabled {
			index = exemplar.NewIndex(objectStore)
		}
	}

	parser := llm.NewParser(service, chat.HeuristicResolver{}, parserRecorder, logger)
	if index != nil {
		parser.UseExemplars(index, cfg.Exemplar.LookupLimit)
	}

	deps := api.Dependencies{
		Logger:           logger,
		Schema:           schemaSource,
		Parser:           parser,
		Readiness:        api.CombineReadinessChecks(readiness...),
		DependencyTimout: 2 * time.Second,
	}
	if recorder != nil {
		deps.Exemplars = recorder
	}
	if cfg.Auth.Required {
		validator, err := auth.NewStaticAPIKeyValidator(cfg.Auth.StaticKeys)
		if err != nil {
			logger.Error("failed to parse static auth keys", slog.Any("error", err))
			os.Exit(1)
		}
		deps.AuthMiddleware = auth.Middleware(logger, validator)
	}

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting api server",
			slog.String("addr", cfg.HTTP.Address),
			slog.String("semantic_source", string(cfg.Semantic.Source)),
			slog.String("sql_gen_type", string(service.SQLGenType())),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
	if recorder != nil {
		if err := recorder.Close(shutdownCtx); err != nil {
			logger.Error("exemplar flush on shutdown failed", slog.Any("error", err), slog.Int("pending", recorder.Pending()))
		}
	}
}
