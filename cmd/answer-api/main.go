package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"commerce-answers/internal/api"
	"commerce-answers/internal/app"
	"commerce-answers/internal/common/config"
	"commerce-answers/internal/common/logger"
	"commerce-answers/internal/common/observability"
	"commerce-answers/internal/turn"
	aq "commerce-answers/internal/workers/answering/answer-question"
	gc "commerce-answers/internal/workers/answering/guardrail-check"
	pfa "commerce-answers/internal/workers/answering/plan-fact-answer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("info", "console").Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	obs := observability.New("answer-api", cfg.Tracing)
	defer obs.Shutdown()

	ctx := context.Background()
	services, err := app.Build(ctx, cfg, zapLog, obs)
	if err != nil {
		zapLog.Fatal("service initialization failed", zap.Error(err))
	}
	defer services.Close(context.Background())

	turns := turn.New(turn.Deps{
		Engine:    services.Engine,
		Planner:   services.Planner,
		Answerer:  services.Pipeline,
		Rules:     services.Rules,
		Snapshots: services.Catalog,
		Escalator: services.Escalator,
		Logger:    log,
	})

	server := api.New(api.Deps{
		Guardrail:      gc.NewHandler(gc.NewConfig(cfg), services.Engine, services.Rules, log),
		Planner:        pfa.NewHandler(pfa.NewConfig(cfg), services.Planner, services.Catalog, log),
		Answerer:       aq.NewHandler(aq.NewConfig(cfg), services.Pipeline, log),
		Turns:          turns,
		Logger:         log,
		RequestTimeout: config.GetDuration(config.GetWorkerConfig(cfg, aq.TaskType).Timeout),
		Version:        cfg.App.Version,
	})

	go func() {
		zapLog.Info("Answer API listening", zap.String("address", cfg.API.Address))
		if err := server.Listen(cfg.API.Address); err != nil {
			zapLog.Fatal("answer API failed", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, draining requests...")
	if err := server.ShutdownWithTimeout(30 * time.Second); err != nil {
		zapLog.Error("Error stopping answer API", zap.Error(err))
	}
	turns.Wait()

	zapLog.Info("Answer API stopped gracefully")
}
