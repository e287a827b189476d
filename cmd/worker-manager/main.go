package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"commerce-answers/internal/app"
	"commerce-answers/internal/common/camunda"
	"commerce-answers/internal/common/config"
	"commerce-answers/internal/common/logger"
	"commerce-answers/internal/common/observability"

	aq "commerce-answers/internal/workers/answering/answer-question"
	ec "commerce-answers/internal/workers/answering/escalate-conversation"
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
	zapLog.Info("Starting worker manager...", zap.String("environment", cfg.App.Environment))

	obs := observability.New("worker-manager", cfg.Tracing)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init Zeebe Client with retry ---
	var zeebeClient zbc.Client
	err = app.RetryWithBackoff(func() error {
		client, err := camunda.Connect(ctx, cfg.Camunda)
		if err != nil {
			return err
		}
		zeebeClient = client
		return nil
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	services, err := app.Build(ctx, cfg, zapLog, obs)
	if err != nil {
		zapLog.Fatal("service initialization failed", zap.Error(err))
	}
	defer services.Close(context.Background())

	// --- Register Workers ---
	handlers := map[string]worker.JobHandler{
		gc.TaskType:  gc.NewHandler(gc.NewConfig(cfg), services.Engine, services.Rules, log).Handle,
		pfa.TaskType: pfa.NewHandler(pfa.NewConfig(cfg), services.Planner, services.Catalog, log).Handle,
		aq.TaskType:  aq.NewHandler(aq.NewConfig(cfg), services.Pipeline, log).Handle,
		ec.TaskType:  ec.NewHandler(ec.NewConfig(cfg), services.Escalator, log).Handle,
	}

	var workers []worker.JobWorker
	for _, taskType := range []string{gc.TaskType, pfa.TaskType, aq.TaskType, ec.TaskType} {
		if jw := camunda.StartWorker(zeebeClient, taskType, config.GetWorkerConfig(cfg, taskType), handlers[taskType], obs, log); jw != nil {
			workers = append(workers, jw)
		}
	}
	zapLog.Info("Workers registered", zap.Int("count", len(workers)))

	// --- Health & Metrics Server ---
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, map[string]interface{}{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		checkCtx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		status, code := "ready", http.StatusOK
		checks := map[string]string{"zeebe": "ok"}
		if err := camunda.HealthCheck(checkCtx, zeebeClient); err != nil {
			checks["zeebe"] = err.Error()
			status, code = "not_ready", http.StatusServiceUnavailable
		}
		for name, err := range services.Ready(checkCtx) {
			checks[name] = "ok"
			if err != nil {
				checks[name] = err.Error()
				status, code = "not_ready", http.StatusServiceUnavailable
			}
		}
		writeStatus(w, code, map[string]interface{}{
			"status": status,
			"checks": checks,
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              cfg.API.HealthAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, jw := range workers {
		jw.Close()
		jw.AwaitClose()
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping health server", zap.Error(err))
	}
	if err := zeebeClient.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

func writeStatus(w http.ResponseWriter, code int, body map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
