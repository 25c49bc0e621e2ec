// cmd/scheduler/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"taskhub-notifier/internal/channels"
	"taskhub-notifier/internal/common/config"
	"taskhub-notifier/internal/common/database"
	"taskhub-notifier/internal/common/logger"
	"taskhub-notifier/internal/common/observability"
	"taskhub-notifier/internal/dedup"
	"taskhub-notifier/internal/notification"
	"taskhub-notifier/internal/reminder"
	"taskhub-notifier/internal/scheduler"
	"taskhub-notifier/internal/store"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		zapBoot := logger.New("info", "console")
		zapBoot.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting reminder scheduler...",
		zap.String("app", cfg.App.Name),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New("reminder-scheduler")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Dedup ledger, Redis only when configured ---
	var ledger dedup.Ledger
	var redisClient *database.RedisClient
	if cfg.Dedup.Backend == "redis" {
		err = retryWithBackoff(func() error {
			var err error
			redisClient, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return redisClient.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer redisClient.Close()
		zapLog.Info("Redis connected successfully")

		ledger = dedup.NewRedisLedger(redisClient.Client, cfg.Dedup.RetentionDays, log)
	} else {
		ledger = dedup.NewMemoryLedger()
	}
	zapLog.Info("Dedup ledger ready", zap.String("backend", cfg.Dedup.Backend))

	// --- Channel adapters ---
	adapters := []channels.Adapter{
		channels.NewWhatsAppAdapter(cfg.Channels.WhatsApp, log),
		channels.NewEmailAdapter(ctx, cfg.Channels.Email, log),
		channels.NewPushAdapter(ctx, cfg.Channels.Push, log),
	}
	for _, a := range adapters {
		zapLog.Info("Channel adapter initialized",
			zap.String("channel", a.Name()),
			zap.Bool("available", a.Available()),
		)
	}

	dispatcher := notification.NewDispatcher(adapters, log)
	tasks := store.NewTaskStore(pg.DB)
	users := store.NewUserStore(pg.DB)

	orchestrator := reminder.New(tasks, users, dispatcher, ledger, cfg.Dedup.RetentionDays, obs, log)

	// --- Scheduler ---
	sched, err := scheduler.New(cfg.Schedule, scheduler.Hooks{
		DailyDigest: func(ctx context.Context, slot string) {
			orchestrator.RunDailyDigest(ctx, slot)
		},
		HourlySweep: orchestrator.RunHourlySweep,
		WeeklyReport: func(ctx context.Context) {
			orchestrator.RunWeeklyReport(ctx)
		},
	}, log)
	if err != nil {
		zapLog.Fatal("scheduler setup failed", zap.Error(err))
	}

	sched.Start()
	zapLog.Info("All timers armed", zap.Strings("timers", sched.TimerNames()))

	// --- Ops & Trigger Server ---
	go func() {
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{
				"status": "healthy",
				"time":   time.Now().Format(time.RFC3339),
			})
		})

		http.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			if err := pg.Ping(r.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status": "not ready",
					"error":  err.Error(),
				})
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{
				"status": "ready",
				"time":   time.Now().Format(time.RFC3339),
			})
		})

		http.Handle("/metrics", promhttp.Handler())

		http.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
			status := map[string]interface{}{
				"scheduler": sched.Status(),
				"channels":  dispatcher.ChannelStatuses(),
				"dedup": map[string]interface{}{
					"backend": cfg.Dedup.Backend,
					"records": ledgerSize(ledger),
				},
			}
			writeJSON(w, http.StatusOK, status)
		})

		// Manual triggers for support and smoke tests. The dedup ledger
		// makes them safe to fire while the timers are armed.
		http.HandleFunc("/trigger/digest", func(w http.ResponseWriter, r *http.Request) {
			slot := r.URL.Query().Get("slot")
			if _, ok := cfg.Schedule.Slots[slot]; !ok {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown slot"})
				return
			}
			stats, err := orchestrator.RunDailyDigest(r.Context(), slot)
			writeRunResult(w, stats, err)
		})
		http.HandleFunc("/trigger/deadline", func(w http.ResponseWriter, r *http.Request) {
			stats, err := orchestrator.RunDeadlineSweep(r.Context())
			writeRunResult(w, stats, err)
		})
		http.HandleFunc("/trigger/overdue", func(w http.ResponseWriter, r *http.Request) {
			stats, err := orchestrator.RunOverdueSweep(r.Context())
			writeRunResult(w, stats, err)
		})
		http.HandleFunc("/trigger/weekly-report", func(w http.ResponseWriter, r *http.Request) {
			stats, err := orchestrator.RunWeeklyReport(r.Context())
			writeRunResult(w, stats, err)
		})

		http.HandleFunc("/notify/custom", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "POST only"})
				return
			}
			userID := r.URL.Query().Get("user")
			if userID == "" {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user query parameter required"})
				return
			}
			payload, err := io.ReadAll(io.LimitReader(r.Body, 64*1024))
			if err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
				return
			}
			result, err := orchestrator.SendCustom(r.Context(), userID, payload)
			if err != nil {
				writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
				return
			}
			writeJSON(w, http.StatusOK, result)
		})

		http.HandleFunc("/dedup/snapshot", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, orchestrator.DedupSnapshot())
		})
		http.HandleFunc("/dedup/clear", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "POST only"})
				return
			}
			orchestrator.ClearDedupRecords()
			writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
		})

		zapLog.Info("Ops server listening", zap.String("address", cfg.Server.Address))
		if err := http.ListenAndServe(cfg.Server.Address, nil); err != nil {
			zapLog.Error("Ops server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping scheduler...")
	sched.Stop()
	zapLog.Info("Scheduler shut down cleanly")
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeRunResult(w http.ResponseWriter, stats interface{}, err error) {
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"error": err.Error(),
			"stats": stats,
		})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func ledgerSize(l dedup.Ledger) int {
	if sized, ok := l.(interface{ Size() int }); ok {
		return sized.Size()
	}
	return -1
}
