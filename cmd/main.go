// talentflow-approval-service
//
// Hiring-approval state machine for candidates. Exposes a REST API
// implementing:
//   - approval-decision / verification-decision — token-gated stage transitions
//   - salary-decision                           — salary verification sub-flow
//   - verification-data                         — read-only salary projection
//   - hiring-flows                              — create flow, request verification
//
// Every recorded decision publishes EVENT_DECISION_RECORDED to Redis for the
// Gateway SSE forward. Expired approval tokens are swept on a cron schedule.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"talentflow/approval-service/internal/config"
	"talentflow/approval-service/internal/db"
	"talentflow/approval-service/internal/hiringflow"
	"talentflow/approval-service/internal/httpapi"
	"talentflow/approval-service/internal/notify"
	"talentflow/approval-service/internal/store"
	"talentflow/approval-service/internal/sweeper"
)

const version = "1.0.0"

func main() {
	// ── Config ──────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[approval-service] Config error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── PostgreSQL ───────────────────────────────────────────────────────────
	log.Println("[approval-service] Connecting to PostgreSQL…")
	pool, err := db.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("[approval-service] PostgreSQL: %v", err)
	}
	defer pool.Close()
	log.Println("[approval-service] PostgreSQL connected ✓")

	// ── Redis ────────────────────────────────────────────────────────────────
	log.Println("[approval-service] Connecting to Redis…")
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatalf("[approval-service] Redis: %v", err)
	}
	defer rdb.Close()
	log.Println("[approval-service] Redis connected ✓")

	// ── Wiring ───────────────────────────────────────────────────────────────
	flows := store.NewPostgresFlowStore(pool)
	tokens := store.NewPostgresTokenStore(pool)

	var sender notify.Sender = notify.LogSender{}
	if cfg.ResendAPIKey != "" {
		sender = notify.NewResendSender(cfg.ResendAPIKey, cfg.MailFrom)
	}
	dispatcher := notify.NewDispatcher(tokens, sender, cfg.BaseURL, cfg.TokenTTL)

	svc := hiringflow.NewService(flows, tokens, dispatcher, db.NewRedisPublisher(rdb))

	// ── Token sweeper ────────────────────────────────────────────────────────
	sw := sweeper.New(tokens, cfg.SweepIntervalHours)
	if err := sw.Start(ctx); err != nil {
		log.Fatalf("[approval-service] Sweeper: %v", err)
	}
	defer sw.Stop()

	// ── HTTP server ──────────────────────────────────────────────────────────
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)

	h := httpapi.NewHandler(svc)
	h.RegisterRoutes(mux)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("[approval-service] v%s listening on :%s", version, cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[approval-service] HTTP server error: %v", err)
		}
	}()

	// ── Graceful shutdown ────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[approval-service] Shutting down…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[approval-service] Shutdown error: %v", err)
	}
	log.Println("[approval-service] Stopped.")
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"service": "approval-service",
		"version": version,
	})
}
