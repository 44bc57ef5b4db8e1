// RepStack desktop dev harness: runs the full local-first engine behind
// a localhost HTTP server so sync behavior can be exercised without a
// mobile shell.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/repstack/backend/cmd/desktop/handlers"
	"github.com/repstack/backend/internal/config"
	"github.com/repstack/backend/internal/connectivity"
	"github.com/repstack/backend/internal/db"
	"github.com/repstack/backend/internal/logging"
	"github.com/repstack/backend/internal/services"
	syncpkg "github.com/repstack/backend/internal/sync"
	"github.com/repstack/backend/internal/sync/queue"
	"github.com/repstack/backend/internal/sync/scheduler"
	"github.com/repstack/backend/internal/telemetry"
)

func main() {
	cfg, err := config.LoadWithDotenv(".env")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logging.Init(os.Stdout, logging.LogLevel(cfg.LogLevel))
	if cfg.TelemetryEnabled {
		telemetry.Enable()
	}

	database, err := db.Open(cfg.DataDir)
	if err != nil {
		logging.Error("Failed to open database", err, nil)
		os.Exit(1)
	}
	defer database.Close()

	migrator := db.NewMigrator(database.DB)
	if err := migrator.Initialize(); err != nil {
		logging.Error("Failed to initialize migrations", err, nil)
		os.Exit(1)
	}
	if err := migrator.Up(); err != nil {
		logging.Error("Failed to apply migrations", err, nil)
		os.Exit(1)
	}

	repo := db.NewRepository(database.DB)
	defer repo.Close()

	q := queue.New(database.DB, queue.Options{
		MaxAttempts: cfg.MaxAttempts,
		BackoffBase: cfg.BackoffBase,
		BackoffCap:  cfg.BackoffCap,
	})
	checker := connectivity.NewProbeChecker(cfg.ConnectivityProbeURL, cfg.ConnectivityTimeout)
	endpoint := syncpkg.NewHTTPEndpoint(cfg.SyncEndpointURL, cfg.SyncTimeout)
	dispatcher := syncpkg.NewDispatcher(checker, endpoint, q, cfg.SyncTimeout)

	wsHub := NewWSHub()
	drainer := syncpkg.NewDrainer(q, checker, endpoint, cfg.DrainBatchSize, wsHub)
	sched := scheduler.New(drainer, &scheduler.Config{DrainInterval: cfg.DrainInterval})

	folderSvc := services.NewFolderService(repo, dispatcher)
	prefsSvc := services.NewPreferencesService(repo, dispatcher, cfg.PrefsDebounce)
	defer prefsSvc.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sched.Start(ctx)
	defer sched.Stop()

	syncHandler := handlers.NewSyncHandler(q, sched)
	syncHandler.SetWebSocketHub(wsHub)
	folderHandler := handlers.NewFolderHandler(folderSvc)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintln(w, `{"status":"ok"}`)
	})
	mux.HandleFunc("/ws", HandleWebSocket(wsHub))
	mux.HandleFunc("/sync/status", syncHandler.GetStatus)
	mux.HandleFunc("/sync/queue", syncHandler.GetQueue)
	mux.HandleFunc("/sync/dead-letters", syncHandler.GetDeadLetters)
	mux.HandleFunc("/sync/dead-letters/retry", syncHandler.RetryDeadLetters)
	mux.HandleFunc("/sync/drain", syncHandler.DrainNow)
	mux.HandleFunc("/sync/network", syncHandler.SetNetwork)
	mux.HandleFunc("/folders", folderHandler.Handle)
	mux.HandleFunc("/folders/", folderHandler.Handle)

	server := &http.Server{
		Addr:    fmt.Sprintf("localhost:%d", cfg.DesktopPort),
		Handler: mux,
	}

	go func() {
		logging.Info("Desktop harness listening",
			map[string]interface{}{"addr": server.Addr})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Error("HTTP server failed", err, nil)
			stop()
		}
	}()

	<-ctx.Done()
	logging.Info("Shutting down", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Error("HTTP shutdown failed", err, nil)
	}

	prefsSvc.Flush()
	dispatcher.Wait()
}
