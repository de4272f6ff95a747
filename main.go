package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"shopfront/internal/api"
	"shopfront/internal/backup"
	"shopfront/internal/config"
	"shopfront/internal/docstore"
	"shopfront/internal/session"
	"shopfront/internal/shop"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, nil)))

	cfg := config.Load()

	// 1. Open the document store backing the whole shop.
	db, err := docstore.Open(cfg.DataDir)
	if err != nil {
		slog.Error("Fatal error opening data directory", "error", err)
		os.Exit(1)
	}

	// 2. Wire the shop services and seed a usable store.
	shopServices := shop.New(db)
	if _, err := shopServices.Settings.Get(); err != nil {
		slog.Error("Fatal error seeding store settings", "error", err)
		os.Exit(1)
	}
	if err := shopServices.Users.EnsureAdmin(cfg.DefaultAdminEmail, cfg.DefaultAdminPassword); err != nil {
		slog.Error("Fatal error seeding admin user", "error", err)
		os.Exit(1)
	}

	// 3. Session manager with its expiry sweeper.
	sessions := session.NewManager(cfg.SessionTTL, cfg.SessionSweepInterval)
	sessions.Start()
	defer sessions.Stop()

	// 4. Periodic backups, if enabled.
	if cfg.EnableBackups {
		backups := backup.NewManager(db, cfg.BackupDir, cfg.BackupInterval, cfg.BackupRetention)
		backups.Start()
		defer backups.Stop()
	}

	// 5. HTTP routes behind the logging middleware.
	handlers := api.NewHandlers(shopServices, sessions)
	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      api.LogRequest(handlers.Routes()),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	// 6. Start the HTTP server in a goroutine to not block main thread.
	go func() {
		slog.Info("Server listening", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Could not start server", "error", err)
			os.Exit(1)
		}
	}()

	// 7. Graceful shutdown on interrupt or termination.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	slog.Info("Termination signal received. Attempting graceful shutdown...")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server gracefully stopped.")
	}
}
