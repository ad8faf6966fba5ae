package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"raffle/internal/config"
	"raffle/internal/database"
	"raffle/internal/events"
	"raffle/internal/handlers"
	"raffle/internal/repository"
	"raffle/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"
)

func main() {
	exitCode := 0
	defer func() {
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	}()

	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// 2. Initialize logging
	logOut := io.Discard
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			logger.Fatalf("Failed to open log file: %v", err)
		}
		defer f.Close()
		logOut = f
	}
	defer logger.Init("raffle", cfg.Verbose, false, logOut).Close()

	// 3. Open the store
	store, closeStore, err := openStore(cfg)
	if err != nil {
		logger.Fatalf("Failed to open store: %v", err)
	}
	defer closeStore()

	// 4. Connect the event publisher, if configured
	var publisher services.Publisher
	if cfg.AMQPURL != "" {
		p, err := events.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			logger.Fatalf("Failed to connect event publisher: %v", err)
		}
		defer p.Close()
		publisher = p
		logger.Infof("Publishing raffle events to exchange %s", cfg.AMQPExchange)
	}

	// 5. Initialize the Raffle Service and HTTP Handler
	raffleService := services.NewRaffleService(store, publisher)
	httpHandler := handlers.NewHTTPHandler(raffleService)

	// 6. Set up the Gin router
	r := gin.Default()
	httpHandler.RegisterRoutes(r)

	// 7. Run the server until interrupted
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Infof("Server starting on %s", cfg.HTTPAddr)
	if err := serve(ctx, srv, cfg.ShutdownTimeout); err != nil {
		// Log and return so the deferred closes still run.
		logger.Errorf("Failed to run server: %v", err)
		exitCode = 1
		return
	}
	logger.Info("Server stopped")
}

// serve runs srv until ctx is done, then shuts it down within timeout.
// A listen failure is returned instead of ending the process.
func serve(ctx context.Context, srv *http.Server, timeout time.Duration) error {
	serveErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// openStore returns the configured store and a function releasing it.
func openStore(cfg config.Config) (services.Store, func(), error) {
	if cfg.DBDriver == config.DriverMemory {
		logger.Info("Using in-memory store; data is lost on restart")
		return repository.NewMemoryStore(), func() {}, nil
	}

	db, err := database.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return nil, nil, err
	}
	store := repository.NewGormStore(db)
	if err := store.Migrate(); err != nil {
		_ = database.Close(db)
		return nil, nil, err
	}
	return store, func() {
		if err := database.Close(db); err != nil {
			logger.Errorf("Closing database: %v", err)
		}
	}, nil
}
