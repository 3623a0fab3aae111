package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chat-broker/auth"
	"chat-broker/domain/event"
	"chat-broker/internal"
	"chat-broker/moderation"
	"chat-broker/observability"
	"chat-broker/payment"
	"chat-broker/repositories"
	"chat-broker/runtime"
	"chat-broker/runtime/workers"
	"chat-broker/search"
	"chat-broker/services"
	"chat-broker/sink"
	"chat-broker/transport/handler"
	"chat-broker/transport/router"

	"github.com/Netflix/go-env"
	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	// The main function acts as a thin wrapper.
	// Its only responsibility is to call run() and handle the OS exit code.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Broker terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components, manages the server lifecycle, and centralizes error reporting.
// This pattern ensures all 'defer' statements (like database cleanup) execute before the program
// exits, and keeps the initialization logic testable apart from the entry point.
func run() (int, error) {
	// 1. Configuration & Logger
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	charReplacement, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return exitConfig, err
	}

	logger := logs.GetLoggerFromString(config.LogLevel)
	auth.SetSigningKey(config.JWTSecret)

	ctx := context.Background()

	// 2. Storage (BadgerDB + Bluge)
	db, err := badger.Open(buildBadgerOpts(config, logger, ctx))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		// Defer ensures the database lock is released and buffers are flushed before returning.
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	blugeCfg := bluge.DefaultConfig(config.BlugeFilepath)
	blugeWriter, err := bluge.OpenWriter(blugeCfg)
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to open bluge writer: %w", err)
	}
	defer func() {
		logger.Info("Closing Bluge...")
		_ = blugeWriter.Close()
	}()

	// 3. Moderation
	censored, err := runtime.LoadCensoredWords()
	if err != nil {
		return exitConfig, fmt.Errorf("blacklist loading failed: %w", err)
	}
	moderator, err := moderation.NewModerator(censored.Words, charReplacement)
	if err != nil {
		return exitConfig, fmt.Errorf("moderator build failed: %w", err)
	}
	logger.Info("Moderation blacklist loaded",
		"words", len(censored.Words), "languages", censored.Languages)

	// 4. Pipeline channels and coordination state
	rawEvents := make(chan event.DomainEvent, config.BufferSize)
	events := make(chan event.DomainEvent, config.BufferSize)

	presence := runtime.NewPresence(logger, events)
	membership := runtime.NewMembership(logger, events)
	billing := runtime.NewBilling(logger, events, config.WarnWindow)
	monitoring := observability.NewMonitoring()

	// 5. Repositories & search index
	messageRepository := repositories.NewMessageRepository(db, logger, config.LimitMessages)
	roomRepository := repositories.NewRoomRepository(db)
	userRepository := repositories.NewUserRepository(db)
	receiptRepository := repositories.NewReceiptRepository(db)
	mediaRepository := repositories.NewMediaRepository(db)
	index := search.NewIndex(blugeWriter, logger, config.SearchBatchSize)

	// 6. Services
	chatService := services.NewChatService(logger, membership, billing,
		roomRepository, messageRepository, receiptRepository,
		rawEvents, events, config.MaxContentLength)
	callService := services.NewCallService(logger, presence, userRepository, events)
	gateway := payment.NewDevGateway(logger)
	paymentService := services.NewPaymentService(logger, gateway, billing,
		roomRepository, userRepository, events,
		config.PaymentRetries, config.PaymentBackoff)
	authService := services.NewAuthService(userRepository, config.AuthTokenDuration)

	orchestrator := runtime.NewOrchestrator(logger, presence, membership,
		chatService, callService, paymentService)

	// 7. Workers under supervision
	fanout := workers.NewEventFanout(logger, presence, membership, events).
		Add(monitoring, sink.NewSearchSink(index, logger))
	sup := workers.NewSupervisor(logger).Add(
		workers.NewModerationWorker(moderator, rawEvents, events, logger),
		fanout,
		workers.NewPresenceSweeperWorker(logger, presence, config.PresenceTTL, config.PresenceSweepInterval),
		workers.NewHealthMonitoringWorker(logger, monitoring, config.HealthInterval),
	)

	// 8. Context & Signals
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 2)

	go func() {
		logger.Info("Starting supervised workers...")
		sup.Run(ctx)
	}()

	// 9. HTTP server (REST + WebSocket)
	r := router.New(
		handler.NewAuthHandler(logger, authService),
		handler.NewHistoryHandler(logger, chatService, index),
		handler.NewMediaHandler(logger, mediaRepository, config.MaxMediaBytes),
		handler.NewWebsocketHandler(logger, orchestrator, monitoring, config.ConnectionBufferSize),
		handler.NewHealthHandler(monitoring),
	)
	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := &http.Server{Addr: address, Handler: r}

	go func() {
		logger.Info("Starting HTTP server", "address", address, "at", time.Now().UTC())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 10. Wait for Stop or Error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errChan:
		return exitRuntime, err
	}

	// 11. Final Cleanup (Graceful Shutdown)
	logger.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", "error", err)
	}
	sup.Stop()
	if err := index.Flush(); err != nil {
		logger.Warn("Search index flush failed", "error", err)
	}
	if err := messageRepository.Close(); err != nil {
		logger.Warn("Sequence release failed", "error", err)
	}
	logger.Info("Program stopped cleanly")

	return exitOK, nil
}

func buildBadgerOpts(config internal.Config, logger *slog.Logger, ctx context.Context) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)

	if logger.Enabled(ctx, slog.LevelDebug) {
		options = options.WithLoggingLevel(badger.DEBUG).
			WithBypassLockGuard(true)
	} else {
		options = options.WithLoggingLevel(badger.INFO)
	}

	return options
}
