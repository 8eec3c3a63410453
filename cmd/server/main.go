package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chat-realtime/internal/auth"
	"chat-realtime/internal/config"
	"chat-realtime/internal/database"
	"chat-realtime/internal/handlers"
	"chat-realtime/internal/presence"
	"chat-realtime/internal/services"
	"chat-realtime/internal/websocket"
	"chat-realtime/pkg/logger"

	"golang.org/x/sync/errgroup"
)

func main() {
	// Load configuration
	cfg := config.Load()
	logger.Init(logger.Config{
		Level:       cfg.Log.Level,
		Pretty:      cfg.Log.Pretty,
		ServiceName: "chat-realtime",
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := database.NewPostgresDB(cfg.Database.URL)
	if err != nil {
		logger.Fatal("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		logger.Fatal("Failed to migrate database: %v", err)
	}

	store, err := presence.NewStore(cfg, db)
	if err != nil {
		logger.Fatal("Failed to create presence store: %v", err)
	}
	if c, ok := store.(io.Closer); ok {
		defer c.Close()
	}

	verifier, err := auth.NewVerifier(cfg)
	if err != nil {
		logger.Fatal("Failed to create token verifier: %v", err)
	}

	// Initialize services
	chatService := services.NewChatService(db)
	messageService := services.NewMessageService(db, db)
	presenceService := services.NewPresenceService(store)

	gateway := websocket.NewGateway(verifier, chatService, messageService, presenceService, cfg.WebSocket)
	chatService.SetNotifier(gateway)

	// Initialize handlers
	router := handlers.Router{
		Chats:      handlers.NewChatHandlers(chatService, verifier),
		Presence:   handlers.NewPresenceHandlers(presenceService, verifier),
		WebSocket:  handlers.NewWebSocketHandlers(gateway, verifier),
		CORSOrigin: cfg.Server.CORSOrigin,
	}

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      router.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Server started on %s (auth=%s, presence=%s)", cfg.Server.Port, cfg.Auth.Provider, cfg.Presence.Backend)
		for _, e := range handlers.Endpoints() {
			logger.Info("   %s", e)
		}
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Server shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		// Sockets are hijacked, so server.Shutdown does not wait for them.
		// Their close sequences write presence, which needs the store and
		// the database that main closes on return.
		if err := gateway.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Gateway shutdown incomplete: %v", err)
		}
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error: %v", err)
		os.Exit(1)
	}
	logger.Info("Server stopped")
}
