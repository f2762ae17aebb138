package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/mudouban/ai-asks-human/backend/internal/config"
	"github.com/mudouban/ai-asks-human/backend/internal/handler"
	chatHandler "github.com/mudouban/ai-asks-human/backend/internal/handler/chat"
	"github.com/mudouban/ai-asks-human/backend/internal/model/scenario"
	"github.com/mudouban/ai-asks-human/backend/internal/service/conversation"
	"github.com/mudouban/ai-asks-human/backend/internal/service/relay"
	"github.com/mudouban/ai-asks-human/backend/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	scenarioStore := scenario.NewMemoryStore(scenario.Seed())

	var conversationStore store.Store
	fileStore, err := store.NewFileStore(cfg.Store.Dir, cfg.Store.MaxConversations)
	if err != nil {
		log.Printf("warning: failed to open conversation store: %v", err)
		log.Println("continuing with in-memory conversations only")
		conversationStore = store.NewMemoryStore(cfg.Store.MaxConversations)
	} else {
		conversationStore = fileStore
	}

	var relaySvc *relay.Service
	if cfg.AI.Enabled() {
		relaySvc, err = relay.NewService(ctx, cfg.AI)
		if err != nil {
			log.Printf("warning: failed to initialize model relay: %v", err)
			log.Println("continuing without model functionality - 请检查 AI_* 环境变量")
		} else {
			log.Println("model relay initialized successfully")
		}
	} else {
		log.Println("模型凭证未配置，跳过 AI 功能初始化")
	}

	var relayForController conversation.Relay
	var relayForHandler chatHandler.Relay
	if relaySvc != nil {
		relayForController = relaySvc
		relayForHandler = relaySvc
	}

	conversationSvc := conversation.NewService(scenarioStore, conversationStore, relayForController)

	router := handler.NewRouter(scenarioStore, relayForHandler, conversationSvc)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("ai-asks-human backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
