// cmd/reasonspace — 会话核心 + 伴随面板主入口。
package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/multi-agent/reasonspace/internal/config"
	"github.com/multi-agent/reasonspace/internal/database"
	"github.com/multi-agent/reasonspace/internal/panel"
	"github.com/multi-agent/reasonspace/internal/store"
	"github.com/multi-agent/reasonspace/internal/stream"
	"github.com/multi-agent/reasonspace/internal/workspace"
	"github.com/multi-agent/reasonspace/pkg/logger"
	"github.com/multi-agent/reasonspace/pkg/util"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg := config.Load()
	logger.Init(cfg.LogLevel)
	if cfg.LogDir != "" {
		if err := logger.InitWithFile(cfg.LogDir); err != nil {
			logger.Warn("file logging unavailable", logger.FieldError, err)
		}
		defer logger.ShutdownFileHandler()
	}

	// 持久层可选: 未配置连接串时纯内存运行。
	var (
		messages *store.MessageStore
		threads  *store.ThreadStore
		briefs   *store.BriefStore
	)
	if cfg.PostgresConnStr != "" {
		pool, err := database.NewPool(ctx, cfg)
		if err != nil {
			logger.Fatal("database init failed", logger.Any(logger.FieldError, err))
		}
		defer pool.Close()

		if err := database.Migrate(ctx, pool, "./migrations"); err != nil {
			logger.Fatal("migration failed", logger.Any(logger.FieldError, err))
		}

		messages = store.NewMessageStore(pool)
		threads = store.NewThreadStore(pool)
		briefs = store.NewBriefStore(pool)
	} else {
		logger.Info("no postgres connection string, running in-memory")
	}

	streamer := stream.NewClient(cfg.AgentStreamURL)
	bus := panel.NewEventBus()
	hub := workspace.NewHub(cfg, streamer, storeOrNilMessages(messages), storeOrNilThreads(threads), bus)
	srv := panel.NewServer(cfg, hub, bus, messages, threads, briefs)

	logger.Info("panel starting",
		logger.FieldListen, cfg.PanelListenAddr,
		logger.FieldURL, cfg.AgentStreamURL,
	)
	util.SafeGo(func() {
		if err := srv.Engine().Run(cfg.PanelListenAddr); err != nil {
			logger.Fatal("panel server failed", logger.Any(logger.FieldError, err))
		}
	})

	<-ctx.Done()
	logger.Info("shutting down")
}

// 具体 store 为 nil 时必须传 nil 接口, 避免非 nil 接口包裹 nil 指针。
func storeOrNilMessages(s *store.MessageStore) workspace.MessageStore {
	if s == nil {
		return nil
	}
	return s
}

func storeOrNilThreads(s *store.ThreadStore) workspace.ThreadStore {
	if s == nil {
		return nil
	}
	return s
}
