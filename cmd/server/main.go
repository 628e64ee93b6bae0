package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/Mun1z/Imgeneus/internal/catalog"
	"github.com/Mun1z/Imgeneus/internal/config"
	"github.com/Mun1z/Imgeneus/internal/domain"
	"github.com/Mun1z/Imgeneus/internal/engine"
	"github.com/Mun1z/Imgeneus/internal/infrastructure/storage"
	"github.com/Mun1z/Imgeneus/internal/infrastructure/storage/sqlite"
	"github.com/Mun1z/Imgeneus/internal/network"
	"github.com/Mun1z/Imgeneus/internal/persist"
	"github.com/Mun1z/Imgeneus/internal/server"
	"github.com/Mun1z/Imgeneus/internal/version"
	"github.com/Mun1z/Imgeneus/pkg/logger"
)

func init() {
	logger.Init()
}

func main() {
	if err := run(); err != nil {
		logger.Log.WithError(err).Fatal("Shard stopped with error")
	}
	logger.Log.Info("Done.")
}

func run() error {
	// 1. Парсинг конфигурации
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	var mobs int
	flag.StringVar(&cfg.CatalogDir, "catalog", cfg.CatalogDir, "Directory with items.yaml and skills.yaml")
	flag.IntVar(&mobs, "mobs", 0, "Number of training mobs to spawn")
	flag.Parse()

	logger.Log.Info("Starting shard...")
	logger.Log.Info(version.String())

	// 2. Справочник и хранилище
	cat, err := catalog.Load(cfg.CatalogDir)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Log.WithError(err).Warn("Store close failed")
		}
	}()

	// Недописанное в прошлый раз - первым делом.
	if n, err := storage.Replay(context.Background(), cfg.JournalPath, store); err != nil {
		return err
	} else if n > 0 {
		logger.Log.WithField("entries", n).Info("Pending writes recovered from journal")
	}

	journal := storage.NewJournal(cfg.JournalPath)
	defer func() {
		if err := journal.Close(); err != nil {
			logger.Log.WithError(err).Warn("Journal close failed")
		}
	}()

	queue := persist.NewQueue(store, journal, persist.QueueConfig{
		CriticalCapacity:   cfg.CriticalQueueSize,
		BestEffortCapacity: cfg.BestEffortQueueSize,
		RetryInitial:       cfg.RetryInitial,
		RetryMax:           cfg.RetryMax,
	})

	// 3. Инициализация ядра
	engineCfg := engine.NewConfig()
	engineCfg.ShardID = cfg.ShardID
	engineCfg.MailboxSize = cfg.MailboxSize
	engineCfg.BuffExpiryInterval = cfg.BuffExpiryInterval

	hub := network.NewBroadcaster()
	gameService := engine.NewService(engineCfg, cat, store, queue, hub)

	for i := range mobs {
		_, err := gameService.SpawnMob(domain.Profile{
			Name:      fmt.Sprintf("Training Dummy %d", i+1),
			Level:     1,
			HP:        500,
			SP:        50,
			MP:        50,
			MoveSpeed: 1,
		})
		if err != nil {
			return err
		}
	}

	srv := server.New(gameService, queue, cfg.Port)

	// Graceful Shutdown
	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Очередь живёт дольше движка: выгрузка персонажей пишет в неё.
	queueCtx, stopQueue := context.WithCancel(context.Background())
	defer stopQueue()

	g, gctx := errgroup.WithContext(sigCtx)

	g.Go(func() error {
		return queue.Run(queueCtx)
	})
	g.Go(func() error {
		defer stopQueue()
		return gameService.Run(gctx, cfg.ShutdownTimeout)
	})
	g.Go(func() error {
		return srv.Run(gctx, cfg.ShutdownTimeout)
	})

	err = g.Wait()
	logger.Log.WithField("stats", queue.Stats()).Info("Shutting down...")
	return err
}
