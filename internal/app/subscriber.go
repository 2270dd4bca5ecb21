package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"smartdate/internal/broker"
	"smartdate/internal/cache"
	"smartdate/internal/config"
	"smartdate/internal/logger"
	"smartdate/internal/repository"
	"smartdate/internal/repository/csvlog"
	"smartdate/internal/repository/mongo"
	"smartdate/internal/repository/sqlite"
	"smartdate/internal/route"
	"smartdate/internal/service/consumer"
	"smartdate/internal/service/storage"
	"smartdate/internal/service/websocket"

	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

// Subscriber receives detection events from the broker, logs them and
// serves the HTTP API.
type Subscriber struct {
	config        *config.Config
	logger        *logger.Logger
	broker        *broker.Client
	consumer      *consumer.Consumer
	history       repository.DetectionRepository
	mirrors       []repository.DetectionRepository
	cache         repository.LatestCache
	bufferService *storage.BufferService
	hubService    *websocket.HubService
	server        *http.Server
}

// NewSubscriber opens the configured stores. Optional stores that cannot be
// reached are disabled with a warning.
func NewSubscriber(ctx context.Context, cfg *config.Config, logger *logger.Logger) (*Subscriber, error) {
	s := &Subscriber{
		config:     cfg,
		logger:     logger,
		broker:     broker.NewClient(cfg.Broker, "subscriber", logger),
		hubService: websocket.NewHubService(logger),
	}

	if cfg.Store.SQLitePath != "" {
		db, err := sqlite.New(cfg.Store.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open history store: %w", err)
		}
		repo := sqlite.NewDetectionRepository(db)
		s.history = repo
		s.mirrors = append(s.mirrors, repo)
		logger.Info("🗄️ History store: %s", cfg.Store.SQLitePath)
	}

	if cfg.Store.UseMongo {
		repo, err := mongo.Connect(ctx, cfg.Store.MongoURI, cfg.Store.MongoDB, cfg.Store.MongoCollection)
		if err != nil {
			logger.Warning("⚠️ MongoDB unavailable, mirror disabled: %v", err)
		} else {
			s.mirrors = append(s.mirrors, repo)
			if s.history == nil {
				s.history = repo
			}
			logger.Info("🍃 MongoDB mirror: %s.%s", cfg.Store.MongoDB, cfg.Store.MongoCollection)
		}
	}

	s.cache = s.openCache(ctx)

	opts := []consumer.Option{
		consumer.WithMirrors(s.mirrors...),
		consumer.WithCache(s.cache),
		consumer.WithBroadcaster(s.hubService),
		consumer.WithNoneInterval(cfg.Consumer.NoneLogInterval),
	}
	if cfg.Store.ImageDirectory != "" {
		s.bufferService = storage.NewBufferService(cfg.Store.ImageDirectory, cfg.Store.ImageBufferLimit, logger)
		opts = append(opts, consumer.WithSnapshots(s.bufferService))
	}
	s.consumer = consumer.New(csvlog.NewTable(cfg.Consumer.CSVPath), logger, opts...)

	deps := route.Deps{
		Config:  cfg,
		Logger:  logger,
		Broker:  s.broker,
		Cache:   s.cache,
		History: s.history,
		Hub:     s.hubService,
	}
	if s.bufferService != nil {
		deps.Snapshots = s.bufferService
	}
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: route.SetupRoutes(deps),
	}

	return s, nil
}

func (s *Subscriber) openCache(ctx context.Context) repository.LatestCache {
	if s.config.Store.RedisAddr == "" {
		return cache.NewMemoryCache()
	}

	rc := cache.NewRedisCache(cache.Options{
		Address:  s.config.Store.RedisAddr,
		Password: s.config.Store.RedisPassword,
		DB:       s.config.Store.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rc.Ping(pingCtx); err != nil {
		s.logger.Warning("⚠️ Redis unavailable, using in-memory latest cache: %v", err)
		rc.Close()
		return cache.NewMemoryCache()
	}
	s.logger.Info("🧠 Latest cache: redis %s", s.config.Store.RedisAddr)
	return rc
}

// Run connects to the broker and serves until ctx is cancelled or a
// component fails. A broker connect failure is returned immediately.
func (s *Subscriber) Run(ctx context.Context) error {
	if err := s.broker.Connect(ctx); err != nil {
		return err
	}
	if err := s.broker.Subscribe(s.consumer.OnMessage); err != nil {
		s.broker.Disconnect()
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return s.hubService.Run(gctx) })
	if s.bufferService != nil {
		g.Go(func() error { return s.bufferService.Run(gctx, s.config.Store.FlushInterval) })
	}

	g.Go(func() error {
		s.logger.Info("🚀 SmartDate subscriber")
		s.logger.Info("📍 URL: http://localhost%s", s.server.Addr)
		s.logger.Info("📝 CSV log: %s", s.config.Consumer.CSVPath)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve http: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.broker.Disconnect()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	stats := s.consumer.Stats()
	s.logger.Info("🛑 Subscriber stopped: accepted=%d throttled=%d malformed=%d failed=%d",
		stats.Accepted, stats.Throttled, stats.Malformed, stats.Failed)
	return err
}

// Close releases the stores.
func (s *Subscriber) Close() error {
	var errs []error
	for _, m := range s.mirrors {
		errs = append(errs, m.Close())
	}
	if s.cache != nil {
		errs = append(errs, s.cache.Close())
	}
	return errors.Join(errs...)
}
