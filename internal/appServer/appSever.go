package appServer

import (
	"context"
	"crypto/tls"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ds124wfegd/tablebooker/config"
	"github.com/ds124wfegd/tablebooker/internal/database/memory"
	repository "github.com/ds124wfegd/tablebooker/internal/database/postgres"
	redislock "github.com/ds124wfegd/tablebooker/internal/database/redis"
	"github.com/ds124wfegd/tablebooker/internal/service"
	"github.com/ds124wfegd/tablebooker/internal/transport"
	"github.com/ds124wfegd/tablebooker/internal/worker"
	"github.com/ds124wfegd/tablebooker/pkg/events"
	"github.com/ds124wfegd/tablebooker/pkg/postgres"
	"github.com/ds124wfegd/tablebooker/pkg/redis"

	"github.com/gin-gonic/gin"
	goredis "github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

type Server struct {
	httpServer *http.Server
}

func NewHTTPServer(cfg *config.Config, handler http.Handler) *Server {
	return &Server{httpServer: &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:           handler,
		MaxHeaderBytes:    1 << 20,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 3 * time.Second,
		TLSConfig:         &tls.Config{MinVersion: tls.VersionTLS12},
		ErrorLog:          log.New(os.Stderr, "SERVER ERROR: ", log.LstdFlags),
	}}
}

func (s *Server) Run() error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// setupLogger настраивает logrus по конфигу
func setupLogger(cfg config.LogConfig) {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		logrus.WithField("level", cfg.Level).Warn("Unknown log level, using info")
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}

// initStorage returns the repository set for storage.driver plus its closer
func initStorage(ctx context.Context, cfg *config.Config) (*repository.Repository, func(), error) {
	if cfg.Storage.Driver == "memory" {
		logrus.Warn("Using in-memory storage, data is lost on restart")
		return memory.NewStore().Repository(), func() {}, nil
	}

	db, err := postgres.NewPostgresDB(&cfg.Database)
	if err != nil {
		return nil, nil, err
	}

	// Run database migrations
	if err := postgres.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, nil, err
	}

	return repository.NewRepository(db), func() { db.Close() }, nil
}

// initRedis returns nil when Redis is disabled or unreachable
func initRedis(ctx context.Context, cfg *config.Config) *goredis.Client {
	if !cfg.Redis.Enabled {
		logrus.Info("Redis disabled, slot locks are process local")
		return nil
	}

	client, err := redis.NewRedisClient(ctx, &cfg.Redis)
	if err != nil {
		logrus.WithError(err).Warn("Redis unavailable, slot locks are process local")
		return nil
	}
	return client
}

// initLocker prefers the Redis lock so several instances share one slot lock
func initLocker(client *goredis.Client, cfg *config.Config) service.SlotLocker {
	if client == nil {
		return memory.NewKeyedLocker()
	}

	logrus.Info("Redis slot lock initialized")
	return redislock.NewSlotLock(client, cfg.Allocation.LockTTL)
}

func NewServer(cfg *config.Config) {
	setupLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	repo, closeStorage, err := initStorage(ctx, cfg)
	if err != nil {
		logrus.Fatalf("Failed to initialize storage: %v", err)
	}
	defer closeStorage()

	redisClient := initRedis(ctx, cfg)
	if redisClient != nil {
		defer redisClient.Close()
	}
	locker := initLocker(redisClient, cfg)

	broker := events.NewPublisher(ctx, cfg.Events)
	defer func() {
		if err := broker.Close(); err != nil {
			logrus.WithError(err).Error("Failed to close event publisher")
		}
	}()

	publisher := broker
	var deadLetter *events.DeadLetter
	var replayWorker *worker.EventReplayWorker
	if redisClient != nil {
		deadLetter = events.NewDeadLetter(redisClient, cfg.Events.DeadLetterKey)
		publisher = events.WithDeadLetter(broker, deadLetter)
		replayWorker = worker.NewEventReplayWorker(deadLetter, broker, cfg.Events.ReplayInterval, cfg.Events.ReplayBatch)
	}

	// Initialize services
	services := service.NewService(repo, locker, publisher, cfg)

	if cfg.Server.Mode == "release" || cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	handlers := transport.NewHandlers(services)
	if deadLetter != nil {
		handlers.WithDeadLetter(deadLetter)
	}
	router := transport.InitRoutes(handlers, cfg)

	expiryWorker := worker.NewPendingExpiryWorker(services.Bookings, cfg.Booking.CleanupInterval)

	srv := NewHTTPServer(cfg, router)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Run()
	})
	g.Go(func() error {
		return expiryWorker.Start(gctx)
	})
	if replayWorker != nil {
		g.Go(func() error {
			return replayWorker.Start(gctx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logrus.Print("App Shutting Down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	logrus.WithField("addr", net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)).Print("App Started")

	if err := g.Wait(); err != nil {
		logrus.Errorf("error occured while running http server: %s", err.Error())
	}
}
