package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/rl1809/inventory-api/internal/adapter/handler"
	"github.com/rl1809/inventory-api/internal/adapter/messaging"
	"github.com/rl1809/inventory-api/internal/adapter/storage"
	"github.com/rl1809/inventory-api/internal/config"
	"github.com/rl1809/inventory-api/internal/core/repository"
	"github.com/rl1809/inventory-api/internal/core/service"
	"github.com/rl1809/inventory-api/internal/port"
)

// App owns every connection and server of a running instance.
type App struct {
	cfg    *config.Config
	logger *zap.Logger

	httpServer   *http.Server
	httpListener net.Listener
	grpcServer   *grpc.Server
	grpcListener net.Listener
	queue        *messaging.Queue

	// run in reverse order on shutdown
	closers []func() error
}

// New connects the configured stores and binds both listeners, so the
// resolved addresses are known before Run.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (_ *App, err error) {
	a := &App{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	gateway, err := a.openGateway(ctx)
	if err != nil {
		return nil, err
	}

	var opts []service.Option

	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: 100,
		})
		a.closers = append(a.closers, rdb.Close)
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		logger.Info("connected to redis", zap.String("addr", cfg.Redis.Addr))
		opts = append(opts, service.WithIdempotencyStore(storage.NewRedisAdapter(rdb, cfg.Redis.IdempotencyTTL)))
	}

	if len(cfg.Kafka.Brokers) > 0 {
		publisher := messaging.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		a.closers = append(a.closers, publisher.Close)
		a.queue = messaging.NewQueue(publisher, cfg.Kafka.QueueSize, logger)
		opts = append(opts, service.WithEventPublisher(a.queue))
		logger.Info("publishing item events to kafka",
			zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	} else {
		opts = append(opts, service.WithEventPublisher(messaging.NopPublisher{}))
	}

	repo := repository.NewInventoryRepository(gateway)
	inventoryService := service.NewInventoryService(repo, logger, opts...)

	mux := http.NewServeMux()
	handler.NewHTTPHandler(inventoryService, logger).Register(mux)
	a.httpServer = &http.Server{
		Handler:           handler.Chain(mux, handler.RequestID, handler.Logging(logger), handler.Recover(logger)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	a.grpcServer = grpc.NewServer(grpc.UnaryInterceptor(handler.UnaryInterceptor(logger)))
	handler.RegisterInventoryServer(a.grpcServer, handler.NewGRPCHandler(inventoryService, logger))

	if a.httpListener, err = net.Listen("tcp", cfg.Server.HTTPAddr); err != nil {
		return nil, fmt.Errorf("listen http: %w", err)
	}
	a.closers = append(a.closers, ignoreClosed(a.httpListener.Close))

	if a.grpcListener, err = net.Listen("tcp", cfg.Server.GRPCAddr); err != nil {
		return nil, fmt.Errorf("listen grpc: %w", err)
	}
	a.closers = append(a.closers, ignoreClosed(a.grpcListener.Close))

	return a, nil
}

func (a *App) openGateway(ctx context.Context) (port.Gateway, error) {
	switch a.cfg.Store.Driver {
	case config.DriverMemory:
		a.logger.Warn("using in-memory store, data is lost on exit")
		return storage.NewMemoryGateway(), nil
	case config.DriverMySQL:
		db, err := storage.OpenMySQL(ctx, a.cfg.Store.DSN, storage.MySQLOptions{
			MaxOpenConns:    a.cfg.Store.MaxOpenConns,
			MaxIdleConns:    a.cfg.Store.MaxIdleConns,
			ConnMaxLifetime: a.cfg.Store.ConnMaxLifetime,
		})
		if err != nil {
			return nil, fmt.Errorf("connect mysql: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		a.logger.Info("connected to mysql")

		gateway := storage.NewMySQLGateway(db)
		if a.cfg.Store.AutoMigrate {
			if err := gateway.Migrate(ctx); err != nil {
				return nil, err
			}
		}
		return gateway, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", a.cfg.Store.Driver)
	}
}

func (a *App) HTTPAddr() string { return a.httpListener.Addr().String() }

func (a *App) GRPCAddr() string { return a.grpcListener.Addr().String() }

// Run serves until ctx is done or a server fails, then shuts everything down.
func (a *App) Run(ctx context.Context) error {
	if a.queue != nil {
		a.queue.Start(a.cfg.Kafka.Workers)
	}

	errCh := make(chan error, 2)

	go func() {
		a.logger.Info("gRPC server listening", zap.String("addr", a.GRPCAddr()))
		if err := a.grpcServer.Serve(a.grpcListener); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	go func() {
		a.logger.Info("HTTP server listening", zap.String("addr", a.HTTPAddr()))
		if err := a.httpServer.Serve(a.httpListener); !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutting down...")
	case runErr = <-errCh:
		a.logger.Error("server failed, shutting down", zap.Error(runErr))
	}

	a.shutdown()
	return runErr
}

func (a *App) shutdown() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("HTTP shutdown incomplete", zap.Error(err))
	}
	a.logger.Info("HTTP server stopped")

	a.grpcServer.GracefulStop()
	a.logger.Info("gRPC server stopped")

	// Close event queue and wait for workers
	if a.queue != nil {
		a.queue.Close()
		a.logger.Info("event workers stopped")
	}

	a.close()
	a.logger.Info("connections closed")
}

func (a *App) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", zap.Error(err))
		}
	}
	a.closers = nil
}

func ignoreClosed(fn func() error) func() error {
	return func() error {
		if err := fn(); err != nil && !errors.Is(err, net.ErrClosed) {
			return err
		}
		return nil
	}
}
