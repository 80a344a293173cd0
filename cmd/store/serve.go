package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/go_store/internal/cache"
	"github.com/fjod/go_store/internal/events"
	storegrpc "github.com/fjod/go_store/internal/grpc"
	h "github.com/fjod/go_store/internal/http"
	"github.com/fjod/go_store/internal/metrics"
	"github.com/fjod/go_store/internal/publisher"
	"github.com/fjod/go_store/internal/service"
	"github.com/fjod/go_store/internal/telemetry"
	"github.com/fjod/go_store/pkg/logger"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, the gRPC health endpoint and the outbox relay",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Log.Level)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName: "store",
		Endpoint:    cfg.OTel.Endpoint,
		SampleRatio: cfg.OTel.SampleRatio,
	})
	if err != nil {
		return err
	}
	defer shutdownWithTimeout(cfg.HTTP.ShutdownTimeout, tp.Shutdown)

	repo, err := openRepository(cfg, true)
	if err != nil {
		return err
	}
	defer repo.Close()
	log.Info("database ready", "host", cfg.DB.Host, "db", cfg.DB.Name)

	products, err := openCatalog(cfg, true)
	if err != nil {
		return err
	}
	defer products.Close()

	mongoDB, err := events.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
	if err != nil {
		return err
	}
	defer shutdownWithTimeout(cfg.HTTP.ShutdownTimeout, mongoDB.Client().Disconnect)
	journal := events.NewMongoJournal(mongoDB)
	if err := events.EnsureIndexes(ctx, journal); err != nil {
		return fmt.Errorf("create journal indexes: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       0,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis connection failed: %w", err)
	}

	m := metrics.New()
	orderCache := cache.NewRedisCache(redisClient)
	gateway, err := newGateway(cfg, log)
	if err != nil {
		return err
	}

	checkoutService := service.NewCheckoutService(repo, gateway, m, log, cfg.Checkout.Timeout)
	webhookService := service.NewWebhookService(repo, gateway, orderCache, journal, m, log)
	orderService := service.NewOrderService(repo, orderCache, journal, log)
	cartService := service.NewCartService(repo, products, log)

	router := h.NewRouter(h.RouterConfig{
		Checkout:       h.NewCheckoutHandler(checkoutService, webhookService, log),
		Orders:         h.NewOrdersHandler(orderService),
		Carts:          h.NewCartHandler(cartService),
		Products:       h.NewProductHandler(products),
		Auth:           h.HeaderAuthenticator{},
		Metrics:        m,
		RequestTimeout: cfg.HTTP.RequestTimeout,
		Log:            log,
	})
	srv := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.Checkout.Timeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	health := storegrpc.NewServer(map[string]storegrpc.Pinger{
		"postgres": repo,
		"redis": storegrpc.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}),
		"mongo": storegrpc.PingFunc(func(ctx context.Context) error {
			return mongoDB.Client().Ping(ctx, nil)
		}),
	}, cfg.GRPC.HealthInterval, log)
	lis, err := net.Listen("tcp", ":"+cfg.GRPC.Port)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http server starting", "port", cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		log.Info("grpc health server starting", "port", cfg.GRPC.Port)
		return health.Serve(lis)
	})
	g.Go(func() error {
		health.Watch(gctx)
		return nil
	})
	if cfg.Kafka.Relay {
		writer := publisher.NewKafkaWriter(cfg.Kafka.Topic, cfg.Kafka.Brokers...)
		poller := publisher.NewOutboxPoller(repo.Outbox(), writer, cfg.Kafka.PollInterval, m, log)
		defer poller.Close()
		g.Go(func() error {
			poller.Run(gctx)
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		health.GracefulStop()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	err = g.Wait()
	log.Info("server exited")
	return err
}

func shutdownWithTimeout(timeout time.Duration, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		slog.Error("shutdown failed", "error", err)
	}
}
