package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"policyd/internal/fraud"
	jwttoken "policyd/internal/jwt_token"
	"policyd/internal/platform/config"
	"policyd/internal/platform/httpserver"
	"policyd/internal/platform/kafka"
	"policyd/internal/platform/logger"
	"policyd/internal/platform/metrics"
	"policyd/internal/platform/middleware"
	"policyd/internal/platform/redis"
	"policyd/internal/policy/consumer"
	"policyd/internal/policy/handler"
	"policyd/internal/policy/publisher"
	"policyd/internal/policy/risk"
	"policyd/internal/policy/service"
	"policyd/internal/policy/store"
)

// main wires high-level dependencies and keeps the process lifecycle small.
// Business logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage: PostgreSQL when configured, in-memory otherwise.
	var policyStore service.Store
	if cfg.Postgres.DSN != "" {
		db, err := sql.Open("postgres", cfg.Postgres.DSN)
		if err != nil {
			log.Error("open postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		pg := store.NewPostgres(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			log.Error("ensure schema", "error", err)
			os.Exit(1)
		}
		policyStore = pg
	} else {
		log.Warn("no postgres DSN configured, using in-memory store")
		policyStore = store.NewInMemory()
	}

	m := metrics.New()

	// Fraud API client, with an optional Redis classification cache.
	fraudOpts := []fraud.Option{fraud.WithLogger(log), fraud.WithMetrics(m)}
	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		log.Error("connect redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		fraudOpts = append(fraudOpts, fraud.WithCache(fraud.NewRedisCache(redisClient.Client, cfg.Fraud.CacheTTL)))
	}
	fraudClient := fraud.NewClient(cfg.Fraud.BaseURL, cfg.Fraud.Timeout, fraudOpts...)

	// Broker wiring: lifecycle events out, confirmation results in.
	if err := kafka.EnsureTopics(ctx, cfg.Kafka.Brokers,
		cfg.Kafka.StatusTopic, cfg.Kafka.PaymentTopic, cfg.Kafka.SubscriptionTopic); err != nil {
		log.Error("ensure kafka topics", "error", err)
		os.Exit(1)
	}
	producer, err := kafka.NewProducer(cfg.Kafka.Brokers)
	if err != nil {
		log.Error("create kafka producer", "error", err)
		os.Exit(1)
	}
	defer producer.Close()

	svc := service.New(
		policyStore,
		fraudClient,
		publisher.New(producer, cfg.Kafka.StatusTopic),
		risk.IsApproved,
		service.WithLogger(log),
		service.WithMetrics(m),
	)

	router := newRouter(cfg, log, svc)
	srv := httpserver.New(cfg.Server.Addr, router)

	confirmations, err := kafka.NewConsumer(kafka.ConsumerOptions{
		Brokers:      cfg.Kafka.Brokers,
		Group:        cfg.Kafka.Group,
		Topics:       []string{cfg.Kafka.PaymentTopic, cfg.Kafka.SubscriptionTopic},
		MaxAttempts:  cfg.Kafka.MaxAttempts,
		RetryBackoff: cfg.Kafka.RetryBackoff,
		Handler:      consumer.NewRouter(svc, cfg.Kafka.PaymentTopic, cfg.Kafka.SubscriptionTopic).Handle,
		DeadLetter:   producer,
		Logger:       log,
		Metrics:      m,
	})
	if err != nil {
		log.Error("create kafka consumer", "error", err)
		os.Exit(1)
	}
	defer confirmations.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting policyd", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		err := confirmations.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("shutdown", "error", err)
		os.Exit(1)
	}
	log.Info("policyd stopped")
}

func newRouter(cfg config.Config, log *slog.Logger, svc *service.Service) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Logger(log))
	r.Use(middleware.ContentTypeJSON)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(api chi.Router) {
		if cfg.Server.RequireAuth && cfg.Server.JWTSigningKey != "" {
			jwtService := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, "policyd", "policyd-api")
			api.Use(middleware.RequireAuth(jwttoken.NewJWTServiceAdapter(jwtService), log))
		}
		handler.New(svc, log).Register(api)
	})
	return r
}
