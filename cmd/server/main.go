package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"civic/internal/analytics"
	"civic/internal/cipher"
	"civic/internal/decision"
	"civic/internal/event"
	"civic/internal/event/kafkabus"
	"civic/internal/event/localbus"
	"civic/internal/gateway"
	gatewayhandler "civic/internal/gateway/handler"
	"civic/internal/pii"
	"civic/internal/platform/config"
	"civic/internal/platform/httpserver"
	"civic/internal/platform/logger"
	"civic/internal/platform/metrics"
	platformredis "civic/internal/platform/redis"
)

// subscriber is the common registration surface of the local and Kafka buses.
type subscriber interface {
	Subscribe(types []event.Type, handler event.Handler)
}

// main wires high-level dependencies and keeps the server lifecycle small.
// Business logic lives in the internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()
	ctx := context.Background()

	crypto := buildCipher(cfg, log)
	decisionStore, piiStore := buildStores(ctx, cfg, log)

	var (
		bus      event.Bus
		sub      subscriber
		pipeline analytics.Pipeline
		cleanup  []func()
	)
	if len(cfg.Kafka.Brokers) > 0 {
		if err := kafkabus.EnsureTopics(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.AnalyticsTopic); err != nil {
			log.Error("ensure kafka topics", "error", err)
			os.Exit(1)
		}
		publisher, err := kafkabus.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			log.Error("create kafka publisher", "error", err)
			os.Exit(1)
		}
		consumer, err := kafkabus.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.Group, log)
		if err != nil {
			log.Error("create kafka consumer", "error", err)
			os.Exit(1)
		}
		kafkaPipeline, err := analytics.NewKafkaPipeline(cfg.Kafka.Brokers, cfg.Kafka.AnalyticsTopic)
		if err != nil {
			log.Error("create analytics pipeline", "error", err)
			os.Exit(1)
		}
		bus, sub, pipeline = publisher, consumer, kafkaPipeline
		cleanup = append(cleanup, publisher.Close, consumer.Close, kafkaPipeline.Close)

		go func() {
			if err := consumer.Run(ctx); err != nil && ctx.Err() == nil {
				log.Error("kafka consumer stopped", "error", err)
			}
		}()
	} else {
		local := localbus.New(localbus.Config{
			OnError: func(env event.Envelope, err error) {
				log.Error("event handler failed",
					"detail_type", string(env.DetailType),
					"source", env.Source,
					"error", err,
				)
			},
		})
		bus, sub, pipeline = local, local, analytics.NewLogPipeline(log)
		cleanup = append(cleanup, local.Close)
	}

	validator := decision.NewService(decisionStore, crypto, bus, log, m)
	piiStorage := pii.NewService(piiStore, bus, log, m)
	analyticsSvc := analytics.NewService(decisionStore, piiStore, crypto, pipeline, log, m)

	sub.Subscribe([]event.Type{event.TypeValidationRequest, event.TypeDeletionRequest}, validator)
	sub.Subscribe([]event.Type{event.TypeValidationRequest, event.TypeDeletionRequest}, piiStorage)
	sub.Subscribe([]event.Type{
		event.TypeValidationRequest,
		event.TypeValidationResult,
		event.TypeDataStored,
		event.TypeDeletionRequest,
	}, analyticsSvc)

	gatewaySvc := gateway.NewService(decisionStore, crypto, bus, log, m)

	router := chi.NewRouter()
	gatewayhandler.New(gatewaySvc, log).Register(router)
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	srv := httpserver.New(cfg.Server.Addr, router)
	log.Info("starting civic gateway", "addr", cfg.Server.Addr, "store_backend", cfg.StoreBackend)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
	for _, fn := range cleanup {
		fn()
	}
}

// buildCipher constructs the field encryption provider, generating an
// ephemeral key for development when none is configured.
func buildCipher(cfg config.Config, log *slog.Logger) cipher.Provider {
	key := cfg.Cipher.Key
	if key == "" {
		generated, err := cipher.GenerateKey()
		if err != nil {
			log.Error("generate development cipher key", "error", err)
			os.Exit(1)
		}
		log.Warn("CIVIC_CIPHER_KEY not set, using ephemeral key; existing ciphertext is unreadable")
		key = generated
	}
	crypto, err := cipher.NewXChaCha(key)
	if err != nil {
		log.Error("build cipher", "error", err)
		os.Exit(1)
	}
	return crypto
}

// buildStores selects the configured backend for both stores. The two stores
// remain independent even when they share a backend instance: no transaction
// ever spans them.
func buildStores(ctx context.Context, cfg config.Config, log *slog.Logger) (decision.Store, pii.Store) {
	switch cfg.StoreBackend {
	case config.BackendRedis:
		client, err := platformredis.New(cfg.Redis)
		if err != nil {
			log.Error("connect redis", "error", err)
			os.Exit(1)
		}
		if client == nil {
			log.Error("redis backend selected but CIVIC_REDIS_URL is empty")
			os.Exit(1)
		}
		return decision.NewRedisStore(client.Client), pii.NewRedisStore(client.Client)
	case config.BackendPostgres:
		db, err := sql.Open("postgres", cfg.Postgres.DSN)
		if err != nil {
			log.Error("open postgres", "error", err)
			os.Exit(1)
		}
		decisions := decision.NewPostgresStore(db)
		piiStore := pii.NewPostgresStore(db)
		if err := decisions.EnsureSchema(ctx); err != nil {
			log.Error("ensure decisions schema", "error", err)
			os.Exit(1)
		}
		if err := piiStore.EnsureSchema(ctx); err != nil {
			log.Error("ensure pii schema", "error", err)
			os.Exit(1)
		}
		return decisions, piiStore
	default:
		return decision.NewInMemoryStore(), pii.NewInMemoryStore()
	}
}
