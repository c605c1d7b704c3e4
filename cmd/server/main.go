package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"certledger/internal/audit"
	credentialstore "certledger/internal/credential/store"
	"certledger/internal/identity/lockout"
	identitystore "certledger/internal/identity/store"
	"certledger/internal/identity/token"
	"certledger/internal/ledger"
	ledgerclient "certledger/internal/ledger/client"
	"certledger/internal/platform/config"
	"certledger/internal/platform/database"
	"certledger/internal/platform/health"
	"certledger/internal/platform/httpserver"
	"certledger/internal/platform/kafka"
	"certledger/internal/platform/kafka/producer"
	"certledger/internal/platform/logger"
	"certledger/internal/platform/metrics"
	platformredis "certledger/internal/platform/redis"
	"certledger/internal/seeder"
	"certledger/internal/verification"
	"certledger/internal/verification/tracer"

	credentialservice "certledger/internal/credential/service"
	identityservice "certledger/internal/identity/service"
	httptransport "certledger/internal/transport/http"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in the internal services.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	log.Info("initializing certledger",
		"addr", cfg.Addr,
		"environment", cfg.Environment,
	)

	m := metrics.New()

	// Stores: postgres when configured, in-memory otherwise.
	var userStore identityservice.UserStore = identitystore.NewMemory()
	var credStore credentialservice.CredentialStore = credentialstore.NewMemory()
	pool, err := database.New(database.Config{URL: cfg.DatabaseURL})
	if err != nil {
		log.Error("database init failed", "error", err)
		os.Exit(1)
	}
	if pool != nil {
		userStore = identitystore.NewPostgres(pool.DB())
		credStore = credentialstore.NewPostgres(pool.DB())
		log.Info("using postgres stores")
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
	}

	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		log.Error("redis init failed", "error", err)
		os.Exit(1)
	}

	// Audit pipeline: kafka when brokers are configured, memory otherwise.
	var auditor audit.Publisher = audit.NewMemoryPublisher()
	var kafkaProducer *producer.Producer
	if cfg.KafkaBrokers != "" {
		kafkaProducer, err = producer.New(producer.Config{
			Brokers:         cfg.KafkaBrokers,
			Retries:         3,
			DeliveryTimeout: 10 * time.Second,
		}, log)
		if err != nil {
			log.Error("kafka producer init failed", "error", err)
			os.Exit(1)
		}
		auditor = audit.NewKafkaPublisher(kafkaProducer, cfg.AuditTopic)
		log.Info("audit events publishing to kafka", "topic", cfg.AuditTopic)
	} else {
		log.Warn("KAFKA_BROKERS not set, audit events stay in memory")
	}

	// Ledger attestor: disabled unless both node URL and contract address are
	// configured. Disabled means every chain signal is false, never a bypass.
	var attestor ledger.Attestor = ledger.Disabled{}
	if cfg.LedgerNodeURL != "" && cfg.ContractAddress != "" {
		attestor = ledgerclient.New(cfg.LedgerNodeURL, cfg.ContractAddress, cfg.LedgerTimeout,
			ledgerclient.WithLogger(log))
		log.Info("ledger attestor configured",
			"node_url", cfg.LedgerNodeURL,
			"contract_address", cfg.ContractAddress,
		)
	} else {
		log.Warn("ledger not configured, attestations disabled")
	}

	identitySvc := identityservice.New(userStore,
		identityservice.WithLogger(log),
		identityservice.WithMetrics(m),
		identityservice.WithAuditPublisher(auditor),
	)
	tokenSvc := token.New(cfg.JWTSigningKey, cfg.TokenTTL)
	credentialSvc := credentialservice.New(credStore, attestor,
		credentialservice.WithLogger(log),
		credentialservice.WithMetrics(m),
		credentialservice.WithAuditPublisher(auditor),
	)
	verifier := verification.New(credStore, attestor,
		verification.WithLogger(log),
		verification.WithMetrics(m),
		verification.WithTracer(tracer.NewOTel()),
		verification.WithAuditPublisher(auditor),
	)

	var lockoutStore lockout.Store = lockout.NewMemory()
	if redisClient != nil {
		lockoutStore = lockout.NewRedis(redisClient.Client)
	}
	lockoutSvc := lockout.New(lockoutStore, lockout.WithLogger(log))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := seeder.EnsureAdmin(ctx, identitySvc, seeder.Config{
		Username: cfg.AdminUsername,
		Email:    cfg.AdminEmail,
		Password: cfg.AdminPassword,
	}, log); err != nil {
		log.Error("admin seeding failed", "error", err)
		os.Exit(1)
	}

	healthHandler := health.New(cfg.Environment, attestor)
	if pool != nil {
		healthHandler.RegisterCheck("postgres", func() error {
			checkCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return pool.Health(checkCtx)
		})
	}
	if redisClient != nil {
		healthHandler.RegisterCheck("redis", func() error {
			checkCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return redisClient.Health(checkCtx)
		})

		go func() {
			ticker := time.NewTicker(15 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					redisClient.RecordPoolStats()
				}
			}
		}()
	}
	if cfg.KafkaBrokers != "" {
		kafkaCheck := kafka.NewHealthChecker(cfg.KafkaBrokers)
		healthHandler.RegisterCheck("kafka", func() error {
			checkCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return kafkaCheck.Check(checkCtx)
		})
	}

	router := httptransport.NewRouter(httptransport.Dependencies{
		Identity:    identitySvc,
		Tokens:      tokenSvc,
		Credentials: credentialSvc,
		Verifier:    verifier,
		Lockout:     lockoutSvc,
		Auditor:     auditor,
		Metrics:     m,
		Health:      healthHandler,
		Logger:      log,
	})
	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting http server", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	log.Info("shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}

	if kafkaProducer != nil {
		kafkaProducer.Close()
	}
	if redisClient != nil {
		_ = redisClient.Close() //nolint:errcheck // shutdown path
	}
	if pool != nil {
		_ = pool.Close() //nolint:errcheck // shutdown path
	}

	log.Info("server stopped")
}
