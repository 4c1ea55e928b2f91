package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sheelmorjaria/rdjcustoms-payments/api/routes"
	"github.com/sheelmorjaria/rdjcustoms-payments/internal/payments"
	"github.com/sheelmorjaria/rdjcustoms-payments/internal/payments/bitcoin"
	"github.com/sheelmorjaria/rdjcustoms-payments/internal/payments/monero"
	"github.com/sheelmorjaria/rdjcustoms-payments/internal/payments/notify"
	paypalpayments "github.com/sheelmorjaria/rdjcustoms-payments/internal/payments/paypal"
	"github.com/sheelmorjaria/rdjcustoms-payments/pkg/blockonomics"
	"github.com/sheelmorjaria/rdjcustoms-payments/pkg/config"
	"github.com/sheelmorjaria/rdjcustoms-payments/pkg/db"
	"github.com/sheelmorjaria/rdjcustoms-payments/pkg/enums"
	"github.com/sheelmorjaria/rdjcustoms-payments/pkg/globee"
	"github.com/sheelmorjaria/rdjcustoms-payments/pkg/logger"
	"github.com/sheelmorjaria/rdjcustoms-payments/pkg/metrics"
	"github.com/sheelmorjaria/rdjcustoms-payments/pkg/migrate"
	paypalclient "github.com/sheelmorjaria/rdjcustoms-payments/pkg/paypal"
	"github.com/sheelmorjaria/rdjcustoms-payments/pkg/pubsub"
	"github.com/sheelmorjaria/rdjcustoms-payments/pkg/rates"
	"github.com/sheelmorjaria/rdjcustoms-payments/pkg/redis"
)

const (
	paypalEventTTL  = 48 * time.Hour
	shutdownTimeout = 15 * time.Second
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "payments-api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "payments-api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub", err)
		}
	}()

	notifier, err := notify.NewPublisher(pubsubClient.PaymentsPublisher())
	if err != nil {
		logg.Error(context.Background(), "failed to create payment notifier", err)
		os.Exit(1)
	}

	ratesClient := rates.NewClient(cfg.Rates.Currency,
		rates.WithBaseURL(cfg.Rates.BaseURL),
		rates.WithHTTPClient(&http.Client{Timeout: cfg.Rates.Timeout}),
	)

	blockonomicsClient, err := blockonomics.NewClient(cfg.Blockonomics.APIKey, cfg.Blockonomics.CallbackSecret,
		blockonomics.WithBaseURL(cfg.Blockonomics.BaseURL),
		blockonomics.WithHTTPClient(&http.Client{Timeout: cfg.Blockonomics.Timeout}),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create blockonomics client", err)
		os.Exit(1)
	}

	globeeClient, err := globee.NewClient(cfg.GloBee.APIKey, cfg.GloBee.WebhookSecret,
		globee.WithBaseURL(cfg.GloBee.BaseURL),
		globee.WithHTTPClient(&http.Client{Timeout: cfg.GloBee.Timeout}),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create globee client", err)
		os.Exit(1)
	}

	ppClient, err := paypalclient.NewClient(cfg.PayPal.ClientID, cfg.PayPal.Secret, cfg.PayPal.WebhookID, cfg.PayPal.Environment(),
		paypalclient.WithHTTPClient(&http.Client{Timeout: cfg.PayPal.Timeout}),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create paypal client", err)
		os.Exit(1)
	}

	promRegistry := prometheus.NewRegistry()
	paymentMetrics := metrics.NewPaymentMetrics(promRegistry)

	registry := payments.NewRegistry(cfg.Payments)
	repo := payments.NewRepository(dbClient.DB())

	engine, err := payments.NewEngine(payments.EngineParams{
		Repo:     repo,
		Tx:       dbClient,
		Registry: registry,
		Notifier: notifier,
		Logger:   logg,
		Metrics:  paymentMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payment engine", err)
		os.Exit(1)
	}

	bitcoinService, err := bitcoin.NewService(bitcoin.ServiceParams{
		Repo:     repo,
		Tx:       dbClient,
		Provider: blockonomicsClient,
		Rates:    ratesClient,
		Registry: registry,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create bitcoin service", err)
		os.Exit(1)
	}

	moneroService, err := monero.NewService(monero.ServiceParams{
		Repo:     repo,
		Tx:       dbClient,
		Provider: globeeClient,
		Rates:    ratesClient,
		Registry: registry,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create monero service", err)
		os.Exit(1)
	}

	paypalService, err := paypalpayments.NewService(paypalpayments.ServiceParams{
		Repo:     repo,
		Tx:       dbClient,
		Provider: ppClient,
		Registry: registry,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create paypal service", err)
		os.Exit(1)
	}

	initiators, err := payments.NewInitiatorSet(registry, map[enums.PaymentMethodType]payments.Initiator{
		enums.PaymentMethodBitcoin: bitcoinService,
		enums.PaymentMethodMonero:  moneroService,
		enums.PaymentMethodPayPal:  paypalService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create initiator set", err)
		os.Exit(1)
	}

	statusQuery, err := payments.NewStatusQuery(repo, registry, nil)
	if err != nil {
		logg.Error(context.Background(), "failed to create status query", err)
		os.Exit(1)
	}

	paypalWebhookService, err := paypalpayments.NewWebhookService(engine, ppClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create paypal webhook service", err)
		os.Exit(1)
	}

	paypalGuard, err := paypalpayments.NewIdempotencyGuard(redisClient, paypalEventTTL, "paypal-webhook")
	if err != nil {
		logg.Error(context.Background(), "failed to create paypal idempotency guard", err)
		os.Exit(1)
	}

	handler := routes.NewRouter(
		cfg,
		logg,
		dbClient,
		redisClient,
		registry,
		initiators,
		statusQuery,
		engine,
		paypalWebhookService,
		ppClient,
		paypalGuard,
		routes.WebhookSecrets{
			Bitcoin: blockonomicsClient.CallbackSecret(),
			Monero:  globeeClient.WebhookSecret(),
		},
		promRegistry,
		paymentMetrics,
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting payments api")

	server := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "payments api stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "error shutting down payments api", err)
			os.Exit(1)
		}
	}

	logg.Info(ctx, "payments api shut down gracefully")
}
