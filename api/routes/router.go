package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sheelmorjaria/rdjcustoms-payments/api/controllers"
	webhookcontrollers "github.com/sheelmorjaria/rdjcustoms-payments/api/controllers/webhooks"
	"github.com/sheelmorjaria/rdjcustoms-payments/api/middleware"
	"github.com/sheelmorjaria/rdjcustoms-payments/internal/payments"
	paypalwebhook "github.com/sheelmorjaria/rdjcustoms-payments/internal/payments/paypal"
	"github.com/sheelmorjaria/rdjcustoms-payments/pkg/config"
	"github.com/sheelmorjaria/rdjcustoms-payments/pkg/db"
	"github.com/sheelmorjaria/rdjcustoms-payments/pkg/logger"
	"github.com/sheelmorjaria/rdjcustoms-payments/pkg/metrics"
	paypalclient "github.com/sheelmorjaria/rdjcustoms-payments/pkg/paypal"
	"github.com/sheelmorjaria/rdjcustoms-payments/pkg/redis"
)

// WebhookSecrets carries the shared secrets the crypto callbacks authenticate with.
type WebhookSecrets struct {
	Bitcoin string
	Monero  string
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	registry *payments.Registry,
	initiators *payments.InitiatorSet,
	statusQuery *payments.StatusQuery,
	engine *payments.Engine,
	paypalService *paypalwebhook.WebhookService,
	paypalClient *paypalclient.Client,
	paypalGuard *paypalwebhook.IdempotencyGuard,
	secrets WebhookSecrets,
	promRegistry *prometheus.Registry,
	paymentMetrics *metrics.PaymentMetrics,
) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	maxBody := cfg.Payments.MaxWebhookBodyBytes

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(logg, map[string]controllers.Pinger{
			"database": dbP,
			"redis":    redisClient,
		}))
	})

	if promRegistry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/payments", func(r chi.Router) {
		r.Get("/methods", controllers.ListPaymentMethods(registry))
		r.Post("/{method}/initialize", controllers.InitializePayment(logg, initiators))
		r.Get("/{method}/status/{orderId}", controllers.PaymentStatus(logg, statusQuery))

		r.Post("/bitcoin/webhook", webhookcontrollers.BitcoinWebhook(engine, secrets.Bitcoin, maxBody, paymentMetrics, logg))
		r.Post("/monero/webhook", webhookcontrollers.MoneroWebhook(engine, secrets.Monero, maxBody, paymentMetrics, logg))
		r.Post("/paypal/webhook", webhookcontrollers.PayPalWebhook(paypalService, paypalClient, paypalGuard, maxBody, paymentMetrics, logg))
	})

	return r
}
