package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront/api/controllers"
	cartcontrollers "github.com/angelmondragon/storefront/api/controllers/cart"
	"github.com/angelmondragon/storefront/api/middleware"
	"github.com/angelmondragon/storefront/pkg/config"
	"github.com/angelmondragon/storefront/pkg/enums"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/redis"
)

// NewRouter wires the storefront BFF. redisClient may be nil, in which case
// idempotency replay and the cart rate limit are skipped. metricsHandler may
// be nil when metrics are disabled.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	redisClient *redis.Client,
	sessions cartcontrollers.Sessions,
	metricsHandler http.Handler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.HTTP.AllowedOrigins),
	)

	var (
		pinger      redis.Pinger
		idempotency redis.IdempotencyStore
		limiter     redis.RateLimitStore
	)
	if redisClient != nil {
		pinger, idempotency, limiter = redisClient, redisClient, redisClient
	}

	cartPolicy := middleware.NewCartRateLimitPolicy(
		cfg.RateLimit.Window,
		cfg.RateLimit.SessionLimit,
		cfg.RateLimit.IPLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, pinger))
	})
	if cfg.Metrics.Enabled && metricsHandler != nil {
		r.Handle(cfg.Metrics.Path, metricsHandler)
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Get("/ping", controllers.PrivatePing())
		r.Delete("/session", cartcontrollers.SessionEnd(sessions, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.MemberRoleCustomer, enums.MemberRoleStaff))

			r.Get("/", cartcontrollers.CartGet(sessions, logg))
			r.Get("/count", cartcontrollers.CartCount(sessions, logg))
			r.Get("/voucher", cartcontrollers.VoucherInfo(sessions, logg))

			// Applied per route so the matched pattern is known to the
			// idempotency rules.
			mutate := r.With(
				middleware.CartRateLimit(cartPolicy, limiter, logg),
				middleware.Idempotency(idempotency, logg),
			)
			mutate.Post("/refresh", cartcontrollers.CartRefresh(sessions, logg))
			mutate.Post("/items", cartcontrollers.CartAddItem(sessions, logg))
			mutate.Put("/items/{productId}", cartcontrollers.CartUpdateItem(sessions, logg))
			mutate.Delete("/items/{productId}", cartcontrollers.CartRemoveItem(sessions, logg))
			mutate.Delete("/", cartcontrollers.CartClear(sessions, logg))
			mutate.Post("/voucher", cartcontrollers.VoucherApply(sessions, logg))
			mutate.Delete("/voucher", cartcontrollers.VoucherRemove(sessions, logg))
		})
	})

	return r
}
