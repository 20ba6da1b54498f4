package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"laundry-notifier/config"
	"laundry-notifier/internal/mw"
)

// NewRouter creates and configures a new Gin router. Metrics are served from
// gatherer.
func NewRouter(handler *Handler, cfg *config.ServerConfig, gatherer prometheus.Gatherer) *gin.Engine {
	r := gin.Default()

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst, mw.UserOrIP)

	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	cacheStore := cache.New(ttl, 2*ttl)
	caching := mw.Cache(cacheStore, ttl)

	r.GET("/healthz", handler.Health)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	api := r.Group("/api")
	api.Use(rateLimiter, mw.Invalidate(cacheStore))
	{
		api.GET("/machines", caching, handler.ListMachines)
		api.GET("/machines/:id", caching, handler.GetMachine)
		api.GET("/machines/:id/history", handler.GetMachineHistory)

		api.POST("/machines/:id/claim", handler.ClaimMachine)
		api.DELETE("/machines/:id/claim", handler.ReleaseClaim)
		api.POST("/machines/:id/snoops", handler.SnoopMachine)
		api.DELETE("/machines/:id/snoops/:user_id", handler.UnsnoopMachine)

		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	return r
}

// defaultCacheTTL is used when the server config leaves the cache TTL unset.
const defaultCacheTTL = 5 * time.Second
