package handler

import (
	"inapppay/internal/adapter/http/middleware"
	redisStore "inapppay/internal/adapter/storage/redis"
	"inapppay/internal/core/ports"
	"inapppay/internal/metrics"
	"inapppay/internal/wire"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	Backend        ports.SandboxBackend
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	PurchaseLimit  int64                      // per client per minute, 0 keeps the default rule
	HealthCheckers []ports.HealthChecker
	HTTPMetrics    *metrics.HTTPMetrics // nil = no request metrics
	Gatherer       prometheus.Gatherer  // nil = no /metrics route
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
// Backend endpoints are mounted at the root so the client base URL is the server URL.
func SetupRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.Metrics(deps.HTTPMetrics))
	r.Use(middleware.MaxBodySize(1 << 20))

	r.GET("/health", HealthCheck(deps.HealthCheckers...))
	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(metrics.Handler(deps.Gatherer)))
	}

	rules := middleware.DefaultRateLimitRules()
	if deps.PurchaseLimit > 0 {
		rule := rules["purchases"]
		rule.Limit = deps.PurchaseLimit
		rules["purchases"] = rule
	}

	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	h := NewSandboxHandler(deps.Backend)
	r.POST("/"+wire.EndpointProcessPurchase, rl("purchases"), h.ProcessPurchase)

	queries := r.Group("/", rl("queries"))
	{
		queries.POST(wire.EndpointValidateItem, h.ValidateItem)
		queries.POST(wire.EndpointCheckPurchased, h.CheckPurchased)
		queries.POST(wire.EndpointCheckSubscribed, h.CheckSubscribed)
		queries.POST(wire.EndpointListPurchases, h.ListPurchases)
		queries.POST(wire.EndpointListSubscriptions, h.ListSubscriptions)
	}

	return r
}
