package http

import (
	"time"

	"tapminer/internal/http/handlers"
	"tapminer/internal/http/middleware"
	"tapminer/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Limits configures the fixed-window rate limiters.
type Limits struct {
	API        int
	APIWindow  time.Duration
	Mine       int
	MineWindow time.Duration
}

type Deps struct {
	Handler       *handlers.Handler
	Health        *handlers.HealthHandler
	Hub           *ws.Hub
	Limits        Limits
	AllowedOrigin string
}

// NewRouter builds the engine with the standard middleware chain.
func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.RequestLogger(),
		middleware.Metrics(),
		middleware.CORS(d.AllowedOrigin),
	)
	RegisterRoutes(r, d)
	return r
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	// Health checks (no rate limiting)
	r.GET("/health", d.Health.Health)
	r.GET("/healthz", d.Health.Liveness)
	r.GET("/readyz", d.Health.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes
	v1 := r.Group("/api/v1")
	v1.Use(middleware.RedisRateLimit(d.Limits.API, d.Limits.APIWindow))
	registerAPIRoutes(v1, d)

	// Legacy /api routes
	api := r.Group("/api")
	api.Use(middleware.RedisRateLimit(d.Limits.API, d.Limits.APIWindow))
	api.GET("/health", d.Health.Health)
	registerAPIRoutes(api, d)

	// Live account feed
	if d.Hub != nil {
		r.GET("/ws", ws.HandleWS(d.Hub, d.AllowedOrigin))
	}

	// Upstream webhooks authenticate with a shared secret, not a JWT.
	r.POST("/internal/referrals", d.Handler.ReferralWebhook)
}

func registerAPIRoutes(api *gin.RouterGroup, d Deps) {
	h := d.Handler

	api.POST("/auth", h.Auth)

	// Account
	api.GET("/me", middleware.JWT(), h.Me)
	api.PATCH("/me", middleware.JWT(), h.UpdateMe)
	api.GET("/me/ledger", middleware.JWT(), h.Ledger)

	// Mining (per account, not per IP)
	mineRL := middleware.AccountRateLimit("mine", d.Limits.Mine, d.Limits.MineWindow)
	api.POST("/mine", middleware.JWT(), mineRL, h.Mine)
	api.GET("/mine/status", middleware.JWT(), h.MineStatus)

	api.POST("/purchase", middleware.JWT(), h.Purchase)

	// Referral system
	referral := api.Group("/referral")
	referral.Use(middleware.JWT())
	{
		referral.POST("/claim", h.ClaimReferral)
		referral.GET("/link", h.GetReferralLink)
		referral.GET("/stats", h.GetReferralStats)
	}

	api.GET("/assets", h.GetAssets)
	api.GET("/leaderboard", h.GetLeaderboard)
}
