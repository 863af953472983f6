// Package httpapi exposes the engine over HTTP and the overlay websocket.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"drop-live/internal/auth"
	"drop-live/internal/hub"
	"drop-live/internal/launch"
	"drop-live/internal/ledger"
	"drop-live/internal/observability"
)

// ReadinessCheck checks one dependency.
type ReadinessCheck func(ctx context.Context) error

// Config holds transport settings.
type Config struct {
	CORSOrigins  []string
	CookieSecure bool
	SessionTTL   time.Duration
	ReadyTimeout time.Duration
}

// Server wires HTTP routes to the services.
type Server struct {
	auth     *auth.Authenticator
	launches *launch.Service
	ledger   *ledger.Service
	hub      *hub.Hub
	gateUI   func(raw string) string

	checks map[string]ReadinessCheck
	cfg    Config
	logger zerolog.Logger
}

// Option configures Server.
type Option func(*Server)

// WithReadinessCheck adds a named dependency check to /ready.
func WithReadinessCheck(name string, check ReadinessCheck) Option {
	return func(s *Server) {
		s.checks[name] = check
	}
}

// WithAmountFormatter sets how raw thresholds are rendered for display.
func WithAmountFormatter(format func(raw string) string) Option {
	return func(s *Server) {
		s.gateUI = format
	}
}

// NewServer creates the HTTP transport.
func NewServer(a *auth.Authenticator, launches *launch.Service, l *ledger.Service, h *hub.Hub, cfg Config, logger zerolog.Logger, opts ...Option) *Server {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = auth.DefaultSessionTTL
	}
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = 3 * time.Second
	}
	s := &Server{
		auth:     a,
		launches: launches,
		ledger:   l,
		hub:      h,
		gateUI:   func(raw string) string { return raw },
		checks:   make(map[string]ReadinessCheck),
		cfg:      cfg,
		logger:   logger.With().Str("component", "http").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the gin engine with all routes.
func (s *Server) Router() *gin.Engine {
	router := gin.New()

	router.Use(RequestID())
	router.Use(Recovery(s.logger))
	router.Use(AccessLog(s.logger))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Content-Type", "Authorization", "Accept", RequestIDHeader}
	corsConfig.ExposeHeaders = []string{RequestIDHeader}
	if len(s.cfg.CORSOrigins) == 0 || (len(s.cfg.CORSOrigins) == 1 && s.cfg.CORSOrigins[0] == "*") {
		corsConfig.AllowCredentials = false
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = s.cfg.CORSOrigins
	}
	router.Use(cors.New(corsConfig))

	router.Use(Authenticate(s.auth))

	router.GET("/health", s.health)
	router.GET("/ready", s.ready)
	router.GET("/metrics", gin.WrapH(observability.Handler()))

	api := router.Group("/api")

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/challenge", s.issueChallenge)
		authGroup.POST("/verify", s.verify)
		authGroup.POST("/logout", s.logout)
		authGroup.GET("/me", RequireAuth(), s.me)
	}

	drops := api.Group("/drops", RequireAuth())
	{
		drops.POST("", s.createDrop)
		drops.GET("", s.listDrops)
		drops.GET("/:id", s.getDrop)
		drops.POST("/:id/token-info", s.createTokenInfo)
		drops.POST("/:id/fee-config", s.prepareFeeConfig)
		drops.POST("/:id/fee-config/confirm", s.confirmFeeConfig)
		drops.POST("/:id/launch-tx", s.prepareLaunch)
		drops.POST("/:id/launch/confirm", s.confirmLaunch)
		drops.PUT("/:id/threshold", s.updateThreshold)
		drops.POST("/:id/polls", s.createPoll)
		drops.POST("/:id/polls/:pollId/close", s.closePoll)
		drops.GET("/:id/claims/positions", s.claimablePositions)
		drops.POST("/:id/claims/prepare", s.prepareClaim)
		drops.POST("/:id/claims", s.recordClaim)
		drops.GET("/:id/claims", s.listClaims)
	}

	live := api.Group("/live/:slug")
	{
		live.GET("", s.snapshot)
		live.GET("/messages", s.listMessages)
		live.GET("/holding", RequireAuth(), s.holding)
		live.POST("/messages", RequireAuth(), s.submitMessage)
		live.POST("/votes", RequireAuth(), s.submitVote)
	}

	router.GET("/ws/live/:slug", s.overlay)

	return router
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.Router()
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"timestamp":   time.Now().UTC(),
		"subscribers": s.hub.TotalCount(),
	})
}

func (s *Server) ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), s.cfg.ReadyTimeout)
	defer cancel()

	results := make(map[string]string, len(s.checks))
	status := http.StatusOK
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			results[name] = err.Error()
			status = http.StatusServiceUnavailable
			s.logger.Warn().Err(err).Str("check", name).Msg("readiness check failed")
			continue
		}
		results[name] = "ok"
	}

	c.JSON(status, gin.H{
		"ready":  status == http.StatusOK,
		"checks": results,
	})
}
