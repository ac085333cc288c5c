package httpapi

import (
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"voice-journal/internal/application"
)

// EventStream upgrades a request to a per-user event socket.
type EventStream interface {
	Serve(w http.ResponseWriter, r *http.Request, userID string)
}

type Deps struct {
	Journal  *application.Journal
	Billing  *application.Billing
	Accounts *application.Accounts
	Auth     TokenVerifier
	Events   EventStream
	// Providers is reported by the health endpoint as name -> configured.
	Providers map[string]bool
}

type Config struct {
	CORSOrigins        []string
	RateLimitPerMinute int
	ExportTitle        string
}

type Server struct {
	engine    *gin.Engine
	journal   *application.Journal
	billing   *application.Billing
	accounts  *application.Accounts
	auth      TokenVerifier
	events    EventStream
	providers map[string]bool
	limiter   *RateLimiter
	cfg       Config
	logger    *slog.Logger
	now       func() time.Time
}

func New(deps Deps, cfg Config, logger *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		engine:    gin.New(),
		journal:   deps.Journal,
		billing:   deps.Billing,
		accounts:  deps.Accounts,
		auth:      deps.Auth,
		events:    deps.Events,
		providers: deps.Providers,
		limiter:   NewRateLimiter(cfg.RateLimitPerMinute, time.Minute),
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}

	s.engine.Use(requestLogger(logger), gin.Recovery(), cors.New(corsConfig(cfg.CORSOrigins)))
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() {
	limited := s.limiter.Middleware()

	api := s.engine.Group("/api")
	api.GET("/health", s.health)

	api.POST("/transcribe", limited, s.optionalAuth, s.transcribe)
	api.POST("/clean", limited, s.clean)
	api.POST("/tags", limited, s.tags)

	thoughts := api.Group("/thoughts", s.requireAuth)
	{
		thoughts.GET("", s.listThoughts)
		thoughts.POST("", limited, s.createThought)
		thoughts.POST("/record", limited, s.recordThought)
		thoughts.GET("/export", s.exportThoughts)
		thoughts.GET("/:id", s.getThought)
		thoughts.DELETE("/:id", limited, s.deleteThought)
	}

	api.GET("/profile", s.requireAuth, s.getProfile)
	api.GET("/events", s.requireAuthQuery, s.streamEvents)

	billing := api.Group("/stripe")
	{
		billing.POST("/webhook", s.requireBilling, s.webhook)
		billing.POST("/create-checkout-session", limited, s.requireBilling, s.requireAuth, s.createCheckout)
		billing.POST("/create-portal-session", limited, s.requireBilling, s.requireAuth, s.createPortal)
		billing.POST("/subscription-status", s.requireBilling, s.requireAuth, s.subscriptionStatus)
		billing.POST("/delete-account", limited, s.requireAuth, s.deleteAccount)
	}
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	cfg.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "Stripe-Signature"}
	cfg.ExposeHeaders = []string{"Content-Disposition"}
	cfg.MaxAge = 12 * time.Hour
	return cfg
}

func (s *Server) health(c *gin.Context) {
	providers := make(map[string]bool, len(s.providers))
	for name, ok := range s.providers {
		providers[name] = ok
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"providers": providers,
		"time":      s.now().UTC(),
	})
}
