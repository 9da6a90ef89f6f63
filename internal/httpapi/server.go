// Package httpapi exposes the check-in service over HTTP.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"checkin/internal/cleanup"
	"checkin/internal/followup"
	"checkin/internal/logging"
	"checkin/internal/metrics"
	"checkin/internal/store"
)

const serviceName = "Intern Check-in Service"
const serviceVersion = "1.0.0"

// Server routes HTTP traffic to the follow-up service and store.
type Server struct {
	engine   *gin.Engine
	store    store.Store
	service  *followup.Service
	janitor  *cleanup.Janitor
	observer metrics.Observer
	logger   logging.Logger

	// now is injectable for tests.
	now func() time.Time
}

// Options tunes server construction.
type Options struct {
	// CORSOrigins lists the allowed browser origins. Empty disables CORS.
	CORSOrigins []string
	Observer    metrics.Observer
	Logger      logging.Logger
	Debug       bool
	Now         func() time.Time
}

// New wires the routes. The janitor backs the manual cleanup endpoint and
// may be nil when no cleanup is configured.
func New(st store.Store, service *followup.Service, janitor *cleanup.Janitor, opts Options) *Server {
	if !opts.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	server := &Server{
		store:    st,
		service:  service,
		janitor:  janitor,
		observer: opts.Observer,
		logger:   logging.OrNop(opts.Logger),
		now:      opts.Now,
	}
	if server.observer == nil {
		server.observer = metrics.Nop()
	}
	if server.now == nil {
		server.now = time.Now
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(server.requestMetrics())

	if len(opts.CORSOrigins) > 0 {
		corsConfig := cors.DefaultConfig()
		corsConfig.AllowOrigins = opts.CORSOrigins
		corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
		corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Requested-With"}
		corsConfig.AllowCredentials = true
		engine.Use(cors.New(corsConfig))
	}

	engine.GET("/", server.handleRoot)
	engine.GET("/health", server.handleHealth)
	engine.GET("/stats", server.handleStats)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := engine.Group("/api")
	{
		api.POST("/work-updates", server.handleCreateWorkUpdate)
		api.POST("/followups/start", server.handleStartFollowup)
		api.PUT("/followup/:sessionID/complete", server.handleCompleteFollowup)
		api.GET("/followup/session/:sessionID", server.handleGetSession)
		api.GET("/followup/pending/:userID", server.handlePendingSession)
		api.GET("/followup-sessions/:userID", server.handleListSessions)
		api.DELETE("/temp-work-updates/cleanup", server.handleManualCleanup)
		api.GET("/cleanup/status", server.handleCleanupStatus)
	}

	server.engine = engine
	return server
}

// Handler returns the root http.Handler for mounting on an http.Server.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) requestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		s.observer.RecordRequest(route, c.Request.Method, c.Writer.Status(), time.Since(start))
	}
}
