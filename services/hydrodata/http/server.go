package http

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/02loveslollipop/hydrodata/services/hydrodata/internal/config"
	"github.com/02loveslollipop/hydrodata/services/hydrodata/internal/models"
)

const shutdownTimeout = 10 * time.Second

// StationSource provides read access to the station catalogue.
type StationSource interface {
	ListStations(ctx context.Context) ([]models.Station, error)
	// GetStation returns nil, nil when no station has the given code.
	GetStation(ctx context.Context, code int) (*models.Station, error)
}

// Server exposes the station catalogue as a read-only REST API.
type Server struct {
	cfg    config.Config
	source StationSource
	engine *gin.Engine
}

// New builds the gin engine over source. Every route except /healthz
// requires cfg.BearerToken when it is set.
func New(cfg config.Config, source StationSource) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), gin.Logger(), corsMiddleware())
	if cfg.BearerToken != "" {
		engine.Use(requireBearer(cfg.BearerToken))
	}

	s := &Server{cfg: cfg, source: source, engine: engine}
	s.registerRoutes()
	return s
}

// Engine returns the handler so it can be driven with httptest.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Run listens on cfg.ListenAddr and blocks until ctx is cancelled, then
// drains in-flight requests for up to shutdownTimeout.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.ListenAddr(),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.ListenAndServe() }()

	select {
	case err := <-serveErr:
		return fmt.Errorf("listen on %s: %w", srv.Addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	s.registerV1Routes()
}

// requireBearer rejects requests whose Authorization header does not carry
// the expected token.
func requireBearer(expected string) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Health probes carry no credentials.
		if c.Request.URL.Path == "/healthz" {
			c.Next()
			return
		}
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
		if token != expected {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}

// corsMiddleware allows browser clients from any origin and answers
// preflight requests directly.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func apiVersionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-API-Version", "v1")
		c.Next()
	}
}
