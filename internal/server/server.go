package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapio"

	"github.com/Brownie44l1/animal-recognizer/internal/config"
	"github.com/Brownie44l1/animal-recognizer/internal/handlers"
	"github.com/Brownie44l1/animal-recognizer/internal/metrics"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	ginEngine *gin.Engine
	inner     *http.Server
	log       *zap.Logger
}

func NewServer(cfg *config.Config, h *handlers.Handler, m *metrics.Metrics, log *zap.Logger) *Server {
	gin.SetMode(getGinMode(cfg.Environment))
	r := gin.New()

	r.Use(requestID())
	// Access lines go through the zap logger so they share its sinks.
	access := &zapio.Writer{Log: log.Named("access"), Level: zap.InfoLevel}
	r.Use(logger.SetLogger(
		logger.WithUTC(true),
		logger.WithSkipPath([]string{"/metrics"}),
		logger.WithWriter(access),
	))
	r.Use(cors.New(corsConfig(cfg.AllowedOrigins)))
	r.Use(observe(m))
	r.Use(gin.Recovery())

	r.GET("/", h.Health)
	r.POST("/predict", h.Predict)
	if cfg.MetricsEnabled {
		r.GET("/metrics", gin.WrapH(m.Handler()))
	}

	return &Server{
		ginEngine: r,
		inner: &http.Server{
			Addr:              cfg.Addr(),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: log,
	}
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.ginEngine
}

// Start serves until Stop is called.
func (s *Server) Start() error {
	s.log.Info("server starting", zap.String("addr", s.inner.Addr))
	if err := s.inner.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop drains in-flight requests, waiting at most shutdownTimeout.
func (s *Server) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	s.log.Info("stopping server")
	return s.inner.Shutdown(ctx)
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"*"},
		AllowCredentials: true,
		AllowWildcard:    true,
		MaxAge:           12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	cfg.AllowOrigins = origins
	return cfg
}

func getGinMode(env string) string {
	switch env {
	case config.EnvDevelopment:
		return gin.DebugMode
	case config.EnvTest:
		return gin.TestMode
	default:
		return gin.ReleaseMode
	}
}
