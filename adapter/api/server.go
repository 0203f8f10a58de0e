package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/felixgeelhaar/lakron/pkg/observability"
)

const shutdownTimeout = 5 * time.Second

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr      string
	AuthToken string
}

// Server is the HTTP API.
type Server struct {
	cfg    ServerConfig
	router *gin.Engine
	logger *slog.Logger
}

// NewServer builds the router. /healthz is served without authentication.
func NewServer(cfg ServerConfig, service TaskService, health *observability.HealthRegistry, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	r := gin.New()
	r.Use(gin.Recovery(), RequestIDMiddleware(), LoggingMiddleware(logger))

	r.GET("/healthz", NewHealthHandler(health).Check)

	tasks := NewTaskHandler(service)
	v1 := r.Group("/api/v1", BearerAuthMiddleware(cfg.AuthToken))
	{
		v1.GET("/status", tasks.Status)
		v1.POST("/refresh", tasks.Refresh)
		v1.GET("/tasks", tasks.ListByDate)
		v1.GET("/tasks/today", tasks.Today)
		v1.GET("/tasks/upcoming", tasks.Upcoming)
		v1.POST("/tasks", tasks.Create)
		v1.POST("/tasks/:id/toggle", tasks.Toggle)
		v1.DELETE("/tasks/:id", tasks.Delete)
	}

	return &Server{cfg: cfg, router: r, logger: logger}
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http api listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("http api stopped")
	return nil
}
