package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/KaramelBytes/insight-layer/internal/analysis"
	"github.com/KaramelBytes/insight-layer/internal/config"
)

// Version is reported by /health.
const Version = "2.0.0"

// Server exposes the analysis pipeline over HTTP.
type Server struct {
	cfg      *config.Global
	analyzer *analysis.Analyzer
	log      *zap.Logger
	router   *gin.Engine
}

// New wires routes and middleware. A nil logger disables logging.
func New(cfg *config.Global, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		cfg: cfg,
		analyzer: analysis.New(analysis.DefaultConfig(),
			analysis.WithLogger(log.Named("analysis")),
			analysis.WithWorkers(cfg.Workers)),
		log:    log,
		router: gin.New(),
	}
	s.router.Use(gin.Recovery(), requestID(), cors(), s.accessLog())
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.health)
	s.router.POST("/analyze", s.analyze)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves on the configured address until ctx is done, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server starting", zap.String("addr", s.cfg.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen %s: %w", s.cfg.ListenAddr, err)
		}
		return nil
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	s.log.Info("server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "version": Version})
}
