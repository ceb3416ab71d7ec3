// Package mockhost runs a simulated Repetier-Server so the client can be
// exercised without real printer hardware.
package mockhost

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Server represents the mock print host HTTP server
type Server struct {
	opts    Options
	handler *Handler
	logger  *logrus.Logger
	router  *gin.Engine
	srv     *http.Server
}

// NewServer creates a new mock print host server
func NewServer(opts Options, logger *logrus.Logger) *Server {
	if logger.GetLevel() < logrus.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	handler := NewHandler(opts, logger)

	// Register routes
	router.GET("/printer/info", handler.Info)
	router.POST("/printer/:target/:printer", handler.Upload)

	return &Server{
		opts:    opts,
		handler: handler,
		logger:  logger,
		router:  router,
	}
}

// Start starts the server with a background context.
func (s *Server) Start() error {
	return s.StartWithContext(context.Background())
}

// StartWithContext starts the server and shuts down gracefully when the
// context is canceled.
func (s *Server) StartWithContext(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.opts.BindAddress, s.opts.Port)
	s.logger.Infof("Starting mock print host at http://%s", addr)

	s.srv = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		<-errCh
		return nil
	case err := <-errCh:
		return err
	}
}

// GetRouter returns the underlying gin router (useful for testing)
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

// GetHandler returns the handler, exposing received jobs for inspection.
func (s *Server) GetHandler() *Handler {
	return s.handler
}
