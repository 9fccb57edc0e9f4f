// Package webui serves the icon cache internals over HTTP.
package webui

import (
	"context"
	"errors"
	"fmt"
	"image"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bnema/touchicons/internal/application/port"
	"github.com/bnema/touchicons/internal/domain/entity"
	"github.com/bnema/touchicons/internal/infrastructure/metrics"
	"github.com/bnema/touchicons/internal/logging"
)

const (
	// DefaultPreviewSize is the edge used by GET /icons/image when size is omitted.
	DefaultPreviewSize = 85

	shutdownTimeout   = 5 * time.Second
	readHeaderTimeout = 10 * time.Second
)

// IconCache is the subset of the per-profile cache the internals surface needs.
type IconCache interface {
	FetchIconIfNeeded(ctx context.Context, candidate *entity.Candidate) error
	LoadIcon(ctx context.Context, origin string, size int) (image.Image, error)
	DeleteIconForOrigin(ctx context.Context, origin string) (bool, error)
	SerializeCachedIcons(ctx context.Context) ([]*entity.IconRecord, error)
	Capacity() int
}

// CacheProvider resolves a profile id to its cache.
type CacheProvider interface {
	Cache(ctx context.Context, profileID string) (IconCache, error)
}

// CacheProviderFunc adapts a function to CacheProvider.
type CacheProviderFunc func(ctx context.Context, profileID string) (IconCache, error)

// Cache implements CacheProvider.
func (f CacheProviderFunc) Cache(ctx context.Context, profileID string) (IconCache, error) {
	return f(ctx, profileID)
}

// Options configures the internals server.
type Options struct {
	Provider       CacheProvider
	Codec          port.ImageCodec
	Metrics        *metrics.Metrics // nil disables /metrics
	DefaultProfile string
	Debug          bool
}

// Server wraps the gin router and the HTTP listener.
type Server struct {
	router *gin.Engine
	opts   Options
}

// NewServer builds the router. ctx carries the logger used for request logs.
func NewServer(ctx context.Context, opts Options) (*Server, error) {
	if opts.Provider == nil {
		return nil, errors.New("webui: cache provider is required")
	}
	if opts.Codec == nil {
		return nil, errors.New("webui: image codec is required")
	}

	if !opts.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logging.WithComponent(ctx, "internals")))
	if opts.Metrics != nil {
		router.Use(metricsMiddleware(opts.Metrics))
	}

	s := &Server{router: router, opts: opts}
	h := &handlers{provider: opts.Provider, codec: opts.Codec, defaultProfile: opts.DefaultProfile}

	router.GET("/healthz", h.health)
	router.GET("/icons", h.listIcons)
	router.GET("/icons/image", h.iconImage)
	router.DELETE("/icons", h.deleteIcon)
	router.POST("/icons/candidates", h.submitCandidate)
	if opts.Metrics != nil {
		router.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}

	return s, nil
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, listener)
}

// Serve serves on listener until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	log := logging.FromContext(ctx)
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", listener.Addr().String()).Msg("internals server listening")
		errCh <- srv.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("internals server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down internals server: %w", err)
	}
	log.Info().Msg("internals server stopped")
	return nil
}
