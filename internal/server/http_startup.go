package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"resumeforge/internal/i18n"

	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

// Start serves HTTP until ctx is cancelled or a termination signal arrives.
// The session janitor, resume sweeper, limiter cleanup and locale watcher run
// alongside the listener and stop with it.
func (s *Server) Start(ctx context.Context) error {
	httpServer := s.setupHTTPServer()
	if err := s.configureTLS(httpServer); err != nil {
		return err
	}
	watcher, err := s.newLocaleWatcher()
	if err != nil {
		return err
	}

	s.displayServerInfo()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.listen(httpServer)
	})

	g.Go(func() error {
		<-gctx.Done()
		s.Logger.Info("Starting graceful shutdown")
		return s.performGracefulShutdown(httpServer)
	})

	janitorInterval := time.Duration(0)
	if s.AppConfig != nil {
		janitorInterval = s.AppConfig.Interview.JanitorInterval
	}
	if s.sessions != nil {
		g.Go(func() error {
			return s.sessions.RunJanitor(gctx, janitorInterval)
		})
	}
	if s.sink != nil {
		g.Go(func() error {
			return s.sink.RunJanitor(gctx, janitorInterval)
		})
	}

	if s.RateLimiter != nil {
		g.Go(func() error {
			return s.RateLimiter.Run(gctx, s.RateLimit.Window)
		})
	}

	if watcher != nil {
		g.Go(func() error {
			return watcher.Run(gctx)
		})
	}

	return g.Wait()
}

// setupHTTPServer creates and configures the HTTP server
func (s *Server) setupHTTPServer() *http.Server {
	handler := s.observability.HTTPMiddleware()(s.setupRoutes())

	return &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.Host, s.Port),
		Handler:      handler,
		ReadTimeout:  s.ReadTimeout,
		WriteTimeout: s.WriteTimeout,
		IdleTimeout:  s.IdleTimeout,
	}
}

// listen blocks until the server stops. A clean shutdown is not an error.
func (s *Server) listen(server *http.Server) error {
	s.Logger.Info("Starting HTTP server",
		"address", server.Addr,
		"tls_enabled", server.TLSConfig != nil)

	var err error
	if server.TLSConfig != nil {
		// Certificates are already loaded into the TLS config
		err = server.ListenAndServeTLS("", "")
	} else {
		err = server.ListenAndServe()
	}

	if err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// newLocaleWatcher returns a watcher for locale overrides, or nil when watching is off
func (s *Server) newLocaleWatcher() (*i18n.Watcher, error) {
	if s.AppConfig == nil || s.catalog == nil || !s.AppConfig.I18n.Watch || s.AppConfig.I18n.OverridesDir == "" {
		return nil, nil
	}

	watcher, err := i18n.NewWatcher(s.catalog, 0, func() {
		s.Logger.Info("Locale catalog reloaded", "locales", s.catalog.Locales())
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create locale watcher: %w", err)
	}
	return watcher, nil
}

// performGracefulShutdown handles the graceful shutdown process
func (s *Server) performGracefulShutdown(server *http.Server) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.Logger.Info("Shutting down HTTP server...")
	if err := server.Shutdown(shutdownCtx); err != nil {
		s.Logger.LogError(err, "Failed to shutdown server gracefully, forcing close")
		return server.Close()
	}

	s.Logger.Info("Server shutdown completed successfully")
	return nil
}
