// Package httpapi exposes the portal's auth core over HTTP. The layer
// stays thin: handlers decode, call the service and translate its error
// taxonomy onto statuses. All invariants live below.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/helioview/portal/internal/logging"
	"github.com/helioview/portal/internal/server/services"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	address    string
	svc        *services.AuthService
	logger     logging.Logger
	sessionTTL time.Duration
}

func NewServer(address string, svc *services.AuthService, logger logging.Logger, sessionTTL time.Duration) (*Server, error) {
	return &Server{
		address:    address,
		svc:        svc,
		logger:     logger.With("module", "http_server"),
		sessionTTL: sessionTTL,
	}, nil
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.address,
		Handler: s.routes(),
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP server shutdown", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
