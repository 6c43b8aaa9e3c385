// README: API gateway; owns the HTTP listener and its graceful shutdown.
package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"errandhub/internal/http/handlers"
	"errandhub/internal/infra"
	"errandhub/internal/modules/lifecycle"
	"errandhub/internal/modules/location"
	"errandhub/internal/modules/matching"
	"errandhub/internal/modules/payment"
	"errandhub/internal/modules/rating"
	"errandhub/internal/modules/request"
)

type ServerDeps struct {
	Requests  *request.Service
	Lifecycle *lifecycle.Controller
	Matching  *matching.Service
	Payments  *payment.Service
	Ratings   *rating.Service
	Tracker   *location.Tracker
	Area      *location.ServiceArea
	Geocoder  handlers.Geocoder
	Verifier  infra.TokenVerifier
	Log       logrus.FieldLogger

	AllowedOrigins []string
}

type Server struct {
	srv             *http.Server
	log             logrus.FieldLogger
	shutdownTimeout time.Duration
}

func NewServer(addr string, shutdownTimeout time.Duration, deps ServerDeps) *Server {
	return &Server{
		srv:             &http.Server{Addr: addr, Handler: NewRouter(deps), ReadHeaderTimeout: 10 * time.Second},
		log:             deps.Log,
		shutdownTimeout: shutdownTimeout,
	}
}

// Run serves until ctx is cancelled, then drains in-flight requests for at most
// the shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", s.srv.Addr).Info("http server listening")
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	s.log.Info("http server shutting down")
	return s.srv.Shutdown(shutdownCtx)
}
