// Package httpapi serves the read-only LED state, a health check and the
// Prometheus metrics over HTTP.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/farouk15160/led-mqtt-control/internal/leds"
)

// StateSource supplies the current LED state.
type StateSource interface {
	Snapshot() leds.Snapshot
}

// Connectivity reports whether the broker connection is up.
type Connectivity interface {
	IsConnected() bool
}

// Health is the /healthz response body.
type Health struct {
	MQTTConnected bool `json:"mqtt_connected"`
}

// NewRouter builds the routes. metrics may be nil.
func NewRouter(state StateSource, conn Connectivity, metrics http.Handler, logger zerolog.Logger) *mux.Router {
	r := mux.NewRouter()
	r.Use(requestLoggerMiddleware(logger))
	r.Use(recoverPanicMiddleware(logger))
	r.NotFoundHandler = notFoundHandler(logger)
	r.MethodNotAllowedHandler = methodNotAllowedHandler(logger)

	r.Path("/api/leds").Methods("GET").HandlerFunc(func(rw http.ResponseWriter, _ *http.Request) {
		rw.Header().Set("Content-Type", "application/json")
		writeJSON(rw, logger, state.Snapshot())
	})
	r.Path("/healthz").Methods("GET").HandlerFunc(func(rw http.ResponseWriter, _ *http.Request) {
		h := Health{MQTTConnected: conn.IsConnected()}
		rw.Header().Set("Content-Type", "application/json")
		if !h.MQTTConnected {
			rw.WriteHeader(http.StatusServiceUnavailable)
		}
		writeJSON(rw, logger, h)
	})
	if metrics != nil {
		r.Path("/metrics").Methods("GET").Handler(metrics)
	}
	return r
}

// Server runs the router on a listen address.
type Server struct {
	srv    *http.Server
	logger zerolog.Logger
}

// NewServer creates a server for handler on addr.
func NewServer(addr string, handler http.Handler, logger zerolog.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// Serve listens until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	s.logger.Info().Str("addr", ln.Addr().String()).Msg("listening")

	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}
