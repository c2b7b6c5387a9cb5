package broker

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/platinummonkey/qauth/pkg/httputil"
	"github.com/platinummonkey/qauth/pkg/observability"
)

// ServerConfig holds the HTTP serving configuration
type ServerConfig struct {
	// Addr is the listen address of the broker itself, e.g. ":3000"
	Addr string

	// OpsAddr is the listen address of the operational endpoints
	// (metrics, readiness), kept off the public listener
	OpsAddr string

	// AllowedOrigins for CORS; empty disables CORS handling
	AllowedOrigins []string

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server wires the broker handlers into an HTTP server with the standard
// middleware chain, plus a separate operational server for metrics and
// readiness.
type Server struct {
	app     *http.Server
	ops     *http.Server
	logger  *observability.Logger
	readyFn func(context.Context) error
}

// NewServer builds the broker server. readyFn, if non-nil, backs the
// readiness endpoint; wire it to the session store's ping.
func NewServer(cfg ServerConfig, handlers *Handlers, logger *observability.Logger, metrics *observability.Metrics, readyFn func(context.Context) error) *Server {
	router := mux.NewRouter()
	handlers.RegisterRoutes(router)

	middlewares := []func(http.Handler) http.Handler{
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(logger),
		httputil.RecoveryMiddleware(logger),
	}
	if len(cfg.AllowedOrigins) > 0 {
		middlewares = append(middlewares, httputil.CORSMiddleware(cfg.AllowedOrigins))
	}
	if metrics != nil {
		middlewares = append(middlewares, httputil.MetricsMiddleware(metrics, routeName))
	}

	var handler http.Handler = httputil.Chain(middlewares...)(router)
	handler = otelhttp.NewHandler(handler, "qauth")

	readTimeout := cfg.ReadTimeout
	if readTimeout == 0 {
		readTimeout = 15 * time.Second
	}
	writeTimeout := cfg.WriteTimeout
	if writeTimeout == 0 {
		writeTimeout = 30 * time.Second
	}

	s := &Server{
		app: &http.Server{
			Addr:         cfg.Addr,
			Handler:      handler,
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
		},
		logger:  logger,
		readyFn: readyFn,
	}

	if cfg.OpsAddr != "" {
		opsMux := http.NewServeMux()
		if metrics != nil {
			opsMux.Handle("/metrics", metrics.Handler())
		}
		opsMux.HandleFunc("/healthz", s.healthz)
		opsMux.HandleFunc("/readyz", s.readyz)
		s.ops = &http.Server{
			Addr:         cfg.OpsAddr,
			Handler:      opsMux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
		}
	}

	return s
}

// App returns the broker's HTTP server
func (s *Server) App() *http.Server {
	return s.app
}

// Ops returns the operational HTTP server, nil when no OpsAddr was
// configured
func (s *Server) Ops() *http.Server {
	return s.ops
}

// Start serves both listeners. It blocks until the app server stops; the
// ops server runs on its own goroutine.
func (s *Server) Start() error {
	if s.ops != nil {
		go func() {
			s.logger.Infof("operational endpoints listening on %s", s.ops.Addr)
			if err := s.ops.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				s.logger.WithError(err).Error("operational server failed")
			}
		}()
	}

	s.logger.Infof("broker listening on %s", s.app.Addr)
	err := s.app.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if s.readyFn != nil {
		if err := s.readyFn(r.Context()); err != nil {
			s.logger.WithError(err).Warn("readiness check failed")
			httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// routeName labels metrics with the matched route template rather than the
// raw path, keeping identity path parameters out of the label set.
func routeName(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return "unmatched"
}
