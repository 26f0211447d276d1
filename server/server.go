// Package server exposes the detector and the e-mail records over HTTP.
package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/nvr-ai/roi-detect/config"
	"github.com/nvr-ai/roi-detect/detector"
	"github.com/nvr-ai/roi-detect/metrics"
	"github.com/nvr-ai/roi-detect/notify"
	"github.com/nvr-ai/roi-detect/records"
	"github.com/pkg/errors"
	"github.com/rs/cors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Args are the dependencies of a Server. Store and Hub may be nil, which disables the
// /emails routes.
type Args struct {
	Config   config.Server
	Detector *detector.Detector
	Store    records.Store
	Hub      *notify.Hub
	Metrics  *metrics.Metrics
	Logger   *zap.SugaredLogger
}

// Server is the HTTP front end.
type Server struct {
	cfg      config.Server
	detector *detector.Detector
	store    records.Store
	feed     *notify.Feed
	metrics  *metrics.Metrics
	logger   *zap.SugaredLogger
}

// New creates a server.
func New(args Args) *Server {
	if args.Logger == nil {
		args.Logger = zap.NewNop().Sugar()
	}
	s := &Server{
		cfg:      args.Config,
		detector: args.Detector,
		store:    args.Store,
		metrics:  args.Metrics,
		logger:   args.Logger,
	}
	if args.Store != nil && args.Hub != nil {
		s.feed = &notify.Feed{
			Hub:       args.Hub,
			Topic:     records.Topic,
			Snapshot:  s.snapshot,
			Keepalive: 30 * time.Second,
		}
	}
	return s
}

// Handler returns the routed handler with CORS enabled for every origin.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /predict", s.handlePredict)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	if s.store != nil {
		mux.HandleFunc("GET /emails", s.handleListEmails)
		mux.HandleFunc("POST /emails", s.handleCreateEmail)
		mux.HandleFunc("PUT /emails/{id}", s.handleUpdateEmail)
		mux.HandleFunc("DELETE /emails/{id}", s.handleDeleteEmail)
	}
	if s.feed != nil {
		mux.HandleFunc("GET /emails/stream", s.handleStream)
		mux.Handle("GET /emails/ws", s.tracked("websocket", notify.WebSocketHandler(s.feed, s.logger.Named("ws"))))
	}

	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders: []string{"*"},
	}).Handler(mux)
}

// Run serves on the configured address until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return errors.Wrapf(err, "listening on %s", s.cfg.Addr)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done. Request contexts derive from ctx, so
// open change feeds end when shutdown begins instead of holding it until the timeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	base := ctx
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return base },
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Infow("listening", "addr", ln.Addr().String(), "response_mode", s.cfg.ResponseMode)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "serving http")
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		timeout := s.cfg.ShutdownTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		s.logger.Infow("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// tracked counts connected subscribers of a streaming handler.
func (s *Server) tracked(transport string, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.metrics != nil {
			g := s.metrics.Subscribers.WithLabelValues(transport)
			g.Inc()
			defer g.Dec()
		}
		h.ServeHTTP(w, r)
	})
}
