package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"vidsum/internal/cache"
	"vidsum/internal/config"
	"vidsum/internal/gc"
	"vidsum/internal/jobqueue"
	"vidsum/internal/logging"
	"vidsum/internal/metadata"
	"vidsum/internal/uploadstore"
)

// Version is stamped into /health responses. Overridden at build time via
// -ldflags.
var Version = "dev"

// Server wires the HTTP surface to the engine's in-process components: no
// network hop, no serialization boundary beyond the one this package
// itself defines.
type Server struct {
	cfg         *config.Config
	logger      *slog.Logger
	store       *metadata.Store
	coordinator *cache.Coordinator
	uploads     *uploadstore.Store
	queue       *jobqueue.Queue
	sweeper     *gc.Sweeper

	uploadLimiters  *clientLimiters
	summaryLimiters *clientLimiters

	httpServer *http.Server
}

// New builds a Server. Call Routes() (e.g. for tests) or Start()/Shutdown()
// (for the daemon) to run it.
func New(cfg *config.Config, logger *slog.Logger, store *metadata.Store, coordinator *cache.Coordinator, uploads *uploadstore.Store, queue *jobqueue.Queue, sweeper *gc.Sweeper) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Server{
		cfg:             cfg,
		logger:          logging.NewComponentLogger(logger, "httpapi"),
		store:           store,
		coordinator:     coordinator,
		uploads:         uploads,
		queue:           queue,
		sweeper:         sweeper,
		uploadLimiters:  newClientLimiters(cfg.Upload.RatePerMinute),
		summaryLimiters: newClientLimiters(cfg.Summary.RatePerMinute),
	}
}

// Routes builds the chi.Mux for the HTTP surface this package exposes.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(echoRequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(s.logger))

	r.Get("/health", s.handleHealth)

	r.With(rateLimit(s.uploadLimiters)).Post("/api/uploads", s.handleUpload)
	r.Post("/api/cache/lookup", s.handleLookup)
	r.With(rateLimit(s.summaryLimiters)).Post("/api/summaries", s.handleSummary)
	r.Get("/api/jobs/{job_id}", s.handleGetJob)
	r.Get("/api/cache/{cache_key}", s.handleGetCacheEntry)
	r.Delete("/api/cache/{cache_key}", s.handleDeleteCacheEntry)
	r.Post("/api/cache/gc", s.handleCacheGC)

	return r
}

// Start begins serving on cfg.Paths.APIBind. It returns when ctx is
// cancelled (after calling Shutdown) or when the listener stops, for example
// because it fails to bind; ListenAndServe's own shutdown error is reported
// to the caller as nil, matching net/http.Server's contract.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:    s.cfg.Paths.APIBind,
		Handler: s.Routes(),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api listening", logging.String("addr", s.cfg.Paths.APIBind))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		return s.Shutdown()
	case err := <-errCh:
		return err
	}
}

// Shutdown drains in-flight requests with a bounded grace period.
func (s *Server) Shutdown() error {
	if s.httpServer == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("request",
				logging.String("method", r.Method),
				logging.String("path", r.URL.Path),
				logging.Int("status", ww.Status()),
				logging.Duration("elapsed", time.Since(start)),
				logging.String("request_id", requestIDFrom(r)))
		})
	}
}
