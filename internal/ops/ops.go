// Package ops serves the operational HTTP endpoints that sit beside the
// wire-protocol listener: liveness and readiness probes for the deployment
// environment.
package ops

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/unrolled/secure"
)

// Server exposes /healthz and /readyz over plain HTTP.
type Server struct {
	addr   string
	logger *slog.Logger
	pool   *pgxpool.Pool
	redis  *redis.Client
}

// New builds the ops server. pool and redis may be nil; readiness then skips
// the corresponding probe.
func New(addr string, logger *slog.Logger, pool *pgxpool.Pool, redisClient *redis.Client) *Server {
	return &Server{addr: addr, logger: logger, pool: pool, redis: redisClient}
}

func (s *Server) router() http.Handler {
	secureMiddleware := secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
	})

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(secureMiddleware.Handler)
	r.Use(httprate.Limit(60, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		if s.pool != nil {
			if err := s.pool.Ping(ctx); err != nil {
				s.logger.Warn("readiness: database ping", slog.Any("error", err))
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"degraded","component":"database"}`))
				return
			}
		}
		if s.redis != nil {
			if err := s.redis.Ping(ctx).Err(); err != nil {
				s.logger.Warn("readiness: redis ping", slog.Any("error", err))
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"degraded","component":"redis"}`))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	})

	return r
}

// Serve runs the ops listener until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
