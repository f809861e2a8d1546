package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/seller-scout/internal/cache"
	"github.com/sells-group/seller-scout/internal/config"
	"github.com/sells-group/seller-scout/internal/model"
	"github.com/sells-group/seller-scout/internal/pipeline"
	"github.com/sells-group/seller-scout/internal/store"
)

var servePort int

// searchRunner runs one search.
type searchRunner interface {
	Execute(ctx context.Context, query, region string) (*model.Result, error)
}

// historyLister lists past searches.
type historyLister interface {
	ListSearches(ctx context.Context, filter store.SearchFilter) ([]model.SearchRecord, error)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP search API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initApp(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		var hist historyLister
		if env.Store != nil {
			hist = env.Store
		}
		handler := buildRouter(env.Pipeline, env.Cache, hist, cfg.Server)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// buildRouter wires the API routes. Any dependency may be nil; the matching
// routes then answer 503.
func buildRouter(runner searchRunner, c cache.Cache, hist historyLister, srvCfg config.ServerConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if srvCfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(srvCfg.RequestTimeout))
	}

	origins := srvCfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Get("/search", func(w http.ResponseWriter, req *http.Request) {
			if runner == nil {
				writeError(w, http.StatusServiceUnavailable, "search is not configured")
				return
			}
			q := req.URL.Query()
			query, region := q.Get("q"), q.Get("region")
			if region == "" {
				region = "ar"
			}

			res, err := runner.Execute(req.Context(), query, region)
			if err != nil {
				status := http.StatusInternalServerError
				if pipeline.IsValidationError(err) {
					status = http.StatusBadRequest
				}
				writeJSON(w, status, pipeline.ErrorResult(query, region, err))
				return
			}
			writeJSON(w, http.StatusOK, res)
		})

		r.Delete("/cache", func(w http.ResponseWriter, req *http.Request) {
			if c == nil {
				writeError(w, http.StatusServiceUnavailable, "cache is not configured")
				return
			}
			if err := c.Clear(req.Context()); err != nil {
				zap.L().Error("cache clear failed", zap.Error(err))
				writeError(w, http.StatusInternalServerError, "cache clear failed")
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
		})

		r.Get("/history", func(w http.ResponseWriter, req *http.Request) {
			if hist == nil {
				writeError(w, http.StatusServiceUnavailable, "history is not configured")
				return
			}
			q := req.URL.Query()
			filter := store.SearchFilter{
				Term:   q.Get("term"),
				Region: q.Get("region"),
				Status: model.Status(q.Get("status")),
			}
			if v := q.Get("limit"); v != "" {
				n, err := strconv.Atoi(v)
				if err != nil || n < 0 {
					writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
					return
				}
				filter.Limit = n
			}

			records, err := hist.ListSearches(req.Context(), filter)
			if err != nil {
				zap.L().Error("list history failed", zap.Error(err))
				writeError(w, http.StatusInternalServerError, "history unavailable")
				return
			}
			if records == nil {
				records = []model.SearchRecord{}
			}
			writeJSON(w, http.StatusOK, records)
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
