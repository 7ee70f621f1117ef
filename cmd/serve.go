package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/orbzodiac84/regpulse/internal/pipeline"
	"github.com/orbzodiac84/regpulse/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scheduler with an HTTP trigger and status API",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		sched := pipeline.NewScheduler(env.Pipeline, cfg.Scheduler.Interval(), cfg.Scheduler.CycleTimeout())
		go func() {
			_ = sched.Run(ctx)
		}()

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.Recoverer)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST"},
		}))

		r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Post("/collect", func(w http.ResponseWriter, req *http.Request) {
			if !sched.Trigger(ctx) {
				writeJSON(w, http.StatusConflict, map[string]string{"error": "collection already running"})
				return
			}
			writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
		})

		r.Get("/stats", func(w http.ResponseWriter, req *http.Request) {
			stats, err := env.Store.AgencyStats(req.Context())
			if err != nil {
				zap.L().Error("stats query failed", zap.Error(err))
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "stats unavailable"})
				return
			}
			if stats == nil {
				stats = []store.AgencyStat{}
			}
			writeJSON(w, http.StatusOK, stats)
		})

		r.Get("/articles", func(w http.ResponseWriter, req *http.Request) {
			filter := store.ArticleFilter{
				Agency: req.URL.Query().Get("agency"),
			}
			articles, err := env.Store.ListArticles(req.Context(), filter)
			if err != nil {
				zap.L().Error("article list failed", zap.Error(err))
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "articles unavailable"})
				return
			}
			writeJSON(w, http.StatusOK, articles)
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: r,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			// The signal context is already canceled; give in-flight
			// requests their own deadline to drain.
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
