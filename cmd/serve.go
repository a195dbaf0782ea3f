package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/alpha-grader/internal/grading"
	"github.com/sells-group/alpha-grader/internal/model"
	"github.com/sells-group/alpha-grader/internal/monitoring"
)

var (
	servePort   int
	serveSeason int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the grade read API with a periodic guardrail audit",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, cfg, "serve", true)
		if err != nil {
			return err
		}
		defer env.Close()

		api := newAPI(ctx, env.Service, env.Store, env.Metrics)

		if serveSeason > 0 {
			checker := newChecker(env, serveSeason, env.Engine.Version())
			go checker.Run(ctx)
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           api.routes(cfg.Server.AllowedOrigins),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}

		api.wait()
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().IntVar(&serveSeason, "audit-season", 0, "season audited by the background checker (0 disables it)")
	rootCmd.AddCommand(serveCmd)
}

type pinger interface {
	Ping(ctx context.Context) error
}

// api serves the HTTP read path. Background computes run on baseCtx and
// are awaited on shutdown.
type api struct {
	svc     *grading.Service
	db      pinger
	metrics *monitoring.Metrics
	baseCtx context.Context
	jobs    sync.WaitGroup
}

func newAPI(ctx context.Context, svc *grading.Service, db pinger, metrics *monitoring.Metrics) *api {
	return &api{svc: svc, db: db, metrics: metrics, baseCtx: ctx}
}

func (a *api) wait() { a.jobs.Wait() }

func (a *api) routes(origins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", a.handleHealth)
	r.Get("/v1/grades", a.handleGrades)
	r.Post("/v1/grades/compute", a.handleCompute)
	if a.metrics != nil {
		r.Handle("/metrics", a.metrics.Handler())
	}
	return r
}

func (a *api) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := a.db.Ping(r.Context()); err != nil {
		zap.L().Warn("health check failed", zap.Error(err))
		writeStatus(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeStatus(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *api) handleGrades(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	season, err := intParam(params.Get("season"), 0)
	if err != nil || season == 0 {
		writeError(w, http.StatusBadRequest, "season is required")
		return
	}
	limit, err := intParam(params.Get("limit"), 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "limit must be an integer")
		return
	}

	q := grading.Query{
		Season:   season,
		Position: params.Get("position"),
		Limit:    limit,
		Version:  params.Get("version"),
	}
	if raw := params.Get("week"); raw != "" {
		week, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "week must be an integer")
			return
		}
		q.AsOfWeek = &week
	}

	snap, err := a.svc.GetGradesFromCache(r.Context(), q)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeStatus(w, http.StatusOK, snap)
}

type computeRequest struct {
	Position string `json:"position"`
	Season   int    `json:"season"`
	Week     int    `json:"week"`
	grading.Options
}

// handleCompute starts a batch. With ?wait=true it blocks and returns the
// result; otherwise it answers 202 and runs in the background.
func (a *api) handleCompute(w http.ResponseWriter, r *http.Request) {
	var req computeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Mode != "" {
		mode, err := model.ParseMode(string(req.Mode))
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		req.Mode = mode
	}

	if wait, _ := strconv.ParseBool(r.URL.Query().Get("wait")); wait {
		res, err := a.compute(r.Context(), req)
		if err != nil {
			a.fail(w, err)
			return
		}
		writeStatus(w, http.StatusOK, res)
		return
	}

	// Reject bad arguments before accepting the job.
	if err := a.precheck(req); err != nil {
		a.fail(w, err)
		return
	}

	a.jobs.Add(1)
	go func() {
		defer a.jobs.Done()
		if _, err := a.compute(a.baseCtx, req); err != nil {
			zap.L().Error("background compute failed",
				zap.String("position", req.Position),
				zap.Int("season", req.Season),
				zap.Int("week", req.Week),
				zap.Error(err),
			)
		}
	}()

	writeStatus(w, http.StatusAccepted, map[string]any{
		"status":   "accepted",
		"position": strings.ToUpper(req.Position),
		"season":   req.Season,
		"week":     req.Week,
	})
}

func (a *api) compute(ctx context.Context, req computeRequest) (any, error) {
	if strings.EqualFold(req.Position, model.PositionAll) {
		return a.svc.ComputeAllGrades(ctx, req.Season, req.Week, req.Options)
	}
	return a.svc.ComputeAndCacheGrades(ctx, req.Position, req.Season, req.Week, req.Options)
}

// precheck validates arguments without doing any work.
func (a *api) precheck(req computeRequest) error {
	return grading.CheckArgs(req.Position, req.Season, req.Week, req.Version)
}

// fail maps argument errors to 400 and everything else to 500.
func (a *api) fail(w http.ResponseWriter, err error) {
	if grading.IsInvalidArgument(err) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	zap.L().Error("request failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func writeStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeStatus(w, status, map[string]string{"error": msg})
}
