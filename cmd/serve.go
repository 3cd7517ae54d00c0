package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/medallion-cli/internal/gold"
	"github.com/sells-group/medallion-cli/internal/lake"
	"github.com/sells-group/medallion-cli/internal/model"
	"github.com/sells-group/medallion-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the gold layer over a read-only HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           newRouter(newLake(), st),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			_ = srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port), zap.String("lake", cfg.Lake.Root))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// api serves gold artifacts and run history. Artifacts are read on every
// request so a recompute is visible without a restart.
type api struct {
	lake  *lake.Lake
	store store.Store
}

func newRouter(l *lake.Lake, st store.Store) http.Handler {
	h := &api{lake: l, store: st}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Route("/api", func(r chi.Router) {
		r.Get("/products", h.listProducts)
		r.Get("/products/{productID}", h.getProduct)
		r.Get("/stats", h.getStats)
		r.Get("/runs", h.listRuns)
		r.Get("/runs/{runID}", h.getRun)
	})
	r.Get("/dashboard.png", h.getDashboard)
	return r
}

// productOrders maps the sort query value to a comparison.
var productOrders = map[string]func(a, b model.ProductPerformance) int{
	"composite": func(a, b model.ProductPerformance) int { return a.RankComposite - b.RankComposite },
	"revenue":   func(a, b model.ProductPerformance) int { return a.RankRevenue - b.RankRevenue },
	"grade":     func(a, b model.ProductPerformance) int { return a.RankGrade - b.RankGrade },
}

func (h *api) listProducts(w http.ResponseWriter, r *http.Request) {
	rows, ok := h.readProducts(w, r)
	if !ok {
		return
	}

	if by := r.URL.Query().Get("sort"); by != "" {
		cmp, known := productOrders[by]
		if !known {
			writeError(w, http.StatusBadRequest, "sort must be composite, revenue or grade")
			return
		}
		slices.SortStableFunc(rows, cmp)
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		if limit < len(rows) {
			rows = rows[:limit]
		}
	}
	if rows == nil {
		rows = []model.ProductPerformance{}
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *api) getProduct(w http.ResponseWriter, r *http.Request) {
	rows, ok := h.readProducts(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "productID")
	for _, p := range rows {
		if p.ProductID == id {
			writeJSON(w, http.StatusOK, p)
			return
		}
	}
	writeError(w, http.StatusNotFound, "product not found: "+id)
}

func (h *api) getStats(w http.ResponseWriter, _ *http.Request) {
	path := h.lake.Path(lake.Gold, lake.StatsFile)
	if !exists(w, path) {
		return
	}
	stats, err := gold.ReadStats(path)
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *api) listRuns(w http.ResponseWriter, r *http.Request) {
	filter := store.RunFilter{
		Status:   model.RunStatus(r.URL.Query().Get("status")),
		LakeRoot: h.lake.Root(),
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		filter.Limit = limit
	}

	runs, err := h.store.ListRuns(r.Context(), filter)
	if err != nil {
		internalError(w, err)
		return
	}
	if runs == nil {
		runs = []model.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (h *api) getRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.store.GetRun(r.Context(), chi.URLParam(r, "runID"))
	if eris.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		internalError(w, err)
		return
	}
	phases, err := h.store.ListPhases(r.Context(), run.ID)
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, runDetail{Run: run, Stages: phases})
}

func (h *api) getDashboard(w http.ResponseWriter, r *http.Request) {
	path := h.lake.Path(lake.Gold, lake.DashboardFile)
	if !exists(w, path) {
		return
	}
	w.Header().Set("Content-Type", "image/png")
	http.ServeFile(w, r, path)
}

func (h *api) readProducts(w http.ResponseWriter, r *http.Request) ([]model.ProductPerformance, bool) {
	path := h.lake.Path(lake.Gold, lake.PerformanceTable)
	if !exists(w, path) {
		return nil, false
	}
	rows, err := gold.ReadProducts(r.Context(), path)
	if err != nil {
		internalError(w, err)
		return nil, false
	}
	return rows, true
}

// exists writes a 404 and returns false when path is missing.
func exists(w http.ResponseWriter, path string) bool {
	_, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		writeError(w, http.StatusNotFound, "gold layer has not been built")
		return false
	}
	if err != nil {
		internalError(w, err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func internalError(w http.ResponseWriter, err error) {
	zap.L().Error("api request failed", zap.String("component", "serve"), zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}
