// Package ui exposes the JSON API: uploads, analysis runs, results,
// dataset Q&A and text-to-SQL. Rendered chart images are served as
// static files.
package ui

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"datalyst/app"
	"datalyst/internal"
	"datalyst/internal/config"
)

// App represents the API application
type App struct {
	router  *chi.Mux
	service *app.AnalysisService
	cfg     *config.Config
	log     *internal.Logger
	server  *http.Server
}

// NewApp creates the API application and wires its routes
func NewApp(cfg *config.Config, service *app.AnalysisService) *App {
	a := &App{
		router:  chi.NewRouter(),
		service: service,
		cfg:     cfg,
		log:     internal.NewLogger("API"),
	}
	a.setupMiddleware()
	a.setupRoutes()
	return a
}

// setupMiddleware configures HTTP middleware
func (a *App) setupMiddleware() {
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Compress(5))

	// Serve rendered chart images
	viz := http.FileServer(http.Dir(a.cfg.Storage.VisualizationsDir))
	a.router.Handle("/visualizations/*", http.StripPrefix("/visualizations/", viz))
}

// setupRoutes configures the application routes
func (a *App) setupRoutes() {
	a.router.Get("/", a.handleHealth)

	a.router.Post("/api/upload", a.handleUpload)
	a.router.Post("/api/analyze/{datasetID}", a.handleAnalyze)
	a.router.Get("/api/analysis/{analysisID}", a.handleGetAnalysis)
	a.router.Get("/api/datasets", a.handleListDatasets)
	a.router.Delete("/api/datasets/{datasetID}", a.handleDeleteDataset)
	a.router.Post("/api/question", a.handleQuestion)
	a.router.Post("/api/text-to-sql", a.handleTextToSQL)
}

// Router exposes the handler for serving and tests
func (a *App) Router() http.Handler {
	return a.router
}

// Start runs the HTTP server until the context is canceled
func (a *App) Start(ctx context.Context) error {
	a.server = &http.Server{
		Addr:    ":" + a.cfg.Server.Port,
		Handler: a.router,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("listening on :%s", a.cfg.Server.Port)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	}
}

// noCacheHeaders is applied to analysis responses so clients never show
// a stale run after re-analysis overwrote the artifacts.
func noCacheHeaders(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Expires", time.Unix(0, 0).UTC().Format(http.TimeFormat))
}
