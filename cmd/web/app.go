package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"finitefield.org/routine-web/internal/catalog"
	"finitefield.org/routine-web/internal/config"
	"finitefield.org/routine-web/internal/content"
	"finitefield.org/routine-web/internal/i18n"
	"finitefield.org/routine-web/internal/metrics"
	mw "finitefield.org/routine-web/internal/middleware"
	"finitefield.org/routine-web/internal/overlay"
	"finitefield.org/routine-web/internal/routine"
	"finitefield.org/routine-web/internal/selection"
	"finitefield.org/routine-web/internal/view"
)

// App owns every piece of per-process state. Per-session state lives in the selection and
// overlay registries, keyed by session ID.
type App struct {
	cfg        config.Config
	logger     *zap.Logger
	templates  *templateSet
	bundle     *i18n.Bundle
	catalog    *catalog.Store
	selections *selection.Registry
	overlays   *overlay.Registry
	routines   *routine.Builder
	content    *content.Source
	renderer   *view.Renderer
	metrics    *metrics.Recorder
	closers    []io.Closer
}

// NewApp wires the application from cfg. Call Close to release the selection database.
func NewApp(cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	bundle, err := i18n.Load(cfg.Paths.Locales, "en", []string{"en", "ja", "ar"})
	if err != nil {
		return nil, fmt.Errorf("load i18n: %w", err)
	}
	templates, err := newTemplateSet(cfg.Paths.Templates, cfg.Dev, bundle)
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	a := &App{
		cfg:       cfg,
		logger:    logger,
		templates: templates,
		bundle:    bundle,
		catalog:   catalog.NewStore(cfg.Catalog.Source, catalog.WithLogger(logger.Named("catalog"))),
		overlays: overlay.NewRegistry(
			overlay.WithCapacity(cfg.Session.StateCapacity),
			overlay.WithIdleTTL(cfg.Session.StateIdleTTL),
		),
		routines: routine.NewBuilder(cfg.Routine(), logger.Named("routine")),
		content:  content.NewSource(cfg.Paths.Content),
		renderer: view.NewRenderer(),
		metrics:  metrics.New(),
	}

	var store selection.Store
	if cfg.Selection.DBPath != "" {
		db, err := selection.NewSQLiteStore(cfg.Selection.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open selection store: %w", err)
		}
		a.closers = append(a.closers, db)
		store = db
	} else {
		store = selection.NewMemoryStoreSize(cfg.Session.StateCapacity)
	}
	a.selections = selection.NewRegistry(selection.NewManager(store, logger.Named("selection")),
		selection.WithCapacity(cfg.Session.StateCapacity),
		selection.WithIdleTTL(cfg.Session.StateIdleTTL),
	)

	mw.ConfigureSessions(cfg.Session.SigningKey, cfg.Session.SecureCookie)
	logger.Info("app configured",
		zap.String("catalog", cfg.Catalog.Source),
		zap.String("routine_mode", string(a.routines.Mode())),
		zap.Bool("persistent_selection", cfg.Selection.DBPath != ""),
		zap.Bool("dev", cfg.Dev),
	)
	return a, nil
}

// Close releases held resources.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Routes builds the HTTP handler.
func (a *App) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	// RealIP trusts X-Forwarded-For; only deploy behind a proxy that sets it.
	r.Use(chimw.RealIP)
	r.Use(mw.HTMX)
	r.Use(mw.RequestLogger(a.logger))
	r.Use(chimw.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", a.metrics.Handler())
	r.Handle("/assets/*", mw.AssetsWithCache(filepath.Join(a.cfg.Paths.Public, "assets"), "/assets", a.cfg.Dev))

	r.Group(func(r chi.Router) {
		r.Use(mw.Session)
		r.Use(mw.Locale(a.bundle))
		r.Use(mw.CSRF)
		r.Use(mw.VaryLocale)
		r.Use(chimw.Compress(5))
		if d := a.cfg.Server.RequestTimeout; d > 0 {
			r.Use(chimw.Timeout(d))
		}

		r.Get("/", a.CatalogPage)
		r.Get("/products", a.ProductsFrag)
		r.Get("/products/{productID}/overlay", a.OverlayOpen)
		r.Delete("/overlay", a.OverlayClose)

		r.Get("/selection", a.SelectionSummaryFrag)
		r.Post("/selection/clear", a.SelectionClear)
		r.Post("/selection/{productID}/toggle", a.SelectionToggle)
		r.Post("/selection/{productID}/remove", a.SelectionRemove)

		r.Post("/routine", a.RoutineBuild)
		r.Post("/chat", a.ChatSubmit)

		r.Get("/pages/{slug}", a.ContentPage)
	})
	return r
}
