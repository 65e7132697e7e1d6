package main

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"lcaweb/internal/catalog"
	"lcaweb/internal/config"
	"lcaweb/internal/domain"
	"lcaweb/internal/logging"
	"lcaweb/internal/matchapi"
	"lcaweb/internal/matcher"
	"lcaweb/internal/results"
	"lcaweb/internal/workflow"
)

// app carries everything the handlers share.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	svc      matchapi.Service
	sessions *workflow.Store
	tmpl     *template.Template

	// ctx bounds background catalog requests; wg tracks them for shutdown.
	ctx context.Context
	wg  sync.WaitGroup
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Logging.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	svc, closeSvc, err := newService(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeSvc()

	a, err := newApp(ctx, cfg, logger, svc)
	if err != nil {
		return err
	}
	go a.sessions.Run(ctx, cfg.Session.SweepInterval)

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      a.router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	a.wg.Wait()
	return nil
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger, svc matchapi.Service) (*app, error) {
	tmpl, err := loadTemplates()
	if err != nil {
		return nil, err
	}
	initial := workflow.State{View: results.Query{PageSize: cfg.Results.PageSize}}
	return &app{
		cfg:      cfg,
		logger:   logger.With("component", "web"),
		svc:      svc,
		sessions: workflow.NewStore(cfg.Session.TTL, initial),
		tmpl:     tmpl,
		ctx:      ctx,
	}, nil
}

// newService picks the remote match service when configured, else opens the
// local catalog store, seeds it and matches in process.
func newService(ctx context.Context, cfg config.Config, logger *slog.Logger) (matchapi.Service, func(), error) {
	if cfg.Catalog.RemoteURL != "" {
		limit := rate.Inf
		if cfg.Catalog.RateLimit > 0 {
			limit = rate.Limit(cfg.Catalog.RateLimit)
		}
		logger.Info("using remote catalog service", "url", cfg.Catalog.RemoteURL)
		client := matchapi.NewClient(matchapi.ClientConfig{
			BaseURL:   cfg.Catalog.RemoteURL,
			Timeout:   cfg.Catalog.Timeout,
			RateLimit: limit,
			Burst:     cfg.Catalog.Burst,
		})
		return client, func() {}, nil
	}

	store, err := catalog.Open(ctx, cfg.Catalog.DBPath)
	if err != nil {
		return nil, nil, err
	}
	cat, err := loadCatalog(ctx, store, cfg.Catalog.SeedPath, logger)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	m := matcher.New(matcher.Options{
		AcceptThreshold: cfg.Matching.AcceptThreshold,
		Fuzziness:       cfg.Matching.Fuzziness,
		MinMatchLength:  cfg.Matching.MinMatchLength,
	})
	return matchapi.NewLocal(m, cat), func() { store.Close() }, nil
}

// loadCatalog seeds an empty store and replaces the stored catalog when the
// seed carries a newer version.
func loadCatalog(ctx context.Context, store *catalog.Store, seedPath string, logger *slog.Logger) (*catalog.Catalog, error) {
	seed, err := catalog.DefaultSeed()
	if seedPath != "" {
		seed, err = catalog.LoadSeed(seedPath)
	}
	if err != nil {
		return nil, err
	}

	seeded, err := store.EnsureSeeded(ctx, seed)
	if err != nil {
		return nil, err
	}
	if !seeded {
		stored, err := store.Version(ctx)
		if err != nil {
			return nil, err
		}
		if seed.Version > stored {
			if err := store.Replace(ctx, seed.Version, seed.Materials); err != nil {
				return nil, err
			}
			logger.Info("catalog upgraded", "from", stored, "to", seed.Version)
		}
	}

	cat, err := store.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	logger.Info("catalog loaded", "version", cat.Version(), "records", cat.Len(), "seeded", seeded)
	return cat, nil
}

func (a *app) router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestIDMiddleware(), loggerMiddleware(a.logger), gzip.Gzip(gzip.DefaultCompression))
	r.SetHTMLTemplate(a.tmpl)
	r.MaxMultipartMemory = a.cfg.Upload.MaxBytes

	api := r.Group("/api")
	api.GET("/health", a.healthHandler)
	api.GET("/materials/search", a.searchHandler)
	matchapi.NewHandler(a.svc, a.cfg.Catalog.MaxRows, a.logger).Register(r)

	ui := r.Group("/", a.sessionMiddleware())
	ui.GET("/", a.uploadPageHandler)
	ui.POST("/upload", a.uploadHandler)
	ui.GET("/mapping", a.mappingPageHandler)
	ui.POST("/mapping", a.mappingHandler)
	ui.POST("/remap", a.remapHandler)
	ui.GET("/results", a.resultsHandler)
	ui.POST("/results/assign", a.assignHandler)
	ui.POST("/results/density", a.densityHandler)
	ui.POST("/results/select", a.selectHandler)
	ui.POST("/results/bulk", a.bulkHandler)
	ui.POST("/results/delete", a.deleteHandler)
	ui.GET("/results/export.csv", a.exportCSVHandler)
	ui.GET("/results/export.xlsx", a.exportXLSXHandler)
	return r
}

// runMatch performs one catalog request and resolves the catalog its rows refer to.
func (a *app) runMatch(ctx context.Context, req workflow.Request) ([]domain.ProcessedRow, *catalog.Catalog, error) {
	cat, catErr := a.svc.Catalog(ctx)
	resp, err := a.svc.Match(ctx, req.Body)
	if err != nil {
		return nil, cat, err
	}
	if catErr != nil || cat.Version() != resp.CatalogVersion {
		if cat, err = a.svc.Catalog(ctx); err != nil {
			return nil, nil, err
		}
	}
	rows, err := matchapi.Merge(req.Pending, resp)
	if err != nil {
		return nil, cat, err
	}
	return rows, cat, nil
}

// startMatch runs req in the background and installs its outcome. Outcomes of
// superseded requests are dropped by the workflow.
func (a *app) startMatch(sess *workflow.Session, req workflow.Request) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ctx, cancel := context.WithTimeout(a.ctx, a.cfg.Catalog.Timeout)
		defer cancel()

		start := time.Now()
		rows, cat, err := a.runMatch(ctx, req)
		logger := a.logger.With("seq", req.Seq, "rows", len(req.Pending), "took", time.Since(start))

		uErr := sess.Update(func(s workflow.State) (workflow.State, error) {
			if err != nil {
				return workflow.Fail(s, req.Seq, err, cat)
			}
			return workflow.Complete(s, req.Seq, rows, cat)
		})
		switch {
		case errors.Is(uErr, workflow.ErrStale):
			logger.Debug("discarded stale match response")
		case err != nil:
			logger.Warn("catalog request failed", "error", err)
		default:
			logger.Info("catalog request done")
		}
	}()
}
