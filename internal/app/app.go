// Package app assembles the service from its configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/leca/seo-images/internal/cache"
	"github.com/leca/seo-images/internal/config"
	"github.com/leca/seo-images/internal/converter"
	"github.com/leca/seo-images/internal/dashboard"
	"github.com/leca/seo-images/internal/database"
	"github.com/leca/seo-images/internal/handler"
	"github.com/leca/seo-images/internal/imageproc"
	"github.com/leca/seo-images/internal/jobs"
	"github.com/leca/seo-images/internal/metrics"
	"github.com/leca/seo-images/internal/render"
	"github.com/leca/seo-images/internal/router"
	"github.com/leca/seo-images/internal/sitemap"
	"github.com/leca/seo-images/internal/storage"
)

// Disk names rows refer to.
const (
	DiskPublic = "public"
	DiskFTP    = "ftp"
)

// queueCapacityPerWorker bounds how many uploads wait per worker.
const queueCapacityPerWorker = 32

// App is the wired service.
type App struct {
	Config    *config.Config
	DB        database.Database
	Disks     *storage.Disks
	Converter *converter.Converter
	Cache     *cache.Store
	Metrics   *metrics.Metrics
	Queue     *jobs.Queue
	Server    *router.Server

	closers []func() error
}

// New opens the database, registers the storage disks, connects the cache
// and builds the HTTP server. The caller must Close the App.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg, Metrics: metrics.New()}

	db, err := database.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	a.DB = db
	a.closers = append(a.closers, db.Close)

	a.Disks = storage.NewDisks(cfg.Disk)
	a.Disks.Register(DiskPublic, storage.NewFileSystem(cfg.StoragePath, cfg.StorageURLPrefix))
	if cfg.FTP.Host != "" {
		ftpDisk := storage.NewFTP(cfg.FTP.Host, cfg.FTP.Port, cfg.FTP.User, cfg.FTP.Password, cfg.FTP.BaseURL)
		a.Disks.Register(DiskFTP, ftpDisk)
		a.closers = append(a.closers, ftpDisk.Close)
	}

	backend, err := newCacheBackend(ctx, cfg)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	if backend != nil {
		a.closers = append(a.closers, backend.Close)
	}
	a.Cache = cache.NewStore(backend, cfg.Cache.Prefix, cfg.CacheTTL(), a.Metrics)

	a.Converter = converter.New(db, a.Disks,
		imageproc.NewEncoder(cfg.QualityJPG, cfg.QualityWebP, cfg.QualityAVIF),
		converter.Options{
			Widths:           cfg.Sizes,
			MaxUploadBytes:   cfg.MaxUploadBytes(),
			AllowedMIMETypes: cfg.AllowedMIMETypes,
		},
		a.Metrics,
	)
	a.Converter.OnChange(a.Cache.InvalidateAll)

	resolver, err := render.NewResolver(a.Disks, cfg.AppURL)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	if cfg.UseQueue {
		workers := max(cfg.QueueWorkers, 1)
		a.Queue = jobs.NewQueue(workers, workers*queueCapacityPerWorker, a.Metrics)
	}

	h := &handler.Handler{
		DB:        db,
		Converter: a.Converter,
		Resolver:  resolver,
		Renderer:  render.NewRenderer(db, resolver, cfg.Sizes, cfg.FallbackOnMissing),
		Dashboard: dashboard.NewService(db, resolver, a.Cache),
		Sitemap: sitemap.NewGenerator(db, resolver, a.Cache, sitemap.Options{
			AppURL:         cfg.AppURL,
			PageURLPattern: cfg.Sitemap.PageURLPattern,
			License:        cfg.Sitemap.License,
		}),
		Cache:  a.Cache,
		Queue:  a.Queue,
		Config: cfg,
	}
	a.Server = router.New(h, cfg, a.Metrics)
	return a, nil
}

func newCacheBackend(ctx context.Context, cfg *config.Config) (cache.Cache, error) {
	if !cfg.Cache.Enabled {
		return nil, nil
	}
	if cfg.Cache.Driver == "redis" {
		r, err := cache.NewRedis(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return r, nil
	}
	return cache.NewMemory(), nil
}

// Close drains the job queue, bounded by ctx, then releases every
// resource in reverse order of acquisition.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Queue != nil {
		if err := a.Queue.Close(ctx); err != nil {
			slog.Warn("job queue did not drain", "error", err)
			errs = append(errs, err)
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
