// Package app wires the catalog, the dialogue engine and the transports from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/m3rciful/minerva/core/bootstrap"
	coreconfig "github.com/m3rciful/minerva/core/config"
	"github.com/m3rciful/minerva/core/dispatch"
	"github.com/m3rciful/minerva/core/logger"
	coretelegram "github.com/m3rciful/minerva/core/telegram"
	"github.com/m3rciful/minerva/internal/bot"
	"github.com/m3rciful/minerva/internal/catalog"
	"github.com/m3rciful/minerva/internal/delivery"
	"github.com/m3rciful/minerva/internal/dialogue"
	"github.com/m3rciful/minerva/internal/httpapi"
	"github.com/m3rciful/minerva/internal/journal"
	"github.com/m3rciful/minerva/internal/session"
	"github.com/m3rciful/minerva/migrations"
)

// Options adjust New for commands that do not run the transports.
type Options struct {
	// LoggerInit replaces logger.InitLogger, e.g. to keep an interactive terminal quiet.
	LoggerInit func(*coreconfig.Config) error
}

// App holds the wired components.
type App struct {
	cfg *Config

	Registry *catalog.Registry
	Sessions *session.Store
	Engine   *dialogue.Engine
	Delivery *delivery.Service
	// Journal is nil when the database is disabled.
	Journal *journal.Store

	infra *bootstrap.Result
	jobs  *dispatch.Dispatcher

	runTelegram func(context.Context, coretelegram.RunOptions) error
	now         func() time.Time
}

// New bootstraps the infrastructure and builds every component.
func New(ctx context.Context, cfg *Config, opts Options) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	infra, err := bootstrap.Run(ctx, bootstrap.Options{
		Config:     &cfg.Config,
		Database:   cfg.Database,
		Migrations: migrations.FS,
		LoggerInit: opts.LoggerInit,
	})
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:         cfg,
		Sessions:    session.NewStore(),
		infra:       infra,
		runTelegram: coretelegram.RunTelegram,
		now:         time.Now,
	}
	if err := a.build(); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build() error {
	var err error
	if a.cfg.Catalog.Path != "" {
		a.Registry, err = catalog.Load(a.cfg.Catalog.Path)
	} else {
		a.Registry, err = catalog.Default()
	}
	if err != nil {
		return fmt.Errorf("app: catalog: %w", err)
	}

	var observer dialogue.Observer
	if a.infra.DB != nil {
		a.Journal = journal.NewStore(a.infra.DB)
		a.jobs = dispatch.New(dispatch.Options{
			Component:    "journal",
			QueueSize:    1024,
			Workers:      2,
			MaxRetries:   2,
			RetryBackoff: 500 * time.Millisecond,
		})
		observer = journal.NewAsyncRecorder(a.Journal, a.jobs)
	}

	a.Engine, err = dialogue.New(a.Registry, a.Sessions, dialogue.Options{
		Timeout:      a.cfg.Timeout(),
		ResetKeyword: a.cfg.Intent.ResetKeyword,
		Thresholds:   a.cfg.Thresholds(),
		Observer:     observer,
	})
	if err != nil {
		return fmt.Errorf("app: %w", err)
	}

	a.Delivery = delivery.New(a.Registry, delivery.Options{
		CacheTTL: time.Duration(a.cfg.Delivery.CacheTTLSeconds) * time.Second,
		MaxBytes: a.cfg.Delivery.MaxBytes,
	})
	return nil
}

// Run serves the enabled transports and sweeps idle sessions until ctx is done
// or a transport fails.
func (a *App) Run(ctx context.Context) error {
	if err := a.cfg.RequireTransport(); err != nil {
		return fmt.Errorf("app: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	if a.cfg.HTTP.Enabled() {
		srv := httpapi.NewServer(a.cfg.HTTP, httpapi.NewHandler(a.Engine, a.Delivery))
		g.Go(func() error { return srv.Run(gctx) })
	}
	if a.cfg.Telegram.Enabled() {
		b, err := bot.New(a.Engine, a.Registry)
		if err != nil {
			return err
		}
		opts := b.RunOptions(&a.cfg.Config)
		g.Go(func() error { return a.runTelegram(gctx, opts) })
	}
	g.Go(func() error {
		a.sweepLoop(gctx, a.cfg.Timeout())
		return nil
	})
	return g.Wait()
}

// sweepLoop drops sessions idle for longer than the sweep period every interval.
func (a *App) sweepLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.sweep(ctx)
		}
	}
}

func (a *App) sweep(ctx context.Context) int {
	start := time.Now()
	removed := a.Sessions.Sweep(a.now().Add(-a.cfg.SweepAfter()))
	if removed > 0 || logger.ShouldSampleDebug() {
		logger.Debug(ctx, "session", "session.sweep",
			slog.String("status", "ok"),
			slog.Int("removed", removed),
			slog.Int("active", a.Sessions.Len()),
			slog.Duration("duration", logger.Took(start)),
		)
	}
	return removed
}

// Close flushes pending journal writes and releases the database.
func (a *App) Close() error {
	if a.jobs != nil {
		a.jobs.Close()
	}
	return a.infra.Close()
}
