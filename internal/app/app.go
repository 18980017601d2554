// Package app wires the engine, transport, storage and ingest together
// and owns the process lifecycle.
package app

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"standupbot/internal/adapters/telegram"
	"standupbot/internal/config"
	"standupbot/internal/directory"
	"standupbot/internal/engine"
	"standupbot/internal/ingest"
	"standupbot/internal/notify"
	"standupbot/internal/storage"
	"standupbot/internal/transport"
	"standupbot/pkg/logx"
)

type App struct {
	cfgMgr *config.Manager
	logSvc *logx.Service
	log    logx.Logger

	eng     *engine.Engine
	notif   *notify.Service
	store   storage.Store
	ingest  *ingest.Server
	adapter transport.Adapter
	dir     directory.Directory

	updates chan transport.Update

	group  *errgroup.Group
	cancel context.CancelFunc
}

// New loads config, builds every service and registers the recurring
// jobs. Configuration and registration errors are fatal; return them to
// the operator, do not start degraded.
func New(cfgPath string) (*App, error) {
	mgr := config.NewManager(cfgPath, logx.NewConsole("info"))
	cfg, err := mgr.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File:    logx.FileConfig{Enabled: cfg.Logging.File.Enabled, Path: cfg.Logging.File.Path},
	})

	adapter, err := telegram.New(telegram.Config{Token: cfg.Telegram.Token}, log.With(logx.String("svc", "telegram")))
	if err != nil {
		return nil, err
	}

	store, err := storage.Open(storageConfig(cfg), log.With(logx.String("svc", "storage")))
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	notif := notify.New(notify.Config{
		RatePerSec: cfg.Broadcast.RatePerSec,
		RetryMax:   cfg.Broadcast.RetryMax,
	}, adapter, cfg.Telegram.ChannelID, log.With(logx.String("svc", "notify")))

	threshold, _ := config.ParseDurationOrDefault("schedule.reminder_threshold", cfg.Schedule.ReminderThreshold, 2*time.Hour)
	tick, _ := config.ParseDurationOrDefault("schedule.tick_interval", cfg.Schedule.TickInterval, time.Minute)
	jobTimeout, _ := config.ParseDurationOrDefault("schedule.job_timeout", cfg.Schedule.JobTimeout, 30*time.Second)

	a := &App{
		cfgMgr:  mgr,
		logSvc:  logSvc,
		log:     log,
		notif:   notif,
		store:   store,
		adapter: adapter,
		dir:     directory.NewStatic(cfg.Users),
		updates: make(chan transport.Update, 256),
	}

	a.eng = engine.New(engine.Options{
		Log:               log.With(logx.String("svc", "engine")),
		Notifier:          notif,
		TickInterval:      tick,
		JobTimeout:        jobTimeout,
		ReminderThreshold: threshold,
		EscalationChannel: cfg.Telegram.EscalationChannel,
		OnReminder:        a.auditReminder,
	})

	if cfg.Ingest != nil && cfg.Ingest.Enabled {
		a.ingest = ingest.New(ingest.Config{Addr: cfg.Ingest.Addr}, a.eng, store, log.With(logx.String("svc", "ingest")))
	}

	if err := a.registerJobs(cfg); err != nil {
		return nil, err
	}
	return a, nil
}

func storageConfig(cfg *config.Config) storage.Config {
	if cfg.Storage == nil {
		return storage.Config{}
	}
	busy, _ := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
	return storage.Config{Driver: cfg.Storage.Driver, Path: cfg.Storage.Path, BusyTimeout: busy}
}

// Start launches the adapter, the dispatch loop, the update pump, the
// ingest endpoint and the config watcher.
func (a *App) Start(ctx context.Context) error {
	rctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	if err := a.adapter.Start(rctx, a.updates); err != nil {
		cancel()
		return err
	}

	g, gctx := errgroup.WithContext(rctx)
	a.group = g

	g.Go(func() error { return a.eng.Run(gctx) })
	g.Go(func() error { a.pumpUpdates(gctx); return nil })
	g.Go(func() error { return a.cfgMgr.Watch(gctx) })
	g.Go(func() error { return a.watchReloads(gctx) })
	if a.ingest != nil {
		g.Go(func() error { return a.ingest.Run(gctx) })
	}

	a.log.Info("bot started", logx.Int("users", len(a.cfgMgr.Current().Users)))
	return nil
}

// Stop cancels everything and waits for the group to drain.
func (a *App) Stop(ctx context.Context) error {
	if a.cancel != nil {
		a.cancel()
	}
	var err error
	if a.group != nil {
		err = a.group.Wait()
	}
	_ = a.adapter.Stop(ctx)
	_ = a.store.Close()
	_ = a.logSvc.Close()
	a.log.Info("bot stopped")
	return err
}

// Engine exposes the engine surface for operator tooling (TriggerNow,
// DailySummary).
func (a *App) Engine() *engine.Engine { return a.eng }

// watchReloads applies live-safe settings from config reloads. Schedule
// changes need a restart; flag them rather than half-apply.
func (a *App) watchReloads(ctx context.Context) error {
	sub := a.cfgMgr.Subscribe()
	for {
		select {
		case <-ctx.Done():
			return nil
		case cfg := <-sub:
			if cfg == nil {
				continue
			}
			a.logSvc.Apply(logx.Config{
				Level:   cfg.Logging.Level,
				Console: cfg.Logging.Console,
				File:    logx.FileConfig{Enabled: cfg.Logging.File.Enabled, Path: cfg.Logging.File.Path},
			})
			a.notif.Apply(notify.Config{
				RatePerSec: cfg.Broadcast.RatePerSec,
				RetryMax:   cfg.Broadcast.RetryMax,
			})
			a.log.Info("live settings applied; schedule changes take effect on restart")
		}
	}
}

func (a *App) auditReminder(c engine.ReminderClaim) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	day := a.eng.Clock().Now().Format("2006-01-02")
	if err := a.store.AppendReminderAudit(ctx, storage.ReminderAudit{
		Day: day, ThreadID: c.ThreadID, Missing: len(c.Missing),
	}); err != nil {
		a.log.Warn("reminder audit write failed", logx.String("thread", c.ThreadID), logx.Err(err))
	}
}
