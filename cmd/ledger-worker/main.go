package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"ledger/internal/backend"
	"ledger/internal/cache"
	"ledger/internal/cli"
	"ledger/internal/log"
	"ledger/internal/sheets"
	"ledger/internal/worker"
)

const cacheSweepInterval = time.Minute

// reindexingResyncer drops the mirror's cached row positions before every
// periodic resync, so rows moved by hand in the spreadsheet are found again.
type reindexingResyncer struct {
	*worker.MirrorWorker
	invalidate func(tab string)
}

func (r reindexingResyncer) Resync(ctx context.Context) (worker.ResyncStats, error) {
	for _, tab := range sheets.Tabs() {
		r.invalidate(tab)
	}
	return r.MirrorWorker.Resync(ctx)
}

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentWorker)
	logger.Info("Starting ledger-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	if backendCfg.Mirror == backend.MirrorNone {
		logger.Error("MIRROR_BACKEND is none, the worker has nothing to mirror")
		os.Exit(1)
	}
	if !backendCfg.EventsEnabled() {
		logger.Error("AMQP_URL is required by the worker")
		os.Exit(1)
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	factory := backend.NewFactory(logger)
	startCtx, startCancel := context.WithTimeout(context.Background(), time.Minute)
	mirror, err := factory.CreateMirror(startCtx, backendCfg)
	if err != nil {
		startCancel()
		logger.Error("Failed to initialize ledger mirror", log.FieldError, err)
		os.Exit(1)
	}
	if mirror.Prepare != nil {
		if err := mirror.Prepare(startCtx); err != nil {
			startCancel()
			logger.Error("Failed to prepare ledger mirror", log.FieldError, err)
			os.Exit(1)
		}
	}
	startCancel()

	amqpClient, err := factory.CreateEventClient(backendCfg)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	dedupe := cache.NewDeduper(cfg.MirrorDedupeSize, cfg.MirrorDedupeTTL)
	mirrorWorker := worker.NewMirrorWorker(repo, mirror.Mirror, dedupe)

	var resyncer worker.Resyncer = mirrorWorker
	if mirror.Invalidate != nil {
		resyncer = reindexingResyncer{MirrorWorker: mirrorWorker, invalidate: mirror.Invalidate}
	}

	var reconciler *worker.Reconciler
	if cfg.MirrorReconcileInterval > 0 {
		reconciler = worker.NewReconciler(resyncer, cfg.MirrorReconcileInterval)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if reconciler != nil {
			if err := reconciler.Stop(ctx); err != nil {
				logger.Error("Failed to stop mirror reconciler", log.FieldError, err)
			}
		}
	})

	// Events lost while the worker was down are recovered by a full pass.
	logger.Info("Performing startup resync")
	if _, err := mirrorWorker.Resync(ctx); err != nil {
		logger.Error("Startup resync failed", log.FieldError, err)
	}

	if reconciler != nil {
		if err := reconciler.Start(ctx); err != nil {
			logger.Error("Failed to start mirror reconciler", log.FieldError, err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return amqpClient.ConsumeLedgerEvents(gctx, mirrorWorker.HandleEvent)
	})
	g.Go(func() error {
		cache.NewManager(dedupe).Run(gctx, cacheSweepInterval)
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Ledger event consumption failed", log.FieldError, err)
		if reconciler != nil {
			_ = reconciler.Stop(context.Background())
		}
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}
