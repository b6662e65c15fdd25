// Package agent assembles the capture agent: local storage, the upload
// queue runner, the S3 uploader and the connectivity watcher that triggers
// queue flushes when the remote service becomes reachable again.
package agent

import (
	"context"
	"database/sql"
	"time"

	"github.com/dmitrijs2005/fieldcapture/internal/config"
	"github.com/dmitrijs2005/fieldcapture/internal/logging"
	"github.com/dmitrijs2005/fieldcapture/internal/netx"
	"github.com/dmitrijs2005/fieldcapture/internal/queue"
	"github.com/dmitrijs2005/fieldcapture/internal/repositories/uploads"
	"github.com/dmitrijs2005/fieldcapture/internal/retry"
	"github.com/dmitrijs2005/fieldcapture/internal/services"
	"github.com/dmitrijs2005/fieldcapture/internal/storage"
	"github.com/dmitrijs2005/fieldcapture/internal/upload"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type App struct {
	config *config.Config
	db     *sql.DB
	repo   uploads.Repository
	runner *queue.Runner
	client *netx.Client
	subs   *services.SubmissionService
	log    logging.Logger
	mode   Mode
}

// NewApp opens the local database, applies migrations and wires every
// component together. The caller must Close the returned app.
func NewApp(ctx context.Context, cfg *config.Config, log logging.Logger) (*App, error) {
	db, err := storage.Open(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	repo := uploads.NewSQLiteRepository(db)

	uploader, err := upload.NewS3Uploader(ctx, upload.S3Config{
		Region:    cfg.S3Region,
		Bucket:    cfg.S3Bucket,
		Endpoint:  cfg.S3Endpoint,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	runner := queue.NewRunner(repo, uploader, log,
		queue.WithRetryOptions(retry.Options{Tries: cfg.UploadTries, BaseDelay: cfg.UploadBaseDelay}),
		queue.WithDeadLetterAfter(cfg.DeadLetterAfter),
	)

	client := netx.NewClient(10 * time.Second)
	subs := services.NewSubmissionService(client, cfg.SubmissionURL, repo, log)

	return &App{
		config: cfg,
		db:     db,
		repo:   repo,
		runner: runner,
		client: client,
		subs:   subs,
		log:    log,
		mode:   ModeOffline,
	}, nil
}

// Submissions exposes the submission workflow to the capture surface.
func (a *App) Submissions() *services.SubmissionService { return a.subs }

func (a *App) Close() error { return a.db.Close() }

// Run blocks, watching connectivity and pending-count changes, until ctx is
// cancelled.
func (a *App) Run(ctx context.Context) {
	go a.watchPending(ctx)
	a.watchOnlineStatus(ctx)
}

func (a *App) setMode(ctx context.Context, mode Mode) {
	if a.mode == mode {
		return
	}
	a.mode = mode
	a.log.Info(ctx, "connectivity changed", "mode", mode)

	if mode == ModeOnline {
		a.flush(ctx)
	}
}

// flush drains the upload queue once, logging each item's lifecycle. The
// runner's single-flight guard makes overlapping triggers harmless.
func (a *App) flush(ctx context.Context) {
	stats, err := a.runner.Flush(ctx, func(e queue.Event) {
		switch e.Kind {
		case queue.EventStart:
			a.log.Debug(ctx, "uploading queued item", "id", e.ItemID, "q_key", e.QKey)
		case queue.EventOK:
			a.log.Info(ctx, "queued item uploaded", "id", e.ItemID, "key", e.Result.Key)
		case queue.EventFail:
			a.log.Warn(ctx, "queued item failed", "id", e.ItemID, "error", e.Err)
		}
	})
	if err != nil {
		a.log.Error(ctx, "flush failed", "error", err)
		return
	}
	if stats.Total > 0 {
		a.log.Info(ctx, "flush finished", "total", stats.Total, "ok", stats.OK, "fail", stats.Fail)
	}
}

func (a *App) watchOnlineStatus(ctx context.Context) {
	ticker := time.NewTicker(a.config.ProbeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			reachable := a.client.Probe(probeCtx, a.config.SubmissionURL)
			cancel()

			if reachable {
				a.setMode(ctx, ModeOnline)
			} else {
				a.setMode(ctx, ModeOffline)
			}

		case <-ctx.Done():
			return
		}
	}
}

// watchPending logs the pending-upload count whenever the queue changes,
// feeding whatever indicator the capture surface renders.
func (a *App) watchPending(ctx context.Context) {
	ch := a.repo.Subscribe()
	for {
		select {
		case <-ch:
			n, err := a.repo.CountQueued(ctx)
			if err != nil {
				a.log.Error(ctx, "counting pending uploads", "error", err)
				continue
			}
			a.log.Info(ctx, "pending uploads", "count", n)

		case <-ctx.Done():
			return
		}
	}
}
