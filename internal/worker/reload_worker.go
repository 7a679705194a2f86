package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"tradedash/internal/amqp"
	"tradedash/internal/services"
)

// Reloader swaps in a fresh dataset.
type Reloader interface {
	Reload(ctx context.Context) (services.Stats, error)
	InstanceID() string
}

// Consumer delivers dataset notifications until ctx is done.
type Consumer interface {
	ConsumeDatasetReloaded(ctx context.Context, handler func(context.Context, *amqp.DatasetReloadedMessage) error) error
}

// ReloadWorker keeps the dashboard dataset fresh. It reloads when another
// instance or the importer announces a new dataset, and on a fixed interval
// when one is configured.
type ReloadWorker struct {
	reloader Reloader
	consumer Consumer
	interval time.Duration
}

// NewReloadWorker creates a worker. consumer may be nil and interval may be
// zero to disable the respective trigger.
func NewReloadWorker(reloader Reloader, consumer Consumer, interval time.Duration) *ReloadWorker {
	return &ReloadWorker{
		reloader: reloader,
		consumer: consumer,
		interval: interval,
	}
}

// Enabled reports whether any reload trigger is configured.
func (w *ReloadWorker) Enabled() bool {
	return w.consumer != nil || w.interval > 0
}

// HandleReloadMessage reloads the dataset for a notification. Messages
// published by this instance are ignored.
func (w *ReloadWorker) HandleReloadMessage(ctx context.Context, msg *amqp.DatasetReloadedMessage) error {
	if msg.Origin != "" && msg.Origin == w.reloader.InstanceID() {
		slog.DebugContext(ctx, "Ignoring own reload notification", "component", "worker", "origin", msg.Origin)
		return nil
	}

	slog.InfoContext(ctx, "Processing reload notification",
		"component", "worker",
		"origin", msg.Origin,
		"source", msg.Source,
		"rows", msg.Rows,
		"published_at", msg.Timestamp)

	stats, err := w.reloader.Reload(ctx)
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Dataset reloaded from notification",
		"component", "worker", "rows", stats.Rows, "generation", stats.Generation)
	return nil
}

// Run blocks until ctx is cancelled or the consumer fails permanently.
func (w *ReloadWorker) Run(ctx context.Context) error {
	if !w.Enabled() {
		<-ctx.Done()
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)

	if w.consumer != nil {
		g.Go(func() error {
			err := w.consumer.ConsumeDatasetReloaded(ctx, w.HandleReloadMessage)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	if w.interval > 0 {
		g.Go(func() error {
			w.periodicReload(ctx)
			return nil
		})
	}

	return g.Wait()
}

func (w *ReloadWorker) periodicReload(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	slog.InfoContext(ctx, "Started periodic dataset reload", "component", "worker", "interval", w.interval.String())

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.reloader.Reload(ctx); err != nil {
				slog.ErrorContext(ctx, "Periodic reload failed, keeping current dataset",
					"component", "worker", "error", err)
			}
		}
	}
}
