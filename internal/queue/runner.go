package queue

import (
	"context"
	"sync/atomic"

	"github.com/dmitrijs2005/fieldcapture/internal/common"
	"github.com/dmitrijs2005/fieldcapture/internal/logging"
	"github.com/dmitrijs2005/fieldcapture/internal/retry"
)

// DefaultDeadLetterAfter is how many missing-payload observations an item
// survives before it is set aside instead of retried forever.
const DefaultDeadLetterAfter = 3

// Stats aggregates one drain pass.
type Stats struct {
	Total int
	OK    int
	Fail  int
}

// Runner drains a Store through an Uploader, one item at a time. At most
// one flush pass runs per Runner; a second trigger while one is in flight
// is a no-op. Separate Runner values are fully independent, so multiple
// queues can coexist in one process.
type Runner struct {
	store           Store
	uploader        Uploader
	log             logging.Logger
	retryOpts       retry.Options
	deadLetterAfter int

	inFlight atomic.Bool
}

// Option tweaks a Runner.
type Option func(*Runner)

// WithRetryOptions overrides the per-upload retry budget.
func WithRetryOptions(opts retry.Options) Option {
	return func(r *Runner) { r.retryOpts = opts }
}

// WithDeadLetterAfter overrides the missing-payload dead-letter threshold.
func WithDeadLetterAfter(n int) Option {
	return func(r *Runner) { r.deadLetterAfter = n }
}

func NewRunner(store Store, uploader Uploader, log logging.Logger, opts ...Option) *Runner {
	r := &Runner{
		store:           store,
		uploader:        uploader,
		log:             log,
		retryOpts:       retry.DefaultOptions(),
		deadLetterAfter: DefaultDeadLetterAfter,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Flush lists the queue once and processes the snapshot strictly in order.
// If a flush is already running, it returns zero Stats immediately without
// touching the store. A failed item is left in the queue for the next pass;
// no item's failure aborts the rest.
func (r *Runner) Flush(ctx context.Context, onEvent func(Event)) (Stats, error) {
	if !r.inFlight.CompareAndSwap(false, true) {
		return Stats{}, nil
	}
	defer r.inFlight.Store(false)

	emit := onEvent
	if emit == nil {
		emit = func(Event) {}
	}

	items, err := r.store.ListQueued(ctx)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{Total: len(items)}

	for _, item := range items {
		if len(item.Data) == 0 {
			stats.Fail++
			emit(Event{Kind: EventFail, ItemID: item.ID, QKey: item.QKey, Err: common.ErrMissingPayload})

			dead, err := r.store.MarkMissing(ctx, item.ID, r.deadLetterAfter)
			if err != nil {
				r.log.Error(ctx, "marking missing payload", "id", item.ID, "error", err)
			} else if dead {
				r.log.Warn(ctx, "item dead-lettered after repeated missing payload", "id", item.ID)
				r.store.NotifyChange()
			}
			continue
		}

		emit(Event{Kind: EventStart, ItemID: item.ID, QKey: item.QKey})

		result, err := retry.WithBackoff(ctx, func(ctx context.Context) (*UploadResult, error) {
			return r.uploader.Upload(ctx, item, nil)
		}, r.retryOpts)

		if err != nil {
			// Left in the queue; the next reconnect- or refocus-triggered
			// flush will pick it up again.
			stats.Fail++
			r.log.Warn(ctx, "upload failed, keeping item queued", "id", item.ID, "error", err)
			emit(Event{Kind: EventFail, ItemID: item.ID, QKey: item.QKey, Err: err})
			continue
		}

		if err := r.store.Remove(ctx, item.ID); err != nil {
			// Upload is confirmed; a stale row is better than a re-upload,
			// so still report success.
			r.log.Error(ctx, "removing confirmed item", "id", item.ID, "error", err)
		}
		r.store.NotifyChange()

		stats.OK++
		emit(Event{Kind: EventOK, ItemID: item.ID, QKey: item.QKey, Result: result})
	}

	return stats, nil
}
