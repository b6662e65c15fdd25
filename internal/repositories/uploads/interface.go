// Package uploads persists the pending-upload queue in the local SQLite
// database.
package uploads

import (
	"context"

	"github.com/dmitrijs2005/fieldcapture/internal/queue"
)

// Repository is the durable side of the upload queue. It extends the
// runner's queue.Store contract with the operations the capture path and
// diagnostics need.
type Repository interface {
	queue.Store

	// Enqueue appends a new pending upload. Items come back from ListQueued
	// in insertion order.
	Enqueue(ctx context.Context, item *queue.Item) error

	// ListDead returns items set aside by the dead-letter policy, oldest
	// first.
	ListDead(ctx context.Context) ([]*queue.Item, error)

	// CountQueued returns the number of items still waiting for upload.
	CountQueued(ctx context.Context) (int, error)

	// Subscribe returns a channel that receives a (coalesced, non-blocking)
	// signal after every queue mutation.
	Subscribe() <-chan struct{}
}
