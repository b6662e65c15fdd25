// Package queue drives the persistent queue of pending binary uploads: a
// durable store of queued items and a single-flight runner that drains them
// through an injected uploader with bounded retries.
package queue

import "context"

// Item is one pending upload. It is created when an attachment cannot be
// uploaded immediately and removed from the store only after the uploader
// confirms success.
type Item struct {
	ID           string
	QKey         string
	Prefix       string
	Name         string
	MimeType     string
	Data         []byte
	MissingCount int
}

// UploadResult identifies a successfully stored attachment.
type UploadResult struct {
	Key       string `json:"key"`
	ObjectURL string `json:"object_url,omitempty"`
}

// EventKind tags a queue lifecycle event.
type EventKind string

const (
	EventStart EventKind = "start"
	EventOK    EventKind = "ok"
	EventFail  EventKind = "fail"
)

// Event is emitted once per queue item per drain pass. Events are for
// observability only and are never persisted.
type Event struct {
	Kind   EventKind
	ItemID string
	QKey   string
	Result *UploadResult
	Err    error
}

// Store is the durable keyed list of pending uploads. Implementations are
// expected to preserve insertion order in ListQueued and to keep items
// until Remove confirms them gone.
type Store interface {
	// ListQueued returns a snapshot of all currently queued items, oldest
	// first. Dead-lettered items are excluded.
	ListQueued(ctx context.Context) ([]*Item, error)

	// Remove deletes a confirmed item. Removing an unknown id is an error.
	Remove(ctx context.Context, id string) error

	// MarkMissing records one more observation of an item without a payload
	// and dead-letters the item once the count reaches deadAfter. Returns
	// whether the item is now dead.
	MarkMissing(ctx context.Context, id string, deadAfter int) (bool, error)

	// NotifyChange signals observers (e.g. a pending-count indicator) that
	// the queue contents changed. Fire and forget.
	NotifyChange()
}

// Uploader pushes one binary payload to remote storage, reporting progress
// along the way.
type Uploader interface {
	Upload(ctx context.Context, item *Item, onProgress func(sent, total int64)) (*UploadResult, error)
}
