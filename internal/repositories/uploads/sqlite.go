package uploads

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/fieldcapture/internal/common"
	"github.com/dmitrijs2005/fieldcapture/internal/dbx"
	"github.com/dmitrijs2005/fieldcapture/internal/queue"
)

const (
	statusQueued = "queued"
	statusDead   = "dead"
)

type SQLiteRepository struct {
	db *sql.DB

	mu   sync.Mutex
	subs []chan struct{}
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Enqueue(ctx context.Context, item *queue.Item) error {
	query := `INSERT INTO queued_uploads (id, q_key, prefix, name, mime_type, data)
	          VALUES (?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query, item.ID, item.QKey, item.Prefix, item.Name, item.MimeType, item.Data)
	if err != nil {
		return fmt.Errorf("failed to enqueue upload: %w", err)
	}

	r.NotifyChange()
	return nil
}

func (r *SQLiteRepository) ListQueued(ctx context.Context) ([]*queue.Item, error) {
	return r.listByStatus(ctx, statusQueued)
}

func (r *SQLiteRepository) ListDead(ctx context.Context) ([]*queue.Item, error) {
	return r.listByStatus(ctx, statusDead)
}

func (r *SQLiteRepository) listByStatus(ctx context.Context, status string) ([]*queue.Item, error) {
	query := `SELECT id, q_key, prefix, name, mime_type, data, missing_count
	          FROM queued_uploads WHERE status = ? ORDER BY created_at, rowid`

	rows, err := r.db.QueryContext(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list uploads: %w", err)
	}
	defer rows.Close()

	var items []*queue.Item
	for rows.Next() {
		item := &queue.Item{}
		if err := rows.Scan(&item.ID, &item.QKey, &item.Prefix, &item.Name, &item.MimeType, &item.Data, &item.MissingCount); err != nil {
			return nil, fmt.Errorf("failed to scan upload row: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read upload rows: %w", err)
	}

	return items, nil
}

func (r *SQLiteRepository) Remove(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM queued_uploads WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to remove upload: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check removal: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}

	return nil
}

func (r *SQLiteRepository) CountQueued(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM queued_uploads WHERE status = ?`, statusQueued).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count uploads: %w", err)
	}
	return n, nil
}

// MarkMissing bumps the missing-payload counter and flips the row to the
// dead status once the counter reaches deadAfter. Both happen in one
// transaction so two observations are never lost to a race.
func (r *SQLiteRepository) MarkMissing(ctx context.Context, id string, deadAfter int) (bool, error) {
	var dead bool

	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE queued_uploads SET missing_count = missing_count + 1 WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to bump missing count: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return common.ErrorNotFound
		}

		var count int
		if err := tx.QueryRowContext(ctx,
			`SELECT missing_count FROM queued_uploads WHERE id = ?`, id).Scan(&count); err != nil {
			return fmt.Errorf("failed to read missing count: %w", err)
		}

		if count >= deadAfter {
			if _, err := tx.ExecContext(ctx,
				`UPDATE queued_uploads SET status = ? WHERE id = ?`, statusDead, id); err != nil {
				return fmt.Errorf("failed to dead-letter upload: %w", err)
			}
			dead = true
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return false, common.ErrorNotFound
		}
		return false, err
	}

	return dead, nil
}

// Subscribe registers a change observer. Signals are coalesced: a slow
// reader sees at least one signal after any burst of mutations.
func (r *SQLiteRepository) Subscribe() <-chan struct{} {
	ch := make(chan struct{}, 1)
	r.mu.Lock()
	r.subs = append(r.subs, ch)
	r.mu.Unlock()
	return ch
}

func (r *SQLiteRepository) NotifyChange() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ch := range r.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
