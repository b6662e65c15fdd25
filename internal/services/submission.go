// Package services wires the answer codec, payload builder and upload queue
// into the submission workflows the capture UI calls.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/fieldcapture/internal/answers"
	"github.com/dmitrijs2005/fieldcapture/internal/logging"
	"github.com/dmitrijs2005/fieldcapture/internal/queue"
	"github.com/dmitrijs2005/fieldcapture/internal/repositories/uploads"
	"github.com/dmitrijs2005/fieldcapture/internal/submission"
	"github.com/google/uuid"
)

// Remote is the HTTP edge of the submission path.
type Remote interface {
	PostMultipart(ctx context.Context, url, contentType string, body []byte) error
	Probe(ctx context.Context, url string) bool
}

// Outcome reports what happened to one submission attempt.
type Outcome struct {
	Delivered       bool
	QueuedItems     int
	TotalBytes      int64
	AttachmentCount int
}

type SubmissionService struct {
	remote   Remote
	endpoint string
	repo     uploads.Repository
	log      logging.Logger
}

func NewSubmissionService(remote Remote, endpoint string, repo uploads.Repository, log logging.Logger) *SubmissionService {
	return &SubmissionService{remote: remote, endpoint: endpoint, repo: repo, log: log}
}

// Submit builds the multipart payload for set and delivers it to the remote
// service. When the service is unreachable, every binary attachment that is
// not already covered by a confirmed key is enqueued for the next drain and
// the submission is reported as deferred instead.
//
// Build failures (e.g. an undecodable signature) bubble up untouched: the
// submission as a whole is aborted and nothing is queued.
func (s *SubmissionService) Submit(ctx context.Context, set *answers.Set, opts submission.Options) (*Outcome, error) {
	p, err := submission.BuildPayload(ctx, set, opts)
	if err != nil {
		return nil, err
	}

	out := &Outcome{TotalBytes: p.TotalBytes, AttachmentCount: p.AttachmentCount}

	if s.remote.Probe(ctx, s.endpoint) {
		err := s.remote.PostMultipart(ctx, s.endpoint, p.ContentType, p.Body)
		if err == nil {
			out.Delivered = true
			return out, nil
		}

		var urlErr *url.Error
		if !errors.As(err, &urlErr) {
			// The service answered and rejected the submission; deferring
			// would just replay the same rejection.
			return nil, fmt.Errorf("submission rejected: %w", err)
		}
		s.log.Warn(ctx, "submission transport error, deferring", "error", err)
	} else {
		s.log.Info(ctx, "remote unreachable, deferring submission")
	}

	queued, err := s.enqueueBinaries(ctx, set, opts)
	if err != nil {
		return nil, err
	}
	out.QueuedItems = queued
	return out, nil
}

// enqueueBinaries stages the set's binary attachments in the durable queue.
// Media files already covered by an uploaded key are skipped, so a deferred
// resubmission never duplicates work.
func (s *SubmissionService) enqueueBinaries(ctx context.Context, set *answers.Set, opts submission.Options) (int, error) {
	prefix := uploadPrefix(opts)
	queued := 0

	for qid, entry := range set.Answers {
		switch entry.Kind {
		case answers.KindMedia:
			uploaded := opts.UploadedMedia[qid]
			for i, fd := range entry.Media {
				if i < len(uploaded) && uploaded[i] != "" {
					continue
				}
				if err := s.enqueueOne(ctx, MediaQKey(qid, i), prefix, fd.Name, fd.MimeType, fd.Data); err != nil {
					return queued, err
				}
				queued++
			}

		case answers.KindAudio:
			if entry.Audio == nil {
				continue
			}
			if err := s.enqueueOne(ctx, "a:"+qid, prefix, entry.Audio.Name, entry.Audio.MimeType, entry.Audio.Data); err != nil {
				return queued, err
			}
			queued++
		}
	}

	return queued, nil
}

func (s *SubmissionService) enqueueOne(ctx context.Context, qKey, prefix, name, mimeType string, data []byte) error {
	item := &queue.Item{
		ID:       uuid.NewString(),
		QKey:     qKey,
		Prefix:   prefix,
		Name:     name,
		MimeType: mimeType,
		Data:     data,
	}
	if err := s.repo.Enqueue(ctx, item); err != nil {
		return fmt.Errorf("queueing %s: %w", name, err)
	}
	return nil
}

func uploadPrefix(opts submission.Options) string {
	if opts.VehicleID != "" {
		return fmt.Sprintf("inspections/%s/%s", opts.TemplateID, opts.VehicleID)
	}
	return "inspections/" + opts.TemplateID
}

// MediaQKey is the correlation key of a queued media file: m:<qid>:<index>.
func MediaQKey(qid string, index int) string {
	return fmt.Sprintf("m:%s:%d", qid, index)
}

func parseMediaQKey(qKey string) (string, int, bool) {
	parts := strings.SplitN(qKey, ":", 3)
	if len(parts) != 3 || parts[0] != "m" {
		return "", 0, false
	}
	idx, err := strconv.Atoi(parts[2])
	if err != nil || idx < 0 {
		return "", 0, false
	}
	return parts[1], idx, true
}

// ReconcileUploaded folds the ok events of a drain pass into the
// uploaded-media map the payload builder consumes, keyed by question id
// with keys placed at their original index. Feeding this map back into a
// final combined submission is what guarantees confirmed attachments are
// never uploaded twice.
func ReconcileUploaded(events []queue.Event) map[string][]string {
	uploaded := make(map[string][]string)

	for _, e := range events {
		if e.Kind != queue.EventOK || e.Result == nil {
			continue
		}
		qid, idx, ok := parseMediaQKey(e.QKey)
		if !ok {
			continue
		}

		keys := uploaded[qid]
		for len(keys) <= idx {
			keys = append(keys, "")
		}
		keys[idx] = e.Result.Key
		uploaded[qid] = keys
	}

	return uploaded
}
