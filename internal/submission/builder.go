// Package submission builds the multipart request body for a completed or
// draft inspection submission from a serialized answer set.
package submission

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"sort"
	"strings"

	"github.com/dmitrijs2005/fieldcapture/internal/answers"
	"golang.org/x/sync/errgroup"
)

// Compressor decides whether an attachment is worth compressing and performs
// the compression. Implementations must return a blob with the same semantic
// content; returning the input unchanged is valid.
type Compressor interface {
	ShouldCompress(b *answers.Blob) bool
	Compress(ctx context.Context, b *answers.Blob) (*answers.Blob, error)
}

// Options configures one payload build.
//
// UploadedMedia maps a question id to the ordered list of storage keys that
// were already confirmed by an earlier queue drain; files covered by a key
// are never compressed or attached again.
type Options struct {
	TemplateID    string
	VehicleID     string
	Draft         bool
	Meta          map[string]any
	UploadedMedia map[string][]string
	Compressor    Compressor
}

// Summary is one row of the answer summary serialized into the payload text
// field.
type Summary struct {
	QuestionID string       `json:"question_id"`
	Kind       answers.Kind `json:"kind"`
	Value      any          `json:"value"`
}

// AudioValue is the summary value of an audio answer.
type AudioValue struct {
	File     string   `json:"file"`
	Duration *float64 `json:"duration"`
}

// Payload is a finished multipart request body plus its accounting:
// TotalBytes sums every attachment's payload size and the encoded payload
// field; AttachmentCount counts only newly appended attachments, not reused
// keys.
type Payload struct {
	Body            []byte
	ContentType     string
	TotalBytes      int64
	AttachmentCount int
	Answers         []Summary
}

type payloadField struct {
	TemplateID string         `json:"template_id"`
	VehicleID  *string        `json:"vehicle_id"`
	Status     string         `json:"status"`
	Answers    []Summary      `json:"answers"`
	Meta       map[string]any `json:"meta"`
}

type attachment struct {
	field    string
	filename string
	mimeType string
	data     []byte
}

// BuildPayload assembles the multipart body for set. Construction is
// all-or-nothing: a signature that cannot be decoded aborts the whole build
// with a *DecodeError.
func BuildPayload(ctx context.Context, set *answers.Set, opts Options) (*Payload, error) {
	qids := make([]string, 0, len(set.Answers))
	for qid := range set.Answers {
		qids = append(qids, qid)
	}
	sort.Strings(qids)

	var atts []attachment
	summaries := make([]Summary, 0, len(qids))

	for _, qid := range qids {
		entry := set.Answers[qid]

		switch entry.Kind {
		case answers.KindMedia:
			names, added, err := buildMedia(ctx, qid, entry.Media, opts)
			if err != nil {
				return nil, err
			}
			atts = append(atts, added...)
			summaries = append(summaries, Summary{QuestionID: qid, Kind: answers.KindMedia, Value: names})

		case answers.KindAudio:
			fd := entry.Audio
			if fd == nil {
				return nil, fmt.Errorf("audio answer %s has no file data", qid)
			}
			atts = append(atts, attachment{
				field:    "audio_" + qid,
				filename: fd.Name,
				mimeType: fd.MimeType,
				data:     fd.Data,
			})
			summaries = append(summaries, Summary{
				QuestionID: qid,
				Kind:       answers.KindAudio,
				Value:      AudioValue{File: fd.Name, Duration: entry.Duration},
			})

		case answers.KindSignature:
			data, err := decodeSignature(qid, entry.Signature)
			if err != nil {
				return nil, err
			}
			filename := qid + "-signature.png"
			atts = append(atts, attachment{
				field:    "signature_" + qid,
				filename: filename,
				mimeType: "image/png",
				data:     data,
			})
			summaries = append(summaries, Summary{QuestionID: qid, Kind: answers.KindSignature, Value: filename})

		default:
			summaries = append(summaries, Summary{QuestionID: qid, Kind: answers.KindValue, Value: entry.Value})
		}
	}

	status := "completed"
	if opts.Draft {
		status = "draft"
	}

	var vehicleID *string
	if opts.VehicleID != "" {
		vehicleID = &opts.VehicleID
	}

	encoded, err := json.Marshal(payloadField{
		TemplateID: opts.TemplateID,
		VehicleID:  vehicleID,
		Status:     status,
		Answers:    summaries,
		Meta:       opts.Meta,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding payload field: %w", err)
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	totalBytes := int64(len(encoded))
	for _, a := range atts {
		if err := writeFilePart(w, a); err != nil {
			return nil, err
		}
		totalBytes += int64(len(a.data))
	}
	if err := w.WriteField("payload", string(encoded)); err != nil {
		return nil, fmt.Errorf("writing payload field: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finalizing multipart body: %w", err)
	}

	return &Payload{
		Body:            buf.Bytes(),
		ContentType:     w.FormDataContentType(),
		TotalBytes:      totalBytes,
		AttachmentCount: len(atts),
		Answers:         summaries,
	}, nil
}

// buildMedia resolves one media answer: already-uploaded files contribute
// their storage key to the name list and nothing else; the rest are
// optionally compressed (concurrently per question) and appended as new
// attachments, always in original index order.
func buildMedia(ctx context.Context, qid string, files []answers.FileData, opts Options) ([]string, []attachment, error) {
	uploaded := opts.UploadedMedia[qid]

	type slot struct {
		blob *answers.Blob
		name string
	}
	slots := make([]slot, len(files))

	g, gctx := errgroup.WithContext(ctx)

	for i := range files {
		if i < len(uploaded) && uploaded[i] != "" {
			slots[i] = slot{name: uploaded[i]}
			continue
		}

		fd := files[i]
		name := fd.Name
		if name == "" {
			name = answers.FallbackName(qid, i)
		}

		blob := &answers.Blob{Name: name, MimeType: fd.MimeType, LastModified: fd.LastModified, Data: fd.Data}
		g.Go(func() error {
			out := blob
			if opts.Compressor != nil && opts.Compressor.ShouldCompress(blob) {
				var err error
				out, err = opts.Compressor.Compress(gctx, blob)
				if err != nil {
					return fmt.Errorf("compressing %s: %w", name, err)
				}
			}
			slots[i] = slot{blob: out, name: name}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	// Completion order of the compressions above does not matter: slots is
	// indexed by the original position, so this pass emits attachments and
	// names in display order.
	names := make([]string, len(slots))
	var atts []attachment
	for i, s := range slots {
		names[i] = s.name
		if s.blob == nil {
			continue
		}
		atts = append(atts, attachment{
			field:    fmt.Sprintf("media_%s_%d", qid, i),
			filename: s.name,
			mimeType: s.blob.MimeType,
			data:     s.blob.Data,
		})
	}

	return names, atts, nil
}

func decodeSignature(qid, s string) ([]byte, error) {
	const marker = ";base64,"

	idx := strings.Index(s, marker)
	if idx < 0 {
		return nil, &DecodeError{QuestionID: qid, Reason: "no base64 payload marker"}
	}

	data, err := base64.StdEncoding.DecodeString(s[idx+len(marker):])
	if err != nil {
		return nil, &DecodeError{QuestionID: qid, Reason: "invalid base64 payload", Err: err}
	}
	return data, nil
}

func writeFilePart(w *multipart.Writer, a attachment) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name=%q; filename=%q`, a.field, a.filename))
	if a.mimeType != "" {
		h.Set("Content-Type", a.mimeType)
	}

	part, err := w.CreatePart(h)
	if err != nil {
		return fmt.Errorf("creating part %s: %w", a.field, err)
	}
	if _, err := part.Write(a.data); err != nil {
		return fmt.Errorf("writing part %s: %w", a.field, err)
	}
	return nil
}
