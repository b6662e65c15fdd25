// Package upload pushes binary attachments to S3-compatible object storage.
package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/fieldcapture/internal/queue"
	"github.com/google/uuid"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config carries the storage connection settings. Endpoint is optional
// and overrides the default AWS endpoint (e.g. for MinIO).
type S3Config struct {
	Region    string
	Bucket    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// S3Uploader implements queue.Uploader on top of aws-sdk-go-v2.
type S3Uploader struct {
	client *s3.Client
	cfg    S3Config
}

func NewS3Uploader(ctx context.Context, cfg S3Config) (*S3Uploader, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Uploader{client: client, cfg: cfg}, nil
}

// BuildStorageKey derives the canonical storage key for an attachment:
// <prefix>/<year>/<month>/<day>/<uuid>-<name>.
func BuildStorageKey(prefix, name string) string {
	d := time.Now()
	return fmt.Sprintf("%s/%d/%d/%d/%v-%s", prefix, d.Year(), d.Month(), d.Day(), uuid.New(), name)
}

// Upload stores the item's payload and returns its canonical key and a
// resolvable object URL. onProgress, when non-nil, is called as bytes move.
func (u *S3Uploader) Upload(ctx context.Context, item *queue.Item, onProgress func(sent, total int64)) (*queue.UploadResult, error) {
	key := BuildStorageKey(item.Prefix, item.Name)

	body := newProgressReader(item.Data, onProgress)

	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.cfg.Bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentType:   aws.String(item.MimeType),
		ContentLength: aws.Int64(int64(len(item.Data))),
	})
	if err != nil {
		return nil, fmt.Errorf("putting object %s: %w", key, err)
	}

	return &queue.UploadResult{Key: key, ObjectURL: u.objectURL(key)}, nil
}

func (u *S3Uploader) objectURL(key string) string {
	if u.cfg.Endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", u.cfg.Endpoint, u.cfg.Bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", u.cfg.Bucket, u.cfg.Region, key)
}

// progressReader is a seekable reader over an in-memory payload that
// reports how many bytes have been handed to the transport. Seeking (the
// SDK rewinds on retry) resets the counter so progress never exceeds total.
type progressReader struct {
	r     *bytes.Reader
	total int64
	sent  int64
	cb    func(sent, total int64)
}

func newProgressReader(data []byte, cb func(sent, total int64)) *progressReader {
	return &progressReader{r: bytes.NewReader(data), total: int64(len(data)), cb: cb}
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.sent += int64(n)
		if p.cb != nil {
			p.cb(p.sent, p.total)
		}
	}
	return n, err
}

func (p *progressReader) Seek(offset int64, whence int) (int64, error) {
	pos, err := p.r.Seek(offset, whence)
	if err == nil {
		p.sent = pos
	}
	return pos, err
}

var _ io.ReadSeeker = (*progressReader)(nil)
