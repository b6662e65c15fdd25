// Package imaging provides the default image compression used when building
// submission payloads. It re-encodes large JPEG/PNG attachments through the
// JPEG encoder at reduced quality; callers with stronger needs can inject
// their own implementation of the same contract.
package imaging

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"github.com/dmitrijs2005/fieldcapture/internal/answers"
)

// Recompressor implements submission.Compressor.
type Recompressor struct {
	// MinSize is the payload size below which compression is skipped.
	MinSize int64
	// Quality is the JPEG encoder quality (1-100).
	Quality int
}

// NewRecompressor returns a Recompressor with the defaults used by the
// agent: skip files under 256 KiB, encode at quality 75.
func NewRecompressor() *Recompressor {
	return &Recompressor{MinSize: 256 << 10, Quality: 75}
}

func (c *Recompressor) ShouldCompress(b *answers.Blob) bool {
	if b.Size() < c.MinSize {
		return false
	}
	return b.MimeType == "image/jpeg" || b.MimeType == "image/png"
}

// Compress re-encodes the image. If the result is not smaller than the
// original, the original blob is returned unchanged.
func (c *Recompressor) Compress(ctx context.Context, b *answers.Blob) (*answers.Blob, error) {
	img, err := decode(b)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", b.Name, err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: c.Quality}); err != nil {
		return nil, fmt.Errorf("encoding %s: %w", b.Name, err)
	}

	if int64(buf.Len()) >= b.Size() {
		return b, nil
	}

	return &answers.Blob{
		Name:         b.Name,
		MimeType:     "image/jpeg",
		LastModified: b.LastModified,
		Data:         buf.Bytes(),
	}, nil
}

func decode(b *answers.Blob) (image.Image, error) {
	switch b.MimeType {
	case "image/png":
		return png.Decode(bytes.NewReader(b.Data))
	default:
		return jpeg.Decode(bytes.NewReader(b.Data))
	}
}
