package imaging

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/dmitrijs2005/fieldcapture/internal/answers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noisyPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * y), G: uint8(x ^ y), B: uint8(x + y), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestShouldCompress(t *testing.T) {
	c := &Recompressor{MinSize: 100, Quality: 75}

	big := &answers.Blob{Name: "a.png", MimeType: "image/png", Data: make([]byte, 200)}
	small := &answers.Blob{Name: "b.png", MimeType: "image/png", Data: make([]byte, 10)}
	video := &answers.Blob{Name: "c.mp4", MimeType: "video/mp4", Data: make([]byte, 200)}

	assert.True(t, c.ShouldCompress(big))
	assert.False(t, c.ShouldCompress(small))
	assert.False(t, c.ShouldCompress(video))
}

func TestCompress_ShrinksNoisyPNG(t *testing.T) {
	data := noisyPNG(t, 160, 160)
	in := &answers.Blob{Name: "photo.png", MimeType: "image/png", Data: data}

	c := &Recompressor{MinSize: 1, Quality: 60}
	out, err := c.Compress(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, "photo.png", out.Name)
	assert.Equal(t, "image/jpeg", out.MimeType)
	assert.Less(t, out.Size(), in.Size())

	// Result must still decode.
	_, err = jpeg.Decode(bytes.NewReader(out.Data))
	require.NoError(t, err)
}

func TestCompress_KeepsOriginalWhenNotSmaller(t *testing.T) {
	// A tiny flat image re-encodes to roughly the same size or bigger.
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 10}))

	in := &answers.Blob{Name: "tiny.jpg", MimeType: "image/jpeg", Data: buf.Bytes()}
	c := &Recompressor{MinSize: 1, Quality: 95}

	out, err := c.Compress(context.Background(), in)
	require.NoError(t, err)
	assert.Same(t, in, out)
}

func TestCompress_GarbageFails(t *testing.T) {
	in := &answers.Blob{Name: "bad.jpg", MimeType: "image/jpeg", Data: []byte("not an image")}
	c := NewRecompressor()

	_, err := c.Compress(context.Background(), in)
	require.Error(t, err)
}
