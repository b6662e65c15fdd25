package upload

import (
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildStorageKey(t *testing.T) {
	key := BuildStorageKey("inspections/42", "photo.jpg")

	d := time.Now()
	wantPrefix := fmt.Sprintf("inspections/42/%d/%d/%d/", d.Year(), d.Month(), d.Day())
	assert.True(t, strings.HasPrefix(key, wantPrefix), "got %s", key)
	assert.True(t, strings.HasSuffix(key, "-photo.jpg"))

	// Keys must be unique per call.
	assert.NotEqual(t, key, BuildStorageKey("inspections/42", "photo.jpg"))
}

func TestProgressReader_ReportsBytes(t *testing.T) {
	data := []byte("0123456789")

	var last, total int64
	var calls int
	pr := newProgressReader(data, func(s, tot int64) {
		last, total = s, tot
		calls++
	})

	buf := make([]byte, 4)
	read := 0
	for {
		n, err := pr.Read(buf)
		read += n
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
	}

	assert.Equal(t, 10, read)
	assert.Equal(t, int64(10), last)
	assert.Equal(t, int64(10), total)
	assert.GreaterOrEqual(t, calls, 3)
}

func TestProgressReader_SeekResetsProgress(t *testing.T) {
	data := []byte("0123456789")
	var last int64
	pr := newProgressReader(data, func(s, tot int64) { last = s })

	_, err := io.ReadAll(pr)
	require.NoError(t, err)
	assert.Equal(t, int64(10), last)

	// SDK retry rewinds the body; progress must follow.
	pos, err := pr.Seek(0, io.SeekStart)
	require.NoError(t, err)
	assert.Equal(t, int64(0), pos)

	buf := make([]byte, 3)
	_, err = pr.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, int64(3), last)
}

func TestObjectURL(t *testing.T) {
	u := &S3Uploader{cfg: S3Config{Region: "us-east-1", Bucket: "captures"}}
	assert.Equal(t, "https://captures.s3.us-east-1.amazonaws.com/a/b", u.objectURL("a/b"))

	u = &S3Uploader{cfg: S3Config{Bucket: "captures", Endpoint: "http://localhost:9000"}}
	assert.Equal(t, "http://localhost:9000/captures/a/b", u.objectURL("a/b"))
}
