// Package answers models inspection answers in two forms: the runtime
// values the capture UI works with (blobs, audio clips, signatures, plain
// values) and a flat, versioned serialized form safe to persist locally and
// rebuild after a restart.
package answers

import "time"

// Blob is an in-memory binary attachment (photo, video frame, audio clip,
// decoded signature image).
type Blob struct {
	Name         string
	MimeType     string
	LastModified time.Time
	Data         []byte
}

// Size returns the payload size in bytes.
func (b *Blob) Size() int64 { return int64(len(b.Data)) }

// AudioClip wraps a recorded voice note. Duration is in seconds and may be
// unknown. Playback is populated by Deserialize only; the caller owns it and
// must Release it when done.
type AudioClip struct {
	Blob     *Blob
	Duration *float64
	Playback *PlaybackHandle
}

type undefinedValue struct{}

// Undefined marks an answer that was cleared by the user. Serialize skips
// such entries entirely, unlike an explicit nil which is kept as a null
// value answer.
var Undefined undefinedValue

// SignaturePrefix is the marker of a self-describing inline-encoded
// signature image.
const SignaturePrefix = "data:image"
