package answers

import (
	"fmt"
	"time"
)

// SchemaVersion is the current revision of the serialized answer format.
const SchemaVersion = 1

// Kind classifies a serialized answer entry.
type Kind string

const (
	KindMedia     Kind = "media"
	KindAudio     Kind = "audio"
	KindSignature Kind = "signature"
	KindValue     Kind = "value"
)

// FileData is the durable representation of a single binary attachment.
// Name is never empty; a deterministic fallback is generated when the source
// blob has none.
type FileData struct {
	Name         string    `json:"name"`
	MimeType     string    `json:"mime_type"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
	Data         []byte    `json:"data"`
}

// Entry is one serialized answer, tagged by Kind. Only the fields belonging
// to the tagged variant are populated.
type Entry struct {
	Kind      Kind       `json:"kind"`
	Media     []FileData `json:"media,omitempty"`
	Audio     *FileData  `json:"audio,omitempty"`
	Duration  *float64   `json:"duration,omitempty"`
	Signature string     `json:"signature,omitempty"`
	Value     any        `json:"value,omitempty"`
}

// Set is a complete serialized answer set for one inspection. Within Media
// lists, slice order is the display order and is preserved end-to-end; the
// Answers map itself carries no ordering.
type Set struct {
	Version   int              `json:"version"`
	UpdatedAt time.Time        `json:"updated_at"`
	Answers   map[string]Entry `json:"answers"`
}

// FallbackName builds the deterministic name used when an attachment has
// none of its own: file-<questionID>-<index+1>.
func FallbackName(questionID string, index int) string {
	return fmt.Sprintf("file-%s-%d", questionID, index+1)
}

func toFileData(b *Blob, questionID string, index int) FileData {
	name := b.Name
	if name == "" {
		name = FallbackName(questionID, index)
	}
	return FileData{
		Name:         name,
		MimeType:     b.MimeType,
		Size:         b.Size(),
		LastModified: b.LastModified,
		Data:         b.Data,
	}
}

func (fd FileData) toBlob() *Blob {
	return &Blob{
		Name:         fd.Name,
		MimeType:     fd.MimeType,
		LastModified: fd.LastModified,
		Data:         fd.Data,
	}
}
