package answers

import (
	"fmt"
	"mime"
	"os"
	"sync"

	"github.com/dmitrijs2005/fieldcapture/internal/filex"
	"github.com/google/uuid"
)

// playbackDir is where staged audio files live, relative to the working
// directory.
const playbackDir = "playback"

// PlaybackHandle is a resolvable address for a staged audio file. The codec
// allocates it but does not own its lifetime; the caller must call Release
// when playback is no longer needed. Release is idempotent.
type PlaybackHandle struct {
	Path string

	once sync.Once
	err  error
}

// URL returns a file URL suitable for handing to a media player.
func (h *PlaybackHandle) URL() string {
	return "file://" + h.Path
}

// Release removes the staged file. Safe to call more than once.
func (h *PlaybackHandle) Release() error {
	h.once.Do(func() {
		h.err = os.Remove(h.Path)
	})
	return h.err
}

func stagePlayback(b *Blob) (*PlaybackHandle, error) {
	dir, err := filex.EnsureSubDir(playbackDir)
	if err != nil {
		return nil, fmt.Errorf("error creating dir: %w", err)
	}

	name := fmt.Sprintf("%v%s", uuid.New(), extensionFor(b.MimeType))

	path, err := filex.WriteStaged(dir, name, b.Data)
	if err != nil {
		return nil, err
	}

	return &PlaybackHandle{Path: path}, nil
}

func extensionFor(mimeType string) string {
	exts, err := mime.ExtensionsByType(mimeType)
	if err != nil || len(exts) == 0 {
		return ".bin"
	}
	return exts[0]
}
