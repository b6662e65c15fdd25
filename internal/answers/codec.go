package answers

import (
	"fmt"
	"strings"
	"time"
)

// Serialize flattens a runtime answer mapping into a durable Set. Entries
// whose value is Undefined are skipped entirely; every other key appears in
// the output exactly once.
//
// Classification runs in priority order: a non-empty slice of blobs is
// media, before an audio clip wrapper, before a signature data-URL string,
// before the plain-value fallback. A value matching no known shape is never
// an error; it is stored as-is under the value variant.
func Serialize(in map[string]any) (*Set, error) {
	set := &Set{
		Version:   SchemaVersion,
		UpdatedAt: time.Now().UTC(),
		Answers:   make(map[string]Entry, len(in)),
	}

	for qid, v := range in {
		if _, cleared := v.(undefinedValue); cleared {
			continue
		}
		set.Answers[qid] = serializeOne(qid, v)
	}

	return set, nil
}

func serializeOne(qid string, v any) Entry {
	if blobs, ok := asBlobSlice(v); ok {
		media := make([]FileData, len(blobs))
		for i, b := range blobs {
			media[i] = toFileData(b, qid, i)
		}
		return Entry{Kind: KindMedia, Media: media}
	}

	switch x := v.(type) {
	case *AudioClip:
		return serializeAudio(qid, x)
	case AudioClip:
		return serializeAudio(qid, &x)
	case string:
		if strings.HasPrefix(x, SignaturePrefix) {
			return Entry{Kind: KindSignature, Signature: x}
		}
	}

	return Entry{Kind: KindValue, Value: v}
}

func serializeAudio(qid string, clip *AudioClip) Entry {
	fd := toFileData(clip.Blob, qid, 0)
	return Entry{Kind: KindAudio, Audio: &fd, Duration: clip.Duration}
}

// asBlobSlice reports whether v is a non-empty slice made up entirely of
// blobs, either typed ([]*Blob) or as a heterogeneous []any.
func asBlobSlice(v any) ([]*Blob, bool) {
	switch s := v.(type) {
	case []*Blob:
		return s, len(s) > 0
	case []any:
		if len(s) == 0 {
			return nil, false
		}
		blobs := make([]*Blob, len(s))
		for i, e := range s {
			b, ok := e.(*Blob)
			if !ok {
				return nil, false
			}
			blobs[i] = b
		}
		return blobs, true
	default:
		return nil, false
	}
}

// Deserialize rebuilds the runtime answer mapping from a persisted Set.
// Media entries become []*Blob in stored order; audio entries become an
// *AudioClip with a staged PlaybackHandle the caller must Release;
// signature entries return the original data-URL string; value entries
// return the stored value, nil when absent.
func Deserialize(set *Set) (map[string]any, error) {
	out := make(map[string]any, len(set.Answers))

	for qid, e := range set.Answers {
		switch e.Kind {
		case KindMedia:
			blobs := make([]*Blob, len(e.Media))
			for i, fd := range e.Media {
				blobs[i] = fd.toBlob()
			}
			out[qid] = blobs

		case KindAudio:
			if e.Audio == nil {
				return nil, fmt.Errorf("audio answer %s has no file data", qid)
			}
			blob := e.Audio.toBlob()
			handle, err := stagePlayback(blob)
			if err != nil {
				return nil, fmt.Errorf("staging playback for %s: %w", qid, err)
			}
			out[qid] = &AudioClip{Blob: blob, Duration: e.Duration, Playback: handle}

		case KindSignature:
			out[qid] = e.Signature

		default:
			out[qid] = e.Value
		}
	}

	return out, nil
}
