package codec

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/ironsheep/pixelcodec/internal/pixel"
)

// Codec decodes and encodes one image format. Coders that only work in one
// direction return an error from the other method and say so in their
// Entry flags.
type Codec interface {
	Name() string
	Decode(ctx context.Context, info *ImageInfo, r io.Reader) ([]*pixel.Image, error)
	Encode(ctx context.Context, info *ImageInfo, w io.Writer, images []*pixel.Image) error
}

// Flags describe the capabilities of a coder.
type Flags uint16

const (
	// SeekableStream coders need a file they can seek in.
	SeekableStream Flags = 1 << iota
	// ThreadSafe coders may run concurrently with themselves.
	ThreadSafe
	// RawSupport coders read headerless pixel data and need a size.
	RawSupport
	// EndianSupport coders honour ImageInfo.Endian.
	EndianSupport
	DecoderOnly
	EncoderOnly
	// Adjoin coders can store several images in one file.
	Adjoin
)

func (f Flags) Has(flag Flags) bool { return f&flag != 0 }

// Entry registers a Codec under a format tag.
type Entry struct {
	Tag         string
	Description string
	Codec       Codec
	Flags       Flags

	// Extensions are matched case-insensitively without the dot.
	Extensions []string

	// Magic reports whether a file header belongs to this format.
	Magic func(header []byte) bool

	mu sync.Mutex
}

// CanDecode reports whether the entry decodes.
func (e *Entry) CanDecode() bool { return !e.Flags.Has(EncoderOnly) }

// CanEncode reports whether the entry encodes.
func (e *Entry) CanEncode() bool { return !e.Flags.Has(DecoderOnly) }

// Lock serialises calls into coders that are not ThreadSafe. The returned
// function releases the lock.
func (e *Entry) Lock() (unlock func()) {
	if e.Flags.Has(ThreadSafe) {
		return func() {}
	}
	e.mu.Lock()
	return e.mu.Unlock
}

// PrefixMagic returns a Magic matcher for headers starting with any of the
// given signatures.
func PrefixMagic(signatures ...string) func([]byte) bool {
	return func(header []byte) bool {
		for _, sig := range signatures {
			if bytes.HasPrefix(header, []byte(sig)) {
				return true
			}
		}
		return false
	}
}
