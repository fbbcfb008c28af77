// Package codec defines the coder contract and the registry that maps
// format tags to coders.
package codec

import (
	"fmt"
	"maps"
	"strconv"
	"strings"

	"github.com/ironsheep/pixelcodec/internal/quantum"
	"github.com/ironsheep/pixelcodec/internal/stream"
)

// ImageInfo carries the options of one read or write.
type ImageInfo struct {
	// Filename may carry a format prefix such as "RGB:pixels.bin".
	Filename string

	// Magick is the format tag; Affirm means it was given explicitly and
	// must not be second-guessed by magic bytes.
	Magick string
	Affirm bool

	// Columns and Rows give the geometry of formats without a header.
	Columns int
	Rows    int

	Depth   int
	Endian  quantum.Endian
	Quality int
	Scene   int

	// Blob holds the encoded image when reading from or writing to memory.
	Blob []byte

	// Ping asks decoders for the header only.
	Ping bool

	// Options holds coder specific settings such as "quantum:format".
	Options map[string]string

	// Stream, when set, receives decoded pixels row by row instead of
	// having them stored in the image.
	Stream stream.Handler
}

// Clone returns a copy the dispatch layer may modify freely.
func (info *ImageInfo) Clone() *ImageInfo {
	c := *info
	c.Options = maps.Clone(info.Options)
	if c.Options == nil {
		c.Options = make(map[string]string)
	}
	c.Blob = info.Blob[:len(info.Blob):len(info.Blob)]
	return &c
}

// Option returns a coder option, or "" when unset.
func (info *ImageInfo) Option(key string) string {
	if info.Options == nil {
		return ""
	}
	return info.Options[key]
}

// SetOption records a coder option.
func (info *ImageInfo) SetOption(key, value string) {
	if info.Options == nil {
		info.Options = make(map[string]string)
	}
	info.Options[key] = value
}

// SetSize parses a geometry such as "640x480".
func (info *ImageInfo) SetSize(size string) error {
	w, h, ok := strings.Cut(strings.ToLower(size), "x")
	if !ok {
		return fmt.Errorf("invalid size %q, expected WIDTHxHEIGHT", size)
	}
	columns, err := strconv.Atoi(w)
	if err != nil || columns <= 0 {
		return fmt.Errorf("invalid width in size %q", size)
	}
	rows, err := strconv.Atoi(h)
	if err != nil || rows <= 0 {
		return fmt.Errorf("invalid height in size %q", size)
	}
	info.Columns, info.Rows = columns, rows
	return nil
}

// SplitFilename separates an explicit "TAG:" prefix from a filename. Single
// letter prefixes are kept as part of the name so that Windows drive letters
// still work, except for the single channel tags.
func SplitFilename(name string) (tag, file string) {
	prefix, rest, ok := strings.Cut(name, ":")
	if !ok || prefix == "" || strings.ContainsAny(prefix, `/\.`) {
		return "", name
	}
	if len(prefix) == 1 && !strings.ContainsAny(strings.ToUpper(prefix), "RGBAOCMYK") {
		return "", name
	}
	return strings.ToUpper(prefix), rest
}
