// Package stream gives decoders and encoders region-at-a-time pixel access.
//
// A Cache hands out pixel regions. Memory serves them straight from an
// image's storage. A Stream keeps no image storage at all: regions live in
// one reusable buffer, and a Handler receives each region once it has been
// filled (Receive) or is asked to fill it (Supply).
package stream

import (
	"image"

	"github.com/ironsheep/pixelcodec/internal/pixel"
)

// Cache is the region access contract coders are written against.
type Cache interface {
	// Get returns the pixels of r for reading.
	Get(r image.Rectangle) (*pixel.Pixels, error)
	// Queue returns the pixels of r for writing; they are committed by Sync.
	Queue(r image.Rectangle) (*pixel.Pixels, error)
	// Sync commits the last queued region.
	Sync() error
}

type memory struct {
	img *pixel.Image
}

// Memory returns a Cache over the pixel storage of img.
func Memory(img *pixel.Image) Cache { return &memory{img: img} }

func (m *memory) Get(r image.Rectangle) (*pixel.Pixels, error) { return m.img.Pixels(r) }

func (m *memory) Queue(r image.Rectangle) (*pixel.Pixels, error) { return m.img.Authentic(r) }

func (m *memory) Sync() error { return nil }
