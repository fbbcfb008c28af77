package server

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ironsheep/pixelcodec/internal/codec"
	"github.com/ironsheep/pixelcodec/internal/constitute"
	"github.com/ironsheep/pixelcodec/internal/exception"
	"github.com/ironsheep/pixelcodec/internal/pixel"
)

type cacheEntry struct {
	filename string
	img      *pixel.Image
}

// ImageCache keeps decoded images so repeated tool calls on the same file
// skip the decode.
//
// Entries are keyed by the read request: the filename together with the
// geometry and depth given for raw formats. Only the first scene of a file is
// kept. Cached images are shared between callers and must be treated as read
// only; clone an image before modifying it.
//
// ImageCache is safe for concurrent use.
type ImageCache struct {
	dispatcher *constitute.Dispatcher

	mu     sync.RWMutex
	images map[string]cacheEntry
}

// NewImageCache creates an empty cache that decodes through d.
func NewImageCache(d *constitute.Dispatcher) *ImageCache {
	return &ImageCache{
		dispatcher: d,
		images:     make(map[string]cacheEntry),
	}
}

func cacheKey(info *codec.ImageInfo) string {
	return fmt.Sprintf("%s|%dx%d|%d", info.Filename, info.Columns, info.Rows, info.Depth)
}

// Load returns the first scene of the image info describes, decoding it on
// a miss. Decoder warnings are logged.
func (c *ImageCache) Load(ctx context.Context, info *codec.ImageInfo) (*pixel.Image, error) {
	key := cacheKey(info)

	c.mu.RLock()
	if e, ok := c.images[key]; ok {
		c.mu.RUnlock()
		return e.img, nil
	}
	c.mu.RUnlock()

	var sink exception.Sink
	images, err := c.dispatcher.ReadImage(ctx, info, &sink)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	for _, w := range sink.Warnings() {
		slog.Warn("server: decoder warning", "file", info.Filename, "warning", w)
	}
	for _, extra := range images[1:] {
		extra.Destroy()
	}
	img := images[0]

	c.mu.Lock()
	if e, ok := c.images[key]; ok {
		// another caller decoded it first
		c.mu.Unlock()
		img.Destroy()
		return e.img, nil
	}
	_, file := codec.SplitFilename(info.Filename)
	c.images[key] = cacheEntry{filename: file, img: img}
	c.mu.Unlock()

	return img, nil
}

// Clear drops every cached image.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	for _, e := range c.images {
		e.img.Destroy()
	}
	c.images = make(map[string]cacheEntry)
	c.mu.Unlock()
}

// Evict drops every cached image read from filename, whatever format prefix
// or geometry it was read with. Writers call it after replacing a file.
func (c *ImageCache) Evict(filename string) {
	_, filename = codec.SplitFilename(filename)
	c.mu.Lock()
	for key, e := range c.images {
		if e.filename == filename {
			e.img.Destroy()
			delete(c.images, key)
		}
	}
	c.mu.Unlock()
}

// Len returns the number of cached images.
func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.images)
}
