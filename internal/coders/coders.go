// Package coders implements the built-in image formats: headerless raw
// channel data, the common web and print formats, and MIFF, a native
// format that stores any image losslessly.
package coders

import (
	"context"
	"image"
	"strconv"
	"sync"

	"github.com/ironsheep/pixelcodec/internal/codec"
	"github.com/ironsheep/pixelcodec/internal/exception"
	"github.com/ironsheep/pixelcodec/internal/pixel"
	"github.com/ironsheep/pixelcodec/internal/quantum"
	"github.com/ironsheep/pixelcodec/internal/stream"
)

// Register adds every built-in coder to r.
func Register(r *codec.Registry) {
	registerRaw(r)
	registerStandard(r)
	registerMIFF(r)
}

var (
	defaultOnce     sync.Once
	defaultRegistry *codec.Registry
)

// Default returns the process-wide registry holding the built-in coders.
func Default() *codec.Registry {
	defaultOnce.Do(func() {
		defaultRegistry = codec.NewRegistry()
		Register(defaultRegistry)
	})
	return defaultRegistry
}

// quantumInfo configures a transfer from the read or write options. Depth
// falls back to fallback when the request does not set one.
func quantumInfo(info *codec.ImageInfo, img *pixel.Image, fallback int) (*quantum.Info, error) {
	q := quantum.NewInfo(img)
	depth := info.Depth
	if depth == 0 {
		depth = fallback
	}
	if err := q.SetDepth(depth); err != nil {
		return nil, err
	}
	q.SetEndian(info.Endian)

	if v := info.Option("quantum:format"); v != "" {
		f, err := quantum.ParseFormat(v)
		if err != nil {
			return nil, exception.New(exception.OptionError, exception.ErrUnrecognizedQuantumType, v)
		}
		if err := q.SetFormat(f); err != nil {
			return nil, err
		}
	}
	if v := info.Option("quantum:pad"); v != "" {
		pad, err := strconv.Atoi(v)
		if err != nil {
			return nil, exception.New(exception.OptionError, exception.ErrInvalidPad, v)
		}
		if err := q.SetPad(pad); err != nil {
			return nil, err
		}
	}
	if v := info.Option("quantum:pack"); v != "" {
		pack, err := strconv.ParseBool(v)
		if err != nil {
			return nil, exception.Newf(exception.OptionError, exception.ErrInvalidConfiguration, "quantum:pack %q", v)
		}
		q.SetPack(pack)
	}
	if v := info.Option("quantum:scale"); v != "" {
		scale, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, exception.Newf(exception.OptionError, exception.ErrInvalidConfiguration, "quantum:scale %q", v)
		}
		q.SetScale(scale)
	}
	if v := info.Option("quantum:minimum"); v != "" {
		minimum, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, exception.Newf(exception.OptionError, exception.ErrInvalidConfiguration, "quantum:minimum %q", v)
		}
		q.SetMinimum(minimum)
	}
	if info.Option("quantum:alpha") == "associated" {
		q.SetAlphaType(quantum.AssociatedQuantumAlpha)
	}
	return q, nil
}

// readCache returns where a decoder stores rows: the image itself, or a
// Receive stream when the caller asked for streamed pixels.
func readCache(info *codec.ImageInfo, img *pixel.Image) (stream.Cache, func()) {
	if info.Stream == nil {
		return stream.Memory(img), func() {}
	}
	s := stream.New(img, info.Stream, stream.Receive)
	return s, s.Destroy
}

// writeCache returns where an encoder fetches rows: the image itself, or a
// Supply stream filled by the caller's handler.
func writeCache(info *codec.ImageInfo, img *pixel.Image) (stream.Cache, func()) {
	if info.Stream == nil {
		return stream.Memory(img), func() {}
	}
	s := stream.New(img, info.Stream, stream.Supply)
	return s, s.Destroy
}

// emitRows hands a fully decoded image to the stream handler row by row.
func emitRows(ctx context.Context, info *codec.ImageInfo, img *pixel.Image) error {
	if info.Stream == nil {
		return nil
	}
	s := stream.New(img, info.Stream, stream.Receive)
	defer s.Destroy()
	for y := 0; y < img.Rows; y++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		r := image.Rect(0, y, img.Columns, y+1)
		src, err := img.Pixels(r)
		if err != nil {
			return err
		}
		dst, err := s.Queue(r)
		if err != nil {
			return err
		}
		copy(dst.Pix, src.Row(0))
		if err := s.Sync(); err != nil {
			return err
		}
	}
	return nil
}

// collectRows fills img from the stream handler, for encoders that need the
// whole image at once.
func collectRows(ctx context.Context, info *codec.ImageInfo, img *pixel.Image) error {
	if info.Stream == nil {
		return nil
	}
	s := stream.New(img, info.Stream, stream.Supply)
	defer s.Destroy()
	for y := 0; y < img.Rows; y++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		r := image.Rect(0, y, img.Columns, y+1)
		src, err := s.Get(r)
		if err != nil {
			return err
		}
		dst, err := img.Authentic(r)
		if err != nil {
			return err
		}
		copy(dst.Row(0), src.Row(0))
	}
	return nil
}

// conform returns img in colorspace cs, converting a clone when the channel
// roles differ. The caller destroys the result when it differs from img.
func conform(img *pixel.Image, cs pixel.Colorspace) *pixel.Image {
	special := func(c pixel.Colorspace) bool {
		return c.IsCMYK() || c == pixel.YCbCrColorspace
	}
	if img.Colorspace() == cs || !(special(img.Colorspace()) || special(cs)) {
		return img
	}
	c := img.Clone()
	c.TransformColorspace(cs)
	return c
}

func destroyAll(images []*pixel.Image) {
	for _, img := range images {
		img.Destroy()
	}
}
