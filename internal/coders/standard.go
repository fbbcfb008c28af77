package coders

import (
	"context"
	"image"
	"image/color"
	"io"
	"log/slog"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/disintegration/imaging"

	"github.com/ironsheep/pixelcodec/internal/codec"
	"github.com/ironsheep/pixelcodec/internal/exception"
	"github.com/ironsheep/pixelcodec/internal/pixel"
)

// defaultQuality is the JPEG quality used when the request sets none.
const defaultQuality = 85

// standardCodec adapts a Go image decoder and encoder to the Codec
// contract. Each call handles a single image.
type standardCodec struct {
	tag    string
	decode func(r io.Reader) (image.Image, error)
	encode func(info *codec.ImageInfo, w io.Writer, m image.Image) error
}

func registerStandard(r *codec.Registry) {
	decode := func(r io.Reader) (image.Image, error) {
		return imaging.Decode(r, imaging.AutoOrientation(true))
	}
	formats := []struct {
		entry  codec.Entry
		encode func(info *codec.ImageInfo, w io.Writer, m image.Image) error
	}{
		{
			entry: codec.Entry{
				Tag:         "PNG",
				Description: "Portable Network Graphics",
				Extensions:  []string{"png"},
				Magic:       codec.PrefixMagic("\x89PNG\r\n\x1a\n"),
			},
			encode: func(_ *codec.ImageInfo, w io.Writer, m image.Image) error {
				return imgio.PNGEncoder()(w, m)
			},
		},
		{
			entry: codec.Entry{
				Tag:         "JPEG",
				Description: "Joint Photographic Experts Group JFIF format",
				Extensions:  []string{"jpg", "jpeg", "jpe"},
				Magic:       codec.PrefixMagic("\xff\xd8\xff"),
			},
			encode: func(info *codec.ImageInfo, w io.Writer, m image.Image) error {
				quality := info.Quality
				if quality <= 0 || quality > 100 {
					quality = defaultQuality
				}
				return imgio.JPEGEncoder(quality)(w, m)
			},
		},
		{
			entry: codec.Entry{
				Tag:         "GIF",
				Description: "CompuServe graphics interchange format",
				Extensions:  []string{"gif"},
				Magic:       codec.PrefixMagic("GIF87a", "GIF89a"),
			},
			encode: func(_ *codec.ImageInfo, w io.Writer, m image.Image) error {
				return imaging.Encode(w, m, imaging.GIF)
			},
		},
		{
			entry: codec.Entry{
				Tag:         "TIFF",
				Description: "Tagged Image File Format",
				Extensions:  []string{"tif", "tiff"},
				Magic:       codec.PrefixMagic("II*\x00", "MM\x00*"),
			},
			encode: func(_ *codec.ImageInfo, w io.Writer, m image.Image) error {
				return imaging.Encode(w, m, imaging.TIFF)
			},
		},
		{
			entry: codec.Entry{
				Tag:         "BMP",
				Description: "Microsoft Windows bitmap image",
				Extensions:  []string{"bmp"},
				Magic:       codec.PrefixMagic("BM"),
			},
			encode: func(_ *codec.ImageInfo, w io.Writer, m image.Image) error {
				return imgio.BMPEncoder()(w, m)
			},
		},
	}
	for _, f := range formats {
		e := f.entry
		e.Flags = codec.ThreadSafe
		e.Codec = &standardCodec{tag: e.Tag, decode: decode, encode: f.encode}
		r.Register(&e)
	}
	registerWebP(r)
}

func (c *standardCodec) Name() string { return c.tag }

func (c *standardCodec) Decode(ctx context.Context, info *codec.ImageInfo, r io.Reader) ([]*pixel.Image, error) {
	if info.Ping {
		return pingConfig(c.tag, r)
	}
	if c.decode == nil {
		return nil, exception.New(exception.MissingDelegateError, exception.ErrNoDecodeDelegate, c.tag)
	}
	m, err := c.decode(r)
	if err != nil {
		return nil, exception.Newf(exception.CorruptImageError, exception.ErrImproperImageHeader, "%s: %v", c.tag, err)
	}
	img, err := pixel.FromImage(m)
	if err != nil {
		return nil, err
	}
	img.Magick = c.tag
	if err := emitRows(ctx, info, img); err != nil {
		img.Destroy()
		return nil, err
	}
	return []*pixel.Image{img}, nil
}

func (c *standardCodec) Encode(ctx context.Context, info *codec.ImageInfo, w io.Writer, images []*pixel.Image) error {
	if c.encode == nil {
		return exception.New(exception.MissingDelegateError, exception.ErrNoEncodeDelegate, c.tag)
	}
	if len(images) == 0 {
		return exception.New(exception.OptionError, exception.ErrUnableToWriteFile, c.tag+": no images")
	}
	if len(images) > 1 {
		slog.Debug("format stores one image, writing the first",
			slog.String("format", c.tag), slog.Int("images", len(images)))
	}
	img := images[0]
	if info.Stream != nil {
		img = img.Clone()
		defer img.Destroy()
		if err := collectRows(ctx, info, img); err != nil {
			return err
		}
	}
	if err := c.encode(info, w, img.ToImage()); err != nil {
		return exception.Newf(exception.CoderError, exception.ErrUnableToWriteFile, "%s: %v", c.tag, err)
	}
	return nil
}

// pingConfig reads only the header of a registered Go image format.
func pingConfig(tag string, r io.Reader) ([]*pixel.Image, error) {
	cfg, _, err := image.DecodeConfig(r)
	if err != nil {
		return nil, exception.Newf(exception.CorruptImageError, exception.ErrImproperImageHeader, "%s: %v", tag, err)
	}
	img, err := pixel.New(cfg.Width, cfg.Height)
	if err != nil {
		return nil, err
	}
	img.Magick = tag
	img.Depth = 8
	switch cfg.ColorModel {
	case color.RGBA64Model, color.NRGBA64Model, color.Gray16Model:
		img.Depth = 16
	}
	return []*pixel.Image{img}, nil
}
