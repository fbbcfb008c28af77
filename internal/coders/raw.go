package coders

import (
	"bufio"
	"context"
	"fmt"
	"image"
	"io"

	"github.com/ironsheep/pixelcodec/internal/codec"
	"github.com/ironsheep/pixelcodec/internal/exception"
	"github.com/ironsheep/pixelcodec/internal/pixel"
	"github.com/ironsheep/pixelcodec/internal/quantum"
)

// rawCodec reads and writes headerless pixel data in one sample layout.
type rawCodec struct {
	tag        string
	layout     *quantum.Layout
	colorspace pixel.Colorspace
	alpha      bool
	mono       bool
}

type rawFormat struct {
	tag, layout string
	colorspace  pixel.Colorspace
	description string
}

var rawFormats = []rawFormat{
	{"GRAY", "I", pixel.GrayColorspace, "Raw gray samples"},
	{"MONO", "I", pixel.GrayColorspace, "Raw bi-level samples, min-is-white"},
	{"RGB", "RGB", pixel.SRGBColorspace, "Raw red, green and blue samples"},
	{"RGBA", "RGBA", pixel.SRGBColorspace, "Raw red, green, blue and alpha samples"},
	{"RGBO", "RGBO", pixel.SRGBColorspace, "Raw red, green, blue and opacity samples"},
	{"BGR", "BGR", pixel.SRGBColorspace, "Raw blue, green and red samples"},
	{"BGRA", "BGRA", pixel.SRGBColorspace, "Raw blue, green, red and alpha samples"},
	{"BGRO", "BGRO", pixel.SRGBColorspace, "Raw blue, green, red and opacity samples"},
	{"CMYK", "CMYK", pixel.CMYKColorspace, "Raw cyan, magenta, yellow and black samples"},
	{"CMYKA", "CMYKA", pixel.CMYKColorspace, "Raw cyan, magenta, yellow, black and alpha samples"},
	// Y, Cb and Cr live in the red, green and blue slots of a YCbCr image.
	{"YCbCr", "RGB", pixel.YCbCrColorspace, "Raw Y, Cb and Cr samples"},
	{"R", "R", pixel.SRGBColorspace, "Raw red samples"},
	{"G", "G", pixel.SRGBColorspace, "Raw green samples"},
	{"B", "B", pixel.SRGBColorspace, "Raw blue samples"},
	{"A", "A", pixel.SRGBColorspace, "Raw alpha samples"},
	{"O", "O", pixel.SRGBColorspace, "Raw opacity samples"},
	{"C", "C", pixel.CMYKColorspace, "Raw cyan samples"},
	{"M", "M", pixel.CMYKColorspace, "Raw magenta samples"},
	{"Y", "Y", pixel.CMYKColorspace, "Raw yellow samples"},
	{"K", "K", pixel.CMYKColorspace, "Raw black samples"},
}

func registerRaw(r *codec.Registry) {
	for _, f := range rawFormats {
		l, err := quantum.ParseMap(f.layout)
		if err != nil {
			panic(fmt.Sprintf("coders: raw layout %q: %v", f.layout, err))
		}
		c := &rawCodec{
			tag:        f.tag,
			layout:     l,
			colorspace: f.colorspace,
			alpha:      l.HasAlpha(),
			mono:       f.tag == "MONO",
		}
		r.Register(&codec.Entry{
			Tag:         f.tag,
			Description: f.description,
			Codec:       c,
			Flags:       codec.RawSupport | codec.EndianSupport | codec.ThreadSafe | codec.Adjoin,
		})
	}
}

func (c *rawCodec) Name() string { return c.tag }

func (c *rawCodec) quantumInfo(info *codec.ImageInfo, img *pixel.Image, fallback int) (*quantum.Info, error) {
	if c.mono {
		info = info.Clone()
		info.Depth = 1
	}
	q, err := quantumInfo(info, img, fallback)
	if err != nil {
		return nil, err
	}
	q.SetMinIsWhite(c.mono)
	return q, nil
}

// Decode reads consecutive images of info.Columns x info.Rows until the
// input ends.
func (c *rawCodec) Decode(ctx context.Context, info *codec.ImageInfo, r io.Reader) ([]*pixel.Image, error) {
	if info.Columns <= 0 || info.Rows <= 0 {
		return nil, exception.New(exception.OptionError, exception.ErrMustSpecifyImageSize, c.tag)
	}
	br := bufio.NewReader(r)
	var images []*pixel.Image
	for scene := 0; ; scene++ {
		if scene > 0 {
			if _, err := br.Peek(1); err != nil {
				break
			}
		}
		img, err := c.decodeScene(ctx, info, br)
		if err != nil {
			destroyAll(images)
			return nil, err
		}
		img.Scene = scene
		images = append(images, img)
		if info.Ping {
			break
		}
	}
	return images, nil
}

func (c *rawCodec) decodeScene(ctx context.Context, info *codec.ImageInfo, br *bufio.Reader) (_ *pixel.Image, err error) {
	img, err := pixel.New(info.Columns, info.Rows)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			img.Destroy()
		}
	}()
	img.SetColorspace(c.colorspace)
	img.SetAlpha(c.alpha)

	q, err := c.quantumInfo(info, img, 8)
	if err != nil {
		return nil, err
	}
	img.Depth = int(q.Depth())
	if info.Ping {
		return img, nil
	}

	cache, done := readCache(info, img)
	defer done()
	row := make([]byte, q.LayoutExtent(c.layout, img.Columns, 1))
	for y := 0; y < img.Rows; y++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, err := io.ReadFull(br, row); err != nil {
			return nil, exception.Newf(exception.CorruptImageError, exception.ErrUnexpectedEndOfFile,
				"%s: row %d of %d", c.tag, y, img.Rows)
		}
		p, err := cache.Queue(image.Rect(0, y, img.Columns, y+1))
		if err != nil {
			return nil, err
		}
		if _, err := q.ImportLayout(p, c.layout, row); err != nil {
			return nil, err
		}
		if err := cache.Sync(); err != nil {
			return nil, err
		}
	}
	return img, nil
}

// Encode writes every image back to back.
func (c *rawCodec) Encode(ctx context.Context, info *codec.ImageInfo, w io.Writer, images []*pixel.Image) error {
	bw := bufio.NewWriter(w)
	for _, src := range images {
		if err := c.encodeScene(ctx, info, bw, src); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func (c *rawCodec) encodeScene(ctx context.Context, info *codec.ImageInfo, w io.Writer, src *pixel.Image) error {
	img := conform(src, c.colorspace)
	if img != src {
		defer img.Destroy()
	}
	q, err := c.quantumInfo(info, img, min(img.Depth, 64))
	if err != nil {
		return err
	}

	cache, done := writeCache(info, img)
	defer done()
	row := make([]byte, q.LayoutExtent(c.layout, img.Columns, 1))
	for y := 0; y < img.Rows; y++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		p, err := cache.Get(image.Rect(0, y, img.Columns, y+1))
		if err != nil {
			return err
		}
		if _, err := q.ExportLayout(p, c.layout, row); err != nil {
			return err
		}
		if _, err := w.Write(row); err != nil {
			return exception.Newf(exception.FileOpenError, exception.ErrUnableToWriteFile, "%s: %v", c.tag, err)
		}
	}
	return nil
}
