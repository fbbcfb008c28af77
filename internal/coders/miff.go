package coders

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/ironsheep/pixelcodec/internal/codec"
	"github.com/ironsheep/pixelcodec/internal/exception"
	"github.com/ironsheep/pixelcodec/internal/pixel"
	"github.com/ironsheep/pixelcodec/internal/quantum"
)

const (
	miffID         = "PixelCodec"
	miffTerminator = "\f\n:\x1a"
	// maxHeader bounds the text header so garbage input fails fast.
	maxHeader = 64 << 10
	// maxZstdWindow caps the history a compressed payload may ask for.
	maxZstdWindow = 32 << 20
)

var zstdEncoders = sync.Pool{
	New: func() any {
		enc, err := zstd.NewWriter(nil,
			zstd.WithEncoderConcurrency(1),
			zstd.WithEncoderLevel(zstd.SpeedBetterCompression),
			zstd.WithLowerEncoderMem(true),
		)
		if err != nil {
			panic(err)
		}
		return enc
	},
}

var zstdDecoders = sync.Pool{
	New: func() any {
		dec, err := zstd.NewReader(nil,
			zstd.WithDecoderConcurrency(1),
			zstd.WithDecoderLowmem(true),
			zstd.WithDecoderMaxWindow(maxZstdWindow),
			// always stream, so output stops at the expected size
			zstd.WithDecodeBuffersBelow(0),
		)
		if err != nil {
			panic(err)
		}
		return dec
	},
}

func compressZstd(data []byte) []byte {
	enc := zstdEncoders.Get().(*zstd.Encoder)
	defer zstdEncoders.Put(enc)
	return enc.EncodeAll(data, make([]byte, 0, len(data)/2))
}

// decompressZstd decodes exactly size bytes from data. Output past size is
// never produced.
func decompressZstd(data []byte, size int) ([]byte, error) {
	dec := zstdDecoders.Get().(*zstd.Decoder)
	defer zstdDecoders.Put(dec)
	if err := dec.Reset(bytes.NewReader(data)); err != nil {
		return nil, err
	}
	out := make([]byte, size)
	if _, err := io.ReadFull(dec, out); err != nil {
		return nil, err
	}
	return out, nil
}

// zstdBound is the largest compressed size a payload of n bytes can have.
func zstdBound(n int) int {
	return n + n>>7 + 1<<17
}

// miffCodec stores any image losslessly: a text header, an optional
// colormap and quantum rows, optionally zstd compressed.
type miffCodec struct{}

func registerMIFF(r *codec.Registry) {
	r.Register(&codec.Entry{
		Tag:         "MIFF",
		Description: "Magick image file format",
		Extensions:  []string{"miff"},
		Magic:       codec.PrefixMagic("id=" + miffID),
		Flags:       codec.ThreadSafe | codec.EndianSupport | codec.Adjoin,
		Codec:       miffCodec{},
	})
}

func (miffCodec) Name() string { return "MIFF" }

// miffHeader is the parsed text header of one scene.
type miffHeader struct {
	class       pixel.StorageClass
	colors      int
	colorspace  pixel.Colorspace
	alpha       bool
	depth       int
	columns     int
	rows        int
	compression string
	endian      quantum.Endian
	scene       int
	length      int
}

func (h *miffHeader) quantumType() quantum.Type {
	switch {
	case h.class == pixel.PseudoClass && h.alpha:
		return quantum.IndexAlphaQuantum
	case h.class == pixel.PseudoClass:
		return quantum.IndexQuantum
	case h.colorspace.IsGray() && h.alpha:
		return quantum.GrayAlphaQuantum
	case h.colorspace.IsGray():
		return quantum.GrayQuantum
	case h.colorspace.IsCMYK() && h.alpha:
		return quantum.CMYKAQuantum
	case h.colorspace.IsCMYK():
		return quantum.CMYKQuantum
	case h.alpha:
		return quantum.RGBAQuantum
	}
	return quantum.RGBQuantum
}

func (h *miffHeader) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "id=%s class=%s colors=%d colorspace=%s alpha=%t\n",
		miffID, h.class, h.colors, h.colorspace, h.alpha)
	fmt.Fprintf(&b, "columns=%d rows=%d depth=%d endian=%s scene=%d\n",
		h.columns, h.rows, h.depth, h.endian, h.scene)
	fmt.Fprintf(&b, "compression=%s", h.compression)
	if h.compression == "Zstd" {
		fmt.Fprintf(&b, " length=%d", h.length)
	}
	b.WriteString("\n" + miffTerminator)
	return b.String()
}

// readMIFFHeader reads one header. It returns io.EOF when only whitespace
// is left in the input.
func readMIFFHeader(br *bufio.Reader) (*miffHeader, error) {
	var text bytes.Buffer
	for {
		c, err := br.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) && len(bytes.TrimSpace(text.Bytes())) == 0 {
				return nil, io.EOF
			}
			return nil, exception.New(exception.CorruptImageError, exception.ErrImproperImageHeader, "MIFF: truncated header")
		}
		text.WriteByte(c)
		if bytes.HasSuffix(text.Bytes(), []byte(miffTerminator)) {
			break
		}
		if text.Len() > maxHeader {
			return nil, exception.New(exception.CorruptImageError, exception.ErrImproperImageHeader, "MIFF: header too long")
		}
	}
	body := strings.TrimSuffix(text.String(), miffTerminator)

	h := &miffHeader{colorspace: pixel.SRGBColorspace, depth: 8, compression: "None", endian: quantum.MSBEndian}
	id := ""
	for _, field := range strings.Fields(body) {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			return nil, exception.Newf(exception.CorruptImageError, exception.ErrImproperImageHeader, "MIFF: field %q", field)
		}
		var err error
		switch strings.ToLower(key) {
		case "id":
			id = value
		case "class":
			if strings.EqualFold(value, "PseudoClass") {
				h.class = pixel.PseudoClass
			}
		case "colors":
			h.colors, err = strconv.Atoi(value)
		case "colorspace":
			h.colorspace, err = pixel.ParseColorspace(value)
		case "alpha":
			h.alpha, err = strconv.ParseBool(value)
		case "depth":
			h.depth, err = strconv.Atoi(value)
		case "columns":
			h.columns, err = strconv.Atoi(value)
		case "rows":
			h.rows, err = strconv.Atoi(value)
		case "compression":
			h.compression = value
		case "endian":
			h.endian, err = quantum.ParseEndian(value)
		case "scene":
			h.scene, err = strconv.Atoi(value)
		case "length":
			h.length, err = strconv.Atoi(value)
		}
		if err != nil {
			return nil, exception.Newf(exception.CorruptImageError, exception.ErrImproperImageHeader, "MIFF: %s: %v", key, err)
		}
	}
	switch {
	case id != miffID:
		return nil, exception.Newf(exception.CorruptImageError, exception.ErrImproperImageHeader, "MIFF: id %q", id)
	case h.length < 0:
		return nil, exception.Newf(exception.CorruptImageError, exception.ErrImproperImageHeader, "MIFF: length %d", h.length)
	case h.columns <= 0 || h.rows <= 0:
		return nil, exception.Newf(exception.CorruptImageError, exception.ErrImproperImageHeader, "MIFF: geometry %dx%d", h.columns, h.rows)
	case h.depth != 8 && h.depth != 16 && h.depth != 32:
		return nil, exception.Newf(exception.CorruptImageError, exception.ErrImproperImageHeader, "MIFF: depth %d", h.depth)
	case h.class == pixel.PseudoClass && (h.colors <= 0 || h.colors > 1<<16):
		return nil, exception.Newf(exception.CorruptImageError, exception.ErrImproperImageHeader, "MIFF: colors %d", h.colors)
	case h.compression != "None" && h.compression != "Zstd":
		return nil, exception.Newf(exception.CorruptImageError, exception.ErrImproperImageHeader, "MIFF: compression %q", h.compression)
	}
	return h, nil
}

// Decode reads every scene in the input. A colormap index warning is
// returned alongside the decoded images.
func (c miffCodec) Decode(ctx context.Context, info *codec.ImageInfo, r io.Reader) ([]*pixel.Image, error) {
	br := bufio.NewReader(r)
	var (
		images  []*pixel.Image
		warning error
	)
	for {
		h, err := readMIFFHeader(br)
		if errors.Is(err, io.EOF) && len(images) > 0 {
			break
		}
		if errors.Is(err, io.EOF) {
			err = exception.New(exception.CorruptImageError, exception.ErrImproperImageHeader, "MIFF: empty input")
		}
		if err != nil {
			destroyAll(images)
			return nil, err
		}
		img, err := c.decodeScene(ctx, info, br, h)
		if err != nil {
			if !exception.IsWarning(err) {
				destroyAll(images)
				return nil, err
			}
			if warning == nil {
				warning = err
			}
		}
		images = append(images, img)
		if info.Ping {
			break
		}
	}
	return images, warning
}

func (miffCodec) decodeScene(ctx context.Context, info *codec.ImageInfo, br *bufio.Reader, h *miffHeader) (_ *pixel.Image, err error) {
	img, err := pixel.New(h.columns, h.rows)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil && !exception.IsWarning(err) {
			img.Destroy()
		}
	}()
	img.Magick = "MIFF"
	img.Scene = h.scene
	img.Depth = min(h.depth, pixel.QuantumDepth)
	img.SetColorspace(h.colorspace)
	img.SetAlpha(h.alpha)
	if h.class == pixel.PseudoClass {
		if img.Colormap, err = readColormap(br, h); err != nil {
			return nil, err
		}
		img.SetStorageClass(pixel.PseudoClass)
	}
	if info.Ping {
		return img, nil
	}

	q := quantum.NewInfo(img)
	if err := q.SetDepth(h.depth); err != nil {
		return nil, err
	}
	q.SetEndian(h.endian)
	qt := h.quantumType()
	size := q.Extent(qt, h.columns, h.rows)

	var payload []byte
	if h.compression == "Zstd" {
		if h.length == 0 || h.length > zstdBound(size) {
			return nil, exception.Newf(exception.CorruptImageError, exception.ErrImproperImageHeader,
				"MIFF: length %d for %d pixel bytes", h.length, size)
		}
		raw := make([]byte, h.length)
		if _, err := io.ReadFull(br, raw); err != nil {
			return nil, exception.New(exception.CorruptImageError, exception.ErrUnexpectedEndOfFile, "MIFF: compressed pixels")
		}
		if payload, err = decompressZstd(raw, size); err != nil {
			return nil, exception.Newf(exception.CorruptImageError, exception.ErrImproperImageHeader, "MIFF: %v", err)
		}
	} else {
		payload = make([]byte, size)
		if _, err := io.ReadFull(br, payload); err != nil {
			return nil, exception.New(exception.CorruptImageError, exception.ErrUnexpectedEndOfFile, "MIFF: pixels")
		}
	}
	if len(payload) < size {
		return nil, exception.New(exception.CorruptImageError, exception.ErrUnexpectedEndOfFile, "MIFF: short pixel payload")
	}

	cache, done := readCache(info, img)
	defer done()
	rowBytes := q.Extent(qt, h.columns, 1)
	var warning error
	for y := 0; y < h.rows; y++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p, err := cache.Queue(image.Rect(0, y, h.columns, y+1))
		if err != nil {
			return nil, err
		}
		if _, err := q.Import(p, qt, payload[y*rowBytes:(y+1)*rowBytes]); err != nil {
			if !exception.IsWarning(err) {
				return nil, err
			}
			warning = err
		}
		if err := cache.Sync(); err != nil {
			return nil, err
		}
	}
	return img, warning
}

func readColormap(br *bufio.Reader, h *miffHeader) ([]pixel.Color, error) {
	width := h.depth / 8
	buf := make([]byte, h.colors*3*width)
	if _, err := io.ReadFull(br, buf); err != nil {
		return nil, exception.New(exception.CorruptImageError, exception.ErrUnexpectedEndOfFile, "MIFF: colormap")
	}
	value := func(off int) pixel.Quantum {
		var v uint64
		for i := 0; i < width; i++ {
			v = v<<8 | uint64(buf[off+i])
		}
		switch width {
		case 1:
			return pixel.Quantum(v * 257)
		case 4:
			return pixel.Quantum(v >> 16)
		}
		return pixel.Quantum(v)
	}
	colormap := make([]pixel.Color, h.colors)
	for i := range colormap {
		off := i * 3 * width
		colormap[i] = pixel.Opaque(value(off), value(off+width), value(off+2*width))
	}
	return colormap, nil
}

func writeColormap(w io.Writer, colormap []pixel.Color, depth int) error {
	width := depth / 8
	buf := make([]byte, 0, len(colormap)*3*width)
	for _, c := range colormap {
		for _, v := range []pixel.Quantum{c.Red, c.Green, c.Blue} {
			switch width {
			case 1:
				buf = append(buf, byte(v>>8))
			case 2:
				buf = append(buf, byte(v>>8), byte(v))
			default:
				buf = append(buf, byte(v>>8), byte(v), byte(v>>8), byte(v))
			}
		}
	}
	_, err := w.Write(buf)
	return err
}

// Encode writes each image as its own scene.
func (c miffCodec) Encode(ctx context.Context, info *codec.ImageInfo, w io.Writer, images []*pixel.Image) error {
	bw := bufio.NewWriter(w)
	for i, img := range images {
		if err := c.encodeScene(ctx, info, bw, img, i); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func (miffCodec) encodeScene(ctx context.Context, info *codec.ImageInfo, w io.Writer, img *pixel.Image, scene int) error {
	depth := info.Depth
	if depth == 0 {
		depth = img.Depth
	}
	switch {
	case depth <= 8:
		depth = 8
	case depth <= 16:
		depth = 16
	default:
		depth = 32
	}
	endian := info.Endian
	if endian == quantum.UndefinedEndian {
		endian = quantum.MSBEndian
	}
	h := &miffHeader{
		class:       img.StorageClass(),
		colors:      len(img.Colormap),
		colorspace:  img.Colorspace(),
		alpha:       img.Alpha(),
		depth:       depth,
		columns:     img.Columns,
		rows:        img.Rows,
		compression: "None",
		endian:      endian,
		scene:       scene,
	}
	if h.class == pixel.PseudoClass && h.colors == 0 {
		h.class = pixel.DirectClass
	}
	if strings.EqualFold(info.Option("miff:compression"), "zstd") {
		h.compression = "Zstd"
	}

	q := quantum.NewInfo(img)
	if err := q.SetDepth(depth); err != nil {
		return err
	}
	q.SetEndian(endian)
	qt := h.quantumType()
	rowBytes := q.Extent(qt, img.Columns, 1)
	payload := make([]byte, rowBytes*img.Rows)

	cache, done := writeCache(info, img)
	defer done()
	for y := 0; y < img.Rows; y++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		p, err := cache.Get(image.Rect(0, y, img.Columns, y+1))
		if err != nil {
			return err
		}
		if _, err := q.Export(p, qt, payload[y*rowBytes:(y+1)*rowBytes]); err != nil {
			return err
		}
	}
	if h.compression == "Zstd" {
		payload = compressZstd(payload)
		h.length = len(payload)
	}

	if _, err := io.WriteString(w, h.String()); err != nil {
		return exception.Newf(exception.FileOpenError, exception.ErrUnableToWriteFile, "MIFF: %v", err)
	}
	if h.class == pixel.PseudoClass {
		if err := writeColormap(w, img.Colormap, depth); err != nil {
			return exception.Newf(exception.FileOpenError, exception.ErrUnableToWriteFile, "MIFF: %v", err)
		}
	}
	if _, err := w.Write(payload); err != nil {
		return exception.Newf(exception.FileOpenError, exception.ErrUnableToWriteFile, "MIFF: %v", err)
	}
	return nil
}
