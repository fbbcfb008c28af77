package pixel

import (
	"fmt"
	"image"
	"maps"
	"math/bits"
	"sync"
	"sync/atomic"

	"github.com/ironsheep/pixelcodec/internal/exception"
	"github.com/ironsheep/pixelcodec/internal/policy"
)

const (
	// quantumBytes is the in-memory size of one channel value.
	quantumBytes = 2
	// maxImageBytes bounds the pixel storage of one image whatever the
	// policy says.
	maxImageBytes = 1 << 40
)

// storage is the pixel block shared between an image and its clones.
type storage struct {
	mu   sync.Mutex
	refs int
	pix  []Quantum
}

// allocated counts the bytes held by live pixel storage.
var allocated atomic.Int64

func newStorage(pix []Quantum) *storage {
	allocated.Add(int64(len(pix)) * quantumBytes)
	return &storage{refs: 1, pix: pix}
}

// Allocated returns the number of bytes of pixel storage not yet released
// by Destroy.
func Allocated() int64 { return allocated.Load() }

// Image is a raster of pixels with a shared channel layout.
type Image struct {
	Columns int
	Rows    int

	// Depth is the per-channel precision, in bits, the values represent.
	Depth int

	Filename string
	Magick   string
	Scene    int

	// Colormap holds the palette of a PseudoClass image.
	Colormap []Color

	Properties map[string]string

	colorspace Colorspace
	alpha      bool
	class      StorageClass
	layout     Layout
	store      *storage
}

// New allocates an opaque black sRGB image. Geometry whose pixel storage
// cannot be addressed, or that exceeds the policy memory limit, fails with
// ErrMemoryAllocationFailed before anything is allocated.
func New(columns, rows int) (*Image, error) {
	if columns <= 0 || rows <= 0 {
		return nil, exception.Newf(exception.OptionError, exception.ErrGeometryOutOfBounds,
			"%dx%d", columns, rows)
	}
	layout := NewLayout(SRGBColorspace, false, DirectClass)
	if err := checkExtent(columns, rows, layout.Channels()); err != nil {
		return nil, err
	}
	img := &Image{
		Columns:    columns,
		Rows:       rows,
		Depth:      QuantumDepth,
		Properties: make(map[string]string),
		colorspace: SRGBColorspace,
	}
	img.layout = layout
	img.store = newStorage(make([]Quantum, columns*rows*layout.Channels()))
	return img, nil
}

// checkExtent verifies that a columns x rows image of the given channel
// count fits the memory limit, and that its widest layout is addressable so
// later re-layouts cannot overflow.
func checkExtent(columns, rows, channels int) error {
	hi, area := bits.Mul64(uint64(columns), uint64(rows))
	hi2, widest := bits.Mul64(area, uint64(MaxChannels)*quantumBytes)
	if hi != 0 || hi2 != 0 || widest > maxImageBytes {
		return exception.Newf(exception.ResourceLimitError, exception.ErrMemoryAllocationFailed,
			"%dx%d pixels", columns, rows)
	}
	return policy.Default().CheckMemory(area * uint64(channels) * quantumBytes)
}

// Bounds returns the image rectangle anchored at the origin.
func (img *Image) Bounds() image.Rectangle { return image.Rect(0, 0, img.Columns, img.Rows) }

// Colorspace returns the image color model.
func (img *Image) Colorspace() Colorspace { return img.colorspace }

// Alpha reports whether pixels carry an alpha channel.
func (img *Image) Alpha() bool { return img.alpha }

// StorageClass reports whether pixels carry a colormap index.
func (img *Image) StorageClass() StorageClass { return img.class }

// Layout returns the channel layout.
func (img *Image) Layout() Layout { return img.layout }

// Channels returns the number of values per pixel.
func (img *Image) Channels() int { return img.layout.Channels() }

// SetColorspace changes the color model, re-laying out the pixels. Values
// move by channel role; no color conversion is performed.
func (img *Image) SetColorspace(cs Colorspace) {
	if cs == img.colorspace {
		return
	}
	img.relayout(cs, img.alpha, img.class)
}

// SetAlpha adds or removes the alpha channel. Added alpha is opaque.
func (img *Image) SetAlpha(alpha bool) {
	if alpha == img.alpha {
		return
	}
	img.relayout(img.colorspace, alpha, img.class)
}

// SetStorageClass adds or removes the colormap index channel.
func (img *Image) SetStorageClass(class StorageClass) {
	if class == img.class {
		return
	}
	img.relayout(img.colorspace, img.alpha, class)
}

func (img *Image) relayout(cs Colorspace, alpha bool, class StorageClass) {
	from := img.layout
	to := NewLayout(cs, alpha, class)
	src := img.store.pix
	dst := make([]Quantum, img.Columns*img.Rows*to.Channels())
	nf, nt := from.Channels(), to.Channels()
	for i, j := 0, 0; i < len(src); i, j = i+nf, j+nt {
		for k, c := range to.channels {
			switch {
			case from.Has(c):
				dst[j+k] = src[i+from.offset[c]]
			case c == GrayChannel && from.Has(RedChannel):
				dst[j+k] = src[i+from.offset[RedChannel]]
			case (c == RedChannel || c == GreenChannel || c == BlueChannel) && from.Has(GrayChannel):
				dst[j+k] = src[i+from.offset[GrayChannel]]
			case c == AlphaChannel:
				dst[j+k] = QuantumRange
			}
		}
	}
	img.release()
	img.store = newStorage(dst)
	img.colorspace, img.alpha, img.class, img.layout = cs, alpha, class, to
}

// Pixels returns a read-only view of r. The view aliases the image storage.
func (img *Image) Pixels(r image.Rectangle) (*Pixels, error) {
	if r.Empty() || !r.In(img.Bounds()) {
		return nil, exception.Newf(exception.OptionError, exception.ErrGeometryOutOfBounds,
			"%v not in %dx%d", r, img.Columns, img.Rows)
	}
	n := img.layout.Channels()
	stride := img.Columns * n
	start := r.Min.Y*stride + r.Min.X*n
	end := (r.Max.Y-1)*stride + r.Max.X*n
	return &Pixels{
		Layout:     img.layout,
		Colorspace: img.colorspace,
		Class:      img.class,
		Colormap:   img.Colormap,
		Rect:       r,
		Stride:     stride,
		Pix:        img.store.pix[start:end],
	}, nil
}

// Authentic returns a writable view of r, first detaching storage that is
// shared with a clone.
func (img *Image) Authentic(r image.Rectangle) (*Pixels, error) {
	img.detach()
	return img.Pixels(r)
}

// Get returns channel c of the pixel at (x, y); absent channels read as 0,
// except alpha which reads as opaque.
func (img *Image) Get(x, y int, c Channel) Quantum {
	off := img.layout.Offset(c)
	if off < 0 {
		if c == AlphaChannel {
			return QuantumRange
		}
		return 0
	}
	return img.store.pix[(y*img.Columns+x)*img.layout.Channels()+off]
}

// Set stores v in channel c of the pixel at (x, y). Absent channels are
// ignored.
func (img *Image) Set(x, y int, c Channel, v Quantum) {
	off := img.layout.Offset(c)
	if off < 0 {
		return
	}
	img.detach()
	img.store.pix[(y*img.Columns+x)*img.layout.Channels()+off] = v
}

// Clone returns an image sharing this image's pixel storage. Metadata is
// copied.
func (img *Image) Clone() *Image {
	img.store.mu.Lock()
	img.store.refs++
	img.store.mu.Unlock()

	c := *img
	c.Colormap = append([]Color(nil), img.Colormap...)
	c.Properties = maps.Clone(img.Properties)
	if c.Properties == nil {
		c.Properties = make(map[string]string)
	}
	return &c
}

// Destroy releases this image's reference to its pixel storage. The image
// must not be used afterwards.
func (img *Image) Destroy() {
	if img.store == nil {
		return
	}
	img.release()
	img.store = nil
}

// References returns the number of images sharing the pixel storage.
func (img *Image) References() int {
	img.store.mu.Lock()
	defer img.store.mu.Unlock()
	return img.store.refs
}

func (img *Image) release() {
	s := img.store
	s.mu.Lock()
	s.refs--
	if s.refs == 0 {
		allocated.Add(-int64(len(s.pix)) * quantumBytes)
		s.pix = nil
	}
	s.mu.Unlock()
}

func (img *Image) detach() {
	s := img.store
	s.mu.Lock()
	if s.refs == 1 {
		s.mu.Unlock()
		return
	}
	pix := make([]Quantum, len(s.pix))
	copy(pix, s.pix)
	s.refs--
	s.mu.Unlock()
	img.store = newStorage(pix)
}

// SetProperty records a metadata property.
func (img *Image) SetProperty(key, value string) {
	if img.Properties == nil {
		img.Properties = make(map[string]string)
	}
	img.Properties[key] = value
}

func (img *Image) String() string {
	return fmt.Sprintf("%s %dx%d %d-bit %s %s", img.Magick, img.Columns, img.Rows,
		img.Depth, img.colorspace, img.class)
}
