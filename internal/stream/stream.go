package stream

import (
	"image"

	"github.com/ironsheep/pixelcodec/internal/exception"
	"github.com/ironsheep/pixelcodec/internal/pixel"
)

// Handler receives or supplies the pixels of one region and returns the
// number of columns it handled. Any other count than p.Columns() fails the
// transfer.
type Handler func(img *pixel.Image, p *pixel.Pixels, columns int) int

// Mode is the direction of a Stream.
type Mode int

const (
	// Receive streams pixels out of a decoder: regions are queued, filled
	// by the decoder and handed to the Handler on Sync.
	Receive Mode = iota
	// Supply streams pixels into an encoder: the Handler fills each region
	// when the encoder asks for it with Get.
	Supply
)

// Stream is a Cache whose regions live in a single reusable buffer. A
// Stream must not be used from more than one goroutine at a time.
type Stream struct {
	img     *pixel.Image
	handler Handler
	mode    Mode

	// metacontent is the number of auxiliary bytes per pixel.
	metacontent int

	rec    *record
	pixels *pixel.Pixels
}

// New returns a Stream over img. The image provides geometry and channel
// layout only; its pixel storage is never touched.
func New(img *pixel.Image, handler Handler, mode Mode) *Stream {
	return &Stream{img: img, handler: handler, mode: mode, rec: newRecord()}
}

// Image returns the image the stream describes.
func (s *Stream) Image() *pixel.Image { return s.img }

// SetMetacontentExtent reserves n auxiliary bytes per pixel in each region.
func (s *Stream) SetMetacontentExtent(n int) {
	if n < 0 {
		n = 0
	}
	s.metacontent = n
}

// Get returns the pixels of r. In Supply mode the Handler fills them first.
func (s *Stream) Get(r image.Rectangle) (*pixel.Pixels, error) {
	p, err := s.acquire(r)
	if err != nil {
		return nil, err
	}
	if s.mode == Supply {
		if err := s.call(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Queue returns a buffer for the pixels of r.
func (s *Stream) Queue(r image.Rectangle) (*pixel.Pixels, error) {
	return s.acquire(r)
}

// Sync hands the last queued region to the Handler in Receive mode.
func (s *Stream) Sync() error {
	if s.rec == nil {
		return exception.New(exception.StreamError, exception.ErrStreamDestroyed, s.img.Filename)
	}
	if s.handler == nil {
		return exception.New(exception.StreamError, exception.ErrNoStreamHandler, s.img.Filename)
	}
	if s.mode != Receive || s.pixels == nil {
		return nil
	}
	return s.call(s.pixels)
}

// Reference returns a second handle on the stream sharing its buffer.
// Referencing a destroyed handle returns another destroyed handle.
func (s *Stream) Reference() *Stream {
	if s.rec != nil {
		s.rec.reference()
	}
	c := *s
	return &c
}

// Destroy releases this handle. The buffer is freed with the last handle.
func (s *Stream) Destroy() {
	if s.rec == nil {
		return
	}
	s.rec.release()
	s.rec, s.pixels = nil, nil
}

// Footprint returns the number of buffer bytes a region of r needs.
func (s *Stream) Footprint(r image.Rectangle) int {
	n := r.Dx() * r.Dy()
	return n*s.img.Channels()*quantumSize + n*s.metacontent
}

func (s *Stream) call(p *pixel.Pixels) error {
	columns := p.Columns()
	if got := s.handler(s.img, p, columns); got != columns {
		return exception.Newf(exception.StreamError, exception.ErrShortWrite,
			"%s: handled %d of %d columns", s.img.Filename, got, columns)
	}
	return nil
}

// acquire validates r and sizes the buffer for it.
func (s *Stream) acquire(r image.Rectangle) (*pixel.Pixels, error) {
	if s.rec == nil {
		return nil, exception.New(exception.StreamError, exception.ErrStreamDestroyed, s.img.Filename)
	}
	if s.handler == nil {
		return nil, exception.New(exception.StreamError, exception.ErrNoStreamHandler, s.img.Filename)
	}
	if r.Empty() || r.Min.X < 0 || r.Min.Y < 0 || r.Max.X > s.img.Columns || r.Max.Y > s.img.Rows {
		return nil, exception.Newf(exception.StreamError, exception.ErrStreamGeometry,
			"%v not in %dx%d", r, s.img.Columns, s.img.Rows)
	}

	layout := s.img.Layout()
	values := r.Dx() * r.Dy() * layout.Channels()
	buf, err := s.rec.acquire(s.Footprint(r))
	if err != nil {
		return nil, err
	}
	pixelBytes := values * quantumSize
	s.pixels = &pixel.Pixels{
		Layout:      layout,
		Colorspace:  s.img.Colorspace(),
		Class:       s.img.StorageClass(),
		Colormap:    s.img.Colormap,
		Rect:        r,
		Stride:      r.Dx() * layout.Channels(),
		Pix:         quanta(buf, values),
		Metacontent: buf[pixelBytes:],
	}
	return s.pixels, nil
}
