package quantum

import (
	"encoding/binary"

	"github.com/ironsheep/pixelcodec/internal/exception"
	"github.com/ironsheep/pixelcodec/internal/pixel"
	"github.com/ironsheep/pixelcodec/internal/policy"
)

// Info configures one transfer. Build it with NewInfo, adjust it with the
// setters, and discard it once the transfer is done.
type Info struct {
	depth      uint
	format     Format
	endian     Endian
	pad        int
	pack       bool
	scale      float64
	minimum    float64
	alphaType  AlphaType
	minIsWhite bool

	state  State
	ints   []uint64
	floats []float64
	pixels []byte
}

// NewInfo returns an Info for img, using the image depth. A nil image gives
// 16-bit samples.
func NewInfo(img *pixel.Image) *Info {
	q := &Info{
		depth:   pixel.QuantumDepth,
		format:  UnsignedFormat,
		pack:    true,
		scale:   1,
		minimum: 0,
	}
	if img != nil && img.Depth >= 1 && img.Depth <= 64 {
		q.depth = uint(img.Depth)
	}
	return q
}

// Depth returns the sample width in bits. Floating point widths are
// normalised to 16, 32 or 64.
func (q *Info) Depth() uint {
	if q.format != FloatingPointFormat {
		return q.depth
	}
	switch {
	case q.depth > 32:
		return 64
	case q.depth > 16:
		return 32
	}
	return 16
}

// SetDepth sets the sample width, 1 to 64 bits.
func (q *Info) SetDepth(depth int) error {
	if depth < 1 || depth > 64 {
		return exception.Newf(exception.OptionError, exception.ErrInvalidDepth, "%d", depth)
	}
	q.depth = uint(depth)
	return nil
}

func (q *Info) Format() Format { return q.format }

// SetFormat selects unsigned, signed or floating point samples.
func (q *Info) SetFormat(f Format) error {
	switch f {
	case UndefinedFormat:
		f = UnsignedFormat
	case UnsignedFormat, SignedFormat, FloatingPointFormat:
	default:
		return exception.New(exception.OptionError, exception.ErrUnrecognizedQuantumType, f.String())
	}
	q.format = f
	return nil
}

func (q *Info) Endian() Endian       { return q.endian }
func (q *Info) SetEndian(e Endian)   { q.endian = e }
func (q *Info) Pad() int             { return q.pad }
func (q *Info) Pack() bool           { return q.pack }
func (q *Info) SetPack(pack bool)    { q.pack = pack }
func (q *Info) AlphaType() AlphaType { return q.alphaType }

// SetPad sets the number of zero bytes written after every pixel.
func (q *Info) SetPad(pad int) error {
	if pad < 0 {
		return exception.Newf(exception.OptionError, exception.ErrInvalidPad, "%d", pad)
	}
	q.pad = pad
	return nil
}

// SetScale sets the range floating point samples are mapped onto:
// value = minimum + scale*q/QuantumRange.
func (q *Info) SetScale(scale float64) {
	if scale == 0 {
		scale = 1
	}
	q.scale = scale
}

func (q *Info) SetMinimum(minimum float64) { q.minimum = minimum }

// SetAlphaType selects premultiplied (associated) color samples.
func (q *Info) SetAlphaType(t AlphaType) { q.alphaType = t }

// SetMinIsWhite inverts gray samples, so that 0 is white.
func (q *Info) SetMinIsWhite(v bool) { q.minIsWhite = v }

// Pixels returns the engine-owned buffer filled by the last Export with a
// nil destination.
func (q *Info) Pixels() []byte { return q.pixels }

// Extent returns the number of bytes a transfer of qt over columns x rows
// pixels occupies.
func (q *Info) Extent(qt Type, columns, rows int) int {
	l, err := TypeLayout(qt)
	if err != nil {
		return 0
	}
	return q.LayoutExtent(l, columns, rows)
}

// LayoutExtent is Extent for an arbitrary layout.
func (q *Info) LayoutExtent(l *Layout, columns, rows int) int {
	if columns <= 0 || rows <= 0 {
		return 0
	}
	return q.rowBytes(l, columns) * rows
}

func (q *Info) rowBytes(l *Layout, columns int) int {
	groups, per := l.groups(columns), len(l.samples)
	if q.pad > 0 {
		return groups * (q.sampleBytes(per) + q.pad)
	}
	return q.sampleBytes(groups * per)
}

// sampleBytes is the size of n consecutive samples, flushed at the end.
func (q *Info) sampleBytes(n int) int {
	d := int(q.Depth())
	if d%8 == 0 || q.pack {
		return (n*d + 7) / 8
	}
	u := int(q.unit())
	per := u / d
	return (n + per - 1) / per * (u / 8)
}

// unit returns the word size used for unpacked samples: the densest of 8,
// 16 and 32 bits, the smaller on a tie, and 64 bits above 32.
func (q *Info) unit() uint {
	d := q.Depth()
	if d > 32 {
		return 64
	}
	best, num, den := uint(32), uint(0), uint(1)
	for _, u := range []uint{8, 16, 32} {
		if u < d {
			continue
		}
		used := u / d * d
		if used*den > num*u {
			best, num, den = u, used, u
		}
	}
	return best
}

func (q *Info) little() bool { return q.endian == LSBEndian }

func (q *Info) order() binary.ByteOrder {
	if q.little() {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

func (q *Info) intScratch(n int) []uint64 {
	if cap(q.ints) < n {
		q.ints = make([]uint64, n)
	}
	return q.ints[:n]
}

func (q *Info) floatScratch(n int) []float64 {
	if cap(q.floats) < n {
		q.floats = make([]float64, n)
	}
	return q.floats[:n]
}

// engineBuffer returns the engine-owned destination, growing it within the
// policy memory limit.
func (q *Info) engineBuffer(n int) ([]byte, error) {
	if cap(q.pixels) >= n {
		q.pixels = q.pixels[:n]
		return q.pixels, nil
	}
	if err := policy.Default().CheckMemory(uint64(n)); err != nil {
		return nil, err
	}
	q.pixels = make([]byte, n)
	return q.pixels, nil
}
