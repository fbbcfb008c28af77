package quantum

import (
	"image"

	"github.com/ironsheep/pixelcodec/internal/exception"
	"github.com/ironsheep/pixelcodec/internal/pixel"
)

// Export writes the pixels of src into dst in the byte layout of qt and
// returns the number of bytes written. A nil dst selects the engine buffer
// returned by Pixels.
//
// When the image lacks a channel qt needs, or dst is too short, Export
// returns the extent the transfer needs together with the error and leaves
// dst untouched.
func (q *Info) Export(src *pixel.Pixels, qt Type, dst []byte) (int, error) {
	l, err := TypeLayout(qt)
	if err != nil {
		return 0, err
	}
	return q.ExportLayout(src, l, dst)
}

// ExportLayout is Export for a layout built by ParseMap.
func (q *Info) ExportLayout(src *pixel.Pixels, l *Layout, dst []byte) (int, error) {
	columns, rows := src.Columns(), src.Rows()
	extent := q.LayoutExtent(l, columns, rows)
	if err := l.check(src); err != nil {
		return extent, err
	}
	if dst == nil {
		var err error
		if dst, err = q.engineBuffer(extent); err != nil {
			return extent, err
		}
	}
	if len(dst) < extent {
		return extent, exception.Newf(exception.OptionError, exception.ErrBufferTooSmall,
			"%s: %d bytes, need %d", l, len(dst), extent)
	}

	per := len(l.samples)
	vals := q.intScratch(l.groups(columns) * per)
	pack := q.packer()
	off := 0
	for y := 0; y < rows; y++ {
		q.gather(src, l, y, vals)
		if q.format == FloatingPointFormat {
			floats := q.floatScratch(len(vals))
			for i, v := range vals {
				floats[i] = q.toFloat(v, l.samples[i%per].op)
			}
			off += packFloats(q, dst[off:], floats, per)
			continue
		}
		q.encode(vals, l)
		off += pack(q, dst[off:], vals, per)
	}
	return off, nil
}

// ExportImage exports the region r of img.
func (q *Info) ExportImage(img *pixel.Image, r image.Rectangle, qt Type, dst []byte) (int, error) {
	src, err := img.Pixels(r)
	if err != nil {
		return 0, err
	}
	return q.Export(src, qt, dst)
}

// gather collects the samples of row y into vals as quantum values. Index
// samples are raw colormap indexes.
func (q *Info) gather(p *pixel.Pixels, l *Layout, y int, vals []uint64) {
	row := p.Row(y)
	ch := p.Layout.Channels()
	columns := p.Columns()
	alphaOff := p.Layout.Offset(pixel.AlphaChannel)
	associated := q.alphaType == AssociatedQuantumAlpha && alphaOff >= 0

	i := 0
	for g := 0; g < l.groups(columns); g++ {
		x := g
		if l.subsampled {
			x = 2 * g
		}
		for k, s := range l.samples {
			px := x
			// The second luma of a 4:2:2 pair; an odd last pixel repeats its own.
			if l.subsampled && k == 3 && x+1 < columns {
				px = x + 1
			}
			pix := row[px*ch : (px+1)*ch]
			v := s.get(p.Layout, pix)
			if associated && s.colored() {
				v = premultiply(v, pix[alphaOff])
			}
			if q.minIsWhite && s.op == opLuma {
				v = pixel.QuantumRange - v
			}
			vals[i] = uint64(v)
			i++
		}
	}
}

// encode scales quantum values in place to the integer sample depth.
func (q *Info) encode(vals []uint64, l *Layout) {
	d := q.Depth()
	max := masks[d]
	per := len(l.samples)
	for i, v := range vals {
		if l.samples[i%per].op == opIndex {
			v &= max
		} else {
			v = scaleToAny(pixel.Quantum(v), max)
		}
		if q.format == SignedFormat {
			v ^= 1 << (d - 1)
		}
		vals[i] = v
	}
}

func (q *Info) toFloat(v uint64, op sampleOp) float64 {
	if op == opIndex {
		return float64(v)
	}
	return float64(v)/float64(pixel.QuantumRange)*q.scale + q.minimum
}
