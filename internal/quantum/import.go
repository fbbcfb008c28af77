package quantum

import (
	"image"
	"math"

	"github.com/ironsheep/pixelcodec/internal/exception"
	"github.com/ironsheep/pixelcodec/internal/pixel"
)

// Import reads src in the byte layout of qt into the pixels of dst and
// returns the number of bytes consumed. It is the inverse of Export.
//
// Colormap indexes past the end of the colormap are replaced by 0; the
// transfer completes and a CorruptImageWarning is returned.
func (q *Info) Import(dst *pixel.Pixels, qt Type, src []byte) (int, error) {
	l, err := TypeLayout(qt)
	if err != nil {
		return 0, err
	}
	return q.ImportLayout(dst, l, src)
}

// ImportLayout is Import for a layout built by ParseMap.
func (q *Info) ImportLayout(dst *pixel.Pixels, l *Layout, src []byte) (int, error) {
	columns, rows := dst.Columns(), dst.Rows()
	extent := q.LayoutExtent(l, columns, rows)
	if err := l.check(dst); err != nil {
		return extent, err
	}
	if len(src) < extent {
		return extent, exception.Newf(exception.CorruptImageError, exception.ErrUnexpectedEndOfFile,
			"%s: %d bytes, need %d", l, len(src), extent)
	}

	per := len(l.samples)
	vals := q.intScratch(l.groups(columns) * per)
	unpack := q.unpacker()
	invalid := 0
	off := 0
	for y := 0; y < rows; y++ {
		if q.format == FloatingPointFormat {
			floats := q.floatScratch(len(vals))
			off += unpackFloats(q, src[off:], floats, per)
			for i, f := range floats {
				vals[i] = q.fromFloat(f, l.samples[i%per].op)
			}
		} else {
			off += unpack(q, src[off:], vals, per)
			q.decode(vals, l)
		}
		invalid += q.scatter(dst, l, y, vals)
	}
	if invalid > 0 {
		return off, exception.Newf(exception.CorruptImageWarning, exception.ErrInvalidColormapIndex,
			"%d samples", invalid)
	}
	return off, nil
}

// ImportImage imports into the region r of img. Alpha is enabled when qt
// carries alpha or opacity, the image becomes CMYK for black-bearing types,
// and PseudoClass for index types when it has a colormap.
func (q *Info) ImportImage(img *pixel.Image, r image.Rectangle, qt Type, src []byte) (int, error) {
	l, err := TypeLayout(qt)
	if err != nil {
		return 0, err
	}
	if l.HasAlpha() && !img.Alpha() {
		img.SetAlpha(true)
	}
	if l.needsCMYK && !img.Colorspace().IsCMYK() {
		img.SetColorspace(pixel.CMYKColorspace)
	}
	if l.needsIndex && len(img.Colormap) > 0 {
		img.SetStorageClass(pixel.PseudoClass)
	}
	dst, err := img.Authentic(r)
	if err != nil {
		return 0, err
	}
	return q.ImportLayout(dst, l, src)
}

// decode maps integer samples back onto the quantum range in place.
func (q *Info) decode(vals []uint64, l *Layout) {
	d := q.Depth()
	max := masks[d]
	per := len(l.samples)
	for i, v := range vals {
		if q.format == SignedFormat {
			v ^= 1 << (d - 1)
		}
		if l.samples[i%per].op != opIndex {
			v = uint64(scaleFromAny(v, max))
		}
		vals[i] = v
	}
}

func (q *Info) fromFloat(f float64, op sampleOp) uint64 {
	if op == opIndex {
		if !(f > 0) {
			return 0
		}
		return uint64(math.Round(f))
	}
	return uint64(pixel.ClampToQuantum((f - q.minimum) / q.scale * float64(pixel.QuantumRange)))
}

// scatter stores the samples of row y and returns the number of invalid
// colormap indexes met.
func (q *Info) scatter(p *pixel.Pixels, l *Layout, y int, vals []uint64) int {
	row := p.Row(y)
	ch := p.Layout.Channels()
	columns := p.Columns()
	alphaOff := p.Layout.Offset(pixel.AlphaChannel)
	indexOff := p.Layout.Offset(pixel.IndexChannel)
	associated := q.alphaType == AssociatedQuantumAlpha && alphaOff >= 0 && l.HasAlpha()

	invalid := 0
	i := 0
	for g := 0; g < l.groups(columns); g++ {
		x := g
		if l.subsampled {
			x = 2 * g
		}
		group := vals[i : i+len(l.samples)]
		i += len(l.samples)
		for k, s := range l.samples {
			if l.subsampled && k == 3 {
				continue
			}
			v := group[k]
			pix := row[x*ch : (x+1)*ch]
			switch {
			case s.op == opIndex:
				if v >= uint64(len(p.Colormap)) {
					v = 0
					invalid++
				}
				if indexOff >= 0 {
					pix[indexOff] = pixel.Quantum(v)
				}
				if int(v) < len(p.Colormap) {
					setColor(p.Layout, pix, p.Colormap[v])
				}
			case q.minIsWhite && s.op == opLuma:
				s.set(p.Layout, pix, pixel.QuantumRange-pixel.Quantum(v))
			default:
				s.set(p.Layout, pix, pixel.Quantum(v))
			}
		}
		if l.subsampled && x+1 < columns {
			// The second pixel of a 4:2:2 pair shares the chroma of the first.
			first, second := row[x*ch:(x+1)*ch], row[(x+1)*ch:(x+2)*ch]
			copy(second, first)
			l.samples[3].set(p.Layout, second, pixel.Quantum(group[3]))
		}
		if associated {
			unassociate(p.Layout, row[x*ch:(x+1)*ch], alphaOff)
			if l.subsampled && x+1 < columns {
				unassociate(p.Layout, row[(x+1)*ch:(x+2)*ch], alphaOff)
			}
		}
	}
	return invalid
}

// unassociate divides the color samples of one pixel by its alpha.
func unassociate(pl pixel.Layout, pix []pixel.Quantum, alphaOff int) {
	alpha := pix[alphaOff]
	for _, c := range []pixel.Channel{pixel.RedChannel, pixel.GreenChannel, pixel.BlueChannel, pixel.BlackChannel, pixel.GrayChannel} {
		off := pl.Offset(c)
		if off < 0 || (c != pixel.GrayChannel && pl.Has(pixel.GrayChannel)) {
			continue
		}
		pix[off] = unpremultiply(pix[off], alpha)
	}
}
