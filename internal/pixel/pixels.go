package pixel

import "image"

// Pixels is a rectangular block of pixel data in an image's channel layout.
// It is either a view onto image storage or a stream buffer.
type Pixels struct {
	Layout     Layout
	Colorspace Colorspace
	Class      StorageClass
	Colormap   []Color

	// Rect is the block's position within the image.
	Rect image.Rectangle

	// Stride is the number of values between vertically adjacent pixels.
	Stride int
	Pix    []Quantum

	// Metacontent is per-block auxiliary data carried by stream buffers.
	Metacontent []byte
}

// Columns returns the block width.
func (p *Pixels) Columns() int { return p.Rect.Dx() }

// Rows returns the block height.
func (p *Pixels) Rows() int { return p.Rect.Dy() }

// Row returns the values of row y, relative to the block.
func (p *Pixels) Row(y int) []Quantum {
	start := y * p.Stride
	return p.Pix[start : start+p.Columns()*p.Layout.Channels()]
}

// Alpha reports whether the block carries an alpha channel.
func (p *Pixels) Alpha() bool { return p.Layout.Has(AlphaChannel) }

// Clone returns a deep copy of the block with a tight stride.
func (p *Pixels) Clone() *Pixels {
	c := *p
	n := p.Columns() * p.Layout.Channels()
	c.Stride = n
	c.Pix = make([]Quantum, n*p.Rows())
	for y := 0; y < p.Rows(); y++ {
		copy(c.Pix[y*n:], p.Row(y))
	}
	c.Metacontent = append([]byte(nil), p.Metacontent...)
	return &c
}

// Equal reports whether two blocks hold the same values.
func (p *Pixels) Equal(o *Pixels) bool {
	if p.Columns() != o.Columns() || p.Rows() != o.Rows() ||
		p.Layout.Channels() != o.Layout.Channels() {
		return false
	}
	for y := 0; y < p.Rows(); y++ {
		a, b := p.Row(y), o.Row(y)
		for i := range a {
			if a[i] != b[i] {
				return false
			}
		}
	}
	return true
}
