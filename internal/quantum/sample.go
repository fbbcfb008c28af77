package quantum

import "github.com/ironsheep/pixelcodec/internal/pixel"

// Rec. 709 luma coefficients.
const (
	lumaRed   = 0.212656
	lumaGreen = 0.715158
	lumaBlue  = 0.072186
)

// colored reports whether the sample carries color, and so is premultiplied
// by associated alpha.
func (s sample) colored() bool {
	switch s.op {
	case opLuma:
		return true
	case opChannel:
		return s.channel != pixel.AlphaChannel && s.channel != pixel.IndexChannel
	}
	return false
}

// get reads the sample from one pixel of layout l.
func (s sample) get(l pixel.Layout, pix []pixel.Quantum) pixel.Quantum {
	switch s.op {
	case opChannel, opIndex:
		if off := l.Offset(s.channel); off >= 0 {
			return pix[off]
		}
		if s.channel == pixel.AlphaChannel {
			return pixel.QuantumRange
		}
		if off := l.Offset(pixel.GrayChannel); off >= 0 && s.channel.IsColor() {
			return pix[off]
		}
	case opOpacity:
		if off := l.Offset(pixel.AlphaChannel); off >= 0 {
			return pixel.QuantumRange - pix[off]
		}
	case opLuma:
		if off := l.Offset(pixel.GrayChannel); off >= 0 {
			return pix[off]
		}
		r := float64(pix[l.Offset(pixel.RedChannel)])
		g := float64(pix[l.Offset(pixel.GreenChannel)])
		b := float64(pix[l.Offset(pixel.BlueChannel)])
		return pixel.ClampToQuantum(lumaRed*r + lumaGreen*g + lumaBlue*b)
	}
	return 0
}

// set stores v into one pixel of layout l. Index samples are handled by the
// importer since they go through the colormap.
func (s sample) set(l pixel.Layout, pix []pixel.Quantum, v pixel.Quantum) {
	switch s.op {
	case opChannel:
		if off := l.Offset(s.channel); off >= 0 {
			pix[off] = v
		} else if off := l.Offset(pixel.GrayChannel); off >= 0 && s.channel == pixel.RedChannel {
			// a gray image keeps the red sample as its intensity
			pix[off] = v
		}
	case opOpacity:
		if off := l.Offset(pixel.AlphaChannel); off >= 0 {
			pix[off] = pixel.QuantumRange - v
		}
	case opLuma:
		if off := l.Offset(pixel.GrayChannel); off >= 0 {
			pix[off] = v
			return
		}
		for _, c := range []pixel.Channel{pixel.RedChannel, pixel.GreenChannel, pixel.BlueChannel} {
			pix[l.Offset(c)] = v
		}
	}
}

// setColor fills the color channels of one pixel from a colormap entry.
func setColor(l pixel.Layout, pix []pixel.Quantum, c pixel.Color) {
	if off := l.Offset(pixel.GrayChannel); off >= 0 {
		pix[off] = c.Red
	} else {
		pix[l.Offset(pixel.RedChannel)] = c.Red
		pix[l.Offset(pixel.GreenChannel)] = c.Green
		pix[l.Offset(pixel.BlueChannel)] = c.Blue
	}
	if off := l.Offset(pixel.BlackChannel); off >= 0 {
		pix[off] = c.Black
	}
	if off := l.Offset(pixel.AlphaChannel); off >= 0 {
		pix[off] = c.Alpha
	}
}

func premultiply(v, alpha pixel.Quantum) pixel.Quantum {
	return pixel.Quantum((uint64(v)*uint64(alpha) + quantumRange/2) / quantumRange)
}

func unpremultiply(v, alpha pixel.Quantum) pixel.Quantum {
	if alpha == 0 {
		return v
	}
	return pixel.ClampToQuantum(float64(v) * float64(pixel.QuantumRange) / float64(alpha))
}
