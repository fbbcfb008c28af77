package quantum

import (
	"strings"

	"github.com/ironsheep/pixelcodec/internal/exception"
	"github.com/ironsheep/pixelcodec/internal/pixel"
)

type sampleOp uint8

const (
	opChannel sampleOp = iota // channel value as stored
	opOpacity                 // QuantumRange minus alpha
	opLuma                    // gray, or Rec. 709 luma of a color pixel
	opIndex                   // raw colormap index, never scaled
	opPad                     // zero on export, skipped on import
)

type sample struct {
	op      sampleOp
	channel pixel.Channel
}

// Layout is the ordered list of samples a transfer produces per pixel.
type Layout struct {
	name    string
	samples []sample

	needsIndex bool
	needsCMYK  bool

	// subsampled layouts carry one chroma pair per two pixels (4:2:2).
	subsampled bool
}

func (l *Layout) String() string { return l.name }

// Samples returns the number of samples per pixel, or per pixel pair for a
// subsampled layout.
func (l *Layout) Samples() int { return len(l.samples) }

// HasAlpha reports whether the layout carries alpha or opacity.
func (l *Layout) HasAlpha() bool {
	for _, s := range l.samples {
		if s.op == opOpacity || (s.op == opChannel && s.channel == pixel.AlphaChannel) {
			return true
		}
	}
	return false
}

// groups returns how many sample groups a row of columns pixels needs.
func (l *Layout) groups(columns int) int {
	if l.subsampled {
		return (columns + 1) / 2
	}
	return columns
}

// check enforces the color model preconditions of the layout.
func (l *Layout) check(p *pixel.Pixels) error {
	if l.needsIndex && p.Class != pixel.PseudoClass {
		return exception.New(exception.ImageError, exception.ErrColormappedImageRequired, l.name)
	}
	if l.needsCMYK && !p.Colorspace.IsCMYK() {
		return exception.New(exception.ImageError, exception.ErrColorSeparatedImageRequired, l.name)
	}
	return nil
}

var (
	redSample     = sample{opChannel, pixel.RedChannel}
	greenSample   = sample{opChannel, pixel.GreenChannel}
	blueSample    = sample{opChannel, pixel.BlueChannel}
	blackSample   = sample{opChannel, pixel.BlackChannel}
	alphaSample   = sample{opChannel, pixel.AlphaChannel}
	opacitySample = sample{op: opOpacity}
	lumaSample    = sample{op: opLuma}
	indexSample   = sample{op: opIndex, channel: pixel.IndexChannel}
	padSample     = sample{op: opPad}
)

var typeLayouts = map[Type]*Layout{
	AlphaQuantum:      {samples: []sample{alphaSample}},
	OpacityQuantum:    {samples: []sample{opacitySample}},
	BlackQuantum:      {samples: []sample{blackSample}, needsCMYK: true},
	RedQuantum:        {samples: []sample{redSample}},
	CyanQuantum:       {samples: []sample{redSample}},
	GreenQuantum:      {samples: []sample{greenSample}},
	MagentaQuantum:    {samples: []sample{greenSample}},
	BlueQuantum:       {samples: []sample{blueSample}},
	YellowQuantum:     {samples: []sample{blueSample}},
	GrayQuantum:       {samples: []sample{lumaSample}},
	GrayAlphaQuantum:  {samples: []sample{lumaSample, alphaSample}},
	IndexQuantum:      {samples: []sample{indexSample}, needsIndex: true},
	IndexAlphaQuantum: {samples: []sample{indexSample, alphaSample}, needsIndex: true},
	RGBQuantum:        {samples: []sample{redSample, greenSample, blueSample}},
	RGBAQuantum:       {samples: []sample{redSample, greenSample, blueSample, alphaSample}},
	RGBOQuantum:       {samples: []sample{redSample, greenSample, blueSample, opacitySample}},
	BGRQuantum:        {samples: []sample{blueSample, greenSample, redSample}},
	BGRAQuantum:       {samples: []sample{blueSample, greenSample, redSample, alphaSample}},
	BGROQuantum:       {samples: []sample{blueSample, greenSample, redSample, opacitySample}},
	CMYQuantum:        {samples: []sample{redSample, greenSample, blueSample}, needsCMYK: true},
	CMYKQuantum:       {samples: []sample{redSample, greenSample, blueSample, blackSample}, needsCMYK: true},
	CMYKAQuantum:      {samples: []sample{redSample, greenSample, blueSample, blackSample, alphaSample}, needsCMYK: true},
	CMYKOQuantum:      {samples: []sample{redSample, greenSample, blueSample, blackSample, opacitySample}, needsCMYK: true},
	// YCbCr images keep Y, Cb and Cr in the red, green and blue slots.
	CbYCrQuantum:  {samples: []sample{greenSample, redSample, blueSample}},
	CbYCrAQuantum: {samples: []sample{greenSample, redSample, blueSample, alphaSample}},
	CbYCrYQuantum: {samples: []sample{greenSample, redSample, blueSample, redSample}, subsampled: true},
}

func init() {
	for t, l := range typeLayouts {
		l.name = t.String()
	}
}

// TypeLayout returns the sample layout of t.
func TypeLayout(t Type) (*Layout, error) {
	l, ok := typeLayouts[t]
	if !ok {
		return nil, exception.New(exception.OptionError, exception.ErrUnrecognizedQuantumType, t.String())
	}
	return l, nil
}

// ParseMap builds a layout from a channel map such as "RGBA" or "IPPP".
// R, G, B, A, C, M, Y, K select channels, O is opacity, I is intensity and
// P a pad sample.
func ParseMap(m string) (*Layout, error) {
	if m == "" {
		return nil, exception.New(exception.OptionError, exception.ErrUnrecognizedPixelMap, m)
	}
	l := &Layout{name: strings.ToUpper(m)}
	for _, c := range l.name {
		switch c {
		case 'R', 'C':
			l.samples = append(l.samples, redSample)
		case 'G', 'M':
			l.samples = append(l.samples, greenSample)
		case 'B', 'Y':
			l.samples = append(l.samples, blueSample)
		case 'K':
			l.samples = append(l.samples, blackSample)
			l.needsCMYK = true
		case 'A':
			l.samples = append(l.samples, alphaSample)
		case 'O':
			l.samples = append(l.samples, opacitySample)
		case 'I':
			l.samples = append(l.samples, lumaSample)
		case 'P':
			l.samples = append(l.samples, padSample)
		default:
			return nil, exception.New(exception.OptionError, exception.ErrUnrecognizedPixelMap, m)
		}
	}
	return l, nil
}
