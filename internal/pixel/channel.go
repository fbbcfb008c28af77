package pixel

import (
	"fmt"
	"strings"
)

// Quantum is a single channel value in [0, QuantumRange].
type Quantum uint16

const (
	// QuantumDepth is the number of bits in a Quantum.
	QuantumDepth = 16

	// QuantumRange is the largest channel value.
	QuantumRange Quantum = 65535
)

// Channel identifies the role of a value within a pixel.
type Channel int

const (
	RedChannel Channel = iota
	GreenChannel
	BlueChannel
	BlackChannel
	AlphaChannel
	IndexChannel
	GrayChannel

	// MaxChannels is the number of distinct channel roles.
	MaxChannels
)

// CMYK aliases share the slots of the RGB roles.
const (
	CyanChannel    = RedChannel
	MagentaChannel = GreenChannel
	YellowChannel  = BlueChannel
)

var channelNames = [...]string{"red", "green", "blue", "black", "alpha", "index", "gray"}

func (c Channel) String() string {
	if c >= 0 && int(c) < len(channelNames) {
		return channelNames[c]
	}
	return fmt.Sprintf("channel(%d)", int(c))
}

// IsColor reports whether c is one of the three color roles.
func (c Channel) IsColor() bool {
	return c == RedChannel || c == GreenChannel || c == BlueChannel
}

// Colorspace is the color model of an image.
type Colorspace int

const (
	UndefinedColorspace Colorspace = iota
	SRGBColorspace
	RGBColorspace
	GrayColorspace
	LinearGrayColorspace
	CMYKColorspace
	YCbCrColorspace
)

var colorspaceNames = map[Colorspace]string{
	UndefinedColorspace:  "Undefined",
	SRGBColorspace:       "sRGB",
	RGBColorspace:        "RGB",
	GrayColorspace:       "Gray",
	LinearGrayColorspace: "LinearGray",
	CMYKColorspace:       "CMYK",
	YCbCrColorspace:      "YCbCr",
}

func (c Colorspace) String() string {
	if name, ok := colorspaceNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Colorspace(%d)", int(c))
}

// IsGray reports whether c stores a single intensity channel.
func (c Colorspace) IsGray() bool {
	return c == GrayColorspace || c == LinearGrayColorspace
}

// IsCMYK reports whether c is a color separation.
func (c Colorspace) IsCMYK() bool { return c == CMYKColorspace }

// ParseColorspace accepts the names produced by String, case-insensitively.
func ParseColorspace(s string) (Colorspace, error) {
	for cs, name := range colorspaceNames {
		if strings.EqualFold(name, s) {
			return cs, nil
		}
	}
	return UndefinedColorspace, fmt.Errorf("unrecognized colorspace %q", s)
}

// StorageClass tells whether pixels carry direct color or a colormap index.
type StorageClass int

const (
	DirectClass StorageClass = iota
	PseudoClass
)

func (c StorageClass) String() string {
	if c == PseudoClass {
		return "PseudoClass"
	}
	return "DirectClass"
}

// Color is a colormap entry.
type Color struct {
	Red, Green, Blue, Black, Alpha Quantum
}

// Opaque returns an opaque color.
func Opaque(r, g, b Quantum) Color {
	return Color{Red: r, Green: g, Blue: b, Alpha: QuantumRange}
}

// ClampToQuantum rounds v and clamps it to [0, QuantumRange].
func ClampToQuantum(v float64) Quantum {
	if !(v > 0) {
		return 0
	}
	if v >= float64(QuantumRange) {
		return QuantumRange
	}
	return Quantum(v + 0.5)
}
