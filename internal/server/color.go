package server

import (
	"encoding/binary"
	"fmt"
	"image"
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/pixelcodec/internal/pixel"
	"github.com/ironsheep/pixelcodec/internal/quantum"
)

// RGBAColor represents an RGBA color with 8-bit components.
type RGBAColor struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
	A uint8 `json:"a"` // 0 = fully transparent, 255 = fully opaque
}

// HSLColor represents a color in HSL color space.
type HSLColor struct {
	H int `json:"h"` // Hue: 0-360 degrees (0=red, 120=green, 240=blue)
	S int `json:"s"` // Saturation: 0-100 percent
	L int `json:"l"` // Lightness: 0-100 percent
}

// QuantumColor holds the full precision channel values of a pixel.
type QuantumColor struct {
	Red   uint16 `json:"red"`
	Green uint16 `json:"green"`
	Blue  uint16 `json:"blue"`
	Alpha uint16 `json:"alpha"`
	Black uint16 `json:"black,omitempty"`
	Index *int   `json:"index,omitempty"`
}

// ColorResult contains a color value in multiple representations.
//
// Hex, RGBA and HSL describe the pixel as sRGB. Quantum holds the stored
// values: for a CMYK image Red, Green and Blue are cyan, magenta and yellow.
type ColorResult struct {
	X          int          `json:"x"`
	Y          int          `json:"y"`
	Hex        string       `json:"hex"` // "#RRGGBB", no alpha
	RGBA       RGBAColor    `json:"rgba"`
	HSL        HSLColor     `json:"hsl"`
	Colorspace string       `json:"colorspace"`
	Quantum    QuantumColor `json:"quantum"`
}

// SampleColor reports the color of the pixel at (x, y).
//
// The sRGB value is read through a one pixel RGBA export at full depth, so
// gray and colormapped images report the color they display. CMYK pixels are
// converted with the naive separation formula.
func SampleColor(img *pixel.Image, x, y int) (*ColorResult, error) {
	if !image.Pt(x, y).In(img.Bounds()) {
		return nil, fmt.Errorf("coordinates (%d,%d) outside image bounds %dx%d", x, y, img.Columns, img.Rows)
	}

	stored := QuantumColor{
		Red:   uint16(img.Get(x, y, pixel.RedChannel)),
		Green: uint16(img.Get(x, y, pixel.GreenChannel)),
		Blue:  uint16(img.Get(x, y, pixel.BlueChannel)),
		Alpha: uint16(img.Get(x, y, pixel.AlphaChannel)),
		Black: uint16(img.Get(x, y, pixel.BlackChannel)),
	}
	if img.StorageClass() == pixel.PseudoClass {
		idx := int(img.Get(x, y, pixel.IndexChannel))
		stored.Index = &idx
	}

	var r, g, b, a float64
	if img.Colorspace().IsCMYK() {
		k := 1 - unit(stored.Black)
		r = (1 - unit(stored.Red)) * k
		g = (1 - unit(stored.Green)) * k
		b = (1 - unit(stored.Blue)) * k
		a = unit(stored.Alpha)
	} else {
		q := quantum.NewInfo(nil)
		buf := make([]byte, 8)
		if _, err := q.ExportImage(img, image.Rect(x, y, x+1, y+1), quantum.RGBAQuantum, buf); err != nil {
			return nil, fmt.Errorf("failed to read pixel: %w", err)
		}
		r = unit(binary.BigEndian.Uint16(buf[0:]))
		g = unit(binary.BigEndian.Uint16(buf[2:]))
		b = unit(binary.BigEndian.Uint16(buf[4:]))
		a = unit(binary.BigEndian.Uint16(buf[6:]))
	}

	c := colorful.Color{R: r, G: g, B: b}
	r8, g8, b8 := c.RGB255()
	h, s, l := c.Hsl()
	if math.IsNaN(h) {
		h = 0
	}

	return &ColorResult{
		X:          x,
		Y:          y,
		Hex:        strings.ToUpper(c.Hex()),
		RGBA:       RGBAColor{R: r8, G: g8, B: b8, A: uint8(a*255 + 0.5)},
		HSL:        HSLColor{H: int(math.Round(h)) % 360, S: int(math.Round(s * 100)), L: int(math.Round(l * 100))},
		Colorspace: img.Colorspace().String(),
		Quantum:    stored,
	}, nil
}

func unit(v uint16) float64 { return float64(v) / float64(pixel.QuantumRange) }
