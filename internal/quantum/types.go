package quantum

import (
	"fmt"
	"strings"
)

// Type selects the channels, and their order, of a transfer.
type Type int

const (
	UndefinedQuantum Type = iota
	AlphaQuantum
	BlackQuantum
	BlueQuantum
	CMYKAQuantum
	CMYKQuantum
	CyanQuantum
	GrayAlphaQuantum
	GrayQuantum
	GreenQuantum
	IndexAlphaQuantum
	IndexQuantum
	MagentaQuantum
	OpacityQuantum
	RedQuantum
	RGBAQuantum
	BGRAQuantum
	RGBOQuantum
	BGROQuantum
	RGBQuantum
	BGRQuantum
	YellowQuantum
	CMYKOQuantum
	CMYQuantum
	CbYCrQuantum
	CbYCrAQuantum
	CbYCrYQuantum
)

var typeNames = map[Type]string{
	UndefinedQuantum:  "Undefined",
	AlphaQuantum:      "Alpha",
	BlackQuantum:      "Black",
	BlueQuantum:       "Blue",
	CMYKAQuantum:      "CMYKA",
	CMYKQuantum:       "CMYK",
	CyanQuantum:       "Cyan",
	GrayAlphaQuantum:  "GrayAlpha",
	GrayQuantum:       "Gray",
	GreenQuantum:      "Green",
	IndexAlphaQuantum: "IndexAlpha",
	IndexQuantum:      "Index",
	MagentaQuantum:    "Magenta",
	OpacityQuantum:    "Opacity",
	RedQuantum:        "Red",
	RGBAQuantum:       "RGBA",
	BGRAQuantum:       "BGRA",
	RGBOQuantum:       "RGBO",
	BGROQuantum:       "BGRO",
	RGBQuantum:        "RGB",
	BGRQuantum:        "BGR",
	YellowQuantum:     "Yellow",
	CMYKOQuantum:      "CMYKO",
	CMYQuantum:        "CMY",
	CbYCrQuantum:      "CbYCr",
	CbYCrAQuantum:     "CbYCrA",
	CbYCrYQuantum:     "CbYCrY",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// ParseType accepts names such as "RGBA" or "cmyk", with or without a
// "Quantum" suffix.
func ParseType(s string) (Type, error) {
	s = strings.TrimSuffix(strings.TrimSuffix(s, "Quantum"), "quantum")
	for t, name := range typeNames {
		if t != UndefinedQuantum && strings.EqualFold(name, s) {
			return t, nil
		}
	}
	return UndefinedQuantum, fmt.Errorf("unrecognized quantum type %q", s)
}

// Types returns every defined Type except UndefinedQuantum, in declaration
// order.
func Types() []Type {
	out := make([]Type, 0, len(typeNames)-1)
	for t := AlphaQuantum; t <= CbYCrYQuantum; t++ {
		out = append(out, t)
	}
	return out
}

// Format is the numeric representation of samples.
type Format int

const (
	UndefinedFormat Format = iota
	UnsignedFormat
	SignedFormat
	FloatingPointFormat
)

var formatNames = map[Format]string{
	UndefinedFormat:     "undefined",
	UnsignedFormat:      "unsigned",
	SignedFormat:        "signed",
	FloatingPointFormat: "floating-point",
}

func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// ParseFormat accepts "unsigned", "signed", "floating-point" or "float".
func ParseFormat(s string) (Format, error) {
	if strings.EqualFold(s, "float") {
		return FloatingPointFormat, nil
	}
	for f, name := range formatNames {
		if strings.EqualFold(name, s) {
			return f, nil
		}
	}
	return UndefinedFormat, fmt.Errorf("unrecognized quantum format %q", s)
}

// Endian is the byte order of multi-byte samples and units.
type Endian int

const (
	// UndefinedEndian behaves as MSBEndian.
	UndefinedEndian Endian = iota
	LSBEndian
	MSBEndian
)

func (e Endian) String() string {
	switch e {
	case LSBEndian:
		return "LSB"
	case MSBEndian:
		return "MSB"
	}
	return "Undefined"
}

// ParseEndian accepts "lsb", "msb", "little", "big" and "undefined".
func ParseEndian(s string) (Endian, error) {
	switch strings.ToLower(s) {
	case "lsb", "little":
		return LSBEndian, nil
	case "msb", "big":
		return MSBEndian, nil
	case "", "undefined":
		return UndefinedEndian, nil
	}
	return UndefinedEndian, fmt.Errorf("unrecognized endian %q", s)
}

// AlphaType tells whether exported color samples are premultiplied.
type AlphaType int

const (
	UndefinedQuantumAlpha AlphaType = iota
	AssociatedQuantumAlpha
	DisassociatedQuantumAlpha
)
