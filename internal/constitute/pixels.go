package constitute

import (
	"encoding/binary"
	"fmt"
	"image"
	"math"
	"strings"

	"github.com/ironsheep/pixelcodec/internal/exception"
	"github.com/ironsheep/pixelcodec/internal/pixel"
	"github.com/ironsheep/pixelcodec/internal/quantum"
)

// StorageType is the element type of a caller's pixel slice.
type StorageType int

const (
	UndefinedPixel StorageType = iota
	CharPixel                  // []uint8
	ShortPixel                 // []uint16
	LongPixel                  // []uint32
	LongLongPixel              // []uint64
	FloatPixel                 // []float32, normalized to [0, 1]
	DoublePixel                // []float64, normalized to [0, 1]
	QuantumPixel               // []pixel.Quantum
)

var storageNames = map[StorageType]string{
	CharPixel:     "char",
	ShortPixel:    "short",
	LongPixel:     "long",
	LongLongPixel: "longlong",
	FloatPixel:    "float",
	DoublePixel:   "double",
	QuantumPixel:  "quantum",
}

func (s StorageType) String() string {
	if name, ok := storageNames[s]; ok {
		return name
	}
	return "undefined"
}

// ParseStorageType accepts the names produced by String.
func ParseStorageType(name string) (StorageType, error) {
	for s, n := range storageNames {
		if strings.EqualFold(n, name) {
			return s, nil
		}
	}
	return UndefinedPixel, fmt.Errorf("unrecognized storage type %q", name)
}

// depth is the sample width of s in bits.
func (s StorageType) depth() int {
	switch s {
	case CharPixel:
		return 8
	case ShortPixel, QuantumPixel:
		return 16
	case LongPixel, FloatPixel:
		return 32
	}
	return 64
}

// quantumInfo configures a transfer that moves native little-endian
// samples of storage type s.
func (s StorageType) quantumInfo(img *pixel.Image) (*quantum.Info, error) {
	q := quantum.NewInfo(img)
	if err := q.SetDepth(s.depth()); err != nil {
		return nil, err
	}
	if s == FloatPixel || s == DoublePixel {
		if err := q.SetFormat(quantum.FloatingPointFormat); err != nil {
			return nil, err
		}
	}
	q.SetEndian(quantum.LSBEndian)
	return q, nil
}

// sampleCount returns the number of elements in pixels, checking that its
// element type matches storage.
func sampleCount(storage StorageType, pixels any) (int, error) {
	var n int
	ok := true
	switch p := pixels.(type) {
	case []uint8:
		n, ok = len(p), storage == CharPixel
	case []uint16:
		n, ok = len(p), storage == ShortPixel
	case []uint32:
		n, ok = len(p), storage == LongPixel
	case []uint64:
		n, ok = len(p), storage == LongLongPixel
	case []float32:
		n, ok = len(p), storage == FloatPixel
	case []float64:
		n, ok = len(p), storage == DoublePixel
	case []pixel.Quantum:
		n, ok = len(p), storage == QuantumPixel
	default:
		ok = false
	}
	if !ok {
		return 0, exception.Newf(exception.OptionError, exception.ErrUnrecognizedPixelMap,
			"%T does not hold %s pixels", pixels, storage)
	}
	return n, nil
}

// fromBytes copies little-endian samples out of buf into pixels.
func fromBytes(buf []byte, pixels any) {
	switch p := pixels.(type) {
	case []uint8:
		copy(p, buf)
	case []uint16:
		for i := range p {
			p[i] = binary.LittleEndian.Uint16(buf[2*i:])
		}
	case []pixel.Quantum:
		for i := range p {
			p[i] = pixel.Quantum(binary.LittleEndian.Uint16(buf[2*i:]))
		}
	case []uint32:
		for i := range p {
			p[i] = binary.LittleEndian.Uint32(buf[4*i:])
		}
	case []uint64:
		for i := range p {
			p[i] = binary.LittleEndian.Uint64(buf[8*i:])
		}
	case []float32:
		for i := range p {
			p[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
		}
	case []float64:
		for i := range p {
			p[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[8*i:]))
		}
	}
}

// toBytes serialises the first n samples of pixels little-endian.
func toBytes(pixels any, n int) []byte {
	switch p := pixels.(type) {
	case []uint8:
		return p[:n]
	case []uint16:
		buf := make([]byte, 2*n)
		for i := 0; i < n; i++ {
			binary.LittleEndian.PutUint16(buf[2*i:], p[i])
		}
		return buf
	case []pixel.Quantum:
		buf := make([]byte, 2*n)
		for i := 0; i < n; i++ {
			binary.LittleEndian.PutUint16(buf[2*i:], uint16(p[i]))
		}
		return buf
	case []uint32:
		buf := make([]byte, 4*n)
		for i := 0; i < n; i++ {
			binary.LittleEndian.PutUint32(buf[4*i:], p[i])
		}
		return buf
	case []uint64:
		buf := make([]byte, 8*n)
		for i := 0; i < n; i++ {
			binary.LittleEndian.PutUint64(buf[8*i:], p[i])
		}
		return buf
	case []float32:
		buf := make([]byte, 4*n)
		for i := 0; i < n; i++ {
			binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(p[i]))
		}
		return buf
	case []float64:
		buf := make([]byte, 8*n)
		for i := 0; i < n; i++ {
			binary.LittleEndian.PutUint64(buf[8*i:], math.Float64bits(p[i]))
		}
		return buf
	}
	return nil
}

// ExportImagePixels copies the region r of img into pixels, one sample per
// letter of the channel map m ("RGB", "BGRA", "I", "CMYK", ...).
func ExportImagePixels(img *pixel.Image, r image.Rectangle, m string, storage StorageType, pixels any) error {
	l, err := quantum.ParseMap(m)
	if err != nil {
		return err
	}
	n, err := sampleCount(storage, pixels)
	if err != nil {
		return err
	}
	need := r.Dx() * r.Dy() * l.Samples()
	if n < need {
		return exception.Newf(exception.OptionError, exception.ErrBufferTooSmall,
			"%s: %d samples, need %d", m, n, need)
	}
	src, err := img.Pixels(r)
	if err != nil {
		return err
	}
	q, err := storage.quantumInfo(img)
	if err != nil {
		return err
	}
	if p, ok := pixels.([]uint8); ok {
		_, err = q.ExportLayout(src, l, p)
		return err
	}
	buf := make([]byte, q.LayoutExtent(l, r.Dx(), r.Dy()))
	if _, err := q.ExportLayout(src, l, buf); err != nil {
		return err
	}
	fromBytes(buf, pixels)
	return nil
}

// ImportImagePixels stores pixels into the region r of img. A map carrying
// alpha enables alpha on the image; a map with C, M, Y or K makes it a color
// separation.
func ImportImagePixels(img *pixel.Image, r image.Rectangle, m string, storage StorageType, pixels any) error {
	l, err := quantum.ParseMap(m)
	if err != nil {
		return err
	}
	n, err := sampleCount(storage, pixels)
	if err != nil {
		return err
	}
	need := r.Dx() * r.Dy() * l.Samples()
	if n < need {
		return exception.Newf(exception.OptionError, exception.ErrBufferTooSmall,
			"%s: %d samples, need %d", m, n, need)
	}
	if !r.In(img.Bounds()) || r.Empty() {
		return exception.Newf(exception.OptionError, exception.ErrGeometryOutOfBounds,
			"%v not in %dx%d", r, img.Columns, img.Rows)
	}
	if l.HasAlpha() && !img.Alpha() {
		img.SetAlpha(true)
	}
	if strings.ContainsAny(strings.ToUpper(m), "CMYK") && !img.Colorspace().IsCMYK() {
		img.SetColorspace(pixel.CMYKColorspace)
	}
	q, err := storage.quantumInfo(img)
	if err != nil {
		return err
	}
	dst, err := img.Authentic(r)
	if err != nil {
		return err
	}
	_, err = q.ImportLayout(dst, l, toBytes(pixels, need))
	return err
}

// ConstituteImage builds a columns x rows image from pixels laid out by the
// channel map m. The colorspace follows from the map: any of C, M, Y, K
// gives CMYK, intensity without color gives gray, anything else sRGB.
func ConstituteImage(columns, rows int, m string, storage StorageType, pixels any) (*pixel.Image, error) {
	if _, err := quantum.ParseMap(m); err != nil {
		return nil, err
	}
	img, err := pixel.New(columns, rows)
	if err != nil {
		return nil, err
	}
	upper := strings.ToUpper(m)
	switch {
	case strings.ContainsAny(upper, "CMYK"):
		img.SetColorspace(pixel.CMYKColorspace)
	case strings.Contains(upper, "I") && !strings.ContainsAny(upper, "RGB"):
		img.SetColorspace(pixel.GrayColorspace)
	}
	img.SetAlpha(strings.ContainsAny(upper, "AO"))
	img.Depth = min(storage.depth(), pixel.QuantumDepth)

	if err := ImportImagePixels(img, img.Bounds(), m, storage, pixels); err != nil {
		img.Destroy()
		return nil, err
	}
	return img, nil
}

// NewPixels allocates a slice of n samples of the given storage type.
func NewPixels(storage StorageType, n int) (any, error) {
	switch storage {
	case CharPixel:
		return make([]uint8, n), nil
	case ShortPixel:
		return make([]uint16, n), nil
	case LongPixel:
		return make([]uint32, n), nil
	case LongLongPixel:
		return make([]uint64, n), nil
	case FloatPixel:
		return make([]float32, n), nil
	case DoublePixel:
		return make([]float64, n), nil
	case QuantumPixel:
		return make([]pixel.Quantum, n), nil
	}
	return nil, exception.New(exception.OptionError, exception.ErrUnrecognizedPixelMap, storage.String())
}

// DecodePixels reads little-endian samples of the given storage type from
// data. Trailing bytes that do not fill a sample are ignored.
func DecodePixels(storage StorageType, data []byte) (any, error) {
	pixels, err := NewPixels(storage, len(data)/(storage.depth()/8))
	if err != nil {
		return nil, err
	}
	fromBytes(data, pixels)
	return pixels, nil
}

// EncodePixels serialises a slice of the given storage type little-endian.
func EncodePixels(storage StorageType, pixels any) ([]byte, error) {
	n, err := sampleCount(storage, pixels)
	if err != nil {
		return nil, err
	}
	return toBytes(pixels, n), nil
}
