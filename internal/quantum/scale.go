package quantum

import (
	"math"
	"math/bits"

	"github.com/x448/float16"

	"github.com/ironsheep/pixelcodec/internal/pixel"
)

const quantumRange = uint64(pixel.QuantumRange)

// scaleToAny maps q onto [0, max] with round-half-up. Ranges that are an
// exact multiple of the quantum range (depths 32, 48, 64) scale by plain
// multiplication, so they are lossless.
func scaleToAny(q pixel.Quantum, max uint64) uint64 {
	switch {
	case max == quantumRange:
		return uint64(q)
	case max%quantumRange == 0:
		return uint64(q) * (max / quantumRange)
	}
	hi, lo := bits.Mul64(uint64(q), max)
	lo, carry := bits.Add64(lo, quantumRange/2, 0)
	quo, _ := bits.Div64(hi+carry, lo, quantumRange)
	return quo
}

// scaleFromAny maps v in [0, max] back onto the quantum range.
func scaleFromAny(v, max uint64) pixel.Quantum {
	switch {
	case max == quantumRange:
		return pixel.Quantum(v)
	case v >= max:
		return pixel.QuantumRange
	case max%quantumRange == 0:
		m := max / quantumRange
		q := v / m
		if v%m >= (m+1)/2 {
			q++
		}
		return pixel.Quantum(min(q, quantumRange))
	}
	hi, lo := bits.Mul64(v, quantumRange)
	lo, carry := bits.Add64(lo, max/2, 0)
	quo, _ := bits.Div64(hi+carry, lo, max)
	return pixel.Quantum(quo)
}

// putFloat stores f as a depth-bit IEEE value.
func putFloat(dst []byte, f float64, depth uint, little bool) int {
	switch depth {
	case 16:
		return putUnit(dst, uint64(float16.Fromfloat32(float32(f)).Bits()), 2, little)
	case 32:
		return putUnit(dst, uint64(math.Float32bits(float32(f))), 4, little)
	}
	return putUnit(dst, math.Float64bits(f), 8, little)
}

// getFloat loads a depth-bit IEEE value.
func getFloat(src []byte, depth uint, little bool) float64 {
	switch depth {
	case 16:
		return float64(float16.Frombits(uint16(getUnit(src[:2], little))).Float32())
	case 32:
		return float64(math.Float32frombits(uint32(getUnit(src[:4], little))))
	}
	return math.Float64frombits(getUnit(src[:8], little))
}
