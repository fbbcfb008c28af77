package quantum

import (
	"fmt"
	"math/big"
	"math/rand"
	"testing"

	"github.com/ironsheep/pixelcodec/internal/pixel"
)

// roundToQuantum is round-half-up of v*QuantumRange/max in exact arithmetic.
func roundToQuantum(v, max uint64) pixel.Quantum {
	n := new(big.Int).SetUint64(v)
	n.Mul(n, big.NewInt(2*int64(pixel.QuantumRange)))
	n.Add(n, new(big.Int).SetUint64(max))
	d := new(big.Int).SetUint64(max)
	d.Lsh(d, 1)
	return pixel.Quantum(n.Div(n, d).Uint64())
}

func TestScaleFromAny_MatchesExact(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for depth := uint(1); depth <= 64; depth++ {
		max := masks[depth]
		samples := []uint64{0, 1, max, max - 1, max / 2, max/2 + 1}
		if m := max / quantumRange; m > 1 {
			samples = append(samples, max-m/2, max-m/2-1, max-(m+1)/2)
		}
		for i := 0; i < 64; i++ {
			samples = append(samples, rng.Uint64()&max)
		}
		for _, v := range samples {
			if v > max {
				continue
			}
			if got, want := scaleFromAny(v, max), roundToQuantum(v, max); got != want {
				t.Errorf("depth %d: scaleFromAny(%#x) = %d, want %d", depth, v, got, want)
			}
		}
	}
}

func TestImport_NearMaxGray(t *testing.T) {
	for _, depth := range []int{32, 48, 64} {
		t.Run(fmt.Sprint(depth), func(t *testing.T) {
			img, _ := pixel.New(1, 1)
			img.SetColorspace(pixel.GrayColorspace)
			q := NewInfo(img)
			if err := q.SetDepth(depth); err != nil {
				t.Fatal(err)
			}
			src := filled(depth/8, 0xff)
			src[len(src)-1] = 0xfe
			if _, err := q.ImportImage(img, img.Bounds(), GrayQuantum, src); err != nil {
				t.Fatalf("ImportImage: %v", err)
			}
			if got := img.Get(0, 0, pixel.GrayChannel); got != pixel.QuantumRange {
				t.Errorf("gray = %d, want %d", got, pixel.QuantumRange)
			}
		})
	}
}

func filled(n int, b byte) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = b
	}
	return out
}

// Arbitrary input must import without panicking, and unsigned byte-aligned
// gray samples must land on the exactly rounded quantum.
func TestImport_ArbitraryBytes(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	const columns = 9

	type setup struct {
		depth  int
		format Format
		pack   bool
	}
	var setups []setup
	for _, depth := range []int{1, 4, 8, 10, 12, 16, 24, 32, 48, 64} {
		for _, pack := range []bool{true, false} {
			setups = append(setups, setup{depth, UnsignedFormat, pack}, setup{depth, SignedFormat, pack})
		}
	}
	for _, depth := range []int{16, 32, 64} {
		setups = append(setups, setup{depth, FloatingPointFormat, true})
	}

	for _, s := range setups {
		for _, qt := range []Type{GrayQuantum, RGBAQuantum, CMYKAQuantum, CbYCrYQuantum} {
			name := fmt.Sprintf("%s/%d/%s/pack=%t", qt, s.depth, s.format, s.pack)
			t.Run(name, func(t *testing.T) {
				img, _ := pixel.New(columns, 2)
				if qt == GrayQuantum {
					img.SetColorspace(pixel.GrayColorspace)
				}
				q := NewInfo(img)
				if err := q.SetDepth(s.depth); err != nil {
					t.Fatal(err)
				}
				if err := q.SetFormat(s.format); err != nil {
					t.Fatal(err)
				}
				q.SetPack(s.pack)

				src := make([]byte, q.Extent(qt, columns, 2))
				rng.Read(src)
				if _, err := q.ImportImage(img, img.Bounds(), qt, src); err != nil {
					t.Fatalf("ImportImage: %v", err)
				}

				if qt != GrayQuantum || s.format != UnsignedFormat || s.depth%8 != 0 {
					return
				}
				width := s.depth / 8
				for x := 0; x < columns; x++ {
					var v uint64
					for _, b := range src[x*width : (x+1)*width] {
						v = v<<8 | uint64(b)
					}
					if got, want := img.Get(x, 0, pixel.GrayChannel), roundToQuantum(v, masks[s.depth]); got != want {
						t.Errorf("x=%d sample %#x: gray = %d, want %d", x, v, got, want)
					}
				}
			})
		}
	}
}
