package pixel

import (
	"errors"
	"image"
	"image/color"
	"math"
	"sync"
	"testing"

	"github.com/ironsheep/pixelcodec/internal/exception"
	"github.com/ironsheep/pixelcodec/internal/policy"
)

// newTestImage builds a columns x rows sRGB image where every channel value
// encodes its coordinates, so misplaced values are easy to spot.
func newTestImage(t *testing.T, columns, rows int) *Image {
	t.Helper()
	img, err := New(columns, rows)
	if err != nil {
		t.Fatalf("New(%d, %d) failed: %v", columns, rows, err)
	}
	for y := 0; y < rows; y++ {
		for x := 0; x < columns; x++ {
			img.Set(x, y, RedChannel, Quantum(x*1000+y))
			img.Set(x, y, GreenChannel, Quantum(x*1000+y+1))
			img.Set(x, y, BlueChannel, Quantum(x*1000+y+2))
		}
	}
	return img
}

func TestNew_InvalidGeometry(t *testing.T) {
	for _, size := range [][2]int{{0, 1}, {1, 0}, {-3, 4}} {
		_, err := New(size[0], size[1])
		if !errors.Is(err, exception.ErrGeometryOutOfBounds) {
			t.Errorf("New(%d, %d): got %v, want geometry error", size[0], size[1], err)
		}
	}
}

func TestNew_ExtentLimits(t *testing.T) {
	tests := []struct {
		name          string
		columns, rows int
	}{
		{"area overflows", math.MaxInt, math.MaxInt},
		{"bytes overflow", 3037000500, 3037000500},
		{"wide row", math.MaxInt / 2, 3},
		{"above the hard cap", 1 << 20, 1 << 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := New(tt.columns, tt.rows)
			if !errors.Is(err, exception.ErrMemoryAllocationFailed) {
				t.Fatalf("New(%d, %d) = %v, want ErrMemoryAllocationFailed", tt.columns, tt.rows, err)
			}
			if img != nil {
				t.Error("failed New returned an image")
			}
		})
	}
}

func TestNew_MemoryPolicy(t *testing.T) {
	limited, err := policy.New(nil, map[string]string{policy.MemorySetting: "1KiB"})
	if err != nil {
		t.Fatalf("policy.New: %v", err)
	}
	prev := policy.Default()
	policy.SetDefault(limited)
	defer policy.SetDefault(prev)

	// 10x10 sRGB is 600 bytes, 20x20 is 2400
	if _, err := New(10, 10); err != nil {
		t.Errorf("New(10, 10) under the limit: %v", err)
	}
	if _, err := New(20, 20); !errors.Is(err, exception.ErrMemoryAllocationFailed) {
		t.Errorf("New(20, 20) = %v, want ErrMemoryAllocationFailed", err)
	}
}

func TestAllocated(t *testing.T) {
	base := Allocated()
	img, err := New(4, 2)
	if err != nil {
		t.Fatal(err)
	}
	if got := Allocated() - base; got != 4*2*3*2 {
		t.Errorf("after New: %d bytes, want %d", got, 4*2*3*2)
	}

	ref := img.Clone()
	img.Destroy()
	if got := Allocated() - base; got != 4*2*3*2 {
		t.Errorf("storage released while referenced: %d bytes", got)
	}
	ref.SetAlpha(true)
	if got := Allocated() - base; got != 4*2*4*2 {
		t.Errorf("after SetAlpha: %d bytes, want %d", got, 4*2*4*2)
	}
	ref.Destroy()
	if got := Allocated() - base; got != 0 {
		t.Errorf("after Destroy: %d bytes still held", got)
	}
}

func TestNewLayout(t *testing.T) {
	tests := []struct {
		name  string
		cs    Colorspace
		alpha bool
		class StorageClass
		want  []Channel
	}{
		{"srgb", SRGBColorspace, false, DirectClass, []Channel{RedChannel, GreenChannel, BlueChannel}},
		{"srgb alpha", SRGBColorspace, true, DirectClass, []Channel{RedChannel, GreenChannel, BlueChannel, AlphaChannel}},
		{"gray", GrayColorspace, false, DirectClass, []Channel{GrayChannel}},
		{"cmyk alpha", CMYKColorspace, true, DirectClass, []Channel{CyanChannel, MagentaChannel, YellowChannel, BlackChannel, AlphaChannel}},
		{"palette", SRGBColorspace, false, PseudoClass, []Channel{RedChannel, GreenChannel, BlueChannel, IndexChannel}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLayout(tt.cs, tt.alpha, tt.class)
			got := l.List()
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] || l.Offset(got[i]) != i {
					t.Errorf("channel %d: got %v at offset %d, want %v", i, got[i], l.Offset(got[i]), tt.want[i])
				}
			}
		})
	}
}

func TestNewLayout_GrayAliases(t *testing.T) {
	l := NewLayout(GrayColorspace, true, DirectClass)
	for _, c := range []Channel{RedChannel, GreenChannel, BlueChannel} {
		if l.Offset(c) != l.Offset(GrayChannel) {
			t.Errorf("%v should alias the gray slot", c)
		}
	}
	if l.Has(BlackChannel) || l.Has(IndexChannel) {
		t.Error("gray layout should not carry black or index")
	}
}

func TestImage_SetAlphaPreservesColor(t *testing.T) {
	img := newTestImage(t, 3, 2)
	img.SetAlpha(true)

	if img.Channels() != 4 {
		t.Fatalf("Channels: got %d, want 4", img.Channels())
	}
	if got := img.Get(2, 1, RedChannel); got != 2001 {
		t.Errorf("red at (2,1): got %d, want 2001", got)
	}
	if got := img.Get(2, 1, AlphaChannel); got != QuantumRange {
		t.Errorf("new alpha should be opaque, got %d", got)
	}
}

func TestImage_SetColorspaceGray(t *testing.T) {
	img := newTestImage(t, 2, 2)
	img.SetColorspace(GrayColorspace)
	if img.Channels() != 1 {
		t.Fatalf("Channels: got %d, want 1", img.Channels())
	}
	if got := img.Get(1, 1, GrayChannel); got != 1001 {
		t.Errorf("gray takes the red value: got %d, want 1001", got)
	}
	img.SetColorspace(SRGBColorspace)
	if img.Get(1, 1, BlueChannel) != 1001 {
		t.Error("gray to sRGB should replicate gray into blue")
	}
}

func TestImage_Pixels(t *testing.T) {
	img := newTestImage(t, 4, 3)
	p, err := img.Pixels(image.Rect(1, 1, 3, 3))
	if err != nil {
		t.Fatalf("Pixels failed: %v", err)
	}
	if p.Columns() != 2 || p.Rows() != 2 {
		t.Fatalf("size: got %dx%d, want 2x2", p.Columns(), p.Rows())
	}
	row := p.Row(1)
	if row[0] != Quantum(1*1000+2) || row[3] != Quantum(2*1000+2) {
		t.Errorf("row 1 red values: got %d and %d", row[0], row[3])
	}

	for _, r := range []image.Rectangle{
		image.Rect(-1, 0, 2, 2),
		image.Rect(0, 0, 5, 1),
		image.Rect(1, 1, 1, 2),
	} {
		if _, err := img.Pixels(r); !errors.Is(err, exception.ErrGeometryOutOfBounds) {
			t.Errorf("Pixels(%v): got %v, want geometry error", r, err)
		}
	}
}

func TestImage_CloneCopyOnWrite(t *testing.T) {
	img := newTestImage(t, 2, 2)
	clone := img.Clone()

	if img.References() != 2 {
		t.Fatalf("References after Clone: got %d, want 2", img.References())
	}

	clone.Set(0, 0, RedChannel, 42)
	if img.Get(0, 0, RedChannel) != 0 {
		t.Error("writing to the clone leaked into the source")
	}
	if img.References() != 1 || clone.References() != 1 {
		t.Errorf("after detach: refs %d and %d, want 1 and 1", img.References(), clone.References())
	}
}

func TestImage_DestroyReleasesShared(t *testing.T) {
	img := newTestImage(t, 2, 2)
	store := img.store

	clones := make([]*Image, 8)
	for i := range clones {
		clones[i] = img.Clone()
	}
	var wg sync.WaitGroup
	for _, c := range clones {
		wg.Add(1)
		go func(c *Image) {
			defer wg.Done()
			c.Destroy()
		}(c)
	}
	wg.Wait()

	if store.refs != 1 || store.pix == nil {
		t.Fatalf("source should still hold the storage, refs=%d", store.refs)
	}
	img.Destroy()
	if store.refs != 0 || store.pix != nil {
		t.Error("storage should be freed when the last reference goes")
	}
}

func TestFromImage_Gray(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 2, 1))
	src.SetGray(1, 0, color.Gray{Y: 200})

	img, err := FromImage(src)
	if err != nil {
		t.Fatalf("FromImage failed: %v", err)
	}
	if !img.Colorspace().IsGray() || img.Depth != 8 {
		t.Errorf("got %v depth %d, want gray depth 8", img.Colorspace(), img.Depth)
	}
	if got := img.Get(1, 0, GrayChannel); got != 200*257 {
		t.Errorf("gray: got %d, want %d", got, 200*257)
	}
}

func TestFromImage_PalettedRoundTrip(t *testing.T) {
	palette := color.Palette{color.NRGBA{0, 0, 0, 255}, color.NRGBA{255, 0, 0, 255}, color.NRGBA{0, 0, 255, 128}}
	src := image.NewPaletted(image.Rect(0, 0, 3, 1), palette)
	src.SetColorIndex(0, 0, 2)
	src.SetColorIndex(1, 0, 1)

	img, err := FromImage(src)
	if err != nil {
		t.Fatalf("FromImage failed: %v", err)
	}
	if img.StorageClass() != PseudoClass || !img.Alpha() || len(img.Colormap) != 3 {
		t.Fatalf("got %v alpha=%v colors=%d", img.StorageClass(), img.Alpha(), len(img.Colormap))
	}
	if img.Get(1, 0, RedChannel) != QuantumRange || img.Get(0, 0, IndexChannel) != 2 {
		t.Error("pixel colors should follow the colormap")
	}

	out, ok := img.ToImage().(*image.Paletted)
	if !ok {
		t.Fatalf("ToImage: got %T, want *image.Paletted", img.ToImage())
	}
	for x := 0; x < 3; x++ {
		if out.ColorIndexAt(x, 0) != src.ColorIndexAt(x, 0) {
			t.Errorf("index at %d: got %d, want %d", x, out.ColorIndexAt(x, 0), src.ColorIndexAt(x, 0))
		}
	}
}

func TestToImage_Types(t *testing.T) {
	img := newTestImage(t, 2, 2)
	if _, ok := img.ToImage().(*image.NRGBA64); !ok {
		t.Errorf("16-bit sRGB: got %T, want *image.NRGBA64", img.ToImage())
	}
	img.Depth = 8
	if _, ok := img.ToImage().(*image.NRGBA); !ok {
		t.Errorf("8-bit sRGB: got %T, want *image.NRGBA", img.ToImage())
	}
	img.SetColorspace(CMYKColorspace)
	if _, ok := img.ToImage().(*image.CMYK); !ok {
		t.Errorf("CMYK: got %T, want *image.CMYK", img.ToImage())
	}
	img.SetColorspace(GrayColorspace)
	img.Depth = 16
	if _, ok := img.ToImage().(*image.Gray16); !ok {
		t.Errorf("16-bit gray: got %T, want *image.Gray16", img.ToImage())
	}
}

func TestClampToQuantum(t *testing.T) {
	tests := []struct {
		in   float64
		want Quantum
	}{
		{-5, 0},
		{0.4, 0},
		{0.5, 1},
		{65534.6, 65535},
		{1e9, QuantumRange},
	}
	for _, tt := range tests {
		if got := ClampToQuantum(tt.in); got != tt.want {
			t.Errorf("ClampToQuantum(%v): got %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestTransformColorspace(t *testing.T) {
	img, err := New(2, 1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	img.Set(0, 0, RedChannel, QuantumRange)
	img.Set(1, 0, RedChannel, QuantumRange)
	img.Set(1, 0, GreenChannel, QuantumRange)
	img.Set(1, 0, BlueChannel, QuantumRange)

	cmyk := img.Clone()
	defer cmyk.Destroy()
	cmyk.TransformColorspace(CMYKColorspace)
	if cmyk.Get(0, 0, CyanChannel) != 0 || cmyk.Get(0, 0, MagentaChannel) != QuantumRange ||
		cmyk.Get(0, 0, YellowChannel) != QuantumRange || cmyk.Get(0, 0, BlackChannel) != 0 {
		t.Error("red should separate into magenta and yellow")
	}
	if cmyk.Get(1, 0, BlackChannel) != 0 || cmyk.Get(1, 0, CyanChannel) != 0 {
		t.Error("white should carry no ink")
	}
	if img.Colorspace() != SRGBColorspace || img.Get(0, 0, RedChannel) != QuantumRange {
		t.Error("converting a clone changed the original")
	}

	cmyk.TransformColorspace(SRGBColorspace)
	for x := 0; x < 2; x++ {
		for _, c := range []Channel{RedChannel, GreenChannel, BlueChannel} {
			if cmyk.Get(x, 0, c) != img.Get(x, 0, c) {
				t.Errorf("pixel %d %s: %d after CMYK round trip, want %d", x, c, cmyk.Get(x, 0, c), img.Get(x, 0, c))
			}
		}
	}

	ycc := img.Clone()
	defer ycc.Destroy()
	ycc.TransformColorspace(YCbCrColorspace)
	if y := ycc.Get(1, 0, RedChannel); y != QuantumRange {
		t.Errorf("luma of white = %d", y)
	}
	ycc.TransformColorspace(SRGBColorspace)
	if r := ycc.Get(0, 0, RedChannel); r < QuantumRange-2 {
		t.Errorf("red after YCbCr round trip = %d", r)
	}

	gray := img.Clone()
	defer gray.Destroy()
	gray.TransformColorspace(GrayColorspace)
	if gray.Channels() != 1 || gray.Get(1, 0, GrayChannel) != QuantumRange {
		t.Errorf("white in gray = %d", gray.Get(1, 0, GrayChannel))
	}
}
