package coders

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/ironsheep/pixelcodec/internal/codec"
	"github.com/ironsheep/pixelcodec/internal/exception"
	"github.com/ironsheep/pixelcodec/internal/pixel"
	"github.com/ironsheep/pixelcodec/internal/policy"
	"github.com/ironsheep/pixelcodec/internal/quantum"
)

// newRGB builds a columns x rows sRGB image whose channels are exact at
// 8 bits.
func newRGB(t *testing.T, columns, rows int, alpha bool) *pixel.Image {
	t.Helper()
	img, err := pixel.New(columns, rows)
	if err != nil {
		t.Fatalf("pixel.New: %v", err)
	}
	img.SetAlpha(alpha)
	img.Depth = 8
	for y := 0; y < rows; y++ {
		for x := 0; x < columns; x++ {
			img.Set(x, y, pixel.RedChannel, pixel.Quantum(x*37%256)*257)
			img.Set(x, y, pixel.GreenChannel, pixel.Quantum(y*91%256)*257)
			img.Set(x, y, pixel.BlueChannel, pixel.Quantum((x+y)*13%256)*257)
			img.Set(x, y, pixel.AlphaChannel, pixel.Quantum((x*y+100)%256)*257)
		}
	}
	return img
}

func entry(t *testing.T, tag string) *codec.Entry {
	t.Helper()
	e, ok := Default().Lookup(tag)
	if !ok {
		t.Fatalf("%s is not registered", tag)
	}
	return e
}

func encode(t *testing.T, tag string, info *codec.ImageInfo, images ...*pixel.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := entry(t, tag).Codec.Encode(context.Background(), info, &buf, images); err != nil {
		t.Fatalf("%s encode: %v", tag, err)
	}
	return buf.Bytes()
}

func decode(t *testing.T, tag string, info *codec.ImageInfo, data []byte) []*pixel.Image {
	t.Helper()
	images, err := entry(t, tag).Codec.Decode(context.Background(), info, bytes.NewReader(data))
	if err != nil {
		t.Fatalf("%s decode: %v", tag, err)
	}
	return images
}

func samePixels(t *testing.T, got, want *pixel.Image, channels ...pixel.Channel) {
	t.Helper()
	if got.Columns != want.Columns || got.Rows != want.Rows {
		t.Fatalf("geometry %dx%d, want %dx%d", got.Columns, got.Rows, want.Columns, want.Rows)
	}
	for y := 0; y < want.Rows; y++ {
		for x := 0; x < want.Columns; x++ {
			for _, c := range channels {
				if g, w := got.Get(x, y, c), want.Get(x, y, c); g != w {
					t.Fatalf("(%d,%d) %s = %d, want %d", x, y, c, g, w)
				}
			}
		}
	}
}

func TestRaw_TwoPixelRGB(t *testing.T) {
	info := &codec.ImageInfo{Columns: 2, Rows: 1, Depth: 8}
	images := decode(t, "RGB", info, []byte{255, 0, 0, 0, 255, 0})
	if len(images) != 1 {
		t.Fatalf("got %d images, want 1", len(images))
	}
	img := images[0]
	if img.Get(0, 0, pixel.RedChannel) != pixel.QuantumRange || img.Get(0, 0, pixel.GreenChannel) != 0 {
		t.Errorf("pixel 0 is not red")
	}
	if img.Get(1, 0, pixel.GreenChannel) != pixel.QuantumRange || img.Get(1, 0, pixel.RedChannel) != 0 {
		t.Errorf("pixel 1 is not green")
	}
	if img.Depth != 8 {
		t.Errorf("Depth = %d, want 8", img.Depth)
	}
}

func TestRaw_RoundTrip(t *testing.T) {
	src := newRGB(t, 7, 3, true)
	tests := []struct {
		tag      string
		depth    int
		endian   quantum.Endian
		channels []pixel.Channel
	}{
		{"RGB", 8, quantum.MSBEndian, []pixel.Channel{pixel.RedChannel, pixel.GreenChannel, pixel.BlueChannel}},
		{"RGBA", 16, quantum.LSBEndian, []pixel.Channel{pixel.RedChannel, pixel.GreenChannel, pixel.BlueChannel, pixel.AlphaChannel}},
		{"BGRO", 8, quantum.MSBEndian, []pixel.Channel{pixel.RedChannel, pixel.GreenChannel, pixel.BlueChannel, pixel.AlphaChannel}},
		{"BGRA", 32, quantum.LSBEndian, []pixel.Channel{pixel.RedChannel, pixel.GreenChannel, pixel.BlueChannel, pixel.AlphaChannel}},
		{"G", 8, quantum.MSBEndian, []pixel.Channel{pixel.GreenChannel}},
		{"A", 16, quantum.MSBEndian, []pixel.Channel{pixel.AlphaChannel}},
	}
	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			info := &codec.ImageInfo{Columns: src.Columns, Rows: src.Rows, Depth: tt.depth, Endian: tt.endian}
			data := encode(t, tt.tag, info, src)
			wantLen := src.Columns * src.Rows * len(tt.tag) * tt.depth / 8
			if len(data) != wantLen {
				t.Fatalf("encoded %d bytes, want %d", len(data), wantLen)
			}
			got := decode(t, tt.tag, info, data)
			samePixels(t, got[0], src, tt.channels...)
		})
	}
}

func TestRaw_Options(t *testing.T) {
	src := newRGB(t, 3, 2, false)
	info := &codec.ImageInfo{Columns: 3, Rows: 2, Depth: 10}
	info.SetOption("quantum:pack", "false")
	data := encode(t, "RGB", info, src)
	// three 10-bit samples share one 32-bit word per pixel
	if len(data) != 3*2*4 {
		t.Fatalf("encoded %d bytes, want 24", len(data))
	}

	info = &codec.ImageInfo{Columns: 3, Rows: 2, Depth: 8}
	info.SetOption("quantum:pad", "1")
	data = encode(t, "RGB", info, src)
	if len(data) != 3*2*4 {
		t.Fatalf("padded: encoded %d bytes, want 24", len(data))
	}
	samePixels(t, decode(t, "RGB", info, data)[0], src, pixel.RedChannel, pixel.GreenChannel, pixel.BlueChannel)

	info = &codec.ImageInfo{Columns: 3, Rows: 2, Depth: 32}
	info.SetOption("quantum:format", "floating-point")
	data = encode(t, "RGB", info, src)
	samePixels(t, decode(t, "RGB", info, data)[0], src, pixel.RedChannel, pixel.GreenChannel, pixel.BlueChannel)

	info.SetOption("quantum:format", "octal")
	if _, err := entry(t, "RGB").Codec.Decode(context.Background(), info, bytes.NewReader(data)); err == nil {
		t.Error("expected an error for an unknown quantum format")
	}
}

func TestRaw_RequiresSize(t *testing.T) {
	_, err := entry(t, "GRAY").Codec.Decode(context.Background(), &codec.ImageInfo{}, bytes.NewReader([]byte{1, 2}))
	if !errors.Is(err, exception.ErrMustSpecifyImageSize) {
		t.Errorf("expected ErrMustSpecifyImageSize, got %v", err)
	}
}

func TestRaw_ShortInput(t *testing.T) {
	info := &codec.ImageInfo{Columns: 4, Rows: 2, Depth: 8}
	_, err := entry(t, "RGB").Codec.Decode(context.Background(), info, bytes.NewReader(make([]byte, 20)))
	if !errors.Is(err, exception.ErrUnexpectedEndOfFile) {
		t.Errorf("expected ErrUnexpectedEndOfFile, got %v", err)
	}
}

func TestRaw_MultipleScenes(t *testing.T) {
	info := &codec.ImageInfo{Columns: 2, Rows: 1, Depth: 8}
	images := decode(t, "GRAY", info, []byte{0, 255, 255, 0, 10, 20})
	if len(images) != 3 {
		t.Fatalf("got %d images, want 3", len(images))
	}
	for i, img := range images {
		if img.Scene != i {
			t.Errorf("image %d has scene %d", i, img.Scene)
		}
	}
	if images[1].Get(0, 0, pixel.GrayChannel) != pixel.QuantumRange {
		t.Errorf("scene 1 pixel 0 = %d, want white", images[1].Get(0, 0, pixel.GrayChannel))
	}

	info.Ping = true
	images = decode(t, "GRAY", info, []byte{0, 255, 255, 0})
	if len(images) != 1 || images[0].Columns != 2 {
		t.Errorf("ping returned %d images", len(images))
	}
}

func TestRaw_Mono(t *testing.T) {
	img, _ := pixel.New(8, 1)
	img.SetColorspace(pixel.GrayColorspace)
	for x := 0; x < 8; x += 2 {
		img.Set(x, 0, pixel.GrayChannel, pixel.QuantumRange)
	}
	data := encode(t, "MONO", &codec.ImageInfo{}, img)
	// white is 0 in a min-is-white bitmap
	if !bytes.Equal(data, []byte{0b01010101}) {
		t.Fatalf("encoded %08b, want 01010101", data)
	}
	got := decode(t, "MONO", &codec.ImageInfo{Columns: 8, Rows: 1}, data)
	samePixels(t, got[0], img, pixel.GrayChannel)
	if got[0].Depth != 1 {
		t.Errorf("Depth = %d, want 1", got[0].Depth)
	}
}

func TestRaw_CMYKFromRGB(t *testing.T) {
	img, _ := pixel.New(1, 1)
	img.Set(0, 0, pixel.RedChannel, pixel.QuantumRange)
	data := encode(t, "CMYK", &codec.ImageInfo{Depth: 8}, img)
	if want := []byte{0, 255, 255, 0}; !bytes.Equal(data, want) {
		t.Errorf("red as CMYK = %v, want %v", data, want)
	}
	if img.Colorspace() != pixel.SRGBColorspace {
		t.Error("encoding changed the source colorspace")
	}
}

func TestRaw_Stream(t *testing.T) {
	var rows [][]pixel.Quantum
	info := &codec.ImageInfo{Columns: 2, Rows: 2, Depth: 8}
	info.Stream = func(_ *pixel.Image, p *pixel.Pixels, columns int) int {
		rows = append(rows, append([]pixel.Quantum(nil), p.Row(0)...))
		return columns
	}
	decode(t, "RGB", info, []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12})
	if len(rows) != 2 {
		t.Fatalf("handler saw %d rows, want 2", len(rows))
	}
	if rows[1][0] != 7*257 {
		t.Errorf("row 1 first sample = %d, want %d", rows[1][0], 7*257)
	}
}

func TestMIFF_RoundTrip(t *testing.T) {
	rgb := newRGB(t, 5, 4, true)

	gray, _ := pixel.New(3, 3)
	gray.SetColorspace(pixel.GrayColorspace)
	gray.Depth = 16
	for i := 0; i < 9; i++ {
		gray.Set(i%3, i/3, pixel.GrayChannel, pixel.Quantum(i*7001))
	}

	cmyk, _ := pixel.New(2, 2)
	cmyk.SetColorspace(pixel.CMYKColorspace)
	cmyk.Set(1, 1, pixel.BlackChannel, 200*257)
	cmyk.Set(0, 1, pixel.CyanChannel, 50*257)

	indexed, _ := pixel.New(4, 1)
	indexed.SetStorageClass(pixel.PseudoClass)
	indexed.Colormap = []pixel.Color{pixel.Opaque(0, 0, 0), pixel.Opaque(pixel.QuantumRange, 0, 0), pixel.Opaque(0, 0, pixel.QuantumRange)}
	for x, idx := range []int{2, 0, 1, 2} {
		indexed.Set(x, 0, pixel.IndexChannel, pixel.Quantum(idx))
		c := indexed.Colormap[idx]
		indexed.Set(x, 0, pixel.RedChannel, c.Red)
		indexed.Set(x, 0, pixel.BlueChannel, c.Blue)
	}

	tests := []struct {
		name     string
		img      *pixel.Image
		zstd     bool
		channels []pixel.Channel
	}{
		{"rgba", rgb, false, []pixel.Channel{pixel.RedChannel, pixel.GreenChannel, pixel.BlueChannel, pixel.AlphaChannel}},
		{"rgba zstd", rgb, true, []pixel.Channel{pixel.RedChannel, pixel.GreenChannel, pixel.BlueChannel, pixel.AlphaChannel}},
		{"gray16", gray, false, []pixel.Channel{pixel.GrayChannel}},
		{"cmyk zstd", cmyk, true, []pixel.Channel{pixel.CyanChannel, pixel.MagentaChannel, pixel.YellowChannel, pixel.BlackChannel}},
		{"indexed", indexed, false, []pixel.Channel{pixel.IndexChannel, pixel.RedChannel, pixel.BlueChannel}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := &codec.ImageInfo{}
			if tt.zstd {
				info.SetOption("miff:compression", "zstd")
			}
			data := encode(t, "MIFF", info, tt.img)
			if tag := Default().Sniff(data); tag != "MIFF" {
				t.Errorf("Sniff = %q, want MIFF", tag)
			}
			got := decode(t, "MIFF", &codec.ImageInfo{}, data)
			if len(got) != 1 {
				t.Fatalf("got %d images, want 1", len(got))
			}
			if got[0].Colorspace() != tt.img.Colorspace() || got[0].StorageClass() != tt.img.StorageClass() {
				t.Errorf("decoded %s %s, want %s %s", got[0].Colorspace(), got[0].StorageClass(),
					tt.img.Colorspace(), tt.img.StorageClass())
			}
			samePixels(t, got[0], tt.img, tt.channels...)
		})
	}
}

func TestMIFF_Adjoin(t *testing.T) {
	a, b := newRGB(t, 2, 2, false), newRGB(t, 3, 1, true)
	data := encode(t, "MIFF", &codec.ImageInfo{}, a, b)
	got := decode(t, "MIFF", &codec.ImageInfo{}, data)
	if len(got) != 2 {
		t.Fatalf("got %d images, want 2", len(got))
	}
	if got[1].Scene != 1 || got[1].Columns != 3 || !got[1].Alpha() {
		t.Errorf("second scene = %v", got[1])
	}

	ping := decode(t, "MIFF", &codec.ImageInfo{Ping: true}, data)
	if len(ping) != 1 || ping[0].Columns != 2 {
		t.Errorf("ping returned %d images", len(ping))
	}
}

func TestMIFF_BadHeader(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", ""},
		{"wrong id", "id=Other columns=1 rows=1\f\n:\x1a"},
		{"no geometry", "id=PixelCodec\f\n:\x1a"},
		{"bad depth", "id=PixelCodec columns=1 rows=1 depth=12\f\n:\x1a"},
		{"truncated", "id=PixelCodec columns=1"},
		{"short pixels", "id=PixelCodec columns=2 rows=2\f\n:\x1a\x00\x00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := entry(t, "MIFF").Codec.Decode(context.Background(), &codec.ImageInfo{}, bytes.NewReader([]byte(tt.data)))
			if exception.SeverityOf(err) != exception.CorruptImageError {
				t.Errorf("expected CorruptImageError, got %v", err)
			}
		})
	}
}

// decodeAll decodes data, destroys whatever was decoded and checks that no
// pixel storage outlives the call.
func decodeAll(t *testing.T, tag string, info *codec.ImageInfo, data []byte) error {
	t.Helper()
	base := pixel.Allocated()
	images, err := entry(t, tag).Codec.Decode(context.Background(), info, bytes.NewReader(data))
	if err != nil && !exception.IsWarning(err) && images != nil {
		t.Errorf("%s decode failed with %d images: %v", tag, len(images), err)
	}
	destroyAll(images)
	if leaked := pixel.Allocated() - base; leaked != 0 {
		t.Errorf("%s decode left %d bytes of pixel storage", tag, leaked)
	}
	return err
}

func TestMIFF_HostileHeader(t *testing.T) {
	const term = "\f\n:\x1a"
	short := compressZstd([]byte{1, 2, 3})
	tests := []struct {
		name string
		data string
		want error
	}{
		{"negative length", "id=PixelCodec columns=1 rows=1 compression=Zstd length=-5" + term, exception.ErrImproperImageHeader},
		{"zero length", "id=PixelCodec columns=1 rows=1 compression=Zstd length=0" + term, exception.ErrImproperImageHeader},
		{"oversized length", "id=PixelCodec columns=1 rows=1 compression=Zstd length=1099511627776" + term, exception.ErrImproperImageHeader},
		{"length past input", "id=PixelCodec columns=1 rows=1 compression=Zstd length=9" + term + "abc", exception.ErrUnexpectedEndOfFile},
		{"garbage frame", "id=PixelCodec columns=1 rows=1 compression=Zstd length=4" + term + "abcd", exception.ErrImproperImageHeader},
		{"short frame", fmt.Sprintf("id=PixelCodec columns=2 rows=2 compression=Zstd length=%d%s%s", len(short), term, short), exception.ErrImproperImageHeader},
		{"huge geometry", "id=PixelCodec columns=3037000500 rows=3037000500" + term, exception.ErrMemoryAllocationFailed},
		{"wide geometry", "id=PixelCodec columns=9223372036854775807 rows=2" + term, exception.ErrMemoryAllocationFailed},
		{"geometry overflows int", "id=PixelCodec columns=99999999999999999999 rows=1" + term, exception.ErrImproperImageHeader},
		{"negative rows", "id=PixelCodec columns=4 rows=-4" + term, exception.ErrImproperImageHeader},
		{"unknown compression", "id=PixelCodec columns=1 rows=1 compression=LZW" + term, exception.ErrImproperImageHeader},
		{"too many colors", "id=PixelCodec class=PseudoClass colors=65537 columns=1 rows=1" + term, exception.ErrImproperImageHeader},
		{"colormap past input", "id=PixelCodec class=PseudoClass colors=200 columns=1 rows=1" + term + "\x00", exception.ErrUnexpectedEndOfFile},
		{"field without value", "id=PixelCodec columns" + term, exception.ErrImproperImageHeader},
		{"endless header", "id=PixelCodec " + strings.Repeat("x=y ", maxHeader/4+1), exception.ErrImproperImageHeader},
		{"pixels past input", "id=PixelCodec columns=3 rows=3 depth=16" + term + "\x00\x01", exception.ErrUnexpectedEndOfFile},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := decodeAll(t, "MIFF", &codec.ImageInfo{}, []byte(tt.data)); !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

// Corrupting header bytes of a valid file must only ever produce errors.
func TestMIFF_CorruptedHeaders(t *testing.T) {
	indexed, _ := pixel.New(3, 2)
	indexed.SetStorageClass(pixel.PseudoClass)
	indexed.Colormap = []pixel.Color{pixel.Opaque(0, 0, 0), pixel.Opaque(pixel.QuantumRange, 0, 0)}
	defer indexed.Destroy()
	rgba := newRGB(t, 4, 3, true)
	defer rgba.Destroy()

	compressed := &codec.ImageInfo{}
	compressed.SetOption("miff:compression", "zstd")
	sources := []struct {
		name string
		data []byte
	}{
		{"rgba", encode(t, "MIFF", &codec.ImageInfo{}, rgba)},
		{"zstd", encode(t, "MIFF", compressed, rgba)},
		{"indexed", encode(t, "MIFF", &codec.ImageInfo{}, indexed)},
	}

	rng := rand.New(rand.NewSource(1))
	for _, source := range sources {
		name, src := source.name, source.data
		header := bytes.Index(src, []byte(miffTerminator)) + len(miffTerminator)
		for i := 0; i < 200; i++ {
			data := bytes.Clone(src)
			for n := rng.Intn(4) + 1; n > 0; n-- {
				data[rng.Intn(header)] = byte(rng.Intn(256))
			}
			if rng.Intn(4) == 0 {
				data = data[:rng.Intn(len(data))]
			}
			t.Run(fmt.Sprintf("%s/%d", name, i), func(t *testing.T) {
				decodeAll(t, "MIFF", &codec.ImageInfo{}, data)
			})
		}
	}
}

func TestDecode_ReleasesOnError(t *testing.T) {
	valid := encode(t, "MIFF", &codec.ImageInfo{}, newRGB(t, 2, 2, false))
	second := append(bytes.Clone(valid), valid[:len(valid)-3]...)
	tests := []struct {
		name string
		tag  string
		info *codec.ImageInfo
		data []byte
		want error
	}{
		{"raw short row", "RGB", &codec.ImageInfo{Columns: 4, Rows: 3, Depth: 8}, make([]byte, 30), exception.ErrUnexpectedEndOfFile},
		{"raw second scene short", "GRAY", &codec.ImageInfo{Columns: 2, Rows: 2, Depth: 8}, make([]byte, 6), exception.ErrUnexpectedEndOfFile},
		{"miff short pixels", "MIFF", &codec.ImageInfo{}, valid[:len(valid)-1], exception.ErrUnexpectedEndOfFile},
		{"miff second scene short", "MIFF", &codec.ImageInfo{}, second, exception.ErrUnexpectedEndOfFile},
		{"miff colormap short", "MIFF", &codec.ImageInfo{}, []byte("id=PixelCodec class=PseudoClass colors=4 columns=2 rows=2" + miffTerminator + "\x00\x00"), exception.ErrUnexpectedEndOfFile},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := decodeAll(t, tt.tag, tt.info, tt.data); !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRaw_MemoryLimit(t *testing.T) {
	limited, err := policy.New(nil, map[string]string{policy.MemorySetting: "1KiB"})
	if err != nil {
		t.Fatalf("policy.New: %v", err)
	}
	prev := policy.Default()
	policy.SetDefault(limited)
	defer policy.SetDefault(prev)

	info := &codec.ImageInfo{Columns: 100, Rows: 100, Depth: 8}
	if err := decodeAll(t, "RGB", info, make([]byte, 100*100*3)); !errors.Is(err, exception.ErrMemoryAllocationFailed) {
		t.Errorf("expected ErrMemoryAllocationFailed, got %v", err)
	}
}

func TestMIFF_InvalidIndexWarning(t *testing.T) {
	header := "id=PixelCodec class=PseudoClass colors=1 columns=2 rows=1 depth=8\f\n:\x1a"
	data := append([]byte(header), 9, 9, 9, 0, 5)
	images, err := entry(t, "MIFF").Codec.Decode(context.Background(), &codec.ImageInfo{}, bytes.NewReader(data))
	if !errors.Is(err, exception.ErrInvalidColormapIndex) || !exception.IsWarning(err) {
		t.Fatalf("expected an invalid index warning, got %v", err)
	}
	if len(images) != 1 || images[0].Get(1, 0, pixel.IndexChannel) != 0 {
		t.Errorf("invalid index was not clamped to 0")
	}
}

func TestStandard_RoundTrip(t *testing.T) {
	src := newRGB(t, 6, 5, false)
	for _, tag := range []string{"PNG", "TIFF", "BMP"} {
		t.Run(tag, func(t *testing.T) {
			data := encode(t, tag, &codec.ImageInfo{}, src)
			if got := Default().Sniff(data); got != tag {
				t.Errorf("Sniff = %q, want %s", got, tag)
			}
			got := decode(t, tag, &codec.ImageInfo{}, data)
			if got[0].Magick != tag {
				t.Errorf("Magick = %q", got[0].Magick)
			}
			samePixels(t, got[0], src, pixel.RedChannel, pixel.GreenChannel, pixel.BlueChannel)
		})
	}
}

func TestStandard_JPEGAndPing(t *testing.T) {
	src := newRGB(t, 16, 8, false)
	data := encode(t, "JPEG", &codec.ImageInfo{Quality: 90}, src)
	if Default().Sniff(data) != "JPEG" {
		t.Fatal("JPEG output not recognised")
	}
	images := decode(t, "JPEG", &codec.ImageInfo{Ping: true}, data)
	if images[0].Columns != 16 || images[0].Rows != 8 || images[0].Depth != 8 {
		t.Errorf("ping = %v", images[0])
	}
}

func TestStandard_GIFIsPseudoClass(t *testing.T) {
	src := newRGB(t, 4, 4, false)
	data := encode(t, "GIF", &codec.ImageInfo{}, src)
	images := decode(t, "GIF", &codec.ImageInfo{}, data)
	if images[0].StorageClass() != pixel.PseudoClass || len(images[0].Colormap) == 0 {
		t.Errorf("GIF decoded as %s with %d colors", images[0].StorageClass(), len(images[0].Colormap))
	}
}

func TestWebP_DecodeOnly(t *testing.T) {
	e := entry(t, "WEBP")
	if e.CanEncode() || !e.CanDecode() {
		t.Errorf("WEBP CanEncode=%t CanDecode=%t", e.CanEncode(), e.CanDecode())
	}
	err := e.Codec.Encode(context.Background(), &codec.ImageInfo{}, &bytes.Buffer{}, []*pixel.Image{newRGB(t, 1, 1, false)})
	if !errors.Is(err, exception.ErrNoEncodeDelegate) {
		t.Errorf("expected ErrNoEncodeDelegate, got %v", err)
	}
	if !e.Magic([]byte("RIFF\x00\x00\x00\x00WEBPVP8 ")) {
		t.Error("WebP magic not recognised")
	}
}

func TestRegistry_Builtins(t *testing.T) {
	for _, tag := range []string{"GRAY", "MONO", "RGB", "CMYKA", "YCBCR", "K", "PNG", "JPEG", "GIF", "TIFF", "BMP", "WEBP", "MIFF"} {
		if _, ok := Default().Lookup(tag); !ok {
			t.Errorf("%s is not registered", tag)
		}
	}
	if got := Default().ByExtension("photo.JPG"); got != "JPEG" {
		t.Errorf("ByExtension(photo.JPG) = %q", got)
	}
}
