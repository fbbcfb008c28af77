package stream

import (
	"errors"
	"image"
	"sync"
	"testing"

	"github.com/ironsheep/pixelcodec/internal/exception"
	"github.com/ironsheep/pixelcodec/internal/pixel"
	"github.com/ironsheep/pixelcodec/internal/policy"
)

func newTestImage(t *testing.T, columns, rows int) *pixel.Image {
	t.Helper()
	img, err := pixel.New(columns, rows)
	if err != nil {
		t.Fatalf("pixel.New: %v", err)
	}
	img.Filename = "stream.raw"
	return img
}

func TestStream_Geometry(t *testing.T) {
	img := newTestImage(t, 8, 4)
	calls := 0
	s := New(img, func(*pixel.Image, *pixel.Pixels, int) int { calls++; return 0 }, Supply)
	defer s.Destroy()

	for _, r := range []image.Rectangle{
		image.Rect(-1, 0, 4, 1),
		image.Rect(0, -1, 4, 1),
		image.Rect(5, 0, 9, 1),
		image.Rect(0, 3, 8, 5),
		image.Rect(2, 2, 2, 3),
	} {
		if _, err := s.Get(r); !errors.Is(err, exception.ErrStreamGeometry) {
			t.Errorf("Get(%v): expected ErrStreamGeometry, got %v", r, err)
		}
		if _, err := s.Queue(r); !errors.Is(err, exception.ErrStreamGeometry) {
			t.Errorf("Queue(%v): expected ErrStreamGeometry, got %v", r, err)
		}
	}
	if calls != 0 {
		t.Errorf("handler called %d times for rejected regions", calls)
	}
	if s.rec.allocs != 0 || s.rec.buf != nil {
		t.Error("rejected regions must not allocate")
	}
}

func TestStream_NoHandler(t *testing.T) {
	s := New(newTestImage(t, 2, 2), nil, Receive)
	defer s.Destroy()

	if _, err := s.Get(image.Rect(0, 0, 2, 1)); !errors.Is(err, exception.ErrNoStreamHandler) {
		t.Errorf("Get: expected ErrNoStreamHandler, got %v", err)
	}
	if _, err := s.Queue(image.Rect(0, 0, 2, 1)); !errors.Is(err, exception.ErrNoStreamHandler) {
		t.Errorf("Queue: expected ErrNoStreamHandler, got %v", err)
	}
	if err := s.Sync(); !errors.Is(err, exception.ErrNoStreamHandler) {
		t.Errorf("Sync: expected ErrNoStreamHandler, got %v", err)
	}
}

func TestStream_ReceiveRows(t *testing.T) {
	img := newTestImage(t, 3, 2)
	var got [][]pixel.Quantum
	s := New(img, func(_ *pixel.Image, p *pixel.Pixels, columns int) int {
		got = append(got, append([]pixel.Quantum(nil), p.Row(0)...))
		return columns
	}, Receive)
	defer s.Destroy()

	for y := 0; y < 2; y++ {
		p, err := s.Queue(image.Rect(0, y, 3, y+1))
		if err != nil {
			t.Fatalf("Queue: %v", err)
		}
		for i := range p.Pix {
			p.Pix[i] = pixel.Quantum(y*100 + i)
		}
		if err := s.Sync(); err != nil {
			t.Fatalf("Sync: %v", err)
		}
	}
	if len(got) != 2 || got[1][0] != 100 || got[1][8] != 108 {
		t.Errorf("handler saw %v", got)
	}
	if img.Get(0, 1, pixel.RedChannel) != 0 {
		t.Error("streamed pixels must not reach image storage")
	}
}

func TestStream_SupplyAndShortWrite(t *testing.T) {
	img := newTestImage(t, 4, 1)
	s := New(img, func(_ *pixel.Image, p *pixel.Pixels, columns int) int {
		for i := range p.Pix {
			p.Pix[i] = pixel.QuantumRange
		}
		return columns
	}, Supply)
	defer s.Destroy()

	p, err := s.Get(image.Rect(0, 0, 4, 1))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if p.Pix[11] != pixel.QuantumRange {
		t.Error("handler did not fill the region")
	}

	short := New(img, func(_ *pixel.Image, _ *pixel.Pixels, columns int) int { return columns - 1 }, Supply)
	defer short.Destroy()
	if _, err := short.Get(image.Rect(0, 0, 4, 1)); !errors.Is(err, exception.ErrShortWrite) {
		t.Errorf("expected ErrShortWrite, got %v", err)
	}

	receive := New(img, func(_ *pixel.Image, _ *pixel.Pixels, _ int) int { return 0 }, Receive)
	defer receive.Destroy()
	if _, err := receive.Queue(image.Rect(0, 0, 4, 1)); err != nil {
		t.Fatalf("Queue: %v", err)
	}
	if err := receive.Sync(); !errors.Is(err, exception.ErrShortWrite) {
		t.Errorf("expected ErrShortWrite from Sync, got %v", err)
	}
}

func TestStream_BufferReuse(t *testing.T) {
	img := newTestImage(t, 16, 16)
	s := New(img, func(_ *pixel.Image, _ *pixel.Pixels, columns int) int { return columns }, Receive)
	defer s.Destroy()

	first, err := s.Queue(image.Rect(0, 0, 8, 2))
	if err != nil {
		t.Fatalf("Queue: %v", err)
	}
	held := &first.Pix[0]

	second, err := s.Queue(image.Rect(0, 4, 16, 5))
	if err != nil {
		t.Fatalf("Queue: %v", err)
	}
	if &second.Pix[0] != held || s.rec.allocs != 1 {
		t.Errorf("an equal footprint must reuse the buffer (allocations %d)", s.rec.allocs)
	}
	smaller, _ := s.Queue(image.Rect(0, 0, 1, 1))
	if &smaller.Pix[0] != held || s.rec.allocs != 1 {
		t.Error("a smaller region must reuse the buffer")
	}

	larger, err := s.Queue(image.Rect(0, 0, 16, 3))
	if err != nil {
		t.Fatalf("Queue: %v", err)
	}
	if s.rec.allocs != 2 {
		t.Errorf("a larger region must reallocate exactly once, allocations %d", s.rec.allocs)
	}
	if len(larger.Pix) != 16*3*3 {
		t.Errorf("len(Pix) = %d", len(larger.Pix))
	}
}

func TestStream_Metacontent(t *testing.T) {
	img := newTestImage(t, 4, 4)
	s := New(img, func(_ *pixel.Image, _ *pixel.Pixels, columns int) int { return columns }, Receive)
	defer s.Destroy()
	s.SetMetacontentExtent(2)

	r := image.Rect(0, 0, 4, 1)
	if got, want := s.Footprint(r), 4*3*2+4*2; got != want {
		t.Errorf("Footprint = %d, want %d", got, want)
	}
	p, err := s.Queue(r)
	if err != nil {
		t.Fatalf("Queue: %v", err)
	}
	if len(p.Metacontent) != 8 {
		t.Errorf("len(Metacontent) = %d, want 8", len(p.Metacontent))
	}
}

func TestStream_MemoryLimit(t *testing.T) {
	img := newTestImage(t, 8, 1)
	limited, err := policy.New(nil, map[string]string{policy.MemorySetting: "16B"})
	if err != nil {
		t.Fatalf("policy.New: %v", err)
	}
	prev := policy.Default()
	policy.SetDefault(limited)
	defer policy.SetDefault(prev)

	s := New(img, func(_ *pixel.Image, _ *pixel.Pixels, columns int) int { return columns }, Receive)
	defer s.Destroy()
	if _, err := s.Queue(image.Rect(0, 0, 8, 1)); !errors.Is(err, exception.ErrMemoryAllocationFailed) {
		t.Errorf("expected ErrMemoryAllocationFailed, got %v", err)
	}
}

func TestStream_ReferenceCounting(t *testing.T) {
	s := New(newTestImage(t, 4, 4), func(_ *pixel.Image, _ *pixel.Pixels, columns int) int { return columns }, Receive)
	if _, err := s.Queue(image.Rect(0, 0, 4, 4)); err != nil {
		t.Fatalf("Queue: %v", err)
	}
	rec := s.rec

	var wg sync.WaitGroup
	refs := make([]*Stream, 8)
	for i := range refs {
		refs[i] = s.Reference()
	}
	for _, r := range refs {
		wg.Add(1)
		go func(r *Stream) {
			defer wg.Done()
			r.Destroy()
		}(r)
	}
	wg.Wait()

	if rec.buf == nil {
		t.Fatal("buffer freed while a reference remains")
	}
	s.Destroy()
	if rec.buf != nil || rec.refs != 0 {
		t.Errorf("buffer should be freed with the last reference (refs %d)", rec.refs)
	}
	s.Destroy()
}

func TestStream_UseAfterDestroy(t *testing.T) {
	r := image.Rect(0, 0, 2, 1)
	tests := []struct {
		name string
		use  func(s *Stream) error
	}{
		{"get", func(s *Stream) error { _, err := s.Get(r); return err }},
		{"queue", func(s *Stream) error { _, err := s.Queue(r); return err }},
		{"sync", func(s *Stream) error { return s.Sync() }},
		{"reference", func(s *Stream) error { _, err := s.Reference().Queue(r); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(newTestImage(t, 2, 1), func(_ *pixel.Image, _ *pixel.Pixels, columns int) int { return columns }, Supply)
			if _, err := s.Get(r); err != nil {
				t.Fatalf("Get: %v", err)
			}
			s.Destroy()
			if err := tt.use(s); !errors.Is(err, exception.ErrStreamDestroyed) {
				t.Errorf("expected ErrStreamDestroyed, got %v", err)
			}
			s.Destroy()
		})
	}
}

func TestMemory(t *testing.T) {
	img := newTestImage(t, 2, 2)
	clone := img.Clone()
	defer clone.Destroy()

	var c Cache = Memory(img)
	p, err := c.Queue(image.Rect(1, 1, 2, 2))
	if err != nil {
		t.Fatalf("Queue: %v", err)
	}
	p.Pix[0] = 42
	if err := c.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if img.Get(1, 1, pixel.RedChannel) != 42 {
		t.Error("memory cache writes go to image storage")
	}
	if clone.Get(1, 1, pixel.RedChannel) != 0 {
		t.Error("writes must not leak into a clone")
	}
	if _, err := c.Get(image.Rect(0, 0, 3, 1)); !errors.Is(err, exception.ErrGeometryOutOfBounds) {
		t.Errorf("expected ErrGeometryOutOfBounds, got %v", err)
	}
}
