package stream

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/ironsheep/pixelcodec/internal/exception"
	"github.com/ironsheep/pixelcodec/internal/policy"
)

var (
	backendOnce sync.Once
	anonymous   bool
)

// useMemoryMap reports whether stream buffers are anonymous memory maps.
// The policy is consulted once per process.
func useMemoryMap() bool {
	backendOnce.Do(func() {
		anonymous = strings.EqualFold(policy.Default().Value(policy.MemoryMapSetting), "anonymous")
		slog.Debug("stream: buffer backend selected", "anonymous", anonymous)
	})
	return anonymous
}

// record owns the buffer of a stream and is shared by its references.
type record struct {
	mu     sync.Mutex
	refs   int
	buf    []byte
	mapped bool
	allocs int
}

func newRecord() *record { return &record{refs: 1} }

// acquire makes the buffer hold at least n bytes. A buffer that is already
// large enough is kept; otherwise it is released and replaced.
func (r *record) acquire(n int) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n <= len(r.buf) {
		return r.buf[:n], nil
	}
	if err := policy.Default().CheckMemory(uint64(n)); err != nil {
		return nil, err
	}
	r.free()

	if useMemoryMap() {
		buf, err := mapAnonymous(n)
		if err == nil {
			r.buf, r.mapped = buf, true
			r.allocs++
			return r.buf, nil
		}
		slog.Debug("stream: memory map failed, using the heap", "bytes", n, "error", err)
	}
	buf, err := allocate(n)
	if err != nil {
		return nil, err
	}
	r.buf, r.mapped = buf, false
	r.allocs++
	return r.buf, nil
}

func allocate(n int) (buf []byte, err error) {
	defer func() {
		if recover() != nil {
			buf, err = nil, exception.Newf(exception.ResourceLimitError,
				exception.ErrMemoryAllocationFailed, "%d bytes", n)
		}
	}()
	// 8-byte words keep the buffer aligned for any sample type.
	words := make([]uint64, (n+7)/8)
	return unsafeBytes(words)[:n], nil
}

func (r *record) free() {
	if r.buf == nil {
		return
	}
	if r.mapped {
		if err := unmap(r.buf); err != nil {
			slog.Warn("stream: unmap failed", "error", err)
		}
	}
	r.buf, r.mapped = nil, false
}

func (r *record) reference() {
	r.mu.Lock()
	r.refs++
	r.mu.Unlock()
}

// release drops one reference and frees the buffer with the last one.
func (r *record) release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refs--
	if r.refs == 0 {
		r.free()
	}
}
