package stream

import (
	"unsafe"

	"github.com/ironsheep/pixelcodec/internal/pixel"
)

func unsafeBytes(words []uint64) []byte {
	if len(words) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&words[0])), len(words)*8)
}

// quanta views an aligned byte buffer as quantum values.
func quanta(buf []byte, n int) []pixel.Quantum {
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*pixel.Quantum)(unsafe.Pointer(&buf[0])), n)
}

const quantumSize = int(unsafe.Sizeof(pixel.Quantum(0)))
