package quantum

// masks[w] keeps the low w bits of a value.
var masks = func() (m [65]uint64) {
	for w := 1; w < 64; w++ {
		m[w] = 1<<uint(w) - 1
	}
	m[64] = ^uint64(0)
	return m
}()

// State is the bit accumulator carried from sample to sample within one
// scanline.
//
// In bitstream mode (unit 8, packed) a sample of width w is split across
// bytes MSB first: each step moves min(w, room in the current byte) bits,
// and a full byte is emitted immediately. In unit mode (word aligned) whole
// samples are appended to a unit of 8, 16, 32 or 64 bits; when the next
// sample would not fit, the unit is emitted left aligned with its unused low
// bits zero.
type State struct {
	pixel uint64 // accumulated bits, most recent in the low positions
	bits  uint   // number of bits held
}

// Reset empties the accumulator.
func (s *State) Reset() {
	s.pixel = 0
	s.bits = 0
}

// Empty reports whether no bits are held.
func (s *State) Empty() bool { return s.bits == 0 }

// bitWriter drives a State over an output buffer.
type bitWriter struct {
	st     *State
	dst    []byte
	off    int
	unit   uint // 8 in bitstream mode
	stream bool
	little bool
}

// put appends the low depth bits of v.
func (w *bitWriter) put(v uint64, depth uint) {
	st := w.st
	if w.stream {
		for depth > 0 {
			room := 8 - st.bits
			take := min(depth, room)
			st.pixel = st.pixel<<take | (v>>(depth-take))&masks[take]
			st.bits += take
			depth -= take
			if st.bits == 8 {
				w.dst[w.off] = byte(st.pixel)
				w.off++
				st.Reset()
			}
		}
		return
	}
	if st.bits+depth > w.unit {
		w.flush()
	}
	st.pixel = st.pixel<<depth | v&masks[depth]
	st.bits += depth
	if st.bits+depth > w.unit {
		w.flush()
	}
}

// flush emits a partially filled byte or unit, zero padded on the right.
func (w *bitWriter) flush() {
	st := w.st
	if st.bits == 0 {
		return
	}
	if w.stream {
		w.dst[w.off] = byte(st.pixel << (8 - st.bits))
		w.off++
		st.Reset()
		return
	}
	v := st.pixel << (w.unit - st.bits)
	w.off += putUnit(w.dst[w.off:], v, int(w.unit/8), w.little)
	st.Reset()
}

// skip writes n zero bytes.
func (w *bitWriter) skip(n int) {
	clear(w.dst[w.off : w.off+n])
	w.off += n
}

// bitReader is the mirror of bitWriter.
type bitReader struct {
	st     *State
	src    []byte
	off    int
	unit   uint
	stream bool
	little bool
}

// get reads the next sample of depth bits.
func (r *bitReader) get(depth uint) uint64 {
	st := r.st
	if r.stream {
		var v uint64
		for depth > 0 {
			if st.bits == 0 {
				st.pixel = uint64(r.src[r.off])
				st.bits = 8
				r.off++
			}
			take := min(depth, st.bits)
			v = v<<take | (st.pixel>>(st.bits-take))&masks[take]
			st.bits -= take
			depth -= take
		}
		return v
	}
	if st.bits < depth {
		n := int(r.unit / 8)
		st.pixel = getUnit(r.src[r.off:r.off+n], r.little)
		st.bits = r.unit
		r.off += n
	}
	st.bits -= depth
	return (st.pixel >> st.bits) & masks[depth]
}

// align drops whatever is left of the current byte or unit.
func (r *bitReader) align() { r.st.Reset() }

// putUnit stores the low n bytes of v in the given byte order.
func putUnit(dst []byte, v uint64, n int, little bool) int {
	for i := 0; i < n; i++ {
		b := byte(v >> (8 * uint(n-1-i)))
		if little {
			dst[n-1-i] = b
		} else {
			dst[i] = b
		}
	}
	return n
}

// getUnit loads an n byte unit in the given byte order.
func getUnit(src []byte, little bool) uint64 {
	var v uint64
	n := len(src)
	for i := 0; i < n; i++ {
		if little {
			v = v<<8 | uint64(src[n-1-i])
		} else {
			v = v<<8 | uint64(src[i])
		}
	}
	return v
}
