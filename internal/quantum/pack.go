package quantum

import "math"

// rowPacker writes one scanline of integer samples, per samples to a
// group, and returns the number of bytes written.
type rowPacker func(q *Info, dst []byte, vals []uint64, per int) int

// rowUnpacker is the inverse of rowPacker. It fills vals and returns the
// number of bytes consumed.
type rowUnpacker func(q *Info, src []byte, vals []uint64, per int) int

// packer returns the dedicated packer for the configuration, or the
// generic one.
func (q *Info) packer() rowPacker {
	if p := q.fastPacker(); p != nil {
		return p
	}
	return packGeneric
}

func (q *Info) unpacker() rowUnpacker {
	if u := q.fastUnpacker(); u != nil {
		return u
	}
	return unpackGeneric
}

func (q *Info) fastPacker() rowPacker {
	switch d := q.Depth(); {
	case d == 8:
		return pack8
	case d == 16:
		return pack16
	case d == 32:
		return pack32
	case d == 64:
		return pack64
	case q.pad != 0:
		return nil
	case d == 1:
		return pack1
	case d == 4:
		return pack4
	case d == 10 && !q.pack:
		return pack10Words
	case d == 12 && !q.pack:
		return pack12Units
	}
	return nil
}

func (q *Info) fastUnpacker() rowUnpacker {
	switch d := q.Depth(); {
	case d == 8:
		return unpack8
	case d == 16:
		return unpack16
	case d == 32:
		return unpack32
	case d == 64:
		return unpack64
	case q.pad != 0:
		return nil
	case d == 1:
		return unpack1
	case d == 4:
		return unpack4
	case d == 10 && !q.pack:
		return unpack10Words
	case d == 12 && !q.pack:
		return unpack12Units
	}
	return nil
}

// packGeneric handles every depth through the bit accumulator.
func packGeneric(q *Info, dst []byte, vals []uint64, per int) int {
	d := q.Depth()
	q.state.Reset()
	w := bitWriter{st: &q.state, dst: dst, unit: q.unit(), stream: q.pack, little: q.little()}
	for g := 0; g < len(vals); g += per {
		for _, v := range vals[g : g+per] {
			if d%8 == 0 {
				w.off += putUnit(w.dst[w.off:], v, int(d/8), w.little)
				continue
			}
			w.put(v, d)
		}
		if q.pad > 0 {
			w.flush()
			w.skip(q.pad)
		}
	}
	w.flush()
	return w.off
}

func unpackGeneric(q *Info, src []byte, vals []uint64, per int) int {
	d := q.Depth()
	q.state.Reset()
	r := bitReader{st: &q.state, src: src, unit: q.unit(), stream: q.pack, little: q.little()}
	for g := 0; g < len(vals); g += per {
		for i := g; i < g+per; i++ {
			if d%8 == 0 {
				n := int(d / 8)
				vals[i] = getUnit(r.src[r.off:r.off+n], r.little)
				r.off += n
				continue
			}
			vals[i] = r.get(d)
		}
		if q.pad > 0 {
			r.align()
			r.off += q.pad
		}
	}
	r.align()
	return r.off
}

func pack1(_ *Info, dst []byte, vals []uint64, _ int) int {
	n := 0
	for i := 0; i < len(vals); i += 8 {
		var b byte
		for j := 0; j < 8 && i+j < len(vals); j++ {
			b |= byte(vals[i+j]&1) << (7 - j)
		}
		dst[n] = b
		n++
	}
	return n
}

func unpack1(_ *Info, src []byte, vals []uint64, _ int) int {
	for i := range vals {
		vals[i] = uint64(src[i/8]>>(7-i%8)) & 1
	}
	return (len(vals) + 7) / 8
}

func pack4(_ *Info, dst []byte, vals []uint64, _ int) int {
	n := 0
	for i := 0; i < len(vals); i += 2 {
		b := byte(vals[i]&0x0f) << 4
		if i+1 < len(vals) {
			b |= byte(vals[i+1] & 0x0f)
		}
		dst[n] = b
		n++
	}
	return n
}

func unpack4(_ *Info, src []byte, vals []uint64, _ int) int {
	for i := range vals {
		b := src[i/2]
		if i%2 == 0 {
			b >>= 4
		}
		vals[i] = uint64(b & 0x0f)
	}
	return (len(vals) + 1) / 2
}

func pack8(q *Info, dst []byte, vals []uint64, per int) int {
	n := 0
	for g := 0; g < len(vals); g += per {
		for _, v := range vals[g : g+per] {
			dst[n] = byte(v)
			n++
		}
		n += zero(dst[n:], q.pad)
	}
	return n
}

func unpack8(q *Info, src []byte, vals []uint64, per int) int {
	n := 0
	for g := 0; g < len(vals); g += per {
		for i := g; i < g+per; i++ {
			vals[i] = uint64(src[n])
			n++
		}
		n += q.pad
	}
	return n
}

func pack16(q *Info, dst []byte, vals []uint64, per int) int {
	order, n := q.order(), 0
	for g := 0; g < len(vals); g += per {
		for _, v := range vals[g : g+per] {
			order.PutUint16(dst[n:], uint16(v))
			n += 2
		}
		n += zero(dst[n:], q.pad)
	}
	return n
}

func unpack16(q *Info, src []byte, vals []uint64, per int) int {
	order, n := q.order(), 0
	for g := 0; g < len(vals); g += per {
		for i := g; i < g+per; i++ {
			vals[i] = uint64(order.Uint16(src[n:]))
			n += 2
		}
		n += q.pad
	}
	return n
}

func pack32(q *Info, dst []byte, vals []uint64, per int) int {
	order, n := q.order(), 0
	for g := 0; g < len(vals); g += per {
		for _, v := range vals[g : g+per] {
			order.PutUint32(dst[n:], uint32(v))
			n += 4
		}
		n += zero(dst[n:], q.pad)
	}
	return n
}

func unpack32(q *Info, src []byte, vals []uint64, per int) int {
	order, n := q.order(), 0
	for g := 0; g < len(vals); g += per {
		for i := g; i < g+per; i++ {
			vals[i] = uint64(order.Uint32(src[n:]))
			n += 4
		}
		n += q.pad
	}
	return n
}

func pack64(q *Info, dst []byte, vals []uint64, per int) int {
	order, n := q.order(), 0
	for g := 0; g < len(vals); g += per {
		for _, v := range vals[g : g+per] {
			order.PutUint64(dst[n:], v)
			n += 8
		}
		n += zero(dst[n:], q.pad)
	}
	return n
}

func unpack64(q *Info, src []byte, vals []uint64, per int) int {
	order, n := q.order(), 0
	for g := 0; g < len(vals); g += per {
		for i := g; i < g+per; i++ {
			vals[i] = order.Uint64(src[n:])
			n += 8
		}
		n += q.pad
	}
	return n
}

// pack10Words stores three 10-bit samples per 32-bit word, left aligned.
func pack10Words(q *Info, dst []byte, vals []uint64, _ int) int {
	order, n := q.order(), 0
	for i := 0; i < len(vals); i += 3 {
		var word uint32
		for j := 0; j < 3; j++ {
			word <<= 10
			if i+j < len(vals) {
				word |= uint32(vals[i+j] & 0x3ff)
			}
		}
		order.PutUint32(dst[n:], word<<2)
		n += 4
	}
	return n
}

func unpack10Words(q *Info, src []byte, vals []uint64, _ int) int {
	order, n := q.order(), 0
	for i := 0; i < len(vals); i += 3 {
		word := order.Uint32(src[n:])
		n += 4
		for j := 0; j < 3 && i+j < len(vals); j++ {
			vals[i+j] = uint64(word>>(22-10*uint(j))) & 0x3ff
		}
	}
	return n
}

// pack12Units stores one 12-bit sample per 16-bit unit, shifted left 4.
func pack12Units(q *Info, dst []byte, vals []uint64, _ int) int {
	order, n := q.order(), 0
	for _, v := range vals {
		order.PutUint16(dst[n:], uint16(v&0xfff)<<4)
		n += 2
	}
	return n
}

func unpack12Units(q *Info, src []byte, vals []uint64, _ int) int {
	order, n := q.order(), 0
	for i := range vals {
		vals[i] = uint64(order.Uint16(src[n:]) >> 4)
		n += 2
	}
	return n
}

// packFloats writes floating point samples of 16, 32 or 64 bits.
func packFloats(q *Info, dst []byte, vals []float64, per int) int {
	d, little, n := q.Depth(), q.little(), 0
	for g := 0; g < len(vals); g += per {
		for _, f := range vals[g : g+per] {
			n += putFloat(dst[n:], f, d, little)
		}
		n += zero(dst[n:], q.pad)
	}
	return n
}

func unpackFloats(q *Info, src []byte, vals []float64, per int) int {
	d, little, n := q.Depth(), q.little(), 0
	size := int(d / 8)
	for g := 0; g < len(vals); g += per {
		for i := g; i < g+per; i++ {
			f := getFloat(src[n:], d, little)
			if math.IsNaN(f) {
				f = 0
			}
			vals[i] = f
			n += size
		}
		n += q.pad
	}
	return n
}

func zero(dst []byte, n int) int {
	clear(dst[:n])
	return n
}
