package hw

import "sync/atomic"

// FIFO is a single-producer, single-consumer byte ring. The producer side is
// whatever feeds the peripheral (a test, a serial bridge goroutine); the
// consumer side is the peripheral itself. Indices are monotonic; the mask
// requires a power-of-two size.
type FIFO struct {
	buf  []byte
	mask uint32
	rd   atomic.Uint32 // consumer index
	wr   atomic.Uint32 // producer index
}

func NewFIFO(size int) *FIFO {
	if size < 2 || (size&(size-1)) != 0 {
		panic("hw: FIFO size must be power of two >= 2")
	}
	return &FIFO{buf: make([]byte, size), mask: uint32(size - 1)}
}

func (f *FIFO) size() uint32 { return uint32(len(f.buf)) }

// Used returns the number of bytes waiting to be consumed.
func (f *FIFO) Used() int {
	return int(f.wr.Load() - f.rd.Load())
}

// Space returns the free capacity.
func (f *FIFO) Space() int {
	return int(f.size() - (f.wr.Load() - f.rd.Load()))
}

// WriteFrom copies as much of src as fits and returns the count.
func (f *FIFO) WriteFrom(src []byte) (n int) {
	if len(src) == 0 {
		return 0
	}
	rd := f.rd.Load()
	wr := f.wr.Load()
	space := int(f.size() - (wr - rd))
	if space <= 0 {
		return 0
	}
	if len(src) < space {
		space = len(src)
	}
	n = space

	wrIdx := wr & f.mask
	first := int(f.size() - wrIdx)
	if first > n {
		first = n
	}
	copy(f.buf[wrIdx:wrIdx+uint32(first)], src[:first])
	if second := n - first; second > 0 {
		copy(f.buf[:second], src[first:n])
	}
	f.wr.Store(wr + uint32(n)) // publish
	return n
}

// ReadInto copies up to len(dst) bytes out and returns the count.
func (f *FIFO) ReadInto(dst []byte) (n int) {
	if len(dst) == 0 {
		return 0
	}
	rd := f.rd.Load()
	wr := f.wr.Load()
	avail := int(wr - rd)
	if avail <= 0 {
		return 0
	}
	if len(dst) < avail {
		avail = len(dst)
	}
	n = avail

	rdIdx := rd & f.mask
	first := int(f.size() - rdIdx)
	if first > n {
		first = n
	}
	copy(dst[:first], f.buf[rdIdx:rdIdx+uint32(first)])
	if second := n - first; second > 0 {
		copy(dst[first:n], f.buf[:second])
	}
	f.rd.Store(rd + uint32(n)) // publish consumption
	return n
}

// PutByte stores one byte. Returns false when full.
func (f *FIFO) PutByte(b byte) bool {
	var one [1]byte
	one[0] = b
	return f.WriteFrom(one[:]) == 1
}

// GetByte removes one byte. Returns false when empty.
func (f *FIFO) GetByte() (byte, bool) {
	var one [1]byte
	if f.ReadInto(one[:]) != 1 {
		return 0, false
	}
	return one[0], true
}
