package hw

import "sync"

// RegisterFile is a simulated register-oriented bus peripheral, the shape
// shared by port expanders and most sensors: the first byte of a write sets
// the register pointer, further bytes write registers in sequence, and reads
// return registers from the pointer onward, auto-incrementing.
type RegisterFile struct {
	mu      sync.Mutex
	regs    [256]byte
	pointer byte
	started bool // register pointer already latched for this transaction
}

func NewRegisterFile() *RegisterFile {
	return &RegisterFile{}
}

// Poke sets a register directly, bypassing the bus.
func (r *RegisterFile) Poke(reg, val byte) {
	r.mu.Lock()
	r.regs[reg] = val
	r.mu.Unlock()
}

// Peek reads a register directly, bypassing the bus.
func (r *RegisterFile) Peek(reg byte) byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.regs[reg]
}

// Select implements Peripheral.
func (r *RegisterFile) Select(read bool) bool {
	r.mu.Lock()
	if !read {
		r.started = false
	}
	r.mu.Unlock()
	return true
}

// WriteByte implements Peripheral.
func (r *RegisterFile) WriteByte(b byte) bool {
	r.mu.Lock()
	if !r.started {
		r.pointer = b
		r.started = true
	} else {
		r.regs[r.pointer] = b
		r.pointer++
	}
	r.mu.Unlock()
	return true
}

// ReadByte implements Peripheral.
func (r *RegisterFile) ReadByte() byte {
	r.mu.Lock()
	b := r.regs[r.pointer]
	r.pointer++
	r.mu.Unlock()
	return b
}
