// Package uart implements the queued, interrupt-driven serial driver.
//
// Transmit requests (strings and integers) are claimed from a fixed pool of
// 32 slots and linked into a FIFO queue; the interrupt loop drains the queue
// one byte per data-register-empty event, running the head slot's per-kind
// byte producer until it reports completion, then returning the slot to the
// free list. The queue never copies payload bytes. When the queue empties the
// transmit interrupt is masked until new work arrives.
//
// Enqueue calls may come from any goroutine, so the queue and pool are
// guarded by a mutex; the interrupt loop remains the sole consumer and the
// only path that releases slots.
package uart

import (
	"context"
	"sync"

	"mcucode-go/errcode"
	"mcucode-go/hw"
)

// PoolSize is the fixed transmit queue capacity, in requests.
const PoolSize = 32

// Base selects the integer representation for TransmitInt.
type Base uint8

const (
	Decimal Base = 10
	Hex     Base = 16
)

const digitMap = "0123456789ABCDEF"

// kind tags which byte producer drains a slot. The zero value marks the slot
// as free; a slot's kind is non-zero exactly while it is off the free list.
type kind uint8

const (
	kindFree kind = iota
	kindString
	kindDecimal
	kindHex
)

type slot struct {
	kind   kind
	text   string // string payload
	pos    int    // cursor into text
	number int32  // integer payload (widened so negation cannot overflow)
	next   *slot  // free list or queue link, never both
}

// Driver owns one USART peripheral.
type Driver struct {
	hw *hw.USART

	mu       sync.Mutex
	pool     [PoolSize]slot
	head     *slot
	tail     *slot
	freeList *slot

	// Shared digit scratch state, reused across all integer requests. Safe
	// only because the single interrupt consumer never interleaves two
	// requests mid-digit-stream.
	digitMask uint16
	shiftBits uint16

	// One-byte receive mailbox.
	recvData byte
	gotChar  bool

	rxNotify chan struct{}
	drained  chan struct{}
}

func New(u *hw.USART) *Driver {
	return &Driver{
		hw:       u,
		rxNotify: make(chan struct{}, 1),
		drained:  make(chan struct{}, 1),
	}
}

// Init programs the line (8 data bits, 2 stop bits at the given baud rate),
// resets the pool, queue and receive mailbox, and unmasks the receive
// interrupt. The transmit interrupt stays masked until something is queued.
func (d *Driver) Init(baud uint32) {
	d.hw.Configure(baud)

	d.mu.Lock()
	d.head = nil
	d.tail = nil
	d.freeList = nil
	for i := range d.pool {
		s := &d.pool[i]
		s.kind = kindFree
		s.text = ""
		s.next = d.freeList
		d.freeList = s
	}
	d.digitMask = 0
	d.shiftBits = 0
	d.recvData = 0
	d.gotChar = false
	d.mu.Unlock()

	d.hw.DisableTXInterrupt()
	d.hw.EnableRXInterrupt()
}

// Start launches the interrupt loop: a single consumer servicing the
// peripheral's transmit-ready and receive-complete lines, one unit of work
// per event.
func (d *Driver) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-d.hw.TxReady():
				d.onDataRegisterEmpty()
			case <-d.hw.RxReady():
				d.onRxComplete()
			}
		}
	}()
}

// TransmitString queues a string for transmission and returns the number of
// bytes accepted. The request is dropped with errcode.QueueFull when the
// pool is exhausted. Non-blocking.
func (d *Driver) TransmitString(text string) (int, error) {
	d.mu.Lock()
	s := d.allocate()
	if s == nil {
		d.mu.Unlock()
		return 0, errcode.QueueFull
	}
	s.kind = kindString
	s.text = text
	s.pos = 0
	d.enqueue(s)
	d.mu.Unlock()

	d.hw.EnableTXInterrupt()
	return len(text), nil
}

// TransmitInt queues an integer for transmission. Decimal output is the
// canonical minimal-digit form with a leading '-' for negatives; hex output
// is a literal "0x" followed by exactly 4 uppercase digits, zero-padded.
// Non-blocking; errcode.QueueFull when the pool is exhausted.
func (d *Driver) TransmitInt(value int16, base Base) error {
	if base == Hex {
		// The prefix travels through the queue as an ordinary string
		// request ahead of the digit stream.
		if _, err := d.TransmitString("0x"); err != nil {
			return err
		}
	}

	d.mu.Lock()
	s := d.allocate()
	if s == nil {
		d.mu.Unlock()
		return errcode.QueueFull
	}
	if base == Hex {
		s.kind = kindHex
		s.number = int32(uint16(value))
	} else {
		s.kind = kindDecimal
		s.number = int32(value)
	}
	d.enqueue(s)
	d.mu.Unlock()

	d.hw.EnableTXInterrupt()
	return nil
}

// Drain blocks until the transmit queue is empty.
func (d *Driver) Drain(ctx context.Context) error {
	for {
		d.mu.Lock()
		empty := d.head == nil
		d.mu.Unlock()
		if empty {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-d.drained:
		}
	}
}

// ---- queue/pool (caller holds d.mu) ----

func (d *Driver) allocate() *slot {
	s := d.freeList
	if s == nil {
		return nil
	}
	d.freeList = s.next
	s.next = nil
	return s
}

func (d *Driver) release(s *slot) {
	s.kind = kindFree
	s.text = ""
	s.next = d.freeList
	d.freeList = s
}

func (d *Driver) enqueue(s *slot) {
	s.next = nil
	if d.head == nil {
		d.head = s
		d.tail = s
	} else {
		d.tail.next = s
		d.tail = s
	}
}

func (d *Driver) dequeue() *slot {
	old := d.head
	if old == nil {
		return nil
	}
	if old.next == nil {
		d.tail = nil
	}
	d.head = old.next
	return old
}

// ---- interrupt handlers ----

// onDataRegisterEmpty services one transmit-ready event: produce one byte
// from the head request, retiring the request when its payload is exhausted.
// An empty queue masks the interrupt; that is the only way it stops firing.
func (d *Driver) onDataRegisterEmpty() {
	d.mu.Lock()
	if d.head == nil {
		d.hw.DisableTXInterrupt()
		d.mu.Unlock()
		d.signalDrained()
		return
	}
	cur := d.head
	finished := d.produceByte(cur)
	if finished {
		d.dequeue()
		d.release(cur)
		if d.head == nil {
			d.hw.DisableTXInterrupt()
			d.mu.Unlock()
			d.signalDrained()
			return
		}
	}
	d.mu.Unlock()
	if finished {
		// A retiring invocation may write no byte, so nothing re-raised the
		// line. The data register is still empty; kick it so the next queued
		// request starts.
		d.hw.EnableTXInterrupt()
	}
}

func (d *Driver) signalDrained() {
	select {
	case d.drained <- struct{}{}:
	default:
	}
}

// produceByte dispatches on the head slot's kind. Returns true when the
// request is finished.
func (d *Driver) produceByte(s *slot) bool {
	switch s.kind {
	case kindString:
		return d.produceString(s)
	case kindDecimal:
		return d.produceDecimal(s)
	case kindHex:
		return d.produceHex(s)
	default:
		return true
	}
}

// produceString emits the next character. A '%' terminates the request
// unless doubled ("%%" emits a single literal '%'); Printf relies on this to
// splice arguments into the stream.
func (d *Driver) produceString(s *slot) bool {
	if s.pos >= len(s.text) {
		return true
	}
	if s.text[s.pos] == '%' {
		s.pos++
		if s.pos >= len(s.text) || s.text[s.pos] != '%' {
			return true
		}
	}
	d.hw.WriteData(s.text[s.pos])
	s.pos++
	return false
}

// produceDecimal emits the sign on its first invocation for a negative
// value, then computes the largest power-of-ten divisor and emits one digit
// per invocation against the shrinking shared mask.
func (d *Driver) produceDecimal(s *slot) bool {
	if s.number < 0 {
		d.hw.WriteData('-')
		s.number = -s.number
		return false
	}
	if d.digitMask == 0 {
		d.digitMask = 10000
		for d.digitMask > 1 && s.number/int32(d.digitMask) == 0 {
			d.digitMask /= 10
		}
	}
	digit := s.number / int32(d.digitMask)
	s.number %= int32(d.digitMask)
	d.digitMask /= 10
	d.hw.WriteData(digitMap[digit])
	return d.digitMask == 0
}

// produceHex is the same shape with a nibble mask: always exactly 4 digits,
// no leading-zero suppression.
func (d *Driver) produceHex(s *slot) bool {
	if d.digitMask == 0 {
		d.digitMask = 0xF000
		d.shiftBits = 12
	}
	digit := (uint16(s.number) & d.digitMask) >> d.shiftBits
	d.digitMask >>= 4
	d.shiftBits -= 4
	d.hw.WriteData(digitMap[digit])
	return d.digitMask == 0
}

// onRxComplete moves one received byte into the one-byte mailbox and wakes
// any receiver. A full mailbox leaves the byte in the peripheral; the reader
// re-arms the line when it consumes, so no byte is overwritten before a
// reader has seen it. Hardware error bits are not inspected.
func (d *Driver) onRxComplete() {
	d.mu.Lock()
	if d.gotChar {
		d.mu.Unlock()
		return
	}
	d.mu.Unlock()
	b := d.hw.ReadData()
	d.mu.Lock()
	d.recvData = b
	d.gotChar = true
	d.mu.Unlock()
	select {
	case d.rxNotify <- struct{}{}:
	default:
	}
}
