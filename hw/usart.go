// Package hw models the register-level peripheral hardware of an
// ATmega328P-class microcontroller on a host. The register boundary is the
// external interface: drivers program the simulated peripherals exactly as
// they would program the real control/status/data registers, and interrupt
// lines are rendered as coalesced notification channels feeding a single
// consumer loop per driver.
package hw

import "sync"

// CPUClock is the simulated system clock, 16 MHz as on the reference board.
const CPUClock = 16_000_000

// Wire is the transmit side of a USART: every byte the driver loads into the
// data register is shifted out here, in order.
type Wire interface {
	WriteByte(b byte) error
}

// USART simulates the AVR USART peripheral. Transmission is level-triggered:
// while the data-register-empty interrupt is enabled, the peripheral keeps
// the TxReady channel hot, since the simulated data register empties as soon
// as it is written. Reception is fed through an SPSC FIFO; each pending byte
// raises RxReady until the driver drains it with ReadData.
type USART struct {
	mu sync.Mutex

	divisor uint32 // UBRR-style baud divisor
	stop2   bool   // two stop bits (the only frame option the drivers use)

	udrie bool // data-register-empty interrupt mask
	rxcie bool // receive-complete interrupt mask

	wire Wire

	rx *FIFO

	txReady chan struct{}
	rxReady chan struct{}
}

func NewUSART() *USART {
	return &USART{
		rx:      NewFIFO(256),
		txReady: make(chan struct{}, 1),
		rxReady: make(chan struct{}, 1),
	}
}

// Configure sets the baud divisor and frame format (8 data bits, 2 stop
// bits). The divisor formula matches the datasheet's internal clock
// generation: one baud tick per CPUClock/(16*(divisor+1)) cycles.
func (u *USART) Configure(baud uint32) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if baud == 0 {
		baud = 9600
	}
	u.divisor = CPUClock/(16*baud) - 1
	u.stop2 = true
}

// Divisor reports the programmed baud divisor.
func (u *USART) Divisor() uint32 {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.divisor
}

// SetWire attaches the transmit sink.
func (u *USART) SetWire(w Wire) {
	u.mu.Lock()
	u.wire = w
	u.mu.Unlock()
}

// TxReady is the data-register-empty interrupt line.
func (u *USART) TxReady() <-chan struct{} { return u.txReady }

// RxReady is the receive-complete interrupt line.
func (u *USART) RxReady() <-chan struct{} { return u.rxReady }

// EnableTXInterrupt unmasks the data-register-empty interrupt. The data
// register is always empty between writes, so the line fires immediately.
func (u *USART) EnableTXInterrupt() {
	u.mu.Lock()
	u.udrie = true
	u.mu.Unlock()
	u.raise(u.txReady)
}

// DisableTXInterrupt masks the data-register-empty interrupt. A token may
// already be pending; consumers re-check queue state on wake, so a spurious
// wake only results in the mask being written again.
func (u *USART) DisableTXInterrupt() {
	u.mu.Lock()
	u.udrie = false
	u.mu.Unlock()
}

// EnableRXInterrupt unmasks the receive-complete interrupt.
func (u *USART) EnableRXInterrupt() {
	u.mu.Lock()
	u.rxcie = true
	pending := u.rx.Used() > 0
	u.mu.Unlock()
	if pending {
		u.raise(u.rxReady)
	}
}

// WriteData loads one byte into the transmit data register. The simulated
// shifter completes instantly, so the byte goes straight onto the wire and
// the empty interrupt re-arms if still enabled.
func (u *USART) WriteData(b byte) {
	u.mu.Lock()
	w := u.wire
	again := u.udrie
	u.mu.Unlock()
	if w != nil {
		_ = w.WriteByte(b)
	}
	if again {
		u.raise(u.txReady)
	}
}

// ReadData pops the oldest received byte from the data register. Reading
// clears the interrupt condition for that byte; if more bytes are pending
// the line is raised again.
func (u *USART) ReadData() byte {
	b, _ := u.rx.GetByte()
	u.mu.Lock()
	again := u.rxcie && u.rx.Used() > 0
	u.mu.Unlock()
	if again {
		u.raise(u.rxReady)
	}
	return b
}

// Feed delivers bytes to the receiver, as if they arrived on the RX line.
// Bytes beyond the FIFO capacity are lost, as on real hardware.
func (u *USART) Feed(p []byte) int {
	n := u.rx.WriteFrom(p)
	u.mu.Lock()
	notify := u.rxcie && n > 0
	u.mu.Unlock()
	if notify {
		u.raise(u.rxReady)
	}
	return n
}

func (u *USART) raise(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
