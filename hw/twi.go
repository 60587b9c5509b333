package hw

import "sync"

// TWI status codes, straight from the datasheet's master-mode tables.
const (
	StatusStart         byte = 0x08 // START transmitted
	StatusRepStart      byte = 0x10 // repeated START transmitted
	StatusAddrWriteAck  byte = 0x18 // SLA+W transmitted, ACK received
	StatusAddrWriteNack byte = 0x20 // SLA+W transmitted, NACK received
	StatusDataWriteAck  byte = 0x28 // data transmitted, ACK received
	StatusDataWriteNack byte = 0x30 // data transmitted, NACK received
	StatusArbLost       byte = 0x38 // arbitration lost (single-master: unreachable)
	StatusAddrReadAck   byte = 0x40 // SLA+R transmitted, ACK received
	StatusAddrReadNack  byte = 0x48 // SLA+R transmitted, NACK received
	StatusDataReadAck   byte = 0x50 // data received, ACK returned
	StatusDataReadNack  byte = 0x58 // data received, NACK returned
)

// Control register bits, TWCR layout.
const (
	CtrlInterrupt byte = 1 << 7 // TWINT: clear the interrupt flag, resume the bus
	CtrlAck       byte = 1 << 6 // TWEA: return ACK after the next received byte
	CtrlStart     byte = 1 << 5 // TWSTA
	CtrlStop      byte = 1 << 4 // TWSTO
	CtrlEnable    byte = 1 << 2 // TWEN
	CtrlIntEnable byte = 1 << 0 // TWIE
)

// Peripheral models a 7-bit addressed device on the simulated bus.
type Peripheral interface {
	// Select is invoked when the device is addressed. Returning false NACKs
	// the address byte.
	Select(read bool) bool
	// WriteByte offers one byte in master-transmitter mode. Returning false
	// NACKs the byte.
	WriteByte(b byte) bool
	// ReadByte supplies one byte in master-receiver mode.
	ReadByte() byte
}

// BusOp is one framing element observed on the simulated wire.
type BusOp uint8

const (
	OpStart BusOp = iota + 1
	OpRepStart
	OpAddress // Data holds the raw address byte: (addr<<1)|R/W
	OpWrite   // Data holds the transferred byte
	OpRead    // Data holds the transferred byte
	OpStop
)

// BusEvent is one entry in the bus framing trace.
type BusEvent struct {
	Op   BusOp
	Data byte
}

// TWI simulates the AVR two-wire interface in master mode. Every bus step
// completes immediately when the driver clears the interrupt flag through
// WriteControl; the resulting status code is latched and the Event line is
// raised, mirroring the one-event-per-protocol-step contract of the real
// peripheral.
type TWI struct {
	mu sync.Mutex

	bitRate byte
	devices map[byte]Peripheral
	trace   []BusEvent

	status byte
	data   byte

	started    bool // between START and STOP
	expectAddr bool // next data/control cycle carries SLA+R/W
	reading    bool
	current    Peripheral

	events chan struct{}
}

func NewTWI() *TWI {
	return &TWI{
		devices: map[byte]Peripheral{},
		events:  make(chan struct{}, 1),
	}
}

// Attach places a peripheral at a 7-bit address on the bus.
func (t *TWI) Attach(addr byte, p Peripheral) {
	t.mu.Lock()
	t.devices[addr&0x7F] = p
	t.mu.Unlock()
}

// SetBitRate programs the TWBR-style bus speed divider.
func (t *TWI) SetBitRate(divider byte) {
	t.mu.Lock()
	t.bitRate = divider
	t.mu.Unlock()
}

// BitRate reports the programmed divider.
func (t *TWI) BitRate() byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.bitRate
}

// Event is the TWI interrupt line. One token is raised per completed bus
// step; the status register explains which.
func (t *TWI) Event() <-chan struct{} { return t.events }

// Status returns the masked status register (TWSR & 0xF8).
func (t *TWI) Status() byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status & 0xF8
}

// WriteData loads the data register (address byte or outgoing data).
func (t *TWI) WriteData(b byte) {
	t.mu.Lock()
	t.data = b
	t.mu.Unlock()
}

// ReadData returns the data register (incoming byte in receiver mode).
func (t *TWI) ReadData() byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.data
}

// AckInterrupt clears a pending interrupt without advancing the bus, the
// TWCR |= TWINT path used for spurious events.
func (t *TWI) AckInterrupt() {}

// WriteControl writes the control register. When the interrupt-clear bit is
// set the peripheral executes the next protocol step and raises the event
// line with a fresh status code. STOP completes silently, as on hardware.
func (t *TWI) WriteControl(c byte) {
	t.mu.Lock()
	if c&CtrlEnable == 0 || c&CtrlInterrupt == 0 {
		// Mask/enable update only, no bus activity.
		t.mu.Unlock()
		return
	}

	switch {
	case c&CtrlStop != 0 && c&CtrlStart == 0:
		t.trace = append(t.trace, BusEvent{Op: OpStop})
		t.started = false
		t.expectAddr = false
		t.current = nil
		t.mu.Unlock()
		return // TWSTO does not set TWINT

	case c&CtrlStart != 0:
		if t.started {
			t.status = StatusRepStart
			t.trace = append(t.trace, BusEvent{Op: OpRepStart})
		} else {
			t.status = StatusStart
			t.trace = append(t.trace, BusEvent{Op: OpStart})
			t.started = true
		}
		t.expectAddr = true

	case t.expectAddr:
		raw := t.data
		t.expectAddr = false
		t.reading = raw&0x01 != 0
		t.trace = append(t.trace, BusEvent{Op: OpAddress, Data: raw})
		p := t.devices[raw>>1]
		if p != nil && p.Select(t.reading) {
			t.current = p
			if t.reading {
				t.status = StatusAddrReadAck
			} else {
				t.status = StatusAddrWriteAck
			}
		} else {
			t.current = nil
			if t.reading {
				t.status = StatusAddrReadNack
			} else {
				t.status = StatusAddrWriteNack
			}
		}

	case t.reading:
		// Master released the line; receive one byte and answer with the
		// requested ACK/NACK.
		b := byte(0xFF)
		if t.current != nil {
			b = t.current.ReadByte()
		}
		t.data = b
		t.trace = append(t.trace, BusEvent{Op: OpRead, Data: b})
		if c&CtrlAck != 0 {
			t.status = StatusDataReadAck
		} else {
			t.status = StatusDataReadNack
		}

	default:
		// Master-transmitter data phase.
		b := t.data
		t.trace = append(t.trace, BusEvent{Op: OpWrite, Data: b})
		if t.current != nil && t.current.WriteByte(b) {
			t.status = StatusDataWriteAck
		} else {
			t.status = StatusDataWriteNack
		}
	}
	t.mu.Unlock()

	select {
	case t.events <- struct{}{}:
	default:
	}
}

// Trace returns a copy of the bus framing trace.
func (t *TWI) Trace() []BusEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]BusEvent, len(t.trace))
	copy(out, t.trace)
	return out
}

// ResetTrace clears the framing trace.
func (t *TWI) ResetTrace() {
	t.mu.Lock()
	t.trace = t.trace[:0]
	t.mu.Unlock()
}
