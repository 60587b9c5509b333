// Package twi implements the queued master-mode driver for the two-wire
// (I2C) peripheral.
//
// Transactions are claimed from a fixed pool of 32 slots and linked into a
// FIFO queue. The interrupt loop is a protocol state dispatcher keyed off
// the hardware status code: one bus step per event, re-arming the peripheral
// for the next step until the transaction's byte count is exhausted, then
// advancing the queue with a repeated START (more work pending) or a STOP
// (queue empty). Requests complete strictly in enqueue order; a transaction
// that never receives the expected status stalls the queue, with no retry
// and no timeout.
//
// Buffers are never copied: the queue holds cursors into caller-supplied
// storage, so a write buffer must not be mutated until its transaction has
// completed.
package twi

import (
	"context"
	"sync"

	"mcucode-go/errcode"
	"mcucode-go/hw"
)

// PoolSize is the fixed transaction queue capacity.
const PoolSize = 32

// BusFrequency is the programmed SCL frequency.
const BusFrequency = 100_000

// bitRateDivider is the TWBR value for BusFrequency, per the datasheet
// formula.
const bitRateDivider = (hw.CPUClock/BusFrequency - 16) / 2

type mode uint8

const (
	modeFree mode = iota // zero marks the slot as free
	modeWrite
	modeRead
)

type transaction struct {
	addr byte
	mode mode
	buf  []byte // caller-owned; cursor advances as bytes transfer
	pos  int
	next *transaction
	done chan struct{} // closed on completion; nil for fire-and-forget sends
}

const ctrlResume = hw.CtrlEnable | hw.CtrlIntEnable | hw.CtrlInterrupt

// Master owns one TWI peripheral.
type Master struct {
	hw *hw.TWI

	mu       sync.Mutex
	pool     [PoolSize]transaction
	head     *transaction
	tail     *transaction
	freeList *transaction
}

func New(t *hw.TWI) *Master {
	return &Master{hw: t}
}

// Init resets the pool and queue, programs the bus-speed divider, and
// enables the peripheral with interrupt and acknowledge generation on.
func (m *Master) Init() {
	m.mu.Lock()
	m.head = nil
	m.tail = nil
	m.freeList = nil
	for i := range m.pool {
		tr := &m.pool[i]
		tr.mode = modeFree
		tr.buf = nil
		tr.done = nil
		tr.next = m.freeList
		m.freeList = tr
	}
	m.mu.Unlock()

	m.hw.SetBitRate(bitRateDivider)
	m.hw.WriteControl(hw.CtrlEnable | hw.CtrlIntEnable | hw.CtrlAck)
}

// Start launches the interrupt loop.
func (m *Master) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-m.hw.Event():
				m.onEvent()
			}
		}
	}()
}

// Send queues a write transaction to a 7-bit address. Non-blocking: the
// bytes go out as the interrupt loop drains the queue. The buffer is not
// copied and must stay untouched until the transaction completes.
func (m *Master) Send(addr byte, data []byte) error {
	_, err := m.submit(addr, modeWrite, data, false)
	return err
}

// Receive queues a read transaction and blocks until the interrupt loop has
// deposited len(buf) bytes into buf. The wait is cooperative: wake on the
// completion signal, nothing else. Must not be called from the interrupt
// loop.
func (m *Master) Receive(ctx context.Context, addr byte, buf []byte) error {
	done, err := m.submit(addr, modeRead, buf, true)
	if err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

// ReadRegister sets the device's register pointer with a one-byte write,
// then reads the register contents back.
func (m *Master) ReadRegister(ctx context.Context, addr, reg byte) (byte, error) {
	if err := m.Send(addr, []byte{reg}); err != nil {
		return 0, err
	}
	var out [1]byte
	if err := m.Receive(ctx, addr, out[:]); err != nil {
		return 0, err
	}
	return out[0], nil
}

// submit claims a slot, links it at the queue tail and, when the queue was
// empty, writes the START condition to kick the state machine.
func (m *Master) submit(addr byte, md mode, buf []byte, wait bool) (<-chan struct{}, error) {
	if addr > 0x7F {
		return nil, errcode.BadAddress
	}
	if len(buf) == 0 {
		return nil, errcode.InvalidParams
	}

	m.mu.Lock()
	tr := m.allocate()
	if tr == nil {
		m.mu.Unlock()
		return nil, errcode.QueueFull
	}
	tr.addr = addr
	tr.mode = md
	tr.buf = buf
	tr.pos = 0
	var done chan struct{}
	if wait {
		done = make(chan struct{})
		tr.done = done
	}
	wasEmpty := m.head == nil
	m.enqueue(tr)
	m.mu.Unlock()

	if wasEmpty {
		m.hw.WriteControl(ctrlResume | hw.CtrlAck | hw.CtrlStart)
	}
	return done, nil
}

// ---- queue/pool (caller holds m.mu) ----

func (m *Master) allocate() *transaction {
	tr := m.freeList
	if tr == nil {
		return nil
	}
	m.freeList = tr.next
	tr.next = nil
	return tr
}

func (m *Master) enqueue(tr *transaction) {
	tr.next = nil
	if m.head == nil {
		m.head = tr
		m.tail = tr
	} else {
		m.tail.next = tr
		m.tail = tr
	}
}

func (m *Master) dequeue() *transaction {
	old := m.head
	if old == nil {
		return nil
	}
	if old.next == nil {
		m.tail = nil
	}
	m.head = old.next
	return old
}

// ---- interrupt handler ----

// onEvent reads the status code and dispatches one protocol step.
func (m *Master) onEvent() {
	st := m.hw.Status()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.head == nil {
		// Spurious event with nothing queued: acknowledge and move on.
		m.hw.AckInterrupt()
		return
	}

	// START / repeated START: load the address with the direction bit for
	// the head transaction, whatever its mode.
	if st == hw.StatusStart || st == hw.StatusRepStart {
		dir := byte(0)
		if m.head.mode == modeRead {
			dir = 1
		}
		m.hw.WriteData(m.head.addr<<1 | dir)
		m.hw.WriteControl(ctrlResume | hw.CtrlAck)
		return
	}

	switch m.head.mode {
	case modeWrite:
		m.writeEvent(st)
	case modeRead:
		m.readEvent(st)
	default:
		m.hw.AckInterrupt()
	}
}

// writeEvent handles master-transmitter status codes.
func (m *Master) writeEvent(st byte) {
	tr := m.head
	switch st {
	case hw.StatusDataWriteAck, hw.StatusDataWriteNack:
		// Byte transferred; advance the cursor and complete when the count
		// is exhausted, otherwise fall through to load the next byte.
		tr.pos++
		if tr.pos == len(tr.buf) {
			m.complete()
			return
		}
		fallthrough

	case hw.StatusAddrWriteAck, hw.StatusAddrWriteNack:
		// TODO: 0x20/0x30 mean the byte was NACKed; the transmit path
		// continues as if acknowledged. Decide whether that should abort
		// the transaction before this drives real hardware.
		m.hw.WriteData(tr.buf[tr.pos])
		m.hw.WriteControl(ctrlResume | hw.CtrlAck)

	case hw.StatusArbLost:
		// Single master on this bus: unreachable.

	default:
		// Status code not defined for master-transmitter mode.
	}
}

// readEvent handles master-receiver status codes.
func (m *Master) readEvent(st byte) {
	tr := m.head
	switch st {
	case hw.StatusDataReadAck:
		// Byte received and acknowledged; store it, then fall through to
		// the ACK/NACK decision for the next one.
		tr.buf[tr.pos] = m.hw.ReadData()
		tr.pos++
		fallthrough

	case hw.StatusAddrReadAck:
		// ACK the forthcoming byte unless it is the last one we want.
		ctrl := byte(ctrlResume)
		if len(tr.buf)-tr.pos > 1 {
			ctrl |= hw.CtrlAck
		}
		m.hw.WriteControl(ctrl)

	case hw.StatusDataReadNack:
		// Final byte received with NACK returned.
		tr.buf[tr.pos] = m.hw.ReadData()
		tr.pos++
		m.complete()

	case hw.StatusAddrReadNack, hw.StatusArbLost:
		// Nobody answered the address (or an impossible arbitration loss):
		// no further events arrive and the queue stalls here. Documented
		// behaviour; there is no retry or timeout.

	default:
	}
}

// complete retires the head transaction: the slot returns to the free list,
// the bus issues a repeated START when more work is queued or a STOP when
// the queue drains, and any blocked caller is released. Caller holds m.mu.
func (m *Master) complete() {
	tr := m.dequeue()
	done := tr.done
	tr.mode = modeFree
	tr.buf = nil
	tr.done = nil
	tr.next = m.freeList
	m.freeList = tr

	if m.head != nil {
		m.hw.WriteControl(ctrlResume | hw.CtrlAck | hw.CtrlStart)
	} else {
		m.hw.WriteControl(ctrlResume | hw.CtrlAck | hw.CtrlStop)
	}
	if done != nil {
		close(done)
	}
}
