package twi

import (
	"context"
	"testing"
	"time"

	"mcucode-go/errcode"
	"mcucode-go/hw"
)

func newMaster(t *testing.T) (*Master, *hw.TWI) {
	t.Helper()
	bus := hw.NewTWI()
	m := New(bus)
	m.Init()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	m.Start(ctx)
	return m, bus
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for transaction")
	}
}

func tracedOps(bus *hw.TWI) []hw.BusEvent {
	return bus.Trace()
}

func expectTrace(t *testing.T, got, want []hw.BusEvent) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("trace length %d, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("trace[%d] = %+v, want %+v (full: %v)", i, got[i], want[i], got)
		}
	}
}

func TestSend_BusFraming(t *testing.T) {
	m, bus := newMaster(t)
	dev := hw.NewRegisterFile()
	bus.Attach(0x21, dev)

	done, err := m.submit(0x21, modeWrite, []byte{0x00, 0xFE}, true)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	waitDone(t, done)

	expectTrace(t, tracedOps(bus), []hw.BusEvent{
		{Op: hw.OpStart},
		{Op: hw.OpAddress, Data: 0x21<<1 | 0},
		{Op: hw.OpWrite, Data: 0x00},
		{Op: hw.OpWrite, Data: 0xFE},
		{Op: hw.OpStop},
	})
	if dev.Peek(0x00) != 0xFE {
		t.Errorf("register 0x00 = %#x, want 0xFE", dev.Peek(0x00))
	}
}

func TestBackToBackTransactions_RepeatedStart(t *testing.T) {
	bus := hw.NewTWI()
	bus.Attach(0x21, hw.NewRegisterFile())
	m := New(bus)
	m.Init()

	// Queue both before the interrupt loop runs, so the second is pending
	// when the first completes.
	if err := m.Send(0x21, []byte{0x01, 0xAA}); err != nil {
		t.Fatalf("send 1: %v", err)
	}
	done, err := m.submit(0x21, modeWrite, []byte{0x02, 0xBB}, true)
	if err != nil {
		t.Fatalf("send 2: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)
	waitDone(t, done)

	expectTrace(t, tracedOps(bus), []hw.BusEvent{
		{Op: hw.OpStart},
		{Op: hw.OpAddress, Data: 0x21<<1 | 0},
		{Op: hw.OpWrite, Data: 0x01},
		{Op: hw.OpWrite, Data: 0xAA},
		{Op: hw.OpRepStart},
		{Op: hw.OpAddress, Data: 0x21<<1 | 0},
		{Op: hw.OpWrite, Data: 0x02},
		{Op: hw.OpWrite, Data: 0xBB},
		{Op: hw.OpStop},
	})
}

func TestReceive_MultiByteAckNack(t *testing.T) {
	m, bus := newMaster(t)
	dev := hw.NewRegisterFile()
	dev.Poke(0x00, 0x11)
	dev.Poke(0x01, 0x22)
	dev.Poke(0x02, 0x33)
	bus.Attach(0x36, dev)

	// Point the register pointer at 0, then read three bytes back.
	if err := m.Send(0x36, []byte{0x00}); err != nil {
		t.Fatalf("send: %v", err)
	}
	buf := make([]byte, 3)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := m.Receive(ctx, 0x36, buf); err != nil {
		t.Fatalf("receive: %v", err)
	}
	if buf[0] != 0x11 || buf[1] != 0x22 || buf[2] != 0x33 {
		t.Errorf("received % x, want 11 22 33", buf)
	}

	// The last read must be NACKed, the preceding ones ACKed; NACK shows up
	// as the read that precedes the STOP.
	tr := tracedOps(bus)
	if tr[len(tr)-1].Op != hw.OpStop {
		t.Fatalf("trace does not end in STOP: %v", tr)
	}
	reads := 0
	for _, ev := range tr {
		if ev.Op == hw.OpRead {
			reads++
		}
	}
	if reads != 3 {
		t.Errorf("%d read ops on the bus, want 3", reads)
	}
}

func TestReadRegister(t *testing.T) {
	m, bus := newMaster(t)
	dev := hw.NewRegisterFile()
	dev.Poke(0x10, 0xAB)
	bus.Attach(0x48, dev)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	v, err := m.ReadRegister(ctx, 0x48, 0x10)
	if err != nil {
		t.Fatalf("ReadRegister: %v", err)
	}
	if v != 0xAB {
		t.Errorf("ReadRegister = %#x, want 0xAB", v)
	}
}

func TestPoolExhaustion_ReportsQueueFull(t *testing.T) {
	bus := hw.NewTWI()
	m := New(bus)
	m.Init()
	// No interrupt loop: the queue cannot drain.

	payload := []byte{0x00}
	for i := 0; i < PoolSize; i++ {
		if err := m.Send(0x21, payload); err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
	}
	if err := m.Send(0x21, payload); err != errcode.QueueFull {
		t.Fatalf("send beyond capacity: err = %v, want %v", err, errcode.QueueFull)
	}
}

func TestWriteToAbsentDevice_NackTreatedAsAck(t *testing.T) {
	// Nothing attached at the address: every byte is NACKed, yet the
	// transmit path advances as if acknowledged and the transaction
	// completes. Shipped behaviour, kept as-is; see the TODO in writeEvent.
	m, bus := newMaster(t)

	done, err := m.submit(0x50, modeWrite, []byte{0x01, 0x02}, true)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	waitDone(t, done)

	expectTrace(t, tracedOps(bus), []hw.BusEvent{
		{Op: hw.OpStart},
		{Op: hw.OpAddress, Data: 0x50<<1 | 0},
		{Op: hw.OpWrite, Data: 0x01},
		{Op: hw.OpWrite, Data: 0x02},
		{Op: hw.OpStop},
	})
}

func TestReadFromAbsentDevice_Stalls(t *testing.T) {
	m, _ := newMaster(t)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := m.Receive(ctx, 0x50, make([]byte, 1))
	if err != context.DeadlineExceeded {
		t.Fatalf("receive from absent device: err = %v, want deadline exceeded", err)
	}
}

func TestSend_Validation(t *testing.T) {
	m, _ := newMaster(t)
	if err := m.Send(0x80, []byte{1}); err != errcode.BadAddress {
		t.Errorf("address > 0x7F: err = %v, want %v", err, errcode.BadAddress)
	}
	if err := m.Send(0x21, nil); err != errcode.InvalidParams {
		t.Errorf("empty payload: err = %v, want %v", err, errcode.InvalidParams)
	}
}

func TestBusShim_WriteRead(t *testing.T) {
	m, bus := newMaster(t)
	dev := hw.NewRegisterFile()
	dev.Poke(0x05, 0x5A)
	bus.Attach(0x40, dev)

	b := NewBus(m)
	got := make([]byte, 1)
	if err := b.Tx(0x40, []byte{0x05}, got); err != nil {
		t.Fatalf("Tx: %v", err)
	}
	if got[0] != 0x5A {
		t.Errorf("Tx read %#x, want 0x5A", got[0])
	}
}
