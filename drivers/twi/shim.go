package twi

import (
	"context"
	"time"

	"tinygo.org/x/drivers"
)

// Bus adapts the queued master to the tinygo.org/x/drivers I2C shape, so
// off-the-shelf device drivers can sit on top of the simulated bus. Tx is
// synchronous: it waits for the queued transactions to complete.
type Bus struct {
	m       *Master
	timeout time.Duration
}

var _ drivers.I2C = Bus{}

func NewBus(m *Master) Bus {
	return Bus{m: m, timeout: 250 * time.Millisecond}
}

func (b Bus) WithTimeout(d time.Duration) Bus {
	if d > 0 {
		b.timeout = d
	}
	return b
}

// Tx performs w then r against addr, blocking until both have completed.
func (b Bus) Tx(addr uint16, w, r []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()

	if len(w) > 0 {
		done, err := b.m.submit(byte(addr), modeWrite, w, true)
		if err != nil {
			return err
		}
		if len(r) == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-done:
				return nil
			}
		}
		// The read below queues behind the write; waiting on the read
		// covers both.
	}
	if len(r) > 0 {
		return b.m.Receive(ctx, byte(addr), r)
	}
	return nil
}
