package hw

import (
	"time"

	"github.com/goburrow/serial"

	"mcucode-go/errcode"
)

// SerialWire bridges a simulated USART to a physical serial port: bytes the
// driver transmits go out on the port, and bytes arriving on the port are
// fed into the USART receiver. The receive pump runs until Close.
type SerialWire struct {
	port serial.Port
	done chan struct{}
}

// SerialWireConfig mirrors the port settings the UART driver programs into
// the simulated line: 8 data bits, 2 stop bits, no parity.
type SerialWireConfig struct {
	Address string // e.g. "/dev/ttyUSB0"
	Baud    int
}

// OpenSerialWire opens the port, attaches it as the USART's transmit wire
// and starts the receive pump.
func OpenSerialWire(u *USART, cfg SerialWireConfig) (*SerialWire, error) {
	if cfg.Address == "" {
		return nil, &errcode.E{C: errcode.InvalidParams, Op: "hw.OpenSerialWire", Msg: "empty port address"}
	}
	if cfg.Baud == 0 {
		cfg.Baud = 9600
	}
	port, err := serial.Open(&serial.Config{
		Address:  cfg.Address,
		BaudRate: cfg.Baud,
		DataBits: 8,
		StopBits: 2,
		Parity:   "N",
		Timeout:  100 * time.Millisecond,
	})
	if err != nil {
		return nil, &errcode.E{C: errcode.PortClosed, Op: "hw.OpenSerialWire", Err: err}
	}
	w := &SerialWire{port: port, done: make(chan struct{})}
	u.SetWire(w)
	go w.pump(u)
	return w, nil
}

// WriteByte implements Wire.
func (w *SerialWire) WriteByte(b byte) error {
	var one [1]byte
	one[0] = b
	if _, err := w.port.Write(one[:]); err != nil {
		return &errcode.E{C: errcode.PortClosed, Op: "hw.SerialWire.WriteByte", Err: err}
	}
	return nil
}

func (w *SerialWire) pump(u *USART) {
	buf := make([]byte, 64)
	for {
		select {
		case <-w.done:
			return
		default:
		}
		n, err := w.port.Read(buf)
		if n > 0 {
			u.Feed(buf[:n])
		}
		if err != nil {
			// Read timeouts are the idle case; anything else ends the pump
			// when Close tears the port down.
			continue
		}
	}
}

// Close stops the pump and closes the port.
func (w *SerialWire) Close() error {
	select {
	case <-w.done:
	default:
		close(w.done)
	}
	return w.port.Close()
}
