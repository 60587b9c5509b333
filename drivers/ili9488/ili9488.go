// Package ili9488 drives an ILI9488 TFT panel controller over SPI, exposing
// the windowed-write surface the rasterizer draws on. The controller is
// write-only on common breakouts (MISO not wired), so no status reads are
// attempted.
package ili9488

import (
	"errors"
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"

	"mcucode-go/graphics"
)

// Command opcodes used for window addressing.
const (
	cmdSleepOut  = 0x11
	cmdInvertOff = 0x20
	cmdDisplayOn = 0x29
	cmdCASET     = 0x2A // column address set
	cmdRASET     = 0x2B // row address set
	cmdRAMWR     = 0x2C // memory write
)

// cmdDelay flags an entry in the init table whose parameter count is
// followed by a post-command delay in milliseconds.
const cmdDelay = 0x80

// initCmds is the panel bring-up sequence in the packed count/opcode/nargs
// table format: leading byte is the number of commands; each command is
// opcode, parameter count (cmdDelay bit set when a delay byte follows the
// parameters), then the parameters.
var initCmds = []byte{
	17,
	0xF7, 4, 0xA9, 0x51, 0x2C, 0x82, // adjust control 3
	0xC0, 2, 0x11, 0x09, // power control 1
	0xC1, 1, 0x41, // power control 2
	0xC5, 3, 0x00, 0x0A, 0x80, // VCOM control
	0xB1, 2, 0xB0, 0x11, // frame rate control
	0xB4, 1, 0x02, // display inversion control
	0xB6, 2, 0x02, 0x22, // display function control
	0xB7, 1, 0xC6, // entry mode set
	0xBE, 2, 0x00, 0x04, // HS lanes control
	0xE9, 1, 0x00, // set image function
	0x36, 1, 0x08, // memory access control, BGR order
	0x3A, 1, 0x66, // pixel format, 18 bits
	0xE0, 15, 0x00, 0x07, 0x10, 0x09, 0x17, 0x0B, 0x41, 0x89, 0x4B, 0x0A, 0x0C, 0x0E, 0x18, 0x1B, 0x0F, // positive gamma
	0xE1, 15, 0x00, 0x17, 0x1A, 0x04, 0x0E, 0x06, 0x2F, 0x45, 0x43, 0x02, 0x0A, 0x09, 0x32, 0x36, 0x0F, // negative gamma
	cmdSleepOut, cmdDelay, 200,
	cmdInvertOff, 0,
	cmdDisplayOn, cmdDelay, 10,
}

// Opts configures the panel geometry and optional reset line.
type Opts struct {
	Rows    uint16 // default 480
	Columns uint16 // default 320

	RST gpio.PinIO // hardware reset, optional
}

// Dev is an open handle to the panel.
//
// Dev implements graphics.Display. The rasterizer's primitives carry no
// error returns, so SPI failures latch into a sticky error retrievable with
// Err; once set, further writes are dropped.
type Dev struct {
	c   spi.Conn
	dc  gpio.PinOut
	rst gpio.PinIO

	rows, columns uint16

	err error

	// pixel staging buffer, 3 bytes per pixel
	buf []byte
}

var _ graphics.Display = (*Dev)(nil)

// NewSPI opens the panel on an SPI port with the given data/command pin.
// The port is clocked at 4 MHz, Mode0, 8-bit, matching the reference
// board's SPI divider. opts may be nil for a 480x320 panel.
func NewSPI(p spi.Port, dc gpio.PinOut, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &Opts{}
	}
	rows, columns := opts.Rows, opts.Columns
	if rows == 0 {
		rows = 480
	}
	if columns == 0 {
		columns = 320
	}
	if dc == nil {
		return nil, errors.New("ili9488: data/command pin is required")
	}

	c, err := p.Connect(4*physic.MegaHertz, spi.Mode0, 8)
	if err != nil {
		return nil, fmt.Errorf("ili9488: connect: %w", err)
	}

	d := &Dev{
		c:       c,
		dc:      dc,
		rst:     opts.RST,
		rows:    rows,
		columns: columns,
		buf:     make([]byte, 0, 3*1024),
	}
	if err := d.init(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Dev) init() error {
	if d.rst != nil {
		if err := d.rst.Out(gpio.Low); err != nil {
			return fmt.Errorf("ili9488: reset low: %w", err)
		}
		time.Sleep(200 * time.Millisecond)
		if err := d.rst.Out(gpio.High); err != nil {
			return fmt.Errorf("ili9488: reset high: %w", err)
		}
		time.Sleep(200 * time.Millisecond)
	}

	cmds := initCmds[1:]
	for count := initCmds[0]; count > 0; count-- {
		opcode := cmds[0]
		nargs := cmds[1]
		delay := nargs&cmdDelay != 0
		nargs &^= cmdDelay
		cmds = cmds[2:]
		if err := d.sendCommand(opcode, cmds[:nargs]); err != nil {
			return err
		}
		cmds = cmds[nargs:]
		if delay {
			time.Sleep(time.Duration(cmds[0]) * time.Millisecond)
			cmds = cmds[1:]
		}
	}
	return nil
}

// sendCommand writes one opcode with the DC line low, then its parameters
// with DC high.
func (d *Dev) sendCommand(opcode byte, params []byte) error {
	if err := d.dc.Out(gpio.Low); err != nil {
		return fmt.Errorf("ili9488: dc low: %w", err)
	}
	if err := d.c.Tx([]byte{opcode}, nil); err != nil {
		return fmt.Errorf("ili9488: command %#02x: %w", opcode, err)
	}
	if err := d.dc.Out(gpio.High); err != nil {
		return fmt.Errorf("ili9488: dc high: %w", err)
	}
	if len(params) == 0 {
		return nil
	}
	if err := d.c.Tx(params, nil); err != nil {
		return fmt.Errorf("ili9488: command %#02x params: %w", opcode, err)
	}
	return nil
}

// Size reports the panel extent.
func (d *Dev) Size() (rows, columns uint16) {
	return d.rows, d.columns
}

// Err reports the first SPI failure since the last call and clears it.
func (d *Dev) Err() error {
	err := d.err
	d.err = nil
	return err
}

func (d *Dev) fail(err error) {
	if d.err == nil {
		d.err = err
	}
}

// SetWindow programs the rectangular addressing window, both corners
// inclusive, and leaves the controller in memory-write mode.
func (d *Dev) SetWindow(ll, ur graphics.Vector) {
	if d.err != nil {
		return
	}
	if err := d.sendCommand(cmdCASET, []byte{
		byte(ll.Column >> 8), byte(ll.Column),
		byte(ur.Column >> 8), byte(ur.Column),
	}); err != nil {
		d.fail(err)
		return
	}
	if err := d.sendCommand(cmdRASET, []byte{
		byte(ll.Row >> 8), byte(ll.Row),
		byte(ur.Row >> 8), byte(ur.Row),
	}); err != nil {
		d.fail(err)
		return
	}
	if err := d.sendCommand(cmdRAMWR, nil); err != nil {
		d.fail(err)
	}
}

// WriteColour streams count pixels of one RGB565 colour into the current
// window. The controller runs in 18-bit pixel format, so each pixel expands
// to one byte per channel with the colour bits left-aligned.
func (d *Dev) WriteColour(colour uint16, count uint32) {
	if d.err != nil {
		return
	}
	red := byte(colour>>11) & 0x1F
	green := byte(colour>>5) & 0x3F
	blue := byte(colour) & 0x1F

	// 5-bit channels gain a low one-bit so full scale maps to full scale.
	red = (red<<1 | 1) << 2
	green <<= 2
	blue = (blue<<1 | 1) << 2

	d.buf = d.buf[:0]
	for count > 0 {
		d.buf = append(d.buf, red, green, blue)
		count--
		if len(d.buf) == cap(d.buf) || count == 0 {
			if err := d.c.Tx(d.buf, nil); err != nil {
				d.fail(fmt.Errorf("ili9488: pixel data: %w", err))
				return
			}
			d.buf = d.buf[:0]
		}
	}
}

func (d *Dev) String() string {
	return fmt.Sprintf("ili9488.Dev{%dx%d}", d.columns, d.rows)
}
