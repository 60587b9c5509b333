// Package mcp23008 drives the MCP23008 8-bit I2C port expander: pin
// direction, pull-ups, interrupt-on-change, and the captured pin states at
// interrupt time.
//
// The driver issues one register transaction per call and keeps no shadow
// state beyond the output latch; the expander itself is the source of truth.
package mcp23008

import (
	"errors"

	"tinygo.org/x/drivers"
)

// Address is the base I2C address with all address pins strapped low.
const Address = 0x20

// Register map.
const (
	regIODir   = 0x00 // direction, 1 = input
	regIPol    = 0x01 // input polarity
	regGPIntEn = 0x02 // interrupt-on-change enable
	regDefVal  = 0x03 // default compare value
	regIntCon  = 0x04 // interrupt control
	regIOCon   = 0x05 // configuration
	regGPPU    = 0x06 // pull-up enable
	regIntF    = 0x07 // interrupt flags
	regIntCap  = 0x08 // pin states captured at interrupt time
	regGPIO    = 0x09 // pin states
	regOLat    = 0x0A // output latch
)

var ErrInvalidPin = errors.New("mcp23008: pin out of range")

// Config sets up the expander's pin modes in one shot.
type Config struct {
	// Inputs selects input pins, one bit per pin. Clear bits are outputs.
	Inputs byte
	// Pullups enables the internal pull-up on the corresponding input pins.
	Pullups byte
	// InterruptPins enables interrupt-on-change on the corresponding pins.
	InterruptPins byte
}

// Device wraps an I2C connection to an MCP23008.
type Device struct {
	bus     drivers.I2C
	Address uint16

	buf [2]byte
}

// New creates the device handle. The I2C bus must already be configured;
// this does not touch the hardware.
func New(bus drivers.I2C) Device {
	return Device{bus: bus, Address: Address}
}

// Configure programs direction, pull-ups and interrupt-on-change. Interrupts
// compare against the previous pin value, so both edges are reported.
func (d *Device) Configure(cfg Config) error {
	if err := d.WriteRegister(regIODir, cfg.Inputs); err != nil {
		return err
	}
	if err := d.WriteRegister(regGPPU, cfg.Pullups); err != nil {
		return err
	}
	if err := d.WriteRegister(regIntCon, 0x00); err != nil {
		return err
	}
	return d.WriteRegister(regGPIntEn, cfg.InterruptPins)
}

// WriteRegister writes one register.
func (d *Device) WriteRegister(reg, value byte) error {
	d.buf[0] = reg
	d.buf[1] = value
	return d.bus.Tx(d.Address, d.buf[:2], nil)
}

// ReadRegister reads one register.
func (d *Device) ReadRegister(reg byte) (byte, error) {
	d.buf[0] = reg
	if err := d.bus.Tx(d.Address, d.buf[:1], d.buf[1:2]); err != nil {
		return 0, err
	}
	return d.buf[1], nil
}

// Pins reads the live pin states.
func (d *Device) Pins() (byte, error) {
	return d.ReadRegister(regGPIO)
}

// SetPins drives all output pins at once.
func (d *Device) SetPins(states byte) error {
	return d.WriteRegister(regGPIO, states)
}

// InterruptCapture reads the pin states latched when the interrupt line was
// asserted. Reading clears the interrupt.
func (d *Device) InterruptCapture() (byte, error) {
	return d.ReadRegister(regIntCap)
}

// SetPin drives a single output pin, read-modify-write on the output latch.
func (d *Device) SetPin(pin uint8, high bool) error {
	if pin > 7 {
		return ErrInvalidPin
	}
	latch, err := d.ReadRegister(regOLat)
	if err != nil {
		return err
	}
	if high {
		latch |= 1 << pin
	} else {
		latch &^= 1 << pin
	}
	return d.WriteRegister(regOLat, latch)
}
