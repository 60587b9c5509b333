package uart

import (
	"context"

	"mcucode-go/errcode"
)

// ReceiveByte blocks until the receive-complete handler deposits a byte in
// the mailbox: wake on notify, re-check the flag, sleep again. Consuming the
// byte frees the mailbox and re-arms the receive line, so the handler can
// deliver the next pending byte. Not re-entrant; must not be called from the
// interrupt loop.
func (d *Driver) ReceiveByte(ctx context.Context) (byte, error) {
	for {
		d.mu.Lock()
		if d.gotChar {
			b := d.recvData
			d.gotChar = false
			d.mu.Unlock()
			d.hw.EnableRXInterrupt()
			return b, nil
		}
		d.mu.Unlock()
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-d.rxNotify:
		}
	}
}

// ReadLine reads bytes into buf until a carriage return or len(buf)-1 bytes,
// whichever comes first, then places a NUL terminator after the last byte
// stored. The count excludes the carriage return and the terminator.
func (d *Driver) ReadLine(ctx context.Context, buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, errcode.InvalidParams
	}
	n := 0
	for n < len(buf)-1 {
		b, err := d.ReceiveByte(ctx)
		if err != nil {
			return n, err
		}
		if b == '\r' {
			break
		}
		buf[n] = b
		n++
	}
	buf[n] = 0
	return n, nil
}

// Printf queues formatted output. Supported verbs: %d (decimal), %x (hex),
// %s (string), %% (literal percent). The format string itself is queued
// first; its byte producer stops at each unescaped '%', and the matching
// argument plus the remainder of the format are queued behind it, so the
// whole line lands on the wire in order without any intermediate buffer.
func (d *Driver) Printf(format string, args ...any) error {
	if _, err := d.TransmitString(format); err != nil {
		return err
	}

	argi := 0
	for i := 0; i < len(format); i++ {
		if format[i] != '%' {
			continue
		}
		i++
		if i >= len(format) {
			break
		}
		if format[i] == '%' {
			// Literal percent, emitted by the string producer itself.
			continue
		}

		switch format[i] {
		case 'd':
			v, ok := intArg(args, argi)
			if !ok {
				return errcode.BadFormat
			}
			argi++
			if err := d.TransmitInt(v, Decimal); err != nil {
				return err
			}
		case 'x':
			v, ok := intArg(args, argi)
			if !ok {
				return errcode.BadFormat
			}
			argi++
			if err := d.TransmitInt(v, Hex); err != nil {
				return err
			}
		case 's':
			if argi >= len(args) {
				return errcode.BadFormat
			}
			s, ok := args[argi].(string)
			if !ok {
				return errcode.BadFormat
			}
			argi++
			if _, err := d.TransmitString(s); err != nil {
				return err
			}
		default:
			// Unsupported verb: the string producer already stopped at the
			// '%', continue with the remainder like any other verb.
		}

		if _, err := d.TransmitString(format[i+1:]); err != nil {
			return err
		}
	}
	return nil
}

func intArg(args []any, i int) (int16, bool) {
	if i >= len(args) {
		return 0, false
	}
	switch v := args[i].(type) {
	case int:
		return int16(v), true
	case int8:
		return int16(v), true
	case int16:
		return v, true
	case int32:
		return int16(v), true
	case uint8:
		return int16(v), true
	case uint16:
		return int16(v), true
	default:
		return 0, false
	}
}
