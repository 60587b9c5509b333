// Package sketch is the interactive drawing service: it reads CR-terminated
// command lines from the serial driver, tokenises them, and executes drawing
// operations against the panel, keeping a cursor the way the original
// dial-driven sketcher did. Each executed command is echoed with the cursor
// position and published on the bus.
package sketch

import (
	"context"
	"strconv"

	"github.com/google/shlex"

	"mcucode-go/bus"
	"mcucode-go/drivers/uart"
	"mcucode-go/errcode"
	"mcucode-go/graphics"
	"mcucode-go/x/mathx"
)

const topicCommand = "sketch/cmd"

// colours maps command-line colour names to RGB565 values.
var colours = map[string]uint16{
	"black":   graphics.ColourBlack,
	"blue":    graphics.ColourBlue,
	"green":   graphics.ColourGreen,
	"cyan":    graphics.ColourCyan,
	"red":     graphics.ColourRed,
	"magenta": graphics.ColourMagenta,
	"yellow":  graphics.ColourYellow,
	"orange":  graphics.ColourOrange,
	"white":   graphics.ColourWhite,
	"pink":    graphics.ColourPink,
}

// Service drives a display from serial commands.
type Service struct {
	uart *uart.Driver
	disp graphics.Display
	conn *bus.Connection

	cursor graphics.Vector
	colour uint16
}

// New creates the service with the cursor at the panel centre and the pen
// set to cyan, matching the original sketcher's start state.
func New(u *uart.Driver, d graphics.Display, conn *bus.Connection) *Service {
	rows, columns := d.Size()
	return &Service{
		uart:   u,
		disp:   d,
		conn:   conn,
		cursor: graphics.Vector{Row: rows / 2, Column: columns / 2},
		colour: graphics.ColourCyan,
	}
}

// Cursor reports the current pen position.
func (s *Service) Cursor() graphics.Vector { return s.cursor }

// Run reads and executes command lines until the context ends.
func (s *Service) Run(ctx context.Context) error {
	buf := make([]byte, 80)
	for {
		n, err := s.uart.ReadLine(ctx, buf)
		if err != nil {
			return err
		}
		if n == 0 {
			continue
		}
		if err := s.Execute(string(buf[:n])); err != nil {
			_ = s.uart.Printf("err: %s\r\n", string(errcode.Of(err)))
			continue
		}
		s.reportCursor()
	}
}

// Execute runs a single command line.
//
// Commands: move R C | line R C | pixel [R C] | rect R C [filled] |
// circle RADIUS [filled] | colour NAME|VALUE | fill [NAME|VALUE] | clear
func (s *Service) Execute(line string) error {
	tokens, err := shlex.Split(line)
	if err != nil {
		return &errcode.E{C: errcode.BadFormat, Op: "sketch.execute", Msg: "bad quoting", Err: err}
	}
	if len(tokens) == 0 {
		return nil
	}
	verb, args := tokens[0], tokens[1:]

	switch verb {
	case "move":
		p, err := s.point(args)
		if err != nil {
			return err
		}
		s.cursor = p

	case "line":
		p, err := s.point(args)
		if err != nil {
			return err
		}
		graphics.WriteLine(s.disp, s.cursor, p, s.colour)
		s.cursor = p

	case "pixel":
		p := s.cursor
		if len(args) > 0 {
			if p, err = s.point(args); err != nil {
				return err
			}
		}
		graphics.WritePixel(s.disp, p, s.colour)
		s.cursor = p

	case "rect":
		p, err := s.point(trimFilled(args))
		if err != nil {
			return err
		}
		ll, ur := corners(s.cursor, p)
		if isFilled(args) {
			graphics.FilledRectangle(s.disp, ll, ur, s.colour)
		} else {
			graphics.DrawRectangle(s.disp, ll, ur, s.colour)
		}

	case "circle":
		rest := trimFilled(args)
		if len(rest) != 1 {
			return errcode.InvalidParams
		}
		radius, err := parseCoord(rest[0])
		if err != nil {
			return err
		}
		if isFilled(args) {
			graphics.FillCircle(s.disp, s.cursor, radius, s.colour)
		} else {
			graphics.DrawCircle(s.disp, s.cursor, radius, s.colour)
		}

	case "colour", "color":
		if len(args) != 1 {
			return errcode.InvalidParams
		}
		c, err := parseColour(args[0])
		if err != nil {
			return err
		}
		s.colour = c

	case "fill":
		c := s.colour
		if len(args) > 0 {
			if c, err = parseColour(args[0]); err != nil {
				return err
			}
		}
		graphics.Fill(s.disp, c)

	case "clear":
		graphics.Fill(s.disp, graphics.ColourBlack)

	default:
		return &errcode.E{C: errcode.UnknownOp, Op: "sketch.execute", Msg: verb}
	}

	if s.conn != nil {
		s.conn.Publish(&bus.Message{Topic: bus.T(topicCommand), Payload: line})
	}
	return nil
}

// reportCursor echoes the pen position over the serial link, in the original
// sketcher's format.
func (s *Service) reportCursor() {
	_ = s.uart.Printf("x: %d; y: %d\r\n", int16(s.cursor.Column), int16(s.cursor.Row))
}

// point parses a "ROW COLUMN" argument pair and bounds-checks it against the
// panel.
func (s *Service) point(args []string) (graphics.Vector, error) {
	if len(args) != 2 {
		return graphics.Vector{}, errcode.InvalidParams
	}
	row, err := parseCoord(args[0])
	if err != nil {
		return graphics.Vector{}, err
	}
	column, err := parseCoord(args[1])
	if err != nil {
		return graphics.Vector{}, err
	}
	rows, columns := s.disp.Size()
	if row >= rows || column >= columns {
		return graphics.Vector{}, errcode.OutOfRange
	}
	return graphics.Vector{Row: row, Column: column}, nil
}

func parseCoord(tok string) (uint16, error) {
	v, err := strconv.ParseUint(tok, 0, 16)
	if err != nil {
		return 0, &errcode.E{C: errcode.BadFormat, Op: "sketch.parse", Msg: tok, Err: err}
	}
	return uint16(v), nil
}

func parseColour(tok string) (uint16, error) {
	if c, ok := colours[tok]; ok {
		return c, nil
	}
	return parseCoord(tok)
}

func isFilled(args []string) bool {
	return len(args) > 0 && args[len(args)-1] == "filled"
}

func trimFilled(args []string) []string {
	if isFilled(args) {
		return args[:len(args)-1]
	}
	return args
}

func corners(a, b graphics.Vector) (ll, ur graphics.Vector) {
	ll = graphics.Vector{Row: mathx.Min(a.Row, b.Row), Column: mathx.Min(a.Column, b.Column)}
	ur = graphics.Vector{Row: mathx.Max(a.Row, b.Row), Column: mathx.Max(a.Column, b.Column)}
	return ll, ur
}
