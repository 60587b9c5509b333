package sketch

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"mcucode-go/bus"
	"mcucode-go/drivers/uart"
	"mcucode-go/errcode"
	"mcucode-go/graphics"
	"mcucode-go/hw"
)

// paintDisplay records every painted pixel.
type paintDisplay struct {
	rows, cols uint16
	pix        map[graphics.Vector]uint16
	ll, ur     graphics.Vector
	cursor     graphics.Vector
}

func newPaintDisplay(rows, cols uint16) *paintDisplay {
	return &paintDisplay{rows: rows, cols: cols, pix: map[graphics.Vector]uint16{}}
}

func (f *paintDisplay) Size() (uint16, uint16) { return f.rows, f.cols }

func (f *paintDisplay) SetWindow(ll, ur graphics.Vector) {
	f.ll, f.ur = ll, ur
	f.cursor = ll
}

func (f *paintDisplay) WriteColour(colour uint16, count uint32) {
	for ; count > 0; count-- {
		f.pix[f.cursor] = colour
		if f.cursor.Column == f.ur.Column {
			f.cursor.Column = f.ll.Column
			f.cursor.Row++
		} else {
			f.cursor.Column++
		}
	}
}

func newService(t *testing.T) (*Service, *paintDisplay) {
	t.Helper()
	disp := newPaintDisplay(64, 64)
	u := uart.New(hw.NewUSART())
	u.Init(9600)
	return New(u, disp, nil), disp
}

func TestExecute_MoveAndLine(t *testing.T) {
	s, disp := newService(t)

	if err := s.Execute("move 0 0"); err != nil {
		t.Fatalf("move: %v", err)
	}
	if err := s.Execute("line 5 5"); err != nil {
		t.Fatalf("line: %v", err)
	}

	for i := uint16(0); i <= 5; i++ {
		if disp.pix[graphics.Vector{Row: i, Column: i}] != graphics.ColourCyan {
			t.Errorf("diagonal pixel (%d,%d) not drawn", i, i)
		}
	}
	if s.Cursor() != (graphics.Vector{Row: 5, Column: 5}) {
		t.Errorf("cursor = %v after line", s.Cursor())
	}
}

func TestExecute_ColourThenRectFilled(t *testing.T) {
	s, disp := newService(t)

	for _, cmd := range []string{"colour red", "move 2 2", "rect 4 6 filled"} {
		if err := s.Execute(cmd); err != nil {
			t.Fatalf("%q: %v", cmd, err)
		}
	}
	for r := uint16(2); r <= 4; r++ {
		for c := uint16(2); c <= 6; c++ {
			if disp.pix[graphics.Vector{Row: r, Column: c}] != graphics.ColourRed {
				t.Errorf("pixel (%d,%d) not red", r, c)
			}
		}
	}
}

func TestExecute_NumericColour(t *testing.T) {
	s, disp := newService(t)

	for _, cmd := range []string{"colour 0xF81F", "pixel 3 4"} {
		if err := s.Execute(cmd); err != nil {
			t.Fatalf("%q: %v", cmd, err)
		}
	}
	if disp.pix[graphics.Vector{Row: 3, Column: 4}] != graphics.ColourMagenta {
		t.Error("numeric colour not applied")
	}
}

func TestExecute_CircleAtCursor(t *testing.T) {
	s, disp := newService(t)

	for _, cmd := range []string{"move 32 32", "circle 5"} {
		if err := s.Execute(cmd); err != nil {
			t.Fatalf("%q: %v", cmd, err)
		}
	}
	if disp.pix[graphics.Vector{Row: 32, Column: 37}] != graphics.ColourCyan {
		t.Error("circle cardinal point not drawn")
	}
}

func TestExecute_Errors(t *testing.T) {
	s, _ := newService(t)

	cases := []struct {
		line string
		code errcode.Code
	}{
		{"frobnicate", errcode.UnknownOp},
		{"move 1", errcode.InvalidParams},
		{"move 99 1", errcode.OutOfRange},
		{"move x y", errcode.BadFormat},
		{"line 'unterminated", errcode.BadFormat},
		{"circle", errcode.InvalidParams},
	}
	for _, tc := range cases {
		if got := errcode.Of(s.Execute(tc.line)); got != tc.code {
			t.Errorf("Execute(%q) code = %v, want %v", tc.line, got, tc.code)
		}
	}
}

func TestExecute_PublishesCommands(t *testing.T) {
	b := bus.New(4)
	disp := newPaintDisplay(64, 64)
	u := uart.New(hw.NewUSART())
	u.Init(9600)
	s := New(u, disp, b.NewConnection("sketch"))

	sub := b.NewConnection("watch").Subscribe(bus.T(topicCommand))
	if err := s.Execute("clear"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	select {
	case msg := <-sub.Channel():
		if msg.Payload.(string) != "clear" {
			t.Errorf("published payload %v", msg.Payload)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("command not published")
	}
}

// lineRecorder captures serial output.
type lineRecorder struct {
	mu sync.Mutex
	b  []byte
}

func (r *lineRecorder) WriteByte(b byte) error {
	r.mu.Lock()
	r.b = append(r.b, b)
	r.mu.Unlock()
	return nil
}

func (r *lineRecorder) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return string(r.b)
}

func TestRun_ExecutesLinesAndReportsCursor(t *testing.T) {
	usart := hw.NewUSART()
	rec := &lineRecorder{}
	usart.SetWire(rec)
	u := uart.New(usart)
	u.Init(9600)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	u.Start(ctx)

	disp := newPaintDisplay(64, 64)
	s := New(u, disp, nil)

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	usart.Feed([]byte("move 10 20\rbogus\r"))

	deadline := time.After(time.Second)
	for {
		if strings.Contains(rec.String(), "x: 20; y: 10\r\n") &&
			strings.Contains(rec.String(), "err: unknown_op\r\n") {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("serial output incomplete: %q", rec.String())
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	if err := <-done; err != context.Canceled && err != context.DeadlineExceeded {
		t.Fatalf("Run returned %v", err)
	}
}
