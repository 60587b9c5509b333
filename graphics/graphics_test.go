package graphics

import "testing"

// fakeDisplay rasterizes window writes into a pixel map, emulating a panel
// controller's column-first raster order with wrap inside the window.
type fakeDisplay struct {
	rows, cols uint16
	pix        map[Vector]uint16
	ll, ur     Vector
	cursor     Vector
	windows    int
}

func newFakeDisplay(rows, cols uint16) *fakeDisplay {
	return &fakeDisplay{rows: rows, cols: cols, pix: map[Vector]uint16{}}
}

func (f *fakeDisplay) Size() (uint16, uint16) { return f.rows, f.cols }

func (f *fakeDisplay) SetWindow(ll, ur Vector) {
	f.ll, f.ur = ll, ur
	f.cursor = ll
	f.windows++
}

func (f *fakeDisplay) WriteColour(colour uint16, count uint32) {
	for ; count > 0; count-- {
		if f.cursor.Row < f.rows && f.cursor.Column < f.cols {
			f.pix[f.cursor] = colour
		}
		if f.cursor.Column == f.ur.Column {
			f.cursor.Column = f.ll.Column
			if f.cursor.Row == f.ur.Row {
				f.cursor.Row = f.ll.Row
			} else {
				f.cursor.Row++
			}
		} else {
			f.cursor.Column++
		}
	}
}

const white = 0xFFFF

func TestWriteLine_DiagonalPlotsEachPointOnce(t *testing.T) {
	d := newFakeDisplay(16, 16)
	WriteLine(d, Vector{0, 0}, Vector{5, 5}, white)

	if len(d.pix) != 6 {
		t.Fatalf("diagonal line set %d pixels, want 6: %v", len(d.pix), d.pix)
	}
	for i := uint16(0); i <= 5; i++ {
		if _, ok := d.pix[Vector{Row: i, Column: i}]; !ok {
			t.Errorf("missing diagonal point (%d,%d)", i, i)
		}
	}
}

func TestWriteLine_HorizontalFastPath(t *testing.T) {
	d := newFakeDisplay(16, 16)
	WriteLine(d, Vector{0, 0}, Vector{0, 5}, white)

	if len(d.pix) != 6 {
		t.Fatalf("horizontal line set %d pixels, want 6: %v", len(d.pix), d.pix)
	}
	for c := uint16(0); c <= 5; c++ {
		if _, ok := d.pix[Vector{Row: 0, Column: c}]; !ok {
			t.Errorf("missing point (0,%d)", c)
		}
	}
	if d.windows != 1 {
		t.Errorf("horizontal line used %d windows, want a single span", d.windows)
	}
}

func TestWriteLine_VerticalFastPathReversedEndpoints(t *testing.T) {
	d := newFakeDisplay(16, 16)
	WriteLine(d, Vector{Row: 9, Column: 3}, Vector{Row: 4, Column: 3}, white)

	if len(d.pix) != 6 {
		t.Fatalf("vertical line set %d pixels, want 6", len(d.pix))
	}
	for r := uint16(4); r <= 9; r++ {
		if _, ok := d.pix[Vector{Row: r, Column: 3}]; !ok {
			t.Errorf("missing point (%d,3)", r)
		}
	}
	if d.windows != 1 {
		t.Errorf("vertical line used %d windows, want a single span", d.windows)
	}
}

func TestWriteLine_ShallowSlopeCoversFullExtent(t *testing.T) {
	d := newFakeDisplay(32, 32)
	WriteLine(d, Vector{0, 0}, Vector{Row: 2, Column: 10}, white)

	// Every column between the endpoints must be touched exactly once per
	// Bresenham on a shallow line.
	for c := uint16(0); c <= 10; c++ {
		hits := 0
		for r := uint16(0); r <= 2; r++ {
			if _, ok := d.pix[Vector{Row: r, Column: c}]; ok {
				hits++
			}
		}
		if hits != 1 {
			t.Errorf("column %d hit %d times, want 1", c, hits)
		}
	}
	if _, ok := d.pix[Vector{0, 0}]; !ok {
		t.Error("start endpoint missing")
	}
	if _, ok := d.pix[Vector{Row: 2, Column: 10}]; !ok {
		t.Error("end endpoint missing")
	}
}

func TestWritePixel_OutOfBoundsDropped(t *testing.T) {
	d := newFakeDisplay(8, 8)
	WritePixel(d, Vector{Row: 8, Column: 0}, white)
	WritePixel(d, Vector{Row: 0, Column: 8}, white)
	WritePixel(d, Vector{Row: 200, Column: 200}, white)

	if len(d.pix) != 0 || d.windows != 0 {
		t.Errorf("out-of-bounds pixels reached the display: %v", d.pix)
	}
}

func TestFill_CoversPanel(t *testing.T) {
	d := newFakeDisplay(4, 6)
	Fill(d, 0x1234)

	if len(d.pix) != 24 {
		t.Fatalf("fill set %d pixels, want 24", len(d.pix))
	}
	for v, c := range d.pix {
		if c != 0x1234 {
			t.Fatalf("pixel %v has colour %#x", v, c)
		}
	}
}

func TestFilledRectangle_ExactArea(t *testing.T) {
	d := newFakeDisplay(16, 16)
	FilledRectangle(d, Vector{Row: 2, Column: 3}, Vector{Row: 5, Column: 7}, white)

	if len(d.pix) != 4*5 {
		t.Fatalf("filled rectangle set %d pixels, want 20", len(d.pix))
	}
	for r := uint16(2); r <= 5; r++ {
		for c := uint16(3); c <= 7; c++ {
			if _, ok := d.pix[Vector{Row: r, Column: c}]; !ok {
				t.Errorf("missing interior pixel (%d,%d)", r, c)
			}
		}
	}
}

func TestDrawRectangle_OutlineOnly(t *testing.T) {
	d := newFakeDisplay(16, 16)
	DrawRectangle(d, Vector{Row: 2, Column: 2}, Vector{Row: 6, Column: 8}, white)

	if _, ok := d.pix[Vector{Row: 4, Column: 5}]; ok {
		t.Error("outline rectangle filled its interior")
	}
	for c := uint16(2); c <= 8; c++ {
		if _, ok := d.pix[Vector{Row: 2, Column: c}]; !ok {
			t.Errorf("missing bottom edge pixel (2,%d)", c)
		}
		if _, ok := d.pix[Vector{Row: 6, Column: c}]; !ok {
			t.Errorf("missing top edge pixel (6,%d)", c)
		}
	}
	for r := uint16(2); r <= 6; r++ {
		if _, ok := d.pix[Vector{Row: r, Column: 2}]; !ok {
			t.Errorf("missing left edge pixel (%d,2)", r)
		}
		if _, ok := d.pix[Vector{Row: r, Column: 8}]; !ok {
			t.Errorf("missing right edge pixel (%d,8)", r)
		}
	}
}

func TestDrawCircle_FourWaySymmetry(t *testing.T) {
	d := newFakeDisplay(32, 32)
	center := Vector{Row: 16, Column: 16}
	DrawCircle(d, center, 5, white)

	if len(d.pix) == 0 {
		t.Fatal("circle drew nothing")
	}
	for v := range d.pix {
		dr := int(v.Row) - int(center.Row)
		dc := int(v.Column) - int(center.Column)
		mirrors := []Vector{
			{Row: uint16(int(center.Row) - dr), Column: v.Column},
			{Row: v.Row, Column: uint16(int(center.Column) - dc)},
			{Row: uint16(int(center.Row) - dr), Column: uint16(int(center.Column) - dc)},
		}
		for _, m := range mirrors {
			if _, ok := d.pix[m]; !ok {
				t.Fatalf("pixel %v has no mirror %v", v, m)
			}
		}
	}

	// Cardinal extremes sit at exactly radius distance.
	for _, v := range []Vector{
		{Row: 16, Column: 11}, {Row: 16, Column: 21},
		{Row: 11, Column: 16}, {Row: 21, Column: 16},
	} {
		if _, ok := d.pix[v]; !ok {
			t.Errorf("missing cardinal point %v", v)
		}
	}
	if _, ok := d.pix[center]; ok {
		t.Error("circle outline plotted its own center")
	}
}

func TestFillCircle_InteriorSolid(t *testing.T) {
	d := newFakeDisplay(32, 32)
	center := Vector{Row: 16, Column: 16}
	FillCircle(d, center, 5, white)

	// Every lattice point strictly inside the radius must be painted.
	for dr := -4; dr <= 4; dr++ {
		for dc := -4; dc <= 4; dc++ {
			if dr*dr+dc*dc > 4*4 {
				continue
			}
			v := Vector{Row: uint16(16 + dr), Column: uint16(16 + dc)}
			if _, ok := d.pix[v]; !ok {
				t.Errorf("interior point %v not filled", v)
			}
		}
	}
	if _, ok := d.pix[Vector{Row: 16, Column: 25}]; ok {
		t.Error("fill leaked outside the radius")
	}
}

func TestCircle_ClipsAtPanelEdge(t *testing.T) {
	d := newFakeDisplay(8, 8)
	DrawCircle(d, Vector{Row: 0, Column: 0}, 5, white)

	for v := range d.pix {
		if v.Row >= 8 || v.Column >= 8 {
			t.Fatalf("pixel %v escaped the panel", v)
		}
	}
}

func TestDrawTriangle_EdgesPresent(t *testing.T) {
	d := newFakeDisplay(32, 32)
	a := Vector{Row: 2, Column: 2}
	b := Vector{Row: 2, Column: 12}
	c := Vector{Row: 10, Column: 7}
	DrawTriangle(d, a, b, c, white)

	for _, v := range []Vector{a, b, c} {
		if _, ok := d.pix[v]; !ok {
			t.Errorf("vertex %v not plotted", v)
		}
	}
	// The base is a horizontal fast-path span.
	for col := uint16(2); col <= 12; col++ {
		if _, ok := d.pix[Vector{Row: 2, Column: col}]; !ok {
			t.Errorf("missing base pixel (2,%d)", col)
		}
	}
}

func TestRoundRectangle_RadiusCapped(t *testing.T) {
	d := newFakeDisplay(32, 32)
	// Radius larger than half the short side must be capped, not wrap.
	DrawRoundRectangle(d, Vector{Row: 4, Column: 4}, Vector{Row: 10, Column: 20}, 30, white)

	for v := range d.pix {
		if v.Row < 4 || v.Row > 10 || v.Column < 4 || v.Column > 20 {
			t.Fatalf("pixel %v outside the rectangle bounds", v)
		}
	}
}

func TestFilledRoundRectangle_CoreSolid(t *testing.T) {
	d := newFakeDisplay(32, 32)
	FilledRoundRectangle(d, Vector{Row: 4, Column: 4}, Vector{Row: 12, Column: 20}, 3, white)

	// Central slab, inset by the radius on both sides, must be solid.
	for r := uint16(4); r <= 12; r++ {
		for c := uint16(7); c <= 17; c++ {
			if _, ok := d.pix[Vector{Row: r, Column: c}]; !ok {
				t.Errorf("central slab pixel (%d,%d) not filled", r, c)
			}
		}
	}
	// Square corner outside the arc stays clear.
	if _, ok := d.pix[Vector{Row: 4, Column: 4}]; ok {
		t.Error("square corner pixel filled despite rounding")
	}
}
