// Package graphics is a small stateless 2D rasterizer over an abstract
// windowed display: set a rectangular addressing window, then stream pixel
// colours into it. Lines and circles are plotted with Bresenham's integer
// algorithms; axis-aligned lines and filled shapes bypass the per-pixel path
// and stream whole spans through a single window.
//
// Coordinates are unsigned. Pixels outside the panel extent are silently
// dropped.
package graphics

import "mcucode-go/x/mathx"

// Vector is a point on the panel.
type Vector struct {
	Row    uint16
	Column uint16
}

// Swap exchanges the row and column axes.
func (v Vector) Swap() Vector {
	return Vector{Row: v.Column, Column: v.Row}
}

// Display is the hardware collaborator: a panel controller with window
// addressing. WriteColour streams count pixels of one colour into the
// current window, advancing column-first then row, and wrapping within the
// window.
type Display interface {
	// Size reports the panel extent in rows and columns.
	Size() (rows, columns uint16)
	// SetWindow sets the rectangular addressing window, inclusive of both
	// corners, and leaves the controller ready to accept pixel data.
	SetWindow(ll, ur Vector)
	// WriteColour streams count pixels of colour into the window.
	WriteColour(colour uint16, count uint32)
}

// Fill floods the entire panel with one colour, erasing anything previously
// drawn.
func Fill(d Display, colour uint16) {
	rows, columns := d.Size()
	if rows == 0 || columns == 0 {
		return
	}
	d.SetWindow(Vector{0, 0}, Vector{Row: rows - 1, Column: columns - 1})
	d.WriteColour(colour, uint32(rows)*uint32(columns))
}

// WritePixel sets one pixel. Out-of-bounds positions are dropped.
func WritePixel(d Display, p Vector, colour uint16) {
	rows, columns := d.Size()
	if p.Row >= rows || p.Column >= columns {
		return
	}
	d.SetWindow(p, p)
	d.WriteColour(colour, 1)
}

// VerticalLine draws a one-pixel-wide column span, endpoints inclusive and in
// either order. A single window write covers the whole span, skipping the
// general line algorithm.
func VerticalLine(d Display, column, startRow, endRow uint16, colour uint16) {
	if startRow > endRow {
		startRow, endRow = endRow, startRow
	}
	d.SetWindow(
		Vector{Row: startRow, Column: column},
		Vector{Row: endRow, Column: column},
	)
	d.WriteColour(colour, uint32(endRow-startRow)+1)
}

// HorizontalLine draws a one-pixel-high row span, endpoints inclusive and in
// either order.
func HorizontalLine(d Display, row, startColumn, endColumn uint16, colour uint16) {
	if startColumn > endColumn {
		startColumn, endColumn = endColumn, startColumn
	}
	d.SetWindow(
		Vector{Row: row, Column: startColumn},
		Vector{Row: row, Column: endColumn},
	)
	d.WriteColour(colour, uint32(endColumn-startColumn)+1)
}

// WriteLine draws a straight line from start to end, endpoints inclusive.
// Axis-aligned lines take the span fast path; everything else is Bresenham's
// algorithm, plotting each lattice point on the line exactly once. Crossing
// pixels overwrite whatever was there.
func WriteLine(d Display, start, end Vector, colour uint16) {
	if start.Column == end.Column {
		VerticalLine(d, start.Column, start.Row, end.Row, colour)
		return
	}
	if start.Row == end.Row {
		HorizontalLine(d, start.Row, start.Column, end.Column, colour)
		return
	}

	columnInterval := absDiff(start.Column, end.Column)
	rowInterval := -absDiff(start.Row, end.Row)
	columnStep := step(start.Column, end.Column)
	rowStep := step(start.Row, end.Row)

	cursor := start
	err := columnInterval + rowInterval
	for {
		WritePixel(d, cursor, colour)
		if cursor == end {
			return
		}

		e2 := err * 2
		if e2 >= rowInterval {
			if cursor.Column == end.Column {
				return
			}
			err += rowInterval
			cursor.Column = uint16(int(cursor.Column) + columnStep)
		}
		if e2 <= columnInterval {
			if cursor.Row == end.Row {
				return
			}
			err += columnInterval
			cursor.Row = uint16(int(cursor.Row) + rowStep)
		}
	}
}

func absDiff(a, b uint16) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}

func step(from, to uint16) int {
	if from < to {
		return 1
	}
	return -1
}

// plot drops negative or out-of-bounds coordinates, for callers working in
// signed offset space.
func plot(d Display, row, column int, colour uint16) {
	if row < 0 || column < 0 {
		return
	}
	WritePixel(d, Vector{Row: uint16(row), Column: uint16(column)}, colour)
}

// vspan fills column between two rows, clipping to the panel.
func vspan(d Display, column, startRow, endRow int, colour uint16) {
	if startRow > endRow {
		startRow, endRow = endRow, startRow
	}
	rows, columns := d.Size()
	if column < 0 || column >= int(columns) || endRow < 0 || startRow >= int(rows) {
		return
	}
	startRow = mathx.Clamp(startRow, 0, int(rows)-1)
	endRow = mathx.Clamp(endRow, 0, int(rows)-1)
	VerticalLine(d, uint16(column), uint16(startRow), uint16(endRow), colour)
}
