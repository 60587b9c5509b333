package graphics

import "mcucode-go/x/mathx"

// Quadrant masks for corner arcs, numbered anticlockwise from upper-right.
const (
	quadUpperRight uint8 = 0x01
	quadUpperLeft  uint8 = 0x02
	quadLowerLeft  uint8 = 0x04
	quadLowerRight uint8 = 0x08
	quadAll        uint8 = 0x0F
)

// DrawRectangle draws the outline of the rectangle spanned by the lower-left
// and upper-right corners.
func DrawRectangle(d Display, ll, ur Vector, colour uint16) {
	VerticalLine(d, ll.Column, ll.Row, ur.Row, colour)
	VerticalLine(d, ur.Column, ll.Row, ur.Row, colour)
	HorizontalLine(d, ll.Row, ll.Column, ur.Column, colour)
	HorizontalLine(d, ur.Row, ll.Column, ur.Column, colour)
}

// FilledRectangle floods the rectangle spanned by the lower-left and
// upper-right corners, both edges inclusive, with a single window write.
func FilledRectangle(d Display, ll, ur Vector, colour uint16) {
	d.SetWindow(ll, ur)
	d.WriteColour(colour, uint32(ur.Row-ll.Row+1)*uint32(ur.Column-ll.Column+1))
}

// DrawRoundRectangle draws a rectangle outline with quarter-circle corners of
// the given radius. The radius is capped at half the shorter side.
func DrawRoundRectangle(d Display, ll, ur Vector, radius, colour uint16) {
	radius = capRadius(ll, ur, radius)

	HorizontalLine(d, ll.Row, ll.Column+radius, ur.Column-radius, colour)
	HorizontalLine(d, ur.Row, ll.Column+radius, ur.Column-radius, colour)
	VerticalLine(d, ll.Column, ll.Row+radius, ur.Row-radius, colour)
	VerticalLine(d, ur.Column, ll.Row+radius, ur.Row-radius, colour)

	corner := Vector{Row: ll.Row + radius, Column: ll.Column + radius}
	circleHelper(d, corner, int(radius), quadLowerLeft, colour, false)
	corner.Column = ur.Column - radius
	circleHelper(d, corner, int(radius), quadLowerRight, colour, false)
	corner.Row = ur.Row - radius
	circleHelper(d, corner, int(radius), quadUpperRight, colour, false)
	corner.Column = ll.Column + radius
	circleHelper(d, corner, int(radius), quadUpperLeft, colour, false)
}

// FilledRoundRectangle fills a rectangle with quarter-circle corners: the
// central slab and two side slabs as plain rectangles, then one filled
// quadrant arc per corner.
func FilledRoundRectangle(d Display, ll, ur Vector, radius, colour uint16) {
	radius = capRadius(ll, ur, radius)

	FilledRectangle(d,
		Vector{Row: ll.Row, Column: ll.Column + radius},
		Vector{Row: ur.Row, Column: ur.Column - radius}, colour)
	FilledRectangle(d,
		Vector{Row: ll.Row + radius, Column: ll.Column},
		Vector{Row: ur.Row - radius, Column: ll.Column + radius}, colour)
	FilledRectangle(d,
		Vector{Row: ll.Row + radius, Column: ur.Column - radius},
		Vector{Row: ur.Row - radius, Column: ur.Column}, colour)

	corner := Vector{Row: ll.Row + radius, Column: ll.Column + radius}
	circleHelper(d, corner, int(radius), quadLowerLeft, colour, true)
	corner.Column = ur.Column - radius
	circleHelper(d, corner, int(radius), quadLowerRight, colour, true)
	corner.Row = ur.Row - radius
	circleHelper(d, corner, int(radius), quadUpperRight, colour, true)
	corner.Column = ll.Column + radius
	circleHelper(d, corner, int(radius), quadUpperLeft, colour, true)
}

func capRadius(ll, ur Vector, radius uint16) uint16 {
	width := absDiff(ll.Column, ur.Column)
	height := absDiff(ll.Row, ur.Row)
	max := mathx.Min(width, height) / 2
	if int(radius) > max {
		radius = uint16(max)
	}
	return radius
}

// DrawTriangle draws the three edges between the given vertices.
func DrawTriangle(d Display, a, b, c Vector, colour uint16) {
	WriteLine(d, a, b, colour)
	WriteLine(d, b, c, colour)
	WriteLine(d, c, a, colour)
}

// DrawCircle draws a circle outline by the midpoint algorithm.
func DrawCircle(d Display, center Vector, radius uint16, colour uint16) {
	circleHelper(d, center, int(radius), quadAll, colour, false)
}

// FillCircle draws a solid circle: the midpoint walk emits vertical spans
// between symmetric offsets instead of single pixels.
func FillCircle(d Display, center Vector, radius uint16, colour uint16) {
	circleHelper(d, center, int(radius), quadAll, colour, true)
}

// circleHelper walks one octant of the midpoint circle and mirrors each step
// into the quadrants selected by the mask.
func circleHelper(d Display, center Vector, radius int, quadrants uint8, colour uint16, filled bool) {
	if radius <= 0 {
		return
	}
	column, row := -radius, 0
	err := 2 - 2*radius
	for {
		circlePixels(d, center, column, row, colour, quadrants, filled)

		r := err
		if r <= row {
			row++
			err += row*2 + 1
		}
		if r > column || err > row {
			column++
			err += column*2 + 1
		}
		if column >= 0 {
			return
		}
	}
}

// circlePixels emits one symmetric set of pixels (or vertical spans when
// filling) for a single octant step. columnOffset is non-positive during the
// walk, rowOffset non-negative.
func circlePixels(d Display, center Vector, columnOffset, rowOffset int, colour uint16, quadrants uint8, filled bool) {
	cr, cc := int(center.Row), int(center.Column)

	if quadrants&quadUpperRight != 0 {
		col, row := cc-columnOffset, cr+rowOffset
		if filled {
			vspan(d, col, cr, row, colour)
		} else {
			plot(d, row, col, colour)
		}
	}
	if quadrants&quadUpperLeft != 0 {
		col, row := cc-rowOffset, cr-columnOffset
		if filled {
			vspan(d, col, row, cr, colour)
		} else {
			plot(d, row, col, colour)
		}
	}
	if quadrants&quadLowerLeft != 0 {
		col, row := cc+columnOffset, cr-rowOffset
		if filled {
			vspan(d, col, row, cr, colour)
		} else {
			plot(d, row, col, colour)
		}
	}
	if quadrants&quadLowerRight != 0 {
		col, row := cc+rowOffset, cr+columnOffset
		if filled {
			vspan(d, col, cr, row, colour)
		} else {
			plot(d, row, col, colour)
		}
	}
}
